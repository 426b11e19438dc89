package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/hireloop/interviewroom/internal/models"
	"github.com/hireloop/interviewroom/internal/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FeedbackRepository interface {
	Get(ctx context.Context, roomID uint, interviewerID string) (*models.Feedback, error)
	ListByRoom(ctx context.Context, roomID uint) ([]models.Feedback, error)

	// Submit stores the feedback, completes the room if it is still live and
	// records the earning, all in one transaction. completed reports whether
	// this call performed the room transition. Returns utils.ErrDuplicate
	// for a second feedback from the same interviewer and
	// utils.ErrStateChanged when the room was cancelled meanwhile.
	Submit(ctx context.Context, fb *models.Feedback, earning *models.Earning, at time.Time) (completed bool, err error)
}

type feedbackRepo struct {
	db *gorm.DB
}

func NewFeedbackRepo(db *gorm.DB) FeedbackRepository {
	return &feedbackRepo{db: db}
}

func (r *feedbackRepo) Get(ctx context.Context, roomID uint, interviewerID string) (*models.Feedback, error) {
	var fb models.Feedback
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND interviewer_id = ?", roomID, interviewerID).
		Take(&fb).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &fb, nil
}

func (r *feedbackRepo) ListByRoom(ctx context.Context, roomID uint) ([]models.Feedback, error) {
	var rows []models.Feedback
	err := r.db.WithContext(ctx).Where("room_id = ?", roomID).Order("id ASC").Find(&rows).Error
	return rows, err
}

func (r *feedbackRepo) Submit(ctx context.Context, fb *models.Feedback, earning *models.Earning, at time.Time) (bool, error) {
	var completed bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Feedback{}).
			Where("room_id = ? AND interviewer_id = ?", fb.RoomID, fb.InterviewerID).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return utils.ErrDuplicate
		}

		ok, err := completeRoom(tx, fb.RoomID, at)
		if err != nil {
			return err
		}
		if !ok {
			var room models.Room
			if err := tx.Select("status").Where("id = ?", fb.RoomID).Take(&room).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return utils.ErrNotFound
				}
				return err
			}
			if room.Status != models.RoomCompleted {
				return utils.ErrStateChanged
			}
		}
		completed = ok

		if err := tx.Create(fb).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return utils.ErrDuplicate
			}
			return err
		}

		if earning != nil {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "interviewer_id"}, {Name: "interview_room_id"}},
				DoNothing: true,
			}).Create(earning).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return completed, nil
}
