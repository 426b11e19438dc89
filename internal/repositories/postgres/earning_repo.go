package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/hireloop/interviewroom/internal/models"
	"github.com/hireloop/interviewroom/internal/utils"
	"gorm.io/gorm"
)

type EarningRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Earning, error)
	GetForRoom(ctx context.Context, interviewerID string, roomID uint) (*models.Earning, error)
	ListByInterviewer(ctx context.Context, interviewerID string) ([]models.Earning, error)
	// Advance moves an earning from one status to the next. Returns
	// utils.ErrStateChanged if the row is no longer in from.
	Advance(ctx context.Context, id uint, from, to models.EarningStatus, at time.Time) error
}

type earningRepo struct {
	db *gorm.DB
}

func NewEarningRepo(db *gorm.DB) EarningRepository {
	return &earningRepo{db: db}
}

func (r *earningRepo) GetByID(ctx context.Context, id uint) (*models.Earning, error) {
	var e models.Earning
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *earningRepo) GetForRoom(ctx context.Context, interviewerID string, roomID uint) (*models.Earning, error) {
	var e models.Earning
	err := r.db.WithContext(ctx).
		Where("interviewer_id = ? AND interview_room_id = ?", interviewerID, roomID).
		Take(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *earningRepo) ListByInterviewer(ctx context.Context, interviewerID string) ([]models.Earning, error) {
	var rows []models.Earning
	err := r.db.WithContext(ctx).
		Where("interviewer_id = ?", interviewerID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

func (r *earningRepo) Advance(ctx context.Context, id uint, from, to models.EarningStatus, at time.Time) error {
	updates := map[string]any{"status": to}
	switch to {
	case models.EarningConfirmed:
		updates["confirmed_at"] = at
	case models.EarningPaid:
		updates["paid_at"] = at
	}
	res := r.db.WithContext(ctx).Model(&models.Earning{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return utils.ErrStateChanged
	}
	return nil
}
