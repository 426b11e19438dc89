package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/hireloop/interviewroom/internal/models"
	"github.com/hireloop/interviewroom/internal/utils"
	"gorm.io/gorm"
)

type RoomRepository interface {
	GetByCode(ctx context.Context, code string) (*models.Room, error)
	GetByID(ctx context.Context, id uint) (*models.Room, error)
	LiveForApplication(ctx context.Context, applicationID uint) (*models.Room, error)

	// CreateWithParticipants inserts a scheduled room and its known
	// attendees. Returns utils.ErrConflict if the application already has
	// a live room.
	CreateWithParticipants(ctx context.Context, room *models.Room, participants []models.Participant) error

	Activate(ctx context.Context, id uint, at time.Time) (bool, error)
	Complete(ctx context.Context, id uint, at time.Time) (bool, error)
	Cancel(ctx context.Context, id uint, at time.Time) (bool, error)

	// DeleteAggregate removes a cancelled room together with its code
	// snapshot, feedback and participants.
	DeleteAggregate(ctx context.Context, id uint) error
}

type roomRepo struct {
	db *gorm.DB
}

func NewRoomRepo(db *gorm.DB) RoomRepository {
	return &roomRepo{db: db}
}

var liveStatuses = []models.RoomStatus{models.RoomScheduled, models.RoomActive}

func (r *roomRepo) GetByCode(ctx context.Context, code string) (*models.Room, error) {
	var room models.Room
	err := r.db.WithContext(ctx).Where("room_code = ?", code).Take(&room).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *roomRepo) GetByID(ctx context.Context, id uint) (*models.Room, error) {
	var room models.Room
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&room).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *roomRepo) LiveForApplication(ctx context.Context, applicationID uint) (*models.Room, error) {
	var room models.Room
	err := r.db.WithContext(ctx).
		Where("job_application_id = ? AND status IN ?", applicationID, liveStatuses).
		Order("id DESC").
		Take(&room).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *roomRepo) CreateWithParticipants(ctx context.Context, room *models.Room, participants []models.Participant) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var live int64
		if err := tx.Model(&models.Room{}).
			Where("job_application_id = ? AND status IN ?", room.ApplicationID, liveStatuses).
			Count(&live).Error; err != nil {
			return err
		}
		if live > 0 {
			return utils.ErrConflict
		}

		if err := tx.Omit("Participants").Create(room).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return utils.ErrDuplicate
			}
			return err
		}
		for i := range participants {
			participants[i].RoomID = room.ID
		}
		if len(participants) > 0 {
			if err := tx.Create(&participants).Error; err != nil {
				return err
			}
		}
		room.Participants = participants
		return nil
	})
}

// Activate performs the scheduled -> active check-and-set. Only the caller
// that wins the transition gets true.
func (r *roomRepo) Activate(ctx context.Context, id uint, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Room{}).
		Where("id = ? AND status = ?", id, models.RoomScheduled).
		Updates(map[string]any{"status": models.RoomActive, "started_at": at})
	return res.RowsAffected == 1, res.Error
}

func (r *roomRepo) Complete(ctx context.Context, id uint, at time.Time) (bool, error) {
	return completeRoom(r.db.WithContext(ctx), id, at)
}

func completeRoom(db *gorm.DB, id uint, at time.Time) (bool, error) {
	res := db.Model(&models.Room{}).
		Where("id = ? AND status IN ?", id, liveStatuses).
		Updates(map[string]any{"status": models.RoomCompleted, "ended_at": at})
	return res.RowsAffected == 1, res.Error
}

func (r *roomRepo) Cancel(ctx context.Context, id uint, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Room{}).
		Where("id = ? AND status IN ?", id, liveStatuses).
		Updates(map[string]any{"status": models.RoomCancelled, "ended_at": at})
	return res.RowsAffected == 1, res.Error
}

func (r *roomRepo) DeleteAggregate(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var room models.Room
		err := tx.Where("id = ?", id).Take(&room).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.ErrNotFound
		}
		if err != nil {
			return err
		}
		if room.Status != models.RoomCancelled {
			return utils.ErrStateChanged
		}

		if err := tx.Where("room_id = ?", id).Delete(&models.CodeSnapshot{}).Error; err != nil {
			return err
		}
		if err := tx.Where("room_id = ?", id).Delete(&models.Feedback{}).Error; err != nil {
			return err
		}
		if err := tx.Where("room_id = ?", id).Delete(&models.Participant{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ? AND status = ?", id, models.RoomCancelled).Delete(&models.Room{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return utils.ErrStateChanged
		}
		return nil
	})
}
