package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/hireloop/interviewroom/internal/models"
	"github.com/hireloop/interviewroom/internal/utils"
	"gorm.io/gorm"
)

type ParticipantRepository interface {
	Get(ctx context.Context, roomID uint, userID string) (*models.Participant, error)
	ListByRoom(ctx context.Context, roomID uint) ([]models.Participant, error)
	Add(ctx context.Context, p *models.Participant) error
	MarkJoined(ctx context.Context, id uint, at time.Time) error
	// MarkLeft only touches rows still flagged active, so repeated calls are no-ops.
	MarkLeft(ctx context.Context, id uint, at time.Time) (bool, error)
	ListActiveJoinedBefore(ctx context.Context, cutoff time.Time) ([]models.Participant, error)
}

type participantRepo struct {
	db *gorm.DB
}

func NewParticipantRepo(db *gorm.DB) ParticipantRepository {
	return &participantRepo{db: db}
}

func (r *participantRepo) Get(ctx context.Context, roomID uint, userID string) (*models.Participant, error) {
	var p models.Participant
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *participantRepo) ListByRoom(ctx context.Context, roomID uint) ([]models.Participant, error) {
	var rows []models.Participant
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *participantRepo) Add(ctx context.Context, p *models.Participant) error {
	return addParticipant(r.db.WithContext(ctx), p)
}

func addParticipant(db *gorm.DB, p *models.Participant) error {
	var n int64
	if err := db.Model(&models.Participant{}).
		Where("room_id = ? AND user_id = ?", p.RoomID, p.UserID).
		Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return utils.ErrDuplicate
	}
	if p.Role == models.RoleCandidate {
		if err := db.Model(&models.Participant{}).
			Where("room_id = ? AND role = ?", p.RoomID, models.RoleCandidate).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return utils.ErrConflict
		}
	}
	err := db.Create(p).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return utils.ErrDuplicate
	}
	return err
}

func (r *participantRepo) MarkJoined(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.Participant{}).
		Where("id = ?", id).
		Updates(map[string]any{"joined_at": at, "left_at": nil, "is_active": true}).Error
}

func (r *participantRepo) MarkLeft(ctx context.Context, id uint, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Participant{}).
		Where("id = ? AND is_active = ?", id, true).
		Updates(map[string]any{"left_at": at, "is_active": false})
	return res.RowsAffected == 1, res.Error
}

func (r *participantRepo) ListActiveJoinedBefore(ctx context.Context, cutoff time.Time) ([]models.Participant, error) {
	var rows []models.Participant
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND (joined_at IS NULL OR joined_at < ?)", true, cutoff).
		Find(&rows).Error
	return rows, err
}
