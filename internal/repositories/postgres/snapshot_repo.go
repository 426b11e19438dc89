package postgres

import (
	"context"
	"errors"

	"github.com/hireloop/interviewroom/internal/models"
	"github.com/hireloop/interviewroom/internal/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SnapshotRepository interface {
	Get(ctx context.Context, roomID uint) (*models.CodeSnapshot, error)
	Upsert(ctx context.Context, s *models.CodeSnapshot) error
}

type snapshotRepo struct {
	db *gorm.DB
}

func NewSnapshotRepo(db *gorm.DB) SnapshotRepository {
	return &snapshotRepo{db: db}
}

func (r *snapshotRepo) Get(ctx context.Context, roomID uint) (*models.CodeSnapshot, error) {
	var s models.CodeSnapshot
	err := r.db.WithContext(ctx).Where("room_id = ?", roomID).Take(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Upsert overwrites the room's snapshot. Last writer wins.
func (r *snapshotRepo) Upsert(ctx context.Context, s *models.CodeSnapshot) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "room_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"language", "code_content", "updated_by", "updated_at"}),
		}).
		Create(s).Error
}
