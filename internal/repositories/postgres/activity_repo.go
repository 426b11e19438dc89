package postgres

import (
	"context"
	"encoding/json"

	"github.com/hireloop/interviewroom/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ActivityRepository interface {
	Record(ctx context.Context, entity, operation string, recordID uint, oldValues, newValues any, userID string) error
	ListFor(ctx context.Context, entity string, recordID uint) ([]models.ActivityLog, error)
}

type activityRepo struct {
	db *gorm.DB
}

func NewActivityRepo(db *gorm.DB) ActivityRepository {
	return &activityRepo{db: db}
}

func (r *activityRepo) Record(ctx context.Context, entity, operation string, recordID uint, oldValues, newValues any, userID string) error {
	row := models.ActivityLog{
		Entity:    entity,
		Operation: operation,
		RecordID:  recordID,
		UserID:    userID,
	}
	var err error
	if row.OldValues, err = toJSON(oldValues); err != nil {
		return err
	}
	if row.NewValues, err = toJSON(newValues); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(&row).Error
}

func (r *activityRepo) ListFor(ctx context.Context, entity string, recordID uint) ([]models.ActivityLog, error) {
	var rows []models.ActivityLog
	err := r.db.WithContext(ctx).
		Where("table_name = ? AND record_id = ?", entity, recordID).
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

func toJSON(v any) (datatypes.JSON, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}
