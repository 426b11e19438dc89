package postgres

import (
	"context"
	"errors"

	"github.com/hireloop/interviewroom/internal/models"
	"github.com/hireloop/interviewroom/internal/utils"
	"gorm.io/gorm"
)

// CatalogRepository reads the application and interviewer rows kept by the
// catalog service.
type CatalogRepository interface {
	GetApplication(ctx context.Context, id uint) (*models.Application, error)
	GetInterviewerProfile(ctx context.Context, userID string) (*models.InterviewerProfile, error)
}

type catalogRepo struct {
	db *gorm.DB
}

func NewCatalogRepo(db *gorm.DB) CatalogRepository {
	return &catalogRepo{db: db}
}

func (r *catalogRepo) GetApplication(ctx context.Context, id uint) (*models.Application, error) {
	var a models.Application
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *catalogRepo) GetInterviewerProfile(ctx context.Context, userID string) (*models.InterviewerProfile, error) {
	var p models.InterviewerProfile
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
