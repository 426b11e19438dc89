package postgres

import (
	"context"
	"errors"

	"github.com/hireloop/interviewroom/internal/models"
	"github.com/hireloop/interviewroom/internal/utils"
	"gorm.io/gorm"
)

type RecommendationRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Recommendation, error)
	ListByApplication(ctx context.Context, applicationID uint) ([]models.Recommendation, error)
	// Create returns utils.ErrConflict if the same interviewer already has a
	// pending recommendation for the application.
	Create(ctx context.Context, rec *models.Recommendation) error
	// Accept marks rec accepted, adds the interviewer to the room and marks
	// every other pending recommendation of the application not_selected.
	// An observer row for the same user is promoted; a candidate row fails
	// with utils.ErrConflict and nothing changes.
	Accept(ctx context.Context, recID uint, participant *models.Participant) error
	Reject(ctx context.Context, recID uint) error
	// SelectInterviewers applies the accept rule for interviewers chosen at
	// scheduling time. Missing recommendations are ignored.
	SelectInterviewers(ctx context.Context, applicationID uint, interviewerIDs []string) error
}

type recommendationRepo struct {
	db *gorm.DB
}

func NewRecommendationRepo(db *gorm.DB) RecommendationRepository {
	return &recommendationRepo{db: db}
}

func (r *recommendationRepo) GetByID(ctx context.Context, id uint) (*models.Recommendation, error) {
	var rec models.Recommendation
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *recommendationRepo) ListByApplication(ctx context.Context, applicationID uint) ([]models.Recommendation, error) {
	var rows []models.Recommendation
	err := r.db.WithContext(ctx).
		Where("application_id = ?", applicationID).
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *recommendationRepo) Create(ctx context.Context, rec *models.Recommendation) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Recommendation{}).
			Where("application_id = ? AND interviewer_id = ? AND status = ?",
				rec.ApplicationID, rec.InterviewerID, models.RecommendationPending).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return utils.ErrConflict
		}
		return tx.Create(rec).Error
	})
}

func (r *recommendationRepo) Accept(ctx context.Context, recID uint, participant *models.Participant) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec models.Recommendation
		if err := tx.Where("id = ?", recID).Take(&rec).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.ErrNotFound
			}
			return err
		}

		res := tx.Model(&models.Recommendation{}).
			Where("id = ? AND status = ?", recID, models.RecommendationPending).
			Update("status", models.RecommendationAccepted)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return utils.ErrStateChanged
		}

		if participant != nil {
			err := addParticipant(tx, participant)
			if errors.Is(err, utils.ErrDuplicate) {
				err = promoteParticipant(tx, participant)
			}
			if err != nil {
				return err
			}
		}

		return tx.Model(&models.Recommendation{}).
			Where("application_id = ? AND id <> ? AND status = ?", rec.ApplicationID, recID, models.RecommendationPending).
			Update("status", models.RecommendationNotSelected).Error
	})
}

// promoteParticipant gives the existing (room, user) row want's role and
// copies the stored row back into want.
func promoteParticipant(tx *gorm.DB, want *models.Participant) error {
	var cur models.Participant
	if err := tx.Where("room_id = ? AND user_id = ?", want.RoomID, want.UserID).Take(&cur).Error; err != nil {
		return err
	}
	if cur.Role == models.RoleCandidate {
		return utils.ErrConflict
	}
	if cur.Role != want.Role {
		if err := tx.Model(&models.Participant{}).
			Where("id = ?", cur.ID).
			Update("role", want.Role).Error; err != nil {
			return err
		}
		cur.Role = want.Role
	}
	*want = cur
	return nil
}

func (r *recommendationRepo) Reject(ctx context.Context, recID uint) error {
	res := r.db.WithContext(ctx).Model(&models.Recommendation{}).
		Where("id = ? AND status = ?", recID, models.RecommendationPending).
		Update("status", models.RecommendationRejected)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return utils.ErrStateChanged
	}
	return nil
}

func (r *recommendationRepo) SelectInterviewers(ctx context.Context, applicationID uint, interviewerIDs []string) error {
	if len(interviewerIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Recommendation{}).
			Where("application_id = ? AND interviewer_id IN ? AND status = ?",
				applicationID, interviewerIDs, models.RecommendationPending).
			Update("status", models.RecommendationAccepted)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		return tx.Model(&models.Recommendation{}).
			Where("application_id = ? AND status = ?", applicationID, models.RecommendationPending).
			Update("status", models.RecommendationNotSelected).Error
	})
}
