package services

import (
	"context"
	"errors"

	"github.com/hireloop/interviewroom/internal/models"
	pgrepo "github.com/hireloop/interviewroom/internal/repositories/postgres"
	"github.com/hireloop/interviewroom/internal/utils"
)

// Catalog is the read side of the external catalog service.
type Catalog interface {
	GetApplication(ctx context.Context, id uint) (*models.Application, error)
	// HourlyRate returns the interviewer's current rate in cents.
	HourlyRate(ctx context.Context, interviewerID string) (cents int64, currency string, err error)
}

type catalog struct {
	repo pgrepo.CatalogRepository
}

func NewCatalog(repo pgrepo.CatalogRepository) Catalog {
	return &catalog{repo: repo}
}

func (c *catalog) GetApplication(ctx context.Context, id uint) (*models.Application, error) {
	const op = "Catalog.GetApplication"

	app, err := c.repo.GetApplication(ctx, id)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "application not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load application", err)
	}
	return app, nil
}

func (c *catalog) HourlyRate(ctx context.Context, interviewerID string) (int64, string, error) {
	const op = "Catalog.HourlyRate"

	p, err := c.repo.GetInterviewerProfile(ctx, interviewerID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return 0, "", utils.E(utils.CodeNotFound, op, "interviewer profile not found", err)
		}
		return 0, "", utils.E(utils.CodeInternal, op, "failed to load interviewer profile", err)
	}
	return p.HourlyRateCents, p.Currency, nil
}
