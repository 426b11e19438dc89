package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hireloop/interviewroom/internal/models"
	pgrepo "github.com/hireloop/interviewroom/internal/repositories/postgres"
	"github.com/hireloop/interviewroom/internal/utils"
	"github.com/sirupsen/logrus"
)

const recommendationsTable = "interviewer_recommendations"

// RecommendationService runs the interviewer assignment workflow.
type RecommendationService interface {
	Recommend(ctx context.Context, applicationID uint, interviewerID, notes string, by models.Identity) (*models.Recommendation, error)
	// Accept adds the interviewer to the application's live room and marks
	// every other pending recommendation of the application not_selected.
	Accept(ctx context.Context, id uint, actor models.Identity) (*models.Recommendation, error)
	Reject(ctx context.Context, id uint, actor models.Identity) (*models.Recommendation, error)
	ListForApplication(ctx context.Context, applicationID uint) ([]models.Recommendation, error)
}

type recommendationService struct {
	recs     pgrepo.RecommendationRepository
	rooms    pgrepo.RoomRepository
	catalog  Catalog
	notifier Notifier
	hooks    *RoomHooks
}

func NewRecommendationService(
	recs pgrepo.RecommendationRepository,
	rooms pgrepo.RoomRepository,
	catalog Catalog,
	notifier Notifier,
	hooks *RoomHooks,
) RecommendationService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &recommendationService{recs: recs, rooms: rooms, catalog: catalog, notifier: notifier, hooks: hooks}
}

func (s *recommendationService) Recommend(ctx context.Context, applicationID uint, interviewerID, notes string, by models.Identity) (*models.Recommendation, error) {
	const op = "RecommendationService.Recommend"

	interviewerID = strings.TrimSpace(interviewerID)
	if applicationID == 0 || interviewerID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "application_id and interviewer_id are required", nil)
	}

	app, err := s.catalog.GetApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if !by.IsStaff() && app.EmployerUserID != by.UserID {
		return nil, utils.E(utils.CodeForbidden, op, "application belongs to another employer", nil)
	}
	if interviewerID == app.CandidateUserID {
		return nil, utils.E(utils.CodeInvalidArgument, op, "the candidate cannot interview themselves", nil)
	}

	rec := &models.Recommendation{
		ApplicationID: applicationID,
		RecommendedBy: by.UserID,
		InterviewerID: interviewerID,
		Notes:         strings.TrimSpace(notes),
		Status:        models.RecommendationPending,
	}
	if err := s.recs.Create(ctx, rec); err != nil {
		if errors.Is(err, utils.ErrConflict) {
			return nil, utils.E(utils.CodeConflict, op, "interviewer is already recommended for this application", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to create recommendation", err)
	}

	s.hooks.recordFor(ctx, recommendationsTable, "INSERT", rec.ID, nil,
		map[string]any{"interviewer_id": rec.InterviewerID, "status": rec.Status}, by.UserID)
	return rec, nil
}

func (s *recommendationService) Accept(ctx context.Context, id uint, actor models.Identity) (*models.Recommendation, error) {
	const op = "RecommendationService.Accept"

	rec, err := s.pending(ctx, op, id)
	if err != nil {
		return nil, err
	}

	room, err := s.rooms.LiveForApplication(ctx, rec.ApplicationID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "no scheduled interview for this application", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load room", err)
	}

	p := &models.Participant{RoomID: room.ID, UserID: rec.InterviewerID, Role: models.RoleInterviewer}
	if err := s.recs.Accept(ctx, rec.ID, p); err != nil {
		return nil, s.transitionErr(op, err)
	}

	s.hooks.recordFor(ctx, recommendationsTable, "UPDATE", rec.ID,
		map[string]any{"status": rec.Status}, map[string]any{"status": models.RecommendationAccepted, "room_code": room.Code}, actor.UserID)
	s.hooks.invalidate(ctx, room.Code)

	if err := s.notifier.Notify(ctx, models.Notice{
		Kind:     models.NoticeAssigned,
		UserID:   rec.InterviewerID,
		Title:    "Interview assigned",
		Message:  fmt.Sprintf("You were selected to interview for %s.", room.Name),
		RoomCode: room.Code,
	}); err != nil {
		s.hooks.logger().WithError(err).WithField("room", room.Code).Error("notify interviewer failed")
	}

	rec.Status = models.RecommendationAccepted
	s.hooks.logger().WithFields(logrus.Fields{
		"recommendation_id": rec.ID,
		"room":              room.Code,
		"user_id":           rec.InterviewerID,
		"by":                actor.UserID,
	}).Info("recommendation accepted")
	return rec, nil
}

func (s *recommendationService) Reject(ctx context.Context, id uint, actor models.Identity) (*models.Recommendation, error) {
	const op = "RecommendationService.Reject"

	rec, err := s.pending(ctx, op, id)
	if err != nil {
		return nil, err
	}
	if err := s.recs.Reject(ctx, rec.ID); err != nil {
		return nil, s.transitionErr(op, err)
	}

	s.hooks.recordFor(ctx, recommendationsTable, "UPDATE", rec.ID,
		map[string]any{"status": rec.Status}, map[string]any{"status": models.RecommendationRejected}, actor.UserID)
	rec.Status = models.RecommendationRejected
	return rec, nil
}

func (s *recommendationService) ListForApplication(ctx context.Context, applicationID uint) ([]models.Recommendation, error) {
	rows, err := s.recs.ListByApplication(ctx, applicationID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, "RecommendationService.ListForApplication", "failed to list recommendations", err)
	}
	return rows, nil
}

func (s *recommendationService) pending(ctx context.Context, op string, id uint) (*models.Recommendation, error) {
	rec, err := s.recs.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "recommendation not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load recommendation", err)
	}
	if rec.Status != models.RecommendationPending {
		return nil, utils.E(utils.CodeInvalidState, op, "recommendation is "+string(rec.Status), nil)
	}
	return rec, nil
}

func (s *recommendationService) transitionErr(op string, err error) error {
	switch {
	case errors.Is(err, utils.ErrStateChanged):
		return utils.E(utils.CodeInvalidState, op, "recommendation is no longer pending", err)
	case errors.Is(err, utils.ErrNotFound):
		return utils.E(utils.CodeNotFound, op, "recommendation not found", err)
	case errors.Is(err, utils.ErrConflict):
		return utils.E(utils.CodeConflict, op, "user is the candidate of this interview", err)
	}
	return utils.E(utils.CodeInternal, op, "failed to update recommendation", err)
}
