package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hireloop/interviewroom/internal/models"
	pgrepo "github.com/hireloop/interviewroom/internal/repositories/postgres"
	"github.com/hireloop/interviewroom/internal/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

const (
	minScore = 1
	maxScore = 10
)

type FeedbackInput struct {
	Scores         models.Scores             `json:"scores"`
	Rating         models.OverallRating      `json:"overall_rating"`
	Text           string                    `json:"feedback_text"`
	Recommendation models.HireRecommendation `json:"recommendation"`
}

// FeedbackService closes out rooms: interviewer feedback, room completion
// and the interviewer's payout record.
type FeedbackService interface {
	Submit(ctx context.Context, code string, interviewer models.Identity, in FeedbackInput) (*models.Feedback, *models.Earning, error)
	ConfirmEarning(ctx context.Context, id uint, actor models.Identity) (*models.Earning, error)
	MarkPaid(ctx context.Context, id uint, actor models.Identity) (*models.Earning, error)
	ListEarnings(ctx context.Context, interviewerID string) ([]models.Earning, error)
}

type feedbackService struct {
	rooms        pgrepo.RoomRepository
	participants pgrepo.ParticipantRepository
	feedbacks    pgrepo.FeedbackRepository
	earnings     pgrepo.EarningRepository
	catalog      Catalog
	notifier     Notifier
	hooks        *RoomHooks
	now          func() time.Time
}

func NewFeedbackService(
	rooms pgrepo.RoomRepository,
	participants pgrepo.ParticipantRepository,
	feedbacks pgrepo.FeedbackRepository,
	earnings pgrepo.EarningRepository,
	catalog Catalog,
	notifier Notifier,
	hooks *RoomHooks,
) FeedbackService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &feedbackService{
		rooms:        rooms,
		participants: participants,
		feedbacks:    feedbacks,
		earnings:     earnings,
		catalog:      catalog,
		notifier:     notifier,
		hooks:        hooks,
		now:          time.Now,
	}
}

func validScore(v int) bool { return v == 0 || (v >= minScore && v <= maxScore) }

func (in FeedbackInput) validate(op string) error {
	sc := in.Scores
	if !validScore(sc.Technical) || !validScore(sc.Communication) || !validScore(sc.ProblemSolving) {
		return utils.E(utils.CodeInvalidArgument, op, fmt.Sprintf("scores must be between %d and %d", minScore, maxScore), nil)
	}
	for k, v := range sc.Detail {
		if strings.TrimSpace(k) == "" || v < minScore || v > maxScore {
			return utils.E(utils.CodeInvalidArgument, op, fmt.Sprintf("invalid detail score %q", k), nil)
		}
	}
	if !in.Rating.IsValid() {
		return utils.E(utils.CodeInvalidArgument, op, "invalid overall_rating", nil)
	}
	if !in.Recommendation.IsValid() {
		return utils.E(utils.CodeInvalidArgument, op, "invalid recommendation", nil)
	}
	return nil
}

func (s *feedbackService) Submit(ctx context.Context, code string, interviewer models.Identity, in FeedbackInput) (*models.Feedback, *models.Earning, error) {
	const op = "FeedbackService.Submit"

	if err := in.validate(op); err != nil {
		return nil, nil, err
	}

	room, err := s.rooms.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, nil, utils.E(utils.CodeNotFound, op, "room not found", err)
		}
		return nil, nil, utils.E(utils.CodeInternal, op, "failed to load room", err)
	}
	if room.Status == models.RoomCancelled {
		return nil, nil, utils.E(utils.CodeInvalidState, op, "interview was cancelled", nil)
	}

	parts, err := s.participants.ListByRoom(ctx, room.ID)
	if err != nil {
		return nil, nil, utils.E(utils.CodeInternal, op, "failed to load participants", err)
	}
	var isInterviewer bool
	var candidateID string
	for _, p := range parts {
		switch {
		case p.UserID == interviewer.UserID && p.Role == models.RoleInterviewer:
			isInterviewer = true
		case p.Role == models.RoleCandidate:
			candidateID = p.UserID
		}
	}
	if !isInterviewer {
		return nil, nil, utils.E(utils.CodeForbidden, op, "only interviewers of this room can submit feedback", nil)
	}

	rate, currency, err := s.catalog.HourlyRate(ctx, interviewer.UserID)
	if err != nil {
		if !utils.IsCode(err, utils.CodeNotFound) {
			return nil, nil, err
		}
		s.hooks.logger().WithField("user_id", interviewer.UserID).Warn("no interviewer profile, earning recorded at zero rate")
	}
	if currency == "" {
		currency = "USD"
	}

	fb := &models.Feedback{
		RoomID:              room.ID,
		InterviewerID:       interviewer.UserID,
		CandidateID:         candidateID,
		TechnicalScore:      in.Scores.Technical,
		CommunicationScore:  in.Scores.Communication,
		ProblemSolvingScore: in.Scores.ProblemSolving,
		OverallRating:       in.Rating,
		Text:                strings.TrimSpace(in.Text),
		Recommendation:      in.Recommendation,
	}
	if len(in.Scores.Detail) > 0 {
		b, err := json.Marshal(in.Scores.Detail)
		if err != nil {
			return nil, nil, utils.E(utils.CodeInvalidArgument, op, "invalid detail scores", err)
		}
		fb.ScoreDetail = datatypes.JSON(b)
	}
	earning := &models.Earning{
		InterviewerID:   interviewer.UserID,
		RoomID:          room.ID,
		DurationMinutes: room.DurationMinutes,
		HourlyRateCents: rate,
		AmountCents:     models.EarningAmount(room.DurationMinutes, rate),
		Currency:        currency,
		Status:          models.EarningPending,
	}

	from := room.Status
	now := s.now().UTC()
	completed, err := s.feedbacks.Submit(ctx, fb, earning, now)
	if err != nil {
		switch {
		case errors.Is(err, utils.ErrDuplicate):
			return nil, nil, utils.E(utils.CodeDuplicate, op, "feedback already submitted for this interview", err)
		case errors.Is(err, utils.ErrStateChanged):
			return nil, nil, utils.E(utils.CodeInvalidState, op, "interview was cancelled", err)
		case errors.Is(err, utils.ErrNotFound):
			return nil, nil, utils.E(utils.CodeNotFound, op, "room not found", err)
		}
		return nil, nil, utils.E(utils.CodeInternal, op, "failed to store feedback", err)
	}

	if completed {
		room.Status = models.RoomCompleted
		room.EndedAt = &now
		s.hooks.transitioned(ctx, room, from, interviewer.UserID, map[string]any{"trigger": "feedback"})
	}

	stored, err := s.earnings.GetForRoom(ctx, interviewer.UserID, room.ID)
	if err != nil {
		return nil, nil, utils.E(utils.CodeInternal, op, "failed to load earning", err)
	}

	s.notifyEmployer(ctx, room)
	s.hooks.logger().WithFields(logrus.Fields{
		"room":         room.Code,
		"user_id":      interviewer.UserID,
		"amount_cents": stored.AmountCents,
	}).Info("feedback submitted")
	return fb, stored, nil
}

func (s *feedbackService) notifyEmployer(ctx context.Context, room *models.Room) {
	app, err := s.catalog.GetApplication(ctx, room.ApplicationID)
	if err != nil || app.EmployerUserID == "" {
		return
	}
	err = s.notifier.Notify(ctx, models.Notice{
		Kind:     models.NoticeFeedback,
		UserID:   app.EmployerUserID,
		Title:    "Interview feedback received",
		Message:  fmt.Sprintf("Feedback was submitted for %s.", room.Name),
		RoomCode: room.Code,
	})
	if err != nil {
		s.hooks.logger().WithError(err).WithField("room", room.Code).Error("notify employer failed")
	}
}

func (s *feedbackService) ConfirmEarning(ctx context.Context, id uint, actor models.Identity) (*models.Earning, error) {
	return s.advance(ctx, "FeedbackService.ConfirmEarning", id, models.EarningPending, actor)
}

func (s *feedbackService) MarkPaid(ctx context.Context, id uint, actor models.Identity) (*models.Earning, error) {
	return s.advance(ctx, "FeedbackService.MarkPaid", id, models.EarningConfirmed, actor)
}

// advance moves an earning one step forward, from want only.
func (s *feedbackService) advance(ctx context.Context, op string, id uint, want models.EarningStatus, actor models.Identity) (*models.Earning, error) {
	e, err := s.earnings.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "earning not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load earning", err)
	}
	next, _ := want.Next()
	if e.Status != want {
		return nil, utils.E(utils.CodeInvalidState, op,
			fmt.Sprintf("earning is %s, cannot move to %s", e.Status, next), nil)
	}

	if err := s.earnings.Advance(ctx, id, want, next, s.now().UTC()); err != nil {
		if errors.Is(err, utils.ErrStateChanged) {
			return nil, utils.E(utils.CodeInvalidState, op, "earning changed concurrently", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to update earning", err)
	}

	out, err := s.earnings.GetByID(ctx, id)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to reload earning", err)
	}
	s.hooks.logger().WithFields(logrus.Fields{"earning_id": id, "status": out.Status, "by": actor.UserID}).Info("earning advanced")
	return out, nil
}

func (s *feedbackService) ListEarnings(ctx context.Context, interviewerID string) ([]models.Earning, error) {
	const op = "FeedbackService.ListEarnings"

	rows, err := s.earnings.ListByInterviewer(ctx, interviewerID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list earnings", err)
	}
	return rows, nil
}
