package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hireloop/interviewroom/internal/models"
	pgrepo "github.com/hireloop/interviewroom/internal/repositories/postgres"
	"github.com/hireloop/interviewroom/internal/utils"
	"github.com/sirupsen/logrus"
)

type RoomService interface {
	Schedule(ctx context.Context, in ScheduleInput, creator models.Identity) (*models.Room, error)
	Get(ctx context.Context, code string) (*models.Room, error)
	// View returns the room with its participants for a participant or staff member.
	View(ctx context.Context, code string, viewer models.Identity) (*models.Room, error)
	// Access resolves the viewer's participant row. Staff without a row get a nil participant.
	Access(ctx context.Context, code string, viewer models.Identity) (*models.Room, *models.Participant, error)

	AuthorizeJoin(ctx context.Context, code string, id models.Identity) (*models.Room, *models.Participant, error)
	RecordLeave(ctx context.Context, p *models.Participant) error
	AssignParticipant(ctx context.Context, code, userID string, role models.ParticipantRole, actor models.Identity) (*models.Participant, error)

	Complete(ctx context.Context, code string, actor models.Identity) (*models.Room, error)
	Cancel(ctx context.Context, code, reason string, actor models.Identity) (*models.Room, error)
	Delete(ctx context.Context, code string, actor models.Identity) error
}

type ScheduleInput struct {
	ApplicationID   uint      `json:"application_id"`
	StartTime       time.Time `json:"scheduled_time"`
	DurationMinutes int       `json:"duration_minutes"`
	InterviewerIDs  []string  `json:"interviewer_ids"`
}

type RoomPolicy struct {
	AllowPastScheduling    bool
	DefaultDurationMinutes int
}

type roomService struct {
	rooms        pgrepo.RoomRepository
	participants pgrepo.ParticipantRepository
	recs         pgrepo.RecommendationRepository
	catalog      Catalog
	notifier     Notifier
	hooks        *RoomHooks
	policy       RoomPolicy

	appLocks utils.KeyedMutex
	now      func() time.Time
}

func NewRoomService(
	rooms pgrepo.RoomRepository,
	participants pgrepo.ParticipantRepository,
	recs pgrepo.RecommendationRepository,
	catalog Catalog,
	notifier Notifier,
	hooks *RoomHooks,
	policy RoomPolicy,
) RoomService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if policy.DefaultDurationMinutes <= 0 {
		policy.DefaultDurationMinutes = 60
	}
	return &roomService{
		rooms:        rooms,
		participants: participants,
		recs:         recs,
		catalog:      catalog,
		notifier:     notifier,
		hooks:        hooks,
		policy:       policy,
		now:          time.Now,
	}
}

// NewRoomCode builds INT<application>-<10 hex chars>.
func NewRoomCode(applicationID uint) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
	return fmt.Sprintf("INT%d-%s", applicationID, suffix)
}

func (s *roomService) Schedule(ctx context.Context, in ScheduleInput, creator models.Identity) (*models.Room, error) {
	const op = "RoomService.Schedule"

	if in.ApplicationID == 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "application_id is required", nil)
	}
	if in.StartTime.IsZero() {
		return nil, utils.E(utils.CodeInvalidArgument, op, "scheduled_time is required", nil)
	}
	if in.DurationMinutes < 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "duration_minutes must be positive", nil)
	}
	if in.DurationMinutes == 0 {
		in.DurationMinutes = s.policy.DefaultDurationMinutes
	}
	now := s.now().UTC()
	if !in.StartTime.After(now) && !s.policy.AllowPastScheduling {
		return nil, utils.E(utils.CodeInvalidTime, op, "scheduled_time must be in the future", nil)
	}

	app, err := s.catalog.GetApplication(ctx, in.ApplicationID)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(app.CandidateUserID) == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "application has no candidate", nil)
	}

	parts := []models.Participant{{UserID: app.CandidateUserID, Role: models.RoleCandidate}}
	seen := map[string]bool{app.CandidateUserID: true}
	var interviewers []string
	for _, id := range in.InterviewerIDs {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		interviewers = append(interviewers, id)
		parts = append(parts, models.Participant{UserID: id, Role: models.RoleInterviewer})
	}

	unlock := s.appLocks.Lock(strconv.FormatUint(uint64(in.ApplicationID), 10))
	defer unlock()

	var room *models.Room
	for attempt := 0; attempt < 3; attempt++ {
		room = &models.Room{
			Code:            NewRoomCode(app.ID),
			Name:            "Interview - " + app.JobTitle,
			ApplicationID:   app.ID,
			ScheduledAt:     in.StartTime.UTC(),
			DurationMinutes: in.DurationMinutes,
			Status:          models.RoomScheduled,
			CreatedBy:       creator.UserID,
		}
		err = s.rooms.CreateWithParticipants(ctx, room, parts)
		if !errors.Is(err, utils.ErrDuplicate) {
			break
		}
	}
	switch {
	case errors.Is(err, utils.ErrConflict):
		return nil, utils.E(utils.CodeConflict, op, "application already has a live interview room", err)
	case err != nil:
		return nil, utils.E(utils.CodeInternal, op, "failed to create room", err)
	}

	if err := s.recs.SelectInterviewers(ctx, app.ID, interviewers); err != nil {
		s.log().WithError(err).WithField("room", room.Code).Warn("recommendation selection failed")
	}
	s.hooks.record(ctx, "INSERT", room.ID, nil, map[string]any{
		"room_code": room.Code, "status": room.Status, "scheduled_time": room.ScheduledAt,
	}, creator.UserID)

	var notices []models.Notice
	for _, p := range parts {
		n := models.Notice{
			Kind:     models.NoticeScheduled,
			UserID:   p.UserID,
			Title:    "Interview scheduled",
			Message:  fmt.Sprintf("Your interview for %s is scheduled at %s.", app.JobTitle, room.ScheduledAt.Format(time.RFC1123)),
			RoomCode: room.Code,
		}
		if p.Role == models.RoleInterviewer {
			n.Kind = models.NoticeAssigned
			n.Title = "Interview assigned"
			n.Message = fmt.Sprintf("You are interviewing for %s at %s.", app.JobTitle, room.ScheduledAt.Format(time.RFC1123))
		}
		notices = append(notices, n)
	}
	s.notify(ctx, room.Code, notices)

	return room, nil
}

func (s *roomService) Get(ctx context.Context, code string) (*models.Room, error) {
	const op = "RoomService.Get"

	if code == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "room code is required", nil)
	}
	room, err := s.rooms.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "room not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load room", err)
	}
	return room, nil
}

func (s *roomService) View(ctx context.Context, code string, viewer models.Identity) (*models.Room, error) {
	const op = "RoomService.View"

	room, _, err := s.Access(ctx, code, viewer)
	if err != nil {
		return nil, err
	}
	if s.hooks != nil {
		if cached, ok := s.hooks.Views.Get(ctx, code); ok {
			return cached, nil
		}
	}

	parts, err := s.participants.ListByRoom(ctx, room.ID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load participants", err)
	}
	room.Participants = parts
	if s.hooks != nil {
		if err := s.hooks.Views.Put(ctx, room); err != nil {
			s.log().WithError(err).WithField("room", code).Debug("room view cache write failed")
		}
	}
	return room, nil
}

func (s *roomService) Access(ctx context.Context, code string, viewer models.Identity) (*models.Room, *models.Participant, error) {
	const op = "RoomService.Access"

	room, err := s.Get(ctx, code)
	if err != nil {
		return nil, nil, err
	}
	p, err := s.participants.Get(ctx, room.ID, viewer.UserID)
	switch {
	case errors.Is(err, utils.ErrNotFound):
		if viewer.IsStaff() {
			return room, nil, nil
		}
		return nil, nil, utils.E(utils.CodeForbidden, op, "not a participant of this room", nil)
	case err != nil:
		return nil, nil, utils.E(utils.CodeInternal, op, "failed to load participant", err)
	}
	return room, p, nil
}

func (s *roomService) AuthorizeJoin(ctx context.Context, code string, id models.Identity) (*models.Room, *models.Participant, error) {
	const op = "RoomService.AuthorizeJoin"

	if id.UserID == "" {
		return nil, nil, utils.E(utils.CodeUnauthorized, op, "unauthenticated", nil)
	}
	room, err := s.Get(ctx, code)
	if err != nil {
		return nil, nil, err
	}
	p, err := s.participants.Get(ctx, room.ID, id.UserID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, nil, utils.E(utils.CodeForbidden, op, "not a participant of this room", nil)
		}
		return nil, nil, utils.E(utils.CodeInternal, op, "failed to load participant", err)
	}
	if room.Status.Terminal() {
		return nil, nil, utils.E(utils.CodeInvalidState, op, "interview is "+string(room.Status), nil)
	}

	now := s.now().UTC()
	if room.Status == models.RoomScheduled {
		won, err := s.rooms.Activate(ctx, room.ID, now)
		if err != nil {
			return nil, nil, utils.E(utils.CodeInternal, op, "failed to activate room", err)
		}
		if won {
			room.Status = models.RoomActive
			room.StartedAt = &now
			s.hooks.transitioned(ctx, room, models.RoomScheduled, id.UserID, nil)
		} else {
			// Someone else moved the room first; take their result.
			if room, err = s.Get(ctx, code); err != nil {
				return nil, nil, err
			}
			if room.Status.Terminal() {
				return nil, nil, utils.E(utils.CodeInvalidState, op, "interview is "+string(room.Status), nil)
			}
		}
	}

	if err := s.participants.MarkJoined(ctx, p.ID, now); err != nil {
		return nil, nil, utils.E(utils.CodeInternal, op, "failed to record join", err)
	}
	p.JoinedAt = &now
	p.LeftAt = nil
	p.IsActive = true
	s.hooks.invalidate(ctx, room.Code)
	return room, p, nil
}

func (s *roomService) RecordLeave(ctx context.Context, p *models.Participant) error {
	const op = "RoomService.RecordLeave"

	if p == nil {
		return nil
	}
	now := s.now().UTC()
	left, err := s.participants.MarkLeft(ctx, p.ID, now)
	if err != nil {
		return utils.E(utils.CodeInternal, op, "failed to record leave", err)
	}
	if left {
		p.LeftAt = &now
		p.IsActive = false
		s.hooks.InvalidateRoom(ctx, p.RoomID)
	}
	return nil
}

func (s *roomService) AssignParticipant(ctx context.Context, code, userID string, role models.ParticipantRole, actor models.Identity) (*models.Participant, error) {
	const op = "RoomService.AssignParticipant"

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}
	if !role.IsValid() {
		return nil, utils.E(utils.CodeInvalidArgument, op, "invalid role", nil)
	}
	if role == models.RoleCandidate {
		return nil, utils.E(utils.CodeInvalidArgument, op, "a room has exactly one candidate", nil)
	}

	room, err := s.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	if room.Status.Terminal() {
		return nil, utils.E(utils.CodeInvalidState, op, "interview is "+string(room.Status), nil)
	}

	p := &models.Participant{RoomID: room.ID, UserID: userID, Role: role}
	if err := s.participants.Add(ctx, p); err != nil {
		if errors.Is(err, utils.ErrDuplicate) {
			return nil, utils.E(utils.CodeDuplicate, op, "user is already a participant", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to add participant", err)
	}

	s.hooks.invalidate(ctx, room.Code)
	s.notify(ctx, room.Code, []models.Notice{{
		Kind:     models.NoticeAssigned,
		UserID:   userID,
		Title:    "Interview assigned",
		Message:  fmt.Sprintf("You were added to %s as %s.", room.Name, role),
		RoomCode: room.Code,
	}})
	s.log().WithFields(logrus.Fields{"room": room.Code, "user_id": userID, "role": role, "by": actor.UserID}).Info("participant assigned")
	return p, nil
}

func (s *roomService) Complete(ctx context.Context, code string, actor models.Identity) (*models.Room, error) {
	const op = "RoomService.Complete"

	room, p, err := s.Access(ctx, code, actor)
	if err != nil {
		return nil, err
	}
	if !actor.IsStaff() && (p == nil || p.Role != models.RoleInterviewer) {
		return nil, utils.E(utils.CodeForbidden, op, "only interviewers can complete an interview", nil)
	}

	switch room.Status {
	case models.RoomCompleted:
		return room, nil
	case models.RoomCancelled:
		return nil, utils.E(utils.CodeInvalidState, op, "interview was cancelled", nil)
	}

	from := room.Status
	now := s.now().UTC()
	ok, err := s.rooms.Complete(ctx, room.ID, now)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to complete room", err)
	}
	if !ok {
		if room, err = s.Get(ctx, code); err != nil {
			return nil, err
		}
		if room.Status == models.RoomCancelled {
			return nil, utils.E(utils.CodeInvalidState, op, "interview was cancelled", nil)
		}
		return room, nil
	}

	room.Status = models.RoomCompleted
	room.EndedAt = &now
	s.hooks.transitioned(ctx, room, from, actor.UserID, nil)
	return room, nil
}

func (s *roomService) Cancel(ctx context.Context, code, reason string, actor models.Identity) (*models.Room, error) {
	const op = "RoomService.Cancel"

	room, err := s.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	switch room.Status {
	case models.RoomCompleted:
		return nil, utils.E(utils.CodeInvalidState, op, "completed interviews cannot be cancelled", nil)
	case models.RoomCancelled:
		return room, nil
	}

	from := room.Status
	now := s.now().UTC()
	ok, err := s.rooms.Cancel(ctx, room.ID, now)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to cancel room", err)
	}
	if !ok {
		if room, err = s.Get(ctx, code); err != nil {
			return nil, err
		}
		if room.Status == models.RoomCompleted {
			return nil, utils.E(utils.CodeInvalidState, op, "completed interviews cannot be cancelled", nil)
		}
		return room, nil
	}
	room.Status = models.RoomCancelled
	room.EndedAt = &now
	s.hooks.transitioned(ctx, room, from, actor.UserID, map[string]any{"reason": reason})

	parts, err := s.participants.ListByRoom(ctx, room.ID)
	if err != nil {
		s.log().WithError(err).WithField("room", room.Code).Error("load participants for cancellation notice failed")
		return room, nil
	}
	msg := fmt.Sprintf("%s scheduled at %s was cancelled.", room.Name, room.ScheduledAt.Format(time.RFC1123))
	if reason = strings.TrimSpace(reason); reason != "" {
		msg += " Reason: " + reason
	}
	notices := make([]models.Notice, 0, len(parts))
	for _, p := range parts {
		notices = append(notices, models.Notice{
			Kind:     models.NoticeCancelled,
			UserID:   p.UserID,
			Title:    "Interview cancelled",
			Message:  msg,
			RoomCode: room.Code,
		})
	}
	s.notify(ctx, room.Code, notices)
	return room, nil
}

func (s *roomService) Delete(ctx context.Context, code string, actor models.Identity) error {
	const op = "RoomService.Delete"

	room, err := s.Get(ctx, code)
	if err != nil {
		return err
	}
	if room.Status != models.RoomCancelled {
		return utils.E(utils.CodeInvalidState, op, "only cancelled interviews can be deleted", nil)
	}
	if err := s.rooms.DeleteAggregate(ctx, room.ID); err != nil {
		switch {
		case errors.Is(err, utils.ErrNotFound):
			return utils.E(utils.CodeNotFound, op, "room not found", err)
		case errors.Is(err, utils.ErrStateChanged):
			return utils.E(utils.CodeInvalidState, op, "only cancelled interviews can be deleted", err)
		}
		return utils.E(utils.CodeInternal, op, "failed to delete room", err)
	}

	s.hooks.record(ctx, "DELETE", room.ID, map[string]any{"room_code": room.Code, "status": room.Status}, nil, actor.UserID)
	s.hooks.invalidate(ctx, room.Code)
	return nil
}

func (s *roomService) notify(ctx context.Context, code string, notices []models.Notice) {
	if len(notices) == 0 {
		return
	}
	if err := s.notifier.Notify(ctx, notices...); err != nil {
		s.log().WithError(err).WithFields(logrus.Fields{"room": code, "notices": len(notices)}).Error("notify failed")
	}
}

func (s *roomService) log() logrus.FieldLogger { return s.hooks.logger() }
