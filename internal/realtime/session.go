package realtime

import (
	"context"

	"github.com/hireloop/interviewroom/internal/models"
	"github.com/hireloop/interviewroom/internal/presence"
)

// Lifecycle is the room authority the coordinator consults. It is the only
// source of truth for who may enter a room.
type Lifecycle interface {
	AuthorizeJoin(ctx context.Context, roomCode string, id models.Identity) (*models.Room, *models.Participant, error)
	RecordLeave(ctx context.Context, p *models.Participant) error
}

type SnapshotStore interface {
	Save(ctx context.Context, roomID uint, language, content, userID string) error
	Get(ctx context.Context, roomID uint) (*models.CodeSnapshot, error)
}

type TranscriptSink interface {
	Append(ctx context.Context, line *models.ChatLine) error
}

// Session is the per-connection state. Identity is fixed when the
// connection authenticates and is never re-derived afterwards. A session is
// driven by a single read loop, so its fields need no locking.
type Session struct {
	ID       string
	Identity models.Identity
	Out      presence.Outbox

	current *membership
}

type membership struct {
	code        string
	roomID      uint
	participant *models.Participant
}

func NewSession(id string, identity models.Identity, out presence.Outbox) *Session {
	return &Session{ID: id, Identity: identity, Out: out}
}

// Room returns the code of the room the session is in, if any.
func (s *Session) Room() (string, bool) {
	if s.current == nil {
		return "", false
	}
	return s.current.code, true
}

func (s *Session) displayName() string {
	if s.Identity.DisplayName != "" {
		return s.Identity.DisplayName
	}
	return s.Identity.UserID
}
