package realtime

import (
	"context"
	"time"

	"github.com/hireloop/interviewroom/internal/metrics"
	"github.com/hireloop/interviewroom/internal/models"
	"github.com/hireloop/interviewroom/internal/presence"
	"github.com/sirupsen/logrus"
)

// PublishResult reports a fan-out: how many occupants were offered the
// frame and how many of those dropped it.
type PublishResult struct {
	SendTo  int
	Dropped int
}

// Broadcaster fans chat and code frames out to every other occupant of the
// sender's room. Delivery is at most once with no replay.
type Broadcaster struct {
	tracker    *presence.Tracker
	snapshots  SnapshotStore
	transcript TranscriptSink
	log        logrus.FieldLogger
	now        func() time.Time
}

func NewBroadcaster(tracker *presence.Tracker, snapshots SnapshotStore, transcript TranscriptSink, log logrus.FieldLogger) *Broadcaster {
	return &Broadcaster{
		tracker:    tracker,
		snapshots:  snapshots,
		transcript: transcript,
		log:        log,
		now:        time.Now,
	}
}

// Publish sends frame to everyone in roomCode except the connection except.
func (b *Broadcaster) Publish(roomCode, except, kind string, frame []byte) PublishResult {
	var res PublishResult
	for o := range b.tracker.OccupantsOf(roomCode) {
		if o.ConnID == except {
			continue
		}
		res.SendTo++
		if err := o.Out.TrySend(frame); err != nil {
			res.Dropped++
			b.log.WithFields(logrus.Fields{"conn_id": o.ConnID, "room": roomCode, "event": kind}).
				WithError(err).Debug("broadcast dropped")
		}
	}
	metrics.Broadcasts.WithLabelValues(kind, "delivered").Add(float64(res.SendTo - res.Dropped))
	if res.Dropped > 0 {
		metrics.Broadcasts.WithLabelValues(kind, "dropped").Add(float64(res.Dropped))
	}
	return res
}

// Chat stamps the message with the server clock and the sender's name.
// Empty messages and senders outside a room are ignored.
func (b *Broadcaster) Chat(ctx context.Context, s *Session, text string) PublishResult {
	code, ok := s.Room()
	if !ok || text == "" {
		return PublishResult{}
	}
	now := b.now().UTC()

	res := b.Publish(code, s.ID, EventChatMessage, encode(Frame{
		Type:        EventChatMessage,
		From:        s.ID,
		UserID:      s.Identity.UserID,
		DisplayName: s.displayName(),
		Text:        text,
		Timestamp:   stamp(now),
	}))

	if b.transcript != nil {
		line := &models.ChatLine{
			RoomCode:    code,
			UserID:      s.Identity.UserID,
			DisplayName: s.displayName(),
			Text:        text,
			Timestamp:   now,
		}
		if err := b.transcript.Append(ctx, line); err != nil {
			b.log.WithFields(logrus.Fields{"room": code, "conn_id": s.ID}).WithError(err).Warn("transcript append failed")
		}
	}
	return res
}

// Code overwrites the room snapshot and then fans the edit out. A failed
// write aborts the broadcast and is returned to the sender.
func (b *Broadcaster) Code(ctx context.Context, s *Session, content, language string) (PublishResult, error) {
	if s.current == nil {
		return PublishResult{}, nil
	}
	if language == "" {
		language = models.DefaultLanguage
	}

	if err := b.snapshots.Save(ctx, s.current.roomID, language, content, s.Identity.UserID); err != nil {
		return PublishResult{}, err
	}

	return b.Publish(s.current.code, s.ID, EventCodeChange, encode(Frame{
		Type:        EventCodeChange,
		From:        s.ID,
		DisplayName: s.displayName(),
		Content:     &content,
		Language:    language,
	})), nil
}
