package realtime

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/hireloop/interviewroom/internal/metrics"
	"github.com/hireloop/interviewroom/internal/models"
	"github.com/hireloop/interviewroom/internal/presence"
	"github.com/hireloop/interviewroom/internal/utils"
	"github.com/sirupsen/logrus"
)

const cleanupTimeout = 5 * time.Second

// Coordinator drives every realtime connection: join and leave, signaling
// relay, collaboration broadcast and disconnect cleanup.
type Coordinator struct {
	tracker   *presence.Tracker
	rooms     Lifecycle
	snapshots SnapshotStore
	relay     *Relay
	cast      *Broadcaster
	log       logrus.FieldLogger

	// members serializes join and leave bookkeeping per (room, user) so a
	// closing tab cannot clear the flag a joining tab just set.
	members utils.KeyedMutex
}

func memberKey(code, userID string) string { return code + "\x00" + userID }

func NewCoordinator(tracker *presence.Tracker, rooms Lifecycle, snapshots SnapshotStore, transcript TranscriptSink, log logrus.FieldLogger) *Coordinator {
	return &Coordinator{
		tracker:   tracker,
		rooms:     rooms,
		snapshots: snapshots,
		relay:     NewRelay(tracker, log),
		cast:      NewBroadcaster(tracker, snapshots, transcript, log),
		log:       log,
	}
}

// Serve runs one websocket until it closes. Frames from the connection are
// handled strictly in arrival order.
func (co *Coordinator) Serve(ctx context.Context, ws *websocket.Conn, identity models.Identity, opts ConnOptions) {
	conn := NewConn(ws, opts)
	s := NewSession(uuid.NewString(), identity, conn)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	metrics.LiveConnections.Inc()
	defer metrics.LiveConnections.Dec()

	log := co.log.WithFields(logrus.Fields{"conn_id": s.ID, "user_id": identity.UserID})
	log.Info("realtime connected")

	go conn.WritePump(ctx)
	err := conn.ReadPump(func(data []byte) { co.HandleFrame(ctx, s, data) })

	co.Disconnect(ctx, s)
	conn.Close()

	if err != nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		log.WithError(err).Debug("realtime read ended")
	}
	log.Info("realtime disconnected")
}

// HandleFrame decodes and dispatches one raw client frame.
func (co *Coordinator) HandleFrame(ctx context.Context, s *Session, data []byte) {
	ev, err := Decode(data)
	if err != nil {
		co.reply(s, utils.E(utils.CodeInvalidArgument, "Realtime.Decode", err.Error(), err))
		return
	}
	co.Handle(ctx, s, ev)
}

// Handle dispatches one decoded event. Errors go back to s only.
func (co *Coordinator) Handle(ctx context.Context, s *Session, ev ClientEvent) {
	switch e := ev.(type) {
	case JoinInterview:
		co.join(ctx, s, e)
	case LeaveInterview:
		co.leaveEvent(ctx, s, e)
	case Offer:
		_ = co.relay.Forward(s, EventOffer, e.Signal)
	case Answer:
		_ = co.relay.Forward(s, EventAnswer, e.Signal)
	case ICECandidate:
		_ = co.relay.Forward(s, EventICECandidate, e.Signal)
	case ChatMessage:
		co.cast.Chat(ctx, s, e.Text)
	case CodeChange:
		if _, err := co.cast.Code(ctx, s, e.Content, e.Language); err != nil {
			co.reply(s, err)
		}
	case RequestSnapshot:
		co.sendSnapshot(ctx, s)
	default:
		co.reply(s, utils.E(utils.CodeInvalidArgument, "Realtime.Handle", "unsupported event", nil))
	}
}

func (co *Coordinator) join(ctx context.Context, s *Session, e JoinInterview) {
	const op = "Realtime.Join"

	if s.current != nil {
		co.leave(ctx, s)
	}

	unlock := co.members.Lock(memberKey(e.Room, s.Identity.UserID))
	defer unlock()

	room, p, err := co.rooms.AuthorizeJoin(ctx, e.Room, s.Identity)
	if err != nil {
		co.reply(s, err)
		return
	}
	if p == nil || room == nil {
		co.reply(s, utils.E(utils.CodeInternal, op, "join not authorized", nil))
		return
	}

	occ := presence.Occupant{
		ConnID:        s.ID,
		UserID:        s.Identity.UserID,
		DisplayName:   s.displayName(),
		Role:          p.Role,
		ParticipantID: p.ID,
		Out:           s.Out,
	}
	others := co.tracker.Register(room.Code, occ)
	s.current = &membership{code: room.Code, roomID: room.ID, participant: p}

	peers := make([]PeerInfo, 0, len(others))
	for _, o := range others {
		peers = append(peers, PeerInfo{
			ConnectionID: o.ConnID,
			UserID:       o.UserID,
			DisplayName:  o.DisplayName,
			Role:         string(o.Role),
		})
	}

	_ = s.Out.TrySend(encode(Frame{
		Type:         FrameJoined,
		Room:         room.Code,
		ConnectionID: s.ID,
		UserID:       s.Identity.UserID,
		DisplayName:  occ.DisplayName,
		Role:         string(p.Role),
		Status:       string(room.Status),
	}))
	_ = s.Out.TrySend(encode(participantsFrame{Type: FrameParticipants, Room: room.Code, Participants: peers}))

	co.cast.Publish(room.Code, s.ID, FrameUserJoined, encode(Frame{
		Type:         FrameUserJoined,
		Room:         room.Code,
		ConnectionID: s.ID,
		UserID:       s.Identity.UserID,
		DisplayName:  occ.DisplayName,
		Role:         string(p.Role),
	}))

	co.log.WithFields(logrus.Fields{
		"conn_id": s.ID,
		"room":    room.Code,
		"user_id": s.Identity.UserID,
		"event":   EventJoinInterview,
		"role":    p.Role,
	}).Info("joined room")
}

func (co *Coordinator) leaveEvent(ctx context.Context, s *Session, e LeaveInterview) {
	code, ok := s.Room()
	if !ok {
		return
	}
	if e.Room != "" && e.Room != code {
		co.log.WithFields(logrus.Fields{"conn_id": s.ID, "room": e.Room, "event": EventLeaveInterview}).
			Debug("leave for a room the connection is not in")
		return
	}
	co.leave(ctx, s)
	_ = s.Out.TrySend(encode(Frame{Type: FrameLeft, Room: code}))
}

// Disconnect runs the cleanup for a connection that is gone. It is safe to
// call for sessions that never joined or already left.
func (co *Coordinator) Disconnect(ctx context.Context, s *Session) {
	co.leave(ctx, s)
}

// leave unregisters s, tells the room and records the leave. Each step
// tolerates the others having already happened.
func (co *Coordinator) leave(ctx context.Context, s *Session) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	code, occ, registered := co.tracker.Unregister(s.ID)
	if registered {
		co.cast.Publish(code, s.ID, FrameUserLeft, encode(Frame{
			Type:         FrameUserLeft,
			Room:         code,
			ConnectionID: s.ID,
			UserID:       occ.UserID,
			DisplayName:  occ.DisplayName,
		}))
	}

	m := s.current
	s.current = nil
	if m == nil {
		return
	}
	if code == "" {
		code = m.code
	}

	log := co.log.WithFields(logrus.Fields{
		"conn_id": s.ID,
		"room":    code,
		"user_id": s.Identity.UserID,
		"event":   EventLeaveInterview,
	})

	unlock := co.members.Lock(memberKey(code, s.Identity.UserID))
	defer unlock()

	// Another tab of the same user keeps the participant marked active.
	if co.tracker.IsOnline(code, s.Identity.UserID) {
		log.Debug("user still connected elsewhere")
		return
	}
	if err := co.rooms.RecordLeave(ctx, m.participant); err != nil {
		log.WithError(err).Warn("record leave failed")
		return
	}
	log.Info("left room")
}

func (co *Coordinator) sendSnapshot(ctx context.Context, s *Session) {
	const op = "Realtime.RequestSnapshot"

	if s.current == nil {
		co.reply(s, utils.E(utils.CodeInvalidState, op, "join a room first", nil))
		return
	}
	snap, err := co.snapshots.Get(ctx, s.current.roomID)
	if err != nil {
		co.reply(s, err)
		return
	}
	content := snap.Content
	f := Frame{
		Type:      FrameCodeSnapshot,
		Room:      s.current.code,
		Content:   &content,
		Language:  snap.Language,
		UpdatedBy: snap.UpdatedBy,
	}
	if !snap.UpdatedAt.IsZero() {
		f.Timestamp = stamp(snap.UpdatedAt)
	}
	_ = s.Out.TrySend(encode(f))
}

func (co *Coordinator) reply(s *Session, err error) {
	if errors.Is(err, ErrRelayMiss) {
		return
	}
	entry := co.log.WithFields(logrus.Fields{"conn_id": s.ID, "user_id": s.Identity.UserID}).WithError(err)
	if utils.CodeOf(err) == utils.CodeInternal {
		entry.Error("realtime event failed")
	} else {
		entry.Info("realtime event rejected")
	}
	_ = s.Out.TrySend(errorFrame(err))
}
