package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/hireloop/interviewroom/internal/models"
	"github.com/hireloop/interviewroom/internal/presence"
	"github.com/hireloop/interviewroom/internal/utils"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

type outbox struct {
	mu     sync.Mutex
	frames [][]byte
	full   bool
}

func (o *outbox) TrySend(b []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.full {
		return ErrBackpressure
	}
	o.frames = append(o.frames, b)
	return nil
}

// drain returns and clears the frames received so far.
func (o *outbox) drain(t *testing.T) []Frame {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Frame, 0, len(o.frames))
	for _, b := range o.frames {
		var f Frame
		require.NoError(t, json.Unmarshal(b, &f))
		out = append(out, f)
	}
	o.frames = nil
	return out
}

func types(frames []Frame) []string {
	out := make([]string, 0, len(frames))
	for _, f := range frames {
		out = append(out, f.Type)
	}
	return out
}

type fakeRooms struct {
	mu     sync.Mutex
	rooms  map[string]*models.Room
	people map[string]map[string]*models.Participant
	leaves []uint

	// afterAuthorize runs once, outside the lock, before the next
	// AuthorizeJoin returns.
	afterAuthorize func()
}

func newFakeRooms() *fakeRooms {
	return &fakeRooms{rooms: map[string]*models.Room{}, people: map[string]map[string]*models.Participant{}}
}

func (f *fakeRooms) add(code string, status models.RoomStatus, users map[string]models.ParticipantRole) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uint(len(f.rooms) + 1)
	f.rooms[code] = &models.Room{ID: id, Code: code, Status: status}
	f.people[code] = map[string]*models.Participant{}
	n := uint(0)
	for u, role := range users {
		n++
		f.people[code][u] = &models.Participant{ID: id*100 + n, RoomID: id, UserID: u, Role: role}
	}
}

func (f *fakeRooms) AuthorizeJoin(_ context.Context, code string, id models.Identity) (*models.Room, *models.Participant, error) {
	room, p, err := f.authorize(code, id)

	f.mu.Lock()
	hook := f.afterAuthorize
	f.afterAuthorize = nil
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return room, p, err
}

func (f *fakeRooms) authorize(code string, id models.Identity) (*models.Room, *models.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	room, ok := f.rooms[code]
	if !ok {
		return nil, nil, utils.E(utils.CodeNotFound, "Test.Join", "room not found", nil)
	}
	p, ok := f.people[code][id.UserID]
	if !ok {
		return nil, nil, utils.E(utils.CodeForbidden, "Test.Join", "not a participant of this room", nil)
	}
	if room.Status == models.RoomScheduled {
		room.Status = models.RoomActive
	}
	return room, p, nil
}

func (f *fakeRooms) RecordLeave(_ context.Context, p *models.Participant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leaves = append(f.leaves, p.ID)
	return nil
}

func (f *fakeRooms) leaveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.leaves)
}

type fakeSnapshots struct {
	mu   sync.Mutex
	byID map[uint]models.CodeSnapshot
	fail error
}

func (f *fakeSnapshots) Save(_ context.Context, roomID uint, language, content, userID string) error {
	if f.fail != nil {
		return f.fail
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.byID == nil {
		f.byID = map[uint]models.CodeSnapshot{}
	}
	f.byID[roomID] = models.CodeSnapshot{RoomID: roomID, Language: language, Content: content, UpdatedBy: userID}
	return nil
}

func (f *fakeSnapshots) Get(_ context.Context, roomID uint) (*models.CodeSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byID[roomID]
	if !ok {
		return &models.CodeSnapshot{RoomID: roomID, Language: models.DefaultLanguage}, nil
	}
	return &s, nil
}

type fakeTranscript struct {
	mu    sync.Mutex
	lines []models.ChatLine
}

func (f *fakeTranscript) Append(_ context.Context, line *models.ChatLine) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lines = append(f.lines, *line)
	return nil
}

type harness struct {
	tracker    *presence.Tracker
	rooms      *fakeRooms
	snapshots  *fakeSnapshots
	transcript *fakeTranscript
	co         *Coordinator
	log        *test.Hook
}

func newHarness() *harness {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	h := &harness{
		tracker:    presence.NewTracker(presence.Strict(true)),
		rooms:      newFakeRooms(),
		snapshots:  &fakeSnapshots{},
		transcript: &fakeTranscript{},
		log:        hook,
	}
	h.co = NewCoordinator(h.tracker, h.rooms, h.snapshots, h.transcript, logger)
	return h
}

func (h *harness) connect(id, user string) (*Session, *outbox) {
	out := &outbox{}
	return NewSession(id, models.Identity{UserID: user, DisplayName: user + "-name"}, out), out
}
