// Package presence tracks which live connections are attending which rooms.
// State is in-memory only and starts empty on every process start.
package presence

import (
	"fmt"
	"iter"
	"sync"

	"github.com/hireloop/interviewroom/internal/models"
	"github.com/sirupsen/logrus"
)

// Outbox accepts frames for one connection without blocking.
type Outbox interface {
	TrySend(frame []byte) error
}

// Occupant is one live connection inside a room.
type Occupant struct {
	ConnID        string
	UserID        string
	DisplayName   string
	Role          models.ParticipantRole
	ParticipantID uint
	Out           Outbox
}

type room struct {
	mu      sync.RWMutex
	members map[string]Occupant
}

// Tracker maps rooms to their occupants and connections back to their room.
//
// t.mu guards both indexes. Each room carries its own lock for member
// reads, so fan-out never holds the tracker lock while iterating. Lock order
// is always t.mu then room.mu, and no path holds two room locks.
type Tracker struct {
	mu    sync.Mutex
	rooms map[string]*room
	conns map[string]string

	strict bool
	log    logrus.FieldLogger
}

type Option func(*Tracker)

// Strict makes invariant violations panic instead of being repaired.
func Strict(on bool) Option { return func(t *Tracker) { t.strict = on } }

func WithLogger(l logrus.FieldLogger) Option { return func(t *Tracker) { t.log = l } }

func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		rooms: make(map[string]*room),
		conns: make(map[string]string),
		log:   logrus.StandardLogger(),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Register places occ in roomCode and returns the other occupants at that
// moment, in no particular order. A connection already registered elsewhere
// is moved.
func (t *Tracker) Register(roomCode string, occ Occupant) []Occupant {
	t.mu.Lock()
	defer t.mu.Unlock()

	if prev, ok := t.conns[occ.ConnID]; ok && prev != roomCode {
		t.removeLocked(occ.ConnID, prev)
	}

	r, ok := t.rooms[roomCode]
	if !ok {
		r = &room{members: make(map[string]Occupant)}
		t.rooms[roomCode] = r
	}

	r.mu.Lock()
	others := make([]Occupant, 0, len(r.members))
	for id, o := range r.members {
		if id != occ.ConnID {
			others = append(others, o)
		}
	}
	r.members[occ.ConnID] = occ
	r.mu.Unlock()

	t.conns[occ.ConnID] = roomCode
	return others
}

// Unregister removes connID. Unknown connections report ok=false.
func (t *Tracker) Unregister(connID string) (roomCode string, occ Occupant, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	roomCode, ok = t.conns[connID]
	if !ok {
		return "", Occupant{}, false
	}
	occ, ok = t.removeLocked(connID, roomCode)
	return roomCode, occ, ok
}

func (t *Tracker) removeLocked(connID, roomCode string) (Occupant, bool) {
	delete(t.conns, connID)

	r, ok := t.rooms[roomCode]
	if !ok {
		t.violation("reverse entry without room", connID, roomCode)
		return Occupant{}, false
	}

	r.mu.Lock()
	occ, ok := r.members[connID]
	delete(r.members, connID)
	empty := len(r.members) == 0
	r.mu.Unlock()

	if empty {
		delete(t.rooms, roomCode)
	}
	if !ok {
		t.violation("reverse entry without member", connID, roomCode)
		return Occupant{}, false
	}
	return occ, true
}

func (t *Tracker) violation(what, connID, roomCode string) {
	if t.strict {
		panic(fmt.Sprintf("presence: %s (conn=%s room=%s)", what, connID, roomCode))
	}
	t.log.WithFields(logrus.Fields{"conn_id": connID, "room": roomCode}).Warn("presence: " + what + ", repaired")
}

// Lookup returns the room and occupant record of connID.
func (t *Tracker) Lookup(connID string) (string, Occupant, bool) {
	t.mu.Lock()
	roomCode, ok := t.conns[connID]
	r := t.rooms[roomCode]
	t.mu.Unlock()
	if !ok || r == nil {
		return "", Occupant{}, false
	}

	r.mu.RLock()
	occ, ok := r.members[connID]
	r.mu.RUnlock()
	return roomCode, occ, ok
}

// OccupantsOf yields the occupants of roomCode. The member set is copied
// when iteration starts; callers may register or unregister while ranging.
func (t *Tracker) OccupantsOf(roomCode string) iter.Seq[Occupant] {
	return func(yield func(Occupant) bool) {
		t.mu.Lock()
		r := t.rooms[roomCode]
		t.mu.Unlock()
		if r == nil {
			return
		}

		r.mu.RLock()
		snap := make([]Occupant, 0, len(r.members))
		for _, o := range r.members {
			snap = append(snap, o)
		}
		r.mu.RUnlock()

		for _, o := range snap {
			if !yield(o) {
				return
			}
		}
	}
}

// IsOnline reports whether userID has at least one connection in roomCode.
func (t *Tracker) IsOnline(roomCode, userID string) bool {
	for o := range t.OccupantsOf(roomCode) {
		if o.UserID == userID {
			return true
		}
	}
	return false
}

// ActiveParticipants returns the participant ids backed by a live connection.
func (t *Tracker) ActiveParticipants() map[uint]struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[uint]struct{})
	for _, r := range t.rooms {
		r.mu.RLock()
		for _, o := range r.members {
			if o.ParticipantID != 0 {
				out[o.ParticipantID] = struct{}{}
			}
		}
		r.mu.RUnlock()
	}
	return out
}

// Stats returns the number of rooms and connections currently tracked.
func (t *Tracker) Stats() (rooms, conns int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.rooms), len(t.conns)
}

// Check verifies that both indexes agree.
func (t *Tracker) Check() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	seen := 0
	for code, r := range t.rooms {
		r.mu.RLock()
		if len(r.members) == 0 {
			r.mu.RUnlock()
			return fmt.Errorf("room %s is empty but still indexed", code)
		}
		for id := range r.members {
			if t.conns[id] != code {
				r.mu.RUnlock()
				return fmt.Errorf("conn %s in room %s has reverse entry %q", id, code, t.conns[id])
			}
			seen++
		}
		r.mu.RUnlock()
	}
	if seen != len(t.conns) {
		return fmt.Errorf("forward index holds %d conns, reverse holds %d", seen, len(t.conns))
	}
	return nil
}
