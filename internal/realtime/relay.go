package realtime

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/hireloop/interviewroom/internal/metrics"
	"github.com/hireloop/interviewroom/internal/presence"
	"github.com/sirupsen/logrus"
)

// ErrRelayMiss marks a frame that could not be delivered because the
// target is not present. It is never reported to the sender.
var ErrRelayMiss = errors.New("relay target not present")

// Relay forwards signaling frames between two connections of one room.
// Payloads are passed through untouched.
type Relay struct {
	tracker *presence.Tracker
	log     logrus.FieldLogger
}

func NewRelay(tracker *presence.Tracker, log logrus.FieldLogger) *Relay {
	return &Relay{tracker: tracker, log: log}
}

func (r *Relay) Forward(s *Session, kind string, sig Signal) error {
	err := r.forward(s, kind, sig)
	if err != nil {
		metrics.Signals.WithLabelValues(kind, "dropped").Inc()
		r.log.WithFields(logrus.Fields{
			"conn_id": s.ID,
			"event":   kind,
			"target":  sig.Target,
		}).WithError(err).Debug("signal dropped")
		return err
	}
	metrics.Signals.WithLabelValues(kind, "delivered").Inc()
	return nil
}

func (r *Relay) forward(s *Session, kind string, sig Signal) error {
	code, ok := s.Room()
	if !ok {
		return fmt.Errorf("%w: sender has no room", ErrRelayMiss)
	}
	if sig.Target == "" || sig.Target == s.ID {
		return fmt.Errorf("%w: no usable target", ErrRelayMiss)
	}
	if len(sig.Payload) == 0 || bytes.Equal(sig.Payload, []byte("null")) {
		return fmt.Errorf("%w: empty payload", ErrRelayMiss)
	}

	targetRoom, occ, ok := r.tracker.Lookup(sig.Target)
	if !ok || targetRoom != code {
		return fmt.Errorf("%w: %s not in room %s", ErrRelayMiss, sig.Target, code)
	}

	frame := encode(Frame{Type: kind, From: s.ID, Payload: sig.Payload})
	if err := occ.Out.TrySend(frame); err != nil {
		return fmt.Errorf("%w: %v", ErrRelayMiss, err)
	}
	return nil
}
