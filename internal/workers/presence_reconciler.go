package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/hireloop/interviewroom/internal/metrics"
	pgrepo "github.com/hireloop/interviewroom/internal/repositories/postgres"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// LivePresence reports the participant ids that currently hold a connection.
type LivePresence interface {
	ActiveParticipants() map[uint]struct{}
}

// RoomInvalidator drops cached views of a room whose participants changed.
type RoomInvalidator interface {
	InvalidateRoom(ctx context.Context, roomID uint)
}

// PresenceReconciler clears is_active flags that no live connection backs,
// such as those left behind by a crash or restart.
type PresenceReconciler struct {
	participants pgrepo.ParticipantRepository
	presence     LivePresence
	views        RoomInvalidator
	schedule     string
	grace        time.Duration
	log          logrus.FieldLogger
	cron         *cron.Cron
	now          func() time.Time
}

// NewPresenceReconciler builds the job. views may be nil.
func NewPresenceReconciler(participants pgrepo.ParticipantRepository, presence LivePresence, views RoomInvalidator, schedule string, grace time.Duration, log logrus.FieldLogger) *PresenceReconciler {
	if schedule == "" {
		schedule = "@every 5m"
	}
	if grace <= 0 {
		grace = 2 * time.Minute
	}
	return &PresenceReconciler{
		participants: participants,
		presence:     presence,
		views:        views,
		schedule:     schedule,
		grace:        grace,
		log:          log,
		cron:         cron.New(),
		now:          time.Now,
	}
}

// Start clears every stale flag once (the process holds no connections
// yet) and then runs on the schedule.
func (r *PresenceReconciler) Start(ctx context.Context) error {
	if n, err := r.Reconcile(ctx, r.now()); err != nil {
		r.log.WithError(err).Warn("startup presence reconcile failed")
	} else {
		r.log.WithField("cleared", n).Info("startup presence reconcile done")
	}

	_, err := r.cron.AddFunc(r.schedule, func() {
		if _, err := r.RunOnce(ctx); err != nil {
			r.log.WithError(err).Warn("presence reconcile failed")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule presence reconcile: %w", err)
	}
	r.cron.Start()
	r.log.WithField("schedule", r.schedule).Info("presence reconciler started")
	return nil
}

func (r *PresenceReconciler) Stop() {
	if r.cron != nil {
		<-r.cron.Stop().Done()
	}
}

// RunOnce reconciles participants that joined more than the grace period ago.
func (r *PresenceReconciler) RunOnce(ctx context.Context) (int, error) {
	return r.Reconcile(ctx, r.now().Add(-r.grace))
}

// Reconcile marks as left every active participant that joined before
// cutoff and has no live connection.
func (r *PresenceReconciler) Reconcile(ctx context.Context, cutoff time.Time) (int, error) {
	rows, err := r.participants.ListActiveJoinedBefore(ctx, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	live := r.presence.ActiveParticipants()

	now := r.now().UTC()
	cleared := 0
	touched := map[uint]struct{}{}
	for _, p := range rows {
		if _, ok := live[p.ID]; ok {
			continue
		}
		ok, err := r.participants.MarkLeft(ctx, p.ID, now)
		if err != nil {
			return cleared, err
		}
		if ok {
			cleared++
			touched[p.RoomID] = struct{}{}
			r.log.WithFields(logrus.Fields{"participant_id": p.ID, "user_id": p.UserID}).Debug("stale presence cleared")
		}
	}
	if r.views != nil {
		for roomID := range touched {
			r.views.InvalidateRoom(ctx, roomID)
		}
	}
	metrics.ReconciledParticipants.Add(float64(cleared))
	return cleared, nil
}
