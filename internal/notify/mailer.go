package notify

import (
	"context"

	"github.com/hireloop/interviewroom/internal/models"
	"github.com/sirupsen/logrus"
)

// Mailer delivers a notice outside the app (email and the like). The
// platform's mail service sits behind it.
type Mailer interface {
	Send(ctx context.Context, n models.Notice) error
}

// LogMailer only logs notices. Used when no mail service is configured.
type LogMailer struct {
	Log logrus.FieldLogger
}

func (m LogMailer) Send(_ context.Context, n models.Notice) error {
	if m.Log == nil {
		return nil
	}
	m.Log.WithFields(logrus.Fields{
		"user_id": n.UserID,
		"kind":    n.Kind,
		"room":    n.RoomCode,
	}).Info("notice delivered")
	return nil
}
