package services

import (
	"context"

	"github.com/hireloop/interviewroom/internal/models"
)

// Notifier hands notices to the notification dispatcher.
type Notifier interface {
	Notify(ctx context.Context, notices ...models.Notice) error
}

type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, ...models.Notice) error { return nil }
