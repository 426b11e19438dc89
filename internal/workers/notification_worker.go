package workers

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/hireloop/interviewroom/internal/metrics"
	"github.com/hireloop/interviewroom/internal/models"
	"github.com/hireloop/interviewroom/internal/notify"
	pgrepo "github.com/hireloop/interviewroom/internal/repositories/postgres"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// NotificationWorkerPool consumes the notice stream: every notice becomes an
// in-app notification row and is handed to the mailer.
type NotificationWorkerPool struct {
	Redis         *redis.Client
	Notifications pgrepo.NotificationRepository
	Mailer        notify.Mailer
	NumWorkers    int

	Logger logrus.FieldLogger

	Stream         string
	Group          string
	ConsumerPrefix string
	Block          time.Duration
}

func (p *NotificationWorkerPool) Start(ctx context.Context) error {
	if err := p.init(ctx); err != nil {
		return err
	}
	for i := 0; i < p.NumWorkers; i++ {
		consumer := p.ConsumerPrefix + "-" + strconv.Itoa(i+1)
		go p.runConsumer(ctx, consumer)
	}
	p.Logger.WithFields(logrus.Fields{"stream": p.Stream, "workers": p.NumWorkers}).Info("notification workers started")
	return nil
}

func (p *NotificationWorkerPool) init(ctx context.Context) error {
	if p.Redis == nil || p.Notifications == nil {
		return errors.New("NotificationWorkerPool missing dependency: Redis/Notifications must be set")
	}
	if p.Stream == "" {
		p.Stream = notify.DefaultStream
	}
	if p.Group == "" {
		p.Group = "notify-workers"
	}
	if p.ConsumerPrefix == "" {
		p.ConsumerPrefix = "c"
	}
	if p.NumWorkers <= 0 {
		p.NumWorkers = 2
	}
	if p.Block == 0 {
		p.Block = 5 * time.Second
	}
	if p.Logger == nil {
		p.Logger = logrus.New()
	}
	if p.Mailer == nil {
		p.Mailer = notify.LogMailer{Log: p.Logger}
	}

	err := p.Redis.XGroupCreateMkStream(ctx, p.Stream, p.Group, "0").Err()
	if err != nil && !isBusyGroup(err) {
		return err
	}
	return nil
}

func isBusyGroup(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP")
}

func (p *NotificationWorkerPool) runConsumer(ctx context.Context, consumer string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if _, err := p.poll(ctx, consumer, p.Block); err != nil {
			if ctx.Err() != nil {
				return
			}
			p.Logger.WithError(err).WithField("consumer", consumer).Warn("notification read failed")
			time.Sleep(500 * time.Millisecond)
		}
	}
}

// poll reads one batch and handles it. A negative block returns at once.
func (p *NotificationWorkerPool) poll(ctx context.Context, consumer string, block time.Duration) (int, error) {
	res, err := p.Redis.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    p.Group,
		Consumer: consumer,
		Streams:  []string{p.Stream, ">"},
		Count:    10,
		Block:    block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, err
	}

	n := 0
	for _, stream := range res {
		for _, msg := range stream.Messages {
			p.handleMsg(ctx, msg)
			_ = p.Redis.XAck(ctx, p.Stream, p.Group, msg.ID).Err()
			n++
		}
	}
	return n, nil
}

// handleMsg never returns an error: a notice that cannot be stored is
// logged and acked so it does not block the stream.
func (p *NotificationWorkerPool) handleMsg(ctx context.Context, msg redis.XMessage) {
	log := p.Logger.WithField("msg_id", msg.ID)

	n, err := notify.Decode(msg.Values)
	if err != nil {
		metrics.Notifications.WithLabelValues("invalid").Inc()
		log.WithError(err).Warn("dropping malformed notice")
		return
	}
	log = log.WithFields(logrus.Fields{"user_id": n.UserID, "kind": n.Kind, "room": n.RoomCode})

	actionURL := n.ActionURL
	if actionURL == "" && n.RoomCode != "" {
		actionURL = "/interviews/" + n.RoomCode
	}
	row := &models.Notification{
		UserID:    n.UserID,
		Kind:      n.Kind,
		Title:     n.Title,
		Message:   n.Message,
		ActionURL: actionURL,
	}
	if err := p.Notifications.Insert(ctx, row); err != nil {
		metrics.Notifications.WithLabelValues("failed").Inc()
		log.WithError(err).Error("store notification failed")
		return
	}

	if err := p.Mailer.Send(ctx, n); err != nil {
		metrics.Notifications.WithLabelValues("mail_failed").Inc()
		log.WithError(err).Warn("mail delivery failed")
		return
	}
	metrics.Notifications.WithLabelValues("delivered").Inc()
}
