package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hireloop/interviewroom/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultStream = "notify:stream"
	fieldKind     = "kind"
	fieldNotice   = "notice"
)

// RedisDispatcher queues notices on a Redis stream. Delivery happens in
// the notification workers.
type RedisDispatcher struct {
	rdb    *redis.Client
	stream string
	maxLen int64
}

func NewRedisDispatcher(rdb *redis.Client, stream string) *RedisDispatcher {
	if stream == "" {
		stream = DefaultStream
	}
	return &RedisDispatcher{rdb: rdb, stream: stream, maxLen: 100_000}
}

func (d *RedisDispatcher) Stream() string { return d.stream }

// Notify enqueues all notices in one round trip.
func (d *RedisDispatcher) Notify(ctx context.Context, notices ...models.Notice) error {
	if len(notices) == 0 {
		return nil
	}
	pipe := d.rdb.Pipeline()
	for _, n := range notices {
		if n.UserID == "" {
			continue
		}
		b, err := json.Marshal(n)
		if err != nil {
			return err
		}
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: d.stream,
			MaxLen: d.maxLen,
			Approx: true,
			Values: map[string]any{
				fieldKind:   string(n.Kind),
				fieldNotice: string(b),
			},
		})
	}
	_, err := pipe.Exec(ctx)
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}

// Decode reads a notice back from stream entry values.
func Decode(values map[string]any) (models.Notice, error) {
	var n models.Notice
	raw, ok := values[fieldNotice].(string)
	if !ok || raw == "" {
		return n, errors.New("notify: entry has no notice")
	}
	if err := json.Unmarshal([]byte(raw), &n); err != nil {
		return n, fmt.Errorf("notify: decode notice: %w", err)
	}
	if n.UserID == "" {
		return n, errors.New("notify: notice has no recipient")
	}
	return n, nil
}
