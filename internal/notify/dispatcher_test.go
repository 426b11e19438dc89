package notify

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/hireloop/interviewroom/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return rdb
}

func TestRedisDispatcherQueuesNotices(t *testing.T) {
	rdb := setupTestRedis(t)
	d := NewRedisDispatcher(rdb, "")
	ctx := context.Background()

	err := d.Notify(ctx,
		models.Notice{Kind: models.NoticeCancelled, UserID: "u1", Title: "t", RoomCode: "R"},
		models.Notice{Kind: models.NoticeCancelled, UserID: ""},
		models.Notice{Kind: models.NoticeCancelled, UserID: "u2", Title: "t", RoomCode: "R"},
	)
	require.NoError(t, err)

	msgs, err := rdb.XRange(ctx, DefaultStream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 2, "notices without a recipient are skipped")

	n, err := Decode(msgs[1].Values)
	require.NoError(t, err)
	assert.Equal(t, "u2", n.UserID)
	assert.Equal(t, models.NoticeCancelled, n.Kind)
	assert.Equal(t, "R", n.RoomCode)

	assert.NoError(t, d.Notify(ctx))
}

func TestDecodeRejectsMalformedEntries(t *testing.T) {
	_, err := Decode(map[string]any{})
	assert.Error(t, err)
	_, err = Decode(map[string]any{"notice": "{"})
	assert.Error(t, err)
	_, err = Decode(map[string]any{"notice": `{"kind":"x"}`})
	assert.Error(t, err)
}
