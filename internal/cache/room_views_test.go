package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hireloop/interviewroom/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

func TestRoomViewsRoundTripAndInvalidate(t *testing.T) {
	mr, rdb := setupTestRedis(t)
	views := NewRoomViews(NewRedisCache(rdb), time.Minute)
	ctx := context.Background()

	_, hit := views.Get(ctx, "INT1-a")
	assert.False(t, hit)

	room := &models.Room{ID: 3, Code: "INT1-a", Status: models.RoomActive,
		Participants: []models.Participant{{UserID: "cand", Role: models.RoleCandidate}}}
	require.NoError(t, views.Put(ctx, room))
	assert.True(t, mr.Exists("interviewroom:room:view:INT1-a"))

	got, hit := views.Get(ctx, "INT1-a")
	require.True(t, hit)
	assert.Equal(t, models.RoomActive, got.Status)
	require.Len(t, got.Participants, 1)

	require.NoError(t, views.Invalidate(ctx, "INT1-a"))
	_, hit = views.Get(ctx, "INT1-a")
	assert.False(t, hit)
}

func TestRoomViewsExpire(t *testing.T) {
	mr, rdb := setupTestRedis(t)
	views := NewRoomViews(NewRedisCache(rdb), time.Second)
	ctx := context.Background()

	require.NoError(t, views.Put(ctx, &models.Room{Code: "x"}))
	mr.FastForward(2 * time.Second)
	_, hit := views.Get(ctx, "x")
	assert.False(t, hit)
}

func TestRedisCacheCorruptValueIsMiss(t *testing.T) {
	mr, rdb := setupTestRedis(t)
	c := NewRedisCache(rdb, WithPrefix(""))
	require.NoError(t, mr.Set("k", "{not json"))

	var dst map[string]any
	hit, err := c.GetJSON(context.Background(), "k", &dst)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.False(t, mr.Exists("k"))
}

func TestNilRoomViewsIsDisabled(t *testing.T) {
	var views *RoomViews
	_, hit := views.Get(context.Background(), "x")
	assert.False(t, hit)
	assert.NoError(t, views.Put(context.Background(), &models.Room{Code: "x"}))
	assert.NoError(t, views.Invalidate(context.Background(), "x"))
}

func TestRedisCacheDelUsesPrefix(t *testing.T) {
	mr, rdb := setupTestRedis(t)
	c := NewRedisCache(rdb, WithPrefix("t:"))
	ctx := context.Background()

	require.NoError(t, c.SetJSON(ctx, "a", map[string]int{"n": 1}, time.Minute))
	require.NoError(t, c.SetJSON(ctx, "b", map[string]int{"n": 2}, time.Minute))
	assert.True(t, mr.Exists("t:a"))

	require.NoError(t, c.Del(ctx, "a", "b"))
	assert.False(t, mr.Exists("t:a"))
	assert.False(t, mr.Exists("t:b"))
	assert.NoError(t, c.Del(ctx))
}
