package cache

import (
	"context"
	"time"

	"github.com/hireloop/interviewroom/internal/models"
)

// RoomViews caches the read-only room view served to clients. It is
// invalidated on every status or membership change and never consulted for
// authorization.
type RoomViews struct {
	c   Cache
	ttl time.Duration
}

func NewRoomViews(c Cache, ttl time.Duration) *RoomViews {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RoomViews{c: c, ttl: ttl}
}

func roomKey(code string) string { return "room:view:" + code }

func (v *RoomViews) Get(ctx context.Context, code string) (*models.Room, bool) {
	if v == nil {
		return nil, false
	}
	var room models.Room
	hit, err := v.c.GetJSON(ctx, roomKey(code), &room)
	if err != nil || !hit {
		return nil, false
	}
	return &room, true
}

func (v *RoomViews) Put(ctx context.Context, room *models.Room) error {
	if v == nil {
		return nil
	}
	return v.c.SetJSON(ctx, roomKey(room.Code), room, v.ttl)
}

func (v *RoomViews) Invalidate(ctx context.Context, code string) error {
	if v == nil {
		return nil
	}
	return v.c.Del(ctx, roomKey(code))
}
