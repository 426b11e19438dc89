package postgres

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/hireloop/interviewroom/internal/models"
	"github.com/hireloop/interviewroom/internal/testhelpers"
	"github.com/hireloop/interviewroom/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newRoom(appID uint, code string) *models.Room {
	return &models.Room{
		Code:            code,
		Name:            "Interview - Backend Engineer",
		ApplicationID:   appID,
		ScheduledAt:     time.Now().Add(time.Hour).UTC(),
		DurationMinutes: 60,
		Status:          models.RoomScheduled,
		CreatedBy:       "admin-1",
	}
}

func seedRoom(t *testing.T, db *gorm.DB, appID uint, code string, users ...string) *models.Room {
	t.Helper()
	repo := NewRoomRepo(db)
	var parts []models.Participant
	for i, u := range users {
		role := models.RoleInterviewer
		if i == 0 {
			role = models.RoleCandidate
		}
		parts = append(parts, models.Participant{UserID: u, Role: role})
	}
	room := newRoom(appID, code)
	require.NoError(t, repo.CreateWithParticipants(context.Background(), room, parts))
	return room
}

func TestRoomRepo_CreateWithParticipants(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	repo := NewRoomRepo(db)
	ctx := context.Background()

	room := seedRoom(t, db, 42, "INT42-abc", "cand-1", "int-1")
	assert.NotZero(t, room.ID)
	require.Len(t, room.Participants, 2)
	assert.Equal(t, room.ID, room.Participants[0].RoomID)

	got, err := repo.GetByCode(ctx, "INT42-abc")
	require.NoError(t, err)
	assert.Equal(t, models.RoomScheduled, got.Status)

	parts, err := NewParticipantRepo(db).ListByRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.Len(t, parts, 2)
}

func TestRoomRepo_OneLiveRoomPerApplication(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	repo := NewRoomRepo(db)
	ctx := context.Background()

	first := seedRoom(t, db, 7, "INT7-one", "cand-1")

	err := repo.CreateWithParticipants(ctx, newRoom(7, "INT7-two"), nil)
	assert.ErrorIs(t, err, utils.ErrConflict)

	ok, err := repo.Cancel(ctx, first.ID, time.Now())
	require.NoError(t, err)
	require.True(t, ok)

	assert.NoError(t, repo.CreateWithParticipants(ctx, newRoom(7, "INT7-two"), nil))
}

func TestRoomRepo_GetByCodeNotFound(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	_, err := NewRoomRepo(db).GetByCode(context.Background(), "missing")
	assert.ErrorIs(t, err, utils.ErrNotFound)
}

func TestRoomRepo_ActivateIsCheckAndSet(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	repo := NewRoomRepo(db)
	room := seedRoom(t, db, 1, "INT1-race", "cand-1")

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.Activate(context.Background(), room.ID, time.Now().UTC())
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	got, err := repo.GetByID(context.Background(), room.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoomActive, got.Status)
	assert.NotNil(t, got.StartedAt)
}

func TestRoomRepo_TerminalTransitions(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	repo := NewRoomRepo(db)
	ctx := context.Background()
	room := seedRoom(t, db, 1, "INT1-term", "cand-1")

	ok, err := repo.Complete(ctx, room.ID, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Complete(ctx, room.ID, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.Cancel(ctx, room.ID, time.Now())
	require.NoError(t, err)
	assert.False(t, ok, "completed rooms cannot be cancelled")

	ok, err = repo.Activate(ctx, room.ID, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRoomRepo_DeleteAggregate(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	repo := NewRoomRepo(db)
	ctx := context.Background()
	room := seedRoom(t, db, 3, "INT3-del", "cand-1", "int-1")

	require.NoError(t, NewSnapshotRepo(db).Upsert(ctx, &models.CodeSnapshot{RoomID: room.ID, Language: "go", Content: "package main"}))

	assert.ErrorIs(t, repo.DeleteAggregate(ctx, room.ID), utils.ErrStateChanged)

	_, err := repo.Cancel(ctx, room.ID, time.Now())
	require.NoError(t, err)
	require.NoError(t, repo.DeleteAggregate(ctx, room.ID))

	_, err = repo.GetByID(ctx, room.ID)
	assert.ErrorIs(t, err, utils.ErrNotFound)
	parts, err := NewParticipantRepo(db).ListByRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.Empty(t, parts)
	_, err = NewSnapshotRepo(db).Get(ctx, room.ID)
	assert.ErrorIs(t, err, utils.ErrNotFound)

	assert.ErrorIs(t, repo.DeleteAggregate(ctx, room.ID), utils.ErrNotFound)
}
