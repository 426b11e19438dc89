package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/hireloop/interviewroom/internal/models"
	pgrepo "github.com/hireloop/interviewroom/internal/repositories/postgres"
	"github.com/hireloop/interviewroom/internal/testhelpers"
	"github.com/sirupsen/logrus/hooks/test"
	"gorm.io/gorm"
)

type recordingNotifier struct {
	mu      sync.Mutex
	notices []models.Notice
}

func (n *recordingNotifier) Notify(_ context.Context, notices ...models.Notice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notices...)
	return nil
}

func (n *recordingNotifier) byKind(kind models.NoticeKind) []models.Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []models.Notice
	for _, x := range n.notices {
		if x.Kind == kind {
			out = append(out, x)
		}
	}
	return out
}

type env struct {
	db       *gorm.DB
	notifier *recordingNotifier
	hooks    *RoomHooks
	rooms    RoomService
	feedback FeedbackService
	recs     RecommendationService
}

var (
	admin       = models.Identity{UserID: "admin-1", Role: models.PlatformAdmin}
	employer    = models.Identity{UserID: "emp-1", Role: models.PlatformEmployer}
	candidate   = models.Identity{UserID: "cand-1", DisplayName: "Cand", Role: models.PlatformCandidate}
	interviewer = models.Identity{UserID: "int-1", DisplayName: "Ivy", Role: models.PlatformInterviewer}
)

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testhelpers.SetupTestDB(t)
	log, _ := test.NewNullLogger()

	roomRepo := pgrepo.NewRoomRepo(db)
	partRepo := pgrepo.NewParticipantRepo(db)
	recRepo := pgrepo.NewRecommendationRepo(db)
	catalog := NewCatalog(pgrepo.NewCatalogRepo(db))
	n := &recordingNotifier{}
	hooks := &RoomHooks{Activity: pgrepo.NewActivityRepo(db), Snapshots: pgrepo.NewSnapshotRepo(db), Rooms: roomRepo, Log: log}

	return &env{
		db:       db,
		notifier: n,
		hooks:    hooks,
		rooms:    NewRoomService(roomRepo, partRepo, recRepo, catalog, n, hooks, RoomPolicy{}),
		feedback: NewFeedbackService(roomRepo, partRepo, pgrepo.NewFeedbackRepo(db), pgrepo.NewEarningRepo(db), catalog, n, hooks),
		recs:     NewRecommendationService(recRepo, roomRepo, catalog, n, hooks),
	}
}

// schedule seeds application 42 and books a room for it an hour from now.
func (e *env) schedule(t *testing.T, interviewers ...string) *models.Room {
	t.Helper()
	testhelpers.SeedApplication(t, e.db, 42, candidate.UserID, employer.UserID, "Backend Engineer")
	room, err := e.rooms.Schedule(context.Background(), ScheduleInput{
		ApplicationID:   42,
		StartTime:       time.Now().Add(time.Hour),
		DurationMinutes: 90,
		InterviewerIDs:  interviewers,
	}, admin)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	return room
}
