package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/hireloop/interviewroom/internal/models"
	mongorepo "github.com/hireloop/interviewroom/internal/repositories/mongo"
	pgrepo "github.com/hireloop/interviewroom/internal/repositories/postgres"
	"github.com/hireloop/interviewroom/internal/utils"
)

const maxSnapshotBytes = 512 << 10

// SnapshotService keeps the shared editor content of each room.
type SnapshotService interface {
	Save(ctx context.Context, roomID uint, language, content, userID string) error
	// Get returns an empty snapshot in the default language when the room
	// has no edits yet.
	Get(ctx context.Context, roomID uint) (*models.CodeSnapshot, error)
}

type snapshotService struct {
	repo pgrepo.SnapshotRepository
	now  func() time.Time
}

func NewSnapshotService(repo pgrepo.SnapshotRepository) SnapshotService {
	return &snapshotService{repo: repo, now: time.Now}
}

func (s *snapshotService) Save(ctx context.Context, roomID uint, language, content, userID string) error {
	const op = "SnapshotService.Save"

	if roomID == 0 {
		return utils.E(utils.CodeInvalidArgument, op, "room is required", nil)
	}
	if len(content) > maxSnapshotBytes {
		return utils.E(utils.CodeInvalidArgument, op, "code content too large", nil)
	}
	language = strings.TrimSpace(language)
	if language == "" {
		language = models.DefaultLanguage
	}

	err := s.repo.Upsert(ctx, &models.CodeSnapshot{
		RoomID:    roomID,
		Language:  language,
		Content:   content,
		UpdatedBy: userID,
		UpdatedAt: s.now().UTC(),
	})
	if err != nil {
		return utils.E(utils.CodeInternal, op, "failed to save code", err)
	}
	return nil
}

func (s *snapshotService) Get(ctx context.Context, roomID uint) (*models.CodeSnapshot, error) {
	const op = "SnapshotService.Get"

	snap, err := s.repo.Get(ctx, roomID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return &models.CodeSnapshot{RoomID: roomID, Language: models.DefaultLanguage}, nil
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load code", err)
	}
	return snap, nil
}

// TranscriptService archives chat lines. A nil repository disables it.
type TranscriptService interface {
	Append(ctx context.Context, line *models.ChatLine) error
	List(ctx context.Context, roomCode string, limit int64) ([]models.ChatLine, error)
}

type transcriptService struct {
	repo mongorepo.TranscriptRepository
}

func NewTranscriptService(repo mongorepo.TranscriptRepository) TranscriptService {
	return &transcriptService{repo: repo}
}

func (s *transcriptService) Append(ctx context.Context, line *models.ChatLine) error {
	if s.repo == nil {
		return nil
	}
	if err := s.repo.Append(ctx, line); err != nil {
		return utils.E(utils.CodeUnavailable, "TranscriptService.Append", "failed to archive chat", err)
	}
	return nil
}

func (s *transcriptService) List(ctx context.Context, roomCode string, limit int64) ([]models.ChatLine, error) {
	const op = "TranscriptService.List"

	if s.repo == nil {
		return []models.ChatLine{}, nil
	}
	lines, err := s.repo.ListByRoom(ctx, roomCode, limit)
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "failed to load transcript", err)
	}
	if lines == nil {
		lines = []models.ChatLine{}
	}
	return lines, nil
}
