package mongo

import (
	"context"
	"time"

	"github.com/hireloop/interviewroom/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const TranscriptCollection = "chat_transcripts"

type TranscriptRepository interface {
	Append(ctx context.Context, line *models.ChatLine) error
	ListByRoom(ctx context.Context, roomCode string, limit int64) ([]models.ChatLine, error)
}

type transcriptRepo struct {
	col *mongo.Collection
	ttl time.Duration
}

// NewTranscriptRepo stores chat lines that expire ttl after they are written.
func NewTranscriptRepo(db *mongo.Database, ttl time.Duration) TranscriptRepository {
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &transcriptRepo{col: db.Collection(TranscriptCollection), ttl: ttl}
}

func (r *transcriptRepo) Append(ctx context.Context, line *models.ChatLine) error {
	if line.Timestamp.IsZero() {
		line.Timestamp = time.Now().UTC()
	}
	line.ExpiresAt = line.Timestamp.Add(r.ttl)
	_, err := r.col.InsertOne(ctx, line)
	return err
}

func (r *transcriptRepo) ListByRoom(ctx context.Context, roomCode string, limit int64) ([]models.ChatLine, error) {
	if limit <= 0 {
		limit = 200
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: 1}}).
		SetLimit(limit)

	cur, err := r.col.Find(ctx, bson.M{"room_code": roomCode}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.ChatLine
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
