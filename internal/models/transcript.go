package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ChatLine is one archived chat message of a room.
type ChatLine struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	RoomCode    string             `bson:"room_code" json:"room_code"`
	UserID      string             `bson:"user_id" json:"user_id"`
	DisplayName string             `bson:"display_name" json:"display_name"`
	Text        string             `bson:"text" json:"text"`
	Timestamp   time.Time          `bson:"timestamp" json:"timestamp"`

	ExpiresAt time.Time `bson:"expires_at" json:"-"` // for TTL index
}

// AllModels lists every table this service migrates.
func AllModels() []any {
	return []any{
		&Room{}, &Participant{}, &Feedback{}, &CodeSnapshot{},
		&Recommendation{}, &Earning{}, &Application{}, &InterviewerProfile{},
		&Notification{}, &ActivityLog{},
	}
}
