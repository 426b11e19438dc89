package realtime

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/hireloop/interviewroom/internal/utils"
)

// Server frame type names.
const (
	FrameJoined       = "joined"
	FrameLeft         = "left"
	FrameParticipants = "participants"
	FrameUserJoined   = "user_joined"
	FrameUserLeft     = "user_left"
	FrameCodeSnapshot = "code_snapshot"
	FrameError        = "error"
)

// PeerInfo describes another occupant of the room.
type PeerInfo struct {
	ConnectionID string `json:"connection_id"`
	UserID       string `json:"user_id"`
	DisplayName  string `json:"display_name"`
	Role         string `json:"role"`
}

// Frame is the envelope of every server frame.
type Frame struct {
	Type         string          `json:"type"`
	Room         string          `json:"room,omitempty"`
	ConnectionID string          `json:"connection_id,omitempty"`
	UserID       string          `json:"user_id,omitempty"`
	DisplayName  string          `json:"display_name,omitempty"`
	Role         string          `json:"role,omitempty"`
	Status       string          `json:"status,omitempty"`
	From         string          `json:"from,omitempty"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	Text         string          `json:"text,omitempty"`
	Content      *string         `json:"content,omitempty"`
	Language     string          `json:"language,omitempty"`
	UpdatedBy    string          `json:"updated_by,omitempty"`
	Timestamp    string          `json:"timestamp,omitempty"`
	Code         utils.Code      `json:"code,omitempty"`
	Message      string          `json:"message,omitempty"`
	Participants []PeerInfo      `json:"participants,omitempty"`
}

// participants frames always carry the list, even when empty.
type participantsFrame struct {
	Type         string     `json:"type"`
	Room         string     `json:"room"`
	Participants []PeerInfo `json:"participants"`
}

func encode(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		// Frames are built from plain strings and validated raw JSON.
		panic("realtime: encode frame: " + err.Error())
	}
	return b
}

func stamp(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func errorFrame(err error) []byte {
	code := utils.CodeOf(err)
	msg := "internal error"
	if ae, ok := appError(err); ok && ae.Message != "" {
		msg = ae.Message
	}
	return encode(Frame{Type: FrameError, Code: code, Message: msg})
}

func appError(err error) (*utils.AppError, bool) {
	var ae *utils.AppError
	ok := errors.As(err, &ae)
	return ae, ok
}
