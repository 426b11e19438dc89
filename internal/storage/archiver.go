package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hireloop/interviewroom/internal/models"
)

// Archiver keeps a final copy of a finished room.
type Archiver interface {
	ArchiveRoom(ctx context.Context, room *models.Room, snapshot *models.CodeSnapshot) (string, error)
}

type RoomArchive struct {
	Room       *models.Room         `json:"room"`
	Snapshot   *models.CodeSnapshot `json:"code_snapshot,omitempty"`
	ArchivedAt time.Time            `json:"archived_at"`
}

type RoomArchiver struct {
	up  Uploader
	now func() time.Time
}

func NewRoomArchiver(up Uploader) *RoomArchiver {
	return &RoomArchiver{up: up, now: time.Now}
}

// ObjectName is where the archive of roomCode is stored.
func ObjectName(roomCode string) string {
	return fmt.Sprintf("rooms/%s/final.json", roomCode)
}

func (a *RoomArchiver) ArchiveRoom(ctx context.Context, room *models.Room, snapshot *models.CodeSnapshot) (string, error) {
	body, err := json.Marshal(RoomArchive{Room: room, Snapshot: snapshot, ArchivedAt: a.now().UTC()})
	if err != nil {
		return "", err
	}
	return a.up.Upload(ctx, ObjectName(room.Code), "application/json", bytes.NewReader(body))
}
