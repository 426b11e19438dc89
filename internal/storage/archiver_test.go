package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/hireloop/interviewroom/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memUploader struct {
	objects map[string][]byte
	types   map[string]string
	err     error
}

func (m *memUploader) Upload(_ context.Context, name, contentType string, r io.Reader) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if m.objects == nil {
		m.objects = map[string][]byte{}
		m.types = map[string]string{}
	}
	m.objects[name] = b
	m.types[name] = contentType
	return "mem://" + name, nil
}

func TestRoomArchiver(t *testing.T) {
	up := &memUploader{}
	a := NewRoomArchiver(up)

	room := &models.Room{ID: 1, Code: "INT1-abc", Status: models.RoomCompleted}
	snap := &models.CodeSnapshot{RoomID: 1, Language: "go", Content: "package main"}

	path, err := a.ArchiveRoom(context.Background(), room, snap)
	require.NoError(t, err)
	assert.Equal(t, "mem://rooms/INT1-abc/final.json", path)
	assert.Equal(t, "application/json", up.types["rooms/INT1-abc/final.json"])

	var got RoomArchive
	require.NoError(t, json.Unmarshal(up.objects["rooms/INT1-abc/final.json"], &got))
	assert.Equal(t, "INT1-abc", got.Room.Code)
	assert.Equal(t, "package main", got.Snapshot.Content)
	assert.False(t, got.ArchivedAt.IsZero())
}

func TestRoomArchiverUploadError(t *testing.T) {
	a := NewRoomArchiver(&memUploader{err: errors.New("bucket gone")})
	_, err := a.ArchiveRoom(context.Background(), &models.Room{Code: "x"}, nil)
	assert.EqualError(t, err, "bucket gone")
}
