package services

import (
	"context"
	"errors"

	"github.com/hireloop/interviewroom/internal/cache"
	"github.com/hireloop/interviewroom/internal/metrics"
	"github.com/hireloop/interviewroom/internal/models"
	pgrepo "github.com/hireloop/interviewroom/internal/repositories/postgres"
	"github.com/hireloop/interviewroom/internal/storage"
	"github.com/hireloop/interviewroom/internal/utils"
	"github.com/sirupsen/logrus"
)

// RoomHooks runs the side effects that follow a committed room change.
// Failures are logged; the change itself has already happened. Every field
// except Log may be nil.
type RoomHooks struct {
	Views     *cache.RoomViews
	Activity  pgrepo.ActivityRepository
	Archiver  storage.Archiver
	Snapshots pgrepo.SnapshotRepository
	// Rooms resolves room ids for InvalidateRoom.
	Rooms pgrepo.RoomRepository
	Log   logrus.FieldLogger
}

const roomsTable = "interview_rooms"

func (h *RoomHooks) logger() logrus.FieldLogger {
	if h == nil || h.Log == nil {
		return logrus.StandardLogger()
	}
	return h.Log
}

// transitioned records from -> room.Status.
func (h *RoomHooks) transitioned(ctx context.Context, room *models.Room, from models.RoomStatus, actor string, extra map[string]any) {
	metrics.RoomTransitions.WithLabelValues(string(room.Status)).Inc()
	if h == nil {
		return
	}
	log := h.logger().WithFields(logrus.Fields{"room": room.Code, "from": from, "to": room.Status, "user_id": actor})

	newValues := map[string]any{"status": room.Status}
	for k, v := range extra {
		newValues[k] = v
	}
	h.record(ctx, "UPDATE", room.ID, map[string]any{"status": from}, newValues, actor)
	h.invalidate(ctx, room.Code)

	if room.Status == models.RoomCompleted && h.Archiver != nil {
		var snap *models.CodeSnapshot
		if h.Snapshots != nil {
			s, err := h.Snapshots.Get(ctx, room.ID)
			if err != nil && !errors.Is(err, utils.ErrNotFound) {
				log.WithError(err).Warn("load snapshot for archive failed")
			}
			snap = s
		}
		path, err := h.Archiver.ArchiveRoom(ctx, room, snap)
		if err != nil {
			log.WithError(err).Warn("archive room failed")
		} else {
			log = log.WithField("archive", path)
		}
	}
	log.Info("room status changed")
}

func (h *RoomHooks) record(ctx context.Context, operation string, id uint, oldValues, newValues any, actor string) {
	h.recordFor(ctx, roomsTable, operation, id, oldValues, newValues, actor)
}

func (h *RoomHooks) recordFor(ctx context.Context, entity, operation string, id uint, oldValues, newValues any, actor string) {
	if h == nil || h.Activity == nil {
		return
	}
	if err := h.Activity.Record(ctx, entity, operation, id, oldValues, newValues, actor); err != nil {
		h.logger().WithError(err).WithFields(logrus.Fields{"table": entity, "record_id": id}).Warn("activity log write failed")
	}
}

// InvalidateRoom drops the cached view of the room with the given id.
func (h *RoomHooks) InvalidateRoom(ctx context.Context, roomID uint) {
	if h == nil || h.Views == nil || h.Rooms == nil {
		return
	}
	room, err := h.Rooms.GetByID(ctx, roomID)
	if err != nil {
		h.logger().WithError(err).WithField("room_id", roomID).Warn("room lookup for view invalidation failed")
		return
	}
	h.invalidate(ctx, room.Code)
}

func (h *RoomHooks) invalidate(ctx context.Context, code string) {
	if h == nil || h.Views == nil {
		return
	}
	if err := h.Views.Invalidate(ctx, code); err != nil {
		h.logger().WithError(err).WithField("room", code).Warn("room view invalidation failed")
	}
}
