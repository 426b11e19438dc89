package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hireloop/interviewroom/internal/models"
	"github.com/hireloop/interviewroom/internal/services"
	"github.com/hireloop/interviewroom/internal/utils"
)

type RoomHandler struct {
	rooms       services.RoomService
	snapshots   services.SnapshotService
	transcripts services.TranscriptService
}

func NewRoomHandler(rooms services.RoomService, snapshots services.SnapshotService, transcripts services.TranscriptService) *RoomHandler {
	return &RoomHandler{rooms: rooms, snapshots: snapshots, transcripts: transcripts}
}

type ScheduleRequest struct {
	ApplicationID   uint      `json:"application_id" binding:"required"`
	ScheduledTime   time.Time `json:"scheduled_time" binding:"required"`
	DurationMinutes int       `json:"duration_minutes"`
	InterviewerIDs  []string  `json:"interviewer_ids"`
}

type RoomResponse struct {
	Code            string               `json:"room_code"`
	Name            string               `json:"room_name"`
	ApplicationID   uint                 `json:"application_id"`
	ScheduledTime   time.Time            `json:"scheduled_time"`
	DurationMinutes int                  `json:"duration_minutes"`
	Status          models.RoomStatus    `json:"status"`
	StartedAt       *time.Time           `json:"started_at,omitempty"`
	EndedAt         *time.Time           `json:"ended_at,omitempty"`
	Participants    []models.Participant `json:"participants,omitempty"`
}

func toRoomResponse(r *models.Room) RoomResponse {
	return RoomResponse{
		Code:            r.Code,
		Name:            r.Name,
		ApplicationID:   r.ApplicationID,
		ScheduledTime:   r.ScheduledAt,
		DurationMinutes: r.DurationMinutes,
		Status:          r.Status,
		StartedAt:       r.StartedAt,
		EndedAt:         r.EndedAt,
		Participants:    r.Participants,
	}
}

func (h *RoomHandler) Schedule(c *gin.Context) {
	id, ok := requireIdentity(c)
	if !ok {
		return
	}
	var req ScheduleRequest
	if !bindJSON(c, &req, "RoomHandler.Schedule") {
		return
	}

	room, err := h.rooms.Schedule(c.Request.Context(), services.ScheduleInput{
		ApplicationID:   req.ApplicationID,
		StartTime:       req.ScheduledTime,
		DurationMinutes: req.DurationMinutes,
		InterviewerIDs:  req.InterviewerIDs,
	}, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toRoomResponse(room))
}

func (h *RoomHandler) Get(c *gin.Context) {
	id, ok := requireIdentity(c)
	if !ok {
		return
	}
	room, err := h.rooms.View(c.Request.Context(), c.Param("code"), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRoomResponse(room))
}

type AssignRequest struct {
	UserID string                 `json:"user_id" binding:"required"`
	Role   models.ParticipantRole `json:"role" binding:"required"`
}

func (h *RoomHandler) AssignParticipant(c *gin.Context) {
	id, ok := requireIdentity(c)
	if !ok {
		return
	}
	var req AssignRequest
	if !bindJSON(c, &req, "RoomHandler.AssignParticipant") {
		return
	}
	p, err := h.rooms.AssignParticipant(c.Request.Context(), c.Param("code"), req.UserID, req.Role, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *RoomHandler) Complete(c *gin.Context) {
	id, ok := requireIdentity(c)
	if !ok {
		return
	}
	room, err := h.rooms.Complete(c.Request.Context(), c.Param("code"), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRoomResponse(room))
}

type CancelRequest struct {
	Reason string `json:"reason"`
}

func (h *RoomHandler) Cancel(c *gin.Context) {
	id, ok := requireIdentity(c)
	if !ok {
		return
	}
	var req CancelRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req, "RoomHandler.Cancel") {
		return
	}
	room, err := h.rooms.Cancel(c.Request.Context(), c.Param("code"), req.Reason, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRoomResponse(room))
}

func (h *RoomHandler) Delete(c *gin.Context) {
	id, ok := requireIdentity(c)
	if !ok {
		return
	}
	if err := h.rooms.Delete(c.Request.Context(), c.Param("code"), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RoomHandler) Snapshot(c *gin.Context) {
	id, ok := requireIdentity(c)
	if !ok {
		return
	}
	room, _, err := h.rooms.Access(c.Request.Context(), c.Param("code"), id)
	if err != nil {
		writeError(c, err)
		return
	}
	snap, err := h.snapshots.Get(c.Request.Context(), room.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *RoomHandler) Transcript(c *gin.Context) {
	id, ok := requireIdentity(c)
	if !ok {
		return
	}
	var limit int64
	if v := c.Query("limit"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			writeError(c, utils.E(utils.CodeInvalidArgument, "RoomHandler.Transcript", "invalid limit", err))
			return
		}
		limit = n
	}

	room, _, err := h.rooms.Access(c.Request.Context(), c.Param("code"), id)
	if err != nil {
		writeError(c, err)
		return
	}
	lines, err := h.transcripts.List(c.Request.Context(), room.Code, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"room_code": room.Code, "messages": lines})
}
