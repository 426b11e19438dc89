package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hireloop/interviewroom/internal/models"
	"github.com/hireloop/interviewroom/internal/services"
)

type RecommendationHandler struct {
	svc services.RecommendationService
}

func NewRecommendationHandler(svc services.RecommendationService) *RecommendationHandler {
	return &RecommendationHandler{svc: svc}
}

type RecommendRequest struct {
	InterviewerID string `json:"interviewer_id" binding:"required"`
	Notes         string `json:"notes"`
}

func (h *RecommendationHandler) Recommend(c *gin.Context) {
	const op = "RecommendationHandler.Recommend"

	id, ok := requireIdentity(c)
	if !ok {
		return
	}
	appID, ok := uintParam(c, "id", op)
	if !ok {
		return
	}
	var req RecommendRequest
	if !bindJSON(c, &req, op) {
		return
	}
	rec, err := h.svc.Recommend(c.Request.Context(), appID, req.InterviewerID, req.Notes, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

func (h *RecommendationHandler) List(c *gin.Context) {
	appID, ok := uintParam(c, "id", "RecommendationHandler.List")
	if !ok {
		return
	}
	rows, err := h.svc.ListForApplication(c.Request.Context(), appID)
	if err != nil {
		writeError(c, err)
		return
	}
	if rows == nil {
		rows = []models.Recommendation{}
	}
	c.JSON(http.StatusOK, gin.H{"recommendations": rows})
}

func (h *RecommendationHandler) Accept(c *gin.Context) {
	actor, ok := requireIdentity(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "id", "RecommendationHandler.Accept")
	if !ok {
		return
	}
	rec, err := h.svc.Accept(c.Request.Context(), id, actor)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *RecommendationHandler) Reject(c *gin.Context) {
	actor, ok := requireIdentity(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "id", "RecommendationHandler.Reject")
	if !ok {
		return
	}
	rec, err := h.svc.Reject(c.Request.Context(), id, actor)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}
