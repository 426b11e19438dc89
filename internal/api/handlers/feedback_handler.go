package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hireloop/interviewroom/internal/models"
	"github.com/hireloop/interviewroom/internal/services"
)

type FeedbackHandler struct {
	svc services.FeedbackService
}

func NewFeedbackHandler(svc services.FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{svc: svc}
}

type FeedbackResponse struct {
	Feedback *models.Feedback `json:"feedback"`
	Earning  *models.Earning  `json:"earning"`
}

func (h *FeedbackHandler) Submit(c *gin.Context) {
	id, ok := requireIdentity(c)
	if !ok {
		return
	}
	var in services.FeedbackInput
	if !bindJSON(c, &in, "FeedbackHandler.Submit") {
		return
	}

	fb, earning, err := h.svc.Submit(c.Request.Context(), c.Param("code"), id, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, FeedbackResponse{Feedback: fb, Earning: earning})
}

func (h *FeedbackHandler) ConfirmEarning(c *gin.Context) {
	h.advance(c, "FeedbackHandler.ConfirmEarning", h.svc.ConfirmEarning)
}

func (h *FeedbackHandler) MarkPaid(c *gin.Context) {
	h.advance(c, "FeedbackHandler.MarkPaid", h.svc.MarkPaid)
}

type advanceFunc = func(ctx context.Context, id uint, actor models.Identity) (*models.Earning, error)

func (h *FeedbackHandler) advance(c *gin.Context, op string, fn advanceFunc) {
	actor, ok := requireIdentity(c)
	if !ok {
		return
	}
	earningID, ok := uintParam(c, "id", op)
	if !ok {
		return
	}
	e, err := fn(c.Request.Context(), earningID, actor)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (h *FeedbackHandler) MyEarnings(c *gin.Context) {
	id, ok := requireIdentity(c)
	if !ok {
		return
	}
	rows, err := h.svc.ListEarnings(c.Request.Context(), id.UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	if rows == nil {
		rows = []models.Earning{}
	}
	c.JSON(http.StatusOK, gin.H{"earnings": rows})
}
