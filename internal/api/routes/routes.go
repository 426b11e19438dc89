package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hireloop/interviewroom/internal/api/handlers"
	"github.com/hireloop/interviewroom/internal/api/middleware"
	"github.com/hireloop/interviewroom/internal/metrics"
	"github.com/hireloop/interviewroom/internal/models"
	"github.com/sirupsen/logrus"
)

type Deps struct {
	JWT             middleware.JWTConfig
	Logger          logrus.FieldLogger
	Room            *handlers.RoomHandler
	Feedback        *handlers.FeedbackHandler
	Recommendations *handlers.RecommendationHandler
	WS              *handlers.WSHandler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	r.Use(gin.Recovery(), middleware.RequestLogger(d.Logger), metrics.Middleware())

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Protected routes (JWT)
	auth := r.Group("/")
	auth.Use(middleware.JWTAuth(d.JWT))

	staff := middleware.RequireStaff()

	auth.POST("/rooms", staff, d.Room.Schedule)
	auth.GET("/rooms/:code", d.Room.Get)
	auth.DELETE("/rooms/:code", staff, d.Room.Delete)
	auth.POST("/rooms/:code/participants", staff, d.Room.AssignParticipant)
	auth.POST("/rooms/:code/complete", d.Room.Complete)
	auth.POST("/rooms/:code/cancel", staff, d.Room.Cancel)
	auth.GET("/rooms/:code/snapshot", d.Room.Snapshot)
	auth.GET("/rooms/:code/transcript", d.Room.Transcript)
	auth.POST("/rooms/:code/feedback", d.Feedback.Submit)

	employer := middleware.RequireRole(models.PlatformEmployer, models.PlatformAdmin, models.PlatformManager)
	auth.GET("/applications/:id/recommendations", employer, d.Recommendations.List)
	auth.POST("/applications/:id/recommendations", employer, d.Recommendations.Recommend)
	auth.POST("/recommendations/:id/accept", staff, d.Recommendations.Accept)
	auth.POST("/recommendations/:id/reject", staff, d.Recommendations.Reject)

	auth.GET("/earnings/me", d.Feedback.MyEarnings)
	auth.POST("/earnings/:id/confirm", staff, d.Feedback.ConfirmEarning)
	auth.POST("/earnings/:id/paid", staff, d.Feedback.MarkPaid)

	// WebSocket
	auth.GET("/ws/interview", d.WS.Interview)
}
