package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/hireloop/interviewroom/config"
	"github.com/hireloop/interviewroom/internal/api/handlers"
	"github.com/hireloop/interviewroom/internal/api/middleware"
	"github.com/hireloop/interviewroom/internal/api/routes"
	"github.com/hireloop/interviewroom/internal/cache"
	"github.com/hireloop/interviewroom/internal/logger"
	"github.com/hireloop/interviewroom/internal/notify"
	"github.com/hireloop/interviewroom/internal/presence"
	"github.com/hireloop/interviewroom/internal/realtime"
	mongorepo "github.com/hireloop/interviewroom/internal/repositories/mongo"
	pgrepo "github.com/hireloop/interviewroom/internal/repositories/postgres"
	"github.com/hireloop/interviewroom/internal/services"
	"github.com/hireloop/interviewroom/internal/storage"
	"github.com/hireloop/interviewroom/internal/workers"
)

func main() {
	_ = godotenv.Load()

	settings, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	lg := logger.New(settings.LogLevel)
	gin.SetMode(settings.Mode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := config.InitPostgres(settings)
	if err != nil {
		lg.WithError(err).Fatal("PostgreSQL init error")
	}
	lg.Info("PostgreSQL connected")

	rdb, err := config.InitRedis(ctx, settings)
	if err != nil {
		lg.WithError(err).Fatal("Redis init error")
	}
	defer rdb.Close()
	lg.Info("Redis connected")

	var transcripts mongorepo.TranscriptRepository
	mongoClient, mongoDB, err := config.InitMongo(ctx, settings)
	switch {
	case err != nil:
		lg.WithError(err).Fatal("MongoDB init error")
	case mongoDB != nil:
		defer mongoClient.Disconnect(context.Background())
		if err := config.EnsureMongoIndexes(ctx, mongoDB); err != nil {
			lg.WithError(err).Warn("mongo index setup failed")
		}
		transcripts = mongorepo.NewTranscriptRepo(mongoDB, settings.TranscriptTTL)
		lg.Info("MongoDB connected")
	default:
		lg.Info("MONGO_URI not set, chat transcripts disabled")
	}

	roomRepo := pgrepo.NewRoomRepo(db)
	participantRepo := pgrepo.NewParticipantRepo(db)
	snapshotRepo := pgrepo.NewSnapshotRepo(db)

	hooks := &services.RoomHooks{
		Views:     cache.NewRoomViews(cache.NewRedisCache(rdb), settings.RoomCacheTTL),
		Activity:  pgrepo.NewActivityRepo(db),
		Snapshots: snapshotRepo,
		Rooms:     roomRepo,
		Log:       lg,
	}
	if settings.ArchiveBucket != "" {
		up, err := storage.NewGCSUploader(ctx, settings.ArchiveBucket)
		if err != nil {
			lg.WithError(err).Fatal("GCS init error")
		}
		defer up.Close()
		hooks.Archiver = storage.NewRoomArchiver(up)
	}

	dispatcher := notify.NewRedisDispatcher(rdb, settings.NotifyStream)
	catalog := services.NewCatalog(pgrepo.NewCatalogRepo(db))

	roomSvc := services.NewRoomService(roomRepo, participantRepo, pgrepo.NewRecommendationRepo(db), catalog, dispatcher, hooks,
		services.RoomPolicy{
			AllowPastScheduling:    settings.AllowPastScheduling,
			DefaultDurationMinutes: settings.DefaultDurationMinutes,
		})
	feedbackSvc := services.NewFeedbackService(roomRepo, participantRepo, pgrepo.NewFeedbackRepo(db), pgrepo.NewEarningRepo(db), catalog, dispatcher, hooks)
	recSvc := services.NewRecommendationService(pgrepo.NewRecommendationRepo(db), roomRepo, catalog, dispatcher, hooks)
	snapshotSvc := services.NewSnapshotService(snapshotRepo)
	transcriptSvc := services.NewTranscriptService(transcripts)

	tracker := presence.NewTracker(presence.Strict(settings.PresenceStrict), presence.WithLogger(lg))
	co := realtime.NewCoordinator(tracker, roomSvc, snapshotSvc, transcriptSvc, lg)

	pool := &workers.NotificationWorkerPool{
		Redis:         rdb,
		Notifications: pgrepo.NewNotificationRepo(db),
		Mailer:        notify.LogMailer{Log: lg},
		NumWorkers:    settings.NotifyWorkers,
		Logger:        lg,
		Stream:        dispatcher.Stream(),
		Group:         settings.NotifyGroup,
	}
	if err := pool.Start(ctx); err != nil {
		lg.WithError(err).Fatal("notification workers init error")
	}

	reconciler := workers.NewPresenceReconciler(participantRepo, tracker, hooks, settings.ReconcileSchedule, settings.ReconcileGrace, lg)
	if err := reconciler.Start(ctx); err != nil {
		lg.WithError(err).Fatal("presence reconciler init error")
	}
	defer reconciler.Stop()

	r := gin.New()
	routes.RegisterRoutes(r, routes.Deps{
		JWT: middleware.JWTConfig{
			Secret:   settings.JWTSecret,
			Issuer:   settings.JWTIssuer,
			Audience: settings.JWTAudience,
		},
		Logger:          lg,
		Room:            handlers.NewRoomHandler(roomSvc, snapshotSvc, transcriptSvc),
		Feedback:        handlers.NewFeedbackHandler(feedbackSvc),
		Recommendations: handlers.NewRecommendationHandler(recSvc),
		WS: handlers.NewWSHandler(co, realtime.ConnOptions{
			SendBuffer: settings.SendBuffer,
			ReadLimit:  settings.ReadLimit,
			PingPeriod: settings.PingPeriod,
		}, settings.AllowedOrigins),
	})

	srv := &http.Server{
		Addr:              ":" + settings.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		// Hijacked websocket requests end with ctx, not with Shutdown.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	go func() {
		lg.WithField("port", settings.Port).Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.WithError(err).Fatal("http server error")
		}
	}()

	<-ctx.Done()
	lg.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.WithError(err).Warn("http shutdown error")
	}
}
