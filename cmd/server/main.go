// Package main runs the simulated-live webinar HTTP server with WebSocket
// fan-out and graceful shutdown.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/evergreen-webinar/backend/config"
	"github.com/evergreen-webinar/backend/internal/access"
	"github.com/evergreen-webinar/backend/internal/analytics"
	"github.com/evergreen-webinar/backend/internal/auth"
	"github.com/evergreen-webinar/backend/internal/chat"
	"github.com/evergreen-webinar/backend/internal/interactions"
	"github.com/evergreen-webinar/backend/internal/middleware"
	"github.com/evergreen-webinar/backend/internal/realtime"
	"github.com/evergreen-webinar/backend/internal/registrations"
	"github.com/evergreen-webinar/backend/internal/schedule"
	"github.com/evergreen-webinar/backend/internal/watch"
	"github.com/evergreen-webinar/backend/internal/webinars"
	"github.com/evergreen-webinar/backend/pkg/database"
	"github.com/evergreen-webinar/backend/pkg/queue"
	"github.com/evergreen-webinar/backend/pkg/redis"
	"github.com/evergreen-webinar/backend/pkg/response"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	// Redis is optional: without it the server runs single-instance with
	// in-process rate limiting and no background queue.
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb, err = redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
		if err != nil {
			logger.Warn("redis unavailable, running degraded", zap.Error(err))
			rdb = nil
		} else {
			defer rdb.Close()
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)

	var hub *realtime.Hub
	var jobQueue *queue.Queue
	var chatLimiter chat.Limiter
	if rdb != nil {
		pubsub := realtime.NewRedisPubSub(rdb.Client, logger)
		hub = realtime.NewHub(logger, pubsub, pubsub)
		jobQueue = queue.NewQueue(rdb.Client, logger)
		chatLimiter = chat.NewRedisLimiter(rdb.Client, cfg.Chat.MessagesPerMinute, time.Minute)
	} else {
		hub = realtime.NewHub(logger, nil, nil)
		chatLimiter = chat.NewLocalLimiter(cfg.Chat.MessagesPerMinute, time.Minute)
	}

	// Auth
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, logger)

	// Webinars and schedules
	webinarRepo := webinars.NewRepository(pool)
	webinarHandler := webinars.NewHandler(webinarRepo, cfg.Viewer.CompletionPercent, logger)
	sessionRepo := schedule.NewRepository(pool)
	resolver := schedule.NewResolver(sessionRepo, time.Duration(cfg.Viewer.JustInTimeDelayMin)*time.Minute)

	// Viewer access
	accessRepo := access.NewRepository(pool)
	accessSvc := access.NewService(accessRepo, sessionRepo, time.Duration(cfg.Viewer.EarlyAccessMinutes)*time.Minute)

	// Registrations
	registrationRepo := registrations.NewRepository(pool)
	registrationHandler := registrations.NewHandler(registrationRepo, webinarRepo, resolver, sessionRepo, accessSvc, jobQueue, logger)

	// Interactions
	interactionRepo := interactions.NewRepository(pool)
	interactionEngine := interactions.NewEngine(interactionRepo, logger)
	interactionHandler := interactions.NewHandler(interactionRepo, interactionEngine, accessSvc, webinarRepo, chatLimiter, jobQueue, logger)

	// Chat
	chatRepo := chat.NewRepository(pool)
	chatService := chat.NewService(chatRepo, hub, chatLimiter, jobQueue, cfg.Chat.MaxMessageLength, logger)
	chatHandler := chat.NewHandler(chatService, chatRepo, accessSvc, webinarRepo, logger)

	// Analytics
	analyticsRepo := analytics.NewRepository(pool)
	analyticsHandler := analytics.NewHandler(analyticsRepo, webinarRepo, logger)

	// Watch page
	watchHandler := watch.NewHandler(accessSvc, webinarRepo, registrationRepo, interactionRepo, jobQueue, logger)

	// Peak concurrent viewers, recorded as analytics events.
	var peakMu sync.Mutex
	peaks := make(map[uuid.UUID]int)
	hub.SetAudienceChangeHandler(func(webinarID uuid.UUID, count int) {
		peakMu.Lock()
		isPeak := count > peaks[webinarID]
		if isPeak {
			peaks[webinarID] = count
		}
		peakMu.Unlock()
		if !isPeak {
			return
		}
		meta, _ := json.Marshal(map[string]int{"count": count})
		evCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = analyticsRepo.InsertEvent(evCtx, webinarID, nil, "peak_concurrent", meta, time.Now())
	})

	viewerAuth := func(token string, webinarID uuid.UUID) (uuid.UUID, string, error) {
		reg, err := accessSvc.Authenticate(context.Background(), webinarID, token)
		if err != nil {
			return uuid.Nil, "", err
		}
		return reg.ID, reg.DisplayName(), nil
	}
	staffAuth := func(token string) (uuid.UUID, string, error) {
		claims, err := jwtService.Validate(token)
		if err != nil {
			return uuid.Nil, "", err
		}
		return claims.UserID, claims.Role, nil
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/register", authHandler.Register)
	}

	// Viewer surface (access-token auth inside handlers, never JWT)
	router.GET("/webinars/:slug/sessions", registrationHandler.Sessions)
	router.POST("/webinars/:slug/register", registrationHandler.Register)
	router.GET("/webinars/:slug/access", watchHandler.Access)
	router.POST("/webinars/:slug/access", watchHandler.Progress)
	router.GET("/webinars/:slug/chat", chatHandler.List)
	router.POST("/webinars/:slug/chat", chatHandler.Send)
	router.POST("/webinars/:slug/interactions/respond", interactionHandler.Respond)

	// Admin authoring surface (JWT required)
	admin := router.Group("/admin")
	admin.Use(middleware.JWT(jwtService))
	{
		admin.GET("/webinars", webinarHandler.List)
		admin.POST("/webinars", middleware.RequireRole("admin"), webinarHandler.Create)
		admin.GET("/webinars/:id", webinarHandler.GetByID)
		admin.PATCH("/webinars/:id", middleware.RequireRole("admin"), webinarHandler.Update)
		admin.PUT("/webinars/:id/schedule", middleware.RequireRole("admin"), webinarHandler.PutSchedule)

		admin.GET("/webinars/:id/registrations", registrationHandler.List)

		admin.GET("/webinars/:id/interactions", interactionHandler.List)
		admin.POST("/webinars/:id/interactions", middleware.RequireRole("admin"), interactionHandler.Create)
		admin.GET("/webinars/:id/interactions/:interactionId/results", interactionHandler.Results)
		admin.PATCH("/interactions/:id", middleware.RequireRole("admin"), interactionHandler.Update)
		admin.DELETE("/interactions/:id", middleware.RequireRole("admin"), interactionHandler.Delete)

		admin.POST("/webinars/:id/chat", chatHandler.SendModerator)
		admin.GET("/webinars/:id/chat/script", chatHandler.ListScript)
		admin.POST("/webinars/:id/chat/script", middleware.RequireRole("admin"), chatHandler.AddScript)
		admin.POST("/webinars/:id/chat/hide/:messageId", chatHandler.Hide)
		admin.DELETE("/chat/script/:messageId", middleware.RequireRole("admin"), chatHandler.DeleteScript)

		admin.GET("/webinars/:id/analytics/summary", analyticsHandler.Summary)
		admin.GET("/webinars/:id/analytics/funnel", analyticsHandler.Funnel)
		admin.GET("/webinars/:id/analytics/dropoff", analyticsHandler.Dropoff)
		admin.GET("/webinars/:id/analytics/chat-activity", analyticsHandler.ChatActivity)
	}

	// WebSocket (token in query; no Authorization header)
	router.GET("/ws", realtime.ServeWs(hub, logger, viewerAuth, staffAuth))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
