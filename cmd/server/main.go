package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/oratify/backend/config"
	"github.com/oratify/backend/internal/assist"
	"github.com/oratify/backend/internal/auth"
	"github.com/oratify/backend/internal/middleware"
	"github.com/oratify/backend/internal/participants"
	"github.com/oratify/backend/internal/presentations"
	"github.com/oratify/backend/internal/realtime"
	"github.com/oratify/backend/internal/responses"
	"github.com/oratify/backend/internal/sessions"
	"github.com/oratify/backend/internal/slides"
	"github.com/oratify/backend/internal/uploads"
	"github.com/oratify/backend/internal/worker"
	"github.com/oratify/backend/pkg/database"
	"github.com/oratify/backend/pkg/queue"
	redisclient "github.com/oratify/backend/pkg/redis"
	"github.com/oratify/backend/pkg/response"
	"github.com/oratify/backend/pkg/storage"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.Connect(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	// Repositories.
	speakerRepo := auth.NewRepository(pool)
	presentationRepo := presentations.NewRepository(pool)
	slideRepo := slides.NewRepository(pool)
	sessionRepo := sessions.NewRepository(pool)
	participantRepo := participants.NewRepository(pool)
	responseRepo := responses.NewRepository(pool)

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpireMins, cfg.JWT.RefreshExpireHours)

	// Optional Redis-backed answer queue.
	var answerQueue *queue.Queue
	if cfg.Redis.Addr != "" {
		rdb, err := redisclient.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer rdb.Close()
		answerQueue = queue.NewQueue(rdb.Client, logger)
	} else {
		logger.Info("redis not configured, question answering disabled")
	}

	// Realtime hub and gateway.
	hub := realtime.NewHub(logger)
	events := realtime.NewEvents(hub)

	var answers realtime.AnswerQueue
	if answerQueue != nil && cfg.Assist.BaseURL != "" {
		answers = answerQueue
	}
	ingestor := realtime.NewIngestor(sessionRepo, responseRepo, hub, answers, logger)
	gateway := realtime.NewGateway(sessionRepo, participantRepo, ingestor, hub, jwtService, logger)

	// Background answer worker.
	if answers != nil {
		assistClient := assist.NewClient(cfg.Assist)
		processor := worker.NewAnswerProcessor(answerQueue, assistClient, responseRepo, events, logger)
		go processor.Run(ctx)
	}

	// Session expiry sweeper.
	go runSweeper(ctx, sessionRepo, time.Duration(cfg.Sessions.MaxAgeHours)*time.Hour, logger)

	// Handlers.
	lifecycle := sessions.NewLifecycle(sessionRepo, slideRepo)
	authHandler := auth.NewHandler(speakerRepo, jwtService, logger)
	presentationHandler := presentations.NewHandler(presentationRepo)
	slideHandler := slides.NewHandler(slideRepo, presentationRepo)
	sessionHandler := sessions.NewHandler(sessionRepo, lifecycle, presentationRepo, slideRepo, events)

	var uploadHandler *uploads.Handler
	if cfg.AWS.Region != "" {
		s3Store, err := storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			UploadsBucket:        cfg.AWS.UploadsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Fatal("failed to create s3 client", zap.Error(err))
		}
		uploadHandler = uploads.NewHandler(s3Store)
	} else {
		logger.Info("aws not configured, image uploads disabled")
	}

	router := newRouter(cfg, logger, hub, gateway, jwtService,
		authHandler, presentationHandler, slideHandler, sessionHandler, uploadHandler)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newRouter(cfg *config.Config, logger *zap.Logger, hub *realtime.Hub, gateway *realtime.Gateway,
	jwtService *auth.JWTService, authHandler *auth.Handler, presentationHandler *presentations.Handler,
	slideHandler *slides.Handler, sessionHandler *sessions.Handler, uploadHandler *uploads.Handler) *gin.Engine {

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		response.OK(c, gin.H{"status": "ok"})
	})

	router.GET("/ws/session/:code", gateway.Handle)

	api := router.Group("/api")
	{
		api.POST("/auth/register", authHandler.Register)
		api.POST("/auth/login", authHandler.Login)
		api.POST("/auth/refresh", authHandler.Refresh)

		// Audience entry points, no auth required.
		api.GET("/join/:code", sessionHandler.GetByCode)
		api.GET("/live/:slug", sessionHandler.GetBySlug)
	}

	protected := api.Group("")
	protected.Use(middleware.JWT(jwtService))
	{
		protected.GET("/auth/me", authHandler.Me)

		protected.POST("/presentations", presentationHandler.Create)
		protected.GET("/presentations", presentationHandler.List)
		protected.GET("/presentations/:id", presentationHandler.GetByID)
		protected.PUT("/presentations/:id", presentationHandler.Update)
		protected.DELETE("/presentations/:id", presentationHandler.Delete)

		protected.GET("/presentations/:id/slides", slideHandler.List)
		protected.POST("/presentations/:id/slides", slideHandler.Create)
		protected.PUT("/presentations/:id/slides/reorder", slideHandler.Reorder)
		protected.GET("/slides/:id", slideHandler.GetByID)
		protected.PUT("/slides/:id", slideHandler.Update)
		protected.DELETE("/slides/:id", slideHandler.Delete)

		protected.POST("/presentations/:id/sessions", sessionHandler.Create)
		protected.GET("/sessions", sessionHandler.List)
		protected.GET("/sessions/:id", sessionHandler.GetByID)
		protected.POST("/sessions/:id/start", sessionHandler.Start)
		protected.POST("/sessions/:id/pause", sessionHandler.Pause)
		protected.POST("/sessions/:id/resume", sessionHandler.Resume)
		protected.POST("/sessions/:id/end", sessionHandler.End)
		protected.PUT("/sessions/:id/current-slide", sessionHandler.ChangeSlide)
		protected.GET("/sessions/:id/statistics", sessionHandler.Statistics)

		protected.GET("/realtime/stats", func(c *gin.Context) {
			response.OK(c, hub.Stats())
		})

		if uploadHandler != nil {
			protected.POST("/uploads/images", uploadHandler.UploadImage)
			protected.GET("/uploads/images/:key", uploadHandler.GetImageURL)
			protected.DELETE("/uploads/images/:key", uploadHandler.DeleteImage)
		}
	}

	return router
}

// runSweeper force-ends sessions that outlived the configured maximum age.
func runSweeper(ctx context.Context, repo *sessions.Repository, maxAge time.Duration, logger *zap.Logger) {
	if maxAge <= 0 {
		return
	}
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := repo.EndExpired(ctx, maxAge)
			if err != nil {
				logger.Error("session sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Info("ended expired sessions", zap.Int64("count", n))
			}
		}
	}
}

func newLogger() *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return logger
}
