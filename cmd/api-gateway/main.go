package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/greenquest/greenquest-api/api/swagger"
	"github.com/greenquest/greenquest-api/internal/handler"
	"github.com/greenquest/greenquest-api/internal/middleware"
	"github.com/greenquest/greenquest-api/internal/models"
	"github.com/greenquest/greenquest-api/internal/repository"
	"github.com/greenquest/greenquest-api/internal/service"
	"github.com/greenquest/greenquest-api/pkg/cache"
	"github.com/greenquest/greenquest-api/pkg/config"
	"github.com/greenquest/greenquest-api/pkg/database"
	"github.com/greenquest/greenquest-api/pkg/export"
	"github.com/greenquest/greenquest-api/pkg/jobs"
	"github.com/greenquest/greenquest-api/pkg/logger"
	corsmiddleware "github.com/greenquest/greenquest-api/pkg/middleware/cors"
	"github.com/greenquest/greenquest-api/pkg/middleware/requestid"
	"github.com/greenquest/greenquest-api/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	logr, err := logger.New(cfg)
	if err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}
	defer func() { _ = logr.Sync() }()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	metricsSvc := service.NewMetricsService()
	validate := validator.New()

	var cacheRepo service.CacheRepository
	cacheEnabled := cfg.Leaderboard.CacheEnabled
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		cacheEnabled = false
	} else {
		redisRepo := repository.NewCacheRepository(redisClient, logr)
		defer redisRepo.Close()
		cacheRepo = redisRepo
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Leaderboard.CacheTTL, logr, cacheEnabled)

	userRepo := repository.NewUserRepository(db)
	pointsRepo := repository.NewPointsRepository(db)
	badgeRepo := repository.NewBadgeRepository(db)
	quizRepo := repository.NewQuizRepository(db)
	challengeRepo := repository.NewChallengeRepository(db)
	lessonRepo := repository.NewLessonRepository(db)
	leaderboardRepo := repository.NewLeaderboardRepository(db)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "greenquest-api",
	})
	badgeSvc := service.NewBadgeService(badgeRepo, pointsRepo, quizRepo, challengeRepo, lessonRepo, metricsSvc, logr, service.BadgeConfig{
		RecentWindow: cfg.Badges.RecentWindow,
	})
	awardSvc := service.NewAwardService(pointsRepo, userRepo, badgeSvc, metricsSvc, validate, logr)
	quizSvc := service.NewQuizService(quizRepo, badgeSvc, metricsSvc, validate, logr)
	challengeSvc := service.NewChallengeService(challengeRepo, userRepo, badgeSvc, metricsSvc, validate, logr)
	lessonSvc := service.NewLessonService(lessonRepo, badgeSvc, metricsSvc, logr, service.LessonConfig{
		CompletionPoints: cfg.Scoring.LessonPoints,
	})
	leaderboardSvc := service.NewLeaderboardService(leaderboardRepo, cacheSvc, logr, service.LeaderboardConfig{
		CacheTTL:     cfg.Leaderboard.CacheTTL,
		DefaultLimit: cfg.Leaderboard.DefaultLimit,
		MaxLimit:     cfg.Leaderboard.MaxLimit,
	})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestid.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	metricsHandler := handler.NewMetricsHandler(metricsSvc)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authHandler := handler.NewAuthHandler(authSvc)
	pointsHandler := handler.NewPointsHandler(awardSvc)
	badgeHandler := handler.NewBadgeHandler(badgeSvc)
	quizHandler := handler.NewQuizHandler(quizSvc)
	challengeHandler := handler.NewChallengeHandler(challengeSvc)
	lessonHandler := handler.NewLessonHandler(lessonSvc)
	leaderboardHandler := handler.NewLeaderboardHandler(leaderboardSvc)

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
	auth.POST("/change-password", middleware.JWT(authSvc), authHandler.ChangePassword)
	auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)

	protected := api.Group("", middleware.JWT(authSvc))

	staff := []string{"SUPERADMIN", "ADMIN", "TEACHER"}
	staffOrSelf := append([]string{"SELF"}, staff...)

	protected.POST("/points/award", middleware.RBAC(staff...), pointsHandler.Award)

	users := protected.Group("/users/:id")
	users.GET("/points", middleware.RBAC(staffOrSelf...), pointsHandler.Total)
	users.GET("/points/history", middleware.RBAC(staffOrSelf...), pointsHandler.History)
	users.GET("/points/summary", middleware.RBAC(staffOrSelf...), pointsHandler.Summary)
	users.GET("/badges", middleware.RBAC(staffOrSelf...), badgeHandler.UserBadges)
	users.GET("/badges/recent", middleware.RBAC(staffOrSelf...), badgeHandler.RecentBadges)
	users.POST("/badges", middleware.RBAC("SUPERADMIN", "ADMIN"), badgeHandler.Grant)

	protected.GET("/badges", badgeHandler.Catalog)

	protected.GET("/quizzes", quizHandler.List)
	protected.POST("/quizzes/:id/submit", middleware.RequireRoles(models.RoleStudent), quizHandler.Submit)

	protected.GET("/challenges", challengeHandler.List)
	protected.GET("/challenges/mine", challengeHandler.Mine)
	protected.GET("/challenges/pending", middleware.RBAC(staff...), challengeHandler.Pending)
	protected.POST("/challenges/:id/enroll", middleware.RequireRoles(models.RoleStudent), challengeHandler.Enroll)
	protected.POST("/challenges/:id/proof", middleware.RequireRoles(models.RoleStudent), challengeHandler.SubmitProof)
	protected.POST("/challenges/submissions/:id/verify", middleware.RBAC(staff...), challengeHandler.Verify)

	protected.POST("/lessons/:id/complete", middleware.RequireRoles(models.RoleStudent), lessonHandler.Complete)

	protected.GET("/leaderboard", leaderboardHandler.List)
	protected.GET("/leaderboard/users/:id", leaderboardHandler.Rank)

	protected.GET("/system/metrics", middleware.RBAC("SUPERADMIN", "ADMIN"), metricsHandler.Snapshot)

	var exportQueue *jobs.Queue
	if cfg.Exports.Enabled {
		localStorage, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Fatal("failed to init export storage", zap.Error(err))
		}
		signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
		exportRepo := repository.NewExportRepository(db)
		exportSvc := service.NewExportService(leaderboardSvc, localStorage, signer, service.ExportConfig{
			APIPrefix: cfg.APIPrefix,
			ResultTTL: cfg.Exports.SignedURLTTL,
		}, logr, export.NewCSVExporter(), export.NewPDFExporter())

		worker := service.NewExportWorker(exportRepo, exportSvc, cfg.Exports.WorkerRetries, logr)
		exportQueue = jobs.NewQueue("leaderboard-exports", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Exports.WorkerConcurrency,
			MaxRetries: cfg.Exports.WorkerRetries,
			Logger:     logr,
		})
		exportQueue.Start(ctx)

		exportJobSvc := service.NewExportJobService(exportRepo, exportQueue, exportSvc, logr, service.ExportJobConfig{
			ResultTTL:       cfg.Exports.SignedURLTTL,
			CleanupInterval: cfg.Exports.CleanupInterval,
			MaxRetries:      cfg.Exports.WorkerRetries,
		})
		exportJobSvc.RecoverPendingJobs(ctx)
		exportJobSvc.StartCleanup(ctx)

		exportHandler := handler.NewExportHandler(exportJobSvc)
		protected.POST("/exports/leaderboard", middleware.RBAC(staff...), exportHandler.Create)
		protected.GET("/exports/:id", exportHandler.Status)
		api.GET("/exports/download/:token", exportHandler.Download)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	if exportQueue != nil {
		exportQueue.Stop()
	}
	logr.Info("server stopped")
}
