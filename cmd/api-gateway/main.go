package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-records-api/api/swagger"
	"github.com/noah-isme/sma-records-api/internal/handler"
	"github.com/noah-isme/sma-records-api/internal/middleware"
	"github.com/noah-isme/sma-records-api/internal/models"
	"github.com/noah-isme/sma-records-api/internal/repository"
	"github.com/noah-isme/sma-records-api/internal/service"
	"github.com/noah-isme/sma-records-api/pkg/cache"
	"github.com/noah-isme/sma-records-api/pkg/config"
	"github.com/noah-isme/sma-records-api/pkg/database"
	"github.com/noah-isme/sma-records-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-records-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-records-api/pkg/middleware/requestid"
)

// @title SMA Records API
// @version 0.2.0
// @description Multi-tenant student transfers, academic record snapshots and enrollment timelines
// @BasePath /
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, flush, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer flush()

	ctx := context.Background()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, snapshot cache disabled", zap.Error(err))
		redisClient = nil
	}
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Snapshots.CacheTTL, logr, redisClient != nil)
	validate := validator.New()

	transferRepo := repository.NewTransferRepository(db)
	snapshotRepo := repository.NewSnapshotRepository(db)
	eventRepo := repository.NewEnrollmentEventRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	directoryRepo := repository.NewDirectoryRepository(db)
	recordRepo := repository.NewAcademicRecordRepository(db)

	tokenSvc := service.NewTokenService(service.TokenConfig{
		Secret:   cfg.JWT.Secret,
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
		TTL:      cfg.JWT.AccessTTL,
	})
	eventSvc := service.NewEventLedgerService(eventRepo, enrollmentRepo, metricsSvc, logr)
	snapshotSvc := service.NewSnapshotService(snapshotRepo, recordRepo, studentRepo, directoryRepo, cacheSvc, metricsSvc, validate, logr, service.SnapshotConfig{
		SchemaVersion: cfg.Snapshots.SchemaVersion,
		HashAlgo:      cfg.Snapshots.HashAlgo,
		HashEncoding:  cfg.Snapshots.HashEncoding,
		CacheTTL:      cfg.Snapshots.CacheTTL,
	})
	provisioner := service.NewDestinationProvisioner(studentRepo, directoryRepo, enrollmentRepo, logr)
	transferSvc := service.NewTransferService(service.TransferServiceDeps{
		Transfers:   transferRepo,
		Students:    studentRepo,
		Tenants:     directoryRepo,
		Enrollments: enrollmentRepo,
		Provisioner: provisioner,
		Snapshots:   snapshotSvc,
		Events:      eventSvc,
		Metrics:     metricsSvc,
		Validator:   validate,
		Logger:      logr,
	})

	transferHandler := handler.NewTransferHandler(transferSvc)
	snapshotHandler := handler.NewSnapshotHandler(snapshotSvc)
	eventHandler := handler.NewEnrollmentEventHandler(eventSvc)
	dependencies := map[string]handler.Pinger{"postgres": handler.PingerFunc(db.PingContext)}
	if redisClient != nil {
		dependencies["redis"] = cacheRepo
	}
	metricsHandler := handler.NewMetricsHandler(metricsSvc, dependencies)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	if cfg.Metrics.Enabled {
		r.Use(middleware.Metrics(metricsSvc))
		r.GET(cfg.Metrics.Path, metricsHandler.Prometheus)
	}

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	staff := []models.UserRole{models.RoleAdmin, models.RoleRegistrar}
	readers := []models.UserRole{models.RoleAdmin, models.RoleRegistrar, models.RoleTeacher}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(tokenSvc))

	transfers := api.Group("/transfers", middleware.RequireFeature("transfers", cfg.Transfers.Enabled))
	transfers.GET("", middleware.RequireRoles(readers...), transferHandler.List)
	transfers.GET("/:id", middleware.RequireRoles(readers...), transferHandler.Get)
	transfers.POST("", middleware.RequireRoles(staff...), transferHandler.Create)
	transfers.POST("/:id/approve", middleware.RequireRoles(staff...), transferHandler.Approve)
	transfers.POST("/:id/reject", middleware.RequireRoles(staff...), transferHandler.Reject)
	transfers.POST("/:id/cancel", middleware.RequireRoles(staff...), transferHandler.Cancel)
	transfers.POST("/:id/complete", middleware.RequireRoles(staff...), transferHandler.Complete)
	transfers.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), transferHandler.Remove)

	snapshots := api.Group("/snapshots", middleware.RequireFeature("snapshots", cfg.Snapshots.Enabled))
	snapshots.GET("", middleware.RequireRoles(readers...), snapshotHandler.List)
	snapshots.GET("/:id", middleware.RequireRoles(readers...), snapshotHandler.Get)
	snapshots.GET("/:id/verify", middleware.RequireRoles(readers...), snapshotHandler.Verify)
	snapshots.GET("/:id/export", middleware.RequireRoles(readers...), snapshotHandler.Export)
	snapshots.POST("", middleware.RequireRoles(staff...), snapshotHandler.Generate)
	snapshots.POST("/:id/finalize", middleware.RequireRoles(staff...), snapshotHandler.Finalize)
	snapshots.POST("/:id/revoke", middleware.RequireRoles(models.RoleAdmin), snapshotHandler.Revoke)

	api.GET("/enrollments/:id/events", middleware.RequireRoles(readers...), eventHandler.List)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Info("server starting",
		zap.String("addr", addr),
		zap.String("env", cfg.Env),
		zap.Bool("transfers", cfg.Transfers.Enabled),
		zap.Bool("snapshots", cfg.Snapshots.Enabled),
		zap.Bool("cache", cacheSvc.Enabled()),
	)
	if err := r.Run(addr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}
