package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/room-scheduling-api/api/swagger"
	"github.com/noah-isme/room-scheduling-api/internal/handler"
	"github.com/noah-isme/room-scheduling-api/internal/middleware"
	"github.com/noah-isme/room-scheduling-api/internal/migrations"
	"github.com/noah-isme/room-scheduling-api/internal/repository"
	"github.com/noah-isme/room-scheduling-api/internal/service"
	"github.com/noah-isme/room-scheduling-api/pkg/cache"
	"github.com/noah-isme/room-scheduling-api/pkg/config"
	"github.com/noah-isme/room-scheduling-api/pkg/database"
	"github.com/noah-isme/room-scheduling-api/pkg/events"
	"github.com/noah-isme/room-scheduling-api/pkg/jobs"
	"github.com/noah-isme/room-scheduling-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/room-scheduling-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/room-scheduling-api/pkg/middleware/requestid"
	"github.com/noah-isme/room-scheduling-api/pkg/storage"
)

// @title Room Scheduling API
// @version 1.0.0
// @description Recurring class schedules, room occupancy, availability search and timetable exports
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database, logr)
	if err != nil {
		logr.Fatal("database unavailable", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		migrator, err := migrations.NewMigrator(db.DB, logr)
		if err != nil {
			logr.Fatal("init migrator", zap.Error(err))
		}
		if err := migrator.Up(ctx); err != nil {
			logr.Fatal("apply migrations", zap.Error(err))
		}
	}

	checks := map[string]handler.Pinger{
		"postgres": handler.PingFunc(db.PingContext),
	}

	metrics := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if cfg.Cache.Enabled {
		client, err := cache.NewRedis(ctx, cfg.Redis, 15*time.Second, logr)
		if err != nil {
			logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		} else {
			redisRepo := repository.NewCacheRepository(client, logr)
			defer redisRepo.Close()
			cacheRepo = redisRepo
			checks["redis"] = redisRepo
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, cacheRepo != nil)

	var publisher events.Publisher = events.Noop{}
	if cfg.Events.Enabled {
		nats, err := events.Connect(cfg.Events.NATSURL, cfg.Events.SubjectPrefix, logr)
		if err != nil {
			logr.Warn("nats unavailable, change events disabled", zap.Error(err))
		} else {
			defer nats.Close()
			publisher = nats
			checks["nats"] = nats
		}
	}

	roomRepo := repository.NewRoomRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)

	validate := service.NewValidator()
	loc := cfg.Location()

	roomSvc := service.NewRoomService(roomRepo, scheduleRepo, validate, cacheSvc, publisher, loc, logr)
	scheduleSvc := service.NewScheduleService(scheduleRepo, roomRepo, validate, cacheSvc, publisher, metrics, logr)
	availabilitySvc := service.NewAvailabilityService(roomRepo, scheduleRepo, validate, cacheSvc, metrics, logr)
	calendarSvc := service.NewCalendarService(scheduleRepo, cacheSvc, service.CalendarConfig{
		DayStart: cfg.Calendar.DayStart,
		DayEnd:   cfg.Calendar.DayEnd,
		Location: loc,
	}, logr)

	handlers := handler.Handlers{
		Rooms:        handler.NewRoomHandler(roomSvc),
		Schedules:    handler.NewScheduleHandler(scheduleSvc),
		Availability: handler.NewAvailabilityHandler(availabilitySvc),
		Calendar:     handler.NewCalendarHandler(calendarSvc),
		Metrics:      handler.NewMetricsHandler(metrics, checks),
	}

	var exportQueue *jobs.Queue
	if cfg.Exports.Enabled {
		exportQueue, handlers.Exports = setupExports(ctx, cfg, db, roomRepo, scheduleRepo, metrics, validate, logr)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.WithResponseMeta())
	r.Use(middleware.Metrics(metrics))

	handler.RegisterRoutes(r, cfg.APIPrefix, handlers)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	if exportQueue != nil {
		exportQueue.Stop()
	}
}

func setupExports(
	ctx context.Context,
	cfg *config.Config,
	db *sqlx.DB,
	rooms *repository.RoomRepository,
	schedules *repository.ScheduleRepository,
	metrics *service.MetricsService,
	validate *validator.Validate,
	logr *zap.Logger,
) (*jobs.Queue, *handler.ExportHandler) {
	files, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Fatal("init export storage", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	jobRepo := repository.NewExportJobRepository(db)

	worker := service.NewExportWorker(jobRepo, rooms, schedules, files, metrics, cfg.Location(), logr)
	queue := jobs.NewQueue("exports", worker.Handle, jobs.QueueConfig{
		Workers:    cfg.Exports.WorkerConcurrency,
		MaxRetries: cfg.Exports.WorkerRetries,
		RetryDelay: 2 * time.Second,
		OnFailure:  worker.MarkFailed,
		Logger:     logr,
	})
	queue.Start(ctx)

	exportSvc := service.NewExportService(jobRepo, rooms, queue, files, signer, validate, service.ExportServiceConfig{
		APIPrefix:       cfg.APIPrefix,
		ResultTTL:       cfg.Exports.SignedURLTTL,
		CleanupInterval: cfg.Exports.CleanupInterval,
	}, logr)
	exportSvc.RecoverPendingJobs(ctx)
	exportSvc.StartCleanup(ctx)

	return queue, handler.NewExportHandler(exportSvc)
}
