package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-timetable-api/api/swagger"
	"github.com/noah-isme/sma-timetable-api/internal/handler"
	"github.com/noah-isme/sma-timetable-api/internal/middleware"
	"github.com/noah-isme/sma-timetable-api/internal/repository"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	"github.com/noah-isme/sma-timetable-api/pkg/cache"
	"github.com/noah-isme/sma-timetable-api/pkg/config"
	"github.com/noah-isme/sma-timetable-api/pkg/database"
	"github.com/noah-isme/sma-timetable-api/pkg/jobs"
	"github.com/noah-isme/sma-timetable-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-timetable-api/pkg/middleware/requestid"
)

// @title SMA Timetable API
// @version 1.0.0
// @description Timetable slot placement, conflict detection and teacher assignment validation.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, grid cache disabled", zap.Error(err))
	}
	var cacheRepo service.CacheRepository
	if redisClient != nil {
		repo := repository.NewCacheRepository(redisClient)
		defer repo.Close()
		cacheRepo = repo
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := service.NewMetricsService()
	validate := validator.New()
	tx := database.NewTransactor(db, cfg.Scheduling.SerializableRetries, logr)

	teacherRepo := repository.NewTeacherRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	unitRepo := repository.NewAcademicUnitRepository(db)
	timetableRepo := repository.NewTimetableRepository(db)
	slotRepo := repository.NewTimetableSlotRepository(db)
	subjectTeacherRepo := repository.NewSubjectTeacherRepository(db)
	classTeacherRepo := repository.NewClassTeacherRepository(db)
	historyRepo := repository.NewAssignmentHistoryRepository(db)

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Scheduling.GridCacheTTL, logr, cfg.Redis.Enabled)
	auditSvc := service.NewAuditService(historyRepo, jobs.QueueConfig{
		Workers:    cfg.Audit.Workers,
		BufferSize: cfg.Audit.BufferSize,
		MaxRetries: cfg.Audit.MaxRetries,
		RetryDelay: cfg.Audit.RetryDelay,
	}, logr)
	auditSvc.Start(ctx)
	defer auditSvc.Stop()

	detector := service.NewConflictDetector(slotRepo, teacherRepo, teacherRepo, timetableRepo, metrics, logr)
	rules := service.NewAssignmentValidator(teacherRepo, unitRepo, subjectRepo, subjectTeacherRepo, classTeacherRepo,
		service.AssignmentRules{
			ClassTeacherMaxPerTeacher: cfg.Scheduling.ClassTeacherMaxPerTeacher,
			WorkloadHardCapRatio:      cfg.Scheduling.WorkloadHardCapRatio,
		}, metrics, logr)
	workload := service.NewWorkloadTracker(tx, teacherRepo, subjectTeacherRepo, metrics, logr)
	resolver := service.NewSubjectTeacherResolver(unitRepo, subjectRepo, subjectTeacherRepo)

	slotSvc := service.NewSlotService(tx, slotRepo, timetableRepo, teacherRepo, subjectRepo, detector, cacheSvc, validate, logr)
	timetableSvc := service.NewTimetableService(tx, timetableRepo, slotRepo, unitRepo, resolver, cacheSvc, cfg.Scheduling.GridCacheTTL, logr)
	subjectTeacherSvc := service.NewSubjectTeacherService(tx, subjectTeacherRepo, unitRepo, rules, workload, resolver, auditSvc, validate, logr)
	classTeacherSvc := service.NewClassTeacherService(tx, classTeacherRepo, unitRepo, rules, auditSvc, validate, logr)
	tokenSvc := service.NewTokenService(cfg.JWT)

	slotHandler := handler.NewSlotHandler(slotSvc)
	timetableHandler := handler.NewTimetableHandler(timetableSvc)
	subjectTeacherHandler := handler.NewSubjectTeacherHandler(subjectTeacherSvc)
	classTeacherHandler := handler.NewClassTeacherHandler(classTeacherSvc)
	historyHandler := handler.NewAssignmentHistoryHandler(auditSvc, workload)
	metricsHandler := handler.NewMetricsHandler(metrics, db)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(tokenSvc))

	read := middleware.RequireRoles(middleware.Viewers...)
	write := middleware.RequireRoles(middleware.Schedulers...)

	slots := api.Group("/timetable-slots")
	slots.POST("", write, slotHandler.Save)
	slots.POST("/check", write, slotHandler.Check)
	slots.DELETE("/:id", write, slotHandler.Delete)
	api.GET("/available-teachers", read, slotHandler.AvailableTeachers)

	timetables := api.Group("/timetables")
	timetables.GET("/:id", read, timetableHandler.Get)
	timetables.GET("/:id/export", read, timetableHandler.Export)
	timetables.POST("/:id/publish", write, timetableHandler.Publish)
	timetables.POST("/:id/archive", write, timetableHandler.Archive)

	subjectTeachers := api.Group("/subject-teachers")
	subjectTeachers.GET("", read, subjectTeacherHandler.List)
	subjectTeachers.GET("/resolve", read, subjectTeacherHandler.Resolve)
	subjectTeachers.POST("", write, subjectTeacherHandler.Create)
	subjectTeachers.POST("/validate", write, subjectTeacherHandler.Validate)
	subjectTeachers.PATCH("/:id", write, subjectTeacherHandler.Update)
	subjectTeachers.POST("/:id/deactivate", write, subjectTeacherHandler.Deactivate)
	subjectTeachers.POST("/:id/reactivate", write, subjectTeacherHandler.Reactivate)
	api.GET("/academic-units/:id/subject-coverage", read, subjectTeacherHandler.Coverage)

	classTeachers := api.Group("/class-teachers")
	classTeachers.GET("", read, classTeacherHandler.List)
	classTeachers.POST("", write, classTeacherHandler.Create)
	classTeachers.POST("/validate", write, classTeacherHandler.Validate)
	classTeachers.PATCH("/:id", write, classTeacherHandler.Update)
	classTeachers.POST("/:id/deactivate", write, classTeacherHandler.Deactivate)
	classTeachers.POST("/:id/reactivate", write, classTeacherHandler.Reactivate)

	api.GET("/assignment-history/:category/:id", read, historyHandler.List)
	api.POST("/teachers/:id/workload/recompute", write, historyHandler.RecomputeWorkload)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
}
