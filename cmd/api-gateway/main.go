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

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/klasnova/klasnova-api/api/swagger"
	"github.com/klasnova/klasnova-api/internal/grading"
	"github.com/klasnova/klasnova-api/internal/handler"
	"github.com/klasnova/klasnova-api/internal/middleware"
	"github.com/klasnova/klasnova-api/internal/models"
	"github.com/klasnova/klasnova-api/internal/repository"
	"github.com/klasnova/klasnova-api/internal/service"
	"github.com/klasnova/klasnova-api/pkg/broker"
	"github.com/klasnova/klasnova-api/pkg/cache"
	"github.com/klasnova/klasnova-api/pkg/config"
	"github.com/klasnova/klasnova-api/pkg/database"
	"github.com/klasnova/klasnova-api/pkg/export"
	"github.com/klasnova/klasnova-api/pkg/logger"
	reqidmiddleware "github.com/klasnova/klasnova-api/pkg/middleware/requestid"
)

// @title Klasnova API
// @version 1.0.0
// @description Timed exam sessions and result aggregation for multi-tenant schools
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

// brokerOCRHandoff forwards queued enrollment scans to the downstream OCR
// consumer over the broker. The image bytes stay out of the event body; the
// consumer pulls them by job reference.
type brokerOCRHandoff struct {
	events *broker.Publisher
}

func (p *brokerOCRHandoff) Process(_ context.Context, job models.OCREnrollmentJob) error {
	return p.events.Publish(broker.Event{
		Type:      "enrollment.scan_received",
		SchoolID:  job.SchoolID,
		Classroom: job.ClassroomID,
		Payload:   job,
	})
}

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if cfg.Results.CacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, result cache disabled", zap.Error(err))
		} else {
			cacheRepo := repository.NewCacheRepository(redisClient, logr)
			defer cacheRepo.Close()
			cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Results.CacheTTL, logr, true)
		}
	}

	events, err := broker.NewPublisher(cfg.Broker, logr)
	if err != nil {
		logr.Fatal("failed to connect to broker", zap.Error(err))
	}
	defer events.Close()

	validate := validator.New()
	guard := service.NewAccessGuard()
	scale := grading.NewScale(nil)

	examRepo := repository.NewExamRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	resultRepo := repository.NewResultRepository(db)

	authSvc := service.NewAuthService(cfg.JWT)
	resultSvc := service.NewResultService(db, resultRepo, scale, cacheSvc, metricsSvc, validate, logr, cfg.Results.CacheTTL)
	examSvc := service.NewExamService(db, examRepo, guard, events, metricsSvc, validate, logr)
	submissionSvc := service.NewSubmissionService(db, examRepo, submissionRepo, resultSvc, guard, events, metricsSvc, logr)
	exportSvc := service.NewExportService(resultSvc, export.NewPDFExporter(), logr)

	enrollmentSvc := service.NewEnrollmentService(&brokerOCRHandoff{events: events}, guard, cfg.Enrollment, logr)
	queueCtx, stopQueue := context.WithCancel(context.Background())
	enrollmentSvc.Start(queueCtx)
	defer func() {
		stopQueue()
		enrollmentSvc.Stop()
	}()

	examHandler := handler.NewExamHandler(examSvc)
	submissionHandler := handler.NewSubmissionHandler(submissionSvc)
	resultHandler := handler.NewResultHandler(resultSvc, exportSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(metricsSvc))
	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.CORS.AllowedOrigins) > 0 {
		corsCfg.AllowOrigins = cfg.CORS.AllowedOrigins
	} else {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(authSvc))

	staffOnly := middleware.RequireRoles(models.RoleGlobalSuperAdmin, models.RoleSchoolAdmin, models.RoleTeacher)

	exams := api.Group("/exams")
	{
		exams.POST("", staffOnly, middleware.Audit(logr, "create", "exam"), examHandler.Create)
		exams.GET("", examHandler.List)
		exams.GET("/:id", examHandler.Get)
		exams.POST("/:id/questions", staffOnly, middleware.Audit(logr, "add_question", "exam"), examHandler.AddQuestion)
		exams.DELETE("/:id/questions/:questionId", staffOnly, middleware.Audit(logr, "remove_question", "exam"), examHandler.RemoveQuestion)
		exams.POST("/:id/publish", staffOnly, middleware.Audit(logr, "publish", "exam"), examHandler.Publish)
		exams.POST("/:id/unpublish", staffOnly, middleware.Audit(logr, "unpublish", "exam"), examHandler.Unpublish)
		exams.POST("/:id/invigilators", staffOnly, middleware.Audit(logr, "add_invigilator", "exam"), examHandler.AddInvigilator)
		exams.DELETE("/:id/invigilators/:userId", staffOnly, middleware.Audit(logr, "remove_invigilator", "exam"), examHandler.RemoveInvigilator)
		// Invigilators may be students, so the service decides who can announce.
		exams.POST("/:id/announcements", middleware.Audit(logr, "announce", "exam"), examHandler.Announce)
		exams.POST("/:id/end", middleware.Audit(logr, "end_all", "exam"), submissionHandler.EndAll)

		exams.POST("/:id/submissions", submissionHandler.Begin)
		exams.GET("/:id/submissions/:submissionId", submissionHandler.Get)
		exams.POST("/:id/submissions/:submissionId/pause", submissionHandler.Pause)
		exams.POST("/:id/submissions/:submissionId/resume", submissionHandler.Resume)
		exams.PATCH("/:id/submissions/:submissionId/time", middleware.Audit(logr, "adjust_time", "submission"), submissionHandler.AdjustTime)
		exams.PUT("/:id/submissions/:submissionId/answers", submissionHandler.SubmitAnswer)
		exams.POST("/:id/submissions/:submissionId/finalize", submissionHandler.Finalize)
		exams.POST("/:id/submissions/:submissionId/answers/:questionId/score", staffOnly, middleware.Audit(logr, "override_score", "submission"), submissionHandler.OverrideAnswerScore)
	}

	results := api.Group("/results")
	{
		results.POST("", staffOnly, middleware.Audit(logr, "upsert", "result"), resultHandler.Upsert)
		results.POST("/bulk", staffOnly, middleware.Audit(logr, "bulk_upsert", "result"), resultHandler.Bulk)
		results.POST("/process", staffOnly, resultHandler.Process)
		results.POST("/validate", staffOnly, resultHandler.Validate)
		selfOrStaff := middleware.RBAC(string(models.RoleSchoolAdmin), string(models.RoleTeacher), "SELF")
		results.GET("/students/:id", selfOrStaff, resultHandler.Student)
		results.GET("/students/:id/pdf", selfOrStaff, resultHandler.StudentPDF)
		results.GET("/summary", staffOnly, resultHandler.Summary)
		results.GET("/summary/pdf", staffOnly, resultHandler.SummaryPDF)
		results.GET("/grade-scale", resultHandler.GradeScale)
		results.PUT("/grade-scale", middleware.RequireRoles(models.RoleGlobalSuperAdmin, models.RoleSchoolAdmin), middleware.Audit(logr, "set_grade_scale", "result"), resultHandler.SetGradeScale)
	}

	api.POST("/enrollment/ocr", staffOnly, middleware.Audit(logr, "upload_scan", "enrollment"), enrollmentHandler.UploadScan)

	api.GET("/metrics/snapshot", middleware.RequireRoles(models.RoleGlobalSuperAdmin, models.RoleSchoolAdmin), metricsHandler.Snapshot)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("forced shutdown", zap.Error(err))
	}
}
