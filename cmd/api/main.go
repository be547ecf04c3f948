package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/saintraiser1433/react-attendance-system-sub001/api/swagger"
	"github.com/saintraiser1433/react-attendance-system-sub001/internal/handler"
	"github.com/saintraiser1433/react-attendance-system-sub001/internal/middleware"
	"github.com/saintraiser1433/react-attendance-system-sub001/internal/models"
	"github.com/saintraiser1433/react-attendance-system-sub001/internal/repository"
	"github.com/saintraiser1433/react-attendance-system-sub001/internal/service"
	"github.com/saintraiser1433/react-attendance-system-sub001/pkg/cache"
	"github.com/saintraiser1433/react-attendance-system-sub001/pkg/config"
	"github.com/saintraiser1433/react-attendance-system-sub001/pkg/database"
	"github.com/saintraiser1433/react-attendance-system-sub001/pkg/logger"
	corsmiddleware "github.com/saintraiser1433/react-attendance-system-sub001/pkg/middleware/cors"
	reqidmiddleware "github.com/saintraiser1433/react-attendance-system-sub001/pkg/middleware/requestid"
)

// @title Attendance Capture API
// @version 0.1.0
// @description QR identity tokens, schedule conflict detection and attendance scans
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, scan-path caching disabled", "error", err)
		redisClient = nil
	}

	// Repositories.
	tokenRepo := repository.NewTokenRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	overrideRepo := repository.NewOverrideRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	termRepo := repository.NewTermRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Services.
	metricsSvc := service.NewMetricsService()
	tokenSvc := service.NewTokenService(tokenRepo, auditRepo, cfg.Token.Secret, nil, logr)
	scheduleSvc := service.NewScheduleService(scheduleRepo, auditRepo, cacheRepo, cfg.Scan.CacheTTL, nil, logr)
	overrideSvc := service.NewOverrideService(overrideRepo, scheduleRepo, auditRepo, cacheRepo, cfg.Scan.CacheTTL, nil, logr)
	scanSvc := service.NewScanService(studentRepo, enrollmentRepo, attendanceRepo, scheduleSvc, overrideSvc, tokenSvc, auditRepo, metricsSvc, nil, logr)

	// Handlers.
	tokenHandler := handler.NewTokenHandler(tokenSvc, termRepo)
	scheduleHandler := handler.NewScheduleHandler(scheduleSvc, overrideSvc, termRepo)
	overrideHandler := handler.NewOverrideHandler(overrideSvc)
	scanHandler := handler.NewScanHandler(scanSvc, termRepo)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(cfg.JWT.Secret))

	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher)
	adminOnly := middleware.RequireRoles(models.RoleAdmin)

	tokens := api.Group("/tokens")
	{
		tokens.POST("", adminOnly, tokenHandler.Issue)
		tokens.POST("/verify", tokenHandler.Verify)
		tokens.GET("/:studentId/qr", adminOnly, tokenHandler.QR)
	}

	schedules := api.Group("/schedules")
	{
		schedules.GET("", staff, scheduleHandler.List)
		schedules.GET("/:id", staff, scheduleHandler.Get)
		schedules.POST("", adminOnly, scheduleHandler.Create)
		schedules.PUT("/:id", adminOnly, scheduleHandler.Update)
		schedules.POST("/bulk-assign", adminOnly, scheduleHandler.BulkAssign)
		schedules.GET("/:id/overrides", staff, scheduleHandler.ListOverrides)
	}

	overrides := api.Group("/overrides")
	{
		overrides.POST("", staff, overrideHandler.Submit)
		overrides.PATCH("/:id/status", adminOnly, overrideHandler.Review)
	}

	attendance := api.Group("/attendance")
	{
		attendance.GET("", staff, scanHandler.List)
		attendance.POST("/scan", staff, middleware.Audit(auditRepo, "http.scan", "attendance"), scanHandler.Scan)
		attendance.POST("/scan/token", staff, middleware.Audit(auditRepo, "http.scan_token", "attendance"), scanHandler.ScanWithToken)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
