package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/workpulse/shiftpay-api/api/swagger"
	"github.com/workpulse/shiftpay-api/internal/handler"
	"github.com/workpulse/shiftpay-api/internal/middleware"
	"github.com/workpulse/shiftpay-api/internal/models"
	"github.com/workpulse/shiftpay-api/internal/repository"
	"github.com/workpulse/shiftpay-api/internal/service"
	"github.com/workpulse/shiftpay-api/pkg/config"
	"github.com/workpulse/shiftpay-api/pkg/logger"
	corsmiddleware "github.com/workpulse/shiftpay-api/pkg/middleware/cors"
	reqidmiddleware "github.com/workpulse/shiftpay-api/pkg/middleware/requestid"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"

	"github.com/workpulse/shiftpay-api/pkg/cache"
	"github.com/workpulse/shiftpay-api/pkg/database"
)

// @title ShiftPay API
// @version 1.0.0
// @description Policy-driven payroll adjustment ledger for staff shift operations
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

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect postgres", "error", err)
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Resolution.CacheEnabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, rule cache disabled", "error", err)
			redisClient = nil
		}
	}

	validate := validator.New()

	ruleRepo := repository.NewRuleRepository(db)
	adjustmentRepo := repository.NewAdjustmentRepository(db)
	payrollEntryRepo := repository.NewPayrollEntryRepository(db)
	userRepo := repository.NewUserRepository(db)
	legacyRepo := repository.NewLegacySettingsRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	resolutionSvc := service.NewResolutionService(ruleRepo, cacheRepo, legacyRepo, metricsSvc, logr, cfg.Resolution.CacheTTL)
	ruleSvc := service.NewRuleService(ruleRepo, cacheRepo, validate, logr)
	adjustmentSvc := service.NewAdjustmentService(adjustmentRepo, validate, logr, metricsSvc)
	payrollSvc := service.NewPayrollService(payrollEntryRepo, adjustmentRepo, adjustmentSvc, cfg.Payroll.StatementFormats, logr)

	auditRepo := userRepo
	if !cfg.Audit.Enabled {
		auditRepo = nil
	}

	authHandler := handler.NewAuthHandler(authSvc)
	ruleHandler := handler.NewRuleHandler(ruleSvc, resolutionSvc)
	adjustmentHandler := handler.NewAdjustmentHandler(adjustmentSvc, resolutionSvc)
	payrollHandler := handler.NewPayrollHandler(payrollSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

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

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	authed := api.Group("", middleware.JWT(authSvc))

	rules := authed.Group("/rules")
	rules.GET("", ruleHandler.List)
	rules.GET("/:id", ruleHandler.Get)
	rules.POST("/resolve", ruleHandler.Resolve)
	rulesAdmin := rules.Group("", middleware.RBAC(models.RoleAdmin, models.RoleManager))
	rulesAdmin.POST("", middleware.Audit(auditRepo, models.AuditActionRuleCreate, "rule"), ruleHandler.Create)
	rulesAdmin.PUT("/:id", middleware.Audit(auditRepo, models.AuditActionRuleUpdate, "rule"), ruleHandler.Update)
	rulesAdmin.PATCH("/:id/active", middleware.Audit(auditRepo, models.AuditActionRuleUpdate, "rule"), ruleHandler.SetActive)

	adjustments := authed.Group("/adjustments")
	adjustments.GET("", adjustmentHandler.List)
	adjustments.GET("/unapplied", adjustmentHandler.ClaimUnapplied)
	adjustments.GET("/:id", adjustmentHandler.Get)
	adjustments.POST("/events", middleware.RBAC(models.RoleAdmin, models.RoleManager, models.RoleOperator),
		middleware.Audit(auditRepo, models.AuditActionAdjustmentCreate, "adjustment"), adjustmentHandler.RecordEvent)
	adjustments.POST("", middleware.RBAC(models.RoleAdmin, models.RoleManager),
		middleware.Audit(auditRepo, models.AuditActionAdjustmentCreate, "adjustment"), adjustmentHandler.CreateManual)
	adjustments.POST("/apply", middleware.RBAC(models.RoleAdmin, models.RoleManager),
		middleware.Audit(auditRepo, models.AuditActionAdjustmentEdit, "adjustment"), adjustmentHandler.Apply)
	adjustments.PATCH("/:id", middleware.RBAC(models.RoleAdmin, models.RoleManager),
		middleware.Audit(auditRepo, models.AuditActionAdjustmentEdit, "adjustment"), adjustmentHandler.Edit)

	if cfg.Payroll.Enabled {
		payroll := authed.Group("/payroll", middleware.RBAC(models.RoleAdmin, models.RoleManager))
		payroll.POST("/runs", middleware.Audit(auditRepo, models.AuditActionPayrollRun, "payroll_entry"), payrollHandler.Run)
		payroll.GET("/runs", payrollHandler.ListByEmployee)
		payroll.GET("/runs/:id", payrollHandler.Get)
		payroll.GET("/runs/:id/statement", payrollHandler.Statement)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
