package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-notify-api/api/swagger"
	"github.com/noah-isme/sma-notify-api/internal/handler"
	"github.com/noah-isme/sma-notify-api/internal/middleware"
	"github.com/noah-isme/sma-notify-api/internal/models"
	"github.com/noah-isme/sma-notify-api/internal/repository"
	"github.com/noah-isme/sma-notify-api/internal/service"
	"github.com/noah-isme/sma-notify-api/pkg/cache"
	"github.com/noah-isme/sma-notify-api/pkg/config"
	"github.com/noah-isme/sma-notify-api/pkg/database"
	"github.com/noah-isme/sma-notify-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-notify-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-notify-api/pkg/middleware/requestid"
)

// @title School Notification API
// @version 1.0.0
// @description Alert/notification engine and access gate for the school management platform
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
		logr.Warn("redis unavailable, unread counts will not be cached", zap.Error(err))
		redisClient = nil
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	alertRepo := repository.NewAlertRepository(db)
	alertTypeRepo := repository.NewAlertTypeRepository(db)
	alertStatusRepo := repository.NewAlertStatusRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "sma-notify-api",
	})
	alertSvc := service.NewAlertService(alertRepo, alertTypeRepo, cacheRepo, cfg.Alerts, validate, logr).
		WithMetrics(metricsSvc)
	alertTypeSvc := service.NewAlertTypeService(alertTypeRepo, alertStatusRepo, validate, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	alertHandler := handler.NewAlertHandler(alertSvc)
	alertTypeHandler := handler.NewAlertTypeHandler(alertTypeSvc)

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

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)

	alerts := api.Group("/alerts", middleware.JWT(authSvc))
	alerts.GET("", alertHandler.List)
	alerts.GET("/unread-count", alertHandler.UnreadCount)
	alerts.POST("/read-all", alertHandler.MarkAllRead)
	alerts.GET("/:id", alertHandler.Get)
	alerts.POST("", middleware.RequireRole(models.RoleAdmin), middleware.Audit(userRepo, models.AuditActionAlertCreate, "alerts"), alertHandler.Create)
	alerts.POST("/:id/read", middleware.Audit(userRepo, models.AuditActionAlertRead, "alerts"), alertHandler.MarkRead)
	alerts.POST("/:id/acknowledge", middleware.Audit(userRepo, models.AuditActionAlertAcknowledge, "alerts"), alertHandler.Acknowledge)
	alerts.POST("/:id/dismiss", middleware.Audit(userRepo, models.AuditActionAlertDismiss, "alerts"), alertHandler.Dismiss)

	alertTypes := api.Group("/alert-types", middleware.JWT(authSvc))
	alertTypes.GET("", alertTypeHandler.List)
	alertTypes.GET("/:id", alertTypeHandler.Get)
	alertTypes.POST("", middleware.RequireRole(models.RoleAdmin), middleware.Audit(userRepo, models.AuditActionAlertTypeCreate, "alert_types"), alertTypeHandler.Create)
	alertTypes.PUT("/:id", middleware.RequireRole(models.RoleAdmin), middleware.Audit(userRepo, models.AuditActionAlertTypeUpdate, "alert_types"), alertTypeHandler.Update)
	alertTypes.DELETE("/:id", middleware.RequireRole(models.RoleAdmin), middleware.Audit(userRepo, models.AuditActionAlertTypeDelete, "alert_types"), alertTypeHandler.Delete)

	api.GET("/alert-statuses", middleware.JWT(authSvc), alertTypeHandler.ListStatuses)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
