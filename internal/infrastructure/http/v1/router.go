// Package v1 provides HTTP API version 1.
package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"granja/internal/core/apperror"
	"granja/internal/domain/params"
	"granja/internal/domain/sow"
	"granja/internal/infrastructure/http/v1/handlers"
	"granja/internal/infrastructure/http/v1/middleware"
	"granja/internal/infrastructure/metrics"
	"granja/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	Sows   *sow.Service
	Params *params.Service

	// Metrics is optional; without it /metrics is not served.
	Metrics *metrics.Metrics

	// Logger for request logging
	Logger *logger.Logger

	// Checks are pinged by /health/ready.
	Checks map[string]handlers.Pinger

	Version string

	// Debug switches gin to debug mode.
	Debug bool
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	var rejections middleware.RejectionObserver
	if cfg.Metrics != nil {
		router.Use(middleware.Metrics(cfg.Metrics))
		rejections = cfg.Metrics
	}
	router.Use(middleware.ErrorHandler(rejections))

	healthHandler := handlers.NewHealthHandler(cfg.Version, cfg.Checks)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}
	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	base := handlers.NewBaseHandler()
	sowHandler := handlers.NewSowHandler(base, cfg.Sows)
	criticalHandler := handlers.NewCriticalHandler(base, cfg.Sows)
	paramsHandler := handlers.NewParamsHandler(base, cfg.Params, cfg.Sows.Today)

	api := router.Group("/api/v1")
	sows := api.Group("/sows")
	{
		sows.GET("", sowHandler.List)
		sows.POST("", sowHandler.Create)
		sows.GET("/:id", sowHandler.Get)
		sows.PUT("/:id", sowHandler.Update)
		sows.DELETE("/:id", sowHandler.Delete)
		sows.POST("/:id/close", sowHandler.Close)
		sows.GET("/:id/parameters", paramsHandler.Individual)
	}

	sowGroup := sows.Group("/:id")
	RegisterChildRoutes(sowGroup, "/reproductive-records", "recordId", childRoutes{
		add:    sowHandler.AddCycle,
		update: sowHandler.UpdateCycle,
		del:    sowHandler.DeleteCycle,
	})
	sowGroup.POST("/reproductive-records/:recordId/farrowing-details", criticalHandler.AddFarrowingDetails)
	RegisterChildRoutes(sowGroup, "/piglets", "pigletId", childRoutes{
		add:    sowHandler.AddPiglet,
		update: sowHandler.UpdatePiglet,
		del:    sowHandler.DeletePiglet,
	})

	critical := sowGroup.Group("/critical-periods")
	{
		critical.POST("/heat-detections", criticalHandler.AddHeatDetection)
		critical.POST("/gestation-monitoring", criticalHandler.AddGestationMonitoring)
		critical.POST("/abortions", criticalHandler.AddAbortion)
		critical.DELETE("/:kind/:entryId", criticalHandler.Delete)
	}

	api.GET("/reproductive-parameters", paramsHandler.Report)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    apperror.CodeNotFound,
			"message": "route not found",
		})
	})

	return router
}
