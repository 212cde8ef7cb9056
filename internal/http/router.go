package httpapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/servicepulse/backend/internal/config"
	"github.com/servicepulse/backend/internal/db"
	"github.com/servicepulse/backend/internal/http/handlers"
	"github.com/servicepulse/backend/internal/http/middleware"
	"github.com/servicepulse/backend/internal/pipeline"

	_ "github.com/servicepulse/backend/docs"
)

func Router(cfg config.Config, store *db.Store, pipe *pipeline.Pipeline, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.MaxMultipartMemory = cfg.MaxUploadSizeMB << 20

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Admin-Key", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.CORSAllowed == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = []string{cfg.CORSAllowed}
	}
	r.Use(cors.New(corsCfg))

	h := &handlers.Handler{
		Store:       store,
		Pipeline:    pipe,
		Validator:   validator.New(),
		Logger:      logger,
		AdminKey:    cfg.AdminKey,
		DefaultAsOf: cfg.AsOfDate,
	}

	r.GET("/healthz", h.Healthz)

	api := r.Group("/api")
	{
		api.GET("/metrics/technicians", h.MetricsTechnicians)
		api.GET("/metrics/driving", h.MetricsDriving)
		api.GET("/metrics/cancellations", h.MetricsCancellations)
		api.GET("/metrics/idle", h.MetricsIdle)
		api.GET("/metrics/utilization", h.MetricsUtilization)
		api.GET("/runs/latest", h.RunsLatest)
	}

	admin := api.Group("")
	admin.Use(middleware.AdminKey(cfg.AdminKey))
	{
		admin.POST("/import", h.Import)
		admin.POST("/process", h.Process)
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}
