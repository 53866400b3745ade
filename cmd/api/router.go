package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/course-registration-api/internal/handler"
	"github.com/noah-isme/course-registration-api/internal/middleware"
	"github.com/noah-isme/course-registration-api/internal/models"
	"github.com/noah-isme/course-registration-api/internal/service"
	"github.com/noah-isme/course-registration-api/pkg/config"
	"github.com/noah-isme/course-registration-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/course-registration-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/course-registration-api/pkg/middleware/requestid"
)

type routerDeps struct {
	cfg         *config.Config
	logger      *zap.Logger
	tokens      middleware.TokenValidator
	metrics     *service.MetricsService
	health      *handler.MetricsHandler
	enrollments *handler.EnrollmentHandler
	pending     *handler.PendingEnrollmentHandler
}

func newRouter(deps routerDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(deps.logger))
	r.Use(middleware.Metrics(deps.metrics))
	r.Use(corsmiddleware.New(deps.cfg.CORS))

	r.GET("/health", deps.health.Health)
	r.GET("/ready", deps.health.Ready)
	r.GET("/metrics", deps.health.Prometheus)

	if deps.cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	writers := middleware.RequireRoles(models.RoleAdmin, models.RoleStaff)

	api := r.Group(deps.cfg.APIPrefix)
	api.Use(middleware.JWT(deps.tokens))

	enrollments := api.Group("/enrollments")
	enrollments.GET("", deps.enrollments.List)
	enrollments.GET("/export", writers, deps.enrollments.Export)
	enrollments.GET("/:id", deps.enrollments.Get)
	enrollments.PATCH("/:id/status", writers, deps.enrollments.UpdateStatus)

	pending := api.Group("/pending-enrollments")
	pending.GET("", deps.pending.List)
	pending.POST("", deps.pending.Create)
	pending.GET("/:id", deps.pending.Get)
	pending.PATCH("/:id/status", writers, deps.pending.UpdateStatus)
	pending.POST("/:id/accept", writers, deps.pending.Accept)
	pending.POST("/:id/cancel", writers, deps.pending.Cancel)
	pending.POST("/:id/expire", writers, deps.pending.Expire)
	pending.POST("/:id/enrollment", writers, deps.pending.ToEnrollment)

	return r
}
