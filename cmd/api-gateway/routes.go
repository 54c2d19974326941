package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/noah-isme/rsaf-qualification-api/internal/handler"
	"github.com/noah-isme/rsaf-qualification-api/internal/middleware"
	"github.com/noah-isme/rsaf-qualification-api/internal/models"
	"github.com/noah-isme/rsaf-qualification-api/internal/service"
	"github.com/noah-isme/rsaf-qualification-api/pkg/config"
)

type routes struct {
	cfg      *config.Config
	sessions *service.SessionService

	session     *handler.SessionHandler
	catalog     *handler.CatalogHandler
	dashboard   *handler.DashboardHandler
	enrollments *handler.EnrollmentHandler
	approvals   *handler.ApprovalHandler
	exports     *handler.ExportHandler
	ops         *handler.MetricsHandler
}

func (rt routes) register(r *gin.Engine) {
	r.GET("/health", rt.ops.Health)
	r.GET("/ready", rt.ops.Ready)
	if rt.cfg.Metrics.Enabled {
		r.GET("/metrics", rt.ops.Prometheus)
	}
	if rt.cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(rt.cfg.APIPrefix)

	api.GET("/session", rt.session.Current)
	api.POST("/session", rt.session.Switch)
	api.DELETE("/session", rt.session.Logout)

	secured := api.Group("")
	secured.Use(middleware.JWT(rt.sessions))

	secured.GET("/qualifications", rt.catalog.List)
	secured.GET("/qualifications/:id", rt.catalog.Get)
	secured.GET("/dashboard/summary", rt.dashboard.Summary)

	secured.POST("/enrollments", middleware.RequireRoles(models.RoleTrainee), rt.enrollments.Enroll)
	secured.GET("/enrollments/mine", rt.enrollments.Mine)
	secured.GET("/enrollments/:id", rt.enrollments.Get)

	approvers := secured.Group("")
	approvers.Use(middleware.RequireRoles(models.ApproverRoles...))
	approvers.POST("/enrollments/:id/approve", rt.approvals.Approve)
	approvers.POST("/enrollments/:id/reject", rt.approvals.Reject)
	approvers.GET("/approvals/pending", rt.approvals.Pending)

	if rt.exports != nil {
		secured.GET("/enrollments/mine/export", rt.exports.Mine)
		approvers.GET("/approvals/pending/export", rt.exports.Pending)
	}
}
