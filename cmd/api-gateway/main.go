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

	_ "github.com/noah-isme/rsaf-qualification-api/api/swagger"
	"github.com/noah-isme/rsaf-qualification-api/internal/handler"
	"github.com/noah-isme/rsaf-qualification-api/internal/middleware"
	"github.com/noah-isme/rsaf-qualification-api/internal/models"
	"github.com/noah-isme/rsaf-qualification-api/internal/repository"
	"github.com/noah-isme/rsaf-qualification-api/internal/service"
	"github.com/noah-isme/rsaf-qualification-api/pkg/config"
	"github.com/noah-isme/rsaf-qualification-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/rsaf-qualification-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/rsaf-qualification-api/pkg/middleware/requestid"
)

const shutdownTimeout = 10 * time.Second

// @title RSAF Qualification API
// @version 1.0.0
// @description Training qualification enrollment with Trainer, Examiner and Commander approval.
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metrics *service.MetricsService
	if cfg.Metrics.Enabled {
		metrics = service.NewMetricsService()
	}

	stores, err := openStores(ctx, cfg, metrics, logr)
	if err != nil {
		logr.Sugar().Fatalw("failed to open storage", "driver", cfg.Storage.Driver, "error", err)
	}
	defer stores.Close()

	workflowCfg := service.WorkflowConfig{AllowReenrollAfterRejection: cfg.Workflow.AllowReenrollAfterRejection}
	catalog := repository.NewCatalogRepository()
	sessions := service.NewSessionService(
		repository.NewSessionRepository(stores.kv, cfg.Storage.RoleKey),
		models.DefaultDirectory(),
		service.SessionConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer, TTL: cfg.JWT.Expiration},
		validator.New(),
		logr,
	)
	workflow := service.NewWorkflowService(stores.enrollments, catalog, metrics, workflowCfg, logr)
	queries := service.NewQueryService(stores.enrollments, catalog, workflowCfg, logr)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS))
	if metrics != nil {
		r.Use(middleware.Metrics(metrics))
	}

	api := routes{
		cfg:         cfg,
		sessions:    sessions,
		session:     handler.NewSessionHandler(sessions),
		catalog:     handler.NewCatalogHandler(queries),
		dashboard:   handler.NewDashboardHandler(queries),
		enrollments: handler.NewEnrollmentHandler(workflow, queries),
		approvals:   handler.NewApprovalHandler(workflow, queries),
		ops:         handler.NewMetricsHandler(metrics.Handler(), stores.Ready),
	}
	if cfg.Exports.Enabled {
		api.exports = handler.NewExportHandler(service.NewExportService(queries, logr))
	}
	api.register(r)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "storage", cfg.Storage.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Errorw("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
	logr.Sugar().Infow("server stopped")
}
