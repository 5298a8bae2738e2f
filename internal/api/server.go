// Package api exposes the engines over a REST surface.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/axops/axops-core/internal/alerting"
	"github.com/axops/axops-core/internal/api/handlers"
	"github.com/axops/axops-core/internal/api/middleware"
	"github.com/axops/axops-core/internal/config"
	"github.com/axops/axops-core/internal/correlation"
	"github.com/axops/axops-core/internal/remediation"
	"github.com/axops/axops-core/pkg/cache"
	"github.com/axops/axops-core/pkg/logger"
)

type Server struct {
	config      *config.Config
	logger      logger.Logger
	cache       cache.Cache
	alerts      *alerting.Manager
	incidents   *correlation.Engine
	remediation *remediation.Engine
	router      *gin.Engine
	httpServer  *http.Server
}

func NewServer(
	cfg *config.Config,
	log logger.Logger,
	coord cache.Cache,
	alerts *alerting.Manager,
	incidents *correlation.Engine,
	remediationEngine *remediation.Engine,
) *Server {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	server := &Server{
		config:      cfg,
		logger:      log,
		cache:       coord,
		alerts:      alerts,
		incidents:   incidents,
		remediation: remediationEngine,
		router:      router,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(middleware.RequestLogger(s.logger))
	s.router.Use(middleware.MetricsMiddleware())

	if s.config.Monitoring.MetricsEnabled {
		path := s.config.Monitoring.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		s.router.GET(path, gin.WrapH(promhttp.Handler()))
	}
}

func (s *Server) setupRoutes() {
	healthHandler := handlers.NewHealthHandler(s.cache, s.logger)
	s.router.GET("/health", healthHandler.HealthCheck)
	s.router.GET("/ready", healthHandler.ReadinessCheck)

	v1 := s.router.Group("/api/v1")

	alertHandler := handlers.NewAlertHandler(s.alerts, s.config.Alerting, s.logger)
	v1.POST("/alerts", alertHandler.CreateAlert)
	v1.GET("/alerts", alertHandler.GetAlerts)
	v1.GET("/alerts/:id", alertHandler.GetAlert)
	v1.PUT("/alerts/:id/status", alertHandler.UpdateAlertStatus)
	v1.PUT("/alerts/:id/acknowledge", alertHandler.AcknowledgeAlert)
	v1.DELETE("/alerts/:id", alertHandler.DeleteAlert)
	v1.POST("/alerts/baseline-check", alertHandler.BaselineCheck)

	incidentHandler := handlers.NewIncidentHandler(s.incidents, s.logger)
	v1.POST("/correlation/run", incidentHandler.RunCorrelation)
	v1.GET("/incidents", incidentHandler.GetIncidents)
	v1.GET("/incidents/:id/alerts", incidentHandler.GetIncidentAlerts)
	v1.PUT("/incidents/:id/resolve", incidentHandler.ResolveIncident)

	remediationHandler := handlers.NewRemediationHandler(s.remediation, s.logger)
	v1.POST("/remediation/rules", remediationHandler.CreateRule)
	v1.GET("/remediation/rules", remediationHandler.GetRules)
	v1.GET("/remediation/rules/:id", remediationHandler.GetRule)
	v1.PUT("/remediation/rules/:id", remediationHandler.UpdateRule)
	v1.DELETE("/remediation/rules/:id", remediationHandler.DeleteRule)
	v1.POST("/remediation/rules/:id/execute", remediationHandler.ExecuteRule)
	v1.POST("/remediation/evaluate", remediationHandler.Evaluate)
	v1.GET("/remediation/executions", remediationHandler.GetExecutions)
	v1.GET("/remediation/executions/:id", remediationHandler.GetExecution)
}

func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("REST API server starting", "port", s.config.Port)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutting down gracefully")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

// Handler returns the underlying Gin engine so tests (or embedders) can mount it.
func (s *Server) Handler() http.Handler {
	return s.router
}
