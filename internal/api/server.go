// Package api exposes the evaluation workflows over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/clindx-engine/internal/domain"
	"github.com/clindx-engine/internal/evaluation"
	"github.com/clindx-engine/internal/middleware"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

const shutdownTimeout = 30 * time.Second

// EvaluationService is the set of workflows served by the API.
// *evaluation.Service implements it.
type EvaluationService interface {
	CreateEvaluation(ctx context.Context, doctorID, patientID int64, in evaluation.CreateEvaluationInput) (*domain.Evaluation, error)
	ListEvaluations(ctx context.Context, doctorID, patientID int64) ([]*domain.Evaluation, error)
	GetEvaluation(ctx context.Context, doctorID, patientID, evaluationID int64) (*domain.Evaluation, error)
	DashboardSummary(ctx context.Context, doctorID int64) (*domain.DashboardSummary, error)
	EarlyWarnings(ctx context.Context, doctorID int64) ([]domain.EarlyWarningResult, error)
	EarlyWarningForPatient(ctx context.Context, doctorID, patientID int64) (*domain.EarlyWarningResult, error)
	VitalsTrend(ctx context.Context, doctorID, patientID int64) (*domain.VitalsTrend, error)
	AuditLogs(ctx context.Context, doctorID int64, limit, offset int) (*evaluation.AuditPage, error)
	ExportAuditLogs(ctx context.Context, doctorID int64, w io.Writer) error
}

// HealthChecker reports the health of a dependency.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Config configures the HTTP server.
type Config struct {
	Server domain.ServerConfig
	Auth   middleware.JWTConfig
	Debug  bool
	// Checks are probed by GET /health, keyed by dependency name.
	Checks map[string]HealthChecker
}

// Server represents the HTTP server
type Server struct {
	config  Config
	service EvaluationService
	logger  *logrus.Logger
	router  *gin.Engine
	server  *http.Server
}

// NewServer creates a new HTTP server instance
func NewServer(service EvaluationService, config Config, logger *logrus.Logger) *Server {
	if config.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.AccessLog(logger))
	router.Use(middleware.CORS())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.RequestTimeout(config.Server.RequestTimeout))

	s := &Server{
		config:  config,
		service: service,
		logger:  logger,
		router:  router,
	}
	s.setupRoutes()

	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(shutdownCtx)
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	v1.Use(middleware.BearerAuth(s.config.Auth))
	{
		v1.GET("/patients/:patient_id/evaluations", s.handleListEvaluations)
		v1.POST("/patients/:patient_id/evaluations", s.handleCreateEvaluation)
		v1.GET("/patients/:patient_id/evaluations/:id", s.handleGetEvaluation)

		v1.GET("/dashboard/summary", s.handleDashboardSummary)

		v1.GET("/early_warning", s.handleEarlyWarnings)
		v1.GET("/early_warning/:patient_id", s.handleEarlyWarningForPatient)
		v1.GET("/vitals_trends/:patient_id", s.handleVitalsTrend)

		v1.POST("/simulator/what_if", s.handleWhatIf)
		v1.POST("/simulator/treatment_response", s.handleTreatmentResponse)

		v1.GET("/audit_logs", s.handleAuditLogs)
		v1.GET("/audit_logs/export", s.handleExportAuditLogs)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	status := http.StatusOK
	checks := make(map[string]string, len(s.config.Checks))
	for name, checker := range s.config.Checks {
		if err := checker.Health(c.Request.Context()); err != nil {
			s.logger.WithError(err).WithField("dependency", name).Warn("Health check failed")
			checks[name] = "unhealthy"
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "healthy"
	}

	body := gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   Version,
	}
	if status != http.StatusOK {
		body["status"] = "degraded"
	}
	if len(checks) > 0 {
		body["checks"] = checks
	}
	c.JSON(status, body)
}
