package api_gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/idealtransport/bol-ledger/internal/api_gateway/handler"
	"github.com/idealtransport/bol-ledger/internal/api_gateway/service"
	"github.com/idealtransport/bol-ledger/internal/config"
	"github.com/idealtransport/bol-ledger/internal/domain/auth"
	"github.com/idealtransport/bol-ledger/internal/platform/metrics"
	"github.com/idealtransport/bol-ledger/internal/workorder"
)

// Services are the application services exposed over HTTP
type Services struct {
	BOLs       service.BOLService
	Payments   service.PaymentService
	Expenses   service.ExpenseService
	WorkOrders workorder.Service
	Statements service.StatementService
	Reports    service.ReportService
}

// Server handles HTTP requests and manages the application's lifecycle
type Server struct {
	logger     *slog.Logger
	httpServer *http.Server
	httpRouter *gin.Engine
}

// NewServer creates and configures a new HTTP server with the given services.
// m may be nil, in which case /metrics is not served.
func NewServer(log *slog.Logger, cfg *config.Config, policy *auth.Policy, services Services, m *metrics.Metrics) *Server {
	if cfg.Application.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	httpRouter := gin.New()

	setupRouter(log, httpRouter, handlers{
		bols:       handler.NewBOLHandler(log, services.BOLs),
		payments:   handler.NewPaymentHandler(log, services.Payments),
		expenses:   handler.NewExpenseHandler(log, services.Expenses),
		workOrders: handler.NewWorkOrderHandler(log, services.WorkOrders),
		statements: handler.NewStatementHandler(log, services.Statements),
		reports:    handler.NewReportHandler(log, services.Reports),
	}, authSettings{
		secret: []byte(cfg.Auth.JWTSecret),
		issuer: cfg.Auth.JWTIssuer,
		policy: policy,
	}, m)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpRouter,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &Server{
		logger:     log,
		httpServer: httpServer,
		httpRouter: httpRouter,
	}
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.httpRouter
}

// Start begins listening for HTTP requests
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop drains in-flight requests until ctx is done
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping HTTP server")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to stop HTTP server: %w", err)
	}
	return nil
}
