package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/idealtransport/bol-ledger/internal/api_gateway"
	"github.com/idealtransport/bol-ledger/internal/api_gateway/middleware"
	"github.com/idealtransport/bol-ledger/internal/api_gateway/service"
	"github.com/idealtransport/bol-ledger/internal/config"
	"github.com/idealtransport/bol-ledger/internal/data/mongo"
	"github.com/idealtransport/bol-ledger/internal/data/postgres"
	bolredis "github.com/idealtransport/bol-ledger/internal/data/redis"
	"github.com/idealtransport/bol-ledger/internal/domain/auth"
	"github.com/idealtransport/bol-ledger/internal/logger"
	"github.com/idealtransport/bol-ledger/internal/platform/metrics"
	"github.com/idealtransport/bol-ledger/internal/platform/persistence"
	"github.com/idealtransport/bol-ledger/internal/platform/render"
	"github.com/idealtransport/bol-ledger/internal/platform/storage"
	"github.com/idealtransport/bol-ledger/internal/reconciliation"
	"github.com/idealtransport/bol-ledger/internal/workorder"
)

func main() {
	devToken := flag.String("dev-token", "", "print a signed bearer token for user:role and exit")
	flag.Parse()

	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("api_gateway")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if *devToken != "" {
		userID, role, ok := strings.Cut(*devToken, ":")
		if !ok || userID == "" || role == "" {
			fmt.Println("-dev-token expects user:role")
			os.Exit(2)
		}
		token, err := middleware.SignToken([]byte(cfg.Auth.JWTSecret), cfg.Auth.JWTIssuer, userID, role, 12*time.Hour)
		if err != nil {
			fmt.Printf("Failed to sign token: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(token)
		return
	}

	log := logger.NewLogger(cfg)

	policy, err := auth.ParsePolicy(cfg.Auth.RoleCapabilities)
	if err != nil {
		log.Error("Invalid role capabilities", "error", err)
		os.Exit(1)
	}

	// Migrations run as part of opening the pool
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	redisDB, err := persistence.NewRedisDB(appCtx, log, &cfg.Redis)
	if err != nil {
		log.Error("Failed to initialize Redis", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(cfg.Metrics.Namespace)
	}

	// Initialize repositories
	bolRepo := postgres.NewBOLRepository(log, postgresDB)
	ledgerRepo := postgres.NewLedgerRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	expenseRepo := postgres.NewExpenseRepository(log, postgresDB)
	statementRepo := mongo.NewStatementRepository(log, mongoDB.Database())
	idempotency := bolredis.NewIdempotencyStore(log, redisDB.Client(), &cfg.Redis)

	var (
		renderer service.Renderer
		archiver service.Archiver
		chrome   *render.ChromeRenderer
	)
	if cfg.Renderer.Enabled {
		chrome = render.NewChromeRenderer(log, cfg.Renderer.Timeout)
		renderer = chrome
	}
	if cfg.Storage.Enabled {
		archive, err := storage.NewArchive(appCtx, log, &cfg.Storage)
		if err != nil {
			log.Error("Failed to initialize statement archive", "error", err)
			os.Exit(1)
		}
		archiver = archive
	}

	engine := reconciliation.CreateEngine(postgresDB.Pool(), bolRepo, ledgerRepo, outboxRepo, m, log)

	server := api_gateway.NewServer(log, cfg, policy, api_gateway.Services{
		BOLs:       service.NewBOLService(log, postgresDB.Pool(), bolRepo, ledgerRepo),
		Payments:   service.NewPaymentService(log, engine, ledgerRepo, idempotency),
		Expenses:   service.NewExpenseService(log, expenseRepo),
		WorkOrders: workorder.NewService(bolRepo, ledgerRepo, log),
		Statements: service.NewStatementService(log, postgresDB.Pool(), bolRepo, ledgerRepo, statementRepo, renderer, archiver),
		Reports:    service.NewReportService(log, bolRepo),
	}, m)
	log.Info("REST server initialized")

	errChan := make(chan error, 1)

	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	cancelAppCtx()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	// Stop accepting requests before the stores they use go away
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	if chrome != nil {
		chrome.Close()
	}

	postgresDB.Close()

	if err = redisDB.Close(); err != nil {
		log.Error("Error closing Redis connection", "error", err)
	}

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
