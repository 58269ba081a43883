package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/idealtransport/bol-ledger/internal/config"
	"github.com/idealtransport/bol-ledger/internal/data/mongo"
	"github.com/idealtransport/bol-ledger/internal/data/postgres"
	"github.com/idealtransport/bol-ledger/internal/logger"
	"github.com/idealtransport/bol-ledger/internal/platform/messaging/consumers"
	"github.com/idealtransport/bol-ledger/internal/platform/messaging/producers"
	"github.com/idealtransport/bol-ledger/internal/platform/metrics"
	"github.com/idealtransport/bol-ledger/internal/platform/persistence"
	"github.com/idealtransport/bol-ledger/internal/projector/consumer"
	"github.com/idealtransport/bol-ledger/internal/projector/outbox_poller"
	"github.com/idealtransport/bol-ledger/internal/projector/service"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("ledger_projector")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	log.Info("Starting Ledger Projector",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
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

	bolRepo := postgres.NewBOLRepository(log, postgresDB)
	ledgerRepo := postgres.NewLedgerRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	statementRepo := mongo.NewStatementRepository(log, mongoDB.Database())

	eventProducer, err := producers.NewPaymentEventProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize payment event producer", "error", err)
		os.Exit(1)
	}

	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}

	kafkaConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka, dlqProducer)

	projector := service.NewStatementProjector(postgresDB.Pool(), bolRepo, ledgerRepo, statementRepo, m, log)
	projectionService, err := service.NewWorkerPoolProjectionService(projector, service.WorkerPoolConfig{
		Size: cfg.WorkerPool.Size,
	}, log)
	if err != nil {
		log.Error("Failed to initialize worker pool", "error", err)
		os.Exit(1)
	}

	handler := consumer.NewPaymentEventHandler(log, projectionService)
	poller := outbox_poller.NewPoller(&cfg.Outbox, outboxRepo, eventProducer, m, log)

	errChan := make(chan error, 2)
	var wg sync.WaitGroup

	log.Info("Starting Kafka consumer",
		"topic", cfg.Kafka.PaymentTopic,
		"group", cfg.Kafka.ConsumerGroup,
	)
	if err := kafkaConsumer.Subscribe(appCtx, handler.HandleMessage); err != nil {
		log.Error("Failed to subscribe", "error", err)
		os.Exit(1)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		poller.Start(appCtx)
	}()

	var metricsServer *http.Server
	if m != nil {
		metricsServer = &http.Server{Addr: cfg.Metrics.Addr, Handler: m.Handler()}
		go func() {
			log.Info("Serving metrics", "addr", cfg.Metrics.Addr)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	cancelAppCtx()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	log.Info("Waiting for services to stop...")
	stopped := make(chan struct{})
	go func() {
		wg.Wait()
		<-kafkaConsumer.Done()
		close(stopped)
	}()

	select {
	case <-stopped:
		log.Info("All services stopped successfully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	projectionService.Shutdown()

	if metricsServer != nil {
		if err = metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Error("Error stopping metrics server", "error", err)
		}
	}

	if err = kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}

	if err = dlqProducer.Close(); err != nil {
		log.Error("Error closing DLQ Kafka producer", "error", err)
	}

	if err = eventProducer.Close(); err != nil {
		log.Error("Error closing payment event producer", "error", err)
	}

	postgresDB.Close()

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	if serviceErr != nil {
		log.Error("Ledger Projector shutdown with errors", "error", serviceErr)
	}
	if err != nil {
		log.Error("Ledger Projector shutdown completed with errors")
	} else {
		log.Info("Ledger Projector shutdown completed successfully")
	}
}
