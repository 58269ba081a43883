// Package outbox_poller relays committed outbox messages to Kafka.
package outbox_poller

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/idealtransport/bol-ledger/internal/config"
	"github.com/idealtransport/bol-ledger/internal/domain/outbox"
	"github.com/idealtransport/bol-ledger/internal/domain/shared"
	"github.com/idealtransport/bol-ledger/internal/platform/messaging/producers"
	"github.com/idealtransport/bol-ledger/internal/platform/metrics"
)

// Poller publishes pending outbox messages in id order. Messages are keyed by
// bill of lading, so events of one bill stay ordered within their partition.
type Poller struct {
	outboxRepo       outbox.Repository
	publisher        producers.EventPublisher
	metrics          *metrics.Metrics
	logger           *slog.Logger
	pollInterval     time.Duration
	batchSize        int
	maxRetryAttempts int
}

// NewPoller creates a poller; m may be nil
func NewPoller(
	cfg *config.OutboxConfig,
	outboxRepo outbox.Repository,
	publisher producers.EventPublisher,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Poller {
	return &Poller{
		outboxRepo:       outboxRepo,
		publisher:        publisher,
		metrics:          m,
		logger:           logger,
		pollInterval:     cfg.PollingInterval,
		batchSize:        cfg.BatchSize,
		maxRetryAttempts: cfg.MaxRetryAttempts,
	}
}

// Start polls until ctx is canceled
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Starting outbox poller",
		"poll_interval", p.pollInterval.String(),
		"batch_size", p.batchSize,
		"max_retry_attempts", p.maxRetryAttempts,
	)
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Outbox poller stopping")
			return
		case <-ticker.C:
			if err := p.processPendingMessages(ctx); err != nil {
				p.logger.Error("Failed to process pending outbox messages", "error", err)
			}
		}
	}
}

func (p *Poller) processPendingMessages(ctx context.Context) error {
	messages, err := p.outboxRepo.GetPending(ctx, p.batchSize)
	if err != nil {
		return fmt.Errorf("failed to get pending outbox messages: %w", err)
	}
	if len(messages) == 0 {
		return nil
	}

	p.logger.Debug("Fetched pending outbox messages", "count", len(messages))

	// a bill whose earlier message failed is skipped for the rest of the
	// batch so its events are not published out of order
	blocked := make(map[uuid.UUID]struct{})

	for _, msg := range messages {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, ok := blocked[msg.BOLID]; ok {
			continue
		}

		logger := p.logger.With("outbox_id", msg.ID, "event_id", msg.EventID.String(), "bol_id", msg.BOLID.String())
		if event, err := msg.PaymentEvent(); err == nil && event.CorrelationID != "" {
			logger = logger.With("correlation_id", event.CorrelationID)
		}

		if err := p.publisher.Publish(ctx, msg.BOLID.String(), string(msg.EventType), msg.Payload); err != nil {
			blocked[msg.BOLID] = struct{}{}
			p.recordFailure(ctx, logger, msg, err)
			continue
		}

		if err := p.outboxRepo.UpdateStatus(ctx, msg.ID, shared.OutboxStatusProcessed); err != nil {
			// published but still pending: it is sent again next tick and the
			// projection absorbs the duplicate
			logger.Error("Failed to mark outbox message as processed", "error", err)
			continue
		}
		p.observe(metrics.OutboxResultPublished)
		logger.Info("Published outbox message", "event_type", msg.EventType)
	}
	return nil
}

func (p *Poller) recordFailure(ctx context.Context, logger *slog.Logger, msg *outbox.Message, cause error) {
	logger.Error("Failed to publish outbox message", "attempts", msg.Attempts, "error", cause)

	if err := p.outboxRepo.IncrementAttempts(ctx, msg.ID); err != nil {
		logger.Error("Failed to increment outbox attempts", "error", err)
		return
	}

	if msg.Attempts+1 < p.maxRetryAttempts {
		p.observe(metrics.OutboxResultRetry)
		return
	}

	logger.Warn("Outbox message exhausted its attempts, marking as failed", "attempts", msg.Attempts+1)
	if err := p.outboxRepo.UpdateStatus(ctx, msg.ID, shared.OutboxStatusFailedToPublish); err != nil {
		logger.Error("Failed to mark outbox message as failed", "error", err)
		return
	}
	p.observe(metrics.OutboxResultFailed)
}

func (p *Poller) observe(result string) {
	if p.metrics != nil {
		p.metrics.OutboxPublished.WithLabelValues(result).Inc()
	}
}
