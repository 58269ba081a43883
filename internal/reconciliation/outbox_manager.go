package reconciliation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/idealtransport/bol-ledger/internal/domain/bol"
	"github.com/idealtransport/bol-ledger/internal/domain/ledger"
	"github.com/idealtransport/bol-ledger/internal/domain/outbox"
	"github.com/idealtransport/bol-ledger/internal/domain/shared"
	"github.com/jackc/pgx/v5"
)

type OutboxManagerImpl struct {
	outboxRepo outbox.Repository
	logger     *slog.Logger
}

func NewOutboxManager(outboxRepo outbox.Repository, logger *slog.Logger) OutboxManager {
	return &OutboxManagerImpl{
		outboxRepo: outboxRepo,
		logger:     logger,
	}
}

// CreateOutboxEntry writes the payment.applied event for entry
func (m *OutboxManagerImpl) CreateOutboxEntry(ctx context.Context, tx pgx.Tx, request *PaymentRequest, b *bol.BillOfLading, entry *ledger.Entry) error {
	logger := m.logger
	if request.CorrelationID != "" {
		logger = m.logger.With("correlation_id", request.CorrelationID)
	}

	event := &shared.PaymentAppliedEvent{
		EventID:        uuid.New(),
		EntryID:        entry.ID,
		BOLID:          b.ID,
		WorkOrderNo:    b.WorkOrderNo,
		Amount:         entry.CollectedAmount,
		TotalCollected: b.TotalCollected,
		DueAmount:      b.DueAmount,
		PaymentType:    string(entry.PaymentType),
		UserID:         entry.UserID,
		CorrelationID:  request.CorrelationID,
		OccurredAt:     entry.CreatedAt,
	}

	message, err := outbox.NewPaymentAppliedMessage(event)
	if err != nil {
		logger.Error("Failed to encode payment event", "entry_id", entry.ID.String(), "error", err)
		return fmt.Errorf("failed to create outbox message for entry %s: %w", entry.ID, err)
	}

	if err := m.outboxRepo.WithTx(tx).Create(ctx, message); err != nil {
		logger.Error("Failed to create outbox message", "entry_id", entry.ID.String(), "bol_id", b.ID.String(), "error", err)
		return fmt.Errorf("failed to create outbox message for entry %s: %w", entry.ID, err)
	}

	logger.Info("Outbox message created",
		"entry_id", entry.ID.String(),
		"event_id", event.EventID.String(),
		"outbox_id", message.ID,
	)
	return nil
}
