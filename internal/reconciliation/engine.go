package reconciliation

import (
	"context"
	"log/slog"

	"github.com/idealtransport/bol-ledger/internal/domain/auth"
	"github.com/idealtransport/bol-ledger/internal/domain/ledger"
	"github.com/idealtransport/bol-ledger/internal/platform/metrics"
	"github.com/idealtransport/bol-ledger/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

type EngineImpl struct {
	db             persistence.TxBeginner
	validator      PaymentValidator
	bolManager     BOLManager
	ledgerRecorder LedgerRecorder
	outboxManager  OutboxManager
	rejections     RejectionRecorder
	metrics        *metrics.Metrics
	logger         *slog.Logger
}

func NewEngine(
	db persistence.TxBeginner,
	validator PaymentValidator,
	bolManager BOLManager,
	ledgerRecorder LedgerRecorder,
	outboxManager OutboxManager,
	rejections RejectionRecorder,
	m *metrics.Metrics,
	logger *slog.Logger,
) *EngineImpl {
	return &EngineImpl{
		db:             db,
		validator:      validator,
		bolManager:     bolManager,
		ledgerRecorder: ledgerRecorder,
		outboxManager:  outboxManager,
		rejections:     rejections,
		metrics:        m,
		logger:         logger,
	}
}

// ApplyPayment records a payment of request.Amount against the referenced bill.
// Either the balances, the ledger entry and the outbox message are all
// committed, or nothing is. Rejections leave the bill untouched.
func (e *EngineImpl) ApplyPayment(ctx context.Context, principal *auth.Principal, request *PaymentRequest) (*ledger.Entry, error) {
	logger := e.logger
	if request.CorrelationID != "" {
		logger = e.logger.With("correlation_id", request.CorrelationID)
	}

	if err := auth.RequireAuthenticated(principal); err != nil {
		e.rejections.RecordRejection(ctx, request, err)
		return nil, err
	}

	if err := e.validator.Validate(ctx, request); err != nil {
		e.rejections.RecordRejection(ctx, request, err)
		return nil, err
	}

	logger.Info("Applying payment",
		"bol", request.reference(),
		"amount", request.Amount.String(),
		"payment_type", request.PaymentType,
		"user_id", principal.UserID,
	)

	var entry *ledger.Entry
	err := persistence.ExecuteTx(ctx, e.db, func(tx pgx.Tx) error {
		locked, applied, err := e.bolManager.LockAndApply(ctx, tx, request)
		if err != nil {
			return err
		}

		entry, err = e.ledgerRecorder.Record(ctx, tx, locked, applied, request, principal.UserID)
		if err != nil {
			return err
		}

		return e.outboxManager.CreateOutboxEntry(ctx, tx, request, locked, entry)
	})
	if err != nil {
		e.rejections.RecordRejection(ctx, request, err)
		return nil, err
	}

	if e.metrics != nil {
		e.metrics.PaymentApplied(string(entry.PaymentType), entry.CollectedAmount)
	}
	logger.Info("Payment applied",
		"entry_id", entry.ID.String(),
		"bol_id", entry.BOLID.String(),
		"due_amount", entry.DueAmount.String(),
	)
	return entry, nil
}
