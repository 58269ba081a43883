package reconciliation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/idealtransport/bol-ledger/internal/domain/bol"
	"github.com/idealtransport/bol-ledger/internal/domain/ledger"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type LedgerRecorderImpl struct {
	ledgerRepo ledger.Repository
	logger     *slog.Logger
}

func NewLedgerRecorder(ledgerRepo ledger.Repository, logger *slog.Logger) LedgerRecorder {
	return &LedgerRecorderImpl{
		ledgerRepo: ledgerRepo,
		logger:     logger,
	}
}

// Record appends the entry for a payment already applied to b. The entry's
// due amount is b's due amount after the payment.
func (r *LedgerRecorderImpl) Record(ctx context.Context, tx pgx.Tx, b *bol.BillOfLading, amount decimal.Decimal, request *PaymentRequest, userID string) (*ledger.Entry, error) {
	logger := r.logger
	if request.CorrelationID != "" {
		logger = r.logger.With("correlation_id", request.CorrelationID)
	}

	entry := ledger.NewEntry(b, amount, request.PaymentType, request.Details, userID)
	if err := r.ledgerRepo.WithTx(tx).Append(ctx, entry); err != nil {
		logger.Error("Failed to append ledger entry", "bol_id", b.ID.String(), "error", err)
		return nil, fmt.Errorf("failed to append ledger entry for bill of lading %s: %w", b.ID, err)
	}

	logger.Info("Ledger entry appended",
		"entry_id", entry.ID.String(),
		"bol_id", b.ID.String(),
		"amount", entry.CollectedAmount.String(),
		"due_amount", entry.DueAmount.String(),
	)
	return entry, nil
}
