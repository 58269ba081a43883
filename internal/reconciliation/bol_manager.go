package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/idealtransport/bol-ledger/internal/domain/bol"
	"github.com/idealtransport/bol-ledger/internal/domain/shared"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type BOLManagerImpl struct {
	bolRepo bol.Repository
	logger  *slog.Logger
}

func NewBOLManager(bolRepo bol.Repository, logger *slog.Logger) BOLManager {
	return &BOLManagerImpl{
		bolRepo: bolRepo,
		logger:  logger,
	}
}

// LockAndApply locks the bill, validates the payment against its current due
// amount and persists the new balances. The lock is held until tx ends, so the
// overpayment check always sees committed state.
func (m *BOLManagerImpl) LockAndApply(ctx context.Context, tx pgx.Tx, request *PaymentRequest) (*bol.BillOfLading, decimal.Decimal, error) {
	logger := m.logger
	if request.CorrelationID != "" {
		logger = m.logger.With("correlation_id", request.CorrelationID)
	}

	bolRepoTx := m.bolRepo.WithTx(tx)

	var locked *bol.BillOfLading
	var err error
	if request.BOLID != uuid.Nil {
		locked, err = bolRepoTx.LockForUpdate(ctx, request.BOLID)
	} else {
		locked, err = bolRepoTx.LockByWorkOrderNo(ctx, request.WorkOrderNo)
	}
	if err != nil {
		if errors.Is(err, shared.NotFoundError{}) {
			logger.Warn("Bill of lading not found for payment", "bol", request.reference())
			return nil, decimal.Zero, err
		}
		logger.Error("Failed to lock bill of lading", "bol", request.reference(), "error", err)
		return nil, decimal.Zero, fmt.Errorf("failed to lock bill of lading %s: %w", request.reference(), err)
	}
	logger.Debug("Bill of lading locked",
		"bol_id", locked.ID.String(),
		"total_collected", locked.TotalCollected.String(),
		"due_amount", locked.DueAmount.String(),
	)

	applied, err := locked.ApplyPayment(request.Amount)
	if err != nil {
		logger.Warn("Payment refused",
			"bol_id", locked.ID.String(),
			"amount", applied.String(),
			"due_amount", locked.DueAmount.String(),
			"error", err,
		)
		return nil, decimal.Zero, err
	}

	if err := locked.CheckBalances(); err != nil {
		logger.Error("Balances inconsistent after payment", "bol_id", locked.ID.String(), "error", err)
		return nil, decimal.Zero, fmt.Errorf("bill of lading %s: %w", locked.ID, err)
	}

	if err := bolRepoTx.UpdateBalances(ctx, locked.ID, locked.TotalCollected, locked.DueAmount); err != nil {
		logger.Error("Failed to update balances", "bol_id", locked.ID.String(), "error", err)
		return nil, decimal.Zero, err
	}
	logger.Info("Balances updated",
		"bol_id", locked.ID.String(),
		"total_collected", locked.TotalCollected.String(),
		"due_amount", locked.DueAmount.String(),
	)

	return locked, applied, nil
}
