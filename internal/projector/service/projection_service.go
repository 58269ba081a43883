package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/idealtransport/bol-ledger/internal/domain/bol"
	"github.com/idealtransport/bol-ledger/internal/domain/ledger"
	"github.com/idealtransport/bol-ledger/internal/domain/shared"
	"github.com/idealtransport/bol-ledger/internal/domain/statement"
	"github.com/idealtransport/bol-ledger/internal/platform/metrics"
	"github.com/idealtransport/bol-ledger/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

// StatementProjector rebuilds the snapshot of the event's bill from committed
// state. Events only say which bill changed, so duplicates and reordering are
// harmless: the stored snapshot is replaced only by a higher version.
type StatementProjector struct {
	db            persistence.TxBeginner
	bolRepo       bol.Repository
	ledgerRepo    ledger.Repository
	statementRepo statement.Repository
	metrics       *metrics.Metrics
	logger        *slog.Logger
}

// NewStatementProjector creates a projector; m may be nil
func NewStatementProjector(
	db persistence.TxBeginner,
	bolRepo bol.Repository,
	ledgerRepo ledger.Repository,
	statementRepo statement.Repository,
	m *metrics.Metrics,
	logger *slog.Logger,
) *StatementProjector {
	return &StatementProjector{
		db:            db,
		bolRepo:       bolRepo,
		ledgerRepo:    ledgerRepo,
		statementRepo: statementRepo,
		metrics:       m,
		logger:        logger,
	}
}

func (p *StatementProjector) Project(ctx context.Context, event *shared.PaymentAppliedEvent) error {
	logger := p.logger.With("event_id", event.EventID.String(), "bol_id", event.BOLID.String())
	if event.CorrelationID != "" {
		logger = logger.With("correlation_id", event.CorrelationID)
	}

	snapshot, err := p.read(ctx, event)
	if err != nil {
		p.observe(metrics.ProjectionFailed)
		return err
	}

	written, err := p.statementRepo.Save(ctx, snapshot)
	if err != nil {
		p.observe(metrics.ProjectionFailed)
		logger.Error("Failed to save statement snapshot", "error", err)
		return fmt.Errorf("failed to save statement snapshot: %w", err)
	}

	if !written {
		p.observe(metrics.ProjectionStale)
		logger.Debug("Statement snapshot already current", "version", snapshot.Version())
		return nil
	}
	p.observe(metrics.ProjectionApplied)
	logger.Info("Projected statement snapshot", "version", snapshot.Version(), "due_amount", snapshot.BOL.DueAmount.String())
	return nil
}

// read loads the bill and its entries while holding the bill's row lock,
// which every payment takes too, so the two reads agree
func (p *StatementProjector) read(ctx context.Context, event *shared.PaymentAppliedEvent) (*statement.Snapshot, error) {
	var snapshot *statement.Snapshot
	err := persistence.ExecuteTx(ctx, p.db, func(tx pgx.Tx) error {
		b, err := p.bolRepo.WithTx(tx).LockForUpdate(ctx, event.BOLID)
		if err != nil {
			return err
		}
		entries, err := p.ledgerRepo.WithTx(tx).ListByBOL(ctx, event.BOLID)
		if err != nil {
			return err
		}
		snapshot = statement.New(b, entries)
		return snapshot.Verify()
	})
	if err != nil {
		p.logger.Error("Failed to read committed statement", "bol_id", event.BOLID.String(), "error", err)
		return nil, err
	}
	return snapshot, nil
}

func (p *StatementProjector) observe(result string) {
	if p.metrics != nil {
		p.metrics.Projections.WithLabelValues(result).Inc()
	}
}
