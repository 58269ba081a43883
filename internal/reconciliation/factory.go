package reconciliation

import (
	"log/slog"

	"github.com/idealtransport/bol-ledger/internal/domain/bol"
	"github.com/idealtransport/bol-ledger/internal/domain/ledger"
	"github.com/idealtransport/bol-ledger/internal/domain/outbox"
	"github.com/idealtransport/bol-ledger/internal/platform/metrics"
	"github.com/idealtransport/bol-ledger/internal/platform/persistence"
)

// CreateEngine wires the engine with its default components
func CreateEngine(
	db persistence.TxBeginner,
	bolRepo bol.Repository,
	ledgerRepo ledger.Repository,
	outboxRepo outbox.Repository,
	m *metrics.Metrics,
	logger *slog.Logger,
) Engine {
	logger = logger.With("component", "reconciliation")
	return NewEngine(
		db,
		NewPaymentValidator(logger),
		NewBOLManager(bolRepo, logger),
		NewLedgerRecorder(ledgerRepo, logger),
		NewOutboxManager(outboxRepo, logger),
		NewRejectionRecorder(m, logger),
		m,
		logger,
	)
}
