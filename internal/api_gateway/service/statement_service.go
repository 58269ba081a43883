package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/idealtransport/bol-ledger/internal/domain/auth"
	"github.com/idealtransport/bol-ledger/internal/domain/bol"
	"github.com/idealtransport/bol-ledger/internal/domain/ledger"
	"github.com/idealtransport/bol-ledger/internal/domain/statement"
	"github.com/idealtransport/bol-ledger/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

// ErrRendererDisabled is returned by PDF when no renderer is configured
var ErrRendererDisabled = errors.New("statement renderer is disabled")

// StatementServiceImpl implements the StatementService interface
type StatementServiceImpl struct {
	db            persistence.TxBeginner
	bolRepo       bol.Repository
	ledgerRepo    ledger.Repository
	statementRepo statement.Repository
	renderer      Renderer
	archiver      Archiver
	logger        *slog.Logger
}

// NewStatementService creates a statement service. statementRepo, renderer and
// archiver are optional.
func NewStatementService(
	logger *slog.Logger,
	db persistence.TxBeginner,
	bolRepo bol.Repository,
	ledgerRepo ledger.Repository,
	statementRepo statement.Repository,
	renderer Renderer,
	archiver Archiver,
) StatementService {
	return &StatementServiceImpl{
		db:            db,
		bolRepo:       bolRepo,
		ledgerRepo:    ledgerRepo,
		statementRepo: statementRepo,
		renderer:      renderer,
		archiver:      archiver,
		logger:        logger,
	}
}

func (s *StatementServiceImpl) Snapshot(ctx context.Context, principal *auth.Principal, bolID uuid.UUID) (*statement.Snapshot, error) {
	if err := auth.Require(principal, auth.CapabilityViewReports); err != nil {
		return nil, err
	}
	return s.build(ctx, bolID)
}

// build reads the bill and its entries in one transaction. The share lock
// holds off payments until both reads are done, so the balances and the
// entries describe the same moment.
func (s *StatementServiceImpl) build(ctx context.Context, bolID uuid.UUID) (*statement.Snapshot, error) {
	var (
		b       *bol.BillOfLading
		entries []*ledger.Entry
	)
	err := persistence.ExecuteTx(ctx, s.db, func(tx pgx.Tx) error {
		var err error
		if b, err = s.bolRepo.WithTx(tx).LockForShare(ctx, bolID); err != nil {
			return err
		}
		entries, err = s.ledgerRepo.WithTx(tx).ListByBOL(ctx, bolID)
		return err
	})
	if err != nil {
		return nil, err
	}

	snapshot := statement.New(b, entries)
	if err := snapshot.Verify(); err != nil {
		s.logger.Error("Ledger snapshot failed verification", "bol_id", bolID.String(), "error", err)
		return nil, fmt.Errorf("inconsistent ledger snapshot: %w", err)
	}
	return snapshot, nil
}

func (s *StatementServiceImpl) PDF(ctx context.Context, principal *auth.Principal, bolID uuid.UUID) ([]byte, string, error) {
	if err := auth.Require(principal, auth.CapabilityViewReports); err != nil {
		return nil, "", err
	}
	if s.renderer == nil {
		return nil, "", ErrRendererDisabled
	}

	snapshot, err := s.build(ctx, bolID)
	if err != nil {
		return nil, "", err
	}

	pdf, err := s.renderer.PDF(ctx, snapshot)
	if err != nil {
		s.logger.Error("Failed to render statement", "bol_id", bolID.String(), "error", err)
		return nil, "", err
	}

	if s.archiver == nil {
		return pdf, "", nil
	}

	key := fmt.Sprintf("statements/%s/%s-v%d.pdf", bolID, snapshot.GeneratedAt.Format("20060102T150405Z"), snapshot.Version())
	url, err := s.archiver.Put(ctx, key, pdf, "application/pdf")
	if err != nil {
		// the rendered document is still returned
		s.logger.Warn("Failed to archive statement", "bol_id", bolID.String(), "key", key, "error", err)
		return pdf, "", nil
	}
	return pdf, url, nil
}

func (s *StatementServiceImpl) Projected(ctx context.Context, principal *auth.Principal, bolID uuid.UUID) (*statement.Snapshot, error) {
	if err := auth.Require(principal, auth.CapabilityViewReports); err != nil {
		return nil, err
	}
	if s.statementRepo == nil {
		return nil, errors.New("statement read-model is not configured")
	}
	return s.statementRepo.Get(ctx, bolID)
}
