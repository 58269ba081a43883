package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/idealtransport/bol-ledger/internal/domain/auth"
	"github.com/idealtransport/bol-ledger/internal/domain/bol"
	"github.com/idealtransport/bol-ledger/internal/domain/ledger"
	"github.com/idealtransport/bol-ledger/internal/domain/shared"
	"github.com/idealtransport/bol-ledger/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// BOLServiceImpl implements the BOLService interface
type BOLServiceImpl struct {
	db         persistence.TxBeginner
	bolRepo    bol.Repository
	ledgerRepo ledger.Repository
	logger     *slog.Logger
}

func NewBOLService(logger *slog.Logger, db persistence.TxBeginner, bolRepo bol.Repository, ledgerRepo ledger.Repository) BOLService {
	return &BOLServiceImpl{
		db:         db,
		bolRepo:    bolRepo,
		ledgerRepo: ledgerRepo,
		logger:     logger,
	}
}

func (s *BOLServiceImpl) Create(ctx context.Context, principal *auth.Principal, metadata bol.Metadata, vehicles []bol.Vehicle) (*bol.BillOfLading, error) {
	if err := auth.RequireAuthenticated(principal); err != nil {
		return nil, err
	}

	b, err := bol.New(metadata, vehicles, principal.UserID)
	if err != nil {
		return nil, err
	}

	// the bill row and its vehicle rows land together or not at all
	err = persistence.ExecuteTx(ctx, s.db, func(tx pgx.Tx) error {
		return s.bolRepo.WithTx(tx).Create(ctx, b)
	})
	if err != nil {
		if !isClientError(err) {
			s.logger.Error("Failed to create bill of lading", "bol_id", b.ID.String(), "error", err)
		}
		return nil, err
	}

	s.logger.Info("Bill of lading created",
		"bol_id", b.ID.String(),
		"work_order_no", b.WorkOrderNo,
		"total_amount", b.TotalAmount.String(),
		"user_id", principal.UserID,
	)
	return b, nil
}

func (s *BOLServiceImpl) Get(ctx context.Context, principal *auth.Principal, id uuid.UUID) (*bol.BillOfLading, error) {
	if err := auth.RequireAuthenticated(principal); err != nil {
		return nil, err
	}
	return s.bolRepo.GetByID(ctx, id)
}

func (s *BOLServiceImpl) List(ctx context.Context, principal *auth.Principal, limit, offset int) ([]*bol.BillOfLading, error) {
	if err := auth.RequireAuthenticated(principal); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	limit = min(limit, maxListLimit)
	offset = max(offset, 0)
	return s.bolRepo.List(ctx, limit, offset)
}

// Edit locks the bill so a concurrent payment cannot change the collected
// amount between the check and the write. A changed total is recorded as a
// revision in the same transaction.
func (s *BOLServiceImpl) Edit(ctx context.Context, principal *auth.Principal, id uuid.UUID, change bol.Change) (*bol.BillOfLading, error) {
	if err := auth.Require(principal, auth.CapabilityEditBOL); err != nil {
		return nil, err
	}

	var edited *bol.BillOfLading
	err := persistence.ExecuteTx(ctx, s.db, func(tx pgx.Tx) error {
		repo := s.bolRepo.WithTx(tx)

		locked, err := repo.LockForUpdate(ctx, id)
		if err != nil {
			return err
		}

		revision, err := locked.Edit(change, principal.UserID)
		if err != nil {
			return err
		}

		if err := repo.Update(ctx, locked); err != nil {
			return err
		}
		if revision != nil {
			if err := repo.AddRevision(ctx, revision); err != nil {
				return err
			}
		}
		edited = locked
		return nil
	})
	if err != nil {
		if !isClientError(err) {
			s.logger.Error("Failed to edit bill of lading", "bol_id", id.String(), "error", err)
		}
		return nil, err
	}

	s.logger.Info("Bill of lading edited",
		"bol_id", id.String(),
		"total_amount", edited.TotalAmount.String(),
		"due_amount", edited.DueAmount.String(),
		"user_id", principal.UserID,
	)
	return edited, nil
}

func (s *BOLServiceImpl) Delete(ctx context.Context, principal *auth.Principal, id uuid.UUID) error {
	if err := auth.Require(principal, auth.CapabilityDeleteBOL); err != nil {
		return err
	}

	count, err := s.ledgerRepo.CountByBOL(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return shared.ConflictError{Resource: shared.ResourceBillOfLading, ID: id.String(), Reason: "has transactions"}
	}

	// the foreign key still rejects a payment that lands after the count
	if err := s.bolRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("Bill of lading deleted", "bol_id", id.String(), "user_id", principal.UserID)
	return nil
}

func (s *BOLServiceImpl) Revisions(ctx context.Context, principal *auth.Principal, id uuid.UUID) ([]*bol.AmountRevision, error) {
	if err := auth.Require(principal, auth.CapabilityViewReports); err != nil {
		return nil, err
	}
	if _, err := s.bolRepo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.bolRepo.Revisions(ctx, id)
}

// isClientError reports whether err belongs to the domain taxonomy
func isClientError(err error) bool {
	var (
		validation  shared.ValidationError
		conflict    shared.ConflictError
		notFound    shared.NotFoundError
		invalid     shared.InvalidAmountError
		overpayment shared.OverpaymentError
	)
	return errors.As(err, &validation) ||
		errors.As(err, &conflict) ||
		errors.As(err, &notFound) ||
		errors.As(err, &invalid) ||
		errors.As(err, &overpayment)
}
