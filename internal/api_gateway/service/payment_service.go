package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/idealtransport/bol-ledger/internal/domain/auth"
	"github.com/idealtransport/bol-ledger/internal/domain/ledger"
	"github.com/idealtransport/bol-ledger/internal/domain/shared"
	"github.com/idealtransport/bol-ledger/internal/reconciliation"
)

// ErrIdempotencyKeyReused is returned when a key is replayed with a
// different payment than the one it first recorded
var ErrIdempotencyKeyReused = errors.New("idempotency key was already used for a different payment")

// storedPayment is the value kept under an idempotency key
type storedPayment struct {
	Fingerprint string        `json:"fingerprint"`
	Entry       *ledger.Entry `json:"entry"`
}

// fingerprint identifies the payment a request asks for. Formatting
// differences that do not change the payment hash the same.
func fingerprint(request *reconciliation.PaymentRequest) string {
	var date string
	if !request.Details.Date.IsZero() {
		date = request.Details.Date.UTC().Format(time.RFC3339)
	}
	ref := request.BOLID.String()
	if request.BOLID == uuid.Nil {
		ref = "wo:" + strings.TrimSpace(request.WorkOrderNo)
	}
	parts := []string{
		ref,
		request.Amount.String(),
		strings.ToUpper(strings.TrimSpace(string(request.PaymentType))),
		date,
		request.Details.PickupLocation,
		request.Details.DropoffLocation,
		request.Details.Comments,
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return hex.EncodeToString(sum[:])
}

// PaymentServiceImpl implements the PaymentService interface
type PaymentServiceImpl struct {
	engine      reconciliation.Engine
	ledgerRepo  ledger.Repository
	idempotency IdempotencyStore
	logger      *slog.Logger
}

// NewPaymentService creates a payment service; idempotency may be nil
func NewPaymentService(logger *slog.Logger, engine reconciliation.Engine, ledgerRepo ledger.Repository, idempotency IdempotencyStore) PaymentService {
	return &PaymentServiceImpl{
		engine:      engine,
		ledgerRepo:  ledgerRepo,
		idempotency: idempotency,
		logger:      logger,
	}
}

// List returns the payments the principal recorded, newest first
func (s *PaymentServiceImpl) List(ctx context.Context, principal *auth.Principal, limit, offset int) ([]*ledger.History, error) {
	if err := auth.RequireAuthenticated(principal); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	limit = min(limit, maxListLimit)
	offset = max(offset, 0)
	return s.ledgerRepo.ListByUser(ctx, principal.UserID, limit, offset)
}

// Get returns one payment. Entries recorded by someone else are reported as
// not found.
func (s *PaymentServiceImpl) Get(ctx context.Context, principal *auth.Principal, id uuid.UUID) (*ledger.Entry, error) {
	if err := auth.RequireAuthenticated(principal); err != nil {
		return nil, err
	}
	entry, err := s.ledgerRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry.UserID != principal.UserID {
		return nil, shared.NotFoundError{Resource: shared.ResourceLedgerEntry, Key: id.String()}
	}
	return entry, nil
}

func (s *PaymentServiceImpl) Submit(ctx context.Context, principal *auth.Principal, idempotencyKey string, request *reconciliation.PaymentRequest) (*ledger.Entry, bool, error) {
	if idempotencyKey == "" || s.idempotency == nil {
		entry, err := s.engine.ApplyPayment(ctx, principal, request)
		return entry, false, err
	}

	// stored results are scoped to the user who produced them
	if err := auth.RequireAuthenticated(principal); err != nil {
		return nil, false, err
	}

	logger := s.logger
	if request.CorrelationID != "" {
		logger = s.logger.With("correlation_id", request.CorrelationID)
	}

	key := principal.UserID + ":" + idempotencyKey
	stored, err := s.idempotency.Begin(ctx, key)
	if err != nil {
		return nil, false, err
	}
	fp := fingerprint(request)
	if stored != nil {
		var previous storedPayment
		if err := json.Unmarshal(stored, &previous); err != nil || previous.Entry == nil {
			if err == nil {
				err = errors.New("stored payment result has no entry")
			}
			logger.Error("Failed to decode stored payment result", "idempotency_key", idempotencyKey, "error", err)
			return nil, false, err
		}
		if previous.Fingerprint != fp {
			logger.Warn("Idempotency key reused for a different payment",
				"idempotency_key", idempotencyKey,
				"entry_id", previous.Entry.ID.String(),
			)
			return nil, false, ErrIdempotencyKeyReused
		}
		logger.Info("Replaying payment result", "idempotency_key", idempotencyKey, "entry_id", previous.Entry.ID.String())
		return previous.Entry, true, nil
	}

	entry, err := s.engine.ApplyPayment(ctx, principal, request)
	if err != nil {
		if releaseErr := s.idempotency.Release(context.WithoutCancel(ctx), key); releaseErr != nil {
			logger.Warn("Failed to release idempotency key", "idempotency_key", idempotencyKey, "error", releaseErr)
		}
		return nil, false, err
	}

	result, err := json.Marshal(storedPayment{Fingerprint: fp, Entry: entry})
	if err != nil {
		logger.Error("Failed to encode payment result", "entry_id", entry.ID.String(), "error", err)
		return entry, false, nil
	}
	if err := s.idempotency.Complete(context.WithoutCancel(ctx), key, result); err != nil {
		// the payment is committed; only the replay is lost
		logger.Warn("Failed to store payment result", "idempotency_key", idempotencyKey, "error", err)
	}
	return entry, false, nil
}
