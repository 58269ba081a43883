// Package workorder answers which bills of lading can still take a payment and
// how far each work order has been paid.
package workorder

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/idealtransport/bol-ledger/internal/domain/auth"
	"github.com/idealtransport/bol-ledger/internal/domain/bol"
	"github.com/idealtransport/bol-ledger/internal/domain/ledger"
	"github.com/idealtransport/bol-ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Status is the payment state of one work order
type Status struct {
	BOLID             uuid.UUID            `json:"bol_id"`
	WorkOrderNo       string               `json:"work_order_no"`
	TotalAmount       decimal.Decimal      `json:"total_amount"`
	TotalCollected    decimal.Decimal      `json:"total_collected"`
	DueAmount         decimal.Decimal      `json:"due_amount"`
	PaymentStatus     shared.PaymentStatus `json:"payment_status"`
	IsFullyPaid       bool                 `json:"is_fully_paid"`
	PaymentPercentage decimal.Decimal      `json:"payment_percentage"`
}

// Service is the work order query service
type Service interface {
	ListPending(ctx context.Context, principal *auth.Principal) (iter.Seq2[*bol.WorkOrder, error], error)
	Status(ctx context.Context, principal *auth.Principal, workOrderNo string) (*Status, error)
	Transactions(ctx context.Context, principal *auth.Principal, workOrderNo string) ([]*ledger.History, error)
}

type ServiceImpl struct {
	bolRepo    bol.Repository
	ledgerRepo ledger.Repository
	logger     *slog.Logger
}

func NewService(bolRepo bol.Repository, ledgerRepo ledger.Repository, logger *slog.Logger) Service {
	return &ServiceImpl{
		bolRepo:    bolRepo,
		ledgerRepo: ledgerRepo,
		logger:     logger,
	}
}

// ListPending returns every bill with a positive due amount, oldest first.
// Nothing is cached: each range over the sequence queries committed state again.
// Like recording a payment, it only needs an authenticated principal.
func (s *ServiceImpl) ListPending(ctx context.Context, principal *auth.Principal) (iter.Seq2[*bol.WorkOrder, error], error) {
	if err := auth.RequireAuthenticated(principal); err != nil {
		return nil, err
	}
	return s.bolRepo.Pending(ctx), nil
}

func (s *ServiceImpl) Status(ctx context.Context, principal *auth.Principal, workOrderNo string) (*Status, error) {
	if err := auth.Require(principal, auth.CapabilityViewReports); err != nil {
		return nil, err
	}

	b, err := s.lookup(ctx, workOrderNo)
	if err != nil {
		return nil, err
	}

	return &Status{
		BOLID:             b.ID,
		WorkOrderNo:       b.WorkOrderNo,
		TotalAmount:       b.TotalAmount,
		TotalCollected:    b.TotalCollected,
		DueAmount:         b.DueAmount,
		PaymentStatus:     b.PaymentStatus(),
		IsFullyPaid:       b.IsFullyPaid(),
		PaymentPercentage: b.PaymentPercentage(),
	}, nil
}

// Transactions lists the payments of a work order in creation order, joined
// with the bill's current descriptive fields
func (s *ServiceImpl) Transactions(ctx context.Context, principal *auth.Principal, workOrderNo string) ([]*ledger.History, error) {
	if err := auth.Require(principal, auth.CapabilityViewReports); err != nil {
		return nil, err
	}

	workOrderNo = strings.TrimSpace(workOrderNo)
	if workOrderNo == "" {
		return nil, shared.ValidationError{Field: "work_order_no", Reason: "is required"}
	}

	history, err := s.ledgerRepo.HistoryByWorkOrderNo(ctx, workOrderNo)
	if err != nil {
		return nil, err
	}
	if len(history) == 0 {
		// distinguish an unpaid work order from an unknown one
		if _, err := s.lookup(ctx, workOrderNo); err != nil {
			return nil, err
		}
	}
	return history, nil
}

func (s *ServiceImpl) lookup(ctx context.Context, workOrderNo string) (*bol.BillOfLading, error) {
	workOrderNo = strings.TrimSpace(workOrderNo)
	if workOrderNo == "" {
		return nil, shared.ValidationError{Field: "work_order_no", Reason: "is required"}
	}

	b, err := s.bolRepo.GetByWorkOrderNo(ctx, workOrderNo)
	if err != nil {
		if !errors.Is(err, shared.NotFoundError{}) {
			s.logger.Error("Failed to load work order", "work_order_no", workOrderNo, "error", err)
		}
		return nil, err
	}
	return b, nil
}
