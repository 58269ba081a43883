package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/idealtransport/bol-ledger/internal/domain/auth"
	"github.com/idealtransport/bol-ledger/internal/domain/expense"
	"github.com/idealtransport/bol-ledger/internal/domain/shared"
)

// ExpenseServiceImpl implements the ExpenseService interface
type ExpenseServiceImpl struct {
	expenseRepo expense.Repository
	logger      *slog.Logger
}

func NewExpenseService(logger *slog.Logger, expenseRepo expense.Repository) ExpenseService {
	return &ExpenseServiceImpl{
		expenseRepo: expenseRepo,
		logger:      logger,
	}
}

func (s *ExpenseServiceImpl) Create(ctx context.Context, principal *auth.Principal, input expense.Input) (*expense.DailyExpense, error) {
	if err := auth.RequireAuthenticated(principal); err != nil {
		return nil, err
	}

	e, err := expense.New(input, principal.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.expenseRepo.Create(ctx, e); err != nil {
		return nil, err
	}

	s.logger.Info("Daily expense recorded",
		"expense_id", e.ID.String(),
		"date", e.Date.Format("2006-01-02"),
		"total", e.Total.String(),
		"user_id", principal.UserID,
	)
	return e, nil
}

func (s *ExpenseServiceImpl) List(ctx context.Context, principal *auth.Principal, limit, offset int) ([]*expense.DailyExpense, error) {
	if err := auth.RequireAuthenticated(principal); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	limit = min(limit, maxListLimit)
	offset = max(offset, 0)
	return s.expenseRepo.ListByUser(ctx, principal.UserID, limit, offset)
}

// Get hides expenses of other users behind a not found error
func (s *ExpenseServiceImpl) Get(ctx context.Context, principal *auth.Principal, id uuid.UUID) (*expense.DailyExpense, error) {
	if err := auth.RequireAuthenticated(principal); err != nil {
		return nil, err
	}
	e, err := s.expenseRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.UserID != principal.UserID {
		return nil, shared.NotFoundError{Resource: shared.ResourceDailyExpense, Key: id.String()}
	}
	return e, nil
}
