package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/idealtransport/bol-ledger/internal/domain/expense"
	"github.com/idealtransport/bol-ledger/internal/domain/shared"
	"github.com/idealtransport/bol-ledger/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

const expenseColumns = `id, expense_date, diesel_amount, diesel_location, def_amount, def_location,
		other_expense_description, other_expense_amount, other_expense_location, total, user_id, created_at`

// ExpenseRepository implements the expense.Repository interface for PostgreSQL
type ExpenseRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewExpenseRepository(logger *slog.Logger, db *persistence.PostgresDB) expense.Repository {
	return &ExpenseRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *ExpenseRepository) Create(ctx context.Context, e *expense.DailyExpense) error {
	query := `
		INSERT INTO daily_expenses (` + expenseColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.querier.Exec(ctx, query,
		e.ID,
		e.Date,
		e.DieselAmount,
		e.DieselLocation,
		e.DEFAmount,
		e.DEFLocation,
		e.OtherDescription,
		e.OtherAmount,
		e.OtherLocation,
		e.Total,
		e.UserID,
		e.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create daily expense", "id", e.ID.String(), "user_id", e.UserID, "error", err)
		return fmt.Errorf("failed to create daily expense: %w", err)
	}
	return nil
}

func (r *ExpenseRepository) GetByID(ctx context.Context, id uuid.UUID) (*expense.DailyExpense, error) {
	query := `SELECT ` + expenseColumns + ` FROM daily_expenses WHERE id = $1`

	e, err := scanExpense(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.NotFoundError{Resource: shared.ResourceDailyExpense, Key: id.String()}
		}
		r.logger.Error("Failed to get daily expense", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get daily expense: %w", err)
	}
	return e, nil
}

func (r *ExpenseRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*expense.DailyExpense, error) {
	query := `
		SELECT ` + expenseColumns + `
		FROM daily_expenses
		WHERE user_id = $1
		ORDER BY expense_date DESC, created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.querier.Query(ctx, query, userID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list daily expenses", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to list daily expenses: %w", err)
	}
	defer rows.Close()

	expenses := []*expense.DailyExpense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan daily expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over daily expenses: %w", err)
	}
	return expenses, nil
}

func scanExpense(row pgx.Row) (*expense.DailyExpense, error) {
	var e expense.DailyExpense
	err := row.Scan(
		&e.ID,
		&e.Date,
		&e.DieselAmount,
		&e.DieselLocation,
		&e.DEFAmount,
		&e.DEFLocation,
		&e.OtherDescription,
		&e.OtherAmount,
		&e.OtherLocation,
		&e.Total,
		&e.UserID,
		&e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
