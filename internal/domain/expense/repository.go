package expense

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists daily expenses
type Repository interface {
	Create(ctx context.Context, e *DailyExpense) error
	GetByID(ctx context.Context, id uuid.UUID) (*DailyExpense, error)

	// ListByUser returns userID's expenses, latest date first
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*DailyExpense, error)
}
