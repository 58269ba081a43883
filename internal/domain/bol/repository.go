package bol

import (
	"context"
	"iter"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Repository defines bill of lading persistence operations
type Repository interface {
	Create(ctx context.Context, b *BillOfLading) error
	GetByID(ctx context.Context, id uuid.UUID) (*BillOfLading, error)
	GetByWorkOrderNo(ctx context.Context, workOrderNo string) (*BillOfLading, error)
	List(ctx context.Context, limit, offset int) ([]*BillOfLading, error)

	// Update rewrites descriptive fields, line items and amounts
	Update(ctx context.Context, b *BillOfLading) error

	// UpdateBalances writes the payment amounts of a locked bill
	UpdateBalances(ctx context.Context, id uuid.UUID, totalCollected, dueAmount decimal.Decimal) error

	// Delete fails with a conflict when ledger entries reference the bill
	Delete(ctx context.Context, id uuid.UUID) error

	// LockForUpdate acquires a row lock held until the surrounding transaction ends
	LockForUpdate(ctx context.Context, id uuid.UUID) (*BillOfLading, error)
	LockByWorkOrderNo(ctx context.Context, workOrderNo string) (*BillOfLading, error)

	// LockForShare reads the bill and keeps payments from changing it until
	// the surrounding transaction ends
	LockForShare(ctx context.Context, id uuid.UUID) (*BillOfLading, error)

	// Pending yields every bill with a positive due amount, oldest first.
	// Each iteration runs a fresh query.
	Pending(ctx context.Context) iter.Seq2[*WorkOrder, error]

	Summarize(ctx context.Context, from, to time.Time) (*Summary, error)

	AddRevision(ctx context.Context, rev *AmountRevision) error
	Revisions(ctx context.Context, bolID uuid.UUID) ([]*AmountRevision, error)

	WithTx(tx pgx.Tx) Repository
}
