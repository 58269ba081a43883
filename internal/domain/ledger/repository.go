package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository is the append-only store of ledger entries
type Repository interface {
	Append(ctx context.Context, entry *Entry) error
	GetByID(ctx context.Context, id uuid.UUID) (*Entry, error)

	// ListByBOL returns entries in creation order
	ListByBOL(ctx context.Context, bolID uuid.UUID) ([]*Entry, error)
	CountByBOL(ctx context.Context, bolID uuid.UUID) (int64, error)

	// HistoryByWorkOrderNo joins entries with their bill at read time
	HistoryByWorkOrderNo(ctx context.Context, workOrderNo string) ([]*History, error)

	// ListByUser returns the entries recorded by userID, newest first
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*History, error)

	WithTx(tx pgx.Tx) Repository
}
