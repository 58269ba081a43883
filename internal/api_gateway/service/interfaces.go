package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/idealtransport/bol-ledger/internal/domain/auth"
	"github.com/idealtransport/bol-ledger/internal/domain/bol"
	"github.com/idealtransport/bol-ledger/internal/domain/expense"
	"github.com/idealtransport/bol-ledger/internal/domain/ledger"
	"github.com/idealtransport/bol-ledger/internal/domain/statement"
	"github.com/idealtransport/bol-ledger/internal/reconciliation"
)

// BOLService defines bill of lading operations. Every call takes the acting principal.
type BOLService interface {
	// Create requires an authenticated principal
	Create(ctx context.Context, principal *auth.Principal, metadata bol.Metadata, vehicles []bol.Vehicle) (*bol.BillOfLading, error)

	Get(ctx context.Context, principal *auth.Principal, id uuid.UUID) (*bol.BillOfLading, error)

	// List returns bills newest first
	List(ctx context.Context, principal *auth.Principal, limit, offset int) ([]*bol.BillOfLading, error)

	// Edit requires edit_bol. A total amount below the collected amount is a conflict.
	Edit(ctx context.Context, principal *auth.Principal, id uuid.UUID, change bol.Change) (*bol.BillOfLading, error)

	// Delete requires delete_bol and fails with a conflict when payments exist
	Delete(ctx context.Context, principal *auth.Principal, id uuid.UUID) error

	Revisions(ctx context.Context, principal *auth.Principal, id uuid.UUID) ([]*bol.AmountRevision, error)
}

// PaymentService submits payments to the reconciliation engine
type PaymentService interface {
	// Submit applies the payment. With a non-empty idempotency key a previous
	// successful result is replayed; replayed reports whether that happened.
	Submit(ctx context.Context, principal *auth.Principal, idempotencyKey string, request *reconciliation.PaymentRequest) (entry *ledger.Entry, replayed bool, err error)

	// List and Get only see payments recorded by the principal
	List(ctx context.Context, principal *auth.Principal, limit, offset int) ([]*ledger.History, error)
	Get(ctx context.Context, principal *auth.Principal, id uuid.UUID) (*ledger.Entry, error)
}

// ExpenseService records the daily expenses of drivers. Every principal only
// sees the expenses they recorded.
type ExpenseService interface {
	Create(ctx context.Context, principal *auth.Principal, input expense.Input) (*expense.DailyExpense, error)
	List(ctx context.Context, principal *auth.Principal, limit, offset int) ([]*expense.DailyExpense, error)
	Get(ctx context.Context, principal *auth.Principal, id uuid.UUID) (*expense.DailyExpense, error)
}

// StatementService builds statements from committed state
type StatementService interface {
	Snapshot(ctx context.Context, principal *auth.Principal, bolID uuid.UUID) (*statement.Snapshot, error)

	// PDF renders the statement; url is empty unless archiving is enabled
	PDF(ctx context.Context, principal *auth.Principal, bolID uuid.UUID) (pdf []byte, url string, err error)

	// Projected returns the snapshot kept by the ledger projector
	Projected(ctx context.Context, principal *auth.Principal, bolID uuid.UUID) (*statement.Snapshot, error)
}

// ReportService aggregates amounts over bills of lading
type ReportService interface {
	Summary(ctx context.Context, principal *auth.Principal, from, to time.Time) (*bol.Summary, error)
}

// IdempotencyStore is implemented by the redis idempotency store
type IdempotencyStore interface {
	Begin(ctx context.Context, key string) ([]byte, error)
	Complete(ctx context.Context, key string, result []byte) error
	Release(ctx context.Context, key string) error
}

// Renderer turns a statement into a PDF document
type Renderer interface {
	PDF(ctx context.Context, s *statement.Snapshot) ([]byte, error)
}

// Archiver stores rendered documents and returns their URL
type Archiver interface {
	Put(ctx context.Context, key string, body []byte, contentType string) (string, error)
}
