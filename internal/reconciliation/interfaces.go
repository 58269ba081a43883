// Package reconciliation is the only writer of payment state. A payment locks
// its bill of lading, moves the amount from due to collected, appends a ledger
// entry and queues a payment.applied event, all in one database transaction.
package reconciliation

import (
	"context"

	"github.com/google/uuid"
	"github.com/idealtransport/bol-ledger/internal/domain/auth"
	"github.com/idealtransport/bol-ledger/internal/domain/bol"
	"github.com/idealtransport/bol-ledger/internal/domain/ledger"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// PaymentRequest identifies the bill by id or, when BOLID is zero, by work order number
type PaymentRequest struct {
	BOLID         uuid.UUID
	WorkOrderNo   string
	Amount        decimal.Decimal
	PaymentType   ledger.PaymentType
	Details       ledger.Details
	CorrelationID string
}

func (r *PaymentRequest) reference() string {
	if r.BOLID != uuid.Nil {
		return r.BOLID.String()
	}
	return r.WorkOrderNo
}

// Engine applies payments to bills of lading
type Engine interface {
	ApplyPayment(ctx context.Context, principal *auth.Principal, request *PaymentRequest) (*ledger.Entry, error)
}

// PaymentValidator checks a request before any row is locked
type PaymentValidator interface {
	Validate(ctx context.Context, request *PaymentRequest) error
}

// BOLManager locks the bill and applies the payment to its balances
type BOLManager interface {
	LockAndApply(ctx context.Context, tx pgx.Tx, request *PaymentRequest) (*bol.BillOfLading, decimal.Decimal, error)
}

// LedgerRecorder appends the ledger entry of an applied payment
type LedgerRecorder interface {
	Record(ctx context.Context, tx pgx.Tx, b *bol.BillOfLading, amount decimal.Decimal, request *PaymentRequest, userID string) (*ledger.Entry, error)
}

// OutboxManager queues the payment.applied event in the payment's transaction
type OutboxManager interface {
	CreateOutboxEntry(ctx context.Context, tx pgx.Tx, request *PaymentRequest, b *bol.BillOfLading, entry *ledger.Entry) error
}

// RejectionRecorder observes payments that were refused or failed
type RejectionRecorder interface {
	RecordRejection(ctx context.Context, request *PaymentRequest, err error)
}
