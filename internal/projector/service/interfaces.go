// Package service keeps the statement read-model in step with the ledger.
package service

import (
	"context"

	"github.com/idealtransport/bol-ledger/internal/domain/shared"
)

// ProjectionService projects one payment event into the statement read-model
type ProjectionService interface {
	Project(ctx context.Context, event *shared.PaymentAppliedEvent) error
}
