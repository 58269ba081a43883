package reconciliation

import (
	"context"
	"errors"
	"log/slog"

	"github.com/idealtransport/bol-ledger/internal/domain/shared"
	"github.com/idealtransport/bol-ledger/internal/platform/metrics"
)

type RejectionRecorderImpl struct {
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewRejectionRecorder counts rejections on m; m may be nil
func NewRejectionRecorder(m *metrics.Metrics, logger *slog.Logger) RejectionRecorder {
	return &RejectionRecorderImpl{
		metrics: m,
		logger:  logger,
	}
}

// RecordRejection logs and counts a refused payment. Nothing is written to the
// ledger for it.
func (r *RejectionRecorderImpl) RecordRejection(_ context.Context, request *PaymentRequest, err error) {
	logger := r.logger
	if request.CorrelationID != "" {
		logger = r.logger.With("correlation_id", request.CorrelationID)
	}

	reason := RejectionReason(err)
	if reason == metrics.ReasonError {
		logger.Error("Payment failed", "bol", request.reference(), "amount", request.Amount.String(), "error", err)
	} else {
		logger.Info("Payment rejected", "bol", request.reference(), "amount", request.Amount.String(), "reason", reason)
	}

	if r.metrics != nil {
		r.metrics.PaymentRejected(reason)
	}
}

// RejectionReason classifies err into a metrics reason label
func RejectionReason(err error) string {
	var (
		invalid     shared.InvalidAmountError
		overpayment shared.OverpaymentError
		notFound    shared.NotFoundError
		forbidden   shared.ForbiddenError
		unauth      shared.UnauthenticatedError
		validation  shared.ValidationError
	)
	switch {
	case errors.As(err, &invalid):
		return metrics.ReasonInvalidAmount
	case errors.As(err, &overpayment):
		return metrics.ReasonOverpayment
	case errors.As(err, &notFound):
		return metrics.ReasonNotFound
	case errors.As(err, &forbidden), errors.As(err, &unauth):
		return metrics.ReasonForbidden
	case errors.As(err, &validation):
		return metrics.ReasonValidation
	default:
		return metrics.ReasonError
	}
}
