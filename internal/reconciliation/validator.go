package reconciliation

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/idealtransport/bol-ledger/internal/domain/bol"
	"github.com/idealtransport/bol-ledger/internal/domain/ledger"
	"github.com/idealtransport/bol-ledger/internal/domain/shared"
)

type PaymentValidatorImpl struct {
	logger *slog.Logger
}

func NewPaymentValidator(logger *slog.Logger) PaymentValidator {
	return &PaymentValidatorImpl{logger: logger}
}

// Validate rejects non-positive amounts first, then unknown payment types and
// missing bill references. It normalizes the amount, payment type and work order number.
func (v *PaymentValidatorImpl) Validate(_ context.Context, request *PaymentRequest) error {
	logger := v.logger
	if request.CorrelationID != "" {
		logger = v.logger.With("correlation_id", request.CorrelationID)
	}

	request.Amount = bol.RoundMoney(request.Amount)
	if !request.Amount.IsPositive() {
		logger.Warn("Invalid payment amount", "bol", request.reference(), "amount", request.Amount.String())
		return shared.InvalidAmountError{Amount: request.Amount}
	}

	paymentType, err := ledger.ParsePaymentType(string(request.PaymentType))
	if err != nil {
		logger.Warn("Invalid payment type", "bol", request.reference(), "payment_type", request.PaymentType)
		return err
	}
	request.PaymentType = paymentType

	request.WorkOrderNo = strings.TrimSpace(request.WorkOrderNo)
	if request.BOLID == uuid.Nil && request.WorkOrderNo == "" {
		return shared.ValidationError{Field: "bol_id", Reason: "bol_id or work_order_no is required"}
	}

	return nil
}
