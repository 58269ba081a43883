package shared

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentAppliedEvent is published after a payment has been committed against a bill of lading
type PaymentAppliedEvent struct {
	EventID        uuid.UUID       `json:"event_id"`
	EntryID        uuid.UUID       `json:"entry_id"`
	BOLID          uuid.UUID       `json:"bol_id"`
	WorkOrderNo    string          `json:"work_order_no,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	TotalCollected decimal.Decimal `json:"total_collected"`
	DueAmount      decimal.Decimal `json:"due_amount"`
	PaymentType    string          `json:"payment_type"`
	UserID         string          `json:"user_id"`
	CorrelationID  string          `json:"correlation_id,omitempty"`
	OccurredAt     time.Time       `json:"occurred_at"`
}
