package bol

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AmountRevision records a change of a bill's total amount
type AmountRevision struct {
	ID            uuid.UUID       `json:"id"`
	BOLID         uuid.UUID       `json:"bol_id"`
	PreviousTotal decimal.Decimal `json:"previous_total"`
	NewTotal      decimal.Decimal `json:"new_total"`
	ChangedBy     string          `json:"changed_by"`
	ChangedAt     time.Time       `json:"changed_at"`
}

func NewAmountRevision(bolID uuid.UUID, previous, next decimal.Decimal, changedBy string) *AmountRevision {
	return &AmountRevision{
		ID:            uuid.New(),
		BOLID:         bolID,
		PreviousTotal: previous,
		NewTotal:      next,
		ChangedBy:     changedBy,
		ChangedAt:     time.Now().UTC(),
	}
}
