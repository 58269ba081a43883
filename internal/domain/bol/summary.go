package bol

import (
	"time"

	"github.com/google/uuid"
	"github.com/idealtransport/bol-ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// WorkOrder is the pending-pool view of a bill of lading
type WorkOrder struct {
	BOLID          uuid.UUID       `json:"bol_id"`
	WorkOrderNo    string          `json:"work_order_no"`
	DriverName     string          `json:"driver_name"`
	Date           time.Time       `json:"date"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	TotalCollected decimal.Decimal `json:"total_collected"`
	DueAmount      decimal.Decimal `json:"due_amount"`
}

// Summary aggregates billed, collected and outstanding amounts over a date range
type Summary struct {
	From        time.Time                      `json:"from"`
	To          time.Time                      `json:"to"`
	Count       int64                          `json:"count"`
	Billed      decimal.Decimal                `json:"billed"`
	Collected   decimal.Decimal                `json:"collected"`
	Outstanding decimal.Decimal                `json:"outstanding"`
	ByStatus    map[shared.PaymentStatus]int64 `json:"by_status"`
}
