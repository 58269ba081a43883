package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/idealtransport/bol-ledger/internal/domain/bol"
	"github.com/idealtransport/bol-ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PaymentType is the instrument a payment was made with
type PaymentType string

const (
	PaymentTypeCash         PaymentType = "CASH"
	PaymentTypeCreditCard   PaymentType = "CREDIT_CARD"
	PaymentTypeBankTransfer PaymentType = "BANK_TRANSFER"
	PaymentTypeCheck        PaymentType = "CHECK"
	PaymentTypeZelle        PaymentType = "ZELLE"
)

// ParsePaymentType accepts the enumeration case-insensitively
func ParsePaymentType(s string) (PaymentType, error) {
	pt := PaymentType(strings.ToUpper(strings.TrimSpace(s)))
	switch pt {
	case PaymentTypeCash, PaymentTypeCreditCard, PaymentTypeBankTransfer, PaymentTypeCheck, PaymentTypeZelle:
		return pt, nil
	}
	return "", shared.ValidationError{Field: "payment_type", Reason: fmt.Sprintf("unsupported value %q", s)}
}

// Details carries the operator supplied fields of a payment
type Details struct {
	Date            time.Time
	PickupLocation  string
	DropoffLocation string
	Comments        string
}

// Entry is one immutable payment recorded against a bill of lading.
// DueAmount is the bill's due amount after this payment.
type Entry struct {
	ID              uuid.UUID       `json:"id"`
	BOLID           uuid.UUID       `json:"bol_id"`
	Date            time.Time       `json:"date"`
	WorkOrderNo     string          `json:"work_order_no,omitempty"`
	CollectedAmount decimal.Decimal `json:"collected_amount"`
	DueAmount       decimal.Decimal `json:"due_amount"`
	PaymentType     PaymentType     `json:"payment_type"`
	PickupLocation  string          `json:"pickup_location,omitempty"`
	DropoffLocation string          `json:"dropoff_location,omitempty"`
	Comments        string          `json:"comments,omitempty"`
	UserID          string          `json:"user_id"`
	CreatedAt       time.Time       `json:"created_at"`
}

// NewEntry records a payment already applied to b
func NewEntry(b *bol.BillOfLading, amount decimal.Decimal, paymentType PaymentType, details Details, userID string) *Entry {
	now := time.Now().UTC()
	date := details.Date
	if date.IsZero() {
		date = now
	}
	return &Entry{
		ID:              uuid.New(),
		BOLID:           b.ID,
		Date:            date,
		WorkOrderNo:     b.WorkOrderNo,
		CollectedAmount: amount,
		DueAmount:       b.DueAmount,
		PaymentType:     paymentType,
		PickupLocation:  details.PickupLocation,
		DropoffLocation: details.DropoffLocation,
		Comments:        details.Comments,
		UserID:          userID,
		CreatedAt:       now,
	}
}

// History is a ledger entry joined with the current fields of its bill
type History struct {
	Entry
	CurrentWorkOrderNo string `json:"current_work_order_no"`
	DriverName         string `json:"driver_name"`
	BrokerName         string `json:"broker_name,omitempty"`
	BrokerAddress      string `json:"broker_address,omitempty"`
	BrokerPhone        string `json:"broker_phone,omitempty"`
	PickupCity         string `json:"pickup_city,omitempty"`
	DeliveryCity       string `json:"delivery_city,omitempty"`
}

// Sum totals the collected amounts of entries
func Sum(entries []*Entry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.CollectedAmount)
	}
	return total
}
