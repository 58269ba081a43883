package bol

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/idealtransport/bol-ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Party is a pickup or delivery location on a bill of lading
type Party struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Phone   string `json:"phone"`
}

// Broker is the broker who arranged the load
type Broker struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

// Signature is an agent sign-off. ImageRef points at the stored raster image.
type Signature struct {
	AgentName string     `json:"agent_name"`
	ImageRef  string     `json:"image_ref,omitempty"`
	Date      *time.Time `json:"date,omitempty"`
}

// Signatures holds the three sign-offs collected during a job
type Signatures struct {
	Pickup   Signature `json:"pickup"`
	Delivery Signature `json:"delivery"`
	Receiver Signature `json:"receiver"`
}

// Metadata holds the descriptive fields of a bill of lading
type Metadata struct {
	DriverName     string     `json:"driver_name"`
	Date           time.Time  `json:"date"`
	WorkOrderNo    string     `json:"work_order_no,omitempty"`
	Pickup         Party      `json:"pickup"`
	Delivery       Party      `json:"delivery"`
	Broker         Broker     `json:"broker"`
	ConditionCodes string     `json:"condition_codes,omitempty"`
	Remarks        string     `json:"remarks,omitempty"`
	Signatures     Signatures `json:"signatures"`
}

func (m Metadata) validate() error {
	if strings.TrimSpace(m.DriverName) == "" {
		return shared.ValidationError{Field: "driver_name", Reason: "is required"}
	}
	if m.Date.IsZero() {
		return shared.ValidationError{Field: "date", Reason: "is required"}
	}
	if err := checkLength("driver_name", m.DriverName, maxDriverNameLen); err != nil {
		return err
	}
	return checkLength("work_order_no", strings.TrimSpace(m.WorkOrderNo), maxWorkOrderNoLen)
}

// BillOfLading is a single transportation job and its payment state.
// TotalAmount always equals TotalCollected + DueAmount.
type BillOfLading struct {
	ID uuid.UUID `json:"id"`
	Metadata
	Vehicles       []Vehicle       `json:"vehicles"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	TotalCollected decimal.Decimal `json:"total_collected"`
	DueAmount      decimal.Decimal `json:"due_amount"`
	CreatedBy      string          `json:"created_by"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// New creates a bill of lading whose full total is still due
func New(metadata Metadata, vehicles []Vehicle, createdBy string) (*BillOfLading, error) {
	if err := metadata.validate(); err != nil {
		return nil, err
	}
	if err := validateVehicles(vehicles); err != nil {
		return nil, err
	}

	metadata.WorkOrderNo = strings.TrimSpace(metadata.WorkOrderNo)
	vehicles = normalizeVehicles(vehicles)
	total := TotalPrice(vehicles)
	now := time.Now().UTC()

	return &BillOfLading{
		ID:             uuid.New(),
		Metadata:       metadata,
		Vehicles:       vehicles,
		TotalAmount:    total,
		TotalCollected: decimal.Zero,
		DueAmount:      total,
		CreatedBy:      createdBy,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// Change describes an edit. Nil fields are left untouched.
type Change struct {
	Metadata *Metadata
	Vehicles []Vehicle
}

// Edit applies a change to the descriptive fields and line items.
// A revision is returned when the total amount changed. The bill is left
// untouched when an error is returned.
func (b *BillOfLading) Edit(change Change, editedBy string) (*AmountRevision, error) {
	metadata := b.Metadata
	if change.Metadata != nil {
		if err := change.Metadata.validate(); err != nil {
			return nil, err
		}
		metadata = *change.Metadata
		metadata.WorkOrderNo = strings.TrimSpace(metadata.WorkOrderNo)
	}

	vehicles := b.Vehicles
	total := b.TotalAmount
	if change.Vehicles != nil {
		if err := validateVehicles(change.Vehicles); err != nil {
			return nil, err
		}
		vehicles = normalizeVehicles(change.Vehicles)
		total = TotalPrice(vehicles)
	}

	if total.LessThan(b.TotalCollected) {
		return nil, shared.ConflictError{
			Resource: shared.ResourceBillOfLading,
			ID:       b.ID.String(),
			Reason: fmt.Sprintf("total amount %s would be below collected amount %s",
				total.StringFixed(MoneyPlaces), b.TotalCollected.StringFixed(MoneyPlaces)),
		}
	}

	var revision *AmountRevision
	if !total.Equal(b.TotalAmount) {
		revision = NewAmountRevision(b.ID, b.TotalAmount, total, editedBy)
	}

	b.Metadata = metadata
	b.Vehicles = vehicles
	b.TotalAmount = total
	b.DueAmount = clampDue(total.Sub(b.TotalCollected))
	b.UpdatedAt = time.Now().UTC()
	return revision, nil
}

// ApplyPayment moves amount from due to collected. The amount is rounded to cents first.
// Nothing changes when an error is returned.
func (b *BillOfLading) ApplyPayment(amount decimal.Decimal) (decimal.Decimal, error) {
	amount = RoundMoney(amount)
	if !amount.IsPositive() {
		return amount, shared.InvalidAmountError{Amount: amount}
	}
	if amount.GreaterThan(b.DueAmount) {
		return amount, shared.OverpaymentError{Amount: amount, DueAmount: b.DueAmount}
	}

	b.TotalCollected = b.TotalCollected.Add(amount)
	b.DueAmount = clampDue(b.DueAmount.Sub(amount))
	b.UpdatedAt = time.Now().UTC()
	return amount, nil
}

// IsFullyPaid reports whether nothing remains due
func (b *BillOfLading) IsFullyPaid() bool {
	return !b.DueAmount.IsPositive()
}

// PaymentStatus derives the payment status from the amounts
func (b *BillOfLading) PaymentStatus() shared.PaymentStatus {
	switch {
	case b.IsFullyPaid():
		return shared.PaymentStatusPaid
	case b.TotalCollected.IsPositive():
		return shared.PaymentStatusPartial
	default:
		return shared.PaymentStatusPending
	}
}

// PaymentPercentage is the collected share of the total, 0 to 100 with two decimals
func (b *BillOfLading) PaymentPercentage() decimal.Decimal {
	if !b.TotalAmount.IsPositive() {
		return decimal.Zero
	}
	return b.TotalCollected.Div(b.TotalAmount).Mul(decimal.NewFromInt(100)).Round(2)
}

// CheckBalances verifies the amount invariants of the bill
func (b *BillOfLading) CheckBalances() error {
	if !withinTolerance(b.TotalAmount, TotalPrice(b.Vehicles)) {
		return fmt.Errorf("total amount %s does not match vehicle prices %s", b.TotalAmount, TotalPrice(b.Vehicles))
	}
	if !withinTolerance(b.TotalCollected.Add(b.DueAmount), b.TotalAmount) {
		return fmt.Errorf("collected %s plus due %s does not match total %s", b.TotalCollected, b.DueAmount, b.TotalAmount)
	}
	if b.DueAmount.IsNegative() || b.TotalCollected.IsNegative() {
		return fmt.Errorf("negative balance: collected %s, due %s", b.TotalCollected, b.DueAmount)
	}
	return nil
}
