package expense

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/idealtransport/bol-ledger/internal/domain/bol"
	"github.com/idealtransport/bol-ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

const maxTextLen = 255

// Input is what a driver reports for one day. Total is optional; when set it
// must match the sum of the amounts.
type Input struct {
	Date             time.Time
	DieselAmount     decimal.Decimal
	DieselLocation   string
	DEFAmount        decimal.Decimal
	DEFLocation      string
	OtherDescription string
	OtherAmount      decimal.Decimal
	OtherLocation    string
	Total            *decimal.Decimal
}

// DailyExpense is a driver's fuel and incidental spend for one day.
// Total always equals DieselAmount + DEFAmount + OtherAmount.
type DailyExpense struct {
	ID               uuid.UUID       `json:"id"`
	Date             time.Time       `json:"date"`
	DieselAmount     decimal.Decimal `json:"diesel_amount"`
	DieselLocation   string          `json:"diesel_location"`
	DEFAmount        decimal.Decimal `json:"def_amount"`
	DEFLocation      string          `json:"def_location"`
	OtherDescription string          `json:"other_expense_description,omitempty"`
	OtherAmount      decimal.Decimal `json:"other_expense_amount"`
	OtherLocation    string          `json:"other_expense_location,omitempty"`
	Total            decimal.Decimal `json:"total"`
	UserID           string          `json:"user_id"`
	CreatedAt        time.Time       `json:"created_at"`
}

// New validates in and derives the total. Amounts are rounded to cents.
func New(in Input, userID string) (*DailyExpense, error) {
	if in.Date.IsZero() {
		return nil, shared.ValidationError{Field: "date", Reason: "is required"}
	}

	e := &DailyExpense{
		ID:               uuid.New(),
		Date:             in.Date.UTC().Truncate(24 * time.Hour),
		DieselAmount:     bol.RoundMoney(in.DieselAmount),
		DieselLocation:   strings.TrimSpace(in.DieselLocation),
		DEFAmount:        bol.RoundMoney(in.DEFAmount),
		DEFLocation:      strings.TrimSpace(in.DEFLocation),
		OtherDescription: strings.TrimSpace(in.OtherDescription),
		OtherAmount:      bol.RoundMoney(in.OtherAmount),
		OtherLocation:    strings.TrimSpace(in.OtherLocation),
		UserID:           userID,
		CreatedAt:        time.Now().UTC(),
	}

	for _, a := range []struct {
		field    string
		amount   decimal.Decimal
		location string
	}{
		{"diesel", e.DieselAmount, e.DieselLocation},
		{"def", e.DEFAmount, e.DEFLocation},
		{"other_expense", e.OtherAmount, e.OtherLocation},
	} {
		if a.amount.IsNegative() {
			return nil, shared.ValidationError{Field: a.field + "_amount", Reason: "must not be negative"}
		}
		if a.amount.IsPositive() && a.location == "" {
			return nil, shared.ValidationError{Field: a.field + "_location", Reason: "is required when an amount is spent"}
		}
	}
	if e.OtherAmount.IsPositive() && e.OtherDescription == "" {
		return nil, shared.ValidationError{Field: "other_expense_description", Reason: "is required when an amount is spent"}
	}

	for _, f := range []struct{ field, value string }{
		{"diesel_location", e.DieselLocation},
		{"def_location", e.DEFLocation},
		{"other_expense_description", e.OtherDescription},
		{"other_expense_location", e.OtherLocation},
	} {
		if utf8.RuneCountInString(f.value) > maxTextLen {
			return nil, shared.ValidationError{Field: f.field, Reason: fmt.Sprintf("must be at most %d characters", maxTextLen)}
		}
	}

	e.Total = e.DieselAmount.Add(e.DEFAmount).Add(e.OtherAmount)
	if e.Total.GreaterThan(bol.MaxAmount) {
		return nil, shared.ValidationError{Field: "total", Reason: "exceeds " + bol.MaxAmount.StringFixed(bol.MoneyPlaces)}
	}
	if in.Total != nil && !bol.RoundMoney(*in.Total).Equal(e.Total) {
		return nil, shared.ValidationError{
			Field:  "total",
			Reason: fmt.Sprintf("must equal the sum of the amounts (%s)", e.Total.StringFixed(bol.MoneyPlaces)),
		}
	}
	return e, nil
}
