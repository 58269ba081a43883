package shared

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ValidationError indicates malformed input to a create or edit operation
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is matches any ValidationError when the target field is empty
func (e ValidationError) Is(target error) bool {
	t, ok := target.(ValidationError)
	if !ok {
		return false
	}
	return t.Field == "" || t.Field == e.Field
}

// InvalidAmountError indicates a payment amount that is zero or negative
type InvalidAmountError struct {
	Amount decimal.Decimal
}

func (e InvalidAmountError) Error() string {
	return fmt.Sprintf("payment amount must be greater than zero, got %s", e.Amount.StringFixed(2))
}

func (e InvalidAmountError) Is(target error) bool {
	_, ok := target.(InvalidAmountError)
	return ok
}

// OverpaymentError indicates a payment larger than the outstanding due amount.
// DueAmount is the maximum amount the caller may resubmit.
type OverpaymentError struct {
	Amount    decimal.Decimal
	DueAmount decimal.Decimal
}

func (e OverpaymentError) Error() string {
	return fmt.Sprintf("payment amount %s exceeds remaining due amount %s",
		e.Amount.StringFixed(2), e.DueAmount.StringFixed(2))
}

func (e OverpaymentError) Is(target error) bool {
	_, ok := target.(OverpaymentError)
	return ok
}

// ConflictError indicates a structural conflict with the current state of a resource
type ConflictError struct {
	Resource string
	ID       string
	Reason   string
}

func (e ConflictError) Error() string {
	return fmt.Sprintf("%s %s conflict: %s", e.Resource, e.ID, e.Reason)
}

// Is matches any ConflictError when the target resource is empty
func (e ConflictError) Is(target error) bool {
	t, ok := target.(ConflictError)
	if !ok {
		return false
	}
	if t.Resource == "" {
		return true
	}
	return t.Resource == e.Resource && (t.ID == "" || t.ID == e.ID)
}

// NotFoundError indicates a reference to a nonexistent resource
type NotFoundError struct {
	Resource string
	Key      string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.Key)
}

// Is matches any NotFoundError when the target resource is empty
func (e NotFoundError) Is(target error) bool {
	t, ok := target.(NotFoundError)
	if !ok {
		return false
	}
	if t.Resource == "" {
		return true
	}
	return t.Resource == e.Resource && (t.Key == "" || t.Key == e.Key)
}

// UnauthenticatedError indicates an operation attempted without a principal
type UnauthenticatedError struct{}

func (UnauthenticatedError) Error() string {
	return "authentication required"
}

// ForbiddenError indicates a principal lacking the capability an operation requires
type ForbiddenError struct {
	UserID     string
	Capability string
}

func (e ForbiddenError) Error() string {
	return fmt.Sprintf("user %s lacks capability %s", e.UserID, e.Capability)
}

func (e ForbiddenError) Is(target error) bool {
	_, ok := target.(ForbiddenError)
	return ok
}
