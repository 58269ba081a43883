package shared

// PaymentStatus is the payment dimension of a bill of lading, derived from its amounts
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusPartial PaymentStatus = "PARTIAL"
	PaymentStatusPaid    PaymentStatus = "PAID"
)

// EventType names the events written to the outbox
type EventType string

const (
	EventTypePaymentApplied EventType = "payment.applied"
)

// OutboxStatus defines message publishing states
type OutboxStatus string

const (
	OutboxStatusPending         OutboxStatus = "PENDING"
	OutboxStatusProcessed       OutboxStatus = "PROCESSED"
	OutboxStatusFailedToPublish OutboxStatus = "FAILED_TO_PUBLISH"
)

// Resource names used in errors
const (
	ResourceBillOfLading = "bill_of_lading"
	ResourceLedgerEntry  = "ledger_entry"
	ResourceWorkOrder    = "work_order"
	ResourceStatement    = "statement"
	ResourceDailyExpense = "daily_expense"
)
