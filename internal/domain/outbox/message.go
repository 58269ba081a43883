package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/idealtransport/bol-ledger/internal/domain/shared"
)

// Message stores an event until it has been published
type Message struct {
	ID            int64               `json:"id"`
	EventID       uuid.UUID           `json:"event_id"`
	BOLID         uuid.UUID           `json:"bol_id"`
	EventType     shared.EventType    `json:"event_type"`
	Payload       json.RawMessage     `json:"payload"`
	Status        shared.OutboxStatus `json:"status"`
	Attempts      int                 `json:"attempts"`
	CreatedAt     time.Time           `json:"created_at"`
	LastAttemptAt *time.Time          `json:"last_attempt_at,omitempty"`
}

func NewPaymentAppliedMessage(event *shared.PaymentAppliedEvent) (*Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}

	return &Message{
		EventID:   event.EventID,
		BOLID:     event.BOLID,
		EventType: shared.EventTypePaymentApplied,
		Payload:   payload,
		Status:    shared.OutboxStatusPending,
		CreatedAt: time.Now().UTC(),
	}, nil
}

func (m *Message) IncrementAttempts() {
	m.Attempts++
	now := time.Now().UTC()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsProcessed() {
	m.Status = shared.OutboxStatusProcessed
	now := time.Now().UTC()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsFailed() {
	m.Status = shared.OutboxStatusFailedToPublish
	now := time.Now().UTC()
	m.LastAttemptAt = &now
}

// PaymentEvent decodes the payload of a payment.applied message
func (m *Message) PaymentEvent() (*shared.PaymentAppliedEvent, error) {
	var event shared.PaymentAppliedEvent
	if err := json.Unmarshal(m.Payload, &event); err != nil {
		return nil, err
	}
	return &event, nil
}
