package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/idealtransport/bol-ledger/internal/domain/shared"
	"github.com/idealtransport/bol-ledger/internal/platform/messaging/consumers"
	"github.com/idealtransport/bol-ledger/internal/platform/messaging/producers"
	"github.com/idealtransport/bol-ledger/internal/projector/service"
	"github.com/segmentio/kafka-go"
)

// PaymentEventHandler feeds payment events from Kafka into the statement projection
type PaymentEventHandler struct {
	projection service.ProjectionService
	logger     *slog.Logger
}

func NewPaymentEventHandler(logger *slog.Logger, projection service.ProjectionService) *PaymentEventHandler {
	return &PaymentEventHandler{
		projection: projection,
		logger:     logger,
	}
}

// HandleMessage satisfies consumers.MessageHandler. Undecodable events and
// events for unknown bills are permanent failures; anything else is retried.
func (h *PaymentEventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	if eventType := headerValue(msg, producers.HeaderEventType); eventType != "" && eventType != string(shared.EventTypePaymentApplied) {
		h.logger.Debug("Skipping event", "event_type", eventType, "offset", msg.Offset)
		return nil
	}

	var event shared.PaymentAppliedEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		h.logger.Error("Failed to unmarshal payment event",
			"error", err,
			"message_key", string(msg.Key),
		)
		return consumers.Permanent(fmt.Errorf("failed to unmarshal payment event: %w", err))
	}
	if event.BOLID == uuid.Nil {
		return consumers.Permanent(fmt.Errorf("payment event %s has no bill of lading", event.EventID))
	}

	logger := h.logger
	if event.CorrelationID != "" {
		logger = h.logger.With("correlation_id", event.CorrelationID)
	}
	logger.Info("Received payment event",
		"event_id", event.EventID.String(),
		"bol_id", event.BOLID.String(),
		"amount", event.Amount.String(),
	)

	if err := h.projection.Project(ctx, &event); err != nil {
		if errors.Is(err, shared.NotFoundError{}) {
			return consumers.Permanent(fmt.Errorf("projecting event %s: %w", event.EventID, err))
		}
		return fmt.Errorf("projecting event %s: %w", event.EventID, err)
	}
	return nil
}

func headerValue(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
