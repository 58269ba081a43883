package producers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/idealtransport/bol-ledger/internal/config"
	"github.com/segmentio/kafka-go"
)

// HeaderEventType names the event carried by a message
const HeaderEventType = "event-type"

// PaymentEventProducer writes payment events keyed by bill of lading id. The
// hash balancer keeps all events of one bill on one partition, in order.
type PaymentEventProducer struct {
	logger *slog.Logger
	writer KafkaWriter
	topic  string
}

// NewPaymentEventProducer ensures the topic exists and returns a synchronous producer
func NewPaymentEventProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*PaymentEventProducer, error) {
	if cfg.PaymentTopic == "" {
		return nil, fmt.Errorf("kafka payment topic is not configured")
	}

	conn, err := kafka.DialContext(ctx, "tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for payment producer: %w", err)
	}
	defer conn.Close()

	if err := ensureTopic(conn, cfg.PaymentTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger); err != nil {
		return nil, fmt.Errorf("failed to ensure payment topic %s exists: %w", cfg.PaymentTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.PaymentTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false, // the outbox marks a message processed only after the broker acks
		WriteTimeout: cfg.MaxWait,
	}

	return &PaymentEventProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.PaymentTopic,
	}, nil
}

func (p *PaymentEventProducer) Publish(ctx context.Context, key string, eventType string, payload []byte) error {
	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: HeaderEventType, Value: []byte(eventType)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish payment event",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish payment event to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published payment event",
		"topic", p.topic,
		"key", key,
		"event_type", eventType,
	)
	return nil
}

func (p *PaymentEventProducer) Close() error {
	p.logger.Info("Closing payment event producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
