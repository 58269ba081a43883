package producers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/idealtransport/bol-ledger/internal/config"
	"github.com/segmentio/kafka-go"
)

// ErrDLQDisabled is returned when publishing through a producer without a writer
var ErrDLQDisabled = errors.New("dead letter producer not initialized")

// DeadLetter is the envelope written to the dead letter topic
type DeadLetter struct {
	OriginalTopic     string `json:"original_topic"`
	OriginalPartition int    `json:"original_partition"`
	OriginalOffset    int64  `json:"original_offset"`
	OriginalKey       string `json:"original_key"`
	OriginalValue     string `json:"original_value"`
	Reason            string `json:"reason"`
	Timestamp         string `json:"timestamp"`
}

type DLQProducer struct {
	logger   *slog.Logger
	writer   KafkaWriter
	dlqTopic string
}

// NewDLQProducer returns a producer without a writer when cfg.DLQTopic is
// empty; publishing through it fails with ErrDLQDisabled
func NewDLQProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*DLQProducer, error) {
	if cfg.DLQTopic == "" {
		logger.Info("DLQ topic is not configured, dead letters are disabled")
		return &DLQProducer{logger: logger}, nil
	}

	conn, err := kafka.DialContext(ctx, "tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for dlq producer: %w", err)
	}
	defer conn.Close()

	if err := ensureTopic(conn, cfg.DLQTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger); err != nil {
		return nil, fmt.Errorf("failed to ensure DLQ topic %s exists: %w", cfg.DLQTopic, err)
	}

	return &DLQProducer{
		logger: logger,
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers),
			Topic:        cfg.DLQTopic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireAll,
			WriteTimeout: cfg.MaxWait,
		},
		dlqTopic: cfg.DLQTopic,
	}, nil
}

func (p *DLQProducer) PublishToDLQ(ctx context.Context, original kafka.Message, reason string) error {
	if p.writer == nil {
		p.logger.Warn("Dead letters are disabled, dropping message",
			"key", string(original.Key),
			"reason", reason,
		)
		return ErrDLQDisabled
	}

	value, err := json.Marshal(DeadLetter{
		OriginalTopic:     original.Topic,
		OriginalPartition: original.Partition,
		OriginalOffset:    original.Offset,
		OriginalKey:       string(original.Key),
		OriginalValue:     string(original.Value),
		Reason:            reason,
		Timestamp:         time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal dead letter: %w", err)
	}

	headers := append([]kafka.Header{{Key: "dlq-reason", Value: []byte(reason)}}, original.Headers...)
	msg := kafka.Message{
		Key:     original.Key,
		Value:   value,
		Headers: headers,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish dead letter",
			"topic", p.dlqTopic,
			"key", string(original.Key),
			"error", err,
		)
		return fmt.Errorf("failed to publish dead letter to %s: %w", p.dlqTopic, err)
	}

	p.logger.Warn("Published dead letter",
		"topic", p.dlqTopic,
		"key", string(original.Key),
		"reason", reason,
	)
	return nil
}

func (p *DLQProducer) Close() error {
	if p.writer == nil {
		return nil
	}
	p.logger.Info("Closing DLQ producer", "topic", p.dlqTopic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close dlq kafka writer for topic %s: %w", p.dlqTopic, err)
	}
	return nil
}
