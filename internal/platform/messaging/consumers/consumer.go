package consumers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/idealtransport/bol-ledger/internal/config"
	"github.com/idealtransport/bol-ledger/internal/platform/messaging/producers"
	"github.com/segmentio/kafka-go"
)

const (
	defaultMaxAttempts = 3
	defaultRetryDelay  = 500 * time.Millisecond
	fetchErrorBackoff  = time.Second
)

// MessageHandler processes one fetched message
type MessageHandler func(ctx context.Context, msg kafka.Message) error

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not retryable; the message goes straight to the DLQ
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// KafkaReader wraps kafka.Reader methods for testing
type KafkaReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer defines the message queue consumer interface
type Consumer interface {
	Subscribe(ctx context.Context, handler MessageHandler) error
	Done() <-chan struct{}
	Close() error
}

// KafkaConsumer implements Consumer using Kafka
type KafkaConsumer struct {
	reader      KafkaReader
	dlq         producers.DeadLetterPublisher
	logger      *slog.Logger
	topic       string
	groupID     string
	maxAttempts int
	retryDelay  time.Duration
	done        chan struct{}
}

func NewKafkaConsumer(_ context.Context, logger *slog.Logger, cfg *config.KafkaConfig, dlq producers.DeadLetterPublisher) *KafkaConsumer {
	startOffset := cfg.StartOffset
	if startOffset == 0 {
		startOffset = kafka.FirstOffset
	}

	return newKafkaConsumer(logger, kafka.NewReader(kafka.ReaderConfig{
		Brokers:     []string{cfg.Brokers},
		Topic:       cfg.PaymentTopic,
		GroupID:     cfg.ConsumerGroup,
		MinBytes:    cfg.MinBytes,
		MaxBytes:    cfg.MaxBytes,
		MaxWait:     cfg.MaxWait,
		StartOffset: startOffset,
	}), dlq, cfg.PaymentTopic, cfg.ConsumerGroup)
}

func newKafkaConsumer(logger *slog.Logger, reader KafkaReader, dlq producers.DeadLetterPublisher, topic, groupID string) *KafkaConsumer {
	return &KafkaConsumer{
		reader:      reader,
		dlq:         dlq,
		logger:      logger,
		topic:       topic,
		groupID:     groupID,
		maxAttempts: defaultMaxAttempts,
		retryDelay:  defaultRetryDelay,
		done:        make(chan struct{}),
	}
}

// Subscribe starts consuming in the background; Done is closed when the loop exits
func (c *KafkaConsumer) Subscribe(ctx context.Context, handler MessageHandler) error {
	if handler == nil {
		return fmt.Errorf("message handler is required")
	}

	c.logger.Info("Subscribed to Kafka topic",
		"topic", c.topic,
		"group_id", c.groupID,
	)

	go func() {
		defer close(c.done)
		for {
			msg, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					c.logger.Info("Context canceled, stopping consumer",
						"topic", c.topic,
						"group_id", c.groupID,
					)
					return
				}
				c.logger.Error("Failed to fetch message from Kafka",
					"topic", c.topic,
					"group_id", c.groupID,
					"error", err,
				)
				if !sleepCtx(ctx, fetchErrorBackoff) {
					return
				}
				continue
			}

			c.logger.Debug("Received message from Kafka",
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
				"key", string(msg.Key),
			)

			if !c.process(ctx, handler, msg) {
				return
			}
		}
	}()

	return nil
}

// process returns false when ctx was canceled before the message was settled
func (c *KafkaConsumer) process(ctx context.Context, handler MessageHandler, msg kafka.Message) bool {
	var err error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err = handler(ctx, msg); err == nil || IsPermanent(err) {
			break
		}
		if ctx.Err() != nil {
			return false
		}
		c.logger.Warn("Failed to process message, retrying",
			"topic", msg.Topic,
			"offset", msg.Offset,
			"key", string(msg.Key),
			"attempt", attempt,
			"error", err,
		)
		if attempt < c.maxAttempts && !sleepCtx(ctx, c.retryDelay*time.Duration(attempt)) {
			return false
		}
	}

	if err != nil {
		c.logger.Error("Giving up on message, sending to DLQ",
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
			"key", string(msg.Key),
			"error", err,
		)
		if c.dlq == nil {
			// leave uncommitted so the group redelivers after restart
			return true
		}
		if dlqErr := c.dlq.PublishToDLQ(ctx, msg, err.Error()); dlqErr != nil {
			c.logger.Error("Failed to publish to DLQ, will not commit offset",
				"offset", msg.Offset,
				"error", dlqErr,
			)
			return true
		}
	}

	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		c.logger.Error("Failed to commit message",
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
			"key", string(msg.Key),
			"error", err,
		)
		return ctx.Err() == nil
	}

	c.logger.Debug("Message committed",
		"topic", msg.Topic,
		"offset", msg.Offset,
		"key", string(msg.Key),
	)
	return true
}

func (c *KafkaConsumer) Done() <-chan struct{} {
	return c.done
}

func (c *KafkaConsumer) Close() error {
	if c.reader == nil {
		return nil
	}
	if err := c.reader.Close(); err != nil {
		return fmt.Errorf("failed to close kafka reader for topic %s: %w", c.topic, err)
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
