package producers

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	topicReadAttempts = 5
	topicReadBackoff  = 2 * time.Second
)

// TopicConn is the part of kafka.Conn needed to manage topics
type TopicConn interface {
	ReadPartitions(topics ...string) ([]kafka.Partition, error)
	CreateTopics(topics ...kafka.TopicConfig) error
}

// ensureTopic creates topic when its partitions cannot be read
func ensureTopic(conn TopicConn, topic string, numPartitions, replicationFactor int, log *slog.Logger) error {
	var partitions []kafka.Partition
	var err error

	for attempt := 1; attempt <= topicReadAttempts; attempt++ {
		partitions, err = conn.ReadPartitions(topic)
		if err == nil && len(partitions) > 0 {
			log.Info("Kafka topic already exists", "topic", topic, "partitions", len(partitions))
			return nil
		}
		if err == nil {
			break
		}
		log.Warn("Failed to read partitions, retrying", "topic", topic, "attempt", attempt, "error", err)
		if attempt < topicReadAttempts {
			time.Sleep(topicReadBackoff)
		}
	}

	topicConfig := kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     max(numPartitions, 1),
		ReplicationFactor: max(replicationFactor, 1),
	}
	if err := conn.CreateTopics(topicConfig); err != nil {
		return fmt.Errorf("failed to create kafka topic %s: %w", topic, err)
	}
	log.Info("Created Kafka topic", "topic", topic, "partitions", topicConfig.NumPartitions)
	return nil
}
