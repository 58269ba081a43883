// Package config provides configuration structures and validation for the application.
// Values come from an optional .env file, environment variables and defaults, and are
// validated once during start-up.
package config

import (
	"errors"
	"strings"
	"time"
)

// Config holds the complete application configuration with settings for all components.
// Both binaries load the same structure; each uses the sections it needs.
type Config struct {
	Application ApplicationConfig
	Logging     LoggingConfig
	Server      ServerConfig
	Auth        AuthConfig
	Kafka       KafkaConfig
	Postgres    PostgresConfig
	MongoDB     MongoDBConfig
	Redis       RedisConfig
	Outbox      OutboxConfig
	WorkerPool  WorkerPoolConfig
	Metrics     MetricsConfig
	Renderer    RendererConfig
	Storage     StorageConfig
}

// ApplicationConfig contains general application configuration
type ApplicationConfig struct {
	Env  string
	Name string
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port            int           // Port to listen on
	ShutdownTimeout time.Duration // Grace period for server shutdown
	ReadTimeout     time.Duration // Maximum duration for reading entire request
	WriteTimeout    time.Duration // Maximum duration for writing response
	IdleTimeout     time.Duration // Maximum duration to wait for next request
}

// AuthConfig contains bearer token and role policy settings
type AuthConfig struct {
	JWTSecret        string
	JWTIssuer        string // Optional; checked against the iss claim when set
	RoleCapabilities string // role=cap|cap;role2=cap, empty for the built-in policy
}

// KafkaConfig contains Kafka configuration
type KafkaConfig struct {
	Brokers           string
	PaymentTopic      string
	NumPartitions     int
	ReplicationFactor int
	ConsumerGroup     string
	MinBytes          int
	MaxBytes          int
	MaxWait           time.Duration
	StartOffset       int64
	DLQTopic          string
}

// PostgresConfig contains PostgreSQL configuration
type PostgresConfig struct {
	URL             string        // Database connection string
	MaxConns        int32         // Maximum number of open connections
	MinConns        int32         // Minimum number of idle connections
	ConnMaxLifetime time.Duration // Maximum lifetime of a connection
	ConnMaxIdleTime time.Duration // Maximum idle time of a connection
	MigrationsPath  string        // Path to migration files
}

// MongoDBConfig contains MongoDB configuration
type MongoDBConfig struct {
	URI             string
	Database        string
	Timeout         time.Duration
	MaxPoolSize     uint64
	MinPoolSize     uint64
	MaxConnIdleTime time.Duration
}

// RedisConfig contains Redis configuration used for payment idempotency keys
type RedisConfig struct {
	Addrs          []string
	Password       string
	DB             int
	PoolSize       int
	DialTimeout    time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdempotencyTTL time.Duration // How long a completed payment result is replayed
	LockTTL        time.Duration // How long an in-flight key blocks duplicates
}

// OutboxConfig contains outbox pattern configuration
type OutboxConfig struct {
	PollingInterval  time.Duration
	BatchSize        int
	MaxRetryAttempts int
}

// WorkerPoolConfig contains worker pool configuration
type WorkerPoolConfig struct {
	Size int
}

// MetricsConfig contains prometheus settings
type MetricsConfig struct {
	Enabled   bool
	Namespace string
	Addr      string // Listen address of the projector's metrics endpoint
}

// RendererConfig contains the headless browser settings for PDF statements
type RendererConfig struct {
	Enabled bool
	Timeout time.Duration
}

// StorageConfig contains the S3-compatible bucket where rendered statements are archived
type StorageConfig struct {
	Enabled         bool
	Bucket          string
	Endpoint        string // Empty for AWS; set for R2, MinIO and similar
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	PublicBaseURL   string
}

// validate performs validation of all configuration values and reports every
// violation at once
func (c *Config) validate() error {
	var validationErrors []string

	// Validate Server config
	if c.Server.Port <= 0 {
		validationErrors = append(validationErrors, "SERVER_PORT must be greater than 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_SHUTDOWN_TIMEOUT must be greater than 0")
	}
	if c.Server.ReadTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_READ_TIMEOUT must be greater than 0")
	}
	if c.Server.WriteTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_WRITE_TIMEOUT must be greater than 0")
	}
	if c.Server.IdleTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_IDLE_TIMEOUT must be greater than 0")
	}

	// Validate Auth config
	if len(c.Auth.JWTSecret) < 32 {
		validationErrors = append(validationErrors, "AUTH_JWT_SECRET must be at least 32 characters")
	}

	// Validate Kafka config
	if len(c.Kafka.Brokers) == 0 {
		validationErrors = append(validationErrors, "KAFKA_BROKERS is required")
	}
	if c.Kafka.PaymentTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_PAYMENT_TOPIC is required")
	}
	if c.Kafka.ConsumerGroup == "" {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_GROUP is required")
	}
	if c.Kafka.MinBytes <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MIN_BYTES must be greater than 0")
	}
	if c.Kafka.MaxBytes <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_BYTES must be greater than 0")
	}
	if c.Kafka.MaxWait <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_WAIT must be greater than 0")
	}
	if c.Kafka.DLQTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_DLQ_TOPIC is required")
	}

	// Validate PostgreSQL config
	if c.Postgres.URL == "" {
		validationErrors = append(validationErrors, "POSTGRES_URL is required")
	}
	if c.Postgres.MaxConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONNS must be greater than 0")
	}
	if c.Postgres.MinConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MIN_CONNS must be greater than 0")
	}
	if c.Postgres.ConnMaxLifetime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_LIFETIME must be greater than 0")
	}
	if c.Postgres.ConnMaxIdleTime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	// Validate MongoDB config
	if c.MongoDB.URI == "" {
		validationErrors = append(validationErrors, "MONGO_URI is required")
	}
	if c.MongoDB.Database == "" {
		validationErrors = append(validationErrors, "MONGO_DATABASE is required")
	}
	if c.MongoDB.Timeout <= 0 {
		validationErrors = append(validationErrors, "MONGO_TIMEOUT must be greater than 0")
	}
	if c.MongoDB.MaxPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_POOL_SIZE must be greater than 0")
	}

	// Validate Redis config
	if len(c.Redis.Addrs) == 0 {
		validationErrors = append(validationErrors, "REDIS_ADDRS is required")
	}
	if c.Redis.DialTimeout <= 0 {
		validationErrors = append(validationErrors, "REDIS_DIAL_TIMEOUT must be greater than 0")
	}
	if c.Redis.IdempotencyTTL <= 0 {
		validationErrors = append(validationErrors, "REDIS_IDEMPOTENCY_TTL must be greater than 0")
	}
	if c.Redis.LockTTL <= 0 {
		validationErrors = append(validationErrors, "REDIS_LOCK_TTL must be greater than 0")
	}

	// Validate Outbox config
	if c.Outbox.PollingInterval <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_POLLING_INTERVAL must be greater than 0")
	}
	if c.Outbox.BatchSize <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_BATCH_SIZE must be greater than 0")
	}
	if c.Outbox.MaxRetryAttempts <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_MAX_RETRY_ATTEMPTS must be greater than 0")
	}

	// Validate WorkerPool config
	if c.WorkerPool.Size <= 0 {
		validationErrors = append(validationErrors, "WORKER_POOL_SIZE must be greater than 0")
	}

	if c.Renderer.Enabled && c.Renderer.Timeout <= 0 {
		validationErrors = append(validationErrors, "RENDERER_TIMEOUT must be greater than 0")
	}

	if c.Storage.Enabled {
		if c.Storage.Bucket == "" {
			validationErrors = append(validationErrors, "STORAGE_BUCKET is required when storage is enabled")
		}
		if c.Storage.Region == "" {
			validationErrors = append(validationErrors, "STORAGE_REGION is required when storage is enabled")
		}
		if !c.Renderer.Enabled {
			validationErrors = append(validationErrors, "STORAGE_ENABLED requires RENDERER_ENABLED")
		}
	}

	if len(validationErrors) > 0 {
		return errors.New(strings.Join(validationErrors, ", "))
	}

	return nil
}
