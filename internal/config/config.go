// Package config provides configuration structures and validation for the
// statement engine. It handles environment-based configuration for all major
// components including the HTTP server, database connections, the statement
// cache, and the resilience and monitoring subsystems.
package config

import (
	"errors"
	"strings"
	"time"
)

// Config holds the complete application configuration with settings for all
// components. Each field represents a major subsystem's configuration and is
// validated during application startup.
type Config struct {
	Application ApplicationConfig
	Logging     LoggingConfig
	Server      ServerConfig
	Postgres    PostgresConfig
	MongoDB     MongoDBConfig
	Kafka       KafkaConfig
	Cache       CacheConfig
	Monitor     MonitorConfig
	Resilience  ResilienceConfig
	Export      ExportConfig
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

// PostgresConfig contains PostgreSQL configuration
type PostgresConfig struct {
	URL             string        // Database connection string
	MaxConns        int32         // Maximum number of open connections
	MinConns        int32         // Maximum number of idle connections
	ConnMaxLifetime time.Duration // Maximum lifetime of a connection
	ConnMaxIdleTime time.Duration // Maximum idle time of a connection
	MigrationsPath  string        // Path to migration files
}

// MongoDBConfig contains MongoDB configuration for the audit archive
type MongoDBConfig struct {
	URI             string
	Database        string
	Timeout         time.Duration
	MaxPoolSize     uint64
	MinPoolSize     uint64
	MaxConnIdleTime time.Duration
}

// KafkaConfig contains Kafka configuration for statement event publishing
type KafkaConfig struct {
	Brokers           string
	StatementTopic    string
	NumPartitions     int // Number of partitions for topics
	ReplicationFactor int // Replication factor for topics
	MaxWait           time.Duration
	DLQTopic          string // Topic for undeliverable statement events
}

// CacheConfig bounds the statement cache
type CacheConfig struct {
	MaxEntries      int
	MaxBytes        int64
	DefaultTTL      time.Duration
	WarmParallelism int // Concurrent generator calls during cache warming
}

// MonitorConfig contains performance monitoring thresholds
type MonitorConfig struct {
	GenerationThreshold time.Duration // Ceiling for statement generation
	ValidationThreshold time.Duration // Ceiling for validation runs
	FailureReportLimit  int           // Failed samples included in reports
}

// ResilienceConfig contains retry configuration
type ResilienceConfig struct {
	MaxRetryAttempts int
}

// ExportConfig contains statement export configuration
type ExportConfig struct {
	OutputDir string // Directory rendered artifacts are written to
	BaseURL   string // Public URL prefix for rendered artifacts
}

// validate performs comprehensive validation of all configuration values,
// ensuring they meet minimum requirements and logical constraints
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
	if c.MongoDB.MinPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MIN_POOL_SIZE must be greater than 0")
	}
	if c.MongoDB.MaxConnIdleTime <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	// Validate Kafka config
	if len(c.Kafka.Brokers) == 0 {
		validationErrors = append(validationErrors, "KAFKA_BROKERS is required")
	}
	if c.Kafka.StatementTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_STATEMENT_TOPIC is required")
	}
	if c.Kafka.MaxWait <= 0 {
		validationErrors = append(validationErrors, "KAFKA_MAX_WAIT must be greater than 0")
	}

	// Validate Cache config
	if c.Cache.MaxEntries <= 0 {
		validationErrors = append(validationErrors, "CACHE_MAX_ENTRIES must be greater than 0")
	}
	if c.Cache.MaxBytes <= 0 {
		validationErrors = append(validationErrors, "CACHE_MAX_BYTES must be greater than 0")
	}
	if c.Cache.DefaultTTL <= 0 {
		validationErrors = append(validationErrors, "CACHE_DEFAULT_TTL must be greater than 0")
	}
	if c.Cache.WarmParallelism <= 0 {
		validationErrors = append(validationErrors, "CACHE_WARM_PARALLELISM must be greater than 0")
	}

	// Validate Monitor config
	if c.Monitor.GenerationThreshold <= 0 {
		validationErrors = append(validationErrors, "MONITOR_GENERATION_THRESHOLD must be greater than 0")
	}
	if c.Monitor.ValidationThreshold <= 0 {
		validationErrors = append(validationErrors, "MONITOR_VALIDATION_THRESHOLD must be greater than 0")
	}
	if c.Monitor.FailureReportLimit <= 0 {
		validationErrors = append(validationErrors, "MONITOR_FAILURE_REPORT_LIMIT must be greater than 0")
	}

	// Validate Resilience config
	if c.Resilience.MaxRetryAttempts <= 0 {
		validationErrors = append(validationErrors, "RESILIENCE_MAX_RETRY_ATTEMPTS must be greater than 0")
	}

	// Validate Export config
	if c.Export.OutputDir == "" {
		validationErrors = append(validationErrors, "EXPORT_OUTPUT_DIR is required")
	}

	if len(validationErrors) > 0 {
		return errors.New(strings.Join(validationErrors, ", "))
	}

	return nil
}
