package backend

import (
	"context"

	"expensetracker/internal/events"
	"expensetracker/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the store and the function releasing it
type BackendResult struct {
	Store   storage.ExpenseStore
	Cleanup CleanupFunc
}

// Factory creates stores and event publishers based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
	CreatePublisher(ctx context.Context, config EventsConfig) (events.Publisher, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// PostgreSQL specific
	Postgres storage.PostgresConfig
}

// EventsConfig selects and configures the change event publisher
type EventsConfig struct {
	Type EventsType

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	KafkaBrokers []string
	KafkaTopic   string
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, PostgresBackend:
		return true
	default:
		return false
	}
}

// EventsType names a publisher implementation
type EventsType string

const (
	NoEvents    EventsType = "none"
	AMQPEvents  EventsType = "amqp"
	KafkaEvents EventsType = "kafka"
)

// IsValid returns true if the events type is known
func (et EventsType) IsValid() bool {
	switch et {
	case NoEvents, AMQPEvents, KafkaEvents:
		return true
	default:
		return false
	}
}
