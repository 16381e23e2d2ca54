package backend

import (
	"context"
	"fmt"

	"expensetracker/internal/events"
	amqpevents "expensetracker/internal/events/amqp"
	kafkaevents "expensetracker/internal/events/kafka"
	applog "expensetracker/internal/log"
	"expensetracker/internal/storage"
	"expensetracker/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(applog.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case PostgresBackend:
		return f.createPostgresBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{Store: repo, Cleanup: repo.Close}, nil
}

func (f *DefaultFactory) createPostgresBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := storage.NewPostgresRepository(ctx, config.Postgres, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL repository: %w", err)
	}

	f.logger.Info("Initialized PostgreSQL backend",
		"max_conns", config.Postgres.MaxConns,
		"min_conns", config.Postgres.MinConns)

	return &BackendResult{Store: repo, Cleanup: repo.Close}, nil
}

func (f *DefaultFactory) createMemoryBackend() (*BackendResult, error) {
	store := memory.New()

	f.logger.Info("Initialized memory backend")

	return &BackendResult{Store: store, Cleanup: store.Close}, nil
}

// CreatePublisher returns the configured event publisher. A broker that
// cannot be reached at startup is logged and replaced by a no-op publisher
// so the API still serves requests.
func (f *DefaultFactory) CreatePublisher(ctx context.Context, config EventsConfig) (events.Publisher, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case AMQPEvents:
		pub, err := amqpevents.NewPublisher(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP publisher, continuing without events",
				applog.NewFields().WithError(err, applog.ErrorTypeNetwork).ToSlice()...)
			return events.Nop{}, nil
		}
		f.logger.InfoContext(ctx, "Initialized AMQP publisher",
			"exchange", config.AMQPExchange,
			"queue", config.AMQPQueue)
		return pub, nil
	case KafkaEvents:
		f.logger.InfoContext(ctx, "Initialized Kafka publisher",
			"brokers", config.KafkaBrokers,
			"topic", config.KafkaTopic)
		return kafkaevents.NewPublisher(config.KafkaBrokers, config.KafkaTopic, f.logger), nil
	default:
		return events.Nop{}, nil
	}
}
