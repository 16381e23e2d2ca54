package backend

import (
	"fmt"

	"expensetracker/internal/config"
	"expensetracker/internal/storage"
)

// FromAppConfig converts the application config to backend and events config
func FromAppConfig(appConfig *config.Config) (Config, EventsConfig, error) {
	if appConfig == nil {
		return Config{}, EventsConfig{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, EventsConfig{}, fmt.Errorf("invalid backend type in config: %s (want one of %v)", appConfig.DataBackend, GetBackendTypes())
	}
	eventsType := EventsType(appConfig.EventsBackend)
	if !eventsType.IsValid() {
		return Config{}, EventsConfig{}, fmt.Errorf("invalid events type in config: %s", appConfig.EventsBackend)
	}

	cfg := Config{
		Type:         backendType,
		SQLiteDBPath: appConfig.SQLiteDBPath,
		Postgres: storage.PostgresConfig{
			URL:             appConfig.DatabaseURL,
			MaxConns:        int32(appConfig.DBMaxConns),
			MinConns:        int32(appConfig.DBMinConns),
			MaxConnIdleTime: appConfig.DBMaxConnIdleTime,
		},
	}
	ev := EventsConfig{
		Type:         eventsType,
		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,
		KafkaBrokers: appConfig.KafkaBrokers,
		KafkaTopic:   appConfig.KafkaTopic,
	}
	return cfg, ev, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case PostgresBackend:
		if c.Postgres.URL == "" {
			return fmt.Errorf("database URL is required for postgres backend")
		}
	case MemoryBackend:
	}
	return nil
}

// Validate validates the events configuration
func (c EventsConfig) Validate() error {
	switch c.Type {
	case NoEvents:
	case AMQPEvents:
		if c.AMQPURL == "" || c.AMQPExchange == "" || c.AMQPQueue == "" {
			return fmt.Errorf("AMQP URL, exchange and queue are required for amqp events")
		}
	case KafkaEvents:
		if len(c.KafkaBrokers) == 0 || c.KafkaTopic == "" {
			return fmt.Errorf("Kafka brokers and topic are required for kafka events")
		}
	default:
		return fmt.Errorf("invalid events type: %s", c.Type)
	}
	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{MemoryBackend, SQLiteBackend, PostgresBackend}
}
