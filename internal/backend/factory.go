package backend

import (
	"context"
	"fmt"

	"fintrack/internal/amqp"
	"fintrack/internal/events"
	"fintrack/internal/events/kafka"
	applog "fintrack/internal/log"
	"fintrack/internal/storage"
	"fintrack/internal/storage/memory"
	"fintrack/internal/storage/sqlstore"
)

// Factory builds stores and event transports from configuration.
type Factory struct {
	logger *applog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) *Factory {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &Factory{logger: logger.WithComponent(applog.ComponentBackend)}
}

// OpenStore opens the configured store and runs its migrations.
func (f *Factory) OpenStore(ctx context.Context, config Config) (*StoreResult, error) {
	if !config.Store.IsValid() {
		return nil, fmt.Errorf("invalid store type: %s", config.Store)
	}

	var (
		store storage.Store
		err   error
	)
	switch config.Store {
	case SQLiteStore:
		store, err = sqlstore.OpenSQLite(ctx, config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite store: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized SQLite store", "db_path", config.SQLiteDBPath)
	case PostgresStore:
		store, err = sqlstore.OpenPostgres(ctx, config.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open PostgreSQL store: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized PostgreSQL store")
	default:
		store = memory.New()
		f.logger.WarnContext(ctx, "Initialized memory store, data is lost on exit")
	}

	return &StoreResult{Store: store, Cleanup: store.Close}, nil
}

// OpenPublisher returns the configured publisher. A broker that cannot be
// reached degrades to events.Nop so writes keep working.
func (f *Factory) OpenPublisher(ctx context.Context, config Config) events.Publisher {
	switch config.Events {
	case AMQPEvents:
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events", applog.FieldError, err)
			return events.Nop{}
		}
		f.logger.InfoContext(ctx, "Initialized AMQP publisher",
			"exchange", config.AMQPExchange,
			"queue", config.AMQPQueue)
		return client
	case KafkaEvents:
		f.logger.InfoContext(ctx, "Initialized Kafka publisher", "topic", config.KafkaTopic)
		return kafka.NewPublisher(config.KafkaBrokers, config.KafkaTopic)
	default:
		f.logger.InfoContext(ctx, "No event broker configured")
		return events.Nop{}
	}
}

// OpenConsumer returns a consumer for the worker. Unlike the publisher, a
// consumer is required, so failures are returned.
func (f *Factory) OpenConsumer(ctx context.Context, config Config) (events.Consumer, error) {
	switch config.Events {
	case AMQPEvents:
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize AMQP client: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized AMQP consumer", "queue", config.AMQPQueue)
		return client, nil
	case KafkaEvents:
		f.logger.InfoContext(ctx, "Initialized Kafka consumer",
			"topic", config.KafkaTopic,
			"group_id", config.KafkaGroupID)
		return kafka.NewConsumer(config.KafkaBrokers, config.KafkaTopic, config.KafkaGroupID), nil
	default:
		return nil, fmt.Errorf("events backend %q cannot be consumed", config.Events)
	}
}
