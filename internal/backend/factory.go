package backend

import (
	"context"
	"fmt"
	"log/slog"

	"shoebox/internal/amqp"
	"shoebox/internal/cache"
	"shoebox/internal/log"
	"shoebox/internal/services"
	"shoebox/internal/storage"
	"shoebox/internal/store"
	"shoebox/internal/store/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Wrap(slog.Default(), log.ComponentBackend)
	} else {
		logger = logger.WithComponent(log.ComponentBackend)
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		st  store.Store
		err error
	)
	switch config.Type {
	case SQLiteBackend:
		st, err = storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		version, dirty, verr := storage.SchemaVersion(storage.DSN(config.SQLiteDBPath))
		if verr != nil {
			f.logger.WarnContext(ctx, "Failed to read schema version", log.FieldError, verr)
		}
		f.logger.InfoContext(ctx, "Initialized SQLite backend",
			"db_path", config.SQLiteDBPath,
			"schema_version", version,
			"schema_dirty", dirty)
	case MemoryBackend:
		st = memory.New()
		f.logger.InfoContext(ctx, "Initialized memory backend")
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	// AMQP is optional: without it the ledger works but no events are published.
	var amqpClient *amqp.Client
	if config.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without change events", "error", err)
			amqpClient = nil
		} else {
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	opts := []services.Option{services.WithLogger(f.logger)}
	if config.SeriesCacheSize > 0 {
		opts = append(opts, services.WithSeriesCache(cache.NewLRUCache[services.Trends](config.SeriesCacheSize, config.SeriesCacheTTL)))
	}
	if amqpClient != nil {
		opts = append(opts, services.WithPublisher(amqpClient))
	}
	ledger := services.NewLedgerService(st, opts...)

	return &BackendResult{
		Ledger:  ledger,
		AMQP:    amqpClient,
		Cleanup: ledger.Close,
	}, nil
}
