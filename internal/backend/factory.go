package backend

import (
	"context"
	"errors"
	"fmt"

	"contas/internal/amqp"
	"contas/internal/cache"
	"contas/internal/core"
	"contas/internal/log"
	"contas/internal/services"
	"contas/internal/storage"
	"contas/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	clock, err := core.NewZoneClock(config.Timezone)
	if err != nil {
		return nil, fmt.Errorf("ledger clock: %w", err)
	}

	store, err := f.createStore(config)
	if err != nil {
		return nil, err
	}

	result := &BackendResult{}
	svcConfig := services.Config{Clock: clock, Logger: f.logger}

	if config.CacheSize > 0 {
		result.Listings = cache.NewLRUCache[[]core.Transaction](config.CacheSize, config.CacheTTL)
		svcConfig.Listings = result.Listings
	}

	// AMQP is optional: a broker outage must not keep the ledger down.
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events", log.FieldError, err)
		} else {
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
			result.Events = client
			svcConfig.Publisher = client
		}
	}

	result.Ledger = services.NewLedgerService(store, svcConfig)
	events := result.Events
	ledger := result.Ledger
	result.Cleanup = func() error {
		var errs []error
		if events != nil {
			if err := events.Close(); err != nil {
				errs = append(errs, fmt.Errorf("amqp: %w", err))
			}
		}
		if err := ledger.Close(); err != nil {
			errs = append(errs, err)
		}
		return errors.Join(errs...)
	}

	f.logger.InfoContext(ctx, "Initialized ledger backend",
		"type", config.Type.String(),
		"timezone", clock.Location.String(),
		"cache_enabled", result.Listings != nil,
		"amqp_enabled", result.Events != nil)
	return result, nil
}

func (f *DefaultFactory) createStore(config Config) (services.Store, error) {
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		return repo, nil
	case MemoryBackend:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}
