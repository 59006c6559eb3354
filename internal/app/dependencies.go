package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/shop-orders/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/shop-orders/internal/health"
	"github.com/vladislavdragonenkov/shop-orders/internal/storage/memory"
	"github.com/vladislavdragonenkov/shop-orders/internal/storage/postgres"
)

// runtimeDependencies держит хранилище, выбранное по конфигурации.
type runtimeDependencies struct {
	uow            domain.UnitOfWork
	outboxRepo     domain.OutboxRepository
	storageChecker healthcheck.Checker
	seed           func(ctx context.Context, data demoData) error
	closeFn        func() error
}

func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.StorageDriver))
	if driver == "" {
		driver = StorageDriverMemory
	}

	switch driver {
	case StorageDriverMemory:
		store := memory.NewStore()
		logger.Info("using in-memory storage")
		return &runtimeDependencies{
			uow:        store,
			outboxRepo: store.Repositories().Outbox,
			storageChecker: healthcheck.NewSimpleChecker("storage", func(context.Context) error {
				return nil
			}),
			seed: func(_ context.Context, data demoData) error {
				seedMemory(store, data)
				return nil
			},
		}, nil

	case StorageDriverPostgres:
		dsn := strings.TrimSpace(cfg.PostgresDSN)
		if dsn == "" {
			return nil, errors.New("postgres storage requires OMS_POSTGRES_DSN")
		}

		store, err := postgres.Open(ctx, dsn)
		if err != nil {
			return nil, err
		}
		if cfg.PostgresAutoMigrate {
			if err := store.MigrateUp(ctx, 0); err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("apply postgres migrations: %w", err)
			}
			logger.Info("postgres migrations applied")
		}

		logger.Info("using postgres storage")
		return &runtimeDependencies{
			uow:            store,
			outboxRepo:     postgres.NewOutboxRepository(store),
			storageChecker: healthcheck.NewSimpleChecker("storage", store.Ping),
			seed: func(ctx context.Context, data demoData) error {
				return seedPostgres(ctx, store, data)
			},
			closeFn: store.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}

func (d *runtimeDependencies) close(logger *log.Entry) {
	if d == nil || d.closeFn == nil {
		return
	}
	if err := d.closeFn(); err != nil {
		logger.WithError(err).Warn("failed to close storage")
	}
}
