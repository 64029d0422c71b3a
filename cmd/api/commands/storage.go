package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/taskmaster/bacheca/internal/adapters/cache"
	"github.com/taskmaster/bacheca/internal/adapters/repository"
	"github.com/taskmaster/bacheca/internal/adapters/repository/memory"
	"github.com/taskmaster/bacheca/internal/adapters/repository/sqlite"
	"github.com/taskmaster/bacheca/internal/infrastructure/config"
	"github.com/taskmaster/bacheca/internal/infrastructure/database"
	"github.com/taskmaster/bacheca/internal/infrastructure/logger"
	"github.com/taskmaster/bacheca/internal/infrastructure/server"
	"github.com/taskmaster/bacheca/internal/ports"
)

// backend bundles the storage and cache selected by configuration together
// with their readiness checks and cleanup.
type backend struct {
	repos   *ports.Repositories
	cache   ports.CacheRepository
	checks  []server.HealthCheck
	closers []func() error
}

func (b *backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		errs = append(errs, b.closers[i]())
	}
	return errors.Join(errs...)
}

// openBackend opens the configured storage driver. With migrate set, the
// postgres schema is brought up to date before use.
func openBackend(ctx context.Context, cfg *config.Config, log *logger.Logger, migrate bool) (*backend, error) {
	b := &backend{}

	switch cfg.Database.Driver {
	case config.DriverPostgres:
		db, err := database.New(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, db.Close)
		if migrate {
			if err := migrateUp(cfg.Database, log); err != nil {
				_ = b.Close()
				return nil, err
			}
		}
		b.repos = repository.NewRepositories(db)
		b.checks = append(b.checks, server.HealthCheck{Name: "database", Check: db.HealthCheck, Stats: db.GetConnectionInfo})
		log.Infow("Using postgres storage", "info", db.GetConnectionInfo())

	case config.DriverSQLite:
		db, err := sqlite.Open(cfg.Database.SQLitePath)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("sqlite handle: %w", err)
		}
		b.closers = append(b.closers, sqlDB.Close)
		b.repos = sqlite.NewRepositories(db)
		b.checks = append(b.checks, server.HealthCheck{Name: "database", Check: sqlDB.PingContext})
		log.Infow("Using sqlite storage", "path", cfg.Database.SQLitePath)

	case config.DriverMemory:
		b.repos = memory.NewRepositories()
		log.Warnw("Using in-memory storage, data is lost on exit")

	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}

	switch {
	case cfg.Redis.Enabled:
		client, err := cache.NewRedisClient(ctx, cfg.Redis, log)
		if err != nil {
			_ = b.Close()
			return nil, err
		}
		redisCache := cache.NewRedisCache(client)
		b.cache = redisCache
		b.closers = append(b.closers, client.Close)
		b.checks = append(b.checks, server.HealthCheck{Name: "redis", Check: redisCache.Ping})
	case cfg.Redis.ViewTTL > 0:
		b.cache = cache.NewMemoryCache()
	default:
		b.cache = cache.NopCache{}
	}

	return b, nil
}

func migrateUp(cfg config.DatabaseConfig, log *logger.Logger) error {
	m, err := database.NewMigrator(cfg)
	if err != nil {
		return err
	}
	defer m.Close()

	changed, err := m.Up()
	if err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	version, dirty, err := m.Version()
	if err != nil {
		return fmt.Errorf("migration version: %w", err)
	}
	log.Infow("Database schema ready", "changed", changed, "version", version, "dirty", dirty)
	return nil
}
