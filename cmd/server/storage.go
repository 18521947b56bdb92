package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"codeberg.org/docflow/server/docflow/documents"
	"codeberg.org/docflow/server/internal/config"
	"codeberg.org/docflow/server/internal/logger"
	"codeberg.org/docflow/server/internal/persistence"
)

// opens the configured document store and bootstraps its schema
func InitializeStorage(ctx context.Context, cfg config.Config) (*Storage, error) {
	switch cfg.Database.Driver {
	case config.DriverSQLite:
		return openSQLite(cfg.Database.Path)
	default:
		return openPostgres(ctx, cfg.Database)
	}
}

func openPostgres(ctx context.Context, cfg config.DatabaseConfig) (*Storage, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	db, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}

	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	repo := documents.NewPostgresRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("connected to postgres", "max_conns", cfg.MaxConns)

	return &Storage{Repository: repo, close: db.Close}, nil
}

func openSQLite(path string) (*Storage, error) {
	db, err := documents.OpenSQLite(path)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	logger.Info("opened sqlite document store", "path", path)

	return &Storage{
		Repository: documents.NewSQLiteRepository(db),
		close:      func() { sqlDB.Close() }, //nolint:errcheck,gosec // best-effort cleanup on shutdown
	}, nil
}

// releases the store's connections
func (s *Storage) Close() {
	if s != nil && s.close != nil {
		s.close()
	}
}

// picks the history throttle named by configuration
func newThrottle(cfg config.HistoryConfig, repo documents.Repository, client *redis.Client) persistence.Throttle {
	switch cfg.Throttle {
	case config.ThrottleRedis:
		return persistence.NewRedisThrottle(client, cfg.EditWindow)
	case config.ThrottleStore:
		return persistence.NewStoreThrottle(repo, cfg.EditWindow)
	default:
		return persistence.NewMemoryThrottle(cfg.EditWindow)
	}
}
