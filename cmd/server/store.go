package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/99minutos/identity-service/internal/core/ports"
	"github.com/99minutos/identity-service/internal/infrastructure/config"
	"github.com/99minutos/identity-service/internal/infrastructure/db/mongo"
	"github.com/99minutos/identity-service/internal/infrastructure/db/redis"
	"github.com/99minutos/identity-service/internal/infrastructure/db/sqlite"
)

// store is the identity backend selected by STORE_DRIVER together with its
// readiness probe and any audit sink it contributes.
type store struct {
	users      ports.UserRepository
	checks     map[string]func(context.Context) error
	auditSinks []ports.AuditSink
	close      func()
}

func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*store, error) {
	switch cfg.StoreDriver {
	case config.StoreMongo:
		return openMongo(ctx, cfg, log)
	case config.StoreSQLite:
		return openSQLite(ctx, cfg, log)
	case config.StoreRedis:
		return openRedis(ctx, cfg, log)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}

func openMongo(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*store, error) {
	client, db, err := mongo.Connect(ctx, mongo.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		AppName:  serviceName,
	})
	if err != nil {
		return nil, err
	}

	users := mongo.NewUserRepository(db)
	if err := users.EnsureIndexes(ctx); err != nil {
		_ = mongo.Disconnect(client)
		return nil, fmt.Errorf("ensure user indexes: %w", err)
	}
	log.Info().Str("database", cfg.Mongo.Database).Msg("mongodb connected")

	return &store{
		users:      users,
		checks:     map[string]func(context.Context) error{"mongodb": mongo.Check(db)},
		auditSinks: []ports.AuditSink{mongo.NewAuditRepository(db)},
		close:      closer(log, "mongodb", func() error { return mongo.Disconnect(client) }),
	}, nil
}

func openSQLite(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*store, error) {
	db, err := sqlite.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, err
	}

	users := sqlite.NewUserRepository(db)
	if err := users.Init(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Info().Str("path", cfg.SQLite.Path).Msg("sqlite opened")

	return &store{
		users:  users,
		checks: map[string]func(context.Context) error{"sqlite": sqlite.Check(db)},
		close:  closer(log, "sqlite", db.Close),
	}, nil
}

func openRedis(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*store, error) {
	client, err := redis.Connect(ctx, redis.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("addr", cfg.Redis.Addr).Msg("redis connected")

	return &store{
		users:  redis.NewUserRepository(client),
		checks: map[string]func(context.Context) error{"redis": redis.Check(client)},
		close:  closer(log, "redis", client.Close),
	}, nil
}

func closer(log zerolog.Logger, name string, fn func() error) func() {
	return func() {
		if err := fn(); err != nil {
			log.Warn().Err(err).Str("store", name).Msg("close store")
		}
	}
}
