// Package infra opens the external connections the service runs against.
package infra

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/coinvault/coinvault/internal/config"
)

// Connections bundles every optional backend. A nil field means the backend
// is not configured.
type Connections struct {
	DB    *pgxpool.Pool
	Mongo *mongo.Database
	Cache *redis.Client
	NATS  *nats.Conn

	mongoClient *mongo.Client
}

// Open connects to the backends named by cfg. The store backend decides
// whether Postgres or Mongo is required; Redis and NATS are used when their
// URLs are set. Already opened connections are closed on failure.
func Open(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Connections, error) {
	conns := &Connections{}
	var err error

	if cfg.StoreBackend == config.BackendPostgres {
		if conns.DB, err = NewPostgresPool(ctx, cfg.DatabaseURL); err != nil {
			return nil, err
		}
		if cfg.AutoMigrate {
			if err := Migrate(conns.DB); err != nil {
				conns.Close(ctx, logger)
				return nil, err
			}
			logger.Info("database migrations applied")
		}
	}

	if cfg.StoreBackend == config.BackendMongo {
		if conns.mongoClient, err = NewMongoClient(ctx, cfg.MongoURI); err != nil {
			conns.Close(ctx, logger)
			return nil, err
		}
		conns.Mongo = conns.mongoClient.Database(cfg.MongoDatabase)
	}

	if cfg.RedisURL != "" {
		if conns.Cache, err = NewRedisClient(ctx, cfg.RedisURL); err != nil {
			conns.Close(ctx, logger)
			return nil, err
		}
	}

	if cfg.NATSURL != "" {
		if conns.NATS, err = NewNATSConn(cfg.NATSURL, cfg.AppName, logger); err != nil {
			conns.Close(ctx, logger)
			return nil, err
		}
	}

	return conns, nil
}

// Close releases every open connection, logging failures.
func (c *Connections) Close(ctx context.Context, logger *slog.Logger) {
	var errs []error
	if c.NATS != nil {
		if err := c.NATS.Drain(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.Cache != nil {
		if err := c.Cache.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.mongoClient != nil {
		if err := c.mongoClient.Disconnect(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if c.DB != nil {
		c.DB.Close()
	}
	if err := errors.Join(errs...); err != nil {
		logger.Warn("close connections", slog.Any("error", err))
	}
}
