// Package bootstrap builds the process-wide dependencies shared by the services.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/abgdnv/producttags/pkg/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"
)

// NewMongoClient connects to MongoDB and pings the primary, retrying per retryCfg.
// Commands are traced through otelmongo.
func NewMongoClient(ctx context.Context, cfg config.MongoConfig, retryCfg config.RetryConfig, log *slog.Logger) (*mongo.Client, error) {
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetTimeout(cfg.OperationTimeout).
		SetMonitor(otelmongo.NewMonitor())
	if cfg.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(cfg.MaxPoolSize)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create mongo client: %w", err)
	}

	attempts := max(retryCfg.MaxAttempts, 1)
	backoff := retryCfg.InitialBackoff
	for attempt := uint(1); ; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
		err = client.Ping(pingCtx, readpref.Primary())
		cancel()
		if err == nil {
			return client, nil
		}
		if attempt >= attempts {
			break
		}
		log.Warn("mongo ping failed, retrying", "attempt", attempt, "backoff", backoff, "error", err)
		select {
		case <-ctx.Done():
			_ = client.Disconnect(context.Background())
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	_ = client.Disconnect(context.Background())
	return nil, fmt.Errorf("failed to ping mongo: %w", err)
}
