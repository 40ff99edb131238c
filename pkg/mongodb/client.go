package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

type Config struct {
	URI        string
	Database   string
	Collection string
	IndexName  string
}

// Connect opens a client and pings the primary.
func Connect(ctx context.Context, cfg Config, logger *zap.Logger) (*DocumentStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(10*time.Second).
		SetAppName("vector11"))
	if err != nil {
		return nil, fmt.Errorf("mongodb: connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongodb: ping: %w", err)
	}

	db := client.Database(cfg.Database)
	logger.Info("connected to mongodb",
		zap.String("database", cfg.Database),
		zap.String("collection", cfg.Collection),
	)
	return newDocumentStore(client, db, cfg.Collection, cfg.IndexName, logger), nil
}
