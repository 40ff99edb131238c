package qdrantdb

import (
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"
)

type Config struct {
	Host       string
	Port       int
	APIKey     string
	Collection string
}

// NewClient connects over gRPC.
func NewClient(cfg Config, logger *zap.Logger) (*DocumentStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port, // gRPC port
		APIKey: cfg.APIKey,
		UseTLS: cfg.APIKey != "",
	})
	if err != nil {
		return nil, err
	}
	return &DocumentStore{client: client, collection: cfg.Collection, logger: logger}, nil
}
