package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Storage level failures. Backends return them (possibly wrapped) and the
// services translate them into domain errors.
var (
	ErrRecordNotFound     = errors.New("storage: record not found")
	ErrUniqueViolation    = errors.New("storage: unique constraint violation")
	ErrReferenceViolation = errors.New("storage: referenced record does not exist")
)

// Supported storage drivers.
const (
	BoltDriver     = "bolt"
	RedisDriver    = "redis"
	PostgresDriver = "postgres"
)

// Storages groups the backends of both entities built on the same engine.
type Storages struct {
	Authors AuthorStorage
	Books   BookStorage
	Close   func() error
}

// OpenStorages connects to the configured storage engine and provides
// authors and books storages sharing the same connection.
func OpenStorages(ctx context.Context, logger *zap.Logger, config *Config) (*Storages, error) {
	switch config.Storage.Driver {
	case "", BoltDriver:
		db, err := GetBoltDBClient(config)
		if err != nil {
			return nil, fmt.Errorf("failed to open boltdb storage: %w", err)
		}
		return &Storages{
			Authors: NewBoltAuthorStorage(logger, db),
			Books:   NewBoltBookStorage(logger, db),
			Close:   db.Close,
		}, nil

	case RedisDriver:
		client, err := GetRedisClient(ctx, config)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis server: %w", err)
		}
		return &Storages{
			Authors: NewRedisAuthorStorage(logger, client),
			Books:   NewRedisBookStorage(logger, client),
			Close:   client.Close,
		}, nil

	case PostgresDriver:
		pool, err := GetPostgresPool(ctx, config)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres server: %w", err)
		}
		return &Storages{
			Authors: NewPostgresAuthorStorage(logger, pool),
			Books:   NewPostgresBookStorage(logger, pool),
			Close: func() error {
				pool.Close()
				return nil
			},
		}, nil
	}
	return nil, fmt.Errorf("unsupported storage driver %q", config.Storage.Driver)
}
