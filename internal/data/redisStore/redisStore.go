package redisStore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/akolanti/DocQA/internal/config"
	"github.com/akolanti/DocQA/pkg/logger_i"
	"github.com/redis/go-redis/v9"
)

var (
	instances = make(map[int]*Store)
	mu        sync.RWMutex
	logger    = logger_i.NewLogger("Redis Store")
	once      sync.Once
)

var ErrRedisOffline = errors.New("redis is offline")

type Store struct {
	client *redis.Client
	Type   int
}

// GetRedisStore returns the shared client for one redis DB, connecting on first use.
// Clients are closed once ctx is done.
func GetRedisStore(ctx context.Context, cfg config.RedisConfig, dbType int) (*Store, error) {
	mu.RLock()
	instance, exists := instances[dbType]
	mu.RUnlock()

	if exists {
		return instance, nil
	}

	mu.Lock()
	defer mu.Unlock()

	if instance, exists = instances[dbType]; exists {
		return instance, nil
	}
	return createNewStore(ctx, cfg, dbType)
}

func closeRedisStores(ctx context.Context) {
	<-ctx.Done()
	logger.Info("Closing Redis Stores")
	mu.Lock()
	defer mu.Unlock()
	for dbType, store := range instances {
		if err := store.client.Close(); err != nil {
			logger.Error("Error closing redis client", "db", dbType, "error", err)
		}
		delete(instances, dbType)
	}
	logger.Info("Redis Store Closed successfully")
}

func createNewStore(ctx context.Context, cfg config.RedisConfig, dbType int) (*Store, error) {
	newClient := redis.NewClient(&redis.Options{
		Addr:                  cfg.Addr,
		Password:              cfg.Password,
		DB:                    dbType,
		ContextTimeoutEnabled: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, config.RedisPingTimeout)
	defer cancel()

	if err := newClient.Ping(pingCtx).Err(); err != nil {
		_ = newClient.Close()
		logger.Error("Redis is offline", "addr", cfg.Addr, "db", dbType, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrRedisOffline, err)
	}

	logger.Info("Redis Router init successfully", "addr", cfg.Addr, "db", dbType)

	newStore := &Store{
		client: newClient,
		Type:   dbType,
	}

	instances[dbType] = newStore
	once.Do(func() {
		go closeRedisStores(ctx)
	})
	return newStore, nil
}

// NewTestStore wraps a client, typically one pointed at miniredis.
func NewTestStore(client *redis.Client) *Store {
	return &Store{client: client}
}
