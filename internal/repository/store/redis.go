package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jaennil/slippymap/internal/tile"
	"github.com/jaennil/slippymap/pkg/logger"
	"github.com/redis/go-redis/v9"
)

type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

func NewRedisStore(cfg RedisConfig, l logger.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	ttl := cfg.TTL
	if ttl == 0 {
		ttl = defaultTTL
	}

	l.Info("redis tile store initialized", "addr", cfg.Addr, "ttl", ttl)

	return &RedisStore{
		client: client,
		ttl:    ttl,
		logger: l,
	}, nil
}

var _ TileStore = (*RedisStore)(nil)

func (c *RedisStore) Get(ctx context.Context, k tile.Key) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, keyFor(k)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get error: %w", err)
	}

	return data, true, nil
}

func (c *RedisStore) Set(ctx context.Context, k tile.Key, v []byte) error {
	if err := c.client.Set(ctx, keyFor(k), v, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set error: %w", err)
	}

	return nil
}

func (c *RedisStore) Close() error {
	return c.client.Close()
}
