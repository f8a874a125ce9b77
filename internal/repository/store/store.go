package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jaennil/slippymap/internal/tile"
	"github.com/jaennil/slippymap/pkg/logger"
)

const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// TileStore keeps raw tile bytes shared between fetches. It sits behind the
// retriever and never holds Tile state.
type TileStore interface {
	Get(ctx context.Context, k tile.Key) ([]byte, bool, error)
	Set(ctx context.Context, k tile.Key, data []byte) error
	Close() error
}

type Config struct {
	Driver     string
	SQLitePath string
	Redis      RedisConfig
}

func New(cfg Config, l logger.Logger) (TileStore, error) {
	switch cfg.Driver {
	case DriverMemory, "":
		l.Info("using in-memory tile store")
		return NewMapStore(), nil
	case DriverSQLite:
		return NewSQLiteStore(cfg.SQLitePath, l)
	case DriverRedis:
		return NewRedisStore(cfg.Redis, l)
	default:
		return nil, fmt.Errorf("unknown tile store driver %q", cfg.Driver)
	}
}

func keyFor(k tile.Key) string {
	return fmt.Sprintf("tile:%d:%d:%d", k.Zoom, k.Column, k.Row)
}

const defaultTTL = 24 * time.Hour
