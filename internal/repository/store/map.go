package store

import (
	"context"
	"sync"

	"github.com/jaennil/slippymap/internal/tile"
)

type MapStore struct {
	m *TypedSyncMap
}

type TypedSyncMap struct {
	m sync.Map
}

func (c *TypedSyncMap) Load(k tile.Key) ([]byte, bool) {
	v, exists := c.m.Load(k)
	if !exists {
		return nil, false
	}
	return v.([]byte), exists
}

func (c *TypedSyncMap) Store(k tile.Key, v []byte) {
	c.m.Store(k, v)
}

func NewMapStore() *MapStore {
	return &MapStore{
		m: &TypedSyncMap{},
	}
}

var _ TileStore = (*MapStore)(nil)

func (c *MapStore) Get(_ context.Context, k tile.Key) ([]byte, bool, error) {
	v, exists := c.m.Load(k)
	return v, exists, nil
}

func (c *MapStore) Set(_ context.Context, k tile.Key, v []byte) error {
	c.m.Store(k, v)
	return nil
}

func (c *MapStore) Close() error {
	return nil
}
