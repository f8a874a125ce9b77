package tilecache

import (
	"errors"
	"math"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"github.com/jaennil/slippymap/internal/tile"
	"github.com/jaennil/slippymap/pkg/logger"
	"github.com/jaennil/slippymap/pkg/metrics"
)

var ErrInvalidCapacity = errors.New("tile cache capacity must be positive")

// key never drops the zoom: packed keys collide across levels.
type key struct {
	zoom   int
	packed int64
}

func keyOf(k tile.Key) key {
	return key{zoom: k.Zoom, packed: k.Packed()}
}

// Cache is a bounded store of tiles ordered by when they were last rendered.
// It is not safe for concurrent use; the map's owner goroutine is its only
// caller.
type Cache struct {
	// index only provides recency order, the cache evicts by itself so it can
	// skip pinned tiles.
	index      *simplelru.LRU[key, *tile.Tile]
	capacity   int
	evictAfter uint64
	logger     logger.Logger
}

// New returns a cache holding up to capacity tiles. A tile needed by one of
// the last evictAfter selection passes is never evicted.
func New(capacity int, evictAfter uint64, l logger.Logger) (*Cache, error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}

	index, err := simplelru.NewLRU[key, *tile.Tile](math.MaxInt32, nil)
	if err != nil {
		return nil, err
	}

	return &Cache{
		index:      index,
		capacity:   capacity,
		evictAfter: evictAfter,
		logger:     l,
	}, nil
}

func (c *Cache) Get(k tile.Key) (*tile.Tile, bool) {
	return c.index.Peek(keyOf(k))
}

// Put inserts t unless its key is already taken. It reports whether t was
// inserted.
func (c *Cache) Put(t *tile.Tile) bool {
	k := keyOf(t.Key())
	if c.index.Contains(k) {
		return false
	}
	c.index.Add(k, t)
	metrics.TilesCached.Set(float64(c.index.Len()))
	return true
}

// Touch marks t as rendered in the current frame.
func (c *Cache) Touch(t *tile.Tile) {
	k := keyOf(t.Key())
	if cur, ok := c.index.Peek(k); ok && cur == t {
		c.index.Get(k)
	}
}

// Tiles returns every cached tile at every zoom, least recently rendered
// first.
func (c *Cache) Tiles() []*tile.Tile {
	keys := c.index.Keys()
	tiles := make([]*tile.Tile, 0, len(keys))
	for _, k := range keys {
		if t, ok := c.index.Peek(k); ok {
			tiles = append(tiles, t)
		}
	}
	return tiles
}

func (c *Cache) Len() int {
	return c.index.Len()
}

func (c *Cache) Capacity() int {
	return c.capacity
}

// Evict disposes least recently rendered tiles until the cache fits its
// capacity. Visible tiles, tiles in a covering relationship and recently
// needed tiles are skipped; if only those remain the cache stays over
// capacity until a later pass.
func (c *Cache) Evict(pass uint64) []*tile.Tile {
	over := c.index.Len() - c.capacity
	if over <= 0 {
		return nil
	}

	var evicted []*tile.Tile
	for _, k := range c.index.Keys() {
		if over == 0 {
			break
		}
		t, ok := c.index.Peek(k)
		if !ok || c.pinned(t, pass) {
			continue
		}

		c.index.Remove(k)
		t.Dispose()
		evicted = append(evicted, t)
		over--
	}

	metrics.CacheEvictions.Add(float64(len(evicted)))
	metrics.TilesCached.Set(float64(c.index.Len()))

	if over > 0 {
		metrics.CacheEvictionsDeferred.Inc()
		c.logger.Debug("tile eviction deferred", "over_capacity", over, "size", c.index.Len())
	}
	if len(evicted) > 0 {
		c.logger.Debug("tiles evicted", "count", len(evicted), "size", c.index.Len())
	}

	return evicted
}

func (c *Cache) pinned(t *tile.Tile, pass uint64) bool {
	return t.Visible() ||
		t.IsCovering() ||
		t.CoveredBy() != nil ||
		t.LastNeeded()+c.evictAfter > pass
}

// Clear disposes every tile.
func (c *Cache) Clear() {
	for _, t := range c.Tiles() {
		t.Dispose()
	}
	c.index.Purge()
	metrics.TilesCached.Set(0)
}
