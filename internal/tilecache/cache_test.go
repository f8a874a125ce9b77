package tilecache

import (
	"testing"

	"github.com/jaennil/slippymap/internal/tile"
	"github.com/jaennil/slippymap/pkg/logger"
)

type nopOwner struct{}

func (nopOwner) Store(*tile.Tile) {}
func (nopOwner) MarkDirty()       {}

var visibleView = tile.View{Zoom: 1, TileSize: 256, MaxZoom: 20, Tipping: 0.5}

func newTile(zoom, col, row int) (*tile.Tile, *tile.Progress) {
	p := tile.NewProgress()
	t := tile.New(tile.Key{Zoom: zoom, Column: col, Row: row}, p, nopOwner{}, logger.NewNop())
	return t, p
}

func newCache(t *testing.T, capacity int, evictAfter uint64) *Cache {
	t.Helper()
	c, err := New(capacity, evictAfter, logger.NewNop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestNewRejectsBadCapacity(t *testing.T) {
	if _, err := New(0, 1, logger.NewNop()); err != ErrInvalidCapacity {
		t.Fatalf("New(0) error = %v, want %v", err, ErrInvalidCapacity)
	}
}

func TestLookupKeepsZoom(t *testing.T) {
	c := newCache(t, 10, 0)
	a, _ := newTile(1, 1, 0)
	b, _ := newTile(2, 0, 2)

	if !c.Put(a) || !c.Put(b) {
		t.Fatal("Put() rejected tiles with colliding packed keys")
	}

	if got, ok := c.Get(a.Key()); !ok || got != a {
		t.Errorf("Get(%v) = %v", a.Key(), got)
	}
	if got, ok := c.Get(b.Key()); !ok || got != b {
		t.Errorf("Get(%v) = %v", b.Key(), got)
	}
}

func TestPutKeepsFirstInstance(t *testing.T) {
	c := newCache(t, 10, 0)
	a, _ := newTile(5, 3, 2)
	dup, _ := newTile(5, 3, 2)

	if !c.Put(a) {
		t.Fatal("first Put() rejected")
	}
	if c.Put(a) || c.Put(dup) {
		t.Fatal("Put() accepted an occupied key")
	}
	if got, _ := c.Get(a.Key()); got != a {
		t.Fatal("occupied key replaced")
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestEvictLeastRecentlyRenderedFirst(t *testing.T) {
	c := newCache(t, 2, 0)
	a, _ := newTile(1, 0, 0)
	b, _ := newTile(1, 1, 0)
	d, _ := newTile(1, 0, 1)
	for _, tl := range []*tile.Tile{a, b, d} {
		tl.Recompute(tile.View{Zoom: 5, TileSize: 256, MaxZoom: 20, Tipping: 0.5})
		c.Put(tl)
	}

	c.Touch(a)

	evicted := c.Evict(10)
	if len(evicted) != 1 || evicted[0] != b {
		t.Fatalf("evicted %v, want [%v]", evicted, b)
	}
	if !b.Disposed() {
		t.Error("evicted tile not disposed")
	}
	if _, ok := c.Get(b.Key()); ok {
		t.Error("evicted tile still cached")
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
}

func TestEvictSkipsPinnedTiles(t *testing.T) {
	c := newCache(t, 1, 3)

	visible, _ := newTile(1, 0, 0)
	visible.Recompute(visibleView)

	parent, pp := newTile(2, 0, 0)
	pp.Complete(nil)
	parent.Recompute(tile.View{Zoom: 8, TileSize: 256, MaxZoom: 20, Tipping: 0.5})
	child, _ := newTile(3, 0, 0)
	child.Recompute(tile.View{Zoom: 8, TileSize: 256, MaxZoom: 20, Tipping: 0.5})
	if err := parent.AddCovering(child); err != nil {
		t.Fatalf("AddCovering() error = %v", err)
	}

	recent, _ := newTile(4, 0, 0)
	recent.Recompute(tile.View{Zoom: 8, TileSize: 256, MaxZoom: 20, Tipping: 0.5})
	recent.MarkNeeded(9)

	for _, tl := range []*tile.Tile{visible, parent, child, recent} {
		c.Put(tl)
	}

	if evicted := c.Evict(10); len(evicted) != 0 {
		t.Fatalf("evicted pinned tiles: %v", evicted)
	}
	if c.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", c.Len())
	}

	// once passes move on the recently needed tile becomes eligible
	if evicted := c.Evict(12); len(evicted) != 1 || evicted[0] != recent {
		t.Fatalf("evicted %v, want [%v]", evicted, recent)
	}
}

func TestTilesReturnsEveryZoom(t *testing.T) {
	c := newCache(t, 10, 0)
	for z := 0; z < 4; z++ {
		tl, _ := newTile(z, 0, 0)
		c.Put(tl)
	}

	seen := make(map[int]bool)
	for _, tl := range c.Tiles() {
		seen[tl.Key().Zoom] = true
	}
	if len(seen) != 4 {
		t.Errorf("Tiles() covered zooms %v, want 0..3", seen)
	}
}

func TestClearDisposesTiles(t *testing.T) {
	c := newCache(t, 10, 0)
	a, _ := newTile(3, 1, 1)
	c.Put(a)

	c.Clear()

	if c.Len() != 0 || !a.Disposed() {
		t.Fatalf("Len() = %d, disposed = %v", c.Len(), a.Disposed())
	}
}

func BenchmarkPut(b *testing.B) {
	c, _ := New(b.N+1, 0, logger.NewNop())
	tiles := make([]*tile.Tile, b.N)
	for i := range tiles {
		tiles[i], _ = newTile(20, i%1000, i/1000)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Put(tiles[i])
	}
}

func BenchmarkGet(b *testing.B) {
	c, _ := New(1000, 0, logger.NewNop())
	for i := 0; i < 100; i++ {
		tl, _ := newTile(10, i, i)
		c.Put(tl)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Get(tile.Key{Zoom: 10, Column: i % 100, Row: i % 100})
	}
}

func BenchmarkEvict(b *testing.B) {
	view := tile.View{Zoom: 2, TileSize: 256, MaxZoom: 20, Tipping: 0.5}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		c, _ := New(64, 0, logger.NewNop())
		for j := 0; j < 256; j++ {
			tl, _ := newTile(10, j, 0)
			tl.Recompute(view)
			c.Put(tl)
		}
		b.StartTimer()

		c.Evict(1)
	}
}
