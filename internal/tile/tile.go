package tile

import (
	"errors"
	"math"

	"github.com/jaennil/slippymap/pkg/logger"
	"github.com/jaennil/slippymap/pkg/metrics"
)

var (
	ErrSelfCovering   = errors.New("tile cannot cover for itself")
	ErrNotCoarser     = errors.New("covering tile must have a lower zoom level than the covered tile")
	ErrAlreadyCovered = errors.New("tile is already covered by another tile")
	ErrCovererLoading = errors.New("covering tile is not loaded")
	ErrChildLoaded    = errors.New("covered tile is already loaded")
	ErrDisposed       = errors.New("tile is disposed")
)

// Owner receives the side effects of a tile's lifecycle. All calls happen on
// the owner goroutine.
type Owner interface {
	// Store is called once, when the tile finishes loading.
	Store(t *Tile)
	MarkDirty()
}

// Tile is one tile's on-screen presence. Tiles compare by identity: each
// instance belongs to exactly one cache slot.
type Tile struct {
	key      Key
	progress *Progress
	owner    Owner
	logger   logger.Logger

	cancelProgress func()
	completed      bool
	disposed       bool

	// covering maps each still-loading child to its progress unsubscribe.
	covering  map[*Tile]func()
	coveredBy *Tile

	view       View
	hasView    bool
	geom       Geometry
	lastNeeded uint64
}

// New creates a tile around an already started fetch and subscribes to its
// progress.
func New(key Key, progress *Progress, owner Owner, l logger.Logger) *Tile {
	t := &Tile{
		key:      key,
		progress: progress,
		owner:    owner,
		logger:   l,
		covering: make(map[*Tile]func()),
	}
	t.cancelProgress = progress.Subscribe(func(float64) {
		t.OnProgressChanged()
	})

	metrics.TilesCreated.Inc()
	l.Debug("tile created", "tile", key.String())

	if progress.Done() {
		t.OnProgressChanged()
	}

	return t
}

func (t *Tile) Key() Key {
	return t.key
}

func (t *Tile) Progress() float64 {
	return t.progress.Value()
}

func (t *Tile) Loaded() bool {
	return t.progress.Done()
}

func (t *Tile) Loading() bool {
	return !t.progress.Done()
}

func (t *Tile) Disposed() bool {
	return t.disposed
}

func (t *Tile) IsCovering() bool {
	return len(t.covering) > 0
}

// CoveringFor reports whether child is currently rendered through t.
func (t *Tile) CoveringFor(child *Tile) bool {
	_, ok := t.covering[child]
	return ok
}

func (t *Tile) CoveredBy() *Tile {
	return t.coveredBy
}

func (t *Tile) Geometry() Geometry {
	return t.geom
}

func (t *Tile) Visible() bool {
	return t.geom.Visible
}

func (t *Tile) MarkNeeded(pass uint64) {
	t.lastNeeded = pass
}

func (t *Tile) LastNeeded() uint64 {
	return t.lastNeeded
}

// OnProgressChanged handles one progress notification. Reaching 1 is
// terminal: the first time it stores the tile and marks the map dirty, every
// later call is a no-op.
func (t *Tile) OnProgressChanged() {
	if t.disposed || t.completed || !t.progress.Done() {
		return
	}
	t.completed = true

	metrics.TilesCompleted.Inc()
	t.logger.Debug("tile loaded", "tile", t.key.String())

	t.owner.Store(t)
	t.owner.MarkDirty()
}

// AddCovering makes t render in place of child until child has loaded. Only a
// loaded tile can cover, so coverings never chain. Registering the same child
// twice is a no-op.
func (t *Tile) AddCovering(child *Tile) error {
	switch {
	case child == t:
		return ErrSelfCovering
	case t.disposed || child.disposed:
		return ErrDisposed
	case t.key.Zoom >= child.key.Zoom:
		return ErrNotCoarser
	case !t.progress.Done():
		return ErrCovererLoading
	}

	if _, ok := t.covering[child]; ok {
		return nil
	}
	if child.progress.Done() {
		return ErrChildLoaded
	}
	if child.coveredBy != nil {
		return ErrAlreadyCovered
	}

	t.covering[child] = child.progress.Subscribe(func(v float64) {
		if v >= 1 {
			t.retire(child)
		}
	})
	child.coveredBy = t
	t.refresh()

	metrics.CoveringsInstalled.Inc()
	t.logger.Debug("tile covering", "tile", t.key.String(), "child", child.key.String())

	return nil
}

// retire tears down the covering relationship for child. Only the first call
// for a given child has an effect.
func (t *Tile) retire(child *Tile) {
	cancel, ok := t.covering[child]
	if !ok {
		return
	}
	cancel()
	delete(t.covering, child)
	if child.coveredBy == t {
		child.coveredBy = nil
	}
	t.refresh()

	metrics.CoveringsRetired.Inc()
	t.logger.Debug("tile covering retired", "tile", t.key.String(), "child", child.key.String())

	t.owner.MarkDirty()
}

// Recompute derives scale, offset and visibility from the map view.
func (t *Tile) Recompute(v View) Geometry {
	t.view = v
	t.hasView = true
	t.geom = t.compute(v)
	return t.geom
}

func (t *Tile) refresh() {
	if t.hasView {
		t.geom = t.compute(t.view)
	}
}

// compute places a covering tile in the world copy of the child nearest the
// viewport centre, so it is drawn under that child even when the child wrapped
// into another copy than the coverer would pick for itself.
func (t *Tile) compute(v View) Geometry {
	shift := copyShift(t.key, v)

	var anchor *Tile
	best := math.Inf(1)
	for child := range t.covering {
		g := ComputeGeometry(child.key, false, v)
		x0, y0, x1, y1 := g.Rect(v.TileSize)
		d := math.Hypot((x0+x1)/2-v.Width/2, (y0+y1)/2-v.Height/2)
		if anchor == nil || d < best || (d == best && child.key.Packed() < anchor.key.Packed()) {
			anchor, best = child, d
		}
	}
	if anchor != nil {
		shift = copyShift(anchor.key, v)
	}

	return computeGeometry(t.key, t.IsCovering(), v, shift)
}

// Dispose drops every subscription the tile holds. It must be called once when
// the tile leaves the cache; later calls do nothing.
func (t *Tile) Dispose() {
	if t.disposed {
		return
	}
	t.disposed = true
	t.cancelProgress()

	for child, cancel := range t.covering {
		cancel()
		if child.coveredBy == t {
			child.coveredBy = nil
		}
	}
	clear(t.covering)

	if t.coveredBy != nil {
		t.coveredBy.retire(t)
	}

	t.logger.Debug("tile disposed", "tile", t.key.String())
}

// Sprite is the plain render description of a tile consumed by a renderer.
type Sprite struct {
	Key      Key     `json:"key"`
	Label    string  `json:"label"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Scale    float64 `json:"scale"`
	Size     int     `json:"size"`
	Covering bool    `json:"covering"`
	Loaded   bool    `json:"loaded"`
	Image    []byte  `json:"-"`
}

func (t *Tile) Sprite() Sprite {
	return Sprite{
		Key:      t.key,
		Label:    t.key.String(),
		X:        t.geom.X,
		Y:        t.geom.Y,
		Scale:    t.geom.Scale,
		Size:     t.view.TileSize,
		Covering: t.IsCovering(),
		Loaded:   t.Loaded(),
		Image:    t.progress.Data(),
	}
}

func (t *Tile) String() string {
	return "tile " + t.key.String()
}
