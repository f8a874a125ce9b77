package mapview

import (
	"cmp"
	"errors"
	"math"
	"slices"
	"time"

	"github.com/jaennil/slippymap/internal/geo"
	"github.com/jaennil/slippymap/internal/tile"
	"github.com/jaennil/slippymap/internal/tilecache"
	"github.com/jaennil/slippymap/pkg/logger"
	"github.com/jaennil/slippymap/pkg/metrics"
)

var ErrInvalidOptions = errors.New("invalid map view options")

// Retriever starts loading a tile and hands back its progress handle.
type Retriever interface {
	Fetch(k tile.Key) *tile.Progress
}

type Options struct {
	TileSize int
	// MaxZoom is exclusive for tile levels: the deepest tiles are at
	// MaxZoom-1, the zoom itself may reach MaxZoom.
	MaxZoom          int
	Tipping          float64
	Padding          int
	CacheSize        int
	EvictAfterPasses uint64
	Width            int
	Height           int
}

// Frame is everything a renderer needs to draw the map once. Sprites are
// ordered coarse to fine so finer tiles paint over the tiles covering them.
type Frame struct {
	Viewport Viewport      `json:"viewport"`
	Center   geo.Point     `json:"center"`
	Sprites  []tile.Sprite `json:"sprites"`
	Elements []Element     `json:"elements"`
	Loading  int           `json:"loading"`
}

// MapView owns the center, zoom and tiles of one map and decides which tiles
// must exist to cover the viewport. It is not safe for concurrent use: every
// call, including retriever progress, has to arrive on the owner goroutine
// (see Loop).
type MapView struct {
	opts      Options
	cache     *tilecache.Cache
	retriever Retriever
	logger    logger.Logger

	center       *geo.MapPoint
	cancelCenter func()
	zoom         float64
	width        int
	height       int

	layers []Layer
	flight *flight

	layoutDirty bool
	redrawDirty bool
	pass        uint64

	onRedraw []func(Frame)
	last     Frame
}

var _ tile.Owner = (*MapView)(nil)

func New(opts Options, center geo.Point, zoom float64, r Retriever, l logger.Logger) (*MapView, error) {
	if opts.TileSize <= 0 || opts.MaxZoom <= 0 || opts.MaxZoom > tile.ZoomLimit {
		return nil, ErrInvalidOptions
	}

	cache, err := tilecache.New(opts.CacheSize, opts.EvictAfterPasses, l)
	if err != nil {
		return nil, err
	}

	center = geo.Clamp(center)
	m := &MapView{
		opts:        opts,
		cache:       cache,
		retriever:   r,
		logger:      l,
		center:      geo.NewMapPoint(center.Lat, center.Lon),
		zoom:        clampZoom(zoom, opts.MaxZoom),
		width:       max(opts.Width, 0),
		height:      max(opts.Height, 0),
		layoutDirty: true,
	}
	m.cancelCenter = m.center.Observe(func(geo.Point) {
		m.invalidateLayout()
	})

	return m, nil
}

func (m *MapView) Zoom() float64 {
	return m.zoom
}

// SetZoom cancels any running flight.
func (m *MapView) SetZoom(zoom float64) {
	m.flight = nil
	m.setZoom(zoom)
}

func (m *MapView) setZoom(zoom float64) {
	zoom = clampZoom(zoom, m.opts.MaxZoom)
	if zoom == m.zoom {
		return
	}
	m.zoom = zoom
	m.invalidateLayout()
}

func (m *MapView) Center() geo.Point {
	return m.center.Point()
}

// SetCenter cancels any running flight.
func (m *MapView) SetCenter(p geo.Point) {
	m.flight = nil
	m.setCenter(p)
}

func (m *MapView) setCenter(p geo.Point) {
	p = geo.Clamp(p)
	m.center.Update(p.Lat, p.Lon)
}

func (m *MapView) Size() (width, height int) {
	return m.width, m.height
}

func (m *MapView) SetSize(width, height int) {
	width, height = max(width, 0), max(height, 0)
	if width == m.width && height == m.height {
		return
	}
	m.width, m.height = width, height
	m.invalidateLayout()
}

// FlyTo animates to p and zoom over duration. The animation advances with
// Frame; a zero duration jumps on the next frame.
func (m *MapView) FlyTo(duration time.Duration, p geo.Point, zoom float64) {
	m.flight = newFlight(duration, m.Center(), m.zoom, geo.Clamp(p), clampZoom(zoom, m.opts.MaxZoom))
	m.logger.Debug("flight started", "lat", p.Lat, "lon", p.Lon, "zoom", zoom, "duration", duration)
}

func (m *MapView) Flying() bool {
	return m.flight != nil
}

func (m *MapView) AddLayer(l Layer) {
	m.layers = append(m.layers, l)
	l.MarkDirty()
	m.MarkDirty()
}

// OnRedraw registers fn to receive every frame the map renders.
func (m *MapView) OnRedraw(fn func(Frame)) {
	m.onRedraw = append(m.onRedraw, fn)
}

// MarkDirty requests a redraw. Requests are coalesced until the next Frame.
func (m *MapView) MarkDirty() {
	m.redrawDirty = true
}

// Store puts a tile that just finished loading into the cache. A tile that was
// evicted while loading is disposed and never gets here.
func (m *MapView) Store(t *tile.Tile) {
	m.cache.Put(t)
	metrics.CacheStores.Inc()
}

func (m *MapView) invalidateLayout() {
	m.layoutDirty = true
	m.redrawDirty = true
}

// Frame advances a running flight, runs a pending selection pass and renders
// if anything asked for a redraw since the last frame. It reports whether a
// frame was rendered.
func (m *MapView) Frame(now time.Time) bool {
	if m.flight != nil {
		p, zoom, done := m.flight.at(now)
		m.setCenter(p)
		m.setZoom(zoom)
		if done {
			m.flight = nil
			m.logger.Debug("flight finished", "zoom", m.zoom)
		}
	}

	if m.layoutDirty {
		m.Update()
	}
	if !m.redrawDirty {
		return false
	}
	m.redrawDirty = false

	f := m.Render()
	metrics.Redraws.Inc()
	for _, fn := range m.onRedraw {
		fn(f)
	}

	return true
}

// Stats describes the tile cache.
type Stats struct {
	Cached   int    `json:"cached"`
	Capacity int    `json:"capacity"`
	Loading  int    `json:"loading"`
	Covering int    `json:"covering"`
	Passes   uint64 `json:"passes"`
}

func (m *MapView) Stats() Stats {
	s := Stats{
		Cached:   m.cache.Len(),
		Capacity: m.cache.Capacity(),
		Passes:   m.pass,
	}
	for _, t := range m.cache.Tiles() {
		if t.Loading() {
			s.Loading++
		}
		if t.IsCovering() {
			s.Covering++
		}
	}
	return s
}

// LastFrame returns the most recently rendered frame.
func (m *MapView) LastFrame() Frame {
	return m.last
}

// SelectedZoom is the tile level the selection pass requests.
func (m *MapView) SelectedZoom() int {
	z := tile.VisibleZoom(m.zoom, m.opts.Tipping)
	return max(0, min(z, m.opts.MaxZoom-1))
}

// Translation returns the screen offset of the world origin that puts the
// center in the middle of the viewport.
func (m *MapView) Translation() (x, y float64) {
	cx, cy := geo.Project(m.Center(), m.zoom, m.opts.TileSize)
	return float64(m.width)/2 - cx, float64(m.height)/2 - cy
}

func (m *MapView) Viewport() Viewport {
	tx, ty := m.Translation()
	return Viewport{
		Zoom:       m.zoom,
		TileSize:   m.opts.TileSize,
		TranslateX: tx,
		TranslateY: ty,
		Width:      m.width,
		Height:     m.height,
	}
}

func (m *MapView) tileView(vp Viewport) tile.View {
	return tile.View{
		Zoom:       vp.Zoom,
		TranslateX: vp.TranslateX,
		TranslateY: vp.TranslateY,
		TileSize:   vp.TileSize,
		MaxZoom:    m.opts.MaxZoom,
		Tipping:    m.opts.Tipping,
		Width:      float64(vp.Width),
		Height:     float64(vp.Height),
	}
}

// Update runs one tile selection pass: it makes sure every tile covering the
// viewport at the selected level exists, lets the nearest loaded ancestor
// stand in for each tile still loading, recomputes the geometry of every
// cached tile and evicts what is no longer needed.
func (m *MapView) Update() {
	m.pass++
	m.layoutDirty = false

	vp := m.Viewport()
	z := m.SelectedZoom()

	for _, k := range m.neededKeys(vp, z) {
		t := m.obtain(k)
		t.MarkNeeded(m.pass)
		if t.Loaded() || t.CoveredBy() != nil {
			continue
		}
		m.cover(t)
	}

	view := m.tileView(vp)
	for _, t := range m.cache.Tiles() {
		t.Recompute(view)
	}

	m.cache.Evict(m.pass)

	for _, l := range m.layers {
		l.MarkDirty()
	}
	m.redrawDirty = true

	metrics.SelectionPasses.Inc()
	m.logger.Debug("selection pass", "pass", m.pass, "zoom", z, "cached", m.cache.Len())
}

// neededKeys lists the tiles at level z intersecting the viewport, padded on
// every edge. Columns wrap around the antimeridian, rows stop at the poles.
func (m *MapView) neededKeys(vp Viewport, z int) []tile.Key {
	extent := float64(m.opts.TileSize) * math.Pow(2, vp.Zoom-float64(z))
	pad := m.opts.Padding
	n := 1 << z

	minCol := int(math.Floor(-vp.TranslateX/extent)) - pad
	maxCol := int(math.Floor((float64(vp.Width)-vp.TranslateX)/extent)) + pad
	minRow := max(int(math.Floor(-vp.TranslateY/extent))-pad, 0)
	maxRow := min(int(math.Floor((float64(vp.Height)-vp.TranslateY)/extent))+pad, n-1)

	if maxCol-minCol+1 > n {
		maxCol = minCol + n - 1
	}

	keys := make([]tile.Key, 0, max(0, (maxCol-minCol+1)*(maxRow-minRow+1)))
	for col := minCol; col <= maxCol; col++ {
		for row := minRow; row <= maxRow; row++ {
			keys = append(keys, tile.NewKey(z, col, row))
		}
	}

	return keys
}

// obtain returns the cached tile for k or creates it, which starts its
// fetch. There is never more than one tile, and one fetch, per key.
func (m *MapView) obtain(k tile.Key) *tile.Tile {
	if t, ok := m.cache.Get(k); ok {
		return t
	}

	t := tile.New(k, m.retriever.Fetch(k), m, m.logger)
	m.cache.Put(t)

	return t
}

// cover searches coarser levels for a loaded ancestor to render in place of t.
// Without one, t stays blank until it loads.
func (m *MapView) cover(t *tile.Tile) {
	k := t.Key()
	for dz := 1; dz <= k.Zoom; dz++ {
		ancestor, ok := m.cache.Get(k.Ancestor(dz))
		if !ok || !ancestor.Loaded() {
			continue
		}
		if err := ancestor.AddCovering(t); err != nil {
			m.logger.Warn("failed to install covering", "tile", k.String(), "ancestor", ancestor.Key().String(), "error", err)
		}
		return
	}
}

// Render builds a frame from the visible tiles and the layers. Rendered tiles
// become the most recently used in the cache.
func (m *MapView) Render() Frame {
	vp := m.Viewport()

	f := Frame{
		Viewport: vp,
		Center:   m.Center(),
	}

	z := m.SelectedZoom()
	for _, t := range m.cache.Tiles() {
		if t.Loading() && t.Key().Zoom == z {
			f.Loading++
		}
		if !t.Visible() {
			continue
		}
		m.cache.Touch(t)
		f.Sprites = append(f.Sprites, t.Sprite())
	}
	slices.SortFunc(f.Sprites, func(a, b tile.Sprite) int {
		return cmp.Or(
			cmp.Compare(a.Key.Zoom, b.Key.Zoom),
			cmp.Compare(a.Key.Column, b.Key.Column),
			cmp.Compare(a.Key.Row, b.Key.Row),
		)
	})

	for _, l := range m.layers {
		f.Elements = append(f.Elements, l.Render(vp)...)
	}

	m.last = f
	return f
}

// Close disposes every tile. The map view must not be used afterwards.
func (m *MapView) Close() {
	m.cancelCenter()
	m.cache.Clear()
	m.flight = nil
}

func clampZoom(zoom float64, maxZoom int) float64 {
	if math.IsNaN(zoom) {
		return 0
	}
	return max(0, min(zoom, float64(maxZoom)))
}
