package layer

import (
	"slices"

	"github.com/jaennil/slippymap/internal/geo"
	"github.com/jaennil/slippymap/internal/mapview"
)

var _ mapview.Layer = (*PointLayer)(nil)

// PointLayer places markers at geographic points. Points are observed, so
// moving one invalidates the map without going through the layer. Like the
// map it must only be used from the owner goroutine.
type PointLayer struct {
	name       string
	invalidate func()

	points map[string]*marker
	order  []string

	dirty    bool
	viewport mapview.Viewport
	elements []mapview.Element
}

type marker struct {
	point  *geo.MapPoint
	cancel func()
}

// NewPointLayer returns an empty layer. invalidate is called whenever the
// layer needs to be redrawn, typically MapView.MarkDirty.
func NewPointLayer(name string, invalidate func()) *PointLayer {
	return &PointLayer{
		name:       name,
		invalidate: invalidate,
		points:     make(map[string]*marker),
		dirty:      true,
	}
}

// Add shows p under id, replacing any point already registered there.
func (l *PointLayer) Add(id string, p *geo.MapPoint) {
	l.Remove(id)

	l.points[id] = &marker{
		point: p,
		cancel: p.Observe(func(geo.Point) {
			l.MarkDirty()
		}),
	}
	l.order = append(l.order, id)
	l.MarkDirty()
}

func (l *PointLayer) Remove(id string) bool {
	m, ok := l.points[id]
	if !ok {
		return false
	}
	m.cancel()
	delete(l.points, id)
	l.order = slices.DeleteFunc(l.order, func(s string) bool { return s == id })
	l.MarkDirty()
	return true
}

// Point returns the point registered under id.
func (l *PointLayer) Point(id string) (*geo.MapPoint, bool) {
	m, ok := l.points[id]
	if !ok {
		return nil, false
	}
	return m.point, true
}

func (l *PointLayer) Len() int {
	return len(l.points)
}

func (l *PointLayer) MarkDirty() {
	l.dirty = true
	if l.invalidate != nil {
		l.invalidate()
	}
}

// Render projects every point in insertion order. Points outside the viewport
// are skipped.
func (l *PointLayer) Render(vp mapview.Viewport) []mapview.Element {
	if !l.dirty && vp == l.viewport {
		return l.elements
	}

	elements := make([]mapview.Element, 0, len(l.order))
	for _, id := range l.order {
		p := l.points[id].point.Point()
		x, y := vp.Project(p)
		if !vp.Contains(x, y) {
			continue
		}
		elements = append(elements, mapview.Element{
			Layer: l.name,
			ID:    id,
			Point: p,
			X:     x,
			Y:     y,
		})
	}

	l.elements = elements
	l.viewport = vp
	l.dirty = false

	return elements
}

// Close stops observing every point.
func (l *PointLayer) Close() {
	for _, m := range l.points {
		m.cancel()
	}
	clear(l.points)
	l.order = nil
}
