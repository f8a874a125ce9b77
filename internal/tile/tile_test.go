package tile

import (
	"errors"
	"testing"

	"github.com/jaennil/slippymap/pkg/logger"
)

type fakeOwner struct {
	stored []*Tile
	dirty  int
}

func (o *fakeOwner) Store(t *Tile) { o.stored = append(o.stored, t) }
func (o *fakeOwner) MarkDirty()    { o.dirty++ }

func newTestTile(owner Owner, zoom, col, row int) (*Tile, *Progress) {
	p := NewProgress()
	return New(Key{Zoom: zoom, Column: col, Row: row}, p, owner, logger.NewNop()), p
}

func TestCompletionStoresOnce(t *testing.T) {
	owner := &fakeOwner{}
	tl, p := newTestTile(owner, 5, 3, 2)

	p.Set(0.4)
	if len(owner.stored) != 0 {
		t.Fatal("tile stored before completion")
	}

	p.Complete([]byte("png"))
	p.Set(1)
	p.Set(0.2)
	tl.OnProgressChanged()

	if len(owner.stored) != 1 || owner.stored[0] != tl {
		t.Fatalf("stored %d times, want exactly once", len(owner.stored))
	}
	if owner.dirty != 1 {
		t.Errorf("dirty marked %d times, want 1", owner.dirty)
	}
	if tl.Progress() != 1 {
		t.Errorf("Progress() = %v after completion", tl.Progress())
	}
}

func TestNewWithCompletedProgress(t *testing.T) {
	owner := &fakeOwner{}
	tl := New(Key{Zoom: 2, Column: 1, Row: 1}, Completed(nil), owner, logger.NewNop())

	if !tl.Loaded() || len(owner.stored) != 1 {
		t.Fatalf("Loaded() = %v, stored = %d", tl.Loaded(), len(owner.stored))
	}
}

func TestCoveringLifecycle(t *testing.T) {
	owner := &fakeOwner{}
	parent, pp := newTestTile(owner, 4, 1, 1)
	pp.Complete(nil)
	child, cp := newTestTile(owner, 5, 2, 2)
	owner.dirty = 0

	if err := parent.AddCovering(child); err != nil {
		t.Fatalf("AddCovering() error = %v", err)
	}
	if !parent.IsCovering() || !parent.CoveringFor(child) || child.CoveredBy() != parent {
		t.Fatal("covering relationship not installed")
	}

	cp.Set(0.5)
	if !parent.CoveringFor(child) {
		t.Fatal("covering dropped before child finished")
	}

	cp.Complete(nil)
	if parent.IsCovering() || child.CoveredBy() != nil {
		t.Fatal("covering not retired after child finished")
	}

	// child completion and covering teardown each mark dirty once
	if owner.dirty != 2 {
		t.Errorf("dirty marked %d times, want 2", owner.dirty)
	}

	cp.Set(1)
	if owner.dirty != 2 {
		t.Errorf("duplicate notification marked dirty again: %d", owner.dirty)
	}
}

func TestAddCoveringIsIdempotent(t *testing.T) {
	owner := &fakeOwner{}
	parent, pp := newTestTile(owner, 4, 1, 1)
	pp.Complete(nil)
	child, cp := newTestTile(owner, 5, 2, 2)

	for i := 0; i < 3; i++ {
		if err := parent.AddCovering(child); err != nil {
			t.Fatalf("AddCovering() #%d error = %v", i, err)
		}
	}
	if len(parent.covering) != 1 {
		t.Fatalf("covering has %d entries, want 1", len(parent.covering))
	}

	// one subscription from the child itself, one from the parent
	if len(cp.subs) != 2 {
		t.Fatalf("child progress has %d subscribers, want 2", len(cp.subs))
	}

	cp.Complete(nil)
	if len(cp.subs) != 1 {
		t.Errorf("covering subscription leaked: %d subscribers", len(cp.subs))
	}
}

func TestRetireTwiceMatchesOnce(t *testing.T) {
	owner := &fakeOwner{}
	parent, pp := newTestTile(owner, 4, 1, 1)
	pp.Complete(nil)
	child, cp := newTestTile(owner, 5, 2, 2)

	if err := parent.AddCovering(child); err != nil {
		t.Fatalf("AddCovering() error = %v", err)
	}
	cp.Set(1)
	dirty := owner.dirty

	parent.retire(child)
	parent.retire(child)

	if parent.IsCovering() || child.CoveredBy() != nil {
		t.Fatal("unexpected covering state after repeated retire")
	}
	if owner.dirty != dirty {
		t.Errorf("repeated retire marked dirty: %d -> %d", dirty, owner.dirty)
	}
}

func TestAddCoveringRejectsViolations(t *testing.T) {
	owner := &fakeOwner{}
	a, ap := newTestTile(owner, 3, 0, 0)
	ap.Complete(nil)
	b, bp := newTestTile(owner, 4, 0, 0)
	bp.Complete(nil)
	c, _ := newTestTile(owner, 5, 0, 0)
	loaded, lp := newTestTile(owner, 5, 1, 1)
	lp.Complete(nil)
	loading, _ := newTestTile(owner, 4, 1, 1)

	tests := []struct {
		name   string
		parent *Tile
		child  *Tile
		want   error
	}{
		{"self", b, b, ErrSelfCovering},
		{"finer parent", c, b, ErrNotCoarser},
		{"loaded child", a, loaded, ErrChildLoaded},
		{"loading coverer", loading, c, ErrCovererLoading},
	}
	for _, tt := range tests {
		if err := tt.parent.AddCovering(tt.child); !errors.Is(err, tt.want) {
			t.Errorf("%s: AddCovering() error = %v, want %v", tt.name, err, tt.want)
		}
	}

	if err := a.AddCovering(c); err != nil {
		t.Fatalf("AddCovering() error = %v", err)
	}
	if err := b.AddCovering(c); !errors.Is(err, ErrAlreadyCovered) {
		t.Errorf("second coverer error = %v, want %v", err, ErrAlreadyCovered)
	}

	c.Dispose()
	if a.IsCovering() {
		t.Error("disposed child still covered")
	}
	if err := a.AddCovering(c); !errors.Is(err, ErrDisposed) {
		t.Errorf("disposed child error = %v, want %v", err, ErrDisposed)
	}
}

func TestDisposeStopsCallbacks(t *testing.T) {
	owner := &fakeOwner{}
	tl, p := newTestTile(owner, 6, 10, 10)

	tl.Dispose()
	tl.Dispose()
	p.Complete(nil)

	if len(owner.stored) != 0 {
		t.Fatal("disposed tile stored itself on late completion")
	}
	if len(p.subs) != 0 {
		t.Errorf("disposed tile left %d subscriptions", len(p.subs))
	}
}

func TestVisibilityFormula(t *testing.T) {
	owner := &fakeOwner{}
	view := View{Zoom: 13.7, TileSize: 256, MaxZoom: 20, Tipping: 0.5}

	if got := VisibleZoom(13.7, 0.5); got != 14 {
		t.Fatalf("VisibleZoom(13.7, 0.5) = %d, want 14", got)
	}

	fine, fp := newTestTile(owner, 14, 100, 100)
	coarse, cp := newTestTile(owner, 12, 25, 25)
	cp.Complete(nil)

	if !fine.Recompute(view).Visible {
		t.Error("zoom 14 tile should be visible at 13.7")
	}
	if coarse.Recompute(view).Visible {
		t.Error("zoom 12 tile should not be visible when not covering")
	}

	if err := coarse.AddCovering(fine); err != nil {
		t.Fatalf("AddCovering() error = %v", err)
	}
	if !coarse.Visible() {
		t.Error("covering zoom 12 tile should be visible")
	}

	fp.Complete(nil)
	if coarse.Visible() {
		t.Error("zoom 12 tile should hide once the covered tile loaded")
	}
}

func TestMaxZoomFallbackVisible(t *testing.T) {
	owner := &fakeOwner{}
	tl, _ := newTestTile(owner, 19, 0, 0)

	if !tl.Recompute(View{Zoom: 20.2, TileSize: 256, MaxZoom: 20, Tipping: 0.5}).Visible {
		t.Error("tile at MaxZoom-1 should stay visible past the ceiling")
	}
	if tl.Recompute(View{Zoom: 17.1, TileSize: 256, MaxZoom: 20, Tipping: 0.5}).Visible {
		t.Error("tile at MaxZoom-1 should not be visible at zoom 17")
	}
}

func TestComputeGeometry(t *testing.T) {
	g := ComputeGeometry(Key{Zoom: 3, Column: 2, Row: 5}, false, View{
		Zoom:       4,
		TranslateX: -100,
		TranslateY: 50,
		TileSize:   256,
		MaxZoom:    20,
		Tipping:    0.5,
	})

	if g.Scale != 2 {
		t.Errorf("Scale = %v, want 2", g.Scale)
	}
	if g.X != 256*2*2-100 || g.Y != 256*5*2+50 {
		t.Errorf("offset = (%v, %v)", g.X, g.Y)
	}
	if g.Visible {
		t.Error("zoom 3 tile should not be visible at zoom 4")
	}
}

func TestGeometryCullsOffscreenTiles(t *testing.T) {
	view := View{Zoom: 2, TileSize: 256, MaxZoom: 20, Tipping: 0.5, Width: 300, Height: 300}

	if !ComputeGeometry(Key{Zoom: 2, Column: 1, Row: 0}, false, View{
		Zoom: 2, TranslateX: -200, TileSize: 256, MaxZoom: 20, Tipping: 0.5, Width: 300, Height: 300,
	}).Visible {
		t.Error("partially on-screen tile should be visible")
	}
	if ComputeGeometry(Key{Zoom: 2, Column: 3, Row: 3}, false, view).Visible {
		t.Error("off-screen tile at the displayed zoom should not be visible")
	}
}

func TestCoveringDoesNotChain(t *testing.T) {
	owner := &fakeOwner{}
	grand, gp := newTestTile(owner, 3, 0, 0)
	gp.Complete(nil)
	parent, _ := newTestTile(owner, 4, 0, 0)
	child, _ := newTestTile(owner, 5, 0, 0)

	if err := grand.AddCovering(parent); err != nil {
		t.Fatalf("AddCovering() error = %v", err)
	}
	if err := parent.AddCovering(child); !errors.Is(err, ErrCovererLoading) {
		t.Fatalf("covered tile covering another: error = %v, want %v", err, ErrCovererLoading)
	}
	if parent.IsCovering() || child.CoveredBy() != nil {
		t.Error("rejected covering left state behind")
	}
}

func TestCovererSharesWorldCopyWithChild(t *testing.T) {
	owner := &fakeOwner{}
	view := View{Zoom: 2, TranslateX: -284, TileSize: 256, MaxZoom: 20, Tipping: 0.5, Width: 1000, Height: 600}

	parent, pp := newTestTile(owner, 1, 0, 0)
	pp.Complete(nil)
	child, _ := newTestTile(owner, 2, 1, 1)
	parent.Recompute(view)
	child.Recompute(view)

	if err := parent.AddCovering(child); err != nil {
		t.Fatalf("AddCovering() error = %v", err)
	}

	check := func(name string) {
		t.Helper()
		px0, py0, px1, py1 := parent.Geometry().Rect(view.TileSize)
		cx0, cy0, cx1, cy1 := child.Geometry().Rect(view.TileSize)
		if !parent.Visible() || !child.Visible() {
			t.Fatalf("%s: parent visible = %v, child visible = %v", name, parent.Visible(), child.Visible())
		}
		if cx0 < px0 || cx1 > px1 || cy0 < py0 || cy1 > py1 {
			t.Errorf("%s: coverer [%v,%v]x[%v,%v] does not contain child [%v,%v]x[%v,%v]",
				name, px0, px1, py0, py1, cx0, cx1, cy0, cy1)
		}
	}

	check("after AddCovering")

	parent.Recompute(view)
	child.Recompute(view)
	check("after Recompute")

	// panning across the antimeridian keeps them together
	for _, dx := range []float64{-600, -300, 200, 500} {
		moved := view
		moved.TranslateX += dx
		parent.Recompute(moved)
		child.Recompute(moved)
		px0, _, px1, _ := parent.Geometry().Rect(view.TileSize)
		cx0, _, cx1, _ := child.Geometry().Rect(view.TileSize)
		if cx0 < px0 || cx1 > px1 {
			t.Errorf("translate %v: coverer [%v,%v] does not contain child [%v,%v]", moved.TranslateX, px0, px1, cx0, cx1)
		}
	}
}
