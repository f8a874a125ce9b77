package tile

import "math"

// View is the part of the map state a tile needs to place itself.
type View struct {
	Zoom       float64
	TranslateX float64
	TranslateY float64
	TileSize   int
	MaxZoom    int
	Tipping    float64
	// Width and Height bound the viewport in screen pixels. Zero disables
	// culling.
	Width  float64
	Height float64
}

// Geometry is the derived on-screen transform of a tile.
type Geometry struct {
	Scale   float64
	X       float64
	Y       float64
	Visible bool
}

// VisibleZoom rounds a continuous zoom to the tile level that is shown. The
// tipping bias moves the switch away from integer boundaries so the level
// change happens mid-transition.
func VisibleZoom(zoom, tipping float64) int {
	return int(math.Floor(zoom + tipping))
}

// ComputeGeometry has no side effects and is cheap enough to run on every
// zoom or pan change.
func ComputeGeometry(k Key, covering bool, v View) Geometry {
	return computeGeometry(k, covering, v, copyShift(k, v))
}

// computeGeometry places k shifted by whole world widths.
func computeGeometry(k Key, covering bool, v View, shift float64) Geometry {
	window := VisibleZoom(v.Zoom, v.Tipping)
	visible := window == k.Zoom ||
		covering ||
		(window >= v.MaxZoom && k.Zoom == v.MaxZoom-1)

	scale := math.Pow(2, v.Zoom-float64(k.Zoom))
	extent := float64(v.TileSize) * scale

	g := Geometry{
		Scale: scale,
		X:     extent*float64(k.Column) + v.TranslateX + shift,
		Y:     extent*float64(k.Row) + v.TranslateY,
	}
	g.Visible = visible && g.onScreen(extent, v.Width, v.Height)

	return g
}

// copyShift moves k into the world copy whose tile centre is nearest the
// viewport centre. Columns wrap, so a tile exists once per world copy. The
// world width is the same at every level, so a shift computed for one tile
// places any other tile in the same copy.
func copyShift(k Key, v View) float64 {
	if v.Width <= 0 {
		return 0
	}
	extent := float64(v.TileSize) * math.Pow(2, v.Zoom-float64(k.Zoom))
	world := extent * float64(k.Side())
	x := extent*float64(k.Column) + v.TranslateX
	return -world * math.Round((x+extent/2-v.Width/2)/world)
}

func (g Geometry) onScreen(extent, width, height float64) bool {
	if width <= 0 || height <= 0 {
		return true
	}
	return g.X < width && g.X+extent > 0 && g.Y < height && g.Y+extent > 0
}

// Rect returns the on-screen bounds of a tile of the given pixel size.
func (g Geometry) Rect(tileSize int) (x0, y0, x1, y1 float64) {
	extent := float64(tileSize) * g.Scale
	return g.X, g.Y, g.X + extent, g.Y + extent
}
