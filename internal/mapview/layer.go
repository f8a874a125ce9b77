package mapview

import (
	"github.com/jaennil/slippymap/internal/geo"
)

// Layer draws auxiliary content on top of the tiles. Layers render in the
// order they were added.
type Layer interface {
	// MarkDirty tells the layer its cached elements no longer match the view.
	MarkDirty()
	Render(vp Viewport) []Element
}

// Element is one positioned visual produced by a layer.
type Element struct {
	Layer string    `json:"layer"`
	ID    string    `json:"id"`
	Point geo.Point `json:"point"`
	X     float64   `json:"x"`
	Y     float64   `json:"y"`
}

// Viewport is the transform from geographic to screen coordinates used for
// one frame.
type Viewport struct {
	Zoom       float64 `json:"zoom"`
	TileSize   int     `json:"tile_size"`
	TranslateX float64 `json:"translate_x"`
	TranslateY float64 `json:"translate_y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
}

// Project maps p to screen pixels with the projection the tiles use.
func (vp Viewport) Project(p geo.Point) (x, y float64) {
	wx, wy := geo.Project(p, vp.Zoom, vp.TileSize)
	return wx + vp.TranslateX, wy + vp.TranslateY
}

func (vp Viewport) Contains(x, y float64) bool {
	return x >= 0 && y >= 0 && x < float64(vp.Width) && y < float64(vp.Height)
}
