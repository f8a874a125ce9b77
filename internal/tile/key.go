package tile

import "fmt"

// ZoomLimit bounds the zoom of any map. Grids stay within 2^30 tiles a side,
// so packed keys fit an int64 and grid arithmetic never overflows an int.
const ZoomLimit = 30

// Key identifies a tile by zoom level and integer column/row.
type Key struct {
	Zoom   int `json:"z"`
	Column int `json:"x"`
	Row    int `json:"y"`
}

// NewKey wraps the column around the antimeridian and clamps the row to the
// grid, so that any viewport-derived coordinate maps onto a real tile.
func NewKey(zoom, column, row int) Key {
	n := 1 << zoom
	column %= n
	if column < 0 {
		column += n
	}
	row = max(0, min(row, n-1))
	return Key{Zoom: zoom, Column: column, Row: row}
}

// Side returns the number of tiles along one axis at the key's zoom level.
func (k Key) Side() int {
	return 1 << k.Zoom
}

func (k Key) Valid() bool {
	n := k.Side()
	return k.Zoom >= 0 && k.Column >= 0 && k.Column < n && k.Row >= 0 && k.Row < n
}

// Packed is unique only within one zoom level. Lookups must always carry the
// zoom alongside it.
func (k Key) Packed() int64 {
	return int64(k.Column)*int64(k.Side()) + int64(k.Row)
}

// Ancestor returns the key dz levels up that covers the same area.
func (k Key) Ancestor(dz int) Key {
	if dz > k.Zoom {
		dz = k.Zoom
	}
	return Key{Zoom: k.Zoom - dz, Column: k.Column >> dz, Row: k.Row >> dz}
}

func (k Key) String() string {
	return fmt.Sprintf("%d/%d/%d", k.Zoom, k.Column, k.Row)
}
