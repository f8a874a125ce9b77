package geo

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

// MaxLatitude is the Web-Mercator latitude limit.
const MaxLatitude = 85.0511287798

// fractions are taken at a deep level so the pole clamping of maptile stays
// below a pixel at every zoom the map uses.
const fractionZoom maptile.Zoom = 30

// Point is an immutable geographic coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (p Point) Orb() orb.Point {
	return orb.Point{p.Lon, p.Lat}
}

// Project returns world pixel coordinates of p at a continuous zoom level.
// Tiles and overlay layers share this projection.
func Project(p Point, zoom float64, tileSize int) (x, y float64) {
	frac := maptile.Fraction(p.Orb(), fractionZoom)
	world := float64(tileSize) * math.Pow(2, zoom) / float64(uint32(1)<<fractionZoom)
	return frac[0] * world, frac[1] * world
}

// Unproject is the inverse of Project.
func Unproject(x, y, zoom float64, tileSize int) Point {
	world := float64(tileSize) * math.Pow(2, zoom)
	lon := x/world*360 - 180
	latRad := math.Atan(math.Sinh(math.Pi * (1 - 2*y/world)))
	return Point{Lat: latRad * 180 / math.Pi, Lon: lon}
}

// Clamp keeps p inside the projectable range.
func Clamp(p Point) Point {
	p.Lat = max(-MaxLatitude, min(p.Lat, MaxLatitude))
	p.Lon = max(-180, min(p.Lon, 180))
	return p
}
