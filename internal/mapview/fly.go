package mapview

import (
	"math"
	"time"

	"github.com/jaennil/slippymap/internal/geo"
)

// flight animates center and zoom between two views. The center moves
// linearly in projected space so the path looks straight on the map.
type flight struct {
	duration time.Duration
	start    time.Time
	started  bool

	to           geo.Point
	fromX, fromY float64
	toX, toY     float64
	fromZoom     float64
	toZoom       float64
}

// centers are interpolated in zoom 0 world pixels of this size.
const flightTileSize = 256

func newFlight(duration time.Duration, from geo.Point, fromZoom float64, to geo.Point, toZoom float64) *flight {
	f := &flight{
		duration: duration,
		to:       to,
		fromZoom: fromZoom,
		toZoom:   toZoom,
	}
	f.fromX, f.fromY = geo.Project(from, 0, flightTileSize)
	f.toX, f.toY = geo.Project(to, 0, flightTileSize)

	// cross the antimeridian when that is the shorter way
	switch dx := f.toX - f.fromX; {
	case dx > flightTileSize/2:
		f.toX -= flightTileSize
	case dx < -flightTileSize/2:
		f.toX += flightTileSize
	}

	return f
}

// at returns the interpolated view at now and whether the flight is over.
// The clock starts on the first call.
func (f *flight) at(now time.Time) (geo.Point, float64, bool) {
	if !f.started {
		f.start = now
		f.started = true
	}

	t := 1.0
	if f.duration > 0 {
		t = min(float64(now.Sub(f.start))/float64(f.duration), 1)
	}
	if t >= 1 {
		return f.to, f.toZoom, true
	}
	e := easeInOut(t)

	x := f.fromX + (f.toX-f.fromX)*e
	y := f.fromY + (f.toY-f.fromY)*e
	x = math.Mod(x+flightTileSize, flightTileSize)

	p := geo.Clamp(geo.Unproject(x, y, 0, flightTileSize))
	zoom := f.fromZoom + (f.toZoom-f.fromZoom)*e

	return p, zoom, false
}

func easeInOut(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	u := -2*t + 2
	return 1 - u*u*u/2
}
