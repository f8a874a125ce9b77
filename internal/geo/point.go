package geo

// MapPoint is a mutable coordinate that notifies observers when it moves.
// Like the rest of the map state it belongs to the owner goroutine; updates
// from elsewhere must be dispatched there.
type MapPoint struct {
	point     Point
	observers []observer
	nextID    int
}

type observer struct {
	id int
	fn func(Point)
}

func NewMapPoint(lat, lon float64) *MapPoint {
	return &MapPoint{point: Point{Lat: lat, Lon: lon}}
}

func (p *MapPoint) Latitude() float64 {
	return p.point.Lat
}

func (p *MapPoint) Longitude() float64 {
	return p.point.Lon
}

func (p *MapPoint) Point() Point {
	return p.point
}

// Update moves the point. Observers are not notified when nothing changed.
func (p *MapPoint) Update(lat, lon float64) {
	next := Point{Lat: lat, Lon: lon}
	if next == p.point {
		return
	}
	p.point = next

	observers := make([]observer, len(p.observers))
	copy(observers, p.observers)
	for _, o := range observers {
		o.fn(next)
	}
}

func (p *MapPoint) Observe(fn func(Point)) (cancel func()) {
	p.nextID++
	id := p.nextID
	p.observers = append(p.observers, observer{id: id, fn: fn})

	return func() {
		for i, o := range p.observers {
			if o.id == id {
				p.observers = append(p.observers[:i:i], p.observers[i+1:]...)
				return
			}
		}
	}
}
