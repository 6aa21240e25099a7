package spatial

// Coordinate is a WGS84 latitude/longitude pair in degrees
type Coordinate struct {
	Lat float64
	Lon float64
}

// DefaultCoordinate is used when no position is known (centre of France)
var DefaultCoordinate = Coordinate{Lat: 47.0, Lon: 0.0}

// NewCoordinate creates a coordinate
func NewCoordinate(lat, lon float64) Coordinate {
	return Coordinate{Lat: lat, Lon: lon}
}

// Polygon is a list of rings, the first one being the outer boundary.
// Closure of the rings is not enforced.
type Polygon [][]Coordinate

// Outer returns the outer ring, nil for an empty polygon
func (p Polygon) Outer() []Coordinate {
	if len(p) == 0 {
		return nil
	}
	return p[0]
}

// Polyline is an ordered sequence of coordinates
type Polyline []Coordinate

// Length returns the cumulative great-circle length in km
func (l Polyline) Length() float64 {
	return PathLength(l)
}

// ClosestVertexDistance returns the distance in km from p to the nearest vertex
func (l Polyline) ClosestVertexDistance(p Coordinate) float64 {
	return ClosestVertexDistance(l, p)
}

// Start returns the first vertex
func (l Polyline) Start() (Coordinate, bool) {
	if len(l) == 0 {
		return Coordinate{}, false
	}
	return l[0], true
}

// End returns the last vertex
func (l Polyline) End() (Coordinate, bool) {
	if len(l) == 0 {
		return Coordinate{}, false
	}
	return l[len(l)-1], true
}

// Intermediates returns the vertices between the first and the last one.
// A fresh slice is returned on every call.
func (l Polyline) Intermediates() []Coordinate {
	if len(l) < 3 {
		return []Coordinate{}
	}
	out := make([]Coordinate, len(l)-2)
	copy(out, l[1:len(l)-1])
	return out
}
