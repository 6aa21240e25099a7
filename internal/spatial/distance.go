package spatial

import (
	"math"

	"github.com/golang/geo/s2"
)

// Constants
const (
	EarthRadiusKm = 6371.0 // Earth's mean radius in kilometers
)

// Distance calculates the great-circle distance between two coordinates in km
// using the Haversine formula
func Distance(a, b Coordinate) float64 {
	p1 := s2.LatLngFromDegrees(a.Lat, a.Lon)
	p2 := s2.LatLngFromDegrees(b.Lat, b.Lon)
	return p1.Distance(p2).Radians() * EarthRadiusKm
}

// PathLength calculates the total length of a path (sequence of points) in km
func PathLength(points []Coordinate) float64 {
	if len(points) < 2 {
		return 0
	}

	var total float64
	for i := 1; i < len(points); i++ {
		total += Distance(points[i-1], points[i])
	}

	return total
}

// ClosestVertexDistance returns the smallest distance in km between p and any
// vertex of points, 0 when points is empty
func ClosestVertexDistance(points []Coordinate, p Coordinate) float64 {
	if len(points) == 0 {
		return 0
	}

	best := math.Inf(1)
	for _, v := range points {
		if d := PathLength([]Coordinate{v, p}); d < best {
			best = d
		}
	}

	return best
}

func deg2rad(deg float64) float64 {
	return deg * math.Pi / 180
}

func rad2deg(rad float64) float64 {
	return rad * 180 / math.Pi
}
