package spatial

import "math"

// BoundingBox is a lat/lon aligned rectangle used to pre-filter area queries
type BoundingBox struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// BoundingBoxFromCorners builds the box spanned by two opposite corners
func BoundingBoxFromCorners(a, b Coordinate) BoundingBox {
	return BoundingBox{
		MinLat: math.Min(a.Lat, b.Lat),
		MaxLat: math.Max(a.Lat, b.Lat),
		MinLon: math.Min(a.Lon, b.Lon),
		MaxLon: math.Max(a.Lon, b.Lon),
	}
}

// BoundingBoxAround builds the box enclosing the circle of radiusKm around
// center. The longitude delta is computed on the circle of latitude of the
// northern edge. Near the poles that circle degenerates, the box then spans
// every longitude. A negative or NaN radius yields a degenerate box on the
// center.
func BoundingBoxAround(center Coordinate, radiusKm float64) BoundingBox {
	if !(radiusKm > 0) {
		return BoundingBoxFromCorners(center, center)
	}

	deltaLat := rad2deg(radiusKm / EarthRadiusKm)
	box := BoundingBox{
		MinLat: math.Max(center.Lat-deltaLat, -90),
		MaxLat: math.Min(center.Lat+deltaLat, 90),
	}

	circleRadius := EarthRadiusKm * math.Sin(deg2rad(90-box.MaxLat))
	if circleRadius <= radiusKm/math.Pi {
		box.MinLon, box.MaxLon = -180, 180
		return box
	}

	deltaLon := rad2deg(radiusKm / circleRadius)
	box.MinLon = center.Lon - deltaLon
	box.MaxLon = center.Lon + deltaLon
	return box
}

// Contains reports whether c lies inside the box, borders included
func (b BoundingBox) Contains(c Coordinate) bool {
	return b.MinLat <= c.Lat && c.Lat <= b.MaxLat && b.MinLon <= c.Lon && c.Lon <= b.MaxLon
}

// Valid reports whether the box has a non-empty extent
func (b BoundingBox) Valid() bool {
	return b.MinLat < b.MaxLat && b.MinLon < b.MaxLon
}
