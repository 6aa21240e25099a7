package spatial

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/twpayne/go-polyline"
)

// Point converts the coordinate to an orb point (lon, lat order)
func (c Coordinate) Point() orb.Point {
	return orb.Point{c.Lon, c.Lat}
}

// Geometry returns the GeoJSON Point geometry of the coordinate
func (c Coordinate) Geometry() *geojson.Geometry {
	return geojson.NewGeometry(c.Point())
}

// LineString converts the polyline to an orb line string
func (l Polyline) LineString() orb.LineString {
	ls := make(orb.LineString, 0, len(l))
	for _, c := range l {
		ls = append(ls, c.Point())
	}
	return ls
}

// Geometry returns the GeoJSON LineString geometry of the polyline
func (l Polyline) Geometry() *geojson.Geometry {
	return geojson.NewGeometry(l.LineString())
}

// Encode returns the polyline in Google's encoded polyline format
func (l Polyline) Encode() string {
	coords := make([][]float64, 0, len(l))
	for _, c := range l {
		coords = append(coords, []float64{c.Lat, c.Lon})
	}
	return string(polyline.EncodeCoords(coords))
}

// DecodePolyline parses a Google encoded polyline
func DecodePolyline(encoded string) (Polyline, error) {
	coords, _, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, fmt.Errorf("failed to decode polyline: %w", err)
	}
	out := make(Polyline, 0, len(coords))
	for _, c := range coords {
		out = append(out, Coordinate{Lat: c[0], Lon: c[1]})
	}
	return out, nil
}

// OrbPolygon converts the polygon to an orb polygon
func (p Polygon) OrbPolygon() orb.Polygon {
	poly := make(orb.Polygon, 0, len(p))
	for _, ring := range p {
		r := make(orb.Ring, 0, len(ring))
		for _, c := range ring {
			r = append(r, c.Point())
		}
		poly = append(poly, r)
	}
	return poly
}

// Geometry returns the GeoJSON Polygon geometry
func (p Polygon) Geometry() *geojson.Geometry {
	return geojson.NewGeometry(p.OrbPolygon())
}

// CoordinateFromGeometry reads a GeoJSON Point
func CoordinateFromGeometry(g *geojson.Geometry) (Coordinate, error) {
	if g == nil {
		return Coordinate{}, fmt.Errorf("missing point geometry")
	}
	p, ok := g.Coordinates.(orb.Point)
	if !ok {
		return Coordinate{}, fmt.Errorf("expected Point geometry, got %s", geometryType(g))
	}
	return Coordinate{Lat: p[1], Lon: p[0]}, nil
}

// PolylineFromGeometry reads a GeoJSON LineString, empty geometries give nil
func PolylineFromGeometry(g *geojson.Geometry) (Polyline, error) {
	if g == nil || g.Coordinates == nil {
		return nil, nil
	}
	ls, ok := g.Coordinates.(orb.LineString)
	if !ok {
		return nil, fmt.Errorf("expected LineString geometry, got %s", geometryType(g))
	}
	if len(ls) == 0 {
		return nil, nil
	}
	out := make(Polyline, 0, len(ls))
	for _, p := range ls {
		out = append(out, Coordinate{Lat: p[1], Lon: p[0]})
	}
	return out, nil
}

// PolygonFromGeometry reads a GeoJSON Polygon, empty geometries give nil
func PolygonFromGeometry(g *geojson.Geometry) (Polygon, error) {
	if g == nil || g.Coordinates == nil {
		return nil, nil
	}
	poly, ok := g.Coordinates.(orb.Polygon)
	if !ok {
		return nil, fmt.Errorf("expected Polygon geometry, got %s", geometryType(g))
	}
	if len(poly) == 0 {
		return nil, nil
	}
	out := make(Polygon, 0, len(poly))
	for _, ring := range poly {
		r := make([]Coordinate, 0, len(ring))
		for _, p := range ring {
			r = append(r, Coordinate{Lat: p[1], Lon: p[0]})
		}
		out = append(out, r)
	}
	return out, nil
}

func geometryType(g *geojson.Geometry) string {
	if g.Coordinates == nil {
		return g.Type
	}
	return g.Coordinates.GeoJSONType()
}
