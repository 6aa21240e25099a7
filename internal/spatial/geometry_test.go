package spatial

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	tours    = NewCoordinate(47.3941, 0.6848)
	poitiers = NewCoordinate(46.5802, 0.3404)
	angers   = NewCoordinate(47.4784, -0.5632)
)

func TestDistance(t *testing.T) {
	testCases := []struct {
		name string
		a, b Coordinate
		want float64
	}{
		{name: "same point", a: tours, b: tours, want: 0},
		{name: "one degree of latitude", a: NewCoordinate(47, 0), b: NewCoordinate(48, 0), want: EarthRadiusKm * math.Pi / 180},
		{name: "tours poitiers", a: tours, b: poitiers, want: 94.0},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Distance(tt.a, tt.b), 1.0)
		})
	}
}

func TestDistanceIsSymmetricAndTriangular(t *testing.T) {
	points := []Coordinate{tours, poitiers, angers, NewCoordinate(-33.9, 151.2), NewCoordinate(64.1, -21.9)}

	for _, a := range points {
		assert.Zero(t, Distance(a, a))
		for _, b := range points {
			assert.InDelta(t, Distance(a, b), Distance(b, a), 1e-9)
			for _, c := range points {
				assert.LessOrEqual(t, Distance(a, c), Distance(a, b)+Distance(b, c)+1e-6)
			}
		}
	}
}

func TestPathLength(t *testing.T) {
	assert.Zero(t, PathLength(nil))
	assert.Zero(t, PathLength([]Coordinate{tours}))
	assert.Zero(t, Polyline{}.Length())

	line := Polyline{tours, poitiers, angers}
	assert.InDelta(t, Distance(tours, poitiers)+Distance(poitiers, angers), line.Length(), 1e-9)
}

func TestClosestVertexDistance(t *testing.T) {
	line := Polyline{tours, poitiers}

	assert.Zero(t, Polyline{}.ClosestVertexDistance(tours))
	assert.Zero(t, line.ClosestVertexDistance(poitiers))
	assert.InDelta(t, Distance(angers, tours), line.ClosestVertexDistance(angers), 1e-9)
}

func TestBoundingBoxAround(t *testing.T) {
	center := NewCoordinate(47.0, 0.0)
	box := BoundingBoxAround(center, 20)
	delta := 20 / EarthRadiusKm * 180 / math.Pi

	assert.InDelta(t, 47.0-delta, box.MinLat, 1e-12)
	assert.InDelta(t, 47.0+delta, box.MaxLat, 1e-12)
	assert.Less(t, box.MaxLat-47.0, 0.18)
	assert.Greater(t, box.MaxLon, delta)
	assert.InDelta(t, -box.MinLon, box.MaxLon, 1e-12)
	assert.True(t, box.Valid())
	assert.True(t, box.Contains(center))
	assert.Equal(t, box, BoundingBoxAround(center, 20))
}

func TestBoundingBoxAroundEdgeCases(t *testing.T) {
	center := NewCoordinate(47.0, 0.0)

	degenerate := BoundingBoxAround(center, -5)
	assert.False(t, degenerate.Valid())
	assert.True(t, degenerate.Contains(center))

	polar := BoundingBoxAround(NewCoordinate(89.99, 10), 50)
	assert.Equal(t, 90.0, polar.MaxLat)
	assert.Equal(t, -180.0, polar.MinLon)
	assert.Equal(t, 180.0, polar.MaxLon)
}

func TestBoundingBoxFromCorners(t *testing.T) {
	box := BoundingBoxFromCorners(NewCoordinate(48, 2), NewCoordinate(46, -1))
	assert.Equal(t, BoundingBox{MinLat: 46, MaxLat: 48, MinLon: -1, MaxLon: 2}, box)
	assert.True(t, box.Contains(NewCoordinate(47, 0)))
	assert.False(t, box.Contains(NewCoordinate(45, 0)))
}

func TestGeoJSONRoundTrip(t *testing.T) {
	line := Polyline{tours, poitiers, angers}
	poly := Polygon{{tours, poitiers, angers, tours}}

	data, err := json.Marshal(line.Geometry())
	require.NoError(t, err)
	var g geojson.Geometry
	require.NoError(t, json.Unmarshal(data, &g))
	gotLine, err := PolylineFromGeometry(&g)
	require.NoError(t, err)
	assert.Equal(t, line, gotLine)

	data, err = json.Marshal(poly.Geometry())
	require.NoError(t, err)
	var pg geojson.Geometry
	require.NoError(t, json.Unmarshal(data, &pg))
	gotPoly, err := PolygonFromGeometry(&pg)
	require.NoError(t, err)
	assert.Equal(t, poly, gotPoly)

	_, err = CoordinateFromGeometry(&pg)
	assert.Error(t, err)
}

func TestEmptyGeometriesDecodeToNil(t *testing.T) {
	poly, err := PolygonFromGeometry(Polygon(nil).Geometry())
	require.NoError(t, err)
	assert.Nil(t, poly)

	line, err := PolylineFromGeometry(Polyline(nil).Geometry())
	require.NoError(t, err)
	assert.Nil(t, line)
}

func TestPolylineEncoding(t *testing.T) {
	line := Polyline{tours, poitiers}

	decoded, err := DecodePolyline(line.Encode())
	require.NoError(t, err)
	require.Len(t, decoded, 2)
	assert.InDelta(t, tours.Lat, decoded[0].Lat, 1e-5)
	assert.InDelta(t, poitiers.Lon, decoded[1].Lon, 1e-5)
}

func TestIntermediatesReturnsFreshSlice(t *testing.T) {
	line := Polyline{tours, poitiers, angers}
	mid := line.Intermediates()
	require.Equal(t, []Coordinate{poitiers}, mid)

	mid[0] = tours
	assert.Equal(t, poitiers, line[1])
	assert.Empty(t, Polyline{tours}.Intermediates())
}
