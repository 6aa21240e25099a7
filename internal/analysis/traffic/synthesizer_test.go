package traffic

import (
	"context"
	"testing"

	"github.com/jengzang/charge-sim-backend/internal/enrichment"
	"github.com/jengzang/charge-sim-backend/internal/models"
	"github.com/jengzang/charge-sim-backend/internal/spatial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type routeCall struct {
	start, end spatial.Coordinate
	waypoints  []spatial.Coordinate
}

// fakeRouter answers every route request with the same itinerary
type fakeRouter struct {
	enrichment.Offline
	route enrichment.Route
	calls []routeCall
}

func (f *fakeRouter) RouteDuration(_ context.Context, start, end spatial.Coordinate, waypoints []spatial.Coordinate) (enrichment.Route, error) {
	f.calls = append(f.calls, routeCall{start: start, end: end, waypoints: waypoints})
	return f.route, nil
}

func testCities() []models.City {
	tours := models.DefaultCity()
	tours.INSEE, tours.Name = "37261", "Tours"
	tours.TownHall = spatial.NewCoordinate(47.391, 0.684)
	tours.ElectricCars, tours.Cars = 900, 60000

	joue := models.DefaultCity()
	joue.INSEE, joue.Name = "37122", "Joue-les-Tours"
	joue.TownHall = spatial.NewCoordinate(47.352, 0.663)
	joue.ElectricCars, joue.Cars = 300, 20000

	ballan := models.DefaultCity()
	ballan.INSEE, ballan.Name = "37018", "Ballan-Mire"
	ballan.TownHall = spatial.NewCoordinate(47.338, 0.613)
	ballan.ElectricCars, ballan.Cars = 0, 0

	return []models.City{tours, joue, ballan}
}

func testTable() models.CommuterTable {
	table := models.CommuterTable{}
	table.Add("37261", "37122", 1000)
	table.Add("37122", "37261", 4000)
	// Only one direction between Tours and Ballan
	table.Add("37018", "37261", 700)
	return table
}

func TestCommuterTraffic(t *testing.T) {
	cities := testCities()
	table := testTable()

	// 1000 * 0.015 + 4000 * 0.015
	assert.Equal(t, 75, CommuterTraffic(cities[0], cities[1], table))
	assert.Equal(t, CommuterTraffic(cities[0], cities[1], table), CommuterTraffic(cities[1], cities[0], table))

	assert.Equal(t, 0, CommuterTraffic(cities[0], cities[2], table))
	assert.Equal(t, 0, CommuterTraffic(cities[1], cities[2], table))
}

func TestCommuterFlowsOffline(t *testing.T) {
	s := NewSynthesizer(enrichment.Offline{}, zap.NewNop())
	cities := testCities()

	flows := s.CommuterFlows(context.Background(), cities, testTable())
	require.Len(t, flows, 1)

	f := flows[0]
	assert.Equal(t, "37261-37122", f.ID)
	assert.Equal(t, "Tours - Joue-les-Tours", f.Name)
	assert.Equal(t, 75, f.Traffic)
	assert.Equal(t, spatial.Polyline{cities[0].TownHall, cities[1].TownHall}, f.Route)

	length := spatial.Distance(cities[0].TownHall, cities[1].TownHall)
	assert.InDelta(t, length, f.Length, 1e-9)
	assert.InDelta(t, 60*length/models.EstimatedSpeedKmh, f.Time, 1e-9)
}

func TestCommuterFlowsEmpty(t *testing.T) {
	s := NewSynthesizer(nil, nil)
	flows := s.CommuterFlows(context.Background(), nil, models.CommuterTable{})
	assert.NotNil(t, flows)
	assert.Empty(t, flows)
}

func TestCommuterFlowsEnhanced(t *testing.T) {
	routed := spatial.Polyline{
		spatial.NewCoordinate(47.391, 0.684),
		spatial.NewCoordinate(47.37, 0.67),
		spatial.NewCoordinate(47.352, 0.663),
	}
	router := &fakeRouter{route: enrichment.Route{DurationMin: 11, DistanceKm: 6.2, Geometry: routed}}
	s := NewSynthesizer(router, zap.NewNop())

	flows := s.CommuterFlows(context.Background(), testCities(), testTable())
	require.Len(t, flows, 1)
	assert.Equal(t, routed, flows[0].Route)
	assert.Equal(t, 11.0, flows[0].Time)
	assert.Equal(t, 6.2, flows[0].Length)

	require.Len(t, router.calls, 1)
	assert.Empty(t, router.calls[0].waypoints)
}

func TestAggregateSegments(t *testing.T) {
	a := spatial.NewCoordinate(47.0, 0.5)
	b := spatial.NewCoordinate(47.1, 0.5)
	c := spatial.NewCoordinate(47.2, 0.5)
	d := spatial.NewCoordinate(47.3, 0.5)

	raw := []models.RawSegment{
		{Route: "N10", CumulStart: 25, Start: c, End: d, TMJA: 0},
		{Route: "D910", CumulStart: 0, Start: a, End: b, TMJA: 0},
		{Route: "N10", CumulStart: 0, Start: a, End: b, TMJA: 100},
		{Route: "N10", CumulStart: 10, Start: b, End: c, TMJA: 200},
	}

	s := NewSynthesizer(enrichment.Offline{}, zap.NewNop())
	flows := s.AggregateSegments(context.Background(), raw)

	// D910 carries no traffic
	require.Len(t, flows, 1)
	f := flows[0]
	assert.Equal(t, "N10", f.ID)
	assert.Equal(t, "N10", f.Name)
	// The zero volume segment still closes the route
	assert.Equal(t, spatial.Polyline{a, b, c, d}, f.Route)
	// Equal lengths, so the plain mean of the non-zero volumes
	assert.Equal(t, 150, f.Traffic)
	assert.InDelta(t, spatial.Distance(a, d), f.Length, 1e-9)
}

func TestAggregateSegmentsOrder(t *testing.T) {
	a := spatial.NewCoordinate(47.0, 0.5)
	b := spatial.NewCoordinate(47.1, 0.5)
	raw := []models.RawSegment{
		{Route: "N76", Start: a, End: b, TMJA: 8000},
		{Route: "A10", Start: b, End: a, TMJA: 30000},
		{Route: "N76", CumulStart: 5, Start: b, End: a, TMJA: 6000},
	}

	s := NewSynthesizer(enrichment.Offline{}, zap.NewNop())
	flows := s.AggregateSegments(context.Background(), raw)
	require.Len(t, flows, 2)
	assert.Equal(t, "N76", flows[0].ID)
	assert.Equal(t, 7000, flows[0].Traffic)
	assert.Equal(t, "A10", flows[1].ID)
	assert.Equal(t, 30000, flows[1].Traffic)
}

func TestAggregateSegmentsZeroLength(t *testing.T) {
	a := spatial.NewCoordinate(47.0, 0.5)
	raw := []models.RawSegment{{Route: "N10", Start: a, End: a, TMJA: 5000}}

	s := NewSynthesizer(enrichment.Offline{}, zap.NewNop())
	assert.Empty(t, s.AggregateSegments(context.Background(), raw))
}

func TestEnhanceUsesIntermediates(t *testing.T) {
	router := &fakeRouter{route: enrichment.Route{DurationMin: 30, DistanceKm: 25}}
	s := NewSynthesizer(router, zap.NewNop())

	line := spatial.Polyline{
		spatial.NewCoordinate(47.0, 0.5),
		spatial.NewCoordinate(47.1, 0.5),
		spatial.NewCoordinate(47.2, 0.5),
		spatial.NewCoordinate(47.3, 0.5),
	}
	flow := models.NewTrafficFlow("N10", "N10", line, 100)

	enhanced := s.Enhance(context.Background(), flow)
	require.Len(t, router.calls, 1)
	assert.Equal(t, line[0], router.calls[0].start)
	assert.Equal(t, line[3], router.calls[0].end)
	assert.Equal(t, []spatial.Coordinate{line[1], line[2]}, router.calls[0].waypoints)

	// No routed geometry, the chained one is kept
	assert.Equal(t, line, enhanced.Route)
	assert.Equal(t, 30.0, enhanced.Time)
	assert.Equal(t, 25.0, enhanced.Length)
}

func TestEnhanceKeepsEstimateWhenUnavailable(t *testing.T) {
	s := NewSynthesizer(enrichment.Offline{}, zap.NewNop())
	flow := models.NewTrafficFlow("x", "x", spatial.Polyline{spatial.NewCoordinate(47, 0), spatial.NewCoordinate(47.2, 0)}, 10)
	assert.Equal(t, flow, s.Enhance(context.Background(), flow))

	empty := models.NewTrafficFlow("y", "y", nil, 10)
	assert.Equal(t, empty, s.Enhance(context.Background(), empty))
}
