package deviation

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

type fixedRouter struct {
	enrichment.Offline
	duration  float64
	waypoints [][]spatial.Coordinate
}

func (r *fixedRouter) RouteDuration(_ context.Context, _, _ spatial.Coordinate, waypoints []spatial.Coordinate) (enrichment.Route, error) {
	r.waypoints = append(r.waypoints, waypoints)
	return enrichment.Route{DurationMin: r.duration}, nil
}

func testFlow() models.TrafficFlow {
	return models.NewTrafficFlow("37261-37122", "Tours - Joue-les-Tours", spatial.Polyline{
		spatial.NewCoordinate(47.391, 0.684),
		spatial.NewCoordinate(47.37, 0.67),
		spatial.NewCoordinate(47.352, 0.663),
	}, 75)
}

func TestApproximate(t *testing.T) {
	flow := testFlow()

	// A site on a route vertex costs nothing
	assert.Equal(t, 0.0, Approximate(flow.Route, flow.Route[1]))

	site := spatial.NewCoordinate(47.40, 0.684)
	d := spatial.Distance(site, flow.Route[0])
	assert.InDelta(t, 2*60*d/35, Approximate(flow.Route, site), 1e-9)

	assert.Equal(t, 0.0, Approximate(nil, site))
}

func TestDeviationApproximateMode(t *testing.T) {
	router := &fixedRouter{duration: 100}
	e := NewEstimator(router, false, zap.NewNop())

	flow := testFlow()
	site := spatial.NewCoordinate(47.40, 0.684)
	assert.InDelta(t, Approximate(flow.Route, site), e.Deviation(context.Background(), flow, site), 1e-12)
	assert.Empty(t, router.waypoints)
}

func TestDeviationExactMode(t *testing.T) {
	flow := testFlow()
	router := &fixedRouter{duration: flow.Time + 4}
	e := NewEstimator(router, true, zap.NewNop())

	site := spatial.NewCoordinate(47.40, 0.684)
	assert.InDelta(t, 4.0, e.Deviation(context.Background(), flow, site), 1e-9)
	require.Len(t, router.waypoints, 1)
	assert.Equal(t, []spatial.Coordinate{site}, router.waypoints[0])
}

func TestDeviationExactFallsBack(t *testing.T) {
	e := NewEstimator(enrichment.Offline{}, true, zap.NewNop())

	flow := testFlow()
	site := spatial.NewCoordinate(47.40, 0.684)
	assert.InDelta(t, Approximate(flow.Route, site), e.Deviation(context.Background(), flow, site), 1e-12)
}

func TestApply(t *testing.T) {
	e := NewEstimator(nil, false, nil)

	commuters := []models.TrafficFlow{testFlow()}
	roads := []models.TrafficFlow{models.NewTrafficFlow("N10", "N10", spatial.Polyline{
		spatial.NewCoordinate(47.30, 0.70),
		spatial.NewCoordinate(47.35, 0.71),
	}, 12000)}

	site := models.VirtualChargeSite(spatial.NewCoordinate(47.37, 0.67))
	e.Apply(context.Background(), &site, commuters, roads)

	require.Len(t, site.Deviations, 2)
	assert.Equal(t, 0.0, site.Deviations["37261-37122"])
	assert.Greater(t, site.Deviations["N10"], 0.0)

	// No flows leaves an empty, usable map
	bare := models.ChargeSite{Coord: spatial.DefaultCoordinate}
	e.Apply(context.Background(), &bare)
	assert.NotNil(t, bare.Deviations)
	assert.Empty(t, bare.Deviations)
}
