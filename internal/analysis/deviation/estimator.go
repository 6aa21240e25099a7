// Package deviation estimates the extra travel time a charging stop adds to
// a traffic flow.
package deviation

import (
	"context"
	"errors"

	"github.com/jengzang/charge-sim-backend/internal/enrichment"
	"github.com/jengzang/charge-sim-backend/internal/models"
	"github.com/jengzang/charge-sim-backend/internal/spatial"
	"go.uber.org/zap"
)

// DetourSpeedKmh is the speed assumed off the route to reach a site
const DetourSpeedKmh = 35.0

// Estimator computes site deviations. In exact mode the detour is routed
// through the client; otherwise, and whenever routing is unavailable, the
// approximate round trip from the closest route vertex is used.
type Estimator struct {
	client enrichment.Client
	exact  bool
	log    *zap.Logger
}

// NewEstimator creates an estimator
func NewEstimator(client enrichment.Client, exact bool, log *zap.Logger) *Estimator {
	if client == nil {
		client = enrichment.Offline{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Estimator{client: client, exact: exact, log: log}
}

// Approximate returns the minutes needed to go from the closest route vertex
// to the site and back at DetourSpeedKmh
func Approximate(route spatial.Polyline, site spatial.Coordinate) float64 {
	return 2 * 60 * route.ClosestVertexDistance(site) / DetourSpeedKmh
}

// Deviation returns the minutes lost by the flow when stopping at site
func (e *Estimator) Deviation(ctx context.Context, flow models.TrafficFlow, site spatial.Coordinate) float64 {
	if e.exact {
		if d, ok := e.routed(ctx, flow, site); ok {
			return d
		}
	}
	return Approximate(flow.Route, site)
}

func (e *Estimator) routed(ctx context.Context, flow models.TrafficFlow, site spatial.Coordinate) (float64, bool) {
	start, ok := flow.Route.Start()
	if !ok {
		return 0, false
	}
	end, _ := flow.Route.End()

	route, err := e.client.RouteDuration(ctx, start, end, []spatial.Coordinate{site})
	if err != nil {
		if !errors.Is(err, enrichment.ErrUnavailable) && ctx.Err() == nil {
			e.log.Warn("Detour routing failed", zap.String("flow", flow.ID), zap.Error(err))
		}
		return 0, false
	}
	return route.DurationMin - flow.Time, true
}

// Apply records the deviation of every flow on the site, keyed by flow id
func (e *Estimator) Apply(ctx context.Context, site *models.ChargeSite, flows ...[]models.TrafficFlow) {
	if site.Deviations == nil {
		site.Deviations = make(map[string]float64)
	}
	for _, group := range flows {
		for _, f := range group {
			site.Deviations[f.ID] = e.Deviation(ctx, f, site.Coord)
		}
	}
}
