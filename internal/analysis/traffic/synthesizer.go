// Package traffic builds daily vehicle flows from commuter counts and from
// road traffic segments.
package traffic

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/jengzang/charge-sim-backend/internal/enrichment"
	"github.com/jengzang/charge-sim-backend/internal/models"
	"github.com/jengzang/charge-sim-backend/internal/spatial"
	"github.com/jengzang/charge-sim-backend/internal/stats"
	"go.uber.org/zap"
)

// Synthesizer turns raw counts into routed traffic flows
type Synthesizer struct {
	client enrichment.Client
	log    *zap.Logger
}

// NewSynthesizer creates a synthesizer routing its flows through client
func NewSynthesizer(client enrichment.Client, log *zap.Logger) *Synthesizer {
	if client == nil {
		client = enrichment.Offline{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Synthesizer{client: client, log: log}
}

// CommuterFlows builds one flow per unordered pair of cities, in input
// order. The traffic is the number of commuters in each direction weighted
// by the electric share of the home city. Pairs without a count in both
// directions, or with no resulting traffic, are skipped.
func (s *Synthesizer) CommuterFlows(ctx context.Context, cities []models.City, table models.CommuterTable) []models.TrafficFlow {
	flows := []models.TrafficFlow{}
	for i := 0; i < len(cities); i++ {
		for j := i + 1; j < len(cities); j++ {
			c1, c2 := cities[i], cities[j]

			traffic := CommuterTraffic(c1, c2, table)
			if traffic <= 0 {
				continue
			}

			flow := models.NewTrafficFlow(
				fmt.Sprintf("%s-%s", c1.INSEE, c2.INSEE),
				fmt.Sprintf("%s - %s", c1.Name, c2.Name),
				spatial.Polyline{c1.TownHall, c2.TownHall},
				traffic,
			)
			flows = append(flows, s.Enhance(ctx, flow))
		}
	}
	return flows
}

// CommuterTraffic returns the electric vehicle traffic between two cities,
// 0 when either direction has no commuter count
func CommuterTraffic(c1, c2 models.City, table models.CommuterTable) int {
	f12, ok12 := table.Lookup(c1.INSEE, c2.INSEE)
	f21, ok21 := table.Lookup(c2.INSEE, c1.INSEE)
	if !ok12 || !ok21 {
		return 0
	}
	return int(math.RoundToEven(f12*c1.EVRatio() + f21*c2.EVRatio()))
}

// AggregateSegments merges the segments of each road into a single flow.
// Routes keep their first-seen order. The route geometry chains the
// segment starts, sorted by their offset on the road, followed by the end
// of the last segment. The traffic is the length-weighted mean volume of
// the segments that carry any. Roads with no length or no traffic are
// dropped.
func (s *Synthesizer) AggregateSegments(ctx context.Context, raw []models.RawSegment) []models.TrafficFlow {
	var order []string
	groups := make(map[string][]models.RawSegment)
	for _, seg := range raw {
		if _, ok := groups[seg.Route]; !ok {
			order = append(order, seg.Route)
		}
		groups[seg.Route] = append(groups[seg.Route], seg)
	}

	flows := []models.TrafficFlow{}
	for _, route := range order {
		flow, ok := aggregateRoute(route, groups[route])
		if !ok {
			s.log.Debug("Dropping road without traffic", zap.String("route", route))
			continue
		}
		flows = append(flows, s.Enhance(ctx, flow))
	}
	return flows
}

func aggregateRoute(route string, segments []models.RawSegment) (models.TrafficFlow, bool) {
	sorted := make([]models.RawSegment, len(segments))
	copy(sorted, segments)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CumulStart < sorted[j].CumulStart
	})

	line := make(spatial.Polyline, 0, len(sorted)+1)
	var volumes, lengths []float64
	for _, seg := range sorted {
		line = append(line, seg.Start)
		if seg.TMJA > 0 {
			volumes = append(volumes, float64(seg.TMJA))
			lengths = append(lengths, seg.Length())
		}
	}
	line = append(line, sorted[len(sorted)-1].End)

	mean, ok := stats.WeightedMean(volumes, lengths)
	if !ok || mean <= 0 {
		return models.TrafficFlow{}, false
	}

	traffic := int(math.RoundToEven(mean))
	if traffic <= 0 {
		return models.TrafficFlow{}, false
	}
	return models.NewTrafficFlow(route, route, line, traffic), true
}

// Enhance routes the flow from its first to its last vertex through the
// intermediate ones and takes the routed geometry, time and length. The
// straight estimate is kept when no route is available.
func (s *Synthesizer) Enhance(ctx context.Context, flow models.TrafficFlow) models.TrafficFlow {
	start, ok := flow.Route.Start()
	if !ok {
		return flow
	}
	end, _ := flow.Route.End()

	route, err := s.client.RouteDuration(ctx, start, end, flow.Route.Intermediates())
	if err != nil {
		if !errors.Is(err, enrichment.ErrUnavailable) && ctx.Err() == nil {
			s.log.Warn("Routing failed", zap.String("flow", flow.ID), zap.Error(err))
		}
		return flow
	}

	if len(route.Geometry) > 0 {
		flow.Route = route.Geometry
	}
	flow.Time = route.DurationMin
	flow.Length = route.DistanceKm
	return flow
}
