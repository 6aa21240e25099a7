package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jengzang/charge-sim-backend/internal/enrichment"
	"github.com/jengzang/charge-sim-backend/internal/models"
	"github.com/jengzang/charge-sim-backend/internal/spatial"
	"github.com/jengzang/charge-sim-backend/internal/store"
	"go.uber.org/zap"
)

// FallbackSpeedKmh is the speed assumed from the center to a place that
// could not be routed
const FallbackSpeedKmh = 20.0

// errDeferred marks a computation that could not reach its provider. The
// collection stays unloaded so that a later call tries again.
var errDeferred = errors.New("computation deferred")

// Session gives access to the collections of one simulation, computing
// each of them on first use and saving the simulation afterwards. A session
// is not safe for concurrent use.
type Session struct {
	svc  *SimulationService
	area *Area
}

// SimulationSite is the virtual site at the center of the simulation
type SimulationSite struct {
	Site           models.ChargeSite
	CitiesDuration map[string]float64
	SitesDuration  map[string]float64
}

// ID returns the simulation id
func (s *Session) ID() string {
	return s.area.ID
}

// Area returns the simulation state
func (s *Session) Area() *Area {
	return s.area
}

// Document returns the stored JSON form of the simulation
func (s *Session) Document() ([]byte, error) {
	return encodeArea(s.area)
}

// Save persists the simulation
func (s *Session) Save(ctx context.Context) error {
	data, err := encodeArea(s.area)
	if err != nil {
		return err
	}
	err = s.svc.store.Save(ctx, store.Snapshot{
		ID:   s.area.ID,
		Lat:  s.area.Center.Lat,
		Lon:  s.area.Center.Lon,
		Dist: s.area.Radius,
		Data: data,
	})
	if err != nil {
		return fmt.Errorf("failed to save simulation: %w", err)
	}
	return nil
}

// populate runs compute once per collection and saves the result. A
// collection computed while ctx ended is dropped.
func (s *Session) populate(ctx context.Context, collection string, compute func() error) error {
	if s.area.State(collection) == Populated {
		return nil
	}

	s.area.setState(collection, Loading)
	start := time.Now()
	err := compute()
	if ctxErr := ctx.Err(); ctxErr != nil {
		// Results computed on a cancelled request are fallbacks, never kept
		s.area.setState(collection, Unloaded)
		return fmt.Errorf("%s not computed: %w", collection, ctxErr)
	}
	if err != nil {
		s.area.setState(collection, Unloaded)
		if errors.Is(err, errDeferred) {
			return nil
		}
		return err
	}
	s.area.setState(collection, Populated)
	s.svc.metrics.ObserveCompute(collection, time.Since(start))

	return s.Save(ctx)
}

// Cities returns the cities whose centroid lies in the circle, with their
// contour and their travel time from the center
func (s *Session) Cities(ctx context.Context) ([]models.City, error) {
	err := s.populate(ctx, CollectionCities, func() error {
		rows, err := s.svc.cities.CitiesInBox(ctx, s.area.BoundingBox())
		if err != nil {
			return err
		}

		cities := []models.City{}
		durations := make(map[string]float64)
		for _, c := range rows {
			if !s.area.Contains(c.Center) {
				continue
			}
			s.enrichCity(ctx, &c)
			c.TimeToCenter = s.durationFromCenter(ctx, c.TownHall)
			durations[c.INSEE] = c.TimeToCenter
			cities = append(cities, c)
		}

		s.area.Cities = cities
		s.area.CitiesDuration = durations
		s.svc.log.Info("Computed cities", zap.String("id", s.area.ID), zap.Int("count", len(cities)))
		return nil
	})
	return s.area.Cities, err
}

// Workfluxes returns the commuter flows between the cities of the area.
// Cities are computed first when needed.
func (s *Session) Workfluxes(ctx context.Context) ([]models.TrafficFlow, error) {
	err := s.populate(ctx, CollectionWorkfluxes, func() error {
		cities, err := s.Cities(ctx)
		if err != nil {
			return err
		}

		codes := make([]string, 0, len(cities))
		for _, c := range cities {
			codes = append(codes, c.INSEE)
		}
		table, err := s.svc.cities.CommuterCounts(ctx, codes)
		if err != nil {
			return err
		}

		s.area.Workfluxes = s.svc.synth.CommuterFlows(ctx, cities, table)
		s.svc.log.Info("Computed workfluxes", zap.String("id", s.area.ID), zap.Int("count", len(s.area.Workfluxes)))
		return nil
	})
	return s.area.Workfluxes, err
}

// TMJA returns the road traffic flows of the roads lying in the circle
func (s *Session) TMJA(ctx context.Context) ([]models.TrafficFlow, error) {
	err := s.populate(ctx, CollectionTMJA, func() error {
		raw, err := s.svc.segments.SegmentsInBox(ctx, s.area.BoundingBox())
		if err != nil {
			return err
		}

		inside := make([]models.RawSegment, 0, len(raw))
		for _, seg := range raw {
			if s.area.Contains(seg.Start) && s.area.Contains(seg.End) {
				inside = append(inside, seg)
			}
		}

		s.area.TMJA = s.svc.synth.AggregateSegments(ctx, inside)
		s.svc.log.Info("Computed tmja", zap.String("id", s.area.ID), zap.Int("count", len(s.area.TMJA)))
		return nil
	})
	return s.area.TMJA, err
}

// ChargingSites returns the charging sites of the area with their
// deviations. Deviations only cover the flows computed beforehand.
func (s *Session) ChargingSites(ctx context.Context) ([]models.ChargeSite, error) {
	err := s.populate(ctx, CollectionSites, func() error {
		records, err := s.svc.client.ChargingSitesNear(ctx, s.area.Center, s.area.Radius)
		if errors.Is(err, enrichment.ErrUnavailable) {
			s.svc.log.Warn("Charging sites unavailable", zap.String("id", s.area.ID), zap.Error(err))
			return errDeferred
		}
		if err != nil {
			return err
		}

		flows := s.area.populatedFlows()
		sites := make([]models.ChargeSite, 0, len(records))
		durations := make(map[string]float64)
		for _, rec := range records {
			site := models.ChargeSiteFromRecord(rec)
			s.svc.estimator.Apply(ctx, &site, flows...)
			durations[site.ID] = s.durationFromCenter(ctx, site.Coord)
			sites = append(sites, site)
		}

		s.area.Sites = sites
		s.area.SitesDuration = durations
		s.svc.log.Info("Computed charging sites", zap.String("id", s.area.ID), zap.Int("count", len(sites)))
		return nil
	})
	return s.area.Sites, err
}

// SimulationSite evaluates a virtual site at the center against the flows
// computed so far
func (s *Session) SimulationSite(ctx context.Context) SimulationSite {
	site := models.VirtualChargeSite(s.area.Center)
	s.svc.estimator.Apply(ctx, &site, s.area.populatedFlows()...)

	return SimulationSite{
		Site:           site,
		CitiesDuration: copyDurations(s.area.CitiesDuration),
		SitesDuration:  copyDurations(s.area.SitesDuration),
	}
}

func (s *Session) enrichCity(ctx context.Context, c *models.City) {
	b, err := s.svc.client.MunicipalBoundary(ctx, c.INSEE)
	if err != nil {
		s.svc.log.Debug("Keeping city without boundary", zap.String("insee", c.INSEE), zap.Error(err))
		return
	}
	if b.Contour != nil {
		c.Contour = b.Contour
	}
	if b.Population > 0 {
		c.Population = b.Population
	}
}

// durationFromCenter returns the driving minutes from the center to target,
// estimated at FallbackSpeedKmh in a straight line when no route is found
func (s *Session) durationFromCenter(ctx context.Context, target spatial.Coordinate) float64 {
	route, err := s.svc.client.RouteDuration(ctx, s.area.Center, target, nil)
	if err != nil {
		return 60 * spatial.Distance(s.area.Center, target) / FallbackSpeedKmh
	}
	return route.DurationMin
}

func copyDurations(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
