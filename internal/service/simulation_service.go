package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/jengzang/charge-sim-backend/internal/analysis/deviation"
	"github.com/jengzang/charge-sim-backend/internal/analysis/traffic"
	"github.com/jengzang/charge-sim-backend/internal/enrichment"
	"github.com/jengzang/charge-sim-backend/internal/models"
	"github.com/jengzang/charge-sim-backend/internal/observability"
	"github.com/jengzang/charge-sim-backend/internal/spatial"
	"github.com/jengzang/charge-sim-backend/internal/store"
	"go.uber.org/zap"
)

// ErrNotFound is returned for an unknown simulation id
var ErrNotFound = fmt.Errorf("simulation not found: %w", store.ErrNotFound)

// CitySource reads cities and commuter counts
type CitySource interface {
	CitiesInBox(ctx context.Context, box spatial.BoundingBox) ([]models.City, error)
	CommuterCounts(ctx context.Context, codes []string) (models.CommuterTable, error)
}

// SegmentSource reads road traffic segments
type SegmentSource interface {
	SegmentsInBox(ctx context.Context, box spatial.BoundingBox) ([]models.RawSegment, error)
}

// Deps are the collaborators of a SimulationService
type Deps struct {
	Store          store.Store
	Cities         CitySource
	Segments       SegmentSource
	Client         enrichment.Client // Offline when nil
	ExactDeviation bool
	Log            *zap.Logger
	Metrics        *observability.Collector
}

// SimulationService creates, reloads and deletes simulations
type SimulationService struct {
	store     store.Store
	cities    CitySource
	segments  SegmentSource
	client    enrichment.Client
	synth     *traffic.Synthesizer
	estimator *deviation.Estimator
	log       *zap.Logger
	metrics   *observability.Collector
}

// NewSimulationService creates a new simulation service
func NewSimulationService(d Deps) *SimulationService {
	client := d.Client
	if client == nil {
		client = enrichment.Offline{}
	}
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}

	return &SimulationService{
		store:     d.Store,
		cities:    d.Cities,
		segments:  d.Segments,
		client:    client,
		synth:     traffic.NewSynthesizer(client, log),
		estimator: deviation.NewEstimator(client, d.ExactDeviation, log),
		log:       log,
		metrics:   d.Metrics,
	}
}

// Create opens the simulation of the given center and radius, reusing the
// stored one when it exists. The simulation is saved before returning.
func (s *SimulationService) Create(ctx context.Context, center spatial.Coordinate, radiusKm int) (*Session, error) {
	if err := validateArea(center, radiusKm); err != nil {
		return nil, err
	}

	id := SimulationID(center, radiusKm)
	session, err := s.Open(ctx, id)
	if err == nil {
		s.log.Debug("Reusing simulation", zap.String("id", id))
		return session, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	session = &Session{svc: s, area: NewArea(center, radiusKm)}
	if err := session.Save(ctx); err != nil {
		return nil, err
	}

	s.log.Info("Created simulation",
		zap.String("id", id),
		zap.Float64("lat", center.Lat),
		zap.Float64("lon", center.Lon),
		zap.Int("dist", radiusKm),
	)
	return session, nil
}

// Open reloads a stored simulation
func (s *SimulationService) Open(ctx context.Context, id string) (*Session, error) {
	data, err := s.store.Load(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load simulation: %w", err)
	}

	area, err := decodeArea(data)
	if err != nil {
		return nil, err
	}
	return &Session{svc: s, area: area}, nil
}

// Delete removes a stored simulation
func (s *SimulationService) Delete(ctx context.Context, id string) error {
	err := s.store.Delete(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("failed to delete simulation: %w", err)
	}

	s.log.Info("Deleted simulation", zap.String("id", id))
	return nil
}

// List returns the stored simulations
func (s *SimulationService) List(ctx context.Context) ([]store.Summary, error) {
	summaries, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list simulations: %w", err)
	}
	return summaries, nil
}

func validateArea(center spatial.Coordinate, radiusKm int) error {
	if math.IsNaN(center.Lat) || center.Lat < -90 || center.Lat > 90 {
		return models.NewDomainError("Invalid latitude %v", center.Lat)
	}
	if math.IsNaN(center.Lon) || center.Lon < -180 || center.Lon > 180 {
		return models.NewDomainError("Invalid longitude %v", center.Lon)
	}
	if radiusKm <= 0 {
		return models.NewDomainError("Invalid distance %d", radiusKm)
	}
	return nil
}
