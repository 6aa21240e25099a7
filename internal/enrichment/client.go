package enrichment

import (
	"context"
	"errors"

	"github.com/jengzang/charge-sim-backend/internal/models"
	"github.com/jengzang/charge-sim-backend/internal/spatial"
)

// ErrUnavailable reports that an external provider gave no usable answer:
// no route, an error payload, a timeout or a transport failure. Callers
// always have a fallback for it.
var ErrUnavailable = errors.New("enrichment unavailable")

// Route is a routed itinerary
type Route struct {
	DurationMin float64
	DistanceKm  float64
	Geometry    spatial.Polyline
}

// Boundary is the administrative data of a municipality
type Boundary struct {
	Contour    spatial.Polygon // nil when the provider has no single polygon
	Population int             // 0 when unknown
}

// Client reaches the routing, municipality and charging-site providers
type Client interface {
	// RouteDuration routes start -> waypoints -> end by car
	RouteDuration(ctx context.Context, start, end spatial.Coordinate, waypoints []spatial.Coordinate) (Route, error)
	// MunicipalBoundary returns the contour and population of a municipality
	MunicipalBoundary(ctx context.Context, code string) (Boundary, error)
	// ChargingSitesNear lists the charging sites within radiusKm of center
	ChargingSitesNear(ctx context.Context, center spatial.Coordinate, radiusKm int) ([]models.ChargeSiteRecord, error)
}

// Offline is a Client with no provider behind it. Every call reports
// ErrUnavailable, which puts every computation on its fallback path.
type Offline struct{}

// RouteDuration implements Client
func (Offline) RouteDuration(context.Context, spatial.Coordinate, spatial.Coordinate, []spatial.Coordinate) (Route, error) {
	return Route{}, ErrUnavailable
}

// MunicipalBoundary implements Client
func (Offline) MunicipalBoundary(context.Context, string) (Boundary, error) {
	return Boundary{}, ErrUnavailable
}

// ChargingSitesNear implements Client
func (Offline) ChargingSitesNear(context.Context, spatial.Coordinate, int) ([]models.ChargeSiteRecord, error) {
	return nil, ErrUnavailable
}
