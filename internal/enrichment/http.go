package enrichment

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jengzang/charge-sim-backend/internal/models"
	"github.com/jengzang/charge-sim-backend/internal/observability"
	"github.com/jengzang/charge-sim-backend/internal/spatial"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Call names used in logs and metrics
const (
	CallRoute         = "route"
	CallBoundary      = "boundary"
	CallChargingSites = "charging_sites"
)

// Config holds the provider endpoints and the outbound call policy
type Config struct {
	RouteURL    string        // IGN itinerary service
	GeoURL      string        // geo.api.gouv.fr communes
	OCMURL      string        // OpenChargeMap poi
	OCMKey      string
	Timeout     time.Duration // Per call, 0 disables
	Rate        float64       // Calls per second, 0 disables
	InsecureTLS bool
}

// HTTPClient implements Client against the public providers
type HTTPClient struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	log     *zap.Logger
	metrics *observability.Collector
}

// NewHTTPClient creates a provider client
func NewHTTPClient(cfg Config, log *zap.Logger, metrics *observability.Collector) *HTTPClient {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.InsecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // some providers serve incomplete chains
	}

	limit := rate.Inf
	burst := 1
	if cfg.Rate > 0 {
		limit = rate.Limit(cfg.Rate)
		if b := int(cfg.Rate); b > 1 {
			burst = b
		}
	}

	if log == nil {
		log = zap.NewNop()
	}

	return &HTTPClient{
		cfg:     cfg,
		http:    &http.Client{Transport: transport},
		limiter: rate.NewLimiter(limit, burst),
		log:     log,
		metrics: metrics,
	}
}

type routeResponse struct {
	Duration float64           `json:"duration"`
	Distance float64           `json:"distance"`
	Geometry *geojson.Geometry `json:"geometry"`
	Error    json.RawMessage   `json:"error"`
}

// RouteDuration implements Client
func (c *HTTPClient) RouteDuration(ctx context.Context, start, end spatial.Coordinate, waypoints []spatial.Coordinate) (Route, error) {
	params := url.Values{}
	params.Set("resource", "bdtopo-osrm")
	params.Set("start", formatLonLat(start))
	params.Set("end", formatLonLat(end))
	if len(waypoints) > 0 {
		parts := make([]string, 0, len(waypoints))
		for _, w := range waypoints {
			parts = append(parts, formatLonLat(w))
		}
		params.Set("intermediates", strings.Join(parts, "|"))
	}
	params.Set("profile", "car")
	params.Set("optimization", "fastest")
	params.Set("getSteps", "false")
	params.Set("getBbox", "false")
	params.Set("timeUnit", "minute")
	params.Set("distanceUnit", "kilometer")

	var res routeResponse
	if err := c.getJSON(ctx, CallRoute, c.cfg.RouteURL, params, &res); err != nil {
		return Route{}, err
	}
	if len(res.Error) > 0 && !bytes.Equal(res.Error, []byte("null")) {
		return Route{}, c.unavailable(CallRoute, fmt.Errorf("provider error: %s", res.Error))
	}

	line, err := spatial.PolylineFromGeometry(res.Geometry)
	if err != nil {
		return Route{}, c.unavailable(CallRoute, err)
	}

	c.metrics.ObserveEnrichment(CallRoute, observability.OutcomeOK)
	return Route{DurationMin: res.Duration, DistanceKm: res.Distance, Geometry: line}, nil
}

type boundaryResponse struct {
	Contour    *geojson.Geometry `json:"contour"`
	Population *int              `json:"population"`
}

// MunicipalBoundary implements Client
func (c *HTTPClient) MunicipalBoundary(ctx context.Context, code string) (Boundary, error) {
	if c.cfg.GeoURL == "" {
		return Boundary{}, c.unavailable(CallBoundary, fmt.Errorf("no endpoint configured"))
	}
	endpoint := strings.TrimSuffix(c.cfg.GeoURL, "/") + "/" + url.PathEscape(code)

	params := url.Values{}
	params.Set("format", "json")
	params.Set("fields", "contour,population")

	var res *boundaryResponse
	if err := c.getJSON(ctx, CallBoundary, endpoint, params, &res); err != nil {
		return Boundary{}, err
	}
	if res == nil {
		return Boundary{}, c.unavailable(CallBoundary, fmt.Errorf("empty answer for %s", code))
	}

	var b Boundary
	if res.Population != nil {
		b.Population = *res.Population
	}
	// Municipalities split in several parts come as MultiPolygon, left empty
	if res.Contour != nil {
		if _, ok := res.Contour.Coordinates.(orb.Polygon); ok {
			contour, err := spatial.PolygonFromGeometry(res.Contour)
			if err != nil {
				return Boundary{}, c.unavailable(CallBoundary, err)
			}
			b.Contour = contour
		}
	}

	c.metrics.ObserveEnrichment(CallBoundary, observability.OutcomeOK)
	return b, nil
}

type ocmTitle struct {
	Title string `json:"Title"`
}

type ocmPOI struct {
	ID          int64   `json:"ID"`
	UsageCost   *string `json:"UsageCost"`
	AddressInfo struct {
		Latitude  float64 `json:"Latitude"`
		Longitude float64 `json:"Longitude"`
		Title     string  `json:"Title"`
	} `json:"AddressInfo"`
	NumberOfPoints *int      `json:"NumberOfPoints"`
	OperatorInfo   *ocmTitle `json:"OperatorInfo"`
	DataProvider   *ocmTitle `json:"DataProvider"`
	Connections    []struct {
		PowerKW *float64 `json:"PowerKW"`
	} `json:"Connections"`
}

func (p ocmPOI) record() models.ChargeSiteRecord {
	rec := models.ChargeSiteRecord{
		ID:    strconv.FormatInt(p.ID, 10),
		Coord: spatial.NewCoordinate(p.AddressInfo.Latitude, p.AddressInfo.Longitude),
		Title: p.AddressInfo.Title,
	}
	if p.UsageCost != nil {
		rec.UsageCost = *p.UsageCost
	}
	if p.NumberOfPoints != nil {
		rec.Points = *p.NumberOfPoints
	}
	if p.OperatorInfo != nil {
		rec.Operator = p.OperatorInfo.Title
	}
	if p.DataProvider != nil {
		rec.DataProvider = p.DataProvider.Title
	}
	for _, conn := range p.Connections {
		if conn.PowerKW != nil {
			rec.ConnectorKWs = append(rec.ConnectorKWs, *conn.PowerKW)
		}
	}
	return rec
}

// ChargingSitesNear implements Client
func (c *HTTPClient) ChargingSitesNear(ctx context.Context, center spatial.Coordinate, radiusKm int) ([]models.ChargeSiteRecord, error) {
	params := url.Values{}
	params.Set("key", c.cfg.OCMKey)
	params.Set("latitude", strconv.FormatFloat(center.Lat, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(center.Lon, 'f', -1, 64))
	params.Set("distance", strconv.Itoa(radiusKm))
	params.Set("distanceunit", "km")

	var pois []ocmPOI
	if err := c.getJSON(ctx, CallChargingSites, c.cfg.OCMURL, params, &pois); err != nil {
		return nil, err
	}

	records := make([]models.ChargeSiteRecord, 0, len(pois))
	for _, p := range pois {
		records = append(records, p.record())
	}

	c.metrics.ObserveEnrichment(CallChargingSites, observability.OutcomeOK)
	return records, nil
}

// getJSON performs a rate limited GET bounded by the per-call timeout and
// decodes the body into out. Failures are reported as ErrUnavailable, except
// when the caller's context ended, whose error is returned instead.
func (c *HTTPClient) getJSON(ctx context.Context, call, endpoint string, params url.Values, out interface{}) error {
	if endpoint == "" {
		return c.unavailable(call, fmt.Errorf("no endpoint configured"))
	}
	if err := ctx.Err(); err != nil {
		return c.canceled(call, err)
	}

	err := c.fetch(ctx, endpoint, params, out)
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return c.canceled(call, ctxErr)
	}
	return c.unavailable(call, err)
}

func (c *HTTPClient) fetch(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *HTTPClient) canceled(call string, err error) error {
	c.metrics.ObserveEnrichment(call, observability.OutcomeCanceled)
	c.log.Debug("Enrichment call canceled", zap.String("call", call), zap.Error(err))
	return fmt.Errorf("%s: %w", call, err)
}

func (c *HTTPClient) unavailable(call string, cause error) error {
	c.metrics.ObserveEnrichment(call, observability.OutcomeUnavailable)
	c.log.Warn("Enrichment call unavailable", zap.String("call", call), zap.Error(cause))
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, call, cause)
}

func formatLonLat(c spatial.Coordinate) string {
	return fmt.Sprintf("%f,%f", c.Lon, c.Lat)
}
