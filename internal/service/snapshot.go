package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/jengzang/charge-sim-backend/internal/models"
	"github.com/jengzang/charge-sim-backend/internal/spatial"
	"github.com/paulmach/orb/geojson"
)

// snapshot is the persisted form of an Area. Geometries are GeoJSON objects.
type snapshot struct {
	ID             string             `json:"id"`
	Lat            float64            `json:"lat"`
	Lon            float64            `json:"lon"`
	Dist           int                `json:"dist"`
	Cities         []cityRecord       `json:"cities"`
	Sites          []siteRecord       `json:"sites"`
	Workflux       []flowRecord       `json:"workflux"`
	TMJA           []flowRecord       `json:"tmja"`
	CitiesDuration map[string]float64 `json:"cities_duration"`
	SitesDuration  map[string]float64 `json:"sites_duration"`

	// Collections already computed, possibly empty. Absent from older
	// snapshots, where a non-empty collection counts as computed.
	Loaded []string `json:"loaded"`
}

type cityRecord struct {
	Center       *geojson.Geometry `json:"center"`
	Mairie       *geojson.Geometry `json:"mairie"`
	Contour      *geojson.Geometry `json:"contour"`
	INSEE        string            `json:"insee"`
	Name         string            `json:"name"`
	Department   string            `json:"department"`
	Population   int               `json:"population"`
	NbElecCars   int               `json:"nb_elec_cars"`
	NbCars       int               `json:"nb_cars"`
	TimeToCenter float64           `json:"time_to_center"`
}

type flowRecord struct {
	ID      string            `json:"id"`
	Name    string            `json:"name"`
	Traffic int               `json:"traffic"`
	Length  float64           `json:"length"`
	Time    float64           `json:"time"`
	Itinary *geojson.Geometry `json:"itinary"`
}

type siteRecord struct {
	ID         siteID             `json:"id"`
	Name       string             `json:"name"`
	Cost       string             `json:"cost"`
	Points     int                `json:"nb_points"`
	MaxPower   float64            `json:"max_power"`
	Operator   string             `json:"cpo"`
	DataSource string             `json:"data_source"`
	Coord      *geojson.Geometry  `json:"coord"`
	Deviations map[string]float64 `json:"deviations"`
}

// siteID accepts the numeric provider ids found in older snapshots
type siteID string

func (id *siteID) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = siteID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid site id %s", data)
	}
	if i, err := n.Int64(); err == nil {
		*id = siteID(strconv.FormatInt(i, 10))
		return nil
	}
	*id = siteID(n.String())
	return nil
}

// encodeArea serializes an area
func encodeArea(a *Area) ([]byte, error) {
	snap := snapshot{
		ID:             a.ID,
		Lat:            a.Center.Lat,
		Lon:            a.Center.Lon,
		Dist:           a.Radius,
		Cities:         make([]cityRecord, 0, len(a.Cities)),
		Sites:          make([]siteRecord, 0, len(a.Sites)),
		Workflux:       encodeFlows(a.Workfluxes),
		TMJA:           encodeFlows(a.TMJA),
		CitiesDuration: nonNilMap(a.CitiesDuration),
		SitesDuration:  nonNilMap(a.SitesDuration),
		Loaded:         []string{},
	}

	for _, c := range a.Cities {
		snap.Cities = append(snap.Cities, cityRecord{
			Center:       c.Center.Geometry(),
			Mairie:       c.TownHall.Geometry(),
			Contour:      c.Contour.Geometry(),
			INSEE:        c.INSEE,
			Name:         c.Name,
			Department:   c.Department,
			Population:   c.Population,
			NbElecCars:   c.ElectricCars,
			NbCars:       c.Cars,
			TimeToCenter: c.TimeToCenter,
		})
	}

	for _, s := range a.Sites {
		snap.Sites = append(snap.Sites, siteRecord{
			ID:         siteID(s.ID),
			Name:       s.Name,
			Cost:       s.Cost,
			Points:     s.Points,
			MaxPower:   s.MaxPower,
			Operator:   s.Operator,
			DataSource: s.DataSource,
			Coord:      s.Coord.Geometry(),
			Deviations: nonNilMap(s.Deviations),
		})
	}

	for _, name := range collections {
		if a.State(name) == Populated {
			snap.Loaded = append(snap.Loaded, name)
		}
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to encode simulation: %w", err)
	}
	return data, nil
}

func encodeFlows(flows []models.TrafficFlow) []flowRecord {
	records := make([]flowRecord, 0, len(flows))
	for _, f := range flows {
		records = append(records, flowRecord{
			ID:      f.ID,
			Name:    f.Name,
			Traffic: f.Traffic,
			Length:  f.Length,
			Time:    f.Time,
			Itinary: f.Route.Geometry(),
		})
	}
	return records
}

// decodeArea rebuilds an area from its serialized form
func decodeArea(data []byte) (*Area, error) {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode simulation: %w", err)
	}

	a := NewArea(spatial.NewCoordinate(snap.Lat, snap.Lon), snap.Dist)
	if snap.ID != "" {
		a.ID = snap.ID
	}

	for _, r := range snap.Cities {
		c, err := decodeCity(r)
		if err != nil {
			return nil, err
		}
		a.Cities = append(a.Cities, c)
	}

	for _, r := range snap.Sites {
		coord, err := spatial.CoordinateFromGeometry(r.Coord)
		if err != nil {
			return nil, fmt.Errorf("failed to decode site %s: %w", r.ID, err)
		}
		a.Sites = append(a.Sites, models.ChargeSite{
			ID:         string(r.ID),
			Coord:      coord,
			Name:       r.Name,
			Cost:       r.Cost,
			Points:     r.Points,
			MaxPower:   r.MaxPower,
			Operator:   r.Operator,
			DataSource: r.DataSource,
			Deviations: nonNilMap(r.Deviations),
		})
	}

	var err error
	if a.Workfluxes, err = decodeFlows(snap.Workflux); err != nil {
		return nil, err
	}
	if a.TMJA, err = decodeFlows(snap.TMJA); err != nil {
		return nil, err
	}

	for k, v := range snap.CitiesDuration {
		a.CitiesDuration[k] = v
	}
	for k, v := range snap.SitesDuration {
		a.SitesDuration[k] = v
	}

	if snap.Loaded != nil {
		for _, name := range snap.Loaded {
			a.setState(name, Populated)
		}
	} else {
		sizes := map[string]int{
			CollectionCities:     len(a.Cities),
			CollectionSites:      len(a.Sites),
			CollectionWorkfluxes: len(a.Workfluxes),
			CollectionTMJA:       len(a.TMJA),
		}
		for name, n := range sizes {
			if n > 0 {
				a.setState(name, Populated)
			}
		}
	}

	return a, nil
}

func decodeCity(r cityRecord) (models.City, error) {
	c := models.DefaultCity()
	c.INSEE = r.INSEE
	c.Name = r.Name
	c.Department = r.Department
	c.Population = r.Population
	c.ElectricCars = r.NbElecCars
	c.Cars = r.NbCars
	c.TimeToCenter = r.TimeToCenter

	var err error
	if r.Center != nil {
		if c.Center, err = spatial.CoordinateFromGeometry(r.Center); err != nil {
			return c, fmt.Errorf("failed to decode city %s: %w", r.INSEE, err)
		}
	}
	if r.Mairie != nil {
		if c.TownHall, err = spatial.CoordinateFromGeometry(r.Mairie); err != nil {
			return c, fmt.Errorf("failed to decode city %s: %w", r.INSEE, err)
		}
	}
	if c.Contour, err = spatial.PolygonFromGeometry(r.Contour); err != nil {
		return c, fmt.Errorf("failed to decode city %s: %w", r.INSEE, err)
	}
	return c, nil
}

func decodeFlows(records []flowRecord) ([]models.TrafficFlow, error) {
	flows := make([]models.TrafficFlow, 0, len(records))
	for _, r := range records {
		route, err := spatial.PolylineFromGeometry(r.Itinary)
		if err != nil {
			return nil, fmt.Errorf("failed to decode flow %s: %w", r.ID, err)
		}
		flows = append(flows, models.TrafficFlow{
			ID:      r.ID,
			Name:    r.Name,
			Route:   route,
			Traffic: r.Traffic,
			Time:    r.Time,
			Length:  r.Length,
		})
	}
	return flows, nil
}

func nonNilMap(m map[string]float64) map[string]float64 {
	if m == nil {
		return make(map[string]float64)
	}
	return m
}
