package models

import (
	"strings"

	"github.com/jengzang/charge-sim-backend/internal/spatial"
	"github.com/paulmach/orb/geojson"
)

// VirtualSiteMaxPowerKW is the power assumed for the site placed at the
// simulation center
const VirtualSiteMaxPowerKW = 22.0

// ChargeSite is a charging location with one or more charge points
type ChargeSite struct {
	ID         string             `json:"id"` // Provider id, empty for the virtual site
	Coord      spatial.Coordinate `json:"-"`
	Name       string             `json:"name"`
	Cost       string             `json:"cost"`
	Points     int                `json:"nb_points"`
	MaxPower   float64            `json:"max_power"` // kW
	Operator   string             `json:"cpo"`
	DataSource string             `json:"data_source"`

	// Minutes lost detouring to the site, keyed by traffic flow id
	Deviations map[string]float64 `json:"deviations"`
}

// ChargeSiteRecord is a raw charging site as listed by the provider
type ChargeSiteRecord struct {
	ID           string
	Coord        spatial.Coordinate
	Title        string
	UsageCost    string
	Points       int
	ConnectorKWs []float64
	Operator     string
	DataProvider string
}

// ChargeSiteFromRecord builds a site from a provider record. Quotes are
// stripped from the free texts and the max power is the most powerful
// connector.
func ChargeSiteFromRecord(rec ChargeSiteRecord) ChargeSite {
	site := ChargeSite{
		ID:         rec.ID,
		Coord:      rec.Coord,
		Name:       cleanText(rec.Title),
		Cost:       cleanText(rec.UsageCost),
		Points:     rec.Points,
		Operator:   cleanText(rec.Operator),
		DataSource: cleanText(rec.DataProvider),
		Deviations: make(map[string]float64),
	}
	if site.Name == "" {
		site.Name = "Unknown"
	}
	for _, kw := range rec.ConnectorKWs {
		if kw > site.MaxPower {
			site.MaxPower = kw
		}
	}
	return site
}

// VirtualChargeSite is the hypothetical site evaluated at the simulation center
func VirtualChargeSite(center spatial.Coordinate) ChargeSite {
	return ChargeSite{
		Coord:      center,
		Name:       "Unknown",
		MaxPower:   VirtualSiteMaxPowerKW,
		Deviations: make(map[string]float64),
	}
}

// Feature renders the site as a GeoJSON Point feature
func (s ChargeSite) Feature() *geojson.Feature {
	f := geojson.NewFeature(s.Coord.Point())
	f.Properties["id"] = s.ID
	f.Properties["name"] = s.Name
	f.Properties["cost"] = s.Cost
	f.Properties["nb_points"] = s.Points
	f.Properties["max_power"] = s.MaxPower
	f.Properties["cpo"] = s.Operator
	f.Properties["data_source"] = s.DataSource
	f.Properties["deviations"] = s.Deviations
	return f
}

var quoteReplacer = strings.NewReplacer(`\"`, "", `"`, "")

func cleanText(s string) string {
	return quoteReplacer.Replace(s)
}
