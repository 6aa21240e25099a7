package models

import (
	"github.com/jengzang/charge-sim-backend/internal/spatial"
	"github.com/paulmach/orb/geojson"
)

// City represents a French commune inside a simulation area
type City struct {
	INSEE      string `json:"insee"`      // National statistical code, identity
	Name       string `json:"name"`
	Department string `json:"department"`
	Population int    `json:"population"`

	// Geometry
	Contour  spatial.Polygon    `json:"-"` // Administrative boundary
	Center   spatial.Coordinate `json:"-"` // Centroid
	TownHall spatial.Coordinate `json:"-"` // Mairie

	// Vehicle registrations
	ElectricCars int `json:"nb_elec_cars"`
	Cars         int `json:"nb_cars"`

	TimeToCenter float64 `json:"time_to_center"` // Minutes from the simulation center
}

// CityRow is a row of the cities/cars join
type CityRow struct {
	INSEE      string  `db:"insee"`
	Name       string  `db:"name"`
	Department string  `db:"department"`
	Population int     `db:"population"`
	CenterLat  float64 `db:"center_lat"`
	CenterLon  float64 `db:"center_lon"`
	MairieLat  float64 `db:"mairie_lat"`
	MairieLon  float64 `db:"mairie_lon"`
	NbVpEl     int     `db:"nb_vp_el"`
	NbVp       int     `db:"nb_vp"`
}

// City geometry kinds usable in features
const (
	GeometryCenter  = "center"
	GeometryMairie  = "mairie"
	GeometryContour = "contour"
)

// DefaultCity returns a city with every field at its neutral value
func DefaultCity() City {
	return City{
		Name:     "Unknown",
		Center:   spatial.DefaultCoordinate,
		TownHall: spatial.DefaultCoordinate,
	}
}

// CityFromRow builds a city from a repository row
func CityFromRow(row CityRow) City {
	return City{
		INSEE:        row.INSEE,
		Name:         row.Name,
		Department:   row.Department,
		Population:   row.Population,
		Center:       spatial.NewCoordinate(row.CenterLat, row.CenterLon),
		TownHall:     spatial.NewCoordinate(row.MairieLat, row.MairieLon),
		ElectricCars: row.NbVpEl,
		Cars:         row.NbVp,
	}
}

// EVRatio returns the share of electric cars, 0 when no car is registered
func (c City) EVRatio() float64 {
	if c.Cars <= 0 {
		return 0
	}
	return float64(c.ElectricCars) / float64(c.Cars)
}

// Feature renders the city as a GeoJSON feature using the requested geometry
func (c City) Feature(geometry string) (*geojson.Feature, error) {
	var g *geojson.Geometry
	switch geometry {
	case GeometryCenter:
		g = c.Center.Geometry()
	case GeometryMairie:
		g = c.TownHall.Geometry()
	case GeometryContour:
		g = c.Contour.Geometry()
	default:
		return nil, NewDomainError("Unknown geometry \"%s\"", geometry)
	}

	f := geojson.NewFeature(g.Geometry())
	f.Properties["insee"] = c.INSEE
	f.Properties["name"] = c.Name
	f.Properties["department"] = c.Department
	f.Properties["population"] = c.Population
	f.Properties["nb_elec_cars"] = c.ElectricCars
	f.Properties["nb_cars"] = c.Cars
	f.Properties["time_to_center"] = c.TimeToCenter
	return f, nil
}
