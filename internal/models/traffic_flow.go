package models

import (
	"github.com/jengzang/charge-sim-backend/internal/spatial"
	"github.com/paulmach/orb/geojson"
)

// EstimatedSpeedKmh is the speed assumed for a straight-line route that
// could not be routed
const EstimatedSpeedKmh = 50.0

// TrafficFlow is a daily vehicle flow along a route. It is either built from
// a pair of cities (commuters) or from aggregated TMJA road segments.
type TrafficFlow struct {
	ID      string           `json:"id"` // "{insee1}-{insee2}" or route name
	Name    string           `json:"name"`
	Route   spatial.Polyline `json:"-"`
	Traffic int              `json:"traffic"` // Vehicles per day
	Time    float64          `json:"time"`    // Minutes
	Length  float64          `json:"length"`  // Km
}

// NewTrafficFlow creates a flow on a route that has not been routed yet.
// Length is the great-circle length of the route and time its estimate at
// EstimatedSpeedKmh.
func NewTrafficFlow(id, name string, route spatial.Polyline, traffic int) TrafficFlow {
	length := route.Length()
	return TrafficFlow{
		ID:      id,
		Name:    name,
		Route:   route,
		Traffic: traffic,
		Time:    60 * length / EstimatedSpeedKmh,
		Length:  length,
	}
}

// Feature renders the flow as a GeoJSON LineString feature
func (f TrafficFlow) Feature() *geojson.Feature {
	feat := geojson.NewFeature(f.Route.LineString())
	feat.Properties["id"] = f.ID
	feat.Properties["name"] = f.Name
	feat.Properties["traffic"] = f.Traffic
	feat.Properties["time"] = f.Time
	feat.Properties["length"] = f.Length
	feat.Properties["polyline"] = f.Route.Encode()
	return feat
}
