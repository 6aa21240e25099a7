package service

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/jengzang/charge-sim-backend/internal/models"
	"github.com/jengzang/charge-sim-backend/internal/spatial"
)

// Collections derived for an area
const (
	CollectionCities     = "cities"
	CollectionSites      = "sites"
	CollectionWorkfluxes = "workflux"
	CollectionTMJA       = "tmja"
)

var collections = []string{CollectionCities, CollectionSites, CollectionWorkfluxes, CollectionTMJA}

// CollectionState tracks the computation of a derived collection
type CollectionState int

// Collection states
const (
	Unloaded CollectionState = iota
	Loading
	Populated
)

func (s CollectionState) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case Loading:
		return "loading"
	case Populated:
		return "populated"
	default:
		return fmt.Sprintf("CollectionState(%d)", int(s))
	}
}

// Area is a simulation: a circle on the map and the collections derived
// from it
type Area struct {
	ID     string
	Center spatial.Coordinate
	Radius int // km

	Cities     []models.City
	Sites      []models.ChargeSite
	Workfluxes []models.TrafficFlow
	TMJA       []models.TrafficFlow

	// Minutes from the center, by city INSEE code and by site id
	CitiesDuration map[string]float64
	SitesDuration  map[string]float64

	state map[string]CollectionState
}

// SimulationID identifies the area of the given center and radius. Equal
// parameters, as printed with 6 decimals, give equal ids.
func SimulationID(center spatial.Coordinate, radiusKm int) string {
	h := sha256.New()
	fmt.Fprintf(h, "%f", center.Lon)
	fmt.Fprintf(h, "%f", center.Lat)
	fmt.Fprintf(h, "%d", radiusKm)
	return hex.EncodeToString(h.Sum(nil))
}

// NewArea creates an area with every collection unloaded
func NewArea(center spatial.Coordinate, radiusKm int) *Area {
	return &Area{
		ID:             SimulationID(center, radiusKm),
		Center:         center,
		Radius:         radiusKm,
		Cities:         []models.City{},
		Sites:          []models.ChargeSite{},
		Workfluxes:     []models.TrafficFlow{},
		TMJA:           []models.TrafficFlow{},
		CitiesDuration: make(map[string]float64),
		SitesDuration:  make(map[string]float64),
		state:          make(map[string]CollectionState),
	}
}

// State returns the computation state of a collection
func (a *Area) State(collection string) CollectionState {
	return a.state[collection]
}

func (a *Area) setState(collection string, s CollectionState) {
	if a.state == nil {
		a.state = make(map[string]CollectionState)
	}
	a.state[collection] = s
}

// BoundingBox returns the box enclosing the circle
func (a *Area) BoundingBox() spatial.BoundingBox {
	return spatial.BoundingBoxAround(a.Center, float64(a.Radius))
}

// Contains reports whether c is within the circle
func (a *Area) Contains(c spatial.Coordinate) bool {
	return spatial.Distance(a.Center, c) <= float64(a.Radius)
}

// populatedFlows returns the flow collections already computed
func (a *Area) populatedFlows() [][]models.TrafficFlow {
	var flows [][]models.TrafficFlow
	if a.State(CollectionWorkfluxes) == Populated {
		flows = append(flows, a.Workfluxes)
	}
	if a.State(CollectionTMJA) == Populated {
		flows = append(flows, a.TMJA)
	}
	return flows
}
