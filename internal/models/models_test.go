package models

import (
	"errors"
	"testing"

	"github.com/jengzang/charge-sim-backend/internal/spatial"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCityEVRatio(t *testing.T) {
	testCases := []struct {
		name     string
		electric int
		cars     int
		want     float64
	}{
		{name: "regular", electric: 25, cars: 1000, want: 0.025},
		{name: "no car registered", electric: 3, cars: 0, want: 0},
		{name: "no electric car", electric: 0, cars: 10, want: 0},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			c := City{ElectricCars: tt.electric, Cars: tt.cars}
			assert.InDelta(t, tt.want, c.EVRatio(), 1e-12)
		})
	}
}

func TestCityFromRow(t *testing.T) {
	c := CityFromRow(CityRow{
		INSEE: "37261", Name: "Tours", Department: "37", Population: 136000,
		CenterLat: 47.39, CenterLon: 0.69, MairieLat: 47.391, MairieLon: 0.684,
		NbVpEl: 900, NbVp: 60000,
	})

	assert.Equal(t, "37261", c.INSEE)
	assert.Equal(t, spatial.NewCoordinate(47.391, 0.684), c.TownHall)
	assert.Equal(t, 900, c.ElectricCars)
	assert.Nil(t, c.Contour)
}

func TestCityFeature(t *testing.T) {
	c := DefaultCity()
	c.INSEE = "37261"
	c.Contour = spatial.Polygon{{spatial.NewCoordinate(47, 0), spatial.NewCoordinate(47.1, 0.1), spatial.NewCoordinate(47, 0.1)}}

	f, err := c.Feature(GeometryContour)
	require.NoError(t, err)
	assert.IsType(t, orb.Polygon{}, f.Geometry)
	assert.Equal(t, "37261", f.Properties["insee"])

	f, err = c.Feature(GeometryMairie)
	require.NoError(t, err)
	assert.Equal(t, orb.Point{0, 47}, f.Geometry)

	_, err = c.Feature("bbox")
	var domainErr *DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Contains(t, domainErr.Message, "bbox")
}

func TestChargeSiteFromRecord(t *testing.T) {
	site := ChargeSiteFromRecord(ChargeSiteRecord{
		ID:           "42",
		Coord:        spatial.NewCoordinate(47.2, 0.5),
		Title:        `Parking \"Gare\"`,
		UsageCost:    `"Free"`,
		Points:       4,
		ConnectorKWs: []float64{7.4, 50, 22},
		Operator:     "Ionity",
	})

	assert.Equal(t, "42", site.ID)
	assert.Equal(t, "Parking Gare", site.Name)
	assert.Equal(t, "Free", site.Cost)
	assert.Equal(t, 50.0, site.MaxPower)
	assert.NotNil(t, site.Deviations)

	unnamed := ChargeSiteFromRecord(ChargeSiteRecord{ID: "43"})
	assert.Equal(t, "Unknown", unnamed.Name)
	assert.Zero(t, unnamed.MaxPower)
}

func TestVirtualChargeSite(t *testing.T) {
	center := spatial.NewCoordinate(47, 0)
	site := VirtualChargeSite(center)

	assert.Empty(t, site.ID)
	assert.Equal(t, VirtualSiteMaxPowerKW, site.MaxPower)
	assert.Equal(t, center, site.Coord)
	assert.Empty(t, site.Deviations)
}

func TestNewTrafficFlow(t *testing.T) {
	route := spatial.Polyline{spatial.NewCoordinate(47, 0), spatial.NewCoordinate(47.5, 0)}
	f := NewTrafficFlow("a-b", "A - B", route, 12)

	assert.InDelta(t, route.Length(), f.Length, 1e-12)
	assert.InDelta(t, 60*f.Length/EstimatedSpeedKmh, f.Time, 1e-12)
	assert.Equal(t, route.Encode(), f.Feature().Properties["polyline"])
}

func TestCommuterTable(t *testing.T) {
	table := CommuterTable{}
	table.Add("A", "B", 120)

	v, ok := table.Lookup("A", "B")
	assert.True(t, ok)
	assert.Equal(t, 120.0, v)

	_, ok = table.Lookup("B", "A")
	assert.False(t, ok)
}
