package models

import "github.com/jengzang/charge-sim-backend/internal/spatial"

// RawSegment is one TMJA record: the average daily traffic of a portion of
// a national road
type RawSegment struct {
	Route      string             `db:"route"`
	CumulStart float64            `db:"cumul_start"` // Offset of the segment start along the route
	Start      spatial.Coordinate `db:"-"`
	End        spatial.Coordinate `db:"-"`
	TMJA       int                `db:"tmja"`     // Vehicles per day
	RatioPL    float64            `db:"ratio_pl"` // Heavy vehicles share
}

// Length returns the straight length of the segment in km
func (s RawSegment) Length() float64 {
	return spatial.Distance(s.Start, s.End)
}

// CommuterTable holds home -> work -> number of commuters
type CommuterTable map[string]map[string]float64

// Add records a commuter count
func (t CommuterTable) Add(home, work string, workers float64) {
	if t[home] == nil {
		t[home] = make(map[string]float64)
	}
	t[home][work] = workers
}

// Lookup returns the commuter count between home and work
func (t CommuterTable) Lookup(home, work string) (float64, bool) {
	row, ok := t[home]
	if !ok {
		return 0, false
	}
	v, ok := row[work]
	return v, ok
}
