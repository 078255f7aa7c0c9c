package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/couchcryptid/storm-windfield/internal/geo"
)

// Roughness resolves the surface roughness length z0 (m) at a point.
type Roughness interface {
	RoughnessAt(lat, lon float64) float64
}

// StationList is the parallel-array station input. ID and Z0 are optional;
// a zero z0 means "resolve from terrain".
type StationList struct {
	ID        []string  `json:"id,omitempty"`
	Latitude  []float64 `json:"latitude"`
	Longitude []float64 `json:"longitude"`
	Z0        []float64 `json:"z0,omitempty"`
}

// Station is an observation point. Z0 is fixed when the station is added.
type Station struct {
	ID       string
	Location geo.Point
	Z0       float64
	peaks    *PeakAccumulator
}

// NewStations resolves roughness and identities for every entry of list.
func NewStations(list StationList, terrain Roughness) ([]*Station, error) {
	n := len(list.Latitude)
	if len(list.Longitude) != n {
		return nil, NewConfigError("stations", fmt.Errorf("latitude has %d values, longitude %d", n, len(list.Longitude)))
	}
	if list.ID != nil && len(list.ID) != n {
		return nil, NewConfigError("stations", fmt.Errorf("id has %d values, expected %d", len(list.ID), n))
	}
	if list.Z0 != nil && len(list.Z0) != n {
		return nil, NewConfigError("stations", fmt.Errorf("z0 has %d values, expected %d", len(list.Z0), n))
	}

	out := make([]*Station, 0, n)
	seen := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		loc := geo.Point{Lat: list.Latitude[i], Lon: list.Longitude[i]}
		if !finite(loc.Lat) || !finite(loc.Lon) {
			return nil, NewConfigError("stations", fmt.Errorf("station %d has non-finite coordinates", i))
		}

		var z0 float64
		if list.Z0 != nil {
			z0 = list.Z0[i]
		}
		switch {
		case z0 < 0 || math.IsNaN(z0):
			return nil, NewConfigError("stations", fmt.Errorf("station %d has invalid z0 %g", i, z0))
		case z0 == 0:
			z0 = terrain.RoughnessAt(loc.Lat, loc.Lon)
		}

		id := ""
		if list.ID != nil {
			id = list.ID[i]
		}
		if id == "" {
			id = stationID(i, loc)
		}
		if seen[id] {
			return nil, NewConfigError("stations", fmt.Errorf("duplicate station id %q", id))
		}
		seen[id] = true

		out = append(out, &Station{ID: id, Location: loc, Z0: z0})
	}
	return out, nil
}

// stationID produces a deterministic ID from the station's position in the
// input and its coordinates, so re-running a scenario yields the same keys.
func stationID(index int, loc geo.Point) string {
	input := fmt.Sprintf("%d|%.6f|%.6f", index, loc.Lat, loc.Lon)
	hash := sha256.Sum256([]byte(input))
	return "stn-" + hex.EncodeToString(hash[:8])
}

// ResetPeaks allocates a zeroed accumulator with one cell per height.
func (s *Station) ResetPeaks(heights int) {
	s.peaks = NewPeakAccumulator(heights)
}

// Peaks returns the accumulator; nil before ResetPeaks.
func (s *Station) Peaks() *PeakAccumulator {
	return s.peaks
}

// PeakAccumulator is a per-height running maximum that only ever rises.
// Raise is safe for concurrent use. A NaN observation is sticky so invalid
// scenarios stay detectable.
type PeakAccumulator struct {
	cells []atomic.Uint64
}

// NewPeakAccumulator returns n zeroed cells.
func NewPeakAccumulator(n int) *PeakAccumulator {
	return &PeakAccumulator{cells: make([]atomic.Uint64, n)}
}

// Len returns the number of cells.
func (a *PeakAccumulator) Len() int { return len(a.cells) }

// Raise folds v into cell i.
func (a *PeakAccumulator) Raise(i int, v float64) {
	cell := &a.cells[i]
	for {
		old := cell.Load()
		next := MaxPeak(math.Float64frombits(old), v)
		if math.Float64bits(next) == old {
			return
		}
		if cell.CompareAndSwap(old, math.Float64bits(next)) {
			return
		}
	}
}

// RaiseAll folds vs cell by cell.
func (a *PeakAccumulator) RaiseAll(vs []float64) error {
	if len(vs) != len(a.cells) {
		return errors.New("peak accumulator: length mismatch")
	}
	for i, v := range vs {
		a.Raise(i, v)
	}
	return nil
}

// Values returns a snapshot of the cells.
func (a *PeakAccumulator) Values() []float64 {
	out := make([]float64, len(a.cells))
	for i := range a.cells {
		out[i] = math.Float64frombits(a.cells[i].Load())
	}
	return out
}

// MaxPeak is the running-max step: the larger of cur and v, except that NaN
// on either side wins.
func MaxPeak(cur, v float64) float64 {
	if math.IsNaN(cur) || math.IsNaN(v) {
		return math.NaN()
	}
	if v > cur {
		return v
	}
	return cur
}
