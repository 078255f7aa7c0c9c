package domain

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// countTolerance absorbs floating-point noise in (end-start)/step so that
// 0..360 by 10 yields 37 samples rather than 36.
const countTolerance = 1e-9

// RangeSpec is an inclusive regular grid: start, start+step, ... up to end.
type RangeSpec struct {
	Start float64 `json:"start"`
	Step  float64 `json:"step"`
	End   float64 `json:"end"`
}

// Count returns floor((end-start)/step)+1.
func (r RangeSpec) Count() (int, error) {
	if !finite(r.Start) || !finite(r.Step) || !finite(r.End) {
		return 0, errors.New("range bounds must be finite")
	}
	if r.Step <= 0 {
		return 0, fmt.Errorf("step must be positive, got %g", r.Step)
	}
	if r.End < r.Start {
		return 0, fmt.Errorf("end %g is before start %g", r.End, r.Start)
	}
	return int(math.Floor((r.End-r.Start)/r.Step+countTolerance)) + 1, nil
}

// Values materializes the grid.
func (r RangeSpec) Values() ([]float64, error) {
	n, err := r.Count()
	if err != nil {
		return nil, err
	}
	return regularGrid(r.Start, r.Step, n), nil
}

// regularGrid returns n samples starting at start spaced by step.
func regularGrid(start, step float64, n int) []float64 {
	out := make([]float64, n)
	if n == 1 {
		out[0] = start
		return out
	}
	return floats.Span(out, start, start+step*float64(n-1))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// MeshSpec describes the storm-centered polar evaluation mesh. Radii are in
// metres, azimuths in degrees counter-clockwise from east.
type MeshSpec struct {
	RadiusStart  float64 `json:"radius_start_m"`
	RadiusStep   float64 `json:"radius_step_m"`
	RadiusEnd    float64 `json:"radius_end_m"`
	AzimuthStart float64 `json:"azimuth_start_deg"`
	AzimuthStep  float64 `json:"azimuth_step_deg"`
	AzimuthEnd   float64 `json:"azimuth_end_deg"`
}

// PolarMesh holds the radius and azimuth samples of the evaluation mesh.
// It is immutable once built; the slices returned by its accessors must not
// be modified.
type PolarMesh struct {
	radii    []float64
	azimuths []float64
	spec     MeshSpec
}

// NewPolarMesh builds the mesh from spec.
func NewPolarMesh(spec MeshSpec) (*PolarMesh, error) {
	if !(spec.RadiusStart > 0) {
		return nil, NewConfigError("cyclone_mesh", fmt.Errorf("radius start must be positive, got %g", spec.RadiusStart))
	}
	radii, err := RangeSpec{Start: spec.RadiusStart, Step: spec.RadiusStep, End: spec.RadiusEnd}.Values()
	if err != nil {
		return nil, NewConfigError("cyclone_mesh", fmt.Errorf("radius: %w", err))
	}
	azimuths, err := RangeSpec{Start: spec.AzimuthStart, Step: spec.AzimuthStep, End: spec.AzimuthEnd}.Values()
	if err != nil {
		return nil, NewConfigError("cyclone_mesh", fmt.Errorf("azimuth: %w", err))
	}
	return &PolarMesh{radii: radii, azimuths: azimuths, spec: spec}, nil
}

// Radii returns the ring radii in metres.
func (m *PolarMesh) Radii() []float64 { return m.radii }

// Azimuths returns the azimuth samples in degrees.
func (m *PolarMesh) Azimuths() []float64 { return m.azimuths }

// Spec returns the specification the mesh was built from.
func (m *PolarMesh) Spec() MeshSpec { return m.spec }

// RadiusBin maps a distance from the storm center to a ring index: the
// distance divided by the radius step, truncated and clamped to the last ring.
func (m *PolarMesh) RadiusBin(distance float64) int {
	k := int(distance / m.spec.RadiusStep)
	return clampIndex(k, len(m.radii))
}

// AzimuthBin maps a mesh angle in degrees to an azimuth index by truncation,
// clamped to the mesh.
func (m *PolarMesh) AzimuthBin(angle float64) int {
	j := int((angle - m.spec.AzimuthStart) / m.spec.AzimuthStep)
	return clampIndex(j, len(m.azimuths))
}

// CoversAzimuth reports whether a mesh angle in degrees falls inside the
// azimuth span, taking the last sample's bin as extending one step. A mesh
// spanning 360 degrees or more covers every angle.
func (m *PolarMesh) CoversAzimuth(angle float64) bool {
	lo := m.spec.AzimuthStart
	hi := m.azimuths[len(m.azimuths)-1] + m.spec.AzimuthStep
	if hi-lo >= 360 {
		return true
	}
	return angle >= lo && angle < hi
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n-1 {
		return n - 1
	}
	return i
}

// Heights is the list of evaluation heights above ground in metres.
type Heights []float64

// NewHeights builds the inclusive height grid from spec.
func NewHeights(spec RangeSpec) (Heights, error) {
	if spec.Start < 0 {
		return nil, NewConfigError("heights", fmt.Errorf("start must not be below ground, got %g", spec.Start))
	}
	v, err := spec.Values()
	if err != nil {
		return nil, NewConfigError("heights", err)
	}
	return Heights(v), nil
}
