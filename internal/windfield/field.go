package windfield

import (
	"github.com/couchcryptid/storm-windfield/internal/domain"
	"github.com/couchcryptid/storm-windfield/internal/geo"
)

// Field is the wind speed on the polar mesh around one storm position,
// indexed by azimuth, ring and height. A worker reuses one Field for all of
// its track points.
type Field struct {
	azimuths, radii, heights int
	speed                    []float64
}

// NewField allocates a field for the given mesh and heights.
func NewField(mesh *domain.PolarMesh, heights domain.Heights) *Field {
	na, nr, nh := len(mesh.Azimuths()), len(mesh.Radii()), len(heights)
	return &Field{
		azimuths: na,
		radii:    nr,
		heights:  nh,
		speed:    make([]float64, na*nr*nh),
	}
}

// Node returns the per-height speeds at azimuth j and ring k. The slice
// aliases the field.
func (f *Field) Node(j, k int) []float64 {
	off := (j*f.radii + k) * f.heights
	return f.speed[off : off+f.heights]
}

// At returns the speed at azimuth j, ring k and height index h.
func (f *Field) At(j, k, h int) float64 {
	return f.speed[(j*f.radii+k)*f.heights+h]
}

// stormState is the storm at one track point after perturbation.
type stormState struct {
	center   geo.Point
	heading  float64 // compass degrees
	coriolis float64
}

// solver evaluates fields for a fixed cyclone, mesh and terrain. Its scratch
// buffers make it single-goroutine; each worker owns one.
type solver struct {
	physics Physics
	cyclone domain.CycloneParameters
	mesh    *domain.PolarMesh
	heights domain.Heights
	terrain domain.Roughness
	ring    []geo.Point
}

func newSolver(physics Physics, cyclone domain.CycloneParameters, mesh *domain.PolarMesh, heights domain.Heights, terrain domain.Roughness) *solver {
	return &solver{
		physics: physics,
		cyclone: cyclone,
		mesh:    mesh,
		heights: heights,
		terrain: terrain,
		ring:    make([]geo.Point, len(mesh.Radii())),
	}
}

// solve fills dst with the wind field of the storm in state st.
func (s *solver) solve(st stormState, dst *Field) {
	radii := s.mesh.Radii()
	beta := geo.Radians(90 - st.heading)

	for j, theta := range s.mesh.Azimuths() {
		bearing := geo.NormalizeDegrees(90 - theta)
		geo.DestinationsAlong(s.ring, st.center, bearing, radii)
		thetaRad := geo.Radians(theta)

		for k, r := range radii {
			z0 := s.terrain.RoughnessAt(s.ring[k].Lat, s.ring[k].Lon)
			sol := s.physics.solveRing(ringInput{
				radius:   r,
				theta:    thetaRad,
				beta:     beta,
				coriolis: st.coriolis,
				speed:    s.cyclone.TranslationSpeed,
				deficit:  s.cyclone.PressureDeficit,
				rmw:      s.cyclone.RMW,
				hollandB: s.cyclone.HollandB,
				z0:       z0,
			})
			sol.speeds(s.heights, dst.Node(j, k))
		}
	}
}
