package windfield

import (
	"fmt"
	"math"
)

const (
	// earthRotation is the angular velocity of the Earth in rad/s.
	earthRotation = 0.7292e-4
	// karman is the von Kármán constant.
	karman = 0.4
	// referenceHeight is the height in metres at which the surface drag
	// coefficient is evaluated.
	referenceHeight = 10.0
	// roughnessHeightScale and roughnessHeightExp relate z0 to the mean
	// height of roughness elements: h = 11.4 * z0^0.86.
	roughnessHeightScale = 11.4
	roughnessHeightExp   = 0.86
	// displacementRatio is the zero-plane displacement as a fraction of h.
	displacementRatio = 0.75
)

// Physics holds the tunable constants of the boundary-layer model.
type Physics struct {
	EddyViscosity float64 // m²/s
	AirDensity    float64 // kg/m³
}

// DefaultPhysics returns the reference constants.
func DefaultPhysics() Physics {
	return Physics{EddyViscosity: 75, AirDensity: 1.1}
}

// Validate reports constants that would make the model meaningless.
func (p Physics) Validate() error {
	if !(p.EddyViscosity > 0) || math.IsInf(p.EddyViscosity, 0) {
		return fmt.Errorf("eddy viscosity must be positive, got %g", p.EddyViscosity)
	}
	if !(p.AirDensity > 0) || math.IsInf(p.AirDensity, 0) {
		return fmt.Errorf("air density must be positive, got %g", p.AirDensity)
	}
	return nil
}

// coriolis returns the Coriolis parameter at a latitude in degrees.
func coriolis(lat float64) float64 {
	return 2 * earthRotation * math.Sin(lat*math.Pi/180)
}

// dragCoefficient is the surface drag coefficient for roughness length z0
// from the log law evaluated at the reference height above the displacement
// plane.
func dragCoefficient(z0 float64) float64 {
	h := roughnessHeightScale * math.Pow(z0, roughnessHeightExp)
	d := displacementRatio * h
	l := math.Log((referenceHeight + h - d) / z0)
	return karman * karman / (l * l)
}
