package windfield

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/storm-windfield/internal/domain"
)

// referenceRing is a 50 hPa storm with a 40 km radius of maximum winds moving
// due north at 20 km/h at latitude 25.
func referenceRing(radius, thetaDeg, z0 float64) ringInput {
	return ringInput{
		radius:   radius,
		theta:    thetaDeg * math.Pi / 180,
		beta:     math.Pi / 2,
		coriolis: coriolis(25),
		speed:    20 / 3.6,
		deficit:  5000,
		rmw:      40000,
		hollandB: domain.HollandB(50, 40),
		z0:       z0,
	}
}

func ringSpeeds(in ringInput, heights []float64) []float64 {
	sol := DefaultPhysics().solveRing(in)
	out := make([]float64, len(heights))
	sol.speeds(heights, out)
	return out
}

func TestDragCoefficient(t *testing.T) {
	cd := dragCoefficient(0.03)
	h := 11.4 * math.Pow(0.03, 0.86)
	want := 0.16 / math.Pow(math.Log((10+h-0.75*h)/0.03), 2)
	assert.InDelta(t, want, cd, 1e-15)
	assert.Greater(t, dragCoefficient(0.8), cd, "rougher surfaces drag more")
}

func TestSolveRing_ReferenceValues(t *testing.T) {
	got := ringSpeeds(referenceRing(35000, 0, 0.03), []float64{10, 50, 100, 500})
	want := []float64{38.83209426545831, 41.39607015199193, 44.00694759654907, 50.30695020961866}
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-6, "height index %d", i)
	}

	assert.InDelta(t, 30.059562820683226, ringSpeeds(referenceRing(35000, 0, 0.8), []float64{10})[0], 1e-6)
	assert.InDelta(t, 5.466003823221055, ringSpeeds(referenceRing(1000, 0, 0.03), []float64{10})[0], 1e-6)
}

func TestSolveRing_PeaksNearRadiusOfMaximumWinds(t *testing.T) {
	for _, theta := range []float64{0, 90, 180, 270} {
		best, bestR := 0.0, 0.0
		for k := 1; k <= 100; k++ {
			r := float64(k) * 1000
			v := ringSpeeds(referenceRing(r, theta, 0.03), []float64{10})[0]
			require.False(t, math.IsNaN(v), "theta %g radius %g", theta, r)
			if v > best {
				best, bestR = v, r
			}
		}
		assert.InDelta(t, 35000, bestR, 1, "theta %g", theta)
		assert.Greater(t, best, 30.0)
		assert.Less(t, best, 45.0)
	}
}

func TestSolveRing_StationaryStormIsAxisymmetric(t *testing.T) {
	var ref float64
	for i, theta := range []float64{0, 45, 90, 180, 270, 315} {
		in := referenceRing(35000, theta, 0.03)
		in.speed = 0
		v := ringSpeeds(in, []float64{10})[0]
		if i == 0 {
			ref = v
			assert.InDelta(t, 36.194, v, 1e-3)
			continue
		}
		assert.InDelta(t, ref, v, 1e-9, "theta %g", theta)
	}
}

func TestSolveRing_NonFinitePropagates(t *testing.T) {
	in := referenceRing(35000, 0, 0.03)
	in.deficit = math.NaN()
	v := ringSpeeds(in, []float64{10})[0]
	assert.True(t, math.IsNaN(v))
}

func TestPhysics_Validate(t *testing.T) {
	require.NoError(t, DefaultPhysics().Validate())
	assert.Error(t, Physics{EddyViscosity: 0, AirDensity: 1.1}.Validate())
	assert.Error(t, Physics{EddyViscosity: 75, AirDensity: -1}.Validate())
	assert.Error(t, Physics{EddyViscosity: math.Inf(1), AirDensity: 1.1}.Validate())
}
