package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistance(t *testing.T) {
	t.Run("same point", func(t *testing.T) {
		p := Point{Lat: 29.3, Lon: -94.7}
		assert.InDelta(t, 0.0, Distance(p, p), 1e-9)
	})

	t.Run("one degree of latitude", func(t *testing.T) {
		d := Distance(Point{Lat: 0, Lon: 10}, Point{Lat: 1, Lon: 10})
		assert.InDelta(t, EarthRadius*math.Pi/180, d, 1e-6)
	})

	t.Run("symmetric", func(t *testing.T) {
		a := Point{Lat: 25.1, Lon: -80.2}
		b := Point{Lat: 27.9, Lon: -82.5}
		assert.InDelta(t, Distance(a, b), Distance(b, a), 1e-6)
	})
}

func TestInitialBearing(t *testing.T) {
	origin := Point{Lat: 0, Lon: 0}

	tests := []struct {
		name string
		to   Point
		want float64
	}{
		{"north", Point{Lat: 1, Lon: 0}, 0},
		{"east", Point{Lat: 0, Lon: 1}, 90},
		{"south", Point{Lat: -1, Lon: 0}, 180},
		{"west", Point{Lat: 0, Lon: -1}, 270},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, InitialBearing(origin, tt.to), 1e-9)
		})
	}
}

func TestInitialBearing_IdenticalLongitudeIsFinite(t *testing.T) {
	b := InitialBearing(Point{Lat: 20, Lon: -90}, Point{Lat: 20, Lon: -90})
	assert.False(t, math.IsNaN(b))
	assert.GreaterOrEqual(t, b, 0.0)
	assert.Less(t, b, 360.0)
}

func TestDestination_RoundTrip(t *testing.T) {
	origin := Point{Lat: 28.5, Lon: -93.0}
	for _, bearing := range []float64{0, 45, 90, 135, 180, 225, 270, 315} {
		dst := Destination(origin, bearing, 50e3)
		assert.InDelta(t, 50e3, Distance(origin, dst), 1e-3)
		assert.InDelta(t, bearing, InitialBearing(origin, dst), 1e-6)
	}
}

func TestDestinationsAlong_MatchesDestination(t *testing.T) {
	origin := Point{Lat: 30, Lon: -88}
	distances := []float64{1e3, 10e3, 100e3}
	got := make([]Point, len(distances))
	DestinationsAlong(got, origin, 300, distances)
	for i, d := range distances {
		want := Destination(origin, 300, d)
		assert.InDelta(t, want.Lat, got[i].Lat, 1e-12)
		assert.InDelta(t, want.Lon, got[i].Lon, 1e-12)
	}
}

func TestNormalizeDegrees(t *testing.T) {
	assert.InDelta(t, 350.0, NormalizeDegrees(-10), 1e-12)
	assert.InDelta(t, 0.0, NormalizeDegrees(360), 1e-12)
	assert.InDelta(t, 90.0, NormalizeDegrees(450), 1e-12)
}
