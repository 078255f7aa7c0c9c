// Package track resamples a best-track polyline and derives storm headings.
package track

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/interp"

	"github.com/couchcryptid/storm-windfield/internal/domain"
	"github.com/couchcryptid/storm-windfield/internal/geo"
)

var errNotResamplable = errors.New("track needs at least two distinct latitudes to be resampled")

// Track is a storm track: the original polyline, an interpolant of longitude
// as a function of latitude, and the resampled points the simulation visits.
type Track struct {
	original []geo.Point
	lonAt    interp.PiecewiseLinear
	minLat   float64
	maxLat   float64
	fitted   bool
	points   []geo.Point
}

// New builds a track from parallel coordinate slices. Slices of unequal
// length are truncated to the shorter one. The resampled points default to
// the original ones until Mesh or Define is called; resampling needs at least
// two distinct latitudes.
func New(lat, lon []float64) (*Track, []domain.Warning, error) {
	var diag domain.Diagnostics
	n := min(len(lat), len(lon))
	if len(lat) != len(lon) {
		diag.Warn(domain.WarnTrackTruncated, "latitude has %d values and longitude %d, keeping %d", len(lat), len(lon), n)
	}
	lat, lon = lat[:n], lon[:n]
	for i := range lat {
		if math.IsNaN(lat[i]) || math.IsInf(lat[i], 0) || math.IsNaN(lon[i]) || math.IsInf(lon[i], 0) {
			return nil, diag.Warnings, domain.NewConfigError("track", fmt.Errorf("point %d is not finite", i))
		}
	}

	if n == 0 {
		return nil, diag.Warnings, domain.NewConfigError("track", errors.New("track is empty"))
	}

	xs, ys, dups := sortedUnique(lat, lon)
	if dups > 0 {
		diag.Warn(domain.WarnDuplicateLatitude, "collapsed %d points with repeated latitude, keeping the first", dups)
	}

	t := &Track{minLat: xs[0], maxLat: xs[len(xs)-1]}
	if len(xs) >= 2 {
		if err := t.lonAt.Fit(xs, ys); err != nil {
			return nil, diag.Warnings, domain.NewConfigError("track", err)
		}
		t.fitted = true
	}
	t.original = make([]geo.Point, n)
	for i := range lat {
		t.original[i] = geo.Point{Lat: lat[i], Lon: lon[i]}
	}
	t.points = t.original
	return t, diag.Warnings, nil
}

// sortedUnique orders the points by latitude and drops repeated latitudes,
// keeping the first occurrence in input order.
func sortedUnique(lat, lon []float64) (xs, ys []float64, dups int) {
	idx := make([]int, len(lat))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return lat[idx[a]] < lat[idx[b]] })

	for _, i := range idx {
		if len(xs) > 0 && lat[i] == xs[len(xs)-1] {
			dups++
			continue
		}
		xs = append(xs, lat[i])
		ys = append(ys, lon[i])
	}
	return xs, ys, dups
}

// Mesh resamples the track at latitudes start, start+step, ... stopping
// before end. Bounds outside the original latitude range are clamped into
// it. A negative step walks a southbound track.
func (t *Track) Mesh(start, step, end float64) ([]domain.Warning, error) {
	var diag domain.Diagnostics
	if !t.fitted {
		return nil, domain.NewConfigError("track_mesh", errNotResamplable)
	}
	if step == 0 || math.IsNaN(step) || math.IsInf(step, 0) {
		return nil, domain.NewConfigError("track_mesh", fmt.Errorf("step must be non-zero and finite, got %g", step))
	}
	if math.IsNaN(start) || math.IsNaN(end) {
		return nil, domain.NewConfigError("track_mesh", errors.New("bounds must not be NaN"))
	}

	cs, ce := t.clamp(start), t.clamp(end)
	if cs != start || ce != end {
		diag.Warn(domain.WarnTrackMeshClamped, "latitude range [%g, %g] clamped to [%g, %g]", start, end, cs, ce)
	}

	n := int(math.Ceil((ce - cs) / step))
	if n <= 0 {
		return diag.Warnings, domain.NewConfigError("track_mesh", fmt.Errorf("no latitudes between %g and %g with step %g", cs, ce, step))
	}
	lats := make([]float64, n)
	for i := range lats {
		lats[i] = cs + float64(i)*step
	}
	t.points = t.interpolate(lats)
	return diag.Warnings, nil
}

// Define resamples the track at the given latitudes. Latitudes outside the
// original range take the longitude of the nearest end.
func (t *Track) Define(lats []float64) error {
	if !t.fitted {
		return domain.NewConfigError("track_latitudes", errNotResamplable)
	}
	if len(lats) == 0 {
		return domain.NewConfigError("track_latitudes", errors.New("no latitudes given"))
	}
	for i, v := range lats {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return domain.NewConfigError("track_latitudes", fmt.Errorf("latitude %d is not finite", i))
		}
	}
	t.points = t.interpolate(lats)
	return nil
}

func (t *Track) interpolate(lats []float64) []geo.Point {
	out := make([]geo.Point, len(lats))
	for i, la := range lats {
		out[i] = geo.Point{Lat: la, Lon: t.lonAt.Predict(la)}
	}
	return out
}

func (t *Track) clamp(v float64) float64 {
	return math.Max(t.minLat, math.Min(t.maxLat, v))
}

// Points returns the resampled track.
func (t *Track) Points() []geo.Point { return t.points }

// Original returns the input polyline after truncation.
func (t *Track) Original() []geo.Point { return t.original }

// Len returns the number of resampled points.
func (t *Track) Len() int { return len(t.points) }

// LatitudeRange returns the smallest and largest original latitude.
func (t *Track) LatitudeRange() (float64, float64) { return t.minLat, t.maxLat }

// Headings returns the compass heading at every resampled point: the initial
// great-circle bearing towards the next point plus offset, in [0, 360). The
// last point repeats the previous heading.
func (t *Track) Headings(offset float64) []float64 {
	n := len(t.points)
	out := make([]float64, n)
	if n == 1 {
		out[0] = geo.NormalizeDegrees(offset)
		return out
	}
	for i := 0; i < n-1; i++ {
		out[i] = geo.NormalizeDegrees(geo.InitialBearing(t.points[i], t.points[i+1]) + offset)
	}
	if n > 1 {
		out[n-1] = out[n-2]
	}
	return out
}
