// Package windfield evaluates the height-resolving boundary-layer wind field
// of a moving tropical cyclone and records per-station peak wind speeds.
package windfield

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/storm-windfield/internal/domain"
	"github.com/couchcryptid/storm-windfield/internal/observability"
	"github.com/couchcryptid/storm-windfield/internal/terrain"
	"github.com/couchcryptid/storm-windfield/internal/track"
)

// Simulation is one configured run: a cyclone moving along a resampled track,
// evaluated on a polar mesh and mapped onto stations. Configure it fully
// before calling Run; it is not safe for concurrent configuration.
type Simulation struct {
	physics Physics
	cyclone domain.CycloneParameters
	path    domain.PathPerturbation
	terrain domain.Roughness

	track     *track.Track
	resampled bool
	mesh      *domain.PolarMesh
	heights   domain.Heights
	stations  []*domain.Station

	workers int
	diag    domain.Diagnostics
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewSimulation creates a simulation for the given cyclone with an empty
// terrain index.
func NewSimulation(cyclone domain.CycloneParameters, physics Physics, logger *slog.Logger) *Simulation {
	return &Simulation{
		physics: physics,
		cyclone: cyclone,
		terrain: terrain.NewIndex(),
		workers: runtime.NumCPU(),
		logger:  logger,
	}
}

// SetMetrics attaches Prometheus instruments. Nil disables them.
func (s *Simulation) SetMetrics(m *observability.Metrics) { s.metrics = m }

// SetWorkers bounds the number of goroutines Run uses.
func (s *Simulation) SetWorkers(n int) {
	if n < 1 {
		n = 1
	}
	s.workers = n
}

// SetTerrain replaces the roughness source. Stations already added keep the
// z0 they resolved.
func (s *Simulation) SetTerrain(r domain.Roughness) { s.terrain = r }

// Cyclone returns the cyclone after any feature perturbation.
func (s *Simulation) Cyclone() domain.CycloneParameters { return s.cyclone }

// PerturbFeatures replaces the cyclone's intensity features.
func (s *Simulation) PerturbFeatures(p domain.FeaturePerturbation) {
	s.cyclone = s.cyclone.Perturb(p)
}

// PerturbPath shifts every track position and rotates every heading.
func (s *Simulation) PerturbPath(p domain.PathPerturbation) { s.path = p }

// SetTrack installs a track. It must still be resampled through MeshTrack,
// DefineTrack or UseOriginalTrack.
func (s *Simulation) SetTrack(lat, lon []float64) error {
	t, warns, err := track.New(lat, lon)
	s.diag.Add(warns...)
	if err != nil {
		return err
	}
	s.track = t
	s.resampled = false
	return nil
}

// MeshTrack resamples the track on a regular latitude grid, end exclusive.
func (s *Simulation) MeshTrack(start, step, end float64) error {
	if s.track == nil {
		return domain.NewConfigError("track_mesh", errors.New("no track set"))
	}
	warns, err := s.track.Mesh(start, step, end)
	s.diag.Add(warns...)
	if err != nil {
		return err
	}
	s.resampled = true
	return nil
}

// DefineTrack resamples the track at explicit latitudes.
func (s *Simulation) DefineTrack(lats []float64) error {
	if s.track == nil {
		return domain.NewConfigError("track_latitudes", errors.New("no track set"))
	}
	if err := s.track.Define(lats); err != nil {
		return err
	}
	s.resampled = true
	return nil
}

// UseOriginalTrack simulates at the input track points without resampling.
func (s *Simulation) UseOriginalTrack() error {
	if s.track == nil {
		return domain.NewConfigError("track", errors.New("no track set"))
	}
	s.resampled = true
	return nil
}

// SetCycloneMesh builds the polar evaluation mesh.
func (s *Simulation) SetCycloneMesh(spec domain.MeshSpec) error {
	m, err := domain.NewPolarMesh(spec)
	if err != nil {
		return err
	}
	s.mesh = m
	return nil
}

// SetHeights builds the evaluation height grid.
func (s *Simulation) SetHeights(spec domain.RangeSpec) error {
	h, err := domain.NewHeights(spec)
	if err != nil {
		return err
	}
	s.heights = h
	return nil
}

// AddStations appends stations, resolving unset roughness from the current
// terrain.
func (s *Simulation) AddStations(list domain.StationList) error {
	st, err := domain.NewStations(list, s.terrain)
	if err != nil {
		return err
	}
	seen := make(map[string]bool, len(s.stations))
	for _, existing := range s.stations {
		seen[existing.ID] = true
	}
	for _, n := range st {
		if seen[n.ID] {
			return domain.NewConfigError("stations", fmt.Errorf("duplicate station id %q", n.ID))
		}
	}
	s.stations = append(s.stations, st...)
	return nil
}

// Stations returns the configured stations.
func (s *Simulation) Stations() []*domain.Station { return s.stations }

// Heights returns the evaluation heights.
func (s *Simulation) Heights() domain.Heights { return s.heights }

// Warnings returns the diagnostics recorded so far.
func (s *Simulation) Warnings() []domain.Warning { return s.diag.Warnings }

// warn records a diagnostic raised outside the configuration methods.
func (s *Simulation) warn(kind domain.WarningKind, format string, args ...any) {
	s.diag.Warn(kind, format, args...)
}

// Ready reports whether every configuration step Run depends on succeeded.
func (s *Simulation) Ready() error {
	switch {
	case s.mesh == nil:
		return domain.NewConfigError("run", errors.New("cyclone mesh is not configured"))
	case len(s.heights) == 0:
		return domain.NewConfigError("run", errors.New("heights are not configured"))
	case s.track == nil || !s.resampled:
		return domain.NewConfigError("run", errors.New("track is not configured"))
	case len(s.stations) == 0:
		return domain.NewConfigError("run", errors.New("no stations"))
	}
	return nil
}

// Run evaluates the wind field at every track point and raises each
// station's per-height peaks. Peaks are reset at the start of each run.
// Track points are split into contiguous chunks, one per worker; each worker
// keeps private peaks that are merged once its chunk is done. Cancellation is
// observed between track points.
func (s *Simulation) Run(ctx context.Context) error {
	if err := s.Ready(); err != nil {
		return err
	}
	start := time.Now()

	for _, st := range s.stations {
		st.ResetPeaks(len(s.heights))
	}

	points := s.track.Points()
	headings := s.track.Headings(s.path.DHeading)
	workers := min(s.workers, len(points))

	inside := make([][]bool, workers)
	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		lo, hi := chunk(len(points), workers, w)
		g.Go(func() error {
			sv := newSolver(s.physics, s.cyclone, s.mesh, s.heights, s.terrain)
			field := NewField(s.mesh, s.heights)
			table := newPeakTable(len(s.stations), len(s.heights))

			for i := lo; i < hi; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				t0 := time.Now()
				center := s.path.Apply(points[i])
				sv.solve(stormState{
					center:   center,
					heading:  headings[i],
					coriolis: coriolis(center.Lat),
				}, field)
				mapStations(field, center, s.mesh, s.stations, table)
				s.observePoint(time.Since(t0))
			}
			table.merge(s.stations)
			inside[w] = table.inside
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("run simulation: %w", err)
	}

	s.reportOutside(inside)
	s.logger.Info("simulation complete",
		"track_points", len(points),
		"stations", len(s.stations),
		"heights", len(s.heights),
		"workers", workers,
		"duration", time.Since(start),
	)
	return nil
}

// chunk returns the half-open range of n items owned by worker w of k.
func chunk(n, k, w int) (int, int) {
	size, rem := n/k, n%k
	lo := w*size + min(w, rem)
	hi := lo + size
	if w < rem {
		hi++
	}
	return lo, hi
}

func (s *Simulation) observePoint(d time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.TrackPointsSolved.Inc()
	s.metrics.TrackPointDuration.Observe(d.Seconds())
}

func (s *Simulation) reportOutside(inside [][]bool) {
	for i, st := range s.stations {
		seen := false
		for _, w := range inside {
			if w[i] {
				seen = true
				break
			}
		}
		if !seen {
			s.warn(domain.WarnStationOutsideMesh, "station %s never came within the mesh", st.ID)
		}
	}
}

// Records snapshots every station's peaks.
func (s *Simulation) Records(scenarioID string, realization int) []domain.StationRecord {
	out := make([]domain.StationRecord, len(s.stations))
	for i, st := range s.stations {
		out[i] = domain.NewStationRecord(scenarioID, realization, st, s.heights)
	}
	return out
}
