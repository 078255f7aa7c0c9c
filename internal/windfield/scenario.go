package windfield

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/couchcryptid/storm-windfield/internal/domain"
	"github.com/couchcryptid/storm-windfield/internal/ensemble"
	"github.com/couchcryptid/storm-windfield/internal/observability"
	"github.com/couchcryptid/storm-windfield/internal/terrain"
)

// Builder turns scenario documents into configured simulations and runs
// them.
type Builder struct {
	Physics Physics
	// Strict fails a scenario on the first configuration error. Otherwise
	// the failing step is skipped with a config_skipped warning and the
	// simulation keeps its previous state for that step.
	Strict          bool
	SolverWorkers   int
	EnsembleWorkers int
	// Terrain is used for scenarios that carry no terrain of their own.
	// Nil means no regions.
	Terrain          domain.Roughness
	TerrainCacheSize int
	Logger           *slog.Logger
	Metrics          *observability.Metrics
}

// ScenarioResult is the outcome of every realization of one scenario.
type ScenarioResult struct {
	ScenarioID string
	Records    []domain.StationRecord
	Warnings   []domain.Warning
}

// Run simulates every realization of sc through the ensemble pool.
func (b *Builder) Run(ctx context.Context, sc domain.Scenario) (ScenarioResult, error) {
	if err := b.Physics.Validate(); err != nil {
		return ScenarioResult{}, domain.NewConfigError("physics", err)
	}
	var realizations []domain.Realization
	if b.Strict {
		var err error
		if realizations, err = sc.Expand(); err != nil {
			return ScenarioResult{}, err
		}
	} else {
		realizations = sc.ExpandPermissive()
	}
	rough, err := b.TerrainFor(sc)
	if err != nil {
		return ScenarioResult{}, err
	}

	type outcome struct {
		records  []domain.StationRecord
		warnings []domain.Warning
	}
	outs, err := ensemble.Map(ctx, b.EnsembleWorkers, realizations, func(ctx context.Context, rz domain.Realization) (outcome, error) {
		sim, err := b.Build(sc, rz, rough)
		if err != nil {
			return outcome{}, err
		}
		err = sim.Run(ctx)
		b.reportWarnings(sc.ID, rz.Index, sim.Warnings())
		if err != nil {
			return outcome{}, err
		}
		return outcome{records: sim.Records(sc.ID, rz.Index), warnings: sim.Warnings()}, nil
	})
	if err != nil {
		return ScenarioResult{}, fmt.Errorf("scenario %s: %w", sc.ID, err)
	}

	res := ScenarioResult{ScenarioID: sc.ID}
	for _, o := range outs {
		res.Records = append(res.Records, o.records...)
		res.Warnings = append(res.Warnings, o.warnings...)
	}
	return res, nil
}

// TerrainFor resolves the roughness source shared by all realizations of sc.
// With more than one realization it is wrapped in an LRU cache sized to hold
// one realization's lookups, provided that fits within TerrainCacheSize.
// Ring points only repeat between realizations, so a smaller cache would
// cycle through its keys without hitting.
func (b *Builder) TerrainFor(sc domain.Scenario) (domain.Roughness, error) {
	var rough domain.Roughness = terrain.NewIndex()
	switch {
	case len(sc.Terrain) > 0 && string(sc.Terrain) != "null":
		ix, skipped, err := terrain.ParseFeatureCollection(sc.Terrain)
		if err != nil {
			return nil, domain.NewConfigError("terrain", err)
		}
		if skipped > 0 {
			b.logger().Debug("terrain features skipped", "scenario_id", sc.ID, "skipped", skipped)
		}
		rough = ix
	case b.Terrain != nil:
		rough = b.Terrain
	}
	if b.TerrainCacheSize <= 0 || len(sc.Realizations) < 2 {
		return rough, nil
	}
	need := lookupsPerRealization(sc)
	if need == 0 || need > b.TerrainCacheSize {
		b.logger().Debug("terrain cache skipped",
			"scenario_id", sc.ID,
			"lookups", need,
			"limit", b.TerrainCacheSize,
		)
		return rough, nil
	}
	return terrain.NewCachedIndex(rough, need, b.terrainLookups()), nil
}

// lookupsPerRealization estimates the roughness lookups of one realization:
// every mesh node at every track point plus one per station. It returns 0 when
// the mesh is malformed.
func lookupsPerRealization(sc domain.Scenario) int {
	radii, err := domain.RangeSpec{Start: sc.CycloneMesh.RadiusStart, Step: sc.CycloneMesh.RadiusStep, End: sc.CycloneMesh.RadiusEnd}.Count()
	if err != nil {
		return 0
	}
	azimuths, err := domain.RangeSpec{Start: sc.CycloneMesh.AzimuthStart, Step: sc.CycloneMesh.AzimuthStep, End: sc.CycloneMesh.AzimuthEnd}.Count()
	if err != nil {
		return 0
	}

	points := len(sc.Track.Latitude)
	switch {
	case len(sc.TrackLatitudes) > 0:
		points = len(sc.TrackLatitudes)
	case sc.TrackMesh != nil && sc.TrackMesh.Step != 0:
		if n := math.Ceil(math.Abs((sc.TrackMesh.End - sc.TrackMesh.Start) / sc.TrackMesh.Step)); n > 0 && n < 1e7 {
			points = int(n)
		}
	}
	return radii*azimuths*points + len(sc.Stations.Latitude)
}

// Build configures a simulation for one realization of sc. In permissive
// mode configuration errors become warnings; Run then refuses to start if a
// required step never succeeded.
func (b *Builder) Build(sc domain.Scenario, rz domain.Realization, rough domain.Roughness) (*Simulation, error) {
	cyclone, err := domain.NewCycloneParameters(sc.Cyclone)
	if err != nil {
		return nil, err
	}

	sim := NewSimulation(cyclone, b.Physics, b.logger().With("scenario_id", sc.ID, "realization", rz.Index))
	sim.SetMetrics(b.Metrics)
	if b.SolverWorkers > 0 {
		sim.SetWorkers(b.SolverWorkers)
	}
	if rough != nil {
		sim.SetTerrain(rough)
	}
	sim.diag.Add(rz.Warnings...)
	if rz.Feature != nil {
		sim.PerturbFeatures(*rz.Feature)
	}
	sim.PerturbPath(rz.Path)

	steps := []func() error{
		func() error { return sim.SetTrack(sc.Track.Latitude, sc.Track.Longitude) },
		func() error {
			switch {
			case len(sc.TrackLatitudes) > 0:
				return sim.DefineTrack(sc.TrackLatitudes)
			case sc.TrackMesh != nil:
				return sim.MeshTrack(sc.TrackMesh.Start, sc.TrackMesh.Step, sc.TrackMesh.End)
			default:
				return sim.UseOriginalTrack()
			}
		},
		func() error { return sim.SetCycloneMesh(sc.CycloneMesh) },
		func() error { return sim.SetHeights(sc.Heights) },
		func() error { return sim.AddStations(sc.Stations) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			if b.Strict {
				return nil, err
			}
			var cfgErr *domain.ConfigError
			if !errors.As(err, &cfgErr) {
				return nil, err
			}
			sim.warn(domain.WarnConfigSkipped, "%v", cfgErr)
		}
	}
	return sim, nil
}

func (b *Builder) reportWarnings(scenarioID string, realization int, warns []domain.Warning) {
	for _, w := range warns {
		b.logger().Warn("simulation warning",
			"scenario_id", scenarioID,
			"realization", realization,
			"kind", string(w.Kind),
			"message", w.Message,
		)
		if b.Metrics != nil {
			b.Metrics.ConfigWarnings.WithLabelValues(string(w.Kind)).Inc()
		}
	}
}

func (b *Builder) terrainLookups() *prometheus.CounterVec {
	if b.Metrics == nil {
		return nil
	}
	return b.Metrics.TerrainCache
}

func (b *Builder) logger() *slog.Logger {
	if b.Logger == nil {
		return slog.Default()
	}
	return b.Logger
}
