package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/couchcryptid/storm-windfield/internal/domain"
	"github.com/couchcryptid/storm-windfield/internal/terrain"
	"github.com/couchcryptid/storm-windfield/internal/windfield"
	"github.com/spf13/cobra"
)

// options holds the flags shared by every subcommand.
type options struct {
	logLevel        string
	logFormat       string
	strict          bool
	terrainPath     string
	terrainCache    int
	solverWorkers   int
	ensembleWorkers int
	eddyViscosity   float64
	airDensity      float64
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "windsim",
		Short: "Analytical tropical-cyclone boundary-layer wind-field simulator.",
		Long: "Simulate peak wind speeds at stations along a cyclone track using a\n" +
			"linear height-resolving boundary-layer model.",
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	pf.StringVar(&opts.logFormat, "log-format", "text", "log format (text, json)")
	pf.BoolVar(&opts.strict, "strict", false, "fail on the first configuration error instead of skipping the step")
	pf.StringVar(&opts.terrainPath, "terrain", "", "GeoJSON terrain file used when the scenario carries none")
	pf.IntVar(&opts.terrainCache, "terrain-cache", 1_000_000, "upper bound on terrain cache entries (0 disables)")
	pf.IntVar(&opts.solverWorkers, "workers", runtime.NumCPU(), "track points solved in parallel")
	pf.IntVar(&opts.ensembleWorkers, "ensemble-workers", 2, "realizations simulated in parallel")
	pf.Float64Var(&opts.eddyViscosity, "eddy-viscosity", windfield.DefaultPhysics().EddyViscosity, "vertical eddy viscosity (m^2/s)")
	pf.Float64Var(&opts.airDensity, "air-density", windfield.DefaultPhysics().AirDensity, "air density (kg/m^3)")

	root.AddCommand(newRunCmd(opts), newValidateCmd(opts))
	return root
}

func (o *options) logger(w io.Writer) *slog.Logger {
	if w == nil {
		return sharedobs.NewLogger(o.logLevel, o.logFormat)
	}
	return slog.New(slog.NewTextHandler(w, nil))
}

// builder assembles a windfield.Builder from the flags.
func (o *options) builder(logger *slog.Logger) (*windfield.Builder, error) {
	var rough domain.Roughness
	if o.terrainPath != "" {
		ix, skipped, err := terrain.LoadFile(o.terrainPath)
		if err != nil {
			return nil, err
		}
		logger.Info("terrain loaded", "path", o.terrainPath, "regions", ix.Len(), "skipped", skipped)
		rough = ix
	}
	if o.solverWorkers < 1 || o.ensembleWorkers < 1 {
		return nil, fmt.Errorf("--workers and --ensemble-workers must be at least 1")
	}
	return &windfield.Builder{
		Physics: windfield.Physics{
			EddyViscosity: o.eddyViscosity,
			AirDensity:    o.airDensity,
		},
		Strict:           o.strict,
		SolverWorkers:    o.solverWorkers,
		EnsembleWorkers:  o.ensembleWorkers,
		Terrain:          rough,
		TerrainCacheSize: o.terrainCache,
		Logger:           logger,
	}, nil
}

// readScenario reads a scenario document from path, or stdin for "-".
func readScenario(cmd *cobra.Command, path string) (domain.RawScenario, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return domain.RawScenario{}, fmt.Errorf("read scenario: %w", err)
	}
	return domain.RawScenario{Key: []byte(path), Value: data}, nil
}
