package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/couchcryptid/storm-windfield/internal/adapter/httpadapter"
	"github.com/couchcryptid/storm-windfield/internal/adapter/jsonfile"
	kafkaadapter "github.com/couchcryptid/storm-windfield/internal/adapter/kafka"
	"github.com/couchcryptid/storm-windfield/internal/config"
	"github.com/couchcryptid/storm-windfield/internal/domain"
	"github.com/couchcryptid/storm-windfield/internal/observability"
	"github.com/couchcryptid/storm-windfield/internal/pipeline"
	"github.com/couchcryptid/storm-windfield/internal/terrain"
	"github.com/couchcryptid/storm-windfield/internal/windfield"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	// Reference terrain shared by scenarios that carry none of their own.
	var rough domain.Roughness
	if cfg.TerrainPath != "" {
		ix, skipped, err := terrain.LoadFile(cfg.TerrainPath)
		if err != nil {
			logger.Error("failed to load terrain", "path", cfg.TerrainPath, "error", err)
			os.Exit(1)
		}
		logger.Info("terrain loaded", "path", cfg.TerrainPath, "regions", ix.Len(), "skipped", skipped)
		rough = ix
	}

	builder := &windfield.Builder{
		Physics: windfield.Physics{
			EddyViscosity: cfg.EddyViscosity,
			AirDensity:    cfg.AirDensity,
		},
		Strict:           cfg.StrictConfig,
		SolverWorkers:    cfg.SolverWorkers,
		EnsembleWorkers:  cfg.EnsembleWorkers,
		Terrain:          rough,
		TerrainCacheSize: cfg.TerrainCacheSize,
		Logger:           logger,
		Metrics:          metrics,
	}
	simulator := pipeline.NewSimulator(builder, logger)

	reader := kafkaadapter.NewReader(cfg, logger)
	loader, err := newLoader(cfg, logger)
	if err != nil {
		logger.Error("failed to create record sink", "error", err)
		os.Exit(1)
	}

	p := pipeline.New(reader, simulator, loader, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, simulator, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start simulation pipeline.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if c, ok := loader.(io.Closer); ok {
		if err := c.Close(); err != nil {
			logger.Error("record sink close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

// newLoader picks the station record sink: JSON files when OUTPUT_DIR is
// set, the Kafka sink topic otherwise.
func newLoader(cfg *config.Config, logger *slog.Logger) (pipeline.BatchLoader, error) {
	if cfg.OutputDir != "" {
		logger.Info("writing station records to files", "dir", cfg.OutputDir)
		return jsonfile.NewWriter(cfg.OutputDir, logger)
	}
	logger.Info("writing station records to kafka", "topic", cfg.KafkaSinkTopic)
	return kafkaadapter.NewWriter(cfg, logger), nil
}
