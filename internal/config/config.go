package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// Simulation configuration.
	SolverWorkers    int
	EnsembleWorkers  int
	StrictConfig     bool
	EddyViscosity    float64
	AirDensity       float64
	TerrainPath      string
	TerrainCacheSize int

	// OutputDir, when set, sends station records to JSON files instead of
	// the sink topic.
	OutputDir string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	solverWorkers, err := parseIntRange("SOLVER_WORKERS", min(runtime.NumCPU(), 256), 1, 256)
	if err != nil {
		return nil, err
	}
	ensembleWorkers, err := parseIntRange("ENSEMBLE_WORKERS", 2, 1, 64)
	if err != nil {
		return nil, err
	}
	cacheSize, err := parseIntRange("TERRAIN_CACHE_SIZE", 1_000_000, 0, 10_000_000)
	if err != nil {
		return nil, err
	}
	eddy, err := parsePositiveFloat("EDDY_VISCOSITY", 75)
	if err != nil {
		return nil, err
	}
	density, err := parsePositiveFloat("AIR_DENSITY", 1.1)
	if err != nil {
		return nil, err
	}
	strict, err := parseBool("STRICT_CONFIG", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "cyclone-scenarios"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "station-peak-winds"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "storm-windfield"),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		SolverWorkers:    solverWorkers,
		EnsembleWorkers:  ensembleWorkers,
		StrictConfig:     strict,
		EddyViscosity:    eddy,
		AirDensity:       density,
		TerrainPath:      os.Getenv("TERRAIN_PATH"),
		TerrainCacheSize: cacheSize,
		OutputDir:        os.Getenv("OUTPUT_DIR"),
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.KafkaSinkTopic == "" && cfg.OutputDir == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}

	return cfg, nil
}

func parseIntRange(key string, fallback, lo, hi int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("invalid %s: must be an integer between %d and %d", key, lo, hi)
	}
	return n, nil
}

func parsePositiveFloat(key string, fallback float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || !(v > 0) || v > 1e12 {
		return 0, fmt.Errorf("invalid %s: must be a positive number", key)
	}
	return v, nil
}

func parseBool(key string, fallback bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: must be true or false", key)
	}
	return v, nil
}
