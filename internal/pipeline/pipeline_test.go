package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/storm-windfield/internal/domain"
	"github.com/couchcryptid/storm-windfield/internal/observability"
	"github.com/couchcryptid/storm-windfield/internal/pipeline"
	"github.com/couchcryptid/storm-windfield/internal/windfield"
)

// --- mocks ---

type mockExtractor struct {
	scenarios []domain.RawScenario
	index     atomic.Int64
}

func (m *mockExtractor) ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawScenario, error) {
	i := int(m.index.Load())
	if i >= len(m.scenarios) {
		// block until context cancelled to simulate waiting for messages
		<-ctx.Done()
		return nil, ctx.Err()
	}
	end := min(i+batchSize, len(m.scenarios))
	m.index.Store(int64(end))
	return m.scenarios[i:end], nil
}

type failingExtractor struct {
	calls atomic.Int64
}

func (m *failingExtractor) ExtractBatch(_ context.Context, _ int) ([]domain.RawScenario, error) {
	m.calls.Add(1)
	return nil, errors.New("broker unavailable")
}

type mockSimulator struct {
	err error
}

func (m *mockSimulator) Simulate(_ context.Context, raw domain.RawScenario) ([]domain.OutputMessage, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []domain.OutputMessage{
		{Key: []byte(string(raw.Key) + "-a"), Value: raw.Value},
		{Key: []byte(string(raw.Key) + "-b"), Value: raw.Value},
	}, nil
}

type mockLoader struct {
	mu     sync.Mutex
	loaded []domain.OutputMessage
	err    error
}

func (m *mockLoader) LoadBatch(_ context.Context, msgs []domain.OutputMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.loaded = append(m.loaded, msgs...)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	raw := domain.RawScenario{Key: []byte("scn-1"), Value: []byte(`{}`)}

	ext := &mockExtractor{scenarios: []domain.RawScenario{raw}}
	ldr := &mockLoader{}
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(ext, &mockSimulator{}, ldr, testLogger(), metrics, 10)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	require.Len(t, ldr.loaded, 2)
	assert.Equal(t, []byte("scn-1-a"), ldr.loaded[0].Key)
	require.NoError(t, p.CheckReadiness(context.Background()))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ScenariosConsumed))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.RecordsProduced))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.PipelineRunning))
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	ldr := &mockLoader{}
	p := pipeline.New(&mockExtractor{}, &mockSimulator{}, ldr, testLogger(), observability.NewMetricsForTesting(), 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, p.Run(ctx))
	assert.Empty(t, ldr.loaded)
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_SimulationError(t *testing.T) {
	committed := false
	raw := domain.RawScenario{
		Value:  []byte(`{}`),
		Commit: func(_ context.Context) error { committed = true; return nil },
	}

	ldr := &mockLoader{}
	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(&mockExtractor{scenarios: []domain.RawScenario{raw}}, &mockSimulator{err: errors.New("bad scenario")}, ldr, testLogger(), metrics, 10)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	assert.Empty(t, ldr.loaded)
	assert.True(t, committed, "failed scenarios are committed so they are not redelivered")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SimulationErrors))
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_CommitsAfterLoad(t *testing.T) {
	var commits atomic.Int64
	commit := func(_ context.Context) error { commits.Add(1); return nil }
	raws := []domain.RawScenario{
		{Key: []byte("a"), Value: []byte(`{}`), Commit: commit},
		{Key: []byte("b"), Value: []byte(`{}`), Commit: commit},
		{Key: []byte("c"), Value: []byte(`{}`), Commit: commit},
	}

	ldr := &mockLoader{}
	p := pipeline.New(&mockExtractor{scenarios: raws}, &mockSimulator{}, ldr, testLogger(), observability.NewMetricsForTesting(), 2)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	assert.Len(t, ldr.loaded, 6)
	assert.Equal(t, int64(3), commits.Load())
}

func TestPipeline_Run_LoadErrorDoesNotCommit(t *testing.T) {
	committed := false
	raw := domain.RawScenario{
		Value:  []byte(`{}`),
		Commit: func(_ context.Context) error { committed = true; return nil },
	}
	ldr := &mockLoader{err: errors.New("sink down")}
	p := pipeline.New(&mockExtractor{scenarios: []domain.RawScenario{raw}}, &mockSimulator{}, ldr, testLogger(), observability.NewMetricsForTesting(), 10)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	assert.False(t, committed)
}

func TestPipeline_Run_ExtractErrorBacksOff(t *testing.T) {
	ext := &failingExtractor{}
	p := pipeline.New(ext, &mockSimulator{}, &mockLoader{}, testLogger(), observability.NewMetricsForTesting(), 10)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	// 200ms then 400ms backoff: at most three attempts fit in the window.
	assert.LessOrEqual(t, ext.calls.Load(), int64(3))
	assert.GreaterOrEqual(t, ext.calls.Load(), int64(2))
}

func TestScenarioSimulator_Fixture(t *testing.T) {
	fixed := time.Date(2024, 10, 9, 0, 0, 0, 0, time.UTC)
	domain.SetClock(clockwork.NewFakeClockAt(fixed))
	t.Cleanup(func() { domain.SetClock(nil) })

	data, err := os.ReadFile("testdata/scenario.json")
	require.NoError(t, err)

	sim := pipeline.NewSimulator(&windfield.Builder{
		Physics:          windfield.DefaultPhysics(),
		Strict:           true,
		SolverWorkers:    2,
		EnsembleWorkers:  2,
		TerrainCacheSize: 1000,
		Logger:           testLogger(),
		Metrics:          observability.NewMetricsForTesting(),
	}, testLogger())

	out, err := sim.Simulate(context.Background(), domain.RawScenario{Value: data})
	require.NoError(t, err)
	require.Len(t, out, 4, "two stations in two realizations")

	keys := map[string]int{}
	for _, msg := range out {
		keys[string(msg.Key)]++
		assert.Equal(t, "fixture-northbound", msg.Headers["scenario_id"])
		assert.Equal(t, "2024-10-09T00:00:00Z", msg.Headers["simulated_at"])

		var rec domain.StationRecord
		require.NoError(t, json.Unmarshal(msg.Value, &rec))
		assert.Equal(t, []float64{10, 30, 50}, rec.Heights)
		assert.Len(t, rec.PeakSpeeds, 3)
		assert.True(t, rec.Finite)
		assert.Equal(t, 600, rec.GustDuration)
		assert.Equal(t, msg.Headers["realization"], map[int]string{0: "0", 1: "1"}[rec.Realization])
	}
	assert.Equal(t, map[string]int{"miami": 2, "nassau": 2}, keys)
}

func TestScenarioSimulator_InvalidScenario(t *testing.T) {
	sim := pipeline.NewSimulator(&windfield.Builder{
		Physics: windfield.DefaultPhysics(),
		Strict:  true,
		Logger:  testLogger(),
	}, testLogger())

	_, err := sim.Simulate(context.Background(), domain.RawScenario{Value: []byte("not json")})
	require.Error(t, err)

	_, err = sim.Simulate(context.Background(), domain.RawScenario{Value: []byte(`{"id":"empty"}`)})
	var cfgErr *domain.ConfigError
	require.ErrorAs(t, err, &cfgErr)
}
