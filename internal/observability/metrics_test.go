package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsForTesting(t *testing.T) {
	m := NewMetricsForTesting()

	m.ScenariosConsumed.Inc()
	m.ConfigWarnings.WithLabelValues("track_truncated").Add(2)
	m.TerrainCache.WithLabelValues("hit").Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ScenariosConsumed))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ConfigWarnings.WithLabelValues("track_truncated")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TerrainCache.WithLabelValues("hit")))

	// Two testing instances must not collide.
	_ = NewMetricsForTesting()
}

func TestMetricsRegisterOnCustomRegistry(t *testing.T) {
	m := NewMetricsForTesting()
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(m.TrackPointsSolved))
	require.NoError(t, reg.Register(m.TrackPointDuration))

	m.TrackPointsSolved.Inc()
	m.TrackPointDuration.Observe(0.02)

	n, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
