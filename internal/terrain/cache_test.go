package terrain

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

type countingRoughness struct {
	calls int
	z0    float64
}

func (c *countingRoughness) RoughnessAt(_, _ float64) float64 {
	c.calls++
	return c.z0
}

func TestCachedIndex_Hit(t *testing.T) {
	inner := &countingRoughness{z0: 0.4}
	lookups := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "lookups"}, []string{"result"})
	cached := NewCachedIndex(inner, 10, lookups)

	assert.Equal(t, 0.4, cached.RoughnessAt(25.1234567, -80.5))
	assert.Equal(t, 0.4, cached.RoughnessAt(25.1234567, -80.5))

	assert.Equal(t, 1, inner.calls, "should only call inner once")
	assert.Equal(t, 1.0, testutil.ToFloat64(lookups.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(lookups.WithLabelValues("miss")))
}

func TestCachedIndex_DifferentKeysMiss(t *testing.T) {
	inner := &countingRoughness{z0: 0.4}
	cached := NewCachedIndex(inner, 10, nil)

	cached.RoughnessAt(25, -80)
	cached.RoughnessAt(25, -81)

	assert.Equal(t, 2, inner.calls)
}

func TestCachedIndex_WrapsIndex(t *testing.T) {
	ix := NewIndex()
	ix.Add(square(-81, 24, -79, 26), 0.5)
	cached := NewCachedIndex(ix, 4, nil)

	assert.Equal(t, 0.5, cached.RoughnessAt(25, -80))
	assert.Equal(t, FallbackRoughness, cached.RoughnessAt(30, -80))
}

func TestLRUCache_Eviction(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", 1)
	c.put("b", 2)
	c.put("c", 3) // evicts "a"

	_, ok := c.get("a")
	assert.False(t, ok, "a should have been evicted")

	v, ok := c.get("b")
	assert.True(t, ok)
	assert.Equal(t, 2.0, v)
	assert.Equal(t, 2, c.len())
}

func TestLRUCache_AccessPromotesEntry(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", 1)
	c.put("b", 2)
	c.get("a")
	c.put("c", 3)

	_, ok := c.get("a")
	assert.True(t, ok, "a was accessed recently, should not be evicted")

	_, ok = c.get("b")
	assert.False(t, ok, "b should have been evicted")
}

func TestLRUCache_UpdateExisting(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", 1)
	c.put("a", 5)

	v, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, 5.0, v)
}
