package nominatim

import (
	"context"
	"errors"
	"testing"

	"github.com/couchcryptid/monsoon-report-client/internal/domain"
	"github.com/couchcryptid/monsoon-report-client/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mock for cache tests ---

type countingGeocoder struct {
	reverseCalls int
	searchCalls  int
	result       domain.GeocodingResult
	err          error
}

func (m *countingGeocoder) ReverseGeocode(_ context.Context, _, _ float64) (domain.GeocodingResult, error) {
	m.reverseCalls++
	return m.result, m.err
}

func (m *countingGeocoder) Search(_ context.Context, _ string, _ int) ([]domain.GeocodingResult, error) {
	m.searchCalls++
	if m.err != nil {
		return nil, m.err
	}
	if m.result.DisplayName == "" {
		return nil, nil
	}
	return []domain.GeocodingResult{m.result}, nil
}

// --- CachedGeocoder tests ---

func TestCachedGeocoder_ReverseCacheHit(t *testing.T) {
	inner := &countingGeocoder{
		result: domain.GeocodingResult{DisplayName: "Connaught Place, New Delhi"},
	}
	cached := NewCachedGeocoder(inner, 10, observability.NewMetricsForTesting())

	r1, err := cached.ReverseGeocode(context.Background(), 28.6139, 77.2090)
	require.NoError(t, err)
	assert.Equal(t, "Connaught Place, New Delhi", r1.DisplayName)

	r2, err := cached.ReverseGeocode(context.Background(), 28.6139, 77.2090)
	require.NoError(t, err)
	assert.Equal(t, r1, r2)

	assert.Equal(t, 1, inner.reverseCalls, "should only call inner once")
}

func TestCachedGeocoder_EmptyResultNotCached(t *testing.T) {
	inner := &countingGeocoder{}
	cached := NewCachedGeocoder(inner, 10, observability.NewMetricsForTesting())

	_, _ = cached.ReverseGeocode(context.Background(), 1, 1)
	_, _ = cached.ReverseGeocode(context.Background(), 1, 1)

	assert.Equal(t, 2, inner.reverseCalls)
}

func TestCachedGeocoder_ErrorPassesThrough(t *testing.T) {
	inner := &countingGeocoder{err: errors.New("timeout")}
	cached := NewCachedGeocoder(inner, 10, observability.NewMetricsForTesting())

	_, err := cached.ReverseGeocode(context.Background(), 1, 1)
	require.Error(t, err)
	assert.Equal(t, 0, cached.cache.len())
}

func TestCachedGeocoder_SearchCacheHit(t *testing.T) {
	inner := &countingGeocoder{
		result: domain.GeocodingResult{Lat: 19.07, Lon: 72.87, DisplayName: "Mumbai"},
	}
	cached := NewCachedGeocoder(inner, 10, observability.NewMetricsForTesting())

	_, err := cached.Search(context.Background(), "Mumbai", 5)
	require.NoError(t, err)
	results, err := cached.Search(context.Background(), " mumbai ", 5)
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, "Mumbai", results[0].DisplayName)
	assert.Equal(t, 1, inner.searchCalls)
}

func TestCachedGeocoder_DifferentKeysMiss(t *testing.T) {
	inner := &countingGeocoder{
		result: domain.GeocodingResult{DisplayName: "Place"},
	}
	cached := NewCachedGeocoder(inner, 10, observability.NewMetricsForTesting())

	_, _ = cached.ReverseGeocode(context.Background(), 28.6139, 77.2090)
	_, _ = cached.ReverseGeocode(context.Background(), 19.0760, 72.8777)

	assert.Equal(t, 2, inner.reverseCalls)
}

// --- LRU cache unit tests ---

func TestLRUCache_BasicGetPut(t *testing.T) {
	c := newLRUCache(3)

	c.put("a", []domain.GeocodingResult{{DisplayName: "A"}})
	c.put("b", []domain.GeocodingResult{{DisplayName: "B"}})

	result, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, "A", result[0].DisplayName)

	_, ok = c.get("missing")
	assert.False(t, ok)
}

func TestLRUCache_Eviction(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", []domain.GeocodingResult{{DisplayName: "A"}})
	c.put("b", []domain.GeocodingResult{{DisplayName: "B"}})
	c.put("c", []domain.GeocodingResult{{DisplayName: "C"}}) // evicts "a"

	_, ok := c.get("a")
	assert.False(t, ok, "a should have been evicted")

	result, ok := c.get("b")
	assert.True(t, ok)
	assert.Equal(t, "B", result[0].DisplayName)

	result, ok = c.get("c")
	assert.True(t, ok)
	assert.Equal(t, "C", result[0].DisplayName)
}

func TestLRUCache_AccessPromotesEntry(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", []domain.GeocodingResult{{DisplayName: "A"}})
	c.put("b", []domain.GeocodingResult{{DisplayName: "B"}})

	c.get("a")

	// "b" is now least recently used.
	c.put("c", []domain.GeocodingResult{{DisplayName: "C"}})

	_, ok := c.get("a")
	assert.True(t, ok, "a was accessed recently, should not be evicted")

	_, ok = c.get("b")
	assert.False(t, ok, "b should have been evicted")
}

func TestLRUCache_UpdateExisting(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", []domain.GeocodingResult{{DisplayName: "A1"}})
	c.put("a", []domain.GeocodingResult{{DisplayName: "A2"}})

	result, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, "A2", result[0].DisplayName)
	assert.Equal(t, 1, c.len())
}
