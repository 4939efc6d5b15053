package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChartCacheStoresEntry(t *testing.T) {
	cache := NewChartCache(10 * time.Millisecond)
	calls := 0
	render := func() (string, error) {
		calls++
		return "html", nil
	}

	val1, err := cache.GetOrRender("key", render)
	require.NoError(t, err)
	val2, err := cache.GetOrRender("key", render)
	require.NoError(t, err)

	assert.Equal(t, "html", val1)
	assert.Equal(t, val1, val2)
	assert.Equal(t, 1, calls)
}

func TestChartCacheExpires(t *testing.T) {
	cache := NewChartCache(2 * time.Millisecond)
	calls := 0
	render := func() (string, error) {
		calls++
		return "fresh", nil
	}

	_, err := cache.GetOrRender("key", render)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	_, err = cache.GetOrRender("key", render)
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
}

func TestChartCacheInvalidatesOnChartEvent(t *testing.T) {
	cache := NewChartCache(time.Minute)
	render := func() (string, error) { return "html", nil }
	_, _ = cache.GetOrRender("c1:bar:#60a5fa:t:hash", render)
	_, _ = cache.GetOrRender("c10:bar:#60a5fa:t:hash", render)
	_, _ = cache.GetOrRender("c2:line:#60a5fa:t:hash", render)
	require.Equal(t, 3, cache.Len())

	require.NoError(t, cache.ChartUpdated(context.Background(), ChartEvent{DashboardID: "d1", Chart: &Chart{ID: "c1"}}))
	assert.Equal(t, 2, cache.Len(), "only c1 entries are evicted")

	require.NoError(t, cache.ChartUpdated(context.Background(), ChartEvent{DashboardID: "d1", Reason: "dashboard.update"}))
	assert.Equal(t, 2, cache.Len())
}

func TestChartCacheDisabled(t *testing.T) {
	cache := NewChartCache(0)
	calls := 0
	render := func() (string, error) {
		calls++
		return "html", nil
	}
	_, _ = cache.GetOrRender("key", render)
	_, _ = cache.GetOrRender("key", render)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 0, cache.Len())
}

func TestPayloadHashIsStable(t *testing.T) {
	a := payloadHash(map[string]any{"labels": []string{"a"}, "values": []int{1}})
	b := payloadHash(map[string]any{"values": []int{1}, "labels": []string{"a"}})
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, payloadHash(map[string]any{"values": []int{2}}))
	assert.Equal(t, "empty", payloadHash(nil))
}
