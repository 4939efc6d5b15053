package store

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/goliatone/go-chartboard/components/dashboard"
)

const (
	cachePrefix       = "chartboard:"
	generationPrefix  = cachePrefix + "gen:"
	dashboardsListKey = cachePrefix + "dashboards"
	allChartsScope    = "*"
)

// Cache wraps a Store with Redis-backed caching for read operations. Writes go
// to the base store first and evict the affected keys afterwards.
//
// Every eviction bumps a per-key generation counter. A read-through fill only
// writes when the generation it saw before reading the base store is still
// current, so a fill that raced a write never re-caches the old value.
type Cache struct {
	base  dashboard.Store
	redis *redis.Client
	ttl   time.Duration
}

var _ dashboard.Store = (*Cache)(nil)

// NewCache creates a caching Store wrapper using the provided Redis client and TTL.
func NewCache(base dashboard.Store, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("store.NewCache: base store is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{base: base, redis: client, ttl: ttl}
}

func dashboardKey(id string) string { return cachePrefix + "dashboard:" + id }
func chartKey(id string) string     { return cachePrefix + "chart:" + id }

func generationKey(key string) string {
	return generationPrefix + strings.TrimPrefix(key, cachePrefix)
}

func chartsKey(dashboardID string) string {
	if dashboardID == "" {
		dashboardID = allChartsScope
	}
	return cachePrefix + "charts:" + dashboardID
}

func (c *Cache) ListDashboards(ctx context.Context) ([]dashboard.Dashboard, error) {
	if cached, ok := loadCached[[]dashboard.Dashboard](ctx, c.redis, dashboardsListKey); ok {
		return cached, nil
	}
	gen := c.generation(ctx, dashboardsListKey)
	out, err := c.base.ListDashboards(ctx)
	if err != nil {
		return nil, err
	}
	c.store(ctx, dashboardsListKey, gen, out)
	return out, nil
}

func (c *Cache) GetDashboard(ctx context.Context, id string) (dashboard.Dashboard, error) {
	key := dashboardKey(id)
	if cached, ok := loadCached[dashboard.Dashboard](ctx, c.redis, key); ok {
		return cached, nil
	}
	gen := c.generation(ctx, key)
	d, err := c.base.GetDashboard(ctx, id)
	if err != nil {
		return dashboard.Dashboard{}, err
	}
	c.store(ctx, key, gen, d)
	return d, nil
}

func (c *Cache) CreateDashboard(ctx context.Context, d dashboard.Dashboard) (dashboard.Dashboard, error) {
	created, err := c.base.CreateDashboard(ctx, d)
	if err != nil {
		return dashboard.Dashboard{}, err
	}
	c.evict(ctx, dashboardsListKey)
	return created, nil
}

func (c *Cache) UpdateDashboard(ctx context.Context, id string, patch dashboard.DashboardPatch) (dashboard.Dashboard, error) {
	updated, err := c.base.UpdateDashboard(ctx, id, patch)
	if err != nil {
		return dashboard.Dashboard{}, err
	}
	c.evict(ctx, dashboardsListKey, dashboardKey(id))
	return updated, nil
}

func (c *Cache) DeleteDashboard(ctx context.Context, id string) error {
	owned, err := c.base.ListCharts(ctx, id)
	if err != nil {
		return err
	}
	if err := c.base.DeleteDashboard(ctx, id); err != nil {
		return err
	}
	keys := []string{dashboardsListKey, dashboardKey(id), chartsKey(id), chartsKey("")}
	for _, chart := range owned {
		keys = append(keys, chartKey(chart.ID))
	}
	c.evict(ctx, keys...)
	return nil
}

func (c *Cache) ListCharts(ctx context.Context, dashboardID string) ([]dashboard.Chart, error) {
	key := chartsKey(dashboardID)
	if cached, ok := loadCached[[]dashboard.Chart](ctx, c.redis, key); ok {
		return cached, nil
	}
	gen := c.generation(ctx, key)
	out, err := c.base.ListCharts(ctx, dashboardID)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, gen, out)
	return out, nil
}

func (c *Cache) GetChart(ctx context.Context, id string) (dashboard.Chart, error) {
	key := chartKey(id)
	if cached, ok := loadCached[dashboard.Chart](ctx, c.redis, key); ok {
		return cached, nil
	}
	gen := c.generation(ctx, key)
	chart, err := c.base.GetChart(ctx, id)
	if err != nil {
		return dashboard.Chart{}, err
	}
	c.store(ctx, key, gen, chart)
	return chart, nil
}

func (c *Cache) CreateChart(ctx context.Context, chart dashboard.Chart) (dashboard.Chart, error) {
	created, err := c.base.CreateChart(ctx, chart)
	if err != nil {
		return dashboard.Chart{}, err
	}
	c.evict(ctx, chartsKey(created.DashboardID), chartsKey(""))
	return created, nil
}

func (c *Cache) UpdateChart(ctx context.Context, id string, patch dashboard.ChartPatch) (dashboard.Chart, error) {
	updated, err := c.base.UpdateChart(ctx, id, patch)
	if err != nil {
		return dashboard.Chart{}, err
	}
	c.evict(ctx, chartKey(id), chartsKey(updated.DashboardID), chartsKey(""))
	return updated, nil
}

func (c *Cache) DeleteChart(ctx context.Context, id string) error {
	current, err := c.base.GetChart(ctx, id)
	if err != nil {
		return err
	}
	if err := c.base.DeleteChart(ctx, id); err != nil {
		return err
	}
	c.evict(ctx, chartKey(id), chartsKey(current.DashboardID), chartsKey(""))
	return nil
}

func loadCached[T any](ctx context.Context, client *redis.Client, key string) (T, bool) {
	var zero T
	if client == nil {
		return zero, false
	}
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backing store without failing.
			_ = client.Del(ctx, key).Err()
		}
		return zero, false
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		_ = client.Del(ctx, key).Err()
		return zero, false
	}
	return out, true
}

var errStaleFill = errors.New("store: cache fill raced an eviction")

// generation returns the eviction count of key, or -1 when it cannot be read
// and the fill must be skipped.
func (c *Cache) generation(ctx context.Context, key string) int64 {
	if c.redis == nil {
		return -1
	}
	gen, err := c.redis.Get(ctx, generationKey(key)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return -1
	}
	return gen
}

func (c *Cache) store(ctx context.Context, key string, gen int64, value any) {
	if c.redis == nil || gen < 0 {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	genKey := generationKey(key)
	_ = c.redis.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != gen {
			return errStaleFill
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, c.ttl)
			return nil
		})
		return err
	}, genKey)
}

func (c *Cache) evict(ctx context.Context, keys ...string) {
	if c.redis == nil || len(keys) == 0 {
		return
	}
	_, _ = c.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, keys...)
		for _, key := range keys {
			pipe.Incr(ctx, generationKey(key))
		}
		return nil
	})
}
