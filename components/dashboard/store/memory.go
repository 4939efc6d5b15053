package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/goliatone/go-chartboard/components/dashboard"
)

// Memory is a mutex-guarded in-process store.
type Memory struct {
	mu         sync.RWMutex
	dashboards map[string]dashboard.Dashboard
	charts     map[string]dashboard.Chart
	now        func() time.Time
}

var _ dashboard.Store = (*Memory)(nil)

// NewMemory builds an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		dashboards: map[string]dashboard.Dashboard{},
		charts:     map[string]dashboard.Chart{},
		now:        time.Now,
	}
}

// Snapshot is the serializable content of a store.
type Snapshot struct {
	Dashboards []dashboard.Dashboard `json:"dashboards"`
	Charts     []dashboard.Chart     `json:"charts"`
}

// Snapshot copies every record in a stable order.
func (m *Memory) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{
		Dashboards: m.sortedDashboards(),
		Charts:     m.sortedCharts(""),
	}
}

// Restore replaces the store content with snap.
func (m *Memory) Restore(snap Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dashboards = make(map[string]dashboard.Dashboard, len(snap.Dashboards))
	m.charts = make(map[string]dashboard.Chart, len(snap.Charts))
	for _, d := range snap.Dashboards {
		m.dashboards[d.ID] = d
	}
	for _, c := range snap.Charts {
		m.charts[c.ID] = c
	}
}

func (m *Memory) ListDashboards(context.Context) ([]dashboard.Dashboard, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sortedDashboards(), nil
}

func (m *Memory) GetDashboard(_ context.Context, id string) (dashboard.Dashboard, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.dashboards[id]
	if !ok {
		return dashboard.Dashboard{}, notFound("dashboard", id)
	}
	return d, nil
}

func (m *Memory) CreateDashboard(_ context.Context, d dashboard.Dashboard) (dashboard.Dashboard, error) {
	m.mu.Lock()
	d = stampDashboard(d, m.now())
	if _, exists := m.dashboards[d.ID]; exists {
		m.mu.Unlock()
		return dashboard.Dashboard{}, conflict("dashboard", d.ID)
	}
	m.dashboards[d.ID] = d
	m.mu.Unlock()
	return d, nil
}

func (m *Memory) UpdateDashboard(_ context.Context, id string, patch dashboard.DashboardPatch) (dashboard.Dashboard, error) {
	m.mu.Lock()
	d, ok := m.dashboards[id]
	if !ok {
		m.mu.Unlock()
		return dashboard.Dashboard{}, notFound("dashboard", id)
	}
	d = patch.Apply(d)
	d.UpdatedAt = m.now()
	m.dashboards[id] = d
	m.mu.Unlock()
	return d, nil
}

func (m *Memory) DeleteDashboard(_ context.Context, id string) error {
	m.mu.Lock()
	if _, ok := m.dashboards[id]; !ok {
		m.mu.Unlock()
		return notFound("dashboard", id)
	}
	delete(m.dashboards, id)
	for chartID, c := range m.charts {
		if c.DashboardID == id {
			delete(m.charts, chartID)
		}
	}
	m.mu.Unlock()
	return nil
}

func (m *Memory) ListCharts(_ context.Context, dashboardID string) ([]dashboard.Chart, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sortedCharts(dashboardID), nil
}

func (m *Memory) GetChart(_ context.Context, id string) (dashboard.Chart, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.charts[id]
	if !ok {
		return dashboard.Chart{}, notFound("chart", id)
	}
	return c, nil
}

func (m *Memory) CreateChart(_ context.Context, c dashboard.Chart) (dashboard.Chart, error) {
	m.mu.Lock()
	if _, ok := m.dashboards[c.DashboardID]; !ok {
		m.mu.Unlock()
		return dashboard.Chart{}, notFound("dashboard", c.DashboardID)
	}
	c = stampChart(c, m.now())
	if _, exists := m.charts[c.ID]; exists {
		m.mu.Unlock()
		return dashboard.Chart{}, conflict("chart", c.ID)
	}
	m.charts[c.ID] = c
	m.mu.Unlock()
	return c, nil
}

func (m *Memory) UpdateChart(_ context.Context, id string, patch dashboard.ChartPatch) (dashboard.Chart, error) {
	m.mu.Lock()
	c, ok := m.charts[id]
	if !ok {
		m.mu.Unlock()
		return dashboard.Chart{}, notFound("chart", id)
	}
	c = patch.Apply(c)
	c.UpdatedAt = m.now()
	m.charts[id] = c
	m.mu.Unlock()
	return c, nil
}

func (m *Memory) DeleteChart(_ context.Context, id string) error {
	m.mu.Lock()
	if _, ok := m.charts[id]; !ok {
		m.mu.Unlock()
		return notFound("chart", id)
	}
	delete(m.charts, id)
	m.mu.Unlock()
	return nil
}

func (m *Memory) sortedDashboards() []dashboard.Dashboard {
	out := make([]dashboard.Dashboard, 0, len(m.dashboards))
	for _, d := range m.dashboards {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (m *Memory) sortedCharts(dashboardID string) []dashboard.Chart {
	out := make([]dashboard.Chart, 0, len(m.charts))
	for _, c := range m.charts {
		if dashboardID != "" && c.DashboardID != dashboardID {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
