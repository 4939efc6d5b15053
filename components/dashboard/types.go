package dashboard

import (
	"context"
	"time"
)

// ChartType enumerates the visualizations a chart widget can render as.
type ChartType string

const (
	ChartNumber    ChartType = "number"
	ChartBar       ChartType = "bar"
	ChartLine      ChartType = "line"
	ChartPie       ChartType = "pie"
	ChartDoughnut  ChartType = "doughnut"
	ChartRadar     ChartType = "radar"
	ChartPolarArea ChartType = "polarArea"
	ChartArea      ChartType = "area"
)

var allChartTypes = []ChartType{
	ChartNumber,
	ChartBar,
	ChartLine,
	ChartPie,
	ChartDoughnut,
	ChartRadar,
	ChartPolarArea,
	ChartArea,
}

// AllChartTypes returns the full chart type enumeration in display order.
func AllChartTypes() []ChartType {
	return append([]ChartType(nil), allChartTypes...)
}

// Valid reports whether t is part of the enumeration.
func (t ChartType) Valid() bool {
	for _, candidate := range allChartTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// DefaultChartColor is applied to charts created without a color.
const DefaultChartColor = "#60a5fa"

// DefaultColumns is the grid width used when a dashboard does not declare one.
const DefaultColumns = 12

// Store persists dashboards and their charts. Implementations must be safe for
// concurrent use; DeleteDashboard removes every chart owned by the dashboard.
type Store interface {
	ListDashboards(ctx context.Context) ([]Dashboard, error)
	GetDashboard(ctx context.Context, id string) (Dashboard, error)
	CreateDashboard(ctx context.Context, dashboard Dashboard) (Dashboard, error)
	UpdateDashboard(ctx context.Context, id string, patch DashboardPatch) (Dashboard, error)
	DeleteDashboard(ctx context.Context, id string) error

	ListCharts(ctx context.Context, dashboardID string) ([]Chart, error)
	GetChart(ctx context.Context, id string) (Chart, error)
	CreateChart(ctx context.Context, chart Chart) (Chart, error)
	UpdateChart(ctx context.Context, id string, patch ChartPatch) (Chart, error)
	DeleteChart(ctx context.Context, id string) error
}

// DataFetcher retrieves the JSON payload exposed by a data endpoint.
type DataFetcher interface {
	Fetch(ctx context.Context, endpoint string) ([]byte, error)
}

// DataFetcherFunc adapts a function into a DataFetcher.
type DataFetcherFunc func(ctx context.Context, endpoint string) ([]byte, error)

// Fetch calls f.
func (f DataFetcherFunc) Fetch(ctx context.Context, endpoint string) ([]byte, error) {
	return f(ctx, endpoint)
}

// RefreshHook notifies transports (REST/WebSocket) about dashboard changes.
type RefreshHook interface {
	ChartUpdated(ctx context.Context, event ChartEvent) error
}

// Dashboard is a named collection of charts laid out on a grid.
type Dashboard struct {
	ID          string    `json:"id" yaml:"id"`
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Columns     int       `json:"columns" yaml:"columns"`
	TemplateID  string    `json:"templateId,omitempty" yaml:"template_id,omitempty"`
	CreatedAt   time.Time `json:"createdAt" yaml:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" yaml:"updated_at"`
}

// GridColumns returns the dashboard column count, defaulting older records.
func (d Dashboard) GridColumns() int {
	if d.Columns < 1 {
		return DefaultColumns
	}
	return d.Columns
}

// Chart is a widget bound to a data endpoint and placed on a dashboard grid.
type Chart struct {
	ID           string    `json:"id" yaml:"id"`
	DashboardID  string    `json:"dashboardId" yaml:"dashboard_id"`
	Type         ChartType `json:"type" yaml:"type"`
	Title        string    `json:"title" yaml:"title"`
	DataEndpoint string    `json:"dataEndpoint" yaml:"data_endpoint"`
	Color        string    `json:"color,omitempty" yaml:"color,omitempty"`
	X            int       `json:"x" yaml:"x"`
	Y            int       `json:"y" yaml:"y"`
	W            int       `json:"w" yaml:"w"`
	H            int       `json:"h" yaml:"h"`
	CreatedAt    time.Time `json:"createdAt" yaml:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" yaml:"updated_at"`
}

// Rect returns the grid rectangle covered by the chart.
func (c Chart) Rect() Rect {
	return Rect{X: c.X, Y: c.Y, W: c.W, H: c.H}
}

// WithRect copies the rectangle coordinates onto the chart.
func (c Chart) WithRect(r Rect) Chart {
	c.X, c.Y, c.W, c.H = r.X, r.Y, r.W, r.H
	return c
}

// DashboardPatch carries partial dashboard updates; nil fields are left untouched.
type DashboardPatch struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Columns     *int    `json:"columns,omitempty"`
	TemplateID  *string `json:"templateId,omitempty"`
}

// Apply merges the patch onto d.
func (p DashboardPatch) Apply(d Dashboard) Dashboard {
	if p.Name != nil {
		d.Name = *p.Name
	}
	if p.Description != nil {
		d.Description = *p.Description
	}
	if p.Columns != nil {
		d.Columns = *p.Columns
	}
	if p.TemplateID != nil {
		d.TemplateID = *p.TemplateID
	}
	return d
}

// ChartPatch carries partial chart updates; nil fields are left untouched.
type ChartPatch struct {
	Type         *ChartType `json:"type,omitempty"`
	Title        *string    `json:"title,omitempty"`
	DataEndpoint *string    `json:"dataEndpoint,omitempty"`
	Color        *string    `json:"color,omitempty"`
	X            *int       `json:"x,omitempty"`
	Y            *int       `json:"y,omitempty"`
	W            *int       `json:"w,omitempty"`
	H            *int       `json:"h,omitempty"`
}

// Apply merges the patch onto c.
func (p ChartPatch) Apply(c Chart) Chart {
	if p.Type != nil {
		c.Type = *p.Type
	}
	if p.Title != nil {
		c.Title = *p.Title
	}
	if p.DataEndpoint != nil {
		c.DataEndpoint = *p.DataEndpoint
	}
	if p.Color != nil {
		c.Color = *p.Color
	}
	if p.X != nil {
		c.X = *p.X
	}
	if p.Y != nil {
		c.Y = *p.Y
	}
	if p.W != nil {
		c.W = *p.W
	}
	if p.H != nil {
		c.H = *p.H
	}
	return c
}

// RectPatch builds a patch that only moves/resizes a chart.
func RectPatch(r Rect) ChartPatch {
	return ChartPatch{X: &r.X, Y: &r.Y, W: &r.W, H: &r.H}
}

// Layout is a dashboard together with its charts in row-major order.
type Layout struct {
	Dashboard Dashboard `json:"dashboard"`
	Charts    []Chart   `json:"charts"`
}

// ChartEvent describes changes that transports might care about.
type ChartEvent struct {
	DashboardID string `json:"dashboardId"`
	Chart       *Chart `json:"chart,omitempty"`
	Reason      string `json:"reason"`
}
