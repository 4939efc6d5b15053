package queries

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-chartboard/components/dashboard"
)

// ChartInput identifies a single chart.
type ChartInput struct {
	ChartID string
}

type chartService interface {
	GetChart(ctx context.Context, id string) (dashboard.Chart, error)
}

// ChartQuery fetches one chart.
type ChartQuery struct {
	service chartService
}

// NewChartQuery builds the query.
func NewChartQuery(service chartService) *ChartQuery {
	return &ChartQuery{service: service}
}

var _ gocommand.Querier[ChartInput, dashboard.Chart] = (*ChartQuery)(nil)

// Query returns the chart.
func (q *ChartQuery) Query(ctx context.Context, input ChartInput) (dashboard.Chart, error) {
	return q.service.GetChart(ctx, input.ChartID)
}

// ChartListInput filters charts by dashboard. An empty id lists every chart.
type ChartListInput struct {
	DashboardID string
}

type chartListService interface {
	ListCharts(ctx context.Context, dashboardID string) ([]dashboard.Chart, error)
}

// ChartListQuery lists charts.
type ChartListQuery struct {
	service chartListService
}

// NewChartListQuery builds the query.
func NewChartListQuery(service chartListService) *ChartListQuery {
	return &ChartListQuery{service: service}
}

var _ gocommand.Querier[ChartListInput, []dashboard.Chart] = (*ChartListQuery)(nil)

// Query returns the matching charts.
func (q *ChartListQuery) Query(ctx context.Context, input ChartListInput) ([]dashboard.Chart, error) {
	return q.service.ListCharts(ctx, input.DashboardID)
}
