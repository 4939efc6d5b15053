package queries

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-chartboard/components/dashboard"
)

// DashboardListInput requests every dashboard.
type DashboardListInput struct{}

// DashboardInput identifies a single dashboard.
type DashboardInput struct {
	DashboardID string
}

type dashboardService interface {
	ListDashboards(ctx context.Context) ([]dashboard.Dashboard, error)
	GetDashboard(ctx context.Context, id string) (dashboard.Dashboard, error)
}

// DashboardListQuery lists dashboards.
type DashboardListQuery struct {
	service dashboardService
}

// NewDashboardListQuery builds the query.
func NewDashboardListQuery(service dashboardService) *DashboardListQuery {
	return &DashboardListQuery{service: service}
}

var _ gocommand.Querier[DashboardListInput, []dashboard.Dashboard] = (*DashboardListQuery)(nil)

// Query returns every dashboard.
func (q *DashboardListQuery) Query(ctx context.Context, _ DashboardListInput) ([]dashboard.Dashboard, error) {
	return q.service.ListDashboards(ctx)
}

// DashboardQuery fetches one dashboard.
type DashboardQuery struct {
	service dashboardService
}

// NewDashboardQuery builds the query.
func NewDashboardQuery(service dashboardService) *DashboardQuery {
	return &DashboardQuery{service: service}
}

var _ gocommand.Querier[DashboardInput, dashboard.Dashboard] = (*DashboardQuery)(nil)

// Query returns the dashboard.
func (q *DashboardQuery) Query(ctx context.Context, input DashboardInput) (dashboard.Dashboard, error) {
	return q.service.GetDashboard(ctx, input.DashboardID)
}
