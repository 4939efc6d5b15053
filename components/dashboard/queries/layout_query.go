package queries

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-chartboard/components/dashboard"
)

// LayoutInput identifies the dashboard whose layout is requested.
type LayoutInput struct {
	DashboardID string
}

type layoutService interface {
	DashboardLayout(ctx context.Context, dashboardID string) (dashboard.Layout, error)
}

// LayoutQuery executes read-only layout resolution.
type LayoutQuery struct {
	service layoutService
}

// NewLayoutQuery builds the query.
func NewLayoutQuery(service layoutService) *LayoutQuery {
	return &LayoutQuery{service: service}
}

var _ gocommand.Querier[LayoutInput, dashboard.Layout] = (*LayoutQuery)(nil)

// Query resolves the normalized, row-major layout of a dashboard.
func (q *LayoutQuery) Query(ctx context.Context, input LayoutInput) (dashboard.Layout, error) {
	return q.service.DashboardLayout(ctx, input.DashboardID)
}
