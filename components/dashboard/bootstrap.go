package dashboard

import (
	"context"
	"errors"
	"fmt"
)

// SeedDemo creates the sample dashboard when the store holds no dashboards.
// It reports whether anything was written.
func SeedDemo(ctx context.Context, service *Service) (bool, error) {
	if service == nil {
		return false, errors.New("dashboard: service is required to seed")
	}
	existing, err := service.ListDashboards(ctx)
	if err != nil {
		return false, err
	}
	if len(existing) > 0 {
		return false, nil
	}
	req := DefaultSeedDashboard()
	dash, err := service.CreateDashboard(ctx, req)
	if err != nil {
		return false, fmt.Errorf("seed dashboard: %w", err)
	}
	var seedErr error
	for _, chart := range DefaultSeedCharts() {
		chart.DashboardID = dash.ID
		if _, err := service.AddChart(ctx, chart); err != nil {
			seedErr = errors.Join(seedErr, fmt.Errorf("seed chart %s: %w", chart.ID, err))
		}
	}
	if seedErr != nil {
		return true, seedErr
	}
	if req.TemplateID != "" {
		if _, err := service.ApplyTemplate(ctx, dash.ID, req.TemplateID); err != nil {
			return true, fmt.Errorf("seed template: %w", err)
		}
	}
	return true, nil
}
