package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-chartboard/components/dashboard"
)

type addChartService interface {
	AddChart(ctx context.Context, req dashboard.AddChartRequest) (dashboard.Chart, error)
}

// AddChartCommand places a new chart on a dashboard. Transports that need the
// stored record back assign req.ID before executing.
type AddChartCommand struct {
	service   addChartService
	telemetry Telemetry
}

// NewAddChartCommand creates a command instance.
func NewAddChartCommand(service addChartService, telemetry Telemetry) *AddChartCommand {
	return &AddChartCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[dashboard.AddChartRequest] = (*AddChartCommand)(nil)

// Execute delegates to the dashboard service.
func (c *AddChartCommand) Execute(ctx context.Context, msg dashboard.AddChartRequest) error {
	if c.service == nil {
		return errors.New("add chart command requires service")
	}
	chart, err := c.service.AddChart(ctx, msg)
	if err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.chart.add", map[string]any{
		"dashboard_id": chart.DashboardID,
		"chart_id":     chart.ID,
		"type":         string(chart.Type),
		"x":            chart.X,
		"y":            chart.Y,
	})
	return nil
}
