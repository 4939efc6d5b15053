package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-chartboard/components/dashboard"
)

// UpdateChartInput carries a partial chart update.
type UpdateChartInput struct {
	ChartID string
	Patch   dashboard.ChartPatch
}

type updateChartService interface {
	UpdateChart(ctx context.Context, id string, patch dashboard.ChartPatch) (dashboard.Chart, error)
}

// UpdateChartCommand applies chart patches.
type UpdateChartCommand struct {
	service   updateChartService
	telemetry Telemetry
}

// NewUpdateChartCommand creates the command.
func NewUpdateChartCommand(service updateChartService, telemetry Telemetry) *UpdateChartCommand {
	return &UpdateChartCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[UpdateChartInput] = (*UpdateChartCommand)(nil)

// Execute validates the input and forwards the patch.
func (c *UpdateChartCommand) Execute(ctx context.Context, msg UpdateChartInput) error {
	if c.service == nil {
		return errors.New("update chart command requires service")
	}
	if msg.ChartID == "" {
		return errMissing("chart id")
	}
	chart, err := c.service.UpdateChart(ctx, msg.ChartID, msg.Patch)
	if err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.chart.update", map[string]any{
		"dashboard_id": chart.DashboardID,
		"chart_id":     chart.ID,
		"type":         string(chart.Type),
	})
	return nil
}
