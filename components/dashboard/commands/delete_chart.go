package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
)

// DeleteChartInput identifies the chart to delete.
type DeleteChartInput struct {
	ChartID string
}

type deleteChartService interface {
	DeleteChart(ctx context.Context, id string) error
}

// DeleteChartCommand removes a chart from its dashboard.
type DeleteChartCommand struct {
	service   deleteChartService
	telemetry Telemetry
}

// NewDeleteChartCommand creates the command.
func NewDeleteChartCommand(service deleteChartService, telemetry Telemetry) *DeleteChartCommand {
	return &DeleteChartCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[DeleteChartInput] = (*DeleteChartCommand)(nil)

// Execute deletes the chart.
func (c *DeleteChartCommand) Execute(ctx context.Context, msg DeleteChartInput) error {
	if c.service == nil {
		return errors.New("delete chart command requires service")
	}
	if msg.ChartID == "" {
		return errMissing("chart id")
	}
	if err := c.service.DeleteChart(ctx, msg.ChartID); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.chart.delete", map[string]any{"chart_id": msg.ChartID})
	return nil
}
