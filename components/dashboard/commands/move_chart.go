package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-chartboard/components/dashboard"
)

// MoveChartInput describes the requested rectangle for a chart. The service
// clamps it into the grid.
type MoveChartInput struct {
	ChartID string
	Rect    dashboard.Rect
}

type moveChartService interface {
	MoveChart(ctx context.Context, id string, rect dashboard.Rect) (dashboard.Chart, error)
}

// MoveChartCommand moves or resizes a chart.
type MoveChartCommand struct {
	service   moveChartService
	telemetry Telemetry
}

// NewMoveChartCommand creates the command.
func NewMoveChartCommand(service moveChartService, telemetry Telemetry) *MoveChartCommand {
	return &MoveChartCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[MoveChartInput] = (*MoveChartCommand)(nil)

// Execute forwards the rectangle to the service.
func (c *MoveChartCommand) Execute(ctx context.Context, msg MoveChartInput) error {
	if c.service == nil {
		return errors.New("move chart command requires service")
	}
	if msg.ChartID == "" {
		return errMissing("chart id")
	}
	chart, err := c.service.MoveChart(ctx, msg.ChartID, msg.Rect)
	if err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.chart.move", map[string]any{
		"dashboard_id": chart.DashboardID,
		"chart_id":     chart.ID,
		"requested":    msg.Rect,
		"applied":      chart.Rect(),
	})
	return nil
}
