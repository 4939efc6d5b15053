package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-chartboard/components/dashboard"
)

type dashboardService interface {
	CreateDashboard(ctx context.Context, req dashboard.CreateDashboardRequest) (dashboard.Dashboard, error)
	UpdateDashboard(ctx context.Context, id string, patch dashboard.DashboardPatch) (dashboard.Dashboard, error)
	DeleteDashboard(ctx context.Context, id string) error
}

// CreateDashboardCommand persists a new dashboard.
type CreateDashboardCommand struct {
	service   dashboardService
	telemetry Telemetry
}

// NewCreateDashboardCommand creates the command.
func NewCreateDashboardCommand(service dashboardService, telemetry Telemetry) *CreateDashboardCommand {
	return &CreateDashboardCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[dashboard.CreateDashboardRequest] = (*CreateDashboardCommand)(nil)

// Execute delegates to the dashboard service.
func (c *CreateDashboardCommand) Execute(ctx context.Context, msg dashboard.CreateDashboardRequest) error {
	if c.service == nil {
		return errors.New("create dashboard command requires service")
	}
	dash, err := c.service.CreateDashboard(ctx, msg)
	if err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.create", map[string]any{
		"dashboard_id": dash.ID,
		"columns":      dash.Columns,
	})
	return nil
}

// UpdateDashboardInput carries a partial dashboard update.
type UpdateDashboardInput struct {
	DashboardID string
	Patch       dashboard.DashboardPatch
}

// UpdateDashboardCommand applies dashboard patches.
type UpdateDashboardCommand struct {
	service   dashboardService
	telemetry Telemetry
}

// NewUpdateDashboardCommand creates the command.
func NewUpdateDashboardCommand(service dashboardService, telemetry Telemetry) *UpdateDashboardCommand {
	return &UpdateDashboardCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[UpdateDashboardInput] = (*UpdateDashboardCommand)(nil)

// Execute forwards the patch.
func (c *UpdateDashboardCommand) Execute(ctx context.Context, msg UpdateDashboardInput) error {
	if c.service == nil {
		return errors.New("update dashboard command requires service")
	}
	if msg.DashboardID == "" {
		return errMissing("dashboard id")
	}
	if _, err := c.service.UpdateDashboard(ctx, msg.DashboardID, msg.Patch); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.update", map[string]any{"dashboard_id": msg.DashboardID})
	return nil
}

// DeleteDashboardInput identifies the dashboard to delete.
type DeleteDashboardInput struct {
	DashboardID string
}

// DeleteDashboardCommand removes a dashboard and its charts.
type DeleteDashboardCommand struct {
	service   dashboardService
	telemetry Telemetry
}

// NewDeleteDashboardCommand creates the command.
func NewDeleteDashboardCommand(service dashboardService, telemetry Telemetry) *DeleteDashboardCommand {
	return &DeleteDashboardCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[DeleteDashboardInput] = (*DeleteDashboardCommand)(nil)

// Execute deletes the dashboard.
func (c *DeleteDashboardCommand) Execute(ctx context.Context, msg DeleteDashboardInput) error {
	if c.service == nil {
		return errors.New("delete dashboard command requires service")
	}
	if msg.DashboardID == "" {
		return errMissing("dashboard id")
	}
	if err := c.service.DeleteDashboard(ctx, msg.DashboardID); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.delete", map[string]any{"dashboard_id": msg.DashboardID})
	return nil
}
