package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-chartboard/components/dashboard"
)

// ApplyTemplateInput selects a layout template for a dashboard.
type ApplyTemplateInput struct {
	DashboardID string
	TemplateID  string
}

type templateService interface {
	ApplyTemplate(ctx context.Context, dashboardID, templateID string) (dashboard.Layout, error)
}

// ApplyTemplateCommand rearranges a dashboard's charts into template slots.
type ApplyTemplateCommand struct {
	service   templateService
	telemetry Telemetry
}

// NewApplyTemplateCommand creates the command.
func NewApplyTemplateCommand(service templateService, telemetry Telemetry) *ApplyTemplateCommand {
	return &ApplyTemplateCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[ApplyTemplateInput] = (*ApplyTemplateCommand)(nil)

// Execute applies the template.
func (c *ApplyTemplateCommand) Execute(ctx context.Context, msg ApplyTemplateInput) error {
	if c.service == nil {
		return errors.New("apply template command requires service")
	}
	if msg.DashboardID == "" {
		return errMissing("dashboard id")
	}
	if msg.TemplateID == "" {
		return errMissing("template id")
	}
	layout, err := c.service.ApplyTemplate(ctx, msg.DashboardID, msg.TemplateID)
	if err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.template.apply", map[string]any{
		"dashboard_id": msg.DashboardID,
		"template_id":  msg.TemplateID,
		"charts":       len(layout.Charts),
	})
	return nil
}
