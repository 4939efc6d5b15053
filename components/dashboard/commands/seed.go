package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-chartboard/components/dashboard"
)

// SeedDemoInput controls bootstrap behavior.
type SeedDemoInput struct{}

// SeedDemoCommand creates the sample dashboard on an empty store.
type SeedDemoCommand struct {
	service   *dashboard.Service
	telemetry Telemetry
}

// NewSeedDemoCommand wires dependencies.
func NewSeedDemoCommand(service *dashboard.Service, telemetry Telemetry) *SeedDemoCommand {
	return &SeedDemoCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[SeedDemoInput] = (*SeedDemoCommand)(nil)

// Execute runs the seed.
func (c *SeedDemoCommand) Execute(ctx context.Context, _ SeedDemoInput) error {
	if c.service == nil {
		return errors.New("seed command requires service")
	}
	seeded, err := dashboard.SeedDemo(ctx, c.service)
	if err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.seed", map[string]any{"seeded": seeded})
	return nil
}
