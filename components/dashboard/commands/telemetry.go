package commands

import (
	"context"
	"fmt"

	dashboard "github.com/goliatone/go-chartboard/components/dashboard"
)

// Telemetry allows commands to emit structured events.
type Telemetry interface {
	Record(ctx context.Context, event string, payload map[string]any)
}

type noopTelemetry struct{}

func (noopTelemetry) Record(context.Context, string, map[string]any) {}

func normalizeTelemetry(t Telemetry) Telemetry {
	if t == nil {
		return noopTelemetry{}
	}
	return t
}

func errMissing(field string) error {
	return fmt.Errorf("%w: %s is required", dashboard.ErrValidation, field)
}
