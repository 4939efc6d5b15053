package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/goliatone/go-chartboard/components/dashboard"
	"github.com/goliatone/go-chartboard/components/dashboard/commands"
	"github.com/goliatone/go-chartboard/components/dashboard/store"
)

// Actions runs a mutation through the Executor and reads the stored record
// back through the Reader. Transports share it so every surface returns the
// same representation.
type Actions struct {
	Exec  Executor
	Read  Reader
	NewID func() string
}

var errNotConfigured = errors.New("httpapi: executor and reader are required")

func (a Actions) ready() error {
	if a.Exec == nil || a.Read == nil {
		return errNotConfigured
	}
	return nil
}

func (a Actions) id() string {
	if a.NewID != nil {
		return a.NewID()
	}
	return uuid.NewString()
}

// CreateDashboard persists req under a pre-assigned id and returns the record.
func (a Actions) CreateDashboard(ctx context.Context, req dashboard.CreateDashboardRequest) (dashboard.Dashboard, error) {
	if err := a.ready(); err != nil {
		return dashboard.Dashboard{}, err
	}
	if req.ID == "" {
		req.ID = a.id()
	}
	if err := a.Exec.CreateDashboard(ctx, req); err != nil {
		return dashboard.Dashboard{}, err
	}
	return a.Read.Dashboard(ctx, req.ID)
}

// UpdateDashboard applies patch and returns the updated record.
func (a Actions) UpdateDashboard(ctx context.Context, id string, patch dashboard.DashboardPatch) (dashboard.Dashboard, error) {
	if err := a.ready(); err != nil {
		return dashboard.Dashboard{}, err
	}
	if err := a.Exec.UpdateDashboard(ctx, commands.UpdateDashboardInput{DashboardID: id, Patch: patch}); err != nil {
		return dashboard.Dashboard{}, err
	}
	return a.Read.Dashboard(ctx, id)
}

// ApplyTemplate rearranges the dashboard and returns its new layout.
func (a Actions) ApplyTemplate(ctx context.Context, dashboardID, templateID string) (dashboard.Layout, error) {
	if err := a.ready(); err != nil {
		return dashboard.Layout{}, err
	}
	if err := a.Exec.ApplyTemplate(ctx, commands.ApplyTemplateInput{DashboardID: dashboardID, TemplateID: templateID}); err != nil {
		return dashboard.Layout{}, err
	}
	return a.Read.Layout(ctx, dashboardID)
}

// AddChart places a chart under a pre-assigned id and returns the record.
func (a Actions) AddChart(ctx context.Context, req dashboard.AddChartRequest) (dashboard.Chart, error) {
	if err := a.ready(); err != nil {
		return dashboard.Chart{}, err
	}
	if req.ID == "" {
		req.ID = a.id()
	}
	if err := a.Exec.AddChart(ctx, req); err != nil {
		return dashboard.Chart{}, err
	}
	return a.Read.Chart(ctx, req.ID)
}

// UpdateChart applies patch and returns the updated record.
func (a Actions) UpdateChart(ctx context.Context, id string, patch dashboard.ChartPatch) (dashboard.Chart, error) {
	if err := a.ready(); err != nil {
		return dashboard.Chart{}, err
	}
	if err := a.Exec.UpdateChart(ctx, commands.UpdateChartInput{ChartID: id, Patch: patch}); err != nil {
		return dashboard.Chart{}, err
	}
	return a.Read.Chart(ctx, id)
}

// MoveChart moves the chart and returns it with the clamped rectangle.
func (a Actions) MoveChart(ctx context.Context, id string, rect dashboard.Rect) (dashboard.Chart, error) {
	if err := a.ready(); err != nil {
		return dashboard.Chart{}, err
	}
	if err := a.Exec.MoveChart(ctx, commands.MoveChartInput{ChartID: id, Rect: rect}); err != nil {
		return dashboard.Chart{}, err
	}
	return a.Read.Chart(ctx, id)
}

// TemplateRequest selects a layout template.
type TemplateRequest struct {
	TemplateID string `json:"templateId"`
}

// DecodeBody decodes a JSON request body. Malformed bodies are validation errors.
func DecodeBody(data []byte, v any) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: request body is required", dashboard.ErrValidation)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", dashboard.ErrValidation, err)
	}
	return nil
}

// StatusFor maps service errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, dashboard.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, dashboard.ErrNotFound), errors.Is(err, dashboard.ErrUnknownSource):
		return http.StatusNotFound
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// ErrorBody is the JSON shape of every error response.
func ErrorBody(err error) map[string]string {
	return map[string]string{"error": err.Error()}
}
