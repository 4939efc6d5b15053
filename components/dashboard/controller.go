package dashboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// LayoutResolver is the slice of Service the controller depends on.
type LayoutResolver interface {
	ListDashboards(ctx context.Context) ([]Dashboard, error)
	DashboardLayout(ctx context.Context, dashboardID string) (Layout, error)
}

// ControllerOptions configures the HTML controller.
type ControllerOptions struct {
	Service        LayoutResolver
	Renderer       Renderer
	Charts         ChartRenderer
	Fetcher        DataFetcher
	Template       string
	IndexTemplate  string
	PreviewTimeout time.Duration
}

// Controller renders dashboard pages through a template renderer.
type Controller struct {
	opts ControllerOptions
}

// NewController wires the service into a controller.
func NewController(opts ControllerOptions) *Controller {
	if opts.Template == "" {
		opts.Template = "dashboard.html"
	}
	if opts.IndexTemplate == "" {
		opts.IndexTemplate = "index.html"
	}
	if opts.Charts == nil {
		opts.Charts = NewEChartsRenderer()
	}
	if opts.PreviewTimeout <= 0 {
		opts.PreviewTimeout = DefaultPreviewTimeout
	}
	return &Controller{opts: opts}
}

// ChartView is the template model of a single chart.
type ChartView struct {
	Chart     Chart  `json:"chart"`
	HTML      string `json:"html,omitempty"`
	Available bool   `json:"available"`
	Error     string `json:"error,omitempty"`
}

// PagePayload is handed to the dashboard template.
type PagePayload struct {
	Dashboard Dashboard        `json:"dashboard"`
	Columns   int              `json:"columns"`
	Charts    []ChartView      `json:"charts"`
	Templates []LayoutTemplate `json:"templates"`
	Types     []ChartType      `json:"types"`
}

// LayoutPayload resolves the layout and renders every chart against its endpoint.
func (c *Controller) LayoutPayload(ctx context.Context, dashboardID string) (PagePayload, error) {
	if c.opts.Service == nil {
		return PagePayload{}, errors.New("dashboard: controller service not configured")
	}
	layout, err := c.opts.Service.DashboardLayout(ctx, dashboardID)
	if err != nil {
		return PagePayload{}, err
	}
	payload := PagePayload{
		Dashboard: layout.Dashboard,
		Columns:   layout.Dashboard.GridColumns(),
		Charts:    make([]ChartView, 0, len(layout.Charts)),
		Templates: Templates(),
		Types:     AllChartTypes(),
	}
	for _, chart := range layout.Charts {
		payload.Charts = append(payload.Charts, c.renderChart(ctx, chart))
	}
	return payload, nil
}

func (c *Controller) renderChart(ctx context.Context, chart Chart) ChartView {
	view := ChartView{Chart: chart}
	preview := FetchPreview(ctx, c.opts.Fetcher, chart.DataEndpoint, c.opts.PreviewTimeout)
	if !preview.Available {
		view.Error = preview.Error
		return view
	}
	html, err := c.opts.Charts.RenderChart(chart, preview.Payload)
	if err != nil {
		view.Error = err.Error()
		return view
	}
	view.HTML = html
	view.Available = true
	return view
}

// RenderTemplate renders the dashboard page into out.
func (c *Controller) RenderTemplate(ctx context.Context, dashboardID string, out io.Writer) error {
	if c.opts.Renderer == nil {
		return errors.New("dashboard: template renderer not configured")
	}
	payload, err := c.LayoutPayload(ctx, dashboardID)
	if err != nil {
		return err
	}
	if _, err := c.opts.Renderer.Render(c.opts.Template, map[string]any{"page": payload}, out); err != nil {
		return fmt.Errorf("dashboard: render %s: %w", c.opts.Template, err)
	}
	return nil
}

// RenderIndex renders the dashboard list page into out.
func (c *Controller) RenderIndex(ctx context.Context, out io.Writer) error {
	if c.opts.Renderer == nil {
		return errors.New("dashboard: template renderer not configured")
	}
	if c.opts.Service == nil {
		return errors.New("dashboard: controller service not configured")
	}
	dashboards, err := c.opts.Service.ListDashboards(ctx)
	if err != nil {
		return err
	}
	data := map[string]any{
		"dashboards": dashboards,
		"templates":  Templates(),
	}
	if _, err := c.opts.Renderer.Render(c.opts.IndexTemplate, data, out); err != nil {
		return fmt.Errorf("dashboard: render %s: %w", c.opts.IndexTemplate, err)
	}
	return nil
}
