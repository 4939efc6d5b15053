package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned by stores when a dashboard or chart does not exist.
	ErrNotFound = errors.New("dashboard: record not found")

	errMissingStore = errors.New("dashboard: store not configured")
)

// Options configures the dashboard Service. Every collaborator is provided via
// interface so applications can swap persistence and data fetching.
type Options struct {
	Store          Store
	Fetcher        DataFetcher
	Validator      ChartValidator
	RefreshHook    RefreshHook
	Telemetry      Telemetry
	Columns        int
	DefaultSize    Size
	PreviewTimeout time.Duration
}

// Service orchestrates dashboards, chart placement and previews on top of a Store.
type Service struct {
	opts Options
}

// NewService builds a Service instance with safe defaults.
func NewService(opts Options) *Service {
	if opts.RefreshHook == nil {
		opts.RefreshHook = noopRefreshHook{}
	}
	if opts.Fetcher == nil {
		opts.Fetcher = RegistryFetcher{Registry: NewRegistry()}
	}
	if opts.Validator == nil {
		opts.Validator = NewJSONSchemaValidator()
	}
	if opts.Columns < 1 {
		opts.Columns = DefaultColumns
	}
	if opts.DefaultSize.W < 1 || opts.DefaultSize.H < 1 {
		opts.DefaultSize = DefaultSize
	}
	if opts.PreviewTimeout <= 0 {
		opts.PreviewTimeout = DefaultPreviewTimeout
	}
	opts.Telemetry = normalizeTelemetry(opts.Telemetry)
	return &Service{opts: opts}
}

// Columns returns the grid width given to new dashboards.
func (s *Service) Columns() int {
	return s.opts.Columns
}

// CreateDashboardRequest captures the fields of a new dashboard. ID is optional;
// transports pre-assign it when they need to read the record back.
type CreateDashboardRequest struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Columns     int    `json:"columns,omitempty"`
	TemplateID  string `json:"templateId,omitempty"`
}

// AddChartRequest captures the data required to place a new chart. A zero
// W/H takes the service default size; an empty Type takes the type inferred
// from the endpoint preview.
type AddChartRequest struct {
	ID           string    `json:"id,omitempty"`
	DashboardID  string    `json:"dashboardId"`
	Type         ChartType `json:"type,omitempty"`
	Title        string    `json:"title"`
	DataEndpoint string    `json:"dataEndpoint"`
	Color        string    `json:"color,omitempty"`
	W            int       `json:"w,omitempty"`
	H            int       `json:"h,omitempty"`
}

// ListDashboards returns every dashboard.
func (s *Service) ListDashboards(ctx context.Context) ([]Dashboard, error) {
	store, err := s.store()
	if err != nil {
		return nil, err
	}
	return store.ListDashboards(ctx)
}

// GetDashboard fetches a dashboard by id.
func (s *Service) GetDashboard(ctx context.Context, id string) (Dashboard, error) {
	store, err := s.store()
	if err != nil {
		return Dashboard{}, err
	}
	if id == "" {
		return Dashboard{}, fmt.Errorf("%w: dashboard id is required", ErrValidation)
	}
	return store.GetDashboard(ctx, id)
}

// CreateDashboard persists a new dashboard.
func (s *Service) CreateDashboard(ctx context.Context, req CreateDashboardRequest) (Dashboard, error) {
	store, err := s.store()
	if err != nil {
		return Dashboard{}, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return Dashboard{}, fmt.Errorf("%w: dashboard name is required", ErrValidation)
	}
	if req.Columns < 0 {
		return Dashboard{}, fmt.Errorf("%w: columns must be positive", ErrValidation)
	}
	if req.TemplateID != "" {
		if _, ok := TemplateByID(req.TemplateID); !ok {
			return Dashboard{}, fmt.Errorf("%w: unknown layout template %q", ErrValidation, req.TemplateID)
		}
	}
	columns := req.Columns
	if columns == 0 {
		columns = s.opts.Columns
	}
	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}
	created, err := store.CreateDashboard(ctx, Dashboard{
		ID:          id,
		Name:        name,
		Description: req.Description,
		Columns:     columns,
		TemplateID:  req.TemplateID,
	})
	if err != nil {
		return Dashboard{}, err
	}
	if err := s.opts.RefreshHook.ChartUpdated(ctx, ChartEvent{DashboardID: created.ID, Reason: "dashboard.create"}); err != nil {
		return created, err
	}
	s.recordTelemetry(ctx, "dashboard.create", map[string]any{
		"dashboard_id": created.ID,
		"columns":      created.Columns,
	})
	return created, nil
}

// UpdateDashboard applies a partial update.
func (s *Service) UpdateDashboard(ctx context.Context, id string, patch DashboardPatch) (Dashboard, error) {
	store, err := s.store()
	if err != nil {
		return Dashboard{}, err
	}
	if id == "" {
		return Dashboard{}, fmt.Errorf("%w: dashboard id is required", ErrValidation)
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return Dashboard{}, fmt.Errorf("%w: dashboard name is required", ErrValidation)
		}
		patch.Name = &name
	}
	if patch.Columns != nil && *patch.Columns < 1 {
		return Dashboard{}, fmt.Errorf("%w: columns must be positive", ErrValidation)
	}
	if patch.TemplateID != nil && *patch.TemplateID != "" {
		if _, ok := TemplateByID(*patch.TemplateID); !ok {
			return Dashboard{}, fmt.Errorf("%w: unknown layout template %q", ErrValidation, *patch.TemplateID)
		}
	}
	updated, err := store.UpdateDashboard(ctx, id, patch)
	if err != nil {
		return Dashboard{}, err
	}
	if err := s.opts.RefreshHook.ChartUpdated(ctx, ChartEvent{DashboardID: id, Reason: "dashboard.update"}); err != nil {
		return updated, err
	}
	s.recordTelemetry(ctx, "dashboard.update", map[string]any{"dashboard_id": id})
	return updated, nil
}

// DeleteDashboard removes a dashboard and every chart it owns.
func (s *Service) DeleteDashboard(ctx context.Context, id string) error {
	store, err := s.store()
	if err != nil {
		return err
	}
	if id == "" {
		return fmt.Errorf("%w: dashboard id is required", ErrValidation)
	}
	if err := store.DeleteDashboard(ctx, id); err != nil {
		return err
	}
	if err := s.opts.RefreshHook.ChartUpdated(ctx, ChartEvent{DashboardID: id, Reason: "dashboard.delete"}); err != nil {
		return err
	}
	s.recordTelemetry(ctx, "dashboard.delete", map[string]any{"dashboard_id": id})
	return nil
}

// ListCharts returns the charts of a dashboard, or every chart when dashboardID is empty.
func (s *Service) ListCharts(ctx context.Context, dashboardID string) ([]Chart, error) {
	store, err := s.store()
	if err != nil {
		return nil, err
	}
	return store.ListCharts(ctx, dashboardID)
}

// GetChart fetches a chart by id.
func (s *Service) GetChart(ctx context.Context, id string) (Chart, error) {
	store, err := s.store()
	if err != nil {
		return Chart{}, err
	}
	if id == "" {
		return Chart{}, fmt.Errorf("%w: chart id is required", ErrValidation)
	}
	return store.GetChart(ctx, id)
}

// AddChart classifies the chart endpoint, places the chart on the first free
// grid region of its dashboard and persists it.
func (s *Service) AddChart(ctx context.Context, req AddChartRequest) (Chart, error) {
	store, err := s.store()
	if err != nil {
		return Chart{}, err
	}
	if req.DashboardID == "" {
		return Chart{}, fmt.Errorf("%w: dashboard id is required", ErrValidation)
	}
	dash, err := store.GetDashboard(ctx, req.DashboardID)
	if err != nil {
		return Chart{}, err
	}
	existing, err := store.ListCharts(ctx, dash.ID)
	if err != nil {
		return Chart{}, err
	}

	chart := Chart{
		ID:           req.ID,
		DashboardID:  dash.ID,
		Title:        strings.TrimSpace(req.Title),
		DataEndpoint: strings.TrimSpace(req.DataEndpoint),
		Color:        req.Color,
	}
	if chart.ID == "" {
		chart.ID = uuid.NewString()
	}
	if chart.Color == "" {
		chart.Color = DefaultChartColor
	}
	chart.Type = s.resolveType(ctx, chart.DataEndpoint, req.Type)

	columns := dash.GridColumns()
	w, h := req.W, req.H
	if w < 1 {
		w = s.opts.DefaultSize.W
	}
	if h < 1 {
		h = s.opts.DefaultSize.H
	}
	chart = chart.WithRect(FindPlacement(normalizedRects(existing, columns, s.opts.DefaultSize, ""), columns, w, h))

	if err := s.opts.Validator.ValidateChart(chart); err != nil {
		return Chart{}, err
	}
	created, err := store.CreateChart(ctx, chart)
	if err != nil {
		return Chart{}, err
	}
	if err := s.opts.RefreshHook.ChartUpdated(ctx, ChartEvent{DashboardID: dash.ID, Chart: &created, Reason: "add"}); err != nil {
		return created, err
	}
	s.recordTelemetry(ctx, "dashboard.chart.add", map[string]any{
		"dashboard_id": dash.ID,
		"chart_id":     created.ID,
		"type":         string(created.Type),
		"x":            created.X,
		"y":            created.Y,
	})
	return created, nil
}

// UpdateChart edits a chart. When the endpoint or type changes the type is
// re-resolved against the endpoint classification; coordinates in the patch
// are normalized into the grid.
func (s *Service) UpdateChart(ctx context.Context, id string, patch ChartPatch) (Chart, error) {
	store, err := s.store()
	if err != nil {
		return Chart{}, err
	}
	current, err := s.GetChart(ctx, id)
	if err != nil {
		return Chart{}, err
	}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		patch.Title = &title
	}
	if patch.DataEndpoint != nil {
		endpoint := strings.TrimSpace(*patch.DataEndpoint)
		patch.DataEndpoint = &endpoint
	}
	next := patch.Apply(current)

	if patch.Type != nil || (patch.DataEndpoint != nil && *patch.DataEndpoint != current.DataEndpoint) {
		resolved := s.resolveType(ctx, next.DataEndpoint, next.Type)
		next.Type = resolved
		patch.Type = &resolved
	}
	if patch.X != nil || patch.Y != nil || patch.W != nil || patch.H != nil {
		dash, err := store.GetDashboard(ctx, current.DashboardID)
		if err != nil {
			return Chart{}, err
		}
		rect := NormalizeRect(next.Rect(), dash.GridColumns(), s.opts.DefaultSize)
		next = next.WithRect(rect)
		rectPatch := RectPatch(rect)
		patch.X, patch.Y, patch.W, patch.H = rectPatch.X, rectPatch.Y, rectPatch.W, rectPatch.H
	}
	if err := s.opts.Validator.ValidateChart(next); err != nil {
		return Chart{}, err
	}
	updated, err := store.UpdateChart(ctx, id, patch)
	if err != nil {
		return Chart{}, err
	}
	if err := s.opts.RefreshHook.ChartUpdated(ctx, ChartEvent{DashboardID: updated.DashboardID, Chart: &updated, Reason: "update"}); err != nil {
		return updated, err
	}
	s.recordTelemetry(ctx, "dashboard.chart.update", map[string]any{
		"dashboard_id": updated.DashboardID,
		"chart_id":     updated.ID,
		"type":         string(updated.Type),
	})
	return updated, nil
}

// MoveChart stores a position chosen by the user. The placement engine is not
// consulted; the rectangle is only pulled back inside the grid.
func (s *Service) MoveChart(ctx context.Context, id string, rect Rect) (Chart, error) {
	store, err := s.store()
	if err != nil {
		return Chart{}, err
	}
	current, err := s.GetChart(ctx, id)
	if err != nil {
		return Chart{}, err
	}
	dash, err := store.GetDashboard(ctx, current.DashboardID)
	if err != nil {
		return Chart{}, err
	}
	fallback := s.opts.DefaultSize
	if current.W > 0 && current.H > 0 {
		fallback = Size{W: current.W, H: current.H}
	}
	rect = NormalizeRect(rect, dash.GridColumns(), fallback)
	moved, err := store.UpdateChart(ctx, id, RectPatch(rect))
	if err != nil {
		return Chart{}, err
	}
	if err := s.opts.RefreshHook.ChartUpdated(ctx, ChartEvent{DashboardID: moved.DashboardID, Chart: &moved, Reason: "move"}); err != nil {
		return moved, err
	}
	s.recordTelemetry(ctx, "dashboard.chart.move", map[string]any{
		"chart_id": moved.ID,
		"x":        moved.X,
		"y":        moved.Y,
		"w":        moved.W,
		"h":        moved.H,
	})
	return moved, nil
}

// DeleteChart removes a chart.
func (s *Service) DeleteChart(ctx context.Context, id string) error {
	store, err := s.store()
	if err != nil {
		return err
	}
	current, err := s.GetChart(ctx, id)
	if err != nil {
		return err
	}
	if err := store.DeleteChart(ctx, id); err != nil {
		return err
	}
	if err := s.opts.RefreshHook.ChartUpdated(ctx, ChartEvent{
		DashboardID: current.DashboardID,
		Chart:       &Chart{ID: id, DashboardID: current.DashboardID},
		Reason:      "delete",
	}); err != nil {
		return err
	}
	s.recordTelemetry(ctx, "dashboard.chart.remove", map[string]any{"chart_id": id})
	return nil
}

// Preview fetches and classifies endpoint. It never fails: fetch errors yield
// an unavailable preview that allows every chart type.
func (s *Service) Preview(ctx context.Context, endpoint string) Preview {
	preview := FetchPreview(ctx, s.opts.Fetcher, strings.TrimSpace(endpoint), s.opts.PreviewTimeout)
	s.recordTelemetry(ctx, "dashboard.preview", map[string]any{
		"endpoint":  preview.Endpoint,
		"available": preview.Available,
		"shape":     string(preview.Classification.Shape),
	})
	return preview
}

// NewPreviewSession starts a preview session bound to the service fetcher.
func (s *Service) NewPreviewSession(opts ...PreviewOption) *PreviewSession {
	base := []PreviewOption{
		WithPreviewTimeout(s.opts.PreviewTimeout),
		WithPreviewTelemetry(s.opts.Telemetry),
	}
	return NewPreviewSession(s.opts.Fetcher, append(base, opts...)...)
}

// ApplyTemplate re-lays the dashboard charts, in row-major order, into the
// slots of a layout template.
func (s *Service) ApplyTemplate(ctx context.Context, dashboardID, templateID string) (Layout, error) {
	store, err := s.store()
	if err != nil {
		return Layout{}, err
	}
	tpl, ok := TemplateByID(templateID)
	if !ok {
		return Layout{}, fmt.Errorf("%w: unknown layout template %q", ErrValidation, templateID)
	}
	dash, err := s.GetDashboard(ctx, dashboardID)
	if err != nil {
		return Layout{}, err
	}
	charts, err := store.ListCharts(ctx, dash.ID)
	if err != nil {
		return Layout{}, err
	}
	columns := tpl.Columns
	if _, err := store.UpdateDashboard(ctx, dash.ID, DashboardPatch{Columns: &columns, TemplateID: &tpl.ID}); err != nil {
		return Layout{}, err
	}
	for _, chart := range tpl.Arrange(SortRowMajor(charts), s.opts.DefaultSize) {
		if _, err := store.UpdateChart(ctx, chart.ID, RectPatch(chart.Rect())); err != nil {
			return Layout{}, err
		}
	}
	if err := s.opts.RefreshHook.ChartUpdated(ctx, ChartEvent{DashboardID: dash.ID, Reason: "template"}); err != nil {
		return Layout{}, err
	}
	s.recordTelemetry(ctx, "dashboard.template.apply", map[string]any{
		"dashboard_id": dash.ID,
		"template_id":  tpl.ID,
		"charts":       len(charts),
	})
	return s.DashboardLayout(ctx, dash.ID)
}

// DashboardLayout returns the dashboard with its charts in row-major order.
// Records with missing or out-of-grid coordinates are normalized on read.
func (s *Service) DashboardLayout(ctx context.Context, dashboardID string) (Layout, error) {
	store, err := s.store()
	if err != nil {
		return Layout{}, err
	}
	dash, err := s.GetDashboard(ctx, dashboardID)
	if err != nil {
		return Layout{}, err
	}
	charts, err := store.ListCharts(ctx, dash.ID)
	if err != nil {
		return Layout{}, err
	}
	columns := dash.GridColumns()
	for i := range charts {
		charts[i] = charts[i].WithRect(NormalizeRect(charts[i].Rect(), columns, s.opts.DefaultSize))
	}
	return Layout{Dashboard: dash, Charts: SortRowMajor(charts)}, nil
}

func (s *Service) resolveType(ctx context.Context, endpoint string, requested ChartType) ChartType {
	preview := s.Preview(ctx, endpoint)
	resolved := preview.Classification.Resolve(requested)
	if resolved == "" {
		resolved = ChartBar
	}
	if requested != "" && resolved != requested {
		s.recordTelemetry(ctx, "dashboard.chart.type_coerced", map[string]any{
			"endpoint":  endpoint,
			"requested": string(requested),
			"resolved":  string(resolved),
		})
	}
	return resolved
}

func normalizedRects(charts []Chart, columns int, fallback Size, skipID string) []Rect {
	rects := ChartRects(charts, skipID)
	for i := range rects {
		rects[i] = NormalizeRect(rects[i], columns, fallback)
	}
	return rects
}

func (s *Service) store() (Store, error) {
	if s.opts.Store == nil {
		return nil, errMissingStore
	}
	return s.opts.Store, nil
}

func (s *Service) recordTelemetry(ctx context.Context, event string, payload map[string]any) {
	s.opts.Telemetry.Record(ctx, event, payload)
}

type noopRefreshHook struct{}

func (noopRefreshHook) ChartUpdated(context.Context, ChartEvent) error { return nil }
