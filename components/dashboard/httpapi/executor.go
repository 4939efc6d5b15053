package httpapi

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"

	"github.com/goliatone/go-chartboard/components/dashboard"
	"github.com/goliatone/go-chartboard/components/dashboard/commands"
	"github.com/goliatone/go-chartboard/components/dashboard/queries"
)

// Executor runs dashboard mutations for transports.
type Executor interface {
	CreateDashboard(ctx context.Context, req dashboard.CreateDashboardRequest) error
	UpdateDashboard(ctx context.Context, input commands.UpdateDashboardInput) error
	DeleteDashboard(ctx context.Context, input commands.DeleteDashboardInput) error
	ApplyTemplate(ctx context.Context, input commands.ApplyTemplateInput) error
	AddChart(ctx context.Context, req dashboard.AddChartRequest) error
	UpdateChart(ctx context.Context, input commands.UpdateChartInput) error
	MoveChart(ctx context.Context, input commands.MoveChartInput) error
	DeleteChart(ctx context.Context, input commands.DeleteChartInput) error
}

// Reader runs dashboard reads for transports.
type Reader interface {
	Dashboards(ctx context.Context) ([]dashboard.Dashboard, error)
	Dashboard(ctx context.Context, id string) (dashboard.Dashboard, error)
	Layout(ctx context.Context, dashboardID string) (dashboard.Layout, error)
	Charts(ctx context.Context, dashboardID string) ([]dashboard.Chart, error)
	Chart(ctx context.Context, id string) (dashboard.Chart, error)
	Preview(ctx context.Context, endpoint string) (dashboard.Preview, error)
}

var errMissingCommander = errors.New("httpapi: command not configured")

// CommandExecutor adapts go-command commanders to the Executor interface.
type CommandExecutor struct {
	CreateDashboardCommander gocommand.Commander[dashboard.CreateDashboardRequest]
	UpdateDashboardCommander gocommand.Commander[commands.UpdateDashboardInput]
	DeleteDashboardCommander gocommand.Commander[commands.DeleteDashboardInput]
	ApplyTemplateCommander   gocommand.Commander[commands.ApplyTemplateInput]
	AddChartCommander        gocommand.Commander[dashboard.AddChartRequest]
	UpdateChartCommander     gocommand.Commander[commands.UpdateChartInput]
	MoveChartCommander       gocommand.Commander[commands.MoveChartInput]
	DeleteChartCommander     gocommand.Commander[commands.DeleteChartInput]
}

// NewCommandExecutor wires every command against service.
func NewCommandExecutor(service *dashboard.Service, telemetry commands.Telemetry) *CommandExecutor {
	return &CommandExecutor{
		CreateDashboardCommander: commands.NewCreateDashboardCommand(service, telemetry),
		UpdateDashboardCommander: commands.NewUpdateDashboardCommand(service, telemetry),
		DeleteDashboardCommander: commands.NewDeleteDashboardCommand(service, telemetry),
		ApplyTemplateCommander:   commands.NewApplyTemplateCommand(service, telemetry),
		AddChartCommander:        commands.NewAddChartCommand(service, telemetry),
		UpdateChartCommander:     commands.NewUpdateChartCommand(service, telemetry),
		MoveChartCommander:       commands.NewMoveChartCommand(service, telemetry),
		DeleteChartCommander:     commands.NewDeleteChartCommand(service, telemetry),
	}
}

var _ Executor = (*CommandExecutor)(nil)

func execute[T any](ctx context.Context, cmd gocommand.Commander[T], msg T) error {
	if cmd == nil {
		return errMissingCommander
	}
	return cmd.Execute(ctx, msg)
}

func (e *CommandExecutor) CreateDashboard(ctx context.Context, req dashboard.CreateDashboardRequest) error {
	return execute(ctx, e.CreateDashboardCommander, req)
}

func (e *CommandExecutor) UpdateDashboard(ctx context.Context, input commands.UpdateDashboardInput) error {
	return execute(ctx, e.UpdateDashboardCommander, input)
}

func (e *CommandExecutor) DeleteDashboard(ctx context.Context, input commands.DeleteDashboardInput) error {
	return execute(ctx, e.DeleteDashboardCommander, input)
}

func (e *CommandExecutor) ApplyTemplate(ctx context.Context, input commands.ApplyTemplateInput) error {
	return execute(ctx, e.ApplyTemplateCommander, input)
}

func (e *CommandExecutor) AddChart(ctx context.Context, req dashboard.AddChartRequest) error {
	return execute(ctx, e.AddChartCommander, req)
}

func (e *CommandExecutor) UpdateChart(ctx context.Context, input commands.UpdateChartInput) error {
	return execute(ctx, e.UpdateChartCommander, input)
}

func (e *CommandExecutor) MoveChart(ctx context.Context, input commands.MoveChartInput) error {
	return execute(ctx, e.MoveChartCommander, input)
}

func (e *CommandExecutor) DeleteChart(ctx context.Context, input commands.DeleteChartInput) error {
	return execute(ctx, e.DeleteChartCommander, input)
}

// QueryReader adapts go-command queriers to the Reader interface.
type QueryReader struct {
	DashboardsQuerier gocommand.Querier[queries.DashboardListInput, []dashboard.Dashboard]
	DashboardQuerier  gocommand.Querier[queries.DashboardInput, dashboard.Dashboard]
	LayoutQuerier     gocommand.Querier[queries.LayoutInput, dashboard.Layout]
	ChartsQuerier     gocommand.Querier[queries.ChartListInput, []dashboard.Chart]
	ChartQuerier      gocommand.Querier[queries.ChartInput, dashboard.Chart]
	PreviewQuerier    gocommand.Querier[queries.PreviewInput, dashboard.Preview]
}

// NewQueryReader wires every query against service.
func NewQueryReader(service *dashboard.Service) *QueryReader {
	return &QueryReader{
		DashboardsQuerier: queries.NewDashboardListQuery(service),
		DashboardQuerier:  queries.NewDashboardQuery(service),
		LayoutQuerier:     queries.NewLayoutQuery(service),
		ChartsQuerier:     queries.NewChartListQuery(service),
		ChartQuerier:      queries.NewChartQuery(service),
		PreviewQuerier:    queries.NewPreviewQuery(service),
	}
}

var _ Reader = (*QueryReader)(nil)

var errMissingQuerier = errors.New("httpapi: query not configured")

func query[T, R any](ctx context.Context, q gocommand.Querier[T, R], input T) (R, error) {
	if q == nil {
		var zero R
		return zero, errMissingQuerier
	}
	return q.Query(ctx, input)
}

func (r *QueryReader) Dashboards(ctx context.Context) ([]dashboard.Dashboard, error) {
	return query(ctx, r.DashboardsQuerier, queries.DashboardListInput{})
}

func (r *QueryReader) Dashboard(ctx context.Context, id string) (dashboard.Dashboard, error) {
	return query(ctx, r.DashboardQuerier, queries.DashboardInput{DashboardID: id})
}

func (r *QueryReader) Layout(ctx context.Context, dashboardID string) (dashboard.Layout, error) {
	return query(ctx, r.LayoutQuerier, queries.LayoutInput{DashboardID: dashboardID})
}

func (r *QueryReader) Charts(ctx context.Context, dashboardID string) ([]dashboard.Chart, error) {
	return query(ctx, r.ChartsQuerier, queries.ChartListInput{DashboardID: dashboardID})
}

func (r *QueryReader) Chart(ctx context.Context, id string) (dashboard.Chart, error) {
	return query(ctx, r.ChartQuerier, queries.ChartInput{ChartID: id})
}

func (r *QueryReader) Preview(ctx context.Context, endpoint string) (dashboard.Preview, error) {
	return query(ctx, r.PreviewQuerier, queries.PreviewInput{Endpoint: endpoint})
}
