package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-chartboard/components/dashboard"
	"github.com/goliatone/go-chartboard/components/dashboard/commands"
	"github.com/goliatone/go-chartboard/components/dashboard/export"
	"github.com/goliatone/go-chartboard/components/dashboard/store"
)

type stubCommander[T any] struct {
	last  T
	calls int
	err   error
}

func (s *stubCommander[T]) Execute(ctx context.Context, msg T) error {
	s.last = msg
	s.calls++
	return s.err
}

func newTestServer(t *testing.T) (*httptest.Server, *dashboard.Service) {
	t.Helper()
	service := dashboard.NewService(dashboard.Options{Store: store.NewMemory()})
	h := &Handlers{
		Actions:   Actions{Exec: NewCommandExecutor(service, nil), Read: NewQueryReader(service)},
		Sessions:  service,
		Broadcast: dashboard.NewBroadcastHook(),
	}
	mux := http.NewServeMux()
	h.Mount(mux, "/api")
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, service
}

func doJSON(t *testing.T, method, url string, body any, out any) int {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 && resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestDashboardAndChartLifecycle(t *testing.T) {
	server, _ := newTestServer(t)
	api := server.URL + "/api"

	var dash dashboard.Dashboard
	status := doJSON(t, http.MethodPost, api+"/dashboards", dashboard.CreateDashboardRequest{Name: "Ops"}, &dash)
	require.Equal(t, http.StatusCreated, status)
	require.NotEmpty(t, dash.ID)
	assert.Equal(t, dashboard.DefaultColumns, dash.Columns)

	var first, second dashboard.Chart
	status = doJSON(t, http.MethodPost, api+"/charts", dashboard.AddChartRequest{
		DashboardID:  dash.ID,
		Title:        "Orders",
		DataEndpoint: dashboard.DataPathPrefix + "orders_over_time",
	}, &first)
	require.Equal(t, http.StatusCreated, status)
	status = doJSON(t, http.MethodPost, api+"/charts", dashboard.AddChartRequest{
		DashboardID:  dash.ID,
		Title:        "Revenue",
		DataEndpoint: dashboard.DataPathPrefix + "total_revenue",
		Type:         dashboard.ChartBar,
	}, &second)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, dashboard.Rect{X: 0, Y: 0, W: 6, H: 4}, first.Rect())
	assert.Equal(t, dashboard.Rect{X: 6, Y: 0, W: 6, H: 4}, second.Rect())
	assert.Equal(t, dashboard.ChartNumber, second.Type)

	var moved dashboard.Chart
	status = doJSON(t, http.MethodPut, api+"/charts/"+first.ID+"/position", dashboard.Rect{X: 11, Y: 2, W: 6, H: 3}, &moved)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, dashboard.Rect{X: 6, Y: 2, W: 6, H: 3}, moved.Rect())

	title := "Orders per day"
	var updated dashboard.Chart
	status = doJSON(t, http.MethodPut, api+"/charts/"+first.ID, dashboard.ChartPatch{Title: &title}, &updated)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, title, updated.Title)

	var layout dashboard.Layout
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, api+"/dashboards/"+dash.ID+"/layout", nil, &layout))
	require.Len(t, layout.Charts, 2)
	assert.Equal(t, second.ID, layout.Charts[0].ID)

	var charts []dashboard.Chart
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, api+"/charts?dashboardId="+dash.ID, nil, &charts))
	assert.Len(t, charts, 2)

	require.Equal(t, http.StatusNoContent, doJSON(t, http.MethodDelete, api+"/dashboards/"+dash.ID, nil, nil))
	assert.Equal(t, http.StatusNotFound, doJSON(t, http.MethodGet, api+"/charts/"+first.ID, nil, nil))
	assert.Equal(t, http.StatusNotFound, doJSON(t, http.MethodGet, api+"/dashboards/"+dash.ID, nil, nil))
}

func TestStatusMapping(t *testing.T) {
	server, _ := newTestServer(t)
	api := server.URL + "/api"

	assert.Equal(t, http.StatusBadRequest, doJSON(t, http.MethodPost, api+"/dashboards", dashboard.CreateDashboardRequest{Name: " "}, nil))
	assert.Equal(t, http.StatusNotFound, doJSON(t, http.MethodPost, api+"/charts", dashboard.AddChartRequest{
		DashboardID: "missing", Title: "x", DataEndpoint: "/api/data/total_revenue",
	}, nil))
	assert.Equal(t, http.StatusNotFound, doJSON(t, http.MethodGet, api+"/data/nope", nil, nil))

	resp, err := http.Post(api+"/charts", "application/json", strings.NewReader("{not json"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var dash dashboard.Dashboard
	require.Equal(t, http.StatusCreated, doJSON(t, http.MethodPost, api+"/dashboards", dashboard.CreateDashboardRequest{ID: "fixed", Name: "A"}, &dash))
	assert.Equal(t, http.StatusConflict, doJSON(t, http.MethodPost, api+"/dashboards", dashboard.CreateDashboardRequest{ID: "fixed", Name: "B"}, nil))

	cases := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{dashboard.ErrValidation, http.StatusBadRequest},
		{fmt.Errorf("wrap: %w", store.ErrNotFound), http.StatusNotFound},
		{dashboard.ErrUnknownSource, http.StatusNotFound},
		{store.ErrConflict, http.StatusConflict},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, StatusFor(tc.err), "error %v", tc.err)
	}
}

func TestApplyTemplateAndTemplates(t *testing.T) {
	server, service := newTestServer(t)
	api := server.URL + "/api"
	_, err := dashboard.SeedDemo(context.Background(), service)
	require.NoError(t, err)

	var templates []dashboard.LayoutTemplate
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, api+"/templates", nil, &templates))
	assert.Len(t, templates, len(dashboard.Templates()))

	var layout dashboard.Layout
	status := doJSON(t, http.MethodPost, api+"/dashboards/"+dashboard.DemoDashboardID+"/template", TemplateRequest{TemplateID: "three-column"}, &layout)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "three-column", layout.Dashboard.TemplateID)

	assert.Equal(t, http.StatusBadRequest, doJSON(t, http.MethodPost, api+"/dashboards/"+dashboard.DemoDashboardID+"/template", TemplateRequest{}, nil))
}

func TestPreviewAndDataEndpoints(t *testing.T) {
	server, _ := newTestServer(t)
	api := server.URL + "/api"

	var preview dashboard.Preview
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, api+"/preview?endpoint=/api/data/total_revenue", nil, &preview))
	assert.True(t, preview.Available)
	assert.Equal(t, dashboard.ShapeScalar, preview.Classification.Shape)

	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, api+"/preview?endpoint=/api/data/missing", nil, &preview))
	assert.False(t, preview.Available)
	assert.NotEmpty(t, preview.Error)

	var payload map[string]any
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, api+"/data/sales_by_category", nil, &payload))
	assert.Contains(t, payload, "labels")

	var sources []dashboard.DataSource
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, api+"/data", nil, &sources))
	assert.NotEmpty(t, sources)
}

func TestExportWorkbook(t *testing.T) {
	server, service := newTestServer(t)
	_, err := dashboard.SeedDemo(context.Background(), service)
	require.NoError(t, err)

	resp, err := http.Get(server.URL + "/api/dashboards/" + dashboard.DemoDashboardID + "/export.xlsx")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, export.ContentType, resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), ".xlsx")
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(body, []byte("PK")), "expected zip container")
}

func TestPreviewWebSocketReportsLatestSelection(t *testing.T) {
	server, _ := newTestServer(t)
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/preview/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(dashboard.PreviewCommand{Action: dashboard.PreviewActionSelect, Endpoint: "/api/data/sales_by_category"}))
	ready := readUntil(t, conn, func(msg PreviewMessage) bool {
		return msg.Snapshot != nil && msg.Snapshot.State == dashboard.PreviewReady
	})
	assert.Equal(t, dashboard.ShapeCategorical, ready.Snapshot.Preview.Classification.Shape)

	require.NoError(t, conn.WriteJSON(dashboard.PreviewCommand{Action: dashboard.PreviewActionConfirm, Type: dashboard.ChartNumber}))
	rejected := readUntil(t, conn, func(msg PreviewMessage) bool { return msg.Error != "" })
	assert.Contains(t, rejected.Error, "not allowed")

	require.NoError(t, conn.WriteJSON(dashboard.PreviewCommand{Action: dashboard.PreviewActionConfirm, Type: dashboard.ChartPie}))
	confirmed := readUntil(t, conn, func(msg PreviewMessage) bool {
		return msg.Snapshot != nil && msg.Snapshot.State == dashboard.PreviewConfirmed
	})
	assert.Equal(t, dashboard.ChartPie, confirmed.Snapshot.SelectedType)
}

func TestRunPreviewSessionStopsOnReadError(t *testing.T) {
	service := dashboard.NewService(dashboard.Options{Store: store.NewMemory()})
	messages := make(chan PreviewMessage, 16)
	out := NewPreviewWriter(func(v any) error {
		messages <- v.(PreviewMessage)
		return nil
	})
	cmds := []dashboard.PreviewCommand{{Action: "bogus"}}
	errDone := errors.New("closed")
	read := func(cmd *dashboard.PreviewCommand) error {
		if len(cmds) == 0 {
			return errDone
		}
		*cmd = cmds[0]
		cmds = cmds[1:]
		return nil
	}
	err := RunPreviewSession(context.Background(), service, read, out)
	require.ErrorIs(t, err, errDone)
	msg := <-messages
	assert.Contains(t, msg.Error, "unknown preview action")
}

func TestHandlersUseCommanders(t *testing.T) {
	add := &stubCommander[dashboard.AddChartRequest]{err: fmt.Errorf("%w: title", dashboard.ErrValidation)}
	del := &stubCommander[commands.DeleteChartInput]{}
	h := &Handlers{Actions: Actions{
		Exec:  &CommandExecutor{AddChartCommander: add, DeleteChartCommander: del},
		Read:  &QueryReader{},
		NewID: func() string { return "fixed-id" },
	}}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/charts", strings.NewReader(`{"dashboardId":"d1"}`))
	h.HandleCreateChart(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "fixed-id", add.last.ID)

	rec = httptest.NewRecorder()
	h.HandleDeleteChart(rec, httptest.NewRequest(http.MethodDelete, "/api/charts/c1", nil), "c1")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "c1", del.last.ChartID)

	rec = httptest.NewRecorder()
	h.HandleGetChart(rec, httptest.NewRequest(http.MethodGet, "/api/charts/c1", nil), "c1")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func readUntil(t *testing.T, conn *websocket.Conn, match func(PreviewMessage) bool) PreviewMessage {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		require.NoError(t, conn.SetReadDeadline(deadline))
		var msg PreviewMessage
		require.NoError(t, conn.ReadJSON(&msg))
		if match(msg) {
			return msg
		}
	}
}
