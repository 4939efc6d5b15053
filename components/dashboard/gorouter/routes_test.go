package gorouter

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	router "github.com/goliatone/go-router"

	"github.com/goliatone/go-chartboard/components/dashboard"
	"github.com/goliatone/go-chartboard/components/dashboard/httpapi"
	"github.com/goliatone/go-chartboard/components/dashboard/store"
)

func TestRegisterValidatesConfig(t *testing.T) {
	err := Register(Config[struct{}]{})
	if err == nil {
		t.Fatalf("expected error when router/controller missing")
	}
}

func TestRegisterHTMLRoutes(t *testing.T) {
	mock := newMockRouter()
	service := &stubLayoutResolver{
		layout: dashboard.Layout{
			Dashboard: dashboard.Dashboard{ID: "d1", Name: "Sales"},
			Charts: []dashboard.Chart{
				{ID: "c1", Title: "Revenue", Type: dashboard.ChartNumber, DataEndpoint: "/api/data/total_revenue", W: 6, H: 4},
			},
		},
	}
	renderer := &stubRenderer{}
	controller := dashboard.NewController(dashboard.ControllerOptions{
		Service:  service,
		Renderer: renderer,
		Fetcher:  dashboard.RegistryFetcher{Registry: dashboard.NewRegistry()},
	})

	if err := Register(Config[struct{}]{Router: mock, Controller: controller}); err != nil {
		t.Fatalf("register returned error: %v", err)
	}

	h, ok := mock.routes["GET:/dashboards/:id"]
	if !ok {
		t.Fatalf("expected dashboard route to be registered")
	}
	ctx := newMockContext()
	ctx.params["id"] = "d1"
	if err := h(ctx); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if len(ctx.body) == 0 || renderer.calls == 0 {
		t.Fatalf("renderer not invoked")
	}
	if ctx.headers["Content-Type"] != "text/html; charset=utf-8" {
		t.Fatalf("unexpected content type %q", ctx.headers["Content-Type"])
	}

	payload := newMockContext()
	payload.params["id"] = "d1"
	if err := mock.routes["GET:/dashboards/:id/_payload"](payload); err != nil {
		t.Fatalf("payload handler returned error: %v", err)
	}
	var page dashboard.PagePayload
	if err := json.Unmarshal(payload.body, &page); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if len(page.Charts) != 1 || !page.Charts[0].Available {
		t.Fatalf("unexpected page payload %+v", page)
	}

	if _, ok := mock.routes["GET:/api/data/:name"]; !ok {
		t.Fatalf("expected sample data route without API executor")
	}
	if _, ok := mock.routes["POST:/api/charts"]; ok {
		t.Fatalf("expected REST routes to require an executor")
	}
}

func TestRegisterAPIRoutes(t *testing.T) {
	mock := newMockRouter()
	service := dashboard.NewService(dashboard.Options{Store: store.NewMemory()})
	controller := dashboard.NewController(dashboard.ControllerOptions{Service: service, Renderer: &stubRenderer{}})
	err := Register(Config[struct{}]{
		Router:     mock,
		Controller: controller,
		API: httpapi.Actions{
			Exec:  httpapi.NewCommandExecutor(service, nil),
			Read:  httpapi.NewQueryReader(service),
			NewID: func() string { return "dash-1" },
		},
		Sessions:  service,
		Broadcast: dashboard.NewBroadcastHook(),
	})
	if err != nil {
		t.Fatalf("register returned error: %v", err)
	}
	for _, key := range []string{
		"GET:/api/dashboards", "POST:/api/dashboards", "GET:/api/dashboards/:id", "PUT:/api/dashboards/:id",
		"DELETE:/api/dashboards/:id", "GET:/api/dashboards/:id/layout", "POST:/api/dashboards/:id/template",
		"GET:/api/dashboards/:id/export.xlsx", "GET:/api/charts", "POST:/api/charts", "GET:/api/charts/:id",
		"PUT:/api/charts/:id", "PUT:/api/charts/:id/position", "DELETE:/api/charts/:id", "GET:/api/preview",
		"GET:/api/templates", "GET:/api/data", "GET:/api/events",
	} {
		if _, ok := mock.routes[key]; !ok {
			t.Fatalf("expected route %s", key)
		}
	}
	for _, path := range []string{"/ws", "/preview/ws"} {
		if _, ok := mock.ws[path]; !ok {
			t.Fatalf("expected websocket %s", path)
		}
	}

	create := newMockContext()
	create.body = []byte(`{"name":"Ops"}`)
	if err := mock.routes["POST:/api/dashboards"](create); err != nil {
		t.Fatalf("create handler returned error: %v", err)
	}
	if create.status != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", create.status, create.body)
	}

	missing := newMockContext()
	missing.params["id"] = "nope"
	if err := mock.routes["GET:/api/dashboards/:id"](missing); err != nil {
		t.Fatalf("get handler returned error: %v", err)
	}
	if missing.status != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", missing.status)
	}

	invalid := newMockContext()
	invalid.body = []byte(`{"dashboardId":"dash-1","title":"","dataEndpoint":"/api/data/total_revenue"}`)
	if err := mock.routes["POST:/api/charts"](invalid); err != nil {
		t.Fatalf("chart handler returned error: %v", err)
	}
	if invalid.status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", invalid.status, invalid.body)
	}

	preview := newMockContext()
	preview.query["endpoint"] = "/api/data/sales_by_category"
	if err := mock.routes["GET:/api/preview"](preview); err != nil {
		t.Fatalf("preview handler returned error: %v", err)
	}
	var result dashboard.Preview
	if err := json.Unmarshal(preview.body, &result); err != nil || !result.Available {
		t.Fatalf("unexpected preview %s (%v)", preview.body, err)
	}
}

func TestDeleteRoutesRespondWithEmptyNoContent(t *testing.T) {
	mock := newMockRouter()
	service := dashboard.NewService(dashboard.Options{Store: store.NewMemory()})
	registerTestAPI(t, mock, service)
	ctx := context.Background()

	dash, err := service.CreateDashboard(ctx, dashboard.CreateDashboardRequest{Name: "Ops"})
	if err != nil {
		t.Fatalf("create dashboard: %v", err)
	}
	chart, err := service.AddChart(ctx, dashboard.AddChartRequest{
		DashboardID:  dash.ID,
		Title:        "Revenue",
		Type:         dashboard.ChartNumber,
		DataEndpoint: "/api/data/total_revenue",
	})
	if err != nil {
		t.Fatalf("add chart: %v", err)
	}

	deleteChart := newMockContext()
	deleteChart.params["id"] = chart.ID
	if err := mock.routes["DELETE:/api/charts/:id"](deleteChart); err != nil {
		t.Fatalf("delete chart handler returned error: %v", err)
	}
	if deleteChart.status != http.StatusNoContent || len(deleteChart.body) != 0 {
		t.Fatalf("expected empty 204, got %d %q", deleteChart.status, deleteChart.body)
	}

	deleteDash := newMockContext()
	deleteDash.params["id"] = dash.ID
	if err := mock.routes["DELETE:/api/dashboards/:id"](deleteDash); err != nil {
		t.Fatalf("delete dashboard handler returned error: %v", err)
	}
	if deleteDash.status != http.StatusNoContent || len(deleteDash.body) != 0 {
		t.Fatalf("expected empty 204, got %d %q", deleteDash.status, deleteDash.body)
	}

	again := newMockContext()
	again.params["id"] = dash.ID
	if err := mock.routes["DELETE:/api/dashboards/:id"](again); err != nil {
		t.Fatalf("repeat delete handler returned error: %v", err)
	}
	if again.status != http.StatusNotFound {
		t.Fatalf("expected 404 on repeat delete, got %d", again.status)
	}
}

func TestWebSocketFollowsRequestedDashboard(t *testing.T) {
	mock := newMockRouter()
	hook := dashboard.NewBroadcastHook()
	service := dashboard.NewService(dashboard.Options{Store: store.NewMemory()})
	registerTestAPI(t, mock, service, hook)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ws := newMockWebSocket(ctx)
	ws.query["dashboardId"] = "d1"

	done := make(chan error, 1)
	go func() { done <- mock.ws["/ws"](ws) }()
	waitForSubscribers(t, hook, 1)

	_ = hook.ChartUpdated(ctx, dashboard.ChartEvent{DashboardID: "d2", Reason: "updated"})
	_ = hook.ChartUpdated(ctx, dashboard.ChartEvent{DashboardID: "d1", Reason: "created"})

	select {
	case event := <-ws.sent:
		if event.DashboardID != "d1" || event.Reason != "created" {
			t.Fatalf("expected d1 event, got %+v", event)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for event")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("websocket handler did not return")
	}
	if !ws.closed {
		t.Fatalf("expected websocket to be closed")
	}
	select {
	case event := <-ws.sent:
		t.Fatalf("unexpected extra event %+v", event)
	default:
	}
}

func TestEventsStreamFollowsRequestedDashboard(t *testing.T) {
	mock := newMockRouter()
	hook := dashboard.NewBroadcastHook()
	service := dashboard.NewService(dashboard.Options{Store: store.NewMemory()})
	registerTestAPI(t, mock, service, hook)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := newMockContext()
	events.ctx = ctx
	events.query["dashboardId"] = "d1"
	if err := mock.routes["GET:/api/events"](events); err != nil {
		t.Fatalf("events handler returned error: %v", err)
	}
	if events.headers["Content-Type"] != "text/event-stream" {
		t.Fatalf("unexpected content type %q", events.headers["Content-Type"])
	}
	if events.stream == nil {
		t.Fatalf("expected a streamed body")
	}
	waitForSubscribers(t, hook, 1)

	_ = hook.ChartUpdated(ctx, dashboard.ChartEvent{DashboardID: "d2", Reason: "updated"})
	_ = hook.ChartUpdated(ctx, dashboard.ChartEvent{DashboardID: "d1", Reason: "deleted"})

	reader := bufio.NewReader(events.stream)
	line, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if !strings.HasPrefix(line, "data: ") {
		t.Fatalf("unexpected frame %q", line)
	}
	var event dashboard.ChartEvent
	if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event); err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	if event.DashboardID != "d1" || event.Reason != "deleted" {
		t.Fatalf("expected d1 event, got %+v", event)
	}

	cancel()
	if _, err := io.ReadAll(reader); err == nil {
		t.Fatalf("expected stream to end with the request context")
	}
	waitForSubscribers(t, hook, 0)
}

// --- Test helpers ---

func registerTestAPI(t *testing.T, mock *mockRouter, service *dashboard.Service, hooks ...*dashboard.BroadcastHook) {
	t.Helper()
	cfg := Config[struct{}]{
		Router:     mock,
		Controller: dashboard.NewController(dashboard.ControllerOptions{Service: service, Renderer: &stubRenderer{}}),
		API: httpapi.Actions{
			Exec: httpapi.NewCommandExecutor(service, nil),
			Read: httpapi.NewQueryReader(service),
		},
	}
	if len(hooks) > 0 {
		cfg.Broadcast = hooks[0]
	}
	if err := Register(cfg); err != nil {
		t.Fatalf("register returned error: %v", err)
	}
}

func waitForSubscribers(t *testing.T, hook *dashboard.BroadcastHook, want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for hook.Subscribers() != want {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d subscribers, got %d", want, hook.Subscribers())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

type mockRouter struct {
	router.Router[struct{}]
	prefix string
	routes map[string]router.HandlerFunc
	ws     map[string]func(router.WebSocketContext) error
}

func newMockRouter() *mockRouter {
	return &mockRouter{
		routes: map[string]router.HandlerFunc{},
		ws:     map[string]func(router.WebSocketContext) error{},
	}
}

func (m *mockRouter) Group(prefix string) router.Router[struct{}] {
	return &mockRouter{
		prefix: m.prefix + prefix,
		routes: m.routes,
		ws:     m.ws,
	}
}

func (m *mockRouter) record(method, path string, handler router.HandlerFunc) {
	full := m.prefix + path
	m.routes[method+":"+full] = handler
}

func (m *mockRouter) Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo {
	m.record(string(router.GET), path, handler)
	return mockRouteInfo{}
}

func (m *mockRouter) Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo {
	m.record(string(router.POST), path, handler)
	return mockRouteInfo{}
}

func (m *mockRouter) Put(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo {
	m.record(string(router.PUT), path, handler)
	return mockRouteInfo{}
}

func (m *mockRouter) Delete(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo {
	m.record(string(router.DELETE), path, handler)
	return mockRouteInfo{}
}

func (m *mockRouter) WebSocket(path string, cfg router.WebSocketConfig, handler func(router.WebSocketContext) error) router.RouteInfo {
	full := m.prefix + path
	m.ws[full] = handler
	return mockRouteInfo{}
}

type mockRouteInfo struct {
	router.RouteInfo
}

func (mockRouteInfo) SetName(string) router.RouteInfo { return mockRouteInfo{} }

// routerContext lets mockContext embed router.Context while defining Context().
type routerContext = router.Context

type mockContext struct {
	routerContext
	ctx     context.Context
	headers map[string]string
	body    []byte
	params  map[string]string
	query   map[string]string
	status  int
	stream  io.Reader
}

func newMockContext() *mockContext {
	return &mockContext{
		ctx:     context.Background(),
		headers: map[string]string{},
		params:  map[string]string{},
		query:   map[string]string{},
	}
}

func (m *mockContext) Context() context.Context {
	return m.ctx
}

func (m *mockContext) SetHeader(k, v string) router.Context {
	m.headers[k] = v
	return m
}

func (m *mockContext) Send(b []byte) error {
	m.status = http.StatusOK
	m.body = append([]byte{}, b...)
	return nil
}

func (m *mockContext) JSON(code int, v any) error {
	m.status = code
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.body = data
	return nil
}

func (m *mockContext) NoContent(code int) error {
	m.status = code
	m.body = nil
	return nil
}

func (m *mockContext) SendStream(r io.Reader) error {
	m.status = http.StatusOK
	m.stream = r
	return nil
}

func (m *mockContext) Body() []byte { return m.body }

func (m *mockContext) Param(name string, defaultValue ...string) string {
	if v, ok := m.params[name]; ok {
		return v
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (m *mockContext) Query(name string, defaultValue ...string) string {
	if v, ok := m.query[name]; ok {
		return v
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

type routerWebSocket = router.WebSocketContext

type mockWebSocket struct {
	routerWebSocket
	ctx    context.Context
	query  map[string]string
	sent   chan dashboard.ChartEvent
	mu     sync.Mutex
	closed bool
}

func newMockWebSocket(ctx context.Context) *mockWebSocket {
	return &mockWebSocket{
		ctx:   ctx,
		query: map[string]string{},
		sent:  make(chan dashboard.ChartEvent, 8),
	}
}

func (m *mockWebSocket) Context() context.Context { return m.ctx }

func (m *mockWebSocket) Query(name string, defaultValue ...string) string {
	if v, ok := m.query[name]; ok {
		return v
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (m *mockWebSocket) WriteJSON(v any) error {
	event, ok := v.(dashboard.ChartEvent)
	if !ok {
		return nil
	}
	m.sent <- event
	return nil
}

func (m *mockWebSocket) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

type stubLayoutResolver struct {
	layout dashboard.Layout
	err    error
}

func (s *stubLayoutResolver) ListDashboards(context.Context) ([]dashboard.Dashboard, error) {
	return []dashboard.Dashboard{s.layout.Dashboard}, s.err
}

func (s *stubLayoutResolver) DashboardLayout(context.Context, string) (dashboard.Layout, error) {
	return s.layout, s.err
}

type stubRenderer struct {
	calls int
}

func (s *stubRenderer) Render(name string, data any, out ...io.Writer) (string, error) {
	s.calls++
	if len(out) > 0 && out[0] != nil {
		out[0].Write([]byte("ok"))
	}
	return "ok", nil
}
