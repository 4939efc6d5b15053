package dashboard

import (
	"bufio"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestBroadcastHookSubscribe(t *testing.T) {
	hook := NewBroadcastHook()
	ch, cancel := hook.Subscribe("d1")
	defer cancel()
	other, cancelOther := hook.Subscribe("d2")
	defer cancelOther()

	event := ChartEvent{DashboardID: "d1", Reason: "add"}
	if err := hook.ChartUpdated(context.Background(), event); err != nil {
		t.Fatalf("ChartUpdated returned error: %v", err)
	}
	select {
	case e := <-ch:
		if e.DashboardID != event.DashboardID || e.Reason != "add" {
			t.Fatalf("unexpected event %+v", e)
		}
	default:
		t.Fatalf("expected event to be delivered")
	}
	select {
	case e := <-other:
		t.Fatalf("expected other dashboard to be filtered, got %+v", e)
	default:
	}
}

func TestBroadcastHookWildcardAndCancel(t *testing.T) {
	hook := NewBroadcastHook()
	all, cancel := hook.Subscribe("")
	if hook.Subscribers() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", hook.Subscribers())
	}
	_ = hook.ChartUpdated(context.Background(), ChartEvent{DashboardID: "any"})
	if e := <-all; e.DashboardID != "any" {
		t.Fatalf("unexpected event %+v", e)
	}
	cancel()
	cancel()
	if hook.Subscribers() != 0 {
		t.Fatalf("expected subscription to be removed")
	}
	if _, ok := <-all; ok {
		t.Fatalf("expected channel to be closed")
	}
}

func TestBroadcastHookDropsForSlowSubscribers(t *testing.T) {
	hook := NewBroadcastHook()
	_, cancel := hook.Subscribe("")
	defer cancel()
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			_ = hook.ChartUpdated(context.Background(), ChartEvent{DashboardID: "d"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("ChartUpdated blocked on a full subscriber")
	}
}

func TestBroadcastHookStreamStopsOnSendError(t *testing.T) {
	hook := NewBroadcastHook()
	errStop := errors.New("stop")
	result := make(chan error, 1)
	go func() {
		result <- hook.Stream(context.Background(), "d1", func(ChartEvent) error { return errStop })
	}()
	waitForSubscribers(t, hook, 1)
	_ = hook.ChartUpdated(context.Background(), ChartEvent{DashboardID: "d1"})
	if err := <-result; !errors.Is(err, errStop) {
		t.Fatalf("expected send error, got %v", err)
	}
	if hook.Subscribers() != 0 {
		t.Fatalf("expected stream to unsubscribe")
	}
}

func TestBroadcastHookServeWebSocket(t *testing.T) {
	hook := NewBroadcastHook()
	server := httptest.NewServer(http.HandlerFunc(hook.ServeWebSocket))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "?dashboardId=d1"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	waitForSubscribers(t, hook, 1)

	_ = hook.ChartUpdated(context.Background(), ChartEvent{DashboardID: "d2", Reason: "ignored"})
	_ = hook.ChartUpdated(context.Background(), ChartEvent{DashboardID: "d1", Reason: "move", Chart: &Chart{ID: "c1"}})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event ChartEvent
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("read: %v", err)
	}
	if event.Reason != "move" || event.Chart == nil || event.Chart.ID != "c1" {
		t.Fatalf("unexpected event %+v", event)
	}
}

func TestBroadcastHookServeSSE(t *testing.T) {
	hook := NewBroadcastHook()
	server := httptest.NewServer(http.HandlerFunc(hook.ServeSSE))
	t.Cleanup(server.Close)

	resp, err := http.Get(server.URL + "?dashboardId=d1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %s", ct)
	}
	waitForSubscribers(t, hook, 1)
	_ = hook.ChartUpdated(context.Background(), ChartEvent{DashboardID: "d1", Reason: "add"})

	line, err := bufio.NewReader(resp.Body).ReadString('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.HasPrefix(line, "data: ") || !strings.Contains(line, `"reason":"add"`) {
		t.Fatalf("unexpected SSE line %q", line)
	}
}

func TestMultiHookStopsAtFirstError(t *testing.T) {
	first := &collectingHook{}
	second := &collectingHook{}
	failing := refreshHookFunc(func(context.Context, ChartEvent) error { return errors.New("boom") })
	hooks := MultiHook{first, nil, failing, second}
	if err := hooks.ChartUpdated(context.Background(), ChartEvent{DashboardID: "d"}); err == nil {
		t.Fatalf("expected error")
	}
	if len(first.events) != 1 || len(second.events) != 0 {
		t.Fatalf("unexpected calls: first=%d second=%d", len(first.events), len(second.events))
	}
}

type refreshHookFunc func(context.Context, ChartEvent) error

func (f refreshHookFunc) ChartUpdated(ctx context.Context, event ChartEvent) error {
	return f(ctx, event)
}

func waitForSubscribers(t *testing.T, hook *BroadcastHook, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hook.Subscribers() == n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %d subscribers, got %d", n, hook.Subscribers())
}
