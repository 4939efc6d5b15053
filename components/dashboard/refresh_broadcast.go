package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// BroadcastHook fans out chart events to in-process subscribers. Subscribers
// either follow one dashboard or, with an empty id, every dashboard.
type BroadcastHook struct {
	mu   sync.RWMutex
	subs map[int]subscription
	next int
}

type subscription struct {
	dashboardID string
	ch          chan ChartEvent
}

// NewBroadcastHook creates a broadcast hook.
func NewBroadcastHook() *BroadcastHook {
	return &BroadcastHook{subs: make(map[int]subscription)}
}

// ChartUpdated satisfies the RefreshHook interface and broadcasts events.
// Slow subscribers miss events instead of blocking the writer.
func (h *BroadcastHook) ChartUpdated(_ context.Context, event ChartEvent) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs {
		if sub.dashboardID != "" && sub.dashboardID != event.DashboardID {
			continue
		}
		select {
		case sub.ch <- event:
		default:
		}
	}
	return nil
}

// Subscribe returns a channel of chart events for dashboardID and a cancel func.
func (h *BroadcastHook) Subscribe(dashboardID string) (<-chan ChartEvent, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.next
	h.next++
	ch := make(chan ChartEvent, 8)
	h.subs[id] = subscription{dashboardID: dashboardID, ch: ch}
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if sub, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(sub.ch)
			}
		})
	}
	return ch, cancel
}

// Subscribers reports the number of active subscriptions.
func (h *BroadcastHook) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Stream forwards events for dashboardID to send until ctx ends or send fails.
func (h *BroadcastHook) Stream(ctx context.Context, dashboardID string, send func(ChartEvent) error) error {
	events, cancel := h.Subscribe(dashboardID)
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if err := send(event); err != nil {
				return err
			}
		}
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket upgrades the request and streams chart events as JSON. The
// dashboardId query parameter narrows the stream.
func (h *BroadcastHook) ServeWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	_ = h.Stream(r.Context(), r.URL.Query().Get("dashboardId"), func(event ChartEvent) error {
		return conn.WriteJSON(event)
	})
}

// ServeSSE provides a Server-Sent Events endpoint for refresh events.
func (h *BroadcastHook) ServeSSE(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	encoder := json.NewEncoder(w)
	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}

	_ = h.Stream(r.Context(), r.URL.Query().Get("dashboardId"), func(event ChartEvent) error {
		if _, err := w.Write([]byte("data: ")); err != nil {
			return err
		}
		if err := encoder.Encode(event); err != nil {
			return err
		}
		if _, err := w.Write([]byte("\n")); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	})
}

// MultiHook calls every hook in order and stops at the first error.
type MultiHook []RefreshHook

// ChartUpdated implements RefreshHook.
func (m MultiHook) ChartUpdated(ctx context.Context, event ChartEvent) error {
	for _, hook := range m {
		if hook == nil {
			continue
		}
		if err := hook.ChartUpdated(ctx, event); err != nil {
			return err
		}
	}
	return nil
}
