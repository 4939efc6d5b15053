package httpapi

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/goliatone/go-chartboard/components/dashboard"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// PreviewMessage is written to preview socket clients after every accepted
// state change and after every rejected command.
type PreviewMessage struct {
	Snapshot *dashboard.PreviewSnapshot `json:"snapshot,omitempty"`
	Error    string                     `json:"error,omitempty"`
}

// PreviewWriter serializes writes for a single socket connection.
type PreviewWriter struct {
	mu    sync.Mutex
	write func(any) error
}

// NewPreviewWriter wraps a JSON write function.
func NewPreviewWriter(write func(any) error) *PreviewWriter {
	return &PreviewWriter{write: write}
}

// Snapshot sends a state change.
func (p *PreviewWriter) Snapshot(snapshot dashboard.PreviewSnapshot) error {
	return p.send(PreviewMessage{Snapshot: &snapshot})
}

// Error sends a rejected command.
func (p *PreviewWriter) Error(err error) error {
	return p.send(PreviewMessage{Error: err.Error()})
}

func (p *PreviewWriter) send(msg PreviewMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.write(msg)
}

// RunPreviewSession reads commands until read fails and applies them to a
// fresh session. Only the latest select is ever reported as ready or failed.
func RunPreviewSession(ctx context.Context, sessions PreviewSessions, read func(*dashboard.PreviewCommand) error, out *PreviewWriter) error {
	ctx, cancel := context.WithCancel(ctx)
	session := sessions.NewPreviewSession(dashboard.WithPreviewListener(func(snapshot dashboard.PreviewSnapshot) {
		_ = out.Snapshot(snapshot)
	}))
	defer session.Wait()
	defer cancel()

	for {
		var cmd dashboard.PreviewCommand
		if err := read(&cmd); err != nil {
			return err
		}
		if _, err := session.Apply(ctx, cmd); err != nil {
			if writeErr := out.Error(err); writeErr != nil {
				return writeErr
			}
		}
	}
}

// ServePreviewWebSocket upgrades the request and drives a preview session
// from JSON commands sent by the chart form.
func (h *Handlers) ServePreviewWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	read := func(cmd *dashboard.PreviewCommand) error { return conn.ReadJSON(cmd) }
	_ = RunPreviewSession(r.Context(), h.Sessions, read, NewPreviewWriter(conn.WriteJSON))
}
