// Package httpapi exposes the dashboard builder over net/http on top of the
// shared commands and queries.
package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/goliatone/go-chartboard/components/dashboard"
	"github.com/goliatone/go-chartboard/components/dashboard/commands"
	"github.com/goliatone/go-chartboard/components/dashboard/export"
)

const maxBodyBytes = 1 << 20

// PreviewSessions creates preview sessions for the preview socket.
type PreviewSessions interface {
	NewPreviewSession(opts ...dashboard.PreviewOption) *dashboard.PreviewSession
}

// Handlers exposes HTTP endpoints backed by shared commands and queries.
type Handlers struct {
	Actions
	Data      *dashboard.Registry
	Fetcher   dashboard.DataFetcher
	Sessions  PreviewSessions
	Broadcast *dashboard.BroadcastHook
}

// Mount registers the REST routes on mux under base (for example "/api").
// The event and preview sockets are mounted at /ws and /preview/ws.
func (h *Handlers) Mount(mux *http.ServeMux, base string) {
	base = strings.TrimRight(base, "/")
	withID := func(fn func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			fn(w, r, r.PathValue("id"))
		}
	}

	mux.HandleFunc("GET "+base+"/dashboards", h.HandleListDashboards)
	mux.HandleFunc("POST "+base+"/dashboards", h.HandleCreateDashboard)
	mux.HandleFunc("GET "+base+"/dashboards/{id}", withID(h.HandleGetDashboard))
	mux.HandleFunc("PUT "+base+"/dashboards/{id}", withID(h.HandleUpdateDashboard))
	mux.HandleFunc("DELETE "+base+"/dashboards/{id}", withID(h.HandleDeleteDashboard))
	mux.HandleFunc("GET "+base+"/dashboards/{id}/layout", withID(h.HandleLayout))
	mux.HandleFunc("POST "+base+"/dashboards/{id}/template", withID(h.HandleApplyTemplate))
	mux.HandleFunc("GET "+base+"/dashboards/{id}/export.xlsx", withID(h.HandleExport))

	mux.HandleFunc("GET "+base+"/charts", h.HandleListCharts)
	mux.HandleFunc("POST "+base+"/charts", h.HandleCreateChart)
	mux.HandleFunc("GET "+base+"/charts/{id}", withID(h.HandleGetChart))
	mux.HandleFunc("PUT "+base+"/charts/{id}", withID(h.HandleUpdateChart))
	mux.HandleFunc("DELETE "+base+"/charts/{id}", withID(h.HandleDeleteChart))
	mux.HandleFunc("PUT "+base+"/charts/{id}/position", withID(h.HandleMoveChart))

	mux.HandleFunc("GET "+base+"/preview", h.HandlePreview)
	mux.HandleFunc("GET "+base+"/templates", h.HandleTemplates)
	mux.HandleFunc("GET "+base+"/data", h.HandleListSources)
	mux.HandleFunc("GET "+base+"/data/{id}", withID(h.HandleData))

	if h.Sessions != nil {
		mux.HandleFunc("GET /preview/ws", h.ServePreviewWebSocket)
	}
	if h.Broadcast != nil {
		mux.HandleFunc("GET /ws", h.Broadcast.ServeWebSocket)
		mux.HandleFunc("GET "+base+"/events", h.Broadcast.ServeSSE)
	}
}

func (h *Handlers) HandleListDashboards(w http.ResponseWriter, r *http.Request) {
	if err := h.ready(); err != nil {
		writeError(w, err)
		return
	}
	dashboards, err := h.Read.Dashboards(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboards)
}

func (h *Handlers) HandleCreateDashboard(w http.ResponseWriter, r *http.Request) {
	var payload dashboard.CreateDashboardRequest
	if err := decodeRequest(r, &payload); err != nil {
		writeError(w, err)
		return
	}
	dash, err := h.CreateDashboard(r.Context(), payload)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, dash)
}

func (h *Handlers) HandleGetDashboard(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.ready(); err != nil {
		writeError(w, err)
		return
	}
	dash, err := h.Read.Dashboard(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dash)
}

func (h *Handlers) HandleUpdateDashboard(w http.ResponseWriter, r *http.Request, id string) {
	var patch dashboard.DashboardPatch
	if err := decodeRequest(r, &patch); err != nil {
		writeError(w, err)
		return
	}
	dash, err := h.UpdateDashboard(r.Context(), id, patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dash)
}

func (h *Handlers) HandleDeleteDashboard(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.ready(); err != nil {
		writeError(w, err)
		return
	}
	if err := h.Exec.DeleteDashboard(r.Context(), commands.DeleteDashboardInput{DashboardID: id}); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) HandleLayout(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.ready(); err != nil {
		writeError(w, err)
		return
	}
	layout, err := h.Read.Layout(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, layout)
}

func (h *Handlers) HandleApplyTemplate(w http.ResponseWriter, r *http.Request, id string) {
	var payload TemplateRequest
	if err := decodeRequest(r, &payload); err != nil {
		writeError(w, err)
		return
	}
	layout, err := h.ApplyTemplate(r.Context(), id, payload.TemplateID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, layout)
}

func (h *Handlers) HandleExport(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.ready(); err != nil {
		writeError(w, err)
		return
	}
	layout, err := h.Read.Layout(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	buf, err := export.Workbook(r.Context(), layout, export.Options{Fetcher: h.fetcher()})
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(layout.Dashboard)+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handlers) HandleListCharts(w http.ResponseWriter, r *http.Request) {
	if err := h.ready(); err != nil {
		writeError(w, err)
		return
	}
	charts, err := h.Read.Charts(r.Context(), r.URL.Query().Get("dashboardId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, charts)
}

func (h *Handlers) HandleCreateChart(w http.ResponseWriter, r *http.Request) {
	var payload dashboard.AddChartRequest
	if err := decodeRequest(r, &payload); err != nil {
		writeError(w, err)
		return
	}
	chart, err := h.AddChart(r.Context(), payload)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, chart)
}

func (h *Handlers) HandleGetChart(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.ready(); err != nil {
		writeError(w, err)
		return
	}
	chart, err := h.Read.Chart(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chart)
}

func (h *Handlers) HandleUpdateChart(w http.ResponseWriter, r *http.Request, id string) {
	var patch dashboard.ChartPatch
	if err := decodeRequest(r, &patch); err != nil {
		writeError(w, err)
		return
	}
	chart, err := h.UpdateChart(r.Context(), id, patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chart)
}

func (h *Handlers) HandleMoveChart(w http.ResponseWriter, r *http.Request, id string) {
	var rect dashboard.Rect
	if err := decodeRequest(r, &rect); err != nil {
		writeError(w, err)
		return
	}
	chart, err := h.MoveChart(r.Context(), id, rect)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chart)
}

func (h *Handlers) HandleDeleteChart(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.ready(); err != nil {
		writeError(w, err)
		return
	}
	if err := h.Exec.DeleteChart(r.Context(), commands.DeleteChartInput{ChartID: id}); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandlePreview always answers 200; unavailable endpoints are reported in the body.
func (h *Handlers) HandlePreview(w http.ResponseWriter, r *http.Request) {
	if err := h.ready(); err != nil {
		writeError(w, err)
		return
	}
	preview, err := h.Read.Preview(r.Context(), r.URL.Query().Get("endpoint"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

func (h *Handlers) HandleTemplates(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, dashboard.Templates())
}

func (h *Handlers) HandleListSources(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.registry().Sources())
}

func (h *Handlers) HandleData(w http.ResponseWriter, r *http.Request, name string) {
	raw, err := h.registry().Payload(r.Context(), name)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

var sampleRegistry = sync.OnceValue(dashboard.NewRegistry)

func (h *Handlers) registry() *dashboard.Registry {
	if h.Data != nil {
		return h.Data
	}
	return sampleRegistry()
}

func (h *Handlers) fetcher() dashboard.DataFetcher {
	if h.Fetcher != nil {
		return h.Fetcher
	}
	return dashboard.RegistryFetcher{Registry: h.registry()}
}

func decodeRequest(r *http.Request, v any) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return err
	}
	return DecodeBody(data, v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, StatusFor(err), ErrorBody(err))
}
