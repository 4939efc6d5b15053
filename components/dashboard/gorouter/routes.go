package gorouter

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"

	router "github.com/goliatone/go-router"

	"github.com/goliatone/go-chartboard/components/dashboard"
	"github.com/goliatone/go-chartboard/components/dashboard/commands"
	"github.com/goliatone/go-chartboard/components/dashboard/export"
	"github.com/goliatone/go-chartboard/components/dashboard/httpapi"
)

// Config wires go-router with the dashboard controller, APIs, and hooks.
type Config[T any] struct {
	Router     router.Router[T]
	Controller *dashboard.Controller
	API        httpapi.Actions
	Data       *dashboard.Registry
	Fetcher    dashboard.DataFetcher
	Sessions   httpapi.PreviewSessions
	Broadcast  *dashboard.BroadcastHook
	BasePath   string
	Routes     RouteConfig
}

// RouteConfig customizes the relative paths used for dashboard endpoints.
type RouteConfig struct {
	Index         string
	HTML          string
	Payload       string
	API           string
	Events        string
	WebSocket     string
	PreviewSocket string
}

// Register mounts dashboard routes (HTML, REST, sample data, WebSockets) on a go-router router.
func Register[T any](cfg Config[T]) error {
	if cfg.Router == nil {
		return errors.New("gorouter: router is required")
	}
	if cfg.Controller == nil {
		return errors.New("gorouter: controller is required")
	}
	routes := defaultRouteConfig(cfg.Routes)
	group := cfg.Router.Group(cfg.BasePath)

	group.Get(routes.Index, router.WrapHandler(func(ctx router.Context) error {
		var buf bytes.Buffer
		if err := cfg.Controller.RenderIndex(ctx.Context(), &buf); err != nil {
			return respondError(ctx, err)
		}
		ctx.SetHeader("Content-Type", "text/html; charset=utf-8")
		return ctx.Send(buf.Bytes())
	}))

	group.Get(routes.HTML, router.WrapHandler(func(ctx router.Context) error {
		var buf bytes.Buffer
		if err := cfg.Controller.RenderTemplate(ctx.Context(), ctx.Param("id"), &buf); err != nil {
			return respondError(ctx, err)
		}
		ctx.SetHeader("Content-Type", "text/html; charset=utf-8")
		return ctx.Send(buf.Bytes())
	}))

	group.Get(routes.Payload, router.WrapHandler(func(ctx router.Context) error {
		payload, err := cfg.Controller.LayoutPayload(ctx.Context(), ctx.Param("id"))
		if err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusOK, payload)
	}))

	api := group.Group(routes.API)
	registerData(api, cfg)
	if cfg.API.Exec != nil && cfg.API.Read != nil {
		registerAPI(api, cfg)
	}

	if cfg.Broadcast != nil {
		registerEvents(api, cfg.Broadcast, routes.Events)
		registerWebSocket(group, cfg.Broadcast, routes.WebSocket)
	}
	if cfg.Sessions != nil {
		registerPreviewSocket(group, cfg.Sessions, routes.PreviewSocket)
	}
	return nil
}

var sampleRegistry = sync.OnceValue(dashboard.NewRegistry)

func registerData[T any](r router.Router[T], cfg Config[T]) {
	registry := cfg.Data
	if registry == nil {
		registry = sampleRegistry()
	}

	r.Get("/data", router.WrapHandler(func(ctx router.Context) error {
		return ctx.JSON(http.StatusOK, registry.Sources())
	}))

	r.Get("/data/:name", router.WrapHandler(func(ctx router.Context) error {
		raw, err := registry.Payload(ctx.Context(), ctx.Param("name"))
		if err != nil {
			return respondError(ctx, err)
		}
		ctx.SetHeader("Content-Type", "application/json")
		return ctx.Send(raw)
	}))

	r.Get("/templates", router.WrapHandler(func(ctx router.Context) error {
		return ctx.JSON(http.StatusOK, dashboard.Templates())
	}))
}

func registerAPI[T any](r router.Router[T], cfg Config[T]) {
	api := cfg.API
	fetcher := cfg.Fetcher
	if fetcher == nil {
		registry := cfg.Data
		if registry == nil {
			registry = sampleRegistry()
		}
		fetcher = dashboard.RegistryFetcher{Registry: registry}
	}

	r.Get("/dashboards", router.WrapHandler(func(ctx router.Context) error {
		dashboards, err := api.Read.Dashboards(ctx.Context())
		if err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusOK, dashboards)
	}))

	r.Post("/dashboards", router.WrapHandler(func(ctx router.Context) error {
		var payload dashboard.CreateDashboardRequest
		if err := httpapi.DecodeBody(ctx.Body(), &payload); err != nil {
			return respondError(ctx, err)
		}
		dash, err := api.CreateDashboard(ctx.Context(), payload)
		if err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusCreated, dash)
	}))

	r.Get("/dashboards/:id", router.WrapHandler(func(ctx router.Context) error {
		dash, err := api.Read.Dashboard(ctx.Context(), ctx.Param("id"))
		if err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusOK, dash)
	}))

	r.Put("/dashboards/:id", router.WrapHandler(func(ctx router.Context) error {
		var patch dashboard.DashboardPatch
		if err := httpapi.DecodeBody(ctx.Body(), &patch); err != nil {
			return respondError(ctx, err)
		}
		dash, err := api.UpdateDashboard(ctx.Context(), ctx.Param("id"), patch)
		if err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusOK, dash)
	}))

	r.Delete("/dashboards/:id", router.WrapHandler(func(ctx router.Context) error {
		input := commands.DeleteDashboardInput{DashboardID: ctx.Param("id")}
		if err := api.Exec.DeleteDashboard(ctx.Context(), input); err != nil {
			return respondError(ctx, err)
		}
		return ctx.NoContent(http.StatusNoContent)
	}))

	r.Get("/dashboards/:id/layout", router.WrapHandler(func(ctx router.Context) error {
		layout, err := api.Read.Layout(ctx.Context(), ctx.Param("id"))
		if err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusOK, layout)
	}))

	r.Post("/dashboards/:id/template", router.WrapHandler(func(ctx router.Context) error {
		var payload httpapi.TemplateRequest
		if err := httpapi.DecodeBody(ctx.Body(), &payload); err != nil {
			return respondError(ctx, err)
		}
		layout, err := api.ApplyTemplate(ctx.Context(), ctx.Param("id"), payload.TemplateID)
		if err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusOK, layout)
	}))

	r.Get("/dashboards/:id/export.xlsx", router.WrapHandler(func(ctx router.Context) error {
		layout, err := api.Read.Layout(ctx.Context(), ctx.Param("id"))
		if err != nil {
			return respondError(ctx, err)
		}
		buf, err := export.Workbook(ctx.Context(), layout, export.Options{Fetcher: fetcher})
		if err != nil {
			return respondError(ctx, err)
		}
		ctx.SetHeader("Content-Type", export.ContentType)
		ctx.SetHeader("Content-Disposition", `attachment; filename="`+export.Filename(layout.Dashboard)+`"`)
		return ctx.Send(buf.Bytes())
	}))

	r.Get("/charts", router.WrapHandler(func(ctx router.Context) error {
		charts, err := api.Read.Charts(ctx.Context(), ctx.Query("dashboardId"))
		if err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusOK, charts)
	}))

	r.Post("/charts", router.WrapHandler(func(ctx router.Context) error {
		var payload dashboard.AddChartRequest
		if err := httpapi.DecodeBody(ctx.Body(), &payload); err != nil {
			return respondError(ctx, err)
		}
		chart, err := api.AddChart(ctx.Context(), payload)
		if err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusCreated, chart)
	}))

	r.Get("/charts/:id", router.WrapHandler(func(ctx router.Context) error {
		chart, err := api.Read.Chart(ctx.Context(), ctx.Param("id"))
		if err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusOK, chart)
	}))

	r.Put("/charts/:id", router.WrapHandler(func(ctx router.Context) error {
		var patch dashboard.ChartPatch
		if err := httpapi.DecodeBody(ctx.Body(), &patch); err != nil {
			return respondError(ctx, err)
		}
		chart, err := api.UpdateChart(ctx.Context(), ctx.Param("id"), patch)
		if err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusOK, chart)
	}))

	r.Put("/charts/:id/position", router.WrapHandler(func(ctx router.Context) error {
		var rect dashboard.Rect
		if err := httpapi.DecodeBody(ctx.Body(), &rect); err != nil {
			return respondError(ctx, err)
		}
		chart, err := api.MoveChart(ctx.Context(), ctx.Param("id"), rect)
		if err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusOK, chart)
	}))

	r.Delete("/charts/:id", router.WrapHandler(func(ctx router.Context) error {
		input := commands.DeleteChartInput{ChartID: ctx.Param("id")}
		if err := api.Exec.DeleteChart(ctx.Context(), input); err != nil {
			return respondError(ctx, err)
		}
		return ctx.NoContent(http.StatusNoContent)
	}))

	r.Get("/preview", router.WrapHandler(func(ctx router.Context) error {
		preview, err := api.Read.Preview(ctx.Context(), ctx.Query("endpoint"))
		if err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusOK, preview)
	}))
}

func registerWebSocket[T any](r router.Router[T], hook *dashboard.BroadcastHook, path string) {
	cfg := router.DefaultWebSocketConfig()
	r.WebSocket(path, cfg, func(ws router.WebSocketContext) error {
		err := hook.Stream(ws.Context(), ws.Query("dashboardId"), func(event dashboard.ChartEvent) error {
			return ws.WriteJSON(event)
		})
		if ws.Context().Err() != nil {
			return ws.Close()
		}
		return err
	})
}

// registerEvents streams chart events as Server-Sent Events, narrowed by the
// dashboardId query parameter.
func registerEvents[T any](r router.Router[T], hook *dashboard.BroadcastHook, path string) {
	r.Get(path, router.WrapHandler(func(ctx router.Context) error {
		ctx.SetHeader("Content-Type", "text/event-stream")
		ctx.SetHeader("Cache-Control", "no-cache")
		ctx.SetHeader("Connection", "keep-alive")
		ctx.SetHeader("X-Accel-Buffering", "no")

		streamCtx, dashboardID := ctx.Context(), ctx.Query("dashboardId")
		reader, writer := io.Pipe()
		go func() {
			err := hook.Stream(streamCtx, dashboardID, func(event dashboard.ChartEvent) error {
				return writeEvent(writer, event)
			})
			_ = writer.CloseWithError(err)
		}()
		return ctx.SendStream(reader)
	}))
}

func writeEvent(w io.Writer, event dashboard.ChartEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	frame := make([]byte, 0, len(data)+8)
	frame = append(frame, "data: "...)
	frame = append(frame, data...)
	frame = append(frame, '\n', '\n')
	_, err = w.Write(frame)
	return err
}

func registerPreviewSocket[T any](r router.Router[T], sessions httpapi.PreviewSessions, path string) {
	cfg := router.DefaultWebSocketConfig()
	r.WebSocket(path, cfg, func(ws router.WebSocketContext) error {
		read := func(cmd *dashboard.PreviewCommand) error { return ws.ReadJSON(cmd) }
		_ = httpapi.RunPreviewSession(ws.Context(), sessions, read, httpapi.NewPreviewWriter(ws.WriteJSON))
		return ws.Close()
	})
}

func respondError(ctx router.Context, err error) error {
	return ctx.JSON(httpapi.StatusFor(err), httpapi.ErrorBody(err))
}

func defaultRouteConfig(routes RouteConfig) RouteConfig {
	if routes.Index == "" {
		routes.Index = "/"
	}
	if routes.HTML == "" {
		routes.HTML = "/dashboards/:id"
	}
	if routes.Payload == "" {
		routes.Payload = "/dashboards/:id/_payload"
	}
	if routes.API == "" {
		routes.API = "/api"
	}
	if routes.Events == "" {
		routes.Events = "/events"
	}
	if routes.WebSocket == "" {
		routes.WebSocket = "/ws"
	}
	if routes.PreviewSocket == "" {
		routes.PreviewSocket = "/preview/ws"
	}
	return routes
}
