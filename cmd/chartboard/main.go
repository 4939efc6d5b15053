package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	router "github.com/goliatone/go-router"
	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-chartboard/components/dashboard"
	"github.com/goliatone/go-chartboard/components/dashboard/commands"
	"github.com/goliatone/go-chartboard/components/dashboard/gorouter"
	"github.com/goliatone/go-chartboard/components/dashboard/httpapi"
	"github.com/goliatone/go-chartboard/pkg/config"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("load config")
	}
	if cfg.Debug {
		logger.SetLevel(logrus.DebugLevel)
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Fatal("chartboard stopped")
	}
	logger.Info("shutdown complete")
}

func run(ctx context.Context, cfg config.Config, logger *logrus.Logger) error {
	app, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	seed := commands.NewSeedDemoCommand(app.service, app.telemetry)
	if err := seed.Execute(ctx, commands.SeedDemoInput{}); err != nil {
		return err
	}

	renderer, err := dashboard.NewTemplateRenderer()
	if err != nil {
		return err
	}
	controller := dashboard.NewController(dashboard.ControllerOptions{
		Service:        app.service,
		Renderer:       renderer,
		Charts:         dashboard.NewEChartsRenderer(dashboard.WithChartCache(app.charts)),
		Fetcher:        app.fetcher,
		PreviewTimeout: cfg.PreviewTimeout,
	})

	server := router.NewFiberAdapter()
	if err := gorouter.Register(gorouter.Config[*fiber.App]{
		Router:     server.Router(),
		Controller: controller,
		API: httpapi.Actions{
			Exec: httpapi.NewCommandExecutor(app.service, app.telemetry),
			Read: httpapi.NewQueryReader(app.service),
		},
		Data:      app.registry,
		Fetcher:   app.fetcher,
		Sessions:  app.service,
		Broadcast: app.broadcast,
	}); err != nil {
		return err
	}

	errs := make(chan error, 1)
	go func() {
		logger.WithFields(logrus.Fields{"addr": cfg.Addr, "store": cfg.Store}).Info("chartboard listening")
		errs <- server.Serve(cfg.Addr)
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
