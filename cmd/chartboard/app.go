package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-chartboard/components/dashboard"
	"github.com/goliatone/go-chartboard/components/dashboard/store"
	"github.com/goliatone/go-chartboard/pkg/config"
	"github.com/goliatone/go-chartboard/pkg/datasource"
)

// app holds the wired server dependencies.
type app struct {
	service   *dashboard.Service
	registry  *dashboard.Registry
	fetcher   dashboard.DataFetcher
	broadcast *dashboard.BroadcastHook
	charts    *dashboard.ChartCache
	telemetry *dashboard.LogTelemetry
	closers   []io.Closer
}

// Close releases stores and clients in reverse order of creation.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func buildApp(ctx context.Context, cfg config.Config, logger logrus.FieldLogger) (*app, error) {
	a := &app{telemetry: dashboard.NewLogTelemetry(logger)}

	base, err := openStore(cfg, a)
	if err != nil {
		return nil, err
	}
	st, err := withRedisCache(ctx, cfg, base, a)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.registry = dashboard.NewRegistry()
	if cfg.Catalog != "" {
		doc, err := a.registry.LoadCatalogFile(cfg.Catalog)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		logger.WithFields(logrus.Fields{"catalog": cfg.Catalog, "sources": len(doc.Sources)}).Info("catalog loaded")
	}

	remote, err := datasource.NewHTTPFetcher(datasource.HTTPConfig{
		BaseURL: cfg.DataBaseURL,
		APIKey:  cfg.DataAPIKey,
	})
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.fetcher = dashboard.RegistryFetcher{Registry: a.registry, Fallback: remote}

	a.broadcast = dashboard.NewBroadcastHook()
	a.charts = dashboard.NewChartCache(cfg.CacheTTL)

	a.service = dashboard.NewService(dashboard.Options{
		Store:          st,
		Fetcher:        a.fetcher,
		RefreshHook:    dashboard.MultiHook{a.charts, a.broadcast},
		Telemetry:      a.telemetry,
		Columns:        cfg.Columns,
		PreviewTimeout: cfg.PreviewTimeout,
	})
	return a, nil
}

func openStore(cfg config.Config, a *app) (dashboard.Store, error) {
	switch cfg.Store {
	case config.StoreJSON:
		st, err := store.OpenJSONFile(store.JSONFileOptions{
			Path:     cfg.JSONPath,
			Mode:     store.FlushMode(cfg.Flush),
			Interval: cfg.FlushInterval,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, st)
		return st, nil
	case config.StoreSQLite:
		st, err := store.OpenSQLite(cfg.SQLiteDSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, st)
		return st, nil
	case config.StoreMemory:
		return store.NewMemory(), nil
	default:
		return nil, fmt.Errorf("chartboard: unknown store %q", cfg.Store)
	}
}

func withRedisCache(ctx context.Context, cfg config.Config, base dashboard.Store, a *app) (dashboard.Store, error) {
	if cfg.RedisURL == "" {
		return base, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("chartboard: parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("chartboard: ping redis: %w", err)
	}
	a.closers = append(a.closers, client)
	return store.NewCache(base, client, cfg.CacheTTL), nil
}
