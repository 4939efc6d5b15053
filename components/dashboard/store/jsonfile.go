package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/goliatone/go-chartboard/components/dashboard"
)

// FlushMode selects when a JSONFile writes to disk.
type FlushMode string

const (
	// FlushImmediate writes the file after every mutation and rolls the
	// mutation back when the write fails.
	FlushImmediate FlushMode = "immediate"
	// FlushBatched marks the store dirty and writes on a cron schedule and on Close.
	FlushBatched FlushMode = "batched"
)

// DefaultFlushInterval is the batched flush period.
const DefaultFlushInterval = 5 * time.Second

// JSONFileOptions configures OpenJSONFile.
type JSONFileOptions struct {
	Path     string
	Mode     FlushMode
	Interval time.Duration
}

// JSONFile keeps records in memory and persists them as a single JSON
// document. Mutations are serialized by one writer lock.
type JSONFile struct {
	mem  *Memory
	path string
	mode FlushMode

	writeMu sync.Mutex
	dirty   bool
	lastErr error

	cron *cron.Cron
}

var _ dashboard.Store = (*JSONFile)(nil)

// OpenJSONFile loads path (a missing file is an empty store) and starts the
// batched flusher when requested.
func OpenJSONFile(opts JSONFileOptions) (*JSONFile, error) {
	if opts.Path == "" {
		return nil, errors.New("store: json file path is required")
	}
	if opts.Mode == "" {
		opts.Mode = FlushImmediate
	}
	if opts.Mode != FlushImmediate && opts.Mode != FlushBatched {
		return nil, fmt.Errorf("store: unknown flush mode %q", opts.Mode)
	}
	s := &JSONFile{mem: NewMemory(), path: opts.Path, mode: opts.Mode}
	if err := s.load(); err != nil {
		return nil, err
	}
	if opts.Mode == FlushBatched {
		interval := opts.Interval
		if interval <= 0 {
			interval = DefaultFlushInterval
		}
		s.cron = cron.New()
		if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", interval), func() { _ = s.Flush() }); err != nil {
			return nil, fmt.Errorf("store: schedule flush: %w", err)
		}
		s.cron.Start()
	}
	return s, nil
}

func (s *JSONFile) load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("store: read %s: %w", s.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("store: decode %s: %w", s.path, err)
	}
	s.mem.Restore(snap)
	return nil
}

// Flush writes pending changes. It is a no-op when nothing changed.
func (s *JSONFile) Flush() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.flushLocked()
}

func (s *JSONFile) flushLocked() error {
	if !s.dirty {
		return nil
	}
	if err := s.writeFile(s.mem.Snapshot()); err != nil {
		s.lastErr = err
		return err
	}
	s.dirty = false
	s.lastErr = nil
	return nil
}

// Close stops the flusher and writes pending changes.
func (s *JSONFile) Close() error {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	return s.Flush()
}

// LastFlushError reports the error of the most recent failed flush, if any.
func (s *JSONFile) LastFlushError() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.lastErr
}

func (s *JSONFile) writeFile(snap Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("store: encode snapshot: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("store: create dir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("store: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("store: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("store: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("store: replace %s: %w", s.path, err)
	}
	return nil
}

// mutate runs fn under the writer lock and persists the result according to
// the flush mode.
func (s *JSONFile) mutate(fn func() error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var before Snapshot
	if s.mode == FlushImmediate {
		before = s.mem.Snapshot()
	}
	if err := fn(); err != nil {
		return err
	}
	s.dirty = true
	if s.mode != FlushImmediate {
		return nil
	}
	if err := s.flushLocked(); err != nil {
		s.mem.Restore(before)
		s.dirty = false
		return err
	}
	return nil
}

func (s *JSONFile) ListDashboards(ctx context.Context) ([]dashboard.Dashboard, error) {
	return s.mem.ListDashboards(ctx)
}

func (s *JSONFile) GetDashboard(ctx context.Context, id string) (dashboard.Dashboard, error) {
	return s.mem.GetDashboard(ctx, id)
}

func (s *JSONFile) CreateDashboard(ctx context.Context, d dashboard.Dashboard) (dashboard.Dashboard, error) {
	var created dashboard.Dashboard
	err := s.mutate(func() (err error) {
		created, err = s.mem.CreateDashboard(ctx, d)
		return err
	})
	return created, err
}

func (s *JSONFile) UpdateDashboard(ctx context.Context, id string, patch dashboard.DashboardPatch) (dashboard.Dashboard, error) {
	var updated dashboard.Dashboard
	err := s.mutate(func() (err error) {
		updated, err = s.mem.UpdateDashboard(ctx, id, patch)
		return err
	})
	return updated, err
}

func (s *JSONFile) DeleteDashboard(ctx context.Context, id string) error {
	return s.mutate(func() error {
		return s.mem.DeleteDashboard(ctx, id)
	})
}

func (s *JSONFile) ListCharts(ctx context.Context, dashboardID string) ([]dashboard.Chart, error) {
	return s.mem.ListCharts(ctx, dashboardID)
}

func (s *JSONFile) GetChart(ctx context.Context, id string) (dashboard.Chart, error) {
	return s.mem.GetChart(ctx, id)
}

func (s *JSONFile) CreateChart(ctx context.Context, c dashboard.Chart) (dashboard.Chart, error) {
	var created dashboard.Chart
	err := s.mutate(func() (err error) {
		created, err = s.mem.CreateChart(ctx, c)
		return err
	})
	return created, err
}

func (s *JSONFile) UpdateChart(ctx context.Context, id string, patch dashboard.ChartPatch) (dashboard.Chart, error) {
	var updated dashboard.Chart
	err := s.mutate(func() (err error) {
		updated, err = s.mem.UpdateChart(ctx, id, patch)
		return err
	})
	return updated, err
}

func (s *JSONFile) DeleteChart(ctx context.Context, id string) error {
	return s.mutate(func() error {
		return s.mem.DeleteChart(ctx, id)
	})
}
