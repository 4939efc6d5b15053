// Package store provides dashboard.Store implementations: an in-memory store,
// a JSON file store with immediate or batched flushing, a gorm/SQLite store
// and a Redis read-through cache that can wrap any of them.
package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-chartboard/components/dashboard"
)

var (
	// ErrNotFound is returned when a dashboard or chart does not exist.
	ErrNotFound = dashboard.ErrNotFound
	// ErrConflict is returned when creating a record whose id is already taken.
	ErrConflict = errors.New("store: record already exists")
)

func notFound(kind, id string) error {
	return fmt.Errorf("%w: %s %s", ErrNotFound, kind, id)
}

func conflict(kind, id string) error {
	return fmt.Errorf("%w: %s %s", ErrConflict, kind, id)
}

func stampDashboard(d dashboard.Dashboard, now time.Time) dashboard.Dashboard {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.Columns < 1 {
		d.Columns = dashboard.DefaultColumns
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now
	return d
}

func stampChart(c dashboard.Chart, now time.Time) dashboard.Chart {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	return c
}
