package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/goliatone/go-chartboard/components/dashboard"
)

type dashboardRecord struct {
	ID          string `gorm:"primaryKey;size:64"`
	Name        string `gorm:"not null"`
	Description string
	Columns     int
	TemplateID  string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (dashboardRecord) TableName() string { return "dashboards" }

type chartRecord struct {
	ID           string `gorm:"primaryKey;size:64"`
	DashboardID  string `gorm:"index;size:64;not null"`
	Type         string `gorm:"size:32;not null"`
	Title        string `gorm:"not null"`
	DataEndpoint string `gorm:"not null"`
	Color        string `gorm:"size:16"`
	X            int
	Y            int
	W            int
	H            int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (chartRecord) TableName() string { return "charts" }

// SQL persists dashboards and charts through gorm.
type SQL struct {
	db  *gorm.DB
	now func() time.Time
}

var _ dashboard.Store = (*SQL)(nil)

// OpenSQLite opens a SQLite database and runs migrations.
func OpenSQLite(dsn string) (*SQL, error) {
	if dsn == "" {
		dsn = "chartboard.db"
	}
	if err := ensureDirForSQLite(dsn); err != nil {
		return nil, err
	}
	dbLogger := logger.New(
		log.New(os.Stdout, "", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: dbLogger})
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	return NewSQL(db)
}

// NewSQL wraps an existing gorm handle and migrates the schema.
func NewSQL(db *gorm.DB) (*SQL, error) {
	if db == nil {
		return nil, errors.New("store: gorm db is nil")
	}
	if err := db.AutoMigrate(&dashboardRecord{}, &chartRecord{}); err != nil {
		return nil, fmt.Errorf("store: migrate db: %w", err)
	}
	return &SQL{db: db, now: time.Now}, nil
}

// Close releases the underlying connection pool.
func (s *SQL) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *SQL) ListDashboards(ctx context.Context) ([]dashboard.Dashboard, error) {
	var records []dashboardRecord
	if err := s.db.WithContext(ctx).Order("created_at, id").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("store: list dashboards: %w", err)
	}
	out := make([]dashboard.Dashboard, len(records))
	for i, r := range records {
		out[i] = r.toDomain()
	}
	return out, nil
}

func (s *SQL) GetDashboard(ctx context.Context, id string) (dashboard.Dashboard, error) {
	record, err := findDashboard(s.db.WithContext(ctx), id)
	if err != nil {
		return dashboard.Dashboard{}, err
	}
	return record.toDomain(), nil
}

func (s *SQL) CreateDashboard(ctx context.Context, d dashboard.Dashboard) (dashboard.Dashboard, error) {
	d = stampDashboard(d, s.now())
	record := dashboardFromDomain(d)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&dashboardRecord{}).Where("id = ?", d.ID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return conflict("dashboard", d.ID)
		}
		return tx.Create(&record).Error
	})
	if err != nil {
		return dashboard.Dashboard{}, wrapSQL("create dashboard", err)
	}
	return record.toDomain(), nil
}

func (s *SQL) UpdateDashboard(ctx context.Context, id string, patch dashboard.DashboardPatch) (dashboard.Dashboard, error) {
	var updated dashboard.Dashboard
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record, err := findDashboard(tx, id)
		if err != nil {
			return err
		}
		d := patch.Apply(record.toDomain())
		d.UpdatedAt = s.now()
		next := dashboardFromDomain(d)
		if err := tx.Save(&next).Error; err != nil {
			return err
		}
		updated = next.toDomain()
		return nil
	})
	if err != nil {
		return dashboard.Dashboard{}, wrapSQL("update dashboard", err)
	}
	return updated, nil
}

// DeleteDashboard removes the dashboard and its charts in one transaction.
func (s *SQL) DeleteDashboard(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findDashboard(tx, id); err != nil {
			return err
		}
		if err := tx.Where("dashboard_id = ?", id).Delete(&chartRecord{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&dashboardRecord{}).Error
	})
	return wrapSQL("delete dashboard", err)
}

func (s *SQL) ListCharts(ctx context.Context, dashboardID string) ([]dashboard.Chart, error) {
	query := s.db.WithContext(ctx).Order("created_at, id")
	if dashboardID != "" {
		query = query.Where("dashboard_id = ?", dashboardID)
	}
	var records []chartRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("store: list charts: %w", err)
	}
	out := make([]dashboard.Chart, len(records))
	for i, r := range records {
		out[i] = r.toDomain()
	}
	return out, nil
}

func (s *SQL) GetChart(ctx context.Context, id string) (dashboard.Chart, error) {
	record, err := findChart(s.db.WithContext(ctx), id)
	if err != nil {
		return dashboard.Chart{}, err
	}
	return record.toDomain(), nil
}

func (s *SQL) CreateChart(ctx context.Context, c dashboard.Chart) (dashboard.Chart, error) {
	c = stampChart(c, s.now())
	record := chartFromDomain(c)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findDashboard(tx, c.DashboardID); err != nil {
			return err
		}
		var count int64
		if err := tx.Model(&chartRecord{}).Where("id = ?", c.ID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return conflict("chart", c.ID)
		}
		return tx.Create(&record).Error
	})
	if err != nil {
		return dashboard.Chart{}, wrapSQL("create chart", err)
	}
	return record.toDomain(), nil
}

func (s *SQL) UpdateChart(ctx context.Context, id string, patch dashboard.ChartPatch) (dashboard.Chart, error) {
	var updated dashboard.Chart
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record, err := findChart(tx, id)
		if err != nil {
			return err
		}
		c := patch.Apply(record.toDomain())
		c.UpdatedAt = s.now()
		next := chartFromDomain(c)
		if err := tx.Save(&next).Error; err != nil {
			return err
		}
		updated = next.toDomain()
		return nil
	})
	if err != nil {
		return dashboard.Chart{}, wrapSQL("update chart", err)
	}
	return updated, nil
}

func (s *SQL) DeleteChart(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findChart(tx, id); err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&chartRecord{}).Error
	})
	return wrapSQL("delete chart", err)
}

func findDashboard(db *gorm.DB, id string) (dashboardRecord, error) {
	var record dashboardRecord
	if err := db.Where("id = ?", id).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dashboardRecord{}, notFound("dashboard", id)
		}
		return dashboardRecord{}, err
	}
	return record, nil
}

func findChart(db *gorm.DB, id string) (chartRecord, error) {
	var record chartRecord
	if err := db.Where("id = ?", id).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return chartRecord{}, notFound("chart", id)
		}
		return chartRecord{}, err
	}
	return record, nil
}

func wrapSQL(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) {
		return err
	}
	return fmt.Errorf("store: %s: %w", op, err)
}

func dashboardFromDomain(d dashboard.Dashboard) dashboardRecord {
	return dashboardRecord{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		Columns:     d.Columns,
		TemplateID:  d.TemplateID,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func (r dashboardRecord) toDomain() dashboard.Dashboard {
	return dashboard.Dashboard{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Columns:     r.Columns,
		TemplateID:  r.TemplateID,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func chartFromDomain(c dashboard.Chart) chartRecord {
	return chartRecord{
		ID:           c.ID,
		DashboardID:  c.DashboardID,
		Type:         string(c.Type),
		Title:        c.Title,
		DataEndpoint: c.DataEndpoint,
		Color:        c.Color,
		X:            c.X,
		Y:            c.Y,
		W:            c.W,
		H:            c.H,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

func (r chartRecord) toDomain() dashboard.Chart {
	return dashboard.Chart{
		ID:           r.ID,
		DashboardID:  r.DashboardID,
		Type:         dashboard.ChartType(r.Type),
		Title:        r.Title,
		DataEndpoint: r.DataEndpoint,
		Color:        r.Color,
		X:            r.X,
		Y:            r.Y,
		W:            r.W,
		H:            r.H,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

// ensureDirForSQLite creates parent dir for SQLite file if needed.
func ensureDirForSQLite(dsn string) error {
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		return nil
	}
	clean := strings.TrimPrefix(dsn, "file:")
	clean = strings.Split(clean, "?")[0]
	dir := filepath.Dir(clean)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("store: create db dir %q: %w", dir, err)
	}
	return nil
}
