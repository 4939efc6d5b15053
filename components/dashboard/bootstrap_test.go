package dashboard

import (
	"context"
	"testing"
)

func TestSeedDemoCreatesSampleDashboard(t *testing.T) {
	store := newFakeStore()
	service := NewService(Options{Store: store})
	seeded, err := SeedDemo(context.Background(), service)
	if err != nil {
		t.Fatalf("SeedDemo returned error: %v", err)
	}
	if !seeded {
		t.Fatalf("expected seed to write records")
	}
	layout, err := service.DashboardLayout(context.Background(), DemoDashboardID)
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	if len(layout.Charts) != len(DefaultSeedCharts()) {
		t.Fatalf("expected %d charts, got %d", len(DefaultSeedCharts()), len(layout.Charts))
	}
	if layout.Dashboard.TemplateID != "hero-layout" {
		t.Fatalf("expected hero template, got %q", layout.Dashboard.TemplateID)
	}
	assertNoOverlap(t, layout.Charts)
}

func TestSeedDemoSkipsPopulatedStore(t *testing.T) {
	store := newFakeStore()
	service := NewService(Options{Store: store})
	if _, err := service.CreateDashboard(context.Background(), CreateDashboardRequest{Name: "Mine"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	seeded, err := SeedDemo(context.Background(), service)
	if err != nil {
		t.Fatalf("SeedDemo returned error: %v", err)
	}
	if seeded {
		t.Fatalf("expected populated store to be left alone")
	}
	if len(store.charts) != 0 {
		t.Fatalf("expected no charts, got %d", len(store.charts))
	}
}
