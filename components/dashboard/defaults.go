package dashboard

// DemoDashboardID identifies the dashboard created by SeedDemo.
const DemoDashboardID = "demo-sales-overview"

var defaultSeedDashboard = CreateDashboardRequest{
	ID:          DemoDashboardID,
	Name:        "Sales Overview",
	Description: "Sample dashboard built from the bundled data sources",
	Columns:     DefaultColumns,
	TemplateID:  "hero-layout",
}

var defaultSeedCharts = []AddChartRequest{
	{ID: "demo-total-revenue", Title: "Total Revenue", DataEndpoint: DataPathPrefix + "total_revenue", Type: ChartNumber},
	{ID: "demo-orders", Title: "Orders Over Time", DataEndpoint: DataPathPrefix + "orders_over_time", Type: ChartLine},
	{ID: "demo-sales-category", Title: "Sales by Category", DataEndpoint: DataPathPrefix + "sales_by_category", Type: ChartDoughnut},
	{ID: "demo-signups", Title: "Signups by Region", DataEndpoint: DataPathPrefix + "signups_by_region", Type: ChartBar, Color: "#34d399"},
	{ID: "demo-performance", Title: "System Performance", DataEndpoint: DataPathPrefix + "system_performance", Type: ChartRadar, Color: "#f97316"},
}

// DefaultSeedDashboard returns the demo dashboard request.
func DefaultSeedDashboard() CreateDashboardRequest {
	return defaultSeedDashboard
}

// DefaultSeedCharts returns the demo charts. DashboardID is left empty.
func DefaultSeedCharts() []AddChartRequest {
	out := make([]AddChartRequest, len(defaultSeedCharts))
	copy(out, defaultSeedCharts)
	return out
}
