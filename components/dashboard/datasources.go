package dashboard

type sampleSource struct {
	source  DataSource
	payload any
}

var months = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

func categorical(labels []string, values ...float64) map[string]any {
	return map[string]any{"labels": labels, "values": values}
}

// defaultDataSources returns the canned endpoints shipped with the builder.
func defaultDataSources() []sampleSource {
	return []sampleSource{
		{
			source: DataSource{Name: "total_revenue", Label: "Total Revenue", Description: "Single revenue figure in USD"},
			payload: map[string]any{
				"value":    125000,
				"label":    "Total Revenue",
				"currency": "USD",
			},
		},
		{
			source:  DataSource{Name: "orders_over_time", Label: "Orders Over Time"},
			payload: categorical(months[:6], 120, 200, 150, 170, 210, 250),
		},
		{
			source:  DataSource{Name: "user_growth_by_month", Label: "User Growth by Month"},
			payload: categorical(months, 120, 180, 250, 320, 410, 500, 600, 720, 850, 1000, 1200, 1400),
		},
		{
			source:  DataSource{Name: "conversion_rate_over_time", Label: "Conversion Rate Over Time"},
			payload: categorical(months, 2.1, 2.3, 2.5, 2.7, 2.8, 3.0, 3.2, 3.3, 3.5, 3.7, 3.8, 4.0),
		},
		{
			source:  DataSource{Name: "page_views_by_category", Label: "Page Views by Category"},
			payload: categorical([]string{"Home", "Pricing", "Docs", "Blog", "Contact"}, 3200, 2100, 4100, 1500, 900),
		},
		{
			source:  DataSource{Name: "signups_by_region", Label: "Signups by Region"},
			payload: categorical([]string{"Americas", "EMEA", "APAC"}, 320, 210, 180),
		},
		{
			source: DataSource{Name: "sales_by_category", Label: "Sales by Category"},
			payload: categorical([]string{"Electronics", "Clothing", "Books", "Home & Garden", "Sports", "Beauty"},
				45000, 32000, 18000, 25000, 15000, 22000),
		},
		{
			source:  DataSource{Name: "customer_satisfaction", Label: "Customer Satisfaction"},
			payload: categorical(months, 4.2, 4.1, 4.3, 4.5, 4.4, 4.6, 4.7, 4.8, 4.6, 4.9, 4.8, 4.9),
		},
		{
			source: DataSource{Name: "department_headcount", Label: "Department Headcount"},
			payload: categorical([]string{
				"Research & Development",
				"Marketing & Sales",
				"Human Resources",
				"Information Technology",
				"Customer Support",
				"Finance & Accounting",
				"Operations Management",
				"Product Management",
			}, 45, 38, 12, 28, 35, 15, 22, 18),
		},
		{
			source: DataSource{Name: "system_performance", Label: "System Performance"},
			payload: categorical([]string{"Speed", "Reliability", "Usability", "Security", "Scalability", "Cost Efficiency"},
				85, 92, 78, 95, 88, 82),
		},
		{
			source: DataSource{Name: "gdp_by_country", Label: "GDP by Country"},
			payload: categorical([]string{"USA", "China", "Japan", "Germany", "India", "UK", "France", "Italy"},
				21400000, 14300000, 4230000, 4070000, 3380000, 3070000, 2780000, 2010000),
		},
	}
}
