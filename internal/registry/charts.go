package registry

import (
	"github.com/youssefzad/FinnishStartupDashboard-sub002/internal/charts"
	"github.com/youssefzad/FinnishStartupDashboard-sub002/internal/columns"
	"github.com/youssefzad/FinnishStartupDashboard-sub002/internal/indicators"
	"github.com/youssefzad/FinnishStartupDashboard-sub002/pkg/contracts/domain"
)

// Stage filter tokens shared by the time-series charts
const (
	FilterEarlyStage = "early-stage"
	FilterLaterStage = "later-stage"
	FilterFinland    = "finland"
)

func stageVariants(prefix string) []charts.Variant {
	return []charts.Variant{
		{Filter: FilterEarlyStage, Label: "Early stage", Role: prefix + "_early"},
		{Filter: FilterLaterStage, Label: "Later stage", Role: prefix + "_later"},
	}
}

// Default returns the dashboard's chart table. A nil resolver uses the embedded rules.
func Default(resolver *columns.Resolver) *Registry {
	return New().MustRegister(
		Entry{
			ID:      "revenue",
			Title:   "Startup revenue",
			Dataset: domain.DatasetPrimary,
			Build: charts.TimeSeries{
				Name: "Revenue", BaseRole: "revenue", Variants: stageVariants("revenue"),
				Scale: 1e9, Unit: "B€", Decimals: 2, Resolver: resolver,
			}.Build,
		},
		Entry{
			ID:      "employees",
			Title:   "Startup employees",
			Dataset: domain.DatasetPrimary,
			Build: charts.TimeSeries{
				Name: "Employees", BaseRole: "employees",
				Variants: append(stageVariants("employees"),
					charts.Variant{Filter: FilterFinland, Label: "In Finland", Role: "employees_finland"}),
				Scale: 1, Unit: "employees", Resolver: resolver,
			}.Build,
		},
		Entry{
			ID:      "startups",
			Title:   "Number of startups",
			Dataset: domain.DatasetPrimary,
			Build: charts.TimeSeries{
				Kind: domain.ChartBar, Name: "Startups", BaseRole: "startups", Variants: stageVariants("startups"),
				Scale: 1, Unit: "startups", Constraint: indicators.StrictlyPositive, Resolver: resolver,
			}.Build,
		},
		Entry{
			ID:      "funding",
			Title:   "Venture funding",
			Dataset: domain.DatasetPrimary,
			Build: charts.TimeSeries{
				Kind: domain.ChartBar, Name: "Funding", BaseRole: "funding",
				Scale: 1e6, Unit: "M€", Resolver: resolver,
			}.Build,
		},
		Entry{
			ID:      "rnd-investment",
			Title:   "R&D investment",
			Dataset: domain.DatasetRnD,
			Build: charts.TimeSeries{
				Kind: domain.ChartLine, Name: "R&D", BaseRole: "rnd",
				Scale: 1e6, Unit: "M€", Resolver: resolver,
			}.Build,
		},
		Entry{
			ID:      "workforce-origin",
			Title:   "Finnish and foreign employees",
			Dataset: domain.DatasetDemographics,
			Build: charts.Categorical{
				Categories: []charts.Category{
					{Key: "finnish", Label: "Finnish", CountRole: "finnish_employees", ShareRole: "share_finnish"},
					{Key: "foreign", Label: "Foreign", CountRole: "foreign_employees", ShareRole: "share_foreign"},
				},
				Scale: 1, Unit: "employees", Resolver: resolver,
			}.Build,
		},
		Entry{
			ID:      "workforce-gender",
			Title:   "Employees by gender",
			Dataset: domain.DatasetDemographics,
			Build: charts.Categorical{
				Categories: []charts.Category{
					{Key: "female", Label: "Female", CountRole: "female_employees", ShareRole: "share_female"},
					{Key: "male", Label: "Male", CountRole: "male_employees", ShareRole: "share_male"},
				},
				Scale: 1, Unit: "employees", Resolver: resolver,
			}.Build,
		},
		Entry{
			ID:      "barometer-financial-situation",
			Title:   "Barometer: financial situation",
			Dataset: domain.DatasetBarometer,
			Build:   charts.NewBarometer("financial", resolver).Build,
		},
		Entry{
			ID:      "barometer-staffing",
			Title:   "Barometer: staffing",
			Dataset: domain.DatasetBarometer,
			Build:   charts.NewBarometer("staffing", resolver).Build,
		},
		Entry{
			ID:      "barometer-revenue",
			Title:   "Barometer: revenue",
			Dataset: domain.DatasetBarometer,
			Build:   charts.NewBarometer("sales", resolver).Build,
		},
		Entry{
			ID:      "barometer-economy",
			Title:   "Barometer: economic outlook",
			Dataset: domain.DatasetBarometer,
			Build:   charts.NewBarometer("economy", resolver).Build,
		},
		Entry{
			ID:      "top-valuations",
			Title:   "Highest valued startups",
			Dataset: domain.DatasetValuations,
			Build: charts.Ranked{
				Name: "Valuation", NameRole: "company", ValueRole: "valuation",
				Limit: 10, Scale: 1e6, Unit: "M€", Resolver: resolver,
			}.Build,
		},
	)
}
