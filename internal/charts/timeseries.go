package charts

import (
	"github.com/youssefzad/FinnishStartupDashboard-sub002/internal/columns"
	"github.com/youssefzad/FinnishStartupDashboard-sub002/internal/indicators"
	"github.com/youssefzad/FinnishStartupDashboard-sub002/pkg/contracts/domain"
)

// FilterAll selects the base column of a time series
const FilterAll = "all"

// Variant is an optional filtered column of a time series
type Variant struct {
	Filter string
	Label  string
	Role   string
}

// TimeSeries builds a single-series chart over years. The base column and each
// variant are resolved per dataset; only resolved variants are offered as filters.
type TimeSeries struct {
	Kind       domain.ChartKind
	Name       string
	BaseRole   string
	BaseLabel  string
	Variants   []Variant
	Scale      float64
	Unit       string
	Decimals   int
	Constraint indicators.Constraint
	Resolver   *columns.Resolver
}

type resolvedOption struct {
	option domain.Option
	column string
}

// Build implements Builder
func (ts TimeSeries) Build(rows []domain.Row, p Params) *domain.ChartConfig {
	schema := resolverOr(ts.Resolver).Bind(rows)
	yearCol, ok := schema.Column("year")
	if !ok {
		return nil
	}

	var options []resolvedOption
	if col, ok := schema.Column(ts.BaseRole); ok {
		label := ts.BaseLabel
		if label == "" {
			label = "All"
		}
		options = append(options, resolvedOption{domain.Option{Value: FilterAll, Label: label}, col})
	}
	for _, v := range ts.Variants {
		if col, ok := schema.Column(v.Role); ok {
			options = append(options, resolvedOption{domain.Option{Value: v.Filter, Label: v.Label}, col})
		}
	}
	if len(options) == 0 {
		return nil
	}

	active := options[0]
	for _, o := range options {
		if o.option.Value == p.Filter {
			active = o
			break
		}
	}

	obs := indicators.Observations(rows, yearCol, active.column, ts.Constraint)
	if len(obs) == 0 {
		return nil
	}

	points := make([]domain.Point, len(obs))
	for i, o := range obs {
		points[i] = domain.Point{
			Label:         o.Label(),
			Value:         scaled(o.Value, ts.Scale, ts.Decimals),
			OriginalValue: o.Value,
		}
	}

	var filters []domain.Option
	if len(options) > 1 {
		filters = make([]domain.Option, len(options))
		for i, o := range options {
			filters[i] = o.option
		}
	}

	kind := ts.Kind
	if kind == "" {
		kind = domain.ChartArea
	}
	name := ts.Name
	if active.option.Value != FilterAll {
		name = ts.Name + " (" + active.option.Label + ")"
	}

	return &domain.ChartConfig{
		Kind: kind,
		Data: points,
		Series: []domain.Series{{
			Key:     "value",
			Name:    name,
			Color:   Color(p.Palette, 0),
			Visible: true,
			Unit:    ts.Unit,
		}},
		XAxis:        domain.Axis{DataKey: "label", TickInterval: TickInterval(p.Width, len(points))},
		YAxis:        domain.Axis{Unit: ts.Unit, Min: intPtr(0)},
		Tooltip:      domain.Tooltip{Unit: ts.Unit, Decimals: ts.Decimals, ShowOriginal: ts.Scale > 1},
		Filters:      filters,
		ActiveFilter: active.option.Value,
		Layout:       domain.LayoutVertical,
		Presentation: presentation(p),
		Handlers:     p.Handlers,
	}
}
