package charts

import (
	"sort"

	"github.com/youssefzad/FinnishStartupDashboard-sub002/internal/columns"
	"github.com/youssefzad/FinnishStartupDashboard-sub002/internal/indicators"
	"github.com/youssefzad/FinnishStartupDashboard-sub002/pkg/contracts/domain"
)

// Ranked plots the top entries of a name/value dataset in descending order.
// When a year column resolves the chart shows one year at a time, the latest
// by default, and offers every year present as a filter.
type Ranked struct {
	Name      string
	NameRole  string
	ValueRole string
	Limit     int
	Scale     float64
	Unit      string
	Decimals  int
	Resolver  *columns.Resolver
}

type rankedEntry struct {
	name  string
	value float64
}

// Build implements Builder
func (r Ranked) Build(rows []domain.Row, p Params) *domain.ChartConfig {
	schema := resolverOr(r.Resolver).Bind(rows)
	nameCol, ok := schema.Column(r.NameRole)
	if !ok {
		return nil
	}
	valueCol, ok := schema.Column(r.ValueRole)
	if !ok {
		return nil
	}
	yearCol, hasYear := schema.Column("year")

	var filters []domain.Option
	active := ""
	if hasYear {
		filters = yearOptions(rows, yearCol)
		if len(filters) > 0 {
			active = filters[0].Value
			for _, f := range filters {
				if f.Value == p.Filter {
					active = f.Value
					break
				}
			}
		}
	}

	var entries []rankedEntry
	for _, row := range rows {
		if active != "" && row.Get(yearCol).String() != active {
			continue
		}
		name := row.Get(nameCol)
		if name.IsMissing() {
			continue
		}
		v, ok := row.Get(valueCol).Float()
		if !ok || v < 0 {
			continue
		}
		entries = append(entries, rankedEntry{name: name.String(), value: v})
	}
	if len(entries) == 0 {
		return nil
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].value != entries[j].value {
			return entries[i].value > entries[j].value
		}
		return entries[i].name < entries[j].name
	})
	if r.Limit > 0 && len(entries) > r.Limit {
		entries = entries[:r.Limit]
	}

	points := make([]domain.Point, len(entries))
	for i, e := range entries {
		points[i] = domain.Point{
			Label:         e.name,
			Value:         scaled(e.value, r.Scale, r.Decimals),
			OriginalValue: e.value,
		}
	}

	layout := LayoutFor(p.Width)
	axis := domain.Axis{DataKey: "label"}
	if layout == domain.LayoutVertical {
		axis.TickInterval = TickInterval(p.Width, len(points))
	}
	if len(filters) < 2 {
		filters = nil
	}

	return &domain.ChartConfig{
		Kind: domain.ChartRanked,
		Data: points,
		Series: []domain.Series{{
			Key:     "value",
			Name:    r.Name,
			Color:   Color(p.Palette, 0),
			Visible: true,
			Unit:    r.Unit,
		}},
		XAxis:        axis,
		YAxis:        domain.Axis{Unit: r.Unit, Min: intPtr(0)},
		Tooltip:      domain.Tooltip{Unit: r.Unit, Decimals: r.Decimals, ShowOriginal: r.Scale > 1},
		Filters:      filters,
		ActiveFilter: active,
		Layout:       layout,
		Presentation: presentation(p),
		Handlers:     p.Handlers,
	}
}

// yearOptions lists distinct years, latest first
func yearOptions(rows []domain.Row, yearCol string) []domain.Option {
	seen := make(map[string]bool)
	var years []domain.Value
	for _, row := range rows {
		y := row.Get(yearCol)
		if y.IsMissing() || seen[y.String()] {
			continue
		}
		seen[y.String()] = true
		years = append(years, y)
	}
	order := indicators.YearOrder(years)
	out := make([]domain.Option, 0, len(order))
	for i := len(order) - 1; i >= 0; i-- {
		label := years[order[i]].String()
		out = append(out, domain.Option{Value: label, Label: label})
	}
	return out
}
