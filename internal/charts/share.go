package charts

import (
	"github.com/youssefzad/FinnishStartupDashboard-sub002/internal/columns"
	"github.com/youssefzad/FinnishStartupDashboard-sub002/internal/indicators"
	"github.com/youssefzad/FinnishStartupDashboard-sub002/pkg/contracts/domain"
)

// ViewCounts is the toggle-mode view token
const ViewCounts = "counts"

// Category is one sub-population of a categorical chart
type Category struct {
	Key       string
	Label     string
	CountRole string
	ShareRole string
}

// ShareView returns the view token selecting the share series of a category
func (c Category) ShareView() string { return c.Key + "-share" }

// Categorical builds either a toggle-mode chart (one count series per
// category, each independently visible) or a share-mode chart (a single
// percentage series). The two modes are exclusive.
type Categorical struct {
	Categories []Category
	Scale      float64
	Unit       string
	Decimals   int
	Resolver   *columns.Resolver
}

type categoryColumns struct {
	Category
	count string
	share string
}

// Build implements Builder
func (c Categorical) Build(rows []domain.Row, p Params) *domain.ChartConfig {
	schema := resolverOr(c.Resolver).Bind(rows)
	yearCol, ok := schema.Column("year")
	if !ok {
		return nil
	}

	cats := make([]categoryColumns, len(c.Categories))
	counts, shares := 0, 0
	for i, cat := range c.Categories {
		cats[i].Category = cat
		if col, ok := schema.Column(cat.CountRole); ok {
			cats[i].count = col
			counts++
		}
		if cat.ShareRole != "" {
			if col, ok := schema.Column(cat.ShareRole); ok {
				cats[i].share = col
				shares++
			}
		}
	}
	if counts == 0 && shares == 0 {
		return nil
	}

	var views []domain.Option
	if counts > 0 {
		views = append(views, domain.Option{Value: ViewCounts, Label: "Counts"})
	}
	for _, cat := range cats {
		if cat.share != "" || counts == len(cats) {
			views = append(views, domain.Option{Value: cat.ShareView(), Label: cat.Label + " share"})
		}
	}
	if len(views) == 0 {
		return nil
	}

	view := views[0].Value
	for _, v := range views {
		if v.Value == p.View {
			view = v.Value
			break
		}
	}

	var cfg *domain.ChartConfig
	if view == ViewCounts {
		cfg = c.toggleMode(rows, yearCol, cats, p)
	} else {
		for _, cat := range cats {
			if cat.ShareView() == view {
				cfg = c.shareMode(rows, yearCol, cat, cats, p)
				break
			}
		}
	}
	if cfg == nil {
		return nil
	}
	if len(views) > 1 {
		cfg.Views = views
	}
	cfg.ActiveView = view
	cfg.Presentation = presentation(p)
	cfg.Handlers = p.Handlers
	return cfg
}

func (c Categorical) toggleMode(rows []domain.Row, yearCol string, cats []categoryColumns, p Params) *domain.ChartConfig {
	idx := make(map[string]int)
	var years []domain.Value
	var data []map[string]domain.Datum

	for _, row := range rows {
		year := row.Get(yearCol)
		if year.IsMissing() {
			continue
		}
		datum := make(map[string]domain.Datum)
		for _, cat := range cats {
			if cat.count == "" {
				continue
			}
			v, ok := row.Get(cat.count).Float()
			if !ok || v < 0 {
				continue
			}
			datum[cat.Key] = domain.Datum{Value: scaled(v, c.Scale, c.Decimals), OriginalValue: v}
		}
		if len(datum) == 0 {
			continue
		}
		label := year.String()
		if i, seen := idx[label]; seen {
			for k, d := range datum {
				data[i][k] = d
			}
			continue
		}
		idx[label] = len(years)
		years = append(years, year)
		data = append(data, datum)
	}
	if len(years) == 0 {
		return nil
	}

	points := make([]domain.Point, 0, len(years))
	for _, i := range indicators.YearOrder(years) {
		points = append(points, domain.Point{Label: years[i].String(), Series: data[i]})
	}

	var series []domain.Series
	var toggles []domain.Toggle
	for i, cat := range cats {
		if cat.count == "" {
			continue
		}
		visible := p.IsVisible(cat.Key)
		series = append(series, domain.Series{
			Key:     cat.Key,
			Name:    cat.Label,
			Color:   Color(p.Palette, i),
			Visible: visible,
			Unit:    c.Unit,
		})
		toggles = append(toggles, domain.Toggle{Key: cat.Key, Label: cat.Label, Visible: visible})
	}

	return &domain.ChartConfig{
		Kind:    domain.ChartBar,
		Data:    points,
		Series:  series,
		XAxis:   domain.Axis{DataKey: "label", TickInterval: TickInterval(p.Width, len(points))},
		YAxis:   domain.Axis{Unit: c.Unit, Min: intPtr(0)},
		Tooltip: domain.Tooltip{Unit: c.Unit, Decimals: c.Decimals, ShowOriginal: c.Scale > 1},
		Toggles: toggles,
		Layout:  LayoutFor(p.Width),
	}
}

type shareRow struct {
	year     domain.Value
	pct      float64
	original float64
}

func (c Categorical) shareMode(rows []domain.Row, yearCol string, target categoryColumns, cats []categoryColumns, p Params) *domain.ChartConfig {
	var out []shareRow

	if target.share != "" {
		fraction := isFractionColumn(rows, target.share)
		for _, row := range rows {
			year := row.Get(yearCol)
			v, ok := row.Get(target.share).Float()
			if year.IsMissing() || !ok || v < 0 {
				continue
			}
			pct := v
			if fraction {
				pct = v * 100
			}
			out = append(out, shareRow{year: year, pct: pct, original: v})
		}
	} else {
		for _, row := range rows {
			year := row.Get(yearCol)
			if year.IsMissing() {
				continue
			}
			total, own, complete := 0.0, 0.0, true
			for _, cat := range cats {
				v, ok := row.Get(cat.count).Float()
				if !ok || v < 0 {
					complete = false
					break
				}
				total += v
				if cat.Key == target.Key {
					own = v
				}
			}
			if complete {
				out = append(out, shareRow{year: year, pct: Share(own, total), original: own})
			}
		}
	}
	if len(out) == 0 {
		return nil
	}

	years := make([]domain.Value, len(out))
	for i, r := range out {
		years[i] = r.year
	}
	points := make([]domain.Point, 0, len(out))
	for _, i := range indicators.YearOrder(years) {
		points = append(points, domain.Point{
			Label:         out[i].year.String(),
			Value:         scaled(out[i].pct, 1, 1),
			OriginalValue: out[i].original,
		})
	}

	return &domain.ChartConfig{
		Kind: domain.ChartLine,
		Data: points,
		Series: []domain.Series{{
			Key:     "value",
			Name:    target.Label + " share",
			Color:   Color(p.Palette, 0),
			Visible: true,
			Unit:    "%",
		}},
		XAxis:   domain.Axis{DataKey: "label", TickInterval: TickInterval(p.Width, len(points))},
		YAxis:   domain.Axis{Unit: "%", Min: intPtr(0), Max: intPtr(100)},
		Tooltip: domain.Tooltip{Unit: "%", Decimals: 1},
		Layout:  domain.LayoutVertical,
	}
}

// Share is part/total as a percentage, 0 when total is 0
func Share(part, total float64) float64 {
	if total == 0 {
		return 0
	}
	return part / total * 100
}

// isFractionColumn treats a share column as fractions when every numeric
// value lies in [0, 1]. A genuine 0-1% share is misread as a fraction.
func isFractionColumn(rows []domain.Row, col string) bool {
	seen := false
	for _, row := range rows {
		v, ok := row.Get(col).Float()
		if !ok {
			continue
		}
		if v > 1 {
			return false
		}
		seen = true
	}
	return seen
}
