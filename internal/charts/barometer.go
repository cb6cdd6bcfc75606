package charts

import (
	"regexp"
	"sort"
	"strconv"

	"github.com/youssefzad/FinnishStartupDashboard-sub002/internal/columns"
	"github.com/youssefzad/FinnishStartupDashboard-sub002/pkg/contracts/domain"
)

// Series keys of a barometer chart
const (
	SeriesRetrospective = "retrospective"
	SeriesProspective   = "prospective"
)

// Barometer plots the retrospective and prospective balance figures of one
// survey topic per wave. Balances are consumed as published (-100..+100).
type Barometer struct {
	Topic              string
	RetrospectiveRole  string
	ProspectiveRole    string
	RetrospectiveLabel string
	ProspectiveLabel   string
	Resolver           *columns.Resolver
}

// NewBarometer wires the conventional role names for topic
func NewBarometer(topic string, resolver *columns.Resolver) Barometer {
	return Barometer{
		Topic:              topic,
		RetrospectiveRole:  topic + "_retrospective",
		ProspectiveRole:    topic + "_prospective",
		RetrospectiveLabel: "Past 12 months",
		ProspectiveLabel:   "Next 12 months",
		Resolver:           resolver,
	}
}

// PeriodKey is the chronological sort key of a period token. Parsed tokens
// order before unparsed ones, which order lexically among themselves.
type PeriodKey struct {
	Parsed  bool
	Year    int
	Quarter int
	Raw     string
}

// Less orders keys: parsed by (year, quarter), then unparsed by raw text
func (k PeriodKey) Less(o PeriodKey) bool {
	if k.Parsed != o.Parsed {
		return k.Parsed
	}
	if !k.Parsed {
		return k.Raw < o.Raw
	}
	if k.Year != o.Year {
		return k.Year < o.Year
	}
	return k.Quarter < o.Quarter
}

var (
	quarterFirst = regexp.MustCompile(`(?i)^Q\s*([1-4])\s*[/\- ]?\s*(\d{4})$`)
	yearFirst    = regexp.MustCompile(`(?i)^(\d{4})\s*[/\- ]?\s*Q\s*([1-4])$`)
	yearOnly     = regexp.MustCompile(`^(\d{4})$`)
)

// ParsePeriod parses "Q2/2022", "Q2 2022", "2022Q2", "2022-Q2" and bare years.
// Anything else is kept as an unparsed key.
func ParsePeriod(token string) PeriodKey {
	if m := quarterFirst.FindStringSubmatch(token); m != nil {
		q, _ := strconv.Atoi(m[1])
		y, _ := strconv.Atoi(m[2])
		return PeriodKey{Parsed: true, Year: y, Quarter: q, Raw: token}
	}
	if m := yearFirst.FindStringSubmatch(token); m != nil {
		y, _ := strconv.Atoi(m[1])
		q, _ := strconv.Atoi(m[2])
		return PeriodKey{Parsed: true, Year: y, Quarter: q, Raw: token}
	}
	if m := yearOnly.FindStringSubmatch(token); m != nil {
		y, _ := strconv.Atoi(m[1])
		return PeriodKey{Parsed: true, Year: y, Raw: token}
	}
	return PeriodKey{Raw: token}
}

type wave struct {
	key   PeriodKey
	label string
	datum map[string]domain.Datum
}

// Build implements Builder
func (b Barometer) Build(rows []domain.Row, p Params) *domain.ChartConfig {
	schema := resolverOr(b.Resolver).Bind(rows)
	periodCol, ok := schema.Column("period")
	if !ok {
		if periodCol, ok = schema.Column("year"); !ok {
			return nil
		}
	}
	retroCol, hasRetro := schema.Column(b.RetrospectiveRole)
	prospCol, hasProsp := schema.Column(b.ProspectiveRole)
	if !hasRetro && !hasProsp {
		return nil
	}

	var waves []wave
	for _, row := range rows {
		period := row.Get(periodCol)
		if period.IsMissing() {
			continue
		}
		datum := make(map[string]domain.Datum, 2)
		if v, ok := row.Get(retroCol).Float(); ok {
			datum[SeriesRetrospective] = domain.Datum{Value: v, OriginalValue: v}
		}
		if v, ok := row.Get(prospCol).Float(); ok {
			datum[SeriesProspective] = domain.Datum{Value: v, OriginalValue: v}
		}
		if len(datum) == 0 {
			continue
		}
		label := period.String()
		waves = append(waves, wave{key: ParsePeriod(label), label: label, datum: datum})
	}
	if len(waves) == 0 {
		return nil
	}
	sort.SliceStable(waves, func(i, j int) bool { return waves[i].key.Less(waves[j].key) })

	points := make([]domain.Point, len(waves))
	for i, w := range waves {
		points[i] = domain.Point{Label: w.label, Series: w.datum}
	}

	return &domain.ChartConfig{
		Kind: domain.ChartBarometer,
		Data: points,
		Series: []domain.Series{
			{Key: SeriesRetrospective, Name: b.RetrospectiveLabel, Color: Color(p.Palette, 0), Visible: hasRetro},
			{Key: SeriesProspective, Name: b.ProspectiveLabel, Color: Color(p.Palette, 1), Visible: hasProsp},
		},
		XAxis:   domain.Axis{DataKey: "label", TickInterval: TickInterval(p.Width, len(points))},
		YAxis:   domain.Axis{Label: "Balance", Min: intPtr(-100), Max: intPtr(100)},
		Tooltip: domain.Tooltip{Decimals: 1},
		Layout:  domain.LayoutVertical,
		Presentation: domain.Presentation{
			Theme:         theme(p.Theme),
			Palette:       paletteName(p.Palette),
			ShowLegend:    true,
			Compact:       p.Compact,
			ReferenceLine: true,
		},
		Handlers: p.Handlers,
	}
}
