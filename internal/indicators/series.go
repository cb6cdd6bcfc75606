// Package indicators derives headline metrics and plot series from resolved
// dataset columns.
package indicators

import (
	"sort"

	"github.com/youssefzad/FinnishStartupDashboard-sub002/pkg/contracts/domain"
)

// Constraint restricts which values count as valid observations
type Constraint uint8

const (
	// NonNegative accepts zero and positive values
	NonNegative Constraint = iota
	// StrictlyPositive accepts values above zero only, used for counts
	StrictlyPositive
)

func (c Constraint) admits(v float64) bool {
	if c == StrictlyPositive {
		return v > 0
	}
	return v >= 0
}

// Observation is one valid (year, value) pair taken from a row
type Observation struct {
	Year  domain.Value
	Value float64
}

// Label returns the year rendered for an axis
func (o Observation) Label() string { return o.Year.String() }

// Observations collects the rows where both the year and the value column are
// defined and the value is numeric and admitted by c, sorted by year. Rows are
// read only.
func Observations(rows []domain.Row, yearCol, valueCol string, c Constraint) []Observation {
	if yearCol == "" || valueCol == "" {
		return nil
	}
	out := make([]Observation, 0, len(rows))
	for _, row := range rows {
		year := row.Get(yearCol)
		if year.IsMissing() {
			continue
		}
		v, ok := row.Get(valueCol).Float()
		if !ok || !c.admits(v) {
			continue
		}
		out = append(out, Observation{Year: year, Value: v})
	}
	SortByYear(out)
	return out
}

// SortByYear orders observations by numeric year. When any year is not
// numeric the slice is left in source order.
func SortByYear(obs []Observation) {
	for _, o := range obs {
		if o.Year.Kind() != domain.KindNumber {
			return
		}
	}
	sort.SliceStable(obs, func(i, j int) bool {
		a, _ := obs[i].Year.Float()
		b, _ := obs[j].Year.Float()
		return a < b
	})
}

// Growth is the percentage change from previous to latest, 0 when previous is 0
func Growth(latest, previous float64) float64 {
	if previous == 0 {
		return 0
	}
	return (latest - previous) / previous * 100
}

// SeriesGrowth applies Growth to the last two observations, 0 with fewer than two
func SeriesGrowth(obs []Observation) float64 {
	if len(obs) < 2 {
		return 0
	}
	return Growth(obs[len(obs)-1].Value, obs[len(obs)-2].Value)
}

// YearOrder returns the indices of years in chronological order, or in source
// order when any year is not numeric
func YearOrder(years []domain.Value) []int {
	order := make([]int, len(years))
	for i := range order {
		order[i] = i
	}
	for _, y := range years {
		if y.Kind() != domain.KindNumber {
			return order
		}
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, _ := years[order[i]].Float()
		b, _ := years[order[j]].Float()
		return a < b
	})
	return order
}
