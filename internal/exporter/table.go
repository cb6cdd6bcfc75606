package exporter

import (
	"github.com/youssefzad/FinnishStartupDashboard-sub002/pkg/contracts/domain"
)

// Table is a chart's points flattened to rows
type Table struct {
	Headers []string
	Records [][]string
	// Values holds the numeric cells parallel to Records; label cells are nil
	Values [][]*float64
}

// FromChart flattens cfg. Single-series charts yield label, value and original
// columns. Multi-series charts yield one value and one original column per
// visible series. A nil config yields an empty table with headers only.
func FromChart(cfg *domain.ChartConfig) Table {
	if cfg == nil {
		return Table{Headers: []string{"label", "value", "original"}}
	}

	var visible []domain.Series
	for _, s := range cfg.Series {
		if s.Visible {
			visible = append(visible, s)
		}
	}
	multi := false
	for _, p := range cfg.Data {
		if len(p.Series) > 0 {
			multi = true
			break
		}
	}

	if !multi {
		t := Table{Headers: []string{"label", "value", "original"}}
		for _, p := range cfg.Data {
			t.add(p.Label, p.Value, p.OriginalValue)
		}
		return t
	}

	t := Table{Headers: []string{"label"}}
	for _, s := range visible {
		t.Headers = append(t.Headers, s.Key, s.Key+"_original")
	}
	for _, p := range cfg.Data {
		record := []string{p.Label}
		values := []*float64{nil}
		for _, s := range visible {
			d, ok := p.Series[s.Key]
			if !ok {
				record = append(record, "", "")
				values = append(values, nil, nil)
				continue
			}
			v, o := d.Value, d.OriginalValue
			record = append(record, formatFloat(v), formatFloat(o))
			values = append(values, &v, &o)
		}
		t.Records = append(t.Records, record)
		t.Values = append(t.Values, values)
	}
	return t
}

func (t *Table) add(label string, value, original float64) {
	t.Records = append(t.Records, []string{label, formatFloat(value), formatFloat(original)})
	t.Values = append(t.Values, []*float64{nil, &value, &original})
}
