package dataprocessing

import (
	"strings"

	"github.com/youssefzad/FinnishStartupDashboard-sub002/pkg/contracts/domain"
)

// RecordsToRows maps the first record as header onto the remaining records.
// Blank cells become absent keys and rows without any populated cell are
// dropped. Header cells that are blank are ignored; duplicated header names
// keep the first occurrence.
func RecordsToRows(records [][]string) []domain.Row {
	if len(records) < 2 {
		return nil
	}

	header := make([]string, len(records[0]))
	seen := make(map[string]bool, len(records[0]))
	for i, name := range records[0] {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		header[i] = name
	}

	rows := make([]domain.Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(domain.Row, len(header))
		for i, raw := range rec {
			if i >= len(header) || header[i] == "" {
				continue
			}
			v := domain.ParseCell(raw)
			if v.IsMissing() {
				continue
			}
			row[header[i]] = v
		}
		if row.Populated() {
			rows = append(rows, row)
		}
	}
	return rows
}

// ParseRows is ParseCSV followed by RecordsToRows
func ParseRows(text string, delimiter rune) ([]domain.Row, error) {
	records, err := ParseCSV(text, delimiter)
	if err != nil {
		return nil, err
	}
	return RecordsToRows(records), nil
}

// NormalizeRows drops missing cells and empty rows from decoded rows, leaving
// the input untouched.
func NormalizeRows(in []domain.Row) []domain.Row {
	out := make([]domain.Row, 0, len(in))
	for _, r := range in {
		row := make(domain.Row, len(r))
		for k, v := range r {
			k = strings.TrimSpace(k)
			if k == "" || v.IsMissing() {
				continue
			}
			row[k] = v
		}
		if len(row) > 0 {
			out = append(out, row)
		}
	}
	return out
}
