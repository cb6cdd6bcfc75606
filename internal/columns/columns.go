package columns

import (
	"sort"
	"strings"
	"unicode"

	"github.com/youssefzad/FinnishStartupDashboard-sub002/pkg/contracts/domain"
)

// ColumnSet is the union of column names across every row of a dataset,
// ordered by the row a name first appears in and alphabetically within it.
type ColumnSet struct {
	names []string
	norm  []string
	index map[string]int
}

// Columns scans all rows, never only the first, so columns that appear late
// in the dataset are still found.
func Columns(rows []domain.Row) ColumnSet {
	cs := ColumnSet{index: make(map[string]int)}
	for _, row := range rows {
		fresh := make([]string, 0)
		for name := range row {
			if _, ok := cs.index[name]; !ok {
				fresh = append(fresh, name)
			}
		}
		sort.Strings(fresh)
		for _, name := range fresh {
			cs.index[name] = len(cs.names)
			cs.names = append(cs.names, name)
			cs.norm = append(cs.norm, Normalize(name))
		}
	}
	return cs
}

// Names returns the column names in scan order
func (c ColumnSet) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Len returns the number of distinct columns
func (c ColumnSet) Len() int { return len(c.names) }

// Has reports whether name appears in any row
func (c ColumnSet) Has(name string) bool {
	_, ok := c.index[name]
	return ok
}

func (c ColumnSet) match(rule Rule) (string, bool) {
	for i, n := range c.norm {
		if rule.matches(n) {
			return c.names[i], true
		}
	}
	return "", false
}

// Normalize lowercases s and drops spaces, underscores, hyphens, dots and
// slashes so "Revenue Early-Stage" and "RevenueEarlyStage" compare equal.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsSpace(r) {
			continue
		}
		switch r {
		case '_', '-', '.', '/', '(', ')':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func normalizeAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if n := Normalize(s); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func containsAny(s string, kws []string) bool {
	for _, k := range kws {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

func containsAll(s string, kws []string) bool {
	for _, k := range kws {
		if !strings.Contains(s, k) {
			return false
		}
	}
	return true
}
