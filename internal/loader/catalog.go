package loader

import (
	"fmt"

	"github.com/youssefzad/FinnishStartupDashboard-sub002/internal/config"
	"github.com/youssefzad/FinnishStartupDashboard-sub002/pkg/contracts/domain"
)

// Entry describes where one dataset may be found
type Entry struct {
	Key       domain.DatasetKey
	Required  bool
	LocalFile string // file name under the data directory
	TabID     string // known remote tab, empty when it must be discovered
	Bundled   bool   // the bundled workbook may serve this dataset
	SheetName string // workbook sheet, empty selects the first usable sheet

	// Signature lists role groups. A scanned tab belongs to this dataset only
	// when every group has at least one resolvable role.
	Signature [][]string
}

// Catalog is the ordered set of datasets loaded per cycle
type Catalog struct {
	entries    []Entry
	candidates []string
}

var signatures = map[domain.DatasetKey][][]string{
	domain.DatasetPrimary: {
		{"year"},
		{"revenue", "employees", "startups"},
	},
	domain.DatasetDemographics: {
		{"finnish_employees", "foreign_employees", "female_employees", "male_employees",
			"share_finnish", "share_foreign", "share_female", "share_male"},
	},
	domain.DatasetRnD: {
		{"year"},
		{"rnd"},
	},
	domain.DatasetBarometer: {
		{"period", "year"},
		{"financial_retrospective", "financial_prospective",
			"staffing_retrospective", "staffing_prospective",
			"sales_retrospective", "sales_prospective",
			"economy_retrospective", "economy_prospective"},
	},
	domain.DatasetValuations: {
		{"company"},
		{"valuation"},
	},
}

// NewCatalog builds the dataset catalog from the sources section. Only the
// primary dataset is required and only it falls back to the bundled workbook.
func NewCatalog(src config.SourcesConfig) *Catalog {
	c := &Catalog{candidates: append([]string(nil), src.CandidateTabs...)}
	for _, key := range domain.AllDatasets() {
		c.entries = append(c.entries, Entry{
			Key:       key,
			Required:  key == domain.DatasetPrimary,
			LocalFile: fmt.Sprintf("%s.json", key),
			TabID:     src.Tabs[string(key)],
			Bundled:   key == domain.DatasetPrimary,
			SheetName: src.SheetNames[string(key)],
			Signature: signatures[key],
		})
	}
	return c
}

// Entries returns the catalog in load order
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Candidates returns the tab ids scanned during discovery
func (c *Catalog) Candidates() []string {
	return append([]string(nil), c.candidates...)
}

// configuredTabs returns the tabs explicitly assigned to some dataset
func (c *Catalog) configuredTabs() map[string]domain.DatasetKey {
	out := make(map[string]domain.DatasetKey)
	for _, e := range c.entries {
		if e.TabID != "" {
			out[e.TabID] = e.Key
		}
	}
	return out
}
