package indicators

import (
	"log/slog"

	"github.com/youssefzad/FinnishStartupDashboard-sub002/internal/columns"
	"github.com/youssefzad/FinnishStartupDashboard-sub002/pkg/contracts/domain"
)

// Definition describes one headline metric
type Definition struct {
	Key        string
	Dataset    domain.DatasetKey
	Role       string
	Format     Format
	Constraint Constraint
}

// DefaultDefinitions is the headline metric set shown on the dashboard
func DefaultDefinitions() []Definition {
	return []Definition{
		{Key: "revenue", Dataset: domain.DatasetPrimary, Role: "revenue", Format: CurrencyBillions},
		{Key: "employees", Dataset: domain.DatasetPrimary, Role: "employees", Format: Count},
		{Key: "startups", Dataset: domain.DatasetPrimary, Role: "startups", Format: Count, Constraint: StrictlyPositive},
		{Key: "funding", Dataset: domain.DatasetPrimary, Role: "funding", Format: CurrencyMillions},
		{Key: "employeesFinland", Dataset: domain.DatasetPrimary, Role: "employees_finland", Format: Hundreds},
		{Key: "rnd", Dataset: domain.DatasetRnD, Role: "rnd", Format: CurrencyMillions},
	}
}

// Extractor resolves metric columns and computes headline indicators
type Extractor struct {
	resolver  *columns.Resolver
	formatter *Formatter
	defs      []Definition
	logger    *slog.Logger
}

// NewExtractor creates an extractor. A nil resolver or formatter selects the defaults.
func NewExtractor(resolver *columns.Resolver, formatter *Formatter, defs []Definition, logger *slog.Logger) *Extractor {
	if resolver == nil {
		resolver = columns.DefaultResolver()
	}
	if formatter == nil {
		formatter = DefaultFormatter()
	}
	if defs == nil {
		defs = DefaultDefinitions()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		resolver:  resolver,
		formatter: formatter,
		defs:      defs,
		logger:    logger.With(slog.String("component", "indicators")),
	}
}

// Extract computes a metric for valueCol using the last two valid observations.
// ok is false when no observation survives filtering.
func (e *Extractor) Extract(rows []domain.Row, yearCol, valueCol string, def Definition) (domain.Metric, bool) {
	obs := Observations(rows, yearCol, valueCol, def.Constraint)
	if len(obs) == 0 {
		return e.placeholder(def), false
	}
	latest := obs[len(obs)-1]
	return domain.Metric{
		Value:          latest.Value,
		Growth:         SeriesGrowth(obs),
		Year:           latest.Year,
		FormattedValue: e.formatter.Format(latest.Value, def.Format),
		Column:         valueCol,
		Resolved:       true,
	}, true
}

// Bundle computes every metric. Unresolved metrics are zero placeholders; the
// result is nil only when none resolved. The year column is resolved once per
// dataset and shared by every metric from it.
func (e *Extractor) Bundle(datasets map[domain.DatasetKey][]domain.Row) domain.MetricsBundle {
	schemas := make(map[domain.DatasetKey]columns.Schema)
	years := make(map[domain.DatasetKey]string)

	bundle := make(domain.MetricsBundle, len(e.defs))
	resolved := 0
	for _, def := range e.defs {
		rows := datasets[def.Dataset]
		schema, seen := schemas[def.Dataset]
		if !seen {
			schema = e.resolver.Bind(rows)
			schemas[def.Dataset] = schema
			years[def.Dataset], _ = schema.Column("year")
		}

		col, found := schema.Column(def.Role)
		if !found || years[def.Dataset] == "" {
			e.logger.Debug("metric column not resolved",
				slog.String("metric", def.Key),
				slog.String("dataset", string(def.Dataset)),
				slog.String("role", def.Role))
			bundle[def.Key] = e.placeholder(def)
			continue
		}

		m, ok := e.Extract(rows, years[def.Dataset], col, def)
		if ok {
			resolved++
		}
		bundle[def.Key] = m
	}

	if resolved == 0 {
		return nil
	}
	return bundle
}

func (e *Extractor) placeholder(def Definition) domain.Metric {
	return domain.Metric{FormattedValue: e.formatter.Format(0, def.Format)}
}
