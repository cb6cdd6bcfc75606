package domain

// Metric is a headline indicator derived from one resolved column
type Metric struct {
	Value          float64 `json:"value"`
	Growth         float64 `json:"growth"`
	Year           Value   `json:"year"`
	FormattedValue string  `json:"formattedValue"`
	Column         string  `json:"column,omitempty"`
	Resolved       bool    `json:"resolved"`
}

// MetricsBundle maps a metric key to its indicator. Unresolved metrics appear as
// zero-valued placeholders with Resolved set to false.
type MetricsBundle map[string]Metric
