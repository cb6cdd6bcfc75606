package domain

// ChartKind selects the generic rendering component
type ChartKind string

const (
	ChartArea      ChartKind = "area"
	ChartBar       ChartKind = "bar"
	ChartLine      ChartKind = "line"
	ChartBarometer ChartKind = "barometer"
	ChartRanked    ChartKind = "ranked-bar"
)

// Layout is the bar orientation chosen from the viewport width
type Layout string

const (
	LayoutVertical   Layout = "vertical"
	LayoutHorizontal Layout = "horizontal"
)

// ChartConfig is the declarative, render-ready description of one chart. A nil
// *ChartConfig means there is no data to show, which is not an error.
type ChartConfig struct {
	Kind         ChartKind    `json:"kind"`
	Data         []Point      `json:"data"`
	Series       []Series     `json:"series"`
	XAxis        Axis         `json:"xAxis"`
	YAxis        Axis         `json:"yAxis"`
	Tooltip      Tooltip      `json:"tooltip"`
	Filters      []Option     `json:"filters,omitempty"`
	ActiveFilter string       `json:"activeFilter,omitempty"`
	Views        []Option     `json:"views,omitempty"`
	ActiveView   string       `json:"activeView,omitempty"`
	Toggles      []Toggle     `json:"toggles,omitempty"`
	Layout       Layout       `json:"layout"`
	Presentation Presentation `json:"presentation"`

	// Handlers are passed through from the request parameters for in-process
	// renderers and never serialized.
	Handlers Handlers `json:"-"`
}

// Point is one x-axis position. Single-series charts use Value and
// OriginalValue; multi-series charts fill Series keyed by series key.
type Point struct {
	Label         string           `json:"label"`
	Value         float64          `json:"value"`
	OriginalValue float64          `json:"originalValue"`
	Series        map[string]Datum `json:"series,omitempty"`
}

// Datum pairs the display-scaled value with the raw source value
type Datum struct {
	Value         float64 `json:"value"`
	OriginalValue float64 `json:"originalValue"`
}

// Series describes one plotted line, area or bar group
type Series struct {
	Key     string `json:"key"`
	Name    string `json:"name"`
	Color   string `json:"color"`
	Visible bool   `json:"visible"`
	Unit    string `json:"unit,omitempty"`
}

// Axis describes one chart axis
type Axis struct {
	DataKey      string `json:"dataKey,omitempty"`
	Label        string `json:"label,omitempty"`
	Unit         string `json:"unit,omitempty"`
	TickInterval int    `json:"tickInterval"`
	Min          *int   `json:"min,omitempty"`
	Max          *int   `json:"max,omitempty"`
}

// Tooltip controls value display on hover
type Tooltip struct {
	Unit         string `json:"unit,omitempty"`
	Decimals     int    `json:"decimals"`
	ShowOriginal bool   `json:"showOriginal"`
}

// Option is a selectable filter or view token
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Toggle is an independently switchable category
type Toggle struct {
	Key     string `json:"key"`
	Label   string `json:"label"`
	Visible bool   `json:"visible"`
}

// Presentation carries flags for the rendering component
type Presentation struct {
	Theme         string `json:"theme"`
	Palette       string `json:"palette"`
	ShowLegend    bool   `json:"showLegend"`
	Stacked       bool   `json:"stacked"`
	Compact       bool   `json:"compact"`
	ReferenceLine bool   `json:"referenceLine"`
}

// Handlers are optional UI callbacks supplied by an in-process caller
type Handlers struct {
	OnFilterChange func(filter string)
	OnViewChange   func(view string)
	OnToggle       func(key string, visible bool)
}
