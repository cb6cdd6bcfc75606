// Package charts holds the chart configuration builders. Every builder is a
// pure function of (rows, params): it never mutates rows, and it returns a nil
// config when no eligible column or no valid row exists.
package charts

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/youssefzad/FinnishStartupDashboard-sub002/internal/columns"
	"github.com/youssefzad/FinnishStartupDashboard-sub002/pkg/contracts/domain"
)

// Builder turns a dataset into a chart configuration, or nil when there is nothing to show
type Builder func(rows []domain.Row, p Params) *domain.ChartConfig

// Params is the parameter bag shared by every builder
type Params struct {
	Filter  string
	View    string
	Visible map[string]bool
	Width   int
	Palette string
	Theme   string
	Compact bool

	Handlers domain.Handlers
}

// IsVisible reports the visibility flag for key. Categories default to visible.
func (p Params) IsVisible(key string) bool {
	if p.Visible == nil {
		return true
	}
	v, ok := p.Visible[key]
	return !ok || v
}

// Key is a canonical encoding of the parameters that affect the built config.
// Handlers are excluded.
func (p Params) Key() string {
	keys := make([]string, 0, len(p.Visible))
	for k := range p.Visible {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("f=" + p.Filter)
	b.WriteString("|v=" + p.View)
	b.WriteString("|w=" + strconv.Itoa(widthBucket(p.Width)))
	b.WriteString("|p=" + p.Palette)
	b.WriteString("|t=" + p.Theme)
	b.WriteString("|c=" + strconv.FormatBool(p.Compact))
	for _, k := range keys {
		b.WriteString("|s:" + k + "=" + strconv.FormatBool(p.Visible[k]))
	}
	return b.String()
}

// Breakpoints for layout and tick density
const (
	MobileBreakpoint = 640
	TabletBreakpoint = 1024
	DefaultWidth     = 1200
)

// widthBucket collapses widths that produce identical configs
func widthBucket(w int) int {
	switch {
	case w <= 0:
		return DefaultWidth
	case w < 400:
		return 399
	case w < MobileBreakpoint:
		return MobileBreakpoint - 1
	case w < TabletBreakpoint:
		return TabletBreakpoint - 1
	default:
		return DefaultWidth
	}
}

// TickInterval returns how many labels to skip between rendered x-axis ticks
func TickInterval(width, points int) int {
	w := widthBucket(width)
	maxTicks := w / 80
	if maxTicks < 3 {
		maxTicks = 3
	}
	if points <= maxTicks {
		return 0
	}
	return int(math.Ceil(float64(points)/float64(maxTicks))) - 1
}

// LayoutFor picks horizontal bars on narrow viewports
func LayoutFor(width int) domain.Layout {
	if width > 0 && width < MobileBreakpoint {
		return domain.LayoutHorizontal
	}
	return domain.LayoutVertical
}

var palettes = map[string][]string{
	"default":    {"#1f4e8c", "#e07b39", "#3a9d5d", "#c43c5c", "#7a5ea8", "#8c8c8c"},
	"colorblind": {"#0072b2", "#e69f00", "#009e73", "#d55e00", "#cc79a7", "#56b4e9"},
	"mono":       {"#1a1a1a", "#4d4d4d", "#808080", "#b3b3b3", "#d9d9d9", "#666666"},
}

// PaletteNames lists the accepted palette names
func PaletteNames() []string {
	names := make([]string, 0, len(palettes))
	for n := range palettes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func paletteName(name string) string {
	if _, ok := palettes[name]; ok {
		return name
	}
	return "default"
}

// Color returns the i-th color of the named palette, cycling
func Color(palette string, i int) string {
	colors := palettes[paletteName(palette)]
	return colors[i%len(colors)]
}

func theme(t string) string {
	switch t {
	case "light", "dark":
		return t
	default:
		return "system"
	}
}

func presentation(p Params) domain.Presentation {
	return domain.Presentation{
		Theme:   theme(p.Theme),
		Palette: paletteName(p.Palette),
		Compact: p.Compact,
	}
}

func scaled(v, scale float64, decimals int) float64 {
	if scale == 0 {
		scale = 1
	}
	pow := math.Pow(10, float64(decimals))
	return math.Round(v/scale*pow) / pow
}

func resolverOr(r *columns.Resolver) *columns.Resolver {
	if r == nil {
		return columns.DefaultResolver()
	}
	return r
}

func intPtr(v int) *int { return &v }
