package indicators

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Format selects how a metric value is rendered
type Format string

const (
	// CurrencyAuto picks plain, millions or billions by magnitude
	CurrencyAuto Format = "currency-auto"
	// CurrencyBillions divides by 1e9 and keeps two decimals
	CurrencyBillions Format = "currency-billions"
	// CurrencyMillions rounds to whole millions
	CurrencyMillions Format = "currency-millions"
	// Count groups thousands without decimals
	Count Format = "count"
	// Hundreds rounds to the nearest hundred before grouping
	Hundreds Format = "hundreds"
)

const (
	million = 1e6
	billion = 1e9
)

// SymbolPosition places the currency symbol before or after the number
type SymbolPosition string

const (
	SymbolPrefix SymbolPosition = "prefix"
	SymbolSuffix SymbolPosition = "suffix"
)

// Formatter renders numbers with locale grouping. It is safe for concurrent use.
type Formatter struct {
	printer  *message.Printer
	symbol   string
	position SymbolPosition
}

// NewFormatter builds a formatter for the given BCP 47 tag. An empty tag means English.
func NewFormatter(tag, symbol string, position SymbolPosition) (*Formatter, error) {
	lang := language.English
	if tag != "" {
		parsed, err := language.Parse(tag)
		if err != nil {
			return nil, fmt.Errorf("parse locale %q: %w", tag, err)
		}
		lang = parsed
	}
	if position == "" {
		position = SymbolPrefix
	}
	if position != SymbolPrefix && position != SymbolSuffix {
		return nil, fmt.Errorf("unknown symbol position %q", position)
	}
	return &Formatter{
		printer:  message.NewPrinter(lang),
		symbol:   symbol,
		position: position,
	}, nil
}

// DefaultFormatter formats euros with English grouping
func DefaultFormatter() *Formatter {
	f, _ := NewFormatter("en", "€", SymbolPrefix)
	return f
}

// Format renders v according to kind. Unknown kinds fall back to Count.
func (f *Formatter) Format(v float64, kind Format) string {
	switch kind {
	case CurrencyAuto:
		return f.currencyAuto(v)
	case CurrencyBillions:
		return f.currency(f.printer.Sprintf("%.2f", v/billion) + "B")
	case CurrencyMillions:
		return f.currency(f.grouped(math.Round(v/million)) + "M")
	case Hundreds:
		return f.grouped(math.Round(v/100) * 100)
	default:
		return f.grouped(math.Round(v))
	}
}

// Thresholds are inclusive: 1e6 is the first value shown in millions, 1e9 the
// first shown in billions. A value that would round up to the next unit's
// threshold is shown in that unit, so 999,999.6 reads €1.00M, not €1,000,000.
func (f *Formatter) currencyAuto(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= billion || roundTo(abs/million, 2) >= 1000:
		return f.currency(f.printer.Sprintf("%.2f", v/billion) + "B")
	case abs >= million || math.Round(abs) >= million:
		return f.currency(f.printer.Sprintf("%.2f", v/million) + "M")
	default:
		return f.currency(f.grouped(math.Round(v)))
	}
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func (f *Formatter) grouped(v float64) string {
	return f.printer.Sprintf("%d", int64(v))
}

func (f *Formatter) currency(num string) string {
	if f.symbol == "" {
		return num
	}
	if f.position == SymbolSuffix {
		return num + "\u00a0" + f.symbol
	}
	if strings.HasPrefix(num, "-") {
		return "-" + f.symbol + strings.TrimPrefix(num, "-")
	}
	return f.symbol + num
}
