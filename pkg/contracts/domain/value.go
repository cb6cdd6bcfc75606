package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// ValueKind tags the content of a cell
type ValueKind uint8

const (
	KindMissing ValueKind = iota
	KindNumber
	KindString
)

// String returns the kind name used in logs
func (k ValueKind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	default:
		return "missing"
	}
}

// Value is a single cell. The kind is assigned once when the source is parsed
// and never re-inspected afterwards.
type Value struct {
	kind ValueKind
	num  float64
	str  string
}

// Missing returns the absent value
func Missing() Value { return Value{} }

// Number wraps a numeric cell. NaN and infinities are stored as missing.
func Number(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}
	}
	return Value{kind: KindNumber, num: f}
}

// Text wraps a raw string cell without attempting numeric conversion
func Text(s string) Value {
	return Value{kind: KindString, str: s}
}

// ParseCell converts raw cell text into a tagged value. Blank text is missing,
// text that parses as a number (strictly or after cleanup) is numeric, anything
// else is kept as a string.
func ParseCell(raw string) Value {
	s := strings.TrimFunc(raw, isSpaceVariant)
	if s == "" {
		return Value{}
	}
	if f, ok := ParseNumber(s); ok {
		return Number(f)
	}
	return Text(s)
}

// currencySymbols are stripped before the lenient numeric retry
const currencySymbols = "€$£¥"

// ParseNumber parses s strictly first and, on failure, retries after removing
// thousand separators, currency symbols and Unicode space variants.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimFunc(s, isSpaceVariant)
	if s == "" {
		return 0, false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return finite(f)
	}

	cleaned := strings.Map(func(r rune) rune {
		if isSpaceVariant(r) || r == ',' || strings.ContainsRune(currencySymbols, r) {
			return -1
		}
		return r
	}, s)
	if cleaned == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return finite(f)
}

func finite(f float64) (float64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// isSpaceVariant covers ASCII whitespace plus no-break, narrow no-break and
// thin spaces used as grouping characters in exported spreadsheets.
func isSpaceVariant(r rune) bool {
	switch r {
	case '\u00a0', '\u202f', '\u2009', '\u2007', '\ufeff':
		return true
	}
	return unicode.IsSpace(r)
}

// Kind reports the tag of the value
func (v Value) Kind() ValueKind { return v.kind }

// IsMissing reports whether the cell is absent
func (v Value) IsMissing() bool { return v.kind == KindMissing }

// Float returns the numeric content
func (v Value) Float() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return v.num, true
}

// Str returns the raw string content
func (v Value) Str() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.str, true
}

// String renders the value as a label. Whole numbers print without decimals
// so a numeric year becomes "2023".
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		if v.num == math.Trunc(v.num) && math.Abs(v.num) < 1e15 {
			return strconv.FormatFloat(v.num, 'f', 0, 64)
		}
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindString:
		return v.str
	default:
		return ""
	}
}

// MarshalJSON writes numbers as JSON numbers, strings as strings and missing as null
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNumber:
		return json.Marshal(v.num)
	case KindString:
		return json.Marshal(v.str)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts numbers, strings, booleans and null. Strings go through
// ParseCell so persisted files containing "1 234" still yield numbers.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode cell: %w", err)
	}
	switch x := raw.(type) {
	case nil:
		*v = Missing()
	case float64:
		*v = Number(x)
	case string:
		*v = ParseCell(x)
	case bool:
		*v = Text(strconv.FormatBool(x))
	default:
		*v = Missing()
	}
	return nil
}

// Equal reports whether both values carry the same kind and content
func (v Value) Equal(o Value) bool {
	return v.kind == o.kind && v.num == o.num && v.str == o.str
}
