package embed

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/youssefzad/FinnishStartupDashboard-sub002/internal/charts"
)

// ErrInvalidParams wraps every embed parameter validation failure
var ErrInvalidParams = errors.New("invalid embed parameters")

// Params are the URL-carried settings of an embedded chart surface
type Params struct {
	ChartID    string          `json:"chart_id" validate:"required,max=64,printascii"`
	Filter     string          `json:"filter,omitempty" validate:"omitempty,max=64,printascii"`
	View       string          `json:"view,omitempty" validate:"omitempty,max=64,printascii"`
	Visible    map[string]bool `json:"visible,omitempty" validate:"omitempty,max=32,dive,keys,min=1,max=64,printascii,endkeys"`
	Theme      string          `json:"theme" validate:"oneof=light dark system"`
	ShowTitle  bool            `json:"show_title"`
	ShowSource bool            `json:"show_source"`
	Compact    bool            `json:"compact"`
	Debug      bool            `json:"debug"`
	Width      int             `json:"width,omitempty" validate:"gte=0,lte=10000"`
	Palette    string          `json:"palette,omitempty" validate:"omitempty,palette"`
}

// FieldError describes one rejected parameter
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ParamsError lists the rejected parameters
type ParamsError struct {
	Fields []FieldError
}

func (e *ParamsError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return fmt.Sprintf("%s: %s", ErrInvalidParams, strings.Join(parts, "; "))
}

// Is makes errors.Is(err, ErrInvalidParams) succeed
func (e *ParamsError) Is(target error) bool { return target == ErrInvalidParams }

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func paramsValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New()
		_ = v.RegisterValidation("palette", func(fl validator.FieldLevel) bool {
			name := fl.Field().String()
			for _, p := range charts.PaletteNames() {
				if p == name {
					return true
				}
			}
			return false
		})
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		validate = v
	})
	return validate
}

// DefaultParams returns the settings used when the URL carries none
func DefaultParams(chartID string) Params {
	return Params{
		ChartID:    chartID,
		Theme:      "system",
		ShowTitle:  true,
		ShowSource: true,
	}
}

// ParseParams reads filter, view, show, theme, title, source, compact, debug,
// width and palette from q. The show list holds category keys; a key prefixed
// with "-" or suffixed with ":false" is hidden.
func ParseParams(chartID string, q url.Values) (Params, error) {
	p := DefaultParams(chartID)
	var fields []FieldError

	p.Filter = strings.TrimSpace(q.Get("filter"))
	p.View = strings.TrimSpace(q.Get("view"))
	if t := strings.ToLower(strings.TrimSpace(q.Get("theme"))); t != "" {
		p.Theme = t
	}
	p.Palette = strings.TrimSpace(q.Get("palette"))

	boolParam := func(name string, dst *bool) {
		raw := q.Get(name)
		if raw == "" {
			return
		}
		v, ok := parseBool(raw)
		if !ok {
			fields = append(fields, FieldError{Field: name, Message: "must be a boolean"})
			return
		}
		*dst = v
	}
	boolParam("title", &p.ShowTitle)
	boolParam("source", &p.ShowSource)
	boolParam("compact", &p.Compact)
	boolParam("debug", &p.Debug)

	if raw := q.Get("width"); raw != "" {
		w, err := strconv.Atoi(raw)
		if err != nil {
			fields = append(fields, FieldError{Field: "width", Message: "must be an integer"})
		} else {
			p.Width = w
		}
	}

	for _, list := range q["show"] {
		for _, item := range strings.Split(list, ",") {
			item = strings.TrimSpace(item)
			if item == "" {
				continue
			}
			visible := true
			if strings.HasPrefix(item, "-") {
				item, visible = item[1:], false
			} else if k, v, ok := strings.Cut(item, ":"); ok {
				b, valid := parseBool(v)
				if !valid {
					fields = append(fields, FieldError{Field: "show", Message: fmt.Sprintf("bad flag for %q", k)})
					continue
				}
				item, visible = k, b
			}
			if p.Visible == nil {
				p.Visible = make(map[string]bool)
			}
			p.Visible[item] = visible
		}
	}

	if err := paramsValidator().Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				fields = append(fields, FieldError{Field: fe.Field(), Message: describe(fe)})
			}
		} else {
			fields = append(fields, FieldError{Field: "params", Message: err.Error()})
		}
	}

	if len(fields) > 0 {
		return p, &ParamsError{Fields: fields}
	}
	return p, nil
}

// ChartParams maps the embed settings onto the builder parameter bag
func (p Params) ChartParams() charts.Params {
	return charts.Params{
		Filter:  p.Filter,
		View:    p.View,
		Visible: p.Visible,
		Width:   p.Width,
		Palette: p.Palette,
		Theme:   p.Theme,
		Compact: p.Compact,
	}
}

func parseBool(raw string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	default:
		return false, false
	}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " long"
	case "gte", "lte":
		return "is out of range"
	case "palette":
		return "must be one of: " + strings.Join(charts.PaletteNames(), " ")
	case "printascii":
		return "must be printable ASCII"
	default:
		return "failed " + fe.Tag() + " validation"
	}
}
