package columns

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v2"

	"github.com/youssefzad/FinnishStartupDashboard-sub002/pkg/contracts/domain"
)

//go:embed rules.yaml
var defaultRulesYAML []byte

var (
	// ErrInvalidRule is returned for rules without a role or without any include keyword
	ErrInvalidRule = errors.New("invalid column rule")
)

// Rule is one row of the declarative role table. A column matches when it
// contains at least one AnyOf keyword (if any are listed), every AllOf
// keyword and no Exclude keyword. Exclusion always wins. Rules sharing a role
// are tried by ascending Priority.
type Rule struct {
	Role     string   `yaml:"role"`
	Priority int      `yaml:"priority"`
	AnyOf    []string `yaml:"any_of"`
	AllOf    []string `yaml:"all_of"`
	Exclude  []string `yaml:"exclude"`
}

func (r Rule) matches(normalized string) bool {
	if containsAny(normalized, r.Exclude) {
		return false
	}
	if len(r.AnyOf) > 0 && !containsAny(normalized, r.AnyOf) {
		return false
	}
	return containsAll(normalized, r.AllOf)
}

func (r Rule) normalized() Rule {
	return Rule{
		Role:     r.Role,
		Priority: r.Priority,
		AnyOf:    normalizeAll(r.AnyOf),
		AllOf:    normalizeAll(r.AllOf),
		Exclude:  normalizeAll(r.Exclude),
	}
}

type rulesFile struct {
	Rules []Rule `yaml:"rules"`
}

// ParseRules decodes a YAML rule table
func ParseRules(data []byte) ([]Rule, error) {
	var f rulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode column rules: %w", err)
	}
	return f.Rules, nil
}

// LoadRules reads a YAML rule table from disk
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read column rules: %w", err)
	}
	return ParseRules(data)
}

// DefaultRules returns the embedded rule table
func DefaultRules() []Rule {
	rules, err := ParseRules(defaultRulesYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded column rules: %v", err))
	}
	return rules
}

// Resolution is the outcome of resolving one role against one dataset
type Resolution struct {
	Role        string `json:"role"`
	Column      string `json:"column,omitempty"`
	Found       bool   `json:"found"`
	UnknownRole bool   `json:"unknown_role,omitempty"`
}

// Resolver evaluates the rule table. It holds no per-dataset state, so a
// resolution is always computed against the column set it is given.
type Resolver struct {
	rules map[string][]Rule
	roles []string
}

// NewResolver validates and indexes rules
func NewResolver(rules []Rule) (*Resolver, error) {
	r := &Resolver{rules: make(map[string][]Rule)}
	for i, rule := range rules {
		if rule.Role == "" {
			return nil, fmt.Errorf("%w: rule %d has no role", ErrInvalidRule, i)
		}
		n := rule.normalized()
		if len(n.AnyOf) == 0 && len(n.AllOf) == 0 {
			return nil, fmt.Errorf("%w: rule %d (%s) has no include keywords", ErrInvalidRule, i, rule.Role)
		}
		if _, seen := r.rules[rule.Role]; !seen {
			r.roles = append(r.roles, rule.Role)
		}
		r.rules[rule.Role] = append(r.rules[rule.Role], n)
	}
	for role := range r.rules {
		sort.SliceStable(r.rules[role], func(i, j int) bool {
			return r.rules[role][i].Priority < r.rules[role][j].Priority
		})
	}
	sort.Strings(r.roles)
	return r, nil
}

var defaultResolver = sync.OnceValue(func() *Resolver {
	r, err := NewResolver(DefaultRules())
	if err != nil {
		panic(fmt.Sprintf("embedded column rules: %v", err))
	}
	return r
})

// DefaultResolver returns the shared resolver built from the embedded rules.
// Resolvers are immutable, so the instance is safe to share.
func DefaultResolver() *Resolver {
	return defaultResolver()
}

// Roles lists every known role
func (r *Resolver) Roles() []string {
	out := make([]string, len(r.roles))
	copy(out, r.roles)
	return out
}

// Resolve finds the column for role. Unknown roles and unmatched roles are
// reported in the result, never as a panic or error.
func (r *Resolver) Resolve(cols ColumnSet, role string) Resolution {
	rules, ok := r.rules[role]
	if !ok {
		return Resolution{Role: role, UnknownRole: true}
	}
	for _, rule := range rules {
		if name, ok := cols.match(rule); ok {
			return Resolution{Role: role, Column: name, Found: true}
		}
	}
	return Resolution{Role: role}
}

// Bind scans rows once and returns a schema view for that dataset only
func (r *Resolver) Bind(rows []domain.Row) Schema {
	return Schema{resolver: r, cols: Columns(rows)}
}

// Schema resolves roles against one dataset's column union
type Schema struct {
	resolver *Resolver
	cols     ColumnSet
}

// Column returns the column for role, or "" and false
func (s Schema) Column(role string) (string, bool) {
	if s.resolver == nil {
		return "", false
	}
	res := s.resolver.Resolve(s.cols, role)
	return res.Column, res.Found
}

// Resolve is the full resolution for role
func (s Schema) Resolve(role string) Resolution {
	if s.resolver == nil {
		return Resolution{Role: role, UnknownRole: true}
	}
	return s.resolver.Resolve(s.cols, role)
}

// Columns exposes the underlying column union
func (s Schema) Columns() ColumnSet { return s.cols }
