package registry

import (
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/youssefzad/FinnishStartupDashboard-sub002/internal/charts"
	"github.com/youssefzad/FinnishStartupDashboard-sub002/pkg/contracts/domain"
)

func nullBuilder(rows []domain.Row, p charts.Params) *domain.ChartConfig { return nil }

func ids(r *Registry) []string {
	var out []string
	for _, e := range r.List() {
		out = append(out, e.ID)
	}
	return out
}

func TestRegistry_Register(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(Entry{ID: "a", Build: nullBuilder}))
	require.NoError(t, r.Register(Entry{ID: "b", Build: nullBuilder}))

	assert.Error(t, r.Register(Entry{ID: "a", Build: nullBuilder}), "duplicate id")
	assert.Error(t, r.Register(Entry{ID: "", Build: nullBuilder}))
	assert.Error(t, r.Register(Entry{ID: "c"}))

	assert.Equal(t, []string{"a", "b"}, ids(r))
	assert.True(t, r.Has("b"))
}

func TestRegistry_ResolveUnknown(t *testing.T) {
	r := Default(nil)

	assert.NotPanics(t, func() {
		_, err := r.Resolve("no-such-chart")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrNotFound))

		var nf *NotFoundError
		require.True(t, errors.As(err, &nf))
		assert.Equal(t, "no-such-chart", nf.ID)

		want := ids(r)
		sort.Strings(want)
		assert.Equal(t, want, nf.ValidIDs)
		assert.Contains(t, nf.Error(), "top-valuations")
	})
}

func TestDefault_Entries(t *testing.T) {
	r := Default(nil)
	expected := map[string]domain.DatasetKey{
		"revenue":                       domain.DatasetPrimary,
		"employees":                     domain.DatasetPrimary,
		"startups":                      domain.DatasetPrimary,
		"funding":                       domain.DatasetPrimary,
		"rnd-investment":                domain.DatasetRnD,
		"workforce-origin":              domain.DatasetDemographics,
		"workforce-gender":              domain.DatasetDemographics,
		"barometer-financial-situation": domain.DatasetBarometer,
		"barometer-staffing":            domain.DatasetBarometer,
		"barometer-revenue":             domain.DatasetBarometer,
		"barometer-economy":             domain.DatasetBarometer,
		"top-valuations":                domain.DatasetValuations,
	}
	assert.Len(t, r.List(), len(expected))

	for id, ds := range expected {
		e, err := r.Resolve(id)
		require.NoError(t, err, id)
		assert.Equal(t, ds, e.Dataset, id)
		assert.NotEmpty(t, e.Title, id)
		assert.Nil(t, e.Build(nil, charts.Params{}), "%s must return a nil config for an empty dataset", id)
	}
}

func TestDefault_EmployeesFinlandFilter(t *testing.T) {
	e, err := Default(nil).Resolve("employees")
	require.NoError(t, err)

	rows := []domain.Row{
		{"Year": domain.Number(2020), "Employees": domain.Number(1000)},
		{"Year": domain.Number(2021), "Employees": domain.Number(1200), "Employees in Finland": domain.Number(900)},
	}
	cfg := e.Build(rows, charts.Params{Filter: FilterFinland})
	require.NotNil(t, cfg)
	assert.Equal(t, FilterFinland, cfg.ActiveFilter)
	require.Len(t, cfg.Data, 1)
	assert.Equal(t, 900.0, cfg.Data[0].Value)
	assert.Equal(t, []domain.Option{{Value: charts.FilterAll, Label: "All"}, {Value: FilterFinland, Label: "In Finland"}}, cfg.Filters)
}
