package exporter

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/youssefzad/FinnishStartupDashboard-sub002/pkg/contracts/domain"
)

func singleSeries() *domain.ChartConfig {
	return &domain.ChartConfig{
		Kind:   domain.ChartArea,
		Series: []domain.Series{{Key: "value", Name: "Revenue", Visible: true}},
		Data: []domain.Point{
			{Label: "2022", Value: 4.1, OriginalValue: 4.1e9},
			{Label: "2023", Value: 4.62, OriginalValue: 4.62e9},
		},
	}
}

func multiSeries() *domain.ChartConfig {
	return &domain.ChartConfig{
		Kind: domain.ChartBar,
		Series: []domain.Series{
			{Key: "finnish", Visible: true},
			{Key: "foreign", Visible: false},
			{Key: "female", Visible: true},
		},
		Data: []domain.Point{
			{Label: "2023", Series: map[string]domain.Datum{
				"finnish": {Value: 70, OriginalValue: 16100},
				"foreign": {Value: 30, OriginalValue: 6900},
			}},
		},
	}
}

func TestFromChart(t *testing.T) {
	t.Run("single series", func(t *testing.T) {
		tbl := FromChart(singleSeries())
		want := [][]string{{"2022", "4.1", "4100000000"}, {"2023", "4.62", "4620000000"}}
		assert.Equal(t, []string{"label", "value", "original"}, tbl.Headers)
		if diff := cmp.Diff(want, tbl.Records); diff != "" {
			t.Errorf("records mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("multi series keeps visible only", func(t *testing.T) {
		tbl := FromChart(multiSeries())
		assert.Equal(t, []string{"label", "finnish", "finnish_original", "female", "female_original"}, tbl.Headers)
		assert.Equal(t, [][]string{{"2023", "70", "16100", "", ""}}, tbl.Records)
	})

	t.Run("nil config", func(t *testing.T) {
		tbl := FromChart(nil)
		assert.Equal(t, []string{"label", "value", "original"}, tbl.Headers)
		assert.Empty(t, tbl.Records)
	})
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, FromChart(singleSeries()), WriteOptions{BOMPrefix: true}))

	data := buf.Bytes()
	require.True(t, bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}))

	records, err := csv.NewReader(bytes.NewReader(data[3:])).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"label", "value", "original"},
		{"2022", "4.1", "4100000000"},
		{"2023", "4.62", "4620000000"},
	}, records)
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatXLSX, FromChart(singleSeries())))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(DefaultSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"label", "value", "original"}, rows[0])
	assert.Equal(t, "2023", rows[2][0])

	cellType, err := f.GetCellType(DefaultSheet, "B3")
	require.NoError(t, err)
	assert.NotEqual(t, excelize.CellTypeInlineString, cellType)
	assert.NotEqual(t, excelize.CellTypeSharedString, cellType)
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatCSV, false},
		{"CSV", FormatCSV, false},
		{"xlsx", FormatXLSX, false},
		{"pdf", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrUnsupportedFormat)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	assert.Equal(t, "revenue.xlsx", FormatXLSX.Filename("revenue"))
	assert.Contains(t, FormatCSV.ContentType(), "text/csv")
	assert.ErrorIs(t, Write(&bytes.Buffer{}, Format("pdf"), Table{}), ErrUnsupportedFormat)
}
