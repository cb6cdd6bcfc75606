package exporter

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// DefaultSheet names the worksheet of exported workbooks
const DefaultSheet = "Data"

// WriteXLSX writes t as a single-sheet workbook. Numeric cells are stored as
// numbers.
func WriteXLSX(w io.Writer, t Table, sheet string) error {
	if sheet == "" {
		sheet = DefaultSheet
	}
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("failed to open stream writer: %w", err)
	}

	header := make([]interface{}, len(t.Headers))
	for i, h := range t.Headers {
		header[i] = h
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	for r, record := range t.Records {
		row := make([]interface{}, len(record))
		for c, cell := range record {
			row[c] = cell
			if r < len(t.Values) && c < len(t.Values[r]) && t.Values[r][c] != nil {
				row[c] = *t.Values[r][c]
			}
		}
		cellRef, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cellRef, row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", r, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush workbook: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// Write encodes t in format to w
func Write(w io.Writer, format Format, t Table) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, t, WriteOptions{BOMPrefix: true})
	case FormatXLSX:
		return WriteXLSX(w, t, DefaultSheet)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}
