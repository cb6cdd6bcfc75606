// Package exporter writes chart data as downloadable files.
//
// FromChart flattens a ChartConfig into a Table of label, display value and
// original source value. WriteCSV emits it with encoding/csv, optionally with
// a UTF-8 BOM so spreadsheet tools detect the encoding. WriteXLSX emits a
// single-sheet workbook through excelize with numeric cells kept numeric.
package exporter
