// Package dataprocessing turns raw spreadsheet exports into dataset rows.
//
// # Sources
//
// Two inputs are understood:
//
//  1. Delimited text as returned by a published spreadsheet's CSV export
//  2. Sheets of the bundled xlsx workbook, read with excelize
//
// Both produce [][]string records first and share RecordsToRows for the
// header mapping, so a tab fetched remotely and the same tab read from the
// workbook yield identical rows.
//
// # Usage
//
//	rows, err := dataprocessing.ParseRows(body, dataprocessing.DefaultDelimiter)
//	if err != nil {
//	    return fmt.Errorf("tab %s: %w", tab, err)
//	}
//
//	rows, err = dataprocessing.ReadWorkbook("data/startup-data.xlsx", "Barometer", logger)
//
// # Cells
//
// Cells are classified by domain.ParseCell. Numbers grouped with commas,
// spaces or non-breaking spaces, and numbers carrying a currency symbol, are
// read as numbers. Blank cells are absent from the row rather than stored as
// empty strings.
//
// # Error Handling
//
// Malformed quoting is tolerated (lazy quotes). A named sheet that does not
// exist falls back to the first sheet holding a header and a data row; an
// error is returned only when no sheet has tabular data.
package dataprocessing
