package dataprocessing

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/youssefzad/FinnishStartupDashboard-sub002/pkg/contracts/domain"
)

// ReadWorkbook opens an .xlsx file and converts one sheet into rows. When
// sheet is empty or absent the first sheet with a header and at least one data
// row is used.
func ReadWorkbook(path, sheet string, logger *slog.Logger) ([]domain.Row, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()
	return readSheet(f, sheet, logger)
}

func readSheet(f *excelize.File, sheet string, logger *slog.Logger) ([]domain.Row, error) {
	if logger == nil {
		logger = slog.Default()
	}

	candidates := f.GetSheetList()
	if sheet != "" {
		for _, name := range candidates {
			if strings.EqualFold(strings.TrimSpace(name), strings.TrimSpace(sheet)) {
				candidates = []string{name}
				break
			}
		}
	}

	for _, name := range candidates {
		records, err := f.GetRows(name)
		if err != nil {
			logger.Debug("skipping unreadable sheet",
				slog.String("sheet", name),
				slog.String("error", err.Error()))
			continue
		}
		rows := RecordsToRows(trimLeadingBlank(records))
		if len(rows) == 0 {
			continue
		}
		logger.Debug("workbook sheet selected",
			slog.String("sheet", name),
			slog.Int("rows", len(rows)))
		return rows, nil
	}
	return nil, fmt.Errorf("no sheet with tabular data found")
}

// trimLeadingBlank drops title rows above the header, which spreadsheet
// exports often include as fully blank lines.
func trimLeadingBlank(records [][]string) [][]string {
	for i, rec := range records {
		if !blankRecord(rec) {
			return records[i:]
		}
	}
	return nil
}
