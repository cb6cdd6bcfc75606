package dataprocessing

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// DefaultDelimiter is the field separator of spreadsheet CSV exports
const DefaultDelimiter = ','

// ParseCSV splits raw delimited text into records of string cells. Quoted
// spans may contain the delimiter, doubled quotes inside them are unescaped
// (RFC 4180) and records with no non-blank cell are skipped. No header
// interpretation happens here.
func ParseCSV(text string, delimiter rune) ([][]string, error) {
	if delimiter == 0 {
		delimiter = DefaultDelimiter
	}

	r := csv.NewReader(strings.NewReader(strings.TrimPrefix(text, "\ufeff")))
	r.Comma = delimiter
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var records [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return records, fmt.Errorf("parse csv: %w", err)
		}
		if blankRecord(rec) {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func blankRecord(rec []string) bool {
	for _, cell := range rec {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
