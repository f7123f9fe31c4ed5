package feed

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Columns of the SAP export, in order.
var Columns = []string{"SKU", "Variant", "DateCode", "Date", "Brand", "Category", "Artist", "Process"}

// ReadSpreadsheet parses the first sheet of an xlsx upload. Row 1 is the
// header; columns are located by header name so extra columns are ignored.
func ReadSpreadsheet(file io.Reader) ([]Record, []RowError, error) {
	f, err := excelize.OpenReader(file)
	if err != nil {
		return nil, nil, fmt.Errorf("open spreadsheet: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, nil, fmt.Errorf("spreadsheet has no sheets")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("spreadsheet is empty")
	}

	col := make(map[string]int, len(Columns))
	for i, h := range rows[0] {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"sku", "datecode", "date"} {
		if _, ok := col[required]; !ok {
			return nil, nil, fmt.Errorf("missing column %q", required)
		}
	}

	records := make([]Record, 0, len(rows)-1)
	rowErrs := make([]RowError, 0)
	for rowIdx := 1; rowIdx < len(rows); rowIdx++ {
		row := rows[rowIdx]
		rowNum := rowIdx + 1

		getValue := func(name string) string {
			i, ok := col[strings.ToLower(name)]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		if isBlank(row) {
			continue
		}

		rec, err := newRecord(
			getValue("SKU"),
			getValue("Variant"),
			getValue("DateCode"),
			getValue("Date"),
			getValue("Brand"),
			getValue("Category"),
			getValue("Artist"),
			getValue("Process"),
		)
		if err != nil {
			rowErrs = append(rowErrs, RowError{Row: rowNum, SKU: getValue("SKU"), Message: err.Error()})
			continue
		}
		records = append(records, rec)
	}
	return records, rowErrs, nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
