package dataprocessing

import (
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	codeColumn = "Code"
	nameColumn = "Name"
)

// WideTable is one sheet in spreadsheet-native layout: one row per region,
// one column per year label. Cell values are kept as raw strings; numeric
// coercion happens when the table is melted.
type WideTable struct {
	Sheet   string
	Columns []string // year-column labels as they appear in the header
	Rows    []WideRow
}

// WideRow is one region's row of a WideTable. Cells is aligned with the
// table's Columns; absent cells are empty strings.
type WideRow struct {
	Code  string
	Name  string
	Cells []string
}

// LoadWorkbook reads the named sheets from an Excel workbook into wide
// tables. The first row of each sheet is skipped; the second row is the
// header and must contain the Code and Name columns.
func LoadWorkbook(path string, sheets []string, logger *slog.Logger) ([]WideTable, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("workbook %s: %w", path, err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer f.Close()

	available := f.GetSheetList()

	tables := make([]WideTable, 0, len(sheets))
	for _, sheet := range sheets {
		if !slices.Contains(available, sheet) {
			return nil, fmt.Errorf("%w: %q (workbook has %s)", ErrSheetNotFound, sheet, strings.Join(available, ", "))
		}

		table, err := loadSheet(f, sheet, logger)
		if err != nil {
			return nil, err
		}
		tables = append(tables, *table)
	}

	return tables, nil
}

// loadSheet reads a single sheet into a WideTable. Row 1 is title chrome
// and is skipped; row 2 is the real header.
func loadSheet(f *excelize.File, sheet string, logger *slog.Logger) (*WideTable, error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("%w: %q", ErrEmptySheet, sheet)
	}

	header := rows[1]
	codeIdx, nameIdx := -1, -1
	for i, label := range header {
		switch strings.TrimSpace(label) {
		case codeColumn:
			codeIdx = i
		case nameColumn:
			nameIdx = i
		}
	}

	var missing []string
	if codeIdx == -1 {
		missing = append(missing, codeColumn)
	}
	if nameIdx == -1 {
		missing = append(missing, nameColumn)
	}
	if len(missing) > 0 {
		return nil, &SchemaError{Sheet: sheet, Missing: missing}
	}

	// Every header cell that is not a key column is a year column.
	var columns []string
	var valueIdx []int
	for i, label := range header {
		if i == codeIdx || i == nameIdx {
			continue
		}
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}
		columns = append(columns, label)
		valueIdx = append(valueIdx, i)
	}

	table := &WideTable{Sheet: sheet, Columns: columns}
	for _, row := range rows[2:] {
		code := cellAt(row, codeIdx)
		name := cellAt(row, nameIdx)
		if code == "" && name == "" {
			continue
		}

		cells := make([]string, len(valueIdx))
		for j, idx := range valueIdx {
			cells[j] = cellAt(row, idx)
		}
		table.Rows = append(table.Rows, WideRow{Code: code, Name: name, Cells: cells})
	}

	logger.Debug("loaded sheet",
		slog.String("sheet", sheet),
		slog.Int("regions", len(table.Rows)),
		slog.Int("year_columns", len(table.Columns)))

	return table, nil
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
