package dataprocessing

import (
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// writeTestWorkbook writes a workbook with the given sheets into dir and
// returns its path. Each sheet gets a title row, then the header, then
// the data rows.
func writeTestWorkbook(t *testing.T, dir string, sheets map[string][][]interface{}) string {
	t.Helper()

	f := excelize.NewFile()
	first := true
	for name, rows := range sheets {
		if first {
			require.NoError(t, f.SetSheetName("Sheet1", name))
			first = false
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(name, cell, &row))
		}
	}

	path := filepath.Join(dir, "test.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())
	return path
}

func priceSheetRows() [][]interface{} {
	return [][]interface{}{
		{"Table 1a: ratio of house price to earnings"},
		{"Code", "Name", "Year ending Sep 2002", "Year ending Sep 2003"},
		{"E12000007", "London", 200000.0, 220000.0},
		{"E12000001", "North East", 80000.0, 88000.0},
	}
}

func incomeSheetRows() [][]interface{} {
	return [][]interface{}{
		{"Table 1b: residence-based earnings"},
		{"Code", "Name", "Year ending Sep 2002", "Year ending Sep 2003"},
		{"E12000007", "London", 30000.0, 31000.0},
		{"E12000001", "North East", 20000.0, 20500.0},
	}
}

func TestLoadWorkbook(t *testing.T) {
	path := writeTestWorkbook(t, t.TempDir(), map[string][][]interface{}{
		"1a": priceSheetRows(),
		"1b": incomeSheetRows(),
	})

	tables, err := LoadWorkbook(path, []string{"1a", "1b"}, slog.Default())
	require.NoError(t, err)
	require.Len(t, tables, 2)

	prices := tables[0]
	assert.Equal(t, "1a", prices.Sheet)
	assert.Equal(t, []string{"Year ending Sep 2002", "Year ending Sep 2003"}, prices.Columns)
	require.Len(t, prices.Rows, 2)
	assert.Equal(t, "E12000007", prices.Rows[0].Code)
	assert.Equal(t, "London", prices.Rows[0].Name)
	assert.Equal(t, []string{"200000", "220000"}, prices.Rows[0].Cells)
}

func TestLoadWorkbookMissingFile(t *testing.T) {
	_, err := LoadWorkbook(filepath.Join(t.TempDir(), "missing.xlsx"), []string{"1a"}, slog.Default())
	require.Error(t, err)
}

func TestLoadWorkbookMissingSheet(t *testing.T) {
	path := writeTestWorkbook(t, t.TempDir(), map[string][][]interface{}{
		"1a": priceSheetRows(),
	})

	_, err := LoadWorkbook(path, []string{"1a", "1b"}, slog.Default())
	require.ErrorIs(t, err, ErrSheetNotFound)
	assert.Contains(t, err.Error(), `"1b"`)
}

func TestLoadWorkbookMissingColumns(t *testing.T) {
	path := writeTestWorkbook(t, t.TempDir(), map[string][][]interface{}{
		"1a": {
			{"title row"},
			{"Region", "Year ending Sep 2002"},
			{"London", 200000.0},
		},
	})

	_, err := LoadWorkbook(path, []string{"1a"}, slog.Default())
	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, "1a", schemaErr.Sheet)
	assert.ElementsMatch(t, []string{"Code", "Name"}, schemaErr.Missing)
}

func TestLoadWorkbookSkipsBlankRegionRows(t *testing.T) {
	rows := priceSheetRows()
	rows = append(rows, []interface{}{"", "", "", ""})
	path := writeTestWorkbook(t, t.TempDir(), map[string][][]interface{}{"1a": rows})

	tables, err := LoadWorkbook(path, []string{"1a"}, slog.Default())
	require.NoError(t, err)
	assert.Len(t, tables[0].Rows, 2)
}

func TestLoadWorkbookEmptySheet(t *testing.T) {
	path := writeTestWorkbook(t, t.TempDir(), map[string][][]interface{}{
		"1a": {{"only a title"}},
	})

	_, err := LoadWorkbook(path, []string{"1a"}, slog.Default())
	require.ErrorIs(t, err, ErrEmptySheet)
}
