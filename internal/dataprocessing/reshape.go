package dataprocessing

import (
	"strconv"
	"strings"

	"hpdash/pkg/contracts/domain"
)

// yearLabelPrefix is the textual prefix the ONS workbook puts on every
// year column ("Year ending Sep 2024" and so on).
const yearLabelPrefix = "Year ending Sep "

// Melt unpivots the wide table into tidy observations: one record per
// (region, year) pair. Year labels are stripped of the ONS prefix and must
// parse as integers. Blank cells are dropped; non-blank cells must parse
// as floats (the income sheet stores some values as text, so coercion is
// always explicit).
func (w WideTable) Melt() ([]domain.Observation, error) {
	years := make([]int, len(w.Columns))
	for i, label := range w.Columns {
		stripped := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(label), yearLabelPrefix))
		year, err := strconv.Atoi(stripped)
		if err != nil {
			return nil, &ParseError{Sheet: w.Sheet, Column: label, Value: stripped, Err: err}
		}
		years[i] = year
	}

	observations := make([]domain.Observation, 0, len(w.Rows)*len(w.Columns))
	for _, row := range w.Rows {
		for i, cell := range row.Cells {
			if cell == "" {
				continue
			}
			value, err := strconv.ParseFloat(strings.ReplaceAll(cell, ",", ""), 64)
			if err != nil {
				return nil, &ParseError{Sheet: w.Sheet, Column: w.Columns[i], Value: cell, Err: err}
			}
			observations = append(observations, domain.Observation{
				RegionCode: row.Code,
				RegionName: row.Name,
				Year:       years[i],
				Value:      value,
			})
		}
	}

	return observations, nil
}
