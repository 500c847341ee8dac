package dataprocessing

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hpdash/pkg/contracts/domain"
)

func TestMelt(t *testing.T) {
	table := WideTable{
		Sheet:   "1a",
		Columns: []string{"Year ending Sep 2002", "Year ending Sep 2003"},
		Rows: []WideRow{
			{Code: "E12000007", Name: "London", Cells: []string{"200000", "220,500.5"}},
			{Code: "E12000001", Name: "North East", Cells: []string{"80000", ""}},
		},
	}

	obs, err := table.Melt()
	require.NoError(t, err)

	assert.Equal(t, []domain.Observation{
		{RegionCode: "E12000007", RegionName: "London", Year: 2002, Value: 200000},
		{RegionCode: "E12000007", RegionName: "London", Year: 2003, Value: 220500.5},
		{RegionCode: "E12000001", RegionName: "North East", Year: 2002, Value: 80000},
	}, obs)
}

func TestMeltYearLabels(t *testing.T) {
	tests := []struct {
		name    string
		label   string
		want    int
		wantErr bool
	}{
		{name: "prefixed label", label: "Year ending Sep 2024", want: 2024},
		{name: "bare year", label: "2024", want: 2024},
		{name: "padded label", label: "  Year ending Sep 1999 ", want: 1999},
		{name: "non-numeric label", label: "Year ending Sep latest", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := WideTable{
				Sheet:   "1a",
				Columns: []string{tt.label},
				Rows:    []WideRow{{Code: "c", Name: "n", Cells: []string{"1"}}},
			}
			obs, err := table.Melt()
			if tt.wantErr {
				var parseErr *ParseError
				require.ErrorAs(t, err, &parseErr)
				assert.Equal(t, tt.label, parseErr.Column)
				return
			}
			require.NoError(t, err)
			require.Len(t, obs, 1)
			assert.Equal(t, tt.want, obs[0].Year)
		})
	}
}

// TestMeltRoundTrip re-pivots the melted observations by (region, year)
// and checks the result against the wide table: every non-blank cell
// survives with its parsed value, blanks stay absent, and no pair
// appears twice.
func TestMeltRoundTrip(t *testing.T) {
	table := WideTable{
		Sheet:   "1a",
		Columns: []string{"Year ending Sep 2002", "Year ending Sep 2003", "Year ending Sep 2004"},
		Rows: []WideRow{
			{Code: "E12000007", Name: "London", Cells: []string{"200,000", "220,500.5", "240000"}},
			{Code: "E12000001", Name: "North East", Cells: []string{"80000", "", "91,250"}},
			{Code: "W92000004", Name: "Wales", Cells: []string{"", "", "130000.25"}},
		},
	}

	obs, err := table.Melt()
	require.NoError(t, err)

	type key struct {
		code string
		year int
	}
	pivot := make(map[key]float64, len(obs))
	for _, o := range obs {
		k := key{code: o.RegionCode, year: o.Year}
		_, dup := pivot[k]
		require.Falsef(t, dup, "duplicate observation for %s %d", o.RegionCode, o.Year)
		pivot[k] = o.Value
	}

	nonBlank := 0
	for _, row := range table.Rows {
		for i, cell := range row.Cells {
			year, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(table.Columns[i], yearLabelPrefix)))
			require.NoError(t, err)
			k := key{code: row.Code, year: year}

			if cell == "" {
				_, ok := pivot[k]
				assert.Falsef(t, ok, "blank cell for %s %d produced an observation", row.Code, year)
				continue
			}

			nonBlank++
			want, err := strconv.ParseFloat(strings.ReplaceAll(cell, ",", ""), 64)
			require.NoError(t, err)
			got, ok := pivot[k]
			require.Truef(t, ok, "missing observation for %s %d", row.Code, year)
			assert.Equal(t, want, got)
		}
	}
	assert.Len(t, obs, nonBlank)
}

func TestMeltBadValue(t *testing.T) {
	table := WideTable{
		Sheet:   "1b",
		Columns: []string{"2002"},
		Rows:    []WideRow{{Code: "c", Name: "n", Cells: []string{"not a number"}}},
	}

	_, err := table.Melt()
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "1b", parseErr.Sheet)
	assert.Equal(t, "not a number", parseErr.Value)
}
