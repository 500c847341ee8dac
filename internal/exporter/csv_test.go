package exporter

import (
	"bytes"
	"encoding/csv"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hpdash/pkg/contracts/domain"
)

func sampleRows() []domain.RegionYear {
	return []domain.RegionYear{
		{RegionCode: "c1", RegionName: "London", Year: 2002, HousePrice: 200000, GrossIncome: 30000, PriceChangePct: domain.UndefinedPct()},
		{RegionCode: "c1", RegionName: "London", Year: 2003, HousePrice: 220000, GrossIncome: 31000, PriceChangePct: domain.DefinedPct(10)},
	}
}

func TestWriteViewTo(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteViewTo(&buf, sampleRows(), true))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "\xEF\xBB\xBF"), "starts with a UTF-8 BOM")

	reader := csv.NewReader(strings.NewReader(strings.TrimPrefix(out, "\xEF\xBB\xBF")))
	records, err := reader.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, []string{"RegionCode", "RegionName", "Year", "HousePrice", "GrossIncome", "PriceChangePct"}, records[0])
	assert.Equal(t, []string{"c1", "London", "2002", "200000", "30000", ""}, records[1])
	assert.Equal(t, []string{"c1", "London", "2003", "220000", "31000", "10"}, records[2])
}

func TestWriteSummaryTo(t *testing.T) {
	summary := &domain.ViewSummary{
		Rows:           2,
		MeanHousePrice: domain.DefinedStat(210000),
		MaxChange:      &domain.ChangeExtreme{RegionName: "London", Year: 2003, ChangePct: 10},
		RegionAverages: []domain.RegionAverage{
			{RegionName: "London", AvgChange: domain.DefinedStat(10)},
		},
		Growth: []domain.RegionGrowth{
			{RegionName: "London", StartYear: 2002, EndYear: 2003, StartPrice: 200000, EndPrice: 220000, ChangePct: domain.DefinedStat(10)},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteSummaryTo(&buf, summary, false))

	out := buf.String()
	assert.Contains(t, out, "Rows,2")
	assert.Contains(t, out, "MeanHousePrice,210000")
	assert.Contains(t, out, "StdHousePrice,no data")
	assert.Contains(t, out, "London 2003 (+10.00%)")
	assert.Contains(t, out, "AvgChange London,10")
	assert.Contains(t, out, "Growth London 2002-2003,10")
}

func TestCSVWriterFiles(t *testing.T) {
	dir := t.TempDir()
	w := NewCSVWriter(dir, nil)

	viewPath, err := w.WriteView("view.csv", sampleRows())
	require.NoError(t, err)
	data, err := os.ReadFile(viewPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "London")

	summaryPath, err := w.WriteSummary("summary.csv", &domain.ViewSummary{Rows: 2})
	require.NoError(t, err)
	data, err = os.ReadFile(summaryPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Rows,2")
}
