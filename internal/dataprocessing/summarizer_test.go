package dataprocessing

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hpdash/pkg/contracts/domain"
)

func row(name string, year int, price, income float64, change domain.PctChange) domain.RegionYear {
	return domain.RegionYear{
		RegionCode:     "c-" + name,
		RegionName:     name,
		Year:           year,
		HousePrice:     price,
		GrossIncome:    income,
		PriceChangePct: change,
	}
}

func TestSummarizeEmptyView(t *testing.T) {
	summary := NewSummarizer(nil, AllStats()).Summarize(context.Background(), nil)

	assert.Equal(t, 0, summary.Rows)
	assert.False(t, summary.MeanHousePrice.Defined)
	assert.False(t, summary.StdHousePrice.Defined)
	assert.False(t, summary.MeanChange.Defined)
	assert.False(t, summary.GrowthMode.Defined)
	assert.False(t, summary.PriceIncomeCorrelation.Defined)
	assert.Nil(t, summary.MaxChange)
	assert.Nil(t, summary.MinChange)
	assert.Empty(t, summary.RegionAverages)
	assert.Empty(t, summary.Growth)
}

func TestSummarizeMoments(t *testing.T) {
	view := []domain.RegionYear{
		row("London", 2002, 100, 10, domain.UndefinedPct()),
		row("London", 2003, 200, 20, domain.DefinedPct(100)),
		row("London", 2004, 300, 30, domain.DefinedPct(50)),
	}

	summary := NewSummarizer(nil, AllStats()).Summarize(context.Background(), view)

	assert.Equal(t, 3, summary.Rows)
	assert.Equal(t, domain.DefinedStat(200), summary.MeanHousePrice)
	assert.Equal(t, domain.DefinedStat(20), summary.MeanGrossIncome)
	assert.Equal(t, domain.DefinedStat(75), summary.MeanChange)

	// Sample standard deviation over {100, 200, 300}.
	require.True(t, summary.StdHousePrice.Defined)
	assert.InDelta(t, 100, summary.StdHousePrice.Value, 1e-9)

	// Perfectly correlated price and income.
	require.True(t, summary.PriceIncomeCorrelation.Defined)
	assert.InDelta(t, 1, summary.PriceIncomeCorrelation.Value, 1e-9)
}

func TestSummarizeSingleRow(t *testing.T) {
	view := []domain.RegionYear{row("London", 2002, 100, 10, domain.UndefinedPct())}

	summary := NewSummarizer(nil, AllStats()).Summarize(context.Background(), view)

	assert.Equal(t, domain.DefinedStat(100), summary.MeanHousePrice)
	assert.False(t, summary.StdHousePrice.Defined, "one observation has no spread")
	assert.False(t, summary.MeanChange.Defined, "no defined changes in a single-year view")
	assert.Nil(t, summary.MaxChange)
	assert.Nil(t, summary.MinChange)
	assert.False(t, summary.PriceIncomeCorrelation.Defined)
}

func TestSummarizeInfinitePropagates(t *testing.T) {
	view := []domain.RegionYear{
		row("London", 2002, 0, 10, domain.UndefinedPct()),
		row("London", 2003, 100, 10, domain.DefinedPct(math.Inf(1))),
		row("London", 2004, 110, 10, domain.DefinedPct(10)),
	}

	summary := NewSummarizer(nil, StatSet{StatChangeMoments, StatChangeExtremes}).
		Summarize(context.Background(), view)

	require.True(t, summary.MeanChange.Defined)
	assert.True(t, math.IsInf(summary.MeanChange.Value, 1), "infinity stays visible in the mean")
	require.NotNil(t, summary.MaxChange)
	assert.True(t, math.IsInf(summary.MaxChange.ChangePct, 1))
}

func TestModeTiesResolveToSmallest(t *testing.T) {
	got := mode([]float64{5, 3, 5, 3, 9})
	assert.Equal(t, domain.DefinedStat(3), got)
}

func TestChangeExtremes(t *testing.T) {
	view := []domain.RegionYear{
		row("London", 2002, 100, 10, domain.UndefinedPct()),
		row("London", 2003, 110, 10, domain.DefinedPct(10)),
		row("Wales", 2002, 100, 10, domain.UndefinedPct()),
		row("Wales", 2003, 85, 10, domain.DefinedPct(-15)),
	}

	maxRow, minRow := changeExtremes(view)
	require.NotNil(t, maxRow)
	require.NotNil(t, minRow)
	assert.Equal(t, "London", maxRow.RegionName)
	assert.Equal(t, 2003, maxRow.Year)
	assert.Equal(t, 10.0, maxRow.ChangePct)
	assert.Equal(t, "Wales", minRow.RegionName)
	assert.Equal(t, -15.0, minRow.ChangePct)
}

func TestRegionAveragesRanking(t *testing.T) {
	view := []domain.RegionYear{
		row("London", 2002, 100, 10, domain.UndefinedPct()),
		row("London", 2003, 110, 10, domain.DefinedPct(10)),
		row("Scotland", 2002, 100, 10, domain.UndefinedPct()), // only an undefined change
		row("Wales", 2002, 100, 10, domain.UndefinedPct()),
		row("Wales", 2003, 130, 10, domain.DefinedPct(30)),
	}

	averages := regionAverages(view)
	require.Len(t, averages, 3)
	assert.Equal(t, "Wales", averages[0].RegionName)
	assert.Equal(t, "London", averages[1].RegionName)
	assert.Equal(t, "Scotland", averages[2].RegionName)
	assert.False(t, averages[2].AvgChange.Defined)

	best, worst := bestWorst(averages)
	assert.Equal(t, "Wales", best)
	assert.Equal(t, "London", worst, "regions without defined changes never rank")
}

func TestRegionGrowth(t *testing.T) {
	view := []domain.RegionYear{
		row("London", 2002, 100, 10, domain.UndefinedPct()),
		row("London", 2004, 150, 10, domain.DefinedPct(25)),
		row("Wales", 2002, 0, 10, domain.UndefinedPct()),
		row("Wales", 2004, 90, 10, domain.DefinedPct(12)),
	}

	growth := regionGrowth(view)
	require.Len(t, growth, 2)

	assert.Equal(t, "London", growth[0].RegionName)
	assert.Equal(t, 2002, growth[0].StartYear)
	assert.Equal(t, 2004, growth[0].EndYear)
	assert.Equal(t, domain.DefinedStat(50), growth[0].ChangePct)

	assert.Equal(t, "Wales", growth[1].RegionName)
	assert.False(t, growth[1].ChangePct.Defined, "zero starting price has no growth ratio")
}

func TestStatSetGating(t *testing.T) {
	view := []domain.RegionYear{
		row("London", 2002, 100, 10, domain.UndefinedPct()),
		row("London", 2003, 110, 12, domain.DefinedPct(10)),
	}

	summary := NewSummarizer(nil, StatSet{StatPriceMoments}).Summarize(context.Background(), view)

	assert.True(t, summary.MeanHousePrice.Defined)
	assert.False(t, summary.MeanGrossIncome.Defined, "income moments were not requested")
	assert.False(t, summary.MeanChange.Defined)
	assert.Nil(t, summary.MaxChange)
	assert.Empty(t, summary.RegionAverages)
}

func TestValidStatKind(t *testing.T) {
	for _, k := range AllStats() {
		assert.True(t, ValidStatKind(k), string(k))
	}
	assert.False(t, ValidStatKind("nope"))
}
