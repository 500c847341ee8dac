package dataprocessing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hpdash/pkg/contracts/domain"
)

func loadTestDataset(t *testing.T) *Dataset {
	t.Helper()

	path := writeTestWorkbook(t, t.TempDir(), map[string][][]interface{}{
		"1a": priceSheetRows(),
		"1b": incomeSheetRows(),
	})

	p := NewPipeline(PipelineConfig{
		WorkbookPath: path,
		PriceSheet:   "1a",
		IncomeSheet:  "1b",
	}, nil)

	ds, err := p.Load(context.Background())
	require.NoError(t, err)
	return ds
}

func TestPipelineLoad(t *testing.T) {
	ds := loadTestDataset(t)

	assert.Len(t, ds.Rows, 4)
	assert.Equal(t, []string{"London", "North East"}, ds.Regions)
	assert.Equal(t, 2002, ds.MinYear)
	assert.Equal(t, 2003, ds.MaxYear)
	assert.Len(t, ds.Fingerprint, 64)
	assert.False(t, ds.LoadedAt.IsZero())

	// Derived change present on each region's second year.
	assert.Equal(t, domain.DefinedPct(10), ds.Rows[1].PriceChangePct)
	assert.True(t, ds.Rows[2].PriceChangePct.Undefined)
}

func TestPipelineLoadNoOverlap(t *testing.T) {
	path := writeTestWorkbook(t, t.TempDir(), map[string][][]interface{}{
		"1a": {
			{"title"},
			{"Code", "Name", "2002"},
			{"c1", "London", 100.0},
		},
		"1b": {
			{"title"},
			{"Code", "Name", "2002"},
			{"c2", "Wales", 100.0},
		},
	})

	p := NewPipeline(PipelineConfig{WorkbookPath: path, PriceSheet: "1a", IncomeSheet: "1b"}, nil)
	_, err := p.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no joined records")
}

func TestDatasetFilter(t *testing.T) {
	ds := loadTestDataset(t)

	tests := []struct {
		name    string
		regions []string
		from    int
		to      int
		want    int
	}{
		{name: "single region all years", regions: []string{"London"}, from: 2002, to: 2003, want: 2},
		{name: "inclusive bounds", regions: []string{"London"}, from: 2003, to: 2003, want: 1},
		{name: "both regions", regions: []string{"London", "North East"}, from: 2002, to: 2003, want: 4},
		{name: "empty selection", regions: []string{}, from: 2002, to: 2003, want: 0},
		{name: "unknown region", regions: []string{"Narnia"}, from: 2002, to: 2003, want: 0},
		{name: "range outside data", regions: []string{"London"}, from: 1990, to: 1995, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view := ds.Filter(tt.regions, tt.from, tt.to)
			assert.Len(t, view, tt.want)
		})
	}
}

func TestDatasetFilterIsPure(t *testing.T) {
	ds := loadTestDataset(t)
	before := len(ds.Rows)

	first := ds.Filter([]string{"London"}, 2002, 2003)
	second := ds.Filter([]string{"London"}, 2002, 2003)

	assert.Equal(t, first, second)
	assert.Len(t, ds.Rows, before)

	// Mutating the view must not leak into the dataset.
	if len(first) > 0 {
		first[0].RegionName = "mutated"
		assert.Equal(t, "London", ds.Rows[0].RegionName)
	}
}

func TestStoreSwap(t *testing.T) {
	a := &Dataset{Fingerprint: "a"}
	b := &Dataset{Fingerprint: "b"}

	store := NewStore(a)
	assert.Same(t, a, store.Dataset())

	old := store.Swap(b)
	assert.Same(t, a, old)
	assert.Same(t, b, store.Dataset())
}
