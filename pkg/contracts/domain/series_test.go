package domain

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPctChangeMarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		in   PctChange
		want string
	}{
		{name: "undefined", in: UndefinedPct(), want: "null"},
		{name: "finite", in: DefinedPct(12.5), want: "12.5"},
		{name: "negative", in: DefinedPct(-3.25), want: "-3.25"},
		{name: "positive infinity", in: DefinedPct(math.Inf(1)), want: `"+Inf"`},
		{name: "negative infinity", in: DefinedPct(math.Inf(-1)), want: `"-Inf"`},
		{name: "nan", in: DefinedPct(math.NaN()), want: `"NaN"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(data))
		})
	}
}

func TestPctChangeUnmarshalJSON(t *testing.T) {
	var p PctChange
	require.NoError(t, json.Unmarshal([]byte("null"), &p))
	assert.True(t, p.Undefined)

	require.NoError(t, json.Unmarshal([]byte("42.5"), &p))
	assert.Equal(t, DefinedPct(42.5), p)

	require.NoError(t, json.Unmarshal([]byte(`"+Inf"`), &p))
	assert.True(t, math.IsInf(p.Value, 1))

	assert.Error(t, json.Unmarshal([]byte(`"not a number"`), &p))
}

func TestStatMarshalRoundTrip(t *testing.T) {
	for _, s := range []Stat{{}, DefinedStat(3.5), DefinedStat(math.Inf(1))} {
		data, err := json.Marshal(s)
		require.NoError(t, err)

		var got Stat
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, s.Defined, got.Defined)
		if s.Defined {
			assert.Equal(t, s.Value, got.Value)
		}
	}
}

func TestRegionYearMarshalsNonFiniteChange(t *testing.T) {
	r := RegionYear{
		RegionCode:     "c1",
		RegionName:     "London",
		Year:           2003,
		HousePrice:     100,
		GrossIncome:    30,
		PriceChangePct: DefinedPct(math.Inf(1)),
	}

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"price_change_pct":"+Inf"`)
}

func TestStringRendering(t *testing.T) {
	assert.Equal(t, "n/a", UndefinedPct().String())
	assert.Equal(t, "10.00%", DefinedPct(10).String())
	assert.Equal(t, "n/a", Stat{}.String())
	assert.Equal(t, "123.46", DefinedStat(123.456).String())
}
