package domain

import (
	"fmt"
	"math"
	"strconv"
)

// Observation is a single tidy record: one metric value for one region in
// one year, produced by unpivoting a wide spreadsheet sheet.
type Observation struct {
	RegionCode string  `json:"region_code"`
	RegionName string  `json:"region_name"`
	Year       int     `json:"year"`
	Value      float64 `json:"value"`
}

// PctChange is a year-over-year percentage change. Undefined marks the
// first year of a region's series, where no prior value exists. The value
// may be non-finite when the prior-year price was zero; it is propagated
// unchanged rather than clamped.
type PctChange struct {
	Value     float64
	Undefined bool
}

// DefinedPct returns a defined PctChange with the given value.
func DefinedPct(v float64) PctChange {
	return PctChange{Value: v}
}

// UndefinedPct returns the undefined PctChange.
func UndefinedPct() PctChange {
	return PctChange{Undefined: true}
}

// MarshalJSON renders undefined as null and non-finite values as quoted
// strings, so JSON consumers never receive a bare Inf/NaN token.
func (p PctChange) MarshalJSON() ([]byte, error) {
	return marshalMaybeFinite(p.Value, p.Undefined)
}

// UnmarshalJSON accepts null, a JSON number, or a quoted non-finite string.
func (p *PctChange) UnmarshalJSON(data []byte) error {
	v, undefined, err := unmarshalMaybeFinite(data)
	if err != nil {
		return err
	}
	p.Value = v
	p.Undefined = undefined
	return nil
}

// Stat is an aggregate statistic that may be undefined, typically because
// the filtered view it was computed over was empty.
type Stat struct {
	Value   float64
	Defined bool
}

// DefinedStat returns a defined Stat with the given value.
func DefinedStat(v float64) Stat {
	return Stat{Value: v, Defined: true}
}

// MarshalJSON renders undefined stats as null and non-finite values as
// quoted strings.
func (s Stat) MarshalJSON() ([]byte, error) {
	return marshalMaybeFinite(s.Value, !s.Defined)
}

// UnmarshalJSON accepts null, a JSON number, or a quoted non-finite string.
func (s *Stat) UnmarshalJSON(data []byte) error {
	v, undefined, err := unmarshalMaybeFinite(data)
	if err != nil {
		return err
	}
	s.Value = v
	s.Defined = !undefined
	return nil
}

// String renders the change for logs and reports.
func (p PctChange) String() string {
	if p.Undefined {
		return "n/a"
	}
	return strconv.FormatFloat(p.Value, 'f', 2, 64) + "%"
}

// String renders the statistic for logs and reports.
func (s Stat) String() string {
	if !s.Defined {
		return "n/a"
	}
	return strconv.FormatFloat(s.Value, 'f', 2, 64)
}

func marshalMaybeFinite(v float64, undefined bool) ([]byte, error) {
	if undefined {
		return []byte("null"), nil
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return []byte(strconv.Quote(strconv.FormatFloat(v, 'g', -1, 64))), nil
	}
	return []byte(strconv.FormatFloat(v, 'f', -1, 64)), nil
}

func unmarshalMaybeFinite(data []byte) (v float64, undefined bool, err error) {
	s := string(data)
	if s == "null" {
		return 0, true, nil
	}
	if unquoted, uerr := strconv.Unquote(s); uerr == nil {
		s = unquoted
	}
	v, err = strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, fmt.Errorf("invalid numeric value %q: %w", string(data), err)
	}
	return v, false, nil
}

// RegionYear is one joined record: both metrics for a (region, year) key
// present in both source sheets, plus the derived year-over-year price
// change. Records are immutable once the dataset is built.
type RegionYear struct {
	RegionCode     string    `json:"region_code"`
	RegionName     string    `json:"region_name"`
	Year           int       `json:"year"`
	HousePrice     float64   `json:"house_price"`
	GrossIncome    float64   `json:"gross_income"`
	PriceChangePct PctChange `json:"price_change_pct"`
}
