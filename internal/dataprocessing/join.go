package dataprocessing

import (
	"log/slog"
	"math"
	"sort"

	"hpdash/pkg/contracts/domain"
)

type joinKey struct {
	code string
	name string
	year int
}

// join inner-joins the price and income observations on (code, name,
// year). Keys present in only one input are dropped; that is the intended
// join semantic for mismatched region sets, so drops are only surfaced at
// debug level. The result is sorted by (name, year) ascending, which the
// percent-change scan depends on.
func join(prices, incomes []domain.Observation, logger *slog.Logger) []domain.RegionYear {
	incomeByKey := make(map[joinKey]float64, len(incomes))
	for _, obs := range incomes {
		incomeByKey[joinKey{obs.RegionCode, obs.RegionName, obs.Year}] = obs.Value
	}

	joined := make([]domain.RegionYear, 0, len(prices))
	matched := make(map[joinKey]struct{}, len(prices))
	for _, obs := range prices {
		key := joinKey{obs.RegionCode, obs.RegionName, obs.Year}
		income, ok := incomeByKey[key]
		if !ok {
			continue
		}
		matched[key] = struct{}{}
		joined = append(joined, domain.RegionYear{
			RegionCode:     obs.RegionCode,
			RegionName:     obs.RegionName,
			Year:           obs.Year,
			HousePrice:     obs.Value,
			GrossIncome:    income,
			PriceChangePct: domain.UndefinedPct(),
		})
	}

	if dropped := len(prices) - len(joined); dropped > 0 {
		logger.Debug("join dropped price rows with no matching income key",
			slog.Int("dropped", dropped))
	}
	if dropped := len(incomes) - len(matched); dropped > 0 {
		logger.Debug("join dropped income rows with no matching price key",
			slog.Int("dropped", dropped))
	}

	sort.Slice(joined, func(i, j int) bool {
		if joined[i].RegionName != joined[j].RegionName {
			return joined[i].RegionName < joined[j].RegionName
		}
		return joined[i].Year < joined[j].Year
	})

	return joined
}

// computeChanges fills in the year-over-year house price change for each
// region. Rows must already be sorted by (name, year); the scan never
// crosses a region boundary, and the first year of each region stays
// undefined. A zero prior-year price yields a non-finite value, which is
// propagated as-is.
func computeChanges(rows []domain.RegionYear) []domain.RegionYear {
	out := make([]domain.RegionYear, len(rows))
	copy(out, rows)

	for i := range out {
		if i == 0 || out[i].RegionName != out[i-1].RegionName {
			out[i].PriceChangePct = domain.UndefinedPct()
			continue
		}
		prev := out[i-1].HousePrice
		change := (out[i].HousePrice - prev) / prev * 100
		out[i].PriceChangePct = domain.DefinedPct(roundTo2(change))
	}

	return out
}

func roundTo2(v float64) float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return v
	}
	return math.Round(v*100) / 100
}
