package dataprocessing

import (
	"context"
	"log/slog"
	"math"
	"sort"

	"hpdash/pkg/contracts/domain"
)

// StatKind identifies one group of summary statistics the reporting
// surface can request. The dashboard historically shipped as two script
// variants computing different subsets; the enumerated set replaces both.
type StatKind string

const (
	// StatPriceMoments is the mean and standard deviation of house price.
	StatPriceMoments StatKind = "price_moments"
	// StatPriceMode is the most frequent raw house price.
	StatPriceMode StatKind = "price_mode"
	// StatIncomeMoments is the mean and standard deviation of gross income.
	StatIncomeMoments StatKind = "income_moments"
	// StatChangeMoments is the mean and standard deviation of the
	// year-over-year price change.
	StatChangeMoments StatKind = "change_moments"
	// StatChangeMode is the most frequent year-over-year price change.
	StatChangeMode StatKind = "change_mode"
	// StatChangeExtremes is the records with the largest and smallest
	// year-over-year price change.
	StatChangeExtremes StatKind = "change_extremes"
	// StatRegionAverages is the mean price change per region, ranked.
	StatRegionAverages StatKind = "region_averages"
	// StatGrowth is the first-to-last-year percent increase per region,
	// plus the mode of those increases as a headline figure.
	StatGrowth StatKind = "growth"
	// StatCorrelation is the Pearson correlation between house price and
	// gross income.
	StatCorrelation StatKind = "correlation"
)

// StatSet is the collection of statistic groups a summary should include.
type StatSet []StatKind

// DefaultStatSet covers the statistics both historical dashboard variants
// shared: price/income means, change moments and extremes, and the
// per-region ranking.
func DefaultStatSet() StatSet {
	return StatSet{
		StatPriceMoments,
		StatIncomeMoments,
		StatChangeMoments,
		StatChangeExtremes,
		StatRegionAverages,
	}
}

// GrowthStatSet matches the variant that reported first-to-last percent
// increase per region and mode-based headline metrics.
func GrowthStatSet() StatSet {
	return append(DefaultStatSet(), StatGrowth, StatChangeMode)
}

// DistributionStatSet matches the variant that reported the standard
// deviation and mode of the raw price distribution.
func DistributionStatSet() StatSet {
	return append(DefaultStatSet(), StatPriceMode, StatCorrelation)
}

// AllStats includes every statistic group.
func AllStats() StatSet {
	return StatSet{
		StatPriceMoments, StatPriceMode, StatIncomeMoments,
		StatChangeMoments, StatChangeMode, StatChangeExtremes,
		StatRegionAverages, StatGrowth, StatCorrelation,
	}
}

// ValidStatKind reports whether k names a known statistic group.
func ValidStatKind(k StatKind) bool {
	switch k {
	case StatPriceMoments, StatPriceMode, StatIncomeMoments,
		StatChangeMoments, StatChangeMode, StatChangeExtremes,
		StatRegionAverages, StatGrowth, StatCorrelation:
		return true
	}
	return false
}

// Summarizer computes aggregate statistics over a filtered view. An empty
// view is valid input: every statistic comes back undefined and the row
// count is zero, so callers can render "no data" without guarding.
type Summarizer struct {
	logger *slog.Logger
	stats  map[StatKind]bool
}

// NewSummarizer creates a summarizer computing the given statistic set.
func NewSummarizer(logger *slog.Logger, set StatSet) *Summarizer {
	if logger == nil {
		logger = slog.Default()
	}
	stats := make(map[StatKind]bool, len(set))
	for _, k := range set {
		stats[k] = true
	}
	return &Summarizer{
		logger: logger.With(slog.String("component", "summarizer")),
		stats:  stats,
	}
}

// Summarize computes the requested statistics over the view. The view must
// be sorted by (region name, year), which Dataset.Filter guarantees.
func (s *Summarizer) Summarize(ctx context.Context, view []domain.RegionYear) *domain.ViewSummary {
	summary := &domain.ViewSummary{Rows: len(view)}
	if len(view) == 0 {
		s.logger.DebugContext(ctx, "summarizing empty view")
		return summary
	}

	prices := make([]float64, len(view))
	incomes := make([]float64, len(view))
	for i, row := range view {
		prices[i] = row.HousePrice
		incomes[i] = row.GrossIncome
	}
	changes := definedChanges(view)

	if s.stats[StatPriceMoments] {
		summary.MeanHousePrice = mean(prices)
		summary.StdHousePrice = stddev(prices)
	}
	if s.stats[StatPriceMode] {
		summary.ModeHousePrice = mode(prices)
	}
	if s.stats[StatIncomeMoments] {
		summary.MeanGrossIncome = mean(incomes)
		summary.StdGrossIncome = stddev(incomes)
	}
	if s.stats[StatChangeMoments] {
		summary.MeanChange = mean(changes)
		summary.StdChange = stddev(changes)
	}
	if s.stats[StatChangeMode] {
		summary.ModeChange = mode(changes)
	}
	if s.stats[StatChangeExtremes] {
		summary.MaxChange, summary.MinChange = changeExtremes(view)
	}
	if s.stats[StatRegionAverages] {
		summary.RegionAverages = regionAverages(view)
		summary.BestRegion, summary.WorstRegion = bestWorst(summary.RegionAverages)
	}
	if s.stats[StatGrowth] {
		summary.Growth = regionGrowth(view)
		summary.GrowthMode = growthMode(summary.Growth)
	}
	if s.stats[StatCorrelation] {
		summary.PriceIncomeCorrelation = correlation(prices, incomes)
	}

	return summary
}

// definedChanges extracts the defined, non-NaN percent changes from the
// view. Infinities (zero prior-year price) are kept so that aggregates
// over them stay visibly non-finite.
func definedChanges(view []domain.RegionYear) []float64 {
	values := make([]float64, 0, len(view))
	for _, row := range view {
		if row.PriceChangePct.Undefined || math.IsNaN(row.PriceChangePct.Value) {
			continue
		}
		values = append(values, row.PriceChangePct.Value)
	}
	return values
}

func mean(values []float64) domain.Stat {
	if len(values) == 0 {
		return domain.Stat{}
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return domain.DefinedStat(sum / float64(len(values)))
}

// stddev is the sample standard deviation (n-1 denominator). A single
// observation has no spread and yields an undefined result.
func stddev(values []float64) domain.Stat {
	if len(values) < 2 {
		return domain.Stat{}
	}
	m := mean(values).Value
	sum := 0.0
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return domain.DefinedStat(math.Sqrt(sum / float64(len(values)-1)))
}

// mode is the most frequent value; ties resolve to the smallest value,
// matching how the original dashboard picked the first row of a sorted
// mode series.
func mode(values []float64) domain.Stat {
	if len(values) == 0 {
		return domain.Stat{}
	}
	counts := make(map[float64]int, len(values))
	for _, v := range values {
		counts[v]++
	}
	best := values[0]
	bestCount := 0
	for v, n := range counts {
		if n > bestCount || (n == bestCount && v < best) {
			best, bestCount = v, n
		}
	}
	return domain.DefinedStat(best)
}

// changeExtremes finds the records with the largest and smallest defined
// price change. A view with no defined changes (single-year selections)
// yields nil extremes rather than an arbitrary row.
func changeExtremes(view []domain.RegionYear) (maxRow, minRow *domain.ChangeExtreme) {
	for _, row := range view {
		if row.PriceChangePct.Undefined || math.IsNaN(row.PriceChangePct.Value) {
			continue
		}
		v := row.PriceChangePct.Value
		if maxRow == nil || v > maxRow.ChangePct {
			maxRow = &domain.ChangeExtreme{RegionName: row.RegionName, Year: row.Year, ChangePct: v}
		}
		if minRow == nil || v < minRow.ChangePct {
			minRow = &domain.ChangeExtreme{RegionName: row.RegionName, Year: row.Year, ChangePct: v}
		}
	}
	return maxRow, minRow
}

// regionAverages ranks regions by their mean price change, highest first.
// Regions without a single defined change sort last.
func regionAverages(view []domain.RegionYear) []domain.RegionAverage {
	perRegion := make(map[string][]float64)
	var order []string
	for _, row := range view {
		if _, ok := perRegion[row.RegionName]; !ok {
			order = append(order, row.RegionName)
			perRegion[row.RegionName] = nil
		}
		if row.PriceChangePct.Undefined || math.IsNaN(row.PriceChangePct.Value) {
			continue
		}
		perRegion[row.RegionName] = append(perRegion[row.RegionName], row.PriceChangePct.Value)
	}

	averages := make([]domain.RegionAverage, 0, len(order))
	for _, name := range order {
		averages = append(averages, domain.RegionAverage{
			RegionName: name,
			AvgChange:  mean(perRegion[name]),
		})
	}

	sort.SliceStable(averages, func(i, j int) bool {
		a, b := averages[i].AvgChange, averages[j].AvgChange
		if a.Defined != b.Defined {
			return a.Defined
		}
		return a.Value > b.Value
	})

	return averages
}

func bestWorst(averages []domain.RegionAverage) (best, worst string) {
	for _, avg := range averages {
		if !avg.AvgChange.Defined {
			continue
		}
		if best == "" {
			best = avg.RegionName
		}
		worst = avg.RegionName
	}
	return best, worst
}

// regionGrowth computes the total percent increase between the first and
// last year of each region's filtered series. A zero starting price makes
// the increase undefined, mirroring the source dashboard.
func regionGrowth(view []domain.RegionYear) []domain.RegionGrowth {
	var growth []domain.RegionGrowth
	for i := 0; i < len(view); {
		j := i
		for j < len(view) && view[j].RegionName == view[i].RegionName {
			j++
		}
		first, last := view[i], view[j-1]

		g := domain.RegionGrowth{
			RegionName: first.RegionName,
			StartYear:  first.Year,
			EndYear:    last.Year,
			StartPrice: first.HousePrice,
			EndPrice:   last.HousePrice,
		}
		if first.HousePrice != 0 {
			g.ChangePct = domain.DefinedStat(roundTo2((last.HousePrice - first.HousePrice) / first.HousePrice * 100))
		}
		growth = append(growth, g)
		i = j
	}
	return growth
}

// growthMode is the mode of the per-region percent increases, preserved as
// the headline "House Price % Change" metric. Mode of a near-continuous
// series is a questionable headline (every value tends to be unique, so
// ties collapse to the smallest increase); it is kept for parity with the
// original dashboard rather than replaced with a mean.
func growthMode(growth []domain.RegionGrowth) domain.Stat {
	values := make([]float64, 0, len(growth))
	for _, g := range growth {
		if g.ChangePct.Defined {
			values = append(values, g.ChangePct.Value)
		}
	}
	return mode(values)
}

// correlation is the Pearson correlation coefficient. Views with fewer
// than two rows, or with a constant series on either side, have no
// defined correlation.
func correlation(xs, ys []float64) domain.Stat {
	if len(xs) < 2 {
		return domain.Stat{}
	}
	mx := mean(xs).Value
	my := mean(ys).Value

	var sxy, sxx, syy float64
	for i := range xs {
		dx := xs[i] - mx
		dy := ys[i] - my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 || syy == 0 {
		return domain.Stat{}
	}
	return domain.DefinedStat(sxy / math.Sqrt(sxx*syy))
}
