package domain

// ChangeExtreme identifies the record carrying the largest or smallest
// year-over-year price change within a filtered view.
type ChangeExtreme struct {
	RegionName string  `json:"region_name"`
	Year       int     `json:"year"`
	ChangePct  float64 `json:"change_pct"`
}

// RegionAverage is the mean year-over-year price change for one region,
// used for multi-region comparison.
type RegionAverage struct {
	RegionName string `json:"region_name"`
	AvgChange  Stat   `json:"avg_change"`
}

// RegionGrowth reports the total percent increase in house price between
// the first and last year of a region's filtered series.
type RegionGrowth struct {
	RegionName string  `json:"region_name"`
	StartYear  int     `json:"start_year"`
	EndYear    int     `json:"end_year"`
	StartPrice float64 `json:"start_price"`
	EndPrice   float64 `json:"end_price"`
	ChangePct  Stat    `json:"change_pct"`
}

// ViewSummary holds every headline statistic the reporting surface can
// request for a filtered view. Statistics that were not requested, or that
// have no meaningful result (empty view), are left undefined.
type ViewSummary struct {
	Rows int `json:"rows"`

	MeanHousePrice  Stat `json:"mean_house_price"`
	StdHousePrice   Stat `json:"std_house_price"`
	ModeHousePrice  Stat `json:"mode_house_price"`
	MeanGrossIncome Stat `json:"mean_gross_income"`
	StdGrossIncome  Stat `json:"std_gross_income"`

	MeanChange Stat `json:"mean_change"`
	StdChange  Stat `json:"std_change"`
	ModeChange Stat `json:"mode_change"`

	MaxChange *ChangeExtreme `json:"max_change,omitempty"`
	MinChange *ChangeExtreme `json:"min_change,omitempty"`

	RegionAverages []RegionAverage `json:"region_averages,omitempty"`
	BestRegion     string          `json:"best_region,omitempty"`
	WorstRegion    string          `json:"worst_region,omitempty"`

	Growth []RegionGrowth `json:"growth,omitempty"`
	// GrowthMode is the mode of the per-region total percent increases,
	// preserved from the source dashboard's headline metric.
	GrowthMode Stat `json:"growth_mode"`

	PriceIncomeCorrelation Stat `json:"price_income_correlation"`
}
