package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"hpdash/internal/config"
	"hpdash/pkg/contracts/domain"
)

// SheetsUploader pushes a view summary to a Google Sheet so the headline
// numbers can be shared outside the dashboard. It is optional: without a
// spreadsheet ID and credentials file it stays disabled.
type SheetsUploader struct {
	cfg     config.SheetsConfig
	service *sheets.Service
	logger  *slog.Logger
}

// NewSheetsUploader creates a sheets uploader, or returns (nil, nil) when
// the configuration leaves it disabled.
func NewSheetsUploader(ctx context.Context, cfg config.SheetsConfig, logger *slog.Logger) (*SheetsUploader, error) {
	if cfg.SpreadsheetID == "" || cfg.CredentialsFile == "" {
		return nil, nil
	}
	if logger == nil {
		logger = slog.Default()
	}

	service, err := sheets.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &SheetsUploader{
		cfg:     cfg,
		service: service,
		logger:  logger.With(slog.String("component", "sheets_uploader")),
	}, nil
}

// Upload writes the summary block to the configured sheet range.
func (u *SheetsUploader) Upload(ctx context.Context, summary *domain.ViewSummary) error {
	values := [][]interface{}{
		{"Statistic", "Value"},
		{"Rows", summary.Rows},
		{"MeanHousePrice", sheetValue(summary.MeanHousePrice)},
		{"StdHousePrice", sheetValue(summary.StdHousePrice)},
		{"MeanGrossIncome", sheetValue(summary.MeanGrossIncome)},
		{"StdGrossIncome", sheetValue(summary.StdGrossIncome)},
		{"MeanChange", sheetValue(summary.MeanChange)},
		{"StdChange", sheetValue(summary.StdChange)},
		{"GrowthMode", sheetValue(summary.GrowthMode)},
		{"PriceIncomeCorrelation", sheetValue(summary.PriceIncomeCorrelation)},
	}
	for _, avg := range summary.RegionAverages {
		values = append(values, []interface{}{"AvgChange " + avg.RegionName, sheetValue(avg.AvgChange)})
	}

	valueRange := &sheets.ValueRange{Values: values}
	_, err := u.service.Spreadsheets.Values.
		Update(u.cfg.SpreadsheetID, u.cfg.SheetRange, valueRange).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to upload summary to sheet %s: %w", u.cfg.SpreadsheetID, err)
	}

	u.logger.InfoContext(ctx, "summary uploaded to Google Sheets",
		slog.String("spreadsheet_id", u.cfg.SpreadsheetID),
		slog.String("range", u.cfg.SheetRange),
		slog.Int("rows", len(values)))

	return nil
}

// sheetValue renders a Stat for a spreadsheet cell. Undefined and
// non-finite values both become readable strings rather than broken
// cells.
func sheetValue(s domain.Stat) interface{} {
	if !s.Defined {
		return "no data"
	}
	if math.IsNaN(s.Value) || math.IsInf(s.Value, 0) {
		return strconv.FormatFloat(s.Value, 'g', -1, 64)
	}
	return s.Value
}
