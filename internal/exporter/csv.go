package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"hpdash/pkg/contracts/domain"
)

// CSVWriter exports filtered views and summaries as CSV files under a
// configured export directory.
type CSVWriter struct {
	dir    string
	logger *slog.Logger
}

// NewCSVWriter creates a CSV writer rooted at dir.
func NewCSVWriter(dir string, logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{dir: dir, logger: logger.With(slog.String("component", "csv_writer"))}
}

// WriteView writes a filtered view to name under the export directory and
// returns the full path.
func (w *CSVWriter) WriteView(name string, rows []domain.RegionYear) (string, error) {
	path := filepath.Join(w.dir, name)
	w.logger.Info("writing view CSV",
		slog.String("path", path),
		slog.Int("rows", len(rows)))

	file, err := createFile(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	if err := WriteViewTo(file, rows, true); err != nil {
		return "", fmt.Errorf("failed to write view CSV: %w", err)
	}
	return path, nil
}

// WriteSummary writes a view summary to name under the export directory
// and returns the full path.
func (w *CSVWriter) WriteSummary(name string, summary *domain.ViewSummary) (string, error) {
	path := filepath.Join(w.dir, name)
	w.logger.Info("writing summary CSV", slog.String("path", path))

	file, err := createFile(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	if err := WriteSummaryTo(file, summary, true); err != nil {
		return "", fmt.Errorf("failed to write summary CSV: %w", err)
	}
	return path, nil
}

// WriteViewTo streams a filtered view as CSV. The optional UTF-8 BOM
// helps Excel recognize the encoding.
func WriteViewTo(out io.Writer, rows []domain.RegionYear, bom bool) error {
	if bom {
		if _, err := out.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return err
		}
	}

	writer := csv.NewWriter(out)
	defer writer.Flush()

	header := []string{"RegionCode", "RegionName", "Year", "HousePrice", "GrossIncome", "PriceChangePct"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, row := range rows {
		record := []string{
			row.RegionCode,
			row.RegionName,
			strconv.Itoa(row.Year),
			formatFloat(row.HousePrice),
			formatFloat(row.GrossIncome),
			formatPct(row.PriceChangePct),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteSummaryTo streams a view summary as key/value CSV rows.
func WriteSummaryTo(out io.Writer, summary *domain.ViewSummary, bom bool) error {
	if bom {
		if _, err := out.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return err
		}
	}

	writer := csv.NewWriter(out)
	defer writer.Flush()

	if err := writer.Write([]string{"Statistic", "Value"}); err != nil {
		return err
	}

	records := [][]string{
		{"Rows", strconv.Itoa(summary.Rows)},
		{"MeanHousePrice", formatStat(summary.MeanHousePrice)},
		{"StdHousePrice", formatStat(summary.StdHousePrice)},
		{"ModeHousePrice", formatStat(summary.ModeHousePrice)},
		{"MeanGrossIncome", formatStat(summary.MeanGrossIncome)},
		{"StdGrossIncome", formatStat(summary.StdGrossIncome)},
		{"MeanChange", formatStat(summary.MeanChange)},
		{"StdChange", formatStat(summary.StdChange)},
		{"ModeChange", formatStat(summary.ModeChange)},
		{"GrowthMode", formatStat(summary.GrowthMode)},
		{"PriceIncomeCorrelation", formatStat(summary.PriceIncomeCorrelation)},
	}
	if summary.MaxChange != nil {
		records = append(records, []string{
			"MaxChange",
			fmt.Sprintf("%s %d (%+.2f%%)", summary.MaxChange.RegionName, summary.MaxChange.Year, summary.MaxChange.ChangePct),
		})
	}
	if summary.MinChange != nil {
		records = append(records, []string{
			"MinChange",
			fmt.Sprintf("%s %d (%+.2f%%)", summary.MinChange.RegionName, summary.MinChange.Year, summary.MinChange.ChangePct),
		})
	}
	for _, avg := range summary.RegionAverages {
		records = append(records, []string{"AvgChange " + avg.RegionName, formatStat(avg.AvgChange)})
	}
	for _, g := range summary.Growth {
		records = append(records, []string{
			fmt.Sprintf("Growth %s %d-%d", g.RegionName, g.StartYear, g.EndYear),
			formatStat(g.ChangePct),
		})
	}

	for _, record := range records {
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func createFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create export file: %w", err)
	}
	return file, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatPct(p domain.PctChange) string {
	if p.Undefined {
		return ""
	}
	return strconv.FormatFloat(p.Value, 'f', -1, 64)
}

func formatStat(s domain.Stat) string {
	if !s.Defined {
		return "no data"
	}
	return strconv.FormatFloat(s.Value, 'f', -1, 64)
}
