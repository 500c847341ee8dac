// Command report runs the data pipeline against a workbook and writes
// the filtered view and its summary as CSV files, without starting the
// server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"hpdash/internal/config"
	"hpdash/internal/dataprocessing"
	"hpdash/internal/exporter"
	"hpdash/internal/infrastructure"
)

func main() {
	file := flag.String("file", "", "workbook path (defaults to the configured path)")
	regions := flag.String("regions", "", "comma-separated region names (defaults to the configured default selection)")
	from := flag.Int("from", 0, "start year, inclusive")
	to := flag.Int("to", 0, "end year, inclusive")
	out := flag.String("out", "", "export directory (defaults to the configured export dir)")
	upload := flag.Bool("upload", false, "upload the summary to the configured Google Sheet")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		logger = slog.Default()
	}

	if *file != "" {
		cfg.Data.WorkbookPath = *file
	}
	if *out != "" {
		cfg.Data.ExportDir = *out
	}

	ctx := context.Background()
	pipeline := dataprocessing.NewPipeline(dataprocessing.PipelineConfig{
		WorkbookPath: cfg.Data.WorkbookPath,
		PriceSheet:   cfg.Data.PriceSheet,
		IncomeSheet:  cfg.Data.IncomeSheet,
	}, logger)

	dataset, err := pipeline.Load(ctx)
	if err != nil {
		logger.Error("pipeline failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	selection := cfg.Data.DefaultRegions
	if *regions != "" {
		selection = selection[:0]
		for _, name := range strings.Split(*regions, ",") {
			if name = strings.TrimSpace(name); name != "" {
				selection = append(selection, name)
			}
		}
	}

	yearFrom, yearTo := *from, *to
	if yearFrom == 0 {
		yearFrom = dataset.MinYear
	}
	if yearTo == 0 {
		yearTo = dataset.MaxYear
	}

	view := dataset.Filter(selection, yearFrom, yearTo)
	summary := dataprocessing.NewSummarizer(logger, dataprocessing.AllStats()).Summarize(ctx, view)

	logger.Info("report computed",
		slog.Int("rows", summary.Rows),
		slog.String("regions", strings.Join(selection, ", ")),
		slog.Int("from", yearFrom),
		slog.Int("to", yearTo))

	printStat("mean house price", summary.MeanHousePrice)
	printStat("mean gross income", summary.MeanGrossIncome)
	printStat("mean yearly change %", summary.MeanChange)
	printStat("price/income correlation", summary.PriceIncomeCorrelation)
	if summary.MaxChange != nil {
		fmt.Printf("largest rise:  %s %d (%+.2f%%)\n",
			summary.MaxChange.RegionName, summary.MaxChange.Year, summary.MaxChange.ChangePct)
	}
	if summary.MinChange != nil {
		fmt.Printf("largest fall:  %s %d (%+.2f%%)\n",
			summary.MinChange.RegionName, summary.MinChange.Year, summary.MinChange.ChangePct)
	}

	stamp := time.Now().Format("2006-01-02")
	writer := exporter.NewCSVWriter(cfg.Data.ExportDir, logger)
	viewPath, err := writer.WriteView(fmt.Sprintf("view-%s.csv", stamp), view)
	if err != nil {
		logger.Error("view export failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	summaryPath, err := writer.WriteSummary(fmt.Sprintf("summary-%s.csv", stamp), summary)
	if err != nil {
		logger.Error("summary export failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	fmt.Printf("view:    %s\nsummary: %s\n", viewPath, summaryPath)

	if *upload {
		uploader, err := exporter.NewSheetsUploader(ctx, cfg.Sheets, logger)
		if err != nil {
			logger.Error("sheets uploader setup failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		if uploader == nil {
			logger.Warn("sheets upload requested but not configured")
		} else if err := uploader.Upload(ctx, summary); err != nil {
			logger.Error("sheets upload failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}
}

func printStat(label string, s interface{ String() string }) {
	fmt.Printf("%-26s %s\n", label+":", s.String())
}
