package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"

	"hpdash/pkg/contracts/domain"
)

// PipelineConfig locates the source workbook and its two metric sheets.
type PipelineConfig struct {
	WorkbookPath string
	PriceSheet   string
	IncomeSheet  string
}

// Pipeline builds datasets from the configured workbook. It carries no
// state between runs; each Load produces a fresh, immutable Dataset.
type Pipeline struct {
	cfg    PipelineConfig
	logger *slog.Logger
}

// NewPipeline creates a pipeline for the given workbook configuration.
func NewPipeline(cfg PipelineConfig, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "pipeline")),
	}
}

// Dataset is the fully derived joined table plus the metadata the
// dashboard needs to bound its filter controls. It is never mutated after
// Load returns it; filtering always produces a new slice.
type Dataset struct {
	Rows        []domain.RegionYear // sorted by (region name, year)
	Regions     []string            // unique region names, sorted
	MinYear     int
	MaxYear     int
	Fingerprint string // blake2b-256 of the source workbook bytes
	LoadedAt    time.Time
}

// Load runs the full pipeline: load both sheets, melt, join, derive the
// percent change, and collect the region/year bounds. Any failure is fatal
// for the load; there is no partial dataset.
func (p *Pipeline) Load(ctx context.Context) (*Dataset, error) {
	start := time.Now()
	p.logger.InfoContext(ctx, "loading workbook",
		slog.String("path", p.cfg.WorkbookPath),
		slog.String("price_sheet", p.cfg.PriceSheet),
		slog.String("income_sheet", p.cfg.IncomeSheet))

	tables, err := LoadWorkbook(p.cfg.WorkbookPath, []string{p.cfg.PriceSheet, p.cfg.IncomeSheet}, p.logger)
	if err != nil {
		return nil, err
	}

	prices, err := tables[0].Melt()
	if err != nil {
		return nil, fmt.Errorf("melt price sheet: %w", err)
	}
	incomes, err := tables[1].Melt()
	if err != nil {
		return nil, fmt.Errorf("melt income sheet: %w", err)
	}

	rows := computeChanges(join(prices, incomes, p.logger))
	if len(rows) == 0 {
		return nil, fmt.Errorf("workbook %s produced no joined records", p.cfg.WorkbookPath)
	}

	fingerprint, err := fingerprintFile(p.cfg.WorkbookPath)
	if err != nil {
		return nil, err
	}

	ds := &Dataset{
		Rows:        rows,
		Fingerprint: fingerprint,
		LoadedAt:    time.Now(),
		MinYear:     rows[0].Year,
		MaxYear:     rows[0].Year,
	}

	seen := make(map[string]struct{})
	for _, row := range rows {
		if _, ok := seen[row.RegionName]; !ok {
			seen[row.RegionName] = struct{}{}
			ds.Regions = append(ds.Regions, row.RegionName)
		}
		if row.Year < ds.MinYear {
			ds.MinYear = row.Year
		}
		if row.Year > ds.MaxYear {
			ds.MaxYear = row.Year
		}
	}
	sort.Strings(ds.Regions)

	p.logger.InfoContext(ctx, "dataset loaded",
		slog.Int("rows", len(ds.Rows)),
		slog.Int("regions", len(ds.Regions)),
		slog.Int("min_year", ds.MinYear),
		slog.Int("max_year", ds.MaxYear),
		slog.String("fingerprint", ds.Fingerprint[:12]),
		slog.Duration("elapsed", time.Since(start)))

	return ds, nil
}

// Filter returns the rows whose region name is in regions and whose year
// falls in [from, to] inclusive. An empty region selection yields an empty
// view; that is a valid result, not an error. The receiver is not
// modified.
func (d *Dataset) Filter(regions []string, from, to int) []domain.RegionYear {
	selected := make(map[string]struct{}, len(regions))
	for _, name := range regions {
		selected[name] = struct{}{}
	}

	view := make([]domain.RegionYear, 0)
	for _, row := range d.Rows {
		if _, ok := selected[row.RegionName]; !ok {
			continue
		}
		if row.Year < from || row.Year > to {
			continue
		}
		view = append(view, row)
	}
	return view
}

// fingerprintFile hashes the workbook bytes so dataset versions can be
// compared cheaply (HTTP ETags, reload detection).
func fingerprintFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to fingerprint workbook: %w", err)
	}
	sum := blake2b.Sum256(data)
	return fmt.Sprintf("%x", sum), nil
}

// Store holds the current dataset and allows it to be swapped atomically
// on cold reload. Readers always see a complete dataset; per-request
// selection state lives with the caller, never in the store.
type Store struct {
	mu sync.RWMutex
	ds *Dataset
}

// NewStore creates a store holding the given dataset.
func NewStore(ds *Dataset) *Store {
	return &Store{ds: ds}
}

// Dataset returns the current dataset.
func (s *Store) Dataset() *Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ds
}

// Swap replaces the current dataset and returns the previous one.
func (s *Store) Swap(ds *Dataset) *Dataset {
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.ds
	s.ds = ds
	return old
}
