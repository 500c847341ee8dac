package services

import (
	"context"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"hpdash/internal/config"
	"hpdash/internal/dataprocessing"
	apierrors "hpdash/internal/errors"
	"hpdash/pkg/contracts/domain"
)

// SelectionRequest carries the user's filter controls. Zero values mean
// "use the configured default". A present-but-empty region list is a
// deliberate empty selection and yields an empty view.
type SelectionRequest struct {
	Regions  []string                  `json:"regions" validate:"omitempty,dive,min=1"`
	YearFrom int                       `json:"year_from" validate:"omitempty,min=1000,max=9999"`
	YearTo   int                       `json:"year_to" validate:"omitempty,min=1000,max=9999"`
	Stats    []dataprocessing.StatKind `json:"stats" validate:"omitempty,dive,statkind"`
}

// Selection is the resolved filter after defaults and clamping to the
// dataset's year bounds.
type Selection struct {
	Regions  []string `json:"regions"`
	YearFrom int      `json:"year_from"`
	YearTo   int      `json:"year_to"`
}

// RegionsResponse describes the filter bounds the UI should offer.
type RegionsResponse struct {
	Regions     []string `json:"regions"`
	MinYear     int      `json:"min_year"`
	MaxYear     int      `json:"max_year"`
	Fingerprint string   `json:"fingerprint"`
}

// ViewResponse is a filtered view plus the selection that produced it.
type ViewResponse struct {
	Selection   Selection           `json:"selection"`
	Rows        []domain.RegionYear `json:"rows"`
	Fingerprint string              `json:"fingerprint"`
}

// SummaryResponse is the aggregate statistics for a filtered view.
type SummaryResponse struct {
	Selection   Selection           `json:"selection"`
	Summary     *domain.ViewSummary `json:"summary"`
	Fingerprint string              `json:"fingerprint"`
}

// DashboardService answers every dashboard query from the in-memory
// dataset. Selection state always travels with the request; the service
// holds none, so concurrent users cannot interfere with each other.
type DashboardService struct {
	pipeline *dataprocessing.Pipeline
	store    *dataprocessing.Store
	defaults config.DataConfig
	validate *validator.Validate
	logger   *slog.Logger
	onReload func(fingerprint string)
}

// OnReload registers a callback invoked after every successful dataset
// swap, with the new dataset's fingerprint.
func (s *DashboardService) OnReload(fn func(fingerprint string)) {
	s.onReload = fn
}

// NewDashboardService creates a dashboard service over an already loaded
// store.
func NewDashboardService(pipeline *dataprocessing.Pipeline, store *dataprocessing.Store, defaults config.DataConfig, logger *slog.Logger) *DashboardService {
	if logger == nil {
		logger = slog.Default()
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	// Registration only fails for a blank tag name.
	_ = validate.RegisterValidation("statkind", func(fl validator.FieldLevel) bool {
		return dataprocessing.ValidStatKind(dataprocessing.StatKind(fl.Field().String()))
	})

	return &DashboardService{
		pipeline: pipeline,
		store:    store,
		defaults: defaults,
		validate: validate,
		logger:   logger.With(slog.String("component", "dashboard_service")),
	}
}

// Regions returns the region list and year bounds of the loaded dataset.
func (s *DashboardService) Regions(ctx context.Context) *RegionsResponse {
	ds := s.store.Dataset()
	return &RegionsResponse{
		Regions:     ds.Regions,
		MinYear:     ds.MinYear,
		MaxYear:     ds.MaxYear,
		Fingerprint: ds.Fingerprint,
	}
}

// View returns the filtered view for the requested selection.
func (s *DashboardService) View(ctx context.Context, req SelectionRequest) (*ViewResponse, error) {
	ds := s.store.Dataset()
	sel, err := s.resolve(ctx, ds, req)
	if err != nil {
		return nil, err
	}

	rows := ds.Filter(sel.Regions, sel.YearFrom, sel.YearTo)
	s.logger.DebugContext(ctx, "view computed",
		slog.Int("rows", len(rows)),
		slog.Int("regions", len(sel.Regions)),
		slog.Int("year_from", sel.YearFrom),
		slog.Int("year_to", sel.YearTo))

	return &ViewResponse{Selection: sel, Rows: rows, Fingerprint: ds.Fingerprint}, nil
}

// Summary returns the aggregate statistics for the requested selection.
// An empty view produces a summary with zero rows and every statistic
// undefined; it is never an error.
func (s *DashboardService) Summary(ctx context.Context, req SelectionRequest) (*SummaryResponse, error) {
	ds := s.store.Dataset()
	sel, err := s.resolve(ctx, ds, req)
	if err != nil {
		return nil, err
	}

	set := dataprocessing.StatSet(req.Stats)
	if len(set) == 0 {
		set = dataprocessing.AllStats()
	}

	view := ds.Filter(sel.Regions, sel.YearFrom, sel.YearTo)
	summary := dataprocessing.NewSummarizer(s.logger, set).Summarize(ctx, view)

	return &SummaryResponse{Selection: sel, Summary: summary, Fingerprint: ds.Fingerprint}, nil
}

// Reload re-runs the pipeline against the workbook and swaps the dataset
// in. The old dataset keeps serving until the new one is ready; a failed
// load leaves it untouched.
func (s *DashboardService) Reload(ctx context.Context) (*RegionsResponse, error) {
	ds, err := s.pipeline.Load(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "dataset reload failed", slog.String("error", err.Error()))
		return nil, err
	}

	old := s.store.Swap(ds)
	s.logger.InfoContext(ctx, "dataset reloaded",
		slog.String("old_fingerprint", old.Fingerprint[:12]),
		slog.String("new_fingerprint", ds.Fingerprint[:12]),
		slog.Int("rows", len(ds.Rows)))

	if s.onReload != nil {
		s.onReload(ds.Fingerprint)
	}

	return &RegionsResponse{
		Regions:     ds.Regions,
		MinYear:     ds.MinYear,
		MaxYear:     ds.MaxYear,
		Fingerprint: ds.Fingerprint,
	}, nil
}

// Fingerprint returns the current dataset's fingerprint, used as an ETag.
func (s *DashboardService) Fingerprint() string {
	return s.store.Dataset().Fingerprint
}

// resolve applies defaults, validates the request, and clamps the year
// range to the dataset bounds.
func (s *DashboardService) resolve(ctx context.Context, ds *dataprocessing.Dataset, req SelectionRequest) (Selection, error) {
	if err := s.validate.Struct(req); err != nil {
		var fields []apierrors.ValidationError
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				fields = append(fields, apierrors.ValidationError{
					Field:   fe.Field(),
					Message: fe.Tag(),
				})
			}
		}
		return Selection{}, apierrors.NewValidationErrors(fields)
	}

	sel := Selection{
		Regions:  req.Regions,
		YearFrom: req.YearFrom,
		YearTo:   req.YearTo,
	}
	if sel.Regions == nil {
		sel.Regions = s.defaults.DefaultRegions
	}
	if sel.YearFrom == 0 {
		sel.YearFrom = s.defaults.DefaultYearFrom
	}
	if sel.YearTo == 0 {
		sel.YearTo = s.defaults.DefaultYearTo
	}

	if sel.YearFrom > sel.YearTo {
		return Selection{}, apierrors.ErrValidation("year_range", "year_from must not exceed year_to")
	}

	// The UI's slider is bounded by the data; clamp anything wider.
	if sel.YearFrom < ds.MinYear {
		sel.YearFrom = ds.MinYear
	}
	if sel.YearTo > ds.MaxYear {
		sel.YearTo = ds.MaxYear
	}

	return sel, nil
}
