package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"hpdash/internal/dataprocessing"
	apierrors "hpdash/internal/errors"
	"hpdash/internal/exporter"
	"hpdash/internal/infrastructure"
	"hpdash/internal/services"
)

// DashboardHandler handles dashboard HTTP requests.
type DashboardHandler struct {
	service      *services.DashboardService
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
	metrics      *infrastructure.RequestMetrics
}

// NewDashboardHandler creates a new dashboard handler. metrics may be nil
// when the metric exporter is disabled.
func NewDashboardHandler(service *services.DashboardService, logger *slog.Logger, errorHandler *apierrors.ErrorHandler, metrics *infrastructure.RequestMetrics) *DashboardHandler {
	return &DashboardHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "dashboard_handler")),
		errorHandler: errorHandler,
		metrics:      metrics,
	}
}

// recordViewRows records how many rows the selection produced on the
// dashboard_view_rows histogram.
func (h *DashboardHandler) recordViewRows(ctx context.Context, rows int) {
	if h.metrics == nil {
		return
	}
	h.metrics.ViewRows.Record(ctx, int64(rows))
}

// Routes returns the dashboard routes.
func (h *DashboardHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/regions", h.GetRegions)
	r.Get("/view", h.GetView)
	r.Get("/summary", h.GetSummary)
	r.Get("/export/csv", h.ExportCSV)
	r.Post("/reload", h.Reload)

	return r
}

// GetRegions handles GET /api/dashboard/regions.
func (h *DashboardHandler) GetRegions(w http.ResponseWriter, r *http.Request) {
	resp := h.service.Regions(r.Context())
	if h.notModified(w, r, resp.Fingerprint) {
		return
	}
	render.JSON(w, r, resp)
}

// GetView handles GET /api/dashboard/view.
func (h *DashboardHandler) GetView(w http.ResponseWriter, r *http.Request) {
	req, err := selectionFromQuery(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	resp, err := h.service.View(r.Context(), req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.recordViewRows(r.Context(), len(resp.Rows))
	if h.notModified(w, r, resp.Fingerprint) {
		return
	}
	render.JSON(w, r, resp)
}

// GetSummary handles GET /api/dashboard/summary.
func (h *DashboardHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	req, err := selectionFromQuery(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	resp, err := h.service.Summary(r.Context(), req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if resp.Summary != nil {
		h.recordViewRows(r.Context(), resp.Summary.Rows)
	}
	if h.notModified(w, r, resp.Fingerprint) {
		return
	}
	render.JSON(w, r, resp)
}

// ExportCSV handles GET /api/dashboard/export/csv, streaming the filtered
// view as a CSV download.
func (h *DashboardHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	req, err := selectionFromQuery(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	resp, err := h.service.View(r.Context(), req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.recordViewRows(r.Context(), len(resp.Rows))

	filename := fmt.Sprintf("house-price-earnings-%s.csv", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := exporter.WriteViewTo(w, resp.Rows, true); err != nil {
		// Headers are already sent; all we can do is log.
		h.logger.ErrorContext(r.Context(), "csv export failed mid-stream",
			slog.String("error", err.Error()))
	}
}

// Reload handles POST /api/dashboard/reload, re-reading the workbook and
// swapping the dataset.
func (h *DashboardHandler) Reload(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.Reload(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.DatasetLoadError(err))
		return
	}
	render.JSON(w, r, resp)
}

// notModified writes the ETag for the current dataset and short-circuits
// with 304 when the client already holds it.
func (h *DashboardHandler) notModified(w http.ResponseWriter, r *http.Request, fingerprint string) bool {
	etag := `"` + fingerprint + `"`
	w.Header().Set("ETag", etag)
	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		w.WriteHeader(http.StatusNotModified)
		return true
	}
	return false
}

// selectionFromQuery decodes the filter controls from query parameters.
// `region` repeats per region; an explicitly empty region parameter is an
// empty selection, while an absent one falls back to the default. `from`
// and `to` bound the year range; `stats` is a comma-separated stat list.
func selectionFromQuery(r *http.Request) (services.SelectionRequest, error) {
	q := r.URL.Query()
	var req services.SelectionRequest

	if raw, ok := q["region"]; ok {
		req.Regions = make([]string, 0, len(raw))
		for _, name := range raw {
			name = strings.TrimSpace(name)
			if name != "" {
				req.Regions = append(req.Regions, name)
			}
		}
	}

	var err error
	if req.YearFrom, err = yearParam(q.Get("from")); err != nil {
		return req, apierrors.ErrValidation("from", "must be an integer year")
	}
	if req.YearTo, err = yearParam(q.Get("to")); err != nil {
		return req, apierrors.ErrValidation("to", "must be an integer year")
	}

	if raw := q.Get("stats"); raw != "" {
		for _, kind := range strings.Split(raw, ",") {
			kind = strings.TrimSpace(kind)
			if kind == "" {
				continue
			}
			req.Stats = append(req.Stats, dataprocessing.StatKind(kind))
		}
	}

	return req, nil
}

func yearParam(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
