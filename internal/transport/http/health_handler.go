package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"hpdash/internal/dataprocessing"
)

// HealthHandler reports process and dataset health.
type HealthHandler struct {
	store   *dataprocessing.Store
	version string
	started time.Time
	logger  *slog.Logger
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(store *dataprocessing.Store, version string, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		store:   store,
		version: version,
		started: time.Now(),
		logger:  logger.With(slog.String("component", "health_handler")),
	}
}

// HealthCheck handles GET /api/health.
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ds := h.store.Dataset()
	render.JSON(w, r, map[string]interface{}{
		"status":              "ok",
		"version":             h.version,
		"uptime":              time.Since(h.started).String(),
		"dataset_rows":        len(ds.Rows),
		"dataset_regions":     len(ds.Regions),
		"dataset_loaded_at":   ds.LoadedAt,
		"dataset_fingerprint": ds.Fingerprint,
	})
}
