// Package app wires configuration, logging, telemetry, the data
// pipeline, and the HTTP and websocket surfaces into one runnable
// application.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"hpdash/internal/config"
	"hpdash/internal/dataprocessing"
	apierrors "hpdash/internal/errors"
	"hpdash/internal/infrastructure"
	custommw "hpdash/internal/middleware"
	"hpdash/internal/services"
	transporthttp "hpdash/internal/transport/http"
	ws "hpdash/internal/websocket"
	"hpdash/pkg/contracts"
)

// Application holds every long-lived component of the dashboard server.
type Application struct {
	Config *config.Config
	Logger *slog.Logger
	Router *chi.Mux
	Server *http.Server

	Store *dataprocessing.Store
	Hub   *ws.Hub
	OTel  *infrastructure.OTelProviders

	dashboardService *services.DashboardService
	errorHandler     *apierrors.ErrorHandler
}

// NewApplication builds the application: load config, set up logging
// and telemetry, run the pipeline once, and assemble the router.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	slog.SetDefault(logger)

	otelProviders, err := infrastructure.InitializeOTel(nil, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	pipeline := dataprocessing.NewPipeline(dataprocessing.PipelineConfig{
		WorkbookPath: cfg.Data.WorkbookPath,
		PriceSheet:   cfg.Data.PriceSheet,
		IncomeSheet:  cfg.Data.IncomeSheet,
	}, logger)

	loadCtx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
	defer cancel()
	dataset, err := pipeline.Load(loadCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}
	store := dataprocessing.NewStore(dataset)

	logger.Info("dataset loaded",
		slog.String("workbook", cfg.Data.WorkbookPath),
		slog.Int("rows", len(dataset.Rows)),
		slog.Int("regions", len(dataset.Regions)),
		slog.Int("min_year", dataset.MinYear),
		slog.Int("max_year", dataset.MaxYear),
		slog.String("fingerprint", dataset.Fingerprint[:12]))

	hub := ws.NewHub(logger)
	dashboardService := services.NewDashboardService(pipeline, store, cfg.Data, logger)
	dashboardService.OnReload(hub.BroadcastReload)

	app := &Application{
		Config:           cfg,
		Logger:           logger,
		Store:            store,
		Hub:              hub,
		OTel:             otelProviders,
		dashboardService: dashboardService,
		errorHandler:     apierrors.NewErrorHandler(logger, false),
	}

	if err := app.setupRouter(); err != nil {
		return nil, fmt.Errorf("failed to set up router: %w", err)
	}

	app.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      app.Router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return app, nil
}

func (a *Application) setupRouter() error {
	r := chi.NewRouter()

	r.Use(custommw.RequestID)
	r.Use(custommw.RealIP)

	var metrics *infrastructure.RequestMetrics
	if a.OTel.Meter != nil {
		var err error
		metrics, err = infrastructure.CreateRequestMetrics(a.OTel.Meter)
		if err != nil {
			return fmt.Errorf("failed to create request metrics: %w", err)
		}
		r.Use(custommw.RequestMetricsMiddleware(metrics))
	}

	r.Use(custommw.StructuredLogger(a.Logger))
	r.Use(custommw.Recoverer(a.Logger))
	r.Use(custommw.SecurityHeaders)
	r.Use(custommw.Compress(5))

	if a.Config.Security.EnableCORS {
		r.Use(custommw.CORS(custommw.CORSConfig{
			AllowedOrigins: a.Config.Security.AllowedOrigins,
			Logger:         a.Logger,
		}))
	}
	if a.Config.Security.RateLimit.Enabled {
		limiter := custommw.NewRateLimiter(
			a.Config.Security.RateLimit.RPS,
			a.Config.Security.RateLimit.Burst,
			a.Logger)
		r.Use(limiter.Handler)
	}
	r.Use(custommw.Timeout(a.Config.Server.WriteTimeout, a.Logger))

	dashboardHandler := transporthttp.NewDashboardHandler(a.dashboardService, a.Logger, a.errorHandler, metrics)
	healthHandler := transporthttp.NewHealthHandler(a.Store, contracts.Version, a.Logger)

	r.Route("/api", func(r chi.Router) {
		r.Mount("/dashboard", dashboardHandler.Routes())
		r.Get("/health", healthHandler.HealthCheck)
	})
	r.Get("/ws", ws.ServeWS(a.Hub, a.dashboardService, a.Config.WebSocket, a.Logger))

	if a.OTel.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTel.PrometheusHTTP)
	}

	r.NotFound(a.errorHandler.NotFound)

	a.Router = r
	return nil
}

// Run starts the hub and HTTP server and blocks until shutdown.
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.Hub.Start()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.Info("server starting",
			slog.String("addr", a.Server.Addr),
			slog.String("version", contracts.Version))
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		a.Logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
		defer cancel()

		a.Hub.Stop()

		if err := a.Server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		if err := a.OTel.Shutdown(shutdownCtx); err != nil {
			a.Logger.Warn("telemetry shutdown failed", slog.String("error", err.Error()))
		}
		if err := infrastructure.CloseLogFile(); err != nil {
			a.Logger.Warn("log file close failed", slog.String("error", err.Error()))
		}
		return nil
	})

	err := g.Wait()
	a.Logger.Info("server stopped")
	return err
}
