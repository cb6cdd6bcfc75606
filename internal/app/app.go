package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/youssefzad/FinnishStartupDashboard-sub002/internal/columns"
	"github.com/youssefzad/FinnishStartupDashboard-sub002/internal/config"
	apierrors "github.com/youssefzad/FinnishStartupDashboard-sub002/internal/errors"
	"github.com/youssefzad/FinnishStartupDashboard-sub002/internal/indicators"
	"github.com/youssefzad/FinnishStartupDashboard-sub002/internal/infrastructure"
	"github.com/youssefzad/FinnishStartupDashboard-sub002/internal/loader"
	customMiddleware "github.com/youssefzad/FinnishStartupDashboard-sub002/internal/middleware"
	"github.com/youssefzad/FinnishStartupDashboard-sub002/internal/registry"
	"github.com/youssefzad/FinnishStartupDashboard-sub002/internal/services"
	handlers "github.com/youssefzad/FinnishStartupDashboard-sub002/internal/transport/http"
	"github.com/youssefzad/FinnishStartupDashboard-sub002/internal/validation"
	ws "github.com/youssefzad/FinnishStartupDashboard-sub002/internal/websocket"
	"github.com/youssefzad/FinnishStartupDashboard-sub002/pkg/contracts"
)

// AppName is logged at startup
const AppName = "Finnish Startup Dashboard"

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.BusinessMetrics
	Loader        *loader.Loader
	Dashboard     *services.DashboardService
	Health        *services.HealthService
	WebSocketHub  *ws.Hub

	errorHandler *apierrors.ErrorHandler
}

// NewApplication loads configuration and builds the application
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return New(cfg, logger)
}

// New builds the application from an already loaded configuration
func New(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	logger.Info("Application starting",
		slog.String("name", AppName),
		slog.String("version", contracts.Version))

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.NewOTelConfig(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	a := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
	}

	if err := a.initializeServices(); err != nil {
		_ = otelProviders.Shutdown(context.Background())
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	a.setupRouter()
	a.createServer()

	return a, nil
}

// initializeServices wires the load pipeline, the chart service and the
// embed bridge
func (a *Application) initializeServices() error {
	var metrics *infrastructure.BusinessMetrics
	if a.OTelProviders.Meter != nil {
		m, err := infrastructure.CreateBusinessMetrics(a.OTelProviders.Meter)
		if err != nil {
			a.Logger.Warn("Business metrics unavailable", slog.String("error", err.Error()))
		} else {
			metrics = m
		}
	}
	a.Metrics = metrics

	resolver := columns.DefaultResolver()
	if path := a.Config.Paths.RulesFile; path != "" {
		rules, err := columns.LoadRules(path)
		if err != nil {
			return err
		}
		if resolver, err = columns.NewResolver(rules); err != nil {
			return fmt.Errorf("invalid column rules in %s: %w", path, err)
		}
		a.Logger.Info("Column rules loaded", slog.String("path", path), slog.Int("rules", len(rules)))
	}

	l, err := loader.New(context.Background(), a.Config, loader.Deps{
		Resolver: resolver,
		Logger:   a.Logger,
		Metrics:  metrics,
	})
	if err != nil {
		return fmt.Errorf("failed to create loader: %w", err)
	}
	a.Loader = l

	formatter, err := indicators.NewFormatter(a.Config.Locale.Language, a.Config.Locale.CurrencySymbol,
		indicators.SymbolPosition(a.Config.Locale.SymbolPosition))
	if err != nil {
		return fmt.Errorf("invalid locale: %w", err)
	}
	extractor := indicators.NewExtractor(resolver, formatter, indicators.DefaultDefinitions(), a.Logger)

	a.Dashboard = services.NewDashboardService(l, registry.Default(resolver), extractor,
		a.Config.Cache.MemoSize, a.Logger, metrics)

	a.WebSocketHub = ws.NewHub(a.Logger, metrics)
	a.Health = services.NewHealthService(l.Store(), a.WebSocketHub, a.Logger)
	a.errorHandler = apierrors.NewErrorHandler(a.Logger, a.Config.Telemetry.Environment == "development")

	return nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// These do not wrap the ResponseWriter, so the upgrade below still works
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)
	r.Use(customMiddleware.StripSlashes)

	r.With(customMiddleware.WebSocketTraceMiddleware(a.Logger)).
		Handle("/ws/embed/{chartId}", ws.NewHandler(a.WebSocketHub, a.Config, a.Dashboard.HasChart, a.Logger))

	r.Group(func(r chi.Router) {
		// RequestID → RealIP → OTel → Logger → Recoverer → SecureHeaders → Compress → CORS → RateLimiter → Timeout
		r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders, a.Metrics, a.Logger).Handler)
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(apierrors.RecoveryMiddleware(a.errorHandler))

		secure := customMiddleware.DefaultSecureHeaders()
		secure.FrameAncestors = a.Config.Security.FrameAncestors
		secure.DevMode = a.Config.Telemetry.Environment == "development"
		r.Use(secure.Handler)
		r.Use(customMiddleware.Compress(5, "application/json", "text/csv"))

		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(customMiddleware.CORSConfig{
				AllowedOrigins: a.Config.Security.AllowedOrigins,
			}))
		}

		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		if a.Config.Server.RequestTimeout > 0 {
			r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout, a.Logger))
		}

		a.setupAPIRoutes(r)
	})

	r.NotFound(a.errorHandler.NotFound)
	r.MethodNotAllowed(a.errorHandler.MethodNotAllowed)

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	validator := customMiddleware.NewValidator()
	query := customMiddleware.NewQueryParamValidator(a.Logger, a.errorHandler)

	chartHandler := handlers.NewChartHandler(a.Dashboard, validator, a.errorHandler, a.Logger)
	datasetHandler := handlers.NewDatasetHandler(a.Dashboard, query, a.errorHandler, a.Logger)
	embedHandler := handlers.NewEmbedHandler(a.Dashboard, a.errorHandler, a.Logger)
	metricsHandler := handlers.NewMetricsHandler(a.Dashboard)
	healthHandler := handlers.NewHealthHandler(a.Health, a.Logger)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Get("/health", healthHandler.HealthCheck)
		r.Get("/health/live", healthHandler.LivenessCheck)
		r.Get("/health/ready", healthHandler.ReadinessCheck)
		r.Get("/version", healthHandler.Version)

		r.Mount("/charts", chartHandler.Routes())
		r.Mount("/datasets", datasetHandler.Routes())
		r.Mount("/embed", embedHandler.Routes())
		r.Get("/metrics", metricsHandler.GetMetrics)
	})
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           net.JoinHostPort(a.Config.Server.Host, strconv.Itoa(a.Config.Server.Port)),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start runs the initial load cycle, the hub and the HTTP server. A failed
// initial load is logged; the service stays up and reports not ready.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", AppName),
		slog.String("version", contracts.Version),
		slog.String("address", a.Server.Addr),
		slog.String("level", a.Config.Logging.Level))

	if err := a.performStartupHealthCheck(ctx); err != nil {
		a.Logger.WarnContext(ctx, "Startup health check warnings", slog.String("warnings", err.Error()))
	}

	snap, err := a.Dashboard.Load(ctx)
	if err != nil {
		a.Logger.ErrorContext(ctx, "Initial dataset load failed", slog.String("error", err.Error()))
	} else {
		a.Logger.InfoContext(ctx, "Datasets loaded",
			slog.Uint64("revision", snap.Revision),
			slog.Int("datasets", len(snap.Datasets)))
	}

	a.WebSocketHub.Start()

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			// Signal shutdown through context instead of os.Exit
			cancel()
		}
	}()

	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.Bool("ready", a.Health.Ready()))
	return nil
}

// performStartupHealthCheck validates the configured data paths. Problems are
// reported, never fatal: a remote tier may still serve every dataset.
func (a *Application) performStartupHealthCheck(ctx context.Context) error {
	a.Logger.DebugContext(ctx, "Checking data paths",
		slog.String("data_dir", a.Config.Paths.DataDir),
		slog.String("bundled_workbook", a.Config.Paths.BundledWorkbook),
		slog.String("locations_file", a.Config.Paths.LocationsFile))
	return validation.NewFileValidator(a.Logger).CheckPaths(a.Config.Paths, a.Config.Features)
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	a.WebSocketHub.Stop()

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return nil
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case <-sigChan:
		a.Logger.InfoContext(ctx, "Received interrupt signal")
	case <-ctx.Done():
		a.Logger.WarnContext(ctx, "Server stopped unexpectedly")
	}

	return a.Stop(ctx)
}
