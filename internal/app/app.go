package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"companywise/internal/config"
	"companywise/internal/datasource"
	apierrors "companywise/internal/errors"
	"companywise/internal/exporter"
	"companywise/internal/infrastructure"
	customMiddleware "companywise/internal/middleware"
	"companywise/internal/security"
	"companywise/internal/services"
	"companywise/internal/storage"
	handlers "companywise/internal/transport/http"
	"companywise/internal/validation"
	ws "companywise/internal/websocket"
)

// BuildTime is set at link time with -ldflags "-X companywise/internal/app.BuildTime=...".
var BuildTime = ""

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Paths         *config.Paths
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.BusinessMetrics
	WebSocketHub  *ws.Hub
	Store         storage.Store
	Source        datasource.Source
	Cache         *datasource.CachedSource
	Tokens        *security.TokenIssuer
	ErrorHandler  *apierrors.ErrorHandler
	Services      *ServiceContainer
}

// ServiceContainer holds all application services
type ServiceContainer struct {
	Catalog  *services.CatalogService
	Progress *services.ProgressService
	Export   *services.ExportService
	Auth     *services.AuthService
	Health   *services.HealthService
}

// NewApplication loads the configuration and logger and builds the
// application from them.
func NewApplication(ctx context.Context) (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return New(ctx, cfg, logger)
}

// New wires every component from cfg. The caller owns the returned
// application and must call Stop (or Close when it was never started).
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Application, error) {
	logger.InfoContext(ctx, "Application starting",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion))

	paths, err := cfg.ResolvePaths()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}

	otelCfg := infrastructure.DefaultOTelConfig()
	otelCfg.ServiceName = cfg.OTel.ServiceName
	otelCfg.ServiceVersion = config.AppVersion
	otelCfg.EnableTracing = cfg.OTel.TracingEnabled
	otelCfg.EnableMetrics = cfg.OTel.MetricsEnabled
	otelProviders, err := infrastructure.InitializeOTel(otelCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	metrics, err := infrastructure.CreateBusinessMetrics(otelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: otelProviders,
		Metrics:       metrics,
		ErrorHandler:  apierrors.NewErrorHandler(logger, cfg.Logging.Development),
	}

	if err := app.initializeServices(ctx); err != nil {
		app.Close(ctx)
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()
	return app, nil
}

// initializeServices initializes all application services
func (a *Application) initializeServices(ctx context.Context) error {
	store, err := OpenStore(ctx, a.Config, a.Paths)
	if err != nil {
		return fmt.Errorf("failed to open progress store: %w", err)
	}
	a.Store = store

	a.Source, a.Cache = BuildSource(a.Config, a.Paths, a.Logger)

	location, err := a.Config.Progress.Location()
	if err != nil {
		return fmt.Errorf("invalid progress timezone: %w", err)
	}

	tokens, err := security.NewTokenIssuer(a.Config.Auth.JWTSecret, a.Config.Auth.TokenTTL, a.Config.Auth.Issuer)
	if err != nil {
		return fmt.Errorf("failed to create token issuer: %w", err)
	}
	if a.Config.Auth.JWTSecret == "" {
		a.Logger.WarnContext(ctx, "No JWT secret configured; tokens will not survive a restart")
	}
	a.Tokens = tokens

	hub := ws.NewHub(a.Logger, a.Metrics)
	hub.Start()
	a.WebSocketHub = hub

	catalog := services.NewCatalogService(a.Source, a.Metrics, a.Logger)
	catalog.WarmOnLoad(a.Config.Data.Preload && a.Cache != nil)

	progress := services.NewProgressService(store, services.ProgressOptions{
		Location:  location,
		Publisher: hub,
		Metrics:   a.Metrics,
		Logger:    a.Logger,
	})

	deps := services.HealthDeps{
		Source:   a.Source,
		Store:    store,
		Hub:      hub,
		Progress: progress,
	}
	if a.Cache != nil {
		deps.Cache = a.Cache
	}

	a.Services = &ServiceContainer{
		Catalog:  catalog,
		Progress: progress,
		Export:   services.NewExportService(catalog, progress, exporter.NewCSVWriter(a.Paths, a.Logger)),
		Auth:     services.NewAuthService(tokens, progress, a.Config.Progress.MigrateOnSignIn, a.Logger),
		Health:   services.NewHealthService(config.AppVersion, BuildTime, deps, a.Logger),
	}
	return nil
}

// OpenStore opens the configured progress store. File-backed stores are
// resolved against paths.
func OpenStore(ctx context.Context, cfg *config.Config, paths *config.Paths) (storage.Store, error) {
	opts := storage.Options{
		Backend:     cfg.Storage.Backend,
		Path:        paths.StoreDir,
		DSN:         cfg.Storage.DSN,
		RedisAddr:   cfg.Storage.RedisAddr,
		RedisPrefix: cfg.Storage.RedisPrefix,
	}
	if cfg.Storage.Backend == config.StorageSQLite && filepath.Ext(opts.Path) == "" {
		opts.Path = opts.Path + ".db"
	}
	return storage.Open(ctx, opts)
}

// BuildSource assembles the data source for cfg.Data.Source, wrapped in a
// cache when a TTL is configured. The cache is nil when disabled.
func BuildSource(cfg *config.Config, paths *config.Paths, logger *slog.Logger) (datasource.Source, *datasource.CachedSource) {
	local := func() datasource.Source { return datasource.NewFileSource(paths.DataDir) }
	remote := func() datasource.Source {
		return datasource.NewGitHubSource(datasource.GitHubOptions{
			RawBaseURL:        cfg.Data.RawBaseURL,
			ContentsURL:       cfg.Data.ContentsURL,
			Timeout:           cfg.Data.FetchTimeout,
			RequestsPerSecond: cfg.Data.RequestsPerSecond,
			UserAgent:         config.AppName + "/" + config.AppVersion,
		})
	}

	var src datasource.Source
	switch cfg.Data.Source {
	case config.SourceLocal:
		src = local()
	case config.SourceRemote:
		src = remote()
	default:
		if config.FileExists(paths.DataDir) {
			src = datasource.NewFallbackSource(logger, local(), remote())
		} else {
			src = remote()
		}
	}

	if cfg.Data.CacheTTL <= 0 {
		return src, nil
	}
	cache := datasource.NewCachedSource(src, cfg.Data.CacheTTL, cfg.Data.CacheSize)
	return cache, cache
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()
	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	// Middleware that does not wrap the ResponseWriter, so the websocket
	// upgrade can still hijack the connection.
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	identity := customMiddleware.IdentityMiddleware(a.Logger, a.Tokens)
	wsHandler := handlers.NewWebSocketHandler(a.WebSocketHub, a.Config.WebSocket, a.allowedOrigins(), a.Logger)
	r.With(customMiddleware.WebSocketTraceMiddleware(a.Logger), identity).Handle(config.WebSocketEndpoint, wsHandler)

	metricsHandler := handlers.NewMetricsHandler(a.OTelProviders.PrometheusHTTP, map[string]handlers.StatsSource{
		"websocket": a.WebSocketHub,
		"cache":     cacheStats{a.Cache},
	})
	r.Mount(config.MetricsEndpoint, metricsHandler.Routes())

	r.Group(func(r chi.Router) {
		otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders, a.Metrics)
		if err != nil {
			a.Logger.Error("Failed to create OpenTelemetry middleware", slog.String("error", err.Error()))
		} else {
			r.Use(otelMiddleware.Handler)
		}

		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.Logger))
		r.Use(customMiddleware.SecurityHeaders)
		r.Use(customMiddleware.Compress(5))
		r.Use(customMiddleware.CORS(a.corsConfig()))

		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		a.setupAPIRoutes(r, identity)
		a.setupHTMLRoutes(r)
	})

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router, identity func(http.Handler) http.Handler) {
	health := handlers.NewHealthHandler(a.Services.Health, a.Logger)
	catalog := handlers.NewCatalogHandler(a.Services.Catalog, a.Services.Progress, a.Services.Export, a.Logger, a.ErrorHandler)
	progress := handlers.NewProgressHandler(a.Services.Progress, a.Logger, a.ErrorHandler)
	auth := handlers.NewAuthHandler(a.Services.Auth, a.Logger, a.ErrorHandler)
	validation := customMiddleware.NewValidationMiddleware(a.Logger, a.ErrorHandler)

	r.Route(config.APIBasePath, func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		if a.Config.Server.RequestTimeout > 0 {
			r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout))
		}

		r.Get("/health", health.HealthCheck)
		r.Get("/health/ready", health.ReadinessCheck)
		r.Get("/health/live", health.LivenessCheck)
		r.Get("/health/detailed", health.Detailed)
		r.Get("/version", health.Version)

		r.Group(func(r chi.Router) {
			r.Use(identity)
			r.Use(validation.ValidateRequest)

			r.Mount("/", catalog.Routes())
			r.Mount("/progress", progress.Routes())
			r.Mount("/auth", auth.Routes())
		})
	})
}

// setupHTMLRoutes serves the browser page and its static assets.
func (a *Application) setupHTMLRoutes(r chi.Router) {
	webDir := a.Paths.WebDir
	r.Get("/", handlers.ServeMainApp(webDir, config.AppVersion))
	r.Handle("/static/*", handlers.StaticFiles(webDir, "/static/"))
}

func (a *Application) allowedOrigins() []string {
	if !a.Config.Security.EnableCORS {
		return nil
	}
	return a.Config.Security.AllowedOrigins
}

func (a *Application) corsConfig() customMiddleware.CORSConfig {
	return customMiddleware.CORSConfig{
		AllowedOrigins: a.allowedOrigins(),
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-Request-ID",
		},
		ExposedHeaders:   []string{"X-Request-ID", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
		Logger:           a.Logger,
	}
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           a.Config.Server.Addr(),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start starts serving in the background. Serve errors cancel ctx through
// cancel.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion),
		slog.String("addr", a.Server.Addr),
		slog.String("data_source", a.Config.Data.Source),
		slog.String("storage", a.Config.Storage.Backend))

	a.Logger.InfoContext(ctx, "Application paths",
		slog.String("base_dir", a.Paths.BaseDir),
		slog.String("data_dir", a.Paths.DataDir),
		slog.String("store_dir", a.Paths.StoreDir),
		slog.String("exports_dir", a.Paths.ExportsDir),
		slog.String("web_dir", a.Paths.WebDir))

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	if err := a.performStartupHealthCheck(ctx); err != nil {
		a.Logger.WarnContext(ctx, "Startup health check warnings", slog.String("warnings", err.Error()))
	}

	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))
	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var serverErr error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		serverErr = fmt.Errorf("server shutdown error: %w", err)
	}

	a.Close(shutdownCtx)
	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return serverErr
}

// Close releases the hub, the store and the telemetry providers without
// touching the HTTP server. Commands that never call Start use it directly.
func (a *Application) Close(ctx context.Context) {
	if a.WebSocketHub != nil {
		a.WebSocketHub.Stop()
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			a.Logger.ErrorContext(ctx, "Error closing progress store", slog.String("error", err.Error()))
		}
	}
	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(ctx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}
}

// Run runs the application until interrupted
func (a *Application) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
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
		a.Logger.InfoContext(ctx, "Context cancelled")
	}

	return a.Stop(context.Background())
}

// performStartupHealthCheck reports problems that do not prevent serving.
func (a *Application) performStartupHealthCheck(ctx context.Context) error {
	var warnings []string
	validator := validation.NewFileValidator(a.Logger)

	if a.Config.Data.Source != config.SourceRemote {
		report, err := validator.ValidateDataDirectory(a.Paths.DataDir)
		switch {
		case err != nil && a.Config.Data.Source == config.SourceLocal:
			warnings = append(warnings, fmt.Sprintf("data directory unusable: %v", err))
		case err != nil:
			a.Logger.InfoContext(ctx, "No local data directory, using the remote repository",
				slog.String("dir", a.Paths.DataDir))
		case len(report.Missing) > 0:
			a.Logger.InfoContext(ctx, "Local data directory is incomplete",
				slog.Int("companies", report.Companies),
				slog.Int("missing_tables", len(report.Missing)))
		}
	}

	if err := validator.ValidateOutputDirectory(a.Paths.ExportsDir); err != nil {
		warnings = append(warnings, fmt.Sprintf("exports directory not writable: %v", err))
	}

	if !config.FileExists(filepath.Join(a.Paths.WebDir, "index.html")) {
		warnings = append(warnings, fmt.Sprintf("web page not found in %s", a.Paths.WebDir))
	}

	if len(warnings) > 0 {
		return fmt.Errorf("startup health check warnings: %s", strings.Join(warnings, "; "))
	}

	a.Logger.InfoContext(ctx, "Startup health check passed")
	return nil
}

// cacheStats adapts the data cache to the metrics handler; a nil cache
// reports itself disabled.
type cacheStats struct {
	cache *datasource.CachedSource
}

func (c cacheStats) Stats() map[string]interface{} {
	if c.cache == nil {
		return map[string]interface{}{"enabled": false}
	}
	s := c.cache.Stats()
	return map[string]interface{}{
		"enabled":    true,
		"entries":    s.Entries,
		"max_size":   s.MaxSize,
		"hit_count":  s.HitCount,
		"miss_count": s.MissCount,
		"hit_ratio":  s.HitRatio,
	}
}

// Ensure the hub satisfies the publisher the progress service expects.
var _ ws.Publisher = (*ws.Hub)(nil)
