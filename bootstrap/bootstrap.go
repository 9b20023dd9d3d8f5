// Package bootstrap wires all dependencies and starts the application.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/artpar/contentgate/adapters/clock"
	apihttp "github.com/artpar/contentgate/adapters/http"
	"github.com/artpar/contentgate/adapters/idgen"
	"github.com/artpar/contentgate/adapters/memory"
	"github.com/artpar/contentgate/adapters/metrics"
	"github.com/artpar/contentgate/config"
	"github.com/artpar/contentgate/core/artifact"
	"github.com/artpar/contentgate/core/resolver"
	"github.com/artpar/contentgate/core/storage"
	"github.com/artpar/contentgate/domain/document"
	"github.com/artpar/contentgate/ports"
)

// Environment variable names read before any config file is loaded.
const (
	EnvLogLevel  = "CONTENTGATE_LOG_LEVEL"
	EnvLogFormat = "CONTENTGATE_LOG_FORMAT"
)

// App represents the running application.
type App struct {
	Config     *config.Config
	Logger     zerolog.Logger
	Store      ports.DocumentStore
	Artifacts  *artifact.Holder
	HTTPServer *http.Server
	Metrics    *metrics.Collector
	Registry   *prometheus.Registry

	closeStore func() error
}

// New creates and initializes the application from cfg. The schema is
// compiled before New returns, so a broken schema fails startup.
func New(cfg *config.Config) (*App, error) {
	logger := NewLogger(cfg.Logging, os.Stdout)
	logger.Info().Msg("initializing contentgate")

	a := &App{
		Config: cfg,
		Logger: logger,
	}

	if cfg.Metrics.IsEnabled() {
		a.Registry = prometheus.NewRegistry()
		a.Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		a.Metrics = metrics.NewWithRegistry(a.Registry)
		logger.Info().Msg("prometheus metrics enabled")
	}

	if err := a.initStore(); err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	if err := a.initArtifacts(); err != nil {
		a.close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	a.initHTTPServer()
	return a, nil
}

func (a *App) initStore() error {
	cfg := a.Config.Store

	switch cfg.Driver {
	case "memory":
		a.Store = memory.New(memory.WithIDGenerator(idgen.UUID{}))
		a.closeStore = func() error { return nil }

	case "sqlite":
		s, err := storage.NewSQLiteStore(cfg.DSN)
		if err != nil {
			return err
		}
		a.Store = s
		a.closeStore = s.Close

	default:
		return fmt.Errorf("unknown store driver %q", cfg.Driver)
	}

	a.Logger.Info().Str("driver", cfg.Driver).Str("dsn", cfg.DSN).Msg("document store initialized")
	return nil
}

func (a *App) initArtifacts() error {
	deps := artifact.Deps{
		Store:    a.Store,
		Logger:   a.Logger,
		Defaults: QueryDefaults(a.Config.Query),
		Clock:    clock.Real{},
	}
	var opts []artifact.Option
	if a.Metrics != nil {
		deps.Metrics = a.Metrics
		opts = append(opts, artifact.WithMetrics(a.Metrics))
	}

	a.Artifacts = artifact.NewHolder(a.Config.Schema.Dir, deps, opts...)

	_, err := a.Artifacts.Reload()
	return err
}

func (a *App) initHTTPServer() {
	cfg := a.Config.Server

	routerCfg := apihttp.RouterConfig{
		Metrics: a.Metrics,
		Timeout: cfg.RequestTimeout,
	}
	if a.Registry != nil {
		routerCfg.Gatherer = a.Registry
	}

	a.HTTPServer = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      apihttp.NewRouter(a.Artifacts, a.Logger, routerCfg),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
}

// QueryDefaults converts the query section into resolver defaults.
func QueryDefaults(q config.QueryConfig) resolver.Defaults {
	d := resolver.DefaultDefaults()
	if p, ok := document.ParsePerspective(q.Perspective); ok {
		d.Perspective = p
	}
	if q.Depth != nil {
		d.Depth = *q.Depth
	}
	if q.MaxDepth > 0 {
		d.MaxDepth = q.MaxDepth
	}
	if q.Limit > 0 {
		d.Limit = q.Limit
	}
	if q.MaxLimit > 0 {
		d.MaxLimit = q.MaxLimit
	}
	return d
}

// Run starts the HTTP server and blocks until shutdown. SIGHUP reloads
// the schema; SIGINT and SIGTERM shut down gracefully.
func (a *App) Run() error {
	if a.Config.Schema.Watch {
		if err := a.Artifacts.Watch(); err != nil {
			a.Logger.Warn().Err(err).Msg("schema watching disabled")
		}
	}
	a.Artifacts.WatchSignals()

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().
			Str("addr", a.HTTPServer.Addr).
			Str("schema_version", a.Artifacts.Get().Short()).
			Msg("starting http server")
		if err := a.HTTPServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt or error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		a.Shutdown()
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	return a.Shutdown()
}

// Shutdown gracefully stops the application.
func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("http server shutdown error")
		}
	}

	a.close()

	a.Logger.Info().Msg("shutdown complete")
	return nil
}

func (a *App) close() {
	if a.Artifacts != nil {
		a.Artifacts.Stop()
	}
	if a.closeStore != nil {
		if err := a.closeStore(); err != nil {
			a.Logger.Error().Err(err).Msg("store close error")
		}
		a.closeStore = nil
	}
}

// NewLogger builds the application logger.
func NewLogger(cfg config.LoggingConfig, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	if cfg.Format == "console" {
		output := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
		return zerolog.New(output).Level(level).With().Timestamp().Logger()
	}

	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// LoggerFromEnv builds a logger from CONTENTGATE_LOG_* alone, for commands
// that run without a config file.
func LoggerFromEnv() zerolog.Logger {
	return NewLogger(config.LoggingConfig{
		Level:  os.Getenv(EnvLogLevel),
		Format: os.Getenv(EnvLogFormat),
	}, os.Stderr)
}
