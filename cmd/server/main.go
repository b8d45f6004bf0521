package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/zombar/creepyparser/internal/analyzer"
	"github.com/zombar/creepyparser/internal/api"
	"github.com/zombar/creepyparser/internal/config"
	"github.com/zombar/creepyparser/internal/pipeline"
	"github.com/zombar/creepyparser/internal/retrieval"
	"github.com/zombar/creepyparser/internal/source"
	"github.com/zombar/creepyparser/pkg/logging"
	"github.com/zombar/creepyparser/pkg/metrics"
	"github.com/zombar/creepyparser/pkg/tracing"
)

const serviceName = "creepyparser"

var version = "1.0.0"

func main() {
	// .env is optional
	_ = godotenv.Load()

	var (
		configPath = flag.String("config", "", "Config file path (env: "+config.EnvConfigFile+")")
		port       = flag.String("port", "", "Server port, overrides config and PORT")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if *port != "" {
		cfg.Server.Port = *port
		if err := cfg.Validate(); err != nil {
			slog.Error("invalid port flag", "error", err)
			os.Exit(1)
		}
	}

	// Setup structured logging with JSON output
	level, _ := cfg.SlogLevel()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	logger.Info("creepyparser service initializing", "version", version)

	// Initialize tracing
	tp, err := tracing.InitTracer(serviceName)
	if err != nil {
		logger.Warn("failed to initialize tracer, continuing without tracing", "error", err)
	} else {
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				logger.Error("error shutting down tracer", "error", err)
			}
		}()
		logger.Info("tracing initialized successfully")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	handler, err := newHandler(cfg, reg, logger)
	if err != nil {
		logger.Error("failed to initialize analyzer", "error", err)
		os.Exit(1)
	}

	// Write timeout must outlast the analysis deadline
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.Analysis.Timeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("creepyparser service starting",
			"port", cfg.Server.Port,
			"retrieval_timeout", cfg.Retrieval.Timeout.String(),
			"retrieval_max_attempts", cfg.Retrieval.MaxAttempts,
			"analysis_timeout", cfg.Analysis.Timeout.String(),
			"dialogue_mode", cfg.Analysis.Score.DialogueMode,
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// newHandler wires the engine and wraps it with the middleware chain:
// tracing -> HTTP logging -> metrics -> handlers
func newHandler(cfg *config.Config, reg *prometheus.Registry, logger *slog.Logger) (http.Handler, error) {
	m := metrics.New(serviceName, reg, "/analyze", "/api/analyze", "/health", "/metrics")

	acfg, err := cfg.Analyzer()
	if err != nil {
		return nil, err
	}
	a, err := analyzer.NewWithConfig(acfg)
	if err != nil {
		return nil, err
	}
	a.WithLogger(logger).OnDegraded(func(extractor string, _ error) {
		m.ExtractorFailed(extractor)
	})

	client := retrieval.New(cfg.RetrievalClient()).
		WithLogger(logger).
		OnAttempt(m.RetrievalAttempt)
	resolver := source.NewResolver(client, cfg.SourceResolver()).WithLogger(logger)

	engine := pipeline.New(resolver, a, cfg.Analysis.Timeout).
		WithLogger(logger).
		WithObserver(m)

	apiHandler := api.NewHandler(engine, reg, logger)

	return tracing.HTTPMiddleware(serviceName)(
		logging.HTTPLoggingMiddleware(logger)(
			m.HTTPMiddleware(apiHandler),
		),
	), nil
}
