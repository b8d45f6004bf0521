package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/zombar/creepyparser/internal/analyzer"
	"github.com/zombar/creepyparser/internal/models"
	"github.com/zombar/creepyparser/internal/normalize"
	"github.com/zombar/creepyparser/internal/source"
)

const tracerName = "creepyparser/pipeline"

// Outcome labels for Observer
const (
	OutcomeSuccess  = "success"
	OutcomeInvalid  = "invalid_input"
	OutcomeInternal = "internal"
)

// Resolver turns a request into a raw document
type Resolver interface {
	Resolve(ctx context.Context, req models.AnalysisRequest) (*models.RawDocument, error)
}

// Observer receives one call per finished analysis
type Observer interface {
	ObserveAnalysis(source, outcome string, score int, d time.Duration)
}

// Engine runs resolve -> normalize -> extract -> aggregate for one request
type Engine struct {
	resolver Resolver
	analyzer *analyzer.Analyzer
	timeout  time.Duration
	logger   *slog.Logger
	observer Observer
}

// New creates an engine. timeout bounds each analysis; <= 0 disables it.
func New(resolver Resolver, a *analyzer.Analyzer, timeout time.Duration) *Engine {
	return &Engine{
		resolver: resolver,
		analyzer: a,
		timeout:  timeout,
		logger:   slog.Default(),
	}
}

func (e *Engine) WithLogger(logger *slog.Logger) *Engine {
	e.logger = logger
	return e
}

func (e *Engine) WithObserver(o Observer) *Engine {
	e.observer = o
	return e
}

// Analyze produces the report for req. Only invalid input and retrieval
// failures are returned as errors; extractor failures degrade silently.
func (e *Engine) Analyze(ctx context.Context, req models.AnalysisRequest) (models.AnalysisReport, error) {
	start := time.Now()
	platform := source.Platform(req)

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	raw, err := e.resolver.Resolve(ctx, req)
	if err != nil {
		e.observe(platform, Outcome(err), 0, start)
		return models.AnalysisReport{}, err
	}

	_, span := otel.Tracer(tracerName).Start(ctx, "text.normalize")
	doc := normalize.Normalize(*raw)
	span.SetAttributes(
		attribute.Int("text.length", len(doc.Body)),
		attribute.Int("text.paragraphs", len(doc.Paragraphs)),
		attribute.Int("text.sentences", len(doc.Sentences)),
	)
	span.End()

	report := e.analyzer.Analyze(ctx, doc, raw.Origin)

	e.observe(platform, OutcomeSuccess, report.Data.CreepinessScore, start)
	e.logger.InfoContext(ctx, "analysis completed",
		"source", platform,
		"creepiness_score", report.Data.CreepinessScore,
		"trigger_warnings", len(report.Data.TriggerWarnings),
		"entities", len(report.Data.Entities),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return report, nil
}

func (e *Engine) observe(platform, outcome string, score int, start time.Time) {
	if e.observer != nil {
		e.observer.ObserveAnalysis(platform, outcome, score, time.Since(start))
	}
}

// Outcome maps an Analyze error to a metrics label
func Outcome(err error) string {
	if err == nil {
		return OutcomeSuccess
	}
	if errors.Is(err, models.ErrInvalidInput) {
		return OutcomeInvalid
	}
	var re *models.RetrievalError
	if errors.As(err, &re) {
		return string(re.Kind)
	}
	return OutcomeInternal
}
