package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/zombar/creepyparser/internal/models"
)

const tracerName = "creepyparser/analyzer"

// Extractor is one independent detector of the extractor set.
// Implementations must be pure: same document in, same fragment out.
type Extractor interface {
	Name() string
	Extract(doc models.NormalizedDocument) (Fragments, error)
}

// Fragments holds extractor output. Each extractor fills only its own fields.
type Fragments struct {
	Entities        []string
	Authors         []string
	Emails          []string
	Dates           []string
	TriggerWarnings []string
	Dialogue        models.DialogueStats
	ZalgoGlitch     bool
	Spoilers        []string
}

func (f *Fragments) merge(o Fragments) {
	if o.Entities != nil {
		f.Entities = o.Entities
	}
	if o.Authors != nil {
		f.Authors = o.Authors
	}
	if o.Emails != nil {
		f.Emails = o.Emails
	}
	if o.Dates != nil {
		f.Dates = o.Dates
	}
	if o.TriggerWarnings != nil {
		f.TriggerWarnings = o.TriggerWarnings
	}
	if o.Dialogue != (models.DialogueStats{}) {
		f.Dialogue = o.Dialogue
	}
	if o.Spoilers != nil {
		f.Spoilers = o.Spoilers
	}
	f.ZalgoGlitch = f.ZalgoGlitch || o.ZalgoGlitch
}

// DegradedFunc is called when an extractor fails and its field falls back to empty
type DegradedFunc func(extractor string, err error)

// Config tunes the extractor set and the score
type Config struct {
	Weights ScoreWeights
	Glitch  GlitchThresholds
	Lexicon *Lexicon
	// Workers bounds concurrent extractors; <= 0 runs one goroutine per extractor
	Workers int
}

// DefaultConfig returns the built-in weights, thresholds and lexicon
func DefaultConfig() Config {
	return Config{
		Weights: DefaultScoreWeights(),
		Glitch:  DefaultGlitchThresholds(),
		Lexicon: DefaultLexicon(),
	}
}

// Analyzer runs the extractor set and aggregates a report
type Analyzer struct {
	extractors []Extractor
	scorer     *Scorer
	workers    int
	logger     *slog.Logger
	onDegraded DegradedFunc
}

// New creates an Analyzer with the default configuration
func New() *Analyzer {
	a, err := NewWithConfig(DefaultConfig())
	if err != nil {
		// default weights are valid by construction
		panic(err)
	}
	return a
}

// NewWithConfig creates an Analyzer from explicit configuration
func NewWithConfig(cfg Config) (*Analyzer, error) {
	if cfg.Lexicon == nil {
		cfg.Lexicon = DefaultLexicon()
	}
	scorer, err := NewScorer(cfg.Weights)
	if err != nil {
		return nil, err
	}
	if err := cfg.Glitch.Validate(); err != nil {
		return nil, err
	}

	return &Analyzer{
		extractors: []Extractor{
			EntityExtractor{},
			AuthorExtractor{},
			EmailExtractor{},
			DateExtractor{},
			TriggerClassifier{Lexicon: cfg.Lexicon},
			DialogueAnalyzer{},
			GlitchDetector{Thresholds: cfg.Glitch},
			SpoilerDetector{},
		},
		scorer:  scorer,
		workers: cfg.Workers,
		logger:  slog.Default(),
	}, nil
}

// WithLogger sets the logger used for degraded extractor warnings
func (a *Analyzer) WithLogger(logger *slog.Logger) *Analyzer {
	a.logger = logger
	return a
}

// OnDegraded registers a hook for extractor failures (metrics)
func (a *Analyzer) OnDegraded(fn DegradedFunc) *Analyzer {
	a.onDegraded = fn
	return a
}

// Extractors returns the names of the configured extractors in report order
func (a *Analyzer) Extractors() []string {
	names := make([]string, len(a.extractors))
	for i, e := range a.extractors {
		names[i] = e.Name()
	}
	return names
}

// Analyze runs every extractor and aggregates the report. It never fails:
// extractor errors degrade to empty fields.
func (a *Analyzer) Analyze(ctx context.Context, doc models.NormalizedDocument, origin *models.Origin) models.AnalysisReport {
	fragments := a.Extract(ctx, doc)

	_, span := otel.Tracer(tracerName).Start(ctx, "analyzer.aggregate")
	defer span.End()

	report := a.scorer.Aggregate(doc, origin, fragments)
	span.SetAttributes(attribute.Int("report.creepiness_score", report.Data.CreepinessScore))
	return report
}

// Extract fans the document out to all extractors and joins their fragments.
// Results are merged in extractor order, so scheduling never changes the output.
func (a *Analyzer) Extract(ctx context.Context, doc models.NormalizedDocument) Fragments {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "analyzer.extract")
	defer span.End()
	span.SetAttributes(
		attribute.Int("text.length", len(doc.Body)),
		attribute.Int("extractors.count", len(a.extractors)),
	)

	slots := make([]Fragments, len(a.extractors))

	var g errgroup.Group
	if a.workers > 0 {
		g.SetLimit(a.workers)
	}
	for i, ex := range a.extractors {
		i, ex := i, ex
		g.Go(func() error {
			frag, err := a.runExtractor(ctx, ex, doc)
			if err != nil {
				a.degraded(ctx, ex.Name(), err)
				return nil
			}
			slots[i] = frag
			return nil
		})
	}
	// workers never return errors; failures are absorbed above
	_ = g.Wait()

	var out Fragments
	for _, frag := range slots {
		out.merge(frag)
	}
	return out
}

// runExtractor converts panics into errors so one bad extractor cannot take
// down the request
func (a *Analyzer) runExtractor(ctx context.Context, ex Extractor, doc models.NormalizedDocument) (frag Fragments, err error) {
	_, span := otel.Tracer(tracerName).Start(ctx, "analyzer.extractor."+ex.Name())
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extractor %s panicked: %v", ex.Name(), r)
			a.logger.Debug("extractor panic stack", "extractor", ex.Name(), "stack", string(debug.Stack()))
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	return ex.Extract(doc)
}

func (a *Analyzer) degraded(ctx context.Context, name string, err error) {
	a.logger.WarnContext(ctx, "extractor degraded to empty result",
		"extractor", name,
		"error", err,
	)
	if a.onDegraded != nil {
		a.onDegraded(name, err)
	}
}
