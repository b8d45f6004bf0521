package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/zombar/creepyparser/internal/models"
	"github.com/zombar/creepyparser/internal/retrieval"
)

const tracerName = "creepyparser/source"

// Source labels used in logs and metrics
const (
	PlatformText   = "text"
	PlatformReddit = "reddit"
	PlatformFandom = "fandom"
)

const DefaultRedditAPIBase = "https://www.reddit.com"

// Fetcher retrieves structured content for a URL
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*retrieval.StructuredContent, error)
}

// Config holds the API endpoints used for each platform
type Config struct {
	RedditAPIBase string
	// FandomAPIBase overrides the wiki host, e.g. for tests; empty means
	// the API of the wiki named in the URL
	FandomAPIBase string
}

// Resolver turns an analysis request into a raw document
type Resolver struct {
	fetcher Fetcher
	cfg     Config
	logger  *slog.Logger
}

// NewResolver creates a resolver backed by fetcher
func NewResolver(fetcher Fetcher, cfg Config) *Resolver {
	if cfg.RedditAPIBase == "" {
		cfg.RedditAPIBase = DefaultRedditAPIBase
	}
	cfg.RedditAPIBase = strings.TrimRight(cfg.RedditAPIBase, "/")
	cfg.FandomAPIBase = strings.TrimRight(cfg.FandomAPIBase, "/")
	return &Resolver{fetcher: fetcher, cfg: cfg, logger: slog.Default()}
}

// WithLogger sets the resolver logger
func (r *Resolver) WithLogger(logger *slog.Logger) *Resolver {
	r.logger = logger
	return r
}

// target is a recognized source URL
type target struct {
	platform string
	board    string // subreddit or wiki
	id       string // reddit post id or wiki page
	link     string // canonical permalink
}

// Validate checks a request without fetching anything
func Validate(req models.AnalysisRequest) error {
	_, err := classify(req)
	return err
}

// Platform returns the source label for a request, or "invalid"
func Platform(req models.AnalysisRequest) string {
	t, err := classify(req)
	if err != nil {
		return "invalid"
	}
	if t == nil {
		return PlatformText
	}
	return t.platform
}

func classify(req models.AnalysisRequest) (*target, error) {
	text := strings.TrimSpace(req.Text)
	link := strings.TrimSpace(req.URL)

	switch {
	case text == "" && link == "":
		return nil, models.InvalidInputf("Please provide either 'text' or 'url'.")
	case text != "" && link != "":
		return nil, models.InvalidInputf("Provide either 'text' or 'url', not both.")
	case text != "":
		return nil, nil
	}
	return parseTarget(link)
}

func parseTarget(raw string) (*target, error) {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, models.InvalidInputf("invalid URL %q", raw)
	}
	host := strings.ToLower(u.Hostname())
	segments := strings.FieldsFunc(u.EscapedPath(), func(r rune) bool { return r == '/' })

	if t, ok := parseReddit(host, segments); ok {
		return t, nil
	}
	if t, ok := parseFandom(host, segments); ok {
		return t, nil
	}
	return nil, models.InvalidInputf("unsupported source %q: only reddit threads and fandom wiki pages are accepted", host)
}

// Resolve wraps literal text or fetches and isolates the story behind a URL
func (r *Resolver) Resolve(ctx context.Context, req models.AnalysisRequest) (*models.RawDocument, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "source.resolve")
	defer span.End()

	t, err := classify(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid input")
		return nil, err
	}
	if t == nil {
		span.SetAttributes(attribute.String("source.platform", PlatformText))
		return &models.RawDocument{Body: req.Text}, nil
	}

	span.SetAttributes(
		attribute.String("source.platform", t.platform),
		attribute.String("source.board", t.board),
	)

	var doc *models.RawDocument
	switch t.platform {
	case PlatformReddit:
		doc, err = r.resolveReddit(ctx, t)
	case PlatformFandom:
		doc, err = r.resolveFandom(ctx, t)
	default:
		err = fmt.Errorf("no resolver for platform %s", t.platform)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.logger.WarnContext(ctx, "source resolution failed",
			"platform", t.platform,
			"url", t.link,
			"error", err,
		)
		return nil, err
	}

	r.logger.InfoContext(ctx, "source resolved",
		"platform", t.platform,
		"board", t.board,
		"body_length", len(doc.Body),
	)
	return doc, nil
}
