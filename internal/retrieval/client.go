package retrieval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/zombar/creepyparser/internal/models"
)

const (
	DefaultTimeout        = 10 * time.Second
	DefaultMaxAttempts    = 4
	DefaultInitialBackoff = 500 * time.Millisecond
	DefaultMaxBackoff     = 5 * time.Second
	DefaultRateLimit      = 2.0
	DefaultRateBurst      = 4
	DefaultMaxBodyBytes   = 5 << 20
	DefaultUserAgent      = "creepyparser/1.0 (+https://github.com/zombar/creepyparser)"
)

// Attempt outcomes reported to OnAttempt
const (
	OutcomeSuccess   = "success"
	OutcomeTransient = "transient"
	OutcomeNotFound  = "not_found"
	OutcomeBlocked   = "blocked"
	OutcomeMalformed = "malformed"
)

// Config controls timeouts, retries and politeness
type Config struct {
	Timeout        time.Duration // per attempt
	MaxAttempts    int           // total attempts, first one included
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	RateLimit      float64 // requests per second; <= 0 disables limiting
	RateBurst      int
	MaxBodyBytes   int64
	UserAgent      string
}

// DefaultConfig returns the production retrieval settings
func DefaultConfig() Config {
	return Config{
		Timeout:        DefaultTimeout,
		MaxAttempts:    DefaultMaxAttempts,
		InitialBackoff: DefaultInitialBackoff,
		MaxBackoff:     DefaultMaxBackoff,
		RateLimit:      DefaultRateLimit,
		RateBurst:      DefaultRateBurst,
		MaxBodyBytes:   DefaultMaxBodyBytes,
		UserAgent:      DefaultUserAgent,
	}
}

// StructuredContent is a successfully fetched response body
type StructuredContent struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte
}

// DecodeJSON unmarshals the body, reporting a MalformedResponse on failure
func (s *StructuredContent) DecodeJSON(v any) error {
	if err := json.Unmarshal(s.Body, v); err != nil {
		return models.NewRetrievalError(models.RetrievalMalformed, s.URL, s.StatusCode,
			fmt.Errorf("failed to decode JSON: %w", err))
	}
	return nil
}

// Client fetches source documents with bounded retries
type Client struct {
	http      *http.Client
	cfg       Config
	limiter   *rate.Limiter
	logger    *slog.Logger
	onAttempt func(outcome string)
}

// New creates a retrieval client. Zero config fields take their defaults.
func New(cfg Config) *Client {
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = def.InitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = def.MaxBackoff
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = def.MaxBodyBytes
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := max(cfg.RateBurst, 1)

	return &Client{
		http: &http.Client{
			// per-attempt deadlines come from the request context
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, burst),
		logger:  slog.Default(),
	}
}

// WithLogger sets the logger used for retry warnings
func (c *Client) WithLogger(logger *slog.Logger) *Client {
	c.logger = logger
	return c
}

// OnAttempt registers a callback invoked once per HTTP attempt with its outcome
func (c *Client) OnAttempt(fn func(outcome string)) *Client {
	c.onAttempt = fn
	return c
}

// Config returns the effective configuration
func (c *Client) Config() Config {
	return c.cfg
}

// Fetch GETs url, retrying transient failures with exponential backoff.
// Errors are always *models.RetrievalError.
func (c *Client) Fetch(ctx context.Context, url string) (*StructuredContent, error) {
	var content *StructuredContent
	attempt := 0

	operation := func() error {
		attempt++
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		res, err := c.fetchOnce(ctx, url)
		if err != nil {
			return err
		}
		content = res
		return nil
	}

	notify := func(err error, wait time.Duration) {
		c.logger.WarnContext(ctx, "retrying source fetch",
			"url", url,
			"attempt", attempt,
			"max_attempts", c.cfg.MaxAttempts,
			"backoff", wait.String(),
			"error", err,
		)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.InitialBackoff
	b.MaxInterval = c.cfg.MaxBackoff
	b.MaxElapsedTime = 0 // the attempt cap bounds retries

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.cfg.MaxAttempts-1)), ctx)
	err := backoff.RetryNotify(operation, policy, notify)
	if err == nil {
		return content, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		kind := models.RetrievalTimeout
		if errors.Is(ctxErr, context.Canceled) {
			kind = models.RetrievalCancelled
		}
		return nil, models.NewRetrievalError(kind, url, 0, ctxErr)
	}

	var re *models.RetrievalError
	if errors.As(err, &re) {
		return nil, re
	}

	return nil, models.NewRetrievalError(models.RetrievalTimeout, url, 0,
		fmt.Errorf("gave up after %d attempts: %w", attempt, err))
}

// fetchOnce performs a single attempt. Permanent failures are wrapped with
// backoff.Permanent; anything else is retried.
func (c *Client) fetchOnce(ctx context.Context, url string) (*StructuredContent, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, url, http.NoBody)
	if err != nil {
		c.record(OutcomeMalformed)
		return nil, backoff.Permanent(models.NewRetrievalError(models.RetrievalMalformed, url, 0,
			fmt.Errorf("failed to create request: %w", err)))
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/json, text/html;q=0.9, */*;q=0.5")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		c.record(OutcomeTransient)
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		c.record(OutcomeNotFound)
		return nil, backoff.Permanent(models.NewRetrievalError(models.RetrievalNotFound, url, resp.StatusCode, nil))
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests:
		c.record(OutcomeBlocked)
		return nil, backoff.Permanent(models.NewRetrievalError(models.RetrievalBlocked, url, resp.StatusCode, nil))
	case resp.StatusCode >= 500:
		c.record(OutcomeTransient)
		return nil, fmt.Errorf("upstream returned HTTP %d", resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		c.record(OutcomeMalformed)
		return nil, backoff.Permanent(models.NewRetrievalError(models.RetrievalMalformed, url, resp.StatusCode,
			fmt.Errorf("unexpected status")))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxBodyBytes+1))
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		if attemptCtx.Err() != nil {
			c.record(OutcomeTransient)
			return nil, fmt.Errorf("failed to read response body: %w", err)
		}
		c.record(OutcomeMalformed)
		return nil, backoff.Permanent(models.NewRetrievalError(models.RetrievalMalformed, url, resp.StatusCode,
			fmt.Errorf("failed to read response body: %w", err)))
	}
	if int64(len(body)) > c.cfg.MaxBodyBytes {
		c.record(OutcomeMalformed)
		return nil, backoff.Permanent(models.NewRetrievalError(models.RetrievalMalformed, url, resp.StatusCode,
			fmt.Errorf("response body exceeds %d bytes", c.cfg.MaxBodyBytes)))
	}

	c.record(OutcomeSuccess)
	return &StructuredContent{
		URL:         url,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

func (c *Client) record(outcome string) {
	if c.onAttempt != nil {
		c.onAttempt(outcome)
	}
}
