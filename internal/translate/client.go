// Package translate translates headlines through an ordered chain of
// backends and never fails: exhaustion yields a marked copy of the input.
package translate

import (
	"context"
	"log/slog"
	"strings"

	"elpais-crawler/internal/config"
	"elpais-crawler/internal/fallback"
	"elpais-crawler/internal/httpx"
	"elpais-crawler/pkg/types"
)

// FailurePrefix marks a headline that no backend could translate.
const FailurePrefix = "[Translation Failed] "

// Client runs the backend chain for each text.
type Client struct {
	source   string
	backends []Backend
	limiter  *httpx.Limiter
	logger   *slog.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithLimiter paces requests per endpoint host.
func WithLimiter(l *httpx.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New constructs a Client that tries backends in order.
func New(source string, backends []Backend, opts ...Option) *Client {
	c := &Client{source: source, backends: backends, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FromConfig builds the standard chain. The keyed backend is included only
// when an API key is configured.
func FromConfig(cfg config.TranslationConfig, logger *slog.Logger) (*Client, error) {
	var backends []Backend
	if strings.TrimSpace(cfg.RapidAPI.APIKey) != "" {
		rapidClient, err := httpx.NewClient(httpx.Options{
			ConnectTimeout: cfg.RapidAPI.ConnectTimeout.Duration,
			ReadTimeout:    cfg.RapidAPI.ReadTimeout.Duration,
		})
		if err != nil {
			return nil, err
		}
		backends = append(backends, NewRapidAPI(rapidClient, cfg.RapidAPI.URL, cfg.RapidAPI.Host, cfg.RapidAPI.APIKey))
	}
	freeClient, err := httpx.NewClient(httpx.Options{Timeout: cfg.Free.Timeout.Duration})
	if err != nil {
		return nil, err
	}
	backends = append(backends, NewFree(freeClient, cfg.Free.URL))

	limiter := httpx.LimiterFromConfig(cfg.RequestDelay, cfg.RateLimit)
	return New(cfg.Source, backends, WithLimiter(limiter), WithLogger(logger)), nil
}

// Backends returns the names of the configured backends in chain order.
func (c *Client) Backends() []string {
	names := make([]string, 0, len(c.backends))
	for _, b := range c.backends {
		names = append(names, b.Name())
	}
	return names
}

// Resolve translates text into target and reports which backend answered.
// It always returns a usable Translation.
func (c *Client) Resolve(ctx context.Context, text, target string) types.Translation {
	attempts := make([]fallback.Attempt[string], 0, len(c.backends))
	for _, backend := range c.backends {
		attempts = append(attempts, fallback.Attempt[string]{
			Name: backend.Name(),
			Run: func(ctx context.Context) (string, error) {
				if err := c.limiter.WaitURL(ctx, backend.Endpoint()); err != nil {
					return "", err
				}
				return backend.Translate(ctx, text, c.source, target)
			},
		})
	}

	out, err := fallback.Run(ctx, c.logger, attempts...)
	if err != nil {
		c.logger.Warn("translation failed", "text", text, "error", err)
		return types.Translation{Text: FailurePrefix + text, Failed: true}
	}
	if len(out.Failures) > 0 {
		c.logger.Info("translation fell back", "backend", out.Strategy, "failed", len(out.Failures))
	}
	return types.Translation{Text: out.Value, Backend: out.Strategy}
}

// Translate is Resolve reduced to the translated text.
func (c *Client) Translate(ctx context.Context, text, target string) string {
	return c.Resolve(ctx, text, target).Text
}
