// Package robots decides whether plain HTTP page fetches are permitted by a
// site's robots.txt.
package robots

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"

	"elpais-crawler/internal/config"
	"elpais-crawler/internal/httpx"
)

// ErrDisallowed is returned when robots.txt forbids the target path.
var ErrDisallowed = errors.New("disallowed by robots.txt")

const maxRobotsBytes = 512 * 1024

// Agent evaluates robots.txt rules with caching and host overrides.
type Agent struct {
	client    *http.Client
	userAgent string
	ttl       time.Duration
	respect   bool
	logger    *slog.Logger

	mu        sync.Mutex
	cache     map[string]cacheEntry
	overrides map[string]struct{}
}

type cacheEntry struct {
	fetched time.Time
	rules   *robotstxt.RobotsData
}

// NewAgent constructs a robots agent from configuration.
func NewAgent(cfg config.RobotsConfig, client *http.Client, logger *slog.Logger) *Agent {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	ttl := cfg.CacheTTL.Duration
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}

	overrides := make(map[string]struct{}, len(cfg.Overrides))
	for _, host := range cfg.Overrides {
		host = strings.ToLower(strings.TrimSpace(host))
		if host != "" {
			overrides[host] = struct{}{}
		}
	}

	return &Agent{
		client:    client,
		userAgent: cfg.UserAgent,
		ttl:       ttl,
		respect:   cfg.Respect,
		logger:    logger,
		cache:     make(map[string]cacheEntry),
		overrides: overrides,
	}
}

// Check returns ErrDisallowed when the rules for rawURL's host forbid its
// path. Failures to obtain the rules are logged and treated as allowed.
func (a *Agent) Check(ctx context.Context, rawURL string) error {
	target, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse %q: %w", rawURL, err)
	}
	if !target.IsAbs() {
		return fmt.Errorf("robots check needs an absolute url, got %q", rawURL)
	}
	if !a.respect {
		return nil
	}
	if _, ok := a.overrides[strings.ToLower(target.Hostname())]; ok {
		return nil
	}

	rules, err := a.rules(ctx, target)
	if err != nil {
		a.logger.Warn("robots.txt unavailable, continuing", "host", target.Host, "error", err)
		return nil
	}
	path := target.EscapedPath()
	if path == "" {
		path = "/"
	}
	if !rules.TestAgent(path, a.agentName()) {
		return fmt.Errorf("%s: %w", rawURL, ErrDisallowed)
	}
	return nil
}

// CrawlDelay returns the Crawl-delay declared for the agent on rawURL's
// host, or zero when none is known.
func (a *Agent) CrawlDelay(ctx context.Context, rawURL string) time.Duration {
	target, err := url.Parse(rawURL)
	if err != nil || !target.IsAbs() || !a.respect {
		return 0
	}
	rules, err := a.rules(ctx, target)
	if err != nil {
		return 0
	}
	return rules.FindGroup(a.agentName()).CrawlDelay
}

func (a *Agent) agentName() string {
	if a.userAgent == "" {
		return "*"
	}
	return a.userAgent
}

func (a *Agent) rules(ctx context.Context, target *url.URL) (*robotstxt.RobotsData, error) {
	host := strings.ToLower(target.Host)

	a.mu.Lock()
	entry, ok := a.cache[host]
	a.mu.Unlock()
	if ok && time.Since(entry.fetched) < a.ttl {
		return entry.rules, nil
	}

	robotsURL := target.Scheme + "://" + target.Host + "/robots.txt"
	headers := map[string]string{}
	if a.userAgent != "" {
		headers["User-Agent"] = a.userAgent
	}

	var data *robotstxt.RobotsData
	body, resp, err := httpx.Get(ctx, a.client, robotsURL, headers, maxRobotsBytes)
	var statusErr *httpx.StatusError
	switch {
	case errors.As(err, &statusErr):
		// 4xx means no restrictions and 5xx means full restriction.
		data, err = robotstxt.FromStatusAndBytes(statusErr.Code, nil)
	case err != nil:
		return nil, fmt.Errorf("fetch robots.txt: %w", err)
	default:
		data, err = robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	}
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt: %w", err)
	}

	a.mu.Lock()
	a.cache[host] = cacheEntry{fetched: time.Now(), rules: data}
	a.mu.Unlock()
	return data, nil
}
