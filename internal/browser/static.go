package browser

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"elpais-crawler/internal/config"
	"elpais-crawler/internal/dom"
	"elpais-crawler/internal/httpx"
	"elpais-crawler/internal/robots"
	"elpais-crawler/pkg/types"
)

// StaticSession loads pages over plain HTTP without executing scripts.
// Clicking a link means fetching its resolved href.
type StaticSession struct {
	client    *http.Client
	robots    *robots.Agent
	site      config.SiteConfig
	userAgent string
	logger    *slog.Logger

	limiterOnce sync.Once
	limiter     *httpx.Limiter

	mu       sync.Mutex
	doc      *dom.Document
	released bool
	once     sync.Once
}

// NewStaticSession builds a session from configuration. A nil client gets
// one bounded by the configured page timeout.
func NewStaticSession(cfg *config.Config, client *http.Client, logger *slog.Logger) (*StaticSession, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		var err error
		client, err = httpx.NewClient(httpx.Options{Timeout: cfg.Browser.PageTimeout.Duration})
		if err != nil {
			return nil, err
		}
	}
	return &StaticSession{
		client:    client,
		robots:    robots.NewAgent(cfg.Robots, client, logger),
		site:      cfg.Site,
		userAgent: cfg.Browser.UserAgent,
		logger:    logger.With("component", "static"),
	}, nil
}

// fetch loads target, honouring robots.txt and its crawl delay, and makes
// it the current document.
func (s *StaticSession) fetch(ctx context.Context, target string) error {
	s.mu.Lock()
	released := s.released
	s.mu.Unlock()
	if released {
		return ErrReleased
	}

	if err := s.robots.Check(ctx, target); err != nil {
		return err
	}
	s.limiterOnce.Do(func() {
		delay := s.robots.CrawlDelay(ctx, target)
		if delay > 0 {
			s.logger.Info("honouring crawl delay", "delay", delay)
		}
		s.limiter = httpx.NewLimiter(delay, httpx.RateLimit{})
	})
	if err := s.limiter.WaitURL(ctx, target); err != nil {
		return err
	}

	headers := map[string]string{"Accept-Language": "es-ES,es;q=0.9"}
	if s.userAgent != "" {
		headers["User-Agent"] = s.userAgent
	}
	body, resp, err := httpx.Get(ctx, s.client, target, headers, httpx.DefaultMaxBodyBytes)
	if err != nil {
		return err
	}
	final := target
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL.String()
	}
	doc, err := dom.Parse(bytes.NewReader(body), final)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.doc = doc
	s.mu.Unlock()
	s.logger.Debug("page fetched", "url", final, "bytes", len(body))
	return nil
}

func (s *StaticSession) current() (*dom.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return nil, ErrReleased
	}
	if s.doc == nil {
		return nil, ErrNotLoaded
	}
	return s.doc, nil
}

// LoadHomepage fetches the homepage. Cookie banners need scripts to
// function, so a present banner is only noted.
func (s *StaticSession) LoadHomepage(ctx context.Context) error {
	if err := s.fetch(ctx, s.site.HomeURL); err != nil {
		return fmt.Errorf("load homepage %s: %w", s.site.HomeURL, err)
	}
	s.logger.Info("homepage loaded", "url", s.site.HomeURL)
	if doc, err := s.current(); err == nil && s.site.CookieSelector != "" {
		if found, _ := doc.QueryAll(ctx, s.site.CookieSelector, 0); len(found) > 0 {
			s.logger.Info("cookie banner present, nothing to click without scripts")
		} else {
			s.logger.Info("cookie banner not found or skipped", "selector", s.site.CookieSelector)
		}
	}
	return nil
}

// NavigateToOpinionSection runs the navigation chain over plain HTTP.
func (s *StaticSession) NavigateToOpinionSection(ctx context.Context) (string, error) {
	strategy, err := navigateToOpinion(ctx, staticNavigator{s}, s.site, s.logger)
	if doc, derr := s.current(); derr == nil {
		s.logger.Info("page language", "lang", doc.Lang())
	}
	return strategy, err
}

// Document returns the current document.
func (s *StaticSession) Document(context.Context) (types.Page, error) {
	doc, err := s.current()
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Release drops the current document and idle connections. Only the first
// call has any effect.
func (s *StaticSession) Release(_ context.Context, status types.SessionStatus) error {
	s.once.Do(func() {
		s.mu.Lock()
		s.released = true
		s.doc = nil
		s.mu.Unlock()
		s.client.CloseIdleConnections()
		s.logger.Info("static session released", "passed", status.Passed, "reason", status.Reason)
	})
	return nil
}

type staticNavigator struct {
	s *StaticSession
}

func (n staticNavigator) follow(ctx context.Context, links []dom.Link) error {
	doc, err := n.s.current()
	if err != nil {
		return err
	}
	base, err := url.Parse(doc.URL())
	if err != nil {
		return err
	}
	for _, link := range links {
		ref, err := url.Parse(link.Href)
		if err != nil || link.Href == "" {
			continue
		}
		return n.s.fetch(ctx, base.ResolveReference(ref).String())
	}
	return fmt.Errorf("no followable link: %w", types.ErrNoMatch)
}

func (n staticNavigator) clickSelector(ctx context.Context, selector string) error {
	doc, err := n.s.current()
	if err != nil {
		return err
	}
	return n.follow(ctx, doc.Links(selector))
}

func (n staticNavigator) clickLinkText(ctx context.Context, hrefContains, text string) error {
	doc, err := n.s.current()
	if err != nil {
		return err
	}
	var matches []dom.Link
	for _, link := range doc.Links("a[href]") {
		if strings.Contains(link.Href, hrefContains) && link.Text == text {
			matches = append(matches, link)
		}
	}
	return n.follow(ctx, matches)
}

func (n staticNavigator) open(ctx context.Context, target string) error {
	return n.s.fetch(ctx, target)
}

func (n staticNavigator) currentURL(context.Context) (string, error) {
	doc, err := n.s.current()
	if err != nil {
		return "", err
	}
	return doc.URL(), nil
}
