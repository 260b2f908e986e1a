package browser

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	cdpbrowser "github.com/chromedp/cdproto/browser"
	"github.com/chromedp/chromedp"

	"elpais-crawler/internal/config"
	"elpais-crawler/pkg/types"
)

// ChromeSession drives a Chrome tab through the DevTools protocol, either on
// a locally spawned browser or on a remote grid.
type ChromeSession struct {
	cfg    config.BrowserConfig
	site   config.SiteConfig
	remote bool
	logger *slog.Logger

	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	releaseOnce sync.Once
	releaseErr  error
	mu          sync.Mutex
	released    bool
}

// NewChromeSession starts the browser. In remote mode runID names the grid
// session and, unless configured, its build.
func NewChromeSession(ctx context.Context, cfg *config.Config, runID string, logger *slog.Logger) (*ChromeSession, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &ChromeSession{
		cfg:    cfg.Browser,
		site:   cfg.Site,
		remote: cfg.Browser.Mode == config.ModeRemote,
		logger: logger.With("component", "chrome", "mode", cfg.Browser.Mode),
	}

	var allocCtx context.Context
	if s.remote {
		endpoint, err := EndpointURL(cfg.Browser.Remote, runID)
		if err != nil {
			return nil, err
		}
		s.logger.Info("connecting to remote grid", "endpoint", redact(endpoint), "run_id", runID)
		allocCtx, s.allocCancel = chromedp.NewRemoteAllocator(ctx, endpoint, chromedp.NoModifyURL)
	} else {
		allocCtx, s.allocCancel = chromedp.NewExecAllocator(ctx, s.execOptions()...)
	}

	s.browserCtx, s.browserCancel = chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			s.logger.Debug(fmt.Sprintf(format, args...))
		}),
		chromedp.WithErrorf(func(format string, args ...any) {
			s.logger.Debug("cdp: " + fmt.Sprintf(format, args...))
		}),
	)

	startCtx, cancel := context.WithTimeout(s.browserCtx, s.pageTimeout())
	defer cancel()
	if err := chromedp.Run(startCtx); err != nil {
		s.browserCancel()
		s.allocCancel()
		return nil, fmt.Errorf("start browser: %w", err)
	}
	return s, nil
}

func (s *ChromeSession) execOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	for _, f := range launchFlags(s.cfg) {
		opts = append(opts, chromedp.Flag(f.name, f.value))
	}
	opts = append(opts, chromedp.WindowSize(s.cfg.WindowWidth, s.cfg.WindowHeight))
	if ua := strings.TrimSpace(s.cfg.UserAgent); ua != "" {
		opts = append(opts, chromedp.UserAgent(ua))
	}
	return opts
}

type launchFlag struct {
	name  string
	value any
}

// launchFlags are the command-line switches of a locally spawned Chrome on
// top of the chromedp defaults.
func launchFlags(cfg config.BrowserConfig) []launchFlag {
	return []launchFlag{
		{"headless", cfg.Headless},
		{"disable-gpu", true},
		{"disable-dev-shm-usage", true},
		{"no-sandbox", true},
		{"start-maximized", true},
	}
}

func (s *ChromeSession) pageTimeout() time.Duration {
	if s.cfg.PageTimeout.Duration > 0 {
		return s.cfg.PageTimeout.Duration
	}
	return 60 * time.Second
}

// run executes actions on the tab, bounded by timeout and by the caller's ctx.
func (s *ChromeSession) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	s.mu.Lock()
	released := s.released
	s.mu.Unlock()
	if released {
		return ErrReleased
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	runCtx, cancel := context.WithTimeout(s.browserCtx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

// LoadHomepage opens the homepage and dismisses the cookie banner when it
// shows up.
func (s *ChromeSession) LoadHomepage(ctx context.Context) error {
	if s.remote {
		s.maximise(ctx)
	}
	if err := s.run(ctx, s.pageTimeout(), chromedp.Navigate(s.site.HomeURL)); err != nil {
		return fmt.Errorf("load homepage %s: %w", s.site.HomeURL, err)
	}
	s.logger.Info("homepage loaded", "url", s.site.HomeURL)
	s.dismissCookies(ctx)
	return nil
}

func (s *ChromeSession) maximise(ctx context.Context) {
	err := s.run(ctx, s.pageTimeout(), chromedp.ActionFunc(func(ctx context.Context) error {
		windowID, _, err := cdpbrowser.GetWindowForTarget().Do(ctx)
		if err != nil {
			return err
		}
		return cdpbrowser.SetWindowBounds(windowID, &cdpbrowser.Bounds{WindowState: cdpbrowser.WindowStateMaximized}).Do(ctx)
	}))
	if err != nil {
		s.logger.Warn("could not maximise window", "error", err)
	}
}

func (s *ChromeSession) dismissCookies(ctx context.Context) {
	acceptCookies(ctx, s.site, func(ctx context.Context, selector string, wait time.Duration) error {
		return s.run(ctx, wait, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible))
	}, s.logger)
}

// acceptCookies clicks the consent button within the cookie wait. A missing
// banner is not an error.
func acceptCookies(ctx context.Context, site config.SiteConfig, click func(context.Context, string, time.Duration) error, logger *slog.Logger) bool {
	if site.CookieSelector == "" {
		return false
	}
	if err := click(ctx, site.CookieSelector, site.CookieWait.Duration); err != nil {
		logger.Info("cookie banner not found or skipped", "selector", site.CookieSelector)
		return false
	}
	logger.Info("accepted cookies")
	return true
}

// NavigateToOpinionSection moves the tab to the opinion section and returns
// the strategy that got there.
func (s *ChromeSession) NavigateToOpinionSection(ctx context.Context) (string, error) {
	strategy, err := navigateToOpinion(ctx, chromeNavigator{s}, s.site, s.logger)
	s.logLanguage(ctx)
	return strategy, err
}

func (s *ChromeSession) logLanguage(ctx context.Context) {
	var lang string
	var ok bool
	err := s.run(ctx, s.pageTimeout(), chromedp.AttributeValue("html", "lang", &lang, &ok, chromedp.ByQuery))
	if err != nil {
		s.logger.Debug("page language unavailable", "error", err)
		return
	}
	s.logger.Info("page language", "lang", lang)
}

// Document returns the live page of the tab.
func (s *ChromeSession) Document(ctx context.Context) (types.Page, error) {
	var location string
	if err := s.run(ctx, s.pageTimeout(), chromedp.Location(&location)); err != nil {
		return nil, fmt.Errorf("read location: %w", err)
	}
	return &livePage{session: s, url: location}, nil
}

// Release reports the session status to the grid (remote mode only) and
// shuts the browser down. Only the first call has any effect.
func (s *ChromeSession) Release(ctx context.Context, status types.SessionStatus) error {
	s.releaseOnce.Do(func() {
		s.releaseErr = releaseSession(ctx, s, s.remote, status, s.logger)
	})
	return s.releaseErr
}

// sessionCloser is the part of a session that Release drives.
type sessionCloser interface {
	reportStatus(ctx context.Context, status types.SessionStatus) error
	shutdown()
}

// releaseSession reports the status of a remote session while the tab is
// still alive, then shuts the browser down even if reporting failed.
func releaseSession(ctx context.Context, c sessionCloser, remote bool, status types.SessionStatus, logger *slog.Logger) error {
	var err error
	if remote {
		err = c.reportStatus(ctx, status)
	}
	c.shutdown()
	logger.Info("browser session released", "passed", status.Passed)
	return err
}

func (s *ChromeSession) shutdown() {
	s.mu.Lock()
	s.released = true
	s.mu.Unlock()

	closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- chromedp.Cancel(s.browserCtx) }()
	select {
	case err := <-done:
		if err != nil {
			s.logger.Debug("browser close", "error", err)
		}
	case <-closeCtx.Done():
		s.logger.Warn("browser did not close in time")
	}
	s.browserCancel()
	s.allocCancel()
}

func (s *ChromeSession) reportStatus(ctx context.Context, status types.SessionStatus) error {
	script, err := statusScript(status)
	if err != nil {
		return err
	}
	if err := s.run(ctx, 10*time.Second, chromedp.Evaluate(script, nil)); err != nil {
		s.logger.Warn("could not report session status", "error", err)
		return fmt.Errorf("report session status: %w", err)
	}
	return nil
}

// chromeNavigator adapts the session to the navigation chain.
type chromeNavigator struct {
	s *ChromeSession
}

func (n chromeNavigator) clickSelector(ctx context.Context, selector string) error {
	return n.s.run(ctx, n.s.pageTimeout(), chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible))
}

func (n chromeNavigator) clickLinkText(ctx context.Context, hrefContains, text string) error {
	xpath := fmt.Sprintf("//a[contains(@href, %s) and text()=%s]", xpathLiteral(hrefContains), xpathLiteral(text))
	return n.s.run(ctx, n.s.pageTimeout(), chromedp.Click(xpath, chromedp.BySearch, chromedp.NodeVisible))
}

func (n chromeNavigator) open(ctx context.Context, target string) error {
	return n.s.run(ctx, n.s.pageTimeout(), chromedp.Navigate(target))
}

func (n chromeNavigator) currentURL(ctx context.Context) (string, error) {
	var location string
	err := n.s.run(ctx, n.s.pageTimeout(), chromedp.Location(&location))
	return location, err
}

// xpathLiteral quotes s for use inside an XPath 1.0 expression.
func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	return "concat('" + strings.Join(parts, `', "'", '`) + "')"
}
