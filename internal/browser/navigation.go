// Package browser provides the sessions that load the news homepage and
// reach the opinion section: a chromedp session (local or remote grid) and a
// plain HTTP session for pages that render without JavaScript.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"elpais-crawler/internal/config"
	"elpais-crawler/internal/fallback"
)

// Navigation strategies, in the order they are attempted.
const (
	StrategyNavSelector = "nav-selector"
	StrategyLinkText    = "link-text"
	StrategyDirectURL   = "direct-url"
)

// ErrNotLoaded is returned when a document is requested before any page loaded.
var ErrNotLoaded = errors.New("no page loaded")

// ErrReleased is returned when a released session is used.
var ErrReleased = errors.New("session released")

const urlPollInterval = 100 * time.Millisecond

// navigator is the set of page interactions the opinion navigation chain needs.
type navigator interface {
	clickSelector(ctx context.Context, selector string) error
	clickLinkText(ctx context.Context, hrefContains, text string) error
	open(ctx context.Context, target string) error
	currentURL(ctx context.Context) (string, error)
}

// navigateToOpinion runs the ordered strategies and returns the name of the
// one that reached the section.
func navigateToOpinion(ctx context.Context, nav navigator, site config.SiteConfig, logger *slog.Logger) (string, error) {
	wait := site.NavigationWait.Duration
	attempts := []fallback.Attempt[struct{}]{
		{
			Name: StrategyNavSelector,
			Run: func(ctx context.Context) (struct{}, error) {
				return struct{}{}, clickAndWait(ctx, nav, wait, site.OpinionPath, func(ctx context.Context) error {
					return nav.clickSelector(ctx, site.NavSelector)
				})
			},
		},
		{
			Name: StrategyLinkText,
			Run: func(ctx context.Context) (struct{}, error) {
				return struct{}{}, clickAndWait(ctx, nav, wait, site.OpinionPath, func(ctx context.Context) error {
					return nav.clickLinkText(ctx, site.OpinionPath, site.OpinionLinkText)
				})
			},
		},
		{
			Name: StrategyDirectURL,
			Run: func(ctx context.Context) (struct{}, error) {
				return struct{}{}, nav.open(ctx, site.OpinionURL)
			},
		},
	}

	out, err := fallback.Run(ctx, logger, attempts...)
	if err != nil {
		logger.Error("opinion navigation exhausted", "error", err)
		return "", err
	}
	for _, f := range out.Failures {
		logger.Info("navigation strategy failed", "strategy", f.Strategy, "error", f.Err)
	}
	logger.Info("reached opinion section", "strategy", out.Strategy)
	return out.Strategy, nil
}

func clickAndWait(ctx context.Context, nav navigator, wait time.Duration, fragment string, click func(context.Context) error) error {
	if wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, wait)
		defer cancel()
	}
	if err := click(ctx); err != nil {
		return fmt.Errorf("click: %w", err)
	}
	return waitForURL(ctx, nav, fragment)
}

// waitForURL polls the current location until it contains fragment.
func waitForURL(ctx context.Context, nav navigator, fragment string) error {
	ticker := time.NewTicker(urlPollInterval)
	defer ticker.Stop()
	for {
		current, err := nav.currentURL(ctx)
		if err == nil && strings.Contains(current, fragment) {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("url never contained %q (last %q): %w", fragment, current, ctx.Err())
		case <-ticker.C:
		}
	}
}
