// Package extractor turns the article containers of a loaded page into
// Article records.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"elpais-crawler/internal/config"
	"elpais-crawler/pkg/types"
)

// ErrElementsNotFound is returned when no article container appears within the wait.
var ErrElementsNotFound = errors.New("no article containers found")

const dataURIPrefix = "data:"

// Locators names the selectors used to read an article container.
type Locators struct {
	Container   string
	Title       string
	Content     string
	Image       string
	LazyImage   string
	Placeholder string
	Wait        time.Duration
}

// LocatorsFromConfig maps the extraction section of the configuration.
func LocatorsFromConfig(cfg config.ExtractionConfig) Locators {
	return Locators{
		Container:   cfg.ContainerSelector,
		Title:       cfg.TitleSelector,
		Content:     cfg.ContentSelector,
		Image:       cfg.ImageSelector,
		LazyImage:   cfg.LazyImageAttribute,
		Placeholder: cfg.ContentPlaceholder,
		Wait:        cfg.Wait.Duration,
	}
}

// Extractor reads articles from a page. It holds no state beyond its locators.
type Extractor struct {
	loc    Locators
	logger *slog.Logger
}

// New constructs an Extractor.
func New(loc Locators, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{loc: loc, logger: logger}
}

// outcome is the accept-or-skip result of reading one container.
type outcome struct {
	article types.Article
	skip    error
}

// Extract returns at most limit articles in document order. Containers
// without a title are dropped and do not count toward the limit.
func (e *Extractor) Extract(ctx context.Context, page types.Page, limit int) ([]types.Article, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive (got %d)", limit)
	}
	if page == nil {
		return nil, errors.New("nil page")
	}

	containers, err := page.QueryAll(ctx, e.loc.Container, e.loc.Wait)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", e.loc.Container, err)
	}
	if len(containers) == 0 {
		return nil, fmt.Errorf("%w: %q on %s", ErrElementsNotFound, e.loc.Container, page.URL())
	}

	base, _ := url.Parse(page.URL())
	articles := make([]types.Article, 0, limit)
	for idx, container := range containers {
		if len(articles) >= limit {
			break
		}
		if err := ctx.Err(); err != nil {
			return articles, err
		}
		res := e.readContainer(ctx, container, base)
		if res.skip != nil {
			e.logger.Debug("container skipped", "container", idx, "reason", res.skip)
			continue
		}
		articles = append(articles, res.article)
	}

	e.logger.Info("articles extracted", "containers", len(containers), "articles", len(articles), "limit", limit)
	return articles, nil
}

func (e *Extractor) readContainer(ctx context.Context, container types.Element, base *url.URL) outcome {
	if err := container.ScrollIntoView(ctx); err != nil {
		e.logger.Warn("scroll into view failed", "error", err)
		return outcome{skip: fmt.Errorf("scroll: %w", err)}
	}

	title, err := e.text(ctx, container, e.loc.Title)
	if err != nil {
		return outcome{skip: fmt.Errorf("title: %w", err)}
	}

	content, err := e.text(ctx, container, e.loc.Content)
	if err != nil {
		content = e.loc.Placeholder
	}

	return outcome{article: types.Article{
		Title:    title,
		Content:  content,
		ImageURL: e.imageURL(ctx, container, base),
	}}
}

func (e *Extractor) text(ctx context.Context, container types.Element, selector string) (string, error) {
	el, err := container.Find(ctx, selector)
	if err != nil {
		return "", err
	}
	return el.Text(ctx)
}

// imageURL reads the first image of the container. Inline data URIs are
// placeholders for lazy-loaded images, so the lazy attribute wins when set.
func (e *Extractor) imageURL(ctx context.Context, container types.Element, base *url.URL) string {
	if e.loc.Image == "" {
		return ""
	}
	imgs, err := container.FindAll(ctx, e.loc.Image)
	if err != nil || len(imgs) == 0 {
		return ""
	}
	img := imgs[0]
	src, ok, err := img.Attr(ctx, "src")
	if err != nil || !ok {
		return ""
	}
	if strings.HasPrefix(src, dataURIPrefix) && e.loc.LazyImage != "" {
		if lazy, ok, err := img.Attr(ctx, e.loc.LazyImage); err == nil && ok {
			src = lazy
		}
	}
	return resolve(base, strings.TrimSpace(src))
}

func resolve(base *url.URL, ref string) string {
	if ref == "" || base == nil || strings.HasPrefix(ref, dataURIPrefix) {
		return ref
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(parsed).String()
}
