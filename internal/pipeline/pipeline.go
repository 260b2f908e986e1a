// Package pipeline orders the stages of a run: navigation, extraction,
// image download, translation and word analysis.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"elpais-crawler/internal/analysis"
	"elpais-crawler/internal/config"
	"elpais-crawler/pkg/types"
)

// ErrNoArticles is returned when a run extracted nothing.
var ErrNoArticles = errors.New("no articles extracted")

// Session is the browser session the pipeline drives. Release must be
// called exactly once.
type Session interface {
	LoadHomepage(ctx context.Context) error
	NavigateToOpinionSection(ctx context.Context) (string, error)
	Document(ctx context.Context) (types.Page, error)
	Release(ctx context.Context, status types.SessionStatus) error
}

// Extractor reads articles from a page.
type Extractor interface {
	Extract(ctx context.Context, page types.Page, limit int) ([]types.Article, error)
}

// Translator translates a headline; it never fails.
type Translator interface {
	Resolve(ctx context.Context, text, target string) types.Translation
}

// ImageDownloader stores the images of the given articles.
type ImageDownloader interface {
	DownloadAll(ctx context.Context, articles []types.Article) []types.ImageOutcome
}

// Deps are the collaborators of a Pipeline.
type Deps struct {
	Session    Session
	Extractor  Extractor
	Translator Translator
	Images     ImageDownloader
	Analyzer   analysis.Analyzer
	Reporter   *Reporter
	Logger     *slog.Logger
}

// Options tune a run.
type Options struct {
	RunID  string
	Limit  int
	Target string
}

// Pipeline runs one scrape-translate-analyse pass.
type Pipeline struct {
	deps Deps
	opts Options
}

// New validates the dependencies and constructs a Pipeline.
func New(deps Deps, opts Options) (*Pipeline, error) {
	switch {
	case deps.Session == nil:
		return nil, errors.New("pipeline: session is required")
	case deps.Extractor == nil:
		return nil, errors.New("pipeline: extractor is required")
	case deps.Translator == nil:
		return nil, errors.New("pipeline: translator is required")
	case deps.Images == nil:
		return nil, errors.New("pipeline: image downloader is required")
	case deps.Reporter == nil:
		return nil, errors.New("pipeline: reporter is required")
	}
	if opts.Limit <= 0 {
		return nil, fmt.Errorf("pipeline: limit must be positive (got %d)", opts.Limit)
	}
	if strings.TrimSpace(opts.Target) == "" {
		return nil, errors.New("pipeline: target language is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	deps.Logger = deps.Logger.With("run_id", opts.RunID)
	return &Pipeline{deps: deps, opts: opts}, nil
}

// Run executes the stages in order. The session is released as soon as the
// articles are extracted, and on every failure path before that.
func (p *Pipeline) Run(ctx context.Context) (*types.Report, error) {
	logger := p.deps.Logger
	report := &types.Report{
		RunID:        p.opts.RunID,
		StartedAt:    time.Now(),
		Translations: types.NewTranslations(),
	}

	released := false
	release := func(status types.SessionStatus) {
		if released {
			return
		}
		released = true
		if err := p.deps.Session.Release(context.WithoutCancel(ctx), status); err != nil {
			logger.Warn("session release reported an error", "error", err)
		}
	}
	defer release(types.SessionStatus{Reason: "run aborted"})

	articles, err := p.scrape(ctx, report)
	if err != nil {
		release(types.SessionStatus{Reason: err.Error()})
		report.FinishedAt = time.Now()
		return report, err
	}
	if len(articles) == 0 {
		release(types.SessionStatus{Reason: "no articles extracted"})
	} else {
		release(types.SessionStatus{Passed: true, Reason: fmt.Sprintf("extracted %d articles", len(articles))})
	}
	report.Articles = articles
	p.deps.Reporter.Articles(articles)

	report.Images = p.deps.Images.DownloadAll(ctx, articles)
	p.deps.Reporter.Images(report.Images)

	for i, a := range articles {
		tr := p.deps.Translator.Resolve(ctx, a.Title, p.opts.Target)
		if err := report.Translations.Assign(i, tr); err != nil {
			return report, err
		}
	}
	p.deps.Reporter.Translations(articles, report.Translations)

	report.WordCounts = p.deps.Analyzer.Count(report.TranslatedTitles())
	report.RepeatedWords = p.deps.Analyzer.Repeated(report.WordCounts)
	p.deps.Reporter.RepeatedWords(report.RepeatedWords, p.deps.Analyzer.MinOccurrences())

	report.FinishedAt = time.Now()
	p.deps.Reporter.Summary(report)
	logger.Info("run finished",
		"articles", len(articles),
		"repeated_words", len(report.RepeatedWords),
		"duration", report.FinishedAt.Sub(report.StartedAt),
	)

	if len(articles) == 0 {
		return report, ErrNoArticles
	}
	return report, nil
}

// scrape drives the session up to extraction.
func (p *Pipeline) scrape(ctx context.Context, report *types.Report) ([]types.Article, error) {
	logger := p.deps.Logger
	session := p.deps.Session

	if err := session.LoadHomepage(ctx); err != nil {
		return nil, fmt.Errorf("load homepage: %w", err)
	}

	strategy, err := session.NavigateToOpinionSection(ctx)
	if err != nil {
		logger.Warn("could not reach the opinion section, extracting from the current page", "error", err)
	}
	report.NavigationStrategy = strategy

	page, err := session.Document(ctx)
	if err != nil {
		return nil, fmt.Errorf("capture document: %w", err)
	}
	report.PageURL = page.URL()

	articles, err := p.deps.Extractor.Extract(ctx, page, p.opts.Limit)
	if err != nil {
		return nil, fmt.Errorf("extract articles: %w", err)
	}
	return articles, nil
}

// BuildLogger returns a logger writing to stderr at the configured level.
func BuildLogger(cfg config.LoggingConfig) (*slog.Logger, error) {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info", "":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, fmt.Errorf("unsupported log level %q", cfg.Level)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Structured {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler), nil
}
