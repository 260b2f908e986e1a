package media

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"elpais-crawler/internal/config"
	"elpais-crawler/internal/httpx"
	"elpais-crawler/pkg/types"
)

// FileName returns the file name used for the image of the article at the
// given 1-based position.
func FileName(position int) string {
	return fmt.Sprintf("article_%d.jpg", position)
}

// Fetcher downloads the image of each article into a Store.
type Fetcher struct {
	client   *http.Client
	store    *Store
	limiter  *httpx.Limiter
	maxBytes int64
	logger   *slog.Logger
}

// NewFetcher constructs a Fetcher. A nil limiter disables pacing.
func NewFetcher(client *http.Client, store *Store, limiter *httpx.Limiter, maxBytes int64, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{client: client, store: store, limiter: limiter, maxBytes: maxBytes, logger: logger}
}

// FetcherFromConfig builds a Fetcher with bounded connect and read timeouts.
func FetcherFromConfig(cfg config.ImagesConfig, logger *slog.Logger) (*Fetcher, error) {
	client, err := httpx.NewClient(httpx.Options{
		ConnectTimeout: cfg.ConnectTimeout.Duration,
		ReadTimeout:    cfg.ReadTimeout.Duration,
	})
	if err != nil {
		return nil, err
	}
	store, err := NewStore(cfg.Directory)
	if err != nil {
		return nil, err
	}
	limiter := httpx.LimiterFromConfig(cfg.RequestDelay, cfg.RateLimit)
	return NewFetcher(client, store, limiter, cfg.MaxSizeBytes, logger), nil
}

// DownloadAll fetches every article image. A failed download is recorded in
// its outcome and never stops the loop. Articles without an image are
// reported as skipped.
func (f *Fetcher) DownloadAll(ctx context.Context, articles []types.Article) []types.ImageOutcome {
	if len(articles) == 0 {
		return nil
	}
	if err := f.store.Ensure(); err != nil {
		f.logger.Error("image directory unavailable", "dir", f.store.Dir(), "error", err)
		outcomes := make([]types.ImageOutcome, 0, len(articles))
		for i, a := range articles {
			outcomes = append(outcomes, types.ImageOutcome{Index: i, URL: a.ImageURL, Status: types.ImageFailed, Err: err})
		}
		return outcomes
	}

	outcomes := make([]types.ImageOutcome, 0, len(articles))
	for i, article := range articles {
		outcome := types.ImageOutcome{Index: i, URL: article.ImageURL, Status: types.ImageSkipped}
		if !article.HasImage() {
			outcomes = append(outcomes, outcome)
			continue
		}
		path, err := f.download(ctx, i+1, article.ImageURL)
		if err != nil {
			f.logger.Warn("image download failed", "article", i+1, "url", article.ImageURL, "error", err)
			outcome.Status = types.ImageFailed
			outcome.Err = err
		} else {
			f.logger.Info("image downloaded", "article", i+1, "path", path)
			outcome.Status = types.ImageSaved
			outcome.Path = path
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

func (f *Fetcher) download(ctx context.Context, position int, imageURL string) (string, error) {
	if strings.HasPrefix(imageURL, "data:") {
		return "", fmt.Errorf("inline data URI is not downloadable")
	}
	if err := f.limiter.WaitURL(ctx, imageURL); err != nil {
		return "", err
	}
	body, _, err := httpx.Get(ctx, f.client, imageURL, nil, f.maxBytes)
	if err != nil {
		return "", err
	}
	return f.store.Save(ctx, FileName(position), body)
}
