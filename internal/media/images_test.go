package media

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"elpais-crawler/internal/config"
	"elpais-crawler/pkg/types"
)

func newTestFetcher(t *testing.T, dir string) *Fetcher {
	t.Helper()
	store, err := NewStore(dir)
	require.NoError(t, err)
	return NewFetcher(http.DefaultClient, store, nil, 1<<20, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestDownloadAllWritesNumberedFiles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/one.jpg":
			_, _ = w.Write([]byte("first"))
		case "/three.jpg":
			_, _ = w.Write([]byte("third"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	dir := filepath.Join(t.TempDir(), "images")
	articles := []types.Article{
		{Title: "a", ImageURL: srv.URL + "/one.jpg"},
		{Title: "b"},
		{Title: "c", ImageURL: srv.URL + "/three.jpg"},
		{Title: "d", ImageURL: srv.URL + "/missing.jpg"},
	}

	outcomes := newTestFetcher(t, dir).DownloadAll(context.Background(), articles)
	require.Len(t, outcomes, 4)

	assert.Equal(t, types.ImageSaved, outcomes[0].Status)
	assert.Equal(t, filepath.Join(dir, "article_1.jpg"), outcomes[0].Path)
	assert.Equal(t, types.ImageSkipped, outcomes[1].Status)
	assert.Equal(t, types.ImageSaved, outcomes[2].Status)
	assert.Equal(t, types.ImageFailed, outcomes[3].Status)
	assert.Error(t, outcomes[3].Err)

	data, err := os.ReadFile(filepath.Join(dir, "article_1.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))
	data, err = os.ReadFile(filepath.Join(dir, "article_3.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "third", string(data))

	_, err = os.Stat(filepath.Join(dir, "article_2.jpg"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "article_4.jpg"))
	assert.True(t, os.IsNotExist(err))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestDownloadAllOverwritesExistingFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("fresh"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "article_1.jpg"), []byte("stale and longer"), 0o644))

	outcomes := newTestFetcher(t, dir).DownloadAll(context.Background(), []types.Article{{Title: "a", ImageURL: srv.URL}})
	require.Len(t, outcomes, 1)
	assert.Equal(t, types.ImageSaved, outcomes[0].Status)

	data, err := os.ReadFile(filepath.Join(dir, "article_1.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "fresh", string(data))
}

func TestDownloadAllEmptyInputWritesNothing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "images")
	fetcher := newTestFetcher(t, dir)

	assert.Empty(t, fetcher.DownloadAll(context.Background(), nil))
	_, err := os.Stat(dir)
	assert.True(t, os.IsNotExist(err), "directory must not be created for empty input")

	outcomes := fetcher.DownloadAll(context.Background(), []types.Article{{Title: "sin imagen"}})
	require.Len(t, outcomes, 1)
	assert.Equal(t, types.ImageSkipped, outcomes[0].Status)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDownloadAllRejectsDataURI(t *testing.T) {
	outcomes := newTestFetcher(t, t.TempDir()).DownloadAll(context.Background(), []types.Article{
		{Title: "a", ImageURL: "data:image/png;base64,AAAA"},
	})
	require.Len(t, outcomes, 1)
	assert.Equal(t, types.ImageFailed, outcomes[0].Status)
}

func TestFetcherFromConfigAppliesReadTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(500 * time.Millisecond):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	cfg := config.Default().Images
	cfg.Directory = t.TempDir()
	cfg.ReadTimeout = config.DurationFrom(50 * time.Millisecond)
	fetcher, err := FetcherFromConfig(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	start := time.Now()
	outcomes := fetcher.DownloadAll(context.Background(), []types.Article{{Title: "lenta", ImageURL: srv.URL}})
	require.Len(t, outcomes, 1)
	assert.Equal(t, types.ImageFailed, outcomes[0].Status)
	assert.Less(t, time.Since(start), 400*time.Millisecond)
}

func TestFetcherFromConfigAppliesRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("img"))
	}))
	defer srv.Close()

	cfg := config.Default().Images
	cfg.Directory = t.TempDir()
	cfg.RateLimit = config.RateLimitConfig{Requests: 1, Window: config.DurationFrom(120 * time.Millisecond)}
	fetcher, err := FetcherFromConfig(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	require.True(t, fetcher.limiter.Active())

	articles := []types.Article{
		{Title: "a", ImageURL: srv.URL + "/a.jpg"},
		{Title: "b", ImageURL: srv.URL + "/b.jpg"},
		{Title: "c", ImageURL: srv.URL + "/c.jpg"},
	}
	start := time.Now()
	outcomes := fetcher.DownloadAll(context.Background(), articles)
	require.Len(t, outcomes, 3)
	for _, o := range outcomes {
		assert.Equal(t, types.ImageSaved, o.Status)
	}
	assert.GreaterOrEqual(t, time.Since(start), 200*time.Millisecond, "three requests at one per 120ms")
}

func TestFetcherFromConfigUnlimitedByDefault(t *testing.T) {
	cfg := config.Default().Images
	cfg.Directory = t.TempDir()
	fetcher, err := FetcherFromConfig(cfg, nil)
	require.NoError(t, err)
	assert.False(t, fetcher.limiter.Active())
}

func TestStoreRejectsPathNames(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Ensure())

	_, err = store.Save(context.Background(), "../escape.jpg", []byte("x"))
	assert.Error(t, err)
	_, err = store.Save(context.Background(), "", []byte("x"))
	assert.Error(t, err)

	_, err = NewStore(" ")
	assert.Error(t, err)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "article_1.jpg", FileName(1))
	assert.Equal(t, "article_12.jpg", FileName(12))
}
