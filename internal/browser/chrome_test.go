package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"elpais-crawler/internal/config"
	"elpais-crawler/pkg/types"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLaunchFlags(t *testing.T) {
	cfg := config.Default().Browser
	flags := make(map[string]any)
	for _, f := range launchFlags(cfg) {
		flags[f.name] = f.value
	}
	assert.Equal(t, true, flags["headless"])
	assert.Equal(t, true, flags["no-sandbox"])
	assert.Equal(t, true, flags["disable-dev-shm-usage"])
	assert.Equal(t, true, flags["start-maximized"])

	cfg.Headless = false
	for _, f := range launchFlags(cfg) {
		if f.name == "headless" {
			assert.Equal(t, false, f.value)
		}
	}

	s := &ChromeSession{cfg: config.Default().Browser}
	assert.Greater(t, len(s.execOptions()), len(launchFlags(s.cfg)), "defaults, window size and user agent are added")
}

func TestWaitExpired(t *testing.T) {
	ctx := context.Background()
	assert.True(t, waitExpired(ctx, context.DeadlineExceeded))
	assert.True(t, waitExpired(ctx, fmt.Errorf("nodes: %w", context.DeadlineExceeded)))
	assert.False(t, waitExpired(ctx, errors.New("invalid selector")))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.False(t, waitExpired(cancelled, context.DeadlineExceeded), "a cancelled caller is not an empty page")
}

func TestAcceptCookies(t *testing.T) {
	site := config.Default().Site
	var gotSelector string
	var gotWait time.Duration
	click := func(_ context.Context, selector string, wait time.Duration) error {
		gotSelector, gotWait = selector, wait
		return nil
	}

	assert.True(t, acceptCookies(context.Background(), site, click, discard()))
	assert.Equal(t, "#didomi-notice-agree-button", gotSelector)
	assert.Equal(t, 5*time.Second, gotWait)

	missing := func(context.Context, string, time.Duration) error { return context.DeadlineExceeded }
	assert.False(t, acceptCookies(context.Background(), site, missing, discard()))

	site.CookieSelector = ""
	called := false
	assert.False(t, acceptCookies(context.Background(), site, func(context.Context, string, time.Duration) error {
		called = true
		return nil
	}, discard()))
	assert.False(t, called)
}

type recordingCloser struct {
	steps     []string
	statusErr error
	status    types.SessionStatus
}

func (r *recordingCloser) reportStatus(_ context.Context, status types.SessionStatus) error {
	r.steps = append(r.steps, "status")
	r.status = status
	return r.statusErr
}

func (r *recordingCloser) shutdown() { r.steps = append(r.steps, "shutdown") }

func TestReleaseSessionOrder(t *testing.T) {
	status := types.SessionStatus{Passed: true, Reason: "extracted 5 articles"}

	remote := &recordingCloser{}
	require.NoError(t, releaseSession(context.Background(), remote, true, status, discard()))
	assert.Equal(t, []string{"status", "shutdown"}, remote.steps)
	assert.Equal(t, status, remote.status)

	local := &recordingCloser{}
	require.NoError(t, releaseSession(context.Background(), local, false, status, discard()))
	assert.Equal(t, []string{"shutdown"}, local.steps)

	failing := &recordingCloser{statusErr: errors.New("grid unreachable")}
	err := releaseSession(context.Background(), failing, true, status, discard())
	assert.Error(t, err)
	assert.Equal(t, []string{"status", "shutdown"}, failing.steps, "the browser is shut down even if reporting fails")
}
