package httpx

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"elpais-crawler/internal/config"
)

// RateLimit allows Requests per Window to one host. A zero value disables it.
type RateLimit struct {
	Requests int
	Window   time.Duration
}

func (r RateLimit) enabled() bool {
	return r.Requests > 0 && r.Window > 0
}

// bucket builds the token bucket for one host: Requests tokens refilled
// evenly over Window.
func (r RateLimit) bucket() *rate.Limiter {
	every := r.Window / time.Duration(r.Requests)
	if every <= 0 {
		every = time.Millisecond
	}
	return rate.NewLimiter(rate.Every(every), r.Requests)
}

// hostSlot is the pacing state of one host.
type hostSlot struct {
	next   time.Time
	bucket *rate.Limiter
}

// Limiter spaces requests to the same host by a fixed gap and, when
// configured, a per-host token bucket. A nil Limiter never waits.
type Limiter struct {
	gap   time.Duration
	limit RateLimit

	mu    sync.Mutex
	hosts map[string]*hostSlot
}

// NewLimiter returns a Limiter enforcing gap between requests to a host and
// the optional limit.
func NewLimiter(gap time.Duration, limit RateLimit) *Limiter {
	if gap < 0 {
		gap = 0
	}
	if !limit.enabled() {
		limit = RateLimit{}
	}
	return &Limiter{gap: gap, limit: limit, hosts: make(map[string]*hostSlot)}
}

// Active reports whether the limiter ever delays a request.
func (l *Limiter) Active() bool {
	return l != nil && (l.gap > 0 || l.limit.enabled())
}

// LimiterFromConfig builds the Limiter of a stage from its request_delay
// and rate_limit settings.
func LimiterFromConfig(delay config.Duration, limit config.RateLimitConfig) *Limiter {
	return NewLimiter(delay.Duration, RateLimit{Requests: limit.Requests, Window: limit.Window.Duration})
}

// WaitURL waits for the host of rawURL. Unparseable URLs are not delayed.
func (l *Limiter) WaitURL(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}
	return l.Wait(ctx, u.Hostname())
}

// Wait reserves the next slot for host and blocks until it opens.
func (l *Limiter) Wait(ctx context.Context, host string) error {
	if !l.Active() || host == "" {
		return nil
	}
	start, bucket := l.reserve(strings.ToLower(host))

	if d := time.Until(start); d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if bucket != nil {
		return bucket.Wait(ctx)
	}
	return nil
}

// reserve books the next slot for host and returns when it opens.
func (l *Limiter) reserve(host string) (time.Time, *rate.Limiter) {
	l.mu.Lock()
	defer l.mu.Unlock()

	slot, ok := l.hosts[host]
	if !ok {
		slot = &hostSlot{}
		if l.limit.enabled() {
			slot.bucket = l.limit.bucket()
		}
		l.hosts[host] = slot
	}
	start := time.Now()
	if slot.next.After(start) {
		start = slot.next
	}
	if l.gap > 0 {
		slot.next = start.Add(l.gap)
	}
	return start, slot.bucket
}
