// Synkuru - AniList Watch-List Sync and Catalog Engine for Stremio
// Copyright 2026 Ju1-js
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ju1-js/synkuru

/*
transport.go - Rate-Limited AniList Transport

Outbound executor for all AniList API calls. Enforces, in order:
  - At most MaxConcurrent in-flight requests (buffered-channel semaphore)
  - A quota of WindowLimit calls per Window, refilled in one burst at the
    window boundary
  - A minimum spacing between dispatches (golang.org/x/time/rate)

On HTTP 429 the transport enters a global cool-down honoring Retry-After:
every queued and future call waits until the cool-down elapses, and the
triggering call is retried up to MaxAttempts times before failing with
ErrRateLimited. A new 429 during an active cool-down extends it; cool-downs
never stack. Any other failure surfaces immediately without retry.
*/

package anilist

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ju1-js/synkuru/internal/logging"
	"github.com/ju1-js/synkuru/internal/metrics"
)

// TransportConfig tunes the rate-limited transport.
type TransportConfig struct {
	MaxConcurrent int           // in-flight request cap
	WindowLimit   int           // calls allowed per Window
	Window        time.Duration // quota window, refilled in one burst
	MinSpacing    time.Duration // minimum gap between dispatches
	MaxAttempts   int           // attempts for a 429-rejected call
	Timeout       time.Duration // per-request HTTP timeout
}

// DefaultTransportConfig returns the limits AniList documents for
// authenticated clients, with headroom.
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		MaxConcurrent: 5,
		WindowLimit:   30,
		Window:        time.Minute,
		MinSpacing:    100 * time.Millisecond,
		MaxAttempts:   3,
		Timeout:       30 * time.Second,
	}
}

// Transport executes HTTP requests under concurrency, quota, spacing, and
// cool-down constraints. One instance is shared process-wide; its counters
// and the cool-down deadline are the shared state all callers observe.
type Transport struct {
	cfg        TransportConfig
	httpClient *http.Client
	spacing    *rate.Limiter
	sem        chan struct{}

	mu            sync.Mutex
	windowStart   time.Time
	windowUsed    int
	coolDownUntil time.Time
}

// NewTransport creates a transport with the given limits. Zero-value fields
// fall back to DefaultTransportConfig.
func NewTransport(cfg TransportConfig) *Transport {
	def := DefaultTransportConfig()
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = def.MaxConcurrent
	}
	if cfg.WindowLimit <= 0 {
		cfg.WindowLimit = def.WindowLimit
	}
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.MinSpacing <= 0 {
		cfg.MinSpacing = def.MinSpacing
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}

	return &Transport{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		spacing:    rate.NewLimiter(rate.Every(cfg.MinSpacing), 1),
		sem:        make(chan struct{}, cfg.MaxConcurrent),
	}
}

// Execute dispatches req under the transport's constraints.
//
// The caller owns the response body on success. Rate-limit rejections are
// retried after the shared cool-down; all other errors return immediately.
func (t *Transport) Execute(ctx context.Context, req *http.Request) (*http.Response, error) {
	select {
	case t.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	metrics.TransportInFlight.Inc()
	defer func() {
		<-t.sem
		metrics.TransportInFlight.Dec()
	}()

	for attempt := 1; attempt <= t.cfg.MaxAttempts; attempt++ {
		if err := t.waitCoolDown(ctx); err != nil {
			return nil, err
		}
		if err := t.reserveWindowSlot(ctx); err != nil {
			return nil, err
		}
		if err := t.spacing.Wait(ctx); err != nil {
			return nil, err
		}

		// Rewind the body on retries; requests built from a byte reader
		// carry GetBody.
		if attempt > 1 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("rewind request body: %w", err)
			}
			req.Body = body
		}

		resp, err := t.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("execute request: %w", err)
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		retryAfter := parseRetryAfter(resp.Header)
		_ = resp.Body.Close()
		t.startCoolDown(retryAfter)

		logging.Warn().
			Int("attempt", attempt).
			Dur("retry_after", retryAfter).
			Msg("AniList rate limit hit, entering cool-down")
		if attempt < t.cfg.MaxAttempts {
			metrics.TransportRetries.Inc()
		}
	}

	return nil, ErrRateLimited
}

// waitCoolDown blocks until no cool-down is active. Re-checks the deadline
// after waking so an extension issued meanwhile is honored.
func (t *Transport) waitCoolDown(ctx context.Context) error {
	for {
		t.mu.Lock()
		until := t.coolDownUntil
		t.mu.Unlock()

		wait := time.Until(until)
		if wait <= 0 {
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// reserveWindowSlot takes one call from the current quota window, sleeping
// until the next window boundary when the quota is spent.
func (t *Transport) reserveWindowSlot(ctx context.Context) error {
	for {
		t.mu.Lock()
		now := time.Now()
		if t.windowStart.IsZero() || now.Sub(t.windowStart) >= t.cfg.Window {
			t.windowStart = now
			t.windowUsed = 0
		}
		if t.windowUsed < t.cfg.WindowLimit {
			t.windowUsed++
			t.mu.Unlock()
			return nil
		}
		wait := t.cfg.Window - now.Sub(t.windowStart)
		t.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// startCoolDown opens or extends the shared cool-down. The deadline only
// ever moves forward, so overlapping 429s extend rather than stack.
func (t *Transport) startCoolDown(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	until := time.Now().Add(d)
	if until.After(t.coolDownUntil) {
		t.coolDownUntil = until
	}
	metrics.TransportCoolDowns.Inc()
}

// coolDownDeadline exposes the current deadline for tests.
func (t *Transport) coolDownDeadline() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.coolDownUntil
}

// parseRetryAfter reads the Retry-After header in either of its RFC 7231
// forms, delta-seconds or HTTP-date, falling back to one second when absent
// or malformed. A date in the past means the cool-down already elapsed.
func parseRetryAfter(h http.Header) time.Duration {
	const fallback = time.Second

	v := h.Get("Retry-After")
	if v == "" {
		return fallback
	}
	if seconds, err := strconv.Atoi(v); err == nil {
		if seconds < 0 {
			return fallback
		}
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
		return 0
	}
	return fallback
}
