// Synkuru - AniList Watch-List Sync and Catalog Engine for Stremio
// Copyright 2026 Ju1-js
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ju1-js/synkuru

package anilist

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// fastTransportConfig keeps test latency negligible while exercising the
// same code paths as the production limits.
func fastTransportConfig() TransportConfig {
	return TransportConfig{
		MaxConcurrent: 5,
		WindowLimit:   1000,
		Window:        time.Second,
		MinSpacing:    time.Millisecond,
		MaxAttempts:   3,
		Timeout:       5 * time.Second,
	}
}

func newGetRequest(t *testing.T, url string) *http.Request {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, http.NoBody)
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	return req
}

func TestExecuteRetriesAfterRateLimit(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tr := NewTransport(fastTransportConfig())
	resp, err := tr.Execute(context.Background(), newGetRequest(t, srv.URL))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("upstream calls = %d, want 3", got)
	}
}

func TestExecuteFailsAfterMaxAttempts(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	tr := NewTransport(fastTransportConfig())
	_, err := tr.Execute(context.Background(), newGetRequest(t, srv.URL))
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("Execute() error = %v, want ErrRateLimited", err)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("upstream calls = %d, want 3 (MaxAttempts)", got)
	}
}

// A 429 from one call must gate every subsequent call until the cool-down
// deadline passes.
func TestCoolDownGatesSubsequentCalls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tr := NewTransport(fastTransportConfig())
	tr.startCoolDown(120 * time.Millisecond)

	start := time.Now()
	resp, err := tr.Execute(context.Background(), newGetRequest(t, srv.URL))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	_ = resp.Body.Close()

	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Errorf("call dispatched after %s, want it held for the cool-down", elapsed)
	}
}

// Overlapping 429s extend the shared deadline; they never stack and never
// move it backwards.
func TestCoolDownExtendsNotStacks(t *testing.T) {
	tr := NewTransport(fastTransportConfig())

	tr.startCoolDown(200 * time.Millisecond)
	first := tr.coolDownDeadline()

	tr.startCoolDown(10 * time.Millisecond)
	if got := tr.coolDownDeadline(); !got.Equal(first) {
		t.Errorf("shorter cool-down moved the deadline: %v -> %v", first, got)
	}

	tr.startCoolDown(500 * time.Millisecond)
	if got := tr.coolDownDeadline(); !got.After(first) {
		t.Errorf("longer cool-down did not extend the deadline: %v -> %v", first, got)
	}
}

func TestWindowLimitDelaysOverflow(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := fastTransportConfig()
	cfg.WindowLimit = 2
	cfg.Window = 150 * time.Millisecond
	tr := NewTransport(cfg)

	start := time.Now()
	for i := 0; i < 3; i++ {
		resp, err := tr.Execute(context.Background(), newGetRequest(t, srv.URL))
		if err != nil {
			t.Fatalf("Execute() call %d error = %v", i, err)
		}
		_ = resp.Body.Close()
	}

	// The third call exceeds the window quota and must wait for the next
	// window boundary.
	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Errorf("three calls finished in %s, want the third held to the window boundary", elapsed)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("upstream calls = %d, want 3", got)
	}
}

// Non-429 failures surface to the caller untouched; the transport only
// retries rate-limit rejections.
func TestExecuteSurfacesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	tr := NewTransport(fastTransportConfig())
	resp, err := tr.Execute(context.Background(), newGetRequest(t, srv.URL))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	_ = resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("upstream calls = %d, want 1 (no retry)", got)
	}
}

func TestExecuteHonorsContextDuringCoolDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tr := NewTransport(fastTransportConfig())
	tr.startCoolDown(5 * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, http.NoBody)
	_, err := tr.Execute(ctx, req)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Execute() error = %v, want context.DeadlineExceeded", err)
	}
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{"seconds", "7", 7 * time.Second},
		{"zero", "0", 0},
		{"absent", "", time.Second},
		{"malformed", "soon", time.Second},
		{"negative", "-3", time.Second},
		{"past http date", time.Now().Add(-time.Minute).UTC().Format(http.TimeFormat), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			if tt.value != "" {
				h.Set("Retry-After", tt.value)
			}
			if got := parseRetryAfter(h); got != tt.want {
				t.Errorf("parseRetryAfter(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

// The HTTP-date form yields the remaining wait until the named instant.
func TestParseRetryAfterHTTPDate(t *testing.T) {
	h := http.Header{}
	h.Set("Retry-After", time.Now().Add(30*time.Second).UTC().Format(http.TimeFormat))

	got := parseRetryAfter(h)
	if got <= 0 || got > 30*time.Second {
		t.Errorf("parseRetryAfter(date+30s) = %v, want in (0, 30s]", got)
	}
}
