// Synkuru - AniList Watch-List Sync and Catalog Engine for Stremio
// Copyright 2026 Ju1-js
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ju1-js/synkuru

// Package cache provides the in-memory caches used by Synkuru: a TTL
// response cache with in-flight request deduplication, and a bounded LRU
// for id-mapping lookups.
package cache

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/ju1-js/synkuru/internal/metrics"
)

// entry is a cached fetch that may still be in flight. done is closed once
// value/err are set; waiters share the same resolution.
type entry struct {
	done      chan struct{}
	value     interface{}
	err       error
	expiresAt time.Time
}

// resolved reports whether the fetch has completed (without blocking).
func (e *entry) resolved() bool {
	select {
	case <-e.done:
		return true
	default:
		return false
	}
}

// ResponseCache memoizes fetch results for a fixed TTL and collapses
// concurrent fetches for the same key into a single upstream call.
//
// Failed fetches are evicted immediately so the next caller retries;
// the failure still propagates to every caller awaiting the shared fetch.
// Entries self-expire; there is no explicit teardown.
type ResponseCache struct {
	mu      sync.Mutex
	entries map[string]*entry
	ttl     time.Duration
	name    string // metrics label
}

// NewResponseCache creates a response cache with the given default TTL.
// name labels the cache in metrics ("anilist", "artwork", ...).
func NewResponseCache(name string, ttl time.Duration) *ResponseCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &ResponseCache{
		entries: make(map[string]*entry),
		ttl:     ttl,
		name:    name,
	}
}

// GetOrFetch returns the cached value for key, or runs fetch to produce it.
//
// If a live entry exists its result is returned as-is; callers arriving while
// a fetch is in flight block on the same fetch rather than issuing their own.
// A successful result is retained until its TTL elapses. A failed fetch is
// removed before the error is returned, so the next caller re-issues it.
func (c *ResponseCache) GetOrFetch(key string, fetch func() (interface{}, error)) (interface{}, error) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		if !e.resolved() {
			// Shared in-flight fetch: wait for whoever started it.
			c.mu.Unlock()
			metrics.CacheHits.WithLabelValues(c.name).Inc()
			<-e.done
			return e.value, e.err
		}
		if e.err == nil && time.Now().Before(e.expiresAt) {
			c.mu.Unlock()
			metrics.CacheHits.WithLabelValues(c.name).Inc()
			return e.value, nil
		}
		// Expired; fall through and refetch.
		delete(c.entries, key)
	}

	e := &entry{done: make(chan struct{})}
	c.entries[key] = e
	c.mu.Unlock()
	metrics.CacheMisses.WithLabelValues(c.name).Inc()

	value, err := fetch()

	c.mu.Lock()
	e.value, e.err = value, err
	if err != nil {
		// Do not poison the cache: only a successful resolution is retained.
		if cur, ok := c.entries[key]; ok && cur == e {
			delete(c.entries, key)
		}
	} else {
		e.expiresAt = time.Now().Add(c.ttl)
	}
	c.mu.Unlock()
	close(e.done)

	return value, err
}

// Len returns the current number of entries, including in-flight ones.
func (c *ResponseCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Delete removes an entry. In-flight fetches are not interrupted; their
// waiters still receive the shared result.
func (c *ResponseCache) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// GenerateKey creates a cache key from the operation name and parameters.
func GenerateKey(operation string, params interface{}) string {
	data, err := json.Marshal(params)
	if err != nil {
		// Fallback to simple string key
		return fmt.Sprintf("%s:%v", operation, params)
	}

	hash := sha256.Sum256(data)
	return fmt.Sprintf("%s:%x", operation, hash[:16])
}
