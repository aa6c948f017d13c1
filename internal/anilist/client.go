// Synkuru - AniList Watch-List Sync and Catalog Engine for Stremio
// Copyright 2026 Ju1-js
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ju1-js/synkuru

/*
client.go - AniList GraphQL Client

Typed query/mutation execution against the AniList GraphQL API, composed
from the rate-limited transport and the response cache:

  - Query(): idempotent reads, deduplicated and memoized by the cache
  - Mutate(): writes, always bypass the cache

Bearer tokens are attached when present and trusted as-is; no auth flow
lives here. A response carrying a GraphQL error list fails the whole call
even when partial data is present.
*/

package anilist

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/ju1-js/synkuru/internal/cache"
	"github.com/ju1-js/synkuru/internal/metrics"
)

// DefaultEndpoint is the AniList GraphQL API endpoint.
const DefaultEndpoint = "https://graphql.anilist.co"

// ClientConfig holds GraphQL client configuration.
type ClientConfig struct {
	Endpoint string
	CacheTTL time.Duration // TTL for memoized query results
}

// Client executes GraphQL operations against AniList.
type Client struct {
	endpoint  string
	transport *Transport
	cache     *cache.ResponseCache
}

// NewClient creates a client over the given transport. A nil transport gets
// default limits.
func NewClient(cfg ClientConfig, transport *Transport) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	if transport == nil {
		transport = NewTransport(DefaultTransportConfig())
	}

	return &Client{
		endpoint:  cfg.Endpoint,
		transport: transport,
		cache:     cache.NewResponseCache("anilist", cfg.CacheTTL),
	}
}

// queryKey is the deterministic identity of a read operation. The token is
// part of the key because list queries are user-scoped; it is hashed into
// the key, never stored.
type queryKey struct {
	Operation string                 `json:"operation"`
	Variables map[string]interface{} `json:"variables"`
	Token     string                 `json:"token"`
}

// Query runs an idempotent read through the response cache. Concurrent
// identical queries collapse into one upstream call; results are memoized
// until the cache TTL elapses.
func (c *Client) Query(ctx context.Context, name, operation string, variables map[string]interface{}, token string) (json.RawMessage, error) {
	key := cache.GenerateKey("anilist."+name, queryKey{
		Operation: operation,
		Variables: variables,
		Token:     token,
	})

	// The fetch outlives any single caller: an abandoned request still
	// resolves the shared cache entry for later callers.
	fetchCtx := context.WithoutCancel(ctx)
	value, err := c.cache.GetOrFetch(key, func() (interface{}, error) {
		return c.do(fetchCtx, name, operation, variables, token)
	})
	if err != nil {
		return nil, err
	}

	data, ok := value.(json.RawMessage)
	if !ok {
		return nil, &APIError{Kind: KindNetwork, Message: "unexpected cache value type"}
	}
	return data, nil
}

// Mutate runs a write operation. Mutations never touch the cache.
func (c *Client) Mutate(ctx context.Context, name, operation string, variables map[string]interface{}, token string) (json.RawMessage, error) {
	return c.do(ctx, name, operation, variables, token)
}

// Invalidate drops the memoized result of one read. Callers use it after a
// mutation changes what that read would return; the next Query goes upstream.
func (c *Client) Invalidate(name, operation string, variables map[string]interface{}, token string) {
	key := cache.GenerateKey("anilist."+name, queryKey{
		Operation: operation,
		Variables: variables,
		Token:     token,
	})
	c.cache.Delete(key)
}

// gqlError is one entry of a GraphQL response error list.
type gqlError struct {
	Message string `json:"message"`
}

// gqlEnvelope is the standard GraphQL response envelope.
type gqlEnvelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []gqlError      `json:"errors"`
}

// do executes one GraphQL POST through the rate-limited transport.
func (c *Client) do(ctx context.Context, name, operation string, variables map[string]interface{}, token string) (json.RawMessage, error) {
	start := time.Now()
	data, err := c.post(ctx, operation, variables, token)

	outcome := "success"
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		outcome = apiErr.Kind.String()
	} else if err != nil {
		outcome = "network_error"
	}
	metrics.AniListRequests.WithLabelValues(name, outcome).Inc()
	metrics.AniListRequestDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

	return data, err
}

func (c *Client) post(ctx context.Context, operation string, variables map[string]interface{}, token string) (json.RawMessage, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"query":     collapseWhitespace(operation),
		"variables": variables,
	})
	if err != nil {
		return nil, &APIError{Kind: KindNetwork, Message: "encode request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, &APIError{Kind: KindNetwork, Message: "create request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.transport.Execute(ctx, req)
	if err != nil {
		// Exhausted rate-limit retries degrade to a network error; the
		// transport already did all the retrying this layer allows.
		return nil, &APIError{Kind: KindNetwork, Message: "request failed", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &APIError{Kind: KindTransport, Status: resp.StatusCode, Message: string(body)}
	}

	var envelope gqlEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, &APIError{Kind: KindNetwork, Message: "decode response", Err: err}
	}

	if len(envelope.Errors) > 0 {
		msgs := make([]string, 0, len(envelope.Errors))
		for _, e := range envelope.Errors {
			msgs = append(msgs, e.Message)
		}
		return nil, &APIError{Kind: KindGraphQL, Message: strings.Join(msgs, "; ")}
	}

	return envelope.Data, nil
}

// collapseWhitespace normalizes operation text so formatting differences do
// not produce distinct cache keys or bloated request bodies.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
