// Synkuru - AniList Watch-List Sync and Catalog Engine for Stremio
// Copyright 2026 Ju1-js
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ju1-js/synkuru

/*
arm_client.go - External Mapping Service Client

Client for the anime-relations-mapping service (arm.haglund.dev), the
fallback of last resort when neither the in-memory cache nor the persistent
store knows a foreign id. Wrapped in a circuit breaker so a flapping
mapping service cannot stall every unresolved lookup.
*/

package idmap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/ju1-js/synkuru/internal/logging"
	"github.com/ju1-js/synkuru/internal/metrics"
)

// DefaultMappingURL is the public anime-relations-mapping endpoint.
const DefaultMappingURL = "https://arm.haglund.dev"

// MappingClient resolves a foreign id to an AniList id via an external
// service. Implementations report absence as (0, false, nil).
type MappingClient interface {
	Lookup(ctx context.Context, source Namespace, id string) (int64, bool, error)
}

// armResult carries a lookup outcome through the circuit breaker.
type armResult struct {
	anilistID int64
	found     bool
}

// ARMClient talks to arm.haglund.dev's v2 ids endpoint.
type ARMClient struct {
	baseURL    string
	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker[armResult]
}

var _ MappingClient = (*ARMClient)(nil)

// NewARMClient creates a mapping-service client with circuit breaker
// protection. The breaker opens after a 60% failure rate over at least 10
// requests and probes again after one minute.
func NewARMClient(baseURL string) *ARMClient {
	if baseURL == "" {
		baseURL = DefaultMappingURL
	}
	cbName := "arm-mapping"

	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0) // 0 = closed

	cb := gobreaker.NewCircuitBreaker[armResult](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", breakerStateString(from)).
				Str("to", breakerStateString(to)).
				Msg("Mapping service circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(breakerStateFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, breakerStateString(from), breakerStateString(to)).Inc()
		},
	})

	return &ARMClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		cb:         cb,
	}
}

// Lookup asks the mapping service for the AniList id of a foreign id.
func (c *ARMClient) Lookup(ctx context.Context, source Namespace, id string) (int64, bool, error) {
	result, err := c.cb.Execute(func() (armResult, error) {
		return c.fetch(ctx, source, id)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return 0, false, fmt.Errorf("mapping service unavailable: %w", err)
		}
		return 0, false, err
	}
	return result.anilistID, result.found, nil
}

func (c *ARMClient) fetch(ctx context.Context, source Namespace, id string) (armResult, error) {
	q := url.Values{}
	q.Set("source", string(source))
	q.Set("id", id)
	q.Set("include", string(NamespaceAniList))

	reqURL := fmt.Sprintf("%s/api/v2/ids?%s", c.baseURL, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return armResult{}, fmt.Errorf("create mapping request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return armResult{}, fmt.Errorf("mapping request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	// The service answers 404 for ids it has never seen; that is a miss,
	// not a failure, and must not trip the breaker.
	if resp.StatusCode == http.StatusNotFound {
		return armResult{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return armResult{}, fmt.Errorf("mapping service returned status %d: %s", resp.StatusCode, string(body))
	}

	// Body is either null or an object of namespace -> id.
	var mapping map[string]*int64
	if err := json.NewDecoder(resp.Body).Decode(&mapping); err != nil {
		return armResult{}, fmt.Errorf("decode mapping response: %w", err)
	}

	target := mapping[string(NamespaceAniList)]
	if target == nil {
		return armResult{}, nil
	}
	return armResult{anilistID: *target, found: true}, nil
}

func breakerStateString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

func breakerStateFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
