// Synkuru - AniList Watch-List Sync and Catalog Engine for Stremio
// Copyright 2026 Ju1-js
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ju1-js/synkuru

// Package metadata holds the small external collaborators that enrich the
// addon surface: Cinemeta title lookups for IMDB ids and the optional
// artwork/logo service. Both sit behind hour-long response caches since
// their answers change rarely.
package metadata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/ju1-js/synkuru/internal/cache"
)

// DefaultCinemetaURL is Stremio's public Cinemeta instance.
const DefaultCinemetaURL = "https://v3-cinemeta.strem.io"

const metadataCacheTTL = time.Hour

// CinemetaClient resolves an IMDB id to a display title via Cinemeta.
// Used by the subtitles hook when a series id cannot be mapped directly
// and the sync must fall back to a title search.
type CinemetaClient struct {
	baseURL    string
	httpClient *http.Client
	cache      *cache.ResponseCache
}

// NewCinemetaClient creates a Cinemeta client. An empty baseURL selects the
// public instance.
func NewCinemetaClient(baseURL string) *CinemetaClient {
	if baseURL == "" {
		baseURL = DefaultCinemetaURL
	}
	return &CinemetaClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		cache:      cache.NewResponseCache("cinemeta", metadataCacheTTL),
	}
}

type cinemetaMeta struct {
	Meta struct {
		Name string `json:"name"`
	} `json:"meta"`
}

// TitleByID returns the Cinemeta name for an IMDB id, or "" when the id is
// unknown. mediaType is the Stremio content type ("movie" or "series").
func (c *CinemetaClient) TitleByID(ctx context.Context, imdbID, mediaType string) (string, error) {
	key := cache.GenerateKey("cinemeta_title", map[string]string{"id": imdbID, "type": mediaType})

	value, err := c.cache.GetOrFetch(key, func() (interface{}, error) {
		return c.fetchTitle(context.WithoutCancel(ctx), imdbID, mediaType)
	})
	if err != nil {
		return "", err
	}
	title, _ := value.(string)
	return title, nil
}

func (c *CinemetaClient) fetchTitle(ctx context.Context, imdbID, mediaType string) (string, error) {
	reqURL := fmt.Sprintf("%s/meta/%s/%s.json", c.baseURL, mediaType, imdbID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("create cinemeta request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("cinemeta request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	// Unknown ids answer 404; treat as absence so the caller can skip the
	// title-search fallback instead of failing the whole hook.
	if resp.StatusCode == http.StatusNotFound {
		return "", nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("cinemeta returned status %d: %s", resp.StatusCode, string(body))
	}

	var meta cinemetaMeta
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return "", fmt.Errorf("decode cinemeta response: %w", err)
	}
	return meta.Meta.Name, nil
}
