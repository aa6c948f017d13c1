// Synkuru - AniList Watch-List Sync and Catalog Engine for Stremio
// Copyright 2026 Ju1-js
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ju1-js/synkuru

package metadata

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/ju1-js/synkuru/internal/cache"
)

// ArtworkClient fetches logo images for AniList titles from an optional
// artwork service. When no base URL is configured the client is disabled
// and every lookup reports absence, so the meta surface simply omits logos.
type ArtworkClient struct {
	baseURL    string
	httpClient *http.Client
	cache      *cache.ResponseCache
}

// NewArtworkClient creates an artwork client. An empty baseURL disables it.
func NewArtworkClient(baseURL string) *ArtworkClient {
	return &ArtworkClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		cache:      cache.NewResponseCache("artwork", metadataCacheTTL),
	}
}

// Enabled reports whether an artwork service is configured.
func (c *ArtworkClient) Enabled() bool {
	return c.baseURL != ""
}

type artworkResponse struct {
	URL string `json:"url"`
}

// Logo returns the logo URL for an AniList id in the given image format
// ("logo" today; the key carries the format so other kinds can share the
// cache). Absence is "" with no error.
func (c *ArtworkClient) Logo(ctx context.Context, anilistID int64, format string) (string, error) {
	if !c.Enabled() {
		return "", nil
	}

	key := cache.GenerateKey("artwork", map[string]interface{}{"id": anilistID, "format": format})
	value, err := c.cache.GetOrFetch(key, func() (interface{}, error) {
		return c.fetch(context.WithoutCancel(ctx), anilistID, format)
	})
	if err != nil {
		return "", err
	}
	url, _ := value.(string)
	return url, nil
}

func (c *ArtworkClient) fetch(ctx context.Context, anilistID int64, format string) (string, error) {
	reqURL := fmt.Sprintf("%s/anilist/%d/%s", c.baseURL, anilistID, format)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("create artwork request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("artwork request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return "", nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("artwork service returned status %d", resp.StatusCode)
	}

	var art artworkResponse
	if err := json.NewDecoder(resp.Body).Decode(&art); err != nil {
		return "", fmt.Errorf("decode artwork response: %w", err)
	}
	return art.URL, nil
}
