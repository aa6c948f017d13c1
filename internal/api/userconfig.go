// Synkuru - AniList Watch-List Sync and Catalog Engine for Stremio
// Copyright 2026 Ju1-js
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ju1-js/synkuru

package api

import (
	"fmt"
	"net/url"

	"github.com/goccy/go-json"
)

// UserConfig is the per-install configuration Stremio embeds as a
// URL-encoded JSON path segment in every resource request. The token is
// never logged or persisted; it rides each request to AniList.
type UserConfig struct {
	Token        string `json:"token"`
	EnableSearch bool   `json:"enableSearch"`
	PreAddedOnly bool   `json:"preAddedOnly"`
}

// ParseUserConfig decodes the config path segment.
func ParseUserConfig(segment string) (UserConfig, error) {
	decoded, err := url.PathUnescape(segment)
	if err != nil {
		return UserConfig{}, fmt.Errorf("unescape user config: %w", err)
	}

	var cfg UserConfig
	if err := json.Unmarshal([]byte(decoded), &cfg); err != nil {
		return UserConfig{}, fmt.Errorf("decode user config: %w", err)
	}
	return cfg, nil
}
