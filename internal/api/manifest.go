// Synkuru - AniList Watch-List Sync and Catalog Engine for Stremio
// Copyright 2026 Ju1-js
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ju1-js/synkuru

// Package api provides the Stremio addon HTTP surface: manifest, catalog,
// meta and subtitles resources over a Chi router.
package api

import (
	"github.com/ju1-js/synkuru/internal/anilist"
)

// Manifest is the Stremio addon manifest.
type Manifest struct {
	ID            string                `json:"id"`
	Version       string                `json:"version"`
	Name          string                `json:"name"`
	Description   string                `json:"description"`
	Background    string                `json:"background,omitempty"`
	Logo          string                `json:"logo,omitempty"`
	Resources     []string              `json:"resources"`
	Types         []string              `json:"types"`
	Catalogs      []ManifestCatalog     `json:"catalogs"`
	IDPrefixes    []string              `json:"idPrefixes"`
	BehaviorHints ManifestBehaviorHints `json:"behaviorHints"`
	Config        []ManifestConfigField `json:"config,omitempty"`
}

// ManifestCatalog is one catalog row in the manifest.
type ManifestCatalog struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Name string `json:"name"`
}

// ManifestBehaviorHints advertises addon capabilities to the platform.
type ManifestBehaviorHints struct {
	Configurable          bool `json:"configurable"`
	ConfigurationRequired bool `json:"configurationRequired"`
}

// ManifestConfigField describes one user-configurable field.
type ManifestConfigField struct {
	Key   string `json:"key"`
	Type  string `json:"type"`
	Title string `json:"title"`
}

// BuildManifest assembles the manifest. configured marks whether the request
// arrived with a user config segment; without one the platform is told
// configuration is still required.
func BuildManifest(configured bool) Manifest {
	catalogs := make([]ManifestCatalog, 0, len(anilist.Catalogs))
	for _, c := range anilist.Catalogs {
		catalogs = append(catalogs, ManifestCatalog{ID: c.ID, Type: "anime", Name: c.Name})
	}

	return Manifest{
		ID:          "com.ju1-js.synkuru",
		Version:     "1.0.0",
		Name:        "Synkuru",
		Description: "Synkuru interfaces with AniList: watch-list catalogs and automatic episode progress sync.",
		Background:  "https://raw.githubusercontent.com/Ju1-js/Synkuru/main/addon-background.jpg",
		Logo:        "https://raw.githubusercontent.com/Ju1-js/Synkuru/main/addon-logo.png",
		Resources:   []string{"catalog", "meta", "subtitles"},
		Types:       []string{"anime", "movie", "series"},
		Catalogs:    catalogs,
		IDPrefixes:  []string{"anilist", "tt", "kitsu"},
		BehaviorHints: ManifestBehaviorHints{
			Configurable:          true,
			ConfigurationRequired: !configured,
		},
		Config: []ManifestConfigField{
			{Key: "token", Type: "text", Title: "AniList token"},
		},
	}
}
