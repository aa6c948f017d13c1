// Synkuru - AniList Watch-List Sync and Catalog Engine for Stremio
// Copyright 2026 Ju1-js
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ju1-js/synkuru

/*
handlers.go - Stremio Resource Handlers

The subtitles handler doubles as the watched-episode hook: Stremio requests
subtitles the moment playback starts, which is the only signal the platform
gives an addon that an episode is being watched. The handler always answers
with an empty subtitle list; its real work is kicking off the progress sync.
*/

package api

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/ju1-js/synkuru/internal/anilist"
	"github.com/ju1-js/synkuru/internal/idmap"
	"github.com/ju1-js/synkuru/internal/logging"
	"github.com/ju1-js/synkuru/internal/metadata"
	"github.com/ju1-js/synkuru/internal/models"
)

// Handler serves the Stremio addon resources.
type Handler struct {
	builder  *anilist.CatalogBuilder
	sync     *anilist.ProgressSync
	resolver *idmap.Resolver
	cinemeta *metadata.CinemetaClient
	artwork  *metadata.ArtworkClient
}

// NewHandler wires the addon resources over their collaborators.
func NewHandler(
	builder *anilist.CatalogBuilder,
	sync *anilist.ProgressSync,
	resolver *idmap.Resolver,
	cinemeta *metadata.CinemetaClient,
	artwork *metadata.ArtworkClient,
) *Handler {
	return &Handler{
		builder:  builder,
		sync:     sync,
		resolver: resolver,
		cinemeta: cinemeta,
		artwork:  artwork,
	}
}

// Manifest serves the addon manifest. The configured variant (with a user
// config segment) clears configurationRequired.
func (h *Handler) Manifest(w http.ResponseWriter, r *http.Request) {
	configured := chi.URLParam(r, "userConfig") != ""
	respondJSON(w, http.StatusOK, BuildManifest(configured))
}

// Catalog serves one catalog page. Build degrades to an empty page on
// failure, so this handler never errors outward either.
func (h *Handler) Catalog(w http.ResponseWriter, r *http.Request) {
	cfg, ok := h.userConfig(w, r)
	if !ok {
		return
	}

	catalogID := chi.URLParam(r, "catalogID")
	metas := h.builder.Build(r.Context(), catalogID, cfg.Token)
	if metas == nil {
		metas = []models.CatalogMeta{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"metas": metas})
}

// Meta serves the full meta object for one anilist-prefixed id.
func (h *Handler) Meta(w http.ResponseWriter, r *http.Request) {
	cfg, ok := h.userConfig(w, r)
	if !ok {
		return
	}

	rawID := chi.URLParam(r, "id")
	idPart, found := strings.CutPrefix(rawID, "anilist:")
	if !found {
		http.Error(w, "unsupported id prefix", http.StatusNotFound)
		return
	}
	anilistID, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		http.Error(w, "malformed id", http.StatusBadRequest)
		return
	}

	meta, err := h.builder.BuildMeta(r.Context(), anilistID, cfg.Token)
	if err != nil {
		logging.Error().Err(err).Int64("anilist_id", anilistID).Msg("Meta fetch failed")
		http.Error(w, "meta unavailable", http.StatusBadGateway)
		return
	}
	if meta == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	if logo, err := h.artwork.Logo(r.Context(), anilistID, "logo"); err != nil {
		// A missing logo never blocks the meta response.
		logging.Debug().Err(err).Int64("anilist_id", anilistID).Msg("Logo lookup failed")
	} else {
		meta.Logo = logo
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"meta": meta})
}

// Subtitles is the watched-episode hook. It parses the video id, resolves it
// to an AniList id (or a searchable title), fires the progress sync, and
// always answers with an empty subtitle list.
func (h *Handler) Subtitles(w http.ResponseWriter, r *http.Request) {
	cfg, ok := h.userConfig(w, r)
	if !ok {
		return
	}

	mediaType := chi.URLParam(r, "type")
	videoID := chi.URLParam(r, "id")
	if decoded, err := url.PathUnescape(videoID); err == nil {
		videoID = decoded
	}

	intent, ok := h.resolveIntent(r, cfg, mediaType, videoID)
	if ok {
		h.sync.Advance(r.Context(), intent, cfg.Token)
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"subtitles": []struct{}{}})
}

// resolveIntent maps a Stremio video id onto a sync intent. Two id shapes
// arrive here: "kitsu:<id>:<ep>" and "tt<imdb>:<season>:<ep>" (movies carry
// no season/episode suffix and count as episode 1).
func (h *Handler) resolveIntent(r *http.Request, cfg UserConfig, mediaType, videoID string) (anilist.SyncIntent, bool) {
	intent := anilist.SyncIntent{RequireExisting: cfg.PreAddedOnly}

	parts := strings.Split(videoID, ":")

	if parts[0] == "kitsu" {
		if len(parts) < 2 {
			return intent, false
		}
		anilistID, found, err := h.resolver.Resolve(r.Context(), parts[1], idmap.NamespaceKitsu)
		if err != nil {
			logging.Error().Err(err).Str("video_id", videoID).Msg("Kitsu id resolution failed")
			return intent, false
		}
		if !found {
			return intent, false
		}
		intent.MediaID = anilistID
		intent.Episode = 1
		if mediaType != "movie" && len(parts) >= 3 {
			intent.Episode = atoi(parts[2])
		}
		return intent, intent.Episode > 0
	}

	if mediaType == "movie" {
		anilistID, found, err := h.resolver.Resolve(r.Context(), parts[0], idmap.NamespaceIMDB)
		if err != nil {
			logging.Error().Err(err).Str("video_id", videoID).Msg("IMDB id resolution failed")
			return intent, false
		}
		if !found {
			return intent, false
		}
		intent.MediaID = anilistID
		intent.Episode = 1
		return intent, true
	}

	// Series under an IMDB id: no direct mapping per season, so fall back
	// to a title search when the user opted in.
	if !cfg.EnableSearch || len(parts) < 3 {
		return intent, false
	}

	title, err := h.cinemeta.TitleByID(r.Context(), parts[0], mediaType)
	if err != nil {
		logging.Error().Err(err).Str("video_id", videoID).Msg("Cinemeta title lookup failed")
		return intent, false
	}
	if title == "" {
		return intent, false
	}
	if season := atoi(parts[1]); season > 1 {
		title += " " + strconv.Itoa(season)
	}

	intent.Title = title
	intent.Episode = atoi(parts[2])
	return intent, intent.Episode > 0
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// userConfig parses the config path segment, answering 400 on garbage.
func (h *Handler) userConfig(w http.ResponseWriter, r *http.Request) (UserConfig, bool) {
	segment := chi.URLParam(r, "userConfig")
	cfg, err := ParseUserConfig(segment)
	if err != nil {
		logging.Debug().Err(err).Msg("Rejected malformed user config")
		http.Error(w, "malformed addon configuration", http.StatusBadRequest)
		return UserConfig{}, false
	}
	return cfg, true
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.Error().Err(err).Msg("Failed to encode response")
	}
}
