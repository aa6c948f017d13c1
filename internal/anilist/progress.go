// Synkuru - AniList Watch-List Sync and Catalog Engine for Stremio
// Copyright 2026 Ju1-js
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ju1-js/synkuru

/*
progress.go - Idempotent Progress Sync

Advances a list entry's watched-episode count when an episode is consumed.
Idempotent by construction: stored progress never regresses, an episode
number at or below the stored progress is a no-op, and reaching the final
episode flips the entry to COMPLETED exactly once.
*/

package anilist

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/ju1-js/synkuru/internal/logging"
	"github.com/ju1-js/synkuru/internal/metrics"
	"github.com/ju1-js/synkuru/internal/models"
)

// SyncIntent is one progress-sync attempt. Transient, never persisted.
type SyncIntent struct {
	// MediaID targets a known AniList id. When zero, Title is used instead.
	MediaID int64

	// Title is a free-text fallback resolved via a single best-match search.
	Title string

	// Episode is the watched episode number to record.
	Episode int

	// RequireExisting makes the sync an intentional no-op when the user has
	// no list entry for the title yet.
	RequireExisting bool
}

// ProgressSync records watched-episode progress against AniList.
type ProgressSync struct {
	client *Client
}

// NewProgressSync creates a progress syncer over the given client.
func NewProgressSync(client *Client) *ProgressSync {
	return &ProgressSync{client: client}
}

// Advance applies the intent. It never fails outward: errors are logged and
// the sync is silently skipped, since a failed background sync must not
// surface to the player.
func (s *ProgressSync) Advance(ctx context.Context, intent SyncIntent, token string) {
	outcome, err := s.advance(ctx, intent, token)
	if err != nil {
		logging.Error().Err(err).
			Int64("media_id", intent.MediaID).
			Str("title", intent.Title).
			Int("episode", intent.Episode).
			Msg("Progress sync failed, skipping")
		outcome = "error"
	}
	metrics.ProgressSyncs.WithLabelValues(outcome).Inc()
}

// advance runs one sync attempt and reports the outcome label.
func (s *ProgressSync) advance(ctx context.Context, intent SyncIntent, token string) (string, error) {
	if intent.Episode <= 0 {
		return "noop", nil
	}

	mediaID := intent.MediaID
	if mediaID == 0 {
		if intent.Title == "" {
			return "noop", nil
		}
		id, found, err := s.searchBestMatch(ctx, intent.Title, token)
		if err != nil {
			return "", err
		}
		if !found {
			logging.Debug().Str("title", intent.Title).Msg("No search match for title, skipping sync")
			return "skipped", nil
		}
		mediaID = id
	}

	media, err := s.fetchMediaWithEntry(ctx, mediaID, token)
	if err != nil {
		return "", err
	}
	if media == nil {
		return "skipped", nil
	}

	entry := media.MediaListEntry
	if entry == nil && intent.RequireExisting {
		// Intentional skip, not an error: the user opted to sync only
		// titles already on a list.
		logging.Debug().Int64("media_id", mediaID).Msg("No existing list entry, skipping sync")
		return "skipped", nil
	}

	stored := 0
	if entry != nil {
		stored = entry.Progress
	}
	if stored >= intent.Episode {
		// Monotonic progress: never regress, never re-complete.
		return "noop", nil
	}
	if media.Episodes != nil && intent.Episode > *media.Episodes {
		// An episode number past the known total is bogus input.
		return "noop", nil
	}

	status := string(models.ListCurrent)
	outcome := "updated"
	switch {
	case media.Episodes != nil && intent.Episode == *media.Episodes:
		status = string(models.ListCompleted)
		outcome = "completed"
	case entry != nil && entry.Status != "":
		status = entry.Status
	}

	if err := s.saveEntry(ctx, mediaID, intent.Episode, status, token); err != nil {
		return "", err
	}

	logging.Info().
		Int64("media_id", mediaID).
		Int("episode", intent.Episode).
		Str("status", status).
		Msg("Progress synced")
	return outcome, nil
}

// searchBestMatch resolves a free-text title to at most one candidate.
func (s *ProgressSync) searchBestMatch(ctx context.Context, title, token string) (int64, bool, error) {
	vars := map[string]interface{}{
		"search":  title,
		"page":    1,
		"perPage": 1,
	}

	raw, err := s.client.Query(ctx, "search", searchQuery, vars, token)
	if err != nil {
		return 0, false, err
	}

	var page pageData
	if err := json.Unmarshal(raw, &page); err != nil {
		return 0, false, fmt.Errorf("decode search page: %w", err)
	}
	if len(page.Page.Media) == 0 {
		return 0, false, nil
	}
	return page.Page.Media[0].ID, true, nil
}

// fetchMediaWithEntry fetches one title plus the caller's list entry. The
// read goes through the shared cache; saveEntry invalidates it after each
// successful mutation so the next sync compares against fresh progress.
func (s *ProgressSync) fetchMediaWithEntry(ctx context.Context, mediaID int64, token string) (*mediaNode, error) {
	raw, err := s.client.Query(ctx, "media_with_entry", mediaWithEntryQuery,
		map[string]interface{}{"id": mediaID}, token)
	if err != nil {
		return nil, err
	}

	var data mediaData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode media: %w", err)
	}
	return data.Media, nil
}

// saveEntry issues the progress mutation. Mutations bypass the cache.
func (s *ProgressSync) saveEntry(ctx context.Context, mediaID int64, episode int, status, token string) error {
	vars := map[string]interface{}{
		"mediaId":  mediaID,
		"progress": episode,
		"status":   status,
	}

	raw, err := s.client.Mutate(ctx, "save_entry", saveEntryMutation, vars, token)
	if err != nil {
		return err
	}

	var data saveEntryData
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("decode save entry: %w", err)
	}

	// The memoized media_with_entry snapshot now lies about stored progress.
	// Drop it, or a later sync within the TTL would compare against the
	// pre-mutation value and could regress the entry.
	s.client.Invalidate("media_with_entry", mediaWithEntryQuery,
		map[string]interface{}{"id": mediaID}, token)
	return nil
}
