// Synkuru - AniList Watch-List Sync and Catalog Engine for Stremio
// Copyright 2026 Ju1-js
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ju1-js/synkuru

/*
catalog.go - Catalog Aggregation Engine

Turns raw AniList list/search responses into normalized Stremio catalog
entries. Catalog ids dispatch to one of three query shapes:

  - List-filtered: the user's own lists, fetched once per build and
    filtered client-side by status set
  - Relation-derived: "Sequels You Missed" / "Stories You Missed", walking
    the relation graph of the COMPLETED list and excluding anything the
    user already tracks
  - Discovery: seasonal/trending/all-time/genre browse queries

Errors never leave Build(): a failed build degrades to an empty catalog
page and is logged for operators.
*/

package anilist

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/ju1-js/synkuru/internal/logging"
	"github.com/ju1-js/synkuru/internal/metrics"
	"github.com/ju1-js/synkuru/internal/models"
)

// CatalogDefinition names one catalog the builder can construct.
type CatalogDefinition struct {
	ID   string
	Name string
}

// Catalogs is the full roster exposed through the addon manifest, in
// display order.
var Catalogs = []CatalogDefinition{
	{ID: "CURRENT", Name: "Continue Watching"},
	{ID: "WATCHING", Name: "Watching List"},
	{ID: "REPEATING", Name: "Repeating"},
	{ID: "SEQUELS", Name: "Sequels You Missed"},
	{ID: "STORIES", Name: "Stories You Missed"},
	{ID: "PLANNING", Name: "Planning List"},
	{ID: "PAUSED", Name: "Paused"},
	{ID: "DROPPED", Name: "Dropped"},
	{ID: "COMPLETED", Name: "Completed"},
	{ID: "POPULAR", Name: "Popular This Season"},
	{ID: "TRENDING", Name: "Trending Now"},
	{ID: "ALLPOPULAR", Name: "All Time Popular"},
	{ID: "ROMANCE", Name: "Romance"},
	{ID: "ACTION", Name: "Action"},
	{ID: "ADVENTURE", Name: "Adventure"},
	{ID: "FANTASY", Name: "Fantasy"},
	{ID: "COMEDY", Name: "Comedy"},
}

// genreCatalogs maps genre catalog ids to AniList genre names.
var genreCatalogs = map[string]string{
	"ROMANCE":   "Romance",
	"ACTION":    "Action",
	"ADVENTURE": "Adventure",
	"FANTASY":   "Fantasy",
	"COMEDY":    "Comedy",
}

// CatalogBuilder produces normalized catalog pages from the GraphQL client.
type CatalogBuilder struct {
	client *Client
}

// NewCatalogBuilder creates a catalog builder over the given client.
func NewCatalogBuilder(client *Client) *CatalogBuilder {
	return &CatalogBuilder{client: client}
}

// Build constructs the named catalog. It never fails outward: any error is
// logged and degrades to an empty page rather than reaching the platform
// handler.
func (b *CatalogBuilder) Build(ctx context.Context, catalogID, token string) []models.CatalogMeta {
	start := time.Now()
	metas, err := b.build(ctx, catalogID, token)
	if err != nil {
		logging.Error().Err(err).Str("catalog", catalogID).Msg("Catalog build failed, returning empty page")
		metas = nil
	}
	metrics.ObserveCatalogBuild(catalogID, start, len(metas))
	return metas
}

// build dispatches the catalog id to its query shape.
func (b *CatalogBuilder) build(ctx context.Context, catalogID, token string) ([]models.CatalogMeta, error) {
	if genre, ok := genreCatalogs[catalogID]; ok {
		return b.buildBrowse(ctx, token, browseParams{Sort: "TRENDING_DESC", Genre: genre})
	}

	switch catalogID {
	case "SEQUELS", "STORIES":
		return b.buildRelationDerived(ctx, token, catalogID)
	case "POPULAR":
		season, year := currentSeason(time.Now())
		return b.buildBrowse(ctx, token, browseParams{
			Sort:         "POPULARITY_DESC",
			Season:       season,
			SeasonYear:   year,
			ExcludeMusic: true,
		})
	case "TRENDING":
		return b.buildBrowse(ctx, token, browseParams{Sort: "TRENDING_DESC"})
	case "ALLPOPULAR":
		return b.buildBrowse(ctx, token, browseParams{Sort: "POPULARITY_DESC"})
	case "WATCHING":
		// "Watching" merges first watches and rewatches.
		return b.buildListFiltered(ctx, token, models.ListCurrent, models.ListRepeating)
	default:
		// Unrecognized names are treated as a raw list-status filter.
		return b.buildListFiltered(ctx, token, models.ListStatus(catalogID))
	}
}

// buildListFiltered fetches the user's list collection once and filters it
// by the requested status set, newest activity first.
func (b *CatalogBuilder) buildListFiltered(ctx context.Context, token string, statuses ...models.ListStatus) ([]models.CatalogMeta, error) {
	snapshot, err := b.fetchSnapshot(ctx, token)
	if err != nil {
		return nil, err
	}

	var entries []models.ListEntry
	for _, status := range statuses {
		entries = append(entries, snapshot.Lists[status]...)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].UpdatedAt > entries[j].UpdatedAt
	})

	metas := make([]models.CatalogMeta, 0, len(entries))
	for i := range entries {
		metas = append(metas, Normalize(&entries[i].Media))
	}
	return metas, nil
}

// buildRelationDerived constructs the "Sequels You Missed" and "Stories You
// Missed" views. An entry already on any tracked list is never surfaced.
func (b *CatalogBuilder) buildRelationDerived(ctx context.Context, token, catalogID string) ([]models.CatalogMeta, error) {
	snapshot, err := b.fetchSnapshot(ctx, token)
	if err != nil {
		return nil, err
	}

	excluded := snapshot.TrackedIDs(
		models.ListCurrent,
		models.ListRepeating,
		models.ListCompleted,
		models.ListDropped,
		models.ListPaused,
	)

	targets := make(map[int64]struct{})
	for _, entry := range snapshot.Lists[models.ListCompleted] {
		for _, edge := range entry.Media.Relations {
			if !relationWanted(catalogID, edge.Type) {
				continue
			}
			if _, tracked := excluded[edge.TargetID]; tracked {
				continue
			}
			targets[edge.TargetID] = struct{}{}
		}
	}

	if len(targets) == 0 {
		return nil, nil
	}

	ids := make([]int64, 0, len(targets))
	for id := range targets {
		ids = append(ids, id)
	}
	// Deterministic variable order keeps the cache key stable.
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return b.buildBrowse(ctx, token, browseParams{
		Sort:     "POPULARITY_DESC",
		IDIn:     ids,
		StatusIn: []string{string(models.StatusFinished), string(models.StatusReleasing)},
	})
}

// relationWanted applies the edge filter for the two relation views:
// sequels keep only SEQUEL edges; stories keep every edge except
// SEQUEL, CHARACTER and OTHER.
func relationWanted(catalogID string, t models.RelationType) bool {
	if catalogID == "SEQUELS" {
		return t == models.RelationSequel
	}
	return t != models.RelationSequel && t != models.RelationCharacter && t != models.RelationOther
}

// browseParams parameterizes the generic discovery query.
type browseParams struct {
	Sort         string
	Genre        string
	Season       string
	SeasonYear   int
	IDIn         []int64
	StatusIn     []string
	ExcludeMusic bool
}

// buildBrowse runs the discovery query shape and normalizes the page.
func (b *CatalogBuilder) buildBrowse(ctx context.Context, token string, params browseParams) ([]models.CatalogMeta, error) {
	vars := pageVars()
	vars["sort"] = []string{params.Sort}
	if params.Genre != "" {
		vars["genre"] = params.Genre
	}
	if params.Season != "" {
		vars["season"] = params.Season
		vars["seasonYear"] = params.SeasonYear
	}
	if len(params.IDIn) > 0 {
		vars["idIn"] = params.IDIn
	}
	if len(params.StatusIn) > 0 {
		vars["statusIn"] = params.StatusIn
	}
	if params.ExcludeMusic {
		vars["formatNot"] = string(models.FormatMusic)
	}

	raw, err := b.client.Query(ctx, "browse", browseQuery, vars, token)
	if err != nil {
		return nil, err
	}

	var page pageData
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, fmt.Errorf("decode browse page: %w", err)
	}

	metas := make([]models.CatalogMeta, 0, len(page.Page.Media))
	for i := range page.Page.Media {
		media := page.Page.Media[i].toModel()
		metas = append(metas, Normalize(&media))
	}
	return metas, nil
}

// fetchViewer resolves the authenticated user's id.
func (b *CatalogBuilder) fetchViewer(ctx context.Context, token string) (int64, error) {
	raw, err := b.client.Query(ctx, "viewer", viewerQuery, nil, token)
	if err != nil {
		return 0, err
	}

	var viewer viewerData
	if err := json.Unmarshal(raw, &viewer); err != nil {
		return 0, fmt.Errorf("decode viewer: %w", err)
	}
	if viewer.Viewer.ID == 0 {
		return 0, fmt.Errorf("viewer id missing from response")
	}
	return viewer.Viewer.ID, nil
}

// fetchSnapshot fetches the user's full list collection, grouped by status.
// Produced fresh per build; retention is the response cache's concern.
func (b *CatalogBuilder) fetchSnapshot(ctx context.Context, token string) (*models.UserListSnapshot, error) {
	userID, err := b.fetchViewer(ctx, token)
	if err != nil {
		return nil, err
	}

	raw, err := b.client.Query(ctx, "list_collection", listCollectionQuery,
		map[string]interface{}{"userId": userID}, token)
	if err != nil {
		return nil, err
	}

	var collection listCollectionData
	if err := json.Unmarshal(raw, &collection); err != nil {
		return nil, fmt.Errorf("decode list collection: %w", err)
	}

	snapshot := &models.UserListSnapshot{
		UserID: userID,
		Lists:  make(map[models.ListStatus][]models.ListEntry),
	}
	for _, list := range collection.MediaListCollection.Lists {
		status := models.ListStatus(list.Status)
		for _, entry := range list.Entries {
			snapshot.Lists[status] = append(snapshot.Lists[status], models.ListEntry{
				Media:     entry.Media.toModel(),
				Status:    status,
				Progress:  entry.Progress,
				UpdatedAt: entry.UpdatedAt,
			})
		}
	}
	return snapshot, nil
}

// BuildMeta fetches a single title and normalizes it for the meta resource.
// An unknown id is reported as absence, not an error.
func (b *CatalogBuilder) BuildMeta(ctx context.Context, anilistID int64, token string) (*models.CatalogMeta, error) {
	raw, err := b.client.Query(ctx, "media_with_entry", mediaWithEntryQuery,
		map[string]interface{}{"id": anilistID}, token)
	if err != nil {
		return nil, err
	}

	var data mediaData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode media: %w", err)
	}
	if data.Media == nil {
		return nil, nil
	}

	media := data.Media.toModel()
	meta := Normalize(&media)
	return &meta, nil
}

// Normalize converts a media snapshot into the Stremio-facing catalog entry.
func Normalize(m *models.MediaEntry) models.CatalogMeta {
	mediaType := "series"
	if m.IsMovie() {
		mediaType = "movie"
	}

	meta := models.CatalogMeta{
		ID:          "anilist:" + strconv.FormatInt(m.ID, 10),
		Type:        mediaType,
		Name:        m.Title,
		Poster:      m.CoverImage,
		Background:  m.BannerImage,
		Description: m.Description,
		Genres:      m.Genres,
		ReleaseInfo: releasePeriod(m),
		Website:     m.SiteURL,
	}

	if m.AverageScore != nil {
		meta.IMDBRating = formatScore(*m.AverageScore)
	}
	if m.DurationMinutes > 0 {
		meta.Runtime = strconv.Itoa(m.DurationMinutes) + " min"
	}
	return meta
}

// releasePeriod derives the human-readable release window for an entry.
func releasePeriod(m *models.MediaEntry) string {
	start := 0
	if m.StartDate != nil {
		start = m.StartDate.Year
	}
	end := 0
	if m.EndDate != nil {
		end = m.EndDate.Year
	}

	if start == 0 {
		return "Unknown"
	}

	if m.IsMovie() {
		return strconv.Itoa(start)
	}

	switch m.Status {
	case models.StatusReleasing:
		return fmt.Sprintf("%d-", start)
	case models.StatusFinished:
		if end == 0 || end == start {
			return strconv.Itoa(start)
		}
		return fmt.Sprintf("%d-%d", start, end)
	case models.StatusNotYetReleased:
		return fmt.Sprintf("Coming %d", start)
	case models.StatusCancelled:
		return fmt.Sprintf("Cancelled (%d)", start)
	case models.StatusHiatus:
		if end != 0 && end != start {
			return fmt.Sprintf("On Hiatus (%d-%d)", start, end)
		}
		return fmt.Sprintf("On Hiatus (%d)", start)
	default:
		return "Unknown"
	}
}

// formatScore rescales AniList's 0-100 average to a 0-10 rating with one
// decimal, rounding half-up.
func formatScore(score int) string {
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return fmt.Sprintf("%d.%d", score/10, score%10)
}

// currentSeason derives the AniList season/year pair for a point in time,
// quartering the year: Jan-Mar WINTER, Apr-Jun SPRING, Jul-Sep SUMMER,
// Oct-Dec FALL.
func currentSeason(t time.Time) (string, int) {
	switch month := t.Month(); {
	case month <= time.March:
		return "WINTER", t.Year()
	case month <= time.June:
		return "SPRING", t.Year()
	case month <= time.September:
		return "SUMMER", t.Year()
	default:
		return "FALL", t.Year()
	}
}
