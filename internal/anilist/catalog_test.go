// Synkuru - AniList Watch-List Sync and Catalog Engine for Stremio
// Copyright 2026 Ju1-js
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ju1-js/synkuru

package anilist

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/ju1-js/synkuru/internal/models"
)

// fakeAniList is an in-process AniList GraphQL endpoint. It dispatches on
// the operation text the way the real API would on operation shape.
type fakeAniList struct {
	mu       sync.Mutex
	viewerID int64
	lists    []map[string]interface{}
	media    map[int64]map[string]interface{}
	search   map[string][]map[string]interface{}

	// browse produces the page for a discovery query; nil means empty.
	browse func(vars map[string]interface{}) []map[string]interface{}

	browseVars []map[string]interface{}
	saved      []map[string]interface{}

	srv *httptest.Server
}

func newFakeAniList(t *testing.T) *fakeAniList {
	t.Helper()
	f := &fakeAniList{
		viewerID: 1,
		media:    make(map[int64]map[string]interface{}),
		search:   make(map[string][]map[string]interface{}),
	}
	f.srv = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeAniList) client() *Client {
	return newTestClient(f.srv.URL)
}

func (f *fakeAniList) handle(w http.ResponseWriter, r *http.Request) {
	var req gqlRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	f.mu.Lock()
	defer f.mu.Unlock()

	var data interface{}
	switch {
	case strings.Contains(req.Query, "SaveMediaListEntry"):
		f.saved = append(f.saved, req.Variables)
		// Mirror the real API: the mutation is visible to later media reads.
		if id, ok := req.Variables["mediaId"].(float64); ok {
			if m, ok := f.media[int64(id)]; ok {
				m["mediaListEntry"] = map[string]interface{}{
					"id":       1,
					"progress": req.Variables["progress"],
					"status":   req.Variables["status"],
				}
			}
		}
		data = map[string]interface{}{"SaveMediaListEntry": map[string]interface{}{
			"id":       1,
			"progress": req.Variables["progress"],
			"status":   req.Variables["status"],
		}}

	case strings.Contains(req.Query, "Viewer"):
		data = map[string]interface{}{"Viewer": map[string]interface{}{
			"id":   f.viewerID,
			"name": "tester",
		}}

	case strings.Contains(req.Query, "MediaListCollection"):
		data = map[string]interface{}{"MediaListCollection": map[string]interface{}{
			"lists": f.lists,
		}}

	case strings.Contains(req.Query, "$search"):
		term, _ := req.Variables["search"].(string)
		data = map[string]interface{}{"Page": map[string]interface{}{
			"media": f.search[term],
		}}

	case strings.Contains(req.Query, "Media(id:"):
		id := int64(req.Variables["id"].(float64))
		m, ok := f.media[id]
		if !ok {
			writeJSON(w, map[string]interface{}{
				"data":   nil,
				"errors": []map[string]interface{}{{"message": "Not Found."}},
			})
			return
		}
		data = map[string]interface{}{"Media": m}

	default: // discovery browse
		f.browseVars = append(f.browseVars, req.Variables)
		var page []map[string]interface{}
		if f.browse != nil {
			page = f.browse(req.Variables)
		}
		data = map[string]interface{}{"Page": map[string]interface{}{"media": page}}
	}

	writeJSON(w, map[string]interface{}{"data": data})
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

func (f *fakeAniList) lastBrowseVars() map[string]interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.browseVars) == 0 {
		return nil
	}
	return f.browseVars[len(f.browseVars)-1]
}

func (f *fakeAniList) savedMutations() []map[string]interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]interface{}(nil), f.saved...)
}

// mediaObj builds a wire media node; extra overrides or adds fields.
func mediaObj(id int64, title string, extra map[string]interface{}) map[string]interface{} {
	m := map[string]interface{}{
		"id":         id,
		"format":     "TV",
		"title":      map[string]interface{}{"userPreferred": title},
		"coverImage": map[string]interface{}{"extraLarge": fmt.Sprintf("https://img.example/%d.jpg", id)},
		"status":     "FINISHED",
		"startDate":  map[string]interface{}{"year": 2020},
	}
	for k, v := range extra {
		m[k] = v
	}
	return m
}

func listEntry(media map[string]interface{}, progress int, updatedAt int64) map[string]interface{} {
	return map[string]interface{}{
		"progress":  progress,
		"updatedAt": updatedAt,
		"media":     media,
	}
}

func relationEdges(edges ...[2]interface{}) map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(edges))
	for _, e := range edges {
		out = append(out, map[string]interface{}{
			"relationType": e[0],
			"node":         map[string]interface{}{"id": e[1]},
		})
	}
	return map[string]interface{}{"edges": out}
}

func metaIDs(metas []models.CatalogMeta) []string {
	ids := make([]string, 0, len(metas))
	for _, m := range metas {
		ids = append(ids, m.ID)
	}
	return ids
}

func TestBuildWatchingMergesAndSortsByActivity(t *testing.T) {
	f := newFakeAniList(t)
	f.lists = []map[string]interface{}{
		{"status": "CURRENT", "entries": []map[string]interface{}{
			listEntry(mediaObj(1, "Old Current", nil), 3, 100),
			listEntry(mediaObj(2, "Fresh Current", nil), 5, 300),
		}},
		{"status": "REPEATING", "entries": []map[string]interface{}{
			listEntry(mediaObj(4, "Rewatch", nil), 2, 250),
		}},
	}

	b := NewCatalogBuilder(f.client())
	metas := b.Build(context.Background(), "WATCHING", "tok")

	want := []string{"anilist:2", "anilist:4", "anilist:1"}
	if got := metaIDs(metas); !reflect.DeepEqual(got, want) {
		t.Errorf("WATCHING ids = %v, want %v", got, want)
	}
}

func TestBuildListStatusCatalog(t *testing.T) {
	f := newFakeAniList(t)
	f.lists = []map[string]interface{}{
		{"status": "PLANNING", "entries": []map[string]interface{}{
			listEntry(mediaObj(7, "Planned", nil), 0, 50),
		}},
		{"status": "CURRENT", "entries": []map[string]interface{}{
			listEntry(mediaObj(8, "Watching", nil), 1, 60),
		}},
	}

	b := NewCatalogBuilder(f.client())
	metas := b.Build(context.Background(), "PLANNING", "tok")

	if got := metaIDs(metas); !reflect.DeepEqual(got, []string{"anilist:7"}) {
		t.Errorf("PLANNING ids = %v, want [anilist:7]", got)
	}
}

// Sequels: only SEQUEL edges of completed titles, minus anything already
// tracked on any list.
func TestBuildSequelsExcludesTrackedTargets(t *testing.T) {
	f := newFakeAniList(t)
	f.lists = []map[string]interface{}{
		{"status": "COMPLETED", "entries": []map[string]interface{}{
			listEntry(mediaObj(10, "Finished Show", map[string]interface{}{
				"relations": relationEdges(
					[2]interface{}{"SEQUEL", 11},
					[2]interface{}{"SEQUEL", 12},
					[2]interface{}{"SIDE_STORY", 13},
					[2]interface{}{"CHARACTER", 14},
					[2]interface{}{"PREQUEL", 15},
				),
			}), 12, 400),
		}},
		{"status": "CURRENT", "entries": []map[string]interface{}{
			listEntry(mediaObj(12, "Already Watching Sequel", nil), 1, 500),
		}},
	}
	f.browse = func(vars map[string]interface{}) []map[string]interface{} {
		var page []map[string]interface{}
		for _, raw := range vars["idIn"].([]interface{}) {
			id := int64(raw.(float64))
			page = append(page, mediaObj(id, fmt.Sprintf("Title %d", id), nil))
		}
		return page
	}

	b := NewCatalogBuilder(f.client())
	metas := b.Build(context.Background(), "SEQUELS", "tok")

	if got := metaIDs(metas); !reflect.DeepEqual(got, []string{"anilist:11"}) {
		t.Errorf("SEQUELS ids = %v, want [anilist:11]", got)
	}

	vars := f.lastBrowseVars()
	if got := vars["idIn"]; !reflect.DeepEqual(got, []interface{}{float64(11)}) {
		t.Errorf("idIn = %v, want [11]", got)
	}
	if got := vars["statusIn"]; !reflect.DeepEqual(got, []interface{}{"FINISHED", "RELEASING"}) {
		t.Errorf("statusIn = %v, want [FINISHED RELEASING]", got)
	}
	if got := vars["sort"]; !reflect.DeepEqual(got, []interface{}{"POPULARITY_DESC"}) {
		t.Errorf("sort = %v, want [POPULARITY_DESC]", got)
	}
}

// Stories: every relation except SEQUEL, CHARACTER and OTHER.
func TestBuildStoriesKeepsNonSequelRelations(t *testing.T) {
	f := newFakeAniList(t)
	f.lists = []map[string]interface{}{
		{"status": "COMPLETED", "entries": []map[string]interface{}{
			listEntry(mediaObj(10, "Finished Show", map[string]interface{}{
				"relations": relationEdges(
					[2]interface{}{"SEQUEL", 11},
					[2]interface{}{"SIDE_STORY", 13},
					[2]interface{}{"CHARACTER", 14},
					[2]interface{}{"PREQUEL", 15},
					[2]interface{}{"OTHER", 16},
				),
			}), 12, 400),
		}},
	}
	f.browse = func(vars map[string]interface{}) []map[string]interface{} {
		var page []map[string]interface{}
		for _, raw := range vars["idIn"].([]interface{}) {
			id := int64(raw.(float64))
			page = append(page, mediaObj(id, fmt.Sprintf("Title %d", id), nil))
		}
		return page
	}

	b := NewCatalogBuilder(f.client())
	b.Build(context.Background(), "STORIES", "tok")

	// ids sorted ascending for a stable cache key
	want := []interface{}{float64(13), float64(15)}
	if got := f.lastBrowseVars()["idIn"]; !reflect.DeepEqual(got, want) {
		t.Errorf("idIn = %v, want %v", got, want)
	}
}

func TestBuildGenreCatalog(t *testing.T) {
	f := newFakeAniList(t)

	b := NewCatalogBuilder(f.client())
	b.Build(context.Background(), "ROMANCE", "")

	vars := f.lastBrowseVars()
	if vars == nil {
		t.Fatal("no browse query issued")
	}
	if got := vars["genre"]; got != "Romance" {
		t.Errorf("genre = %v, want Romance", got)
	}
	if got := vars["sort"]; !reflect.DeepEqual(got, []interface{}{"TRENDING_DESC"}) {
		t.Errorf("sort = %v, want [TRENDING_DESC]", got)
	}
}

func TestBuildPopularSeasonalFilter(t *testing.T) {
	f := newFakeAniList(t)

	b := NewCatalogBuilder(f.client())
	b.Build(context.Background(), "POPULAR", "")

	vars := f.lastBrowseVars()
	if vars == nil {
		t.Fatal("no browse query issued")
	}

	wantSeason, wantYear := currentSeason(time.Now())
	if got := vars["season"]; got != wantSeason {
		t.Errorf("season = %v, want %v", got, wantSeason)
	}
	if got := vars["seasonYear"]; got != float64(wantYear) {
		t.Errorf("seasonYear = %v, want %d", got, wantYear)
	}
	if got := vars["formatNot"]; got != "MUSIC" {
		t.Errorf("formatNot = %v, want MUSIC", got)
	}
	if got := vars["sort"]; !reflect.DeepEqual(got, []interface{}{"POPULARITY_DESC"}) {
		t.Errorf("sort = %v, want [POPULARITY_DESC]", got)
	}
}

// A failed build degrades to an empty page; the handler never sees an error.
func TestBuildDegradesToEmptyPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down for maintenance", http.StatusInternalServerError)
	}))
	defer srv.Close()

	b := NewCatalogBuilder(newTestClient(srv.URL))
	metas := b.Build(context.Background(), "TRENDING", "")
	if len(metas) != 0 {
		t.Errorf("Build() against failing upstream = %d entries, want 0", len(metas))
	}
}

func TestBuildMeta(t *testing.T) {
	f := newFakeAniList(t)
	f.media[42] = mediaObj(42, "Single Title", map[string]interface{}{
		"format":       "MOVIE",
		"averageScore": 84,
		"duration":     110,
	})

	b := NewCatalogBuilder(f.client())
	meta, err := b.BuildMeta(context.Background(), 42, "")
	if err != nil {
		t.Fatalf("BuildMeta() error = %v", err)
	}
	if meta == nil {
		t.Fatal("BuildMeta() = nil, want meta")
	}

	if meta.ID != "anilist:42" {
		t.Errorf("ID = %q, want anilist:42", meta.ID)
	}
	if meta.Type != "movie" {
		t.Errorf("Type = %q, want movie", meta.Type)
	}
	if meta.IMDBRating != "8.4" {
		t.Errorf("IMDBRating = %q, want 8.4", meta.IMDBRating)
	}
	if meta.Runtime != "110 min" {
		t.Errorf("Runtime = %q, want %q", meta.Runtime, "110 min")
	}
}

func TestNormalize(t *testing.T) {
	score := 73
	entry := models.MediaEntry{
		ID:              9,
		Format:          models.FormatTV,
		Title:           "Some Show",
		CoverImage:      "https://img.example/9.jpg",
		Status:          models.StatusReleasing,
		StartDate:       &models.FuzzyDate{Year: 2023},
		AverageScore:    &score,
		DurationMinutes: 24,
	}

	meta := Normalize(&entry)

	if meta.ID != "anilist:9" {
		t.Errorf("ID = %q, want anilist:9", meta.ID)
	}
	if meta.Type != "series" {
		t.Errorf("Type = %q, want series", meta.Type)
	}
	if meta.ReleaseInfo != "2023-" {
		t.Errorf("ReleaseInfo = %q, want 2023-", meta.ReleaseInfo)
	}
	if meta.IMDBRating != "7.3" {
		t.Errorf("IMDBRating = %q, want 7.3", meta.IMDBRating)
	}
	if meta.Runtime != "24 min" {
		t.Errorf("Runtime = %q, want %q", meta.Runtime, "24 min")
	}
}

func TestReleasePeriod(t *testing.T) {
	tests := []struct {
		name   string
		format models.MediaFormat
		status models.MediaStatus
		start  int
		end    int
		want   string
	}{
		{"no start date", models.FormatTV, models.StatusFinished, 0, 0, "Unknown"},
		{"movie single year", models.FormatMovie, models.StatusFinished, 2019, 2019, "2019"},
		{"releasing open ended", models.FormatTV, models.StatusReleasing, 2022, 0, "2022-"},
		{"finished same year", models.FormatTV, models.StatusFinished, 2020, 2020, "2020"},
		{"finished span", models.FormatTV, models.StatusFinished, 2018, 2021, "2018-2021"},
		{"finished no end", models.FormatTV, models.StatusFinished, 2018, 0, "2018"},
		{"upcoming", models.FormatTV, models.StatusNotYetReleased, 2027, 0, "Coming 2027"},
		{"cancelled", models.FormatTV, models.StatusCancelled, 2016, 0, "Cancelled (2016)"},
		{"hiatus single", models.FormatTV, models.StatusHiatus, 2015, 0, "On Hiatus (2015)"},
		{"hiatus span", models.FormatTV, models.StatusHiatus, 2015, 2017, "On Hiatus (2015-2017)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := models.MediaEntry{Format: tt.format, Status: tt.status}
			if tt.start != 0 {
				m.StartDate = &models.FuzzyDate{Year: tt.start}
			}
			if tt.end != 0 {
				m.EndDate = &models.FuzzyDate{Year: tt.end}
			}
			if got := releasePeriod(&m); got != tt.want {
				t.Errorf("releasePeriod() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatScore(t *testing.T) {
	tests := []struct {
		score int
		want  string
	}{
		{0, "0.0"},
		{73, "7.3"},
		{85, "8.5"},
		{100, "10.0"},
		{-5, "0.0"},
		{140, "10.0"},
	}

	for _, tt := range tests {
		if got := formatScore(tt.score); got != tt.want {
			t.Errorf("formatScore(%d) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestCurrentSeason(t *testing.T) {
	tests := []struct {
		month time.Month
		want  string
	}{
		{time.January, "WINTER"},
		{time.March, "WINTER"},
		{time.April, "SPRING"},
		{time.June, "SPRING"},
		{time.July, "SUMMER"},
		{time.September, "SUMMER"},
		{time.October, "FALL"},
		{time.December, "FALL"},
	}

	for _, tt := range tests {
		at := time.Date(2026, tt.month, 15, 0, 0, 0, 0, time.UTC)
		season, year := currentSeason(at)
		if season != tt.want {
			t.Errorf("currentSeason(%s) = %q, want %q", tt.month, season, tt.want)
		}
		if year != 2026 {
			t.Errorf("currentSeason(%s) year = %d, want 2026", tt.month, year)
		}
	}
}
