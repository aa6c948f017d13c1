// Synkuru - AniList Watch-List Sync and Catalog Engine for Stremio
// Copyright 2026 Ju1-js
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ju1-js/synkuru

// Package models defines the typed domain model shared across Synkuru:
// AniList media snapshots, list entries, and the Stremio-facing catalog
// meta shape produced by the catalog builder.
package models

// MediaFormat is the AniList media format (TV, MOVIE, OVA, ...).
type MediaFormat string

// AniList media formats. Only MOVIE changes how an entry is presented;
// everything else maps to a Stremio "series".
const (
	FormatTV      MediaFormat = "TV"
	FormatTVShort MediaFormat = "TV_SHORT"
	FormatMovie   MediaFormat = "MOVIE"
	FormatSpecial MediaFormat = "SPECIAL"
	FormatOVA     MediaFormat = "OVA"
	FormatONA     MediaFormat = "ONA"
	FormatMusic   MediaFormat = "MUSIC"
)

// MediaStatus is the AniList airing status of a title.
type MediaStatus string

const (
	StatusReleasing      MediaStatus = "RELEASING"
	StatusFinished       MediaStatus = "FINISHED"
	StatusNotYetReleased MediaStatus = "NOT_YET_RELEASED"
	StatusCancelled      MediaStatus = "CANCELLED"
	StatusHiatus         MediaStatus = "HIATUS"
)

// RelationType is a typed edge between two titles in AniList's relation graph.
type RelationType string

const (
	RelationSequel      RelationType = "SEQUEL"
	RelationPrequel     RelationType = "PREQUEL"
	RelationSideStory   RelationType = "SIDE_STORY"
	RelationParent      RelationType = "PARENT"
	RelationSpinOff     RelationType = "SPIN_OFF"
	RelationAlternative RelationType = "ALTERNATIVE"
	RelationAdaptation  RelationType = "ADAPTATION"
	RelationCharacter   RelationType = "CHARACTER"
	RelationSummary     RelationType = "SUMMARY"
	RelationOther       RelationType = "OTHER"
)

// ListStatus is the AniList media list status for a user's entry.
type ListStatus string

const (
	ListCurrent   ListStatus = "CURRENT"
	ListPlanning  ListStatus = "PLANNING"
	ListCompleted ListStatus = "COMPLETED"
	ListDropped   ListStatus = "DROPPED"
	ListPaused    ListStatus = "PAUSED"
	ListRepeating ListStatus = "REPEATING"
)

// FuzzyDate is AniList's partial date; any component may be zero (unknown).
type FuzzyDate struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

// IsZero reports whether no component of the date is known.
func (d *FuzzyDate) IsZero() bool {
	return d == nil || (d.Year == 0 && d.Month == 0 && d.Day == 0)
}

// RelationEdge is a single typed link from one title to another.
type RelationEdge struct {
	Type     RelationType
	TargetID int64
}

// MediaEntry is an immutable snapshot of one AniList title. It is fetched
// per request and never persisted; the response cache's TTL is the only
// retention it gets.
type MediaEntry struct {
	ID              int64
	Format          MediaFormat
	Title           string
	CoverImage      string
	BannerImage     string
	Description     string
	Genres          []string
	Status          MediaStatus
	StartDate       *FuzzyDate
	EndDate         *FuzzyDate
	AverageScore    *int // 0-100, nil when AniList has no score yet
	Episodes        *int // nil while the episode count is unannounced
	DurationMinutes int
	CountryOfOrigin string
	SiteURL         string
	Relations       []RelationEdge
}

// IsMovie reports whether the entry presents as a Stremio movie.
func (m *MediaEntry) IsMovie() bool {
	return m.Format == FormatMovie
}

// ListEntry is one row of a user's media list: the media snapshot plus the
// user's own progress state.
type ListEntry struct {
	Media     MediaEntry
	Status    ListStatus
	Progress  int
	UpdatedAt int64 // unix seconds, AniList updatedAt
}

// UserListSnapshot groups a user's list entries by status. Produced fresh
// per catalog build; never persisted.
type UserListSnapshot struct {
	UserID int64
	Lists  map[ListStatus][]ListEntry
}

// TrackedIDs returns the set of media ids present on any of the given lists.
func (s *UserListSnapshot) TrackedIDs(statuses ...ListStatus) map[int64]struct{} {
	ids := make(map[int64]struct{})
	for _, status := range statuses {
		for _, entry := range s.Lists[status] {
			ids[entry.Media.ID] = struct{}{}
		}
	}
	return ids
}

// CatalogMeta is the normalized catalog entry handed to the Stremio addon
// layer. Field names follow the Stremio meta preview object.
type CatalogMeta struct {
	ID          string   `json:"id"`
	Type        string   `json:"type"`
	Name        string   `json:"name"`
	Poster      string   `json:"poster,omitempty"`
	Background  string   `json:"background,omitempty"`
	Logo        string   `json:"logo,omitempty"`
	Description string   `json:"description,omitempty"`
	Genres      []string `json:"genres,omitempty"`
	ReleaseInfo string   `json:"releaseInfo,omitempty"`
	IMDBRating  string   `json:"imdbRating,omitempty"`
	Runtime     string   `json:"runtime,omitempty"`
	Website     string   `json:"website,omitempty"`
}
