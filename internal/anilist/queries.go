// Synkuru - AniList Watch-List Sync and Catalog Engine for Stremio
// Copyright 2026 Ju1-js
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ju1-js/synkuru

package anilist

// GraphQL operation texts. All media selections share mediaFields so every
// node deserializes into the same typed snapshot.

const mediaFields = `
	id
	format
	title { userPreferred romaji }
	coverImage { extraLarge large medium }
	bannerImage
	description
	genres
	status
	startDate { year month day }
	endDate { year month day }
	averageScore
	episodes
	duration
	countryOfOrigin
	siteUrl
	relations {
		edges {
			relationType
			node { id }
		}
	}
`

// viewerQuery resolves the authenticated user.
const viewerQuery = `
query {
	Viewer { id name }
}`

// listCollectionQuery fetches the user's complete anime list collection,
// grouped by status. Fetched once per catalog build that needs it and
// filtered client-side.
const listCollectionQuery = `
query ($userId: Int) {
	MediaListCollection(userId: $userId, type: ANIME) {
		lists {
			status
			entries {
				progress
				updatedAt
				media {` + mediaFields + `}
			}
		}
	}
}`

// browseQuery is the generic discovery query: sort order, optional genre,
// optional season/year pair, optional id and status restriction, and a
// format exclusion for the seasonal view.
const browseQuery = `
query ($page: Int, $perPage: Int, $sort: [MediaSort], $genre: String, $season: MediaSeason, $seasonYear: Int, $idIn: [Int], $statusIn: [MediaStatus], $formatNot: MediaFormat) {
	Page(page: $page, perPage: $perPage) {
		media(type: ANIME, sort: $sort, genre: $genre, season: $season, seasonYear: $seasonYear, id_in: $idIn, status_in: $statusIn, format_not: $formatNot) {` + mediaFields + `}
	}
}`

// searchQuery resolves a free-text title to at most one best-match
// candidate, including the caller's list entry when one exists.
const searchQuery = `
query ($search: String, $page: Int, $perPage: Int) {
	Page(page: $page, perPage: $perPage) {
		media(type: ANIME, search: $search) {
			id
			episodes
			mediaListEntry { id progress status }
		}
	}
}`

// mediaWithEntryQuery fetches one title along with the caller's list entry.
// It selects the full field set so the progress sync and the meta resource
// share one cached response per title.
const mediaWithEntryQuery = `
query ($id: Int) {
	Media(id: $id, type: ANIME) {` + mediaFields + `
		mediaListEntry { id progress status }
	}
}`

// saveEntryMutation records watch progress, creating the list entry when
// the user has none.
const saveEntryMutation = `
mutation ($mediaId: Int, $progress: Int, $status: MediaListStatus) {
	SaveMediaListEntry(mediaId: $mediaId, progress: $progress, status: $status) {
		id
		progress
		status
	}
}`

// pageVars returns the default pagination variables every paged query
// starts from.
func pageVars() map[string]interface{} {
	return map[string]interface{}{
		"page":    1,
		"perPage": 50,
	}
}
