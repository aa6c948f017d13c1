// Synkuru - AniList Watch-List Sync and Catalog Engine for Stremio
// Copyright 2026 Ju1-js
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ju1-js/synkuru

package anilist

import (
	"github.com/ju1-js/synkuru/internal/models"
)

// Wire-level response shapes. These are decoded from loosely-typed GraphQL
// documents and immediately converted into the typed models the rest of the
// engine works with.

type mediaTitle struct {
	UserPreferred string `json:"userPreferred"`
	Romaji        string `json:"romaji"`
}

type mediaCoverImage struct {
	ExtraLarge string `json:"extraLarge"`
	Large      string `json:"large"`
	Medium     string `json:"medium"`
}

type relationNode struct {
	ID int64 `json:"id"`
}

type relationEdge struct {
	RelationType string       `json:"relationType"`
	Node         relationNode `json:"node"`
}

type mediaRelations struct {
	Edges []relationEdge `json:"edges"`
}

type listEntryNode struct {
	ID       int64  `json:"id"`
	Progress int    `json:"progress"`
	Status   string `json:"status"`
}

type mediaNode struct {
	ID              int64             `json:"id"`
	Format          string            `json:"format"`
	Title           mediaTitle        `json:"title"`
	CoverImage      mediaCoverImage   `json:"coverImage"`
	BannerImage     string            `json:"bannerImage"`
	Description     string            `json:"description"`
	Genres          []string          `json:"genres"`
	Status          string            `json:"status"`
	StartDate       *models.FuzzyDate `json:"startDate"`
	EndDate         *models.FuzzyDate `json:"endDate"`
	AverageScore    *int              `json:"averageScore"`
	Episodes        *int              `json:"episodes"`
	Duration        int               `json:"duration"`
	CountryOfOrigin string            `json:"countryOfOrigin"`
	SiteURL         string            `json:"siteUrl"`
	Relations       *mediaRelations   `json:"relations"`
	MediaListEntry  *listEntryNode    `json:"mediaListEntry"`
}

// toModel converts a wire node into the typed immutable snapshot.
func (n *mediaNode) toModel() models.MediaEntry {
	title := n.Title.UserPreferred
	if title == "" {
		title = n.Title.Romaji
	}

	cover := n.CoverImage.ExtraLarge
	if cover == "" {
		cover = n.CoverImage.Large
	}
	if cover == "" {
		cover = n.CoverImage.Medium
	}

	entry := models.MediaEntry{
		ID:              n.ID,
		Format:          models.MediaFormat(n.Format),
		Title:           title,
		CoverImage:      cover,
		BannerImage:     n.BannerImage,
		Description:     n.Description,
		Genres:          n.Genres,
		Status:          models.MediaStatus(n.Status),
		StartDate:       n.StartDate,
		EndDate:         n.EndDate,
		AverageScore:    n.AverageScore,
		Episodes:        n.Episodes,
		DurationMinutes: n.Duration,
		CountryOfOrigin: n.CountryOfOrigin,
		SiteURL:         n.SiteURL,
	}

	if n.Relations != nil {
		entry.Relations = make([]models.RelationEdge, 0, len(n.Relations.Edges))
		for _, edge := range n.Relations.Edges {
			entry.Relations = append(entry.Relations, models.RelationEdge{
				Type:     models.RelationType(edge.RelationType),
				TargetID: edge.Node.ID,
			})
		}
	}

	return entry
}

type viewerData struct {
	Viewer struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"Viewer"`
}

type listCollectionData struct {
	MediaListCollection struct {
		Lists []struct {
			Status  string `json:"status"`
			Entries []struct {
				Progress  int       `json:"progress"`
				UpdatedAt int64     `json:"updatedAt"`
				Media     mediaNode `json:"media"`
			} `json:"entries"`
		} `json:"lists"`
	} `json:"MediaListCollection"`
}

type pageData struct {
	Page struct {
		Media []mediaNode `json:"media"`
	} `json:"Page"`
}

type mediaData struct {
	Media *mediaNode `json:"Media"`
}

type saveEntryData struct {
	SaveMediaListEntry struct {
		ID       int64  `json:"id"`
		Progress int    `json:"progress"`
		Status   string `json:"status"`
	} `json:"SaveMediaListEntry"`
}
