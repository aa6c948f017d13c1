// Synkuru - AniList Watch-List Sync and Catalog Engine for Stremio
// Copyright 2026 Ju1-js
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ju1-js/synkuru

package idmap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestARMClientLookupHit(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"anilist":5114,"kitsu":7442}`))
	}))
	defer srv.Close()

	c := NewARMClient(srv.URL)
	anilistID, found, err := c.Lookup(context.Background(), NamespaceKitsu, "7442")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if !found || anilistID != 5114 {
		t.Errorf("Lookup() = %d, %v; want 5114, true", anilistID, found)
	}

	want := "id=7442&include=anilist&source=kitsu"
	if gotQuery != want {
		t.Errorf("query = %q, want %q", gotQuery, want)
	}
}

// The service answers 404 for ids it has never seen: a miss, not a failure.
func TestARMClientLookup404IsMiss(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := NewARMClient(srv.URL)
	anilistID, found, err := c.Lookup(context.Background(), NamespaceIMDB, "tt1")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if found || anilistID != 0 {
		t.Errorf("Lookup() = %d, %v; want 0, false", anilistID, found)
	}
}

// A null body or a mapping without the anilist key is also a miss.
func TestARMClientLookupNullBodyIsMiss(t *testing.T) {
	bodies := []string{`null`, `{"kitsu":7442}`, `{"anilist":null}`}

	for _, body := range bodies {
		body := body
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(body))
		}))

		c := NewARMClient(srv.URL)
		anilistID, found, err := c.Lookup(context.Background(), NamespaceKitsu, "7442")
		srv.Close()

		if err != nil {
			t.Fatalf("Lookup() with body %q error = %v", body, err)
		}
		if found || anilistID != 0 {
			t.Errorf("Lookup() with body %q = %d, %v; want 0, false", body, anilistID, found)
		}
	}
}

func TestARMClientLookupServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "oops", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewARMClient(srv.URL)
	if _, _, err := c.Lookup(context.Background(), NamespaceKitsu, "7442"); err == nil {
		t.Error("Lookup() against failing service did not error")
	}
}
