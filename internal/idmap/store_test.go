// Synkuru - AniList Watch-List Sync and Catalog Engine for Stremio
// Copyright 2026 Ju1-js
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ju1-js/synkuru

package idmap

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "ids.duckdb"))
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreSaveAndLookup(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, 100, NamespaceKitsu, 5); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	anilistID, found, err := store.Lookup(ctx, NamespaceKitsu, 5)
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if !found || anilistID != 100 {
		t.Errorf("Lookup() = %d, %v; want 100, true", anilistID, found)
	}
}

func TestStoreLookupMissIsNotAnError(t *testing.T) {
	store := newTestStore(t)

	anilistID, found, err := store.Lookup(context.Background(), NamespaceIMDB, 42)
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if found || anilistID != 0 {
		t.Errorf("Lookup() = %d, %v; want 0, false", anilistID, found)
	}
}

// Repeating the same save must not error or duplicate; the upsert is
// idempotent.
func TestStoreSaveIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := store.Save(ctx, 100, NamespaceKitsu, 5); err != nil {
			t.Fatalf("Save() attempt %d error = %v", i, err)
		}
	}

	anilistID, found, err := store.Lookup(ctx, NamespaceKitsu, 5)
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if !found || anilistID != 100 {
		t.Errorf("Lookup() = %d, %v; want 100, true", anilistID, found)
	}
}

// Saves for different namespaces of the same title merge into one row; a
// later save must not blank the other columns.
func TestStoreMergesNamespacesPerTitle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, 100, NamespaceKitsu, 5); err != nil {
		t.Fatalf("Save(kitsu) error = %v", err)
	}
	if err := store.Save(ctx, 100, NamespaceIMDB, 944947); err != nil {
		t.Fatalf("Save(imdb) error = %v", err)
	}

	for _, tc := range []struct {
		source Namespace
		id     int64
	}{
		{NamespaceKitsu, 5},
		{NamespaceIMDB, 944947},
	} {
		anilistID, found, err := store.Lookup(ctx, tc.source, tc.id)
		if err != nil {
			t.Fatalf("Lookup(%s) error = %v", tc.source, err)
		}
		if !found || anilistID != 100 {
			t.Errorf("Lookup(%s) = %d, %v; want 100, true", tc.source, anilistID, found)
		}
	}
}

func TestStoreSaveUpdatesMapping(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, 100, NamespaceKitsu, 5); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Save(ctx, 100, NamespaceKitsu, 6); err != nil {
		t.Fatalf("Save() update error = %v", err)
	}

	if _, found, _ := store.Lookup(ctx, NamespaceKitsu, 5); found {
		t.Error("stale kitsu mapping still resolves")
	}
	anilistID, found, _ := store.Lookup(ctx, NamespaceKitsu, 6)
	if !found || anilistID != 100 {
		t.Errorf("Lookup(6) = %d, %v; want 100, true", anilistID, found)
	}
}

func TestStoreRejectsUnknownNamespace(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, _, err := store.Lookup(ctx, Namespace("bogus"), 1); !errors.Is(err, ErrUnknownNamespace) {
		t.Errorf("Lookup() error = %v, want ErrUnknownNamespace", err)
	}
	if err := store.Save(ctx, 1, Namespace("bogus"), 1); !errors.Is(err, ErrUnknownNamespace) {
		t.Errorf("Save() error = %v, want ErrUnknownNamespace", err)
	}

	// The anilist namespace is the primary key, not a foreign column.
	if _, _, err := store.Lookup(ctx, NamespaceAniList, 1); !errors.Is(err, ErrUnknownNamespace) {
		t.Errorf("Lookup(anilist) error = %v, want ErrUnknownNamespace", err)
	}
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ids.duckdb")
	ctx := context.Background()

	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if err := store.Save(ctx, 100, NamespaceTheTVDB, 7); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore() reopen error = %v", err)
	}
	defer func() { _ = reopened.Close() }()

	anilistID, found, err := reopened.Lookup(ctx, NamespaceTheTVDB, 7)
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if !found || anilistID != 100 {
		t.Errorf("Lookup() after reopen = %d, %v; want 100, true", anilistID, found)
	}
}
