// Synkuru - AniList Watch-List Sync and Catalog Engine for Stremio
// Copyright 2026 Ju1-js
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ju1-js/synkuru

// Package idmap resolves identifiers between the AniList namespace and the
// four foreign namespaces Stremio hands us (Kitsu, IMDB, TheTVDB,
// TheMovieDB), backed by an in-memory LRU over a persistent DuckDB
// cross-reference table.
package idmap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/duckdb/duckdb-go/v2"
)

// Namespace is one of the identifier spaces the resolver understands.
type Namespace string

const (
	NamespaceAniList    Namespace = "anilist"
	NamespaceKitsu      Namespace = "kitsu"
	NamespaceIMDB       Namespace = "imdb"
	NamespaceTheTVDB    Namespace = "thetvdb"
	NamespaceTheMovieDB Namespace = "themoviedb"
)

// foreignColumns allowlists the columns a namespace may touch. Column names
// are interpolated into SQL, so only values from this map are ever used.
var foreignColumns = map[Namespace]string{
	NamespaceKitsu:      "kitsu",
	NamespaceIMDB:       "imdb",
	NamespaceTheTVDB:    "thetvdb",
	NamespaceTheMovieDB: "themoviedb",
}

// ErrUnknownNamespace is returned for a namespace with no backing column.
var ErrUnknownNamespace = errors.New("idmap: unknown namespace")

const schema = `
CREATE TABLE IF NOT EXISTS ids (
	anilist BIGINT PRIMARY KEY,
	kitsu BIGINT,
	imdb BIGINT,
	thetvdb BIGINT,
	themoviedb BIGINT
)`

// Store is the persistent cross-reference table: one row per AniList id,
// nullable columns for each foreign namespace. It is the engine's only
// durable state and is owned exclusively by the resolver.
type Store struct {
	conn *sql.DB
}

// NewStore opens (creating if needed) the DuckDB file and its schema.
func NewStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", dir, err)
		}
	}

	conn, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open id-mapping database: %w", err)
	}

	if _, err := conn.Exec(schema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("initialize id-mapping schema: %w", err)
	}

	return &Store{conn: conn}, nil
}

// Lookup finds the AniList id whose row carries foreignID in the given
// namespace's column. Absence is not an error.
func (s *Store) Lookup(ctx context.Context, source Namespace, foreignID int64) (int64, bool, error) {
	column, ok := foreignColumns[source]
	if !ok {
		return 0, false, fmt.Errorf("%w: %s", ErrUnknownNamespace, source)
	}

	query := fmt.Sprintf("SELECT anilist FROM ids WHERE %s = ? LIMIT 1", column)
	var anilistID int64
	err := s.conn.QueryRowContext(ctx, query, foreignID).Scan(&anilistID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("lookup %s mapping: %w", source, err)
	}
	return anilistID, true, nil
}

// Save upserts one mapping. A single atomic statement keyed on the AniList
// id, so concurrent resolutions for different namespaces on the same title
// cannot lose each other's columns.
func (s *Store) Save(ctx context.Context, anilistID int64, source Namespace, foreignID int64) error {
	column, ok := foreignColumns[source]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNamespace, source)
	}

	stmt := fmt.Sprintf(
		"INSERT INTO ids (anilist, %s) VALUES (?, ?) ON CONFLICT (anilist) DO UPDATE SET %s = excluded.%s",
		column, column, column)
	if _, err := s.conn.ExecContext(ctx, stmt, anilistID, foreignID); err != nil {
		return fmt.Errorf("save %s mapping: %w", source, err)
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.conn.Close()
}
