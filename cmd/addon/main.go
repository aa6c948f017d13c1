// Synkuru - AniList Watch-List Sync and Catalog Engine for Stremio
// Copyright 2026 Ju1-js
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ju1-js/synkuru

// Package main is the entry point for the Synkuru addon server.
//
// Synkuru is a self-hosted Stremio addon that surfaces a user's AniList
// watch lists as catalogs and records watched episodes back to AniList.
// The server initializes components in the following order:
//
//  1. Configuration: layered Koanf v2 sources (defaults, YAML file, env)
//  2. Logging: zerolog global logger
//  3. Id-mapping store: DuckDB cross-reference table
//  4. AniList client: rate-limited transport + response cache
//  5. HTTP server: Chi router serving the Stremio resources
//
// The server handles graceful shutdown on SIGINT and SIGTERM: it stops
// accepting new connections, waits up to 10 s for in-flight requests, then
// closes the id-mapping store.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ju1-js/synkuru/internal/anilist"
	"github.com/ju1-js/synkuru/internal/api"
	"github.com/ju1-js/synkuru/internal/config"
	"github.com/ju1-js/synkuru/internal/idmap"
	"github.com/ju1-js/synkuru/internal/logging"
	"github.com/ju1-js/synkuru/internal/metadata"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Str("anilist_endpoint", cfg.AniList.Endpoint).
		Msg("Starting Synkuru")

	store, err := idmap.NewStore(cfg.Database.Path)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open id-mapping store")
	}

	mapper := idmap.NewARMClient(cfg.Mapping.URL)
	resolver := idmap.NewResolver(store, mapper)
	defer func() {
		if err := resolver.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing id-mapping store")
		}
	}()

	transport := anilist.NewTransport(anilist.TransportConfig{
		MaxConcurrent: cfg.AniList.MaxConcurrent,
		WindowLimit:   cfg.AniList.WindowLimit,
		Window:        cfg.AniList.Window,
		MinSpacing:    cfg.AniList.MinSpacing,
		MaxAttempts:   cfg.AniList.MaxAttempts,
		Timeout:       cfg.AniList.Timeout,
	})
	client := anilist.NewClient(anilist.ClientConfig{
		Endpoint: cfg.AniList.Endpoint,
		CacheTTL: cfg.AniList.CacheTTL,
	}, transport)

	builder := anilist.NewCatalogBuilder(client)
	progressSync := anilist.NewProgressSync(client)
	cinemeta := metadata.NewCinemetaClient(cfg.Cinemeta.URL)
	artwork := metadata.NewArtworkClient(cfg.Artwork.URL)
	if artwork.Enabled() {
		logging.Info().Str("url", cfg.Artwork.URL).Msg("Artwork service enabled")
	}

	handler := api.NewHandler(builder, progressSync, resolver, cinemeta, artwork)
	router := api.NewRouter(cfg.Server, handler)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  2 * cfg.Server.Timeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		errCh <- server.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("HTTP server failed")
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("Graceful shutdown failed, forcing close")
		_ = server.Close()
	}

	logging.Info().Msg("Application stopped gracefully")
}
