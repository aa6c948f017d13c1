// Synkuru - AniList Watch-List Sync and Catalog Engine for Stremio
// Copyright 2026 Ju1-js
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ju1-js/synkuru

// Package config loads and validates the addon configuration from layered
// sources: built-in defaults, an optional YAML file, then environment
// variables.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the addon process.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	AniList  AniListConfig  `koanf:"anilist"`
	Database DatabaseConfig `koanf:"database"`
	Mapping  MappingConfig  `koanf:"mapping"`
	Cinemeta CinemetaConfig `koanf:"cinemeta"`
	Artwork  ArtworkConfig  `koanf:"artwork"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig configures the addon HTTP listener.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Timeout         time.Duration `koanf:"timeout"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// AniListConfig configures the GraphQL client and its transport budget.
// The defaults track AniList's published limits with headroom; raising them
// past the documented quota only earns 429s.
type AniListConfig struct {
	Endpoint      string        `koanf:"endpoint"`
	CacheTTL      time.Duration `koanf:"cache_ttl"`
	MaxConcurrent int           `koanf:"max_concurrent"`
	WindowLimit   int           `koanf:"window_limit"`
	Window        time.Duration `koanf:"window"`
	MinSpacing    time.Duration `koanf:"min_spacing"`
	MaxAttempts   int           `koanf:"max_attempts"`
	Timeout       time.Duration `koanf:"timeout"`
}

// DatabaseConfig configures the persistent id-mapping store.
type DatabaseConfig struct {
	Path string `koanf:"path"`
}

// MappingConfig configures the external id-mapping service.
type MappingConfig struct {
	URL string `koanf:"url"`
}

// CinemetaConfig configures the Cinemeta title-lookup endpoint.
type CinemetaConfig struct {
	URL string `koanf:"url"`
}

// ArtworkConfig configures the optional logo/artwork service. An empty URL
// disables it.
type ArtworkConfig struct {
	URL string `koanf:"url"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks ranges and enumerations. It is called by LoadWithKoanf;
// callers constructing a Config by hand should call it themselves.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive, got %s", c.Server.Timeout)
	}
	if c.Server.RateLimitReqs < 0 {
		return fmt.Errorf("server.rate_limit_reqs must not be negative, got %d", c.Server.RateLimitReqs)
	}

	if c.AniList.Endpoint == "" {
		return fmt.Errorf("anilist.endpoint must not be empty")
	}
	if c.AniList.CacheTTL <= 0 {
		return fmt.Errorf("anilist.cache_ttl must be positive, got %s", c.AniList.CacheTTL)
	}
	if c.AniList.MaxConcurrent < 1 {
		return fmt.Errorf("anilist.max_concurrent must be at least 1, got %d", c.AniList.MaxConcurrent)
	}
	if c.AniList.WindowLimit < 1 {
		return fmt.Errorf("anilist.window_limit must be at least 1, got %d", c.AniList.WindowLimit)
	}
	if c.AniList.Window <= 0 {
		return fmt.Errorf("anilist.window must be positive, got %s", c.AniList.Window)
	}
	if c.AniList.MinSpacing < 0 {
		return fmt.Errorf("anilist.min_spacing must not be negative, got %s", c.AniList.MinSpacing)
	}
	if c.AniList.MaxAttempts < 1 {
		return fmt.Errorf("anilist.max_attempts must be at least 1, got %d", c.AniList.MaxAttempts)
	}
	if c.AniList.Timeout <= 0 {
		return fmt.Errorf("anilist.timeout must be positive, got %s", c.AniList.Timeout)
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path must not be empty")
	}

	switch c.Logging.Level {
	case "trace", "debug", "info", "warn", "error", "fatal":
	default:
		return fmt.Errorf("logging.level must be one of trace/debug/info/warn/error/fatal, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}

	return nil
}
