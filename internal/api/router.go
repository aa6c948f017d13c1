// Synkuru - AniList Watch-List Sync and Catalog Engine for Stremio
// Copyright 2026 Ju1-js
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ju1-js/synkuru

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ju1-js/synkuru/internal/config"
	"github.com/ju1-js/synkuru/internal/logging"
	"github.com/ju1-js/synkuru/internal/metrics"
)

// NewRouter assembles the addon's HTTP surface. Every Stremio resource is a
// GET; CORS is wide open by default since Stremio clients call addons
// cross-origin.
func NewRouter(cfg config.ServerConfig, h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         86400,
	}))
	if cfg.RateLimitReqs > 0 {
		r.Use(httprate.LimitByRealIP(cfg.RateLimitReqs, cfg.RateLimitWindow))
	}

	r.Get("/health", h.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Get("/manifest.json", h.Manifest)
	r.Route("/{userConfig}", func(r chi.Router) {
		r.Get("/manifest.json", h.Manifest)
		r.Get("/catalog/{type}/{catalogID}.json", h.Catalog)
		r.Get("/catalog/{type}/{catalogID}/{extra}.json", h.Catalog)
		r.Get("/meta/{type}/{id}.json", h.Meta)
		r.Get("/subtitles/{type}/{id}.json", h.Subtitles)
		r.Get("/subtitles/{type}/{id}/{extra}.json", h.Subtitles)
	})

	return r
}

// requestLogger records one structured log line and the HTTP metrics pair
// per request, labeled by the matched route pattern rather than the raw
// path so user config segments and tokens never reach the metrics store.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		status := ww.Status()
		duration := time.Since(start)

		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(route).Observe(duration.Seconds())

		logging.Debug().
			Str("method", r.Method).
			Str("route", route).
			Int("status", status).
			Dur("duration", duration).
			Int("bytes", ww.BytesWritten()).
			Msg("Request handled")
	})
}
