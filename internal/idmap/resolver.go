// Synkuru - AniList Watch-List Sync and Catalog Engine for Stremio
// Copyright 2026 Ju1-js
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ju1-js/synkuru

package idmap

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ju1-js/synkuru/internal/cache"
	"github.com/ju1-js/synkuru/internal/logging"
	"github.com/ju1-js/synkuru/internal/metrics"
)

// resolverCacheSize bounds the in-memory layer; entries never expire, the
// LRU evicts once full.
const resolverCacheSize = 10000

// Resolver maps a foreign identifier into the AniList namespace.
//
// Lookup order: in-memory LRU, persistent store, external mapping service.
// Hits from the outer layers are written back inward before returning. A
// miss is represented as absence, never cached, so later calls retry.
// Concurrent resolutions of the same id are not deduplicated here; the
// external service and the store upsert are both idempotent.
type Resolver struct {
	memory *cache.LRU[int64]
	store  *Store
	mapper MappingClient
}

// NewResolver creates a resolver over the persistent store and mapping
// service client.
func NewResolver(store *Store, mapper MappingClient) *Resolver {
	return &Resolver{
		memory: cache.NewLRU[int64](resolverCacheSize),
		store:  store,
		mapper: mapper,
	}
}

// Resolve returns the AniList id for a foreign id, or found=false when no
// mapping exists anywhere. Store failures propagate: swallowing them here
// would poison future lookups with stale absence.
func (r *Resolver) Resolve(ctx context.Context, id string, source Namespace) (int64, bool, error) {
	if source == NamespaceAniList {
		anilistID, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return 0, false, fmt.Errorf("idmap: malformed anilist id %q: %w", id, err)
		}
		return anilistID, true, nil
	}
	if _, ok := foreignColumns[source]; !ok {
		return 0, false, fmt.Errorf("%w: %s", ErrUnknownNamespace, source)
	}

	key := cacheKey(source, id)
	if anilistID, ok := r.memory.Get(key); ok {
		metrics.ResolverLookups.WithLabelValues(string(source), "memory").Inc()
		return anilistID, true, nil
	}

	// IMDB ids arrive as "tt1234567"; the store holds the numeric part.
	numericID, numeric := numericForeignID(id)

	if numeric {
		anilistID, found, err := r.store.Lookup(ctx, source, numericID)
		if err != nil {
			metrics.ResolverLookups.WithLabelValues(string(source), "error").Inc()
			return 0, false, err
		}
		if found {
			r.memory.Add(key, anilistID)
			metrics.ResolverLookups.WithLabelValues(string(source), "store").Inc()
			return anilistID, true, nil
		}
	}

	anilistID, found, err := r.mapper.Lookup(ctx, source, id)
	if err != nil {
		metrics.ResolverLookups.WithLabelValues(string(source), "error").Inc()
		return 0, false, err
	}
	if !found {
		metrics.ResolverLookups.WithLabelValues(string(source), "miss").Inc()
		return 0, false, nil
	}

	r.memory.Add(key, anilistID)
	if numeric {
		if err := r.store.Save(ctx, anilistID, source, numericID); err != nil {
			return 0, false, err
		}
	} else {
		logging.Debug().Str("id", id).Str("source", string(source)).
			Msg("Foreign id is not numeric, skipping persistent write")
	}

	metrics.ResolverLookups.WithLabelValues(string(source), "remote").Inc()
	return anilistID, true, nil
}

// Close releases the resolver's persistent store.
func (r *Resolver) Close() error {
	return r.store.Close()
}

func cacheKey(source Namespace, id string) string {
	return string(source) + ":" + string(NamespaceAniList) + ":" + id
}

// numericForeignID extracts the integer form a foreign id is stored under,
// tolerating the IMDB "tt" prefix.
func numericForeignID(id string) (int64, bool) {
	trimmed := strings.TrimPrefix(id, "tt")
	n, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
