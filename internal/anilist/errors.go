// Synkuru - AniList Watch-List Sync and Catalog Engine for Stremio
// Copyright 2026 Ju1-js
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ju1-js/synkuru

package anilist

import (
	"errors"
	"fmt"
)

// ErrRateLimited is returned by the transport once the retry budget for a
// rate-limit cool-down is exhausted. The client surfaces it as a network
// error; everything before that point is handled internally.
var ErrRateLimited = errors.New("anilist: rate limit retries exhausted")

// ErrorKind classifies an APIError.
type ErrorKind int

const (
	// KindNetwork is a connectivity or timeout failure. Not retried at
	// this layer; catalog and sync callers degrade instead of propagating.
	KindNetwork ErrorKind = iota

	// KindTransport is a non-2xx HTTP response from the API.
	KindTransport

	// KindGraphQL is an upstream-reported error list in the response body.
	// Treated as fatal for the whole call even when partial data is present.
	KindGraphQL
)

// String returns the kind's name for logs and metrics labels.
func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network_error"
	case KindTransport:
		return "transport_error"
	case KindGraphQL:
		return "graphql_error"
	default:
		return "unknown"
	}
}

// APIError is the typed failure returned by the GraphQL client.
type APIError struct {
	Kind    ErrorKind
	Status  int // HTTP status for KindTransport, 0 otherwise
	Message string
	Err     error // underlying cause, if any
}

// Error implements the error interface.
func (e *APIError) Error() string {
	switch e.Kind {
	case KindTransport:
		return fmt.Sprintf("anilist: unexpected status %d: %s", e.Status, e.Message)
	case KindGraphQL:
		return fmt.Sprintf("anilist: graphql errors: %s", e.Message)
	default:
		if e.Err != nil {
			return fmt.Sprintf("anilist: %s: %v", e.Message, e.Err)
		}
		return fmt.Sprintf("anilist: %s", e.Message)
	}
}

// Unwrap returns the underlying cause.
func (e *APIError) Unwrap() error { return e.Err }
