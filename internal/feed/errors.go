// Petorium - Short-Video Feed and Live Engagement Service
// Copyright 2026 bestinventorlee
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bestinventorlee/cursor3-Petorium-sub001

package feed

import "errors"

// Sentinel errors of the feed layer.
var (
	// ErrInvalidInput indicates a caller-correctable programming error,
	// such as a non-positive page size handed to the ranking engine.
	ErrInvalidInput = errors.New("invalid input")

	// ErrMalformedCursor indicates a cursor token that failed structural
	// validation. Callers recover by restarting from the first page.
	ErrMalformedCursor = errors.New("malformed cursor")

	// ErrUpstreamUnavailable indicates a storage collaborator failure.
	// The request fails atomically; no partial page is ever returned.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)
