// Petorium - Short-Video Feed and Live Engagement Service
// Copyright 2026 bestinventorlee
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bestinventorlee/cursor3-Petorium-sub001

// Package feed implements the personalized feed: a pure ranking engine, an
// opaque cursor codec, and the page-assembly service that composes them over
// a storage collaborator.
//
// Pagination is cursor-based and resumable. A cursor carries the composite
// key of the last returned item (score, id) plus a generation bound fixed at
// the first page, so videos uploaded mid-session never shift already-seen
// results and no id is returned twice within one pagination session.
//
// The ranking engine and cursor codec are stateless; the service holds no
// per-request state either, so feed requests run fully in parallel.
package feed
