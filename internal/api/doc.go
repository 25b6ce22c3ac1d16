// Petorium - Short-Video Feed and Live Engagement Service
// Copyright 2026 bestinventorlee
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bestinventorlee/cursor3-Petorium-sub001

// Package api exposes the HTTP surface: the feed endpoint, the engagement
// write endpoints (comment add/delete, like toggle) with their
// commit-then-publish contract, the websocket upgrade, health and metrics.
//
// Viewer identity comes from the X-Viewer-ID header; an absent header means
// an anonymous viewer. Issuing and verifying identities is out of scope.
package api
