// Petorium - Short-Video Feed and Live Engagement Service
// Copyright 2026 bestinventorlee
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bestinventorlee/cursor3-Petorium-sub001

// Package realtime implements room-scoped engagement fan-out: an in-process
// event bus keyed by room id, a sharded room membership registry, websocket
// sessions with bounded outbound queues, and the hub that ties them together.
//
// Delivery is fire-and-forget: an event published to a room reaches the
// sessions subscribed at that moment, at most once each. A slow session has
// events dropped rather than blocking the room. Nothing is persisted and
// nothing is replayed to late joiners.
package realtime
