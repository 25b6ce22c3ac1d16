// Petorium - Short-Video Feed and Live Engagement Service
// Copyright 2026 bestinventorlee
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bestinventorlee/cursor3-Petorium-sub001

package realtime

import (
	"testing"

	"github.com/bestinventorlee/cursor3-Petorium-sub001/internal/models"
)

func TestSessionEnqueueDropsWhenFull(t *testing.T) {
	registry := NewRegistry()
	bus := NewBus(BusConfig{QueueSize: 8}, testLogger)
	t.Cleanup(func() { _ = bus.Close() })

	cfg := testRealtimeConfig()
	cfg.SendQueueSize = 2
	hub := NewHub(registry, bus, cfg, testLogger)

	// No pumps are running, so nothing drains the queue.
	session := newSession(hub, nil, "viewer-1")

	event, err := models.NewEngagementEvent(models.EventVideoLiked, "video:42", models.VideoLikedPayload{LikeCount: 1})
	if err != nil {
		t.Fatalf("NewEngagementEvent error: %v", err)
	}

	// Overfill: the first two land in the queue, the rest are dropped
	// without ever blocking the caller.
	for i := 0; i < 10; i++ {
		session.enqueue(event)
	}

	if got := len(session.send); got != cfg.SendQueueSize {
		t.Errorf("queue holds %d events, want the configured bound %d", got, cfg.SendQueueSize)
	}

	// The queued events are intact and in order.
	first := <-session.send
	if first.RoomID != "video:42" {
		t.Errorf("queued event RoomID = %q", first.RoomID)
	}
}

func TestSessionIDsAreUnique(t *testing.T) {
	registry := NewRegistry()
	bus := NewBus(BusConfig{QueueSize: 8}, testLogger)
	t.Cleanup(func() { _ = bus.Close() })
	hub := NewHub(registry, bus, testRealtimeConfig(), testLogger)

	seen := make(map[uint64]bool)
	for i := 0; i < 100; i++ {
		s := newSession(hub, nil, "")
		if seen[s.ID()] {
			t.Fatalf("duplicate session id %d", s.ID())
		}
		seen[s.ID()] = true
	}
}
