// Petorium - Short-Video Feed and Live Engagement Service
// Copyright 2026 bestinventorlee
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bestinventorlee/cursor3-Petorium-sub001

package realtime

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/bestinventorlee/cursor3-Petorium-sub001/internal/models"
)

var testLogger = zerolog.New(io.Discard)

func newTestBus(t *testing.T) *Bus {
	t.Helper()
	bus := NewBus(BusConfig{QueueSize: 64}, testLogger)
	t.Cleanup(func() {
		if err := bus.Close(); err != nil {
			t.Errorf("bus Close error: %v", err)
		}
	})
	return bus
}

func likeEvent(t *testing.T, roomID string, count int64) models.EngagementEvent {
	t.Helper()
	event, err := models.NewEngagementEvent(models.EventVideoLiked, roomID, models.VideoLikedPayload{
		ViewerID:  "viewer-1",
		Liked:     true,
		LikeCount: count,
	})
	if err != nil {
		t.Fatalf("NewEngagementEvent error: %v", err)
	}
	return event
}

// collect subscribes and funnels deliveries into a channel the test can
// drain with a deadline.
func collect(t *testing.T, bus *Bus, roomID string, sessionID uint64) (<-chan models.EngagementEvent, *Subscription) {
	t.Helper()
	received := make(chan models.EngagementEvent, 64)
	sub, err := bus.Subscribe(roomID, sessionID, func(event models.EngagementEvent) {
		received <- event
	})
	if err != nil {
		t.Fatalf("Subscribe(%s) error: %v", roomID, err)
	}
	return received, sub
}

func recvEvent(t *testing.T, ch <-chan models.EngagementEvent) models.EngagementEvent {
	t.Helper()
	select {
	case event := <-ch:
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event delivery")
		return models.EngagementEvent{}
	}
}

func assertNoEvent(t *testing.T, ch <-chan models.EngagementEvent) {
	t.Helper()
	select {
	case event := <-ch:
		t.Fatalf("unexpected delivery: %+v", event)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBusDeliversToSubscriber(t *testing.T) {
	bus := newTestBus(t)
	received, _ := collect(t, bus, "video:42", 1)

	if err := bus.Publish(context.Background(), "video:42", likeEvent(t, "video:42", 7)); err != nil {
		t.Fatalf("Publish error: %v", err)
	}

	event := recvEvent(t, received)
	if event.Type != models.EventVideoLiked || event.RoomID != "video:42" {
		t.Errorf("delivered event = %+v", event)
	}

	var payload models.VideoLikedPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.LikeCount != 7 {
		t.Errorf("LikeCount = %d, want 7", payload.LikeCount)
	}
}

func TestBusRoomIsolation(t *testing.T) {
	bus := newTestBus(t)
	roomA, _ := collect(t, bus, "video:a", 1)
	roomB, _ := collect(t, bus, "video:b", 2)

	if err := bus.Publish(context.Background(), "video:a", likeEvent(t, "video:a", 1)); err != nil {
		t.Fatalf("Publish error: %v", err)
	}

	recvEvent(t, roomA)
	assertNoEvent(t, roomB)
}

func TestBusPublishOrderPreserved(t *testing.T) {
	bus := newTestBus(t)
	received, _ := collect(t, bus, "video:42", 1)

	const n = 20
	for i := int64(1); i <= n; i++ {
		if err := bus.Publish(context.Background(), "video:42", likeEvent(t, "video:42", i)); err != nil {
			t.Fatalf("Publish %d error: %v", i, err)
		}
	}

	for i := int64(1); i <= n; i++ {
		event := recvEvent(t, received)
		var payload models.VideoLikedPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			t.Fatalf("unmarshal payload: %v", err)
		}
		if payload.LikeCount != i {
			t.Fatalf("event %d arrived out of order: LikeCount = %d", i, payload.LikeCount)
		}
	}
}

func TestBusZeroSubscriberPublishIsNoOp(t *testing.T) {
	bus := newTestBus(t)

	if err := bus.Publish(context.Background(), "video:empty", likeEvent(t, "video:empty", 1)); err != nil {
		t.Errorf("publish to an empty room must succeed, got: %v", err)
	}
}

func TestBusFanOutToAllSubscribers(t *testing.T) {
	bus := newTestBus(t)
	first, _ := collect(t, bus, "video:42", 1)
	second, _ := collect(t, bus, "video:42", 2)

	if err := bus.Publish(context.Background(), "video:42", likeEvent(t, "video:42", 3)); err != nil {
		t.Fatalf("Publish error: %v", err)
	}

	recvEvent(t, first)
	recvEvent(t, second)

	// At most once: no duplicate deliveries follow.
	assertNoEvent(t, first)
	assertNoEvent(t, second)
}

func TestBusSubscriptionCloseStopsDelivery(t *testing.T) {
	bus := newTestBus(t)
	received, sub := collect(t, bus, "video:42", 1)

	if err := bus.Publish(context.Background(), "video:42", likeEvent(t, "video:42", 1)); err != nil {
		t.Fatalf("Publish error: %v", err)
	}
	recvEvent(t, received)

	sub.Close()
	sub.Close() // idempotent

	if err := bus.Publish(context.Background(), "video:42", likeEvent(t, "video:42", 2)); err != nil {
		t.Fatalf("Publish after close error: %v", err)
	}
	assertNoEvent(t, received)
}

func TestBusPublishCancelledContext(t *testing.T) {
	bus := newTestBus(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := bus.Publish(ctx, "video:42", likeEvent(t, "video:42", 1)); err == nil {
		t.Error("Publish with cancelled context should fail")
	}
}
