// Petorium - Short-Video Feed and Live Engagement Service
// Copyright 2026 bestinventorlee
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bestinventorlee/cursor3-Petorium-sub001

package realtime

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/bestinventorlee/cursor3-Petorium-sub001/internal/logging"
	"github.com/bestinventorlee/cursor3-Petorium-sub001/internal/metrics"
	"github.com/bestinventorlee/cursor3-Petorium-sub001/internal/models"
)

const roomTopicPrefix = "room."

// BusConfig configures the engagement event bus.
type BusConfig struct {
	// QueueSize bounds each subscription's channel buffer.
	QueueSize int64
}

// Bus is the process-wide engagement event bus. One topic per room on a
// watermill GoChannel pub/sub: publishes to rooms with no subscribers are
// silently discarded, delivery is at most once, and nothing is replayed
// to late subscribers.
type Bus struct {
	pubsub *gochannel.GoChannel
	logger zerolog.Logger

	// root is the parent of every subscription context; closing the bus
	// cancels them all.
	root   context.Context
	cancel context.CancelFunc
}

// NewBus creates a started bus. The caller owns it and must Close it on
// shutdown.
func NewBus(cfg BusConfig, logger zerolog.Logger) *Bus {
	root, cancel := context.WithCancel(context.Background())
	return &Bus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: cfg.QueueSize,
		}, logging.WatermillLogger()),
		logger: logger.With().Str("component", "bus").Logger(),
		root:   root,
		cancel: cancel,
	}
}

func roomTopic(roomID string) string {
	return roomTopicPrefix + roomID
}

// Publish sends an engagement event to every current subscriber of the room.
// Publishing to a room nobody watches is a successful no-op.
func (b *Bus) Publish(ctx context.Context, roomID string, event models.EngagementEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := b.pubsub.Publish(roomTopic(roomID), msg); err != nil {
		return fmt.Errorf("publish to room %s: %w", roomID, err)
	}

	metrics.EventsPublishedTotal.WithLabelValues(event.Type).Inc()
	return nil
}

// Subscribe registers a deliver callback for one session on one room. Events
// are delivered in publish order. Close the returned Subscription to stop
// delivery; after Close returns no further calls to deliver are made.
func (b *Bus) Subscribe(roomID string, sessionID uint64, deliver func(models.EngagementEvent)) (*Subscription, error) {
	subCtx, cancel := context.WithCancel(b.root)

	msgs, err := b.pubsub.Subscribe(subCtx, roomTopic(roomID))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("subscribe to room %s: %w", roomID, err)
	}

	sub := &Subscription{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(sub.done)
		for msg := range msgs {
			var event models.EngagementEvent
			if err := json.Unmarshal(msg.Payload, &event); err != nil {
				b.logger.Warn().Err(err).
					Str("room_id", roomID).
					Uint64("session_id", sessionID).
					Msg("dropping undecodable bus message")
				msg.Ack()
				continue
			}
			msg.Ack()

			if sub.closed.Load() {
				return
			}
			deliver(event)
		}
	}()

	return sub, nil
}

// Close shuts the bus down and cancels every live subscription.
func (b *Bus) Close() error {
	b.cancel()
	return b.pubsub.Close()
}

// Subscription is one session's membership in one room's event stream.
type Subscription struct {
	cancel context.CancelFunc
	closed atomic.Bool
	once   sync.Once
	done   chan struct{}
}

// Close stops delivery. It is idempotent and does not return until the
// delivery goroutine has exited, so callers can tear down the receiving
// side immediately afterwards.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.closed.Store(true)
		s.cancel()
	})
	<-s.done
}
