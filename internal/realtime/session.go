// Petorium - Short-Video Feed and Live Engagement Service
// Copyright 2026 bestinventorlee
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bestinventorlee/cursor3-Petorium-sub001

package realtime

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/bestinventorlee/cursor3-Petorium-sub001/internal/metrics"
	"github.com/bestinventorlee/cursor3-Petorium-sub001/internal/models"
)

// Client operations accepted over the websocket.
const (
	OpJoinVideo  = "join-video"
	OpLeaveVideo = "leave-video"
)

// clientCommand is the wire shape of a client -> server message.
type clientCommand struct {
	Op      string `json:"op"`
	VideoID string `json:"video_id"`
}

// sessionIDCounter hands out unique session ids. Registry membership and
// bus subscriptions are keyed on these rather than connection pointers.
var sessionIDCounter atomic.Uint64

// Session is one live websocket connection. It owns its room subscriptions:
// joins go through the hub's registry and bus together, and teardown leaves
// every room and closes every subscription exactly once before the
// connection is dropped.
type Session struct {
	id       uint64
	viewerID string
	hub      *Hub
	conn     *websocket.Conn
	logger   zerolog.Logger

	// send is the bounded outbound queue. When it is full, events for
	// this session are dropped so one stalled reader cannot block a room.
	send chan models.EngagementEvent

	mu   sync.Mutex
	subs map[string]*Subscription

	tornDown sync.Once
}

func newSession(hub *Hub, conn *websocket.Conn, viewerID string) *Session {
	id := sessionIDCounter.Add(1)
	return &Session{
		id:       id,
		viewerID: viewerID,
		hub:      hub,
		conn:     conn,
		logger: hub.logger.With().
			Uint64("session_id", id).
			Str("viewer_id", viewerID).
			Logger(),
		send: make(chan models.EngagementEvent, hub.cfg.SendQueueSize),
		subs: make(map[string]*Subscription),
	}
}

// ID returns the session's unique identifier.
func (s *Session) ID() uint64 {
	return s.id
}

// enqueue hands an event to the write pump without ever blocking the caller.
func (s *Session) enqueue(event models.EngagementEvent) {
	select {
	case s.send <- event:
	default:
		metrics.EventsDroppedTotal.Inc()
		s.logger.Debug().
			Str("room_id", event.RoomID).
			Str("type", event.Type).
			Msg("send queue full, dropping event")
	}
}

// joinRoom subscribes the session to a room. Joining a room the session is
// already in is a no-op.
func (s *Session) joinRoom(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, joined := s.subs[roomID]; joined {
		return
	}

	sub, err := s.hub.bus.Subscribe(roomID, s.id, s.enqueue)
	if err != nil {
		s.logger.Error().Err(err).Str("room_id", roomID).Msg("room subscribe failed")
		return
	}
	s.hub.registry.Join(roomID, s.id)
	s.subs[roomID] = sub

	s.logger.Debug().Str("room_id", roomID).Msg("joined room")
}

// leaveRoom unsubscribes the session from a room. Leaving a room the
// session never joined is a no-op.
func (s *Session) leaveRoom(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, joined := s.subs[roomID]
	if !joined {
		return
	}
	delete(s.subs, roomID)
	s.hub.registry.Leave(roomID, s.id)
	sub.Close()

	s.logger.Debug().Str("room_id", roomID).Msg("left room")
}

// teardown leaves every room and closes every subscription. It runs exactly
// once and completes synchronously: when it returns, no delivery callback
// for this session is running or will run again, so the send channel can be
// closed safely.
func (s *Session) teardown() {
	s.tornDown.Do(func() {
		s.mu.Lock()
		subs := s.subs
		s.subs = make(map[string]*Subscription)
		s.mu.Unlock()

		for _, sub := range subs {
			sub.Close()
		}
		s.hub.registry.LeaveAll(s.id)
		close(s.send)

		s.hub.dropSession(s)
		metrics.WSSessionsActive.Dec()
		s.logger.Debug().Int("rooms", len(subs)).Msg("session torn down")
	})
}

// readPump consumes client commands until the connection fails or closes.
func (s *Session) readPump() {
	defer func() {
		s.teardown()
		_ = s.conn.Close()
	}()

	s.conn.SetReadLimit(s.hub.cfg.MaxMessageSize)
	if err := s.conn.SetReadDeadline(time.Now().Add(s.hub.cfg.PongWait)); err != nil {
		s.logger.Error().Err(err).Msg("failed to set read deadline")
		return
	}
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.hub.cfg.PongWait))
	})

	for {
		var cmd clientCommand
		if err := s.conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Warn().Err(err).Msg("unexpected websocket close")
			}
			return
		}

		switch cmd.Op {
		case OpJoinVideo:
			if cmd.VideoID != "" {
				s.joinRoom(cmd.VideoID)
			}
		case OpLeaveVideo:
			if cmd.VideoID != "" {
				s.leaveRoom(cmd.VideoID)
			}
		default:
			s.logger.Debug().Str("op", cmd.Op).Msg("ignoring unknown client op")
		}
	}
}

// writePump forwards queued events to the connection and keeps it alive
// with pings.
func (s *Session) writePump() {
	pingPeriod := (s.hub.cfg.PongWait * 9) / 10
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case event, ok := <-s.send:
			if err := s.conn.SetWriteDeadline(time.Now().Add(s.hub.cfg.WriteWait)); err != nil {
				s.logger.Error().Err(err).Msg("failed to set write deadline")
				return
			}
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteJSON(event); err != nil {
				s.logger.Error().Err(err).Msg("failed to write event")
				return
			}
			metrics.EventsDeliveredTotal.Inc()

		case <-ticker.C:
			if err := s.conn.SetWriteDeadline(time.Now().Add(s.hub.cfg.WriteWait)); err != nil {
				return
			}
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// start begins the read and write pumps.
func (s *Session) start() {
	go s.writePump()
	go s.readPump()
}
