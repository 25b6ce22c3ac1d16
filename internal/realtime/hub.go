// Petorium - Short-Video Feed and Live Engagement Service
// Copyright 2026 bestinventorlee
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bestinventorlee/cursor3-Petorium-sub001

package realtime

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/bestinventorlee/cursor3-Petorium-sub001/internal/config"
	"github.com/bestinventorlee/cursor3-Petorium-sub001/internal/metrics"
)

// Hub accepts websocket upgrades and tracks live sessions. It implements
// suture.Service: Serve blocks until the context is cancelled and then
// closes every connection, which tears each session down through its
// read pump.
type Hub struct {
	registry *Registry
	bus      *Bus
	cfg      config.RealtimeConfig
	upgrader websocket.Upgrader
	logger   zerolog.Logger

	mu       sync.Mutex
	sessions map[uint64]*Session
}

// NewHub creates a hub over the given registry and bus.
func NewHub(registry *Registry, bus *Bus, cfg config.RealtimeConfig, logger zerolog.Logger) *Hub {
	h := &Hub{
		registry: registry,
		bus:      bus,
		cfg:      cfg,
		logger:   logger.With().Str("component", "hub").Logger(),
		sessions: make(map[uint64]*Session),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.cfg.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// HandleWS upgrades the request and starts a session. Viewer identity comes
// from the X-Viewer-ID header; empty means anonymous.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		h.logger.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("websocket upgrade failed")
		return
	}

	session := newSession(h, conn, r.Header.Get("X-Viewer-ID"))

	h.mu.Lock()
	h.sessions[session.id] = session
	total := len(h.sessions)
	h.mu.Unlock()

	metrics.WSSessionsActive.Inc()
	h.logger.Info().
		Uint64("session_id", session.id).
		Int("total_sessions", total).
		Msg("websocket session connected")

	session.start()
}

// dropSession removes a torn-down session from the live set.
func (h *Hub) dropSession(s *Session) {
	h.mu.Lock()
	delete(h.sessions, s.id)
	total := len(h.sessions)
	h.mu.Unlock()

	h.logger.Info().
		Uint64("session_id", s.id).
		Int("total_sessions", total).
		Msg("websocket session disconnected")
}

// Serve implements suture.Service. It blocks until the context is cancelled
// and then closes every live connection.
func (h *Hub) Serve(ctx context.Context) error {
	<-ctx.Done()

	h.mu.Lock()
	open := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		open = append(open, s)
	}
	h.mu.Unlock()

	for _, s := range open {
		_ = s.conn.Close()
	}
	h.logger.Info().Int("sessions_closed", len(open)).Msg("hub shut down")
	return ctx.Err()
}

// String implements fmt.Stringer for supervisor logging.
func (h *Hub) String() string {
	return "realtime-hub"
}
