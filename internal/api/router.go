// Petorium - Short-Video Feed and Live Engagement Service
// Copyright 2026 bestinventorlee
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bestinventorlee/cursor3-Petorium-sub001

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bestinventorlee/cursor3-Petorium-sub001/internal/config"
	"github.com/bestinventorlee/cursor3-Petorium-sub001/internal/middleware"
)

// WSHandler is the websocket upgrade endpoint, satisfied by *realtime.Hub.
type WSHandler interface {
	HandleWS(w http.ResponseWriter, r *http.Request)
}

// NewRouter wires the full route tree.
func NewRouter(handler *Handler, ws WSHandler, cfg config.ServerConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to every route in order.
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Viewer-ID", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(middleware.PrometheusMetrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httprate.LimitByIP(cfg.RateLimitReqs, cfg.RateLimitWindow))

		r.Get("/health", handler.Health)
		r.Get("/feed", handler.GetFeed)

		r.Route("/videos/{videoID}", func(r chi.Router) {
			r.Post("/comments", handler.AddComment)
			r.Delete("/comments/{commentID}", handler.DeleteComment)
			r.Post("/like", handler.ToggleLike)
		})
	})

	// The websocket upgrade sits outside the rate limiter: one connection
	// serves many events and long-lived sessions should not consume the
	// per-IP request budget.
	r.Get("/ws", ws.HandleWS)

	r.Handle("/metrics", promhttp.Handler())

	return r
}
