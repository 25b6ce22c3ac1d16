// Petorium - Short-Video Feed and Live Engagement Service
// Copyright 2026 bestinventorlee
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bestinventorlee/cursor3-Petorium-sub001

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/bestinventorlee/cursor3-Petorium-sub001/internal/feed"
	"github.com/bestinventorlee/cursor3-Petorium-sub001/internal/models"
	"github.com/bestinventorlee/cursor3-Petorium-sub001/internal/storage"
)

// EventPublisher is the publish half of the engagement bus. Handlers publish
// only after the storage write committed; a publish failure is logged but
// never rolls the write back.
type EventPublisher interface {
	Publish(ctx context.Context, roomID string, event models.EngagementEvent) error
}

// Handler carries the collaborators behind the HTTP surface.
type Handler struct {
	feed      *feed.Service
	store     storage.Store
	publisher EventPublisher
	logger    zerolog.Logger
}

// NewHandler creates the API handler set.
func NewHandler(feedSvc *feed.Service, store storage.Store, publisher EventPublisher, logger zerolog.Logger) *Handler {
	return &Handler{
		feed:      feedSvc,
		store:     store,
		publisher: publisher,
		logger:    logger.With().Str("component", "api").Logger(),
	}
}

// GetFeed serves one feed page.
//
//	GET /api/v1/feed?cursor=<token>&limit=<n>
//
// A malformed cursor is recovered to the first page, never an error. Limits
// outside the configured range are clamped.
func (h *Handler) GetFeed(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	page, err := h.feed.GetPage(
		r.Context(),
		viewerID(r),
		r.URL.Query().Get("cursor"),
		getIntParam(r, "limit", 0),
	)
	if err != nil {
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			// Client went away; nothing useful to write.
			return
		case errors.Is(err, feed.ErrUpstreamUnavailable):
			respondError(w, http.StatusServiceUnavailable, codeUpstreamFailure,
				"feed temporarily unavailable, retry shortly", err)
		case errors.Is(err, feed.ErrInvalidInput):
			respondError(w, http.StatusBadRequest, codeInvalidInput, err.Error(), nil)
		default:
			respondError(w, http.StatusInternalServerError, codeInternalError,
				"internal error", err)
		}
		return
	}

	items := make([]models.FeedItem, 0, len(page.Items))
	for _, ranked := range page.Items {
		items = append(items, models.FeedItem{
			Video: ranked.Video,
			Score: ranked.Score,
		})
	}

	respondSuccess(w, http.StatusOK, models.FeedResponse{
		Items:      items,
		NextCursor: page.NextCursor,
		HasMore:    page.HasMore,
	}, started)
}

// Health reports liveness.
//
//	GET /api/v1/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, http.StatusOK, map[string]string{"status": "ok"}, time.Now())
}
