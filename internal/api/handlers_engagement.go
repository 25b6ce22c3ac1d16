// Petorium - Short-Video Feed and Live Engagement Service
// Copyright 2026 bestinventorlee
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bestinventorlee/cursor3-Petorium-sub001

package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/bestinventorlee/cursor3-Petorium-sub001/internal/models"
	"github.com/bestinventorlee/cursor3-Petorium-sub001/internal/storage"
)

const maxCommentLength = 2000

// addCommentRequest is the body of POST /videos/{videoID}/comments.
type addCommentRequest struct {
	Body string `json:"body"`
}

// publish fans an event out to the video's room. The storage write has
// already committed at this point, so a publish failure only loses the live
// notification, never the data.
func (h *Handler) publish(r *http.Request, roomID string, eventType string, payload any) {
	event, err := models.NewEngagementEvent(eventType, roomID, payload)
	if err != nil {
		h.logger.Error().Err(err).Str("type", eventType).Msg("event marshal failed")
		return
	}
	if err := h.publisher.Publish(r.Context(), roomID, event); err != nil {
		h.logger.Error().Err(err).
			Str("type", eventType).
			Str("room_id", roomID).
			Msg("event publish failed after committed write")
	}
}

func videoIDParam(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "videoID"))
	return id, err == nil
}

// AddComment persists a comment and then announces it to the video's room.
//
//	POST /api/v1/videos/{videoID}/comments
func (h *Handler) AddComment(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	viewer := viewerID(r)
	if viewer == "" {
		respondError(w, http.StatusBadRequest, codeInvalidInput,
			"X-Viewer-ID header is required for engagement actions", nil)
		return
	}

	videoID, ok := videoIDParam(r)
	if !ok {
		respondError(w, http.StatusBadRequest, codeInvalidInput, "invalid video id", nil)
		return
	}

	var req addCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, codeInvalidInput, "invalid request body", nil)
		return
	}
	req.Body = strings.TrimSpace(req.Body)
	if req.Body == "" || len(req.Body) > maxCommentLength {
		respondError(w, http.StatusBadRequest, codeValidationFailure,
			"comment body must be non-empty and at most 2000 characters", nil)
		return
	}

	comment := models.Comment{
		ID:        uuid.New(),
		VideoID:   videoID,
		AuthorID:  viewer,
		Body:      req.Body,
		CreatedAt: time.Now().UTC(),
	}

	if err := h.store.AddComment(r.Context(), &comment); err != nil {
		if errors.Is(err, storage.ErrVideoNotFound) {
			respondError(w, http.StatusNotFound, codeNotFound, "video not found", nil)
			return
		}
		respondError(w, http.StatusServiceUnavailable, codeUpstreamFailure,
			"comment could not be saved", err)
		return
	}

	h.publish(r, videoID.String(), models.EventCommentAdded, models.CommentAddedPayload{
		Comment: comment,
	})

	respondSuccess(w, http.StatusCreated, comment, started)
}

// DeleteComment removes a comment and then announces the removal.
//
//	DELETE /api/v1/videos/{videoID}/comments/{commentID}
func (h *Handler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	videoID, ok := videoIDParam(r)
	if !ok {
		respondError(w, http.StatusBadRequest, codeInvalidInput, "invalid video id", nil)
		return
	}
	commentID, err := uuid.Parse(chi.URLParam(r, "commentID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, codeInvalidInput, "invalid comment id", nil)
		return
	}

	if err := h.store.DeleteComment(r.Context(), videoID, commentID); err != nil {
		if errors.Is(err, storage.ErrCommentNotFound) {
			respondError(w, http.StatusNotFound, codeNotFound, "comment not found", nil)
			return
		}
		respondError(w, http.StatusServiceUnavailable, codeUpstreamFailure,
			"comment could not be deleted", err)
		return
	}

	h.publish(r, videoID.String(), models.EventCommentDeleted, models.CommentDeletedPayload{
		CommentID: commentID.String(),
	})

	respondSuccess(w, http.StatusOK, map[string]string{"deleted": commentID.String()}, started)
}

// ToggleLike flips the caller's like on a video and announces the new total.
//
//	POST /api/v1/videos/{videoID}/like
func (h *Handler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	viewer := viewerID(r)
	if viewer == "" {
		respondError(w, http.StatusBadRequest, codeInvalidInput,
			"X-Viewer-ID header is required for engagement actions", nil)
		return
	}

	videoID, ok := videoIDParam(r)
	if !ok {
		respondError(w, http.StatusBadRequest, codeInvalidInput, "invalid video id", nil)
		return
	}

	liked, likes, err := h.store.ToggleLike(r.Context(), videoID, viewer)
	if err != nil {
		if errors.Is(err, storage.ErrVideoNotFound) {
			respondError(w, http.StatusNotFound, codeNotFound, "video not found", nil)
			return
		}
		respondError(w, http.StatusServiceUnavailable, codeUpstreamFailure,
			"like could not be saved", err)
		return
	}

	payload := models.VideoLikedPayload{
		ViewerID:  viewer,
		Liked:     liked,
		LikeCount: likes,
	}
	h.publish(r, videoID.String(), models.EventVideoLiked, payload)

	respondSuccess(w, http.StatusOK, payload, started)
}
