// Petorium - Short-Video Feed and Live Engagement Service
// Copyright 2026 bestinventorlee
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bestinventorlee/cursor3-Petorium-sub001

package models

import (
	"github.com/goccy/go-json"
)

// Engagement event types delivered to viewers of a video's room.
const (
	EventCommentAdded   = "comment-added"
	EventCommentDeleted = "comment-deleted"
	EventVideoLiked     = "video-liked"
)

// EngagementEvent is a live notification about one video, fanned out to all
// sessions currently subscribed to that video's room. Events are ephemeral:
// they are published only after the storage write committed, and a session
// not connected at publish time never sees them.
type EngagementEvent struct {
	Type    string          `json:"type"`
	RoomID  string          `json:"video_id"`
	Payload json.RawMessage `json:"data,omitempty"`
}

// CommentAddedPayload is the payload of a comment-added event.
type CommentAddedPayload struct {
	Comment Comment `json:"comment"`
}

// CommentDeletedPayload is the payload of a comment-deleted event.
type CommentDeletedPayload struct {
	CommentID string `json:"comment_id"`
}

// VideoLikedPayload is the payload of a video-liked event. Liked reports the
// toggled state for the acting viewer; LikeCount is the new room-wide total.
type VideoLikedPayload struct {
	ViewerID  string `json:"viewer_id,omitempty"`
	Liked     bool   `json:"liked"`
	LikeCount int64  `json:"like_count"`
}

// NewEngagementEvent builds an event with a marshaled payload.
func NewEngagementEvent(eventType, roomID string, payload any) (EngagementEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return EngagementEvent{}, err
	}
	return EngagementEvent{Type: eventType, RoomID: roomID, Payload: data}, nil
}
