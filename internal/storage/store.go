// Petorium - Short-Video Feed and Live Engagement Service
// Copyright 2026 bestinventorlee
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bestinventorlee/cursor3-Petorium-sub001

// Package storage implements the storage collaborator boundary: candidate
// retrieval for the feed service and the engagement writes that precede
// event publication. Two backends are provided, an embedded BadgerDB store
// and an in-memory store for development and tests.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/bestinventorlee/cursor3-Petorium-sub001/internal/models"
)

// Sentinel errors of the storage layer.
var (
	ErrVideoNotFound   = errors.New("video not found")
	ErrCommentNotFound = errors.New("comment not found")
)

// Store is the full storage collaborator surface. The feed service consumes
// only the candidate-read half (feed.CandidateSource); the engagement
// handlers consume the write half and publish an event only after the write
// here has committed.
type Store interface {
	// FetchCandidateWindow returns up to limit videos created strictly
	// before createdBefore, most recent first. The bool reports whether
	// more eligible videos exist beyond the window.
	FetchCandidateWindow(ctx context.Context, createdBefore time.Time, limit int) ([]models.Video, bool, error)

	// VideoExists reports whether the video id is known.
	VideoExists(ctx context.Context, id uuid.UUID) (bool, error)

	// PutVideo inserts or replaces a video record.
	PutVideo(ctx context.Context, video *models.Video) error

	// AddComment persists a comment and increments the video's comment
	// counter. Fails with ErrVideoNotFound for an unknown video.
	AddComment(ctx context.Context, comment *models.Comment) error

	// DeleteComment removes a comment and decrements the counter. Fails
	// with ErrCommentNotFound when the comment does not exist.
	DeleteComment(ctx context.Context, videoID, commentID uuid.UUID) error

	// ToggleLike flips the viewer's like on a video and returns the new
	// state plus the video's updated like total.
	ToggleLike(ctx context.Context, videoID uuid.UUID, viewerID string) (liked bool, likes int64, err error)

	// Close releases the backend.
	Close() error
}
