// Petorium - Short-Video Feed and Live Engagement Service
// Copyright 2026 bestinventorlee
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bestinventorlee/cursor3-Petorium-sub001

package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bestinventorlee/cursor3-Petorium-sub001/internal/models"
)

// MemoryStore is an in-memory Store for development mode and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	videos   map[uuid.UUID]models.Video
	comments map[uuid.UUID]models.Comment
	likes    map[uuid.UUID]map[string]struct{}
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		videos:   make(map[uuid.UUID]models.Video),
		comments: make(map[uuid.UUID]models.Comment),
		likes:    make(map[uuid.UUID]map[string]struct{}),
	}
}

// FetchCandidateWindow implements Store.
func (s *MemoryStore) FetchCandidateWindow(ctx context.Context, createdBefore time.Time, limit int) ([]models.Video, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	s.mu.RLock()
	eligible := make([]models.Video, 0, len(s.videos))
	for _, v := range s.videos {
		if v.CreatedAt.Before(createdBefore) {
			eligible = append(eligible, v)
		}
	}
	s.mu.RUnlock()

	sort.Slice(eligible, func(i, j int) bool {
		if !eligible[i].CreatedAt.Equal(eligible[j].CreatedAt) {
			return eligible[i].CreatedAt.After(eligible[j].CreatedAt)
		}
		return eligible[i].ID.String() > eligible[j].ID.String()
	})

	more := false
	if limit >= 0 && len(eligible) > limit {
		eligible = eligible[:limit]
		more = true
	}
	return eligible, more, nil
}

// VideoExists implements Store.
func (s *MemoryStore) VideoExists(ctx context.Context, id uuid.UUID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.videos[id]
	return ok, nil
}

// PutVideo implements Store.
func (s *MemoryStore) PutVideo(ctx context.Context, video *models.Video) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.videos[video.ID] = *video
	return nil
}

// AddComment implements Store.
func (s *MemoryStore) AddComment(ctx context.Context, comment *models.Comment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	video, ok := s.videos[comment.VideoID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrVideoNotFound, comment.VideoID)
	}

	s.comments[comment.ID] = *comment
	video.Comments++
	s.videos[comment.VideoID] = video
	return nil
}

// DeleteComment implements Store.
func (s *MemoryStore) DeleteComment(ctx context.Context, videoID, commentID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	comment, ok := s.comments[commentID]
	if !ok || comment.VideoID != videoID {
		return fmt.Errorf("%w: %s", ErrCommentNotFound, commentID)
	}

	delete(s.comments, commentID)
	if video, ok := s.videos[videoID]; ok && video.Comments > 0 {
		video.Comments--
		s.videos[videoID] = video
	}
	return nil
}

// ToggleLike implements Store.
func (s *MemoryStore) ToggleLike(ctx context.Context, videoID uuid.UUID, viewerID string) (bool, int64, error) {
	if err := ctx.Err(); err != nil {
		return false, 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	video, ok := s.videos[videoID]
	if !ok {
		return false, 0, fmt.Errorf("%w: %s", ErrVideoNotFound, videoID)
	}

	viewers := s.likes[videoID]
	if viewers == nil {
		viewers = make(map[string]struct{})
		s.likes[videoID] = viewers
	}

	liked := false
	if _, has := viewers[viewerID]; has {
		delete(viewers, viewerID)
		if video.Likes > 0 {
			video.Likes--
		}
	} else {
		viewers[viewerID] = struct{}{}
		video.Likes++
		liked = true
	}

	s.videos[videoID] = video
	return liked, video.Likes, nil
}

// Close implements Store. It is a no-op for the in-memory backend.
func (s *MemoryStore) Close() error { return nil }
