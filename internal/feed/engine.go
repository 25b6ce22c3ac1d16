// Petorium - Short-Video Feed and Live Engagement Service
// Copyright 2026 bestinventorlee
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bestinventorlee/cursor3-Petorium-sub001

package feed

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bestinventorlee/cursor3-Petorium-sub001/internal/models"
)

// Viewer identifies the requesting viewer. An empty ID means anonymous;
// identity is only a ranking input and never required.
type Viewer struct {
	ID string
}

// Anonymous reports whether the viewer carries no identity.
func (v Viewer) Anonymous() bool { return v.ID == "" }

// AffinityFunc scores viewer-video affinity in [0, 1]. A nil function is
// treated as always 0 (the anonymous / no-model case).
type AffinityFunc func(viewerID string, videoID uuid.UUID) float64

// VisibilityFunc is the moderation predicate: it reports whether a candidate
// may appear in feeds. A nil function treats every candidate as visible.
type VisibilityFunc func(videoID uuid.UUID) bool

// EngineConfig holds the scoring policy. All weights are configuration,
// never hard-coded constants.
type EngineConfig struct {
	RecencyWeight    float64 // w1
	EngagementWeight float64 // w2
	AffinityWeight   float64 // w3

	// RecencyHalfLife is the age at which the recency term halves.
	RecencyHalfLife time.Duration

	// LikeWeight and CommentWeight fold the engagement counters into a
	// single magnitude: views + LikeWeight*likes + CommentWeight*comments.
	LikeWeight    float64
	CommentWeight float64
}

// Engine ranks feed candidates. It is a pure function of its inputs: no
// shared mutable state, safe for unsynchronized concurrent use.
type Engine struct {
	cfg      EngineConfig
	affinity AffinityFunc
	visible  VisibilityFunc
	logger   zerolog.Logger

	// now is injectable for deterministic tests.
	now func() time.Time
}

// NewEngine creates a ranking engine. affinity and visible may be nil.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(cfg EngineConfig, affinity AffinityFunc, visible VisibilityFunc, logger zerolog.Logger) *Engine {
	return &Engine{
		cfg:      cfg,
		affinity: affinity,
		visible:  visible,
		logger:   logger.With().Str("component", "feed-engine").Logger(),
		now:      time.Now,
	}
}

// ScoredVideo pairs a candidate with its computed rank value. Scores are
// derived per request and never persisted.
type ScoredVideo struct {
	Video models.Video
	Score float64
}

// Rank filters, scores and totally orders the candidate working set for one
// viewer. The result is ordered by score descending with id descending as
// the tie-break, so equal scores still yield a deterministic total order.
//
// at is the scoring reference time. Within one pagination session it must
// stay fixed at the session's generation bound so that recomputed scores are
// identical on every page; a drifting reference would let an already-seen
// candidate slip past the cursor's (score, id) fence. A zero at falls back
// to the engine clock.
//
// after, when non-nil, is the resume point of an in-progress pagination
// session: candidates created at or past the generation bound are dropped,
// as is every candidate at or before the cursor's (score, id) position.
//
// pageSize is validated only; Rank returns the whole ordered window and the
// caller slices off its page, so it can also see how much remains.
func (e *Engine) Rank(viewer Viewer, candidates []models.Video, pageSize int, at time.Time, after *CursorState) ([]ScoredVideo, error) {
	if pageSize <= 0 {
		return nil, fmt.Errorf("%w: page size must be positive, got %d", ErrInvalidInput, pageSize)
	}

	now := at
	if now.IsZero() {
		now = e.now()
	}
	scored := make([]ScoredVideo, 0, len(candidates))

	for i := range candidates {
		video := candidates[i]

		if e.visible != nil && !e.visible(video.ID) {
			continue
		}
		if after != nil && !video.CreatedAt.Before(after.GenerationBound) {
			continue
		}

		score := e.score(viewer, &video, now)

		if after != nil && !strictlyAfter(score, video.ID, after) {
			continue
		}

		scored = append(scored, ScoredVideo{Video: video, Score: score})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return idGreater(scored[i].Video.ID, scored[j].Video.ID)
	})

	e.logger.Debug().
		Int("candidates", len(candidates)).
		Int("ranked", len(scored)).
		Bool("anonymous", viewer.Anonymous()).
		Msg("ranking pass complete")

	return scored, nil
}

// score computes w1*recencyDecay + w2*log1p(engagement) + w3*affinity.
func (e *Engine) score(viewer Viewer, video *models.Video, now time.Time) float64 {
	age := now.Sub(video.CreatedAt)
	if age < 0 {
		age = 0
	}

	// Exponential half-life decay: 1.0 at age zero, 0.5 at one half-life.
	decay := math.Exp2(-age.Seconds() / e.cfg.RecencyHalfLife.Seconds())

	engagement := float64(video.Views) +
		e.cfg.LikeWeight*float64(video.Likes) +
		e.cfg.CommentWeight*float64(video.Comments)

	score := e.cfg.RecencyWeight*decay + e.cfg.EngagementWeight*math.Log1p(engagement)

	if e.affinity != nil && !viewer.Anonymous() {
		score += e.cfg.AffinityWeight * e.affinity(viewer.ID, video.ID)
	}

	return score
}

// strictlyAfter reports whether (score, id) sorts strictly after the cursor
// position in the (score desc, id desc) total order. Items at or before the
// cursor were already returned in this pagination session.
func strictlyAfter(score float64, id uuid.UUID, after *CursorState) bool {
	if score != after.LastScore {
		return score < after.LastScore
	}
	return idGreater(after.LastID, id)
}

// idGreater compares two UUIDs bytewise; used for the descending tie-break.
func idGreater(a, b uuid.UUID) bool {
	return bytes.Compare(a[:], b[:]) > 0
}
