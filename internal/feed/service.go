// Petorium - Short-Video Feed and Live Engagement Service
// Copyright 2026 bestinventorlee
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bestinventorlee/cursor3-Petorium-sub001

package feed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/bestinventorlee/cursor3-Petorium-sub001/internal/metrics"
	"github.com/bestinventorlee/cursor3-Petorium-sub001/internal/models"
)

// CandidateSource is the storage collaborator boundary. The feed layer never
// issues raw queries; it only pulls bounded candidate windows through this
// interface.
type CandidateSource interface {
	// FetchCandidateWindow returns up to limit candidates created strictly
	// before createdBefore, ordered by the store's natural recency order.
	// The bool reports whether more candidates exist beyond the window.
	FetchCandidateWindow(ctx context.Context, createdBefore time.Time, limit int) ([]models.Video, bool, error)

	// VideoExists reports whether a video id is known to the store.
	VideoExists(ctx context.Context, id uuid.UUID) (bool, error)
}

// ServiceConfig holds pagination policy.
type ServiceConfig struct {
	MinPageSize     int
	MaxPageSize     int
	DefaultPageSize int

	// OverfetchFactor sizes the storage window as a multiple of the page
	// size to absorb post-ranking exclusions.
	OverfetchFactor int

	// BreakerMaxFailures consecutive storage failures open the circuit;
	// it half-opens after BreakerTimeout.
	BreakerMaxFailures uint32
	BreakerTimeout     time.Duration
}

// Page is one feed page plus the token that resumes after it.
type Page struct {
	Items      []ScoredVideo
	NextCursor string
	HasMore    bool
}

// windowResult carries a candidate window through the circuit breaker.
type windowResult struct {
	videos []models.Video
	more   bool
}

// Service composes the ranking engine and cursor codec into the stable
// paginated feed API. It is stateless per request and safe for concurrent
// use; no global lock serializes feed requests.
type Service struct {
	store   CandidateSource
	engine  *Engine
	cfg     ServiceConfig
	breaker *gobreaker.CircuitBreaker[windowResult]
	logger  zerolog.Logger

	// now is injectable for deterministic tests.
	now func() time.Time
}

// NewService creates a feed service over the given store and engine.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewService(store CandidateSource, engine *Engine, cfg ServiceConfig, logger zerolog.Logger) *Service {
	settings := gobreaker.Settings{
		Name:    "candidate-store",
		Timeout: cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerMaxFailures
		},
	}

	return &Service{
		store:   store,
		engine:  engine,
		cfg:     cfg,
		breaker: gobreaker.NewCircuitBreaker[windowResult](settings),
		logger:  logger.With().Str("component", "feed-service").Logger(),
		now:     time.Now,
	}
}

// GetPage serves one feed page.
//
// The limit hint is clamped into [MinPageSize, MaxPageSize] rather than
// rejected; a non-positive hint selects the default page size. A malformed
// cursor token silently restarts the session from the first page. Storage
// failures surface as ErrUpstreamUnavailable and the call fails atomically:
// a partial page is never returned as success.
func (s *Service) GetPage(ctx context.Context, viewerID, cursorToken string, limitHint int) (Page, error) {
	start := time.Now()

	limit := s.clampLimit(limitHint)
	state, firstPage := s.resolveCursor(cursorToken)

	generationBound := state.GenerationBound
	if firstPage {
		generationBound = s.now().UTC()
	}

	window, err := s.fetchWindow(ctx, generationBound, limit*s.cfg.OverfetchFactor)
	if err != nil {
		metrics.FeedPagesTotal.WithLabelValues("upstream_error").Inc()
		return Page{}, err
	}

	var after *CursorState
	if !firstPage {
		after = &state
	}

	ranked, err := s.engine.Rank(Viewer{ID: viewerID}, window.videos, limit, generationBound, after)
	if err != nil {
		metrics.FeedPagesTotal.WithLabelValues("invalid_input").Inc()
		return Page{}, fmt.Errorf("rank candidate window: %w", err)
	}

	items := ranked
	if len(items) > limit {
		items = items[:limit]
	}

	page := Page{
		Items:   items,
		HasMore: len(ranked) > limit || window.more,
	}

	if len(items) > 0 {
		last := items[len(items)-1]
		page.NextCursor = EncodeCursor(CursorState{
			LastScore:       last.Score,
			LastID:          last.Video.ID,
			GenerationBound: generationBound,
			SeenCount:       state.SeenCount + len(items),
		})
	}

	metrics.FeedPagesTotal.WithLabelValues("success").Inc()
	metrics.FeedPageDuration.Observe(time.Since(start).Seconds())

	s.logger.Debug().
		Str("viewer_id", viewerID).
		Bool("first_page", firstPage).
		Int("limit", limit).
		Int("returned", len(items)).
		Bool("has_more", page.HasMore).
		Msg("feed page served")

	return page, nil
}

// clampLimit folds a caller hint into the configured page-size range.
// Out-of-range hints are clamped, never rejected: feed consumers must not
// hard-fail on a bad hint.
func (s *Service) clampLimit(hint int) int {
	if hint <= 0 {
		hint = s.cfg.DefaultPageSize
	}
	if hint < s.cfg.MinPageSize {
		return s.cfg.MinPageSize
	}
	if hint > s.cfg.MaxPageSize {
		return s.cfg.MaxPageSize
	}
	return hint
}

// resolveCursor decodes the token, degrading malformed input to first-page
// semantics. The bool reports whether this is the start of a session.
func (s *Service) resolveCursor(token string) (CursorState, bool) {
	if token == "" {
		return CursorState{}, true
	}

	state, err := DecodeCursor(token)
	if err != nil {
		metrics.MalformedCursorsTotal.Inc()
		s.logger.Warn().Err(err).Msg("malformed cursor, restarting from first page")
		return CursorState{}, true
	}
	return state, false
}

// fetchWindow pulls a candidate window through the circuit breaker, mapping
// every failure mode onto ErrUpstreamUnavailable. Caller cancellation is
// passed through untouched so abandoned requests stop cooperatively.
func (s *Service) fetchWindow(ctx context.Context, createdBefore time.Time, limit int) (windowResult, error) {
	result, err := s.breaker.Execute(func() (windowResult, error) {
		videos, more, err := s.store.FetchCandidateWindow(ctx, createdBefore, limit)
		if err != nil {
			return windowResult{}, err
		}
		return windowResult{videos: videos, more: more}, nil
	})
	if err == nil {
		return result, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return windowResult{}, fmt.Errorf("fetch candidate window: %w", ctxErr)
	}

	metrics.UpstreamFailuresTotal.Inc()
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return windowResult{}, fmt.Errorf("%w: candidate store circuit open", ErrUpstreamUnavailable)
	}
	return windowResult{}, fmt.Errorf("%w: fetch candidate window: %v", ErrUpstreamUnavailable, err)
}
