// Petorium - Short-Video Feed and Live Engagement Service
// Copyright 2026 bestinventorlee
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bestinventorlee/cursor3-Petorium-sub001

package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bestinventorlee/cursor3-Petorium-sub001/internal/config"
	"github.com/bestinventorlee/cursor3-Petorium-sub001/internal/feed"
	"github.com/bestinventorlee/cursor3-Petorium-sub001/internal/models"
	"github.com/bestinventorlee/cursor3-Petorium-sub001/internal/storage"
)

var testLogger = zerolog.New(io.Discard)

// fakePublisher records published events and optionally fails.
type fakePublisher struct {
	mu     sync.Mutex
	events []models.EngagementEvent
	rooms  []string
	err    error
}

func (p *fakePublisher) Publish(ctx context.Context, roomID string, event models.EngagementEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.rooms = append(p.rooms, roomID)
	p.events = append(p.events, event)
	return nil
}

func (p *fakePublisher) published() []models.EngagementEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.EngagementEvent, len(p.events))
	copy(out, p.events)
	return out
}

// noopWS satisfies WSHandler for tests that never upgrade.
type noopWS struct{}

func (noopWS) HandleWS(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNotImplemented)
}

func testServerConfig() config.ServerConfig {
	return config.ServerConfig{
		Host:            "127.0.0.1",
		Port:            8090,
		CORSOrigins:     []string{"*"},
		RateLimitReqs:   10_000,
		RateLimitWindow: time.Minute,
	}
}

func newFeedService(store feed.CandidateSource) *feed.Service {
	engine := feed.NewEngine(feed.EngineConfig{
		RecencyWeight:    1.0,
		EngagementWeight: 0.5,
		AffinityWeight:   0.8,
		RecencyHalfLife:  12 * time.Hour,
		LikeWeight:       3.0,
		CommentWeight:    5.0,
	}, nil, nil, testLogger)
	return feed.NewService(store, engine, feed.ServiceConfig{
		MinPageSize:        1,
		MaxPageSize:        50,
		DefaultPageSize:    20,
		OverfetchFactor:    4,
		BreakerMaxFailures: 3,
		BreakerTimeout:     time.Minute,
	}, testLogger)
}

// newTestAPI stands up the full route tree over a memory store.
func newTestAPI(t *testing.T) (http.Handler, *storage.MemoryStore, *fakePublisher) {
	t.Helper()
	store := storage.NewMemoryStore()
	publisher := &fakePublisher{}
	handler := NewHandler(newFeedService(store), store, publisher, testLogger)
	return NewRouter(handler, noopWS{}, testServerConfig()), store, publisher
}

func seedVideo(t *testing.T, store *storage.MemoryStore, index int, createdAt time.Time) models.Video {
	t.Helper()
	video := models.Video{
		ID:        uuid.New(),
		OwnerID:   uuid.New(),
		Title:     "seeded",
		CreatedAt: createdAt,
		Views:     int64(index * 100),
	}
	if err := store.PutVideo(context.Background(), &video); err != nil {
		t.Fatalf("PutVideo error: %v", err)
	}
	return video
}

func doRequest(t *testing.T, router http.Handler, method, path, viewer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if viewer != "" {
		req.Header.Set("X-Viewer-ID", viewer)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) models.APIResponse {
	t.Helper()
	var envelope models.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response envelope: %v (body: %s)", err, rec.Body.String())
	}
	return envelope
}

func TestGetFeedEndpoint(t *testing.T) {
	router, store, _ := newTestAPI(t)
	now := time.Now().UTC()
	for i := 1; i <= 5; i++ {
		seedVideo(t, store, i, now.Add(-time.Duration(i)*time.Hour))
	}

	rec := doRequest(t, router, http.MethodGet, "/api/v1/feed?limit=3", "viewer-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
	}

	envelope := decodeEnvelope(t, rec)
	if envelope.Status != "success" {
		t.Errorf("envelope status = %q", envelope.Status)
	}

	data, err := json.Marshal(envelope.Data)
	if err != nil {
		t.Fatalf("re-marshal data: %v", err)
	}
	var page models.FeedResponse
	if err := json.Unmarshal(data, &page); err != nil {
		t.Fatalf("decode feed response: %v", err)
	}

	if len(page.Items) != 3 {
		t.Errorf("page has %d items, want 3", len(page.Items))
	}
	if !page.HasMore || page.NextCursor == "" {
		t.Errorf("HasMore=%v NextCursor=%q, want more pages", page.HasMore, page.NextCursor)
	}
	for i := 1; i < len(page.Items); i++ {
		if page.Items[i-1].Score < page.Items[i].Score {
			t.Errorf("feed not score-descending at position %d", i)
		}
	}
}

func TestGetFeedMalformedCursorRecovers(t *testing.T) {
	router, store, _ := newTestAPI(t)
	seedVideo(t, store, 1, time.Now().UTC().Add(-time.Hour))

	rec := doRequest(t, router, http.MethodGet, "/api/v1/feed?cursor=garbage-token", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("malformed cursor must recover to first page, got status %d", rec.Code)
	}
}

func TestGetFeedUpstreamUnavailable(t *testing.T) {
	failing := &failingSource{err: errors.New("connection refused")}
	handler := NewHandler(newFeedService(failing), storage.NewMemoryStore(), &fakePublisher{}, testLogger)
	router := NewRouter(handler, noopWS{}, testServerConfig())

	rec := doRequest(t, router, http.MethodGet, "/api/v1/feed", "", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	envelope := decodeEnvelope(t, rec)
	if envelope.Error == nil || envelope.Error.Code != codeUpstreamFailure {
		t.Errorf("error envelope = %+v", envelope.Error)
	}
}

type failingSource struct{ err error }

func (f *failingSource) FetchCandidateWindow(ctx context.Context, createdBefore time.Time, limit int) ([]models.Video, bool, error) {
	return nil, false, f.err
}

func (f *failingSource) VideoExists(ctx context.Context, id uuid.UUID) (bool, error) {
	return false, f.err
}

func TestAddCommentPublishesAfterCommit(t *testing.T) {
	router, store, publisher := newTestAPI(t)
	video := seedVideo(t, store, 1, time.Now().UTC().Add(-time.Hour))

	rec := doRequest(t, router, http.MethodPost,
		"/api/v1/videos/"+video.ID.String()+"/comments",
		"viewer-1", addCommentRequest{Body: "great video"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
	}

	events := publisher.published()
	if len(events) != 1 {
		t.Fatalf("published %d events, want 1", len(events))
	}
	if events[0].Type != models.EventCommentAdded || events[0].RoomID != video.ID.String() {
		t.Errorf("published event = %+v", events[0])
	}

	var payload models.CommentAddedPayload
	if err := json.Unmarshal(events[0].Payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.Comment.Body != "great video" || payload.Comment.AuthorID != "viewer-1" {
		t.Errorf("payload comment = %+v", payload.Comment)
	}
}

func TestAddCommentUnknownVideoDoesNotPublish(t *testing.T) {
	router, _, publisher := newTestAPI(t)

	rec := doRequest(t, router, http.MethodPost,
		"/api/v1/videos/"+uuid.NewString()+"/comments",
		"viewer-1", addCommentRequest{Body: "into the void"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if len(publisher.published()) != 0 {
		t.Error("event published despite failed storage write")
	}
}

func TestAddCommentValidation(t *testing.T) {
	router, store, publisher := newTestAPI(t)
	video := seedVideo(t, store, 1, time.Now().UTC().Add(-time.Hour))
	path := "/api/v1/videos/" + video.ID.String() + "/comments"

	tests := []struct {
		name   string
		viewer string
		body   any
		want   int
	}{
		{"missing viewer identity", "", addCommentRequest{Body: "hi"}, http.StatusBadRequest},
		{"empty body", "viewer-1", addCommentRequest{Body: "   "}, http.StatusBadRequest},
		{"no json body", "viewer-1", nil, http.StatusBadRequest},
		{"invalid video id", "viewer-1", addCommentRequest{Body: "hi"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := path
			if tt.name == "invalid video id" {
				target = "/api/v1/videos/not-a-uuid/comments"
			}
			rec := doRequest(t, router, http.MethodPost, target, tt.viewer, tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body: %s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
	if len(publisher.published()) != 0 {
		t.Error("rejected requests must not publish events")
	}
}

func TestDeleteCommentLifecycle(t *testing.T) {
	router, store, publisher := newTestAPI(t)
	video := seedVideo(t, store, 1, time.Now().UTC().Add(-time.Hour))

	comment := models.Comment{
		ID:        uuid.New(),
		VideoID:   video.ID,
		AuthorID:  "viewer-1",
		Body:      "to be removed",
		CreatedAt: time.Now().UTC(),
	}
	if err := store.AddComment(context.Background(), &comment); err != nil {
		t.Fatalf("AddComment error: %v", err)
	}

	path := "/api/v1/videos/" + video.ID.String() + "/comments/" + comment.ID.String()
	rec := doRequest(t, router, http.MethodDelete, path, "viewer-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
	}

	events := publisher.published()
	if len(events) != 1 || events[0].Type != models.EventCommentDeleted {
		t.Fatalf("published events = %+v", events)
	}

	// Gone now.
	rec = doRequest(t, router, http.MethodDelete, path, "viewer-1", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

func TestToggleLikeRoundTrip(t *testing.T) {
	router, store, publisher := newTestAPI(t)
	video := seedVideo(t, store, 1, time.Now().UTC().Add(-time.Hour))
	path := "/api/v1/videos/" + video.ID.String() + "/like"

	rec := doRequest(t, router, http.MethodPost, path, "viewer-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, router, http.MethodPost, path, "viewer-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("untoggle status = %d", rec.Code)
	}

	events := publisher.published()
	if len(events) != 2 {
		t.Fatalf("published %d events, want 2", len(events))
	}

	var first, second models.VideoLikedPayload
	if err := json.Unmarshal(events[0].Payload, &first); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if err := json.Unmarshal(events[1].Payload, &second); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if !first.Liked || first.LikeCount != 1 {
		t.Errorf("first toggle payload = %+v", first)
	}
	if second.Liked || second.LikeCount != 0 {
		t.Errorf("second toggle payload = %+v", second)
	}
}

func TestPublishFailureDoesNotFailRequest(t *testing.T) {
	store := storage.NewMemoryStore()
	publisher := &fakePublisher{err: errors.New("bus down")}
	handler := NewHandler(newFeedService(store), store, publisher, testLogger)
	router := NewRouter(handler, noopWS{}, testServerConfig())

	video := seedVideo(t, store, 1, time.Now().UTC().Add(-time.Hour))
	rec := doRequest(t, router, http.MethodPost,
		"/api/v1/videos/"+video.ID.String()+"/like", "viewer-1", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d; a publish failure must not fail a committed write", rec.Code)
	}
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	router, _, _ := newTestAPI(t)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("health status = %d", rec.Code)
	}

	rec = doRequest(t, router, http.MethodGet, "/metrics", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("metrics status = %d", rec.Code)
	}

	if rec := doRequest(t, router, http.MethodGet, "/api/v1/nope", "", nil); rec.Code != http.StatusNotFound {
		t.Errorf("unknown route status = %d, want 404", rec.Code)
	}
}

func TestRequestIDHeaderEchoed(t *testing.T) {
	router, _, _ := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "req-abc")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "req-abc" {
		t.Errorf("X-Request-ID = %q, want the upstream id echoed", got)
	}
}
