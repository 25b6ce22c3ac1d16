// Petorium - Short-Video Feed and Live Engagement Service
// Copyright 2026 bestinventorlee
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bestinventorlee/cursor3-Petorium-sub001

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// httpService adapts http.Server's blocking ListenAndServe to suture's
// context-aware Serve: the server runs in a goroutine and a cancelled
// context triggers a graceful Shutdown with its own deadline.
type httpService struct {
	server          *http.Server
	shutdownTimeout time.Duration
}

func newHTTPService(server *http.Server, shutdownTimeout time.Duration) *httpService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &httpService{server: server, shutdownTimeout: shutdownTimeout}
}

// Serve implements suture.Service.
func (h *httpService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil

	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
		defer cancel()
		if err := h.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		return ctx.Err()
	}
}

// String implements fmt.Stringer for supervisor logging.
func (h *httpService) String() string {
	return "http-server"
}
