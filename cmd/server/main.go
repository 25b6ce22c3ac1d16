// Petorium - Short-Video Feed and Live Engagement Service
// Copyright 2026 bestinventorlee
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bestinventorlee/cursor3-Petorium-sub001

// Command server runs the Petorium feed and live engagement service: the
// cursor-paginated personalized feed API, the engagement write endpoints,
// and the room-scoped websocket fan-out, all under one supervisor.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"

	"github.com/bestinventorlee/cursor3-Petorium-sub001/internal/api"
	"github.com/bestinventorlee/cursor3-Petorium-sub001/internal/config"
	"github.com/bestinventorlee/cursor3-Petorium-sub001/internal/feed"
	"github.com/bestinventorlee/cursor3-Petorium-sub001/internal/logging"
	"github.com/bestinventorlee/cursor3-Petorium-sub001/internal/realtime"
	"github.com/bestinventorlee/cursor3-Petorium-sub001/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Timestamp: true,
	})
	logging.Info().
		Str("backend", cfg.Storage.Backend).
		Int("port", cfg.Server.Port).
		Msg("starting petorium")

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("fatal")
	}
}

func run(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := openStore(cfg.Storage)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("store close failed")
		}
	}()

	logger := logging.Logger()

	engine := feed.NewEngine(feed.EngineConfig{
		RecencyWeight:    cfg.Feed.RecencyWeight,
		EngagementWeight: cfg.Feed.EngagementWeight,
		AffinityWeight:   cfg.Feed.AffinityWeight,
		RecencyHalfLife:  cfg.Feed.RecencyHalfLife,
		LikeWeight:       cfg.Feed.LikeWeight,
		CommentWeight:    cfg.Feed.CommentWeight,
	}, nil, nil, logger)

	feedSvc := feed.NewService(store, engine, feed.ServiceConfig{
		MinPageSize:        cfg.Feed.MinPageSize,
		MaxPageSize:        cfg.Feed.MaxPageSize,
		DefaultPageSize:    cfg.Feed.DefaultPageSize,
		OverfetchFactor:    cfg.Feed.OverfetchFactor,
		BreakerMaxFailures: cfg.Feed.BreakerMaxFailures,
		BreakerTimeout:     cfg.Feed.BreakerTimeout,
	}, logger)

	bus := realtime.NewBus(realtime.BusConfig{QueueSize: cfg.Realtime.BusQueueSize}, logger)
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("bus close failed")
		}
	}()

	registry := realtime.NewRegistry()
	hub := realtime.NewHub(registry, bus, cfg.Realtime, logger)

	handler := api.NewHandler(feedSvc, store, bus, logger)
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewRouter(handler, hub, cfg.Server),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	handlerHook := &sutureslog.Handler{Logger: logging.SlogLogger()}
	supervisor := suture.New("petorium", suture.Spec{
		EventHook:        handlerHook.MustHook(),
		FailureThreshold: 5,
		FailureDecay:     30,
		FailureBackoff:   15 * time.Second,
		Timeout:          cfg.Server.ShutdownTimeout,
	})
	supervisor.Add(hub)
	supervisor.Add(newHTTPService(server, cfg.Server.ShutdownTimeout))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("shutdown signal received")
		cancel()
	}()

	errCh := supervisor.ServeBackground(ctx)
	err = <-errCh
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor: %w", err)
	}

	logging.Info().Msg("stopped gracefully")
	return nil
}

func openStore(cfg config.StorageConfig) (storage.Store, error) {
	switch cfg.Backend {
	case "memory":
		return storage.NewMemoryStore(), nil
	default:
		return storage.NewBadgerStore(storage.BadgerOptions{Path: cfg.Path})
	}
}
