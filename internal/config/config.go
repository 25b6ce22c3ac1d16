// Petorium - Short-Video Feed and Live Engagement Service
// Copyright 2026 bestinventorlee
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bestinventorlee/cursor3-Petorium-sub001

// Package config loads and validates service configuration via Koanf v2
// with layered sources: built-in defaults, an optional YAML file, and
// PETORIUM_-prefixed environment variables (highest priority).
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the service.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Feed     FeedConfig     `koanf:"feed"`
	Realtime RealtimeConfig `koanf:"realtime"`
	Storage  StorageConfig  `koanf:"storage"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// CORSOrigins lists allowed origins; ["*"] allows all.
	CORSOrigins []string `koanf:"cors_origins"`

	// RateLimitReqs requests per RateLimitWindow per client IP.
	RateLimitReqs   int           `koanf:"rate_limit_reqs" validate:"min=1"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// FeedConfig holds ranking and pagination settings.
//
// The score of a candidate is
//
//	w1*recencyDecay(age) + w2*log1p(engagement) + w3*affinity(viewer, video)
//
// where the weights and the recency half-life are configuration, never
// hard-coded. Engagement folds the raw counters together as
// views + like_weight*likes + comment_weight*comments.
type FeedConfig struct {
	RecencyWeight    float64 `koanf:"recency_weight" validate:"min=0"`    // w1
	EngagementWeight float64 `koanf:"engagement_weight" validate:"min=0"` // w2
	AffinityWeight   float64 `koanf:"affinity_weight" validate:"min=0"`   // w3

	RecencyHalfLife time.Duration `koanf:"recency_half_life"`
	LikeWeight      float64       `koanf:"like_weight" validate:"min=0"`
	CommentWeight   float64       `koanf:"comment_weight" validate:"min=0"`

	MinPageSize     int `koanf:"min_page_size" validate:"min=1"`
	MaxPageSize     int `koanf:"max_page_size" validate:"min=1"`
	DefaultPageSize int `koanf:"default_page_size" validate:"min=1"`

	// OverfetchFactor sizes the candidate window pulled from storage as a
	// multiple of the page size, absorbing post-ranking exclusions.
	OverfetchFactor int `koanf:"overfetch_factor" validate:"min=1"`

	// Circuit breaker for the storage collaborator.
	BreakerMaxFailures uint32        `koanf:"breaker_max_failures" validate:"min=1"`
	BreakerTimeout     time.Duration `koanf:"breaker_timeout"`
}

// RealtimeConfig holds websocket and event-bus settings.
type RealtimeConfig struct {
	// SendQueueSize bounds each session's outbound queue. A session whose
	// queue is full has events dropped rather than blocking the room.
	SendQueueSize int `koanf:"send_queue_size" validate:"min=1"`

	// BusQueueSize bounds each bus subscription's channel buffer.
	BusQueueSize int64 `koanf:"bus_queue_size" validate:"min=1"`

	WriteWait      time.Duration `koanf:"write_wait"`
	PongWait       time.Duration `koanf:"pong_wait"`
	MaxMessageSize int64         `koanf:"max_message_size" validate:"min=1"`

	// AllowedOrigins for websocket upgrades; ["*"] allows all.
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// StorageConfig selects and configures the candidate store backend.
type StorageConfig struct {
	// Backend is "badger" (embedded, persistent) or "memory" (dev/test).
	Backend string `koanf:"backend" validate:"oneof=badger memory"`
	Path    string `koanf:"path"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by the config file and environment.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8090,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   300,
			RateLimitWindow: time.Minute,
		},
		Feed: FeedConfig{
			RecencyWeight:      1.0,
			EngagementWeight:   0.5,
			AffinityWeight:     0.8,
			RecencyHalfLife:    12 * time.Hour,
			LikeWeight:         3.0,
			CommentWeight:      5.0,
			MinPageSize:        1,
			MaxPageSize:        50,
			DefaultPageSize:    20,
			OverfetchFactor:    4,
			BreakerMaxFailures: 5,
			BreakerTimeout:     30 * time.Second,
		},
		Realtime: RealtimeConfig{
			SendQueueSize:  256,
			BusQueueSize:   256,
			WriteWait:      10 * time.Second,
			PongWait:       60 * time.Second,
			MaxMessageSize: 4 * 1024,
			AllowedOrigins: []string{"*"},
		},
		Storage: StorageConfig{
			Backend: "badger",
			Path:    "/data/petorium",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks structural constraints plus the cross-field invariants the
// validator tags cannot express.
func (c *Config) Validate() error {
	if err := validateStruct(c); err != nil {
		return err
	}

	if c.Feed.MinPageSize > c.Feed.MaxPageSize {
		return fmt.Errorf("feed: min_page_size (%d) must not exceed max_page_size (%d)",
			c.Feed.MinPageSize, c.Feed.MaxPageSize)
	}
	if c.Feed.DefaultPageSize < c.Feed.MinPageSize || c.Feed.DefaultPageSize > c.Feed.MaxPageSize {
		return fmt.Errorf("feed: default_page_size (%d) must be within [%d, %d]",
			c.Feed.DefaultPageSize, c.Feed.MinPageSize, c.Feed.MaxPageSize)
	}
	if c.Feed.RecencyHalfLife <= 0 {
		return fmt.Errorf("feed: recency_half_life must be positive, got %s", c.Feed.RecencyHalfLife)
	}
	if c.Storage.Backend == "badger" && c.Storage.Path == "" {
		return fmt.Errorf("storage: path is required for the badger backend")
	}

	return nil
}
