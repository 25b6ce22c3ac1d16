// Petorium - Short-Video Feed and Live Engagement Service
// Copyright 2026 bestinventorlee
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bestinventorlee/cursor3-Petorium-sub001

package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/bestinventorlee/cursor3-Petorium-sub001/internal/logging"
	"github.com/bestinventorlee/cursor3-Petorium-sub001/internal/models"
)

// Key prefixes for BadgerDB storage
const (
	videoKeyPrefix   = "video:"
	commentKeyPrefix = "comment:"
	likeKeyPrefix    = "like:"
)

// BadgerStore implements Store on an embedded BadgerDB. Counters on the
// video record are updated in the same transaction as the comment or like
// write, so a published event never describes state that was rolled back.
type BadgerStore struct {
	db *badger.DB
}

// BadgerOptions configures the embedded database.
type BadgerOptions struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string
	// InMemory runs Badger without disk persistence.
	InMemory bool
}

// NewBadgerStore opens a BadgerDB-backed store.
func NewBadgerStore(opts BadgerOptions) (*BadgerStore, error) {
	badgerOpts := badger.DefaultOptions(opts.Path).
		WithInMemory(opts.InMemory).
		WithLogger(nil)
	if opts.InMemory {
		badgerOpts = badgerOpts.WithDir("").WithValueDir("")
	}

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", opts.Path, err)
	}

	logging.Info().
		Str("path", opts.Path).
		Bool("in_memory", opts.InMemory).
		Msg("Badger store opened")

	return &BadgerStore{db: db}, nil
}

func videoKey(id uuid.UUID) []byte {
	return []byte(videoKeyPrefix + id.String())
}

func commentKey(videoID, commentID uuid.UUID) []byte {
	return []byte(commentKeyPrefix + videoID.String() + ":" + commentID.String())
}

func likeKey(videoID uuid.UUID, viewerID string) []byte {
	return []byte(likeKeyPrefix + videoID.String() + ":" + viewerID)
}

func getVideo(txn *badger.Txn, id uuid.UUID) (*models.Video, error) {
	item, err := txn.Get(videoKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrVideoNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get video: %w", err)
	}

	var video models.Video
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &video)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal video: %w", err)
	}
	return &video, nil
}

func setVideo(txn *badger.Txn, video *models.Video) error {
	data, err := json.Marshal(video)
	if err != nil {
		return fmt.Errorf("marshal video: %w", err)
	}
	if err := txn.Set(videoKey(video.ID), data); err != nil {
		return fmt.Errorf("set video: %w", err)
	}
	return nil
}

// FetchCandidateWindow implements Store. It scans the video prefix and
// keeps the newest matches; the candidate corpus is bounded in this
// deployment shape, so a prefix scan is acceptable.
func (s *BadgerStore) FetchCandidateWindow(ctx context.Context, createdBefore time.Time, limit int) ([]models.Video, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	var eligible []models.Video
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(videoKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var video models.Video
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &video)
			}); err != nil {
				return fmt.Errorf("unmarshal video: %w", err)
			}
			if video.CreatedAt.Before(createdBefore) {
				eligible = append(eligible, video)
			}
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}

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
func (s *BadgerStore) VideoExists(ctx context.Context, id uuid.UUID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	exists := false
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(videoKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get video: %w", err)
		}
		exists = true
		return nil
	})
	return exists, err
}

// PutVideo implements Store.
func (s *BadgerStore) PutVideo(ctx context.Context, video *models.Video) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return setVideo(txn, video)
	})
}

// AddComment implements Store.
func (s *BadgerStore) AddComment(ctx context.Context, comment *models.Comment) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		video, err := getVideo(txn, comment.VideoID)
		if err != nil {
			return err
		}

		data, err := json.Marshal(comment)
		if err != nil {
			return fmt.Errorf("marshal comment: %w", err)
		}
		if err := txn.Set(commentKey(comment.VideoID, comment.ID), data); err != nil {
			return fmt.Errorf("set comment: %w", err)
		}

		video.Comments++
		return setVideo(txn, video)
	})
}

// DeleteComment implements Store.
func (s *BadgerStore) DeleteComment(ctx context.Context, videoID, commentID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		key := commentKey(videoID, commentID)
		if _, err := txn.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("%w: %s", ErrCommentNotFound, commentID)
			}
			return fmt.Errorf("get comment: %w", err)
		}
		if err := txn.Delete(key); err != nil {
			return fmt.Errorf("delete comment: %w", err)
		}

		video, err := getVideo(txn, videoID)
		if err != nil {
			return err
		}
		if video.Comments > 0 {
			video.Comments--
		}
		return setVideo(txn, video)
	})
}

// ToggleLike implements Store.
func (s *BadgerStore) ToggleLike(ctx context.Context, videoID uuid.UUID, viewerID string) (bool, int64, error) {
	if err := ctx.Err(); err != nil {
		return false, 0, err
	}

	var (
		liked bool
		likes int64
	)
	err := s.db.Update(func(txn *badger.Txn) error {
		video, err := getVideo(txn, videoID)
		if err != nil {
			return err
		}

		key := likeKey(videoID, viewerID)
		_, err = txn.Get(key)
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
			if err := txn.Set(key, []byte{1}); err != nil {
				return fmt.Errorf("set like: %w", err)
			}
			video.Likes++
			liked = true
		case err != nil:
			return fmt.Errorf("get like: %w", err)
		default:
			if err := txn.Delete(key); err != nil {
				return fmt.Errorf("delete like: %w", err)
			}
			if video.Likes > 0 {
				video.Likes--
			}
			liked = false
		}

		likes = video.Likes
		return setVideo(txn, video)
	})
	if err != nil {
		return false, 0, err
	}
	return liked, likes, nil
}

// Close implements Store.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
