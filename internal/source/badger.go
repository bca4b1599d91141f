// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/affinity/internal/models"
)

// Key prefixes for BadgerDB storage. Ids are zero padded so prefix
// iteration yields ascending id order.
const (
	userKeyPrefix     = "user:"
	teamKeyPrefix     = "team:"
	feedbackKeyPrefix = "feedback:"
)

// Config configures the BadgerDB store.
type Config struct {
	Path       string
	InMemory   bool
	SyncWrites bool
	GCRatio    float64
}

// BadgerStore implements UserSource and FeedbackStore on BadgerDB.
type BadgerStore struct {
	db      *badger.DB
	gcRatio float64
	logger  zerolog.Logger
}

var (
	_ UserSource    = (*BadgerStore)(nil)
	_ FeedbackStore = (*BadgerStore)(nil)
)

// OpenBadger opens (or creates) the store.
//
//nolint:gocritic // logger passed by value, matches zerolog convention
func OpenBadger(cfg Config, logger zerolog.Logger) (*BadgerStore, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, errors.New("badger path is required unless in-memory")
		}
		opts = badger.DefaultOptions(cfg.Path)
		opts.SyncWrites = cfg.SyncWrites
	}
	opts.Logger = nil // Suppress BadgerDB internal logs

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	if cfg.GCRatio <= 0 || cfg.GCRatio >= 1 {
		cfg.GCRatio = 0.5
	}

	logger = logger.With().Str("component", "source").Logger()
	logger.Info().Str("path", cfg.Path).Bool("in_memory", cfg.InMemory).Msg("system-of-record opened")

	return &BadgerStore{db: db, gcRatio: cfg.GCRatio, logger: logger}, nil
}

// Close closes the database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func idKey(prefix string, id int64) []byte {
	return []byte(fmt.Sprintf("%s%020d", prefix, id))
}

// PutUsers writes users in a single transaction.
func (s *BadgerStore) PutUsers(_ context.Context, users ...*models.User) error {
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for _, u := range users {
		data, err := json.Marshal(u)
		if err != nil {
			return fmt.Errorf("marshal user %d: %w", u.ID, err)
		}
		if err := wb.Set(idKey(userKeyPrefix, u.ID), data); err != nil {
			return fmt.Errorf("set user %d: %w", u.ID, err)
		}
	}
	return wb.Flush()
}

// PutTeams writes teams in a single transaction.
func (s *BadgerStore) PutTeams(_ context.Context, teams ...*models.Team) error {
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for _, t := range teams {
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("marshal team %d: %w", t.ID, err)
		}
		if err := wb.Set(idKey(teamKeyPrefix, t.ID), data); err != nil {
			return fmt.Errorf("set team %d: %w", t.ID, err)
		}
	}
	return wb.Flush()
}

// UpdateUserTags replaces a user's tags and returns the updated user.
func (s *BadgerStore) UpdateUserTags(_ context.Context, id int64, tags []string) (*models.User, error) {
	var user models.User
	err := s.db.Update(func(txn *badger.Txn) error {
		key := idKey(userKeyPrefix, id)
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return models.ErrUserNotFound
		}
		if err != nil {
			return fmt.Errorf("get user: %w", err)
		}
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &user)
		}); err != nil {
			return err
		}

		user.Tags = models.EncodeTags(tags)
		data, err := json.Marshal(&user)
		if err != nil {
			return fmt.Errorf("marshal user: %w", err)
		}
		return txn.Set(key, data)
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ListActiveUsers returns every active user in ascending id order.
func (s *BadgerStore) ListActiveUsers(ctx context.Context) ([]*models.User, error) {
	var users []*models.User
	err := s.iterate(ctx, userKeyPrefix, func(val []byte) error {
		u := new(models.User)
		if err := json.Unmarshal(val, u); err != nil {
			s.logger.Warn().Err(err).Msg("skipping malformed user record")
			return nil
		}
		if u.Active() {
			users = append(users, u)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// GetUserByID returns one user.
func (s *BadgerStore) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	var user models.User
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(idKey(userKeyPrefix, id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return models.ErrUserNotFound
		}
		if err != nil {
			return fmt.Errorf("get user: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &user)
		})
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ListTeams returns every team in ascending id order.
func (s *BadgerStore) ListTeams(ctx context.Context) ([]*models.Team, error) {
	var teams []*models.Team
	err := s.iterate(ctx, teamKeyPrefix, func(val []byte) error {
		t := new(models.Team)
		if err := json.Unmarshal(val, t); err != nil {
			s.logger.Warn().Err(err).Msg("skipping malformed team record")
			return nil
		}
		teams = append(teams, t)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	return teams, nil
}

// SaveFeedback validates and stores a feedback record. CreatedAt is set when
// zero.
func (s *BadgerStore) SaveFeedback(_ context.Context, fb *models.Feedback) error {
	if err := fb.Validate(); err != nil {
		return err
	}
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(fb)
	if err != nil {
		return fmt.Errorf("marshal feedback: %w", err)
	}

	// feedback:<user>:<unix nanos>:<uuid> keeps per-user records in time order.
	key := fmt.Sprintf("%s%020d:%020d:%s", feedbackKeyPrefix, fb.UserID, fb.CreatedAt.UnixNano(), uuid.NewString())
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

// ListFeedback returns a user's feedback, oldest first.
func (s *BadgerStore) ListFeedback(ctx context.Context, userID int64) ([]*models.Feedback, error) {
	prefix := fmt.Sprintf("%s%020d:", feedbackKeyPrefix, userID)

	var out []*models.Feedback
	err := s.iterate(ctx, prefix, func(val []byte) error {
		fb := new(models.Feedback)
		if err := json.Unmarshal(val, fb); err != nil {
			return nil
		}
		out = append(out, fb)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	return out, nil
}

// RunGC reclaims value log space until nothing is left to rewrite.
func (s *BadgerStore) RunGC(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := s.db.RunValueLogGC(s.gcRatio)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrGCInMemoryMode) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("run GC: %w", err)
		}
	}
}

func (s *BadgerStore) iterate(ctx context.Context, prefix string, fn func(val []byte) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := it.Item().Value(fn); err != nil {
				return err
			}
		}
		return nil
	})
}
