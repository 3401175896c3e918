package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/Manoelfg123/wpp-ohi/internal/session/models"
	"github.com/Manoelfg123/wpp-ohi/pkg/sentinel"
)

const (
	// Redis key layout: one JSON value per session plus an index set for
	// listing.
	sessionKeyPrefix = "session:"
	sessionIndexKey  = "sessions:index"
)

// sessionJSON is the JSON-serializable representation of a Session. Explicit
// tags control the stored format; durations are stored in milliseconds.
type sessionJSON struct {
	ID                string `json:"id"`
	Status            string `json:"status"`
	RestartOnAuthFail bool   `json:"restart_on_auth_fail"`
	MaxRetries        int    `json:"max_retries"`
	QRTimeoutMs       int64  `json:"qr_timeout_ms"`
	CreatedAt         int64  `json:"created_at"` // Unix nano
	UpdatedAt         int64  `json:"updated_at"` // Unix nano
}

func sessionToJSON(s *models.Session) *sessionJSON {
	return &sessionJSON{
		ID:                s.ID,
		Status:            string(s.Status),
		RestartOnAuthFail: s.Config.RestartOnAuthFail,
		MaxRetries:        s.Config.MaxRetries,
		QRTimeoutMs:       s.Config.QRTimeout.Milliseconds(),
		CreatedAt:         s.CreatedAt.UnixNano(),
		UpdatedAt:         s.UpdatedAt.UnixNano(),
	}
}

func sessionFromJSON(j *sessionJSON) (*models.Session, error) {
	status := models.Status(j.Status)
	if !status.Valid() {
		return nil, fmt.Errorf("stored session %s has unknown status %q: %w", j.ID, j.Status, sentinel.ErrInvalidState)
	}
	return &models.Session{
		ID:     j.ID,
		Status: status,
		Config: models.Config{
			RestartOnAuthFail: j.RestartOnAuthFail,
			MaxRetries:        j.MaxRetries,
			QRTimeout:         time.Duration(j.QRTimeoutMs) * time.Millisecond,
		},
		CreatedAt: time.Unix(0, j.CreatedAt).UTC(),
		UpdatedAt: time.Unix(0, j.UpdatedAt).UTC(),
	}, nil
}

// RedisStore persists sessions in Redis.
type RedisStore struct {
	client redis.Cmdable
}

// NewRedis constructs a Redis-backed session store.
func NewRedis(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Create(ctx context.Context, session *models.Session) error {
	data, err := json.Marshal(sessionToJSON(session))
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	ok, err := s.client.SetNX(ctx, sessionKeyPrefix+session.ID, data, 0).Result()
	if err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	if !ok {
		return fmt.Errorf("session %s already exists: %w", session.ID, sentinel.ErrInvalidState)
	}
	if err := s.client.SAdd(ctx, sessionIndexKey, session.ID).Err(); err != nil {
		return fmt.Errorf("index session: %w", err)
	}
	return nil
}

func (s *RedisStore) FindByID(ctx context.Context, sessionID string) (*models.Session, error) {
	data, err := s.client.Get(ctx, sessionKeyPrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	var j sessionJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return sessionFromJSON(&j)
}

func (s *RedisStore) List(ctx context.Context) ([]*models.Session, error) {
	ids, err := s.client.SMembers(ctx, sessionIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list session ids: %w", err)
	}

	results := make([]*models.Session, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			session, err := s.FindByID(gctx, id)
			if errors.Is(err, sentinel.ErrNotFound) {
				// Index can briefly outlive a deleted record; skip the orphan.
				return nil
			}
			if err != nil {
				return err
			}
			results[i] = session
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sessions := make([]*models.Session, 0, len(results))
	for _, session := range results {
		if session != nil {
			sessions = append(sessions, session)
		}
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})
	return sessions, nil
}

func (s *RedisStore) Update(ctx context.Context, session *models.Session) error {
	if err := s.ensureExists(ctx, session.ID); err != nil {
		return err
	}

	updated := *session
	updated.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(sessionToJSON(&updated))
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKeyPrefix+session.ID, data, 0).Err(); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

func (s *RedisStore) UpdateStatus(ctx context.Context, sessionID string, status models.Status) error {
	session, err := s.FindByID(ctx, sessionID)
	if err != nil {
		return err
	}
	session.Status = status
	return s.Update(ctx, session)
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	removed, err := s.client.Del(ctx, sessionKeyPrefix+sessionID).Result()
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if removed == 0 {
		return fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
	}
	if err := s.client.SRem(ctx, sessionIndexKey, sessionID).Err(); err != nil {
		return fmt.Errorf("unindex session: %w", err)
	}
	return nil
}

func (s *RedisStore) ensureExists(ctx context.Context, sessionID string) error {
	n, err := s.client.Exists(ctx, sessionKeyPrefix+sessionID).Result()
	if err != nil {
		return fmt.Errorf("check session: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
	}
	return nil
}
