package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Manoelfg123/wpp-ohi/internal/session/models"
	"github.com/Manoelfg123/wpp-ohi/pkg/sentinel"
	"github.com/Manoelfg123/wpp-ohi/pkg/testutil"
)

// storeUnderTest runs the shared contract tests against every Store
// implementation. The Redis variant uses miniredis so no server is needed.
func storesUnderTest(t *testing.T) map[string]Store {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return map[string]Store{
		"memory": NewInMemory(),
		"redis":  NewRedis(client),
	}
}

func newTestSession() *models.Session {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &models.Session{
		ID:     uuid.New().String(),
		Status: models.StatusInitializing,
		Config: models.Config{
			RestartOnAuthFail: true,
			MaxRetries:        5,
			QRTimeout:         30 * time.Second,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestStoreCreateAndFind(t *testing.T) {
	for name, s := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			session := newTestSession()

			require.NoError(t, s.Create(ctx, session))

			found, err := s.FindByID(ctx, session.ID)
			require.NoError(t, err)
			assert.Equal(t, session.ID, found.ID)
			assert.Equal(t, models.StatusInitializing, found.Status)
			assert.Equal(t, 30*time.Second, found.Config.QRTimeout)
			assert.True(t, found.Config.RestartOnAuthFail)
		})
	}
}

func TestStoreCreateDuplicateFails(t *testing.T) {
	for name, s := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			session := newTestSession()

			require.NoError(t, s.Create(ctx, session))
			err := s.Create(ctx, session)
			require.ErrorIs(t, err, sentinel.ErrInvalidState)
		})
	}
}

func TestStoreFindMissing(t *testing.T) {
	for name, s := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.FindByID(context.Background(), uuid.New().String())
			require.ErrorIs(t, err, sentinel.ErrNotFound)
		})
	}
}

func TestStoreUpdateStatus(t *testing.T) {
	for name, s := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			session := newTestSession()
			require.NoError(t, s.Create(ctx, session))

			require.NoError(t, s.UpdateStatus(ctx, session.ID, models.StatusConnected))

			found, err := s.FindByID(ctx, session.ID)
			require.NoError(t, err)
			assert.Equal(t, models.StatusConnected, found.Status)

			err = s.UpdateStatus(ctx, uuid.New().String(), models.StatusConnected)
			require.ErrorIs(t, err, sentinel.ErrNotFound)
		})
	}
}

func TestStoreUpdateConfig(t *testing.T) {
	for name, s := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			session := newTestSession()
			require.NoError(t, s.Create(ctx, session))

			session.Config.MaxRetries = 9
			session.Config.RestartOnAuthFail = false
			require.NoError(t, s.Update(ctx, session))

			found, err := s.FindByID(ctx, session.ID)
			require.NoError(t, err)
			assert.Equal(t, 9, found.Config.MaxRetries)
			assert.False(t, found.Config.RestartOnAuthFail)
		})
	}
}

func TestStoreList(t *testing.T) {
	for name, s := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			first := newTestSession()
			second := newTestSession()
			second.CreatedAt = first.CreatedAt.Add(time.Second)
			require.NoError(t, s.Create(ctx, first))
			require.NoError(t, s.Create(ctx, second))

			sessions, err := s.List(ctx)
			require.NoError(t, err)
			assert.Len(t, sessions, 2)
		})
	}
}

func TestStoreDelete(t *testing.T) {
	for name, s := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			session := newTestSession()
			require.NoError(t, s.Create(ctx, session))

			require.NoError(t, s.Delete(ctx, session.ID))

			_, err := s.FindByID(ctx, session.ID)
			require.ErrorIs(t, err, sentinel.ErrNotFound)

			err = s.Delete(ctx, session.ID)
			require.ErrorIs(t, err, sentinel.ErrNotFound)

			sessions, err := s.List(ctx)
			require.NoError(t, err)
			assert.Empty(t, sessions)
		})
	}
}

// Justification: concurrent creates against the same id must admit exactly
// one winner; the rest observe the record already exists.
func TestStoreConcurrentCreate(t *testing.T) {
	for name, s := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			session := newTestSession()

			result := testutil.RunConcurrent(10, func(int) error {
				clone := *session
				return s.Create(ctx, &clone)
			})

			assert.Equal(t, int32(1), result.Successes)
			assert.Equal(t, int32(9), result.InvalidStates)
			assert.Zero(t, result.Errors)
		})
	}
}
