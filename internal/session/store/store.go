// Package store persists session records. The durable record is the source
// of truth for session status and config; live connections are derived state
// owned by the lifecycle manager.
//
// Error contract: all store methods return an error wrapping
// sentinel.ErrNotFound when the requested session does not exist, nil on
// success, and wrapped infrastructure errors otherwise.
package store

//go:generate mockgen -source=store.go -destination=mocks/store_mock.go -package=mocks Store

import (
	"context"

	"github.com/Manoelfg123/wpp-ohi/internal/session/models"
)

// Store is the durable session record contract consumed by the lifecycle
// manager and the HTTP layer.
type Store interface {
	Create(ctx context.Context, session *models.Session) error
	FindByID(ctx context.Context, sessionID string) (*models.Session, error)
	List(ctx context.Context) ([]*models.Session, error)
	Update(ctx context.Context, session *models.Session) error
	UpdateStatus(ctx context.Context, sessionID string, status models.Status) error
	Delete(ctx context.Context, sessionID string) error
}
