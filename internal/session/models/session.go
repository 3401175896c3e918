package models

import (
	"time"

	"github.com/Manoelfg123/wpp-ohi/pkg/domainerrors"
)

// Status is the durable lifecycle state of a session. Exactly one status is
// current at any time; transitions are driven only by the lifecycle manager.
type Status string

const (
	StatusInitializing Status = "initializing"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
	StatusQRReady      Status = "qr_ready"
	StatusError        Status = "error"
	StatusLoggedOut    Status = "logged_out"
)

// Valid reports whether s is one of the seven defined statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusInitializing, StatusConnecting, StatusConnected,
		StatusDisconnected, StatusQRReady, StatusError, StatusLoggedOut:
		return true
	}
	return false
}

// Config holds per-session behavior knobs. It is immutable per send and
// re-read from the store on every (re)connect, never captured once.
type Config struct {
	RestartOnAuthFail bool
	MaxRetries        int
	QRTimeout         time.Duration
}

// Validate checks config bounds and reports field-level detail.
func (c Config) Validate() error {
	fields := make(map[string]string)
	if c.MaxRetries < 0 {
		fields["maxRetries"] = "must be >= 0"
	}
	if c.QRTimeout < 0 {
		fields["qrTimeoutMs"] = "must be >= 0"
	}
	if len(fields) > 0 {
		return domainerrors.Validation("invalid session config", fields)
	}
	return nil
}

// Session is the durable record for one tenant's platform connection. The
// stored record is the source of truth; the in-memory live connection is a
// derived artifact that may diverge briefly during reconnects.
type Session struct {
	ID        string
	Status    Status
	Config    Config
	CreatedAt time.Time
	UpdatedAt time.Time
}

// QRCredential is the transient pairing challenge for a session. Held only
// in memory; superseded by every new challenge, deleted once connected.
type QRCredential struct {
	Code      string
	ExpiresAt time.Time
}

// Expired reports whether the credential is past its expiry at the given
// instant.
func (q QRCredential) Expired(now time.Time) bool {
	return now.After(q.ExpiresAt)
}

// ExpiresIn returns the remaining validity window, clamped at zero.
func (q QRCredential) ExpiresIn(now time.Time) time.Duration {
	d := q.ExpiresAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
