// Package manager supervises session lifecycles: one live protocol
// connection per session, a QR pairing cache, and fixed-delay reconnects.
// The durable store is the source of truth for status; the registry here is
// derived state reconciled by the manager's own callback handlers.
package manager

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/Manoelfg123/wpp-ohi/internal/protocol"
	sessionmetrics "github.com/Manoelfg123/wpp-ohi/internal/session/metrics"
	"github.com/Manoelfg123/wpp-ohi/internal/session/models"
	"github.com/Manoelfg123/wpp-ohi/internal/session/store"
	dErrors "github.com/Manoelfg123/wpp-ohi/pkg/domainerrors"
	"github.com/Manoelfg123/wpp-ohi/pkg/sentinel"
)

// EventSink receives platform events for downstream delivery. Publish must
// never fail; the delivery pipeline buffers what the broker cannot take.
type EventSink interface {
	Publish(ctx context.Context, event models.PlatformEvent)
}

// QREncoder transforms the raw pairing payload into the form handed to
// callers (e.g. a rendered data URL). The default keeps the payload as-is.
type QREncoder func(code string) (string, error)

// Config holds lifecycle pacing and per-session defaults.
type Config struct {
	// ReconnectDelay is the fixed pause before a reconnect-eligible closure
	// turns into a new connection attempt. Pairing is human-paced, so this
	// stays a fixed delay rather than an exponential backoff.
	ReconnectDelay time.Duration

	// RestartDelay is the short pause before restarting a connection attempt
	// that died on a QR encoding failure.
	RestartDelay time.Duration

	DefaultQRTimeout         time.Duration
	DefaultMaxRetries        int
	DefaultRestartOnAuthFail bool

	CredentialDir string
}

func (c Config) withDefaults() Config {
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = 5 * time.Second
	}
	if c.RestartDelay <= 0 {
		c.RestartDelay = 2 * time.Second
	}
	if c.DefaultQRTimeout <= 0 {
		c.DefaultQRTimeout = 30 * time.Second
	}
	return c
}

type liveEntry struct {
	gen  uint64
	conn protocol.Connection
}

// Manager owns the registry of live connections and drives the per-session
// state machine.
type Manager struct {
	client  protocol.Client
	store   store.Store
	events  EventSink
	cfg     Config
	logger  *slog.Logger
	metrics *sessionmetrics.Metrics
	encode  QREncoder
	tracer  trace.Tracer

	mu       sync.Mutex
	nextGen  uint64
	live     map[string]liveEntry
	qr       map[string]models.QRCredential
	timers   map[string]*time.Timer
	starting map[string]bool
	retries  map[string]int
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger overrides the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithMetrics attaches lifecycle metrics.
func WithMetrics(metrics *sessionmetrics.Metrics) Option {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// WithQREncoder overrides the pairing payload encoder.
func WithQREncoder(encode QREncoder) Option {
	return func(m *Manager) {
		if encode != nil {
			m.encode = encode
		}
	}
}

// New constructs a Manager.
func New(client protocol.Client, st store.Store, events EventSink, cfg Config, opts ...Option) *Manager {
	m := &Manager{
		client:   client,
		store:    st,
		events:   events,
		cfg:      cfg.withDefaults(),
		logger:   slog.Default(),
		encode:   func(code string) (string, error) { return code, nil },
		tracer:   otel.Tracer("session-manager"),
		live:     make(map[string]liveEntry),
		qr:       make(map[string]models.QRCredential),
		timers:   make(map[string]*time.Timer),
		starting: make(map[string]bool),
		retries:  make(map[string]int),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// DefaultConfig returns the per-session config seeded from service-level
// defaults. The HTTP layer applies partial requests on top of it.
func (m *Manager) DefaultConfig() models.Config {
	return models.Config{
		RestartOnAuthFail: m.cfg.DefaultRestartOnAuthFail,
		MaxRetries:        m.cfg.DefaultMaxRetries,
		QRTimeout:         m.cfg.DefaultQRTimeout,
	}
}

// CreateSession creates the durable record in initializing state.
func (m *Manager) CreateSession(ctx context.Context, cfg models.Config) (*models.Session, error) {
	if cfg.QRTimeout == 0 {
		cfg.QRTimeout = m.cfg.DefaultQRTimeout
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	session := &models.Session{
		ID:        uuid.New().String(),
		Status:    models.StatusInitializing,
		Config:    cfg,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.store.Create(ctx, session); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create session")
	}

	m.logger.Info("session created", "session_id", session.ID)
	m.observeStatus(models.StatusInitializing, 1)
	return session, nil
}

// GetSession returns the durable record.
func (m *Manager) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	session, err := m.store.FindByID(ctx, sessionID)
	if err != nil {
		return nil, wrapStoreErr(err, "failed to load session")
	}
	return session, nil
}

// ListSessions returns all durable records.
func (m *Manager) ListSessions(ctx context.Context) ([]*models.Session, error) {
	sessions, err := m.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list sessions")
	}
	return sessions, nil
}

// UpdateSession replaces the session config.
func (m *Manager) UpdateSession(ctx context.Context, sessionID string, cfg models.Config) (*models.Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	session, err := m.store.FindByID(ctx, sessionID)
	if err != nil {
		return nil, wrapStoreErr(err, "failed to load session")
	}
	session.Config = cfg
	if err := m.store.Update(ctx, session); err != nil {
		return nil, wrapStoreErr(err, "failed to update session")
	}
	return session, nil
}

// SessionInfo merges the durable record with live connection metadata.
type SessionInfo struct {
	Session  *models.Session
	Active   bool
	Identity *protocol.Identity
}

// GetSessionInfo never fails solely because the live connection is absent;
// it degrades to durable data only.
func (m *Manager) GetSessionInfo(ctx context.Context, sessionID string) (*SessionInfo, error) {
	session, err := m.store.FindByID(ctx, sessionID)
	if err != nil {
		return nil, wrapStoreErr(err, "failed to load session")
	}

	info := &SessionInfo{Session: session}
	if conn, ok := m.GetLiveConnection(sessionID); ok {
		info.Active = true
		if id := conn.Identity(); id != (protocol.Identity{}) {
			info.Identity = &id
		}
	}
	return info, nil
}

// IsSessionActive reports whether a live connection is registered.
func (m *Manager) IsSessionActive(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.live[sessionID]
	return ok
}

// GetLiveConnection returns the registered connection, if any.
func (m *Manager) GetLiveConnection(sessionID string) (protocol.Connection, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.live[sessionID]
	if !ok {
		return nil, false
	}
	return entry.conn, true
}

// GetQRCode returns the current pairing credential. Expired credentials are
// evicted at read time; callers retry StartSession for a fresh one.
func (m *Manager) GetQRCode(ctx context.Context, sessionID string) (*models.QRCredential, error) {
	if _, err := m.store.FindByID(ctx, sessionID); err != nil {
		return nil, wrapStoreErr(err, "failed to load session")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	cred, ok := m.qr[sessionID]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotReady, "no qr code issued yet")
	}
	if cred.Expired(time.Now()) {
		delete(m.qr, sessionID)
		return nil, dErrors.New(dErrors.CodeExpired, "qr code expired, restart the session for a fresh one")
	}
	copied := cred
	return &copied, nil
}

// SendMessage delegates to the live connection. Requires status connected.
func (m *Manager) SendMessage(ctx context.Context, sessionID string, content []byte) (protocol.Receipt, error) {
	session, err := m.store.FindByID(ctx, sessionID)
	if err != nil {
		return protocol.Receipt{}, wrapStoreErr(err, "failed to load session")
	}
	if session.Status != models.StatusConnected {
		return protocol.Receipt{}, dErrors.New(dErrors.CodeInvalidState, "session is not connected")
	}
	conn, ok := m.GetLiveConnection(sessionID)
	if !ok {
		return protocol.Receipt{}, dErrors.New(dErrors.CodeNotActive, "no live connection for session")
	}

	receipt, err := conn.Send(ctx, content)
	if err != nil {
		return protocol.Receipt{}, dErrors.Wrap(err, dErrors.CodeInternal, "send failed")
	}
	return receipt, nil
}

func wrapStoreErr(err error, msg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeNotFound, "session not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

func (m *Manager) observeStatus(status models.Status, delta float64) {
	if m.metrics != nil {
		m.metrics.SessionsByStatus.WithLabelValues(string(status)).Add(delta)
	}
}

func (m *Manager) setStatus(ctx context.Context, sessionID string, status models.Status) {
	var prev *models.Session
	if m.metrics != nil {
		prev, _ = m.store.FindByID(ctx, sessionID)
	}
	if err := m.store.UpdateStatus(ctx, sessionID, status); err != nil {
		// The durable record may already be gone (deletion racing a close);
		// the registry is the part the manager must keep consistent.
		m.logger.Warn("status update failed",
			"session_id", sessionID,
			"status", string(status),
			"error", err,
		)
		return
	}
	if prev != nil && prev.Status != status {
		m.observeStatus(prev.Status, -1)
		m.observeStatus(status, 1)
	}
	m.logger.Debug("session status changed", "session_id", sessionID, "status", string(status))
}
