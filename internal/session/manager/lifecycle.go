package manager

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Manoelfg123/wpp-ohi/internal/protocol"
	"github.com/Manoelfg123/wpp-ohi/internal/session/models"
	dErrors "github.com/Manoelfg123/wpp-ohi/pkg/domainerrors"
)

// StartSession opens a new protocol connection for the session. Idempotent:
// when a live connection is already registered (or a start is in flight) it
// returns without side effects. The session config is re-read from the store
// on every call so reconnects pick up config changes.
func (m *Manager) StartSession(ctx context.Context, sessionID string) error {
	ctx, span := m.tracer.Start(ctx, "session.start",
		trace.WithAttributes(attribute.String("session.id", sessionID)))
	defer span.End()

	session, err := m.store.FindByID(ctx, sessionID)
	if err != nil {
		return wrapStoreErr(err, "failed to load session")
	}

	m.mu.Lock()
	if _, ok := m.live[sessionID]; ok || m.starting[sessionID] {
		m.mu.Unlock()
		return nil
	}
	m.starting[sessionID] = true
	m.mu.Unlock()

	conn, err := m.client.Connect(ctx, sessionID, protocol.ConnectConfig{
		CredentialDir: m.cfg.CredentialDir,
	})
	if err != nil {
		m.mu.Lock()
		delete(m.starting, sessionID)
		m.mu.Unlock()

		if m.metrics != nil {
			m.metrics.ConnectFailures.Inc()
		}
		m.setStatus(ctx, sessionID, models.StatusError)
		return dErrors.Wrap(err, dErrors.CodeConnectionFailed, "protocol client construction failed")
	}

	// The session may have been deleted while the handshake was in flight;
	// registering now would resurrect it.
	if _, err := m.store.FindByID(ctx, sessionID); err != nil {
		m.mu.Lock()
		delete(m.starting, sessionID)
		m.mu.Unlock()
		_ = conn.Close()
		return wrapStoreErr(err, "session removed during start")
	}

	m.mu.Lock()
	m.nextGen++
	gen := m.nextGen
	m.live[sessionID] = liveEntry{gen: gen, conn: conn}
	delete(m.starting, sessionID)
	m.mu.Unlock()

	m.setStatus(ctx, sessionID, models.StatusConnecting)
	m.logger.Info("session connecting", "session_id", sessionID)

	go m.runLoop(sessionID, gen, conn, session.Config)
	return nil
}

// DisconnectSession requests graceful transport teardown. Returns a
// not-active error when no live connection is registered; callers treat that
// as a successful no-op since the desired end state is already reached.
func (m *Manager) DisconnectSession(ctx context.Context, sessionID string) error {
	if _, err := m.store.FindByID(ctx, sessionID); err != nil {
		return wrapStoreErr(err, "failed to load session")
	}

	m.mu.Lock()
	entry, ok := m.live[sessionID]
	if ok {
		delete(m.live, sessionID)
	}
	m.cancelReconnectLocked(sessionID)
	delete(m.qr, sessionID)
	m.mu.Unlock()

	if !ok {
		// Desired end state already reached; record it and report not-active.
		m.setStatus(ctx, sessionID, models.StatusDisconnected)
		return dErrors.New(dErrors.CodeNotActive, "no live connection for session")
	}

	if err := entry.conn.Logout(ctx); err != nil {
		m.logger.Warn("graceful logout failed", "session_id", sessionID, "error", err)
	}
	_ = entry.conn.Close()

	m.setStatus(ctx, sessionID, models.StatusDisconnected)
	m.logger.Info("session disconnected", "session_id", sessionID)
	return nil
}

// ReconnectSession tears down any live connection and starts a fresh one.
func (m *Manager) ReconnectSession(ctx context.Context, sessionID string) error {
	if err := m.DisconnectSession(ctx, sessionID); err != nil &&
		!dErrors.HasCode(err, dErrors.CodeNotActive) {
		return err
	}
	return m.StartSession(ctx, sessionID)
}

// DeleteSession removes the durable record. A live connection gets a
// graceful disconnect attempt first; deletion proceeds even if that fails.
// Any scheduled reconnect for the id is cancelled so the session cannot be
// resurrected.
func (m *Manager) DeleteSession(ctx context.Context, sessionID string) error {
	ctx, span := m.tracer.Start(ctx, "session.delete",
		trace.WithAttributes(attribute.String("session.id", sessionID)))
	defer span.End()

	session, err := m.store.FindByID(ctx, sessionID)
	if err != nil {
		return wrapStoreErr(err, "failed to load session")
	}

	m.mu.Lock()
	entry, live := m.live[sessionID]
	if live {
		delete(m.live, sessionID)
	}
	m.cancelReconnectLocked(sessionID)
	delete(m.qr, sessionID)
	delete(m.retries, sessionID)
	m.mu.Unlock()

	if live {
		if err := entry.conn.Logout(ctx); err != nil {
			m.logger.Warn("disconnect before delete failed, deleting anyway",
				"session_id", sessionID, "error", err)
		}
		_ = entry.conn.Close()
	}

	if err := m.store.Delete(ctx, sessionID); err != nil {
		return wrapStoreErr(err, "failed to delete session")
	}
	m.observeStatus(session.Status, -1)

	m.logger.Info("session deleted", "session_id", sessionID)
	return nil
}

// runLoop consumes one connection's event stream. Each session's callbacks
// originate from a single connection, so per-session transitions stay
// linearized.
func (m *Manager) runLoop(sessionID string, gen uint64, conn protocol.Connection, cfg models.Config) {
	ctx := context.Background()

	for ev := range conn.Events() {
		switch e := ev.(type) {
		case protocol.QREvent:
			m.handleQR(ctx, sessionID, gen, conn, e, cfg)
		case protocol.OpenEvent:
			m.handleOpen(ctx, sessionID, gen, e)
		case protocol.CloseEvent:
			m.handleClose(ctx, sessionID, gen, e, cfg)
		case protocol.MessageEvent:
			m.handleMessage(ctx, sessionID, e)
		}
	}

	// Stream ended without a close event: treat it as an anonymous closure
	// if this generation is still registered.
	if m.unregister(sessionID, gen) {
		m.handleClosure(ctx, sessionID, protocol.CloseEvent{Reason: "event stream ended"}, cfg)
	}
}

// handleQR records a fresh pairing credential. Challenges are accepted in
// any state since the transport may re-challenge at any time.
func (m *Manager) handleQR(ctx context.Context, sessionID string, gen uint64, conn protocol.Connection, e protocol.QREvent, cfg models.Config) {
	if !m.isCurrent(sessionID, gen) {
		return
	}

	code, err := m.encode(e.Code)
	if err != nil {
		// Encoding failure is fatal to this connection attempt: tear the
		// connection down and retry from scratch shortly, rather than leave
		// the session wedged in connecting.
		m.logger.Error("qr encode failed, restarting connection",
			"session_id", sessionID, "error", err)
		if m.unregister(sessionID, gen) {
			_ = conn.Close()
			m.scheduleStart(sessionID, m.cfg.RestartDelay)
		}
		return
	}

	timeout := cfg.QRTimeout
	if timeout <= 0 {
		timeout = m.cfg.DefaultQRTimeout
	}
	cred := models.QRCredential{
		Code:      code,
		ExpiresAt: time.Now().Add(timeout),
	}

	m.mu.Lock()
	m.qr[sessionID] = cred
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.QRCodesIssued.Inc()
	}
	m.setStatus(ctx, sessionID, models.StatusQRReady)
	m.logger.Info("qr code issued", "session_id", sessionID, "expires_at", cred.ExpiresAt)

	m.events.Publish(ctx, models.NewPlatformEvent(sessionID, models.EventQRUpdated, map[string]any{
		"expiresAt": cred.ExpiresAt.UTC().Format(time.RFC3339),
	}))
}

func (m *Manager) handleOpen(ctx context.Context, sessionID string, gen uint64, e protocol.OpenEvent) {
	if !m.isCurrent(sessionID, gen) {
		return
	}

	m.mu.Lock()
	delete(m.qr, sessionID)
	m.retries[sessionID] = 0
	m.mu.Unlock()

	m.setStatus(ctx, sessionID, models.StatusConnected)
	m.logger.Info("session connected",
		"session_id", sessionID,
		"jid", e.Identity.JID,
	)

	m.events.Publish(ctx, models.NewPlatformEvent(sessionID, models.EventConnectionOpen, map[string]any{
		"jid":      e.Identity.JID,
		"platform": e.Identity.Platform,
	}))
}

func (m *Manager) handleClose(ctx context.Context, sessionID string, gen uint64, e protocol.CloseEvent, cfg models.Config) {
	if !m.unregister(sessionID, gen) {
		return
	}
	m.handleClosure(ctx, sessionID, e, cfg)
}

// handleClosure applies the reconnect eligibility policy once the closing
// generation has been unregistered.
func (m *Manager) handleClosure(ctx context.Context, sessionID string, e protocol.CloseEvent, cfg models.Config) {
	m.events.Publish(ctx, models.NewPlatformEvent(sessionID, models.EventConnectionClose, map[string]any{
		"reason":    e.Reason,
		"loggedOut": e.IsLoggedOut,
	}))

	switch {
	case e.IsLoggedOut:
		m.mu.Lock()
		delete(m.qr, sessionID)
		m.mu.Unlock()
		m.setStatus(ctx, sessionID, models.StatusLoggedOut)
		m.logger.Info("session logged out", "session_id", sessionID, "reason", e.Reason)

	case e.IsAuthFailure && !cfg.RestartOnAuthFail:
		m.setStatus(ctx, sessionID, models.StatusDisconnected)
		m.logger.Info("session closed after auth failure, restart disabled",
			"session_id", sessionID, "reason", e.Reason)

	default:
		m.mu.Lock()
		m.retries[sessionID]++
		attempts := m.retries[sessionID]
		m.mu.Unlock()

		// MaxRetries is advisory at this layer: it is tracked and logged for
		// observability but only explicit deletion stops the retry loop.
		if cfg.MaxRetries > 0 && attempts > cfg.MaxRetries {
			m.logger.Warn("session exceeded configured retry budget",
				"session_id", sessionID,
				"attempts", attempts,
				"max_retries", cfg.MaxRetries,
			)
		}

		if m.metrics != nil {
			m.metrics.ReconnectsTotal.Inc()
		}
		m.setStatus(ctx, sessionID, models.StatusConnecting)
		m.logger.Info("session closed, reconnect scheduled",
			"session_id", sessionID,
			"reason", e.Reason,
			"delay", m.cfg.ReconnectDelay.String(),
			"attempt", attempts,
		)
		m.scheduleStart(sessionID, m.cfg.ReconnectDelay)
	}
}

func (m *Manager) handleMessage(ctx context.Context, sessionID string, e protocol.MessageEvent) {
	if m.metrics != nil {
		m.metrics.MessagesForwarded.Inc()
	}
	m.events.Publish(ctx, models.NewPlatformEvent(sessionID, models.EventMessageReceived, map[string]any{
		"kind": e.Kind,
		"data": e.Raw,
	}))
}

// scheduleStart arms (or re-arms) the per-session reconnect timer.
func (m *Manager) scheduleStart(sessionID string, delay time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if timer, ok := m.timers[sessionID]; ok {
		timer.Stop()
	}
	m.timers[sessionID] = time.AfterFunc(delay, func() {
		m.mu.Lock()
		delete(m.timers, sessionID)
		m.mu.Unlock()

		if err := m.StartSession(context.Background(), sessionID); err != nil {
			if dErrors.HasCode(err, dErrors.CodeNotFound) {
				return // deleted in the meantime
			}
			m.logger.Warn("scheduled reconnect failed, retrying",
				"session_id", sessionID, "error", err)
			m.scheduleStart(sessionID, m.cfg.ReconnectDelay)
		}
	})
}

func (m *Manager) cancelReconnectLocked(sessionID string) {
	if timer, ok := m.timers[sessionID]; ok {
		timer.Stop()
		delete(m.timers, sessionID)
	}
}

// isCurrent reports whether gen is the registered generation for the id.
func (m *Manager) isCurrent(sessionID string, gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.live[sessionID]
	return ok && entry.gen == gen
}

// unregister removes the registry entry iff gen is still current.
func (m *Manager) unregister(sessionID string, gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.live[sessionID]
	if !ok || entry.gen != gen {
		return false
	}
	delete(m.live, sessionID)
	return true
}
