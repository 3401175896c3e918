package manager

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/Manoelfg123/wpp-ohi/internal/protocol"
	"github.com/Manoelfg123/wpp-ohi/internal/protocol/protocoltest"
	"github.com/Manoelfg123/wpp-ohi/internal/session/models"
	"github.com/Manoelfg123/wpp-ohi/internal/session/store"
	dErrors "github.com/Manoelfg123/wpp-ohi/pkg/domainerrors"
)

type recordingSink struct {
	mu     sync.Mutex
	events []models.PlatformEvent
}

func (s *recordingSink) Publish(_ context.Context, event models.PlatformEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *recordingSink) ofType(eventType string) []models.PlatformEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.PlatformEvent
	for _, ev := range s.events {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}

type ManagerSuite struct {
	suite.Suite

	client *protocoltest.Client
	store  *store.InMemoryStore
	sink   *recordingSink
	mgr    *Manager
	ctx    context.Context
}

func (s *ManagerSuite) SetupTest() {
	s.client = protocoltest.NewClient()
	s.store = store.NewInMemory()
	s.sink = &recordingSink{}
	s.mgr = New(s.client, s.store, s.sink, Config{
		ReconnectDelay:   40 * time.Millisecond,
		RestartDelay:     10 * time.Millisecond,
		DefaultQRTimeout: 30 * time.Second,
	})
	s.ctx = context.Background()
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerSuite))
}

func (s *ManagerSuite) create(cfg models.Config) *models.Session {
	session, err := s.mgr.CreateSession(s.ctx, cfg)
	s.Require().NoError(err)
	return session
}

func (s *ManagerSuite) start(sessionID string) *protocoltest.Connection {
	s.Require().NoError(s.mgr.StartSession(s.ctx, sessionID))
	conn, err := s.client.Connection(sessionID, 0)
	s.Require().NoError(err)
	return conn
}

func (s *ManagerSuite) waitStatus(sessionID string, want models.Status) {
	s.Require().Eventually(func() bool {
		session, err := s.store.FindByID(s.ctx, sessionID)
		return err == nil && session.Status == want
	}, 2*time.Second, 5*time.Millisecond, "session never reached status %s", want)
}

func (s *ManagerSuite) TestCreateSessionDefaults() {
	session := s.create(models.Config{})

	s.Equal(models.StatusInitializing, session.Status)
	s.Equal(30*time.Second, session.Config.QRTimeout)
	s.NotEmpty(session.ID)
}

// Justification: starting a session twice must not open a second transport
// connection; callers retry freely and the second call is a no-op.
func (s *ManagerSuite) TestStartSessionIdempotent() {
	session := s.create(models.Config{})

	s.Require().NoError(s.mgr.StartSession(s.ctx, session.ID))
	s.Require().NoError(s.mgr.StartSession(s.ctx, session.ID))

	s.Equal(1, s.client.ConnectionCount(session.ID))
	s.waitStatus(session.ID, models.StatusConnecting)
}

func (s *ManagerSuite) TestStartSessionUnknownID() {
	err := s.mgr.StartSession(s.ctx, "nope")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ManagerSuite) TestStartSessionConnectFailure() {
	session := s.create(models.Config{})
	s.client.FailConnectWith(errors.New("dial refused"))

	err := s.mgr.StartSession(s.ctx, session.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeConnectionFailed))
	s.waitStatus(session.ID, models.StatusError)
	s.False(s.mgr.IsSessionActive(session.ID))
}

func (s *ManagerSuite) TestQRCodeIssued() {
	session := s.create(models.Config{})
	conn := s.start(session.ID)

	conn.EmitQR("pair-me")
	s.waitStatus(session.ID, models.StatusQRReady)

	cred, err := s.mgr.GetQRCode(s.ctx, session.ID)
	s.Require().NoError(err)
	s.Equal("pair-me", cred.Code)
	s.LessOrEqual(cred.ExpiresIn(time.Now()), 30*time.Second)

	s.Require().Eventually(func() bool {
		return len(s.sink.ofType(models.EventQRUpdated)) == 1
	}, time.Second, 5*time.Millisecond)
}

func (s *ManagerSuite) TestQRCodeNotReady() {
	session := s.create(models.Config{})
	s.start(session.ID)

	_, err := s.mgr.GetQRCode(s.ctx, session.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotReady))
}

func (s *ManagerSuite) TestQRCodeExpires() {
	session := s.create(models.Config{QRTimeout: 20 * time.Millisecond})
	conn := s.start(session.ID)

	conn.EmitQR("short-lived")
	s.waitStatus(session.ID, models.StatusQRReady)

	s.Require().Eventually(func() bool {
		_, err := s.mgr.GetQRCode(s.ctx, session.ID)
		return dErrors.HasCode(err, dErrors.CodeExpired)
	}, time.Second, 5*time.Millisecond)
}

// Justification: a QR encoder that cannot render the payload makes the
// credential unusable; the attempt restarts instead of leaving the session
// stuck in connecting with no code to show.
func (s *ManagerSuite) TestQREncodeFailureRestartsAttempt() {
	mgr := New(s.client, s.store, s.sink, Config{
		ReconnectDelay: 40 * time.Millisecond,
		RestartDelay:   10 * time.Millisecond,
	}, WithQREncoder(func(string) (string, error) {
		return "", errors.New("render failed")
	}))

	session, err := mgr.CreateSession(s.ctx, models.Config{})
	s.Require().NoError(err)
	s.Require().NoError(mgr.StartSession(s.ctx, session.ID))

	conn, err := s.client.Connection(session.ID, 0)
	s.Require().NoError(err)
	conn.EmitQR("unrenderable")

	s.Require().Eventually(func() bool {
		return s.client.ConnectionCount(session.ID) == 2
	}, 2*time.Second, 5*time.Millisecond)

	_, err = mgr.GetQRCode(s.ctx, session.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotReady))
}

func (s *ManagerSuite) TestOpenMarksConnected() {
	session := s.create(models.Config{})
	conn := s.start(session.ID)

	conn.EmitQR("pair-me")
	s.waitStatus(session.ID, models.StatusQRReady)
	conn.EmitOpen(protocol.Identity{JID: "123@s.whatsapp.net", Platform: "android"})
	s.waitStatus(session.ID, models.StatusConnected)

	// Pairing succeeded, the cached credential is gone.
	_, err := s.mgr.GetQRCode(s.ctx, session.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotReady))

	info, err := s.mgr.GetSessionInfo(s.ctx, session.ID)
	s.Require().NoError(err)
	s.True(info.Active)
	s.Require().NotNil(info.Identity)
	s.Equal("123@s.whatsapp.net", info.Identity.JID)

	s.Require().Eventually(func() bool {
		return len(s.sink.ofType(models.EventConnectionOpen)) == 1
	}, time.Second, 5*time.Millisecond)
}

func (s *ManagerSuite) TestInboundMessageForwarded() {
	session := s.create(models.Config{})
	conn := s.start(session.ID)

	conn.EmitOpen(protocol.Identity{JID: "123@s.whatsapp.net"})
	conn.EmitMessage("text", []byte(`{"body":"hi"}`))

	s.Require().Eventually(func() bool {
		return len(s.sink.ofType(models.EventMessageReceived)) == 1
	}, time.Second, 5*time.Millisecond)

	ev := s.sink.ofType(models.EventMessageReceived)[0]
	s.Equal(session.ID, ev.SessionID)
	s.Equal("text", ev.Payload["kind"])
}

// Justification: an eligible closure schedules a new connection attempt
// after the fixed delay, so a flaky transport self-heals without callers.
func (s *ManagerSuite) TestEligibleCloseReconnects() {
	session := s.create(models.Config{})
	conn := s.start(session.ID)

	conn.EmitOpen(protocol.Identity{JID: "123@s.whatsapp.net"})
	s.waitStatus(session.ID, models.StatusConnected)
	conn.EmitClose("stream error", false, false)

	s.waitStatus(session.ID, models.StatusConnecting)
	s.Require().Eventually(func() bool {
		return s.client.ConnectionCount(session.ID) == 2
	}, 2*time.Second, 5*time.Millisecond)
}

// Justification: a logout is the peer revoking the pairing; reconnecting
// would just loop through QR challenges nobody asked for.
func (s *ManagerSuite) TestLoggedOutCloseStops() {
	session := s.create(models.Config{})
	conn := s.start(session.ID)

	conn.EmitClose("logged out from phone", false, true)
	s.waitStatus(session.ID, models.StatusLoggedOut)

	time.Sleep(100 * time.Millisecond)
	s.Equal(1, s.client.ConnectionCount(session.ID))
	s.False(s.mgr.IsSessionActive(session.ID))
}

func (s *ManagerSuite) TestAuthFailureCloseWithoutRestart() {
	session := s.create(models.Config{RestartOnAuthFail: false})
	conn := s.start(session.ID)

	conn.EmitClose("device mismatch", true, false)
	s.waitStatus(session.ID, models.StatusDisconnected)

	time.Sleep(100 * time.Millisecond)
	s.Equal(1, s.client.ConnectionCount(session.ID))
}

func (s *ManagerSuite) TestAuthFailureCloseWithRestart() {
	session := s.create(models.Config{RestartOnAuthFail: true})
	conn := s.start(session.ID)

	conn.EmitClose("device mismatch", true, false)

	s.Require().Eventually(func() bool {
		return s.client.ConnectionCount(session.ID) == 2
	}, 2*time.Second, 5*time.Millisecond)
}

func (s *ManagerSuite) TestDisconnectSession() {
	session := s.create(models.Config{})
	conn := s.start(session.ID)
	conn.EmitOpen(protocol.Identity{JID: "123@s.whatsapp.net"})
	s.waitStatus(session.ID, models.StatusConnected)

	s.Require().NoError(s.mgr.DisconnectSession(s.ctx, session.ID))
	s.Equal(1, conn.LogoutCount())
	s.False(s.mgr.IsSessionActive(session.ID))
	s.waitStatus(session.ID, models.StatusDisconnected)

	// No reconnect: the closure was requested, not suffered.
	time.Sleep(100 * time.Millisecond)
	s.Equal(1, s.client.ConnectionCount(session.ID))
}

func (s *ManagerSuite) TestDisconnectWithoutLiveConnection() {
	session := s.create(models.Config{})

	err := s.mgr.DisconnectSession(s.ctx, session.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotActive))
	s.waitStatus(session.ID, models.StatusDisconnected)
}

func (s *ManagerSuite) TestReconnectSession() {
	session := s.create(models.Config{})
	conn := s.start(session.ID)
	conn.EmitOpen(protocol.Identity{JID: "123@s.whatsapp.net"})
	s.waitStatus(session.ID, models.StatusConnected)

	s.Require().NoError(s.mgr.ReconnectSession(s.ctx, session.ID))
	s.Equal(2, s.client.ConnectionCount(session.ID))
}

func (s *ManagerSuite) TestReconnectSessionWithoutLiveConnection() {
	session := s.create(models.Config{})

	s.Require().NoError(s.mgr.ReconnectSession(s.ctx, session.ID))
	s.Equal(1, s.client.ConnectionCount(session.ID))
}

// Justification: deleting a session mid-reconnect-wait must cancel the
// pending attempt, otherwise the timer resurrects a session the caller
// just removed.
func (s *ManagerSuite) TestDeleteCancelsScheduledReconnect() {
	session := s.create(models.Config{})
	conn := s.start(session.ID)

	conn.EmitClose("stream error", false, false)
	s.waitStatus(session.ID, models.StatusConnecting)

	s.Require().NoError(s.mgr.DeleteSession(s.ctx, session.ID))

	time.Sleep(150 * time.Millisecond)
	s.Equal(1, s.client.ConnectionCount(session.ID))

	_, err := s.mgr.GetSession(s.ctx, session.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ManagerSuite) TestDeleteProceedsPastFailedLogout() {
	session := s.create(models.Config{})
	conn := s.start(session.ID)
	conn.EmitOpen(protocol.Identity{JID: "123@s.whatsapp.net"})
	s.waitStatus(session.ID, models.StatusConnected)

	conn.FailLogoutWith(errors.New("transport gone"))
	s.Require().NoError(s.mgr.DeleteSession(s.ctx, session.ID))

	_, err := s.mgr.GetSession(s.ctx, session.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	s.False(s.mgr.IsSessionActive(session.ID))
}

func (s *ManagerSuite) TestSendMessageRequiresConnected() {
	session := s.create(models.Config{})
	s.start(session.ID)

	_, err := s.mgr.SendMessage(s.ctx, session.ID, []byte("hello"))
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
}

func (s *ManagerSuite) TestSendMessage() {
	session := s.create(models.Config{})
	conn := s.start(session.ID)
	conn.EmitOpen(protocol.Identity{JID: "123@s.whatsapp.net"})
	s.waitStatus(session.ID, models.StatusConnected)

	receipt, err := s.mgr.SendMessage(s.ctx, session.ID, []byte("hello"))
	s.Require().NoError(err)
	s.NotEmpty(receipt.ID)
	s.Len(conn.Sent(), 1)
}

func (s *ManagerSuite) TestUpdateSessionConfig() {
	session := s.create(models.Config{})

	updated, err := s.mgr.UpdateSession(s.ctx, session.ID, models.Config{
		RestartOnAuthFail: true,
		MaxRetries:        3,
		QRTimeout:         time.Minute,
	})
	s.Require().NoError(err)
	s.True(updated.Config.RestartOnAuthFail)
	s.Equal(3, updated.Config.MaxRetries)
}

func TestConfigWithDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()

	require.Equal(t, 5*time.Second, cfg.ReconnectDelay)
	require.Equal(t, 2*time.Second, cfg.RestartDelay)
	require.Equal(t, 30*time.Second, cfg.DefaultQRTimeout)
}
