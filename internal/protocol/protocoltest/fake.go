// Package protocoltest provides a scriptable in-memory protocol client for
// lifecycle tests. Tests emit QR/open/close/message events on demand and
// observe sends and logouts.
package protocoltest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Manoelfg123/wpp-ohi/internal/protocol"
)

// Client is a fake protocol.Client. Each Connect returns a new Connection
// whose events are driven by the test.
type Client struct {
	mu          sync.Mutex
	connections map[string][]*Connection
	connectErr  error
	connects    atomic.Int64
}

// NewClient constructs an empty fake client.
func NewClient() *Client {
	return &Client{connections: make(map[string][]*Connection)}
}

// FailConnectWith makes subsequent Connect calls return err.
func (c *Client) FailConnectWith(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connectErr = err
}

// Connect implements protocol.Client.
func (c *Client) Connect(_ context.Context, sessionID string, _ protocol.ConnectConfig) (protocol.Connection, error) {
	c.connects.Add(1)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connectErr != nil {
		return nil, c.connectErr
	}
	conn := newConnection(sessionID)
	c.connections[sessionID] = append(c.connections[sessionID], conn)
	return conn, nil
}

// ConnectCount reports how many times Connect was called.
func (c *Client) ConnectCount() int {
	return int(c.connects.Load())
}

// Connection returns the n-th connection handed out for a session id.
func (c *Client) Connection(sessionID string, n int) (*Connection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	conns := c.connections[sessionID]
	if n >= len(conns) {
		return nil, fmt.Errorf("connection %d for session %s not created (have %d)", n, sessionID, len(conns))
	}
	return conns[n], nil
}

// ConnectionCount reports how many connections were created for a session.
func (c *Client) ConnectionCount(sessionID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.connections[sessionID])
}

// Connection is a fake protocol.Connection driven by the test.
type Connection struct {
	sessionID string
	events    chan protocol.Event

	mu       sync.Mutex
	identity protocol.Identity
	sent     [][]byte
	sendErr  error
	closed   bool

	logoutErr error
	logouts   atomic.Int64
}

func newConnection(sessionID string) *Connection {
	return &Connection{
		sessionID: sessionID,
		events:    make(chan protocol.Event, 16),
	}
}

// Events implements protocol.Connection.
func (c *Connection) Events() <-chan protocol.Event {
	return c.events
}

// Send implements protocol.Connection.
func (c *Connection) Send(_ context.Context, content []byte) (protocol.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return protocol.Receipt{}, errors.New("connection closed")
	}
	if c.sendErr != nil {
		return protocol.Receipt{}, c.sendErr
	}
	c.sent = append(c.sent, content)
	return protocol.Receipt{ID: fmt.Sprintf("msg-%d", len(c.sent))}, nil
}

// Logout implements protocol.Connection.
func (c *Connection) Logout(context.Context) error {
	c.logouts.Add(1)
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.logoutErr
}

// Close implements protocol.Connection. Closing the events channel ends the
// manager's per-session loop, mirroring a real transport teardown.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.events)
	}
	return nil
}

// Identity implements protocol.Connection.
func (c *Connection) Identity() protocol.Identity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity
}

// EmitQR delivers a pairing challenge.
func (c *Connection) EmitQR(code string) {
	c.events <- protocol.QREvent{Code: code}
}

// EmitOpen delivers a transport-open event and records the identity.
func (c *Connection) EmitOpen(id protocol.Identity) {
	c.mu.Lock()
	c.identity = id
	c.mu.Unlock()
	c.events <- protocol.OpenEvent{Identity: id}
}

// EmitClose delivers a transport-close event and ends the stream.
func (c *Connection) EmitClose(reason string, authFailure, loggedOut bool) {
	c.events <- protocol.CloseEvent{Reason: reason, IsAuthFailure: authFailure, IsLoggedOut: loggedOut}
	_ = c.Close()
}

// EmitMessage delivers one inbound message.
func (c *Connection) EmitMessage(kind string, raw []byte) {
	c.events <- protocol.MessageEvent{Kind: kind, Raw: raw}
}

// FailSendsWith makes subsequent Send calls return err.
func (c *Connection) FailSendsWith(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sendErr = err
}

// FailLogoutWith makes subsequent Logout calls return err.
func (c *Connection) FailLogoutWith(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logoutErr = err
}

// Sent returns the payloads accepted by Send.
func (c *Connection) Sent() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.sent))
	copy(out, c.sent)
	return out
}

// LogoutCount reports how many times Logout was called.
func (c *Connection) LogoutCount() int {
	return int(c.logouts.Load())
}
