// Package loopback is a simulated protocol client for local development and
// demos. Connections pair themselves: a QR challenge is emitted immediately
// and the connection opens after a short delay, as if the code was scanned.
// Sent messages are echoed back as inbound message events.
package loopback

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Manoelfg123/wpp-ohi/internal/protocol"
)

// Client implements protocol.Client.
type Client struct {
	autoPairDelay time.Duration
}

// New constructs a loopback client. autoPairDelay is the simulated time
// between the QR challenge and the pairing; zero disables auto-pairing.
func New(autoPairDelay time.Duration) *Client {
	return &Client{autoPairDelay: autoPairDelay}
}

// Connect implements protocol.Client.
func (c *Client) Connect(_ context.Context, sessionID string, _ protocol.ConnectConfig) (protocol.Connection, error) {
	conn := &connection{
		sessionID: sessionID,
		events:    make(chan protocol.Event, 16),
	}

	conn.events <- protocol.QREvent{Code: "loopback-" + uuid.New().String()}
	if c.autoPairDelay > 0 {
		conn.pairTimer = time.AfterFunc(c.autoPairDelay, conn.pair)
	}
	return conn, nil
}

type connection struct {
	sessionID string
	events    chan protocol.Event
	pairTimer *time.Timer

	mu       sync.Mutex
	identity protocol.Identity
	open     bool
	closed   bool
	sends    int
}

func (c *connection) pair() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.open = true
	c.identity = protocol.Identity{
		JID:      c.sessionID + "@loopback",
		Platform: "loopback",
		PushName: "Loopback",
	}
	// Sent under the lock so Close cannot close the channel mid-send. The
	// channel is buffered and holds at most the QR and open events here.
	select {
	case c.events <- protocol.OpenEvent{Identity: c.identity}:
	default:
	}
	c.mu.Unlock()
}

func (c *connection) Events() <-chan protocol.Event {
	return c.events
}

func (c *connection) Send(_ context.Context, content []byte) (protocol.Receipt, error) {
	c.mu.Lock()
	if c.closed || !c.open {
		c.mu.Unlock()
		return protocol.Receipt{}, fmt.Errorf("loopback: connection not open")
	}
	c.sends++
	n := c.sends
	// Echo the payload back as an inbound message, dropped if the consumer
	// is not keeping up.
	select {
	case c.events <- protocol.MessageEvent{Kind: "text", Raw: content}:
	default:
	}
	c.mu.Unlock()
	return protocol.Receipt{ID: fmt.Sprintf("loopback-%s-%d", c.sessionID, n)}, nil
}

func (c *connection) Logout(context.Context) error {
	return nil
}

func (c *connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.pairTimer != nil {
		c.pairTimer.Stop()
	}
	close(c.events)
	return nil
}

func (c *connection) Identity() protocol.Identity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity
}
