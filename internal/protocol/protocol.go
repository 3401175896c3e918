// Package protocol defines the boundary to the external chat-platform
// protocol client. The wire protocol itself (pairing, encryption, framing)
// lives behind this interface and is not reimplemented here.
package protocol

import "context"

// ConnectConfig carries what the protocol client needs to open a connection.
// CredentialDir is the storage location for the client's credential
// persistence hooks; the bytes written there are opaque to this service.
type ConnectConfig struct {
	CredentialDir string
}

// Client constructs live connections. One Connection per session at a time.
type Client interface {
	Connect(ctx context.Context, sessionID string, cfg ConnectConfig) (Connection, error)
}

// Connection is one live, stateful platform connection. Events delivers
// connection lifecycle and inbound traffic in arrival order; the channel is
// closed when the connection is torn down.
type Connection interface {
	Events() <-chan Event
	Send(ctx context.Context, content []byte) (Receipt, error)
	Logout(ctx context.Context) error
	Close() error

	// Identity returns the connected account identity. Valid only after an
	// OpenEvent has been delivered; zero value before that.
	Identity() Identity
}

// Identity describes the authenticated account behind a connection.
type Identity struct {
	JID      string
	Platform string
	PushName string
}

// Receipt acknowledges an accepted outbound message.
type Receipt struct {
	ID string
}

// Event is one occurrence delivered by a connection. Exactly one of the
// concrete types below.
type Event interface {
	isEvent()
}

// QREvent carries a fresh pairing challenge. The transport may re-challenge
// at any time; each QREvent supersedes the previous credential.
type QREvent struct {
	Code string
}

// OpenEvent signals the underlying transport opened and the session is
// authenticated.
type OpenEvent struct {
	Identity Identity
}

// CloseEvent signals the underlying transport closed.
type CloseEvent struct {
	Reason        string
	IsAuthFailure bool
	IsLoggedOut   bool
}

// MessageEvent carries one inbound message in the platform's raw encoding.
type MessageEvent struct {
	Kind string
	Raw  []byte
}

func (QREvent) isEvent()      {}
func (OpenEvent) isEvent()    {}
func (CloseEvent) isEvent()   {}
func (MessageEvent) isEvent() {}
