package models

import "time"

// Platform is the fixed discriminator stamped on every outbound event.
const Platform = "whatsapp"

// Event type names emitted by the lifecycle manager.
const (
	EventMessageReceived = "message.received"
	EventConnectionOpen  = "connection.open"
	EventConnectionClose = "connection.close"
	EventQRUpdated       = "qr.updated"
)

// PlatformEvent is one immutable occurrence forwarded downstream. Once handed
// to the delivery pipeline it is either delivered to the broker or written to
// the fallback buffer, never dropped silently.
type PlatformEvent struct {
	SessionID string         `json:"sessionId"`
	Type      string         `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// NewPlatformEvent builds an event stamped with the current time.
func NewPlatformEvent(sessionID, eventType string, payload map[string]any) PlatformEvent {
	return PlatformEvent{
		SessionID: sessionID,
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}
