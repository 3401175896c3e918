package publisher

import "context"

// Transport is one live broker connection. Publish returns only after the
// broker confirmed the message; NotifyClose fires at most once when the
// transport dies.
type Transport interface {
	Publish(ctx context.Context, body []byte) error
	NotifyClose() <-chan error
	Close() error
}

// Dialer establishes broker transports. The pipeline redials through it on
// every reconnect attempt.
type Dialer interface {
	Dial(ctx context.Context) (Transport, error)
}
