// Package publisher implements the event delivery pipeline. Events are
// published to the broker in call order; any event the broker cannot accept
// is written to the durable fallback buffer and replayed FIFO after the next
// successful (re)connection. Publish never surfaces an error to callers.
package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/Manoelfg123/wpp-ohi/internal/events/buffer"
	"github.com/Manoelfg123/wpp-ohi/internal/session/models"
)

// ErrClosed is returned by Initialize after Close.
var ErrClosed = errors.New("publisher closed")

// Config holds the reconnect and drain policy.
type Config struct {
	// MaxAttempts bounds consecutive automatic reconnect attempts. After
	// exhaustion the buffering path keeps absorbing events until Initialize
	// is called again.
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	DrainBatch  int
	DrainPause  time.Duration
	DialTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 10
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = time.Second
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 30 * time.Second
	}
	if c.DrainBatch <= 0 {
		c.DrainBatch = 100
	}
	if c.DrainPause < 0 {
		c.DrainPause = 0
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = 10 * time.Second
	}
	return c
}

// Publisher is the process-wide event pipeline. One instance is shared by all
// sessions; it serializes its own connecting/draining transitions.
type Publisher struct {
	dialer Dialer
	buf    *buffer.Buffer
	cfg    Config
	logger *slog.Logger

	mu         sync.Mutex
	transport  Transport
	connecting bool
	draining   bool
	closed     bool

	done chan struct{}

	bufferCloser io.Closer
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithLogger overrides the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithBufferCloser registers the buffer store connection so Close can tear it
// down together with the transport.
func WithBufferCloser(c io.Closer) Option {
	return func(p *Publisher) {
		p.bufferCloser = c
	}
}

// New constructs a Publisher. Call Initialize to establish the broker
// transport; until then every published event lands in the fallback buffer.
func New(dialer Dialer, buf *buffer.Buffer, cfg Config, opts ...Option) *Publisher {
	p := &Publisher{
		dialer: dialer,
		buf:    buf,
		cfg:    cfg.withDefaults(),
		logger: slog.Default(),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Initialize establishes the broker transport. Re-entrant calls while a
// connection attempt is in flight (or a transport is live) are no-ops. On
// dial failure the automatic reconnect loop takes over and the error is
// returned for logging.
func (p *Publisher) Initialize(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	if p.transport != nil || p.connecting {
		p.mu.Unlock()
		return nil
	}
	p.connecting = true
	p.mu.Unlock()

	t, err := p.dialer.Dial(ctx)
	if err != nil {
		p.mu.Lock()
		p.connecting = false
		p.mu.Unlock()
		go p.reconnect()
		return fmt.Errorf("broker dial failed: %w", err)
	}

	p.adopt(t)
	return nil
}

// Publish delivers one event. It never returns an error: when no live
// transport exists, the pipeline is draining, or the publish itself fails,
// the event goes to the fallback buffer instead.
func (p *Publisher) Publish(ctx context.Context, event models.PlatformEvent) {
	p.mu.Lock()
	t := p.transport
	buffering := t == nil || p.draining || p.closed
	p.mu.Unlock()

	if buffering {
		p.bufferEvent(ctx, event)
		return
	}

	data, err := encodeEnvelope(event)
	if err != nil {
		p.logger.Error("event not serializable, dropping",
			"session_id", event.SessionID,
			"type", event.Type,
			"error", err,
		)
		eventsLostTotal.Inc()
		return
	}

	if err := t.Publish(ctx, data); err != nil {
		p.logger.Warn("broker publish failed, buffering event",
			"session_id", event.SessionID,
			"type", event.Type,
			"error", err,
		)
		p.bufferEvent(ctx, event)
		p.handleTransportFailure(t)
		return
	}
	eventsPublishedTotal.Inc()
}

// Close tears down the transport and the buffer store connection. Both are
// closed on every exit path, including partial initialization.
func (p *Publisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	t := p.transport
	p.transport = nil
	close(p.done)
	p.mu.Unlock()

	brokerConnected.Set(0)

	var errs []error
	if t != nil {
		if err := t.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close transport: %w", err))
		}
	}
	if p.bufferCloser != nil {
		if err := p.bufferCloser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close buffer store: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Connected reports whether a live transport is established. Used by the
// readiness probe.
func (p *Publisher) Connected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.transport != nil
}

// adopt installs a freshly dialed transport, starts its close watcher, and
// kicks off the fallback drain.
func (p *Publisher) adopt(t Transport) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		_ = t.Close()
		return
	}
	p.transport = t
	p.connecting = false
	p.draining = true
	p.mu.Unlock()

	brokerConnected.Set(1)
	p.logger.Info("broker transport established")

	go p.watchClose(t)
	go p.drain(t)
}

func (p *Publisher) watchClose(t Transport) {
	select {
	case <-p.done:
		return
	case err := <-t.NotifyClose():
		p.mu.Lock()
		current := p.transport == t
		if current {
			p.transport = nil
		}
		stale := p.closed || !current
		p.mu.Unlock()
		if stale {
			return
		}

		brokerConnected.Set(0)
		p.logger.Warn("broker transport lost", "error", err)
		p.reconnect()
	}
}

// handleTransportFailure retires a transport after a failed publish. The
// close watcher may race this; both paths converge on reconnect, which
// admits only one loop at a time.
func (p *Publisher) handleTransportFailure(t Transport) {
	p.mu.Lock()
	current := p.transport == t
	if current {
		p.transport = nil
	}
	p.mu.Unlock()
	if !current {
		return
	}

	brokerConnected.Set(0)
	_ = t.Close()
	go p.reconnect()
}

// reconnect retries the dial with exponential backoff until it succeeds, the
// attempt budget is exhausted, or the publisher is closed. Only one loop runs
// at a time.
func (p *Publisher) reconnect() {
	p.mu.Lock()
	if p.closed || p.connecting || p.transport != nil {
		p.mu.Unlock()
		return
	}
	p.connecting = true
	p.mu.Unlock()

	delay := p.cfg.BaseDelay
	for attempt := 1; attempt <= p.cfg.MaxAttempts; attempt++ {
		select {
		case <-p.done:
			return
		case <-time.After(delay):
		}

		brokerReconnectsTotal.Inc()
		ctx, cancel := context.WithTimeout(context.Background(), p.cfg.DialTimeout)
		t, err := p.dialer.Dial(ctx)
		cancel()
		if err == nil {
			p.adopt(t)
			return
		}

		p.logger.Warn("broker reconnect failed",
			"attempt", attempt,
			"max_attempts", p.cfg.MaxAttempts,
			"next_delay", (delay * 2).String(),
			"error", err,
		)

		delay *= 2
		if delay > p.cfg.MaxDelay {
			delay = p.cfg.MaxDelay
		}
	}

	p.mu.Lock()
	p.connecting = false
	p.mu.Unlock()
	p.logger.Error("broker reconnect attempts exhausted, events will buffer until re-initialized",
		"max_attempts", p.cfg.MaxAttempts,
	)
}

// drain republishes fallback entries in strict insertion order, in bounded
// batches, removing only confirmed entries. New publishes keep buffering
// while the drain is in progress so buffered entries are never overtaken.
func (p *Publisher) drain(t Transport) {
	ctx := context.Background()
	for {
		p.mu.Lock()
		if p.closed || p.transport != t {
			p.draining = false
			p.mu.Unlock()
			return
		}
		p.mu.Unlock()

		entries, err := p.buf.Peek(ctx, p.cfg.DrainBatch)
		if err != nil {
			p.logger.Error("fallback buffer read failed, suspending drain", "error", err)
			p.mu.Lock()
			p.draining = false
			p.mu.Unlock()
			return
		}

		if len(entries) == 0 {
			if p.finishDrain(ctx, t) {
				return
			}
			continue
		}

		confirmed := 0
		for _, entry := range entries {
			data, err := encodeEnvelope(entry.Event)
			if err != nil {
				// Poison entry; removing it is the only way to keep the
				// queue moving.
				p.logger.Error("buffered event not serializable, dropping",
					"session_id", entry.Event.SessionID,
					"type", entry.Event.Type,
					"error", err,
				)
				eventsLostTotal.Inc()
				confirmed++
				continue
			}
			if err := t.Publish(ctx, data); err != nil {
				p.logger.Warn("republish failed, entry stays buffered", "error", err)
				break
			}
			confirmed++
		}

		if confirmed > 0 {
			if err := p.buf.RemoveHead(ctx, confirmed); err != nil {
				// Entries stay buffered and will be republished; at-least-once
				// is preserved at the cost of duplicates.
				p.logger.Error("fallback buffer trim failed", "error", err)
			}
			eventsDrainedTotal.Add(float64(confirmed))
		}

		if confirmed < len(entries) {
			p.handleTransportFailure(t)
			return
		}

		select {
		case <-p.done:
			return
		case <-time.After(p.cfg.DrainPause):
		}
	}
}

// finishDrain clears the draining flag and re-checks for entries that slipped
// in between the final empty read and the flag flip. Returns true when the
// drain is complete.
func (p *Publisher) finishDrain(ctx context.Context, t Transport) bool {
	p.mu.Lock()
	p.draining = false
	p.mu.Unlock()

	n, err := p.buf.Len(ctx)
	if err != nil || n == 0 {
		return true
	}

	p.mu.Lock()
	if p.closed || p.transport != t {
		p.mu.Unlock()
		return true
	}
	p.draining = true
	p.mu.Unlock()
	return false
}

func (p *Publisher) bufferEvent(ctx context.Context, event models.PlatformEvent) {
	if err := p.buf.Append(ctx, event); err != nil {
		p.logger.Error("fallback buffer write failed, event lost",
			"session_id", event.SessionID,
			"type", event.Type,
			"error", err,
		)
		eventsLostTotal.Inc()
		return
	}
	eventsBufferedTotal.Inc()
}

// encodeEnvelope serializes an event into the published wire contract:
// payload fields flattened alongside the platform discriminator, timestamp,
// type, and session id.
func encodeEnvelope(event models.PlatformEvent) ([]byte, error) {
	envelope := make(map[string]any, len(event.Payload)+4)
	for k, v := range event.Payload {
		envelope[k] = v
	}
	envelope["platform"] = models.Platform
	envelope["timestamp"] = event.Timestamp.UTC().Format(time.RFC3339)
	envelope["type"] = event.Type
	envelope["sessionId"] = event.SessionID
	return json.Marshal(envelope)
}
