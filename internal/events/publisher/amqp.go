package publisher

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPDialer dials an AMQP broker and declares the destination queue.
type AMQPDialer struct {
	url   string
	queue string
}

// NewAMQPDialer constructs a dialer for the given broker URL and queue.
func NewAMQPDialer(url, queue string) *AMQPDialer {
	return &AMQPDialer{url: url, queue: queue}
}

// Dial implements Dialer. The channel is put into confirm mode so publishes
// can be acknowledged by the broker before fallback entries are removed.
func (d *AMQPDialer) Dial(_ context.Context) (Transport, error) {
	conn, err := amqp.Dial(d.url)
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("enable confirm mode: %w", err)
	}

	if _, err := ch.QueueDeclare(d.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", d.queue, err)
	}

	t := &amqpTransport{
		conn:   conn,
		ch:     ch,
		queue:  d.queue,
		closed: make(chan error, 1),
	}
	go t.watch()
	return t, nil
}

type amqpTransport struct {
	conn   *amqp.Connection
	ch     *amqp.Channel
	queue  string
	closed chan error
}

// watch collapses connection- and channel-level close notifications into one
// signal.
func (t *amqpTransport) watch() {
	connClose := t.conn.NotifyClose(make(chan *amqp.Error, 1))
	chanClose := t.ch.NotifyClose(make(chan *amqp.Error, 1))

	var reason error
	select {
	case err, ok := <-connClose:
		reason = closeReason(err, ok, "connection closed")
	case err, ok := <-chanClose:
		reason = closeReason(err, ok, "channel closed")
	}
	t.closed <- reason
}

func closeReason(err *amqp.Error, ok bool, fallback string) error {
	if ok && err != nil {
		return err
	}
	return errors.New(fallback)
}

func (t *amqpTransport) Publish(ctx context.Context, body []byte) error {
	confirm, err := t.ch.PublishWithDeferredConfirmWithContext(
		ctx,
		"",      // default exchange
		t.queue, // routing key = queue name
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	select {
	case <-confirm.Done():
		if !confirm.Acked() {
			return errors.New("publish nacked by broker")
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *amqpTransport) NotifyClose() <-chan error {
	return t.closed
}

func (t *amqpTransport) Close() error {
	chErr := t.ch.Close()
	connErr := t.conn.Close()
	return errors.Join(chErr, connErr)
}
