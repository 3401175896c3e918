// Package buffer implements the durable fallback queue for platform events
// the broker could not accept. Entries live in one Redis list in strict FIFO
// order: appended at the tail, removed from the head only after a confirmed
// republish.
package buffer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Manoelfg123/wpp-ohi/internal/session/models"
)

// Entry is a buffered platform event plus the instant it was buffered.
type Entry struct {
	Event      models.PlatformEvent `json:"event"`
	BufferedAt time.Time            `json:"bufferedAt"`
}

// Buffer is a Redis-list backed FIFO queue.
type Buffer struct {
	client redis.Cmdable
	key    string
}

// New constructs a buffer over the given Redis list key.
func New(client redis.Cmdable, key string) *Buffer {
	return &Buffer{client: client, key: key}
}

// Append stores one event at the tail of the queue.
func (b *Buffer) Append(ctx context.Context, event models.PlatformEvent) error {
	entry := Entry{Event: event, BufferedAt: time.Now().UTC()}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal fallback entry: %w", err)
	}
	if err := b.client.RPush(ctx, b.key, data).Err(); err != nil {
		return fmt.Errorf("append fallback entry: %w", err)
	}
	return nil
}

// Peek returns up to n entries from the head without removing them.
func (b *Buffer) Peek(ctx context.Context, n int) ([]Entry, error) {
	if n <= 0 {
		return nil, nil
	}
	raw, err := b.client.LRange(ctx, b.key, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read fallback entries: %w", err)
	}

	entries := make([]Entry, 0, len(raw))
	for _, item := range raw {
		var entry Entry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			return nil, fmt.Errorf("unmarshal fallback entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// RemoveHead drops the n oldest entries. Called only after their republish
// was confirmed by the broker.
func (b *Buffer) RemoveHead(ctx context.Context, n int) error {
	if n <= 0 {
		return nil
	}
	if err := b.client.LTrim(ctx, b.key, int64(n), -1).Err(); err != nil {
		return fmt.Errorf("trim fallback entries: %w", err)
	}
	return nil
}

// Len reports the number of buffered entries.
func (b *Buffer) Len(ctx context.Context) (int64, error) {
	n, err := b.client.LLen(ctx, b.key).Result()
	if err != nil {
		return 0, fmt.Errorf("measure fallback buffer: %w", err)
	}
	return n, nil
}
