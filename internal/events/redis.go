package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/tubebrief/tubebrief/internal/cache"
)

// RedisBus implements Bus over Redis pub/sub so status pages work across
// multiple server processes.
type RedisBus struct {
	client *redis.Client
}

// NewRedisBus creates a RedisBus on the given client.
func NewRedisBus(client *redis.Client) *RedisBus {
	return &RedisBus{client: client}
}

func (b *RedisBus) Publish(ctx context.Context, summaryID uuid.UUID, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, cache.SummaryEventsChannel(summaryID), body).Err()
}

func (b *RedisBus) Subscribe(ctx context.Context, summaryID uuid.UUID) (<-chan Event, func(), error) {
	sub := b.client.Subscribe(ctx, cache.SummaryEventsChannel(summaryID))

	// Force the subscription to be established before returning so a
	// publish immediately after Subscribe is not lost.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, err
	}

	out := make(chan Event, 8)
	var once sync.Once
	unsubscribe := func() {
		once.Do(func() { _ = sub.Close() })
	}

	go func() {
		defer close(out)
		for msg := range sub.Channel() {
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				slog.Warn("dropping undecodable event", "summary_id", summaryID, "error", err)
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				unsubscribe()
				return
			}
		}
	}()

	return out, unsubscribe, nil
}

var _ Bus = (*RedisBus)(nil)
