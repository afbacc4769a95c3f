package events

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryBus is an in-process Bus for tests and single-node deployments.
type MemoryBus struct {
	mu   sync.Mutex
	subs map[uuid.UUID]map[chan Event]struct{}
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[uuid.UUID]map[chan Event]struct{})}
}

func (b *MemoryBus) Publish(_ context.Context, summaryID uuid.UUID, ev Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs[summaryID] {
		select {
		case ch <- ev:
		default:
			// Slow subscriber: drop rather than block the worker.
		}
	}
	return nil
}

func (b *MemoryBus) Subscribe(_ context.Context, summaryID uuid.UUID) (<-chan Event, func(), error) {
	ch := make(chan Event, 8)

	b.mu.Lock()
	if b.subs[summaryID] == nil {
		b.subs[summaryID] = make(map[chan Event]struct{})
	}
	b.subs[summaryID][ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[summaryID], ch)
			if len(b.subs[summaryID]) == 0 {
				delete(b.subs, summaryID)
			}
			b.mu.Unlock()
			close(ch)
		})
	}

	return ch, unsubscribe, nil
}

var _ Bus = (*MemoryBus)(nil)
