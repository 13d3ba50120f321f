package monitor

import (
	"sync"

	"github.com/tronwatch/tronwatch_service/internal/domain/entities"
)

// Bus fans monitor events out to subscribers. Publish blocks until every
// live subscriber has taken the event, so a slow subscriber slows the
// source instead of losing transfers.
type Bus struct {
	mu    sync.RWMutex
	subs  map[uint64]*subscription
	subID uint64
}

type subscription struct {
	ch   chan entities.MonitorEvent
	done chan struct{}
	once sync.Once
}

// NewBus creates an empty bus
func NewBus() *Bus {
	return &Bus{subs: make(map[uint64]*subscription)}
}

// Subscribe registers a subscriber. The returned cancel func must be
// called to release it; the channel is closed after cancel.
func (b *Bus) Subscribe(buffer int) (<-chan entities.MonitorEvent, func()) {
	if buffer < 0 {
		buffer = 0
	}
	sub := &subscription{
		ch:   make(chan entities.MonitorEvent, buffer),
		done: make(chan struct{}),
	}

	b.mu.Lock()
	id := b.subID
	b.subID++
	b.subs[id] = sub
	b.mu.Unlock()

	cancel := func() {
		sub.once.Do(func() {
			// unblocks any Publish parked on this subscriber before we
			// take the write lock
			close(sub.done)
			b.mu.Lock()
			delete(b.subs, id)
			close(sub.ch)
			b.mu.Unlock()
		})
	}
	return sub.ch, cancel
}

// Publish delivers ev to every live subscriber.
func (b *Bus) Publish(ev entities.MonitorEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subs {
		select {
		case sub.ch <- ev:
		case <-sub.done:
		}
	}
}

// Len returns the number of live subscribers
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
