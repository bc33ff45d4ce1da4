// Package events carries telemetry records from the agent runtimes to the
// recorder. Publishing never blocks an agent's tick loop; a slow consumer
// loses records rather than stalling trading.
package events

import (
	"log"
	"sync"
)

// Bus is a channel-backed pub/sub broker.
type Bus struct {
	mu      sync.RWMutex
	subs    map[Topic][]chan any
	dropped uint64
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[Topic][]chan any)}
}

// Subscribe registers a listener for a topic. The returned function removes
// the subscription and closes the channel.
func (b *Bus) Subscribe(t Topic, buffer int) (<-chan any, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan any, buffer)
	b.subs[t] = append(b.subs[t], ch)

	unsub := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subs[t]
		for i, c := range subs {
			if c == ch {
				close(c)
				b.subs[t] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
	}
	return ch, unsub
}

// Publish fans the payload out to all subscribers of the topic. Full
// subscriber buffers drop the payload; the publisher never waits.
func (b *Bus) Publish(t Topic, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs[t] {
		select {
		case ch <- payload:
		default:
			b.dropped++
			if b.dropped%100 == 1 {
				log.Printf("events: dropped %d payloads to slow subscribers", b.dropped)
			}
		}
	}
}

// Dropped reports how many payloads were lost to slow subscribers.
func (b *Bus) Dropped() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.dropped
}
