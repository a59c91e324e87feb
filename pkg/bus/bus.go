package bus

import "sync"

// MessageBus decouples transports from the router. Each published event
// is handed to exactly one consumer via Events(); consumers decide their
// own concurrency (the router spawns one goroutine per event).
type MessageBus struct {
	events    chan InboundEvent
	closeOnce sync.Once
}

func NewMessageBus() *MessageBus {
	return &MessageBus{
		events: make(chan InboundEvent, 128),
	}
}

func (b *MessageBus) Publish(e InboundEvent) {
	b.events <- e
}

func (b *MessageBus) Events() <-chan InboundEvent {
	return b.events
}

func (b *MessageBus) Close() {
	b.closeOnce.Do(func() {
		close(b.events)
	})
}
