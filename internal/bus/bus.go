package bus

import (
	"context"
	"log/slog"
	"sync"
)

const outboundBufferSize = 256

// MessageBus queues outbound messages for delivery to channels and fans out
// broadcast events to subscribers. Safe for concurrent use.
type MessageBus struct {
	outbound chan OutboundMessage

	mu          sync.RWMutex
	subscribers map[string]EventHandler
}

// New creates a message bus with a buffered outbound queue.
func New() *MessageBus {
	return &MessageBus{
		outbound:    make(chan OutboundMessage, outboundBufferSize),
		subscribers: make(map[string]EventHandler),
	}
}

// PublishOutbound enqueues a message for delivery to a channel.
// Drops the message (with a warning) if the queue is full rather than
// blocking the publisher.
func (b *MessageBus) PublishOutbound(msg OutboundMessage) {
	select {
	case b.outbound <- msg:
	default:
		slog.Warn("bus: outbound queue full, dropping message",
			"channel", msg.Channel, "chat_id", msg.ChatID)
	}
}

// SubscribeOutbound blocks until an outbound message is available or the
// context is cancelled. Returns false when the context is done.
func (b *MessageBus) SubscribeOutbound(ctx context.Context) (OutboundMessage, bool) {
	select {
	case <-ctx.Done():
		return OutboundMessage{}, false
	case msg := <-b.outbound:
		return msg, true
	}
}

// Subscribe registers an event handler under the given id, replacing any
// existing handler with the same id.
func (b *MessageBus) Subscribe(id string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[id] = handler
}

// Unsubscribe removes the handler registered under id.
func (b *MessageBus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subscribers, id)
}

// Broadcast delivers an event to all subscribers. Handlers run synchronously
// on the caller's goroutine and must not block.
func (b *MessageBus) Broadcast(event Event) {
	b.mu.RLock()
	handlers := make([]EventHandler, 0, len(b.subscribers))
	for _, h := range b.subscribers {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
}
