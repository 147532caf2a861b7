package reply

import (
	"sync"

	"github.com/nextlevelbuilder/heyclaw/internal/bus"
)

// SystemEventName is the bus event carrying inbound message notices.
const SystemEventName = "system.inbound"

// maxSeenContexts bounds the dedupe set for system events.
const maxSeenContexts = 1000

// SystemEvents publishes short inbound notices on the event bus, deduplicated
// by context key so retries of the same message never announce twice.
type SystemEvents struct {
	bus   *bus.MessageBus
	mu    sync.Mutex
	seen  map[string]struct{}
	order []string
}

// NewSystemEvents creates a publisher on the given bus.
func NewSystemEvents(msgBus *bus.MessageBus) *SystemEvents {
	return &SystemEvents{
		bus:  msgBus,
		seen: make(map[string]struct{}),
	}
}

// Enqueue broadcasts a notice unless contextKey was already announced.
func (e *SystemEvents) Enqueue(text, sessionKey, contextKey string) {
	if contextKey != "" {
		e.mu.Lock()
		if _, dup := e.seen[contextKey]; dup {
			e.mu.Unlock()
			return
		}
		e.seen[contextKey] = struct{}{}
		e.order = append(e.order, contextKey)
		if len(e.order) > maxSeenContexts {
			delete(e.seen, e.order[0])
			e.order = e.order[1:]
		}
		e.mu.Unlock()
	}

	e.bus.Broadcast(bus.Event{
		Name: SystemEventName,
		Payload: map[string]string{
			"text":        text,
			"session_key": sessionKey,
			"context_key": contextKey,
		},
	})
}
