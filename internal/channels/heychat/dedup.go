package heychat

import "sync"

// defaultMsgCacheSize bounds the processed-id memory.
const defaultMsgCacheSize = 1000

// MsgCache deduplicates inbound message ids. It tracks two sets: ids ever
// processed (bounded, oldest evicted) and ids currently in flight. A message
// id is admitted at most once; redelivery during or after processing is
// rejected. Ids survive reconnects because the cache outlives the socket.
type MsgCache struct {
	mu         sync.Mutex
	processed  map[string]struct{}
	order      []string
	processing map[string]struct{}
	capacity   int
}

// NewMsgCache creates a cache holding up to capacity processed ids.
// Non-positive capacity uses the default.
func NewMsgCache(capacity int) *MsgCache {
	if capacity <= 0 {
		capacity = defaultMsgCacheSize
	}
	return &MsgCache{
		processed:  make(map[string]struct{}),
		processing: make(map[string]struct{}),
		capacity:   capacity,
	}
}

// Admit reserves a message id for processing. Returns false if the id was
// already seen or is currently being processed. On success the id enters
// both sets atomically, so a concurrent redelivery can never be admitted.
func (c *MsgCache) Admit(msgID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, seen := c.processed[msgID]; seen {
		return false
	}
	if _, inFlight := c.processing[msgID]; inFlight {
		return false
	}

	c.processed[msgID] = struct{}{}
	c.order = append(c.order, msgID)
	c.processing[msgID] = struct{}{}

	if len(c.processed) > c.capacity {
		evicted := c.order[0]
		c.order = c.order[1:]
		delete(c.processed, evicted)
	}
	return true
}

// Release marks processing of a message id as finished. The id stays in the
// processed set, so the message will not be admitted again.
func (c *MsgCache) Release(msgID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.processing, msgID)
}

// Len returns the number of remembered processed ids.
func (c *MsgCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.processed)
}
