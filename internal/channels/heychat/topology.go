package heychat

import (
	"strings"
	"sync"
)

// IsGroupChat reports whether a (roomID, channelID) pair identifies a group
// conversation. In Heychat a DM reuses the same id for room and channel;
// a missing id on either side is also treated as a DM.
func IsGroupChat(roomID, channelID string) bool {
	return roomID != "" && channelID != "" && roomID != channelID
}

// Topology remembers room/channel pairings learned from observed traffic,
// in both directions. Send targets that name only one side of a pair are
// resolved through it; last write wins when a channel moves.
type Topology struct {
	mu          sync.RWMutex
	roomForChan map[string]string
	chanForRoom map[string]string
}

// NewTopology creates an empty topology cache.
func NewTopology() *Topology {
	return &Topology{
		roomForChan: make(map[string]string),
		chanForRoom: make(map[string]string),
	}
}

// Observe records a room/channel pairing. DM traffic, where the two ids
// coincide, is not a pairing and is skipped.
func (t *Topology) Observe(roomID, channelID string) {
	if roomID == "" || channelID == "" || roomID == channelID {
		return
	}
	t.mu.Lock()
	t.roomForChan[channelID] = roomID
	t.chanForRoom[roomID] = channelID
	t.mu.Unlock()
}

// ResolveTarget maps a send target to a (roomID, channelID) pair.
// Accepted forms:
//
//	"room:channel"  explicit pair
//	"channel"       channel with a previously observed room
//	"room"          room with a previously observed channel
//	"id"            DM target; room and channel are the same id
func (t *Topology) ResolveTarget(target string) (roomID, channelID string) {
	if idx := strings.IndexByte(target, ':'); idx >= 0 {
		roomID = target[:idx]
		channelID = target[idx+1:]
		if roomID == "" {
			roomID = channelID
		}
		if channelID == "" {
			channelID = roomID
		}
		return roomID, channelID
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	if room, ok := t.roomForChan[target]; ok {
		return room, target
	}
	if channel, ok := t.chanForRoom[target]; ok {
		return target, channel
	}
	return target, target
}
