package reply

import (
	"sync"
	"time"
)

// ActivityEntry tracks message traffic for one channel account and direction.
type ActivityEntry struct {
	Channel   string    `json:"channel"`
	AccountID string    `json:"account_id"`
	Direction string    `json:"direction"`
	Count     int64     `json:"count"`
	LastAt    time.Time `json:"last_at"`
}

// ActivityRecorder keeps in-memory traffic counters per channel account.
type ActivityRecorder struct {
	mu      sync.Mutex
	entries map[string]*ActivityEntry
}

// NewActivityRecorder creates an empty recorder.
func NewActivityRecorder() *ActivityRecorder {
	return &ActivityRecorder{entries: make(map[string]*ActivityEntry)}
}

// Record bumps the counter for (channel, accountID, direction).
func (r *ActivityRecorder) Record(channel, accountID, direction string) {
	key := channel + "/" + accountID + "/" + direction

	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[key]
	if !ok {
		entry = &ActivityEntry{Channel: channel, AccountID: accountID, Direction: direction}
		r.entries[key] = entry
	}
	entry.Count++
	entry.LastAt = time.Now()
}

// Snapshot returns a copy of all entries.
func (r *ActivityRecorder) Snapshot() []ActivityEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]ActivityEntry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, *e)
	}
	return out
}
