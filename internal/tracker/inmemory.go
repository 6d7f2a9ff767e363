package tracker

import (
	"sort"
	"sync"
	"time"
)

// InMemoryAccessTracker keeps access times in a map. Nothing survives a restart.
type InMemoryAccessTracker struct {
	mu          sync.RWMutex
	accessTimes map[string]time.Time
	now         func() time.Time
}

// NewInMemoryAccessTracker creates an empty tracker.
func NewInMemoryAccessTracker() *InMemoryAccessTracker {
	return &InMemoryAccessTracker{
		accessTimes: make(map[string]time.Time),
		now:         time.Now,
	}
}

// Update marks id as accessed now.
func (t *InMemoryAccessTracker) Update(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.accessTimes[id] = t.now()
}

// GetLastAccessed returns the last access time of id and whether it is tracked.
func (t *InMemoryAccessTracker) GetLastAccessed(id string) (time.Time, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ts, ok := t.accessTimes[id]
	return ts, ok
}

// Idle returns the ids not accessed within threshold, oldest first.
func (t *InMemoryAccessTracker) Idle(threshold time.Duration) []string {
	type entry struct {
		id string
		ts time.Time
	}
	cutoff := t.now().Add(-threshold)

	t.mu.RLock()
	idle := make([]entry, 0)
	for id, ts := range t.accessTimes {
		if ts.Before(cutoff) {
			idle = append(idle, entry{id, ts})
		}
	}
	t.mu.RUnlock()

	sort.Slice(idle, func(i, j int) bool {
		if idle[i].ts.Equal(idle[j].ts) {
			return idle[i].id < idle[j].id
		}
		return idle[i].ts.Before(idle[j].ts)
	})
	ids := make([]string, len(idle))
	for i, e := range idle {
		ids[i] = e.id
	}
	return ids
}

// Remove stops tracking id.
func (t *InMemoryAccessTracker) Remove(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.accessTimes, id)
}
