package selector

import (
	"sync"
	"sync/atomic"
)

// Usage records, per question, a logical timestamp of when it was last
// served to any learner. Questions never served report 0 and so rank as
// least recently used.
type Usage struct {
	clock atomic.Int64
	mu    sync.RWMutex
	last  map[string]int64
}

func NewUsage() *Usage {
	return &Usage{last: make(map[string]int64)}
}

// Touch marks id as served now.
func (u *Usage) Touch(id string) {
	tick := u.clock.Add(1)
	u.mu.Lock()
	u.last[id] = tick
	u.mu.Unlock()
}

// LastServed returns the logical time id was last served, 0 if never.
func (u *Usage) LastServed(id string) int64 {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.last[id]
}
