package pipeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/abhisek/prepforge/internal/question"
	"github.com/abhisek/prepforge/internal/store"
)

// storedTiers are the tiers held in storage. Emergency content lives in
// memory only.
var storedTiers = []question.Tier{question.TierAuthored, question.TierCached, question.TierOnDemand}

// inventory holds one exam/topic's questions per tier. Readers load the
// tier slices without locking; writers copy, modify and swap under mu.
type inventory struct {
	key   question.Key
	tiers [3]atomic.Pointer[[]*question.Question]

	loadMu sync.Mutex
	loaded atomic.Bool

	mu      sync.Mutex
	state   State
	pending map[string]struct{}
}

func newInventory(key question.Key) *inventory {
	inv := &inventory{key: key, pending: make(map[string]struct{})}
	for i := range inv.tiers {
		empty := []*question.Question{}
		inv.tiers[i].Store(&empty)
	}
	return inv
}

// load fills the tiers from storage once. A failed load is retried on the
// next call.
func (inv *inventory) load(ctx context.Context, repo store.PoolRepo) error {
	if inv.loaded.Load() {
		return nil
	}
	inv.loadMu.Lock()
	defer inv.loadMu.Unlock()
	if inv.loaded.Load() {
		return nil
	}

	var lists [3][]*question.Question
	for _, t := range storedTiers {
		qs, err := repo.List(ctx, inv.key, t)
		if err != nil {
			return fmt.Errorf("load %s tier %s: %w", inv.key, t, err)
		}
		lists[t-1] = qs
	}

	inv.mu.Lock()
	for i, qs := range lists {
		// Merge with anything added before the load completed.
		cur := *inv.tiers[i].Load()
		merged := make([]*question.Question, 0, len(qs)+len(cur))
		seen := make(map[string]bool, len(qs))
		for _, q := range qs {
			seen[q.ID] = true
			merged = append(merged, q)
		}
		for _, q := range cur {
			if !seen[q.ID] {
				merged = append(merged, q)
			}
		}
		inv.tiers[i].Store(&merged)
	}
	inv.mu.Unlock()

	inv.loaded.Store(true)
	return nil
}

func (inv *inventory) items(t question.Tier) []*question.Question {
	if t < question.TierAuthored || t > question.TierOnDemand {
		return nil
	}
	return *inv.tiers[t-1].Load()
}

func (inv *inventory) count(t question.Tier) int {
	return len(inv.items(t))
}

// add appends qs to their tiers, skipping IDs already present.
func (inv *inventory) add(qs ...*question.Question) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	for _, q := range qs {
		if q.Tier < question.TierAuthored || q.Tier > question.TierOnDemand {
			continue
		}
		ptr := &inv.tiers[q.Tier-1]
		cur := *ptr.Load()
		dup := false
		for _, existing := range cur {
			if existing.ID == q.ID {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		next := make([]*question.Question, len(cur), len(cur)+1)
		copy(next, cur)
		next = append(next, q)
		ptr.Store(&next)
	}
}

// remove drops id from tier t. It reports whether anything was removed.
func (inv *inventory) remove(t question.Tier, id string) bool {
	if t < question.TierAuthored || t > question.TierOnDemand {
		return false
	}
	inv.mu.Lock()
	defer inv.mu.Unlock()
	ptr := &inv.tiers[t-1]
	cur := *ptr.Load()
	next := make([]*question.Question, 0, len(cur))
	for _, q := range cur {
		if q.ID != id {
			next = append(next, q)
		}
	}
	if len(next) == len(cur) {
		return false
	}
	ptr.Store(&next)
	return true
}

// fire applies ev and returns the old and new state.
func (inv *inventory) fire(ev Event) (from, to State) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	from = inv.state
	inv.state = Transition(from, ev)
	return from, inv.state
}

func (inv *inventory) currentState() State {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.state
}

// claim marks a replenishment job as pending. It returns false if an
// identical job is already pending.
func (inv *inventory) claim(job string) bool {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if _, ok := inv.pending[job]; ok {
		return false
	}
	inv.pending[job] = struct{}{}
	return true
}

func (inv *inventory) release(job string) {
	inv.mu.Lock()
	delete(inv.pending, job)
	inv.mu.Unlock()
}

func (inv *inventory) pendingJobs() int {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return len(inv.pending)
}
