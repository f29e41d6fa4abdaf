package pipeline

import (
	"sort"

	"github.com/abhisek/prepforge/internal/question"
	"github.com/abhisek/prepforge/internal/worker"
)

// Health summarizes all inventories.
type Health string

const (
	HealthHealthy  Health = "healthy"
	HealthDegraded Health = "degraded"
	HealthCritical Health = "critical"
)

// KeyStatus reports one inventory.
type KeyStatus struct {
	Key         question.Key
	State       State
	Counts      map[question.Tier]int
	PendingJobs int
}

// Status is a snapshot of the pipeline.
type Status struct {
	Keys    []KeyStatus
	Health  Health
	Workers worker.Stats
}

// Status reports every known inventory, sorted by key. Overall health is
// critical if any inventory is CRITICAL or EMERGENCY, degraded if any is
// DEGRADED, healthy otherwise.
func (p *Pipeline) Status() Status {
	st := Status{Health: HealthHealthy}
	for _, inv := range p.inventories() {
		ks := KeyStatus{
			Key:         inv.key,
			State:       inv.currentState(),
			Counts:      make(map[question.Tier]int, len(question.Tiers)),
			PendingJobs: inv.pendingJobs(),
		}
		for _, t := range storedTiers {
			ks.Counts[t] = inv.count(t)
		}
		if p.emerg != nil {
			ks.Counts[question.TierEmergency] = len(p.emerg.For(inv.key))
		}
		st.Keys = append(st.Keys, ks)

		switch ks.State {
		case StateCritical, StateEmergency:
			st.Health = HealthCritical
		case StateDegraded:
			if st.Health == HealthHealthy {
				st.Health = HealthDegraded
			}
		}
	}
	sort.Slice(st.Keys, func(i, j int) bool {
		return st.Keys[i].Key.String() < st.Keys[j].Key.String()
	})
	if p.pool != nil {
		st.Workers = p.pool.Stats()
	}
	return st
}
