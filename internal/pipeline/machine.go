package pipeline

import (
	"fmt"

	"github.com/abhisek/prepforge/internal/question"
)

// State is the availability state of one exam/topic inventory.
type State int

const (
	StateHealthy   State = iota // serving authored questions
	StateDegraded               // authored exhausted, serving cached generated questions
	StateCritical               // serving on-demand generated questions
	StateEmergency              // serving static fallback content
)

func (s State) String() string {
	switch s {
	case StateHealthy:
		return "HEALTHY"
	case StateDegraded:
		return "DEGRADED"
	case StateCritical:
		return "CRITICAL"
	case StateEmergency:
		return "EMERGENCY"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Event drives state transitions.
type Event int

const (
	EventServedAuthored Event = iota
	// EventServedAuthoredLow is an authored serve while the authored tier
	// holds fewer items than the low-water mark.
	EventServedAuthoredLow
	EventServedCached
	EventServedOnDemand
	EventServedEmergency
	EventReplenished
	EventReplenishFailed
)

func (e Event) String() string {
	switch e {
	case EventServedAuthored:
		return "served-authored"
	case EventServedAuthoredLow:
		return "served-authored-low"
	case EventServedCached:
		return "served-cached"
	case EventServedOnDemand:
		return "served-on-demand"
	case EventServedEmergency:
		return "served-emergency"
	case EventReplenished:
		return "replenished"
	case EventReplenishFailed:
		return "replenish-failed"
	}
	return fmt.Sprintf("Event(%d)", int(e))
}

// servedEvent maps the tier a question came from to its event. authored is
// the authored tier's current size and lwm the low-water mark.
func servedEvent(t question.Tier, authored, lwm int) Event {
	switch t {
	case question.TierAuthored:
		if authored < lwm {
			return EventServedAuthoredLow
		}
		return EventServedAuthored
	case question.TierCached:
		return EventServedCached
	case question.TierOnDemand:
		return EventServedOnDemand
	default:
		return EventServedEmergency
	}
}

// transitions is the full state table. Serving from a tier moves to that
// tier's state, except that authored serves only count as HEALTHY while the
// authored tier holds at least the low-water mark. A successful
// replenishment restores HEALTHY; a failed one leaves the state unchanged.
var transitions = map[State]map[Event]State{
	StateHealthy: {
		EventServedAuthored:    StateHealthy,
		EventServedAuthoredLow: StateDegraded,
		EventServedCached:      StateDegraded,
		EventServedOnDemand:    StateCritical,
		EventServedEmergency:   StateEmergency,
		EventReplenished:       StateHealthy,
		EventReplenishFailed:   StateHealthy,
	},
	StateDegraded: {
		EventServedAuthored:    StateHealthy,
		EventServedAuthoredLow: StateDegraded,
		EventServedCached:      StateDegraded,
		EventServedOnDemand:    StateCritical,
		EventServedEmergency:   StateEmergency,
		EventReplenished:       StateHealthy,
		EventReplenishFailed:   StateDegraded,
	},
	StateCritical: {
		EventServedAuthored:    StateHealthy,
		EventServedAuthoredLow: StateDegraded,
		EventServedCached:      StateDegraded,
		EventServedOnDemand:    StateCritical,
		EventServedEmergency:   StateEmergency,
		EventReplenished:       StateHealthy,
		EventReplenishFailed:   StateCritical,
	},
	StateEmergency: {
		EventServedAuthored:    StateHealthy,
		EventServedAuthoredLow: StateDegraded,
		EventServedCached:      StateDegraded,
		EventServedOnDemand:    StateCritical,
		EventServedEmergency:   StateEmergency,
		EventReplenished:       StateHealthy,
		EventReplenishFailed:   StateEmergency,
	},
}

// Transition returns the state after applying ev to s. Unknown pairs keep s.
func Transition(s State, ev Event) State {
	if row, ok := transitions[s]; ok {
		if to, ok := row[ev]; ok {
			return to
		}
	}
	return s
}
