package question

// Tier is a provenance and priority level in the availability pipeline.
// Lower tiers are preferred.
type Tier int

const (
	TierAuthored  Tier = 1 // pre-authored bank
	TierCached    Tier = 2 // cached generated pool
	TierOnDemand  Tier = 3 // generated on demand for an exhausted inventory
	TierEmergency Tier = 4 // static fallback content
)

// Tiers lists every tier in serving order.
var Tiers = []Tier{TierAuthored, TierCached, TierOnDemand, TierEmergency}

func (t Tier) Valid() bool {
	return t >= TierAuthored && t <= TierEmergency
}

func (t Tier) String() string {
	switch t {
	case TierAuthored:
		return "authored"
	case TierCached:
		return "cached"
	case TierOnDemand:
		return "on-demand"
	case TierEmergency:
		return "emergency"
	default:
		return "unknown"
	}
}
