package question

import (
	"strconv"
	"strings"
)

// Band is a coarse difficulty label assigned by authors or requested from
// the generator.
type Band string

const (
	BandEasy   Band = "easy"
	BandMedium Band = "medium"
	BandHard   Band = "hard"
	BandExpert Band = "expert"
)

// Bands lists every band from easiest to hardest.
var Bands = []Band{BandEasy, BandMedium, BandHard, BandExpert}

func (b Band) Valid() bool {
	switch b {
	case BandEasy, BandMedium, BandHard, BandExpert:
		return true
	}
	return false
}

// DefaultDifficulty is the prior on the logit scale used before a question
// has enough responses for an empirical estimate.
func (b Band) DefaultDifficulty() float64 {
	switch b {
	case BandEasy:
		return -1
	case BandHard:
		return 1
	case BandExpert:
		return 2
	default:
		return 0
	}
}

// BandFor maps a logit-scale difficulty to the band whose prior is nearest.
func BandFor(difficulty float64) Band {
	switch {
	case difficulty < -0.5:
		return BandEasy
	case difficulty < 0.5:
		return BandMedium
	case difficulty < 1.5:
		return BandHard
	default:
		return BandExpert
	}
}

// ParseBand accepts band names ("easy", "Medium") and the 1-5 integer scale
// used by older bank files (1-2 easy, 3 medium, 4 hard, 5 expert).
// Unknown values fall back to medium.
func ParseBand(s string) Band {
	s = strings.ToLower(strings.TrimSpace(s))
	if b := Band(s); b.Valid() {
		return b
	}
	if n, err := strconv.Atoi(s); err == nil {
		switch {
		case n <= 2:
			return BandEasy
		case n == 3:
			return BandMedium
		case n == 4:
			return BandHard
		default:
			return BandExpert
		}
	}
	return BandMedium
}
