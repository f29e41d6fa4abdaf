// Package selector picks the next question for a learner.
//
// The target difficulty is the one at which, under the one-parameter
// logistic model, the learner answers correctly with the configured target
// accuracy. Candidates served recently in the session are excluded; the rest
// are ranked by distance to the target, then by how long ago they were last
// served to anyone, then by random jitter so learners with equal ability do
// not all see the same sequence. Selection is in-memory only.
package selector

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"

	"github.com/abhisek/prepforge/internal/ability"
	"github.com/abhisek/prepforge/internal/logger"
	"github.com/abhisek/prepforge/internal/question"
	"github.com/abhisek/prepforge/internal/scale"
)

// ErrNoCandidateAvailable means every candidate was excluded or the pool
// was empty. The caller is expected to try another source.
var ErrNoCandidateAvailable = errors.New("selector: no candidate available")

// DefaultTargetAccuracy is the success rate selection aims for.
const DefaultTargetAccuracy = 0.75

// scoreTolerance treats distances this close as equal.
const scoreTolerance = 1e-9

// Candidate is a question with its current difficulty estimate.
type Candidate struct {
	Question   *question.Question
	Difficulty float64
}

// AbilitySource provides learner abilities.
type AbilitySource interface {
	Ability(ctx context.Context, userID string, key question.Key) (ability.Estimate, error)
}

// Selector is safe for concurrent use.
type Selector struct {
	target    float64
	abilities AbilitySource
	usage     *Usage
	log       *logger.Logger

	// jitter returns a value in [0,1) used as the final tie-break.
	jitter func() float64
}

// New creates a Selector. usage may be shared between selectors.
func New(targetAccuracy float64, abilities AbilitySource, usage *Usage, log *logger.Logger) *Selector {
	if targetAccuracy <= 0 || targetAccuracy >= 1 {
		targetAccuracy = DefaultTargetAccuracy
	}
	if usage == nil {
		usage = NewUsage()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Selector{
		target:    targetAccuracy,
		abilities: abilities,
		usage:     usage,
		log:       log.Named("selector"),
		jitter:    rand.Float64,
	}
}

// TargetAccuracy returns the configured success rate.
func (s *Selector) TargetAccuracy() float64 { return s.target }

// Usage returns the global last-served tracker.
func (s *Selector) Usage() *Usage { return s.usage }

// TargetDifficulty returns ability - logit(target accuracy).
func (s *Selector) TargetDifficulty(ab float64) float64 {
	return scale.TargetDifficulty(ab, s.target)
}

// SelectNext looks up the learner's ability and picks from pool. recent
// reports question IDs served within the session's window and may be nil.
// If the ability lookup fails the cold-start ability is used.
func (s *Selector) SelectNext(ctx context.Context, userID string, key question.Key, pool []Candidate, recent func(id string) bool) (Candidate, error) {
	return s.Pick(s.TargetFor(ctx, userID, key), pool, recent)
}

// TargetFor returns the target difficulty for the learner and key.
func (s *Selector) TargetFor(ctx context.Context, userID string, key question.Key) float64 {
	var ab float64
	if s.abilities != nil {
		est, err := s.abilities.Ability(ctx, userID, key)
		if err != nil {
			s.log.Warn("ability lookup failed, using neutral ability", "user_id", userID, "key", key.String(), "error", err)
		} else {
			ab = est.Ability
		}
	}
	return s.TargetDifficulty(ab)
}

// Pick chooses the best candidate for target. It does not record usage;
// call Usage().Touch once the question is actually served.
func (s *Selector) Pick(target float64, pool []Candidate, recent func(id string) bool) (Candidate, error) {
	var (
		best     Candidate
		bestDist = math.Inf(1)
		bestSeen int64
		bestJit  float64
		found    bool
	)
	for _, c := range pool {
		if c.Question == nil || (recent != nil && recent(c.Question.ID)) {
			continue
		}
		dist := math.Abs(c.Difficulty - target)
		seen := s.usage.LastServed(c.Question.ID)
		jit := s.jitter()

		better := !found
		if found {
			switch {
			case dist < bestDist-scoreTolerance:
				better = true
			case dist > bestDist+scoreTolerance:
				better = false
			case seen != bestSeen:
				better = seen < bestSeen
			default:
				better = jit < bestJit
			}
		}
		if better {
			best, bestDist, bestSeen, bestJit, found = c, dist, seen, jit, true
		}
	}
	if !found {
		return Candidate{}, ErrNoCandidateAvailable
	}
	return best, nil
}
