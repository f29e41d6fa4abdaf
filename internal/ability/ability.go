// Package ability estimates a learner's proficiency per exam and topic.
//
// An estimate is derived entirely from the learner's response records: the
// last K answers are weighted by decay^rank (rank 0 is the newest), the
// weighted accuracy is clamped away from 0 and 1, and its logit is the
// ability. Caches in this package only ever hold values that can be
// recomputed from that history.
package ability

import (
	"context"
	"fmt"
	"time"

	"github.com/abhisek/prepforge/internal/question"
	"github.com/abhisek/prepforge/internal/scale"
	"github.com/abhisek/prepforge/internal/store"
)

// Defaults.
const (
	DefaultWindow     = 20
	DefaultDecay      = 0.85
	DefaultMinHistory = 5
)

// Estimate is a derived ability value.
type Estimate struct {
	UserID      string    `json:"user_id"`
	ExamType    string    `json:"exam_type"`
	Topic       string    `json:"topic"`
	Ability     float64   `json:"ability"`
	SampleSize  int       `json:"sample_size"`
	LastUpdated time.Time `json:"last_updated"`
}

// Params controls the recency weighting.
type Params struct {
	Window     int     // K, the number of most recent responses considered
	Decay      float64 // weight multiplier per step back in time, in (0,1]
	MinHistory int     // fewer responses than this yields ability 0; 0 means the default
}

func (p Params) withDefaults() Params {
	if p.Window <= 0 {
		p.Window = DefaultWindow
	}
	if p.Decay <= 0 || p.Decay > 1 {
		p.Decay = DefaultDecay
	}
	if p.MinHistory <= 0 {
		p.MinHistory = DefaultMinHistory
	}
	return p
}

// Compute returns the ability for records ordered newest first. Only the
// first Window records are used. With fewer than MinHistory records the
// cold-start value 0 is returned.
func Compute(records []store.ResponseRecord, p Params) float64 {
	p = p.withDefaults()
	if len(records) > p.Window {
		records = records[:p.Window]
	}
	if len(records) < p.MinHistory || len(records) == 0 {
		return 0
	}

	var num, den float64
	w := 1.0
	for _, r := range records {
		if r.Correct {
			num += w
		}
		den += w
		w *= p.Decay
	}
	return scale.ClampedLogit(num / den)
}

// Estimator recomputes abilities from stored history.
type Estimator struct {
	responses store.ResponseRepo
	params    Params
	now       func() time.Time
}

func NewEstimator(responses store.ResponseRepo, p Params) *Estimator {
	return &Estimator{responses: responses, params: p.withDefaults(), now: time.Now}
}

// Params returns the estimator's effective parameters.
func (e *Estimator) Params() Params { return e.params }

// Estimate recomputes the ability for one user and key from scratch.
func (e *Estimator) Estimate(ctx context.Context, userID string, key question.Key) (Estimate, error) {
	recs, err := e.responses.Recent(ctx, userID, key, e.params.Window)
	if err != nil {
		return Estimate{}, fmt.Errorf("load recent responses: %w", err)
	}
	return Estimate{
		UserID:      userID,
		ExamType:    key.ExamType,
		Topic:       key.Topic,
		Ability:     Compute(recs, e.params),
		SampleSize:  len(recs),
		LastUpdated: e.now().UTC(),
	}, nil
}
