package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/prepforge/internal/llm"
	"github.com/abhisek/prepforge/internal/question"
	"github.com/abhisek/prepforge/internal/worker"
)

// GenerationError reports a generation that failed after its attempts.
type GenerationError struct {
	Key      question.Key
	Attempts int
	Timeout  bool
	Err      error
}

func (e *GenerationError) Error() string {
	kind := "failed"
	if e.Timeout {
		kind = "timed out"
	}
	return fmt.Sprintf("generation for %s %s after %d attempt(s): %v", e.Key, kind, e.Attempts, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

func isTimeout(ctx context.Context, err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)
}

// prepareGenerated fills the provenance fields of a generated question and
// validates it.
func prepareGenerated(q *question.Question, key question.Key, band question.Band, tier question.Tier) error {
	if q == nil {
		return errors.New("generator returned no question")
	}
	if q.ID == "" {
		q.ID = "gen-" + uuid.NewString()
	}
	q.ExamType = key.ExamType
	q.Topic = key.Topic
	if !q.Band.Valid() {
		q.Band = band
	}
	q.Tier = tier
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
	}
	return q.Validate()
}

// schedule queues a job generating n questions into tier unless an
// identical job is already pending for the inventory.
func (p *Pipeline) schedule(inv *inventory, tier question.Tier, band question.Band, n int) {
	if p.gen == nil || n <= 0 {
		return
	}
	job := tier.String() + ":" + string(band)
	if !inv.claim(job) {
		return
	}
	ok := p.submit(worker.Func{
		JobName: "replenish:" + inv.key.String() + ":" + job,
		Fn: func(ctx context.Context) error {
			defer inv.release(job)
			return p.replenish(ctx, inv, tier, band, n)
		},
	})
	if !ok {
		inv.release(job)
	}
}

func (p *Pipeline) replenish(ctx context.Context, inv *inventory, tier question.Tier, band question.Band, n int) error {
	var (
		added   int
		lastErr error
	)
	for i := 0; i < n; i++ {
		q, err := p.generateWithRetry(ctx, inv.key, band, tier)
		if err != nil {
			lastErr = err
			break
		}
		if err := p.insertWithRetry(ctx, q); err != nil {
			lastErr = err
			continue
		}
		inv.add(q)
		added++
	}

	if added > 0 {
		from, to := inv.fire(EventReplenished)
		p.log.Info("inventory replenished", "key", inv.key.String(), "tier", tier.String(), "added", added, "from", from.String(), "to", to.String())
		return nil
	}
	inv.fire(EventReplenishFailed)
	p.log.Warn("replenishment gave up, staying degraded", "key", inv.key.String(), "tier", tier.String(), "state", inv.currentState().String(), "error", lastErr)
	return lastErr
}

// generateWithRetry calls the generator up to GenRetries+1 times with
// exponential backoff, all within GenBudget.
func (p *Pipeline) generateWithRetry(ctx context.Context, key question.Key, band question.Band, tier question.Tier) (*question.Question, error) {
	if p.opts.GenBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.GenBudget)
		defer cancel()
	}

	purpose := llm.PurposeCached
	if tier == question.TierOnDemand {
		purpose = llm.PurposeOnDemand
	}
	ctx = llm.WithPurpose(ctx, purpose)

	attempts := p.opts.GenRetries + 1
	backoff := p.opts.GenBackoff
	var (
		lastErr error
		made    int
	)
	for made < attempts {
		made++
		q, err := p.gen.Generate(ctx, key, band)
		if err == nil {
			if err = prepareGenerated(q, key, band, tier); err == nil {
				return q, nil
			}
		}
		lastErr = err
		if made == attempts || ctx.Err() != nil {
			break
		}
		p.log.Warn("generation attempt failed, retrying",
			"key", key.String(), "attempt", made, "backoff", backoff, "error", err)
		if err := p.sleep(ctx, backoff); err != nil {
			break
		}
		backoff *= 2
	}
	return nil, &GenerationError{Key: key, Attempts: made, Timeout: isTimeout(ctx, lastErr), Err: lastErr}
}

// insertWithRetry stores q, retrying once before dropping it.
func (p *Pipeline) insertWithRetry(ctx context.Context, q *question.Question) error {
	err := p.repo.Insert(ctx, q)
	if err == nil {
		return nil
	}
	p.log.Warn("storing generated question failed, retrying", "question_id", q.ID, "error", err)
	if err = p.repo.Insert(ctx, q); err != nil {
		p.log.Error("dropping generated question", "question_id", q.ID, "error", err)
		return fmt.Errorf("store generated question %s: %w", q.ID, err)
	}
	return nil
}
