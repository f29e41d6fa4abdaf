// Package pipeline guarantees a question for every practice request.
//
// Each exam/topic has an inventory split into tiers: authored, cached
// generated, on-demand generated and a static emergency set. A request
// walks the tiers in that order, asking the selector to pick from each and
// moving on when it finds nothing. Exhausted tiers are refilled by jobs on
// the shared worker pool so the request path never waits on replenishment.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/abhisek/prepforge/internal/difficulty"
	"github.com/abhisek/prepforge/internal/llm"
	"github.com/abhisek/prepforge/internal/logger"
	"github.com/abhisek/prepforge/internal/question"
	"github.com/abhisek/prepforge/internal/selector"
	"github.com/abhisek/prepforge/internal/store"
	"github.com/abhisek/prepforge/internal/worker"
)

// Generator produces a new question for an exam/topic at a band.
type Generator interface {
	Generate(ctx context.Context, key question.Key, band question.Band) (*question.Question, error)
}

// EmergencySource provides static fallback questions. For returns a
// non-empty slice for every key.
type EmergencySource interface {
	For(key question.Key) []*question.Question
}

// Options tunes the pipeline.
type Options struct {
	LowWaterMark    int
	GenRetries      int
	GenBackoff      time.Duration
	GenBudget       time.Duration
	OnDemandTimeout time.Duration
	MonitorInterval time.Duration
}

// DefaultOptions mirrors the engine configuration defaults.
func DefaultOptions() Options {
	return Options{
		LowWaterMark:    5,
		GenRetries:      2,
		GenBackoff:      time.Second,
		GenBudget:       10 * time.Second,
		OnDemandTimeout: 1500 * time.Millisecond,
		MonitorInterval: 5 * time.Minute,
	}
}

// Deps are the pipeline's collaborators. Generator may be nil, in which
// case tiers two and three are only filled by ingestion.
type Deps struct {
	Pool       store.PoolRepo
	Selector   *selector.Selector
	Difficulty *difficulty.Cache
	Generator  Generator
	Emergency  EmergencySource
	Workers    *worker.Pool
	Log        *logger.Logger
}

// Request asks for the next question.
type Request struct {
	UserID string
	Key    question.Key

	// Band restricts the first selection pass. Empty means the band of the
	// learner's target difficulty.
	Band question.Band

	// Recent reports question IDs inside the session's anti-repetition
	// window. May be nil.
	Recent func(id string) bool
}

// Result is a served question.
type Result struct {
	Question   *question.Question
	Tier       question.Tier
	Difficulty float64
	Target     float64
	State      State
}

type Pipeline struct {
	opts  Options
	repo  store.PoolRepo
	sel   *selector.Selector
	diffs *difficulty.Cache
	gen   Generator
	emerg EmergencySource
	pool  *worker.Pool
	log   *logger.Logger

	mu   sync.RWMutex
	invs map[question.Key]*inventory

	// sleep waits between generation attempts; replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

func New(deps Deps, opts Options) *Pipeline {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	diffs := deps.Difficulty
	if diffs == nil {
		diffs = difficulty.NewCache()
	}
	return &Pipeline{
		opts:  opts,
		repo:  deps.Pool,
		sel:   deps.Selector,
		diffs: diffs,
		gen:   deps.Generator,
		emerg: deps.Emergency,
		pool:  deps.Workers,
		log:   log.Named("pipeline"),
		invs:  make(map[question.Key]*inventory),
		sleep: sleepCtx,
	}
}

// Serve returns a question for req. It fails only if ctx is already done;
// every other failure degrades to a lower tier, ending at emergency content.
func (p *Pipeline) Serve(ctx context.Context, req Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	inv := p.inventory(ctx, req.Key)
	target := p.sel.TargetFor(ctx, req.UserID, req.Key)
	band := req.Band
	if !band.Valid() {
		band = question.BandFor(target)
	}

	for _, tier := range storedTiers {
		c, err := p.pickFrom(inv.items(tier), band, target, req.Recent)
		if errors.Is(err, selector.ErrNoCandidateAvailable) && tier == question.TierOnDemand && p.gen != nil {
			c, err = p.generateNow(ctx, req.Key, band, target)
		}
		if err != nil {
			continue
		}
		return p.served(inv, c, tier, target), nil
	}

	c, err := p.pickEmergency(req.Key, target, req.Recent)
	if err != nil {
		// The emergency source broke its contract; nothing else to serve.
		return Result{}, fmt.Errorf("no emergency content for %s: %w", req.Key, err)
	}
	res := p.served(inv, c, question.TierEmergency, target)
	p.schedule(inv, question.TierOnDemand, band, 1)
	return res, nil
}

// pickFrom tries the band first, then the whole tier.
func (p *Pipeline) pickFrom(items []*question.Question, band question.Band, target float64, recent func(string) bool) (selector.Candidate, error) {
	if len(items) == 0 {
		return selector.Candidate{}, selector.ErrNoCandidateAvailable
	}
	all := make([]selector.Candidate, 0, len(items))
	inBand := make([]selector.Candidate, 0, len(items))
	for _, q := range items {
		c := selector.Candidate{Question: q, Difficulty: p.diffs.Of(q)}
		all = append(all, c)
		if question.BandFor(c.Difficulty) == band {
			inBand = append(inBand, c)
		}
	}
	if c, err := p.sel.Pick(target, inBand, recent); err == nil {
		return c, nil
	}
	return p.sel.Pick(target, all, recent)
}

// pickEmergency prefers content outside the session window but will repeat
// rather than return nothing.
func (p *Pipeline) pickEmergency(key question.Key, target float64, recent func(string) bool) (selector.Candidate, error) {
	if p.emerg == nil {
		return selector.Candidate{}, selector.ErrNoCandidateAvailable
	}
	qs := p.emerg.For(key)
	cands := make([]selector.Candidate, 0, len(qs))
	for _, q := range qs {
		cands = append(cands, selector.Candidate{Question: q, Difficulty: p.diffs.Of(q)})
	}
	if c, err := p.sel.Pick(target, cands, recent); err == nil {
		return c, nil
	}
	return p.sel.Pick(target, cands, nil)
}

// generateNow makes one bounded on-demand attempt on the request path.
func (p *Pipeline) generateNow(ctx context.Context, key question.Key, band question.Band, target float64) (selector.Candidate, error) {
	ctx, cancel := context.WithTimeout(llm.WithPurpose(ctx, llm.PurposeOnDemand), p.opts.OnDemandTimeout)
	defer cancel()

	start := time.Now()
	q, err := p.gen.Generate(ctx, key, band)
	if err == nil {
		err = prepareGenerated(q, key, band, question.TierOnDemand)
	}
	if err != nil {
		gerr := &GenerationError{Key: key, Attempts: 1, Timeout: isTimeout(ctx, err), Err: err}
		p.log.Warn("on-demand generation failed", "key", key.String(), "elapsed", time.Since(start), "error", gerr)
		return selector.Candidate{}, gerr
	}

	// Persist in the background and retire at once: it is served now.
	p.submit(worker.Func{
		JobName: "persist-on-demand:" + q.ID,
		Fn: func(ctx context.Context) error {
			if err := p.insertWithRetry(ctx, q); err != nil {
				return err
			}
			return p.repo.Retire(ctx, q.ID)
		},
	})
	return selector.Candidate{Question: q, Difficulty: p.diffs.Of(q)}, nil
}

func (p *Pipeline) served(inv *inventory, c selector.Candidate, tier question.Tier, target float64) Result {
	p.sel.Usage().Touch(c.Question.ID)

	from, to := inv.fire(servedEvent(tier, inv.count(question.TierAuthored), p.opts.LowWaterMark))
	if from != to {
		p.log.Info("pipeline state changed", "key", inv.key.String(), "from", from.String(), "to", to.String(), "tier", tier.String())
	}

	if tier == question.TierOnDemand && inv.remove(tier, c.Question.ID) {
		id := c.Question.ID
		p.submit(worker.Func{
			JobName: "retire:" + id,
			Fn:      func(ctx context.Context) error { return p.repo.Retire(ctx, id) },
		})
	}

	if inv.count(question.TierAuthored) < p.opts.LowWaterMark {
		want := p.opts.LowWaterMark - inv.count(question.TierCached)
		if want > 0 {
			p.schedule(inv, question.TierCached, question.BandFor(target), want)
		}
	}

	return Result{
		Question:   c.Question,
		Tier:       tier,
		Difficulty: c.Difficulty,
		Target:     target,
		State:      to,
	}
}

// inventory returns the key's inventory, loading it from storage on first
// use. Load failures are logged and the inventory is served as it stands.
func (p *Pipeline) inventory(ctx context.Context, key question.Key) *inventory {
	p.mu.RLock()
	inv, ok := p.invs[key]
	p.mu.RUnlock()
	if !ok {
		p.mu.Lock()
		if inv, ok = p.invs[key]; !ok {
			inv = newInventory(key)
			p.invs[key] = inv
		}
		p.mu.Unlock()
	}
	if p.repo != nil {
		if err := inv.load(ctx, p.repo); err != nil {
			p.log.Error("inventory load failed", "key", key.String(), "error", err)
		}
	}
	return inv
}

// Add ingests questions into storage and the in-memory inventory.
func (p *Pipeline) Add(ctx context.Context, qs ...*question.Question) error {
	for _, q := range qs {
		if err := q.Validate(); err != nil {
			return fmt.Errorf("add question: %w", err)
		}
		if q.Tier == question.TierEmergency {
			return fmt.Errorf("add question %s: emergency content is not stored", q.ID)
		}
		if err := p.repo.Insert(ctx, q); err != nil {
			return err
		}
		p.inventory(ctx, question.Key{ExamType: q.ExamType, Topic: q.Topic}).add(q)
	}
	return nil
}

// State returns the current state for key.
func (p *Pipeline) State(key question.Key) State {
	p.mu.RLock()
	inv, ok := p.invs[key]
	p.mu.RUnlock()
	if !ok {
		return StateHealthy
	}
	return inv.currentState()
}

func (p *Pipeline) submit(job worker.Job) bool {
	if p.pool == nil {
		p.log.Warn("no worker pool, dropping job", "job", job.Name())
		return false
	}
	if err := p.pool.Submit(job); err != nil {
		p.log.Warn("background job not queued", "job", job.Name(), "error", err)
		return false
	}
	return true
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
