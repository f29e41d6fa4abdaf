package pipeline

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/abhisek/prepforge/internal/question"
)

const warmConcurrency = 4

// Warm loads inventories for keys in parallel. With no keys, every key
// present in storage is loaded.
func (p *Pipeline) Warm(ctx context.Context, keys ...question.Key) error {
	if len(keys) == 0 {
		var err error
		if keys, err = p.repo.Keys(ctx); err != nil {
			return fmt.Errorf("list inventory keys: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(warmConcurrency)
	for _, key := range keys {
		g.Go(func() error {
			p.mu.Lock()
			inv, ok := p.invs[key]
			if !ok {
				inv = newInventory(key)
				p.invs[key] = inv
			}
			p.mu.Unlock()
			return inv.load(gctx, p.repo)
		})
	}
	return g.Wait()
}

// Check inspects every known inventory once. Authored inventory below the
// low-water mark schedules cached warming; an inventory with nothing
// stored schedules on-demand generation.
func (p *Pipeline) Check(ctx context.Context) {
	for _, inv := range p.inventories() {
		if err := inv.load(ctx, p.repo); err != nil {
			p.log.Error("inventory load failed", "key", inv.key.String(), "error", err)
			continue
		}
		authored := inv.count(question.TierAuthored)
		cached := inv.count(question.TierCached)
		onDemand := inv.count(question.TierOnDemand)

		if authored < p.opts.LowWaterMark && cached < p.opts.LowWaterMark {
			p.schedule(inv, question.TierCached, question.BandMedium, p.opts.LowWaterMark-cached)
		}
		if authored+cached+onDemand == 0 {
			p.schedule(inv, question.TierOnDemand, question.BandMedium, 1)
		}
		p.log.Debug("inventory checked", "key", inv.key.String(),
			"authored", authored, "cached", cached, "on_demand", onDemand, "state", inv.currentState().String())
	}
}

// Run calls Check every MonitorInterval until ctx is done.
func (p *Pipeline) Run(ctx context.Context) error {
	interval := p.opts.MonitorInterval
	if interval <= 0 {
		interval = DefaultOptions().MonitorInterval
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	p.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			p.Check(ctx)
		}
	}
}

func (p *Pipeline) inventories() []*inventory {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*inventory, 0, len(p.invs))
	for _, inv := range p.invs {
		out = append(out, inv)
	}
	return out
}
