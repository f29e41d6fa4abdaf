package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/abhisek/prepforge/internal/ability"
	"github.com/abhisek/prepforge/internal/bank"
	"github.com/abhisek/prepforge/internal/config"
	"github.com/abhisek/prepforge/internal/difficulty"
	"github.com/abhisek/prepforge/internal/llm"
	"github.com/abhisek/prepforge/internal/logger"
	"github.com/abhisek/prepforge/internal/metrics"
	"github.com/abhisek/prepforge/internal/pipeline"
	"github.com/abhisek/prepforge/internal/questiongen"
	"github.com/abhisek/prepforge/internal/selector"
	"github.com/abhisek/prepforge/internal/store"
	"github.com/abhisek/prepforge/internal/worker"
)

// abilityTTL bounds how long a shared cache entry survives a missed
// invalidation.
const abilityTTL = 10 * time.Minute

// Runtime is a fully wired engine with the resources it owns.
type Runtime struct {
	*Engine

	Pipeline *pipeline.Pipeline
	Workers  *worker.Pool
	Store    *store.Store

	cancel context.CancelFunc
	redis  *ability.RedisCache
	log    *logger.Logger
}

// Open wires every component from cfg on top of st. provider may be nil,
// in which case generated tiers are only filled by ingestion.
func Open(ctx context.Context, cfg config.Config, st *store.Store, provider llm.Provider, log *logger.Logger) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if log == nil {
		log = logger.Nop()
	}

	emerg, err := bank.LoadEmergency()
	if err != nil {
		return nil, err
	}

	var (
		cache ability.Cache = ability.NewMemoryCache()
		redis *ability.RedisCache
	)
	if cfg.RedisURL != "" {
		redis, err = ability.NewRedisCache(ctx, cfg.RedisURL, abilityTTL)
		if err != nil {
			// The cache is derived; fall back to process memory.
			log.Warn("redis ability cache unavailable, using memory", "error", err)
		} else {
			cache = redis
		}
	}

	abilities := ability.NewService(ability.NewEstimator(st.ResponseRepo(), ability.Params{
		Window:     cfg.AbilityWindow,
		Decay:      cfg.AbilityDecay,
		MinHistory: cfg.MinHistory,
	}), cache, log)

	diffs := difficulty.NewCache()
	mstore := metrics.New(st.MetricsRepo(), difficulty.New(cfg.MinSamples), cfg.MetricsTimeout, log)

	workers := worker.NewPool(cfg.Workers, cfg.QueueSize, log)
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	workers.Start(runCtx)

	var gen pipeline.Generator
	if provider != nil {
		gen = questiongen.New(provider, questiongen.DefaultConfig(), st.PoolRepo())
	}

	pipe := pipeline.New(pipeline.Deps{
		Pool:       st.PoolRepo(),
		Selector:   selector.New(cfg.TargetAccuracy, abilities, nil, log),
		Difficulty: diffs,
		Generator:  gen,
		Emergency:  emerg,
		Workers:    workers,
		Log:        log,
	}, pipeline.Options{
		LowWaterMark:    cfg.LowWaterMark,
		GenRetries:      cfg.GenRetries,
		GenBackoff:      cfg.GenBackoff,
		GenBudget:       cfg.GenBudget,
		OnDemandTimeout: cfg.OnDemandTimeout,
		MonitorInterval: cfg.MonitorInterval,
	})

	eng := New(Deps{
		Pipeline:   pipe,
		Abilities:  abilities,
		Difficulty: diffs,
		Metrics:    mstore,
		Responses:  st.ResponseRepo(),
		Pool:       st.PoolRepo(),
		Emergency:  emerg,
		Workers:    workers,
		Log:        log,
	})

	rt := &Runtime{
		Engine:   eng,
		Pipeline: pipe,
		Workers:  workers,
		Store:    st,
		cancel:   cancel,
		redis:    redis,
		log:      log,
	}
	if err := rt.warm(ctx, st); err != nil {
		_ = rt.Close(ctx)
		return nil, err
	}
	return rt, nil
}

// warm loads every stored inventory and its difficulty estimates.
func (r *Runtime) warm(ctx context.Context, st *store.Store) error {
	keys, err := st.PoolRepo().Keys(ctx)
	if err != nil {
		return fmt.Errorf("%w: list inventories: %v", ErrPersistenceUnavailable, err)
	}
	if len(keys) == 0 {
		return nil
	}
	for _, k := range keys {
		if err := r.diffs.Warm(ctx, st.MetricsRepo(), k); err != nil {
			r.log.Warn("difficulty warm-up failed", "key", k.String(), "error", err)
		}
	}
	if err := r.Pipeline.Warm(ctx, keys...); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistenceUnavailable, err)
	}
	r.log.Info("inventories loaded", "keys", len(keys))
	return nil
}

// RunMonitor checks inventories periodically until ctx is done.
func (r *Runtime) RunMonitor(ctx context.Context) error {
	return r.Pipeline.Run(ctx)
}

// Close drains background work within ctx's deadline and releases the
// ability cache. The store is owned by the caller.
func (r *Runtime) Close(ctx context.Context) error {
	err := r.Workers.Shutdown(ctx)
	r.cancel()
	if r.redis != nil {
		if cerr := r.redis.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
