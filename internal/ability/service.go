package ability

import (
	"context"

	"golang.org/x/sync/singleflight"

	"github.com/abhisek/prepforge/internal/logger"
	"github.com/abhisek/prepforge/internal/question"
)

// Service serves abilities through a derived cache. Concurrent misses for
// the same learner and key share a single recompute.
type Service struct {
	est   *Estimator
	cache Cache
	group singleflight.Group
	log   *logger.Logger
}

func NewService(est *Estimator, cache Cache, log *logger.Logger) *Service {
	if cache == nil {
		cache = NewMemoryCache()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{est: est, cache: cache, log: log.Named("ability")}
}

// Estimator returns the underlying estimator.
func (s *Service) Estimator() *Estimator { return s.est }

// Ability returns the current estimate for the learner and key.
func (s *Service) Ability(ctx context.Context, userID string, key question.Key) (Estimate, error) {
	if est, ok, err := s.cache.Get(ctx, userID, key); err != nil {
		s.log.Warn("ability cache read failed", "user_id", userID, "key", key.String(), "error", err)
	} else if ok {
		return est, nil
	}

	v, err, _ := s.group.Do(cacheKey(userID, key), func() (any, error) {
		est, err := s.est.Estimate(ctx, userID, key)
		if err != nil {
			return Estimate{}, err
		}
		if err := s.cache.Set(ctx, est); err != nil {
			s.log.Warn("ability cache write failed", "user_id", userID, "key", key.String(), "error", err)
		}
		return est, nil
	})
	if err != nil {
		return Estimate{}, err
	}
	return v.(Estimate), nil
}

// Invalidate drops the cached estimate after new responses arrive.
func (s *Service) Invalidate(ctx context.Context, userID string, key question.Key) {
	if err := s.cache.Invalidate(ctx, userID, key); err != nil {
		s.log.Warn("ability cache invalidate failed", "user_id", userID, "key", key.String(), "error", err)
	}
}
