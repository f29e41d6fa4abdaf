package llm

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

type retryProvider struct {
	inner Provider
	cfg   RetryConfig

	// wait blocks for d or until ctx ends; replaced in tests.
	wait func(ctx context.Context, d time.Duration) error
}

// WithRetry retries transient failures with jittered exponential backoff.
// Rate limits honour RetryAfter; a malformed response is retried once.
func WithRetry(p Provider, cfg RetryConfig) Provider {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &retryProvider{inner: p, cfg: cfg, wait: waitCtx}
}

func (r *retryProvider) ModelID() string { return r.inner.ModelID() }

func (r *retryProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	var (
		err          error
		sawMalformed bool
	)
	for attempt := 0; attempt < r.cfg.MaxAttempts; attempt++ {
		var resp *Response
		resp, err = r.inner.Generate(ctx, req)
		if err == nil {
			return resp, nil
		}

		var invalid *InvalidResponseError
		if errors.As(err, &invalid) {
			if sawMalformed {
				return nil, err
			}
			sawMalformed = true
		} else if !retryable(err) {
			return nil, err
		}

		if attempt == r.cfg.MaxAttempts-1 {
			break
		}
		if werr := r.wait(ctx, r.delay(attempt, err)); werr != nil {
			return nil, werr
		}
	}
	return nil, err
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var truncated *TruncatedError
	return !errors.As(err, &truncated)
}

func (r *retryProvider) delay(attempt int, err error) time.Duration {
	var rl *RateLimitError
	if errors.As(err, &rl) && rl.RetryAfter > 0 {
		return rl.RetryAfter
	}
	d := float64(r.cfg.InitialWait) * math.Pow(r.cfg.Multiplier, float64(attempt))
	d = math.Min(d, float64(r.cfg.MaxWait))
	// ±20% jitter
	d *= 0.8 + 0.4*rand.Float64()
	return time.Duration(d)
}

func waitCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
