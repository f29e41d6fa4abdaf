package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/abhisek/prepforge/internal/logger"
	"github.com/abhisek/prepforge/internal/store"
)

// New builds the configured backend wrapped as
// deadline -> retry -> recording -> backend, so each attempt is recorded
// and the whole exchange respects cfg.Timeout.
func New(ctx context.Context, cfg Config, events store.EventRepo, log *logger.Logger) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		base Provider
		err  error
	)
	b := cfg.Backends[cfg.Provider]
	switch cfg.Provider {
	case ProviderAnthropic:
		base, err = NewAnthropicProvider(b)
	case ProviderOpenAI:
		base, err = NewOpenAIProvider(b)
	case ProviderGemini:
		base, err = NewGeminiProvider(ctx, b)
	case ProviderOpenRouter:
		base, err = NewOpenRouterProvider(b)
	case ProviderMock:
		base = NewMockProvider()
	}
	if err != nil {
		return nil, fmt.Errorf("initialise %s provider: %w", cfg.Provider, err)
	}

	p := WithRecording(base, cfg.Provider, events, log)
	p = WithRetry(p, cfg.Retry)
	return WithTimeout(p, cfg.Timeout), nil
}

type timeoutProvider struct {
	inner Provider
	d     time.Duration
}

// WithTimeout bounds each Generate call by d. A shorter deadline already
// on the context wins. d <= 0 disables the bound.
func WithTimeout(p Provider, d time.Duration) Provider {
	if d <= 0 {
		return p
	}
	return &timeoutProvider{inner: p, d: d}
}

func (t *timeoutProvider) ModelID() string { return t.inner.ModelID() }

func (t *timeoutProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	return t.inner.Generate(ctx, req)
}
