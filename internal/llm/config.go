package llm

import (
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	ProviderAnthropic  = "anthropic"
	ProviderOpenAI     = "openai"
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
	ProviderMock       = "mock"
)

// Config selects a backend and tunes the middleware.
type Config struct {
	Provider string

	// Backends, keyed by provider name.
	Backends map[string]Backend

	Retry RetryConfig

	// Timeout bounds one Generate call including retries.
	Timeout time.Duration
}

// Backend is the credential and model for one provider.
type Backend struct {
	APIKey  string
	Model   string
	BaseURL string
}

type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// DefaultConfig uses Anthropic's small model with three attempts.
func DefaultConfig() Config {
	return Config{
		Provider: ProviderAnthropic,
		Backends: map[string]Backend{
			ProviderAnthropic:  {Model: "claude-haiku"},
			ProviderOpenAI:     {Model: "gpt-4o-mini"},
			ProviderGemini:     {Model: "gemini-flash"},
			ProviderOpenRouter: {Model: "google/gemini-2.0-flash-001", BaseURL: defaultOpenRouterBaseURL},
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			InitialWait: time.Second,
			MaxWait:     10 * time.Second,
			Multiplier:  2,
		},
		Timeout: 30 * time.Second,
	}
}

// envNames lists the variables consulted per provider. The PREPFORGE_
// names win over the vendor's conventional key name.
var envNames = map[string][]string{
	ProviderAnthropic:  {"PREPFORGE_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY"},
	ProviderOpenAI:     {"PREPFORGE_OPENAI_API_KEY", "OPENAI_API_KEY"},
	ProviderGemini:     {"PREPFORGE_GEMINI_API_KEY", "GEMINI_API_KEY"},
	ProviderOpenRouter: {"PREPFORGE_OPENROUTER_API_KEY", "OPENROUTER_API_KEY"},
}

// discoveryOrder is the provider preference when PREPFORGE_LLM_PROVIDER is
// unset.
var discoveryOrder = []string{ProviderAnthropic, ProviderOpenAI, ProviderGemini, ProviderOpenRouter}

// ConfigFromEnv reads PREPFORGE_LLM_PROVIDER, PREPFORGE_<PROVIDER>_MODEL,
// PREPFORGE_<PROVIDER>_BASE_URL and the API keys. Without an explicit
// provider, the first one with a key is used. ok is false when no provider
// could be configured.
func ConfigFromEnv() (cfg Config, ok bool) {
	cfg = DefaultConfig()
	for name, keys := range envNames {
		b := cfg.Backends[name]
		for _, k := range keys {
			if v := os.Getenv(k); v != "" {
				b.APIKey = v
				break
			}
		}
		prefix := "PREPFORGE_" + strings.ToUpper(name) + "_"
		if v := os.Getenv(prefix + "MODEL"); v != "" {
			b.Model = v
		}
		if v := os.Getenv(prefix + "BASE_URL"); v != "" {
			b.BaseURL = v
		}
		cfg.Backends[name] = b
	}

	if p := os.Getenv("PREPFORGE_LLM_PROVIDER"); p != "" {
		cfg.Provider = p
		return cfg, cfg.Validate() == nil
	}
	for _, name := range discoveryOrder {
		if cfg.Backends[name].APIKey != "" {
			cfg.Provider = name
			return cfg, true
		}
	}
	return cfg, false
}

// Validate checks the selected provider is known and has a key.
func (c Config) Validate() error {
	switch c.Provider {
	case ProviderMock:
		return nil
	case ProviderAnthropic, ProviderOpenAI, ProviderGemini, ProviderOpenRouter:
		if c.Backends[c.Provider].APIKey == "" {
			return fmt.Errorf("PREPFORGE_%s_API_KEY is required for the %s provider", strings.ToUpper(c.Provider), c.Provider)
		}
		return nil
	}
	return fmt.Errorf("unknown LLM provider: %q", c.Provider)
}
