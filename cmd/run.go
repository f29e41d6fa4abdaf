package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/abhisek/prepforge/internal/config"
	"github.com/abhisek/prepforge/internal/engine"
	"github.com/abhisek/prepforge/internal/llm"
	"github.com/abhisek/prepforge/internal/logger"
	"github.com/abhisek/prepforge/internal/store"
	"github.com/spf13/cobra"
)

// env holds what every database-backed command needs.
type env struct {
	cfg config.Config
	log *logger.Logger
	st  *store.Store
}

// openEnv loads configuration, builds the logger and opens the store.
// Logs go to logPaths when given, stderr otherwise.
func openEnv(cmd *cobra.Command, logPaths ...string) (*env, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	log, err := logger.New(cfg.LogMode, logPaths...)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	dbPath, err := resolveDBPath(cmd)
	if err != nil {
		return nil, fmt.Errorf("resolve DB path: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return &env{cfg: cfg, log: log, st: st}, nil
}

func (e *env) Close() {
	_ = e.st.Close()
	e.log.Sync()
}

// provider builds the configured LLM provider. It returns nil when no
// provider is configured; AI generation is then unavailable.
func (e *env) provider(ctx context.Context, events store.EventRepo) (llm.Provider, error) {
	lcfg, ok := llm.ConfigFromEnv()
	if !ok {
		return nil, nil
	}
	return llm.New(ctx, lcfg, events, e.log)
}

// runtime wires the engine. A missing or broken provider only disables
// the generated tiers.
func (e *env) runtime(ctx context.Context) (*engine.Runtime, error) {
	p, err := e.provider(ctx, e.st.EventRepo())
	switch {
	case err != nil:
		fmt.Fprintln(os.Stderr, "LLM provider not configured:", err)
		fmt.Fprintln(os.Stderr, "Question generation will be unavailable.")
	case p == nil:
		fmt.Fprintln(os.Stderr, "No LLM provider configured; serving stored and emergency questions only.")
	}
	return engine.Open(ctx, e.cfg, e.st, p, e.log)
}
