// Package questiongen produces multiple-choice practice questions with a
// language model. Output is requested as schema-constrained JSON, mapped to
// question.Question and passed through a validator chain; any rejection is
// returned as an error so the caller's retry policy applies.
package questiongen

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/abhisek/prepforge/internal/llm"
	"github.com/abhisek/prepforge/internal/question"
	"github.com/abhisek/prepforge/internal/store"
)

// Input is everything one generation needs.
type Input struct {
	Key  question.Key
	Band question.Band

	// Avoid holds prompts the result must not repeat.
	Avoid []string
}

type Config struct {
	Validators  []Validator
	MaxTokens   int
	Temperature float64

	// MaxAvoid caps how many prior prompts are sent to the model.
	MaxAvoid int
}

func DefaultConfig() Config {
	return Config{
		Validators:  []Validator{StructuralValidator{}, DuplicateValidator{}},
		MaxTokens:   1024,
		Temperature: 0.8,
		MaxAvoid:    10,
	}
}

// Generator implements the pipeline's generation collaborator.
type Generator struct {
	provider llm.Provider
	cfg      Config
	pool     store.PoolRepo
}

// New returns a Generator. When pool is non-nil, prompts already stored for
// the exam/topic are sent as the avoid list and checked for duplicates.
func New(provider llm.Provider, cfg Config, pool store.PoolRepo) *Generator {
	return &Generator{provider: provider, cfg: cfg, pool: pool}
}

type output struct {
	Prompt       string   `json:"prompt"`
	Choices      []string `json:"choices"`
	CorrectIndex int      `json:"correct_index"`
	Explanation  string   `json:"explanation"`
}

// Generate produces a question for key at band. The result has no ID or
// tier; the caller assigns provenance.
func (g *Generator) Generate(ctx context.Context, key question.Key, band question.Band) (*question.Question, error) {
	in := Input{Key: key, Band: band}
	if g.pool != nil {
		avoid, err := g.existingPrompts(ctx, key)
		if err != nil {
			return nil, err
		}
		in.Avoid = avoid
	}
	return g.GenerateInput(ctx, in)
}

// GenerateInput runs one model call and the validator chain.
func (g *Generator) GenerateInput(ctx context.Context, in Input) (*question.Question, error) {
	if llm.PurposeFrom(ctx) == llm.PurposeUnknown {
		ctx = llm.WithPurpose(ctx, llm.PurposeCached)
	}
	resp, err := g.provider.Generate(ctx, llm.Request{
		System:      systemPrompt,
		Messages:    llm.UserMessage(userMessage(in, g.cfg.MaxAvoid)),
		Schema:      QuestionSchema,
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("generate %s %s question: %w", in.Key, in.Band, err)
	}

	var out output
	if err := json.Unmarshal(resp.Content, &out); err != nil {
		return nil, fmt.Errorf("decode generated question: %w", err)
	}

	// Models sometimes add "A) " markers despite instructions.
	choices := make([]string, len(out.Choices))
	for i, c := range out.Choices {
		choices[i] = strings.TrimSpace(c)
	}
	if norm := question.NormalizeChoices(choices); len(norm) == len(choices) {
		choices = norm
	}

	q := &question.Question{
		ExamType:     in.Key.ExamType,
		Topic:        in.Key.Topic,
		Prompt:       strings.TrimSpace(out.Prompt),
		Choices:      choices,
		CorrectIndex: out.CorrectIndex,
		Explanation:  strings.TrimSpace(out.Explanation),
		Band:         in.Band,
	}
	for _, v := range g.cfg.Validators {
		if verr := v.Validate(q, in); verr != nil {
			return nil, verr
		}
	}
	return q, nil
}

func (g *Generator) existingPrompts(ctx context.Context, key question.Key) ([]string, error) {
	var prompts []string
	for _, t := range []question.Tier{question.TierAuthored, question.TierCached, question.TierOnDemand} {
		qs, err := g.pool.List(ctx, key, t)
		if err != nil {
			return nil, fmt.Errorf("list %s prompts: %w", key, err)
		}
		for _, q := range qs {
			prompts = append(prompts, q.Prompt)
		}
	}
	return prompts, nil
}
