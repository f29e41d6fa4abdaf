// Package llm talks to hosted language models for question generation.
//
// Every backend implements Provider. The factory stacks middleware on the
// chosen backend: a per-call deadline, retries for transient failures and
// a recorder that logs each call and stores it as an event for the
// `prepforge llm` commands.
package llm

import (
	"context"
	"encoding/json"
)

// Provider generates one completion.
type Provider interface {
	// Generate runs req. With a Schema, Content is JSON that has been
	// validated against it; without one it is the raw text.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID is the configured model.
	ModelID() string
}

type Request struct {
	System   string
	Messages []Message

	// Schema asks for structured output.
	Schema *Schema

	MaxTokens   int
	Temperature float64
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role
	Content string
}

// UserMessage is the single-turn shorthand used by generators.
func UserMessage(content string) []Message {
	return []Message{{Role: RoleUser, Content: content}}
}

// Schema is a JSON Schema the response must satisfy. Name doubles as the
// tool or schema name sent to providers and as the compile cache key.
type Schema struct {
	Name        string
	Description string
	Definition  map[string]any
}

type Response struct {
	Content json.RawMessage
	Usage   Usage
	Model   string

	// StopReason is "end" or "max_tokens".
	StopReason string
}

type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

func newUsage(in, out int) Usage {
	return Usage{InputTokens: in, OutputTokens: out, TotalTokens: in + out}
}

// resolveModel maps a short alias to a model ID. Unknown names pass through.
func resolveModel(name string, aliases map[string]string) string {
	if id, ok := aliases[name]; ok {
		return id
	}
	return name
}
