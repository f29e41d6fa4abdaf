package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/abhisek/prepforge/internal/logger"
	"github.com/abhisek/prepforge/internal/store"
)

// maxBodyBytes caps stored request and response bodies.
const maxBodyBytes = 16 << 10

type recordingProvider struct {
	inner    Provider
	provider string
	events   store.EventRepo
	log      *logger.Logger
}

// WithRecording logs every call and, when events is non-nil, stores it as
// an LLM request event. Failing to store an event never fails the call.
func WithRecording(p Provider, provider string, events store.EventRepo, log *logger.Logger) Provider {
	if log == nil {
		log = logger.Nop()
	}
	return &recordingProvider{inner: p, provider: provider, events: events, log: log.Named("llm")}
}

func (r *recordingProvider) ModelID() string { return r.inner.ModelID() }

func (r *recordingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := r.inner.Generate(ctx, req)
	latency := time.Since(start)

	ev := store.LLMRequestEventData{
		Provider:    r.provider,
		Model:       r.inner.ModelID(),
		Purpose:     PurposeFrom(ctx),
		LatencyMs:   latency.Milliseconds(),
		Success:     err == nil,
		RequestBody: clip(transcript(req)),
	}
	if resp != nil {
		ev.Model = resp.Model
		ev.InputTokens = resp.Usage.InputTokens
		ev.OutputTokens = resp.Usage.OutputTokens
		ev.ResponseBody = clip(string(resp.Content))
	}
	if err != nil {
		ev.ErrorMessage = err.Error()
		r.log.Warn("llm call failed", "purpose", ev.Purpose, "model", ev.Model, "latency", latency, "error", err)
	} else {
		r.log.Debug("llm call", "purpose", ev.Purpose, "model", ev.Model, "latency", latency,
			"input_tokens", ev.InputTokens, "output_tokens", ev.OutputTokens)
	}

	if r.events != nil {
		// The caller's context may already be done; the event still matters.
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if serr := r.events.AppendLLMRequest(sctx, ev); serr != nil {
			r.log.Warn("storing llm event failed", "error", serr)
		}
	}
	return resp, err
}

// transcript renders req the way `prepforge llm view` shows it.
func transcript(req Request) string {
	var b strings.Builder
	if req.System != "" {
		fmt.Fprintf(&b, "[system]\n%s\n\n", req.System)
	}
	for _, m := range req.Messages {
		fmt.Fprintf(&b, "[%s]\n%s\n\n", m.Role, m.Content)
	}
	if req.Schema != nil {
		if def, err := json.Marshal(req.Schema.Definition); err == nil {
			fmt.Fprintf(&b, "[schema: %s]\n%s\n", req.Schema.Name, def)
		}
	}
	return b.String()
}

func clip(s string) string {
	if len(s) <= maxBodyBytes {
		return s
	}
	return s[:maxBodyBytes] + "\n[truncated]"
}
