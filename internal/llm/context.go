package llm

import "context"

type ctxKey int

const purposeKey ctxKey = iota

// Purposes used by PrepForge callers.
const (
	PurposeCached   = "question-gen-cached"
	PurposeOnDemand = "question-gen-on-demand"
	PurposeUnknown  = "unknown"
)

// WithPurpose labels calls made with ctx in logs and stored events.
func WithPurpose(ctx context.Context, purpose string) context.Context {
	return context.WithValue(ctx, purposeKey, purpose)
}

func PurposeFrom(ctx context.Context) string {
	if v, ok := ctx.Value(purposeKey).(string); ok && v != "" {
		return v
	}
	return PurposeUnknown
}
