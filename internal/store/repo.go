package store

import (
	"context"
	"time"

	"github.com/abhisek/prepforge/internal/question"
)

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit  int       // max results (0 = unlimited)
	After  int64     // sequence > After
	Before int64     // sequence < Before
	From   time.Time // timestamp >= From
	To     time.Time // timestamp <= To
}

// QuestionMetrics is the aggregate performance record of one question.
// Response time statistics use Welford's running mean and M2.
type QuestionMetrics struct {
	QuestionID string
	ExamType   string
	Topic      string

	TimesAnswered int
	CorrectCount  int

	TimedResponses   int
	MeanResponseTime float64 // seconds
	ResponseTimeM2   float64

	// Answer counts split by whether the learner's ability was below or
	// above the question's difficulty at answer time.
	LowAnswered  int
	LowCorrect   int
	HighAnswered int
	HighCorrect  int

	DifficultyEstimate     float64
	DiscriminationEstimate float64

	Version     int64
	LastUpdated time.Time
}

// ResponseRecord is one learner's answer to one question. Records are
// append-only.
type ResponseRecord struct {
	Sequence     int64
	UserID       string
	SessionID    string
	ExamType     string
	Topic        string
	QuestionID   string
	Correct      bool
	ResponseTime float64 // seconds, 0 when unknown
	Confidence   int     // 1-5, 0 when not reported
	HintsUsed    int
	Timestamp    time.Time
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMRequestEventRecord is a persisted LLM request event.
type LLMRequestEventRecord struct {
	ID        int
	Sequence  int64
	Timestamp time.Time
	LLMRequestEventData
}

// LLMUsage aggregates token usage for one purpose or model.
type LLMUsage struct {
	Purpose      string
	Model        string
	Calls        int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int64
}

// MetricsRepo persists question metrics.
type MetricsRepo interface {
	// Load returns the metrics for a question, or nil if none exist.
	Load(ctx context.Context, questionID string) (*QuestionMetrics, error)

	// Save writes m. A zero Version inserts a new row; otherwise the row is
	// updated only if its stored version still equals m.Version. On success
	// m.Version is advanced. A lost race returns ErrVersionConflict.
	Save(ctx context.Context, m *QuestionMetrics) error

	// ListByKey returns all metrics rows for an exam/topic.
	ListByKey(ctx context.Context, key question.Key) ([]QuestionMetrics, error)
}

// ResponseRepo provides append and query access to response records.
type ResponseRepo interface {
	// Append stores rec and returns its assigned sequence number.
	Append(ctx context.Context, rec ResponseRecord) (int64, error)

	// Recent returns up to limit records for the user and key, newest first.
	Recent(ctx context.Context, userID string, key question.Key, limit int) ([]ResponseRecord, error)

	// History returns all of a user's records for an exam, oldest first.
	History(ctx context.Context, userID, examType string) ([]ResponseRecord, error)
}

// PoolRepo persists the question inventory across all tiers.
type PoolRepo interface {
	// Insert stores q. Inserting an existing ID is a no-op.
	Insert(ctx context.Context, q *question.Question) error

	// Get returns a question by ID, or nil if it doesn't exist.
	Get(ctx context.Context, id string) (*question.Question, error)

	// List returns the active questions of a tier for an exam/topic.
	List(ctx context.Context, key question.Key, tier question.Tier) ([]*question.Question, error)

	// Count returns the number of active questions of a tier for an exam/topic.
	Count(ctx context.Context, key question.Key, tier question.Tier) (int, error)

	// Retire removes a question from future selection.
	Retire(ctx context.Context, id string) error

	// Keys returns every exam/topic with at least one active question.
	Keys(ctx context.Context) ([]question.Key, error)
}

// EventRepo provides append and query access to LLM events.
type EventRepo interface {
	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error

	// QueryLLMEvents returns events newest first.
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMRequestEventRecord, error)

	// GetLLMEvent returns a single event, or nil if it doesn't exist.
	GetLLMEvent(ctx context.Context, id int) (*LLMRequestEventRecord, error)

	// LLMUsageByPurpose aggregates usage grouped by purpose.
	LLMUsageByPurpose(ctx context.Context) ([]LLMUsage, error)

	// LLMUsageByModel aggregates usage grouped by model.
	LLMUsageByModel(ctx context.Context) ([]LLMUsage, error)
}
