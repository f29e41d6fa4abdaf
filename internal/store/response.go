package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/prepforge/internal/question"
)

var responseColumns = []string{
	"sequence", "user_id", "session_id", "exam_type", "topic", "question_id",
	"correct", "response_time", "confidence", "hints_used", "timestamp",
}

// responseRepo implements ResponseRepo backed by the global sequence counter.
type responseRepo struct {
	db  *sql.DB
	seq *sequenceCounter
}

func (r *responseRepo) Append(ctx context.Context, rec ResponseRecord) (int64, error) {
	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}

	ins := builder.Insert(tableResponses).
		Columns(responseColumns...).
		Values(
			seqNum, rec.UserID, rec.SessionID, rec.ExamType, rec.Topic, rec.QuestionID,
			rec.Correct, rec.ResponseTime, rec.Confidence, rec.HintsUsed,
			unixNano(rec.Timestamp),
		)
	if _, err := execQ(ctx, r.db, ins); err != nil {
		return 0, fmt.Errorf("save response record: %w", err)
	}
	return seqNum, nil
}

func (r *responseRepo) Recent(ctx context.Context, userID string, key question.Key, limit int) ([]ResponseRecord, error) {
	q := builder.Select(responseColumns...).
		From(entsql.Table(tableResponses)).
		Where(entsql.And(
			entsql.EQ("user_id", userID),
			entsql.EQ("exam_type", key.ExamType),
			entsql.EQ("topic", key.Topic),
		)).
		OrderBy(entsql.Desc("sequence"))
	if limit > 0 {
		q.Limit(limit)
	}
	return r.query(ctx, q)
}

func (r *responseRepo) History(ctx context.Context, userID, examType string) ([]ResponseRecord, error) {
	q := builder.Select(responseColumns...).
		From(entsql.Table(tableResponses)).
		Where(entsql.And(
			entsql.EQ("user_id", userID),
			entsql.EQ("exam_type", examType),
		)).
		OrderBy("sequence")
	return r.query(ctx, q)
}

func (r *responseRepo) query(ctx context.Context, q *entsql.Selector) ([]ResponseRecord, error) {
	rows, err := queryQ(ctx, r.db, q)
	if err != nil {
		return nil, fmt.Errorf("query response records: %w", err)
	}
	defer rows.Close()

	var out []ResponseRecord
	for rows.Next() {
		var (
			rec ResponseRecord
			ts  int64
		)
		if err := rows.Scan(
			&rec.Sequence, &rec.UserID, &rec.SessionID, &rec.ExamType, &rec.Topic, &rec.QuestionID,
			&rec.Correct, &rec.ResponseTime, &rec.Confidence, &rec.HintsUsed, &ts,
		); err != nil {
			return nil, fmt.Errorf("scan response record: %w", err)
		}
		rec.Timestamp = fromUnixNano(ts)
		out = append(out, rec)
	}
	return out, rows.Err()
}
