package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/prepforge/internal/question"
)

var metricsColumns = []string{
	"question_id", "exam_type", "topic",
	"times_answered", "correct_count",
	"timed_responses", "mean_response_time", "response_time_m2",
	"low_answered", "low_correct", "high_answered", "high_correct",
	"difficulty_estimate", "discrimination_estimate",
	"version", "last_updated",
}

// metricsRepo implements MetricsRepo with optimistic versioned writes.
type metricsRepo struct {
	db *sql.DB
}

func (r *metricsRepo) Load(ctx context.Context, questionID string) (*QuestionMetrics, error) {
	q := builder.Select(metricsColumns...).
		From(entsql.Table(tableMetrics)).
		Where(entsql.EQ("question_id", questionID))

	m, err := scanMetrics(queryRowQ(ctx, r.db, q))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load metrics %s: %w", questionID, err)
	}
	return m, nil
}

func (r *metricsRepo) Save(ctx context.Context, m *QuestionMetrics) error {
	if m.LastUpdated.IsZero() {
		m.LastUpdated = time.Now().UTC()
	}

	if m.Version == 0 {
		ins := builder.Insert(tableMetrics).
			Columns(metricsColumns...).
			Values(
				m.QuestionID, m.ExamType, m.Topic,
				m.TimesAnswered, m.CorrectCount,
				m.TimedResponses, m.MeanResponseTime, m.ResponseTimeM2,
				m.LowAnswered, m.LowCorrect, m.HighAnswered, m.HighCorrect,
				m.DifficultyEstimate, m.DiscriminationEstimate,
				int64(1), unixNano(m.LastUpdated),
			).
			OnConflict(entsql.DoNothing())
		res, err := execQ(ctx, r.db, ins)
		if err != nil {
			return fmt.Errorf("insert metrics %s: %w", m.QuestionID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrVersionConflict
		}
		m.Version = 1
		return nil
	}

	upd := builder.Update(tableMetrics).
		Set("times_answered", m.TimesAnswered).
		Set("correct_count", m.CorrectCount).
		Set("timed_responses", m.TimedResponses).
		Set("mean_response_time", m.MeanResponseTime).
		Set("response_time_m2", m.ResponseTimeM2).
		Set("low_answered", m.LowAnswered).
		Set("low_correct", m.LowCorrect).
		Set("high_answered", m.HighAnswered).
		Set("high_correct", m.HighCorrect).
		Set("difficulty_estimate", m.DifficultyEstimate).
		Set("discrimination_estimate", m.DiscriminationEstimate).
		Set("version", m.Version+1).
		Set("last_updated", unixNano(m.LastUpdated)).
		Where(entsql.And(
			entsql.EQ("question_id", m.QuestionID),
			entsql.EQ("version", m.Version),
		))
	res, err := execQ(ctx, r.db, upd)
	if err != nil {
		return fmt.Errorf("update metrics %s: %w", m.QuestionID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrVersionConflict
	}
	m.Version++
	return nil
}

func (r *metricsRepo) ListByKey(ctx context.Context, key question.Key) ([]QuestionMetrics, error) {
	q := builder.Select(metricsColumns...).
		From(entsql.Table(tableMetrics)).
		Where(entsql.And(
			entsql.EQ("exam_type", key.ExamType),
			entsql.EQ("topic", key.Topic),
		)).
		OrderBy("question_id")

	rows, err := queryQ(ctx, r.db, q)
	if err != nil {
		return nil, fmt.Errorf("list metrics %s: %w", key, err)
	}
	defer rows.Close()

	var out []QuestionMetrics
	for rows.Next() {
		m, err := scanMetrics(rows)
		if err != nil {
			return nil, fmt.Errorf("scan metrics: %w", err)
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMetrics(s scanner) (*QuestionMetrics, error) {
	var (
		m       QuestionMetrics
		updated int64
	)
	err := s.Scan(
		&m.QuestionID, &m.ExamType, &m.Topic,
		&m.TimesAnswered, &m.CorrectCount,
		&m.TimedResponses, &m.MeanResponseTime, &m.ResponseTimeM2,
		&m.LowAnswered, &m.LowCorrect, &m.HighAnswered, &m.HighCorrect,
		&m.DifficultyEstimate, &m.DiscriminationEstimate,
		&m.Version, &updated,
	)
	if err != nil {
		return nil, err
	}
	m.LastUpdated = fromUnixNano(updated)
	return &m, nil
}
