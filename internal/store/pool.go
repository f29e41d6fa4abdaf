package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/prepforge/internal/question"
)

var questionColumns = []string{
	"id", "exam_type", "topic", "prompt", "choices", "correct_index",
	"explanation", "band", "tier", "created_at",
}

// poolRepo implements PoolRepo. Retired questions stay in the table with a
// non-zero retired_at so response records keep resolving.
type poolRepo struct {
	db *sql.DB
}

func (r *poolRepo) Insert(ctx context.Context, q *question.Question) error {
	choices, err := json.Marshal(q.Choices)
	if err != nil {
		return fmt.Errorf("marshal choices: %w", err)
	}
	created := q.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}

	ins := builder.Insert(tableQuestions).
		Columns(questionColumns...).
		Values(
			q.ID, q.ExamType, q.Topic, q.Prompt, string(choices), q.CorrectIndex,
			q.Explanation, string(q.Band), int(q.Tier), unixNano(created),
		).
		OnConflict(entsql.DoNothing())
	if _, err := execQ(ctx, r.db, ins); err != nil {
		return fmt.Errorf("insert question %s: %w", q.ID, err)
	}
	return nil
}

func (r *poolRepo) Get(ctx context.Context, id string) (*question.Question, error) {
	q := builder.Select(questionColumns...).
		From(entsql.Table(tableQuestions)).
		Where(entsql.EQ("id", id))

	out, err := scanQuestion(queryRowQ(ctx, r.db, q))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get question %s: %w", id, err)
	}
	return out, nil
}

func (r *poolRepo) List(ctx context.Context, key question.Key, tier question.Tier) ([]*question.Question, error) {
	q := builder.Select(questionColumns...).
		From(entsql.Table(tableQuestions)).
		Where(activeIn(key, tier)).
		OrderBy("created_at", "id")

	rows, err := queryQ(ctx, r.db, q)
	if err != nil {
		return nil, fmt.Errorf("list questions %s tier %d: %w", key, tier, err)
	}
	defer rows.Close()

	var out []*question.Question
	for rows.Next() {
		qq, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		out = append(out, qq)
	}
	return out, rows.Err()
}

func (r *poolRepo) Count(ctx context.Context, key question.Key, tier question.Tier) (int, error) {
	q := builder.Select(entsql.Count("*")).
		From(entsql.Table(tableQuestions)).
		Where(activeIn(key, tier))

	var n int
	if err := queryRowQ(ctx, r.db, q).Scan(&n); err != nil {
		return 0, fmt.Errorf("count questions %s tier %d: %w", key, tier, err)
	}
	return n, nil
}

func (r *poolRepo) Retire(ctx context.Context, id string) error {
	upd := builder.Update(tableQuestions).
		Set("retired_at", time.Now().UTC().UnixNano()).
		Where(entsql.And(
			entsql.EQ("id", id),
			entsql.EQ("retired_at", 0),
		))
	if _, err := execQ(ctx, r.db, upd); err != nil {
		return fmt.Errorf("retire question %s: %w", id, err)
	}
	return nil
}

func (r *poolRepo) Keys(ctx context.Context) ([]question.Key, error) {
	q := builder.Select("exam_type", "topic").
		Distinct().
		From(entsql.Table(tableQuestions)).
		Where(entsql.EQ("retired_at", 0)).
		OrderBy("exam_type", "topic")

	rows, err := queryQ(ctx, r.db, q)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer rows.Close()

	var out []question.Key
	for rows.Next() {
		var k question.Key
		if err := rows.Scan(&k.ExamType, &k.Topic); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

func activeIn(key question.Key, tier question.Tier) *entsql.Predicate {
	return entsql.And(
		entsql.EQ("exam_type", key.ExamType),
		entsql.EQ("topic", key.Topic),
		entsql.EQ("tier", int(tier)),
		entsql.EQ("retired_at", 0),
	)
}

func scanQuestion(s scanner) (*question.Question, error) {
	var (
		q       question.Question
		choices string
		band    string
		tier    int
		created int64
	)
	err := s.Scan(
		&q.ID, &q.ExamType, &q.Topic, &q.Prompt, &choices, &q.CorrectIndex,
		&q.Explanation, &band, &tier, &created,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(choices), &q.Choices); err != nil {
		return nil, fmt.Errorf("decode choices for %s: %w", q.ID, err)
	}
	q.Band = question.Band(band)
	q.Tier = question.Tier(tier)
	q.CreatedAt = fromUnixNano(created)
	return &q, nil
}
