package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Table names.
const (
	tableMetrics   = "question_metrics"
	tableResponses = "response_records"
	tableQuestions = "questions"
	tableLLMEvents = "llm_request_events"
)

var ddl = []string{
	`CREATE TABLE IF NOT EXISTS global_sequence (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		next_val INTEGER NOT NULL DEFAULT 1
	)`,
	`INSERT OR IGNORE INTO global_sequence (id, next_val) VALUES (1, 1)`,

	`CREATE TABLE IF NOT EXISTS question_metrics (
		question_id TEXT PRIMARY KEY,
		exam_type TEXT NOT NULL,
		topic TEXT NOT NULL,
		times_answered INTEGER NOT NULL DEFAULT 0,
		correct_count INTEGER NOT NULL DEFAULT 0,
		timed_responses INTEGER NOT NULL DEFAULT 0,
		mean_response_time REAL NOT NULL DEFAULT 0,
		response_time_m2 REAL NOT NULL DEFAULT 0,
		low_answered INTEGER NOT NULL DEFAULT 0,
		low_correct INTEGER NOT NULL DEFAULT 0,
		high_answered INTEGER NOT NULL DEFAULT 0,
		high_correct INTEGER NOT NULL DEFAULT 0,
		difficulty_estimate REAL NOT NULL DEFAULT 0,
		discrimination_estimate REAL NOT NULL DEFAULT 1,
		version INTEGER NOT NULL DEFAULT 0,
		last_updated INTEGER NOT NULL DEFAULT 0,
		CHECK (correct_count <= times_answered)
	)`,
	`CREATE INDEX IF NOT EXISTS question_metrics_key ON question_metrics (exam_type, topic)`,

	`CREATE TABLE IF NOT EXISTS response_records (
		sequence INTEGER PRIMARY KEY,
		user_id TEXT NOT NULL,
		session_id TEXT NOT NULL DEFAULT '',
		exam_type TEXT NOT NULL,
		topic TEXT NOT NULL,
		question_id TEXT NOT NULL,
		correct INTEGER NOT NULL,
		response_time REAL NOT NULL DEFAULT 0,
		confidence INTEGER NOT NULL DEFAULT 0,
		hints_used INTEGER NOT NULL DEFAULT 0,
		timestamp INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS response_records_user ON response_records (user_id, exam_type, topic, sequence)`,

	`CREATE TABLE IF NOT EXISTS questions (
		id TEXT PRIMARY KEY,
		exam_type TEXT NOT NULL,
		topic TEXT NOT NULL,
		prompt TEXT NOT NULL,
		choices TEXT NOT NULL,
		correct_index INTEGER NOT NULL,
		explanation TEXT NOT NULL DEFAULT '',
		band TEXT NOT NULL,
		tier INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		retired_at INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS questions_key ON questions (exam_type, topic, tier, retired_at)`,

	`CREATE TABLE IF NOT EXISTS llm_request_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sequence INTEGER NOT NULL,
		timestamp INTEGER NOT NULL,
		provider TEXT NOT NULL,
		model TEXT NOT NULL,
		purpose TEXT NOT NULL,
		input_tokens INTEGER NOT NULL DEFAULT 0,
		output_tokens INTEGER NOT NULL DEFAULT 0,
		latency_ms INTEGER NOT NULL DEFAULT 0,
		success INTEGER NOT NULL,
		error_message TEXT NOT NULL DEFAULT '',
		request_body TEXT NOT NULL DEFAULT '',
		response_body TEXT NOT NULL DEFAULT ''
	)`,
}

// migrate creates all tables and indexes that don't exist yet.
func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range ddl {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec ddl: %w", err)
		}
	}
	return nil
}
