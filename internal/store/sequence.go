package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
)

// sequenceCounter hands out the store-wide ordering number. Response
// records and LLM events both draw from it, so rows from either table
// can be merged into one timeline.
type sequenceCounter struct {
	mu sync.Mutex
	db *sql.DB
}

func newSequenceCounter(db *sql.DB) *sequenceCounter {
	return &sequenceCounter{db: db}
}

// Next claims one number. The single-row UPDATE ... RETURNING is atomic in
// SQLite; the mutex keeps callers in this process from contending on the
// write lock.
func (c *sequenceCounter) Next(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var n int64
	err := c.db.QueryRowContext(ctx,
		`UPDATE global_sequence SET next_val = next_val + 1 WHERE id = 1 RETURNING next_val - 1`,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	return n, nil
}
