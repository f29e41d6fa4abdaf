package difficulty

import (
	"context"
	"fmt"
	"sync"

	"github.com/abhisek/prepforge/internal/question"
	"github.com/abhisek/prepforge/internal/store"
)

// Cache holds the latest difficulty estimate per question so selection
// never touches storage. Entries are refreshed after each metrics write.
type Cache struct {
	mu  sync.RWMutex
	est map[string]float64
}

func NewCache() *Cache {
	return &Cache{est: make(map[string]float64)}
}

// Put stores the estimate carried by m.
func (c *Cache) Put(m store.QuestionMetrics) {
	c.mu.Lock()
	c.est[m.QuestionID] = m.DifficultyEstimate
	c.mu.Unlock()
}

// Get returns the cached estimate for id.
func (c *Cache) Get(id string) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.est[id]
	return d, ok
}

// Of returns the cached estimate for q, or its band default.
func (c *Cache) Of(q *question.Question) float64 {
	if d, ok := c.Get(q.ID); ok {
		return d
	}
	return q.Band.DefaultDifficulty()
}

// Warm loads every stored estimate for key.
func (c *Cache) Warm(ctx context.Context, repo store.MetricsRepo, key question.Key) error {
	rows, err := repo.ListByKey(ctx, key)
	if err != nil {
		return fmt.Errorf("warm difficulty cache for %s: %w", key, err)
	}
	c.mu.Lock()
	for _, m := range rows {
		c.est[m.QuestionID] = m.DifficultyEstimate
	}
	c.mu.Unlock()
	return nil
}

// Len returns the number of cached estimates.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.est)
}
