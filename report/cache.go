package report

import (
	"log/slog"
	"sync"
	"time"
)

// Cache hands out a DB and reopens it once refreshRate has elapsed, so new
// parquet segments written by a running trainer become visible.
type Cache struct {
	root        string
	refreshRate time.Duration
	logger      *slog.Logger

	mu          sync.Mutex
	db          *DB
	lastRefresh time.Time
}

func NewCache(root string, refreshRate time.Duration, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{root: root, refreshRate: refreshRate, logger: logger}
}

// Get returns the cached DB, reopening it if it is stale. The returned DB
// stays valid until the next refresh; callers should not hold it across
// requests.
func (c *Cache) Get() (*DB, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db != nil && time.Since(c.lastRefresh) < c.refreshRate {
		return c.db, nil
	}
	return c.refreshLocked()
}

// Refresh forces the views to be rebuilt.
func (c *Cache) Refresh() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.refreshLocked()
	return err
}

func (c *Cache) refreshLocked() (*DB, error) {
	start := time.Now()
	db, err := Open(c.root)
	if err != nil {
		return nil, err
	}
	if c.db != nil {
		_ = c.db.Close()
	}
	c.db = db
	c.lastRefresh = time.Now()
	c.logger.Debug("report cache refreshed", "root", c.root, "took", time.Since(start))
	return c.db, nil
}

func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}
