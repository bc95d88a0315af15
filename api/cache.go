/*
cache.go - Bounded in-memory store of recent run outcomes

PURPOSE:
  Holds the most recent run outcomes just long enough for the client to
  download them in either export format. Runs are deliberately not
  persisted - the system is a single-shot batch transform - so this is a
  small FIFO cache, not a database.

SEE ALSO:
  - handlers.go: Fills the cache on process, reads it on export
*/
package api

import "sync"

const defaultCacheSize = 32

// runCache is a FIFO cache of run outcomes keyed by run token.
type runCache struct {
	mu    sync.Mutex
	max   int
	order []string
	runs  map[string]*RunOutcome
}

func newRunCache(max int) *runCache {
	if max <= 0 {
		max = defaultCacheSize
	}
	return &runCache{
		max:  max,
		runs: make(map[string]*RunOutcome),
	}
}

// Put stores an outcome, evicting the oldest entry when full.
func (c *runCache) Put(outcome *RunOutcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.order) >= c.max {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.runs, oldest)
	}
	c.order = append(c.order, outcome.ID)
	c.runs[outcome.ID] = outcome
}

// Get returns the outcome for a run token, or nil when it has expired.
func (c *runCache) Get(id string) *RunOutcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runs[id]
}
