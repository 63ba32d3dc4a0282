package expansion

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/NASA-AMMOS/aerie-sub006/internal/diag"
)

// Cache is the process-wide memoization table for compiled logic. Entries
// are pending-or-resolved: the first caller for a hash inserts a future and
// computes, concurrent callers for the same hash wait on that future, so at
// most one compilation per distinct hash is ever in flight or materialized.
//
// Resolved diagnostics are kept (recompiling identical logic reproduces
// them), but a compute that fails outright, a worker crash or timeout, is
// evicted so a later retry can succeed. Capacity is a bounded LRU.
type Cache struct {
	mu      sync.Mutex
	entries *lru.Cache[string, *compileEntry]
}

type compileEntry struct {
	done     chan struct{}
	artifact *Artifact
	diags    []diag.Diagnostic
	err      error
}

// NewCache builds a cache holding at most size resolved compilations.
func NewCache(size int) (*Cache, error) {
	entries, err := lru.New[string, *compileEntry](size)
	if err != nil {
		return nil, err
	}
	return &Cache{entries: entries}, nil
}

// GetOrCompute returns the cached result for key, waiting on an in-flight
// compilation if one exists, or runs compute and publishes its result. The
// hit flag reports whether an existing entry served the call.
func (c *Cache) GetOrCompute(ctx context.Context, key string, compute func() (*Artifact, []diag.Diagnostic, error)) (art *Artifact, diags []diag.Diagnostic, err error, hit bool) {
	c.mu.Lock()
	if entry, ok := c.entries.Get(key); ok {
		c.mu.Unlock()
		select {
		case <-entry.done:
			return entry.artifact, entry.diags, entry.err, true
		case <-ctx.Done():
			return nil, nil, ctx.Err(), true
		}
	}
	entry := &compileEntry{done: make(chan struct{})}
	c.entries.Add(key, entry)
	c.mu.Unlock()

	entry.artifact, entry.diags, entry.err = compute()
	if entry.err != nil {
		c.mu.Lock()
		c.entries.Remove(key)
		c.mu.Unlock()
	}
	close(entry.done)
	return entry.artifact, entry.diags, entry.err, false
}

// Len reports the number of resolved or in-flight entries currently held.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}
