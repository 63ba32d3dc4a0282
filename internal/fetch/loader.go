// Package fetch implements the request-scoped batch-and-cache layer in
// front of persistent storage. A Loader deduplicates keys, issues one
// batched upstream call for the keys not yet cached, isolates errors per
// key and memoizes results for the lifetime of one logical unit of work.
// Nothing here is shared across requests; a Session is built per request
// and discarded with it.
package fetch

import (
	"context"
	"errors"
	"sync"
)

// ErrNoEntry indicates a batch function failed to report a requested key.
var ErrNoEntry = errors.New("fetch: upstream returned no entry for key")

// BatchFunc fetches values for a deduplicated key set. It returns one entry
// per key; a key-level failure is reported in its entry, never by failing
// the whole batch.
type BatchFunc[K comparable, V any] func(ctx context.Context, keys []K) map[K]Result[V]

// Result carries a per-key outcome.
type Result[V any] struct {
	Value V
	Err   error
}

// Loader memoizes one entity type by key within a request.
type Loader[K comparable, V any] struct {
	fetch BatchFunc[K, V]

	mu      sync.Mutex
	results map[K]*future[V]
}

type future[V any] struct {
	done chan struct{}
	res  Result[V]
}

// NewLoader builds a loader over a batch fetch function.
func NewLoader[K comparable, V any](fetch BatchFunc[K, V]) *Loader[K, V] {
	return &Loader[K, V]{fetch: fetch, results: make(map[K]*future[V])}
}

// Load fetches one key, reusing any cached or in-flight result.
func (l *Loader[K, V]) Load(ctx context.Context, key K) (V, error) {
	res := l.LoadMany(ctx, []K{key})[0]
	return res.Value, res.Err
}

// LoadMany fetches a key list in order. Keys already cached (or in flight
// from a concurrent caller) are not refetched; the remainder goes upstream
// in a single batched call.
func (l *Loader[K, V]) LoadMany(ctx context.Context, keys []K) []Result[V] {
	l.mu.Lock()
	var missing []K
	var owned []*future[V]
	futures := make([]*future[V], len(keys))
	seen := make(map[K]struct{}, len(keys))
	for i, key := range keys {
		if f, ok := l.results[key]; ok {
			futures[i] = f
			continue
		}
		f := &future[V]{done: make(chan struct{})}
		l.results[key] = f
		futures[i] = f
		if _, dup := seen[key]; !dup {
			seen[key] = struct{}{}
			missing = append(missing, key)
			owned = append(owned, f)
		}
	}
	l.mu.Unlock()

	if len(missing) > 0 {
		fetched := l.fetch(ctx, missing)
		l.mu.Lock()
		for i, key := range missing {
			res, ok := fetched[key]
			if !ok {
				res = Result[V]{Err: ErrNoEntry}
			}
			owned[i].res = res
			close(owned[i].done)
		}
		l.mu.Unlock()
	}

	out := make([]Result[V], len(keys))
	for i, f := range futures {
		select {
		case <-f.done:
		case <-ctx.Done():
			var zero V
			out[i] = Result[V]{Value: zero, Err: ctx.Err()}
			continue
		}
		out[i] = f.res
	}
	return out
}
