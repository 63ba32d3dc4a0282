package fetch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
)

func TestLoadMemoizesWithinSession(t *testing.T) {
	var calls atomic.Int64
	loader := NewLoader(func(ctx context.Context, keys []string) map[string]Result[string] {
		calls.Add(1)
		out := make(map[string]Result[string], len(keys))
		for _, k := range keys {
			out[k] = Result[string]{Value: "v:" + k}
		}
		return out
	})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		got, err := loader.Load(ctx, "a")
		if err != nil || got != "v:a" {
			t.Fatalf("Load = %q, %v", got, err)
		}
	}
	if calls.Load() != 1 {
		t.Errorf("upstream calls = %d, want 1", calls.Load())
	}
}

func TestLoadManyDeduplicatesAndBatches(t *testing.T) {
	var calls atomic.Int64
	var lastBatch []string
	loader := NewLoader(func(ctx context.Context, keys []string) map[string]Result[string] {
		calls.Add(1)
		lastBatch = keys
		out := make(map[string]Result[string], len(keys))
		for _, k := range keys {
			out[k] = Result[string]{Value: k}
		}
		return out
	})

	results := loader.LoadMany(context.Background(), []string{"a", "b", "a", "c", "b"})
	if calls.Load() != 1 {
		t.Errorf("upstream calls = %d, want 1", calls.Load())
	}
	if len(lastBatch) != 3 {
		t.Errorf("batched keys = %v, want 3 deduplicated", lastBatch)
	}
	want := []string{"a", "b", "a", "c", "b"}
	for i, res := range results {
		if res.Err != nil || res.Value != want[i] {
			t.Errorf("result %d = %+v, want %q", i, res, want[i])
		}
	}
}

func TestPerKeyErrorIsolation(t *testing.T) {
	boom := errors.New("row missing")
	loader := NewLoader(func(ctx context.Context, keys []string) map[string]Result[int] {
		out := make(map[string]Result[int], len(keys))
		for _, k := range keys {
			if k == "bad" {
				out[k] = Result[int]{Err: boom}
			} else {
				out[k] = Result[int]{Value: len(k)}
			}
		}
		return out
	})

	results := loader.LoadMany(context.Background(), []string{"good", "bad", "fine"})
	if results[0].Err != nil || results[2].Err != nil {
		t.Errorf("healthy keys failed: %+v", results)
	}
	if !errors.Is(results[1].Err, boom) {
		t.Errorf("bad key error = %v", results[1].Err)
	}
}

func TestMissingBatchEntryReported(t *testing.T) {
	loader := NewLoader(func(ctx context.Context, keys []string) map[string]Result[int] {
		return map[string]Result[int]{} // upstream forgot everything
	})
	_, err := loader.Load(context.Background(), "x")
	if !errors.Is(err, ErrNoEntry) {
		t.Errorf("err = %v, want ErrNoEntry", err)
	}
}

func TestConcurrentLoadsShareOneFetch(t *testing.T) {
	var calls atomic.Int64
	release := make(chan struct{})
	loader := NewLoader(func(ctx context.Context, keys []string) map[string]Result[string] {
		calls.Add(1)
		<-release
		out := make(map[string]Result[string], len(keys))
		for _, k := range keys {
			out[k] = Result[string]{Value: k}
		}
		return out
	})

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = loader.Load(context.Background(), "shared")
		}(i)
	}
	close(release)
	wg.Wait()

	if calls.Load() != 1 {
		t.Errorf("upstream calls = %d, want 1 shared fetch", calls.Load())
	}
	for i, err := range errs {
		if err != nil {
			t.Errorf("caller %d: %v", i, err)
		}
	}
}

func TestSessionCachesArePerInstance(t *testing.T) {
	var calls atomic.Int64
	make1 := func() *Loader[string, string] {
		return NewLoader(func(ctx context.Context, keys []string) map[string]Result[string] {
			out := make(map[string]Result[string], len(keys))
			for _, k := range keys {
				calls.Add(1)
				out[k] = Result[string]{Value: fmt.Sprintf("%s#%d", k, calls.Load())}
			}
			return out
		})
	}

	ctx := context.Background()
	first, _ := make1().Load(ctx, "k")
	second, _ := make1().Load(ctx, "k")
	if first == second {
		t.Errorf("two sessions shared a cache: %q == %q", first, second)
	}
}
