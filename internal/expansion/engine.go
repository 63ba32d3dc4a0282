package expansion

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/NASA-AMMOS/aerie-sub006/internal/ctxlog"
	"github.com/NASA-AMMOS/aerie-sub006/internal/diag"
	"github.com/NASA-AMMOS/aerie-sub006/internal/metrics"
	"github.com/NASA-AMMOS/aerie-sub006/internal/seqjson"
	"github.com/NASA-AMMOS/aerie-sub006/internal/store"
)

// Options tunes the engine. Zero values fall back to the defaults noted on
// each field.
type Options struct {
	// Workers fixes the pool size at startup. Default: runtime.NumCPU().
	Workers int
	// Timeout bounds one task; a task exceeding it is abandoned and treated
	// as a crash. Default: 30s.
	Timeout time.Duration
	// CacheSize bounds the compiled-logic cache. Default: 1024.
	CacheSize int
	// Metrics receives pipeline instrumentation. Default: a fresh bundle.
	Metrics *metrics.Metrics
}

// Engine runs typecheck and execute tasks on a fixed pool of workers.
// Excess tasks queue on the dispatch channel. The engine is safe for
// concurrent use; Close drains the pool.
type Engine struct {
	timeout time.Duration
	tasks   chan *task
	cache   *Cache
	met     *metrics.Metrics
	wg      sync.WaitGroup
}

type task struct {
	name string
	fn   func() taskResult
	out  chan taskResult
}

type taskResult struct {
	artifact *Artifact
	commands []seqjson.Command
	diags    []diag.Diagnostic
	err      error
}

// NewEngine starts the worker pool and returns the engine. The context
// carries the logger workers report through and, when cancelled, causes
// queued submissions to fail fast.
func NewEngine(ctx context.Context, opts Options) (*Engine, error) {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 1024
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}

	cache, err := NewCache(opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("building compile cache: %w", err)
	}

	e := &Engine{
		timeout: opts.Timeout,
		tasks:   make(chan *task),
		cache:   cache,
		met:     opts.Metrics,
	}
	for i := 0; i < opts.Workers; i++ {
		e.wg.Add(1)
		go e.worker(ctx, i)
	}
	ctxlog.FromContext(ctx).Debug("Expansion engine started.",
		"workers", opts.Workers, "timeout", opts.Timeout, "cacheSize", opts.CacheSize)
	return e, nil
}

// Close stops accepting tasks and waits for the workers to drain.
func (e *Engine) Close() {
	close(e.tasks)
	e.wg.Wait()
}

// Typecheck compiles logic against the generated dictionary schemas and the
// activity type's attributes, reusing a cached compilation when the content
// hash matches. Diagnostics are data; err reports infrastructure failures
// (cancellation, worker crash, timeout) only.
func (e *Engine) Typecheck(ctx context.Context, req TypecheckRequest) (*Artifact, []diag.Diagnostic, error) {
	art, diags, err, hit := e.cache.GetOrCompute(ctx, req.Hash(), func() (*Artifact, []diag.Diagnostic, error) {
		res := e.submit(ctx, "typecheck "+req.ActivityType, func() taskResult {
			art, diags := compile(req)
			return taskResult{artifact: art, diags: diags}
		})
		return res.artifact, res.diags, res.err
	})

	if hit {
		e.met.CacheHits.Inc()
	} else {
		e.met.CacheMisses.Inc()
	}
	if err == nil {
		outcome := "ok"
		if diag.HasErrors(diags) {
			outcome = "rejected"
		}
		e.met.TypechecksTotal.WithLabelValues(outcome).Inc()
	}
	return art, diags, err
}

// Execute runs a compiled artifact against one simulated activity. Every
// failure mode, including a worker crash or timeout, degrades to that
// activity's diagnostic list; Execute never fails the caller outright.
func (e *Engine) Execute(ctx context.Context, art *Artifact, act store.SimulatedActivity) ([]seqjson.Command, []diag.Diagnostic) {
	start := time.Now()
	res := e.submit(ctx, "execute "+art.ActivityType, func() taskResult {
		commands, diags := art.run(act)
		return taskResult{commands: commands, diags: diags}
	})
	e.met.ExpansionSeconds.Observe(time.Since(start).Seconds())

	if res.err != nil {
		e.met.ExpansionsTotal.WithLabelValues("crashed").Inc()
		return nil, diag.Errorf("expanding activity %s: %s", act.ID, res.err)
	}
	if diag.HasErrors(res.diags) {
		e.met.ExpansionsTotal.WithLabelValues("failed").Inc()
		return nil, res.diags
	}
	e.met.ExpansionsTotal.WithLabelValues("ok").Inc()
	return res.commands, res.diags
}

// submit queues one task and waits for its result. The caller's context
// aborts both the wait for a free worker and the wait for the result.
func (e *Engine) submit(ctx context.Context, name string, fn func() taskResult) taskResult {
	t := &task{name: name, fn: fn, out: make(chan taskResult, 1)}

	e.met.QueueDepth.Inc()
	select {
	case e.tasks <- t:
		e.met.QueueDepth.Dec()
	case <-ctx.Done():
		e.met.QueueDepth.Dec()
		return taskResult{err: ctx.Err()}
	}

	select {
	case res := <-t.out:
		return res
	case <-ctx.Done():
		return taskResult{err: ctx.Err()}
	}
}

// worker is the processing loop of one pool slot. The payload runs in a
// child goroutine so a panic or a runaway task is confined to the task: the
// worker reports the crash or timeout on the task's channel and moves on.
func (e *Engine) worker(ctx context.Context, workerID int) {
	defer e.wg.Done()
	ctx = ctxlog.With(ctx, "workerID", workerID)
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Expansion worker started.")

	for t := range e.tasks {
		e.met.WorkersBusy.Inc()

		finished := make(chan struct{})
		go func(t *task) {
			defer func() {
				if r := recover(); r != nil {
					t.reply(taskResult{err: fmt.Errorf("%s: worker panic: %v", t.name, r)})
				}
				close(finished)
			}()
			t.reply(t.fn())
		}(t)

		select {
		case <-finished:
		case <-time.After(e.timeout):
			logger.Warn("Task exceeded the worker timeout, abandoning it.",
				"task", t.name, "timeout", e.timeout)
			t.reply(taskResult{err: fmt.Errorf("%s: did not complete within %s", t.name, e.timeout)})
		}

		e.met.WorkersBusy.Dec()
	}
	logger.Debug("Expansion worker finished.")
}

// reply delivers at most one result; later deliveries (a runaway task
// completing after its timeout was reported) are dropped.
func (t *task) reply(res taskResult) {
	select {
	case t.out <- res:
	default:
	}
}
