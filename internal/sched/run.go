package sched

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/tilegraph/internal/model"
	"github.com/gogpu/tilegraph/internal/parallel"
)

// ErrCancelled is returned by Run when cancel reported true before the
// live task set drained naturally. It is not a failure: the caller's
// Compute returns cleanly.
var ErrCancelled = errors.New("sched: compute cancelled")

// KernelError wraps a panic or error raised from within a node's Compute
// or a sink's Consume, recovered at the pool-worker boundary. It mirrors
// the root package's KernelError without importing it (the root package
// imports sched, not the reverse).
type KernelError struct {
	Node model.Node
	Rect model.Rectangle
	Err  error
}

func (e *KernelError) Error() string {
	return "sched: kernel failure at " + e.Rect.String() + ": " + e.Err.Error()
}

func (e *KernelError) Unwrap() error { return e.Err }

// PoolJob identifies one unit of work submitted to the thread pool: a
// dependency-arrival callback (Dependency true) or a full task
// performance (Dependency false).
type PoolJob struct {
	Task       model.Task
	Dependency bool
}

type fatalBox struct {
	mu  sync.Mutex
	err error
}

func (f *fatalBox) set(err error) {
	f.mu.Lock()
	if f.err == nil {
		f.err = err
	}
	f.mu.Unlock()
}

func (f *fatalBox) get() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// guarded wraps fn so a kernel panic recovered at the worker boundary is
// recorded in fatal instead of crashing the pool worker.
func guarded(fatal *fatalBox, fn func()) func() {
	return func() {
		defer func() {
			if r := recover(); r != nil {
				if kp, ok := r.(*kernelPanic); ok {
					fatal.set(&KernelError{Node: kp.node, Rect: kp.rect, Err: kp.err})
					return
				}
				fatal.set(&KernelError{Err: fmt.Errorf("panic: %v", r)})
			}
		}()
		fn()
	}
}

// Run drives adaptor to completion on pool. cancel is polled between
// bookkeeping steps; once it reports true,
// Run settles the current step and returns ErrCancelled. A kernel panic
// recovered from any dispatched job takes priority and is returned as a
// *KernelError instead.
func Run(adaptor *Adaptor, pool *parallel.Pool[PoolJob], cancel func() bool) error {
	fatal := &fatalBox{}
	stop := func() bool { return cancel() || fatal.get() != nil }

	for !adaptor.Empty() && !stop() {
		for adaptor.EmptyPerformable() && !stop() {
			if dispatchSingleFinished(adaptor, pool, fatal) {
				continue
			}
			if dispatchPoolCompletions(adaptor, pool, fatal) {
				continue
			}
			if !adaptor.EmptyRequestable() {
				adaptor.FrontRequestable()
				continue
			}
			break
		}
		for !adaptor.EmptyPerformable() && !stop() {
			task := adaptor.ExtractPerformable()
			if task == nil {
				break
			}
			job := PoolJob{Task: task}
			pool.Execute(job, guarded(fatal, task.PerformFull))
		}
		if !stop() {
			dispatchSingleFinished(adaptor, pool, fatal)
			dispatchPoolCompletions(adaptor, pool, fatal)
		}
	}

	if err := fatal.get(); err != nil {
		return err
	}
	if cancel() {
		return ErrCancelled
	}
	return nil
}

// dispatchSingleFinished drains the adaptor's single-finished queue onto
// the pool as dependency-arrival jobs.
func dispatchSingleFinished(adaptor *Adaptor, pool *parallel.Pool[PoolJob], fatal *fatalBox) bool {
	finished := adaptor.GetSingleFinished()
	if len(finished) == 0 {
		return false
	}
	for _, dep := range finished {
		dep := dep
		job := PoolJob{Task: dep.caller, Dependency: true}
		pool.Execute(job, guarded(fatal, func() {
			dep.caller.PerformSingle(dep.node, dep.rect, dep.tile)
		}))
	}
	return true
}

// dispatchPoolCompletions drains the pool's completion queue, routing each
// to the adaptor's bookkeeping and, for a finished full task, scheduling
// its dependants' arrival callbacks.
func dispatchPoolCompletions(adaptor *Adaptor, pool *parallel.Pool[PoolJob], fatal *fatalBox) bool {
	completed := pool.GetFinished()
	if len(completed) == 0 {
		return false
	}
	for _, job := range completed {
		if job.Dependency {
			adaptor.SinglePerformed(job.Task)
			continue
		}
		task := job.Task
		node, rect, result := task.Node(), task.Region(), task.Result()
		for _, dependant := range adaptor.Finished(task) {
			dependant := dependant
			dependantJob := PoolJob{Task: dependant, Dependency: true}
			pool.Execute(dependantJob, guarded(fatal, func() {
				dependant.PerformSingle(node, rect, result)
			}))
		}
	}
	return true
}
