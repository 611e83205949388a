// Package sched implements the task-graph adaptor and scheduler loop:
// the live task set, the state-indexed queues, the tiling
// policy that splits non-canonical requests into canonical compute tasks,
// and the control-thread run loop that drives them to completion on a
// parallel.Pool.
//
// Concrete Node implementations obtain a model.Task for a requested
// rectangle by calling NewTask, rather than implementing the state machine
// themselves.
package sched
