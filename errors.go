package tilegraph

import (
	"errors"

	"github.com/gogpu/tilegraph/internal/model"
)

// Sentinel errors returned by the core. Wrap with fmt.Errorf("tilegraph: ...: %w", err)
// for additional context; callers should compare with errors.Is.
var (
	// ErrCancelled is returned by Compute when finish() interrupted a run.
	// It is not treated as a failure: compute returns cleanly.
	ErrCancelled = errors.New("tilegraph: compute cancelled")

	// ErrInvalidRegion reports a requested rectangle that falls outside a
	// node's dimensions. No code path in this module returns it: requests
	// are not validated against node dimensions, and a channel-count
	// mismatch during tile assembly is ignored rather than reported.
	ErrInvalidRegion = errors.New("tilegraph: invalid region request")

	// ErrCyclicGraph reports wiring that forms a cycle. No code path in
	// this module returns it: CreateOutNode and CreateSinkNode do not check
	// for cycles.
	ErrCyclicGraph = errors.New("tilegraph: cyclic node graph")

	// ErrChannelMismatch is returned when two tiles being merged disagree
	// on channel count or element size.
	ErrChannelMismatch = model.ErrChannelMismatch

	// ErrDegenerateDistribution is returned by the annealer entry points
	// when there are no ANY_MEMORY nodes to optimize over; it is returned
	// together with the initial feasible distribution, which stays usable.
	ErrDegenerateDistribution = errors.New("tilegraph: degenerate memory distribution")
)

// KernelError wraps a panic or error raised from within a node's Compute or
// a sink's Consume, recovered at the pool-worker boundary. It is fatal to
// the enclosing Compute call.
type KernelError struct {
	Node   Node
	Region Rectangle
	Err    error
}

func (e *KernelError) Error() string {
	return "tilegraph: kernel failure at " + e.Region.String() + ": " + e.Err.Error()
}

func (e *KernelError) Unwrap() error { return e.Err }
