package tilegraph

import (
	"github.com/gogpu/tilegraph/internal/model"
	"github.com/gogpu/tilegraph/internal/proto"
	"github.com/gogpu/tilegraph/internal/sched"
)

// MemoryMode is a node's caching policy.
type MemoryMode = model.MemoryMode

const (
	// NoMemory nodes never cache; every request recomputes.
	NoMemory = model.NoMemory
	// AnyMemory nodes may cache tiles up to an assigned byte budget.
	AnyMemory = model.AnyMemory
	// FullMemory nodes must hold their entire output in memory and count
	// fully against the budget ahead of any ANY_MEMORY distribution.
	FullMemory = model.FullMemory
)

// Node is the contract every DAG node honors. Implementations are supplied
// by callers; the core never names a concrete node kind.
//
// Task and ProtoTask are generic, tiling-policy-aware implementations
// supplied by internal/sched and internal/proto, exposed here as NewTask
// and NewProtoTask; a node's Task/ProtoTask methods typically delegate to
// them rather than implementing the state machine themselves.
type Node = model.Node

// Sink is a terminal Node with no externally observable result; it performs
// side effects (typically file I/O) from within PerformFull.
type Sink = model.Sink

// Adaptor is the service a Task uses to resolve its dependencies.
type Adaptor = model.Adaptor

// Task represents the computation of one rectangle at one node.
type Task = model.Task

// ProtoTask is the simulation counterpart of Task.
type ProtoTask = model.ProtoTask

// NewTask returns the generic, tiling-policy-aware Task that computes rect
// for node against adaptor. A node's own Task method typically does
// nothing more than call this: the tiling split (canonical compute task
// vs. assembling tiling task) is a core concern, not a per-node one.
func NewTask(adaptor Adaptor, node Node, rect Rectangle) Task {
	return sched.NewTask(adaptor, node, rect)
}

// NewProtoTask returns the simulated counterpart of NewTask, used by the
// proto-graph adaptor. A node's own ProtoTask method typically does
// nothing more than call this.
func NewProtoTask(node Node, rect Rectangle) ProtoTask {
	return proto.NewProtoTask(node, rect)
}
