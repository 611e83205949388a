package model

// Adaptor is the service a Task uses to resolve its dependencies: given a
// requesting Task, the Node it wants input from, and the rectangle it
// needs, GenerateRegion returns the tile if already available (a hit in the
// node's cache) and whether the request was satisfied synchronously.
//
// When ready is true, tile is valid immediately and the adaptor has queued
// a single-finished event so the caller's PerformSingle/SinglePerformed
// pair still runs through the normal pool-dispatched path.
//
// When ready is false, the adaptor has registered caller as a dependant of
// the (possibly newly created) task now producing rect; caller is woken
// later via PerformSingle/SinglePerformed once that task finishes.
type Adaptor interface {
	GenerateRegion(caller Task, node Node, rect Rectangle) (tile *Tile, ready bool)
}

// Task drives one node's computation of one rectangle through the state
// machine: OUT_REQUESTABLE/SINK_REQUESTABLE while dependencies
// remain to request, REQUESTED while some requested dependency is still
// outstanding, PERFORMABLE once every one has arrived and been folded in.
//
// Only NextRequiredTask and SinglePerformed are required to be called
// sequentially from the control thread; PerformSingle and PerformFull are
// dispatched onto pool workers. Several PerformSingle calls for the same
// task may be in flight at once, one per arrived dependency, so
// implementations guard the state those calls share.
type Task interface {
	// Node is the node this task computes for.
	Node() Node
	// Region is the rectangle this task produces.
	Region() Rectangle

	// AllGenerated reports whether every dependency this task will ever
	// need has been requested (not necessarily arrived).
	AllGenerated() bool
	// AllSinglePerformed reports whether every requested dependency has
	// both arrived and been folded in via PerformSingle: the task is
	// PERFORMABLE.
	AllSinglePerformed() bool

	// NextRequiredTask emits exactly one dependency request by calling
	// adaptor.GenerateRegion precisely once. Must not be called once
	// AllGenerated() is true.
	NextRequiredTask()

	// PerformSingle folds in one arrived dependency's tile, identified by
	// the node and rectangle that were requested for it. Called once per
	// arrival, in arrival order.
	PerformSingle(node Node, rect Rectangle, tile *Tile)
	// SinglePerformed records that PerformSingle has completed for one
	// more dependency, decrementing the outstanding counter.
	SinglePerformed()

	// PerformFull runs once AllSinglePerformed() is true: it computes the
	// node's kernel (for a compute task), consumes the result (for a
	// sink's canonical task), or simply finalizes bookkeeping (for a
	// tiling task, whose real work already happened in PerformSingle).
	PerformFull()
	// Result returns the finished tile once PerformFull has run. Sink
	// tasks, and tiling tasks wrapping a sink, return nil: side effects
	// only.
	Result() *Tile

	// AddDependant registers dep as waiting on this task's completion.
	AddDependant(dep Task)
	// Dependants returns the tasks currently waiting on this task.
	Dependants() []Task

	String() string
}

// ProtoTask is the simulated counterpart of Task used by the proto-graph
// adaptor: it tracks which regions would be requested and in what
// order, without ever computing pixels.
type ProtoTask interface {
	Node() Node
	Region() Rectangle
	// AllGenerated reports whether every dependency has been enumerated.
	AllGenerated() bool
	// NextRequiredRegion returns the next (node, rect) this task would
	// request, advancing its internal iterator. ok is false once nothing
	// further remains (AllGenerated() became true).
	NextRequiredRegion() (node Node, rect Rectangle, ok bool)
}
