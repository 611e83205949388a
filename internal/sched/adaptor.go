package sched

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/gogpu/tilegraph/internal/model"
	"github.com/gogpu/tilegraph/internal/relevance"
)

type taskKey struct {
	node model.Node
	rect model.Rectangle
}

type taskMode int

const (
	modeOutRequestable taskMode = iota
	modeSinkRequestable
	modeRequested
	modePerformable
)

// finishedDep is one entry in the single-finished queue: caller requested
// (node, rect) and it resolved synchronously.
type finishedDep struct {
	caller model.Task
	node   model.Node
	rect   model.Rectangle
	tile   *model.Tile
}

// Adaptor is the task-graph adaptor: it owns the live task
// set, the state-indexed queues, and routes completion events between the
// control thread and the pool. All bookkeeping methods, GenerateRegion
// included, are called from the control thread; mu guards the bookkeeping
// state.
type Adaptor struct {
	mu sync.Mutex

	set      map[taskKey]model.Task
	modeOf   map[model.Task]taskMode
	outReq   []model.Task
	sinkReq  relevance.Chooser[model.Task]
	requested   []model.Task
	performable []model.Task
	finished    []finishedDep

	resolve func(model.Node) model.Node
	logger  *slog.Logger
}

// NewAdaptor returns an empty adaptor. A nil logger installs a silent one.
func NewAdaptor(logger *slog.Logger) *Adaptor {
	if logger == nil {
		logger = slog.New(discardHandler{})
	}
	return &Adaptor{
		set:     make(map[taskKey]model.Task),
		modeOf:  make(map[model.Task]taskMode),
		resolve: identityNode,
		logger:  logger,
	}
}

func identityNode(n model.Node) model.Node { return n }

// SetResolver installs a function consulted at every dependency request to
// redirect a node to its graph-optimizer replacement, e.g.
// ParentRegistry.OutputNode. A nil resolver restores the identity, so every
// request resolves to the node exactly as wired in.
func (a *Adaptor) SetResolver(resolve func(model.Node) model.Node) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if resolve == nil {
		resolve = identityNode
	}
	a.resolve = resolve
}

// Empty reports whether no tasks remain live.
func (a *Adaptor) Empty() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.set) == 0
}

// EmptyPerformable reports whether no task is ready to be dispatched for
// full performance.
func (a *Adaptor) EmptyPerformable() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.performable) == 0
}

// EmptyRequestable reports whether no task has a dependency left to
// request.
func (a *Adaptor) EmptyRequestable() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.outReq) == 0 && a.sinkReq.Empty()
}

// FrontRequestable advances the next requestable task by exactly one
// dependency: OUT_REQUESTABLE tasks before SINK_REQUESTABLE ones, and
// among sinks, the one with the smallest generations/relevance ratio
//.
func (a *Adaptor) FrontRequestable() {
	a.mu.Lock()
	var task model.Task
	if len(a.outReq) > 0 {
		task = a.outReq[0]
	} else if !a.sinkReq.Empty() {
		task = a.sinkReq.Choose()
	} else {
		a.mu.Unlock()
		return
	}
	a.mu.Unlock()

	task.NextRequiredTask()

	a.mu.Lock()
	a.taskModified(task)
	a.mu.Unlock()
}

// taskModified re-files task into the correct queue after a state change.
// Caller must hold mu.
func (a *Adaptor) taskModified(task model.Task) {
	mode := a.modeOf[task]
	allPerformed := task.AllSinglePerformed()
	allGenerated := task.AllGenerated()

	switch mode {
	case modeOutRequestable:
		if allPerformed || allGenerated {
			a.outReq = removeTask(a.outReq, task)
		}
		if allPerformed {
			a.performable = append(a.performable, task)
			a.modeOf[task] = modePerformable
		} else if allGenerated {
			a.requested = append(a.requested, task)
			a.modeOf[task] = modeRequested
		}
	case modeSinkRequestable:
		if allPerformed || allGenerated {
			a.sinkReq.Remove(task)
		}
		if allPerformed {
			a.performable = append(a.performable, task)
			a.modeOf[task] = modePerformable
		} else if allGenerated {
			a.requested = append(a.requested, task)
			a.modeOf[task] = modeRequested
		}
	case modeRequested:
		if allPerformed {
			a.requested = removeTask(a.requested, task)
			a.performable = append(a.performable, task)
			a.modeOf[task] = modePerformable
		}
	case modePerformable:
		// already performable; nothing to do (a completed dependency
		// arrival cannot make a performable task more performable).
	}
}

func removeTask(list []model.Task, task model.Task) []model.Task {
	for i, t := range list {
		if t == task {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// ExtractPerformable pops and returns one task ready for PerformFull.
func (a *Adaptor) ExtractPerformable() model.Task {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.performable) == 0 {
		return nil
	}
	task := a.performable[0]
	a.performable = a.performable[1:]
	return task
}

// GenerateRegion implements model.Adaptor: it resolves node's rect for
// caller via the node's own cache, an existing live task, or a freshly
// created one.
func (a *Adaptor) GenerateRegion(caller model.Task, node model.Node, rect model.Rectangle) (*model.Tile, bool) {
	a.mu.Lock()
	node = a.resolve(node)
	a.mu.Unlock()

	if node.MemoryMode() == model.AnyMemory {
		if tile, ok := node.CacheGet(rect); ok {
			a.mu.Lock()
			a.finished = append(a.finished, finishedDep{caller: caller, node: node, rect: rect, tile: tile})
			a.mu.Unlock()
			return tile, true
		}
	}

	key := taskKey{node: node, rect: rect}

	a.mu.Lock()
	if existing, ok := a.set[key]; ok {
		existing.AddDependant(caller)
		a.mu.Unlock()
		return nil, false
	}

	task := NewTask(a, node, rect)
	a.set[key] = task
	task.AddDependant(caller)

	if task.AllSinglePerformed() {
		a.performable = append(a.performable, task)
		a.modeOf[task] = modePerformable
	} else if _, isSink := node.(model.Sink); isSink {
		a.sinkReq.Add(task, node.(model.Sink).Relevance())
		a.modeOf[task] = modeSinkRequestable
	} else {
		a.outReq = append(a.outReq, task)
		a.modeOf[task] = modeOutRequestable
	}
	a.mu.Unlock()

	a.logger.Debug("sched: task created", "node", fmt.Sprint(node), "rect", rect.String())
	return nil, false
}

// AddSinkTask registers a top-level request for a sink's output rectangle,
// driving a root task into the queues exactly as GenerateRegion would for
// an interior dependency, but with no caller to notify.
func (a *Adaptor) AddSinkTask(node model.Sink, rect model.Rectangle) model.Task {
	a.mu.Lock()
	if resolved, ok := a.resolve(node).(model.Sink); ok {
		node = resolved
	}
	a.mu.Unlock()

	key := taskKey{node: node, rect: rect}

	a.mu.Lock()
	defer a.mu.Unlock()

	if existing, ok := a.set[key]; ok {
		return existing
	}

	task := NewTask(a, node, rect)
	a.set[key] = task

	if task.AllSinglePerformed() {
		a.performable = append(a.performable, task)
		a.modeOf[task] = modePerformable
	} else {
		a.sinkReq.Add(task, node.Relevance())
		a.modeOf[task] = modeSinkRequestable
	}
	return task
}

// GetSingleFinished drains the single-finished queue.
func (a *Adaptor) GetSingleFinished() []finishedDep {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := a.finished
	a.finished = nil
	return out
}

// SinglePerformed records that task's dependency-arrival bookkeeping has
// completed, decrementing its outstanding counter and re-filing it if it
// became PERFORMABLE.
func (a *Adaptor) SinglePerformed(task model.Task) {
	task.SinglePerformed()
	a.mu.Lock()
	a.taskModified(task)
	a.mu.Unlock()
}

// Finished publishes task's result to its dependants and retires it from
// the live set. It returns the
// dependants that must now be scheduled a PerformSingle call.
func (a *Adaptor) Finished(task model.Task) []model.Task {
	deps := task.Dependants()

	a.mu.Lock()
	delete(a.set, taskKey{node: task.Node(), rect: task.Region()})
	delete(a.modeOf, task)
	a.mu.Unlock()

	a.logger.Debug("sched: task retired", "node", fmt.Sprint(task.Node()), "rect", task.Region().String())
	return deps
}

// String renders a snapshot of the live task set and queue membership,
// for debugging and logging.
func (a *Adaptor) String() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	var b strings.Builder
	const delimiter = "----------------------------------------------------------------------"
	b.WriteString(delimiter)
	b.WriteByte('\n')
	for task, mode := range a.modeOf {
		requestable := mode == modeOutRequestable || mode == modeSinkRequestable
		fmt.Fprintf(&b, "[%s][%s][%s] %s\n",
			mark(requestable), mark(mode == modeRequested), mark(mode == modePerformable), task)
	}
	b.WriteString(delimiter)
	return b.String()
}

func mark(set bool) string {
	if set {
		return "X"
	}
	return " "
}

// discardHandler is a slog.Handler that drops every record, used as the
// adaptor's default when no logger is supplied.
type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (h discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h discardHandler) WithGroup(string) slog.Handler           { return h }
