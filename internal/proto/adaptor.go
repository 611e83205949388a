package proto

import (
	"time"

	"github.com/gogpu/tilegraph/cache"
	"github.com/gogpu/tilegraph/internal/model"
	"github.com/gogpu/tilegraph/internal/relevance"
)

// OutStats is one interior node's counters from a simulated run: how many
// times its output was requested, how many of those were misses requiring
// a (simulated) computation, and the accumulated estimated duration of
// those computations.
type OutStats struct {
	Requests     uint64
	Computations uint64
	Duration     time.Duration
}

// SinkStats is one sink's relevance and accumulated simulated duration.
type SinkStats struct {
	Relevance float64
	Duration  time.Duration
}

// Simulator is the proto-graph adaptor. It is not safe for
// concurrent use; the annealer drives one simulation at a time per
// candidate distribution.
type Simulator struct {
	caches    map[model.Node]*cache.ProtoCache[model.Rectangle]
	outStats  map[model.Node]*OutStats
	sinkStats map[model.Node]*SinkStats
	chooser   relevance.Chooser[model.ProtoTask]
	resolve   func(model.Node) model.Node
}

// NewSimulator returns an empty simulator.
func NewSimulator() *Simulator {
	return &Simulator{
		caches:    make(map[model.Node]*cache.ProtoCache[model.Rectangle]),
		outStats:  make(map[model.Node]*OutStats),
		sinkStats: make(map[model.Node]*SinkStats),
		resolve:   func(n model.Node) model.Node { return n },
	}
}

// SetResolver installs a function consulted at every dependency request to
// redirect a node to its graph-optimizer replacement, e.g.
// ParentRegistry.OutputNode. A nil resolver restores the identity.
func (s *Simulator) SetResolver(resolve func(model.Node) model.Node) {
	if resolve == nil {
		resolve = func(n model.Node) model.Node { return n }
	}
	s.resolve = resolve
}

// AddOutNode registers an interior node with a proto-cache bounded at
// capacitySlots keys. Pass 0 for a NO_MEMORY node or an ANY_MEMORY node
// that received no budget. The proto-cache is consulted only for
// ANY_MEMORY nodes; NO_MEMORY and FULL_MEMORY nodes are simulated as
// recomputed on every request whatever their capacity.
func (s *Simulator) AddOutNode(node model.Node, capacitySlots int) {
	s.caches[node] = cache.NewProtoCache[model.Rectangle](capacitySlots)
	s.outStats[node] = &OutStats{}
}

// AddSinkTask registers a sink's root request over its full output
// rectangle. If the sink has no dependencies it is resolved immediately
// and its contributed duration is returned; otherwise it is queued in the
// relevance chooser and Run (or Step) must be called to drain it.
func (s *Simulator) AddSinkTask(sink model.Sink) time.Duration {
	if resolved, ok := s.resolve(sink).(model.Sink); ok {
		sink = resolved
	}
	w, h := sink.Dimensions()
	rect := model.NewRectangle(0, 0, w, h)
	task := NewProtoTask(sink, rect)
	s.sinkStats[sink] = &SinkStats{Relevance: sink.Relevance()}

	if task.AllGenerated() {
		d := sink.TileDuration(rect)
		s.sinkStats[sink].Duration += d
		return d
	}
	s.chooser.Add(task, sink.Relevance())
	return 0
}

// Empty reports whether every registered sink task has fully resolved.
func (s *Simulator) Empty() bool { return s.chooser.Empty() }

// Step advances the sink task with the smallest generations/relevance
// ratio by one dependency request, returning the duration that request
// (and any recursive interior computation it triggers) contributes.
func (s *Simulator) Step() time.Duration {
	task := s.chooser.Choose()
	node, rect, ok := task.NextRequiredRegion()

	var total time.Duration
	if ok {
		total += s.request(node, rect)
	}
	if task.AllGenerated() {
		s.chooser.Remove(task)
		total += task.Node().(model.Sink).TileDuration(task.Region())
	}
	s.sinkStats[task.Node()].Duration += total
	return total
}

// Run drains every sink task to completion and returns the total
// accumulated duration.
func (s *Simulator) Run() time.Duration {
	var total time.Duration
	for !s.Empty() {
		total += s.Step()
	}
	return total
}

// request resolves node's rect within the simulation: a proto-cache hit
// counts and contributes no additional time; a miss counts, inserts into
// the cache when the node considers rect cacheable, and recurses into the
// dependency's own requirements, accumulating TileDuration.
func (s *Simulator) request(node model.Node, rect model.Rectangle) time.Duration {
	node = s.resolve(node)
	stats := s.outStats[node]
	if stats == nil {
		stats = &OutStats{}
		s.outStats[node] = stats
	}
	stats.Requests++

	pc := s.caches[node]
	if node.MemoryMode() == model.AnyMemory && pc != nil && pc.Contains(rect) {
		return 0
	}

	stats.Computations++
	task := NewProtoTask(node, rect)
	var dep time.Duration
	for {
		depNode, depRect, ok := task.NextRequiredRegion()
		if !ok {
			break
		}
		dep += s.request(depNode, depRect)
	}

	if node.MemoryMode() == model.AnyMemory && pc != nil && node.IsCacheable(rect) {
		pc.Insert(rect)
	}

	own := node.TileDuration(rect)
	stats.Duration += own
	return own + dep
}

// OutStats returns a snapshot of the counters of every interior node that
// was registered or requested during the simulation.
func (s *Simulator) OutStats() map[model.Node]OutStats {
	out := make(map[model.Node]OutStats, len(s.outStats))
	for n, st := range s.outStats {
		out[n] = *st
	}
	return out
}

// SinkStats returns a snapshot of every registered sink's counters.
func (s *Simulator) SinkStats() map[model.Node]SinkStats {
	out := make(map[model.Node]SinkStats, len(s.sinkStats))
	for n, st := range s.sinkStats {
		out[n] = *st
	}
	return out
}
