package tilegraph

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/tilegraph/internal/anneal"
	"github.com/gogpu/tilegraph/internal/parallel"
	"github.com/gogpu/tilegraph/internal/proto"
	"github.com/gogpu/tilegraph/internal/sched"
)

// Graph owns a DAG of output nodes and sink nodes, the optimizer passes
// that rewrite it, and the machinery that schedules, simulates, and
// executes it. A Graph is safe for concurrent use; Finish may be called
// from any goroutine while Compute runs on another.
type Graph struct {
	mu         sync.Mutex
	outNodes   []Node
	sinkNodes  []Sink
	optimizers []Optimizer
	parents    *ParentRegistry

	cfg    graphConfig
	rng    *rand.Rand
	logger *slog.Logger

	cancelled atomic.Bool
}

// NewGraph constructs an empty Graph. Nodes and sinks are added with
// CreateOutNode and CreateSinkNode.
func NewGraph(opts ...GraphOption) *Graph {
	cfg := defaultGraphConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	logger := cfg.logger
	if logger == nil {
		logger = Logger()
	}

	seed1, seed2 := cfg.seed[0], cfg.seed[1]
	if !cfg.haveSeed {
		seed1, seed2 = rand.Uint64(), rand.Uint64()
	}

	return &Graph{
		parents: NewParentRegistry(),
		cfg:     cfg,
		rng:     rand.New(rand.NewPCG(seed1, seed2)),
		logger:  logger,
	}
}

// CreateOutNode registers node as an interior node of the graph and
// returns it: the caller constructs node (wiring its inputs to nodes
// already returned by CreateOutNode), and the Graph takes it from there.
func (g *Graph) CreateOutNode(node Node) Node {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.outNodes = append(g.outNodes, node)
	return node
}

// CreateSinkNode registers sink as a terminal node of the graph and
// returns it.
func (g *Graph) CreateSinkNode(sink Sink) Sink {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sinkNodes = append(g.sinkNodes, sink)
	return sink
}

// EraseOutNode removes node from the graph, first unwrapping any
// optimizer-installed parents standing in for it.
func (g *Graph) EraseOutNode(node Node) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for g.parents.HasParents(node) {
		g.parents.Unwrap(node)
	}
	g.outNodes = removeNode(g.outNodes, node)
}

// EraseSinkNode removes sink from the graph, first unwrapping any
// optimizer-installed parents standing in for it.
func (g *Graph) EraseSinkNode(sink Sink) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for g.parents.HasParents(sink) {
		g.parents.Unwrap(sink)
	}
	g.sinkNodes = removeSink(g.sinkNodes, sink)
}

func removeNode(list []Node, node Node) []Node {
	for i, n := range list {
		if n == node {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

func removeSink(list []Sink, sink Sink) []Sink {
	for i, s := range list {
		if s == sink {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// AddOptimizer registers a graph-rewrite pass to be applied by Optimize.
func (g *Graph) AddOptimizer(o Optimizer) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.optimizers = append(g.optimizers, o)
}

// Optimize applies every registered Optimizer, in registration order.
// Optimizers are free to call CreateOutNode, EraseOutNode, and the
// Graph's ParentRegistry, so Optimize itself never holds the Graph's lock
// while an optimizer runs.
func (g *Graph) Optimize() {
	g.mu.Lock()
	opts := append([]Optimizer(nil), g.optimizers...)
	g.mu.Unlock()

	for _, o := range opts {
		o.Apply(g)
	}
}

// Parents exposes the Graph's ParentRegistry to optimizers.
func (g *Graph) Parents() *ParentRegistry { return g.parents }

// snapshot returns the graph's registered out nodes and sinks, each
// resolved through the ParentRegistry's current output-parent replacements
// and deduplicated: two originals optimized to the same replacement
// collapse to one entry, so downstream feasibility analysis and execution
// see the graph the optimizer actually produced, not the one callers
// originally wired.
func (g *Graph) snapshot() ([]Node, []Sink) {
	g.mu.Lock()
	defer g.mu.Unlock()

	outNodes := make([]Node, 0, len(g.outNodes))
	seenOut := make(map[Node]bool, len(g.outNodes))
	for _, n := range g.outNodes {
		resolved := g.parents.OutputNode(n)
		if !seenOut[resolved] {
			seenOut[resolved] = true
			outNodes = append(outNodes, resolved)
		}
	}

	sinkNodes := make([]Sink, 0, len(g.sinkNodes))
	seenSink := make(map[Sink]bool, len(g.sinkNodes))
	for _, s := range g.sinkNodes {
		resolved := s
		if r, ok := g.parents.OutputNode(s).(Sink); ok {
			resolved = r
		}
		if !seenSink[resolved] {
			seenSink[resolved] = true
			sinkNodes = append(sinkNodes, resolved)
		}
	}

	return outNodes, sinkNodes
}

// OptimizeMemoryDistribution runs the feasibility phase and, when at least
// one ANY_MEMORY node is present, a simulated-annealing search for a
// lower-cost byte distribution under memoryLimit. When no
// ANY_MEMORY node exists to optimize over, it returns the initial
// feasible distribution (which assigns nothing, since there is nothing to
// assign) together with ErrDegenerateDistribution; the distribution is
// still valid and usable, so callers may ignore that error.
func (g *Graph) OptimizeMemoryDistribution(memoryLimit uint64) (*Distribution, error) {
	outNodes, sinkNodes := g.snapshot()

	init := anneal.NewDistribution(memoryLimit, outNodes, sinkNodes)
	if len(init.CacheNodes) == 0 {
		return toRootDistribution(init, nil, nil), ErrDegenerateDistribution
	}

	best := anneal.Run(init, anneal.DefaultParams(), g.rng, g.isCancelled)
	return toRootDistribution(best.Distribution, best.OutStats(), best.SinkStats()), nil
}

func toRootDistribution(d *anneal.Distribution, outStats map[Node]proto.OutStats, sinkStats map[Node]proto.SinkStats) *Distribution {
	out := &Distribution{
		MemoryLimit: d.MemoryLimit,
		Amount:      MemoryAmount(d.Amount),
	}
	out.CacheNodes = make([]CacheNodeInfo, len(d.CacheNodes))
	for i, info := range d.CacheNodes {
		out.CacheNodes[i] = CacheNodeInfo{
			Node:           info.Node,
			Bytes:          info.Bytes,
			MaxBytes:       info.MaxBytes,
			OwnRemovalProb: info.OwnRemovalProb,
			CumRemovalProb: info.CumRemovalProb,
		}
	}
	if outStats != nil {
		out.OutStats = make(map[Node]OutNodeStats, len(outStats))
		for n, st := range outStats {
			out.OutStats[n] = OutNodeStats{Requests: st.Requests, Computations: st.Computations, Duration: st.Duration.Seconds()}
		}
	}
	if sinkStats != nil {
		out.SinkStats = make(map[Node]SinkStats, len(sinkStats))
		for n, st := range sinkStats {
			out.SinkStats[n] = SinkStats{Relevance: st.Relevance, Duration: st.Duration.Seconds()}
		}
	}
	return out
}

// ComputationDuration estimates total scheduling cost by replaying the
// proto-graph simulator once, with every ANY_MEMORY node given a uniform
// proto-cache capacity of sampleCapacity slots instead of a tuned
// distribution. It runs no annealing and touches no pixels: a pure
// simulator call.
func (g *Graph) ComputationDuration(sampleCapacity int) time.Duration {
	outNodes, sinkNodes := g.snapshot()

	sim := proto.NewSimulator()
	sim.SetResolver(g.parents.OutputNode)
	for _, node := range outNodes {
		capacity := 0
		if node.MemoryMode() == AnyMemory {
			capacity = sampleCapacity
		}
		sim.AddOutNode(node, capacity)
	}

	var total time.Duration
	for _, sink := range sinkNodes {
		total += sim.AddSinkTask(sink)
	}
	total += sim.Run()
	return total
}

// Compute optimizes a memory distribution for memoryLimit bytes and then
// executes the graph under it, blocking until every sink finishes or
// Finish is called.
func (g *Graph) Compute(memoryLimit uint64) error {
	dist, err := g.OptimizeMemoryDistribution(memoryLimit)
	if err != nil && !errors.Is(err, ErrDegenerateDistribution) {
		return err
	}
	return g.ComputeDistribution(dist)
}

// ComputeDistribution executes the graph under a previously computed
// Distribution, blocking until every sink finishes or Finish is called.
// It is for callers that have already paid for
// OptimizeMemoryDistribution once and want to reuse its result.
func (g *Graph) ComputeDistribution(dist *Distribution) error {
	outNodes, sinkNodes := g.snapshot()
	if len(sinkNodes) == 0 {
		return nil
	}

	for _, info := range dist.CacheNodes {
		info.Node.SetCacheBytes(info.Bytes)
	}

	defer g.cancelled.Store(false)
	g.logger.Info("tilegraph: compute starting", "outNodes", len(outNodes), "sinks", len(sinkNodes))

	adaptor := sched.NewAdaptor(g.logger)
	adaptor.SetResolver(g.parents.OutputNode)
	pool := parallel.New[sched.PoolJob](g.cfg.threadCount)
	defer pool.Finish()

	for _, sink := range sinkNodes {
		w, h := sink.Dimensions()
		adaptor.AddSinkTask(sink, NewRectangle(0, 0, w, h))
	}

	runErr := sched.Run(adaptor, pool, g.isCancelled)

	var kernelErr *sched.KernelError
	switch {
	case runErr == nil:
		g.logger.Info("tilegraph: compute finished")
		return nil
	case errors.Is(runErr, sched.ErrCancelled):
		g.logger.Info("tilegraph: compute cancelled")
		return ErrCancelled
	case errors.As(runErr, &kernelErr):
		return &KernelError{Node: kernelErr.Node, Region: kernelErr.Rect, Err: kernelErr.Err}
	default:
		return runErr
	}
}

// Finish requests cooperative cancellation of any in-flight Compute call.
// When no Compute is running, the next Compute call is cancelled instead.
// The request is cleared when ComputeDistribution returns after running
// the scheduler, so a Graph may be Computed again afterward.
func (g *Graph) Finish() { g.cancelled.Store(true) }

func (g *Graph) isCancelled() bool { return g.cancelled.Load() }

// DebugString renders a snapshot of the graph's node and sink membership.
// Live scheduling state during a running Compute is exposed separately by
// the adaptor's own String method.
func (g *Graph) DebugString() string {
	outNodes, sinkNodes := g.snapshot()

	var b strings.Builder
	fmt.Fprintf(&b, "tilegraph.Graph{%d out nodes, %d sinks}\n", len(outNodes), len(sinkNodes))
	for _, n := range outNodes {
		fmt.Fprintf(&b, "  out  %s\n", n)
	}
	for _, s := range sinkNodes {
		fmt.Fprintf(&b, "  sink %s\n", s)
	}
	return b.String()
}
