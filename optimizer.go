package tilegraph

// Optimizer is a graph-rewrite pass applied by Graph.Optimize. A typical
// optimizer wraps an existing node with a replacement (recorded through the
// Graph's ParentRegistry) that serves the same public contract more
// efficiently.
type Optimizer interface {
	Apply(g *Graph)
}

// OptimizerFunc adapts a plain function to the Optimizer interface.
type OptimizerFunc func(g *Graph)

func (f OptimizerFunc) Apply(g *Graph) { f(g) }

// ReplaceOptimizer is the minimal concrete Optimizer: it installs Parent as
// Original's output parent, so every future dependency resolution for
// Original in Compute and ComputationDuration is redirected to Parent
// instead. OptimizeMemoryDistribution budgets over the graph's resolved
// node list, but its cost simulation follows each node's inputs as wired,
// without this redirection.
// Original is left registered in the graph; callers that also want it
// erased outright should follow Optimize with EraseOutNode(Original).
type ReplaceOptimizer struct {
	Original, Parent Node
}

// Apply wraps Original with Parent in g's ParentRegistry.
func (o ReplaceOptimizer) Apply(g *Graph) {
	g.Parents().Wrap(o.Original, o.Parent, true)
}
