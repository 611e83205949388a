package tilegraph

// MemoryAmount classifies the outcome of the feasibility phase of memory
// distribution.
type MemoryAmount int

const (
	// EnoughForAll: the budget covers every ANY_MEMORY node's full size.
	EnoughForAll MemoryAmount = iota
	// Sufficient: the budget covers every "important" node's full size;
	// the remainder is shared proportionally among the rest.
	Sufficient
	// TooLittle: the budget does not even cover the important nodes;
	// they share the whole budget proportionally and unimportant nodes
	// get nothing.
	TooLittle
)

func (m MemoryAmount) String() string {
	switch m {
	case EnoughForAll:
		return "ENOUGH_FOR_ALL"
	case Sufficient:
		return "SUFFICIENT"
	case TooLittle:
		return "TOO_LITTLE"
	default:
		return "UNKNOWN_MEMORY_AMOUNT"
	}
}

// CacheNodeInfo is one ANY_MEMORY node's entry in a Distribution: its
// current byte assignment, its full (unbudgeted) byte size, and the
// removal-probability hints the annealer's cost function consumes.
type CacheNodeInfo struct {
	Node             Node
	Bytes            uint64
	MaxBytes         uint64
	OwnRemovalProb   float64
	CumRemovalProb   float64
}

// OutNodeStats and SinkStats mirror the proto-graph adaptor's per-node and
// per-sink counters, carried alongside a Distribution so callers can
// inspect the simulation a candidate distribution was scored against.
type OutNodeStats struct {
	Requests     uint64
	Computations uint64
	Duration     float64
}

type SinkStats struct {
	Relevance float64
	Duration  float64
}

// Distribution is a per-node cache byte budget plus the feasibility
// classification of the memory limit it was computed from. It is produced
// by Graph.OptimizeMemoryDistribution and consumed by Graph.Compute.
type Distribution struct {
	MemoryLimit uint64
	Amount      MemoryAmount

	CacheNodes []CacheNodeInfo

	OutStats  map[Node]OutNodeStats
	SinkStats map[Node]SinkStats
}

// ByteBudget returns the cache byte budget assigned to node, or 0 if node is
// not an ANY_MEMORY node tracked by this distribution.
func (d *Distribution) ByteBudget(node Node) uint64 {
	for _, info := range d.CacheNodes {
		if info.Node == node {
			return info.Bytes
		}
	}
	return 0
}
