package anneal

import "github.com/gogpu/tilegraph/internal/model"

// Amount classifies the outcome of the feasibility phase.
type Amount int

const (
	// EnoughForAll: the budget covers every ANY_MEMORY node's full size.
	EnoughForAll Amount = iota
	// Sufficient: the budget covers every "important" node's full size;
	// the remainder is shared proportionally among the rest.
	Sufficient
	// TooLittle: the budget does not even cover the important nodes;
	// they share the whole budget proportionally and unimportant nodes
	// get nothing.
	TooLittle
)

func (a Amount) String() string {
	switch a {
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

// CacheNodeInfo is one ANY_MEMORY node's entry in a Distribution.
type CacheNodeInfo struct {
	Node           model.Node
	Bytes          uint64
	MaxBytes       uint64
	OwnRemovalProb float64
	CumRemovalProb float64
}

// Distribution is a candidate per-node cache byte budget together with the
// feasibility classification it was built under. NonCacheNodes
// holds every NO_MEMORY and FULL_MEMORY node, which the simulator tracks
// but never assigns a variable budget to.
type Distribution struct {
	MemoryLimit   uint64
	Amount        Amount
	CacheNodes    []CacheNodeInfo
	NonCacheNodes []model.Node
	Sinks         []model.Sink
}

// ByteBudget returns the cache byte budget assigned to node, or 0 if node
// is not an ANY_MEMORY node tracked by this distribution.
func (d *Distribution) ByteBudget(node model.Node) uint64 {
	for _, info := range d.CacheNodes {
		if info.Node == node {
			return info.Bytes
		}
	}
	return 0
}

// clone returns a copy of d with an independently mutable CacheNodes
// slice, for random_neighbour to adjust without aliasing d's.
func (d *Distribution) clone() *Distribution {
	out := &Distribution{
		MemoryLimit:   d.MemoryLimit,
		Amount:        d.Amount,
		CacheNodes:    append([]CacheNodeInfo(nil), d.CacheNodes...),
		NonCacheNodes: d.NonCacheNodes,
		Sinks:         d.Sinks,
	}
	return out
}

type removalProbs struct {
	own, cum float64
}

// collectInputs gathers every node transitively upstream of node (not just
// its immediate inputs), so that diamond dependencies are handled
// correctly: a shared ancestor's own removal probability must be
// counted once, not once per path reaching it.
func collectInputs(node model.Node, seen map[model.Node]bool, out *[]model.Node) {
	for i := 0; i < node.InputCount(); i++ {
		in := node.InputNode(i)
		if !seen[in] {
			seen[in] = true
			*out = append(*out, in)
			collectInputs(in, seen, out)
		}
	}
}

// computeRemovalProbs is the cumulative removal-probability recursion:
// node's cumulative probability is the chance that node or any of
// its transitive inputs is evicted, assuming independent per-node change
// events.
func computeRemovalProbs(node model.Node, memo map[model.Node]removalProbs) removalProbs {
	if p, ok := memo[node]; ok {
		return p
	}

	base := node.ChangeProbability()
	survive := 1 - base

	seen := map[model.Node]bool{}
	var inputs []model.Node
	collectInputs(node, seen, &inputs)
	for _, in := range inputs {
		survive *= 1 - computeRemovalProbs(in, memo).own
	}

	p := removalProbs{own: base, cum: 1 - survive}
	memo[node] = p
	return p
}

// NewDistribution runs the feasibility phase over outNodes under
// memoryLimit bytes, producing an initial distribution: ENOUGH_FOR_ALL
// gives every ANY_MEMORY node its full size, SUFFICIENT gives "important"
// nodes their full size and splits the remainder proportionally among the
// rest, and TOO_LITTLE splits the whole (post-FULL_MEMORY) budget
// proportionally among important nodes only.
func NewDistribution(memoryLimit uint64, outNodes []model.Node, sinks []model.Sink) *Distribution {
	var cacheNodes []CacheNodeInfo
	var nonCacheNodes []model.Node
	var importantBytes, unimportantBytes uint64
	enough := true

	memo := make(map[model.Node]removalProbs)

	for _, node := range outNodes {
		switch node.MemoryMode() {
		case model.NoMemory:
			nonCacheNodes = append(nonCacheNodes, node)
		case model.AnyMemory:
			bytes := node.FullByteNumber()
			p := computeRemovalProbs(node, memo)
			cacheNodes = append(cacheNodes, CacheNodeInfo{
				Node: node, MaxBytes: bytes, OwnRemovalProb: p.own, CumRemovalProb: p.cum,
			})
			if node.IsCacheImportant() {
				importantBytes += bytes
			} else {
				unimportantBytes += bytes
			}
		case model.FullMemory:
			bytes := node.FullByteNumber()
			if bytes <= memoryLimit {
				memoryLimit -= bytes
			} else {
				memoryLimit = 0
				enough = false
			}
			nonCacheNodes = append(nonCacheNodes, node)
		}
	}

	var amount Amount
	switch {
	case !enough || memoryLimit < importantBytes:
		amount = TooLittle
	case memoryLimit >= importantBytes+unimportantBytes:
		amount = EnoughForAll
	default:
		amount = Sufficient
	}

	switch {
	case amount == EnoughForAll:
		for i := range cacheNodes {
			cacheNodes[i].Bytes = cacheNodes[i].MaxBytes
		}
	case memoryLimit >= importantBytes:
		remainingUnimportant := memoryLimit - importantBytes
		remainingPool := unimportantBytes
		for i := range cacheNodes {
			if cacheNodes[i].Node.IsCacheImportant() {
				cacheNodes[i].Bytes = cacheNodes[i].MaxBytes
				continue
			}
			max := cacheNodes[i].MaxBytes
			portion := float64(max) / float64(remainingPool)
			bytes := uint64(portion * float64(remainingUnimportant))
			cacheNodes[i].Bytes = bytes
			remainingPool -= max
			remainingUnimportant -= bytes
		}
	case memoryLimit > 0:
		remainingImportant := memoryLimit
		remainingPool := importantBytes
		for i := range cacheNodes {
			if !cacheNodes[i].Node.IsCacheImportant() {
				continue
			}
			max := cacheNodes[i].MaxBytes
			portion := float64(max) / float64(remainingPool)
			bytes := uint64(portion * float64(remainingImportant))
			cacheNodes[i].Bytes = bytes
			remainingPool -= max
			remainingImportant -= bytes
		}
	}

	return &Distribution{
		MemoryLimit:   memoryLimit,
		Amount:        amount,
		CacheNodes:    cacheNodes,
		NonCacheNodes: nonCacheNodes,
		Sinks:         sinks,
	}
}
