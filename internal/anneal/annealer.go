package anneal

import (
	"math"
	"math/rand/v2"

	"github.com/gogpu/tilegraph/internal/model"
	"github.com/gogpu/tilegraph/internal/proto"
)

// Evaluation pairs a Distribution with its simulated cost and the per-node
// traffic counters the simulation observed, the latter needed to pick a
// donor/receiver pair for the next neighbour.
type Evaluation struct {
	Distribution *Distribution
	Cost         float64

	outStats  map[model.Node]proto.OutStats
	sinkStats map[model.Node]proto.SinkStats
}

// OutStats returns the interior-node traffic counters the scoring
// simulation observed.
func (e Evaluation) OutStats() map[model.Node]proto.OutStats { return e.outStats }

// SinkStats returns the per-sink relevance and duration the scoring
// simulation observed.
func (e Evaluation) SinkStats() map[model.Node]proto.SinkStats { return e.sinkStats }

// Evaluate runs the proto-graph simulator over d to completion and scores
// it: a time cost weighted by sink relevance, inflated by the fraction of
// cached bytes expected to be wasted to eviction before reuse.
func Evaluate(d *Distribution) Evaluation {
	sim := proto.NewSimulator()
	for _, info := range d.CacheNodes {
		sim.AddOutNode(info.Node, info.Node.CacheSizeFromBytes(info.Bytes))
	}
	for _, node := range d.NonCacheNodes {
		sim.AddOutNode(node, 0)
	}
	for _, sink := range d.Sinks {
		sim.AddSinkTask(sink)
	}
	sim.Run()

	sinkStats := sim.SinkStats()
	var weightedTime, cumulative float64
	for _, st := range sinkStats {
		cumulative += st.Relevance
		weightedTime += st.Relevance * st.Duration.Seconds()
	}
	if cumulative > 0 {
		weightedTime /= cumulative
	} else {
		weightedTime = 0
	}

	var wasted, full float64
	for _, info := range d.CacheNodes {
		size := float64(info.Bytes)
		full += size
		wasted += info.CumRemovalProb * size
	}
	if full > 0 {
		wasted /= full
	}

	return Evaluation{
		Distribution: d,
		Cost:         (1 + wasted) * weightedTime,
		outStats:     sim.OutStats(),
		sinkStats:    sinkStats,
	}
}

// RandomNeighbour perturbs e's distribution by moving a Beta(2,4)-sampled
// share of bytes from a donor to a receiver node, each chosen with
// probability weighted toward nodes whose simulated traffic suggests the
// move will help: a donor is likelier the larger its budget and the more
// of its requests still missed the cache; a receiver is likelier the more
// budget it lacks and the more of its requests already hit. It returns
// nil if fewer than two cache nodes saw any traffic.
func (e Evaluation) RandomNeighbour(rng *rand.Rand) *Distribution {
	const eps = 0.01
	const oneEps = 1 - eps

	cacheNodes := e.Distribution.CacheNodes
	donorWeight := make([]float64, len(cacheNodes))
	for i, info := range cacheNodes {
		st, ok := e.outStats[info.Node]
		if !ok || st.Requests == 0 || info.MaxBytes == 0 {
			continue
		}
		memoryPortion := float64(info.Bytes) / float64(info.MaxBytes)
		nonHitPortion := float64(st.Computations) / float64(st.Requests)
		donorWeight[i] = memoryPortion * (eps + oneEps*nonHitPortion)
	}
	from, ok := weightedChoice(rng, donorWeight)
	if !ok {
		return nil
	}

	receiverWeight := make([]float64, len(cacheNodes))
	for i, info := range cacheNodes {
		if i == from {
			continue
		}
		st, ok := e.outStats[info.Node]
		if !ok || st.Requests == 0 || info.MaxBytes == 0 {
			continue
		}
		memoryPortion := float64(info.MaxBytes-info.Bytes) / float64(info.MaxBytes)
		hitPortion := float64(st.Requests-st.Computations) / float64(st.Requests)
		receiverWeight[i] = memoryPortion * (eps + oneEps*hitPortion)
	}
	to, ok := weightedChoice(rng, receiverWeight)
	if !ok {
		return nil
	}

	next := e.Distribution.clone()
	donor, receiver := &next.CacheNodes[from], &next.CacheNodes[to]
	room := receiver.MaxBytes - receiver.Bytes
	budget := donor.Bytes
	if room < budget {
		budget = room
	}
	if budget == 0 {
		return nil
	}
	moved := uint64(math.Ceil(betaSample24(rng) * float64(budget)))
	donor.Bytes -= moved
	receiver.Bytes += moved
	return next
}

// weightedChoice picks an index in proportion to weights via a
// cumulative-sum scan. It reports false if every weight is zero.
func weightedChoice(rng *rand.Rand, weights []float64) (int, bool) {
	var total float64
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return 0, false
	}
	target := rng.Float64() * total
	var cumulative float64
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		cumulative += w
		if target < cumulative {
			return i, true
		}
	}
	// Floating point rounding can leave target just past the last
	// cumulative bucket; fall back to the last nonzero one.
	for i := len(weights) - 1; i >= 0; i-- {
		if weights[i] > 0 {
			return i, true
		}
	}
	return 0, false
}

// betaSample24 draws from Beta(2,4) as the ratio of two stdlib-only Gamma
// draws, each an exact sum of independent unit-exponential samples since
// both shape parameters are integers: Gamma(k,1) = sum of k Exp(1) draws.
func betaSample24(rng *rand.Rand) float64 {
	g2 := exponentialSum(rng, 2)
	g4 := exponentialSum(rng, 4)
	return g2 / (g2 + g4)
}

func exponentialSum(rng *rand.Rand, n int) float64 {
	var sum float64
	for i := 0; i < n; i++ {
		sum += rng.ExpFloat64()
	}
	return sum
}

func metropolis(costX, costY, temperature float64) float64 {
	if costY <= costX {
		return 1
	}
	return math.Exp(-(costY - costX) / temperature)
}

// Params configures Run's cooling schedule and termination condition.
type Params struct {
	// InitialTemperature is T0 in the Metropolis acceptance function.
	InitialTemperature float64
	// Beta is the per-iteration cooling factor applied to the
	// temperature: T <- Beta*T.
	Beta float64
	// PatienceIterations is how many consecutive iterations without a new
	// best solution end the search.
	PatienceIterations int
}

// DefaultParams returns a starting temperature of 0.5, a cooling factor
// of 0.95, and a patience of four non-improving iterations.
func DefaultParams() Params {
	return Params{InitialTemperature: 0.5, Beta: 0.95, PatienceIterations: 4}
}

// Run performs simulated annealing starting from init, returning the best
// evaluation found. cancel is polled once per iteration, between
// evaluations; if it reports true, Run returns the best evaluation found so
// far. rng seeds both the neighbour search and the acceptance test.
func Run(init *Distribution, params Params, rng *rand.Rand, cancel func() bool) Evaluation {
	x := Evaluate(init)
	best := x
	temperature := params.InitialTemperature

	keptCounter := 0
	for keptCounter < params.PatienceIterations {
		if cancel() {
			break
		}

		neighbour := x.RandomNeighbour(rng)
		if neighbour == nil {
			keptCounter++
			continue
		}
		y := Evaluate(neighbour)

		if metropolis(x.Cost, y.Cost, temperature) >= rng.Float64() {
			x = y
		}
		temperature *= params.Beta

		if best.Cost > x.Cost {
			best = x
			keptCounter = 0
		} else {
			keptCounter++
		}
	}

	return best
}
