package anneal

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/gogpu/tilegraph/internal/model"
)

// fakeNode is a minimal model.Node fixture for the feasibility phase and
// the annealer's cost function, which only ever call a handful of Node
// methods (MemoryMode, FullByteNumber, IsCacheImportant, ChangeProbability,
// the input walk, and — via the proto simulator — TileDuration/Compute).
type fakeNode struct {
	name       string
	w, h       uint64
	tw, th     uint64
	memMode    model.MemoryMode
	inputs     []model.Node
	fullBytes  uint64
	important  bool
	changeProb float64
	duration   time.Duration
	cacheable  bool
}

func (n *fakeNode) Dimensions() (uint64, uint64)     { return n.w, n.h }
func (n *fakeNode) Channels() int                    { return 1 }
func (n *fakeNode) ElementBytes() int                { return 1 }
func (n *fakeNode) MemoryMode() model.MemoryMode      { return n.memMode }
func (n *fakeNode) InputCount() int                  { return len(n.inputs) }
func (n *fakeNode) InputNode(i int) model.Node       { return n.inputs[i] }
func (n *fakeNode) InputRegion(_ int, out model.Rectangle) model.Rectangle {
	return out
}
func (n *fakeNode) TileDimensions() (uint64, uint64)                   { return n.tw, n.th }
func (n *fakeNode) Task(model.Adaptor, model.Rectangle) model.Task     { return nil }
func (n *fakeNode) ProtoTask(rect model.Rectangle) model.ProtoTask     { return nil }
func (n *fakeNode) Compute(rect model.Rectangle, _ []*model.Tile) (*model.Tile, error) {
	return model.NewTile(rect, 1, 1), nil
}
func (n *fakeNode) TileDuration(model.Rectangle) time.Duration         { return n.duration }
func (n *fakeNode) UpdateTileDuration(time.Duration, model.Rectangle) {}
func (n *fakeNode) CacheSizeFromBytes(bytes uint64) int                { return int(bytes) }
func (n *fakeNode) SetCacheBytes(uint64)                               {}
func (n *fakeNode) IsCacheable(model.Rectangle) bool                   { return n.cacheable }
func (n *fakeNode) CacheGet(model.Rectangle) (*model.Tile, bool)       { return nil, false }
func (n *fakeNode) CachePut(model.Rectangle, *model.Tile)              {}
func (n *fakeNode) RemovalProbability() float64                       { return n.changeProb }
func (n *fakeNode) IsCacheImportant() bool                             { return n.important }
func (n *fakeNode) ChangeProbability() float64                        { return n.changeProb }
func (n *fakeNode) FullByteNumber() uint64                            { return n.fullBytes }
func (n *fakeNode) String() string                                    { return n.name }

type fakeSink struct {
	*fakeNode
	relevance float64
}

func (s *fakeSink) Relevance() float64                          { return s.relevance }
func (s *fakeSink) CentralPoint() (int, int)                     { return int(s.w / 2), int(s.h / 2) }
func (s *fakeSink) Consume(model.Rectangle, *model.Tile) error { return nil }

// === Amount.String ===

func TestAmount_String(t *testing.T) {
	cases := []struct {
		a    Amount
		want string
	}{
		{EnoughForAll, "ENOUGH_FOR_ALL"},
		{Sufficient, "SUFFICIENT"},
		{TooLittle, "TOO_LITTLE"},
		{Amount(99), "UNKNOWN_MEMORY_AMOUNT"},
	}
	for _, c := range cases {
		if got := c.a.String(); got != c.want {
			t.Errorf("%d.String() = %q, want %q", int(c.a), got, c.want)
		}
	}
}

// === feasibility phase ===

func TestNewDistribution_EnoughForAll(t *testing.T) {
	a := &fakeNode{name: "a", w: 10, h: 10, memMode: model.AnyMemory, fullBytes: 100}
	b := &fakeNode{name: "b", w: 10, h: 10, memMode: model.AnyMemory, fullBytes: 200}

	d := NewDistribution(1000, []model.Node{a, b}, nil)
	if d.Amount != EnoughForAll {
		t.Fatalf("Amount = %v, want EnoughForAll", d.Amount)
	}
	if got := d.ByteBudget(a); got != 100 {
		t.Errorf("ByteBudget(a) = %d, want 100", got)
	}
	if got := d.ByteBudget(b); got != 200 {
		t.Errorf("ByteBudget(b) = %d, want 200", got)
	}
}

func TestNewDistribution_SufficientGivesImportantNodesFullSize(t *testing.T) {
	important := &fakeNode{name: "important", memMode: model.AnyMemory, fullBytes: 80, important: true}
	other := &fakeNode{name: "other", memMode: model.AnyMemory, fullBytes: 80, important: false}

	d := NewDistribution(100, []model.Node{important, other}, nil)
	if d.Amount != Sufficient {
		t.Fatalf("Amount = %v, want Sufficient", d.Amount)
	}
	if got := d.ByteBudget(important); got != 80 {
		t.Errorf("ByteBudget(important) = %d, want 80 (full size)", got)
	}
	if got := d.ByteBudget(other); got != 20 {
		t.Errorf("ByteBudget(other) = %d, want 20 (remainder)", got)
	}
}

func TestNewDistribution_BudgetBelowImportantGivesUnimportantNothing(t *testing.T) {
	// importantBytes(100) alone exceeds memoryLimit(50): the distribution
	// is classified TooLittle and falls to the "important-only
	// proportional split" branch.
	important := &fakeNode{name: "important", memMode: model.AnyMemory, fullBytes: 100, important: true}
	other := &fakeNode{name: "other", memMode: model.AnyMemory, fullBytes: 100, important: false}

	d := NewDistribution(50, []model.Node{important, other}, nil)
	if d.Amount != TooLittle {
		t.Fatalf("Amount = %v, want TooLittle", d.Amount)
	}
	if got := d.ByteBudget(other); got != 0 {
		t.Errorf("ByteBudget(other) = %d, want 0 when the budget can't even cover important nodes", got)
	}
	if got := d.ByteBudget(important); got != 50 {
		t.Errorf("ByteBudget(important) = %d, want 50 (entire budget, proportional split of one node)", got)
	}
}

func TestNewDistribution_FullMemoryOverflowForcesTooLittle(t *testing.T) {
	full := &fakeNode{name: "full", memMode: model.FullMemory, fullBytes: 1000}
	cacheable := &fakeNode{name: "cacheable", memMode: model.AnyMemory, fullBytes: 10, important: true}

	d := NewDistribution(100, []model.Node{full, cacheable}, nil)
	if d.Amount != TooLittle {
		t.Fatalf("Amount = %v, want TooLittle when a FULL_MEMORY node alone exceeds the budget", d.Amount)
	}
	if got := d.ByteBudget(cacheable); got != 0 {
		t.Errorf("ByteBudget(cacheable) = %d, want 0 (no budget left after FULL_MEMORY overflow)", got)
	}
}

func TestNewDistribution_DiamondDependencyCountsSharedAncestorOnce(t *testing.T) {
	// ancestor -> {left, right} -> node. node's cumulative removal
	// probability must not double-count ancestor's own probability.
	ancestor := &fakeNode{name: "ancestor", memMode: model.AnyMemory, fullBytes: 1, changeProb: 0.5}
	left := &fakeNode{name: "left", memMode: model.AnyMemory, fullBytes: 1, inputs: []model.Node{ancestor}}
	right := &fakeNode{name: "right", memMode: model.AnyMemory, fullBytes: 1, inputs: []model.Node{ancestor}}
	node := &fakeNode{name: "node", memMode: model.AnyMemory, fullBytes: 1, inputs: []model.Node{left, right}}

	d := NewDistribution(1000, []model.Node{ancestor, left, right, node}, nil)

	var nodeInfo CacheNodeInfo
	for _, info := range d.CacheNodes {
		if info.Node == node {
			nodeInfo = info
		}
	}
	// survive = (1-0)*(1-0)*(1-0.5) once, not (1-0.5)^2: cum = 1-survive.
	want := 1 - (1 * (1 - 0.5))
	if diff := nodeInfo.CumRemovalProb - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("CumRemovalProb = %v, want %v (ancestor counted once)", nodeInfo.CumRemovalProb, want)
	}
}

// === annealer cost function ===

func TestEvaluate_ZeroCacheNodesHasZeroWastedAndNoCost(t *testing.T) {
	sink := &fakeSink{fakeNode: &fakeNode{name: "sink", w: 4, h: 4, tw: 4, th: 4}, relevance: 1.0}
	d := &Distribution{Sinks: []model.Sink{sink}}

	eval := Evaluate(d)
	if eval.Cost != 0 {
		t.Errorf("Cost = %v, want 0", eval.Cost)
	}
}

func TestEvaluate_HigherRelevanceSinkDominatesCost(t *testing.T) {
	slow := &fakeNode{name: "slow", w: 4, h: 4, tw: 4, th: 4, duration: 100 * time.Millisecond}
	fast := &fakeNode{name: "fast", w: 4, h: 4, tw: 4, th: 4, duration: time.Millisecond}

	dSlowRelevant := &Distribution{Sinks: []model.Sink{
		&fakeSink{fakeNode: slow, relevance: 10.0},
		&fakeSink{fakeNode: fast, relevance: 0.1},
	}}
	evalA := Evaluate(dSlowRelevant)

	dFastRelevant := &Distribution{Sinks: []model.Sink{
		&fakeSink{fakeNode: slow, relevance: 0.1},
		&fakeSink{fakeNode: fast, relevance: 10.0},
	}}
	evalB := Evaluate(dFastRelevant)

	if evalA.Cost <= evalB.Cost {
		t.Errorf("Cost when the slow sink is weighted heavily = %v, want it to exceed %v (fast sink weighted heavily)", evalA.Cost, evalB.Cost)
	}
}

// === RandomNeighbour ===

func TestRandomNeighbour_NoTrafficReturnsNil(t *testing.T) {
	a := &fakeNode{name: "a", memMode: model.AnyMemory, fullBytes: 100}
	d := &Distribution{CacheNodes: []CacheNodeInfo{{Node: a, Bytes: 50, MaxBytes: 100}}}
	eval := Evaluation{Distribution: d}

	rng := rand.New(rand.NewPCG(1, 2))
	if got := eval.RandomNeighbour(rng); got != nil {
		t.Errorf("RandomNeighbour() = %v, want nil with no traffic recorded", got)
	}
}

func TestRandomNeighbour_MovesBytesBetweenDonorAndReceiver(t *testing.T) {
	donor := &fakeNode{name: "donor", w: 4, h: 4, tw: 4, th: 4, memMode: model.AnyMemory, fullBytes: 100, cacheable: true}
	receiver := &fakeNode{name: "receiver", w: 4, h: 4, tw: 4, th: 4, memMode: model.AnyMemory, fullBytes: 100, cacheable: true}
	sink := &fakeSink{fakeNode: &fakeNode{name: "sink", w: 4, h: 4, tw: 4, th: 4, inputs: []model.Node{donor, receiver}}, relevance: 1.0}

	d := &Distribution{
		CacheNodes: []CacheNodeInfo{
			{Node: donor, Bytes: 80, MaxBytes: 100},
			{Node: receiver, Bytes: 10, MaxBytes: 100},
		},
		Sinks: []model.Sink{sink},
	}
	eval := Evaluate(d)

	rng := rand.New(rand.NewPCG(7, 9))
	var moved bool
	for i := 0; i < 50 && !moved; i++ {
		next := eval.RandomNeighbour(rng)
		if next == nil {
			continue
		}
		for _, info := range next.CacheNodes {
			if info.Node == donor && info.Bytes != 80 {
				moved = true
			}
			if info.Node == receiver && info.Bytes != 10 {
				moved = true
			}
		}
	}
	if !moved {
		t.Errorf("RandomNeighbour() never moved bytes across 50 attempts")
	}
}

// === Run ===

func TestRun_CancelledImmediatelyReturnsInitialEvaluation(t *testing.T) {
	node := &fakeNode{name: "n", w: 4, h: 4, tw: 4, th: 4, memMode: model.AnyMemory, fullBytes: 10}
	sink := &fakeSink{fakeNode: &fakeNode{name: "sink", w: 4, h: 4, tw: 4, th: 4, inputs: []model.Node{node}}, relevance: 1.0}
	d := &Distribution{
		CacheNodes: []CacheNodeInfo{{Node: node, Bytes: 5, MaxBytes: 10}},
		Sinks:      []model.Sink{sink},
	}

	rng := rand.New(rand.NewPCG(1, 1))
	best := Run(d, DefaultParams(), rng, func() bool { return true })
	if best.Distribution != d {
		t.Errorf("Run() with immediate cancellation returned a different distribution than the initial one")
	}
}

func TestRun_NeverWorsensBest(t *testing.T) {
	donor := &fakeNode{name: "donor", w: 4, h: 4, tw: 4, th: 4, memMode: model.AnyMemory, fullBytes: 100, cacheable: true, duration: 5 * time.Millisecond}
	receiver := &fakeNode{name: "receiver", w: 4, h: 4, tw: 4, th: 4, memMode: model.AnyMemory, fullBytes: 100, cacheable: true, duration: 5 * time.Millisecond}
	sink := &fakeSink{fakeNode: &fakeNode{name: "sink", w: 4, h: 4, tw: 4, th: 4, inputs: []model.Node{donor, receiver}}, relevance: 1.0}

	d := &Distribution{
		CacheNodes: []CacheNodeInfo{
			{Node: donor, Bytes: 50, MaxBytes: 100},
			{Node: receiver, Bytes: 50, MaxBytes: 100},
		},
		Sinks: []model.Sink{sink},
	}

	initial := Evaluate(d)
	rng := rand.New(rand.NewPCG(3, 4))
	best := Run(d, DefaultParams(), rng, func() bool { return false })
	if best.Cost > initial.Cost+1e-9 {
		t.Errorf("Run() returned a worse cost (%v) than the initial evaluation (%v)", best.Cost, initial.Cost)
	}
}
