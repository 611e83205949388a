package proto

import (
	"testing"
	"time"

	"github.com/gogpu/tilegraph/internal/model"
)

// fakeNode is a minimal model.Node for driving the simulator without real
// pixel kernels or tasks (Task/ProtoTask are never called by Simulator
// directly on a node other than through NewProtoTask, which this package
// owns).
type fakeNode struct {
	name     string
	w, h     uint64
	tw, th   uint64
	memMode  model.MemoryMode
	inputs   []model.Node
	duration time.Duration
	cacheOK  bool
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
func (n *fakeNode) TileDimensions() (uint64, uint64) { return n.tw, n.th }
func (n *fakeNode) Task(model.Adaptor, model.Rectangle) model.Task { return nil }
func (n *fakeNode) ProtoTask(rect model.Rectangle) model.ProtoTask {
	return NewProtoTask(n, rect)
}
func (n *fakeNode) Compute(rect model.Rectangle, _ []*model.Tile) (*model.Tile, error) {
	return model.NewTile(rect, 1, 1), nil
}
func (n *fakeNode) TileDuration(model.Rectangle) time.Duration         { return n.duration }
func (n *fakeNode) UpdateTileDuration(time.Duration, model.Rectangle) {}
func (n *fakeNode) CacheSizeFromBytes(bytes uint64) int                { return int(bytes) }
func (n *fakeNode) SetCacheBytes(uint64)                               {}
func (n *fakeNode) IsCacheable(model.Rectangle) bool                   { return n.cacheOK }
func (n *fakeNode) CacheGet(model.Rectangle) (*model.Tile, bool)       { return nil, false }
func (n *fakeNode) CachePut(model.Rectangle, *model.Tile)              {}
func (n *fakeNode) RemovalProbability() float64                       { return 0 }
func (n *fakeNode) IsCacheImportant() bool                             { return false }
func (n *fakeNode) ChangeProbability() float64                        { return 0 }
func (n *fakeNode) FullByteNumber() uint64                             { return n.w * n.h }
func (n *fakeNode) String() string                                     { return n.name }

type fakeSink struct {
	*fakeNode
	relevance float64
}

func (s *fakeSink) Relevance() float64       { return s.relevance }
func (s *fakeSink) CentralPoint() (int, int) { return int(s.w / 2), int(s.h / 2) }
func (s *fakeSink) Consume(model.Rectangle, *model.Tile) error { return nil }

// === leaf/tiling task enumeration ===

func TestNewProtoTask_LeafEnumeratesInputsInOrder(t *testing.T) {
	a := &fakeNode{name: "a", w: 4, h: 4, tw: 4, th: 4}
	b := &fakeNode{name: "b", w: 4, h: 4, tw: 4, th: 4}
	parent := &fakeNode{name: "parent", w: 4, h: 4, tw: 4, th: 4, inputs: []model.Node{a, b}}

	rect := model.NewRectangle(0, 0, 4, 4)
	task := NewProtoTask(parent, rect)
	if task.AllGenerated() {
		t.Fatalf("AllGenerated() = true before any NextRequiredRegion call")
	}

	node1, rect1, ok := task.NextRequiredRegion()
	if !ok || node1 != a || !rect1.Equal(rect) {
		t.Fatalf("first NextRequiredRegion() = (%v,%v,%v), want (a,%v,true)", node1, rect1, ok, rect)
	}
	node2, _, ok := task.NextRequiredRegion()
	if !ok || node2 != b {
		t.Fatalf("second NextRequiredRegion() node = %v, want b", node2)
	}
	if !task.AllGenerated() {
		t.Fatalf("AllGenerated() = false after enumerating every input")
	}
	if _, _, ok := task.NextRequiredRegion(); ok {
		t.Fatalf("NextRequiredRegion() after exhaustion returned ok=true")
	}
}

func TestNewProtoTask_TilingSplitsIntoCanonicalSubtiles(t *testing.T) {
	node := &fakeNode{name: "node", w: 4, h: 4, tw: 2, th: 2}
	rect := model.NewRectangle(0, 0, 4, 4)
	task := NewProtoTask(node, rect)

	var count int
	for !task.AllGenerated() {
		n, _, ok := task.NextRequiredRegion()
		if !ok {
			break
		}
		if n != node {
			t.Errorf("NextRequiredRegion() node = %v, want node itself (tiling task)", n)
		}
		count++
	}
	if count != 4 {
		t.Errorf("enumerated %d sub-tiles, want 4", count)
	}
}

// === Simulator ===

func TestSimulator_SinkWithNoDependenciesResolvesImmediately(t *testing.T) {
	sink := &fakeSink{fakeNode: &fakeNode{name: "sink", w: 4, h: 4, tw: 4, th: 4, duration: 5 * time.Millisecond}, relevance: 1.0}

	sim := NewSimulator()
	d := sim.AddSinkTask(sink)
	if d != 5*time.Millisecond {
		t.Errorf("AddSinkTask() returned %v, want 5ms", d)
	}
	if !sim.Empty() {
		t.Errorf("Empty() = false for a dependency-free sink")
	}
}

func TestSimulator_RunDrainsEveryQueuedSink(t *testing.T) {
	source := &fakeNode{name: "source", w: 4, h: 4, tw: 4, th: 4, duration: time.Millisecond, cacheOK: true, memMode: model.AnyMemory}
	sink := &fakeSink{fakeNode: &fakeNode{name: "sink", w: 4, h: 4, tw: 4, th: 4, inputs: []model.Node{source}}, relevance: 1.0}

	sim := NewSimulator()
	sim.AddOutNode(source, 10)
	sim.AddSinkTask(sink)
	sim.Run()

	if !sim.Empty() {
		t.Errorf("Empty() = false after Run")
	}
	stats := sim.OutStats()[source]
	if stats.Requests != 1 || stats.Computations != 1 {
		t.Errorf("OutStats() = %+v, want 1 request and 1 computation", stats)
	}
}

func TestSimulator_CacheHitSkipsRecomputation(t *testing.T) {
	source := &fakeNode{name: "source", w: 4, h: 4, tw: 4, th: 4, cacheOK: true, memMode: model.AnyMemory}
	sinkA := &fakeSink{fakeNode: &fakeNode{name: "sinkA", w: 4, h: 4, tw: 4, th: 4, inputs: []model.Node{source}}, relevance: 1.0}
	sinkB := &fakeSink{fakeNode: &fakeNode{name: "sinkB", w: 4, h: 4, tw: 4, th: 4, inputs: []model.Node{source}}, relevance: 1.0}

	sim := NewSimulator()
	sim.AddOutNode(source, 10)
	sim.AddSinkTask(sinkA)
	sim.AddSinkTask(sinkB)
	sim.Run()

	stats := sim.OutStats()[source]
	if stats.Requests != 2 {
		t.Errorf("Requests = %d, want 2", stats.Requests)
	}
	if stats.Computations != 1 {
		t.Errorf("Computations = %d, want 1 (second request is a proto-cache hit)", stats.Computations)
	}
}
