package sched

import (
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/tilegraph/internal/model"
	"github.com/gogpu/tilegraph/internal/tiling"
)

// NewTask returns the model.Task computing rect for node against adaptor,
// splitting into a tiling task when rect is not a canonical tile and a
// leaf (compute or consume) task when it is. A concrete Node's own
// Task method typically does nothing more than call NewTask.
func NewTask(adaptor model.Adaptor, node model.Node, rect model.Rectangle) model.Task {
	tw, th := node.TileDimensions()
	nw, nh := node.Dimensions()
	if tiling.IsCanonical(rect, tw, th, nw, nh) {
		return newLeafTask(adaptor, node, rect)
	}
	return newTilingTask(adaptor, node, rect)
}

// outstanding is the shared bookkeeping every task kind embeds: the list
// of tasks waiting on this one and a counter of requested-but-not-yet-arrived dependencies.
type outstanding struct {
	mu         sync.Mutex
	dependants []model.Task
	count      int
}

func (o *outstanding) AddDependant(dep model.Task) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.dependants = append(o.dependants, dep)
}

func (o *outstanding) Dependants() []model.Task {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]model.Task, len(o.dependants))
	copy(out, o.dependants)
	return out
}

func (o *outstanding) inc() {
	o.mu.Lock()
	o.count++
	o.mu.Unlock()
}

func (o *outstanding) dec() {
	o.mu.Lock()
	o.count--
	o.mu.Unlock()
}

func (o *outstanding) zero() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.count == 0
}

// leafTask computes one canonical tile: it requests the input region of
// each of the node's inputs (or, for a Sink, performs Consume on its
// single source input) and runs the node's kernel once every input has
// arrived.
type leafTask struct {
	outstanding

	node    model.Node
	rect    model.Rectangle
	adaptor model.Adaptor

	stateMu    sync.Mutex
	nextInput  int
	inputs     []*model.Tile
	allEmitted bool
	result     *model.Tile
}

func newLeafTask(adaptor model.Adaptor, node model.Node, rect model.Rectangle) *leafTask {
	t := &leafTask{node: node, rect: rect, adaptor: adaptor}
	t.inputs = make([]*model.Tile, node.InputCount())
	if node.InputCount() == 0 {
		t.allEmitted = true
	}
	return t
}

func (t *leafTask) Node() model.Node        { return t.node }
func (t *leafTask) Region() model.Rectangle { return t.rect }

func (t *leafTask) AllGenerated() bool {
	t.stateMu.Lock()
	defer t.stateMu.Unlock()
	return t.allEmitted
}

func (t *leafTask) AllSinglePerformed() bool {
	t.stateMu.Lock()
	allEmitted := t.allEmitted
	t.stateMu.Unlock()
	return allEmitted && t.zero()
}

func (t *leafTask) NextRequiredTask() {
	t.stateMu.Lock()
	idx := t.nextInput
	t.nextInput++
	if t.nextInput >= len(t.inputs) {
		t.allEmitted = true
	}
	t.stateMu.Unlock()

	depNode := t.node.InputNode(idx)
	depRect := t.node.InputRegion(idx, t.rect)

	t.inc()
	t.adaptor.GenerateRegion(t, depNode, depRect)
}

func (t *leafTask) PerformSingle(node model.Node, rect model.Rectangle, tile *model.Tile) {
	t.stateMu.Lock()
	defer t.stateMu.Unlock()
	for i := 0; i < len(t.inputs); i++ {
		if t.inputs[i] == nil && t.node.InputNode(i) == node && t.node.InputRegion(i, t.rect).Equal(rect) {
			t.inputs[i] = tile
			return
		}
	}
}

func (t *leafTask) SinglePerformed() { t.dec() }

func (t *leafTask) PerformFull() {
	if sink, ok := t.node.(model.Sink); ok {
		var in *model.Tile
		if len(t.inputs) > 0 {
			in = t.inputs[0]
		}
		start := time.Now()
		if err := sink.Consume(t.rect, in); err != nil {
			panic(&kernelPanic{node: t.node, rect: t.rect, err: err})
		}
		sink.UpdateTileDuration(time.Since(start), t.rect)
		return
	}

	start := time.Now()
	tile, err := t.node.Compute(t.rect, t.inputs)
	if err != nil {
		panic(&kernelPanic{node: t.node, rect: t.rect, err: err})
	}
	t.node.UpdateTileDuration(time.Since(start), t.rect)
	t.result = tile
	if t.node.MemoryMode() != model.NoMemory && t.node.IsCacheable(t.rect) {
		t.node.CachePut(t.rect, tile)
	}
}

func (t *leafTask) Result() *model.Tile {
	t.stateMu.Lock()
	defer t.stateMu.Unlock()
	return t.result
}

func (t *leafTask) String() string {
	return fmt.Sprintf("leaf[%s @ %s]", t.node, t.rect)
}

// tilingTask assembles a non-canonical rectangle from its node's canonical
// sub-tiles, requested from the node itself in space-filling-curve order
// and merged as they arrive.
//
// For an ordinary node it accumulates the arriving tiles into one
// assembled buffer by copying overlaps; for a Sink it discards each
// arriving tile immediately, since the real side effect already happened
// inside the canonical sub-task's own PerformFull.
type tilingTask struct {
	outstanding

	node    model.Node
	rect    model.Rectangle
	adaptor model.Adaptor
	isSink  bool

	stateMu    sync.Mutex
	tiler      *tiling.Tiler
	allEmitted bool
	assembled  *model.Tile
}

func newTilingTask(adaptor model.Adaptor, node model.Node, rect model.Rectangle) *tilingTask {
	tw, th := node.TileDimensions()
	nw, nh := node.Dimensions()

	sink, isSink := node.(model.Sink)
	var order []model.Rectangle
	if isSink {
		cx, cy := sink.CentralPoint()
		order = tiling.SinkTileOrder(rect, tw, th, nw, nh, uint64(cx), uint64(cy))
	} else {
		order = tiling.TileOrder(rect, tw, th, nw, nh)
	}

	t := &tilingTask{
		node:    node,
		rect:    rect,
		adaptor: adaptor,
		isSink:  isSink,
		tiler:   tiling.NewTiler(order),
	}
	if !isSink {
		t.assembled = model.NewTile(rect, node.Channels(), node.ElementBytes())
	}
	if len(order) == 0 {
		t.allEmitted = true
	}
	return t
}

func (t *tilingTask) Node() model.Node        { return t.node }
func (t *tilingTask) Region() model.Rectangle { return t.rect }

func (t *tilingTask) AllGenerated() bool {
	t.stateMu.Lock()
	defer t.stateMu.Unlock()
	return t.allEmitted
}

func (t *tilingTask) AllSinglePerformed() bool {
	t.stateMu.Lock()
	allEmitted := t.allEmitted
	t.stateMu.Unlock()
	return allEmitted && t.zero()
}

func (t *tilingTask) NextRequiredTask() {
	t.stateMu.Lock()
	sub, ok := t.tiler.Next()
	if t.tiler.Done() {
		t.allEmitted = true
	}
	t.stateMu.Unlock()
	if !ok {
		return
	}

	t.inc()
	t.adaptor.GenerateRegion(t, t.node, sub)
}

func (t *tilingTask) PerformSingle(node model.Node, rect model.Rectangle, tile *model.Tile) {
	if t.isSink || tile == nil {
		return
	}
	t.stateMu.Lock()
	defer t.stateMu.Unlock()
	_ = t.assembled.CopyOverlap(tile)
}

func (t *tilingTask) SinglePerformed() { t.dec() }

func (t *tilingTask) PerformFull() {
	// The real work already happened incrementally in PerformSingle (or,
	// for a sink, inside each canonical sub-task's own PerformFull).
}

func (t *tilingTask) Result() *model.Tile {
	if t.isSink {
		return nil
	}
	t.stateMu.Lock()
	defer t.stateMu.Unlock()
	return t.assembled
}

func (t *tilingTask) String() string {
	return fmt.Sprintf("tiling[%s @ %s]", t.node, t.rect)
}

// kernelPanic is recovered at the pool-worker boundary (run.go) and turned
// into a fatal error surfaced from Compute.
type kernelPanic struct {
	node model.Node
	rect model.Rectangle
	err  error
}
