package proto

import (
	"github.com/gogpu/tilegraph/internal/model"
	"github.com/gogpu/tilegraph/internal/tiling"
)

// NewProtoTask returns the model.ProtoTask enumerating rect's dependencies
// for node, splitting into a tiling task when rect is not a canonical tile
// and a leaf task when it is, mirroring sched.NewTask without ever
// touching pixels.
func NewProtoTask(node model.Node, rect model.Rectangle) model.ProtoTask {
	tw, th := node.TileDimensions()
	nw, nh := node.Dimensions()
	if tiling.IsCanonical(rect, tw, th, nw, nh) {
		return &leafTask{node: node, rect: rect}
	}
	return newTilingTask(node, rect)
}

// leafTask enumerates one canonical tile's input dependencies in input
// order.
type leafTask struct {
	node model.Node
	rect model.Rectangle
	next int
}

func (t *leafTask) Node() model.Node        { return t.node }
func (t *leafTask) Region() model.Rectangle { return t.rect }

func (t *leafTask) AllGenerated() bool { return t.next >= t.node.InputCount() }

func (t *leafTask) NextRequiredRegion() (model.Node, model.Rectangle, bool) {
	if t.next >= t.node.InputCount() {
		return nil, model.Rectangle{}, false
	}
	i := t.next
	t.next++
	return t.node.InputNode(i), t.node.InputRegion(i, t.rect), true
}

// tilingTask enumerates a non-canonical rectangle's canonical sub-tiles,
// each requested from the node itself.
type tilingTask struct {
	node  model.Node
	rect  model.Rectangle
	tiler *tiling.Tiler
}

func newTilingTask(node model.Node, rect model.Rectangle) *tilingTask {
	tw, th := node.TileDimensions()
	nw, nh := node.Dimensions()

	var order []model.Rectangle
	if sink, ok := node.(model.Sink); ok {
		cx, cy := sink.CentralPoint()
		order = tiling.SinkTileOrder(rect, tw, th, nw, nh, uint64(cx), uint64(cy))
	} else {
		order = tiling.TileOrder(rect, tw, th, nw, nh)
	}
	return &tilingTask{node: node, rect: rect, tiler: tiling.NewTiler(order)}
}

func (t *tilingTask) Node() model.Node        { return t.node }
func (t *tilingTask) Region() model.Rectangle { return t.rect }

func (t *tilingTask) AllGenerated() bool { return t.tiler.Done() }

func (t *tilingTask) NextRequiredRegion() (model.Node, model.Rectangle, bool) {
	sub, ok := t.tiler.Next()
	if !ok {
		return nil, model.Rectangle{}, false
	}
	return t.node, sub, true
}
