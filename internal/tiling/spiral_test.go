package tiling

import (
	"testing"

	"github.com/gogpu/tilegraph/internal/model"
)

func TestSinkTileOrder_CoversWholeNodeExactlyOnce(t *testing.T) {
	node := model.NewRectangle(0, 0, 200, 150)
	rects := SinkTileOrder(node, 64, 64, 200, 150, 100, 75)

	wantTiles := 4 * 3
	if len(rects) != wantTiles {
		t.Fatalf("len(rects) = %d, want %d", len(rects), wantTiles)
	}
	seen := countCells(t, rects)
	for r, n := range seen {
		if n != 1 {
			t.Errorf("tile %v visited %d times, want 1", r, n)
		}
	}
}

func TestSinkTileOrder_FirstTileContainsCenter(t *testing.T) {
	node := model.NewRectangle(0, 0, 256, 256)
	centerX, centerY := uint64(150), uint64(40)
	rects := SinkTileOrder(node, 32, 32, 256, 256, centerX, centerY)

	first := rects[0]
	if centerX < first.Left || centerX >= first.Right() || centerY < first.Top || centerY >= first.Bottom() {
		t.Errorf("first tile %v does not contain centre (%d,%d)", first, centerX, centerY)
	}
}

func TestSinkTileOrder_CenterOutsideNodeClampsToGrid(t *testing.T) {
	node := model.NewRectangle(0, 0, 128, 128)
	// Centre far outside the node must still produce a full, valid cover.
	rects := SinkTileOrder(node, 32, 32, 128, 128, 10_000, 10_000)
	if len(rects) != 16 {
		t.Fatalf("len(rects) = %d, want 16", len(rects))
	}
}

func TestSinkTileOrder_EmptyRectReturnsNil(t *testing.T) {
	if got := SinkTileOrder(model.Rectangle{}, 32, 32, 128, 128, 0, 0); got != nil {
		t.Errorf("SinkTileOrder(empty) = %v, want nil", got)
	}
}

func TestSinkTileOrder_Deterministic(t *testing.T) {
	node := model.NewRectangle(0, 0, 160, 96)
	a := SinkTileOrder(node, 32, 32, 160, 96, 50, 50)
	b := SinkTileOrder(node, 32, 32, 160, 96, 50, 50)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("order differs at %d: %v vs %v", i, a[i], b[i])
		}
	}
}
