package tiling

import "github.com/gogpu/tilegraph/internal/model"

// IsCanonical reports whether rect is exactly the canonical tile covering
// its grid cell for a node sized nodeW x nodeH tiled at tileW x tileH. A
// task at a canonical rectangle is a compute task; anything else is
// a tiling task.
func IsCanonical(rect model.Rectangle, tileW, tileH, nodeW, nodeH uint64) bool {
	if rect.Empty() || tileW == 0 || tileH == 0 {
		return false
	}
	if rect.Left%tileW != 0 || rect.Top%tileH != 0 {
		return false
	}
	want := canonicalTile(int64(rect.Left/tileW), int64(rect.Top/tileH), tileW, tileH, nodeW, nodeH)
	return rect.Equal(want)
}

// Tiler is a lazy, forward-only iterator over a precomputed list of
// canonical tile rectangles. It carries no global
// state and must be constructed fresh for each task; it is not safe to
// restart across tasks, only to be driven one Next() at a time within the
// task that owns it.
type Tiler struct {
	order []model.Rectangle
	pos   int
}

// NewTiler wraps a precomputed tile order (typically from TileOrder or
// SinkTileOrder) as a forward-only iterator.
func NewTiler(order []model.Rectangle) *Tiler {
	return &Tiler{order: order}
}

// Next returns the next rectangle in the order, or false once exhausted.
func (t *Tiler) Next() (model.Rectangle, bool) {
	if t.pos >= len(t.order) {
		return model.Rectangle{}, false
	}
	r := t.order[t.pos]
	t.pos++
	return r, true
}

// Len returns the total number of rectangles in the order.
func (t *Tiler) Len() int { return len(t.order) }

// Remaining returns the number of rectangles not yet returned by Next.
func (t *Tiler) Remaining() int { return len(t.order) - t.pos }

// Done reports whether every rectangle has been returned.
func (t *Tiler) Done() bool { return t.pos >= len(t.order) }
