// Package tiling enumerates a node's canonical tile rectangles in the
// space-filling-curve order the scheduler requests them in: plain
// Hilbert order for interior nodes, a square spiral centered on a sink's
// point of interest for sink nodes.
package tiling

import "github.com/gogpu/tilegraph/internal/model"

type direction bool

const (
	dirX direction = false
	dirY direction = true
)

func (d direction) flip() direction { return !d }

// gilbertCurve walks the generalized Hilbert curve covering the width x
// height grid anchored at (x,y), invoking yield once per cell in curve
// order. Ported from the gilbert2d/gilbert2d_inner recursion (itself a
// C++ translation of github.com/Fingolfin1196/gilbert, BSD-2-Clause).
func gilbertCurve(x, y, width, height int64, yield func(x, y int64)) {
	dir := dirX
	if height > width {
		dir = dirY
	}
	if dir == dirX {
		gilbertInner(dirX, x, y, width, height, yield)
	} else {
		gilbertInner(dirY, x, y, height, width, yield)
	}
}

func gilbertInner(majorDir direction, x, y, major, minor int64, yield func(x, y int64)) {
	majorDim, minorDim := abs64(major), abs64(minor)
	majorStep, minorStep := sign64(major), sign64(minor)

	if minorDim == 1 {
		if majorDir == dirX {
			for i := int64(0); i < majorDim; i++ {
				yield(x, y)
				x += majorStep
			}
		} else {
			for i := int64(0); i < majorDim; i++ {
				yield(x, y)
				y += majorStep
			}
		}
		return
	}
	if majorDim == 1 {
		if majorDir == dirY {
			for i := int64(0); i < minorDim; i++ {
				yield(x, y)
				x += minorStep
			}
		} else {
			for i := int64(0); i < minorDim; i++ {
				yield(x, y)
				y += minorStep
			}
		}
		return
	}

	major2, minor2 := major/2, minor/2

	if 2*majorDim > 3*minorDim {
		if abs64(major2)%2 == 1 && majorDim > 2 {
			major2 += majorStep
		}
		gilbertInner(majorDir, x, y, major2, minor, yield)
		if majorDir == dirX {
			x += major2
		} else {
			y += major2
		}
		gilbertInner(majorDir, x, y, major-major2, minor, yield)
		return
	}

	if abs64(minor2)%2 == 1 && minorDim > 2 {
		minor2 += minorStep
	}
	gilbertInner(majorDir.flip(), x, y, minor2, major2, yield)
	if majorDir == dirX {
		y += minor2
	} else {
		x += minor2
	}
	gilbertInner(majorDir, x, y, major, minor-minor2, yield)
	if majorDir == dirX {
		x += major - majorStep
		y -= minorStep
	} else {
		x -= minorStep
		y += major - majorStep
	}
	gilbertInner(majorDir.flip(), x, y, -minor2, major2-major, yield)
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func sign64(v int64) int64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// TileOrder returns rect's covering canonical tiles (of size tileW x
// tileH, clipped to a node sized nodeW x nodeH) in Hilbert order.
func TileOrder(rect model.Rectangle, tileW, tileH, nodeW, nodeH uint64) []model.Rectangle {
	left, top, right, bottom, ok := tileGridBounds(rect, tileW, tileH)
	if !ok {
		return nil
	}
	width := int64(right - left + 1)
	height := int64(bottom - top + 1)

	out := make([]model.Rectangle, 0, width*height)
	gilbertCurve(int64(left), int64(top), width, height, func(px, py int64) {
		out = append(out, canonicalTile(px, py, tileW, tileH, nodeW, nodeH))
	})
	return out
}

func tileGridBounds(rect model.Rectangle, tileW, tileH uint64) (left, top, right, bottom uint64, ok bool) {
	if rect.Empty() || tileW == 0 || tileH == 0 {
		return 0, 0, 0, 0, false
	}
	left = rect.Left / tileW
	right = (rect.Left + rect.Width - 1) / tileW
	top = rect.Top / tileH
	bottom = (rect.Top + rect.Height - 1) / tileH
	return left, top, right, bottom, true
}

func canonicalTile(tx, ty int64, tileW, tileH, nodeW, nodeH uint64) model.Rectangle {
	full := model.NewRectangle(uint64(tx)*tileW, uint64(ty)*tileH, tileW, tileH)
	return full.ClipToDimensions(nodeW, nodeH)
}
