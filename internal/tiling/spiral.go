package tiling

import "github.com/gogpu/tilegraph/internal/model"

// simpleSpiral walks the tile grid cell by cell outward in concentric
// square rings from (xStart,yStart), bounded to [xMin,xMax]x[yMin,yMax].
// Ported from simple_spiral (generators/Spiral.hpp); the original also
// threads a SpiralSide through each step so callers can run a secondary
// Hilbert curve along each ring segment at sub-tile (pixel) granularity.
// Here a tile is already the scheduler's atomic request unit, so that
// secondary curve collapses to a no-op and is omitted — the ring-walk
// itself is ported faithfully.
func simpleSpiral(xStart, yStart, xMin, yMin, xMax, yMax int64, yield func(x, y int64)) {
	if xMax < xMin || yMax < yMin {
		return
	}
	yield(xStart, yStart)

	maximum := max64s(max64s(max64s(xStart-xMin, xMax-xStart), 0), max64s(max64s(yStart-yMin, yMax-yStart), 0))
	for i := int64(1); i <= maximum; i++ {
		x2, y2 := xStart+i, yStart+i
		right1 := x2 <= xMax
		bottom := y2 <= yMax
		left := xStart >= xMin+i
		top := yStart >= yMin+i
		right2 := x2+1 <= xMax

		x1c := clampedDif(xStart+boolToInt(left), i, xMin, xMax)
		y1c := yMin
		if yStart >= yMin+i {
			y1c = yStart - i
		}
		y2c := min64s(y2, yMax)

		if right1 {
			for y := yStart; y <= y2c; y++ {
				yield(x2, y)
			}
		}
		if bottom {
			for x := clampedDif(x2, boolToInt(right1), xMin, xMax); ; x-- {
				yield(x, y2)
				if x == x1c {
					break
				}
			}
		}
		if left {
			x1 := xStart - i
			for y := y2c; ; y-- {
				yield(x1, y)
				if y == y1c {
					break
				}
			}
		}
		if top {
			y1 := yStart - i
			x2c := min64s(x2+1-boolToInt(right2), xMax)
			for x := x1c; x <= x2c; x++ {
				yield(x, y1)
			}
		}
		if right2 {
			for y := y1c; y < yStart; y++ {
				yield(x2+1, y)
			}
		}
	}
}

func clampedDif(minuend, subtrahend, minV, maxV int64) int64 {
	if minuend >= minV+subtrahend {
		return min64s(minuend-subtrahend, maxV)
	}
	return minV
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func max64s(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func min64s(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func clampTile(v, lo, hi uint64) uint64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SinkTileOrder returns rect's covering canonical tiles in a spiral order
// centered on (centerX,centerY), used when requesting a sink's tiles
//.
func SinkTileOrder(rect model.Rectangle, tileW, tileH, nodeW, nodeH, centerX, centerY uint64) []model.Rectangle {
	left, top, right, bottom, ok := tileGridBounds(rect, tileW, tileH)
	if !ok {
		return nil
	}
	startX := clampTile(centerX/tileW, left, right)
	startY := clampTile(centerY/tileH, top, bottom)

	out := make([]model.Rectangle, 0, (right-left+1)*(bottom-top+1))
	simpleSpiral(int64(startX), int64(startY), int64(left), int64(top), int64(right), int64(bottom),
		func(tx, ty int64) {
			out = append(out, canonicalTile(tx, ty, tileW, tileH, nodeW, nodeH))
		})
	return out
}
