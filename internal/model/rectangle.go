// Package model holds the data types shared across the public tilegraph
// package and every internal scheduling package (sched, proto, anneal,
// tiling). Splitting them out here — rather than defining them in
// tilegraph itself — lets internal/sched and internal/proto depend on
// Node/Task/Adaptor without importing tilegraph, which in turn imports
// them to implement Graph.Compute; tilegraph re-exports every type here
// under its own name via type aliases.
package model

import (
	"fmt"
	"math"
)

// Point is an integer pixel coordinate.
type Point struct {
	X, Y uint64
}

// Rectangle is an axis-aligned, non-negative integer rectangle described by
// its top-left corner and its extent. A Rectangle with zero Width or Height
// is empty.
type Rectangle struct {
	Left, Top, Width, Height uint64
}

// NewRectangle builds a rectangle from a corner and an extent.
func NewRectangle(left, top, width, height uint64) Rectangle {
	return Rectangle{Left: left, Top: top, Width: width, Height: height}
}

// Empty reports whether the rectangle has no area.
func (r Rectangle) Empty() bool { return r.Width == 0 || r.Height == 0 }

// Right returns the exclusive right edge (Left + Width).
func (r Rectangle) Right() uint64 { return r.Left + r.Width }

// Bottom returns the exclusive bottom edge (Top + Height).
func (r Rectangle) Bottom() uint64 { return r.Top + r.Height }

// Area returns Width*Height.
func (r Rectangle) Area() uint64 { return r.Width * r.Height }

// String renders the rectangle as "(left,top)+widthxheight".
func (r Rectangle) String() string {
	return fmt.Sprintf("(%d,%d)+%dx%d", r.Left, r.Top, r.Width, r.Height)
}

// Clip returns the intersection of r and other, or an empty rectangle if
// they are disjoint.
func (r Rectangle) Clip(other Rectangle) Rectangle {
	left := max64(r.Left, other.Left)
	top := max64(r.Top, other.Top)
	right := min64(r.Right(), other.Right())
	bottom := min64(r.Bottom(), other.Bottom())
	if right <= left || bottom <= top {
		return Rectangle{}
	}
	return Rectangle{Left: left, Top: top, Width: right - left, Height: bottom - top}
}

// ClipToDimensions clips r to the half-open rectangle [0,width) x [0,height).
func (r Rectangle) ClipToDimensions(width, height uint64) Rectangle {
	return r.Clip(Rectangle{Width: width, Height: height})
}

// Bound returns the smallest rectangle containing both r and other. If one
// operand is empty, the other is returned unchanged.
func (r Rectangle) Bound(other Rectangle) Rectangle {
	if r.Empty() {
		return other
	}
	if other.Empty() {
		return r
	}
	left := min64(r.Left, other.Left)
	top := min64(r.Top, other.Top)
	right := max64(r.Right(), other.Right())
	bottom := max64(r.Bottom(), other.Bottom())
	return Rectangle{Left: left, Top: top, Width: right - left, Height: bottom - top}
}

// Overlap returns the area of the intersection of r and other.
func (r Rectangle) Overlap(other Rectangle) uint64 {
	return r.Clip(other).Area()
}

// SubsetOf reports whether r is fully contained within other. An empty
// rectangle is a subset of everything.
func (r Rectangle) SubsetOf(other Rectangle) bool {
	if r.Empty() {
		return true
	}
	return r.Left >= other.Left && r.Top >= other.Top &&
		r.Right() <= other.Right() && r.Bottom() <= other.Bottom()
}

// Extend grows r by the given non-negative margins on each side, saturating
// at 0 on the top-left.
func (r Rectangle) Extend(left, top, right, bottom uint64) Rectangle {
	newLeft := satSub(r.Left, left)
	newTop := satSub(r.Top, top)
	return Rectangle{
		Left:   newLeft,
		Top:    newTop,
		Width:  (r.Right() + right) - newLeft,
		Height: (r.Bottom() + bottom) - newTop,
	}
}

// Scale produces a floating-point rectangle scaled by (sx, sy).
func (r Rectangle) Scale(sx, sy float64) FRectangle {
	return FRectangle{
		Left:   float64(r.Left) * sx,
		Top:    float64(r.Top) * sy,
		Width:  float64(r.Width) * sx,
		Height: float64(r.Height) * sy,
	}
}

// Equal reports whether r and other describe the same rectangle, treating
// all empty rectangles as equal.
func (r Rectangle) Equal(other Rectangle) bool {
	if r.Empty() && other.Empty() {
		return true
	}
	return r == other
}

// FRectangle is a floating-point axis-aligned rectangle, produced by Scale
// and consumed by BoundingRectangle.
type FRectangle struct {
	Left, Top, Width, Height float64
}

// BoundingRectangle returns the smallest integer Rectangle containing fr.
func (fr FRectangle) BoundingRectangle() Rectangle {
	if fr.Width <= 0 || fr.Height <= 0 {
		return Rectangle{}
	}
	left := math.Floor(fr.Left)
	top := math.Floor(fr.Top)
	right := math.Ceil(fr.Left + fr.Width)
	bottom := math.Ceil(fr.Top + fr.Height)
	if left < 0 {
		left = 0
	}
	if top < 0 {
		top = 0
	}
	if right < left {
		right = left
	}
	if bottom < top {
		bottom = top
	}
	return Rectangle{
		Left:   uint64(left),
		Top:    uint64(top),
		Width:  uint64(right - left),
		Height: uint64(bottom - top),
	}
}

func max64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}

func min64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

func satSub(a, b uint64) uint64 {
	if b >= a {
		return 0
	}
	return a - b
}
