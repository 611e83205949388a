package tilegraph

import "github.com/gogpu/tilegraph/internal/model"

// Point is an integer pixel coordinate.
type Point = model.Point

// Rectangle is an axis-aligned, non-negative integer rectangle described by
// its top-left corner and its extent. A Rectangle with zero Width or Height
// is empty.
type Rectangle = model.Rectangle

// FRectangle is a floating-point axis-aligned rectangle, produced by
// Rectangle.Scale and consumed by FRectangle.BoundingRectangle.
type FRectangle = model.FRectangle

// NewRectangle builds a rectangle from a corner and an extent.
func NewRectangle(left, top, width, height uint64) Rectangle {
	return model.NewRectangle(left, top, width, height)
}
