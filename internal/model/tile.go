package model

import "errors"

// ErrChannelMismatch is returned when two tiles being merged disagree on
// channel count or element size.
var ErrChannelMismatch = errors.New("tilegraph: channel count mismatch")

// Tile is an immutable rectangle of pixels. Data is channel-major:
// element (x,y,c) lives at offset (Channels*(y*Rect.Width+x)+c)*ElementBytes.
type Tile struct {
	Rect         Rectangle
	Channels     int
	ElementBytes int
	Data         []byte
}

// NewTile allocates a zeroed tile covering rect.
func NewTile(rect Rectangle, channels, elementBytes int) *Tile {
	t := &Tile{Rect: rect, Channels: channels, ElementBytes: elementBytes}
	t.Data = make([]byte, t.ByteSize())
	return t
}

// ByteSize returns the size of Data implied by Rect, Channels and ElementBytes.
func (t *Tile) ByteSize() int {
	return int(t.Rect.Width) * int(t.Rect.Height) * t.Channels * t.ElementBytes
}

// Offset returns the byte offset of pixel (x,y) within Data, where x and y
// are relative to Rect's top-left corner.
func (t *Tile) Offset(x, y uint64) int {
	return int(y*t.Rect.Width+x) * t.Channels * t.ElementBytes
}

// CopyOverlap copies the region of src that overlaps t's rectangle into t,
// byte for byte, channel-major. Channel count and element size must match.
func (t *Tile) CopyOverlap(src *Tile) error {
	if t.Channels != src.Channels || t.ElementBytes != src.ElementBytes {
		return ErrChannelMismatch
	}
	overlap := t.Rect.Clip(src.Rect)
	if overlap.Empty() {
		return nil
	}
	rowBytes := int(overlap.Width) * t.Channels * t.ElementBytes
	for y := overlap.Top; y < overlap.Bottom(); y++ {
		dstOff := t.Offset(overlap.Left-t.Rect.Left, y-t.Rect.Top)
		srcOff := src.Offset(overlap.Left-src.Rect.Left, y-src.Rect.Top)
		copy(t.Data[dstOff:dstOff+rowBytes], src.Data[srcOff:srcOff+rowBytes])
	}
	return nil
}
