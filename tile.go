package tilegraph

import "github.com/gogpu/tilegraph/internal/model"

// Tile is an immutable rectangle of pixels. Data is channel-major:
// element (x,y,c) lives at offset (Channels*(y*Rect.Width+x)+c)*ElementBytes.
type Tile = model.Tile

// NewTile allocates a zeroed tile covering rect.
func NewTile(rect Rectangle, channels, elementBytes int) *Tile {
	return model.NewTile(rect, channels, elementBytes)
}
