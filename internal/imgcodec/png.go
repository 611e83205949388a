// Package imgcodec bridges tilegraph.Tile buffers and the stdlib image
// codecs: decoding a source PNG into a FULL_MEMORY node's resident tile,
// and encoding a sink's assembled tile back out. It is not part of the
// execution core (spec.md §1 scopes file I/O adapters out of the core) and
// no package in this module imports it.
package imgcodec

import (
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"io"

	"github.com/gogpu/tilegraph/internal/model"
)

// DecodePNG reads a PNG from r and returns it as a channels-major RGBA
// tile (4 channels, 1 byte each) anchored at the origin.
func DecodePNG(r io.Reader) (*model.Tile, error) {
	img, err := png.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("imgcodec: decode PNG: %w", err)
	}
	return ImageToTile(img), nil
}

// EncodePNG writes tile to w as a PNG. tile must carry 4 channels (RGBA) of
// 1 byte each.
func EncodePNG(w io.Writer, tile *model.Tile) error {
	img, err := TileToImage(tile)
	if err != nil {
		return fmt.Errorf("imgcodec: encode PNG: %w", err)
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("imgcodec: encode PNG: %w", err)
	}
	return nil
}

// ImageToTile converts any image.Image into a channels-major RGBA tile
// (4 channels, 1 byte each) anchored at the origin, regardless of img's
// own bounds offset.
func ImageToTile(img image.Image) *model.Tile {
	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, img, bounds.Min, draw.Src)

	w, h := uint64(bounds.Dx()), uint64(bounds.Dy())
	tile := model.NewTile(model.NewRectangle(0, 0, w, h), 4, 1)
	for y := uint64(0); y < h; y++ {
		srcOff := rgba.PixOffset(bounds.Min.X, bounds.Min.Y+int(y))
		dstOff := tile.Offset(0, y)
		rowBytes := int(w) * 4
		copy(tile.Data[dstOff:dstOff+rowBytes], rgba.Pix[srcOff:srcOff+rowBytes])
	}
	return tile
}

// TileToImage converts a 4-channel, 1-byte-per-element tile into an
// *image.RGBA anchored at the origin.
func TileToImage(tile *model.Tile) (*image.RGBA, error) {
	if tile.Channels != 4 || tile.ElementBytes != 1 {
		return nil, model.ErrChannelMismatch
	}
	width, height := int(tile.Rect.Width), int(tile.Rect.Height)
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		srcOff := tile.Offset(0, uint64(y))
		rowBytes := width * 4
		dstOff := img.PixOffset(0, y)
		copy(img.Pix[dstOff:dstOff+rowBytes], tile.Data[srcOff:srcOff+rowBytes])
	}
	return img, nil
}
