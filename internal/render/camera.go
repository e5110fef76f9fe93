package render

import (
	"fmt"

	"github.com/splat-ml/diffsplat/internal/math3"
)

// DefaultTileSize is the side length in pixels of the square tiles used for
// binning and rasterization.
const DefaultTileSize = 16

// Camera is a fixed pinhole camera: a world-to-camera view matrix, the full
// world-to-NDC projection matrix (view composed with perspective, applied
// directly to world-space positions), focal lengths in pixels, and the
// output image size.
type Camera struct {
	View   math3.Mat4
	Proj   math3.Mat4
	Fx, Fy float32
	Width  int
	Height int
}

// Validate reports a configuration error before any computation starts.
func (c Camera) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("camera: invalid image size %dx%d", c.Width, c.Height)
	}
	if c.Fx <= 0 || c.Fy <= 0 {
		return fmt.Errorf("camera: invalid focal lengths fx=%g fy=%g", c.Fx, c.Fy)
	}
	return nil
}

// TileGrid is the fixed tiling of the output image.
type TileGrid struct {
	TileSize int
	TilesX   int
	TilesY   int
	Width    int // image width in pixels
	Height   int // image height in pixels
}

// NewTileGrid computes the tile grid covering a width×height image.
func NewTileGrid(width, height, tileSize int) (TileGrid, error) {
	if tileSize <= 0 {
		return TileGrid{}, fmt.Errorf("render: invalid tile size %d", tileSize)
	}
	if width <= 0 || height <= 0 {
		return TileGrid{}, fmt.Errorf("render: invalid image size %dx%d", width, height)
	}
	return TileGrid{
		TileSize: tileSize,
		TilesX:   (width + tileSize - 1) / tileSize,
		TilesY:   (height + tileSize - 1) / tileSize,
		Width:    width,
		Height:   height,
	}, nil
}

// NumTiles returns the total number of tiles in the grid.
func (g TileGrid) NumTiles() int { return g.TilesX * g.TilesY }

// tileBounds returns the pixel rectangle [x0, x1)×[y0, y1) of tile t.
// Edge tiles are clipped to the image.
func (g TileGrid) tileBounds(t int) (x0, y0, x1, y1 int) {
	tx := t % g.TilesX
	ty := t / g.TilesX
	x0 = tx * g.TileSize
	y0 = ty * g.TileSize
	x1 = min(x0+g.TileSize, g.Width)
	y1 = min(y0+g.TileSize, g.Height)
	return
}

// splatTileRect returns the tile-index rectangle [tx0, tx1)×[ty0, ty1)
// overlapped by a screen-space bounding circle at center with the given
// radius. The rectangle is clamped to the grid; an empty rectangle means the
// splat touches no tiles.
func (g TileGrid) splatTileRect(center math3.Vec2, radius int32) (tx0, ty0, tx1, ty1 int) {
	r := float32(radius)
	ts := float32(g.TileSize)
	tx0 = clampInt(int((center.X-r)/ts), 0, g.TilesX)
	tx1 = clampInt(int((center.X+r+ts)/ts), 0, g.TilesX)
	ty0 = clampInt(int((center.Y-r)/ts), 0, g.TilesY)
	ty1 = clampInt(int((center.Y+r+ts)/ts), 0, g.TilesY)
	return
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
