package render

import (
	"math"

	"github.com/splat-ml/diffsplat/internal/parallel"
)

const (
	// alphaMax clamps per-splat effective alpha so a single splat can never
	// fully saturate a pixel; full saturation would make the compositing
	// derivative discontinuous.
	alphaMax = 0.999
	// alphaMin is the contribution floor; splats below it are skipped in
	// both passes.
	alphaMin = 1.0 / 255.0
	// transmittanceMin is the early-exit threshold on remaining
	// transmittance. The backward pass reproduces the same cutoff so
	// gradients stay consistent with what forward actually composited.
	transmittanceMin = 1e-4
)

// Image is the output of the forward rasterizer: an H×W×3 color buffer plus
// the per-pixel compositing state the backward pass resumes from — final
// transmittance and the per-pixel count of composited tile entries.
type Image struct {
	Width  int
	Height int
	Pix    []float32 // [H, W, 3]

	finalT      []float32 // [H, W] transmittance after the last contribution
	lastContrib []int32   // [H, W] entries consumed within the pixel's tile range
}

func newImage(width, height int) *Image {
	return &Image{
		Width:       width,
		Height:      height,
		Pix:         make([]float32, height*width*3),
		finalT:      make([]float32, height*width),
		lastContrib: make([]int32, height*width),
	}
}

// Rasterize composites every tile's sorted splat list front to back into an
// image. One goroutine owns one tile at a time, and each pixel's list is
// walked serially, so depth-ordered writes need no locking.
func Rasterize(proj *Projection, bins *Bins, scene *Scene, grid TileGrid, background [3]float32, cfg parallel.Config) *Image {
	img := newImage(grid.Width, grid.Height)
	parallel.For(grid.NumTiles(), func(t int) {
		rasterizeTile(img, proj, bins, scene, grid, background, t)
	}, cfg)
	return img
}

func rasterizeTile(img *Image, proj *Projection, bins *Bins, scene *Scene, grid TileGrid, background [3]float32, tile int) {
	start, end := bins.Ranges[tile][0], bins.Ranges[tile][1]
	x0, y0, x1, y1 := grid.tileBounds(tile)

	for py := y0; py < y1; py++ {
		for px := x0; px < x1; px++ {
			rasterizePixel(img, proj, bins, scene, background, start, end, px, py)
		}
	}
}

func rasterizePixel(img *Image, proj *Projection, bins *Bins, scene *Scene, background [3]float32, start, end int32, px, py int) {
	fx := float32(px)
	fy := float32(py)

	var r, g, b float32
	t := float32(1)
	contrib := int32(0)

	for idx := start; idx < end; idx++ {
		s := bins.Entries[idx].Splat
		alpha, ok := splatAlpha(proj, scene, s, fx, fy)
		if !ok {
			contrib = idx - start + 1
			continue
		}
		nextT := t * (1 - alpha)
		if nextT < transmittanceMin {
			// This splat is not composited; the pixel is saturated.
			break
		}
		w := alpha * t
		r += w * scene.Colors[3*s+0]
		g += w * scene.Colors[3*s+1]
		b += w * scene.Colors[3*s+2]
		t = nextT
		contrib = idx - start + 1
	}

	pix := py*img.Width + px
	img.Pix[3*pix+0] = r + t*background[0]
	img.Pix[3*pix+1] = g + t*background[1]
	img.Pix[3*pix+2] = b + t*background[2]
	img.finalT[pix] = t
	img.lastContrib[pix] = contrib
}

// splatAlpha evaluates the clamped effective alpha of splat s at pixel
// (fx, fy). ok is false when the splat is skipped at this pixel — negative
// quadratic form or contribution below the floor — and the skip rule is
// shared verbatim with the backward pass.
func splatAlpha(proj *Projection, scene *Scene, s int32, fx, fy float32) (alpha float32, ok bool) {
	dx := proj.Means2D[2*s+0] - fx
	dy := proj.Means2D[2*s+1] - fy
	ca := proj.Conics[3*s+0]
	cb := proj.Conics[3*s+1]
	cc := proj.Conics[3*s+2]

	sigma := 0.5*(ca*dx*dx+cc*dy*dy) + cb*dx*dy
	if sigma < 0 {
		return 0, false
	}
	opacity := clamp01(scene.Opacities[s])
	alpha = opacity * float32(math.Exp(float64(-sigma)))
	if alpha < alphaMin {
		return 0, false
	}
	return min(alpha, alphaMax), true
}

func clamp01(v float32) float32 {
	return min(max(v, 0), 1)
}
