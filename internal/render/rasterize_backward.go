package render

import (
	"math"

	"github.com/splat-ml/diffsplat/internal/parallel"
)

// screenGrads accumulates per-splat gradients in screen space: the output of
// the rasterizer's backward pass and the input to the projection's.
type screenGrads struct {
	Means2D   []float32 // [N, 2]
	Conics    []float32 // [N, 3]
	Opacities []float32 // [N]
	Colors    []float32 // [N, 3]
}

func newScreenGrads(n int) *screenGrads {
	return &screenGrads{
		Means2D:   make([]float32, 2*n),
		Conics:    make([]float32, 3*n),
		Opacities: make([]float32, n),
		Colors:    make([]float32, 3*n),
	}
}

func (g *screenGrads) add(o *screenGrads) {
	addInto(g.Means2D, o.Means2D)
	addInto(g.Conics, o.Conics)
	addInto(g.Opacities, o.Opacities)
	addInto(g.Colors, o.Colors)
}

func addInto(dst, src []float32) {
	for i, v := range src {
		dst[i] += v
	}
}

// RasterizeBackward converts a loss gradient on the output image into
// gradients on each splat's color, opacity, conic, and 2D mean.
//
// Every pixel re-traverses its tile's sorted list back to front, starting
// from the forward pass's saved final transmittance and last contributor.
// The per-step transmittance is recovered by division rather than stored,
// and the forward skip and clamp rules are applied identically, so the
// gradients correspond exactly to what forward composited.
//
// Many pixels contribute to one splat, so accumulation is an associative
// sum: each worker owns a private accumulator and the partial sums are
// reduced afterwards in worker order, keeping the result deterministic.
func RasterizeBackward(img *Image, gradOut []float32, proj *Projection, bins *Bins, scene *Scene, grid TileGrid, background [3]float32, cfg parallel.Config) *screenGrads {
	n := scene.NumSplats()
	numTiles := grid.NumTiles()

	workers := cfg.Workers(numTiles)
	partials := make([]*screenGrads, workers)
	parallel.Chunks(numTiles, func(worker, start, end int) {
		acc := newScreenGrads(n)
		partials[worker] = acc
		for t := start; t < end; t++ {
			backwardTile(acc, img, gradOut, proj, bins, scene, grid, background, t)
		}
	}, cfg)

	total := partials[0]
	for _, p := range partials[1:] {
		total.add(p)
	}
	return total
}

func backwardTile(acc *screenGrads, img *Image, gradOut []float32, proj *Projection, bins *Bins, scene *Scene, grid TileGrid, background [3]float32, tile int) {
	start := bins.Ranges[tile][0]
	x0, y0, x1, y1 := grid.tileBounds(tile)

	for py := y0; py < y1; py++ {
		for px := x0; px < x1; px++ {
			backwardPixel(acc, img, gradOut, proj, bins, scene, background, start, px, py)
		}
	}
}

func backwardPixel(acc *screenGrads, img *Image, gradOut []float32, proj *Projection, bins *Bins, scene *Scene, background [3]float32, start int32, px, py int) {
	pix := py*img.Width + px
	vOutR := gradOut[3*pix+0]
	vOutG := gradOut[3*pix+1]
	vOutB := gradOut[3*pix+2]

	fx := float32(px)
	fy := float32(py)

	// Transmittance after the most recent (back-to-front) contribution.
	tAfter := img.finalT[pix]
	finalT := img.finalT[pix]
	bgDot := background[0]*vOutR + background[1]*vOutG + background[2]*vOutB

	// Running color composited behind the current splat.
	var accR, accG, accB float32

	for idx := start + img.lastContrib[pix] - 1; idx >= start; idx-- {
		s := bins.Entries[idx].Splat

		dx := proj.Means2D[2*s+0] - fx
		dy := proj.Means2D[2*s+1] - fy
		ca := proj.Conics[3*s+0]
		cb := proj.Conics[3*s+1]
		cc := proj.Conics[3*s+2]

		sigma := 0.5*(ca*dx*dx+cc*dy*dy) + cb*dx*dy
		if sigma < 0 {
			continue
		}
		opacity := clamp01(scene.Opacities[s])
		vis := float32(math.Exp(float64(-sigma)))
		alpha := opacity * vis
		if alpha < alphaMin {
			continue
		}
		alpha = min(alpha, alphaMax)

		// Transmittance in front of this splat, recovered by division;
		// the alpha clamp keeps 1-alpha >= 1e-3.
		t := tAfter / (1 - alpha)
		w := alpha * t

		cr := scene.Colors[3*s+0]
		cg := scene.Colors[3*s+1]
		cbl := scene.Colors[3*s+2]

		acc.Colors[3*s+0] += w * vOutR
		acc.Colors[3*s+1] += w * vOutG
		acc.Colors[3*s+2] += w * vOutB

		// d(out)/d(alpha): the direct term through this splat's color minus
		// the indirect term through the transmittance of everything behind
		// it, including the background.
		vAlpha := t*((cr-accR)*vOutR+(cg-accG)*vOutG+(cbl-accB)*vOutB) -
			finalT/(1-alpha)*bgDot

		accR = alpha*cr + (1-alpha)*accR
		accG = alpha*cg + (1-alpha)*accG
		accB = alpha*cbl + (1-alpha)*accB

		// Chain into opacity and the Gaussian weight. An opacity past the
		// upper clamp is saturated and gets zero gradient; below-zero
		// opacities never reach this point (alpha floor).
		if scene.Opacities[s] <= 1 {
			acc.Opacities[s] += vis * vAlpha
		}
		vSigma := -opacity * vis * vAlpha

		acc.Conics[3*s+0] += 0.5 * dx * dx * vSigma
		acc.Conics[3*s+1] += dx * dy * vSigma
		acc.Conics[3*s+2] += 0.5 * dy * dy * vSigma
		acc.Means2D[2*s+0] += (ca*dx + cb*dy) * vSigma
		acc.Means2D[2*s+1] += (cb*dx + cc*dy) * vSigma

		tAfter = t
	}
}
