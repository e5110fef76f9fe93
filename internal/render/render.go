// Package render implements differentiable rasterization of anisotropic 3D
// Gaussian splats.
//
// A render call runs four stages: covariance building and projection (per
// splat), tile binning with one global depth sort, and front-to-back alpha
// compositing (per pixel). The intermediate buffers of every stage are
// retained on the returned Output, and Backward replays the compositing
// back to front over the same sorted lists to produce analytic gradients
// for every splat parameter.
package render

import (
	"fmt"

	"github.com/splat-ml/diffsplat/internal/parallel"
)

// Config holds the per-call rendering options.
type Config struct {
	// GlobalScale uniformly scales every splat's extent.
	GlobalScale float32
	// TileSize is the side length of the square rasterization tiles.
	TileSize int
	// Background is composited behind the splats, weighted by each pixel's
	// remaining transmittance.
	Background [3]float32
	// Parallel controls the worker pool for the data-parallel loops.
	Parallel parallel.Config
}

// DefaultConfig returns the standard options: unit global scale, 16×16
// tiles, black background, parallelism from the CPU count.
func DefaultConfig() Config {
	return Config{
		GlobalScale: 1,
		TileSize:    DefaultTileSize,
		Background:  [3]float32{0, 0, 0},
		Parallel:    parallel.DefaultConfig(),
	}
}

// Output is the result of a forward render together with everything the
// paired backward pass needs: the projection buffers, the sorted tile bins,
// and the per-pixel compositing state. The buffers are owned by the Output
// and are read-only from the caller's perspective.
type Output struct {
	Image *Image

	scene *Scene
	cam   Camera
	grid  TileGrid
	cfg   Config
	proj  *Projection
	bins  *Bins
}

// Gradients holds one gradient array per splat parameter, each shaped
// exactly like its forward input.
type Gradients struct {
	Means     []float32 // [N, 3]
	Scales    []float32 // [N, 3]
	Quats     []float32 // [N, 4]
	Opacities []float32 // [N]
	Colors    []float32 // [N, 3]
}

// Render projects, bins, and rasterizes a scene. Structural problems
// (mismatched array lengths, an invalid camera or tile grid) are reported
// before any computation starts; per-splat numerical edge cases are absorbed
// by the pipeline and never fail the call.
func Render(scene *Scene, cam Camera, cfg Config) (*Output, error) {
	if err := scene.Validate(); err != nil {
		return nil, err
	}
	if err := cam.Validate(); err != nil {
		return nil, err
	}
	if cfg.GlobalScale < 0 {
		return nil, fmt.Errorf("render: global scale must be >= 0, got %g", cfg.GlobalScale)
	}
	grid, err := NewTileGrid(cam.Width, cam.Height, cfg.TileSize)
	if err != nil {
		return nil, err
	}

	proj := Project(scene, cfg.GlobalScale, cam, grid, cfg.Parallel)
	bins := Bin(proj, grid)
	img := Rasterize(proj, bins, scene, grid, cfg.Background, cfg.Parallel)

	return &Output{
		Image: img,
		scene: scene,
		cam:   cam,
		grid:  grid,
		cfg:   cfg,
		proj:  proj,
		bins:  bins,
	}, nil
}

// RasterizeProjected bins and rasterizes splats that were already projected,
// attaching colors and opacities supplied on the scene. It is the second
// half of Render, for callers that run Project separately.
func RasterizeProjected(proj *Projection, scene *Scene, cam Camera, grid TileGrid, cfg Config) *Output {
	bins := Bin(proj, grid)
	img := Rasterize(proj, bins, scene, grid, cfg.Background, cfg.Parallel)
	return &Output{
		Image: img,
		scene: scene,
		cam:   cam,
		grid:  grid,
		cfg:   cfg,
		proj:  proj,
		bins:  bins,
	}
}

// Projection exposes the saved screen-space buffers of the forward pass.
func (o *Output) Projection() *Projection { return o.proj }

// Backward computes the gradient of a scalar loss with respect to every
// splat parameter, given gradOut, the loss gradient with respect to the
// output image as a flat [H, W, 3] array. It reuses the forward pass's
// sorted tile lists and saved per-pixel state; the compositing order is
// never recomputed.
func (o *Output) Backward(gradOut []float32) (*Gradients, error) {
	want := o.grid.Height * o.grid.Width * 3
	if len(gradOut) != want {
		return nil, fmt.Errorf("render: output gradient length %d, want %d (%dx%dx3)",
			len(gradOut), want, o.grid.Height, o.grid.Width)
	}

	sg := RasterizeBackward(o.Image, gradOut, o.proj, o.bins, o.scene, o.grid, o.cfg.Background, o.cfg.Parallel)
	vMeans, vScales, vQuats := ProjectBackward(o.scene, o.cfg.GlobalScale, o.cam, o.grid, o.proj, sg, o.cfg.Parallel)

	return &Gradients{
		Means:     vMeans,
		Scales:    vScales,
		Quats:     vQuats,
		Opacities: sg.Opacities,
		Colors:    sg.Colors,
	}, nil
}
