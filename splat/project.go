// Copyright 2025 Diffsplat Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package splat

import (
	"fmt"

	"github.com/splat-ml/diffsplat/internal/render"
	"github.com/splat-ml/diffsplat/tensor"
)

// Projection is the screen-space result of Project: per-splat pixel centers,
// depths, conics, bounding radii, and tile-touch counts. A splat with radius
// 0 was culled or degenerate and contributes nothing downstream. The
// underlying buffers are owned by the Projection and reused read-only by
// Rasterize and Backward.
type Projection struct {
	Means2D    *tensor.Tensor // (N, 2) pixel-space centers
	Depths     *tensor.Tensor // (N) camera-space depth
	Conics     *tensor.Tensor // (N, 3) inverse 2D covariance (A, B, C)
	Radii      []int32        // (N) 3σ bounding radius in pixels
	TileCounts []int32        // (N) tiles overlapped

	proj        *render.Projection
	scene       *render.Scene
	cam         Camera
	grid        render.TileGrid
	globalScale float32
	par         ParallelConfig
}

// Project maps 3D Gaussians through the camera into screen space. The means,
// scales, and quats tensors must have shapes (N, 3), (N, 3), and (N, 4); the
// quaternion layout is (w, x, y, z). A splat with a singular projected
// covariance, behind the near plane, or outside the image is marked with
// radius 0 instead of failing the call.
func Project(means, scales *tensor.Tensor, globalScale float32, quats *tensor.Tensor, cam Camera, cfg Config) (*Projection, error) {
	if err := cam.Validate(); err != nil {
		return nil, err
	}
	if globalScale < 0 {
		return nil, fmt.Errorf("splat: global scale must be >= 0, got %g", globalScale)
	}
	n, err := rows(means, 3, "means")
	if err != nil {
		return nil, err
	}
	if err := expectShape(scales, tensor.Shape{n, 3}, "scales"); err != nil {
		return nil, err
	}
	if err := expectShape(quats, tensor.Shape{n, 4}, "quats"); err != nil {
		return nil, err
	}
	grid, err := render.NewTileGrid(cam.Width, cam.Height, cfg.TileSize)
	if err != nil {
		return nil, err
	}

	scene := &render.Scene{
		Means:  means.Data(),
		Scales: scales.Data(),
		Quats:  quats.Data(),
	}
	proj := render.Project(scene, globalScale, cam, grid, cfg.Parallel)

	means2D, _ := tensor.FromSlice(proj.Means2D, tensor.Shape{n, 2})
	depths, _ := tensor.FromSlice(proj.Depths, tensor.Shape{n})
	conics, _ := tensor.FromSlice(proj.Conics, tensor.Shape{n, 3})

	return &Projection{
		Means2D:     means2D,
		Depths:      depths,
		Conics:      conics,
		Radii:       proj.Radii,
		TileCounts:  proj.TileCounts,
		proj:        proj,
		scene:       scene,
		cam:         cam,
		grid:        grid,
		globalScale: globalScale,
		par:         cfg.Parallel,
	}, nil
}

// rows checks that t has shape (N, width) and returns N.
func rows(t *tensor.Tensor, width int, name string) (int, error) {
	s := t.Shape()
	if len(s) != 2 || s[1] != width {
		return 0, fmt.Errorf("splat: %s must have shape (N, %d), got %v", name, width, s)
	}
	return s[0], nil
}

func expectShape(t *tensor.Tensor, want tensor.Shape, name string) error {
	if !t.Shape().Equal(want) {
		return fmt.Errorf("splat: %s must have shape %v, got %v", name, want, t.Shape())
	}
	return nil
}
