// Copyright 2025 Diffsplat Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package splat

import (
	"fmt"

	"github.com/splat-ml/diffsplat/internal/render"
	"github.com/splat-ml/diffsplat/tensor"
)

// Scene is a collection of Gaussian splats described by parallel tensors.
// All tensors must agree on N, the number of splats.
type Scene struct {
	Means     *tensor.Tensor // (N, 3) world-space positions
	Scales    *tensor.Tensor // (N, 3) per-axis standard deviations
	Quats     *tensor.Tensor // (N, 4) orientations, (w, x, y, z)
	Opacities *tensor.Tensor // (N) base opacities in [0, 1]
	Colors    *tensor.Tensor // (N, 3) RGB colors
}

// RenderOutput is a rendered image together with the saved forward state
// that its Backward pass consumes: projection buffers, sorted tile bins,
// and per-pixel transmittance.
type RenderOutput struct {
	// Image is the rendered (H, W, 3) color buffer.
	Image *tensor.Tensor

	out *render.Output
}

// Gradients holds the gradient of a scalar loss with respect to every splat
// parameter. Each tensor is shaped exactly like the corresponding forward
// input.
type Gradients struct {
	Means     *tensor.Tensor // (N, 3)
	Scales    *tensor.Tensor // (N, 3)
	Quats     *tensor.Tensor // (N, 4)
	Opacities *tensor.Tensor // (N)
	Colors    *tensor.Tensor // (N, 3)
}

// Render projects, bins, and rasterizes a scene in one call.
func Render(scene *Scene, cam Camera, cfg Config) (*RenderOutput, error) {
	n, err := rows(scene.Means, 3, "means")
	if err != nil {
		return nil, err
	}
	if err := expectShape(scene.Scales, tensor.Shape{n, 3}, "scales"); err != nil {
		return nil, err
	}
	if err := expectShape(scene.Quats, tensor.Shape{n, 4}, "quats"); err != nil {
		return nil, err
	}
	if err := expectShape(scene.Opacities, tensor.Shape{n}, "opacities"); err != nil {
		return nil, err
	}
	if err := expectShape(scene.Colors, tensor.Shape{n, 3}, "colors"); err != nil {
		return nil, err
	}

	out, err := render.Render(&render.Scene{
		Means:     scene.Means.Data(),
		Scales:    scene.Scales.Data(),
		Quats:     scene.Quats.Data(),
		Opacities: scene.Opacities.Data(),
		Colors:    scene.Colors.Data(),
	}, cam, cfg)
	if err != nil {
		return nil, err
	}
	return wrapOutput(out, cam)
}

// Rasterize composites the projected splats into an image. The colors and
// opacities tensors must have shapes (N, 3) and (N), with N matching the
// projection. The result is deterministic for identical inputs: equal
// depths within a tile are tie-broken by splat index.
func Rasterize(proj *Projection, colors, opacities *tensor.Tensor, background [3]float32) (*RenderOutput, error) {
	n := len(proj.Radii)
	if err := expectShape(colors, tensor.Shape{n, 3}, "colors"); err != nil {
		return nil, err
	}
	if err := expectShape(opacities, tensor.Shape{n}, "opacities"); err != nil {
		return nil, err
	}

	// Each output owns its own scene view: the projection's saved scene is
	// shared across calls and must stay untouched so earlier outputs can
	// still run their backward pass.
	scene := *proj.scene
	scene.Colors = colors.Data()
	scene.Opacities = opacities.Data()

	cfg := Config{
		GlobalScale: proj.globalScale,
		TileSize:    proj.grid.TileSize,
		Background:  background,
		Parallel:    proj.par,
	}
	out := render.RasterizeProjected(proj.proj, &scene, proj.cam, proj.grid, cfg)
	return wrapOutput(out, proj.cam)
}

func wrapOutput(out *render.Output, cam Camera) (*RenderOutput, error) {
	img, err := tensor.FromSlice(out.Image.Pix, tensor.Shape{cam.Height, cam.Width, 3})
	if err != nil {
		return nil, fmt.Errorf("splat: %w", err)
	}
	return &RenderOutput{Image: img, out: out}, nil
}

// Backward computes gradients for all splat parameters from gradImage, the
// loss gradient with respect to the rendered image, shaped (H, W, 3). It
// reuses the forward pass's sorted tile lists and saved buffers; compositing
// order is never recomputed.
func (r *RenderOutput) Backward(gradImage *tensor.Tensor) (*Gradients, error) {
	img := r.Image.Shape()
	if !gradImage.Shape().Equal(img) {
		return nil, fmt.Errorf("splat: gradient image must have shape %v, got %v",
			img, gradImage.Shape())
	}

	g, err := r.out.Backward(gradImage.Data())
	if err != nil {
		return nil, err
	}

	n := len(g.Opacities)
	means, _ := tensor.FromSlice(g.Means, tensor.Shape{n, 3})
	scales, _ := tensor.FromSlice(g.Scales, tensor.Shape{n, 3})
	quats, _ := tensor.FromSlice(g.Quats, tensor.Shape{n, 4})
	opacities, _ := tensor.FromSlice(g.Opacities, tensor.Shape{n})
	colors, _ := tensor.FromSlice(g.Colors, tensor.Shape{n, 3})
	return &Gradients{
		Means:     means,
		Scales:    scales,
		Quats:     quats,
		Opacities: opacities,
		Colors:    colors,
	}, nil
}
