// Copyright 2025 Diffsplat Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package splat provides the public API for differentiable Gaussian-splat
// rendering: projecting anisotropic 3D Gaussians into screen space,
// rasterizing them into an image by front-to-back alpha compositing, and
// recovering analytic gradients of every splat parameter from a loss
// gradient on that image.
//
// The two-step contract mirrors the split between geometry and shading:
//
//	proj, err := splat.Project(means, scales, 1.0, quats, cam, cfg)
//	out, err := splat.Rasterize(proj, colors, opacities, background)
//	grads, err := out.Backward(gradImage)
//
// or, in one call:
//
//	out, err := splat.Render(scene, cam, splat.DefaultConfig())
//
// Gradients are shaped exactly like their forward inputs: means (N, 3),
// scales (N, 3), quaternions (N, 4), opacities (N), colors (N, 3).
package splat

import (
	"github.com/splat-ml/diffsplat/internal/math3"
	"github.com/splat-ml/diffsplat/internal/parallel"
	"github.com/splat-ml/diffsplat/internal/render"
)

// Camera is a pinhole camera: view matrix (world to camera), projection
// matrix (the full world-to-NDC transform, view included, e.g.
// Perspective(...).Mul(view)), focal lengths in pixels, and image size.
type Camera = render.Camera

// Config holds per-render options: global scale, tile size, background
// color, and parallelism.
type Config = render.Config

// ParallelConfig controls the worker pool used by the data-parallel stages.
type ParallelConfig = parallel.Config

// DefaultConfig returns the standard render options.
func DefaultConfig() Config {
	return render.DefaultConfig()
}

// Vector and matrix types for camera construction.
type (
	// Vec3 is a 3D float32 vector.
	Vec3 = math3.Vec3
	// Mat4 is a row-major 4×4 float32 matrix.
	Mat4 = math3.Mat4
)

// Mat4Identity returns the 4×4 identity matrix.
func Mat4Identity() Mat4 { return math3.Mat4Identity() }

// LookAt builds a world-to-camera view matrix.
func LookAt(eye, center, up Vec3) Mat4 { return math3.LookAt(eye, center, up) }

// Perspective builds a perspective projection matrix. fovY is the vertical
// field of view in radians, aspect is width/height.
func Perspective(fovY, aspect, near, far float32) Mat4 {
	return math3.Perspective(fovY, aspect, near, far)
}
