// Package backend defines the projection backend interface and hosts its
// implementations.
//
// Projection is the only stage of the pipeline that is pure per-splat math
// with no data dependencies, which makes it the natural offload target. A
// Projector produces the same screen-space buffers as render.Project; the
// binning, compositing, and backward stages always run on the CPU against
// those buffers.
package backend

import "github.com/splat-ml/diffsplat/internal/render"

// Projector computes screen-space splat footprints for a scene under a
// camera. Implementations must match render.Project bit-for-bit in structure:
// culled splats get radius 0, and the saved 3D covariances must be filled for
// every surviving splat so the backward pass can run.
type Projector interface {
	// Project maps every splat to its screen-space footprint.
	Project(scene *render.Scene, globalScale float32, cam render.Camera, grid render.TileGrid) (*render.Projection, error)

	// Name identifies the backend for logs and benchmarks.
	Name() string

	// Release frees any resources held by the backend.
	Release()
}
