// Package cpu implements the CPU projection backend.
//
// It is a thin adapter over render.Project: the reference implementation the
// GPU backend is checked against, and the fallback when no GPU is available.
package cpu

import (
	"github.com/splat-ml/diffsplat/internal/parallel"
	"github.com/splat-ml/diffsplat/internal/render"
)

// CPUBackend projects splats on the CPU using the worker pool.
type CPUBackend struct {
	Parallel parallel.Config
}

// New creates a CPU projection backend with default parallelism.
func New() *CPUBackend {
	return &CPUBackend{Parallel: parallel.DefaultConfig()}
}

// Project runs render.Project over the scene.
func (b *CPUBackend) Project(scene *render.Scene, globalScale float32, cam render.Camera, grid render.TileGrid) (*render.Projection, error) {
	if err := scene.Validate(); err != nil {
		return nil, err
	}
	if err := cam.Validate(); err != nil {
		return nil, err
	}
	return render.Project(scene, globalScale, cam, grid, b.Parallel), nil
}

// Name returns the backend name.
func (b *CPUBackend) Name() string { return "CPU" }

// Release is a no-op; the CPU backend holds no resources.
func (b *CPUBackend) Release() {}
