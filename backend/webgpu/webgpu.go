//go:build windows

// Copyright 2025 Diffsplat Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package webgpu provides the WebGPU projection backend.
//
// The GPU runs only the projection stage: per-splat covariance, conic,
// radius, and tile-count computation, one invocation per splat. Binning and
// compositing stay on the CPU against the read-back buffers.
//
// Example:
//
//	import (
//	    "github.com/splat-ml/diffsplat/backend/cpu"
//	    "github.com/splat-ml/diffsplat/backend/webgpu"
//	)
//
//	if webgpu.IsAvailable() {
//	    gpu, err := webgpu.New()
//	    ...
//	    defer gpu.Release()
//	    proj, err := gpu.Project(scene, 1.0, cam, grid)
//	} else {
//	    proj, err := cpu.New().Project(scene, 1.0, cam, grid)
//	}
package webgpu

import (
	"github.com/splat-ml/diffsplat/internal/backend"
	internalwebgpu "github.com/splat-ml/diffsplat/internal/backend/webgpu"
)

// Backend represents the WebGPU projection backend.
type Backend = internalwebgpu.Backend

// Compile-time check that Backend implements backend.Projector.
var _ backend.Projector = (*Backend)(nil)

// New creates a new WebGPU projection backend.
//
// Returns an error if WebGPU initialization fails (e.g., no compatible GPU).
// Call Release() when done to free GPU resources.
func New() (*Backend, error) {
	return internalwebgpu.New()
}

// IsAvailable checks if WebGPU is available on the current system.
//
// It attempts to initialize a WebGPU adapter to verify that a compatible GPU
// and drivers are present, for graceful fallback to the CPU backend.
func IsAvailable() bool {
	return internalwebgpu.IsAvailable()
}
