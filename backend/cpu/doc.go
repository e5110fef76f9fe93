// Copyright 2025 Diffsplat Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides the pure Go CPU projection backend.
//
// The CPU backend is the reference path: it projects splats with the same
// worker pool the rasterizer uses, and the GPU backend is validated against
// it. It is always available.
//
// # Basic Usage
//
//	import (
//	    "github.com/splat-ml/diffsplat/backend/cpu"
//	)
//
//	func main() {
//	    backend := cpu.New()
//	    defer backend.Release()
//
//	    proj, err := backend.Project(scene, 1.0, cam, grid)
//	    ...
//	}
package cpu
