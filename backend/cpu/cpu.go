// Copyright 2025 Diffsplat Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cpu

import (
	"github.com/splat-ml/diffsplat/internal/backend"
	internalcpu "github.com/splat-ml/diffsplat/internal/backend/cpu"
)

// Backend represents the CPU projection backend.
type Backend = internalcpu.CPUBackend

// Compile-time check that Backend implements backend.Projector.
var _ backend.Projector = (*Backend)(nil)

// New creates a new CPU projection backend.
func New() *Backend {
	return internalcpu.New()
}
