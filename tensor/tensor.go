// Copyright 2025 Diffsplat Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public API for the flat float32 tensors that
// carry splat parameters and their gradients.
//
// A Tensor is a shape plus a dense row-major buffer. The rasterizer's
// backward pass returns one gradient tensor per forward input, shaped
// exactly like that input.
//
// Example:
//
//	means, err := tensor.FromSlice(data, tensor.Shape{n, 3})
package tensor

import (
	"github.com/splat-ml/diffsplat/internal/tensor"
)

// Shape represents the dimensions of a tensor.
// Example: Shape{100, 3} represents the positions of 100 splats.
type Shape = tensor.Shape

// Tensor is a dense float32 tensor with row-major layout.
type Tensor = tensor.Tensor

// New creates a zero-filled tensor with the given shape.
func New(shape Shape) *Tensor {
	return tensor.New(shape)
}

// FromSlice creates a tensor that adopts data as its backing buffer.
//
// Example:
//
//	quats, err := tensor.FromSlice(data, tensor.Shape{n, 4})
func FromSlice(data []float32, shape Shape) (*Tensor, error) {
	return tensor.FromSlice(data, shape)
}

// Full creates a tensor filled with a specific value.
func Full(shape Shape, value float32) *Tensor {
	return tensor.Full(shape, value)
}

// Ones creates a tensor filled with ones.
func Ones(shape Shape) *Tensor {
	return tensor.Ones(shape)
}
