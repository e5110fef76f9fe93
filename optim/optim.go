// Copyright 2025 Diffsplat Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides gradient-based optimizers for splat parameters.
//
// Example:
//
//	params := []*optim.Parameter{
//	    {Name: "means", Value: scene.Means},
//	    {Name: "colors", Value: scene.Colors},
//	}
//	opt := optim.NewAdam(params, optim.AdamConfig{LR: 0.01})
//	for step := 0; step < steps; step++ {
//	    out, _ := splat.Render(scene, cam, cfg)
//	    grads, _ := out.Backward(lossGrad(out.Image, target))
//	    opt.Step(map[string]*tensor.Tensor{
//	        "means":  grads.Means,
//	        "colors": grads.Colors,
//	    })
//	}
package optim

import (
	"github.com/splat-ml/diffsplat/internal/optim"
)

// Parameter is a named tensor updated in place by an optimizer.
type Parameter = optim.Parameter

// Optimizer is the base interface for all optimization algorithms.
type Optimizer = optim.Optimizer

// Adam is the Adam optimizer.
type Adam = optim.Adam

// AdamConfig holds configuration for Adam.
type AdamConfig = optim.AdamConfig

// NewAdam creates a new Adam optimizer over the given parameters.
func NewAdam(params []*Parameter, config AdamConfig) *Adam {
	return optim.NewAdam(params, config)
}

// SGD is stochastic gradient descent with optional momentum.
type SGD = optim.SGD

// SGDConfig holds configuration for SGD.
type SGDConfig = optim.SGDConfig

// NewSGD creates a new SGD optimizer over the given parameters.
func NewSGD(params []*Parameter, config SGDConfig) *SGD {
	return optim.NewSGD(params, config)
}
