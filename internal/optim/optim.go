// Package optim implements gradient-based optimizers for splat parameters.
//
// The rasterizer's backward pass produces one gradient tensor per parameter
// tensor; an Optimizer consumes those gradients and updates the parameters
// in place. Parameters are identified by name so that an optimizer can skip
// parameters that did not receive a gradient in a given step.
package optim

import "github.com/splat-ml/diffsplat/internal/tensor"

// Parameter is a named tensor updated in place by an optimizer.
type Parameter struct {
	Name  string
	Value *tensor.Tensor
}

// Optimizer is the base interface for all optimization algorithms.
type Optimizer interface {
	// Step applies one gradient update to all parameters. grads maps
	// parameter names to gradient tensors shaped like the parameter;
	// parameters without an entry are skipped.
	Step(grads map[string]*tensor.Tensor)

	// GetLR returns the current learning rate.
	GetLR() float32

	// SetLR updates the learning rate, for scheduling.
	SetLR(lr float32)
}

// Config is the base configuration shared by all optimizers.
type Config struct {
	LR float32 // Learning rate
}

// gradientFor retrieves the gradient for a parameter, checking that its
// shape matches. A missing gradient returns nil; a mismatched shape panics,
// since it means the caller paired gradients with the wrong parameters.
func gradientFor(p *Parameter, grads map[string]*tensor.Tensor) *tensor.Tensor {
	g, ok := grads[p.Name]
	if !ok || g == nil {
		return nil
	}
	if !g.Shape().Equal(p.Value.Shape()) {
		panic("optim: gradient shape " + g.Shape().String() +
			" does not match parameter " + p.Name + " shape " + p.Value.Shape().String())
	}
	return g
}
