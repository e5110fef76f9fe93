package optim

import "github.com/splat-ml/diffsplat/internal/tensor"

// SGD implements stochastic gradient descent with optional momentum.
//
// Update rule (with momentum µ):
//
//	buf = µ * buf + gradient
//	param = param - lr * buf
type SGD struct {
	params   []*Parameter
	lr       float32
	momentum float32
	buf      map[string][]float32
}

// SGDConfig holds configuration for the SGD optimizer.
type SGDConfig struct {
	LR       float32 // Learning rate (default 0.01)
	Momentum float32 // Momentum coefficient, 0 disables momentum
}

// NewSGD creates a new SGD optimizer over the given parameters.
func NewSGD(params []*Parameter, config SGDConfig) *SGD {
	if config.LR == 0 {
		config.LR = 0.01
	}
	return &SGD{
		params:   params,
		lr:       config.LR,
		momentum: config.Momentum,
		buf:      make(map[string][]float32),
	}
}

// Step performs a single SGD update. Parameters with no gradient are
// skipped.
func (s *SGD) Step(grads map[string]*tensor.Tensor) {
	for _, param := range s.params {
		grad := gradientFor(param, grads)
		if grad == nil {
			continue
		}

		paramData := param.Value.Data()
		gradData := grad.Data()

		if s.momentum == 0 {
			for i := range paramData {
				paramData[i] -= s.lr * gradData[i]
			}
			continue
		}

		buf, ok := s.buf[param.Name]
		if !ok {
			buf = make([]float32, len(paramData))
			s.buf[param.Name] = buf
		}
		for i := range paramData {
			buf[i] = s.momentum*buf[i] + gradData[i]
			paramData[i] -= s.lr * buf[i]
		}
	}
}

// GetLR returns the current learning rate.
func (s *SGD) GetLR() float32 { return s.lr }

// SetLR updates the learning rate.
func (s *SGD) SetLR(lr float32) { s.lr = lr }
