package optim

// SGD implements Stochastic Gradient Descent optimizer with optional momentum.
//
// Update rule without momentum:
//
//	param = param - lr * gradient
//
// Update rule with momentum:
//
//	velocity = momentum * velocity + gradient
//	param = param - lr * velocity
//
// Example:
//
//	optimizer := optim.NewSGD(params, optim.SGDConfig{
//	    LR:       0.001,
//	    Momentum: 0.9,
//	})
type SGD struct {
	params     []*Parameter
	lr         float64
	momentum   float64
	velocities map[*Parameter][]float64
}

// SGDConfig holds configuration for SGD optimizer.
type SGDConfig struct {
	LR       float64 // Learning rate (default: 0.01)
	Momentum float64 // Momentum factor (default: 0.0, range: [0, 1))
}

// NewSGD creates a new SGD optimizer.
func NewSGD(params []*Parameter, config SGDConfig) *SGD {
	if config.LR == 0 {
		config.LR = 0.01
	}
	return &SGD{
		params:     params,
		lr:         config.LR,
		momentum:   config.Momentum,
		velocities: make(map[*Parameter][]float64),
	}
}

// Parameters returns the optimized parameters.
func (s *SGD) Parameters() []*Parameter {
	return s.params
}

// Step performs a single optimization step.
func (s *SGD) Step() error {
	for _, param := range s.params {
		if param.Grad == nil {
			// Parameter didn't participate in the forward pass.
			continue
		}
		if err := checkGrad(param); err != nil {
			return err
		}

		data, grad := param.Data.Float64s(), param.Grad.Float64s()
		if s.momentum != 0 {
			velocity, exists := s.velocities[param]
			if !exists {
				velocity = make([]float64, len(data))
				s.velocities[param] = velocity
			}
			for i := range velocity {
				velocity[i] = s.momentum*velocity[i] + grad[i]
			}
			grad = velocity
		}
		for i := range data {
			data[i] -= s.lr * grad[i]
		}
		param.Data.SetFloat64s(data)
	}
	return nil
}

// ZeroGrad clears gradients for all parameters.
func (s *SGD) ZeroGrad() {
	for _, param := range s.params {
		param.ZeroGrad()
	}
}

// GetLR returns the current learning rate.
func (s *SGD) GetLR() float64 {
	return s.lr
}

// SetLR updates the learning rate.
func (s *SGD) SetLR(lr float64) {
	s.lr = lr
}
