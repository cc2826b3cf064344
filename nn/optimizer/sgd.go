package optimizer

import (
	"gonum.org/v1/gonum/floats"

	"github.com/YuminosukeSato/neurago/nn/layer"
)

// GD is plain gradient descent: v ← v − η·g.
type GD struct {
	state
	LearningRate float64
}

// NewGD validates lr.
func NewGD(lr float64) (*GD, error) {
	if err := checkLearningRate(lr); err != nil {
		return nil, err
	}
	return &GD{state: state{name: "GD"}, LearningRate: lr}, nil
}

// DefaultGD uses η = 0.1.
func DefaultGD() *GD {
	return &GD{state: state{name: "GD"}, LearningRate: 0.1}
}

func (o *GD) Build(layers []layer.Layer) error {
	o.build(layers)
	return nil
}

func (o *GD) Update(layers []layer.Layer) error {
	slots, err := o.slots(layers)
	if err != nil {
		return err
	}
	for _, s := range slots {
		if s.trainable {
			floats.AddScaled(s.value, -o.LearningRate, s.grad)
		}
	}
	return nil
}

func (o *GD) Info() string {
	return info(o.name, "lr", o.LearningRate)
}

// SGD is gradient descent with momentum:
//
//	m ← β·m + g
//	v ← v − η·m            (classic)
//	v ← v − η·(g + β·m)    (Nesterov)
//
// β = 0 degenerates to GD.
type SGD struct {
	state
	LearningRate float64
	Momentum     float64
	Nesterov     bool
	m            [][]float64
}

// SGDOption configures an SGD optimizer.
type SGDOption func(*SGD)

// WithNesterov enables Nesterov momentum.
func WithNesterov(enabled bool) SGDOption {
	return func(o *SGD) { o.Nesterov = enabled }
}

// NewSGD validates lr > 0 and 0 ≤ momentum < 1.
func NewSGD(lr, momentum float64, opts ...SGDOption) (*SGD, error) {
	if err := checkLearningRate(lr); err != nil {
		return nil, err
	}
	if err := checkUnit("momentum", momentum); err != nil {
		return nil, err
	}
	o := &SGD{state: state{name: "SGD"}, LearningRate: lr, Momentum: momentum}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// DefaultSGD uses η = 0.01 and β = 0.9.
func DefaultSGD() *SGD {
	return &SGD{state: state{name: "SGD"}, LearningRate: 0.01, Momentum: 0.9}
}

func (o *SGD) Build(layers []layer.Layer) error {
	o.m = accumulators(o.build(layers))
	return nil
}

func (o *SGD) Update(layers []layer.Layer) error {
	slots, err := o.slots(layers)
	if err != nil {
		return err
	}
	for i, s := range slots {
		if !s.trainable {
			continue
		}
		m := o.m[i]
		for j, g := range s.grad {
			m[j] = o.Momentum*m[j] + g
			if o.Nesterov {
				s.value[j] -= o.LearningRate * (g + o.Momentum*m[j])
			} else {
				s.value[j] -= o.LearningRate * m[j]
			}
		}
	}
	return nil
}

func (o *SGD) Info() string {
	return info(o.name, "lr", o.LearningRate, "momentum", o.Momentum, "nesterov", o.Nesterov)
}

func (o *GD) Clone() Optimizer {
	return &GD{state: state{name: o.name}, LearningRate: o.LearningRate}
}

func (o *SGD) Clone() Optimizer {
	return &SGD{state: state{name: o.name}, LearningRate: o.LearningRate, Momentum: o.Momentum, Nesterov: o.Nesterov}
}
