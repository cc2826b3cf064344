package optimizer

import (
	"math"

	"github.com/YuminosukeSato/neurago/nn/layer"
)

// AdaGrad scales each step by the accumulated squared gradient:
//
//	ac ← ac + g²
//	v  ← v − η·g/√(ac+ε)
//
// Accumulators start at zero.
type AdaGrad struct {
	state
	LearningRate float64
	Epsilon      float64
	ac           [][]float64
}

// NewAdaGrad validates lr > 0 and eps ≥ 0.
func NewAdaGrad(lr, eps float64) (*AdaGrad, error) {
	if err := checkLearningRate(lr); err != nil {
		return nil, err
	}
	if err := checkEpsilon(eps); err != nil {
		return nil, err
	}
	return &AdaGrad{state: state{name: "AdaGrad"}, LearningRate: lr, Epsilon: eps}, nil
}

// DefaultAdaGrad uses η = 0.99 and ε = 1e-7.
func DefaultAdaGrad() *AdaGrad {
	return &AdaGrad{state: state{name: "AdaGrad"}, LearningRate: 0.99, Epsilon: 1e-7}
}

func (o *AdaGrad) Build(layers []layer.Layer) error {
	o.ac = accumulators(o.build(layers))
	return nil
}

func (o *AdaGrad) Update(layers []layer.Layer) error {
	slots, err := o.slots(layers)
	if err != nil {
		return err
	}
	for i, s := range slots {
		if !s.trainable {
			continue
		}
		ac := o.ac[i]
		for j, g := range s.grad {
			ac[j] += g * g
			if d := math.Sqrt(ac[j] + o.Epsilon); d > 0 {
				s.value[j] -= o.LearningRate * g / d
			}
		}
	}
	return nil
}

func (o *AdaGrad) Info() string {
	return info(o.name, "lr", o.LearningRate, "epsilon", o.Epsilon)
}

// RMSProp keeps a decaying average of squared gradients:
//
//	ac ← ρ·ac + (1−ρ)·g²
//	v  ← v − η·g/(√ac + ε)
type RMSProp struct {
	state
	LearningRate float64
	Rho          float64
	Epsilon      float64
	ac           [][]float64
}

// NewRMSProp validates lr > 0, 0 ≤ rho < 1 and eps ≥ 0.
func NewRMSProp(lr, rho, eps float64) (*RMSProp, error) {
	if err := checkLearningRate(lr); err != nil {
		return nil, err
	}
	if err := checkUnit("rho", rho); err != nil {
		return nil, err
	}
	if err := checkEpsilon(eps); err != nil {
		return nil, err
	}
	return &RMSProp{state: state{name: "RMSProp"}, LearningRate: lr, Rho: rho, Epsilon: eps}, nil
}

// DefaultRMSProp uses η = 0.001, ρ = 0.995 and ε = 1e-7.
func DefaultRMSProp() *RMSProp {
	return &RMSProp{state: state{name: "RMSProp"}, LearningRate: 0.001, Rho: 0.995, Epsilon: 1e-7}
}

func (o *RMSProp) Build(layers []layer.Layer) error {
	o.ac = accumulators(o.build(layers))
	return nil
}

func (o *RMSProp) Update(layers []layer.Layer) error {
	slots, err := o.slots(layers)
	if err != nil {
		return err
	}
	for i, s := range slots {
		if !s.trainable {
			continue
		}
		ac := o.ac[i]
		for j, g := range s.grad {
			ac[j] = o.Rho*ac[j] + (1-o.Rho)*g*g
			if d := math.Sqrt(ac[j]) + o.Epsilon; d > 0 {
				s.value[j] -= o.LearningRate * g / d
			}
		}
	}
	return nil
}

func (o *RMSProp) Info() string {
	return info(o.name, "lr", o.LearningRate, "rho", o.Rho, "epsilon", o.Epsilon)
}

// Adam combines momentum with RMSProp scaling and corrects both moments for
// their zero initialization.
type Adam struct {
	state
	LearningRate float64
	Beta1        float64
	Beta2        float64
	Epsilon      float64
	m, v         [][]float64
	t            int
}

// NewAdam validates lr > 0, 0 ≤ beta1, beta2 < 1 and eps ≥ 0.
func NewAdam(lr, beta1, beta2, eps float64) (*Adam, error) {
	if err := checkLearningRate(lr); err != nil {
		return nil, err
	}
	if err := checkUnit("beta1", beta1); err != nil {
		return nil, err
	}
	if err := checkUnit("beta2", beta2); err != nil {
		return nil, err
	}
	if err := checkEpsilon(eps); err != nil {
		return nil, err
	}
	return &Adam{state: state{name: "Adam"}, LearningRate: lr, Beta1: beta1, Beta2: beta2, Epsilon: eps}, nil
}

// DefaultAdam uses η = 0.001, β1 = 0.9, β2 = 0.999 and ε = 1e-7.
func DefaultAdam() *Adam {
	return &Adam{state: state{name: "Adam"}, LearningRate: 0.001, Beta1: 0.9, Beta2: 0.999, Epsilon: 1e-7}
}

func (o *Adam) Build(layers []layer.Layer) error {
	slots := o.build(layers)
	o.m = accumulators(slots)
	o.v = accumulators(slots)
	o.t = 0
	return nil
}

func (o *Adam) Update(layers []layer.Layer) error {
	slots, err := o.slots(layers)
	if err != nil {
		return err
	}
	o.t++
	c1 := 1 - math.Pow(o.Beta1, float64(o.t))
	c2 := 1 - math.Pow(o.Beta2, float64(o.t))
	for i, s := range slots {
		if !s.trainable {
			continue
		}
		m, v := o.m[i], o.v[i]
		for j, g := range s.grad {
			m[j] = o.Beta1*m[j] + (1-o.Beta1)*g
			v[j] = o.Beta2*v[j] + (1-o.Beta2)*g*g
			mh := m[j] / c1
			vh := v[j] / c2
			if d := math.Sqrt(vh) + o.Epsilon; d > 0 {
				s.value[j] -= o.LearningRate * mh / d
			}
		}
	}
	return nil
}

// Steps returns the number of updates applied since Build.
func (o *Adam) Steps() int { return o.t }

func (o *Adam) Info() string {
	return info(o.name, "lr", o.LearningRate, "beta1", o.Beta1, "beta2", o.Beta2, "epsilon", o.Epsilon)
}

func (o *AdaGrad) Clone() Optimizer {
	return &AdaGrad{state: state{name: o.name}, LearningRate: o.LearningRate, Epsilon: o.Epsilon}
}

func (o *RMSProp) Clone() Optimizer {
	return &RMSProp{state: state{name: o.name}, LearningRate: o.LearningRate, Rho: o.Rho, Epsilon: o.Epsilon}
}

func (o *Adam) Clone() Optimizer {
	return &Adam{state: state{name: o.name}, LearningRate: o.LearningRate, Beta1: o.Beta1, Beta2: o.Beta2, Epsilon: o.Epsilon}
}
