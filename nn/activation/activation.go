// Package activation implements the nonlinearities applied to a layer's
// pre-activation buffer.
//
// Forward writes act(sum) into out. Backward receives the gradient with
// respect to the activation output and writes the gradient with respect to
// sum. Variants whose derivative is cheaper from the output (Sigmoid, TanH,
// Softmax) read it from out instead of recomputing.
package activation

import (
	"math"
	"sort"
	"strings"

	"github.com/YuminosukeSato/neurago/pkg/errors"
)

// Activation is the contract layers call during forward and backward passes.
// All slices have the same length.
type Activation interface {
	Name() string
	Forward(sum, out []float64)
	Backward(sum, out, gradOut, gradSum []float64)
}

// Elementwise is an Activation defined by a scalar function and its derivative.
type Elementwise interface {
	Activation
	Apply(x float64) float64
	Derivative(x float64) float64
}

// Func is an elementwise activation. deriv receives both the input and the
// already computed output so each variant can use whichever is cheaper.
type Func struct {
	name  string
	fn    func(x float64) float64
	deriv func(x, y float64) float64
}

func (f *Func) Name() string { return f.name }

// Apply evaluates the function at x.
func (f *Func) Apply(x float64) float64 { return f.fn(x) }

// Derivative evaluates the derivative at x.
func (f *Func) Derivative(x float64) float64 { return f.deriv(x, f.fn(x)) }

func (f *Func) Forward(sum, out []float64) {
	for i, x := range sum {
		out[i] = f.fn(x)
	}
}

func (f *Func) Backward(sum, out, gradOut, gradSum []float64) {
	for i, g := range gradOut {
		gradSum[i] = g * f.deriv(sum[i], out[i])
	}
}

// Linear is the identity.
func Linear() *Func {
	return &Func{
		name:  "linear",
		fn:    func(x float64) float64 { return x },
		deriv: func(_, _ float64) float64 { return 1 },
	}
}

// ReLU is max(0, x). Its derivative at 0 is taken as 0.
func ReLU() *Func {
	return &Func{
		name: "relu",
		fn: func(x float64) float64 {
			if x > 0 {
				return x
			}
			return 0
		},
		deriv: func(x, _ float64) float64 {
			if x > 0 {
				return 1
			}
			return 0
		},
	}
}

// LeakyReLU is x for x > 0 and alpha·x otherwise.
func LeakyReLU(alpha float64) *Func {
	return &Func{
		name: "leakyrelu",
		fn: func(x float64) float64 {
			if x > 0 {
				return x
			}
			return alpha * x
		},
		deriv: func(x, _ float64) float64 {
			if x > 0 {
				return 1
			}
			return alpha
		},
	}
}

// ELU is x for x > 0 and alpha·(eˣ−1) otherwise.
func ELU(alpha float64) *Func {
	return &Func{
		name: "elu",
		fn: func(x float64) float64 {
			if x > 0 {
				return x
			}
			return alpha * math.Expm1(x)
		},
		deriv: func(x, y float64) float64 {
			if x > 0 {
				return 1
			}
			return y + alpha
		},
	}
}

func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}

// Sigmoid is 1/(1+e⁻ˣ).
func Sigmoid() *Func {
	return &Func{
		name:  "sigmoid",
		fn:    sigmoid,
		deriv: func(_, y float64) float64 { return y * (1 - y) },
	}
}

// TanH is the hyperbolic tangent.
func TanH() *Func {
	return &Func{
		name:  "tanh",
		fn:    math.Tanh,
		deriv: func(_, y float64) float64 { return 1 - y*y },
	}
}

// Softplus is log(1+eˣ), computed without overflow.
func Softplus() *Func {
	return &Func{
		name: "softplus",
		fn: func(x float64) float64 {
			return math.Log1p(math.Exp(-math.Abs(x))) + math.Max(x, 0)
		},
		deriv: func(x, _ float64) float64 { return sigmoid(x) },
	}
}

// Swish is x·σ(x).
func Swish() *Func {
	return &Func{
		name: "swish",
		fn:   func(x float64) float64 { return x * sigmoid(x) },
		deriv: func(x, y float64) float64 {
			s := sigmoid(x)
			return y + s*(1-y)
		},
	}
}

const geluC = 0.7978845608028654 // √(2/π)

// GELU uses the tanh approximation 0.5·x·(1+tanh(√(2/π)(x+0.044715x³))).
func GELU() *Func {
	return &Func{
		name: "gelu",
		fn: func(x float64) float64 {
			return 0.5 * x * (1 + math.Tanh(geluC*(x+0.044715*x*x*x)))
		},
		deriv: func(x, _ float64) float64 {
			t := math.Tanh(geluC * (x + 0.044715*x*x*x))
			return 0.5*(1+t) + 0.5*x*(1-t*t)*geluC*(1+3*0.044715*x*x)
		},
	}
}

// Sine is sin(x).
func Sine() *Func {
	return &Func{
		name:  "sine",
		fn:    math.Sin,
		deriv: func(x, _ float64) float64 { return math.Cos(x) },
	}
}

// ArcTan is atan(x).
func ArcTan() *Func {
	return &Func{
		name:  "arctan",
		fn:    math.Atan,
		deriv: func(x, _ float64) float64 { return 1 / (1 + x*x) },
	}
}

var registry = map[string]func() Activation{
	"linear":     func() Activation { return Linear() },
	"identity":   func() Activation { return Linear() },
	"relu":       func() Activation { return ReLU() },
	"leakyrelu":  func() Activation { return LeakyReLU(0.01) },
	"leaky_relu": func() Activation { return LeakyReLU(0.01) },
	"elu":        func() Activation { return ELU(1) },
	"sigmoid":    func() Activation { return Sigmoid() },
	"tanh":       func() Activation { return TanH() },
	"softmax":    func() Activation { return Softmax() },
	"softplus":   func() Activation { return Softplus() },
	"swish":      func() Activation { return Swish() },
	"gelu":       func() Activation { return GELU() },
	"sine":       func() Activation { return Sine() },
	"sin":        func() Activation { return Sine() },
	"arctan":     func() Activation { return ArcTan() },
	"atan":       func() Activation { return ArcTan() },
}

// Get returns a fresh activation by name, ignoring case. LeakyReLU and ELU
// get their default alphas (0.01 and 1).
func Get(name string) (Activation, error) {
	ctor, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, errors.NewArgumentError("activation", "unknown activation, expected one of "+strings.Join(Names(), ", "), name)
	}
	return ctor(), nil
}

// Names lists the accepted activation names.
func Names() []string {
	names := make([]string, 0, len(registry))
	for k := range registry {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
