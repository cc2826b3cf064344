// Package initializer fills parameter tensors before training.
//
// Every random variant draws from gonum distributions backed by the model's
// own *rand.Rand, so two models compiled with the same seed start from the
// same parameters.
package initializer

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/YuminosukeSato/neurago/core/tensor"
	"github.com/YuminosukeSato/neurago/pkg/errors"
)

// Initializer writes initial values into t. fanIn and fanOut are the number
// of inputs and outputs feeding each parameter.
type Initializer interface {
	Name() string
	Initialize(t *tensor.Tensor, fanIn, fanOut int, rng *rand.Rand) error
}

type sampler interface {
	Rand() float64
}

func fill(t *tensor.Tensor, d sampler) {
	data := t.Data()
	for i := range data {
		data[i] = d.Rand()
	}
}

func checkFans(op string, fanIn, fanOut int) error {
	if fanIn < 1 || fanOut < 1 {
		return errors.NewArgumentError(op+".fan", "fan-in and fan-out must be positive", []int{fanIn, fanOut})
	}
	return nil
}

// GlorotUniform draws from U(−L, L) with L = √(6/(fanIn+fanOut)).
type GlorotUniform struct{}

func (GlorotUniform) Name() string { return "GlorotUniform" }

func (GlorotUniform) Initialize(t *tensor.Tensor, fanIn, fanOut int, rng *rand.Rand) error {
	if err := checkFans("GlorotUniform", fanIn, fanOut); err != nil {
		return err
	}
	limit := math.Sqrt(6 / float64(fanIn+fanOut))
	fill(t, distuv.Uniform{Min: -limit, Max: limit, Src: rng})
	return nil
}

// GlorotNormal draws from N(0, σ) with σ = √(2/(fanIn+fanOut)).
type GlorotNormal struct{}

func (GlorotNormal) Name() string { return "GlorotNormal" }

func (GlorotNormal) Initialize(t *tensor.Tensor, fanIn, fanOut int, rng *rand.Rand) error {
	if err := checkFans("GlorotNormal", fanIn, fanOut); err != nil {
		return err
	}
	fill(t, distuv.Normal{Mu: 0, Sigma: math.Sqrt(2 / float64(fanIn+fanOut)), Src: rng})
	return nil
}

// He draws from N(0, σ) with σ = √(2/fanIn), suited to ReLU layers.
type He struct{}

func (He) Name() string { return "He" }

func (He) Initialize(t *tensor.Tensor, fanIn, fanOut int, rng *rand.Rand) error {
	if err := checkFans("He", fanIn, fanOut); err != nil {
		return err
	}
	fill(t, distuv.Normal{Mu: 0, Sigma: math.Sqrt(2 / float64(fanIn)), Src: rng})
	return nil
}

// LeCun draws from N(0, σ) with σ = √(1/fanIn).
type LeCun struct{}

func (LeCun) Name() string { return "LeCun" }

func (LeCun) Initialize(t *tensor.Tensor, fanIn, fanOut int, rng *rand.Rand) error {
	if err := checkFans("LeCun", fanIn, fanOut); err != nil {
		return err
	}
	fill(t, distuv.Normal{Mu: 0, Sigma: math.Sqrt(1 / float64(fanIn)), Src: rng})
	return nil
}

// RandomUniform draws from U(Min, Max).
type RandomUniform struct {
	Min, Max float64
}

// NewRandomUniform validates the interval.
func NewRandomUniform(min, max float64) (*RandomUniform, error) {
	if !(max > min) {
		return nil, errors.NewArgumentError("max", "must be greater than min", max)
	}
	return &RandomUniform{Min: min, Max: max}, nil
}

// Positive draws from U(0, max).
func Positive(max float64) (*RandomUniform, error) {
	return NewRandomUniform(0, max)
}

func (r *RandomUniform) Name() string { return "RandomUniform" }

func (r *RandomUniform) Initialize(t *tensor.Tensor, _, _ int, rng *rand.Rand) error {
	fill(t, distuv.Uniform{Min: r.Min, Max: r.Max, Src: rng})
	return nil
}

// Constant sets every element to Value.
type Constant struct {
	Value float64
}

func (c Constant) Name() string { return "Constant" }

func (c Constant) Initialize(t *tensor.Tensor, _, _ int, _ *rand.Rand) error {
	t.Fill(c.Value)
	return nil
}

// Zeros sets every element to 0.
type Zeros struct{}

func (Zeros) Name() string { return "Zeros" }

func (Zeros) Initialize(t *tensor.Tensor, _, _ int, _ *rand.Rand) error {
	t.Zero()
	return nil
}

// Identity writes an identity matrix into the last two axes of every
// sub-tensor. Rank-1 tensors are rejected.
type Identity struct{}

func (Identity) Name() string { return "Identity" }

func (Identity) Initialize(t *tensor.Tensor, _, _ int, _ *rand.Rand) error {
	shape := t.Shape()
	if len(shape) < 2 {
		return errors.NewShapeMismatchError("Identity.Initialize", []int{-1, -1}, shape)
	}
	rows, cols := shape[len(shape)-2], shape[len(shape)-1]
	t.Zero()
	data := t.Data()
	for off := 0; off < len(data); off += rows * cols {
		for i := 0; i < rows && i < cols; i++ {
			data[off+i*cols+i] = 1
		}
	}
	return nil
}
