// Package optimizer updates layer parameters from their accumulated gradients.
//
// Every variant descends: losses report the true gradient ∂L/∂pred, so each
// rule moves parameters against it. Per-parameter accumulators are allocated
// once in Build, sized to the kernel and bias scalars of the layers that are
// trainable at that point, and never resized.
package optimizer

import (
	"fmt"
	"strings"

	"github.com/YuminosukeSato/neurago/nn/layer"
	"github.com/YuminosukeSato/neurago/pkg/errors"
)

// Optimizer applies one update step to a list of layers.
type Optimizer interface {
	Name() string
	// Build sizes the accumulators for layers and discards any previous state.
	Build(layers []layer.Layer) error
	// Update applies one step using the gradients currently held by the layers.
	Update(layers []layer.Layer) error
	Built() bool
	// Info describes the optimizer and its hyperparameters.
	Info() string
	// Clone returns an unbuilt optimizer with the same hyperparameters.
	Clone() Optimizer
}

// slot is one parameter buffer and its gradient.
type slot struct {
	value, grad []float64
	trainable   bool
}

func paramSlots(l layer.Layer) []slot {
	var slots []slot
	if k := l.Kernel(); k != nil {
		slots = append(slots, slot{value: k.Data(), grad: l.KernelGrad().Data(), trainable: l.Trainable()})
	}
	if l.HasBias() && l.Bias() != nil {
		slots = append(slots, slot{value: l.Bias().Data(), grad: l.BiasGrad().Data(), trainable: l.Trainable()})
	}
	return slots
}

// collect returns the parameter buffers of the trainable layers and the
// indices of the layers they belong to.
func collect(layers []layer.Layer) ([]slot, []int) {
	var (
		slots  []slot
		owners []int
	)
	for i, l := range layers {
		if l.NumParams() == 0 || !l.Trainable() {
			continue
		}
		owners = append(owners, i)
		slots = append(slots, paramSlots(l)...)
	}
	return slots, owners
}

// state holds the layout recorded at Build and the accumulators of a variant.
type state struct {
	name    string
	built   bool
	nLayers int
	owners  []int
	sizes   []int
}

func (s *state) build(layers []layer.Layer) []slot {
	slots, owners := collect(layers)
	s.nLayers = len(layers)
	s.owners = owners
	s.sizes = make([]int, len(slots))
	for i, sl := range slots {
		s.sizes[i] = len(sl.value)
	}
	s.built = true
	return slots
}

// slots gathers the buffers of the layers that were trainable at Build.
// A layer frozen since then keeps its accumulators but is not updated.
func (s *state) slots(layers []layer.Layer) ([]slot, error) {
	op := s.name + ".Update"
	if !s.built {
		return nil, errors.NewConfigurationError(op, "optimizer is not built. Call Build() first")
	}
	if len(layers) != s.nLayers {
		return nil, errors.NewShapeMismatchError(op, []int{s.nLayers}, []int{len(layers)})
	}
	var slots []slot
	for _, i := range s.owners {
		slots = append(slots, paramSlots(layers[i])...)
	}
	if len(slots) != len(s.sizes) {
		return nil, errors.NewShapeMismatchError(op, []int{len(s.sizes)}, []int{len(slots)})
	}
	for i, sl := range slots {
		if len(sl.value) != s.sizes[i] {
			return nil, errors.NewShapeMismatchError(op, []int{s.sizes[i]}, []int{len(sl.value)})
		}
	}
	return slots, nil
}

func (s *state) Built() bool { return s.built }
func (s *state) Name() string { return s.name }

func accumulators(slots []slot) [][]float64 {
	acc := make([][]float64, len(slots))
	for i, sl := range slots {
		acc[i] = make([]float64, len(sl.value))
	}
	return acc
}

func checkLearningRate(lr float64) error {
	if !(lr > 0) {
		return errors.NewArgumentError("learningRate", "must be greater than 0", lr)
	}
	return nil
}

func checkUnit(param string, v float64) error {
	if v < 0 || v >= 1 {
		return errors.NewArgumentError(param, "must be in [0, 1)", v)
	}
	return nil
}

func checkEpsilon(eps float64) error {
	if eps < 0 {
		return errors.NewArgumentError("epsilon", "must be non-negative", eps)
	}
	return nil
}

func info(name string, kv ...any) string {
	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('(')
	for i := 0; i+1 < len(kv); i += 2 {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%v=%v", kv[i], kv[i+1])
	}
	b.WriteByte(')')
	return b.String()
}

// Get returns the named optimizer with its default hyperparameters.
func Get(name string) (Optimizer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "gd":
		return DefaultGD(), nil
	case "sgd":
		return DefaultSGD(), nil
	case "adagrad":
		return DefaultAdaGrad(), nil
	case "rmsprop":
		return DefaultRMSProp(), nil
	case "adam":
		return DefaultAdam(), nil
	default:
		return nil, errors.NewArgumentError("optimizer", "unknown optimizer", name)
	}
}
