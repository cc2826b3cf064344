// Package layer defines the forward/backward contract shared by every layer
// of a Sequential model, together with the concrete variants.
//
// Buffer ownership: a layer copies its input on Forward and owns its output,
// gradient and parameter tensors. The tensors returned by Output, GradInput
// and the parameter accessors are the layer's own buffers and are
// overwritten by the next pass.
package layer

import (
	"fmt"
	"math/rand/v2"

	"github.com/YuminosukeSato/neurago/core/parallel"
	"github.com/YuminosukeSato/neurago/core/tensor"
	"github.com/YuminosukeSato/neurago/nn/activation"
	"github.com/YuminosukeSato/neurago/nn/initializer"
	"github.com/YuminosukeSato/neurago/pkg/errors"
)

// Layer is one stage of a Sequential model.
type Layer interface {
	// Name returns the layer kind, e.g. "Dense".
	Name() string
	ID() int
	SetID(id int)

	// Trainable reports whether the optimizer updates this layer.
	Trainable() bool
	SetTrainable(trainable bool)

	Built() bool
	// Build allocates every buffer for the given input shape. Calling it
	// again reallocates.
	Build(inputShape []int) error
	// Initialize fills the parameters. A nil biasInit means zeros.
	Initialize(kernelInit, biasInit initializer.Initializer, rng *rand.Rand) error

	// Forward computes the output for input and returns the layer's output buffer.
	Forward(input *tensor.Tensor, training bool) (*tensor.Tensor, error)
	// Backward receives the gradient of the loss with respect to the layer
	// output, accumulates parameter gradients and returns the gradient with
	// respect to the input.
	Backward(gradOutput *tensor.Tensor) (*tensor.Tensor, error)

	InputShape() []int
	OutputShape() []int
	Output() *tensor.Tensor
	GradInput() *tensor.Tensor

	NumParams() int
	ZeroGrad()
	HasBias() bool
	Kernel() *tensor.Tensor
	Bias() *tensor.Tensor
	KernelGrad() *tensor.Tensor
	BiasGrad() *tensor.Tensor
	SetKernel(k *tensor.Tensor) error
	SetBias(b *tensor.Tensor) error

	// Activation returns nil for layers without one.
	Activation() activation.Activation

	// Clone returns an independent copy including parameters.
	Clone() Layer
}

// Stochastic layers draw from the model's random source.
type Stochastic interface {
	SetRNG(rng *rand.Rand)
}

// PoolAware layers fan their work out over the model's worker pool.
type PoolAware interface {
	SetPool(pool *parallel.Pool)
}

// base carries the bookkeeping every layer shares.
type base struct {
	id          int
	name        string
	trainable   bool
	built       bool
	inputShape  []int
	outputShape []int
	output      *tensor.Tensor
	gradInput   *tensor.Tensor
}

func (b *base) Name() string { return b.name }
func (b *base) ID() int { return b.id }
func (b *base) SetID(id int) { b.id = id }
func (b *base) Trainable() bool { return b.trainable }
func (b *base) SetTrainable(trainable bool) { b.trainable = trainable }
func (b *base) Built() bool { return b.built }
func (b *base) InputShape() []int { return append([]int(nil), b.inputShape...) }
func (b *base) OutputShape() []int { return append([]int(nil), b.outputShape...) }
func (b *base) Output() *tensor.Tensor { return b.output }
func (b *base) GradInput() *tensor.Tensor { return b.gradInput }
func (b *base) NumParams() int { return 0 }
func (b *base) ZeroGrad() {}
func (b *base) HasBias() bool { return false }
func (b *base) Kernel() *tensor.Tensor { return nil }
func (b *base) Bias() *tensor.Tensor { return nil }
func (b *base) KernelGrad() *tensor.Tensor { return nil }
func (b *base) BiasGrad() *tensor.Tensor { return nil }
func (b *base) Activation() activation.Activation { return nil }

func (b *base) Initialize(_, _ initializer.Initializer, _ *rand.Rand) error { return nil }

func (b *base) SetKernel(*tensor.Tensor) error {
	return errors.NewConfigurationError(b.op("SetKernel"), "layer has no kernel")
}

func (b *base) SetBias(*tensor.Tensor) error {
	return errors.NewConfigurationError(b.op("SetBias"), "layer has no bias")
}

func (b *base) op(method string) string {
	return fmt.Sprintf("%s.%s", b.name, method)
}

// setShapes records the shapes and allocates the output and input-gradient buffers.
func (b *base) setShapes(in, out []int) {
	b.inputShape = append([]int(nil), in...)
	b.outputShape = append([]int(nil), out...)
	b.output = tensor.Zeros(out...)
	b.gradInput = tensor.Zeros(in...)
	b.built = true
}

func (b *base) requireBuilt(method string) error {
	if !b.built {
		return errors.NewConfigurationError(b.op(method), "layer is not built. Call Build() first")
	}
	return nil
}

// checkForward validates a forward input against the built input shape.
func (b *base) checkForward(input *tensor.Tensor) error {
	if err := b.requireBuilt("Forward"); err != nil {
		return err
	}
	if !tensor.ShapeEqual(input.Shape(), b.inputShape) {
		return errors.NewShapeMismatchError(b.op("Forward"), b.inputShape, input.Shape())
	}
	return nil
}

// checkBackward validates an output gradient against the built output shape.
func (b *base) checkBackward(grad *tensor.Tensor) error {
	if err := b.requireBuilt("Backward"); err != nil {
		return err
	}
	if !tensor.ShapeEqual(grad.Shape(), b.outputShape) {
		return errors.NewShapeMismatchError(b.op("Backward"), b.outputShape, grad.Shape())
	}
	return nil
}

func (b *base) cloneBase() base {
	c := base{
		id:          b.id,
		name:        b.name,
		trainable:   b.trainable,
		built:       b.built,
		inputShape:  append([]int(nil), b.inputShape...),
		outputShape: append([]int(nil), b.outputShape...),
	}
	if b.built {
		c.output = b.output.Clone()
		c.gradInput = b.gradInput.Clone()
	}
	return c
}

// setParam copies src into dst after checking the shapes agree.
func setParam(op string, dst, src *tensor.Tensor) error {
	if dst == nil {
		return errors.NewConfigurationError(op, "layer is not built. Call Build() first")
	}
	if src == nil {
		return errors.NewArgumentError("tensor", "must not be nil", nil)
	}
	return errors.Wrap(dst.CopyFrom(src), op)
}

func cloneOrNil(t *tensor.Tensor) *tensor.Tensor {
	if t == nil {
		return nil
	}
	return t.Clone()
}
