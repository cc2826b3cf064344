package layer

import (
	"math/rand/v2"

	"github.com/YuminosukeSato/neurago/core/parallel"
	"github.com/YuminosukeSato/neurago/core/tensor"
	"github.com/YuminosukeSato/neurago/nn/activation"
	"github.com/YuminosukeSato/neurago/nn/initializer"
	"github.com/YuminosukeSato/neurago/pkg/errors"
)

// Dense is a fully connected layer: sum = W·x + b, output = act(sum).
// The kernel is shaped [units, inputs].
type Dense struct {
	base
	units   int
	useBias bool
	act     activation.Activation
	pool    *parallel.Pool

	kernel, bias         *tensor.Tensor
	gradKernel, gradBias *tensor.Tensor

	input, sum, delta *tensor.Tensor
}

// NewDense creates a fully connected layer with the given number of units.
func NewDense(units int, opts ...Option) (*Dense, error) {
	if units < 1 {
		return nil, errors.NewArgumentError("units", "must be at least 1", units)
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if err := cfg.resolve(); err != nil {
		return nil, err
	}

	d := &Dense{
		base:    base{name: "Dense", trainable: true},
		units:   units,
		useBias: cfg.useBias,
		act:     cfg.act,
	}
	if cfg.inputShape != nil {
		if err := d.Build(cfg.inputShape); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Units returns the number of outputs.
func (d *Dense) Units() int { return d.units }

func (d *Dense) SetPool(pool *parallel.Pool) { d.pool = pool }

func (d *Dense) Build(inputShape []int) error {
	if len(inputShape) != 1 || inputShape[0] < 1 {
		return errors.NewShapeMismatchError(d.op("Build"), []int{-1}, inputShape)
	}
	inputs := inputShape[0]
	d.kernel = tensor.Zeros(d.units, inputs)
	d.gradKernel = tensor.Zeros(d.units, inputs)
	if d.useBias {
		d.bias = tensor.Zeros(d.units)
		d.gradBias = tensor.Zeros(d.units)
	}
	d.input = tensor.Zeros(inputs)
	d.sum = tensor.Zeros(d.units)
	d.delta = tensor.Zeros(d.units)
	d.setShapes(inputShape, []int{d.units})
	return nil
}

func (d *Dense) Initialize(kernelInit, biasInit initializer.Initializer, rng *rand.Rand) error {
	if err := d.requireBuilt("Initialize"); err != nil {
		return err
	}
	if kernelInit == nil {
		kernelInit = initializer.GlorotUniform{}
	}
	inputs := d.inputShape[0]
	if err := kernelInit.Initialize(d.kernel, inputs, d.units, rng); err != nil {
		return err
	}
	if !d.useBias {
		return nil
	}
	if biasInit == nil {
		d.bias.Zero()
		return nil
	}
	return biasInit.Initialize(d.bias, inputs, d.units, rng)
}

func (d *Dense) Forward(input *tensor.Tensor, _ bool) (*tensor.Tensor, error) {
	if err := d.checkForward(input); err != nil {
		return nil, err
	}
	copy(d.input.Data(), input.Data())

	if err := tensor.MatMulVec(d.pool, d.kernel, d.input, d.sum); err != nil {
		return nil, err
	}
	if d.useBias {
		if err := tensor.AddInPlace(d.sum, d.bias); err != nil {
			return nil, err
		}
	}
	d.act.Forward(d.sum.Data(), d.output.Data())
	return d.output, nil
}

func (d *Dense) Backward(gradOutput *tensor.Tensor) (*tensor.Tensor, error) {
	if err := d.checkBackward(gradOutput); err != nil {
		return nil, err
	}
	d.act.Backward(d.sum.Data(), d.output.Data(), gradOutput.Data(), d.delta.Data())

	if err := tensor.Outer(d.delta, d.input, d.gradKernel, true); err != nil {
		return nil, err
	}
	if d.useBias {
		if err := tensor.AddInPlace(d.gradBias, d.delta); err != nil {
			return nil, err
		}
	}
	if err := tensor.MatMulTransA(d.pool, d.kernel, d.delta, d.gradInput); err != nil {
		return nil, err
	}
	return d.gradInput, nil
}

// Sum returns the pre-activation buffer of the last forward pass.
func (d *Dense) Sum() *tensor.Tensor { return d.sum }

func (d *Dense) NumParams() int {
	if !d.built {
		return 0
	}
	n := d.kernel.Size()
	if d.useBias {
		n += d.bias.Size()
	}
	return n
}

func (d *Dense) ZeroGrad() {
	if !d.built {
		return
	}
	d.gradKernel.Zero()
	if d.useBias {
		d.gradBias.Zero()
	}
}

func (d *Dense) HasBias() bool { return d.useBias }
func (d *Dense) Kernel() *tensor.Tensor { return d.kernel }
func (d *Dense) Bias() *tensor.Tensor { return d.bias }
func (d *Dense) KernelGrad() *tensor.Tensor { return d.gradKernel }
func (d *Dense) BiasGrad() *tensor.Tensor { return d.gradBias }
func (d *Dense) Activation() activation.Activation { return d.act }

func (d *Dense) SetKernel(k *tensor.Tensor) error {
	return setParam(d.op("SetKernel"), d.kernel, k)
}

func (d *Dense) SetBias(b *tensor.Tensor) error {
	if !d.useBias {
		return errors.NewConfigurationError(d.op("SetBias"), "layer has no bias")
	}
	return setParam(d.op("SetBias"), d.bias, b)
}

func (d *Dense) Clone() Layer {
	return &Dense{
		base:       d.cloneBase(),
		units:      d.units,
		useBias:    d.useBias,
		act:        d.act,
		pool:       d.pool,
		kernel:     cloneOrNil(d.kernel),
		bias:       cloneOrNil(d.bias),
		gradKernel: cloneOrNil(d.gradKernel),
		gradBias:   cloneOrNil(d.gradBias),
		input:      cloneOrNil(d.input),
		sum:        cloneOrNil(d.sum),
		delta:      cloneOrNil(d.delta),
	}
}
