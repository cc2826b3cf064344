package layer

import (
	"math/rand/v2"

	"github.com/YuminosukeSato/neurago/core/parallel"
	"github.com/YuminosukeSato/neurago/core/tensor"
	"github.com/YuminosukeSato/neurago/nn/activation"
	"github.com/YuminosukeSato/neurago/nn/initializer"
	"github.com/YuminosukeSato/neurago/pkg/errors"
)

// Conv2D is a valid (unpadded, stride 1) 2-D convolution over CHW input.
//
// Input is [depth, h, w], the filter bank is [filters, depth, kH, kW] and the
// output is [filters, h−kH+1, w−kW+1]. The bias holds one value per filter
// and output position.
type Conv2D struct {
	base
	filterShape [2]int
	filters     int
	useBias     bool
	act         activation.Activation
	pool        *parallel.Pool

	kernel, bias         *tensor.Tensor
	gradKernel, gradBias *tensor.Tensor

	input, sum, delta *tensor.Tensor
}

// NewConv2D creates a convolution with filters kernels of filterShape (rows, cols).
func NewConv2D(filterShape [2]int, filters int, opts ...Option) (*Conv2D, error) {
	if filterShape[0] < 1 || filterShape[1] < 1 {
		return nil, errors.NewArgumentError("filterShape", "dimensions must be at least 1", filterShape)
	}
	if filters < 1 {
		return nil, errors.NewArgumentError("filters", "must be at least 1", filters)
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if err := cfg.resolve(); err != nil {
		return nil, err
	}

	c := &Conv2D{
		base:        base{name: "Conv2D", trainable: true},
		filterShape: filterShape,
		filters:     filters,
		useBias:     cfg.useBias,
		act:         cfg.act,
	}
	if cfg.inputShape != nil {
		if err := c.Build(cfg.inputShape); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Filters returns the number of filters.
func (c *Conv2D) Filters() int { return c.filters }

// FilterShape returns the kernel height and width.
func (c *Conv2D) FilterShape() [2]int { return c.filterShape }

func (c *Conv2D) SetPool(pool *parallel.Pool) { c.pool = pool }

func (c *Conv2D) Build(inputShape []int) error {
	if len(inputShape) != 3 {
		return errors.NewShapeMismatchError(c.op("Build"), []int{-1, -1, -1}, inputShape)
	}
	depth, h, w := inputShape[0], inputShape[1], inputShape[2]
	kh, kw := c.filterShape[0], c.filterShape[1]
	if depth < 1 || h < kh || w < kw {
		return errors.NewShapeMismatchError(c.op("Build"), []int{1, kh, kw}, inputShape)
	}
	oh, ow := h-kh+1, w-kw+1

	c.kernel = tensor.Zeros(c.filters, depth, kh, kw)
	c.gradKernel = tensor.Zeros(c.filters, depth, kh, kw)
	if c.useBias {
		c.bias = tensor.Zeros(c.filters, oh, ow)
		c.gradBias = tensor.Zeros(c.filters, oh, ow)
	}
	c.input = tensor.Zeros(depth, h, w)
	c.sum = tensor.Zeros(c.filters, oh, ow)
	c.delta = tensor.Zeros(c.filters, oh, ow)
	c.setShapes(inputShape, []int{c.filters, oh, ow})
	return nil
}

func (c *Conv2D) fans() (int, int) {
	area := c.filterShape[0] * c.filterShape[1]
	return c.inputShape[0] * area, c.filters * area
}

func (c *Conv2D) Initialize(kernelInit, biasInit initializer.Initializer, rng *rand.Rand) error {
	if err := c.requireBuilt("Initialize"); err != nil {
		return err
	}
	if kernelInit == nil {
		kernelInit = initializer.GlorotUniform{}
	}
	fanIn, fanOut := c.fans()
	if err := kernelInit.Initialize(c.kernel, fanIn, fanOut, rng); err != nil {
		return err
	}
	if !c.useBias {
		return nil
	}
	if biasInit == nil {
		c.bias.Zero()
		return nil
	}
	return biasInit.Initialize(c.bias, fanIn, fanOut, rng)
}

// Forward computes, for every filter f,
//
//	sum[f] = Σ_c correlate(input[c], kernel[f][c]) + bias[f]
//
// with filters spread across the pool.
func (c *Conv2D) Forward(input *tensor.Tensor, _ bool) (*tensor.Tensor, error) {
	if err := c.checkForward(input); err != nil {
		return nil, err
	}
	copy(c.input.Data(), input.Data())
	depth := c.inputShape[0]

	err := c.pool.Run(c.filters, func(start, end int) {
		for f := start; f < end; f++ {
			sum := c.sum.Slice(f)
			if c.useBias {
				must(sum.CopyFrom(c.bias.Slice(f)))
			} else {
				sum.Zero()
			}
			kf := c.kernel.Slice(f)
			for ch := 0; ch < depth; ch++ {
				must(tensor.CorrelateAdd(nil, c.input.Slice(ch), kf.Slice(ch), sum))
			}
		}
	})
	if err != nil {
		return nil, errors.Wrap(err, c.op("Forward"))
	}
	c.act.Forward(c.sum.Data(), c.output.Data())
	return c.output, nil
}

// Backward folds the activation derivative into δ and then computes
//
//	gradKernel[f][c] += correlate(input[c], δ[f])
//	gradInput[c]      = Σ_f convolveFull(δ[f], kernel[f][c])
//	gradBias[f]      += δ[f]
//
// The kernel gradient is split by filter and the input gradient by channel.
func (c *Conv2D) Backward(gradOutput *tensor.Tensor) (*tensor.Tensor, error) {
	if err := c.checkBackward(gradOutput); err != nil {
		return nil, err
	}
	c.act.Backward(c.sum.Data(), c.output.Data(), gradOutput.Data(), c.delta.Data())
	depth := c.inputShape[0]

	err := c.pool.Run(c.filters, func(start, end int) {
		for f := start; f < end; f++ {
			delta := c.delta.Slice(f)
			gk := c.gradKernel.Slice(f)
			for ch := 0; ch < depth; ch++ {
				must(tensor.CorrelateAdd(nil, c.input.Slice(ch), delta, gk.Slice(ch)))
			}
		}
	})
	if err != nil {
		return nil, errors.Wrap(err, c.op("Backward"))
	}
	if c.useBias {
		if err := tensor.AddInPlace(c.gradBias, c.delta); err != nil {
			return nil, err
		}
	}

	err = c.pool.Run(depth, func(start, end int) {
		for ch := start; ch < end; ch++ {
			gi := c.gradInput.Slice(ch)
			gi.Zero()
			for f := 0; f < c.filters; f++ {
				must(tensor.ConvolveFullAdd(c.delta.Slice(f), c.kernel.Slice(f).Slice(ch), gi))
			}
		}
	})
	if err != nil {
		return nil, errors.Wrap(err, c.op("Backward"))
	}
	return c.gradInput, nil
}

func (c *Conv2D) NumParams() int {
	if !c.built {
		return 0
	}
	n := c.kernel.Size()
	if c.useBias {
		n += c.bias.Size()
	}
	return n
}

func (c *Conv2D) ZeroGrad() {
	if !c.built {
		return
	}
	c.gradKernel.Zero()
	if c.useBias {
		c.gradBias.Zero()
	}
}

func (c *Conv2D) HasBias() bool { return c.useBias }
func (c *Conv2D) Kernel() *tensor.Tensor { return c.kernel }
func (c *Conv2D) Bias() *tensor.Tensor { return c.bias }
func (c *Conv2D) KernelGrad() *tensor.Tensor { return c.gradKernel }
func (c *Conv2D) BiasGrad() *tensor.Tensor { return c.gradBias }
func (c *Conv2D) Activation() activation.Activation { return c.act }

func (c *Conv2D) SetKernel(k *tensor.Tensor) error {
	return setParam(c.op("SetKernel"), c.kernel, k)
}

func (c *Conv2D) SetBias(b *tensor.Tensor) error {
	if !c.useBias {
		return errors.NewConfigurationError(c.op("SetBias"), "layer has no bias")
	}
	return setParam(c.op("SetBias"), c.bias, b)
}

func (c *Conv2D) Clone() Layer {
	return &Conv2D{
		base:        c.cloneBase(),
		filterShape: c.filterShape,
		filters:     c.filters,
		useBias:     c.useBias,
		act:         c.act,
		pool:        c.pool,
		kernel:      cloneOrNil(c.kernel),
		bias:        cloneOrNil(c.bias),
		gradKernel:  cloneOrNil(c.gradKernel),
		gradBias:    cloneOrNil(c.gradBias),
		input:       cloneOrNil(c.input),
		sum:         cloneOrNil(c.sum),
		delta:       cloneOrNil(c.delta),
	}
}

// must turns an internal shape error into a panic the pool recovers.
func must(err error) {
	if err != nil {
		panic(err)
	}
}
