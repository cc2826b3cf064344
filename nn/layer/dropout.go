package layer

import (
	"math/rand/v2"

	"github.com/YuminosukeSato/neurago/core/tensor"
	"github.com/YuminosukeSato/neurago/pkg/errors"
)

// Dropout zeroes a fraction of activations during training and scales the
// survivors by 1/(1−rate), so inference is the identity.
type Dropout struct {
	base
	rate float64
	rng  *rand.Rand
	mask []float64
}

// NewDropout creates a dropout layer; rate must be in [0, 1).
func NewDropout(rate float64, opts ...Option) (*Dropout, error) {
	if rate < 0 || rate >= 1 {
		return nil, errors.NewArgumentError("rate", "must be in [0, 1)", rate)
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	d := &Dropout{base: base{name: "Dropout"}, rate: rate}
	if cfg.inputShape != nil {
		if err := d.Build(cfg.inputShape); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Rate returns the drop probability.
func (d *Dropout) Rate() float64 { return d.rate }

func (d *Dropout) SetRNG(rng *rand.Rand) { d.rng = rng }

// Mask returns the multiplier applied to each element by the last forward pass.
func (d *Dropout) Mask() []float64 { return d.mask }

func (d *Dropout) Build(inputShape []int) error {
	n := tensor.Volume(inputShape)
	if n == 0 {
		return errors.NewArgumentError("inputShape", "dimensions must be positive", inputShape)
	}
	d.mask = make([]float64, n)
	d.setShapes(inputShape, inputShape)
	return nil
}

func (d *Dropout) Forward(input *tensor.Tensor, training bool) (*tensor.Tensor, error) {
	if err := d.checkForward(input); err != nil {
		return nil, err
	}
	in, out := input.Data(), d.output.Data()

	if !training || d.rate == 0 {
		for i := range d.mask {
			d.mask[i] = 1
		}
		copy(out, in)
		return d.output, nil
	}
	if d.rng == nil {
		return nil, errors.NewConfigurationError(d.op("Forward"), "no random source. Compile the model or call SetRNG() first")
	}

	scale := 1 / (1 - d.rate)
	for i, v := range in {
		if d.rng.Float64() < d.rate {
			d.mask[i] = 0
		} else {
			d.mask[i] = scale
		}
		out[i] = v * d.mask[i]
	}
	return d.output, nil
}

func (d *Dropout) Backward(gradOutput *tensor.Tensor) (*tensor.Tensor, error) {
	if err := d.checkBackward(gradOutput); err != nil {
		return nil, err
	}
	gi := d.gradInput.Data()
	for i, g := range gradOutput.Data() {
		gi[i] = g * d.mask[i]
	}
	return d.gradInput, nil
}

func (d *Dropout) Clone() Layer {
	return &Dropout{
		base: d.cloneBase(),
		rate: d.rate,
		rng:  d.rng,
		mask: append([]float64(nil), d.mask...),
	}
}
