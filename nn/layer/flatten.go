package layer

import (
	"github.com/YuminosukeSato/neurago/core/tensor"
	"github.com/YuminosukeSato/neurago/pkg/errors"
)

// Flatten copies its input into a rank-1 output. Backward restores the
// input shape.
type Flatten struct {
	base
}

// NewFlatten creates a Flatten layer.
func NewFlatten(opts ...Option) (*Flatten, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	f := &Flatten{base: base{name: "Flatten"}}
	if cfg.inputShape != nil {
		if err := f.Build(cfg.inputShape); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func (f *Flatten) Build(inputShape []int) error {
	n := tensor.Volume(inputShape)
	if n == 0 {
		return errors.NewArgumentError("inputShape", "dimensions must be positive", inputShape)
	}
	f.setShapes(inputShape, []int{n})
	return nil
}

func (f *Flatten) Forward(input *tensor.Tensor, _ bool) (*tensor.Tensor, error) {
	if err := f.checkForward(input); err != nil {
		return nil, err
	}
	copy(f.output.Data(), input.Data())
	return f.output, nil
}

func (f *Flatten) Backward(gradOutput *tensor.Tensor) (*tensor.Tensor, error) {
	if err := f.checkBackward(gradOutput); err != nil {
		return nil, err
	}
	copy(f.gradInput.Data(), gradOutput.Data())
	return f.gradInput, nil
}

func (f *Flatten) Clone() Layer {
	return &Flatten{base: f.cloneBase()}
}
