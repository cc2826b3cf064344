package layer

import (
	"math"

	"github.com/YuminosukeSato/neurago/core/tensor"
	"github.com/YuminosukeSato/neurago/pkg/errors"
)

// MaxPooling keeps the maximum of each window of every channel of a CHW input.
// Backward routes each output gradient to the position that won its window.
type MaxPooling struct {
	base
	poolShape [2]int
	stride    [2]int
	argmax    []int // flat input index per output element
}

// NewMaxPooling creates a pooling layer. Without WithStride the windows do
// not overlap.
func NewMaxPooling(poolShape [2]int, opts ...Option) (*MaxPooling, error) {
	if poolShape[0] < 1 || poolShape[1] < 1 {
		return nil, errors.NewArgumentError("poolShape", "dimensions must be at least 1", poolShape)
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	stride := cfg.stride
	if stride == [2]int{} {
		stride = poolShape
	}
	if stride[0] < 1 || stride[1] < 1 {
		return nil, errors.NewArgumentError("stride", "dimensions must be at least 1", stride)
	}

	p := &MaxPooling{
		base:      base{name: "MaxPooling"},
		poolShape: poolShape,
		stride:    stride,
	}
	if cfg.inputShape != nil {
		if err := p.Build(cfg.inputShape); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// PoolShape returns the window height and width.
func (p *MaxPooling) PoolShape() [2]int { return p.poolShape }

// Stride returns the vertical and horizontal step.
func (p *MaxPooling) Stride() [2]int { return p.stride }

func (p *MaxPooling) Build(inputShape []int) error {
	if len(inputShape) != 3 {
		return errors.NewShapeMismatchError(p.op("Build"), []int{-1, -1, -1}, inputShape)
	}
	depth, h, w := inputShape[0], inputShape[1], inputShape[2]
	if depth < 1 || h < p.poolShape[0] || w < p.poolShape[1] {
		return errors.NewShapeMismatchError(p.op("Build"), []int{1, p.poolShape[0], p.poolShape[1]}, inputShape)
	}
	oh := (h-p.poolShape[0])/p.stride[0] + 1
	ow := (w-p.poolShape[1])/p.stride[1] + 1
	p.argmax = make([]int, depth*oh*ow)
	p.setShapes(inputShape, []int{depth, oh, ow})
	return nil
}

func (p *MaxPooling) Forward(input *tensor.Tensor, _ bool) (*tensor.Tensor, error) {
	if err := p.checkForward(input); err != nil {
		return nil, err
	}
	depth, h, w := p.inputShape[0], p.inputShape[1], p.inputShape[2]
	oh, ow := p.outputShape[1], p.outputShape[2]
	in := input.Data()
	out := p.output.Data()

	for c := 0; c < depth; c++ {
		for i := 0; i < oh; i++ {
			for j := 0; j < ow; j++ {
				best, bestIdx := math.Inf(-1), -1
				for m := 0; m < p.poolShape[0]; m++ {
					row := (c*h + i*p.stride[0] + m) * w
					for n := 0; n < p.poolShape[1]; n++ {
						idx := row + j*p.stride[1] + n
						if bestIdx < 0 || in[idx] > best {
							best, bestIdx = in[idx], idx
						}
					}
				}
				o := (c*oh+i)*ow + j
				out[o] = best
				p.argmax[o] = bestIdx
			}
		}
	}
	return p.output, nil
}

func (p *MaxPooling) Backward(gradOutput *tensor.Tensor) (*tensor.Tensor, error) {
	if err := p.checkBackward(gradOutput); err != nil {
		return nil, err
	}
	p.gradInput.Zero()
	gi := p.gradInput.Data()
	for o, g := range gradOutput.Data() {
		gi[p.argmax[o]] += g
	}
	return p.gradInput, nil
}

func (p *MaxPooling) Clone() Layer {
	return &MaxPooling{
		base:      p.cloneBase(),
		poolShape: p.poolShape,
		stride:    p.stride,
		argmax:    append([]int(nil), p.argmax...),
	}
}
