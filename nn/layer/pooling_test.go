package layer

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/neurago/core/tensor"
	"github.com/YuminosukeSato/neurago/pkg/errors"
)

func TestMaxPooling_ForwardBackward(t *testing.T) {
	p, err := NewMaxPooling([2]int{2, 2}, WithInputShape(1, 4, 4))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 2}, p.OutputShape())

	in, _ := tensor.FromSlice([]float64{
		1, 3, 2, 0,
		4, 2, 1, 1,
		0, 0, 5, 6,
		9, 1, 7, 8,
	}, 1, 4, 4)
	out, err := p.Forward(in, false)
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 2, 9, 8}, out.Data())

	gi, err := p.Backward(tensor.Zeros(1, 2, 2).Map(func(float64) float64 { return 1 }))
	require.NoError(t, err)
	assert.Equal(t, []float64{
		0, 0, 1, 0,
		1, 0, 0, 0,
		0, 0, 0, 0,
		1, 0, 0, 1,
	}, gi.Data())
}

func TestMaxPooling_GradientGoesOnlyToArgmax(t *testing.T) {
	rng := rand.New(rand.NewPCG(9, 9))
	p, err := NewMaxPooling([2]int{2, 3}, WithInputShape(3, 6, 7))
	require.NoError(t, err)
	assert.Equal(t, []int{3, 3, 2}, p.OutputShape())

	in := randomInput(rng, 3, 6, 7)
	out, err := p.Forward(in, false)
	require.NoError(t, err)
	gi, err := p.Backward(out)
	require.NoError(t, err)

	nonZero := 0
	for i, g := range gi.Data() {
		if g != 0 {
			nonZero++
			assert.Equal(t, in.Data()[i], g)
		}
	}
	assert.Equal(t, out.Size(), nonZero)
}

func TestMaxPooling_Stride(t *testing.T) {
	p, err := NewMaxPooling([2]int{2, 2}, WithStride(1, 1), WithInputShape(1, 3, 3))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 2}, p.OutputShape())
	assert.Equal(t, [2]int{1, 1}, p.Stride())

	in, _ := tensor.FromSlice([]float64{1, 2, 3, 4, 9, 6, 7, 8, 5}, 1, 3, 3)
	out, err := p.Forward(in, false)
	require.NoError(t, err)
	assert.Equal(t, []float64{9, 9, 9, 9}, out.Data())

	gi, err := p.Backward(tensor.Zeros(1, 2, 2).Map(func(float64) float64 { return 1 }))
	require.NoError(t, err)
	assert.Equal(t, 4.0, gi.At(0, 1, 1))
}

func TestMaxPooling_Errors(t *testing.T) {
	_, err := NewMaxPooling([2]int{0, 2})
	assert.True(t, errors.IsArgumentError(err))
	_, err = NewMaxPooling([2]int{2, 2}, WithStride(0, 1))
	assert.True(t, errors.IsArgumentError(err))
	_, err = NewMaxPooling([2]int{2, 2}, WithInputShape(4, 4))
	assert.True(t, errors.IsShapeMismatch(err))
	_, err = NewMaxPooling([2]int{5, 2}, WithInputShape(1, 4, 4))
	assert.True(t, errors.IsShapeMismatch(err))
}

func TestFlatten(t *testing.T) {
	f, err := NewFlatten(WithInputShape(2, 3, 2))
	require.NoError(t, err)
	assert.Equal(t, []int{12}, f.OutputShape())
	assert.Equal(t, 0, f.NumParams())
	assert.Nil(t, f.Kernel())
	assert.True(t, errors.IsConfigurationError(f.SetKernel(tensor.Zeros(1))))

	rng := rand.New(rand.NewPCG(1, 1))
	in := randomInput(rng, 2, 3, 2)
	out, err := f.Forward(in, false)
	require.NoError(t, err)
	assert.Equal(t, in.Data(), out.Data())
	in.Data()[0] = 42
	assert.NotEqual(t, 42.0, out.Data()[0])

	gi, err := f.Backward(out)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3, 2}, gi.Shape())
	assert.Equal(t, out.Data(), gi.Data())
}

func TestDropout_Inference(t *testing.T) {
	d, err := NewDropout(0.5, WithInputShape(4))
	require.NoError(t, err)

	in := tensor.Vector(1, 2, 3, 4)
	out, err := d.Forward(in, false)
	require.NoError(t, err)
	assert.Equal(t, in.Data(), out.Data())

	gi, err := d.Backward(tensor.Vector(1, 1, 1, 1))
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 1, 1}, gi.Data())
}

func TestDropout_Training(t *testing.T) {
	d, err := NewDropout(0.25, WithInputShape(1000))
	require.NoError(t, err)

	in := tensor.Zeros(1000)
	in.Fill(1)
	_, err = d.Forward(in, true)
	assert.True(t, errors.IsConfigurationError(err))

	d.SetRNG(rand.New(rand.NewPCG(5, 5)))
	out, err := d.Forward(in, true)
	require.NoError(t, err)

	dropped := 0
	for i, v := range out.Data() {
		if v == 0 {
			dropped++
			assert.Equal(t, 0.0, d.Mask()[i])
		} else {
			assert.InDelta(t, 1/0.75, v, 1e-12)
		}
	}
	assert.InDelta(t, 250, dropped, 60)

	g := tensor.Zeros(1000)
	g.Fill(2)
	gi, err := d.Backward(g)
	require.NoError(t, err)
	for i, v := range gi.Data() {
		assert.Equal(t, 2*d.Mask()[i], v)
	}
}

func TestDropout_InvalidRate(t *testing.T) {
	for _, rate := range []float64{-0.1, 1, 1.5} {
		_, err := NewDropout(rate)
		assert.True(t, errors.IsArgumentError(err), "rate %v", rate)
	}
}
