package preprocessing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/neurago/core/tensor"
	"github.com/YuminosukeSato/neurago/pkg/errors"
)

func samples() []*tensor.Tensor {
	return []*tensor.Tensor{
		tensor.Vector(1, 10, 5),
		tensor.Vector(2, 20, 5),
		tensor.Vector(3, 30, 5),
		tensor.Vector(4, 40, 5),
	}
}

func column(ts []*tensor.Tensor, j int) []float64 {
	col := make([]float64, len(ts))
	for i, t := range ts {
		col[i] = t.Data()[j]
	}
	return col
}

func TestStandardScaler(t *testing.T) {
	s := NewStandardScalerDefault()
	assert.Equal(t, "StandardScaler(with_mean=true, with_std=true)", s.String())

	in := samples()
	out, err := s.FitTransform(in)
	require.NoError(t, err)
	require.Len(t, out, 4)
	assert.True(t, s.IsFitted())
	assert.Equal(t, []float64{2.5, 25, 5}, s.Mean)

	for j := 0; j < 2; j++ {
		mean, variance := stat.PopMeanVariance(column(out, j), nil)
		assert.InDelta(t, 0, mean, 1e-12)
		assert.InDelta(t, 1, variance, 1e-12)
	}
	// constant feature keeps scale 1
	assert.Equal(t, 1.0, s.Scale[2])
	assert.Equal(t, []float64{0, 0, 0, 0}, column(out, 2))

	// input untouched
	assert.Equal(t, []float64{1, 10, 5}, in[0].Data())

	back, err := s.InverseTransform(out)
	require.NoError(t, err)
	for i := range in {
		assert.InDeltaSlice(t, in[i].Data(), back[i].Data(), 1e-12)
	}
	assert.Contains(t, s.String(), "n_features=3")
}

func TestStandardScalerWithoutMean(t *testing.T) {
	s := NewStandardScaler(false, true)
	out, err := s.FitTransform(samples())
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0}, s.Mean)
	assert.Greater(t, out[3].Data()[0], 0.0)
}

func TestStandardScalerImages(t *testing.T) {
	a := tensor.Zeros(1, 2, 2)
	b := tensor.Zeros(1, 2, 2)
	b.Fill(2)

	s := NewStandardScalerDefault()
	out, err := s.FitTransform([]*tensor.Tensor{a, b})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 2}, out[0].Shape())
	assert.Equal(t, []float64{-1, -1, -1, -1}, out[0].Data())
	assert.Equal(t, []float64{1, 1, 1, 1}, out[1].Data())
}

func TestMinMaxScaler(t *testing.T) {
	m, err := NewMinMaxScaler([2]float64{-1, 1})
	require.NoError(t, err)

	in := samples()
	out, err := m.FitTransform(in)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 10, 5}, m.DataMin)
	assert.Equal(t, []float64{4, 40, 5}, m.DataMax)

	assert.InDeltaSlice(t, []float64{-1, -1.0 / 3, 1.0 / 3, 1}, column(out, 0), 1e-12)
	assert.InDeltaSlice(t, []float64{-1, -1, -1, -1}, column(out, 2), 1e-12)

	back, err := m.InverseTransform(out)
	require.NoError(t, err)
	for i := range in {
		assert.InDeltaSlice(t, in[i].Data(), back[i].Data(), 1e-12)
	}

	unseen, err := m.Transform([]*tensor.Tensor{tensor.Vector(7, 40, 5)})
	require.NoError(t, err)
	assert.InDelta(t, 3, unseen[0].Data()[0], 1e-12)

	d := NewMinMaxScalerDefault()
	out, err = d.FitTransform(in)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 0, 0}, out[0].Data(), 1e-12)
	assert.InDeltaSlice(t, []float64{1, 1, 0}, out[3].Data(), 1e-12)
	assert.Contains(t, d.String(), "n_features=3")
}

func TestScalerErrors(t *testing.T) {
	_, err := NewMinMaxScaler([2]float64{1, 1})
	assert.True(t, errors.IsArgumentError(err))

	s := NewStandardScalerDefault()
	_, err = s.Transform(samples())
	assert.True(t, errors.IsConfigurationError(err))
	_, err = s.InverseTransform(samples())
	assert.True(t, errors.IsConfigurationError(err))
	assert.True(t, errors.Is(s.Fit(nil), errors.ErrEmptyData))

	mixed := append(samples(), tensor.Vector(1, 2))
	assert.True(t, errors.IsShapeMismatch(s.Fit(mixed)))

	require.NoError(t, s.Fit(samples()))
	_, err = s.Transform([]*tensor.Tensor{tensor.Vector(1, 2)})
	assert.True(t, errors.IsShapeMismatch(err))

	m := NewMinMaxScalerDefault()
	_, err = m.Transform(samples())
	assert.True(t, errors.IsConfigurationError(err))
	assert.True(t, errors.IsShapeMismatch(m.Fit(mixed)))
}
