package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/neurago/pkg/errors"
)

func TestNew(t *testing.T) {
	tn, err := New(2, 3, 4)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3, 4}, tn.Shape())
	assert.Equal(t, 3, tn.Rank())
	assert.Equal(t, 24, tn.Size())
	assert.Len(t, tn.Data(), 24)

	for _, shape := range [][]int{{}, {0}, {2, -1}} {
		_, err := New(shape...)
		assert.True(t, errors.IsArgumentError(err), "shape %v", shape)
	}
	assert.Panics(t, func() { Zeros(3, 0) })
}

func TestFromSlice(t *testing.T) {
	src := []float64{1, 2, 3, 4, 5, 6}
	tn, err := FromSlice(src, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, 6.0, tn.At(1, 2))
	assert.Equal(t, 2.0, tn.At(0, 1))

	src[0] = 100
	assert.Equal(t, 1.0, tn.At(0, 0), "FromSlice must copy")

	_, err = FromSlice(src, 4, 2)
	assert.True(t, errors.IsShapeMismatch(err))
}

func TestShapeIsImmutable(t *testing.T) {
	tn := Zeros(2, 2)
	s := tn.Shape()
	s[0] = 9
	assert.Equal(t, []int{2, 2}, tn.Shape())
}

func TestAtSetPanics(t *testing.T) {
	tn := Zeros(2, 2)
	tn.Set(5, 1, 0)
	assert.Equal(t, 5.0, tn.Data()[2])
	assert.Panics(t, func() { tn.At(2, 0) })
	assert.Panics(t, func() { tn.At(0) })
}

func TestSliceSharesStorage(t *testing.T) {
	tn := Zeros(3, 2, 2)
	view := tn.Slice(1)
	assert.Equal(t, []int{2, 2}, view.Shape())

	view.Set(7, 1, 1)
	assert.Equal(t, 7.0, tn.At(1, 1, 1))
	assert.Equal(t, 0.0, tn.At(2, 0, 0))

	vec := Vector(1, 2, 3)
	assert.Equal(t, []int{1}, vec.Slice(2).Shape())
	assert.Equal(t, 3.0, vec.Slice(2).At(0))
	assert.Panics(t, func() { tn.Slice(3) })
}

func TestCloneReshapeCopyFrom(t *testing.T) {
	tn, _ := FromSlice([]float64{1, 2, 3, 4}, 2, 2)

	c := tn.Clone()
	c.Set(9, 0, 0)
	assert.Equal(t, 1.0, tn.At(0, 0))

	flat, err := tn.Reshape(4)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 4}, flat.Data())
	flat.Data()[0] = 42
	assert.Equal(t, 1.0, tn.At(0, 0))

	_, err = tn.Reshape(3)
	assert.True(t, errors.IsShapeMismatch(err))

	dst := Zeros(2, 2)
	require.NoError(t, dst.CopyFrom(tn))
	assert.Equal(t, tn.Data(), dst.Data())
	assert.True(t, errors.IsShapeMismatch(dst.CopyFrom(flat)))
}

func TestFillZeroMap(t *testing.T) {
	tn := Zeros(3)
	tn.Fill(2)
	assert.Equal(t, []float64{2, 2, 2}, tn.Data())

	sq := tn.Map(func(v float64) float64 { return v * v })
	assert.Equal(t, []float64{4, 4, 4}, sq.Data())
	assert.Equal(t, []float64{2, 2, 2}, tn.Data())

	tn.Apply(func(v float64) float64 { return v + 1 })
	assert.Equal(t, []float64{3, 3, 3}, tn.Data())

	tn.Zero()
	assert.Equal(t, []float64{0, 0, 0}, tn.Data())
}

func TestMatrixInterop(t *testing.T) {
	m := mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6})
	tn := FromMatrix(m)
	assert.Equal(t, []int{2, 3}, tn.Shape())
	assert.Equal(t, 6.0, tn.At(1, 2))

	view, err := tn.Matrix()
	require.NoError(t, err)
	view.Set(0, 0, -1)
	assert.Equal(t, -1.0, tn.At(0, 0))

	_, err = Zeros(2, 2, 2).Matrix()
	assert.True(t, errors.IsShapeMismatch(err))
}

func TestString(t *testing.T) {
	assert.Equal(t, "Tensor[2][1 2]", Vector(1, 2).String())
	assert.Equal(t, "Tensor[5 5]", Zeros(5, 5).String())
}
