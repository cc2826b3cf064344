package initializer

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/neurago/core/tensor"
	"github.com/YuminosukeSato/neurago/pkg/errors"
)

func newRNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

func TestGlorotUniform_Bounds(t *testing.T) {
	w := tensor.Zeros(50, 30)
	require.NoError(t, GlorotUniform{}.Initialize(w, 30, 50, newRNG(1)))
	limit := math.Sqrt(6.0 / 80)
	for _, v := range w.Data() {
		assert.True(t, v >= -limit && v <= limit, "value %v outside ±%v", v, limit)
	}
	assert.InDelta(t, 0, stat.Mean(w.Data(), nil), 0.05)
}

func TestNormalVariants_StdDev(t *testing.T) {
	tests := []struct {
		init Initializer
		want float64
	}{
		{GlorotNormal{}, math.Sqrt(2.0 / 300)},
		{He{}, math.Sqrt(2.0 / 100)},
		{LeCun{}, math.Sqrt(1.0 / 100)},
	}
	for _, tt := range tests {
		t.Run(tt.init.Name(), func(t *testing.T) {
			w := tensor.Zeros(200, 100)
			require.NoError(t, tt.init.Initialize(w, 100, 200, newRNG(2)))
			assert.InDelta(t, tt.want, stat.StdDev(w.Data(), nil), tt.want*0.05)
		})
	}
}

func TestSameSeedSameValues(t *testing.T) {
	a := tensor.Zeros(4, 4)
	b := tensor.Zeros(4, 4)
	require.NoError(t, GlorotUniform{}.Initialize(a, 4, 4, newRNG(7)))
	require.NoError(t, GlorotUniform{}.Initialize(b, 4, 4, newRNG(7)))
	assert.Equal(t, a.Data(), b.Data())

	c := tensor.Zeros(4, 4)
	require.NoError(t, GlorotUniform{}.Initialize(c, 4, 4, newRNG(8)))
	assert.NotEqual(t, a.Data(), c.Data())
}

func TestFanValidation(t *testing.T) {
	w := tensor.Zeros(2)
	for _, init := range []Initializer{GlorotUniform{}, GlorotNormal{}, He{}, LeCun{}} {
		assert.True(t, errors.IsArgumentError(init.Initialize(w, 0, 2, newRNG(1))), init.Name())
	}
}

func TestRandomUniform(t *testing.T) {
	_, err := NewRandomUniform(1, 1)
	assert.True(t, errors.IsArgumentError(err))

	p, err := Positive(0.5)
	require.NoError(t, err)
	w := tensor.Zeros(100)
	require.NoError(t, p.Initialize(w, 1, 1, newRNG(3)))
	for _, v := range w.Data() {
		assert.True(t, v >= 0 && v < 0.5)
	}
}

func TestConstantAndZeros(t *testing.T) {
	w := tensor.Zeros(3)
	require.NoError(t, Constant{Value: 0.1}.Initialize(w, 1, 1, nil))
	assert.Equal(t, []float64{0.1, 0.1, 0.1}, w.Data())
	require.NoError(t, Zeros{}.Initialize(w, 1, 1, nil))
	assert.Equal(t, []float64{0, 0, 0}, w.Data())
}

func TestIdentity(t *testing.T) {
	w := tensor.Zeros(2, 3)
	w.Fill(5)
	require.NoError(t, Identity{}.Initialize(w, 3, 2, nil))
	assert.Equal(t, []float64{1, 0, 0, 0, 1, 0}, w.Data())

	bank := tensor.Zeros(2, 2, 2)
	require.NoError(t, Identity{}.Initialize(bank, 1, 1, nil))
	assert.Equal(t, []float64{1, 0, 0, 1, 1, 0, 0, 1}, bank.Data())

	err := Identity{}.Initialize(tensor.Zeros(3), 1, 1, nil)
	assert.True(t, errors.IsShapeMismatch(err))
}
