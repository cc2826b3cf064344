package activation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/YuminosukeSato/neurago/pkg/errors"
)

var points = []float64{-3.1, -1, -0.25, 0.3, 1, 2.7}

func TestElementwise_DerivativeMatchesFiniteDifference(t *testing.T) {
	const h = 1e-6
	funcs := []*Func{
		Linear(), ReLU(), LeakyReLU(0.1), ELU(1.5), Sigmoid(), TanH(),
		Softplus(), Swish(), GELU(), Sine(), ArcTan(),
	}
	for _, f := range funcs {
		t.Run(f.Name(), func(t *testing.T) {
			for _, x := range points {
				numeric := (f.Apply(x+h) - f.Apply(x-h)) / (2 * h)
				assert.InDelta(t, numeric, f.Derivative(x), 1e-5, "x=%v", x)
			}
		})
	}
}

func TestElementwise_ForwardBackward(t *testing.T) {
	f := Sigmoid()
	sum := []float64{-2, 0, 2}
	out := make([]float64, 3)
	f.Forward(sum, out)
	assert.InDelta(t, 0.5, out[1], 1e-12)
	assert.InDelta(t, 1-out[0], out[2], 1e-12)

	grad := make([]float64, 3)
	f.Backward(sum, out, []float64{1, 2, 3}, grad)
	for i := range sum {
		assert.InDelta(t, float64(i+1)*out[i]*(1-out[i]), grad[i], 1e-12)
	}
}

func TestKnownValues(t *testing.T) {
	assert.Equal(t, 0.0, ReLU().Apply(-5))
	assert.Equal(t, 0.0, ReLU().Derivative(0))
	assert.Equal(t, -0.5, LeakyReLU(0.1).Apply(-5))
	assert.Equal(t, 0.0, TanH().Apply(0))
	assert.InDelta(t, math.Log(2), Softplus().Apply(0), 1e-12)
	assert.InDelta(t, 1000.0, Softplus().Apply(1000), 1e-9)
	assert.Equal(t, 1.0, Sigmoid().Apply(800))
	assert.Equal(t, 0.0, Sigmoid().Apply(-800))
	assert.InDelta(t, -1.0, ELU(1).Apply(-50), 1e-12)
	assert.Equal(t, 0.0, GELU().Apply(0))
}

func TestSoftmax_Forward(t *testing.T) {
	s := Softmax()
	out := make([]float64, 3)
	s.Forward([]float64{1, 2, 3}, out)
	assert.InDelta(t, 1.0, floats.Sum(out), 1e-12)
	assert.Equal(t, 2, floats.MaxIdx(out))

	// stable for large inputs
	s.Forward([]float64{1000, 1000, 1000}, out)
	for _, v := range out {
		assert.InDelta(t, 1.0/3, v, 1e-12)
	}
}

func TestSoftmax_BackwardMatchesJacobian(t *testing.T) {
	const h = 1e-6
	s := Softmax()
	sum := []float64{0.2, -1.3, 0.7, 2.1}
	gradOut := []float64{0.5, -1, 2, 0.1}

	out := make([]float64, len(sum))
	s.Forward(sum, out)
	got := make([]float64, len(sum))
	s.Backward(sum, out, gradOut, got)

	plus := make([]float64, len(sum))
	minus := make([]float64, len(sum))
	for j := range sum {
		shifted := append([]float64(nil), sum...)
		shifted[j] += h
		s.Forward(shifted, plus)
		shifted[j] -= 2 * h
		s.Forward(shifted, minus)

		var want float64
		for i := range sum {
			want += gradOut[i] * (plus[i] - minus[i]) / (2 * h)
		}
		assert.InDelta(t, want, got[j], 1e-6, "component %d", j)
	}
}

func TestGet(t *testing.T) {
	for _, name := range []string{"ReLU", "relu", " Sigmoid ", "TANH", "softmax", "LeakyReLU", "gelu"} {
		a, err := Get(name)
		require.NoError(t, err, name)
		assert.NotNil(t, a)
	}

	a, err := Get("Softmax")
	require.NoError(t, err)
	assert.Equal(t, "softmax", a.Name())

	_, err = Get("mystery")
	assert.True(t, errors.IsArgumentError(err))
	assert.Contains(t, Names(), "arctan")
}
