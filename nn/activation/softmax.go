package activation

import "math"

// SoftmaxFunc normalizes a whole buffer into a probability distribution.
// Unlike the elementwise variants its derivative is a full Jacobian.
type SoftmaxFunc struct{}

// Softmax returns the softmax activation.
func Softmax() *SoftmaxFunc { return &SoftmaxFunc{} }

func (s *SoftmaxFunc) Name() string { return "softmax" }

// Forward subtracts the maximum before exponentiating.
func (s *SoftmaxFunc) Forward(sum, out []float64) {
	if len(sum) == 0 {
		return
	}
	maxV := sum[0]
	for _, v := range sum[1:] {
		if v > maxV {
			maxV = v
		}
	}
	var total float64
	for i, v := range sum {
		e := math.Exp(v - maxV)
		out[i] = e
		total += e
	}
	for i := range out[:len(sum)] {
		out[i] /= total
	}
}

// Backward computes gradSum_i = s_i·(g_i − Σ_j g_j·s_j).
func (s *SoftmaxFunc) Backward(_, out, gradOut, gradSum []float64) {
	var dot float64
	for j, g := range gradOut {
		dot += g * out[j]
	}
	for i, g := range gradOut {
		gradSum[i] = out[i] * (g - dot)
	}
}
