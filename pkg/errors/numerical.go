package errors

import (
	"math"
)

// CheckNumericalStability fails with a NumericalInstabilityError carrying
// the whole slice when any element is NaN or ±Inf.
func CheckNumericalStability(operation string, values []float64, iteration int) error {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return NewNumericalInstabilityError(operation, values, iteration)
		}
	}
	return nil
}

// CheckScalar is CheckNumericalStability for a single value.
func CheckScalar(operation string, value float64, iteration int) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return NewNumericalInstabilityError(operation, []float64{value}, iteration)
	}
	return nil
}

// StabilizeLog returns log(max(value, floor)), keeping log-likelihoods
// finite when a probability collapses to 0.
func StabilizeLog(value, floor float64) float64 {
	return math.Log(math.Max(value, floor))
}
