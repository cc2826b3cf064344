package nn

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/neurago/core/tensor"
	"github.com/YuminosukeSato/neurago/metrics"
)

// Accuracy returns the fraction of samples whose predicted class (argmax,
// or a 0.5 threshold for single-output models) matches the label.
func (s *Sequential) Accuracy(inputs, labels []*tensor.Tensor) (float64, error) {
	outputs, err := s.PredictBatch(inputs)
	if err != nil {
		return 0, err
	}
	return metrics.Accuracy(outputs, labels)
}

// ConfusionMatrix counts true class (rows) against predicted class (columns).
func (s *Sequential) ConfusionMatrix(inputs, labels []*tensor.Tensor) (*mat.Dense, error) {
	outputs, err := s.PredictBatch(inputs)
	if err != nil {
		return nil, err
	}
	return metrics.ConfusionMatrix(outputs, labels)
}
