package model

import (
	"github.com/YuminosukeSato/neurago/core/tensor"
)

// Predictor runs inference on single samples.
type Predictor interface {
	// Predict returns a copy of the network output for input.
	Predict(input *tensor.Tensor) (*tensor.Tensor, error)

	// PredictBatch predicts every input in order.
	PredictBatch(inputs []*tensor.Tensor) ([]*tensor.Tensor, error)
}

// Evaluator scores a model on labelled samples without mutating it.
type Evaluator interface {
	// Evaluate returns the mean loss over the samples.
	Evaluate(inputs, labels []*tensor.Tensor) (float64, error)
}

// Network is a compiled model that can be queried and scored.
type Network interface {
	Predictor
	Evaluator

	// NumLayers returns the number of layers.
	NumLayers() int

	// NumParams returns the number of parameters across all layers.
	NumParams() int
}
