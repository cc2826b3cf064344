package model

import "github.com/YuminosukeSato/neurago/core/tensor"

// IncrementalTrainer learns from one batch of samples at a time, without
// reshuffling across calls.
type IncrementalTrainer interface {
	// PartialFit runs a single pass over the given samples.
	PartialFit(inputs, labels []*tensor.Tensor) error

	// NIterations returns the number of PartialFit passes so far.
	NIterations() int
}

// OnlineMetrics exposes the loss tracked during incremental learning.
type OnlineMetrics interface {
	// LastLoss returns the mean loss of the latest pass.
	LastLoss() float64

	// History returns the per-pass mean losses.
	History() ([]float64, error)
}
