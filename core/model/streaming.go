package model

import (
	"context"

	"github.com/YuminosukeSato/neurago/core/tensor"
)

// Batch is a group of labelled samples delivered over a channel.
type Batch struct {
	Inputs []*tensor.Tensor
	Labels []*tensor.Tensor
}

// Len returns the number of samples in the batch.
func (b *Batch) Len() int { return len(b.Inputs) }

// StreamingTrainer provides a channel-based training interface.
type StreamingTrainer interface {
	IncrementalTrainer

	// TrainStream trains on every batch received until the context is
	// canceled or the channel is closed.
	TrainStream(ctx context.Context, batches <-chan *Batch) error

	// PredictStream predicts every input received. The output channel is
	// closed when the input channel is closed or the context is canceled.
	PredictStream(ctx context.Context, inputs <-chan *tensor.Tensor) <-chan *tensor.Tensor
}
