package nn

import (
	"context"

	"github.com/YuminosukeSato/neurago/core/model"
	"github.com/YuminosukeSato/neurago/core/tensor"
	"github.com/YuminosukeSato/neurago/pkg/log"
)

// PartialFit trains a single epoch on the given samples.
//
// Samples are visited in the given order. History and NIterations advance
// by one.
func (s *Sequential) PartialFit(inputs, labels []*tensor.Tensor) error {
	return s.TrainContext(context.Background(), inputs, labels, 1, WithShuffle(false))
}

// TrainStream trains on batches received from a channel.
//
// Each batch is applied as one unshuffled epoch. Returns when the channel is
// closed, the context is done or a batch fails.
func (s *Sequential) TrainStream(ctx context.Context, batches <-chan *model.Batch) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case batch, ok := <-batches:
			if !ok {
				return nil
			}
			if batch == nil || batch.Len() == 0 {
				continue
			}
			if err := s.TrainContext(ctx, batch.Inputs, batch.Labels, 1, WithShuffle(false)); err != nil {
				return err
			}
		}
	}
}

// PredictStream predicts every input received from a channel.
//
// The returned channel is closed when inputs is closed or ctx is done.
// Inputs that fail to predict are logged and skipped.
func (s *Sequential) PredictStream(ctx context.Context, inputs <-chan *tensor.Tensor) <-chan *tensor.Tensor {
	out := make(chan *tensor.Tensor)

	go func() {
		defer close(out)

		for {
			select {
			case <-ctx.Done():
				return
			case x, ok := <-inputs:
				if !ok {
					return
				}

				pred, err := s.Predict(x)
				if err != nil {
					s.logger.Warn("stream prediction skipped",
						log.OperationKey, log.OperationPredict,
						log.ErrAttrKey, err.Error(),
					)
					continue
				}

				select {
				case out <- pred:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out
}
