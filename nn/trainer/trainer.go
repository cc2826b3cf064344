// Package trainer drives epoch-based learning over a list of layers.
//
// A Trainer moves through Idle → Running → Idle, or to Failed when an epoch
// returns an error. Each epoch shuffles the samples, forwards them, backprops
// the loss gradient through the layers in reverse and lets the optimizer
// apply the accumulated gradients, either after every sample (sequential
// mode) or once per mini-batch.
package trainer

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/YuminosukeSato/neurago/core/tensor"
	"github.com/YuminosukeSato/neurago/nn/layer"
	"github.com/YuminosukeSato/neurago/nn/loss"
	"github.com/YuminosukeSato/neurago/nn/optimizer"
	"github.com/YuminosukeSato/neurago/pkg/errors"
	"github.com/YuminosukeSato/neurago/pkg/log"
)

// State is the lifecycle state of a Trainer.
type State int

const (
	Idle State = iota
	Running
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Running:
		return "Running"
	case Failed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// DefaultLogEvery is the progress log interval in epochs.
const DefaultLogEvery = 5

// Config holds the collaborators of a Trainer.
type Config struct {
	Loss          loss.Loss
	Optimizer     optimizer.Optimizer
	RNG           *rand.Rand
	Logger        log.Logger
	RecordHistory bool
}

// Trainer runs the training loop. It is not safe for concurrent Train calls;
// State and History may be read concurrently.
type Trainer struct {
	layers []layer.Layer
	cfg    Config

	mu       sync.RWMutex
	state    State
	epochs   int
	lastLoss float64
	history  []float64
}

// New validates the configuration. The optimizer must already be built for layers.
func New(layers []layer.Layer, cfg Config) (*Trainer, error) {
	const op = "trainer.New"
	if len(layers) == 0 {
		return nil, errors.NewConfigurationError(op, "no layers")
	}
	if cfg.Loss == nil {
		return nil, errors.NewConfigurationError(op, "loss function is nil")
	}
	if cfg.Optimizer == nil {
		return nil, errors.NewConfigurationError(op, "optimizer is nil")
	}
	if cfg.RNG == nil {
		return nil, errors.NewConfigurationError(op, "random source is nil")
	}
	if cfg.Logger == nil {
		cfg.Logger = log.GetLogger()
	}
	return &Trainer{layers: layers, cfg: cfg}, nil
}

// State returns the current lifecycle state.
func (t *Trainer) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// Epochs returns the number of completed epochs across all Train calls.
func (t *Trainer) Epochs() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.epochs
}

// LastLoss returns the mean loss of the last completed epoch, or 0 when loss
// was not tracked.
func (t *Trainer) LastLoss() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastLoss
}

// History returns a copy of the per-epoch mean losses.
func (t *Trainer) History() ([]float64, error) {
	if !t.cfg.RecordHistory {
		return nil, errors.NewConfigurationError("trainer.History", "loss history is not being recorded. Enable it with WithHistory(true)")
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]float64(nil), t.history...), nil
}

func (t *Trainer) setState(s State) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}

// Train runs epochs over the samples. The context is checked between epochs
// and between batches.
func (t *Trainer) Train(ctx context.Context, inputs, labels []*tensor.Tensor, epochs int, opts ...Option) (err error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if err := validate(inputs, labels, epochs, o); err != nil {
		return err
	}

	t.setState(Running)
	defer func() {
		if err != nil {
			t.setState(Failed)
			return
		}
		t.setState(Idle)
	}()

	logger := t.cfg.Logger.With(log.OperationKey, log.OperationTrain)
	batch := o.batchSize
	if !o.batchSet {
		batch = 1
	}
	track := t.cfg.RecordHistory || o.logs
	logger.Debug("training started",
		log.SamplesKey, len(inputs),
		log.EpochsKey, epochs,
		log.BatchSizeKey, batch,
		log.OptimizerKey, t.cfg.Optimizer.Info(),
		log.LossFuncKey, t.cfg.Loss.Name(),
	)
	start := time.Now()

	for e := 1; e <= epochs; e++ {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, "trainer.Train")
		}

		xs, ys := inputs, labels
		if o.shuffle {
			xs, ys = Shuffle(t.cfg.RNG, inputs, labels)
		}

		iter := t.Epochs() + 1
		var mean float64
		if o.batchSet {
			mean, err = t.batchEpoch(ctx, xs, ys, o.batchSize, track, iter)
		} else {
			mean, err = t.sequentialEpoch(xs, ys, track, iter)
		}
		if err == nil && track {
			err = errors.CheckScalar("epoch_loss", mean, iter)
		}
		if err != nil {
			var ni *errors.NumericalInstabilityError
			if errors.As(err, &ni) {
				logger.Error("training diverged", err, log.EpochKey, e)
			}
			return err
		}

		t.mu.Lock()
		t.epochs++
		if track {
			t.lastLoss = mean
			if t.cfg.RecordHistory {
				t.history = append(t.history, mean)
			}
		}
		t.mu.Unlock()

		if o.logs && (e%o.logEvery == 0 || e == epochs) {
			logger.Info("epoch finished",
				log.EpochKey, e,
				log.EpochsKey, epochs,
				log.LossKey, mean,
			)
		}
	}

	logger.Debug("training finished",
		log.EpochsKey, epochs,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

func validate(inputs, labels []*tensor.Tensor, epochs int, o *options) error {
	if epochs < 1 {
		return errors.NewArgumentError("epochs", "must be at least 1", epochs)
	}
	if len(inputs) == 0 {
		return errors.WithStack(errors.ErrEmptyData)
	}
	if len(inputs) != len(labels) {
		return errors.NewArgumentError("labels", "must have one label per input", len(labels))
	}
	if o.batchSet && (o.batchSize < 1 || o.batchSize > len(inputs)) {
		return errors.NewArgumentError("batchSize", "must be in [1, number of samples]", o.batchSize)
	}
	if o.logEvery < 1 {
		return errors.NewArgumentError("logEvery", "must be at least 1", o.logEvery)
	}
	return nil
}

func (t *Trainer) sequentialEpoch(xs, ys []*tensor.Tensor, track bool, iter int) (float64, error) {
	var total float64
	for i := range xs {
		out, err := Forward(t.layers, xs[i], true)
		if err != nil {
			return 0, err
		}
		if track {
			l, err := t.cfg.Loss.Compute(out.Data(), ys[i].Data())
			if err != nil {
				return 0, err
			}
			total += l
		}
		ZeroGrads(t.layers)
		if err := backprop(t.layers, t.cfg.Loss, ys[i], iter); err != nil {
			return 0, err
		}
		if err := t.cfg.Optimizer.Update(t.layers); err != nil {
			return 0, err
		}
	}
	return total / float64(len(xs)), nil
}

func (t *Trainer) batchEpoch(ctx context.Context, xs, ys []*tensor.Tensor, size int, track bool, iter int) (float64, error) {
	var total float64
	for start := 0; start < len(xs); start += size {
		if err := ctx.Err(); err != nil {
			return 0, errors.Wrap(err, "trainer.Train")
		}
		end := min(start+size, len(xs))

		ZeroGrads(t.layers)
		for i := start; i < end; i++ {
			out, err := Forward(t.layers, xs[i], true)
			if err != nil {
				return 0, err
			}
			if track {
				l, err := t.cfg.Loss.Compute(out.Data(), ys[i].Data())
				if err != nil {
					return 0, err
				}
				total += l
			}
			if err := backprop(t.layers, t.cfg.Loss, ys[i], iter); err != nil {
				return 0, err
			}
		}
		ScaleGrads(t.layers, 1/float64(end-start))
		if err := t.cfg.Optimizer.Update(t.layers); err != nil {
			return 0, err
		}
	}
	return total / float64(len(xs)), nil
}

// Forward chains input through every layer and returns the last layer's
// output buffer.
func Forward(layers []layer.Layer, input *tensor.Tensor, training bool) (*tensor.Tensor, error) {
	out := input
	for _, l := range layers {
		var err error
		out, err = l.Forward(out, training)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Backprop propagates the loss gradient of the last forward pass:
//
//	g := loss.Gradient(last.Output, target)
//	last.Backward(g)
//	layers[i].Backward(layers[i+1].GradInput()) for i = n−2 … 0
//
// A non-finite g fails with a NumericalInstabilityError before any layer
// gradient is touched.
func Backprop(layers []layer.Layer, lossFn loss.Loss, target *tensor.Tensor) error {
	return backprop(layers, lossFn, target, 0)
}

func backprop(layers []layer.Layer, lossFn loss.Loss, target *tensor.Tensor, iter int) error {
	last := layers[len(layers)-1]
	g, err := lossFn.Gradient(last.Output().Data(), target.Data())
	if err != nil {
		return err
	}
	if err := errors.CheckNumericalStability("loss_gradient", g, iter); err != nil {
		return err
	}
	grad, err := tensor.FromSlice(g, last.OutputShape()...)
	if err != nil {
		return err
	}
	if _, err := last.Backward(grad); err != nil {
		return err
	}
	for i := len(layers) - 2; i >= 0; i-- {
		if _, err := layers[i].Backward(layers[i+1].GradInput()); err != nil {
			return err
		}
	}
	return nil
}

// ZeroGrads clears the parameter gradients of every layer.
func ZeroGrads(layers []layer.Layer) {
	for _, l := range layers {
		l.ZeroGrad()
	}
}

// ScaleGrads multiplies every parameter gradient by s.
func ScaleGrads(layers []layer.Layer, s float64) {
	for _, l := range layers {
		if l.NumParams() == 0 {
			continue
		}
		if g := l.KernelGrad(); g != nil {
			floats.Scale(s, g.Data())
		}
		if l.HasBias() && l.BiasGrad() != nil {
			floats.Scale(s, l.BiasGrad().Data())
		}
	}
}

// Shuffle returns Fisher–Yates shuffled copies of the slice headers, applying
// the same permutation to both. The caller's slices are not modified.
func Shuffle(rng *rand.Rand, inputs, labels []*tensor.Tensor) ([]*tensor.Tensor, []*tensor.Tensor) {
	xs := append([]*tensor.Tensor(nil), inputs...)
	ys := append([]*tensor.Tensor(nil), labels...)
	for i := len(xs) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		xs[i], xs[j] = xs[j], xs[i]
		ys[i], ys[j] = ys[j], ys[i]
	}
	return xs, ys
}
