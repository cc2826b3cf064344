// Package nn assembles layers into a Sequential model and drives its
// lifecycle: compile, train, predict and evaluate.
//
// Typical use:
//
//	model, _ := nn.NewSequential(nn.WithSeed(42), nn.WithHistory(true))
//	defer model.Close()
//	hidden, _ := layer.NewDense(4, layer.WithInputShape(2), layer.WithActivationName("tanh"))
//	out, _ := layer.NewDense(1, layer.WithActivationName("sigmoid"))
//	_ = model.Add(hidden)
//	_ = model.Add(out)
//	_ = model.Compile(optimizer.DefaultSGD(), loss.MSE{}, initializer.GlorotUniform{}, nil)
//	_ = model.Train(inputs, labels, 500)
package nn

import (
	"context"
	"math/rand/v2"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/neurago/core/model"
	"github.com/YuminosukeSato/neurago/core/parallel"
	"github.com/YuminosukeSato/neurago/core/tensor"
	"github.com/YuminosukeSato/neurago/nn/initializer"
	"github.com/YuminosukeSato/neurago/nn/layer"
	"github.com/YuminosukeSato/neurago/nn/loss"
	"github.com/YuminosukeSato/neurago/nn/optimizer"
	"github.com/YuminosukeSato/neurago/nn/trainer"
	"github.com/YuminosukeSato/neurago/pkg/errors"
	"github.com/YuminosukeSato/neurago/pkg/log"
)

var (
	_ model.Network          = (*Sequential)(nil)
	_ model.StreamingTrainer = (*Sequential)(nil)
	_ model.OnlineMetrics    = (*Sequential)(nil)
)

// Sequential is a linear stack of layers. The output of layer i feeds
// layer i+1.
//
// Forward passes reuse the layers' own buffers, so Train, Predict and
// Evaluate are serialized by an internal lock.
type Sequential struct {
	state *model.StateManager
	cfg   config

	mu     sync.Mutex
	layers []layer.Layer

	opt        optimizer.Optimizer
	lossFn     loss.Loss
	kernelInit initializer.Initializer
	biasInit   initializer.Initializer

	rng     *rand.Rand
	pool    *parallel.Pool
	logger  log.Logger
	trainer *trainer.Trainer
}

// NewSequential creates an empty model.
func NewSequential(opts ...Option) (*Sequential, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.workers < 0 {
		return nil, errors.NewArgumentError("workers", "must be non-negative", cfg.workers)
	}

	s := &Sequential{
		state:  model.NewStateManager(),
		cfg:    *cfg,
		rng:    rand.New(rand.NewPCG(cfg.seed, cfg.seed)),
		logger: cfg.logger,
	}
	if s.logger == nil {
		s.logger = log.GetLogger()
	}
	s.logger = s.logger.With(log.ModelNameKey, cfg.name)

	if cfg.workers > 0 {
		pool, err := parallel.NewPool(cfg.workers)
		if err != nil {
			return nil, err
		}
		s.pool = pool
	}
	return s, nil
}

// NewSequentialFrom creates a model holding layers in order.
func NewSequentialFrom(layers []layer.Layer, opts ...Option) (*Sequential, error) {
	s, err := NewSequential(opts...)
	if err != nil {
		return nil, err
	}
	for _, l := range layers {
		if err := s.Add(l); err != nil {
			s.Close()
			return nil, err
		}
	}
	return s, nil
}

// Add appends a layer. The model must be compiled again before use.
func (s *Sequential) Add(l layer.Layer) error {
	if l == nil {
		return errors.NewArgumentError("layer", "must not be nil", nil)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.layers = append(s.layers, l)
	s.state.Reset()
	return nil
}

// Pop removes and returns the last layer. The model must be compiled again
// before use.
func (s *Sequential) Pop() (layer.Layer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.layers) == 0 {
		return nil, errors.NewConfigurationError("Sequential.Pop", "model has no layers")
	}
	last := s.layers[len(s.layers)-1]
	s.layers = s.layers[:len(s.layers)-1]
	s.state.Reset()
	return last, nil
}

// Compile builds every layer from its predecessor's output shape,
// initializes the parameters from the model's random source and prepares
// the optimizer. A nil biasInit initializes biases to zero. Compiling again
// re-initializes the parameters and discards the loss history. A panic in a
// collaborator is returned as a PanicError and leaves the model uncompiled.
func (s *Sequential) Compile(opt optimizer.Optimizer, lossFn loss.Loss, kernelInit, biasInit initializer.Initializer) (err error) {
	const op = "Sequential.Compile"
	s.mu.Lock()
	defer s.mu.Unlock()
	defer errors.Recover(&err, op)

	s.state.Reset()
	if len(s.layers) == 0 {
		return errors.NewConfigurationError(op, "model has no layers")
	}
	if !s.layers[0].Built() {
		return errors.NewConfigurationError(op, "first layer is not built. Construct it with WithInputShape")
	}
	if opt == nil {
		return errors.NewConfigurationError(op, "optimizer is nil")
	}
	if lossFn == nil {
		return errors.NewConfigurationError(op, "loss function is nil")
	}
	if kernelInit == nil {
		return errors.NewConfigurationError(op, "kernel initializer is nil")
	}

	if err := s.buildLayers(kernelInit, biasInit); err != nil {
		return errors.Wrap(err, op)
	}
	if err := opt.Build(s.layers); err != nil {
		return errors.Wrap(err, op)
	}
	tr, err := trainer.New(s.layers, trainer.Config{
		Loss:          lossFn,
		Optimizer:     opt,
		RNG:           s.rng,
		Logger:        s.logger,
		RecordHistory: s.cfg.recordHistory,
	})
	if err != nil {
		return err
	}

	s.opt, s.lossFn = opt, lossFn
	s.kernelInit, s.biasInit = kernelInit, biasInit
	s.trainer = tr
	nParams := s.numParams()
	s.state.SetCompiled(len(s.layers), nParams)

	if s.logger.Enabled(context.Background(), log.LevelDebug) {
		s.logger.Debug("model compiled",
			log.OperationKey, log.OperationCompile,
			log.ParamsKey, nParams,
			log.OptimizerKey, opt.Info(),
			log.LossFuncKey, lossFn.Name(),
			"summary", s.summary(),
		)
	}
	return nil
}

func (s *Sequential) buildLayers(kernelInit, biasInit initializer.Initializer) error {
	for i, l := range s.layers {
		if i > 0 {
			if err := l.Build(s.layers[i-1].OutputShape()); err != nil {
				return err
			}
		}
		l.SetID(i)
		if err := l.Initialize(kernelInit, biasInit, s.rng); err != nil {
			return err
		}
		s.bind(l)
	}
	return nil
}

// bind hands the model's random source and worker pool to layers that use them.
func (s *Sequential) bind(l layer.Layer) {
	if st, ok := l.(layer.Stochastic); ok {
		st.SetRNG(s.rng)
	}
	if pa, ok := l.(layer.PoolAware); ok {
		pa.SetPool(s.pool)
	}
}

// Predict returns a copy of the network output for input.
func (s *Sequential) Predict(input *tensor.Tensor) (*tensor.Tensor, error) {
	if err := s.state.RequireCompiled("Sequential.Predict"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.predict(input)
}

func (s *Sequential) predict(input *tensor.Tensor) (*tensor.Tensor, error) {
	if input == nil {
		return nil, errors.NewArgumentError("input", "must not be nil", nil)
	}
	out, err := trainer.Forward(s.layers, input, false)
	if err != nil {
		return nil, err
	}
	return out.Clone(), nil
}

// PredictBatch predicts every input in order.
func (s *Sequential) PredictBatch(inputs []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if err := s.state.RequireCompiled("Sequential.PredictBatch"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.predictBatch(inputs)
}

func (s *Sequential) predictBatch(inputs []*tensor.Tensor) ([]*tensor.Tensor, error) {
	out := make([]*tensor.Tensor, len(inputs))
	for i, x := range inputs {
		y, err := s.predict(x)
		if err != nil {
			return nil, errors.Wrapf(err, "sample %d", i)
		}
		out[i] = y
	}
	return out, nil
}

// Train runs epochs over the samples.
func (s *Sequential) Train(inputs, labels []*tensor.Tensor, epochs int, opts ...TrainOption) error {
	return s.TrainContext(context.Background(), inputs, labels, epochs, opts...)
}

// TrainContext is Train with cancellation, checked between epochs and
// between mini-batches.
func (s *Sequential) TrainContext(ctx context.Context, inputs, labels []*tensor.Tensor, epochs int, opts ...TrainOption) error {
	if err := s.state.RequireCompiled("Sequential.Train"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trainer.Train(ctx, inputs, labels, epochs, opts...)
}

// Evaluate returns the mean loss over the samples. Parameters and history
// are left untouched.
func (s *Sequential) Evaluate(inputs, labels []*tensor.Tensor) (float64, error) {
	if err := s.state.RequireCompiled("Sequential.Evaluate"); err != nil {
		return 0, err
	}
	if len(inputs) == 0 {
		return 0, errors.WithStack(errors.ErrEmptyData)
	}
	if len(inputs) != len(labels) {
		return 0, errors.NewArgumentError("labels", "must have one label per input", len(labels))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	losses := make([]float64, len(inputs))
	for i := range inputs {
		out, err := trainer.Forward(s.layers, inputs[i], false)
		if err != nil {
			return 0, err
		}
		l, err := s.lossFn.Compute(out.Data(), labels[i].Data())
		if err != nil {
			return 0, err
		}
		losses[i] = l
	}
	return stat.Mean(losses, nil), nil
}

// History returns the mean loss of every epoch trained since the last Compile.
func (s *Sequential) History() ([]float64, error) {
	if err := s.state.RequireCompiled("Sequential.History"); err != nil {
		return nil, err
	}
	return s.trainer.History()
}

// LastLoss returns the mean loss of the most recent epoch, or 0 when no
// epoch has been tracked.
func (s *Sequential) LastLoss() float64 {
	if !s.state.IsCompiled() {
		return 0
	}
	return s.trainer.LastLoss()
}

// NIterations returns the number of epochs trained since the last Compile.
func (s *Sequential) NIterations() int {
	if !s.state.IsCompiled() {
		return 0
	}
	return s.trainer.Epochs()
}

// TrainerState returns the lifecycle state of the training loop.
func (s *Sequential) TrainerState() trainer.State {
	if !s.state.IsCompiled() {
		return trainer.Idle
	}
	return s.trainer.State()
}

// Compiled reports whether the model is ready for use.
func (s *Sequential) Compiled() bool { return s.state.IsCompiled() }

// Layers returns the layers in order. The slice is a copy; the layers are not.
func (s *Sequential) Layers() []layer.Layer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]layer.Layer(nil), s.layers...)
}

// Layer returns the i-th layer.
func (s *Sequential) Layer(i int) (layer.Layer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.layers) {
		return nil, errors.NewArgumentError("index", "out of range", i)
	}
	return s.layers[i], nil
}

// OutputLayer returns the last layer, or nil for an empty model.
func (s *Sequential) OutputLayer() layer.Layer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.layers) == 0 {
		return nil
	}
	return s.layers[len(s.layers)-1]
}

func (s *Sequential) NumLayers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.layers)
}

// NumParams returns the number of parameters across all layers, frozen
// layers included.
func (s *Sequential) NumParams() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.numParams()
}

func (s *Sequential) numParams() int {
	var n int
	for _, l := range s.layers {
		n += l.NumParams()
	}
	return n
}

// ZeroGrads clears the parameter gradients of every layer.
func (s *Sequential) ZeroGrads() {
	s.mu.Lock()
	defer s.mu.Unlock()
	trainer.ZeroGrads(s.layers)
}

func (s *Sequential) Name() string { return s.cfg.name }

func (s *Sequential) SetName(name string) {
	s.cfg.name = name
}

// Optimizer returns the optimizer bound by Compile.
func (s *Sequential) Optimizer() optimizer.Optimizer { return s.opt }

// Loss returns the loss bound by Compile.
func (s *Sequential) Loss() loss.Loss { return s.lossFn }

// Clone returns an independent copy: layers and parameters are deep-copied,
// the copy owns a new worker pool and a random source reseeded from the
// original seed, and a compiled model gets a fresh, unbuilt copy of its
// optimizer. Loss history is not carried over.
func (s *Sequential) Clone() (*Sequential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := s.cfg
	c := &Sequential{
		state:  model.NewStateManager(),
		cfg:    cfg,
		rng:    rand.New(rand.NewPCG(cfg.seed, cfg.seed)),
		logger: s.logger,
		lossFn: s.lossFn,
	}
	if cfg.workers > 0 {
		pool, err := parallel.NewPool(cfg.workers)
		if err != nil {
			return nil, err
		}
		c.pool = pool
	}

	c.layers = make([]layer.Layer, len(s.layers))
	for i, l := range s.layers {
		c.layers[i] = l.Clone()
		c.bind(c.layers[i])
	}
	c.kernelInit, c.biasInit = s.kernelInit, s.biasInit

	if !s.state.IsCompiled() {
		return c, nil
	}
	c.opt = s.opt.Clone()
	if err := c.opt.Build(c.layers); err != nil {
		c.Close()
		return nil, err
	}
	tr, err := trainer.New(c.layers, trainer.Config{
		Loss:          c.lossFn,
		Optimizer:     c.opt,
		RNG:           c.rng,
		Logger:        c.logger,
		RecordHistory: cfg.recordHistory,
	})
	if err != nil {
		c.Close()
		return nil, err
	}
	c.trainer = tr
	c.state.SetCompiled(len(c.layers), c.numParams())
	return c, nil
}

// Close stops the worker pool. The model keeps working afterwards but
// every layer runs on the calling goroutine.
func (s *Sequential) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pool == nil {
		return
	}
	s.pool.Close()
	s.pool = nil
	for _, l := range s.layers {
		if pa, ok := l.(layer.PoolAware); ok {
			pa.SetPool(nil)
		}
	}
}
