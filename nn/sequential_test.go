package nn

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/neurago/core/model"
	"github.com/YuminosukeSato/neurago/core/tensor"
	"github.com/YuminosukeSato/neurago/nn/initializer"
	"github.com/YuminosukeSato/neurago/nn/layer"
	"github.com/YuminosukeSato/neurago/nn/loss"
	"github.com/YuminosukeSato/neurago/nn/optimizer"
	"github.com/YuminosukeSato/neurago/nn/trainer"
	"github.com/YuminosukeSato/neurago/pkg/errors"
	"github.com/YuminosukeSato/neurago/pkg/log"
)

func orData() (inputs, labels []*tensor.Tensor) {
	inputs = []*tensor.Tensor{
		tensor.Vector(0, 0),
		tensor.Vector(0, 1),
		tensor.Vector(1, 0),
		tensor.Vector(1, 1),
	}
	labels = []*tensor.Tensor{
		tensor.Vector(0),
		tensor.Vector(1),
		tensor.Vector(1),
		tensor.Vector(1),
	}
	return inputs, labels
}

// orModel is the 2→4(tanh)→1(sigmoid) network used across these tests.
func orModel(t *testing.T, opts ...Option) *Sequential {
	t.Helper()
	hidden, err := layer.NewDense(4, layer.WithInputShape(2), layer.WithActivationName("tanh"))
	require.NoError(t, err)
	out, err := layer.NewDense(1, layer.WithActivationName("sigmoid"))
	require.NoError(t, err)

	m, err := NewSequentialFrom([]layer.Layer{hidden, out}, opts...)
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return m
}

func compileOR(t *testing.T, m *Sequential) {
	t.Helper()
	sgd, err := optimizer.NewSGD(0.5, 0.5)
	require.NoError(t, err)
	require.NoError(t, m.Compile(sgd, loss.MSE{}, initializer.GlorotUniform{}, nil))
}

// convModel is conv(2 filters 2×2, tanh) → maxpool 2×2 → flatten → dense(2, sigmoid)
// over 1×5×5 inputs.
func convModel(t *testing.T, opts ...Option) *Sequential {
	t.Helper()
	conv, err := layer.NewConv2D([2]int{2, 2}, 2, layer.WithInputShape(1, 5, 5), layer.WithActivationName("tanh"))
	require.NoError(t, err)
	pool, err := layer.NewMaxPooling([2]int{2, 2})
	require.NoError(t, err)
	flat, err := layer.NewFlatten()
	require.NoError(t, err)
	dense, err := layer.NewDense(2, layer.WithActivationName("sigmoid"))
	require.NoError(t, err)

	m, err := NewSequentialFrom([]layer.Layer{conv, pool, flat, dense}, opts...)
	require.NoError(t, err)
	t.Cleanup(m.Close)
	require.NoError(t, m.Compile(optimizer.DefaultSGD(), loss.MSE{}, initializer.GlorotUniform{}, initializer.Zeros{}))
	return m
}

func image(seed float64) *tensor.Tensor {
	x := tensor.Zeros(1, 5, 5)
	for i := range x.Data() {
		x.Data()[i] = float64((i*7+int(seed*13))%11)/10 - 0.5
	}
	return x
}

func TestSequential_ORConvergence(t *testing.T) {
	m := orModel(t, WithSeed(42), WithHistory(true))
	compileOR(t, m)
	inputs, labels := orData()

	require.NoError(t, m.Train(inputs, labels, 500))

	mse, err := m.Evaluate(inputs, labels)
	require.NoError(t, err)
	assert.Less(t, mse, 0.05)

	history, err := m.History()
	require.NoError(t, err)
	require.Len(t, history, 500)
	assert.Greater(t, stat.Mean(history[:10], nil), stat.Mean(history[490:], nil))

	acc, err := m.Accuracy(inputs, labels)
	require.NoError(t, err)
	assert.Equal(t, 1.0, acc)

	cm, err := m.ConfusionMatrix(inputs, labels)
	require.NoError(t, err)
	assert.Equal(t, 1.0, cm.At(0, 0))
	assert.Equal(t, 3.0, cm.At(1, 1))
}

func TestSequential_NotCompiled(t *testing.T) {
	m := orModel(t)
	inputs, labels := orData()

	_, err := m.Predict(inputs[0])
	assert.True(t, errors.IsConfigurationError(err))
	_, err = m.PredictBatch(inputs)
	assert.True(t, errors.IsConfigurationError(err))
	assert.True(t, errors.IsConfigurationError(m.Train(inputs, labels, 1)))
	_, err = m.Evaluate(inputs, labels)
	assert.True(t, errors.IsConfigurationError(err))
	_, err = m.History()
	assert.True(t, errors.IsConfigurationError(err))
	_, err = m.GradientCheck(inputs[0], labels[0], 1e-5)
	assert.True(t, errors.IsConfigurationError(err))

	assert.False(t, m.Compiled())
	assert.Equal(t, 0, m.NIterations())
	assert.Equal(t, 0.0, m.LastLoss())
	assert.Equal(t, trainer.Idle, m.TrainerState())
}

func TestSequential_CompileValidation(t *testing.T) {
	sgd := optimizer.DefaultSGD()
	glorot := initializer.GlorotUniform{}

	empty, err := NewSequential(WithWorkers(0))
	require.NoError(t, err)
	assert.True(t, errors.IsConfigurationError(empty.Compile(sgd, loss.MSE{}, glorot, nil)))

	unbuilt, err := layer.NewDense(2)
	require.NoError(t, err)
	m, err := NewSequentialFrom([]layer.Layer{unbuilt}, WithWorkers(0))
	require.NoError(t, err)
	assert.True(t, errors.IsConfigurationError(m.Compile(sgd, loss.MSE{}, glorot, nil)))

	m = orModel(t)
	assert.True(t, errors.IsConfigurationError(m.Compile(nil, loss.MSE{}, glorot, nil)))
	assert.True(t, errors.IsConfigurationError(m.Compile(sgd, nil, glorot, nil)))
	assert.True(t, errors.IsConfigurationError(m.Compile(sgd, loss.MSE{}, nil, nil)))
	assert.False(t, m.Compiled())

	_, err = NewSequential(WithWorkers(-1))
	assert.True(t, errors.IsArgumentError(err))
}

// brokenInit panics instead of filling the tensor.
type brokenInit struct{}

func (brokenInit) Name() string { return "broken" }

func (brokenInit) Initialize(*tensor.Tensor, int, int, *rand.Rand) error {
	panic("initializer exploded")
}

func TestSequential_CompileRecoversPanic(t *testing.T) {
	m := orModel(t)
	err := m.Compile(optimizer.DefaultSGD(), loss.MSE{}, brokenInit{}, nil)

	var pe *errors.PanicError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "Sequential.Compile", pe.Operation)
	assert.Equal(t, "initializer exploded", pe.PanicValue)
	assert.False(t, m.Compiled())

	// the lock was released and the model can still be compiled
	compileOR(t, m)
	assert.True(t, m.Compiled())
}

func TestSequential_CompileBuildsLayers(t *testing.T) {
	m := orModel(t, WithSeed(1))
	compileOR(t, m)

	assert.True(t, m.Compiled())
	assert.Equal(t, 2, m.NumLayers())
	assert.Equal(t, 4*2+4+1*4+1, m.NumParams())

	out := m.OutputLayer()
	require.NotNil(t, out)
	assert.Equal(t, []int{4}, out.InputShape())
	assert.Equal(t, []int{1}, out.OutputShape())
	assert.Equal(t, 1, out.ID())

	first, err := m.Layer(0)
	require.NoError(t, err)
	assert.Equal(t, 0, first.ID())
	assert.Equal(t, make([]float64, 4), first.Bias().Data())

	_, err = m.Layer(2)
	assert.True(t, errors.IsArgumentError(err))
	_, err = m.Layer(-1)
	assert.True(t, errors.IsArgumentError(err))
	assert.Len(t, m.Layers(), 2)
}

func TestSequential_SameSeedSameParameters(t *testing.T) {
	a := orModel(t, WithSeed(7))
	b := orModel(t, WithSeed(7))
	c := orModel(t, WithSeed(8))
	compileOR(t, a)
	compileOR(t, b)
	compileOR(t, c)

	ka, kb, kc := a.Layers()[0].Kernel().Data(), b.Layers()[0].Kernel().Data(), c.Layers()[0].Kernel().Data()
	assert.Equal(t, ka, kb)
	assert.NotEqual(t, ka, kc)
}

func TestSequential_AddPop(t *testing.T) {
	m := orModel(t)
	compileOR(t, m)
	require.True(t, m.Compiled())

	last, err := m.Pop()
	require.NoError(t, err)
	assert.Equal(t, "Dense", last.Name())
	assert.False(t, m.Compiled())
	assert.Equal(t, 1, m.NumLayers())

	require.NoError(t, m.Add(last))
	assert.Equal(t, 2, m.NumLayers())
	assert.True(t, errors.IsArgumentError(m.Add(nil)))

	_, err = m.Pop()
	require.NoError(t, err)
	_, err = m.Pop()
	require.NoError(t, err)
	_, err = m.Pop()
	assert.True(t, errors.IsConfigurationError(err))
}

func TestSequential_PredictReturnsCopy(t *testing.T) {
	m := orModel(t, WithSeed(3))
	compileOR(t, m)
	inputs, _ := orData()

	first, err := m.Predict(inputs[1])
	require.NoError(t, err)
	want := first.Data()[0]
	first.Data()[0] = 42

	_, err = m.Predict(inputs[2])
	require.NoError(t, err)
	again, err := m.Predict(inputs[1])
	require.NoError(t, err)
	assert.Equal(t, want, again.Data()[0])
	assert.Equal(t, []int{1}, again.Shape())

	batch, err := m.PredictBatch(inputs)
	require.NoError(t, err)
	require.Len(t, batch, 4)
	assert.Equal(t, want, batch[1].Data()[0])

	_, err = m.Predict(tensor.Vector(1, 2, 3))
	assert.True(t, errors.IsShapeMismatch(err))
	_, err = m.Predict(nil)
	assert.True(t, errors.IsArgumentError(err))
}

func TestSequential_EvaluateDoesNotMutate(t *testing.T) {
	m := orModel(t, WithSeed(5), WithHistory(true))
	compileOR(t, m)
	inputs, labels := orData()

	before := m.Layers()[0].Kernel().Clone()
	l1, err := m.Evaluate(inputs, labels)
	require.NoError(t, err)
	l2, err := m.Evaluate(inputs, labels)
	require.NoError(t, err)

	assert.Equal(t, l1, l2)
	assert.Equal(t, before.Data(), m.Layers()[0].Kernel().Data())
	history, err := m.History()
	require.NoError(t, err)
	assert.Empty(t, history)

	_, err = m.Evaluate(nil, nil)
	assert.True(t, errors.Is(err, errors.ErrEmptyData))
	_, err = m.Evaluate(inputs, labels[:2])
	assert.True(t, errors.IsArgumentError(err))
}

func TestSequential_TrainValidation(t *testing.T) {
	m := orModel(t)
	compileOR(t, m)
	inputs, labels := orData()

	assert.True(t, errors.IsArgumentError(m.Train(inputs, labels, 0)))
	assert.True(t, errors.IsArgumentError(m.Train(inputs, labels[:3], 1)))
	assert.True(t, errors.IsArgumentError(m.Train(inputs, labels, 1, WithBatchSize(0))))
	assert.True(t, errors.IsArgumentError(m.Train(inputs, labels, 1, WithBatchSize(5))))
	require.NoError(t, m.Train(inputs, labels, 2, WithBatchSize(4)))
	assert.Equal(t, 2, m.NIterations())
}

func TestSequential_HistoryDisabled(t *testing.T) {
	m := orModel(t)
	compileOR(t, m)
	inputs, labels := orData()
	require.NoError(t, m.Train(inputs, labels, 1))

	_, err := m.History()
	assert.True(t, errors.IsConfigurationError(err))
}

func TestSequential_RecompileResetsHistory(t *testing.T) {
	m := orModel(t, WithSeed(9), WithHistory(true))
	compileOR(t, m)
	inputs, labels := orData()
	require.NoError(t, m.Train(inputs, labels, 3))

	compileOR(t, m)
	history, err := m.History()
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.Equal(t, 0, m.NIterations())
}

func TestSequential_TrainContextCancelled(t *testing.T) {
	m := orModel(t)
	compileOR(t, m)
	inputs, labels := orData()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := m.TrainContext(ctx, inputs, labels, 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, trainer.Failed, m.TrainerState())
}

func TestSequential_GradientCheck(t *testing.T) {
	m := orModel(t, WithSeed(11))
	require.NoError(t, m.Compile(optimizer.DefaultSGD(), loss.MSE{}, initializer.GlorotUniform{}, initializer.Constant{Value: 0.1}))

	before := m.Layers()[0].Kernel().Clone()
	worst, err := m.GradientCheck(tensor.Vector(0.3, -0.7), tensor.Vector(1), 1e-5)
	require.NoError(t, err)
	assert.Less(t, worst, 1e-6)
	assert.Equal(t, before.Data(), m.Layers()[0].Kernel().Data())
	assert.Equal(t, make([]float64, 8), m.Layers()[0].KernelGrad().Data())

	_, err = m.GradientCheck(tensor.Vector(0, 0), tensor.Vector(1), 0)
	assert.True(t, errors.IsArgumentError(err))
}

func TestSequential_ConvNetwork(t *testing.T) {
	m := convModel(t, WithSeed(21))

	assert.Equal(t, 4, m.NumLayers())
	assert.Equal(t, 2*1*2*2+2*4*4+2*8+2, m.NumParams())
	assert.Equal(t, []int{2, 4, 4}, m.Layers()[0].OutputShape())
	assert.Equal(t, []int{2, 2, 2}, m.Layers()[1].OutputShape())
	assert.Equal(t, []int{8}, m.Layers()[2].OutputShape())

	y, err := m.Predict(image(1))
	require.NoError(t, err)
	assert.Equal(t, []int{2}, y.Shape())

	worst, err := m.GradientCheck(image(2), tensor.Vector(1, 0), 1e-5)
	require.NoError(t, err)
	assert.Less(t, worst, 1e-5)
}

func TestSequential_PoolMatchesSequential(t *testing.T) {
	seq := convModel(t, WithSeed(33), WithWorkers(0))
	par := convModel(t, WithSeed(33), WithWorkers(4))

	inputs := []*tensor.Tensor{image(1), image(2), image(3)}
	labels := []*tensor.Tensor{tensor.Vector(1, 0), tensor.Vector(0, 1), tensor.Vector(1, 0)}
	require.NoError(t, seq.Train(inputs, labels, 3))
	require.NoError(t, par.Train(inputs, labels, 3))

	for i := range seq.Layers() {
		ls, lp := seq.Layers()[i], par.Layers()[i]
		if ls.NumParams() == 0 {
			continue
		}
		assert.InDeltaSlice(t, ls.Kernel().Data(), lp.Kernel().Data(), 1e-12)
		assert.InDeltaSlice(t, ls.Bias().Data(), lp.Bias().Data(), 1e-12)
	}
}

func TestSequential_Clone(t *testing.T) {
	m := orModel(t, WithSeed(13), WithHistory(true))
	compileOR(t, m)
	inputs, labels := orData()
	require.NoError(t, m.Train(inputs, labels, 2))

	c, err := m.Clone()
	require.NoError(t, err)
	defer c.Close()

	assert.True(t, c.Compiled())
	assert.Equal(t, m.NumParams(), c.NumParams())
	assert.Equal(t, 0, c.NIterations())
	assert.NotSame(t, m.Optimizer(), c.Optimizer())
	assert.Equal(t, m.Optimizer().Info(), c.Optimizer().Info())

	want, err := m.Predict(inputs[1])
	require.NoError(t, err)
	got, err := c.Predict(inputs[1])
	require.NoError(t, err)
	assert.Equal(t, want.Data(), got.Data())

	before := m.Layers()[0].Kernel().Clone()
	require.NoError(t, c.Train(inputs, labels, 5))
	assert.Equal(t, before.Data(), m.Layers()[0].Kernel().Data())
	assert.NotEqual(t, before.Data(), c.Layers()[0].Kernel().Data())

	uncompiled := orModel(t)
	uc, err := uncompiled.Clone()
	require.NoError(t, err)
	defer uc.Close()
	assert.False(t, uc.Compiled())
	assert.Equal(t, 2, uc.NumLayers())
}

func TestSequential_PartialFit(t *testing.T) {
	m := orModel(t, WithSeed(17), WithHistory(true))
	compileOR(t, m)
	inputs, labels := orData()

	require.NoError(t, m.PartialFit(inputs, labels))
	require.NoError(t, m.PartialFit(inputs[:2], labels[:2]))

	assert.Equal(t, 2, m.NIterations())
	history, err := m.History()
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, history[1], m.LastLoss())
}

func TestSequential_TrainStream(t *testing.T) {
	m := orModel(t, WithSeed(19))
	compileOR(t, m)
	inputs, labels := orData()

	batches := make(chan *model.Batch, 3)
	batches <- &model.Batch{Inputs: inputs, Labels: labels}
	batches <- &model.Batch{}
	batches <- &model.Batch{Inputs: inputs[:2], Labels: labels[:2]}
	close(batches)

	require.NoError(t, m.TrainStream(context.Background(), batches))
	assert.Equal(t, 2, m.NIterations())

	bad := make(chan *model.Batch, 1)
	bad <- &model.Batch{Inputs: inputs, Labels: labels[:1]}
	close(bad)
	assert.True(t, errors.IsArgumentError(m.TrainStream(context.Background(), bad)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, m.TrainStream(ctx, make(chan *model.Batch)), context.Canceled)
}

func TestSequential_PredictStream(t *testing.T) {
	logger, _ := log.NewTestLogger(log.LevelDebug)
	m := orModel(t, WithSeed(23), WithLogger(logger))
	compileOR(t, m)
	inputs, _ := orData()

	in := make(chan *tensor.Tensor, 3)
	in <- inputs[0]
	in <- tensor.Vector(1, 2, 3)
	in <- inputs[3]
	close(in)

	var got []*tensor.Tensor
	for y := range m.PredictStream(context.Background(), in) {
		got = append(got, y)
	}
	require.Len(t, got, 2)
	want, err := m.Predict(inputs[3])
	require.NoError(t, err)
	assert.Equal(t, want.Data(), got[1].Data())
	assert.True(t, logger.ContainsMessage("stream prediction skipped"))
}

func TestSequential_Logging(t *testing.T) {
	logger, _ := log.NewTestLogger(log.LevelDebug)
	m := orModel(t, WithName("or"), WithLogger(logger))
	compileOR(t, m)

	assert.True(t, logger.ContainsMessage("model compiled"))
	assert.True(t, logger.ContainsField(log.ModelNameKey, "or"))
	assert.True(t, logger.ContainsField(log.ParamsKey, float64(17)))

	inputs, labels := orData()
	require.NoError(t, m.Train(inputs, labels, 10, WithLogs(true), WithLogEvery(5)))
	assert.Equal(t, 2, logger.CountMessages("epoch finished"))
}

func TestSequential_Summary(t *testing.T) {
	m := orModel(t, WithName("or"))
	before := m.Summary()
	assert.Contains(t, before, `Model: "or"`)
	assert.Contains(t, before, "1 (Dense)")
	assert.NotContains(t, before, "Optimizer:")

	compileOR(t, m)
	s := m.Summary()
	assert.Contains(t, s, "Layer (type)")
	assert.Contains(t, s, "0 (Dense)")
	assert.Contains(t, s, "tanh")
	assert.Contains(t, s, "sigmoid")
	assert.Contains(t, s, "Total params: 17 (trainable: 17)")
	assert.Contains(t, s, "Optimizer: SGD(lr=0.5, momentum=0.5, nesterov=false)")
	assert.Contains(t, s, "Loss: MSE")

	m.SetName("renamed")
	assert.Equal(t, "renamed", m.Name())
	assert.Contains(t, m.Summary(), `Model: "renamed"`)
}

func TestSequential_FrozenLayer(t *testing.T) {
	m := orModel(t, WithSeed(29))
	compileOR(t, m)
	inputs, labels := orData()

	first := m.Layers()[0]
	first.SetTrainable(false)
	before := first.Kernel().Clone()
	require.NoError(t, m.Train(inputs, labels, 3))

	assert.Equal(t, before.Data(), first.Kernel().Data())
	assert.Contains(t, m.Summary(), "trainable: 5")
}

func TestSequential_CloseKeepsWorking(t *testing.T) {
	m := convModel(t, WithSeed(31), WithWorkers(2))
	want, err := m.Predict(image(4))
	require.NoError(t, err)

	m.Close()
	m.Close()
	got, err := m.Predict(image(4))
	require.NoError(t, err)
	assert.InDeltaSlice(t, want.Data(), got.Data(), 1e-12)
}

func TestSequential_Dropout(t *testing.T) {
	hidden, err := layer.NewDense(8, layer.WithInputShape(2), layer.WithActivationName("relu"))
	require.NoError(t, err)
	drop, err := layer.NewDropout(0.5)
	require.NoError(t, err)
	out, err := layer.NewDense(1, layer.WithActivationName("sigmoid"))
	require.NoError(t, err)

	m, err := NewSequentialFrom([]layer.Layer{hidden, drop, out}, WithSeed(37), WithWorkers(0))
	require.NoError(t, err)
	require.NoError(t, m.Compile(optimizer.DefaultAdam(), loss.BinaryCrossEntropy{}, initializer.He{}, nil))

	inputs, labels := orData()
	require.NoError(t, m.Train(inputs, labels, 5))

	a, err := m.Predict(inputs[1])
	require.NoError(t, err)
	b, err := m.Predict(inputs[1])
	require.NoError(t, err)
	assert.Equal(t, a.Data(), b.Data())
}
