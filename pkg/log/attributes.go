// Package log defines standard attribute keys for training operations.
//
// Keys follow a hierarchical naming convention (e.g. "model.name",
// "training.epoch") so log output can be filtered consistently.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the model instance, e.g. "Sequential".
	ModelNameKey = "model.name"

	// LayerKey identifies a layer by kind and position, e.g. "1 - Conv2D".
	LayerKey = "model.layer"

	// OperationKey specifies the operation being performed.
	// Standard values: "compile", "train", "predict", "evaluate"
	OperationKey = "ml.operation"

	// ComponentKey identifies which package is performing the operation.
	ComponentKey = "ml.component"

	// ParamsKey records the number of trainable parameters.
	ParamsKey = "model.params"
)

// Data Shape and Characteristics
const (
	// SamplesKey indicates the number of samples in the dataset.
	SamplesKey = "data.samples"

	// ShapeKey records a tensor shape.
	ShapeKey = "data.shape"

	// BatchSizeKey indicates the size of mini-batches.
	BatchSizeKey = "data.batch_size"
)

// Training progress
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// LossKey records loss value during training or evaluation.
	LossKey = "metrics.loss"

	// AccuracyKey records classification accuracy.
	AccuracyKey = "metrics.accuracy"

	// EpochKey records the current epoch number during training.
	EpochKey = "training.epoch"

	// EpochsKey records the total number of epochs requested.
	EpochsKey = "training.epochs"

	// OptimizerKey records the optimizer in use.
	OptimizerKey = "training.optimizer"

	// LossFuncKey records the loss function in use.
	LossFuncKey = "training.loss_func"

	// WorkersKey records the worker pool size.
	WorkersKey = "infra.workers"

	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"
)

// Error and Warning Context
const (
	// ErrorTypeKey categorizes the type of error encountered.
	ErrorTypeKey = "error.type"

	// StacktraceKey contains stack trace information for debugging.
	StacktraceKey = "error.stacktrace"
)

// Standard attribute value constants.
const (
	OperationCompile  = "compile"
	OperationTrain    = "train"
	OperationPredict  = "predict"
	OperationEvaluate = "evaluate"
)
