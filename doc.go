// Package neurago is a small neural-network training engine for Go.
//
// neurago builds feed-forward networks out of dense, convolutional,
// pooling, flatten and dropout layers, trains them with backpropagation and
// a choice of optimizers, and saves the learned weights to JSON or protobuf
// checkpoints. It runs on the CPU and parallelizes the heavy loops over a
// bounded worker pool.
//
// # Features
//
//   - Sequential models with automatic shape inference between layers
//   - Activations: linear, sigmoid, tanh, ReLU, LeakyReLU, ELU, GELU, softmax and more
//   - Losses: MSE, MAE, binary and categorical cross-entropy
//   - Optimizers: GD, SGD (momentum, Nesterov), AdaGrad, RMSProp, Adam
//   - Per-sample or mini-batch training with shuffling and loss history
//   - Streaming training and prediction over channels
//   - Finite-difference gradient checking
//   - Structured errors (cockroachdb/errors) and logging (zerolog)
//
// # Installation
//
//	go get github.com/YuminosukeSato/neurago
//
// # Quick Start
//
// Learning the OR function with two dense layers:
//
//	package main
//
//	import (
//	    "fmt"
//	    "log"
//
//	    "github.com/YuminosukeSato/neurago/core/tensor"
//	    "github.com/YuminosukeSato/neurago/nn"
//	    "github.com/YuminosukeSato/neurago/nn/initializer"
//	    "github.com/YuminosukeSato/neurago/nn/layer"
//	    "github.com/YuminosukeSato/neurago/nn/loss"
//	    "github.com/YuminosukeSato/neurago/nn/optimizer"
//	)
//
//	func main() {
//	    hidden, _ := layer.NewDense(4, layer.WithInputShape(2), layer.WithActivationName("tanh"))
//	    out, _ := layer.NewDense(1, layer.WithActivationName("sigmoid"))
//
//	    model, err := nn.NewSequentialFrom([]layer.Layer{hidden, out}, nn.WithSeed(42))
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer model.Close()
//
//	    opt, _ := optimizer.NewSGD(0.5, 0.5)
//	    if err := model.Compile(opt, loss.MSE{}, initializer.GlorotUniform{}, nil); err != nil {
//	        log.Fatal(err)
//	    }
//
//	    inputs := []*tensor.Tensor{tensor.Vector(0, 0), tensor.Vector(0, 1), tensor.Vector(1, 0), tensor.Vector(1, 1)}
//	    labels := []*tensor.Tensor{tensor.Vector(0), tensor.Vector(1), tensor.Vector(1), tensor.Vector(1)}
//	    if err := model.Train(inputs, labels, 500); err != nil {
//	        log.Fatal(err)
//	    }
//
//	    y, _ := model.Predict(tensor.Vector(1, 0))
//	    fmt.Println("OR(1, 0) =", y.Data()[0])
//	}
//
// # Packages
//
//   - nn: Sequential model, training, evaluation, gradient checking
//   - nn/layer: Dense, Conv2D, MaxPooling, Flatten, Dropout
//   - nn/activation, nn/loss, nn/optimizer, nn/initializer: building blocks
//   - nn/trainer: epoch loop, backpropagation, loss history
//   - nn/checkpoint: weight snapshots in JSON or protobuf form
//   - metrics: regression and classification metrics
//   - preprocessing: StandardScaler and MinMaxScaler over tensors
//   - report: loss-curve plots
//   - core/tensor: dense row-major float64 tensors
//   - core/model: shared interfaces, state and weight formats
//   - core/parallel: bounded worker pool
//
// # Performance
//
// Layers split work across the model's worker pool once a loop is large
// enough to pay for the scheduling. Small networks run inline. Use
// nn.WithWorkers(0) to disable the pool entirely.
//
// # License
//
// neurago is released under the MIT License.
package neurago
