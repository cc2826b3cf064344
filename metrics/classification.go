package metrics

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/neurago/core/tensor"
	"github.com/YuminosukeSato/neurago/pkg/errors"
)

// checkOutputs validates a batch of predictions against one-hot labels.
// Every sample must have the same number of classes.
func checkOutputs(op string, outputs, labels []*tensor.Tensor) (int, error) {
	if len(outputs) == 0 {
		return 0, errors.Wrap(errors.ErrEmptyData, op)
	}
	if len(outputs) != len(labels) {
		return 0, errors.NewShapeMismatchError(op, []int{len(outputs)}, []int{len(labels)})
	}
	classes := outputs[0].Size()
	for i := range outputs {
		if outputs[i].Size() != classes {
			return 0, errors.NewShapeMismatchError(op, []int{classes}, outputs[i].Shape())
		}
		if labels[i].Size() != classes {
			return 0, errors.NewShapeMismatchError(op, []int{classes}, labels[i].Shape())
		}
	}
	return classes, nil
}

// ArgMax returns the index of the largest element; ties resolve to the
// lowest index.
func ArgMax(t *tensor.Tensor) int {
	return floats.MaxIdx(t.Data())
}

// Accuracy は予測クラス（argmax）が正解クラスと一致した割合を返す
//
// Single-output models are treated as binary classifiers thresholded at 0.5.
func Accuracy(outputs, labels []*tensor.Tensor) (float64, error) {
	classes, err := checkOutputs("Accuracy", outputs, labels)
	if err != nil {
		return 0, err
	}

	var hits int
	for i := range outputs {
		if predictedClass(outputs[i], classes) == predictedClass(labels[i], classes) {
			hits++
		}
	}
	return float64(hits) / float64(len(outputs)), nil
}

// ConfusionMatrix は混同行列を作成する
//
// Row i, column j counts samples of true class i predicted as class j. A
// single-output model yields a 2×2 matrix.
func ConfusionMatrix(outputs, labels []*tensor.Tensor) (*mat.Dense, error) {
	classes, err := checkOutputs("ConfusionMatrix", outputs, labels)
	if err != nil {
		return nil, err
	}

	n := classes
	if n == 1 {
		n = 2
	}
	cm := mat.NewDense(n, n, nil)
	for i := range outputs {
		r := predictedClass(labels[i], classes)
		c := predictedClass(outputs[i], classes)
		cm.Set(r, c, cm.At(r, c)+1)
	}
	return cm, nil
}

func predictedClass(t *tensor.Tensor, classes int) int {
	if classes == 1 {
		if t.Data()[0] >= 0.5 {
			return 1
		}
		return 0
	}
	return ArgMax(t)
}
