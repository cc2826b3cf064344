// Package loss implements the objective functions minimized by training.
//
// Gradient returns the true derivative ∂L/∂pred, so optimizers always step
// against it.
package loss

import (
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/YuminosukeSato/neurago/pkg/errors"
)

// Loss scores a prediction against its target.
type Loss interface {
	Name() string
	Compute(pred, target []float64) (float64, error)
	Gradient(pred, target []float64) ([]float64, error)
}

const eps = 1e-7

func check(op string, pred, target []float64) error {
	if len(pred) != len(target) {
		return errors.NewShapeMismatchError(op, []int{len(target)}, []int{len(pred)})
	}
	if len(pred) == 0 {
		return errors.WithStack(errors.ErrEmptyData)
	}
	return nil
}

// MSE is the mean squared error.
type MSE struct{}

func (MSE) Name() string { return "MSE" }

func (MSE) Compute(pred, target []float64) (float64, error) {
	if err := check("loss.MSE.Compute", pred, target); err != nil {
		return 0, err
	}
	diff := make([]float64, len(pred))
	floats.SubTo(diff, pred, target)
	return floats.Dot(diff, diff) / float64(len(pred)), nil
}

// Gradient is 2(p−t)/n.
func (MSE) Gradient(pred, target []float64) ([]float64, error) {
	if err := check("loss.MSE.Gradient", pred, target); err != nil {
		return nil, err
	}
	g := make([]float64, len(pred))
	floats.SubTo(g, pred, target)
	floats.Scale(2/float64(len(pred)), g)
	return g, nil
}

// MAE is the mean absolute error.
type MAE struct{}

func (MAE) Name() string { return "MAE" }

func (MAE) Compute(pred, target []float64) (float64, error) {
	if err := check("loss.MAE.Compute", pred, target); err != nil {
		return 0, err
	}
	return floats.Distance(pred, target, 1) / float64(len(pred)), nil
}

// Gradient is sign(p−t)/n, with 0 where p == t.
func (MAE) Gradient(pred, target []float64) ([]float64, error) {
	if err := check("loss.MAE.Gradient", pred, target); err != nil {
		return nil, err
	}
	n := float64(len(pred))
	g := make([]float64, len(pred))
	for i := range pred {
		switch d := pred[i] - target[i]; {
		case d > 0:
			g[i] = 1 / n
		case d < 0:
			g[i] = -1 / n
		}
	}
	return g, nil
}

// BinaryCrossEntropy expects predictions in (0, 1), usually from a sigmoid.
type BinaryCrossEntropy struct{}

func (BinaryCrossEntropy) Name() string { return "BinaryCrossEntropy" }

func (BinaryCrossEntropy) Compute(pred, target []float64) (float64, error) {
	if err := check("loss.BinaryCrossEntropy.Compute", pred, target); err != nil {
		return 0, err
	}
	var s float64
	for i, p := range pred {
		t := target[i]
		s += t*errors.StabilizeLog(p, eps) + (1-t)*errors.StabilizeLog(1-p, eps)
	}
	return -s / float64(len(pred)), nil
}

// Gradient is ((1−t)/(1−p) − t/p)/n with p clamped to [ε, 1−ε].
func (BinaryCrossEntropy) Gradient(pred, target []float64) ([]float64, error) {
	if err := check("loss.BinaryCrossEntropy.Gradient", pred, target); err != nil {
		return nil, err
	}
	n := float64(len(pred))
	g := make([]float64, len(pred))
	for i, p := range pred {
		p = math.Min(math.Max(p, eps), 1-eps)
		t := target[i]
		g[i] = ((1-t)/(1-p) - t/p) / n
	}
	return g, nil
}

// CategoricalCrossEntropy expects a probability distribution, usually from a
// softmax, and a one-hot target.
type CategoricalCrossEntropy struct{}

func (CategoricalCrossEntropy) Name() string { return "CategoricalCrossEntropy" }

func (CategoricalCrossEntropy) Compute(pred, target []float64) (float64, error) {
	if err := check("loss.CategoricalCrossEntropy.Compute", pred, target); err != nil {
		return 0, err
	}
	var s float64
	for i, p := range pred {
		s += target[i] * errors.StabilizeLog(p, eps)
	}
	return -s, nil
}

// Gradient is −t/max(p, ε).
func (CategoricalCrossEntropy) Gradient(pred, target []float64) ([]float64, error) {
	if err := check("loss.CategoricalCrossEntropy.Gradient", pred, target); err != nil {
		return nil, err
	}
	g := make([]float64, len(pred))
	for i, p := range pred {
		g[i] = -target[i] / math.Max(p, eps)
	}
	return g, nil
}

// Get resolves a loss by name, ignoring case.
func Get(name string) (Loss, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "mse", "meansquarederror", "mean_squared_error":
		return MSE{}, nil
	case "mae", "meanabsoluteerror", "mean_absolute_error":
		return MAE{}, nil
	case "bce", "binarycrossentropy", "binary_crossentropy":
		return BinaryCrossEntropy{}, nil
	case "cce", "categoricalcrossentropy", "categorical_crossentropy":
		return CategoricalCrossEntropy{}, nil
	default:
		return nil, errors.NewArgumentError("loss", "unknown loss function", name)
	}
}
