package nn

import (
	"math"

	"github.com/YuminosukeSato/neurago/core/tensor"
	"github.com/YuminosukeSato/neurago/nn/trainer"
	"github.com/YuminosukeSato/neurago/pkg/errors"
)

// GradientCheck compares the analytic parameter gradients for one sample
// against central finite differences
//
//	(L(v+eps) − L(v−eps)) / 2eps
//
// and returns the largest error over every kernel and bias element. The
// error is relative, |a−n| / max(|a|+|n|, 1), so it degrades to an absolute
// error for gradients below unit magnitude. Parameters are restored and
// gradients cleared before returning. Layers are run in inference mode.
func (s *Sequential) GradientCheck(input, label *tensor.Tensor, eps float64) (float64, error) {
	const op = "Sequential.GradientCheck"
	if err := s.state.RequireCompiled(op); err != nil {
		return 0, err
	}
	if !(eps > 0) {
		return 0, errors.NewArgumentError("eps", "must be greater than 0", eps)
	}
	if input == nil || label == nil {
		return 0, errors.NewArgumentError("input", "input and label must not be nil", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	defer trainer.ZeroGrads(s.layers)

	lossAt := func() (float64, error) {
		out, err := trainer.Forward(s.layers, input, false)
		if err != nil {
			return 0, err
		}
		return s.lossFn.Compute(out.Data(), label.Data())
	}

	trainer.ZeroGrads(s.layers)
	if _, err := lossAt(); err != nil {
		return 0, errors.Wrap(err, op)
	}
	if err := trainer.Backprop(s.layers, s.lossFn, label); err != nil {
		return 0, errors.Wrap(err, op)
	}

	var worst float64
	check := func(value, grad *tensor.Tensor) error {
		v, g := value.Data(), grad.Data()
		for i := range v {
			orig := v[i]
			v[i] = orig + eps
			plus, err := lossAt()
			if err != nil {
				v[i] = orig
				return err
			}
			v[i] = orig - eps
			minus, err := lossAt()
			v[i] = orig
			if err != nil {
				return err
			}

			numeric := (plus - minus) / (2 * eps)
			rel := math.Abs(g[i]-numeric) / math.Max(math.Abs(g[i])+math.Abs(numeric), 1)
			worst = math.Max(worst, rel)
		}
		return nil
	}

	for _, l := range s.layers {
		if l.NumParams() == 0 {
			continue
		}
		if err := check(l.Kernel(), l.KernelGrad()); err != nil {
			return 0, errors.Wrap(err, op)
		}
		if l.HasBias() {
			if err := check(l.Bias(), l.BiasGrad()); err != nil {
				return 0, errors.Wrap(err, op)
			}
		}
	}
	if err := errors.CheckScalar("gradient_check", worst, 0); err != nil {
		return 0, err
	}
	return worst, nil
}
