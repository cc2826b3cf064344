// Package metrics は学習済みネットワークの出力を評価する指標を提供します。
//
// Regression metrics operate on gonum vectors so model outputs can be
// compared against targets without going through the tensor package;
// classification metrics take the raw per-sample tensors returned by
// Sequential.PredictBatch.
package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/neurago/pkg/errors"
)

// checkPair validates that both vectors are non-empty and of equal length.
func checkPair(op string, yTrue, yPred *mat.VecDense) (int, error) {
	if yTrue == nil || yPred == nil || yTrue.IsEmpty() || yPred.IsEmpty() {
		return 0, errors.Wrap(errors.ErrEmptyData, op)
	}
	n := yTrue.Len()
	if yPred.Len() != n {
		return 0, errors.NewShapeMismatchError(op, []int{n}, []int{yPred.Len()})
	}
	return n, nil
}

// residuals returns yTrue - yPred as a fresh slice.
func residuals(yTrue, yPred *mat.VecDense) []float64 {
	var diff mat.VecDense
	diff.SubVec(yTrue, yPred)
	return mat.Col(nil, 0, &diff)
}

// MSE は平均二乗誤差（Mean Squared Error）を計算する
func MSE(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("MSE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	// MSE = (1/n) * Σ(yTrue - yPred)²
	d := residuals(yTrue, yPred)
	return floats.Dot(d, d) / float64(n), nil
}

// RMSE は平方根平均二乗誤差（Root Mean Squared Error）を計算する
func RMSE(yTrue, yPred *mat.VecDense) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE は平均絶対誤差（Mean Absolute Error）を計算する
func MAE(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("MAE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	// MAE = (1/n) * Σ|yTrue - yPred|
	return floats.Norm(residuals(yTrue, yPred), 1) / float64(n), nil
}

// R2Score は決定係数（R²）を計算する
func R2Score(yTrue, yPred *mat.VecDense) (float64, error) {
	if _, err := checkPair("R2Score", yTrue, yPred); err != nil {
		return 0, err
	}

	truth := mat.Col(nil, 0, yTrue)
	mean := stat.Mean(truth, nil)

	// 全変動（TSS）と残差変動（RSS）
	var tss float64
	for _, v := range truth {
		tss += (v - mean) * (v - mean)
	}
	d := residuals(yTrue, yPred)
	rss := floats.Dot(d, d)

	if tss == 0 {
		return 0, errors.NewArgumentError("yTrue", "total sum of squares is zero (no variance)", mean)
	}

	// R² = 1 - RSS/TSS
	return 1 - rss/tss, nil
}

// ExplainedVarianceScore は説明分散スコアを計算する
//
//	1 - Var(yTrue - yPred) / Var(yTrue)
func ExplainedVarianceScore(yTrue, yPred *mat.VecDense) (float64, error) {
	if _, err := checkPair("ExplainedVarianceScore", yTrue, yPred); err != nil {
		return 0, err
	}

	truth := mat.Col(nil, 0, yTrue)
	_, varTrue := stat.PopMeanVariance(truth, nil)
	if varTrue == 0 {
		return 0, errors.NewArgumentError("yTrue", "no variance", varTrue)
	}
	_, varDiff := stat.PopMeanVariance(residuals(yTrue, yPred), nil)

	return 1 - varDiff/varTrue, nil
}
