// Package preprocessing は学習前の入力スケーリングを提供します。
//
// Scalers are fitted over a slice of same-shaped sample tensors. Every flat
// element index is one feature, so a scaler fitted on 1×28×28 images keeps
// 784 statistics. Transform returns new tensors and leaves its input alone.
package preprocessing

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/neurago/core/tensor"
	"github.com/YuminosukeSato/neurago/pkg/errors"
)

// 標準偏差・範囲がこれ未満の特徴量は定数とみなす
const constantTolerance = 1e-8

// stack copies samples into an n_samples × n_features matrix.
func stack(op string, samples []*tensor.Tensor) (*mat.Dense, []int, error) {
	if len(samples) == 0 {
		return nil, nil, errors.Wrap(errors.ErrEmptyData, op)
	}
	shape := samples[0].Shape()
	x := mat.NewDense(len(samples), samples[0].Size(), nil)
	for i, s := range samples {
		if !tensor.ShapeEqual(s.Shape(), shape) {
			return nil, nil, errors.NewShapeMismatchError(op, shape, s.Shape())
		}
		x.SetRow(i, s.Data())
	}
	return x, shape, nil
}

// apply maps every element of every sample through fn(feature, value).
func apply(op string, samples []*tensor.Tensor, shape []int, fn func(j int, v float64) float64) ([]*tensor.Tensor, error) {
	out := make([]*tensor.Tensor, len(samples))
	for i, s := range samples {
		if !tensor.ShapeEqual(s.Shape(), shape) {
			return nil, errors.NewShapeMismatchError(op, shape, s.Shape())
		}
		t := tensor.Zeros(shape...)
		dst := t.Data()
		for j, v := range s.Data() {
			dst[j] = fn(j, v)
		}
		out[i] = t
	}
	return out, nil
}

func notFitted(op string) error {
	return errors.NewConfigurationError(op, "scaler is not fitted. Call Fit() first")
}

// StandardScaler はデータを平均0、標準偏差1に変換する
type StandardScaler struct {
	// Mean は各特徴量の平均値
	Mean []float64

	// Scale は各特徴量の標準偏差（定数特徴量は1）
	Scale []float64

	// Shape は学習時のサンプル形状
	Shape []int

	// WithMean は平均を引くかどうか
	WithMean bool

	// WithStd は標準偏差で割るかどうか
	WithStd bool

	fitted bool
}

// NewStandardScaler は新しいStandardScalerを作成する
//
// 使用例:
//
//	scaler := preprocessing.NewStandardScaler(true, true)
//	scaled, err := scaler.FitTransform(inputs)
func NewStandardScaler(withMean, withStd bool) *StandardScaler {
	return &StandardScaler{
		WithMean: withMean,
		WithStd:  withStd,
	}
}

// NewStandardScalerDefault はデフォルト設定でStandardScalerを作成する
func NewStandardScalerDefault() *StandardScaler {
	return NewStandardScaler(true, true)
}

// Fit は訓練データから平均と（母）標準偏差を計算する
func (s *StandardScaler) Fit(samples []*tensor.Tensor) error {
	x, shape, err := stack("StandardScaler.Fit", samples)
	if err != nil {
		return err
	}
	_, c := x.Dims()

	s.Shape = shape
	s.Mean = make([]float64, c)
	s.Scale = make([]float64, c)
	col := make([]float64, len(samples))
	for j := 0; j < c; j++ {
		mat.Col(col, j, x)
		mean, variance := stat.PopMeanVariance(col, nil)
		std := math.Sqrt(variance)
		if s.WithMean {
			s.Mean[j] = mean
		}
		s.Scale[j] = 1
		if s.WithStd && std >= constantTolerance {
			// with_mean=false でもスケールは平均周りの標準偏差
			s.Scale[j] = std
		}
	}
	s.fitted = true
	return nil
}

// Transform は学習済みの統計情報を使ってデータを標準化する
func (s *StandardScaler) Transform(samples []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if !s.fitted {
		return nil, notFitted("StandardScaler.Transform")
	}
	return apply("StandardScaler.Transform", samples, s.Shape, func(j int, v float64) float64 {
		return (v - s.Mean[j]) / s.Scale[j]
	})
}

// FitTransform は訓練データで学習し、同じデータを変換する
func (s *StandardScaler) FitTransform(samples []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if err := s.Fit(samples); err != nil {
		return nil, err
	}
	return s.Transform(samples)
}

// InverseTransform は標準化されたデータを元のスケールに戻す
func (s *StandardScaler) InverseTransform(samples []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if !s.fitted {
		return nil, notFitted("StandardScaler.InverseTransform")
	}
	return apply("StandardScaler.InverseTransform", samples, s.Shape, func(j int, v float64) float64 {
		return v*s.Scale[j] + s.Mean[j]
	})
}

// IsFitted reports whether Fit has completed.
func (s *StandardScaler) IsFitted() bool { return s.fitted }

// String はスケーラーの文字列表現を返す
func (s *StandardScaler) String() string {
	if !s.fitted {
		return fmt.Sprintf("StandardScaler(with_mean=%t, with_std=%t)", s.WithMean, s.WithStd)
	}
	return fmt.Sprintf("StandardScaler(with_mean=%t, with_std=%t, n_features=%d)",
		s.WithMean, s.WithStd, len(s.Mean))
}

// MinMaxScaler はデータを指定した範囲（デフォルト[0,1]）にスケーリングする
type MinMaxScaler struct {
	// DataMin は学習データの最小値
	DataMin []float64

	// DataMax は学習データの最大値
	DataMax []float64

	// Scale は各特徴量の範囲 (max - min)、定数特徴量は1
	Scale []float64

	// Shape は学習時のサンプル形状
	Shape []int

	// FeatureRange はスケーリング後の範囲 [min, max]
	FeatureRange [2]float64

	fitted bool
}

// NewMinMaxScaler は新しいMinMaxScalerを作成する
//
// featureRange[0] は featureRange[1] より小さくなければならない。
func NewMinMaxScaler(featureRange [2]float64) (*MinMaxScaler, error) {
	if !(featureRange[0] < featureRange[1]) {
		return nil, errors.NewArgumentError("featureRange", "min must be less than max", featureRange)
	}
	return &MinMaxScaler{FeatureRange: featureRange}, nil
}

// NewMinMaxScalerDefault はデフォルト設定([0,1]範囲)でMinMaxScalerを作成する
func NewMinMaxScalerDefault() *MinMaxScaler {
	return &MinMaxScaler{FeatureRange: [2]float64{0, 1}}
}

// Fit は訓練データから最小値・最大値を計算する
func (m *MinMaxScaler) Fit(samples []*tensor.Tensor) error {
	x, shape, err := stack("MinMaxScaler.Fit", samples)
	if err != nil {
		return err
	}
	_, c := x.Dims()

	m.Shape = shape
	m.DataMin = make([]float64, c)
	m.DataMax = make([]float64, c)
	m.Scale = make([]float64, c)
	col := make([]float64, len(samples))
	for j := 0; j < c; j++ {
		mat.Col(col, j, x)
		lo, hi := floats.Min(col), floats.Max(col)
		m.DataMin[j], m.DataMax[j] = lo, hi
		m.Scale[j] = 1
		if r := hi - lo; math.Abs(r) >= constantTolerance {
			m.Scale[j] = r
		}
	}
	m.fitted = true
	return nil
}

// Transform は学習済みの統計情報を使ってデータをスケーリングする
//
//	X_scaled = (X - data_min) / (data_max - data_min) * (max - min) + min
func (m *MinMaxScaler) Transform(samples []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if !m.fitted {
		return nil, notFitted("MinMaxScaler.Transform")
	}
	width := m.FeatureRange[1] - m.FeatureRange[0]
	return apply("MinMaxScaler.Transform", samples, m.Shape, func(j int, v float64) float64 {
		return (v-m.DataMin[j])/m.Scale[j]*width + m.FeatureRange[0]
	})
}

// FitTransform は訓練データで学習し、同じデータを変換する
func (m *MinMaxScaler) FitTransform(samples []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if err := m.Fit(samples); err != nil {
		return nil, err
	}
	return m.Transform(samples)
}

// InverseTransform はスケーリングされたデータを元の範囲に戻す
func (m *MinMaxScaler) InverseTransform(samples []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if !m.fitted {
		return nil, notFitted("MinMaxScaler.InverseTransform")
	}
	width := m.FeatureRange[1] - m.FeatureRange[0]
	return apply("MinMaxScaler.InverseTransform", samples, m.Shape, func(j int, v float64) float64 {
		return (v-m.FeatureRange[0])/width*m.Scale[j] + m.DataMin[j]
	})
}

// IsFitted reports whether Fit has completed.
func (m *MinMaxScaler) IsFitted() bool { return m.fitted }

// String はスケーラーの文字列表現を返す
func (m *MinMaxScaler) String() string {
	if !m.fitted {
		return fmt.Sprintf("MinMaxScaler(feature_range=[%.1f, %.1f])",
			m.FeatureRange[0], m.FeatureRange[1])
	}
	return fmt.Sprintf("MinMaxScaler(feature_range=[%.1f, %.1f], n_features=%d)",
		m.FeatureRange[0], m.FeatureRange[1], len(m.DataMin))
}
