package model

import (
	"encoding/json"

	"github.com/YuminosukeSato/neurago/pkg/errors"
)

// WeightsVersion is the current checkpoint format version.
const WeightsVersion = "1"

// LayerWeights はレイヤー単位のパラメータ（シリアライゼーション用）
type LayerWeights struct {
	// ID はモデル内でのレイヤー位置
	ID int `json:"id"`

	// Type はレイヤーの種類（Dense, Conv2D等）
	Type string `json:"type"`

	// Activation は活性化関数名
	Activation string `json:"activation,omitempty"`

	InputShape  []int `json:"input_shape,omitempty"`
	OutputShape []int `json:"output_shape,omitempty"`

	KernelShape []int     `json:"kernel_shape,omitempty"`
	Kernel      []float64 `json:"kernel,omitempty"`

	BiasShape []int     `json:"bias_shape,omitempty"`
	Bias      []float64 `json:"bias,omitempty"`
}

// ModelWeights はモデルの重みを表す構造体（シリアライゼーション用）
type ModelWeights struct {
	// ModelType はモデルの種類（Sequential）
	ModelType string `json:"model_type"`

	// Version はフォーマットのバージョン（互換性チェック用）
	Version string `json:"version"`

	// Name はモデル名
	Name string `json:"name,omitempty"`

	// Layers はレイヤーごとの重み
	Layers []LayerWeights `json:"layers"`

	// Hyperparameters はオプティマイザと損失関数の設定
	Hyperparameters map[string]interface{} `json:"hyperparameters,omitempty"`

	// Metadata は追加のメタデータ
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	// IsCompiled はスナップショット時点でコンパイル済みだったか
	IsCompiled bool `json:"is_compiled"`
}

// ToJSON はModelWeightsをJSON形式にシリアライズ
func (mw *ModelWeights) ToJSON() ([]byte, error) {
	return json.MarshalIndent(mw, "", "  ")
}

// FromJSON はJSON形式からModelWeightsをデシリアライズ
func (mw *ModelWeights) FromJSON(data []byte) error {
	if err := json.Unmarshal(data, mw); err != nil {
		return errors.Wrap(err, "model weights: decode json")
	}
	return nil
}

// Validate はModelWeightsの妥当性を検証
func (mw *ModelWeights) Validate() error {
	if mw.ModelType == "" {
		return errors.NewArgumentError("model_type", "is required", mw.ModelType)
	}
	if mw.Version == "" {
		return errors.NewArgumentError("version", "is required", mw.Version)
	}
	for _, lw := range mw.Layers {
		if n := volume(lw.KernelShape); n != len(lw.Kernel) {
			return errors.NewShapeMismatchError("ModelWeights.Validate", []int{n}, []int{len(lw.Kernel)})
		}
		if n := volume(lw.BiasShape); n != len(lw.Bias) {
			return errors.NewShapeMismatchError("ModelWeights.Validate", []int{n}, []int{len(lw.Bias)})
		}
	}
	return nil
}

// NumParams returns the number of stored parameters.
func (mw *ModelWeights) NumParams() int {
	n := 0
	for _, lw := range mw.Layers {
		n += len(lw.Kernel) + len(lw.Bias)
	}
	return n
}

// Clone はModelWeightsのディープコピーを作成
func (mw *ModelWeights) Clone() *ModelWeights {
	clone := &ModelWeights{
		ModelType:       mw.ModelType,
		Version:         mw.Version,
		Name:            mw.Name,
		IsCompiled:      mw.IsCompiled,
		Layers:          make([]LayerWeights, len(mw.Layers)),
		Hyperparameters: make(map[string]interface{}, len(mw.Hyperparameters)),
		Metadata:        make(map[string]interface{}, len(mw.Metadata)),
	}

	for i, lw := range mw.Layers {
		clone.Layers[i] = LayerWeights{
			ID:          lw.ID,
			Type:        lw.Type,
			Activation:  lw.Activation,
			InputShape:  append([]int(nil), lw.InputShape...),
			OutputShape: append([]int(nil), lw.OutputShape...),
			KernelShape: append([]int(nil), lw.KernelShape...),
			Kernel:      append([]float64(nil), lw.Kernel...),
			BiasShape:   append([]int(nil), lw.BiasShape...),
			Bias:        append([]float64(nil), lw.Bias...),
		}
	}

	for k, v := range mw.Hyperparameters {
		clone.Hyperparameters[k] = v
	}

	for k, v := range mw.Metadata {
		clone.Metadata[k] = v
	}

	return clone
}

// volume of an empty shape is 0 so parameterless layers validate.
func volume(shape []int) int {
	if len(shape) == 0 {
		return 0
	}
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}
