// Package checkpoint saves and restores the parameters of a Sequential
// model.
//
// A checkpoint is a model.ModelWeights value: one entry per layer holding
// the kernel and bias with their shapes. It is encoded either as indented
// JSON or as a binary protobuf google.protobuf.Struct carrying the same
// document.
package checkpoint

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/YuminosukeSato/neurago/core/model"
	"github.com/YuminosukeSato/neurago/core/tensor"
	"github.com/YuminosukeSato/neurago/nn"
	"github.com/YuminosukeSato/neurago/pkg/errors"
)

// Format is the encoding of a checkpoint file.
type Format int

const (
	FormatJSON Format = iota
	FormatProto
)

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "JSON"
	case FormatProto:
		return "Proto"
	default:
		return "Unknown"
	}
}

// FormatFromPath picks the format from the file extension: .json for JSON,
// .pb or .bin for protobuf.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".pb", ".bin":
		return FormatProto, nil
	default:
		return 0, errors.NewArgumentError("path", "unknown checkpoint extension (want .json, .pb or .bin)", path)
	}
}

// Snapshot copies the parameters of every layer of m.
func Snapshot(m *nn.Sequential) *model.ModelWeights {
	layers := m.Layers()
	mw := &model.ModelWeights{
		ModelType:  "Sequential",
		Version:    model.WeightsVersion,
		Name:       m.Name(),
		Layers:     make([]model.LayerWeights, len(layers)),
		IsCompiled: m.Compiled(),
		Metadata:   map[string]interface{}{"num_params": m.NumParams()},
	}
	if opt := m.Optimizer(); opt != nil && m.Compiled() {
		mw.Hyperparameters = map[string]interface{}{
			"optimizer": opt.Info(),
			"loss":      m.Loss().Name(),
		}
	}

	for i, l := range layers {
		lw := model.LayerWeights{
			ID:          i,
			Type:        l.Name(),
			InputShape:  l.InputShape(),
			OutputShape: l.OutputShape(),
		}
		if a := l.Activation(); a != nil {
			lw.Activation = a.Name()
		}
		if l.NumParams() > 0 {
			if k := l.Kernel(); k != nil {
				lw.KernelShape = k.Shape()
				lw.Kernel = append([]float64(nil), k.Data()...)
			}
			if b := l.Bias(); l.HasBias() && b != nil {
				lw.BiasShape = b.Shape()
				lw.Bias = append([]float64(nil), b.Data()...)
			}
		}
		mw.Layers[i] = lw
	}
	return mw
}

// Restore writes the parameters in mw into the layers of m. The model must
// be compiled and have the same layer types in the same order; every
// parameter tensor must match in shape.
func Restore(m *nn.Sequential, mw *model.ModelWeights) error {
	const op = "checkpoint.Restore"
	if !m.Compiled() {
		return errors.NewNotCompiledError(op)
	}
	if err := mw.Validate(); err != nil {
		return err
	}
	layers := m.Layers()
	if len(layers) != len(mw.Layers) {
		return errors.NewShapeMismatchError(op, []int{len(layers)}, []int{len(mw.Layers)})
	}

	for i, l := range layers {
		lw := mw.Layers[i]
		if lw.Type != l.Name() {
			return errors.NewArgumentError(fmt.Sprintf("layers[%d].type", i), "does not match model layer "+l.Name(), lw.Type)
		}
		if l.NumParams() == 0 {
			continue
		}
		if err := restoreParam(l.SetKernel, lw.Kernel, lw.KernelShape, l.Kernel()); err != nil {
			return errors.Wrapf(err, "%s: layer %d kernel", op, i)
		}
		if l.HasBias() {
			if err := restoreParam(l.SetBias, lw.Bias, lw.BiasShape, l.Bias()); err != nil {
				return errors.Wrapf(err, "%s: layer %d bias", op, i)
			}
		}
	}
	return nil
}

func restoreParam(set func(*tensor.Tensor) error, data []float64, shape []int, current *tensor.Tensor) error {
	if len(data) == 0 {
		return errors.NewShapeMismatchError("checkpoint.Restore", current.Shape(), nil)
	}
	t, err := tensor.FromSlice(data, shape...)
	if err != nil {
		return err
	}
	return set(t)
}

// Encode writes mw to w.
func Encode(w io.Writer, mw *model.ModelWeights, format Format) error {
	data, err := mw.ToJSON()
	if err != nil {
		return errors.Wrap(err, "checkpoint.Encode")
	}
	if format == FormatProto {
		data, err = jsonToProto(data)
		if err != nil {
			return err
		}
	} else if format != FormatJSON {
		return errors.NewArgumentError("format", "unsupported checkpoint format", format.String())
	}
	_, err = w.Write(data)
	return errors.Wrap(err, "checkpoint.Encode")
}

// Decode reads a checkpoint from r and validates it.
func Decode(r io.Reader, format Format) (*model.ModelWeights, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "checkpoint.Decode")
	}
	switch format {
	case FormatJSON:
	case FormatProto:
		if data, err = protoToJSON(data); err != nil {
			return nil, err
		}
	default:
		return nil, errors.NewArgumentError("format", "unsupported checkpoint format", format.String())
	}

	var mw model.ModelWeights
	if err := mw.FromJSON(data); err != nil {
		return nil, err
	}
	if err := mw.Validate(); err != nil {
		return nil, err
	}
	return &mw, nil
}

// jsonToProto re-encodes a JSON document as a binary google.protobuf.Struct.
func jsonToProto(data []byte) ([]byte, error) {
	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "checkpoint: decode json")
	}
	st, err := structpb.NewStruct(doc)
	if err != nil {
		return nil, errors.Wrap(err, "checkpoint: build struct")
	}
	out, err := proto.Marshal(st)
	if err != nil {
		return nil, errors.Wrap(err, "checkpoint: marshal proto")
	}
	return out, nil
}

func protoToJSON(data []byte) ([]byte, error) {
	var st structpb.Struct
	if err := proto.Unmarshal(data, &st); err != nil {
		return nil, errors.Wrap(err, "checkpoint: unmarshal proto")
	}
	out, err := json.Marshal(st.AsMap())
	if err != nil {
		return nil, errors.Wrap(err, "checkpoint: encode json")
	}
	return out, nil
}

// Save snapshots m and writes it to path, choosing the encoding from the
// file extension.
func Save(path string, m *nn.Sequential) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := Encode(&buf, Snapshot(m), format); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return errors.Wrapf(err, "checkpoint.Save: %s", path)
	}
	return nil
}

// Read loads the checkpoint stored at path without applying it.
func Read(path string) (*model.ModelWeights, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "checkpoint.Read: %s", path)
	}
	defer f.Close()
	return Decode(f, format)
}

// Load reads the checkpoint at path and restores it into m.
func Load(path string, m *nn.Sequential) error {
	mw, err := Read(path)
	if err != nil {
		return err
	}
	return Restore(m, mw)
}
