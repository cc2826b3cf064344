// Package tensor implements the dense N-dimensional float64 buffer that every
// layer, loss and optimizer operates on.
//
// Storage is a flat row-major slice owned by the tensor. Views returned by
// Slice and Matrix share that storage; everything else copies.
package tensor

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/neurago/pkg/errors"
)

// Tensor is a dense row-major array of float64 with an immutable shape.
type Tensor struct {
	shape []int
	data  []float64
}

func volume(shape []int) (int, bool) {
	if len(shape) == 0 {
		return 0, false
	}
	n := 1
	for _, d := range shape {
		if d <= 0 {
			return 0, false
		}
		n *= d
	}
	return n, true
}

// New allocates a zero tensor. Every dimension must be positive.
func New(shape ...int) (*Tensor, error) {
	n, ok := volume(shape)
	if !ok {
		return nil, errors.NewArgumentError("shape", "dimensions must be positive", shape)
	}
	return &Tensor{shape: append([]int(nil), shape...), data: make([]float64, n)}, nil
}

// Zeros is New for shapes known to be valid. It panics on a non-positive
// dimension, the way mat.NewDense does.
func Zeros(shape ...int) *Tensor {
	t, err := New(shape...)
	if err != nil {
		panic(err)
	}
	return t
}

// FromSlice copies data into a new tensor of the given shape.
func FromSlice(data []float64, shape ...int) (*Tensor, error) {
	n, ok := volume(shape)
	if !ok {
		return nil, errors.NewArgumentError("shape", "dimensions must be positive", shape)
	}
	if len(data) != n {
		return nil, errors.NewShapeMismatchError("tensor.FromSlice", []int{n}, []int{len(data)})
	}
	return &Tensor{shape: append([]int(nil), shape...), data: append([]float64(nil), data...)}, nil
}

// Vector is a convenience for a rank-1 tensor holding a copy of values.
func Vector(values ...float64) *Tensor {
	if len(values) == 0 {
		panic(errors.NewArgumentError("values", "vector needs at least one element", 0))
	}
	return &Tensor{shape: []int{len(values)}, data: append([]float64(nil), values...)}
}

// FromMatrix copies m into a rank-2 tensor.
func FromMatrix(m mat.Matrix) *Tensor {
	r, c := m.Dims()
	t := Zeros(r, c)
	mat.NewDense(r, c, t.data).Copy(m)
	return t
}

// Matrix returns a *mat.Dense sharing storage with a rank-2 tensor.
func (t *Tensor) Matrix() (*mat.Dense, error) {
	if len(t.shape) != 2 {
		return nil, errors.NewShapeMismatchError("tensor.Matrix", []int{-1, -1}, t.shape)
	}
	return mat.NewDense(t.shape[0], t.shape[1], t.data), nil
}

// Shape returns a copy of the dimensions.
func (t *Tensor) Shape() []int { return append([]int(nil), t.shape...) }

// Dim returns the size of axis i.
func (t *Tensor) Dim(i int) int { return t.shape[i] }

// Rank returns the number of dimensions.
func (t *Tensor) Rank() int { return len(t.shape) }

// Size returns the number of elements.
func (t *Tensor) Size() int { return len(t.data) }

// Data exposes the backing slice. Writes through it are visible to the tensor.
func (t *Tensor) Data() []float64 { return t.data }

func (t *Tensor) offset(idx []int) int {
	if len(idx) != len(t.shape) {
		panic(fmt.Sprintf("tensor: index rank %d does not match tensor rank %d", len(idx), len(t.shape)))
	}
	off := 0
	for i, v := range idx {
		if v < 0 || v >= t.shape[i] {
			panic(fmt.Sprintf("tensor: index %v out of range for shape %v", idx, t.shape))
		}
		off = off*t.shape[i] + v
	}
	return off
}

// At returns the element at idx. It panics if idx is out of range.
func (t *Tensor) At(idx ...int) float64 { return t.data[t.offset(idx)] }

// Set stores v at idx. It panics if idx is out of range.
func (t *Tensor) Set(v float64, idx ...int) { t.data[t.offset(idx)] = v }

// Slice returns a view of the i-th sub-tensor along the first axis. For a
// rank-1 tensor the view has shape [1].
func (t *Tensor) Slice(i int) *Tensor {
	if i < 0 || i >= t.shape[0] {
		panic(fmt.Sprintf("tensor: slice %d out of range for shape %v", i, t.shape))
	}
	if len(t.shape) == 1 {
		return &Tensor{shape: []int{1}, data: t.data[i : i+1 : i+1]}
	}
	stride := len(t.data) / t.shape[0]
	lo := i * stride
	return &Tensor{shape: append([]int(nil), t.shape[1:]...), data: t.data[lo : lo+stride : lo+stride]}
}

// Clone returns a deep copy.
func (t *Tensor) Clone() *Tensor {
	return &Tensor{shape: append([]int(nil), t.shape...), data: append([]float64(nil), t.data...)}
}

// CopyFrom overwrites t with the contents of src. Shapes must match.
func (t *Tensor) CopyFrom(src *Tensor) error {
	if !SameShape(t, src) {
		return errors.NewShapeMismatchError("tensor.CopyFrom", t.shape, src.shape)
	}
	copy(t.data, src.data)
	return nil
}

// Reshape returns a copy of t with a new shape of equal volume.
func (t *Tensor) Reshape(shape ...int) (*Tensor, error) {
	n, ok := volume(shape)
	if !ok {
		return nil, errors.NewArgumentError("shape", "dimensions must be positive", shape)
	}
	if n != len(t.data) {
		return nil, errors.NewShapeMismatchError("tensor.Reshape", t.shape, shape)
	}
	return &Tensor{shape: append([]int(nil), shape...), data: append([]float64(nil), t.data...)}, nil
}

// Fill sets every element to v.
func (t *Tensor) Fill(v float64) {
	for i := range t.data {
		t.data[i] = v
	}
}

// Zero sets every element to 0.
func (t *Tensor) Zero() {
	clear(t.data)
}

// Map returns a new tensor with fn applied to every element.
func (t *Tensor) Map(fn func(float64) float64) *Tensor {
	out := &Tensor{shape: append([]int(nil), t.shape...), data: make([]float64, len(t.data))}
	for i, v := range t.data {
		out.data[i] = fn(v)
	}
	return out
}

// Apply replaces every element with fn of itself.
func (t *Tensor) Apply(fn func(float64) float64) {
	for i, v := range t.data {
		t.data[i] = fn(v)
	}
}

// String renders small tensors for debugging.
func (t *Tensor) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Tensor%v", t.shape)
	if len(t.data) <= 16 {
		fmt.Fprintf(&b, "%v", t.data)
	}
	return b.String()
}

// SameShape reports whether a and b have identical dimensions.
func SameShape(a, b *Tensor) bool {
	return ShapeEqual(a.shape, b.shape)
}

// ShapeEqual reports whether two shapes are identical.
func ShapeEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Volume returns the element count of shape, or 0 if any dimension is not positive.
func Volume(shape []int) int {
	n, _ := volume(shape)
	return n
}
