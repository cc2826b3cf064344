package tensor

import (
	"gonum.org/v1/gonum/floats"

	"github.com/YuminosukeSato/neurago/core/parallel"
	"github.com/YuminosukeSato/neurago/pkg/errors"
)

// parallelCutoff is the multiply-add count below which a kernel ignores the
// pool and runs on the calling goroutine.
const parallelCutoff = 1 << 12

func runRows(pool *parallel.Pool, rows, costPerRow int, fn func(start, end int)) error {
	if rows*costPerRow < parallelCutoff {
		pool = nil
	}
	return pool.Run(rows, fn)
}

func checkSame(op string, ts ...*Tensor) error {
	for _, t := range ts[1:] {
		if !SameShape(ts[0], t) {
			return errors.NewShapeMismatchError(op, ts[0].shape, t.shape)
		}
	}
	return nil
}

func checkRank(op string, t *Tensor, rank int) error {
	if len(t.shape) != rank {
		want := make([]int, rank)
		for i := range want {
			want[i] = -1
		}
		return errors.NewShapeMismatchError(op, want, t.shape)
	}
	return nil
}

// Add stores a+b in r.
func Add(a, b, r *Tensor) error {
	if err := checkSame("tensor.Add", a, b, r); err != nil {
		return err
	}
	floats.AddTo(r.data, a.data, b.data)
	return nil
}

// Sub stores a-b in r.
func Sub(a, b, r *Tensor) error {
	if err := checkSame("tensor.Sub", a, b, r); err != nil {
		return err
	}
	floats.SubTo(r.data, a.data, b.data)
	return nil
}

// Hadamard stores the elementwise product of a and b in r.
func Hadamard(a, b, r *Tensor) error {
	if err := checkSame("tensor.Hadamard", a, b, r); err != nil {
		return err
	}
	floats.MulTo(r.data, a.data, b.data)
	return nil
}

// Scale stores s*a in r.
func Scale(a *Tensor, s float64, r *Tensor) error {
	if err := checkSame("tensor.Scale", a, r); err != nil {
		return err
	}
	floats.ScaleTo(r.data, s, a.data)
	return nil
}

// AddInPlace adds src into dst.
func AddInPlace(dst, src *Tensor) error {
	if err := checkSame("tensor.AddInPlace", dst, src); err != nil {
		return err
	}
	floats.Add(dst.data, src.data)
	return nil
}

// MatMul stores a·b in r. All operands are rank 2; rows of r are split
// across the pool.
func MatMul(pool *parallel.Pool, a, b, r *Tensor) error {
	const op = "tensor.MatMul"
	for _, t := range []*Tensor{a, b, r} {
		if err := checkRank(op, t, 2); err != nil {
			return err
		}
	}
	m, k, n := a.shape[0], a.shape[1], b.shape[1]
	if b.shape[0] != k {
		return errors.NewShapeMismatchError(op, []int{k, n}, b.shape)
	}
	if r.shape[0] != m || r.shape[1] != n {
		return errors.NewShapeMismatchError(op, []int{m, n}, r.shape)
	}
	return runRows(pool, m, k*n, func(start, end int) {
		for i := start; i < end; i++ {
			row := r.data[i*n : (i+1)*n]
			clear(row)
			for p := 0; p < k; p++ {
				floats.AddScaled(row, a.data[i*k+p], b.data[p*n:(p+1)*n])
			}
		}
	})
}

// MatMulVec stores a·x in r, where a is [m, n], x is [n] and r is [m].
func MatMulVec(pool *parallel.Pool, a, x, r *Tensor) error {
	const op = "tensor.MatMulVec"
	if err := checkRank(op, a, 2); err != nil {
		return err
	}
	m, n := a.shape[0], a.shape[1]
	if len(x.data) != n {
		return errors.NewShapeMismatchError(op, []int{n}, x.shape)
	}
	if len(r.data) != m {
		return errors.NewShapeMismatchError(op, []int{m}, r.shape)
	}
	return runRows(pool, m, n, func(start, end int) {
		for i := start; i < end; i++ {
			r.data[i] = floats.Dot(a.data[i*n:(i+1)*n], x.data)
		}
	})
}

// MatMulTransA stores aᵗ·x in r, where a is [m, n], x is [m] and r is [n].
func MatMulTransA(pool *parallel.Pool, a, x, r *Tensor) error {
	const op = "tensor.MatMulTransA"
	if err := checkRank(op, a, 2); err != nil {
		return err
	}
	m, n := a.shape[0], a.shape[1]
	if len(x.data) != m {
		return errors.NewShapeMismatchError(op, []int{m}, x.shape)
	}
	if len(r.data) != n {
		return errors.NewShapeMismatchError(op, []int{n}, r.shape)
	}
	return runRows(pool, n, m, func(start, end int) {
		for j := start; j < end; j++ {
			var s float64
			for i := 0; i < m; i++ {
				s += a.data[i*n+j] * x.data[i]
			}
			r.data[j] = s
		}
	})
}

// Outer stores the outer product a⊗b in r ([len(a), len(b)]). With
// accumulate set the product is added to the existing contents.
func Outer(a, b, r *Tensor, accumulate bool) error {
	const op = "tensor.Outer"
	m, n := len(a.data), len(b.data)
	if len(r.shape) != 2 || r.shape[0] != m || r.shape[1] != n {
		return errors.NewShapeMismatchError(op, []int{m, n}, r.shape)
	}
	for i, av := range a.data {
		row := r.data[i*n : (i+1)*n]
		if accumulate {
			floats.AddScaled(row, av, b.data)
		} else {
			floats.ScaleTo(row, av, b.data)
		}
	}
	return nil
}

func correlateDims(op string, input, kernel, out *Tensor) (int, int, error) {
	for _, t := range []*Tensor{input, kernel, out} {
		if err := checkRank(op, t, 2); err != nil {
			return 0, 0, err
		}
	}
	oh := input.shape[0] - kernel.shape[0] + 1
	ow := input.shape[1] - kernel.shape[1] + 1
	if oh < 1 || ow < 1 {
		return 0, 0, errors.NewShapeMismatchError(op, kernel.shape, input.shape)
	}
	if out.shape[0] != oh || out.shape[1] != ow {
		return 0, 0, errors.NewShapeMismatchError(op, []int{oh, ow}, out.shape)
	}
	return oh, ow, nil
}

// Correlate stores the valid cross-correlation of input with kernel in out:
//
//	out[i][j] = Σ_m Σ_n input[i+m][j+n] · kernel[m][n]
//
// out must be (inH−kH+1, inW−kW+1). Output rows are split across the pool.
func Correlate(pool *parallel.Pool, input, kernel, out *Tensor) error {
	return correlate(pool, "tensor.Correlate", input, kernel, out, false)
}

// CorrelateAdd is Correlate accumulating into out.
func CorrelateAdd(pool *parallel.Pool, input, kernel, out *Tensor) error {
	return correlate(pool, "tensor.CorrelateAdd", input, kernel, out, true)
}

func correlate(pool *parallel.Pool, op string, input, kernel, out *Tensor, accumulate bool) error {
	oh, ow, err := correlateDims(op, input, kernel, out)
	if err != nil {
		return err
	}
	iw := input.shape[1]
	kh, kw := kernel.shape[0], kernel.shape[1]
	return runRows(pool, oh, ow*kh*kw, func(start, end int) {
		for i := start; i < end; i++ {
			row := out.data[i*ow : (i+1)*ow]
			if !accumulate {
				clear(row)
			}
			for m := 0; m < kh; m++ {
				in := input.data[(i+m)*iw : (i+m+1)*iw]
				krow := kernel.data[m*kw : (m+1)*kw]
				for j := 0; j < ow; j++ {
					row[j] += floats.Dot(in[j:j+kw], krow)
				}
			}
		}
	})
}

// ConvolveFull stores the full convolution of input with kernel in out:
//
//	out[i+m][j+n] += input[i][j] · kernel[m][n]
//
// out must be (inH+kH−1, inW+kW−1).
func ConvolveFull(input, kernel, out *Tensor) error {
	return convolveFull("tensor.ConvolveFull", input, kernel, out, false)
}

// ConvolveFullAdd is ConvolveFull accumulating into out.
func ConvolveFullAdd(input, kernel, out *Tensor) error {
	return convolveFull("tensor.ConvolveFullAdd", input, kernel, out, true)
}

func convolveFull(op string, input, kernel, out *Tensor, accumulate bool) error {
	for _, t := range []*Tensor{input, kernel, out} {
		if err := checkRank(op, t, 2); err != nil {
			return err
		}
	}
	ih, iw := input.shape[0], input.shape[1]
	kh, kw := kernel.shape[0], kernel.shape[1]
	oh, ow := ih+kh-1, iw+kw-1
	if out.shape[0] != oh || out.shape[1] != ow {
		return errors.NewShapeMismatchError(op, []int{oh, ow}, out.shape)
	}
	if !accumulate {
		clear(out.data)
	}
	for i := 0; i < ih; i++ {
		for j := 0; j < iw; j++ {
			v := input.data[i*iw+j]
			for m := 0; m < kh; m++ {
				dst := out.data[(i+m)*ow+j : (i+m)*ow+j+kw]
				floats.AddScaled(dst, v, kernel.data[m*kw:(m+1)*kw])
			}
		}
	}
	return nil
}
