package tensor

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// MatMul computes the matrix product a*b, delegating to gonum's mat.Dense
// gemm rather than a hand-rolled triple loop — the one operation in this
// package where an external, BLAS-backed implementation earns its keep.
func MatMul(a, b *Tensor) *Tensor {
	if a.cols != b.rows {
		panic(newShapeError("matmul", a, b))
	}
	ma := mat.NewDense(a.rows, a.cols, a.data)
	mb := mat.NewDense(b.rows, b.cols, b.data)
	var mc mat.Dense
	mc.Mul(ma, mb)
	out := Zeros(a.rows, b.cols)
	copy(out.data, mc.RawMatrix().Data)
	return out
}

// Transpose returns a new tensor with rows and columns swapped.
func (t *Tensor) Transpose() *Tensor {
	out := Zeros(t.cols, t.rows)
	for r := 0; r < t.rows; r++ {
		for c := 0; c < t.cols; c++ {
			out.Set(c, r, t.At(r, c))
		}
	}
	return out
}

// Reshape returns a new tensor with the same elements in row-major order
// under a different rows x cols shape.
func (t *Tensor) Reshape(rows, cols int) *Tensor {
	if rows*cols != len(t.data) {
		panic(fmt.Sprintf("tensor.Reshape: cannot reshape %dx%d into %dx%d", t.rows, t.cols, rows, cols))
	}
	data := make([]float64, len(t.data))
	copy(data, t.data)
	return New(rows, cols, data)
}

// Block extracts the rows x cols sub-block starting at (r0, c0).
func (t *Tensor) Block(r0, c0, rows, cols int) *Tensor {
	if r0 < 0 || c0 < 0 || r0+rows > t.rows || c0+cols > t.cols {
		panic(fmt.Sprintf("tensor.Block: block (%d,%d,%d,%d) out of bounds for %dx%d", r0, c0, rows, cols, t.rows, t.cols))
	}
	out := Zeros(rows, cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			out.Set(r, c, t.At(r0+r, c0+c))
		}
	}
	return out
}

// SetBlock writes sub into t starting at (r0, c0), mutating t in place.
func (t *Tensor) SetBlock(r0, c0 int, sub *Tensor) {
	if r0 < 0 || c0 < 0 || r0+sub.rows > t.rows || c0+sub.cols > t.cols {
		panic(fmt.Sprintf("tensor.SetBlock: block (%d,%d,%d,%d) out of bounds for %dx%d", r0, c0, sub.rows, sub.cols, t.rows, t.cols))
	}
	for r := 0; r < sub.rows; r++ {
		for c := 0; c < sub.cols; c++ {
			t.Set(r0+r, c0+c, sub.At(r, c))
		}
	}
}

// AddBlock adds sub into t starting at (r0, c0), mutating t in place. Used
// by Embedding's backward, where a repeated index accumulates several
// gradient rows into the same row of the table.
func (t *Tensor) AddBlock(r0, c0 int, sub *Tensor) {
	for r := 0; r < sub.rows; r++ {
		for c := 0; c < sub.cols; c++ {
			t.Set(r0+r, c0+c, t.At(r0+r, c0+c)+sub.At(r, c))
		}
	}
}

// Broadcast expands t to the given shape by repeating singleton rows/cols.
func (t *Tensor) Broadcast(rows, cols int) *Tensor {
	if _, _, ok := broadcastDims(t.rows, t.cols, rows, cols); !ok {
		panic(fmt.Sprintf("tensor.Broadcast: cannot broadcast %dx%d to %dx%d", t.rows, t.cols, rows, cols))
	}
	out := Zeros(rows, cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			out.Set(r, c, t.At(r%t.rows, c%t.cols))
		}
	}
	return out
}

// Sum reduces the whole tensor to a 1x1 tensor holding the sum of all
// elements.
func (t *Tensor) Sum() *Tensor {
	var s float64
	for _, v := range t.data {
		s += v
	}
	return New(1, 1, []float64{s})
}

// Mean reduces the whole tensor to a 1x1 tensor holding the mean of all
// elements.
func (t *Tensor) Mean() *Tensor {
	return New(1, 1, []float64{t.Sum().data[0] / float64(len(t.data))})
}

// SumRows collapses t to a 1 x cols row vector by summing down each
// column — used for bias gradients (dL/db = column-sum g).
func (t *Tensor) SumRows() *Tensor {
	out := Zeros(1, t.cols)
	for r := 0; r < t.rows; r++ {
		for c := 0; c < t.cols; c++ {
			out.Set(0, c, out.At(0, c)+t.At(r, c))
		}
	}
	return out
}

// RowApply builds a new tensor by applying f independently to each row.
// f must return a slice of the same length as its input.
func (t *Tensor) RowApply(f func(row []float64) []float64) *Tensor {
	out := Zeros(t.rows, t.cols)
	for r := 0; r < t.rows; r++ {
		out.SetRow(r, f(t.Row(r)))
	}
	return out
}

// JoinHorizontal concatenates tensors along the column axis; all operands
// must share the same row count.
func JoinHorizontal(parts ...*Tensor) *Tensor {
	rows := parts[0].rows
	cols := 0
	for _, p := range parts {
		if p.rows != rows {
			panic("tensor.JoinHorizontal: row count mismatch")
		}
		cols += p.cols
	}
	out := Zeros(rows, cols)
	c0 := 0
	for _, p := range parts {
		out.SetBlock(0, c0, p)
		c0 += p.cols
	}
	return out
}
