// Package tensor implements the dense matrix backend that the graph package
// builds on: a row-major 2-D array of float64 values plus the element-wise,
// linear-algebra, and shaping operations the operator set in package graph
// needs. Matrix multiplication is delegated to gonum's mat.Dense; everything
// else is a thin, deliberately unoptimized loop over the backing slice.
package tensor

import "fmt"

// Tensor is a dense, row-major 2-D array of float64 values.
//
// Row-major layout is part of the contract: Conv2D's flattened
// channel-major-row-major input vectors and Embedding's row lookups both
// depend on element (r, c) living at data[r*cols+c].
type Tensor struct {
	rows, cols int
	data       []float64
}

// New wraps data as a rows x cols tensor. data must have exactly rows*cols
// elements and is not copied.
func New(rows, cols int, data []float64) *Tensor {
	if len(data) != rows*cols {
		panic(fmt.Sprintf("tensor.New: data has %d elements, want %d (%dx%d)", len(data), rows*cols, rows, cols))
	}
	return &Tensor{rows: rows, cols: cols, data: data}
}

// NewRow is a convenience constructor for a 1xn row vector.
func NewRow(data []float64) *Tensor {
	return New(1, len(data), data)
}

// Zeros returns a rows x cols tensor of zeros.
func Zeros(rows, cols int) *Tensor {
	return &Tensor{rows: rows, cols: cols, data: make([]float64, rows*cols)}
}

// Ones returns a rows x cols tensor of ones.
func Ones(rows, cols int) *Tensor {
	return Full(rows, cols, 1)
}

// Full returns a rows x cols tensor with every element set to v.
func Full(rows, cols int, v float64) *Tensor {
	t := Zeros(rows, cols)
	for i := range t.data {
		t.data[i] = v
	}
	return t
}

// Identity returns the n x n identity matrix.
func Identity(n int) *Tensor {
	t := Zeros(n, n)
	for i := 0; i < n; i++ {
		t.data[i*n+i] = 1
	}
	return t
}

// Rows returns the number of rows.
func (t *Tensor) Rows() int { return t.rows }

// Cols returns the number of columns.
func (t *Tensor) Cols() int { return t.cols }

// Shape returns (rows, cols).
func (t *Tensor) Shape() (int, int) { return t.rows, t.cols }

// Data returns the backing row-major slice. Callers that mutate it mutate
// the tensor; use Clone first if that isn't intended.
func (t *Tensor) Data() []float64 { return t.data }

// At returns the element at (r, c).
func (t *Tensor) At(r, c int) float64 { return t.data[r*t.cols+c] }

// Set assigns the element at (r, c).
func (t *Tensor) Set(r, c int, v float64) { t.data[r*t.cols+c] = v }

// Clone returns a deep copy.
func (t *Tensor) Clone() *Tensor {
	data := make([]float64, len(t.data))
	copy(data, t.data)
	return &Tensor{rows: t.rows, cols: t.cols, data: data}
}

// SameShape reports whether t and o have identical dimensions.
func (t *Tensor) SameShape(o *Tensor) bool {
	return t.rows == o.rows && t.cols == o.cols
}

// Row returns a copy of row r as a plain slice.
func (t *Tensor) Row(r int) []float64 {
	row := make([]float64, t.cols)
	copy(row, t.data[r*t.cols:(r+1)*t.cols])
	return row
}

// SetRow overwrites row r with the given values.
func (t *Tensor) SetRow(r int, row []float64) {
	if len(row) != t.cols {
		panic(fmt.Sprintf("tensor.SetRow: row has %d elements, want %d", len(row), t.cols))
	}
	copy(t.data[r*t.cols:(r+1)*t.cols], row)
}

// String implements fmt.Stringer for debugging.
func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor(%dx%d)", t.rows, t.cols)
}
