package tensor

import "fmt"

// ShapeError reports incompatible operand shapes for a binary or matrix op.
type ShapeError struct {
	Op      string
	A, B    [2]int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("tensor: %s: incompatible shapes %dx%d and %dx%d", e.Op, e.A[0], e.A[1], e.B[0], e.B[1])
}

func newShapeError(op string, a, b *Tensor) error {
	return &ShapeError{Op: op, A: [2]int{a.rows, a.cols}, B: [2]int{b.rows, b.cols}}
}
