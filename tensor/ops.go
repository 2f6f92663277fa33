package tensor

import "math"

// broadcastDims computes the output shape for element-wise broadcasting
// between two operands, following the same one-or-equal rule as NumPy but
// restricted to the two axes a dense 2-D tensor has.
func broadcastDims(ar, ac, br, bc int) (rows, cols int, ok bool) {
	rows, ok = broadcastAxis(ar, br)
	if !ok {
		return 0, 0, false
	}
	cols, ok = broadcastAxis(ac, bc)
	return rows, cols, ok
}

func broadcastAxis(a, b int) (int, bool) {
	switch {
	case a == b:
		return a, true
	case a == 1:
		return b, true
	case b == 1:
		return a, true
	default:
		return 0, false
	}
}

func elementwiseBinary(op string, a, b *Tensor, f func(x, y float64) float64) *Tensor {
	rows, cols, ok := broadcastDims(a.rows, a.cols, b.rows, b.cols)
	if !ok {
		panic(newShapeError(op, a, b))
	}
	out := Zeros(rows, cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			av := a.At(r%a.rows, c%a.cols)
			bv := b.At(r%b.rows, c%b.cols)
			out.Set(r, c, f(av, bv))
		}
	}
	return out
}

// Add computes a+b element-wise, broadcasting singleton rows/cols.
func Add(a, b *Tensor) *Tensor { return elementwiseBinary("add", a, b, func(x, y float64) float64 { return x + y }) }

// Sub computes a-b element-wise, broadcasting singleton rows/cols.
func Sub(a, b *Tensor) *Tensor { return elementwiseBinary("sub", a, b, func(x, y float64) float64 { return x - y }) }

// Mul computes the Hadamard (element-wise) product, broadcasting singleton
// rows/cols.
func Mul(a, b *Tensor) *Tensor { return elementwiseBinary("mul", a, b, func(x, y float64) float64 { return x * y }) }

// Div computes a/b element-wise, broadcasting singleton rows/cols.
func Div(a, b *Tensor) *Tensor { return elementwiseBinary("div", a, b, func(x, y float64) float64 { return x / y }) }

// Pow computes a**b element-wise, broadcasting singleton rows/cols.
func Pow(a, b *Tensor) *Tensor { return elementwiseBinary("pow", a, b, math.Pow) }

// Min computes the element-wise minimum, broadcasting singleton rows/cols.
func Min(a, b *Tensor) *Tensor { return elementwiseBinary("min", a, b, math.Min) }

// Max computes the element-wise maximum, broadcasting singleton rows/cols.
func Max(a, b *Tensor) *Tensor { return elementwiseBinary("max", a, b, math.Max) }

func elementwiseUnary(t *Tensor, f func(float64) float64) *Tensor {
	out := Zeros(t.rows, t.cols)
	for i, v := range t.data {
		out.data[i] = f(v)
	}
	return out
}

// Neg negates every element.
func (t *Tensor) Neg() *Tensor { return elementwiseUnary(t, func(x float64) float64 { return -x }) }

// Abs takes the absolute value of every element.
func (t *Tensor) Abs() *Tensor { return elementwiseUnary(t, math.Abs) }

// Log takes the natural log of every element.
func (t *Tensor) Log() *Tensor { return elementwiseUnary(t, math.Log) }

// Exp exponentiates every element.
func (t *Tensor) Exp() *Tensor { return elementwiseUnary(t, math.Exp) }

// Sqrt takes the square root of every element.
func (t *Tensor) Sqrt() *Tensor { return elementwiseUnary(t, math.Sqrt) }

// Tanh applies tanh to every element.
func (t *Tensor) Tanh() *Tensor { return elementwiseUnary(t, math.Tanh) }

// Erf applies the Gauss error function to every element.
func (t *Tensor) Erf() *Tensor { return elementwiseUnary(t, math.Erf) }

// AddScalar adds a constant to every element.
func (t *Tensor) AddScalar(v float64) *Tensor {
	return elementwiseUnary(t, func(x float64) float64 { return x + v })
}

// MulScalar multiplies every element by a constant.
func (t *Tensor) MulScalar(v float64) *Tensor {
	return elementwiseUnary(t, func(x float64) float64 { return x * v })
}

// IsApprox reports whether t and o have the same shape and every element
// pair is within tol of each other (absolute difference).
func (t *Tensor) IsApprox(o *Tensor, tol float64) bool {
	if !t.SameShape(o) {
		return false
	}
	for i, v := range t.data {
		if math.Abs(v-o.data[i]) > tol {
			return false
		}
	}
	return true
}

// SumToShape reduces grad (produced against a broadcast output) back down
// to the given operand shape by summing over the axes that were
// broadcast, the standard reverse-mode rule for broadcasting inputs.
func SumToShape(grad *Tensor, rows, cols int) *Tensor {
	if grad.rows == rows && grad.cols == cols {
		return grad
	}
	out := Zeros(rows, cols)
	for r := 0; r < grad.rows; r++ {
		for c := 0; c < grad.cols; c++ {
			out.Set(r%rows, c%cols, out.At(r%rows, c%cols)+grad.At(r, c))
		}
	}
	return out
}
