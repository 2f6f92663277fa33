package graph

import (
	"math"

	"github.com/dagtrain/dagtrain/tensor"
)

// binaryNode implements every element-wise binary operator (Add, Sub, Mul,
// Div, Pow, Min, Max) as one Operator, the binary counterpart to unaryNode.
// forward computes the tensor-level op (which already broadcasts); backward
// is given per-element partials and reduces them back to each operand's own
// shape with tensor.SumToShape, the standard broadcasting backward rule.
type binaryNode struct {
	a, b     Handle
	forward  func(a, b *tensor.Tensor) *tensor.Tensor
	backward func(av, bv, g float64) (da, db float64)
}

func newBinary(g *Graph, kind string, a, b Handle, forward func(*tensor.Tensor, *tensor.Tensor) *tensor.Tensor, backward func(av, bv, g float64) (float64, float64)) Handle {
	return g.add(kind, &binaryNode{a: a, b: b, forward: forward, backward: backward})
}

func (n *binaryNode) Inputs() []Handle { return []Handle{n.a, n.b} }

func (n *binaryNode) Forward(g *Graph) *tensor.Tensor {
	return n.forward(g.forward(n.a), g.forward(n.b))
}

func (n *binaryNode) Backward(g *Graph, outputGrad *tensor.Tensor) []*tensor.Tensor {
	av := g.Value(n.a)
	bv := g.Value(n.b)
	rows, cols := outputGrad.Rows(), outputGrad.Cols()
	da := tensor.Zeros(rows, cols)
	db := tensor.Zeros(rows, cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			x := av.At(r%av.Rows(), c%av.Cols())
			y := bv.At(r%bv.Rows(), c%bv.Cols())
			dx, dy := n.backward(x, y, outputGrad.At(r, c))
			da.Set(r, c, dx)
			db.Set(r, c, dy)
		}
	}
	return []*tensor.Tensor{
		tensor.SumToShape(da, av.Rows(), av.Cols()),
		tensor.SumToShape(db, bv.Rows(), bv.Cols()),
	}
}

// NewAdd computes a+b, broadcasting singleton rows/cols.
func (g *Graph) NewAdd(a, b Handle) Handle {
	return newBinary(g, "add", a, b, tensor.Add, func(_, _, grad float64) (float64, float64) { return grad, grad })
}

// NewSub computes a-b, broadcasting singleton rows/cols.
func (g *Graph) NewSub(a, b Handle) Handle {
	return newBinary(g, "sub", a, b, tensor.Sub, func(_, _, grad float64) (float64, float64) { return grad, -grad })
}

// NewMul computes the Hadamard product a*b, broadcasting singleton
// rows/cols. da = grad*b, db = grad*a.
func (g *Graph) NewMul(a, b Handle) Handle {
	return newBinary(g, "mul", a, b, tensor.Mul, func(av, bv, grad float64) (float64, float64) {
		return grad * bv, grad * av
	})
}

// NewDiv computes a/b, broadcasting singleton rows/cols.
// da = grad/b, db = -grad*a/b^2.
func (g *Graph) NewDiv(a, b Handle) Handle {
	return newBinary(g, "div", a, b, tensor.Div, func(av, bv, grad float64) (float64, float64) {
		return grad / bv, -grad * av / (bv * bv)
	})
}

// NewPow computes a**b, broadcasting singleton rows/cols.
// da = grad*b*a^(b-1), db = grad*y*ln(a).
func (g *Graph) NewPow(a, b Handle) Handle {
	return newBinary(g, "pow", a, b, tensor.Pow, func(av, bv, grad float64) (float64, float64) {
		y := math.Pow(av, bv)
		da := grad * bv * math.Pow(av, bv-1)
		db := 0.0
		if av > 0 {
			db = grad * y * math.Log(av)
		}
		return da, db
	})
}

// NewMin computes the element-wise minimum, broadcasting singleton
// rows/cols. Gradient flows entirely to whichever operand is smaller.
func (g *Graph) NewMin(a, b Handle) Handle {
	return newBinary(g, "min", a, b, tensor.Min, func(av, bv, grad float64) (float64, float64) {
		if av <= bv {
			return grad, 0
		}
		return 0, grad
	})
}

// NewMax computes the element-wise maximum, broadcasting singleton
// rows/cols. Gradient flows entirely to whichever operand is larger.
func (g *Graph) NewMax(a, b Handle) Handle {
	return newBinary(g, "max", a, b, tensor.Max, func(av, bv, grad float64) (float64, float64) {
		if av >= bv {
			return grad, 0
		}
		return 0, grad
	})
}
