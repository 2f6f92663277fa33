package graph

import (
	"math"

	"github.com/dagtrain/dagtrain/tensor"
)

// unaryNode implements every element-wise unary operator (Neg, Abs, Log,
// Exp, Sqrt, Tanh, Sigmoid, Relu, Erf, Gelu, Softplus) as one Operator
// parameterized by a forward function and the corresponding backward rule
// expressed in terms of the cached input/output, rather than one struct per
// operator. All eleven share the same Inputs()/cache/pullback shape; only
// the math differs.
type unaryNode struct {
	x        Handle
	forward  func(x float64) float64
	backward func(x, y, g float64) float64 // dL/dx given input x, output y, upstream grad g
	output   *tensor.Tensor
}

func newUnary(g *Graph, kind string, x Handle, forward func(float64) float64, backward func(x, y, g float64) float64) Handle {
	return g.add(kind, &unaryNode{x: x, forward: forward, backward: backward})
}

func (n *unaryNode) Inputs() []Handle { return []Handle{n.x} }

func (n *unaryNode) Forward(g *Graph) *tensor.Tensor {
	xv := g.forward(n.x)
	out := xv.RowApply(func(row []float64) []float64 {
		r := make([]float64, len(row))
		for i, v := range row {
			r[i] = n.forward(v)
		}
		return r
	})
	n.output = out
	return out
}

func (n *unaryNode) Backward(g *Graph, outputGrad *tensor.Tensor) []*tensor.Tensor {
	xv := g.Value(n.x)
	grad := tensor.Zeros(outputGrad.Rows(), outputGrad.Cols())
	for r := 0; r < grad.Rows(); r++ {
		for c := 0; c < grad.Cols(); c++ {
			grad.Set(r, c, n.backward(xv.At(r, c), n.output.At(r, c), outputGrad.At(r, c)))
		}
	}
	return []*tensor.Tensor{grad}
}

// NewNeg negates every element. dy/dx = -1.
func (g *Graph) NewNeg(x Handle) Handle {
	return newUnary(g, "neg", x, func(v float64) float64 { return -v }, func(_, _, grad float64) float64 { return -grad })
}

// NewAbs takes the absolute value of every element. dy/dx = sign(x).
func (g *Graph) NewAbs(x Handle) Handle {
	return newUnary(g, "abs", x, math.Abs, func(x, _, grad float64) float64 {
		if x < 0 {
			return -grad
		}
		return grad
	})
}

// NewLog takes the natural log of every element. dy/dx = 1/x.
func (g *Graph) NewLog(x Handle) Handle {
	return newUnary(g, "log", x, math.Log, func(x, _, grad float64) float64 { return grad / x })
}

// NewExp exponentiates every element. dy/dx = y.
func (g *Graph) NewExp(x Handle) Handle {
	return newUnary(g, "exp", x, math.Exp, func(_, y, grad float64) float64 { return grad * y })
}

// NewSqrt takes the square root of every element. dy/dx = 1/(2y).
func (g *Graph) NewSqrt(x Handle) Handle {
	return newUnary(g, "sqrt", x, math.Sqrt, func(_, y, grad float64) float64 { return grad / (2 * y) })
}

// NewTanh applies tanh. dy/dx = 1-y^2.
func (g *Graph) NewTanh(x Handle) Handle {
	return newUnary(g, "tanh", x, math.Tanh, func(_, y, grad float64) float64 { return grad * (1 - y*y) })
}

// NewSigmoid applies the logistic sigmoid. dy/dx = y(1-y).
func (g *Graph) NewSigmoid(x Handle) Handle {
	sigmoid := func(v float64) float64 { return 1 / (1 + math.Exp(-v)) }
	return newUnary(g, "sigmoid", x, sigmoid, func(_, y, grad float64) float64 { return grad * y * (1 - y) })
}

// NewRelu applies the rectified linear unit. dy/dx = 1 if x>0 else 0.
func (g *Graph) NewRelu(x Handle) Handle {
	relu := func(v float64) float64 { return math.Max(0, v) }
	return newUnary(g, "relu", x, relu, func(x, _, grad float64) float64 {
		if x > 0 {
			return grad
		}
		return 0
	})
}

// NewErf applies the Gauss error function. dy/dx = (2/sqrt(pi)) exp(-x^2).
func (g *Graph) NewErf(x Handle) Handle {
	return newUnary(g, "erf", x, math.Erf, func(x, _, grad float64) float64 {
		return grad * (2 / math.Sqrt(math.Pi)) * math.Exp(-x*x)
	})
}

// NewGelu applies the exact (erf-based) Gaussian Error Linear Unit,
// gelu(x) = x * Phi(x) where Phi is the standard normal CDF. Its
// derivative follows the product rule on Phi and the normal density phi:
//
//	d/dx [x*Phi(x)] = Phi(x) + x*phi(x)
func (g *Graph) NewGelu(x Handle) Handle {
	cdf := func(v float64) float64 { return 0.5 * (1 + math.Erf(v/math.Sqrt2)) }
	pdf := func(v float64) float64 { return math.Exp(-0.5*v*v) / math.Sqrt(2*math.Pi) }
	gelu := func(v float64) float64 { return v * cdf(v) }
	return newUnary(g, "gelu", x, gelu, func(x, _, grad float64) float64 {
		return grad * (cdf(x) + x*pdf(x))
	})
}

// NewSoftplus applies softplus(x) = log(1+exp(x)), computed as
// max(x,0) + log1p(exp(-|x|)) for numerical stability. dy/dx = sigmoid(x).
func (g *Graph) NewSoftplus(x Handle) Handle {
	softplus := func(v float64) float64 { return math.Max(v, 0) + math.Log1p(math.Exp(-math.Abs(v))) }
	return newUnary(g, "softplus", x, softplus, func(x, _, grad float64) float64 {
		return grad / (1 + math.Exp(-x))
	})
}
