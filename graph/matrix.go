package graph

import "github.com/dagtrain/dagtrain/tensor"

// productNode computes the matrix product a·b (gemm).
// dA = g·Bᵗ, dB = Aᵗ·g.
type productNode struct{ a, b Handle }

func (n *productNode) Inputs() []Handle { return []Handle{n.a, n.b} }
func (n *productNode) Forward(g *Graph) *tensor.Tensor {
	return tensor.MatMul(g.forward(n.a), g.forward(n.b))
}
func (n *productNode) Backward(g *Graph, outputGrad *tensor.Tensor) []*tensor.Tensor {
	av := g.Value(n.a)
	bv := g.Value(n.b)
	da := tensor.MatMul(outputGrad, bv.Transpose())
	db := tensor.MatMul(av.Transpose(), outputGrad)
	return []*tensor.Tensor{da, db}
}

// NewProduct computes the matrix product a·b.
func (g *Graph) NewProduct(a, b Handle) Handle {
	return g.add("product", &productNode{a: a, b: b})
}

// linearNode computes y = x·Wᵗ + b, the fused affine layer: W has shape
// (out, in), b has shape (1, out), broadcast over the batch.
//
// Backward: dW = gᵗ·x, db = column-sum(g), dx = g·W.
type linearNode struct{ x, w, b Handle }

func (n *linearNode) Inputs() []Handle { return []Handle{n.x, n.w, n.b} }
func (n *linearNode) Forward(g *Graph) *tensor.Tensor {
	x := g.forward(n.x)
	w := g.forward(n.w)
	b := g.forward(n.b)
	y := tensor.MatMul(x, w.Transpose())
	return tensor.Add(y, b)
}
func (n *linearNode) Backward(g *Graph, outputGrad *tensor.Tensor) []*tensor.Tensor {
	x := g.Value(n.x)
	w := g.Value(n.w)
	dw := tensor.MatMul(outputGrad.Transpose(), x)
	db := outputGrad.SumRows()
	dx := tensor.MatMul(outputGrad, w)
	return []*tensor.Tensor{dx, dw, db}
}

// NewLinear computes y = x·Wᵗ + b.
func (g *Graph) NewLinear(x, w, b Handle) Handle {
	return g.add("linear", &linearNode{x: x, w: w, b: b})
}
