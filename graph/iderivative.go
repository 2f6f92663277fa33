package graph

import "github.com/dagtrain/dagtrain/tensor"

// iderivativeNode is a transparent wrapper around an inner subgraph's result
// node. Composite operators (MultiHeadAttention, GRU cells, RowWise) build
// their machinery from ordinary nodes and finish by wrapping the last one in
// an iderivative node — this gives the composite a single stable handle
// without recomputing or duplicating the inner value, and routes the
// upstream gradient straight into the inner node's own gradient accumulator.
type iderivativeNode struct{ inner Handle }

func (n *iderivativeNode) Inputs() []Handle { return []Handle{n.inner} }

func (n *iderivativeNode) Forward(g *Graph) *tensor.Tensor {
	return g.forward(n.inner)
}

func (n *iderivativeNode) Backward(g *Graph, outputGrad *tensor.Tensor) []*tensor.Tensor {
	return []*tensor.Tensor{outputGrad}
}

// NewIDerivative exposes inner as a new handle; forward passes inner's value
// through unchanged, backward routes the upstream gradient into inner.
func (g *Graph) NewIDerivative(inner Handle) Handle {
	return g.add("iderivative", &iderivativeNode{inner: inner})
}
