package graph

import "github.com/dagtrain/dagtrain/tensor"

// Operator is the contract every node kind (Constant, Variable, and the
// ~35 differentiable operators) implements. It is deliberately small: a
// dispatch table, not an inheritance hierarchy — composite nodes
// (MultiHeadAttention, EncoderLayer-style layers) build an inner subgraph
// out of simpler Operators and expose it through IDerivative rather than
// implementing Operator themselves with a bigger Forward/Backward.
type Operator interface {
	// Inputs returns the handles this node reads from, in the same order
	// Backward returns their gradients.
	Inputs() []Handle

	// Forward computes this node's value from its inputs' (already
	// forced) values. Implementations fetch input values with
	// Graph.forward, never Graph.Forward, so that shape/unset-constant
	// failures propagate as panics caught once at the Graph.Forward
	// boundary rather than needing to be threaded through every operator.
	Forward(g *Graph) *tensor.Tensor

	// Backward computes, from the upstream gradient on this node's
	// output, one gradient tensor per entry of Inputs(), in the same
	// order. Returns a nil slice for a node with no differentiable
	// inputs (Constant).
	Backward(g *Graph, outputGrad *tensor.Tensor) []*tensor.Tensor
}

// nodeState is the arena entry for one node: its Operator plus the cache,
// gradient accumulator, and bookkeeping the Graph maintains on its behalf.
type nodeState struct {
	kind     string
	name     string
	backprop bool
	op       Operator

	value *tensor.Tensor
	grad  *tensor.Tensor

	epoch int  // epoch stamp of the cached value
	valid bool // whether value/epoch have ever been set
}
