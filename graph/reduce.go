package graph

import "github.com/dagtrain/dagtrain/tensor"

// sumNode reduces its input to a 1x1 tensor holding the sum of all
// elements. Backward broadcasts the (scalar) upstream gradient back to
// every input element unchanged.
type sumNode struct {
	x     Handle
	shape [2]int
}

func (n *sumNode) Inputs() []Handle { return []Handle{n.x} }

func (n *sumNode) Forward(g *Graph) *tensor.Tensor {
	xv := g.forward(n.x)
	n.shape = [2]int{xv.Rows(), xv.Cols()}
	return xv.Sum()
}

func (n *sumNode) Backward(g *Graph, outputGrad *tensor.Tensor) []*tensor.Tensor {
	return []*tensor.Tensor{tensor.Full(n.shape[0], n.shape[1], outputGrad.At(0, 0))}
}

// NewSum reduces x to a 1x1 tensor holding the sum of all its elements.
func (g *Graph) NewSum(x Handle) Handle {
	return g.add("sum", &sumNode{x: x})
}

// meanNode reduces its input to a 1x1 tensor holding the mean of all
// elements. Backward broadcasts 1/N of the upstream gradient to every
// input element.
type meanNode struct {
	x     Handle
	shape [2]int
}

func (n *meanNode) Inputs() []Handle { return []Handle{n.x} }

func (n *meanNode) Forward(g *Graph) *tensor.Tensor {
	xv := g.forward(n.x)
	n.shape = [2]int{xv.Rows(), xv.Cols()}
	return xv.Mean()
}

func (n *meanNode) Backward(g *Graph, outputGrad *tensor.Tensor) []*tensor.Tensor {
	count := float64(n.shape[0] * n.shape[1])
	return []*tensor.Tensor{tensor.Full(n.shape[0], n.shape[1], outputGrad.At(0, 0)/count)}
}

// NewMean reduces x to a 1x1 tensor holding the mean of all its elements.
func (g *Graph) NewMean(x Handle) Handle {
	return g.add("mean", &meanNode{x: x})
}
