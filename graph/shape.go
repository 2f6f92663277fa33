package graph

import "github.com/dagtrain/dagtrain/tensor"

// transposeNode swaps rows and columns.
type transposeNode struct{ x Handle }

func (n *transposeNode) Inputs() []Handle { return []Handle{n.x} }
func (n *transposeNode) Forward(g *Graph) *tensor.Tensor {
	return g.forward(n.x).Transpose()
}
func (n *transposeNode) Backward(g *Graph, outputGrad *tensor.Tensor) []*tensor.Tensor {
	return []*tensor.Tensor{outputGrad.Transpose()}
}

// NewTranspose returns xᵗ.
func (g *Graph) NewTranspose(x Handle) Handle {
	return g.add("transpose", &transposeNode{x: x})
}

// reshapeNode reinterprets x's elements under a new shape, preserving
// row-major order.
type reshapeNode struct {
	x          Handle
	rows, cols int
	origRows   int
	origCols   int
}

func (n *reshapeNode) Inputs() []Handle { return []Handle{n.x} }
func (n *reshapeNode) Forward(g *Graph) *tensor.Tensor {
	xv := g.forward(n.x)
	n.origRows, n.origCols = xv.Rows(), xv.Cols()
	return xv.Reshape(n.rows, n.cols)
}
func (n *reshapeNode) Backward(g *Graph, outputGrad *tensor.Tensor) []*tensor.Tensor {
	return []*tensor.Tensor{outputGrad.Reshape(n.origRows, n.origCols)}
}

// NewReshape reinterprets x as a rows x cols tensor; rows*cols must equal
// x's element count.
func (g *Graph) NewReshape(x Handle, rows, cols int) Handle {
	return g.add("reshape", &reshapeNode{x: x, rows: rows, cols: cols})
}

// splitNode extracts a rectangular crop of x (the spec's "split" shape
// operator — a rectangular sub-block view, not an N-way partition).
type splitNode struct {
	x                  Handle
	r0, c0, rows, cols int
	xRows, xCols       int
}

func (n *splitNode) Inputs() []Handle { return []Handle{n.x} }
func (n *splitNode) Forward(g *Graph) *tensor.Tensor {
	xv := g.forward(n.x)
	n.xRows, n.xCols = xv.Rows(), xv.Cols()
	return xv.Block(n.r0, n.c0, n.rows, n.cols)
}
func (n *splitNode) Backward(g *Graph, outputGrad *tensor.Tensor) []*tensor.Tensor {
	grad := tensor.Zeros(n.xRows, n.xCols)
	grad.SetBlock(n.r0, n.c0, outputGrad)
	return []*tensor.Tensor{grad}
}

// NewSplit crops the rows x cols rectangle of x starting at (r0, c0).
func (g *Graph) NewSplit(x Handle, r0, c0, rows, cols int) Handle {
	return g.add("split", &splitNode{x: x, r0: r0, c0: c0, rows: rows, cols: cols})
}

// joinNode concatenates its inputs horizontally (same row count, columns
// added). Backward slices the upstream gradient back into each input's
// column range.
type joinNode struct {
	parts []Handle
	widths []int
}

func (n *joinNode) Inputs() []Handle { return n.parts }
func (n *joinNode) Forward(g *Graph) *tensor.Tensor {
	vals := make([]*tensor.Tensor, len(n.parts))
	n.widths = make([]int, len(n.parts))
	for i, p := range n.parts {
		vals[i] = g.forward(p)
		n.widths[i] = vals[i].Cols()
	}
	return tensor.JoinHorizontal(vals...)
}
func (n *joinNode) Backward(g *Graph, outputGrad *tensor.Tensor) []*tensor.Tensor {
	grads := make([]*tensor.Tensor, len(n.parts))
	c0 := 0
	for i, w := range n.widths {
		grads[i] = outputGrad.Block(0, c0, outputGrad.Rows(), w)
		c0 += w
	}
	return grads
}

// NewJoin concatenates parts along the column axis; all parts must share
// the same row count.
func (g *Graph) NewJoin(parts ...Handle) Handle {
	return g.add("join", &joinNode{parts: parts})
}

// broadcastNode expands x to a fixed target shape, repeating singleton
// rows/cols. Backward sums the upstream gradient back down to x's own
// shape — the standard broadcasting backward rule.
type broadcastNode struct {
	x          Handle
	rows, cols int
	xRows      int
	xCols      int
}

func (n *broadcastNode) Inputs() []Handle { return []Handle{n.x} }
func (n *broadcastNode) Forward(g *Graph) *tensor.Tensor {
	xv := g.forward(n.x)
	n.xRows, n.xCols = xv.Rows(), xv.Cols()
	return xv.Broadcast(n.rows, n.cols)
}
func (n *broadcastNode) Backward(g *Graph, outputGrad *tensor.Tensor) []*tensor.Tensor {
	return []*tensor.Tensor{tensor.SumToShape(outputGrad, n.xRows, n.xCols)}
}

// NewBroadcast expands x to the given target shape.
func (g *Graph) NewBroadcast(x Handle, rows, cols int) Handle {
	return g.add("broadcast", &broadcastNode{x: x, rows: rows, cols: cols})
}
