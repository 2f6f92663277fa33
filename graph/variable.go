package graph

import "github.com/dagtrain/dagtrain/tensor"

// variableNode is a trainable parameter. Its value is mutated in place by
// an Optimizer; Backward only ever needs to report that gradient flows
// straight through since a Variable has no inputs of its own.
type variableNode struct {
	value *tensor.Tensor
}

func (n *variableNode) Inputs() []Handle { return nil }

func (n *variableNode) Forward(g *Graph) *tensor.Tensor { return n.value }

func (n *variableNode) Backward(g *Graph, outputGrad *tensor.Tensor) []*tensor.Tensor {
	return nil
}

func (n *variableNode) setValue(v *tensor.Tensor) { n.value = v }

// NewVariable creates a trainable parameter initialized to v and appends it
// to Variables() in creation order.
func (g *Graph) NewVariable(v *tensor.Tensor) Handle {
	h := g.add("variable", &variableNode{value: v})
	g.variables = append(g.variables, h)
	return h
}

// SetVariable overwrites h's value in place, e.g. to load a checkpoint.
func (g *Graph) SetVariable(h Handle, v *tensor.Tensor) {
	n, ok := g.nodes[h].op.(*variableNode)
	if !ok {
		panic("graph: SetVariable: handle is not a Variable")
	}
	n.setValue(v)
}
