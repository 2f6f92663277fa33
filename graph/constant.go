package graph

import "github.com/dagtrain/dagtrain/tensor"

// constantNode holds a value set externally each training step. It has no
// parameters to learn and contributes nothing to Variables().
type constantNode struct {
	value *tensor.Tensor
}

func (n *constantNode) Inputs() []Handle { return nil }

func (n *constantNode) Forward(g *Graph) *tensor.Tensor {
	if n.value == nil {
		panic(&unsetConstantPanic{})
	}
	return n.value
}

func (n *constantNode) Backward(g *Graph, outputGrad *tensor.Tensor) []*tensor.Tensor {
	return nil
}

func (n *constantNode) setValue(v *tensor.Tensor) { n.value = v }

// NewConstant creates an unsized Constant. Forward fails with
// ErrUnsetConstant until SetConstant gives it a value.
func (g *Graph) NewConstant() Handle {
	return g.add("constant", &constantNode{})
}

// SetConstant assigns (or replaces) h's value. Call Graph.Recache afterward
// if h has previously been forwarded, so the new value is picked up.
func (g *Graph) SetConstant(h Handle, v *tensor.Tensor) {
	n, ok := g.nodes[h].op.(*constantNode)
	if !ok {
		panic("graph: SetConstant: handle is not a Constant")
	}
	n.setValue(v)
}
