package graph

import "github.com/dagtrain/dagtrain/tensor"

// dropoutNode multiplies its input by a Bernoulli(1-r)/(1-r) inverted-
// dropout mask, drawn once per epoch and cached for the epoch — the same
// caching discipline as forward values, so repeated forwards in one epoch
// are deterministic. With rate 0 the mask is the identity and no random
// number is consumed.
type dropoutNode struct {
	x     Handle
	rate  float64
	mask  *tensor.Tensor
	epoch int
}

func (n *dropoutNode) Inputs() []Handle { return []Handle{n.x} }

func (n *dropoutNode) Forward(g *Graph) *tensor.Tensor {
	xv := g.forward(n.x)
	if n.rate == 0 {
		return xv
	}
	if n.mask == nil || n.epoch != g.Epoch() || !n.mask.SameShape(xv) {
		n.mask = tensor.BernoulliMask(xv.Rows(), xv.Cols(), g.RNG(), 1-n.rate)
		n.epoch = g.Epoch()
	}
	return tensor.Mul(xv, n.mask)
}

func (n *dropoutNode) Backward(g *Graph, outputGrad *tensor.Tensor) []*tensor.Tensor {
	if n.rate == 0 {
		return []*tensor.Tensor{outputGrad}
	}
	return []*tensor.Tensor{tensor.Mul(outputGrad, n.mask)}
}

// NewDropout applies inverted dropout with drop probability rate to x.
func (g *Graph) NewDropout(x Handle, rate float64) Handle {
	return g.add("dropout", &dropoutNode{x: x, rate: rate})
}
