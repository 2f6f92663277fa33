package graph

import "github.com/dagtrain/dagtrain/tensor"

// NewGRUCell builds a single Cho-et-al GRU cell as a subgraph over existing
// primitives rather than a fused Operator — the standard resolution for a
// composite node (see NewMultiHeadAttention). x is the step input, hPrev the
// previous hidden state; wz/wr/wh are (hidden, input), uz/ur/uh are
// (hidden, hidden), bz/br/bh are (1, hidden).
//
//	z = sigmoid(x·Wzᵗ + hPrev·Uzᵗ + bz)
//	r = sigmoid(x·Wrᵗ + hPrev·Urᵗ + br)
//	h~ = tanh(x·Whᵗ + (r⊙hPrev)·Uhᵗ + bh)
//	h = z⊙hPrev + (1−z)⊙h~
func (g *Graph) NewGRUCell(x, hPrev Handle, wz, uz, bz, wr, ur, br, wh, uh, bh Handle) Handle {
	hidden := g.forward(bz).Cols()

	z := g.NewSigmoid(g.NewAdd(
		g.NewLinear(x, wz, bz),
		g.NewProduct(hPrev, g.NewTranspose(uz)),
	))
	r := g.NewSigmoid(g.NewAdd(
		g.NewLinear(x, wr, br),
		g.NewProduct(hPrev, g.NewTranspose(ur)),
	))
	candidate := g.NewTanh(g.NewAdd(
		g.NewLinear(x, wh, bh),
		g.NewProduct(g.NewMul(r, hPrev), g.NewTranspose(uh)),
	))

	ones := g.NewConstant()
	g.SetConstant(ones, tensor.Ones(1, hidden))
	oneMinusZ := g.NewSub(ones, z)

	h := g.NewAdd(g.NewMul(z, hPrev), g.NewMul(oneMinusZ, candidate))
	return g.NewIDerivative(h)
}
