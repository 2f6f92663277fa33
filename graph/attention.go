package graph

import (
	"math"

	"github.com/dagtrain/dagtrain/tensor"
)

// NewScaledDotProductAttention computes
//
//	softmax_row(Q·Kᵗ/√D + bias) · V
//
// where bias is 0 where mask is 1 and a large negative number where mask is
// 0 (a finite stand-in for −∞ that avoids NaN from −∞·0 in the backward
// pass). l and s (query/key sequence lengths) are accepted to document the
// expected shapes; the subgraph built here only depends on D. An optional
// dropout is applied to the attention matrix before it multiplies V.
func (g *Graph) NewScaledDotProductAttention(q, k, v, mask Handle, l, s, d int, dropout float64) Handle {
	scores := g.NewProduct(q, g.NewTranspose(k))

	scale := g.NewConstant()
	g.SetConstant(scale, tensor.Full(1, 1, 1/math.Sqrt(float64(d))))
	scaled := g.NewMul(scores, scale)

	one := g.NewConstant()
	g.SetConstant(one, tensor.Full(1, 1, 1))
	negLarge := g.NewConstant()
	g.SetConstant(negLarge, tensor.Full(1, 1, 1e9))
	bias := g.NewMul(g.NewSub(mask, one), negLarge)

	attn := g.NewSoftmax(g.NewAdd(scaled, bias))
	if dropout > 0 {
		attn = g.NewDropout(attn, dropout)
	}
	out := g.NewProduct(attn, v)
	return g.NewIDerivative(out)
}

// NewMultiHeadAttention runs self-attention over x: four ExE projections
// (wq/bq, wk/bk, wv/bv, wo/bo), x split into h heads along the feature
// dimension, each head attended independently, results concatenated and
// projected by Wo. l is the sequence length (fixed at construction time,
// like Conv2D's spatial dimensions). E must be divisible by h.
//
// Each head is passed D = E/h as the attention's per-head dimension, not h
// itself — h and D coincide only when E == h², so using h directly would
// silently mis-scale the dot product whenever that isn't the case.
func (g *Graph) NewMultiHeadAttention(x Handle, wq, bq, wk, bk, wv, bv, wo, bo, mask Handle, l, h int, dropout float64) Handle {
	e := g.forward(wq).Rows()
	d := e / h

	q := g.NewLinear(x, wq, bq)
	k := g.NewLinear(x, wk, bk)
	v := g.NewLinear(x, wv, bv)

	heads := make([]Handle, h)
	for i := 0; i < h; i++ {
		qi := g.NewSplit(q, 0, i*d, l, d)
		ki := g.NewSplit(k, 0, i*d, l, d)
		vi := g.NewSplit(v, 0, i*d, l, d)
		heads[i] = g.NewScaledDotProductAttention(qi, ki, vi, mask, l, l, d, dropout)
	}

	concat := g.NewJoin(heads...)
	out := g.NewLinear(concat, wo, bo)
	return g.NewIDerivative(out)
}
