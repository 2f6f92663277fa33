package graph

import (
	"math"

	"github.com/dagtrain/dagtrain/tensor"
)

// layerNormEpsilon is added to the per-row variance before the square root,
// per the fixed convention pinned down for this operator.
const layerNormEpsilon = 1e-8

// layerNormNode normalizes each row of x to zero mean and unit variance,
// then applies a trainable per-column scale (gamma) and shift (beta), both
// shape (1, cols), broadcast over rows.
type layerNormNode struct {
	x, gamma, beta Handle
	norm           *tensor.Tensor
	std            []float64
}

func (n *layerNormNode) Inputs() []Handle { return []Handle{n.x, n.gamma, n.beta} }

func (n *layerNormNode) Forward(g *Graph) *tensor.Tensor {
	xv := g.forward(n.x)
	gammaV := g.forward(n.gamma)
	betaV := g.forward(n.beta)

	rows, cols := xv.Shape()
	n.norm = tensor.Zeros(rows, cols)
	n.std = make([]float64, rows)
	for r := 0; r < rows; r++ {
		row := xv.Row(r)
		var mean float64
		for _, v := range row {
			mean += v
		}
		mean /= float64(cols)

		var variance float64
		for _, v := range row {
			d := v - mean
			variance += d * d
		}
		variance /= float64(cols)

		std := math.Sqrt(variance + layerNormEpsilon)
		n.std[r] = std
		for c, v := range row {
			n.norm.Set(r, c, (v-mean)/std)
		}
	}
	return tensor.Add(tensor.Mul(n.norm, gammaV), betaV)
}

// Backward implements the standard layer-norm gradient: per row of size m,
//
//	dnorm = g ⊙ gamma
//	dx    = (1/std) * (dnorm − mean(dnorm) − norm ⊙ mean(dnorm ⊙ norm))
//	dgamma = column-sum(g ⊙ norm), dbeta = column-sum(g)
func (n *layerNormNode) Backward(g *Graph, outputGrad *tensor.Tensor) []*tensor.Tensor {
	gammaV := g.Value(n.gamma)
	rows, cols := outputGrad.Shape()

	dbeta := outputGrad.SumRows()
	dgamma := tensor.Mul(outputGrad, n.norm).SumRows()

	dnorm := tensor.Mul(outputGrad, gammaV)
	dx := tensor.Zeros(rows, cols)
	m := float64(cols)
	for r := 0; r < rows; r++ {
		var sumDnorm, sumDnormNorm float64
		for c := 0; c < cols; c++ {
			dn := dnorm.At(r, c)
			sumDnorm += dn
			sumDnormNorm += dn * n.norm.At(r, c)
		}
		std := n.std[r]
		for c := 0; c < cols; c++ {
			v := dnorm.At(r, c) - sumDnorm/m - n.norm.At(r, c)*sumDnormNorm/m
			dx.Set(r, c, v/std)
		}
	}
	return []*tensor.Tensor{dx, dgamma, dbeta}
}

// NewLayerNorm normalizes each row of x and rescales it by gamma, beta.
func (g *Graph) NewLayerNorm(x, gamma, beta Handle) Handle {
	return g.add("layer_norm", &layerNormNode{x: x, gamma: gamma, beta: beta})
}
