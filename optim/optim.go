// Package optim implements the in-place parameter optimizers that consume a
// Graph's variable set and its accumulated gradients.
package optim

import (
	"github.com/dagtrain/dagtrain/graph"
	"github.com/dagtrain/dagtrain/tensor"
)

// Optimizer mutates a fixed set of variables in place using their current
// gradient. Update is zero-allocation after the first call: any per-variable
// accumulator state (momentum, second moment) is sized once and reused.
type Optimizer interface {
	Update()
}

func gradOrZero(g *graph.Graph, h graph.Handle) *tensor.Tensor {
	grad := g.Gradient(h)
	if grad == nil {
		val := g.Value(h)
		return tensor.Zeros(val.Rows(), val.Cols())
	}
	return grad
}

func applyElementwise(v *tensor.Tensor, grad *tensor.Tensor, f func(p, g float64) float64) {
	data := v.Data()
	gd := grad.Data()
	for i := range data {
		data[i] = f(data[i], gd[i])
	}
}
