package optim

import (
	"github.com/dagtrain/dagtrain/graph"
)

// SGD implements plain gradient descent: v ← v − lr·g.
type SGD struct {
	g    *graph.Graph
	vars []graph.Handle
	lr   float64
}

// NewSGD constructs an SGD optimizer over vars with learning rate lr.
func NewSGD(g *graph.Graph, vars []graph.Handle, lr float64) *SGD {
	return &SGD{g: g, vars: vars, lr: lr}
}

func (o *SGD) Update() {
	for _, h := range o.vars {
		v := o.g.Value(h)
		grad := gradOrZero(o.g, h)
		applyElementwise(v, grad, func(p, gr float64) float64 {
			return p - o.lr*gr
		})
	}
}
