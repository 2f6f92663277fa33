package optim

import (
	"math"

	"github.com/dagtrain/dagtrain/graph"
	"github.com/dagtrain/dagtrain/tensor"
)

const rmsPropAlpha = 0.9

// RMSProp implements v ← αv + (1−α)g², p ← p − lr·g/√(v+ε).
type RMSProp struct {
	g    *graph.Graph
	vars []graph.Handle
	lr   float64
	v    map[graph.Handle]*tensor.Tensor
}

// NewRMSProp constructs an RMSProp optimizer over vars with learning rate lr.
func NewRMSProp(g *graph.Graph, vars []graph.Handle, lr float64) *RMSProp {
	return &RMSProp{g: g, vars: vars, lr: lr, v: make(map[graph.Handle]*tensor.Tensor)}
}

func (o *RMSProp) Update() {
	for _, h := range o.vars {
		val := o.g.Value(h)
		grad := gradOrZero(o.g, h)

		v, ok := o.v[h]
		if !ok {
			v = tensor.Zeros(val.Rows(), val.Cols())
			o.v[h] = v
		}

		vd, gd, pd := v.Data(), grad.Data(), val.Data()
		for i := range pd {
			vd[i] = rmsPropAlpha*vd[i] + (1-rmsPropAlpha)*gd[i]*gd[i]
			pd[i] -= o.lr * gd[i] / math.Sqrt(vd[i]+adamEps)
		}
	}
}
