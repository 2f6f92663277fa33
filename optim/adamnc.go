package optim

import (
	"math"

	"github.com/dagtrain/dagtrain/graph"
	"github.com/dagtrain/dagtrain/tensor"
)

// AdamNC is Adam without bias correction, for continual/online settings
// where the bias-corrected early steps are undesirable.
type AdamNC struct {
	g    *graph.Graph
	vars []graph.Handle
	lr   float64
	m, v map[graph.Handle]*tensor.Tensor
}

// NewAdamNC constructs an AdamNC optimizer over vars with learning rate lr.
func NewAdamNC(g *graph.Graph, vars []graph.Handle, lr float64) *AdamNC {
	return &AdamNC{
		g: g, vars: vars, lr: lr,
		m: make(map[graph.Handle]*tensor.Tensor),
		v: make(map[graph.Handle]*tensor.Tensor),
	}
}

func (o *AdamNC) Update() {
	for _, h := range o.vars {
		val := o.g.Value(h)
		grad := gradOrZero(o.g, h)

		m, ok := o.m[h]
		if !ok {
			m = tensor.Zeros(val.Rows(), val.Cols())
			o.m[h] = m
		}
		v, ok := o.v[h]
		if !ok {
			v = tensor.Zeros(val.Rows(), val.Cols())
			o.v[h] = v
		}

		md, vd, gd, pd := m.Data(), v.Data(), grad.Data(), val.Data()
		for i := range pd {
			md[i] = adamBeta1*md[i] + (1-adamBeta1)*gd[i]
			vd[i] = adamBeta2*vd[i] + (1-adamBeta2)*gd[i]*gd[i]
			pd[i] -= o.lr * md[i] / (math.Sqrt(vd[i]) + adamEps)
		}
	}
}
