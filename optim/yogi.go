package optim

import (
	"math"

	"github.com/dagtrain/dagtrain/graph"
	"github.com/dagtrain/dagtrain/tensor"
)

// Yogi matches Adam except for its second-moment update, which controls the
// effective learning rate's growth by signed rather than exponential decay:
//
//	v ← v − (1−β₂)·sign(v − g²)·g²
type Yogi struct {
	g    *graph.Graph
	vars []graph.Handle
	lr   float64
	t    int
	m, v map[graph.Handle]*tensor.Tensor
}

// NewYogi constructs a Yogi optimizer over vars with learning rate lr.
func NewYogi(g *graph.Graph, vars []graph.Handle, lr float64) *Yogi {
	return &Yogi{
		g: g, vars: vars, lr: lr,
		m: make(map[graph.Handle]*tensor.Tensor),
		v: make(map[graph.Handle]*tensor.Tensor),
	}
}

func (o *Yogi) Update() {
	o.t++
	biasCorr1 := 1 - math.Pow(adamBeta1, float64(o.t))

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
			g2 := gd[i] * gd[i]
			vd[i] -= (1 - adamBeta2) * math.Copysign(1, vd[i]-g2) * g2
			mHat := md[i] / biasCorr1
			pd[i] -= o.lr * mHat / (math.Sqrt(math.Abs(vd[i])) + adamEps)
		}
	}
}
