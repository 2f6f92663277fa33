package optim

import (
	"math"

	"github.com/dagtrain/dagtrain/graph"
	"github.com/dagtrain/dagtrain/tensor"
)

const (
	adamBeta1 = 0.9
	adamBeta2 = 0.999
	adamEps   = 1e-8
)

// Adam implements the standard Adam update with bias correction. Per-
// variable first and second moment accumulators are allocated once, on the
// first Update call, and reused for the optimizer's lifetime.
type Adam struct {
	g    *graph.Graph
	vars []graph.Handle
	lr   float64
	t    int
	m, v map[graph.Handle]*tensor.Tensor
}

// NewAdam constructs an Adam optimizer over vars with learning rate lr.
func NewAdam(g *graph.Graph, vars []graph.Handle, lr float64) *Adam {
	return &Adam{
		g: g, vars: vars, lr: lr,
		m: make(map[graph.Handle]*tensor.Tensor),
		v: make(map[graph.Handle]*tensor.Tensor),
	}
}

func (o *Adam) Update() {
	o.t++
	biasCorr1 := 1 - math.Pow(adamBeta1, float64(o.t))
	biasCorr2 := 1 - math.Pow(adamBeta2, float64(o.t))

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
			mHat := md[i] / biasCorr1
			vHat := vd[i] / biasCorr2
			pd[i] -= o.lr * mHat / (math.Sqrt(vHat) + adamEps)
		}
	}
}
