package optim

import (
	"testing"

	"github.com/dagtrain/dagtrain/graph"
	"github.com/dagtrain/dagtrain/tensor"
)

// buildQuadraticLoss wires up a quadratic regression y = a*x^2 + b*x + c
// against 5 points generated from a=2, b=-3, c=1, returning the loss
// handle and the three trainable coefficients.
func buildQuadraticLoss(g *graph.Graph) (loss, a, b, c graph.Handle) {
	xs := []float64{-2, -1, 0, 1, 2}
	trueA, trueB, trueC := 2.0, -3.0, 1.0
	x2s := make([]float64, len(xs))
	ys := make([]float64, len(xs))
	for i, x := range xs {
		x2s[i] = x * x
		ys[i] = trueA*x2s[i] + trueB*x + trueC
	}

	x := g.NewConstant()
	g.SetConstant(x, tensor.New(len(xs), 1, xs))
	x2 := g.NewConstant()
	g.SetConstant(x2, tensor.New(len(x2s), 1, x2s))
	y := g.NewConstant()
	g.SetConstant(y, tensor.New(len(ys), 1, ys))

	a = g.NewVariable(tensor.Zeros(1, 1))
	b = g.NewVariable(tensor.Zeros(1, 1))
	c = g.NewVariable(tensor.Zeros(1, 1))

	pred := g.NewAdd(g.NewAdd(g.NewMul(x2, a), g.NewMul(x, b)), c)
	diff := g.NewSub(pred, y)
	loss = g.NewMean(g.NewMul(diff, diff))
	return loss, a, b, c
}

func TestSGDQuadraticRegressionConverges(t *testing.T) {
	g := graph.New(1)
	loss, a, b, c := buildQuadraticLoss(g)

	opt := NewSGD(g, []graph.Handle{a, b, c}, 0.01)
	final := trainLoop(t, g, loss, opt, 20000)

	if final >= 1e-3 {
		t.Errorf("final loss %v did not converge below 1e-3", final)
	}
}

func TestAdamQuadraticRegressionConverges(t *testing.T) {
	g := graph.New(1)
	loss, a, b, c := buildQuadraticLoss(g)

	opt := NewAdam(g, []graph.Handle{a, b, c}, 0.01)
	final := trainLoop(t, g, loss, opt, 20000)

	if final >= 1e-3 {
		t.Errorf("final loss %v did not converge below 1e-3", final)
	}
}
