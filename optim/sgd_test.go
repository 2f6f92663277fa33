package optim

import (
	"testing"

	"github.com/dagtrain/dagtrain/graph"
	"github.com/dagtrain/dagtrain/tensor"
)

// trainLoop runs n steps of forward/backward/update against a scalar loss
// and returns the final loss value, zeroing no state the optimizer owns
// between calls.
func trainLoop(t *testing.T, g *graph.Graph, loss graph.Handle, opt Optimizer, n int) float64 {
	t.Helper()
	var final float64
	for i := 0; i < n; i++ {
		v, err := g.Forward(loss)
		if err != nil {
			t.Fatalf("step %d: forward: %v", i, err)
		}
		final = v.At(0, 0)
		if err := g.Backward(loss, tensor.New(1, 1, []float64{1})); err != nil {
			t.Fatalf("step %d: backward: %v", i, err)
		}
		opt.Update()
		g.Recache()
	}
	return final
}

// TestSGDLinearRegressionConverges fits y = w*x + b by full-batch gradient
// descent against 5 points generated from w=2, b=1, and checks the MSE
// loss is below 1e-3 after the full 20,000-step budget.
func TestSGDLinearRegressionConverges(t *testing.T) {
	g := graph.New(1)

	xs := []float64{1, 2, 3, 4, 5}
	trueW, trueB := 2.0, 1.0
	ys := make([]float64, len(xs))
	for i, x := range xs {
		ys[i] = trueW*x + trueB
	}

	x := g.NewConstant()
	g.SetConstant(x, tensor.New(len(xs), 1, xs))
	y := g.NewConstant()
	g.SetConstant(y, tensor.New(len(ys), 1, ys))

	w := g.NewVariable(tensor.Zeros(1, 1))
	b := g.NewVariable(tensor.Zeros(1, 1))

	pred := g.NewLinear(x, w, b)
	diff := g.NewSub(pred, y)
	loss := g.NewMean(g.NewMul(diff, diff))

	opt := NewSGD(g, []graph.Handle{w, b}, 0.01)
	final := trainLoop(t, g, loss, opt, 20000)

	if final >= 1e-3 {
		t.Errorf("final loss %v did not converge below 1e-3", final)
	}
}
