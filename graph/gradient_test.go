package graph

import (
	"math"
	"testing"

	"github.com/dagtrain/dagtrain/tensor"
)

// checkGradient compares the analytic gradient Backward accumulates on x
// against the central-difference Jacobian DFdX computes for the scalar
// output f, failing if any entry disagrees by more than 1% relative or
// 1e-3 absolute, whichever is larger.
func checkGradient(t *testing.T, g *Graph, f, x Handle) {
	t.Helper()
	if _, err := g.Forward(f); err != nil {
		t.Fatalf("forward: %v", err)
	}
	if err := g.Backward(f, tensor.New(1, 1, []float64{1})); err != nil {
		t.Fatalf("backward: %v", err)
	}
	analytic := g.Gradient(x)

	expected, err := g.DFdX(f, x, 0, 0)
	if err != nil {
		t.Fatalf("dFdX: %v", err)
	}

	for r := 0; r < analytic.Rows(); r++ {
		for c := 0; c < analytic.Cols(); c++ {
			a := analytic.At(r, c)
			e := expected.At(r, c)
			tol := math.Max(1e-3, 0.01*math.Abs(e))
			if math.Abs(a-e) > tol {
				t.Errorf("gradient at (%d,%d): analytic %v, central-difference %v (tol %v)", r, c, a, e, tol)
			}
		}
	}
}

func TestGradientMatchesCentralDifferenceLinearSigmoidMean(t *testing.T) {
	g := New(3)
	x := g.NewVariable(tensor.New(1, 3, []float64{0.4, -1.1, 0.7}))
	w := g.NewVariable(tensor.New(2, 3, []float64{0.2, -0.3, 0.5, 0.1, 0.4, -0.6}))
	b := g.NewVariable(tensor.NewRow([]float64{0.05, -0.05}))

	y := g.NewSigmoid(g.NewLinear(x, w, b))
	loss := g.NewMean(y)

	checkGradient(t, g, loss, x)
	checkGradient(t, g, loss, w)
}

func TestGradientMatchesCentralDifferenceTanhProduct(t *testing.T) {
	g := New(4)
	x := g.NewVariable(tensor.New(2, 2, []float64{0.3, -0.2, 0.1, 0.5}))
	y := g.NewVariable(tensor.New(2, 2, []float64{0.6, 0.1, -0.4, 0.2}))

	z := g.NewTanh(g.NewProduct(x, y))
	loss := g.NewSum(z)

	checkGradient(t, g, loss, x)
	checkGradient(t, g, loss, y)
}
