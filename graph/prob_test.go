package graph

import (
	"math"
	"testing"

	"github.com/dagtrain/dagtrain/tensor"
)

func TestSoftmaxRowsSumToOne(t *testing.T) {
	g := New(1)
	x := g.NewVariable(tensor.New(3, 4, []float64{
		1, 2, 3, 4,
		-1, 0, 1, 2,
		5, 5, 5, 5,
	}))
	y := g.NewSoftmax(x)
	out, err := g.Forward(y)
	if err != nil {
		t.Fatal(err)
	}
	for r := 0; r < out.Rows(); r++ {
		var sum float64
		for c := 0; c < out.Cols(); c++ {
			v := out.At(r, c)
			if v < 0 || v > 1 {
				t.Errorf("row %d col %d: value %v out of [0,1]", r, c, v)
			}
			sum += v
		}
		if math.Abs(sum-1) > 1e-6 {
			t.Errorf("row %d sums to %v, want 1", r, sum)
		}
	}
}

func TestLogSoftmaxMatchesLogOfSoftmax(t *testing.T) {
	g := New(1)
	x := g.NewVariable(tensor.New(2, 3, []float64{0.1, -0.2, 0.3, 2, -2, 0}))
	sm := g.NewSoftmax(x)
	lsm := g.NewLogSoftmax(x)

	smv, err := g.Forward(sm)
	if err != nil {
		t.Fatal(err)
	}
	lsmv, err := g.Forward(lsm)
	if err != nil {
		t.Fatal(err)
	}

	for r := 0; r < lsmv.Rows(); r++ {
		var expSum float64
		for c := 0; c < lsmv.Cols(); c++ {
			e := math.Exp(lsmv.At(r, c))
			expSum += e
			want := math.Log(smv.At(r, c))
			if math.Abs(lsmv.At(r, c)-want) > 1e-5 {
				t.Errorf("row %d col %d: log_softmax %v, log(softmax) %v", r, c, lsmv.At(r, c), want)
			}
		}
		if math.Abs(expSum-1) > 1e-5 {
			t.Errorf("row %d: exp(log_softmax) sums to %v, want 1", r, expSum)
		}
	}
}

func TestDropoutMaskMeanAndBackward(t *testing.T) {
	g := New(7)
	x := g.NewVariable(tensor.Ones(100, 500))
	y := g.NewDropout(x, 0.3)

	out, err := g.Forward(y)
	if err != nil {
		t.Fatal(err)
	}

	var sum float64
	n := out.Rows() * out.Cols()
	for _, v := range out.Data() {
		sum += v
	}
	mean := sum / float64(n)
	if math.Abs(mean-1) > 0.01 {
		t.Errorf("mean of inverted-dropout output: got %v, want within 0.01 of 1", mean)
	}

	seed := tensor.Ones(100, 500)
	if err := g.Backward(y, seed); err != nil {
		t.Fatal(err)
	}
	grad := g.Gradient(x)
	// backward of inverted dropout equals the mask itself (grad/seed), and
	// the mask is exactly what made out == x*mask when x is all ones.
	if !grad.IsApprox(out, 1e-12) {
		t.Error("dropout backward gradient does not equal the forward mask (output) when seeded with ones and x is all ones")
	}
}

func TestDropoutRateZeroIsIdentity(t *testing.T) {
	g := New(1)
	x := g.NewVariable(tensor.New(1, 3, []float64{1, 2, 3}))
	y := g.NewDropout(x, 0)
	out, err := g.Forward(y)
	if err != nil {
		t.Fatal(err)
	}
	if !out.IsApprox(tensor.New(1, 3, []float64{1, 2, 3}), 1e-12) {
		t.Errorf("rate 0 dropout changed the input: got %v", out.Data())
	}
}
