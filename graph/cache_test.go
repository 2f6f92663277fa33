package graph

import (
	"testing"

	"github.com/dagtrain/dagtrain/tensor"
)

func TestForwardIsCachedWithinAnEpoch(t *testing.T) {
	g := New(1)
	x := g.NewVariable(tensor.New(2, 2, []float64{1, -2, 3, -4}))
	drop := g.NewDropout(x, 0.5)

	first, err := g.Forward(drop)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		again, err := g.Forward(drop)
		if err != nil {
			t.Fatal(err)
		}
		if !again.IsApprox(first, 0) {
			t.Fatalf("call %d: forward value changed within the same epoch: got %v, want %v", i, again.Data(), first.Data())
		}
	}
}

func TestRecacheAllowsTheMaskToChange(t *testing.T) {
	g := New(2)
	x := g.NewVariable(tensor.Ones(20, 20))
	drop := g.NewDropout(x, 0.5)

	first, err := g.Forward(drop)
	if err != nil {
		t.Fatal(err)
	}
	g.Recache()
	second, err := g.Forward(drop)
	if err != nil {
		t.Fatal(err)
	}
	if second.IsApprox(first, 0) {
		t.Error("expected a new epoch to redraw the dropout mask")
	}
}
