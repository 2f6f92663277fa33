package graph

import (
	"testing"

	"github.com/dagtrain/dagtrain/tensor"
)

func TestConv2DSingleChannelForward(t *testing.T) {
	g := New(1)
	// input [[1,2,3],[4,5,6]] flattened channel-major row-major (1 channel).
	x := g.NewVariable(tensor.NewRow([]float64{1, 2, 3, 4, 5, 6}))
	// kernel [[1,2],[3,4]].
	k := g.NewVariable(tensor.New(2, 2, []float64{1, 2, 3, 4}))

	y := g.NewConv2D(x, k, 2, 3, 1, 1, 2, 2, 1, 1, 2)
	out, err := g.Forward(y)
	if err != nil {
		t.Fatal(err)
	}

	want := []float64{20, 36, 15, 4, 7, 2}
	if len(out.Data()) != len(want) {
		t.Fatalf("output length: got %d, want %d", len(out.Data()), len(want))
	}
	for i, w := range want {
		if out.Data()[i] != w {
			t.Errorf("element %d: got %v, want %v", i, out.Data()[i], w)
		}
	}
}
