package training

import (
	"bytes"
	"testing"

	"github.com/dagtrain/dagtrain/codec"
	"github.com/dagtrain/dagtrain/graph"
	"github.com/dagtrain/dagtrain/tensor"
)

func newTestBase() *Base {
	g := graph.New(1)
	g.NewVariable(tensor.New(1, 2, []float64{1, 2}))
	g.NewVariable(tensor.New(2, 2, []float64{1, 0, 0, 1}))
	return NewBase(g, 2)
}

func TestGetSetWeightsRoundTrip(t *testing.T) {
	b := newTestBase()
	buf, err := b.GetWeights()
	if err != nil {
		t.Fatalf("GetWeights: %v", err)
	}

	other := newTestBase()
	// zero out other's variables so SetWeights is the only source of truth
	for _, h := range other.Curr.Variables() {
		v, err := other.Curr.Forward(h)
		if err != nil {
			t.Fatal(err)
		}
		other.Curr.SetVariable(h, tensor.Zeros(v.Rows(), v.Cols()))
	}
	if err := other.SetWeights(buf); err != nil {
		t.Fatalf("SetWeights: %v", err)
	}
	for i, h := range other.Curr.Variables() {
		want := b.Curr.Value(b.Curr.Variables()[i])
		got := other.Curr.Value(h)
		if !got.IsApprox(want, 1e-12) {
			t.Errorf("variable %d: got %v, want %v", i, got.Data(), want.Data())
		}
	}
}

func TestGetUpdateZeroRightAfterSetWeights(t *testing.T) {
	b := newTestBase()
	buf, err := b.GetWeights()
	if err != nil {
		t.Fatal(err)
	}
	if err := b.SetWeights(buf); err != nil {
		t.Fatal(err)
	}
	update, err := b.GetUpdate()
	if err != nil {
		t.Fatal(err)
	}
	for _, delta := range decodeTensors(t, update) {
		for _, v := range delta.Data() {
			if v != 0 {
				t.Errorf("expected all-zero update right after SetWeights, got %v", delta.Data())
			}
		}
	}
}

func TestUpdWeightsAppliesDelta(t *testing.T) {
	b := newTestBase()
	buf, err := b.GetWeights()
	if err != nil {
		t.Fatal(err)
	}
	if err := b.SetWeights(buf); err != nil {
		t.Fatal(err)
	}

	// Mutate curr directly to simulate a local optimizer step, then check
	// GetUpdate reports exactly that delta.
	h0 := b.Curr.Variables()[0]
	orig := b.Curr.Value(h0)
	moved := tensor.New(orig.Rows(), orig.Cols(), []float64{orig.At(0, 0) + 1, orig.At(0, 1) - 1})
	b.Curr.SetVariable(h0, moved)
	b.Curr.Recache()

	delta, err := b.GetUpdate()
	if err != nil {
		t.Fatal(err)
	}

	fresh := newTestBase()
	if err := fresh.SetWeights(buf); err != nil {
		t.Fatal(err)
	}
	if err := fresh.UpdWeights(delta); err != nil {
		t.Fatal(err)
	}
	got := fresh.Curr.Value(fresh.Curr.Variables()[0])
	if !got.IsApprox(moved, 1e-9) {
		t.Errorf("after UpdWeights: got %v, want %v", got.Data(), moved.Data())
	}
}

func decodeTensors(t *testing.T, buf []byte) []*tensor.Tensor {
	t.Helper()
	r := bytes.NewReader(buf)
	n, err := codec.ReadInt(r)
	if err != nil {
		t.Fatalf("decodeTensors: %v", err)
	}
	out := make([]*tensor.Tensor, n)
	for i := range out {
		tt, err := codec.ReadTensor(r)
		if err != nil {
			t.Fatalf("decodeTensors: %v", err)
		}
		out[i] = tt
	}
	return out
}
