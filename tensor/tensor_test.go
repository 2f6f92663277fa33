package tensor

import (
	"math"
	"testing"
)

func approxEqual(t *testing.T, got, want float64, tol float64, msg string) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %v, want %v", msg, got, want)
	}
}

func TestAddBroadcast(t *testing.T) {
	x := New(2, 3, []float64{1, 2, 3, 4, 5, 6})
	bias := NewRow([]float64{10, 20, 30})

	got := Add(x, bias)
	want := New(2, 3, []float64{11, 22, 33, 14, 25, 36})
	if !got.IsApprox(want, 1e-9) {
		t.Errorf("Add broadcast: got %v, want %v", got.Data(), want.Data())
	}
}

func TestSumToShapeUnbroadcasts(t *testing.T) {
	grad := Ones(4, 3)
	reduced := SumToShape(grad, 1, 3)
	if reduced.Rows() != 1 || reduced.Cols() != 3 {
		t.Fatalf("SumToShape: got shape %dx%d, want 1x3", reduced.Rows(), reduced.Cols())
	}
	for c := 0; c < 3; c++ {
		approxEqual(t, reduced.At(0, c), 4, 1e-9, "SumToShape element")
	}
}

func TestMatMul(t *testing.T) {
	a := New(2, 3, []float64{1, 2, 3, 4, 5, 6})
	b := New(3, 2, []float64{7, 8, 9, 10, 11, 12})
	got := MatMul(a, b)
	want := New(2, 2, []float64{58, 64, 139, 154})
	if !got.IsApprox(want, 1e-9) {
		t.Errorf("MatMul: got %v, want %v", got.Data(), want.Data())
	}
}

func TestTransposeRoundtrip(t *testing.T) {
	a := New(2, 3, []float64{1, 2, 3, 4, 5, 6})
	got := a.Transpose().Transpose()
	if !got.IsApprox(a, 1e-9) {
		t.Errorf("Transpose twice: got %v, want %v", got.Data(), a.Data())
	}
}

func TestBlockReadWrite(t *testing.T) {
	a := Zeros(4, 4)
	block := New(2, 2, []float64{1, 2, 3, 4})
	a.SetBlock(1, 1, block)
	got := a.Block(1, 1, 2, 2)
	if !got.IsApprox(block, 1e-9) {
		t.Errorf("Block roundtrip: got %v, want %v", got.Data(), block.Data())
	}
}

func TestSumRows(t *testing.T) {
	a := New(3, 2, []float64{1, 2, 3, 4, 5, 6})
	got := a.SumRows()
	want := New(1, 2, []float64{9, 12})
	if !got.IsApprox(want, 1e-9) {
		t.Errorf("SumRows: got %v, want %v", got.Data(), want.Data())
	}
}

func TestIsApproxRequiresSameShape(t *testing.T) {
	a := Zeros(2, 2)
	b := Zeros(2, 3)
	if a.IsApprox(b, 1) {
		t.Error("IsApprox should be false for mismatched shapes")
	}
}

func TestBernoulliMaskMeanNearOne(t *testing.T) {
	rng := NewRNG(1)
	mask := BernoulliMask(100, 500, rng, 0.7)
	sum := mask.Sum().At(0, 0)
	mean := sum / float64(mask.Rows()*mask.Cols())
	approxEqual(t, mean, 1.0, 0.01, "dropout mask mean")
}
