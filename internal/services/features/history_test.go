package features

import "testing"

func TestRingBufferEviction(t *testing.T) {
	r := newRingBuffer(3)
	for _, v := range []float64{1, 2, 3, 4, 5} {
		r.Push(v)
	}
	if r.Len() != 3 {
		t.Fatalf("len = %d, want 3", r.Len())
	}
	if v, ok := r.At(0); !ok || v != 5 {
		t.Errorf("At(0) = %v, %v", v, ok)
	}
	if v, ok := r.At(2); !ok || v != 3 {
		t.Errorf("At(2) = %v, %v", v, ok)
	}
	if _, ok := r.At(3); ok {
		t.Error("At(3) beyond length must fail")
	}
}

func TestRingBufferLastOrder(t *testing.T) {
	r := newRingBuffer(4)
	for _, v := range []float64{100, 105, 98, 102} {
		r.Push(v)
	}
	got, ok := r.Last(3)
	if !ok {
		t.Fatal("Last(3) failed")
	}
	want := []float64{105, 98, 102}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Last(3) = %v, want %v", got, want)
		}
	}
	if _, ok := r.Last(5); ok {
		t.Error("Last beyond length must fail")
	}
}

func TestHistoryArenaIsolation(t *testing.T) {
	a := newHistoryArena(2)
	a.Push("x", 1)
	a.Push("y", 2)
	if a.buffers["x"].Len() != 1 || a.buffers["y"].Len() != 1 {
		t.Fatal("per-metric buffers must be independent")
	}
	a.Reset()
	if len(a.buffers) != 0 {
		t.Fatal("Reset must drop all buffers")
	}
}
