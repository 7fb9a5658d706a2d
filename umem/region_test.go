package umem

import "testing"

func TestAllocSize(t *testing.T) {
	r := Alloc(128)
	if r.Size() != 128 {
		t.Errorf("Size() = %d, want 128", r.Size())
	}
	if len(r.Bytes()) != 128 {
		t.Errorf("len(Bytes()) = %d, want 128", len(r.Bytes()))
	}
}

func TestResizeGrowPreservesPrefix(t *testing.T) {
	r := Alloc(4)
	copy(r.Bytes(), []byte{1, 2, 3, 4})
	if err := r.Resize(8); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if r.Size() != 8 {
		t.Fatalf("Size() = %d, want 8", r.Size())
	}
	want := []byte{1, 2, 3, 4, 0, 0, 0, 0}
	got := r.Bytes()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("byte %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestResizeShrink(t *testing.T) {
	r := Alloc(8)
	copy(r.Bytes(), []byte{1, 2, 3, 4, 5, 6, 7, 8})
	if err := r.Resize(3); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if r.Size() != 3 {
		t.Fatalf("Size() = %d, want 3", r.Size())
	}
	want := []byte{1, 2, 3}
	got := r.Bytes()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("byte %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestResizeNegative(t *testing.T) {
	r := Alloc(4)
	if err := r.Resize(-1); err == nil {
		t.Error("expected error for negative resize")
	}
}

func TestSharedRegionRefcount(t *testing.T) {
	s := NewShared(16)
	if !s.Own() {
		t.Fatal("fresh shared region should be uniquely owned")
	}
	s2 := s.Acquire()
	if s.Own() || s2.Own() {
		t.Fatal("after Acquire, region should not be uniquely owned")
	}
	s2.Release()
	if !s.Own() {
		t.Fatal("after Release, region should be uniquely owned again")
	}
	s.Release()
}
