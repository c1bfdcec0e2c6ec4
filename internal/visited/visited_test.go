package visited

import "testing"

func TestVisitAndReset(t *testing.T) {
	v := New(1000)

	for _, id := range []uint32{0, 63, 64, 999} {
		if v.Visited(id) {
			t.Fatalf("id %d visited before Visit", id)
		}
		v.Visit(id)
		if !v.Visited(id) {
			t.Fatalf("id %d not visited after Visit", id)
		}
	}

	// Double visit must not duplicate dirty entries.
	v.Visit(63)
	if len(v.dirty) != 4 {
		t.Fatalf("dirty len = %d, want 4", len(v.dirty))
	}

	v.Reset()
	for _, id := range []uint32{0, 63, 64, 999} {
		if v.Visited(id) {
			t.Fatalf("id %d still visited after Reset", id)
		}
	}
}

func TestCapacityRounding(t *testing.T) {
	if got := New(1).Capacity(); got != 64 {
		t.Fatalf("Capacity = %d, want 64", got)
	}
	if got := New(65).Capacity(); got != 128 {
		t.Fatalf("Capacity = %d, want 128", got)
	}
}
