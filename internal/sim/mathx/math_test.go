package mathx

import "testing"

func TestFloorDivMod(t *testing.T) {
	cases := []struct{ a, b, q, m int }{
		{17, 16, 1, 1},
		{-1, 16, -1, 15},
		{-16, 16, -1, 0},
		{-17, 16, -2, 15},
		{0, 16, 0, 0},
	}
	for _, c := range cases {
		if got := FloorDiv(c.a, c.b); got != c.q {
			t.Fatalf("FloorDiv(%d,%d)=%d want %d", c.a, c.b, got, c.q)
		}
		if got := Mod(c.a, c.b); got != c.m {
			t.Fatalf("Mod(%d,%d)=%d want %d", c.a, c.b, got, c.m)
		}
	}
}

func TestRand_DeterministicAndInRange(t *testing.T) {
	a, b := NewRand(9), NewRand(9)
	for i := 0; i < 1000; i++ {
		x, y := a.Float64(), b.Float64()
		if x != y {
			t.Fatalf("streams diverged at %d", i)
		}
		if x < 0 || x >= 1 {
			t.Fatalf("Float64 out of range: %v", x)
		}
	}
	resumed := &Rand{State: a.State}
	if resumed.Uint64() != a.Uint64() {
		t.Fatalf("resumed stream differs")
	}
}

func TestHash3_Spreads(t *testing.T) {
	if Hash3(1, 0, 0, 0) == Hash3(1, 0, 1, 0) || Hash3(1, 0, 0, 0) == Hash3(2, 0, 0, 0) {
		t.Fatalf("hash collision on neighbors")
	}
}
