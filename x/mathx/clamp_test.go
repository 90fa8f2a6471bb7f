package mathx

import "testing"

func TestClamp(t *testing.T) {
	if got := Clamp(5, 0, 10); got != 5 {
		t.Fatalf("Clamp(5,0,10) = %d", got)
	}
	if got := Clamp(-3, 0, 10); got != 0 {
		t.Fatalf("Clamp(-3,0,10) = %d", got)
	}
	if got := Clamp(42, 0, 10); got != 10 {
		t.Fatalf("Clamp(42,0,10) = %d", got)
	}
	// Swapped bounds behave the same.
	if got := Clamp(42, 10, 0); got != 10 {
		t.Fatalf("Clamp(42,10,0) = %d", got)
	}
}

func TestBetween(t *testing.T) {
	if !Between(3.5, 1.0, 5.0) {
		t.Fatal("3.5 should be between 1 and 5")
	}
	if Between(9, 1, 5) {
		t.Fatal("9 is not between 1 and 5")
	}
	if !Between(3, 5, 1) {
		t.Fatal("swapped bounds should still match")
	}
}
