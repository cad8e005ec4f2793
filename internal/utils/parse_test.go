package utils

import "testing"

func TestAtoiDefault(t *testing.T) {
	if got := AtoiDefault("42", 7); got != 42 {
		t.Fatalf("valid = %d", got)
	}
	if got := AtoiDefault("", 7); got != 7 {
		t.Fatalf("empty = %d", got)
	}
	if got := AtoiDefault("nope", 7); got != 7 {
		t.Fatalf("garbage = %d", got)
	}
}

func TestParseFloatDefault(t *testing.T) {
	if got := ParseFloatDefault("28.64", 0); got != 28.64 {
		t.Fatalf("valid = %v", got)
	}
	if got := ParseFloatDefault("x", 1.5); got != 1.5 {
		t.Fatalf("garbage = %v", got)
	}
}

func TestClamp01(t *testing.T) {
	cases := map[float64]float64{-0.5: 0, 0: 0, 0.42: 0.42, 1: 1, 1.7: 1}
	for in, want := range cases {
		if got := Clamp01(in); got != want {
			t.Errorf("Clamp01(%v) = %v want %v", in, got, want)
		}
	}
}
