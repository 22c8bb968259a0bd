package utils

import (
	"math"
	"testing"
)

func TestNormalizeL2(t *testing.T) {
	v := []float32{3, 4}
	NormalizeL2(v)
	if math.Abs(float64(v[0])-0.6) > 1e-6 || math.Abs(float64(v[1])-0.8) > 1e-6 {
		t.Errorf("got %v", v)
	}
	zero := []float32{0, 0}
	NormalizeL2(zero)
	if zero[0] != 0 || zero[1] != 0 {
		t.Errorf("zero vector changed: %v", zero)
	}
}

func TestClamp01AndRound(t *testing.T) {
	if Clamp01(1.5) != 1 || Clamp01(-0.2) != 0 || Clamp01(0.3) != 0.3 {
		t.Error("Clamp01 out of range")
	}
	if got := Round(0.25+0.15, 9); got != 0.4 {
		t.Errorf("Round = %v, want 0.4", got)
	}
}
