package core

import (
	"math"
	"testing"
)

func TestVec2(t *testing.T) {
	v := V(3, 4)

	if got := v.Len(); got != 5 {
		t.Errorf("Len() = %v, expected 5", got)
	}
	if got := v.Add(V(1, -1)); got != V(4, 3) {
		t.Errorf("Add() = %+v", got)
	}
	if got := v.Scale(0.5); got != V(1.5, 2) {
		t.Errorf("Scale() = %+v", got)
	}
	if v != V(3, 4) {
		t.Error("Vec2 operations must not mutate the receiver")
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		name        string
		val, lo, hi int
		expected    int
	}{
		{"within range", 5, 0, 10, 5},
		{"below min", -5, 0, 10, 0},
		{"above max", 15, 0, 10, 10},
		{"at min", 0, 0, 10, 0},
		{"at max", 10, 0, 10, 10},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Clamp(tc.val, tc.lo, tc.hi); got != tc.expected {
				t.Errorf("Clamp(%d, %d, %d) = %d, expected %d", tc.val, tc.lo, tc.hi, got, tc.expected)
			}
		})
	}
}

func TestClampF(t *testing.T) {
	tests := []struct {
		name        string
		val, lo, hi float64
		expected    float64
	}{
		{"within range", 0.5, 0, 1, 0.5},
		{"below min", -0.1, 0, 1, 0},
		{"above max", 1.2, 0, 1, 1},
		{"negative infinity", math.Inf(-1), 0, 1, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClampF(tc.val, tc.lo, tc.hi); got != tc.expected {
				t.Errorf("ClampF(%v, %v, %v) = %v, expected %v", tc.val, tc.lo, tc.hi, got, tc.expected)
			}
		})
	}
}

func TestRectEdges(t *testing.T) {
	r := NewRect(2, 3, 10, 5)
	if r.Right() != 12 {
		t.Errorf("Right() = %d, expected 12", r.Right())
	}
	if r.Bottom() != 8 {
		t.Errorf("Bottom() = %d, expected 8", r.Bottom())
	}
}
