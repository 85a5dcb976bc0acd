package geom

import (
	"math"
	"testing"
)

func TestApplyInverseRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		xf   Transform
		p    Vec2
	}{
		{"identity", TransformIdentity(), Vec2{3, 4}},
		{"pure translation", NewTransform(Vec2{5, -2}, 0), Vec2{1, 1}},
		{"pure rotation", NewTransform(Vec2{0, 0}, Pi/3), Vec2{2, -1}},
		{"rotation and translation", NewTransform(Vec2{-1.5, 2.25}, 1.1), Vec2{0.5, 0.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Apply(tt.xf, ApplyInverse(tt.xf, tt.p))
			if Distance(got, tt.p) > 1e-5 {
				t.Errorf("round trip = %v, want %v", got, tt.p)
			}
		})
	}
}

func TestNormalizeAngleRange(t *testing.T) {
	tests := []float64{0, Pi, -Pi, 2 * Pi, -2 * Pi, 7, -7, 0.001, Pi - 1e-9}
	for _, theta := range tests {
		got := NormalizeAngle(theta)
		if got <= -Pi || got > Pi {
			t.Errorf("NormalizeAngle(%v) = %v, want in (-pi, +pi]", theta, got)
		}
	}
}

func TestNormalizeAngleInvariantUnderTwoPiShift(t *testing.T) {
	theta := 1.234
	base := NormalizeAngle(theta)
	for k := -3; k <= 3; k++ {
		got := NormalizeAngle(theta + float64(k)*2*Pi)
		if math.Abs(got-base) > 1e-9 {
			t.Errorf("k=%d: NormalizeAngle(theta+k*2pi) = %v, want %v", k, got, base)
		}
	}
}

func TestMulTTransformIsInverseOfMulTransform(t *testing.T) {
	a := NewTransform(Vec2{1, 2}, 0.4)
	b := NewTransform(Vec2{-3, 1}, -0.9)

	composed := MulTransform(a, b)
	recovered := MulTTransform(a, composed)

	if Distance(recovered.P, b.P) > 1e-9 {
		t.Errorf("recovered.P = %v, want %v", recovered.P, b.P)
	}
	if math.Abs(recovered.Q.Angle()-b.Q.Angle()) > 1e-9 {
		t.Errorf("recovered angle = %v, want %v", recovered.Q.Angle(), b.Q.Angle())
	}
}

func TestSweepGetTransformInterpolatesEndpoints(t *testing.T) {
	s := Sweep{
		C0: Vec2{0, 0}, C: Vec2{10, 0},
		A0: 0, A: Pi / 2,
	}

	x0 := s.GetTransform(0)
	if Distance(x0.P, s.C0) > 1e-9 {
		t.Errorf("GetTransform(0).P = %v, want %v", x0.P, s.C0)
	}

	x1 := s.GetTransform(1)
	if Distance(x1.P, s.C) > 1e-9 {
		t.Errorf("GetTransform(1).P = %v, want %v", x1.P, s.C)
	}
}

func TestSweepAdvanceMovesAlpha0Forward(t *testing.T) {
	s := Sweep{C0: Vec2{0, 0}, C: Vec2{10, 0}, A0: 0, A: 0, Alpha0: 0}
	s.Advance(0.5)

	if s.Alpha0 != 0.5 {
		t.Fatalf("Alpha0 = %v, want 0.5", s.Alpha0)
	}
	if Distance(s.C0, Vec2{5, 0}) > 1e-9 {
		t.Errorf("C0 = %v, want (5,0)", s.C0)
	}
	if Distance(s.C, Vec2{10, 0}) > 1e-9 {
		t.Errorf("C should be untouched, got %v", s.C)
	}

	// Advancing to an earlier or equal alpha is a no-op.
	before := s
	s.Advance(0.5)
	if s != before {
		t.Errorf("Advance to the same alpha mutated the sweep")
	}
}
