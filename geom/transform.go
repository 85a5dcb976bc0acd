package geom

import "math"

const (
	Epsilon = 1.1920928955078125e-07
	Pi      = math.Pi
)

// Rot stores a rotation as a (sin, cos) pair rather than a bare angle, the
// way every rotation is represented once it reaches the solver.
type Rot struct {
	S, C float64
}

func RotIdentity() Rot { return Rot{0, 1} }

// RotFromAngle builds a rotation from an angle in radians.
func RotFromAngle(angle float64) Rot {
	return Rot{math.Sin(angle), math.Cos(angle)}
}

func (r Rot) Angle() float64 { return math.Atan2(r.S, r.C) }

func (r Rot) XAxis() Vec2 { return Vec2{r.C, r.S} }
func (r Rot) YAxis() Vec2 { return Vec2{-r.S, r.C} }

// MulRot composes q then r: q * r.
func MulRot(q, r Rot) Rot {
	return Rot{q.S*r.C + q.C*r.S, q.C*r.C - q.S*r.S}
}

// MulTRot computes the relative rotation q^T * r.
func MulTRot(q, r Rot) Rot {
	return Rot{q.C*r.S - q.S*r.C, q.C*r.C + q.S*r.S}
}

func MulRotVec2(q Rot, v Vec2) Vec2 {
	return Vec2{q.C*v.X - q.S*v.Y, q.S*v.X + q.C*v.Y}
}

func MulTRotVec2(q Rot, v Vec2) Vec2 {
	return Vec2{q.C*v.X + q.S*v.Y, -q.S*v.X + q.C*v.Y}
}

// NormalizeAngle folds an angle in radians into (-pi, +pi].
func NormalizeAngle(theta float64) float64 {
	twoPi := 2 * Pi
	theta = math.Mod(theta, twoPi)
	if theta <= -Pi {
		theta += twoPi
	} else if theta > Pi {
		theta -= twoPi
	}
	return theta
}

// Transform is a rigid transform: a rotation followed by a translation.
type Transform struct {
	P Vec2
	Q Rot
}

func TransformIdentity() Transform { return Transform{Zero2, RotIdentity()} }

func NewTransform(p Vec2, angle float64) Transform {
	return Transform{p, RotFromAngle(angle)}
}

// Apply maps a point from the transform's local frame into world space.
func Apply(t Transform, v Vec2) Vec2 {
	return Vec2{
		(t.Q.C*v.X - t.Q.S*v.Y) + t.P.X,
		(t.Q.S*v.X + t.Q.C*v.Y) + t.P.Y,
	}
}

// ApplyInverse maps a world-space point into the transform's local frame.
func ApplyInverse(t Transform, v Vec2) Vec2 {
	px, py := v.X-t.P.X, v.Y-t.P.Y
	return Vec2{t.Q.C*px + t.Q.S*py, -t.Q.S*px + t.Q.C*py}
}

func MulTransform(a, b Transform) Transform {
	q := MulRot(a.Q, b.Q)
	p := MulRotVec2(a.Q, b.P).Add(a.P)
	return Transform{p, q}
}

func MulTTransform(a, b Transform) Transform {
	q := MulTRot(a.Q, b.Q)
	p := MulTRotVec2(a.Q, b.P.Sub(a.P))
	return Transform{p, q}
}

// Sweep describes the motion of a body's center of mass across a step: the
// pose at alpha0 (the start of the currently unresolved TOI window) and the
// pose at the end of the step, plus the local offset from the body origin
// to the center of mass.
type Sweep struct {
	LocalCenter Vec2
	C0, C       Vec2
	A0, A       float64
	Alpha0      float64
}

// GetTransform interpolates the sweep to fraction beta in [0,1] and returns
// the resulting body-origin transform (i.e. undoes the local-center offset).
func (s Sweep) GetTransform(beta float64) Transform {
	var xf Transform
	xf.P = s.C0.Mul(1 - beta).Add(s.C.Mul(beta))
	angle := (1-beta)*s.A0 + beta*s.A
	xf.Q = RotFromAngle(angle)
	xf.P = xf.P.Sub(MulRotVec2(xf.Q, s.LocalCenter))
	return xf
}

// Advance moves the start of the sweep's TOI window forward to alpha,
// interpolating c0/a0 in place; c/a (the end pose) is untouched.
func (s *Sweep) Advance(alpha float64) {
	if s.Alpha0 >= alpha {
		return
	}
	beta := (alpha - s.Alpha0) / (1 - s.Alpha0)
	s.C0 = s.C0.Mul(1 - beta).Add(s.C.Mul(beta))
	s.A0 = (1-beta)*s.A0 + beta*s.A
	s.Alpha0 = alpha
}

// Normalize shifts A0 and A by the same multiple of 2*pi so that A0 lands
// in [0, 2*pi), preserving A - A0.
func (s *Sweep) Normalize() {
	d := 2 * Pi * math.Floor(s.A0/(2*Pi))
	s.A0 -= d
	s.A -= d
}
