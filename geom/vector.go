// Package geom holds the math primitives, shape kinds, broad-phase-agnostic
// AABBs, and the narrow-phase manifold generators used by the solver. None
// of it depends on the world/body/fixture handle layer: everything here is
// a pure function of the values passed in.
package geom

import "math"

// Vec2 is a 2-component vector used throughout the engine for positions,
// velocities, normals and impulses.
type Vec2 struct {
	X, Y float64
}

func V2(x, y float64) Vec2 { return Vec2{x, y} }

var Zero2 = Vec2{0, 0}

func (v Vec2) Add(o Vec2) Vec2 { return Vec2{v.X + o.X, v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{v.X - o.X, v.Y - o.Y} }
func (v Vec2) Mul(s float64) Vec2 { return Vec2{v.X * s, v.Y * s} }
func (v Vec2) Neg() Vec2 { return Vec2{-v.X, -v.Y} }

// Dot returns the dot product of two vectors.
func Dot(a, b Vec2) float64 { return a.X*b.X + a.Y*b.Y }

// Cross returns the 2D scalar cross product a x b.
func Cross(a, b Vec2) float64 { return a.X*b.Y - a.Y*b.X }

// CrossVS returns the vector cross product of a and scalar s: a x s.
func CrossVS(a Vec2, s float64) Vec2 { return Vec2{s * a.Y, -s * a.X} }

// CrossSV returns the vector cross product of scalar s and a: s x a.
func CrossSV(s float64, a Vec2) Vec2 { return Vec2{-s * a.Y, s * a.X} }

func (v Vec2) Length() float64 { return math.Sqrt(v.X*v.X + v.Y*v.Y) }
func (v Vec2) LengthSquared() float64 { return v.X*v.X + v.Y*v.Y }

// Normalize returns the unit vector along v and its original length. The
// zero vector normalizes to itself with length 0.
func (v Vec2) Normalize() (Vec2, float64) {
	length := v.Length()
	if length < Epsilon {
		return v, 0
	}
	inv := 1.0 / length
	return Vec2{v.X * inv, v.Y * inv}, length
}

func (v Vec2) IsValid() bool { return IsValid(v.X) && IsValid(v.Y) }

// Skew returns the vector perpendicular to v, rotated 90 degrees CCW.
func (v Vec2) Skew() Vec2 { return Vec2{-v.Y, v.X} }

func Abs2(v Vec2) Vec2 { return Vec2{math.Abs(v.X), math.Abs(v.Y)} }
func Min2(a, b Vec2) Vec2 { return Vec2{math.Min(a.X, b.X), math.Min(a.Y, b.Y)} }
func Max2(a, b Vec2) Vec2 { return Vec2{math.Max(a.X, b.X), math.Max(a.Y, b.Y)} }
func Clamp2(v, low, high Vec2) Vec2 { return Max2(low, Min2(v, high)) }

func Distance(a, b Vec2) float64 { return a.Sub(b).Length() }
func DistanceSquared(a, b Vec2) float64 { d := a.Sub(b); return Dot(d, d) }

// Vec3 backs the 3x3 block solves used by the limit/motor rows of the
// prismatic and revolute joints.
type Vec3 struct {
	X, Y, Z float64
}

func V3(x, y, z float64) Vec3 { return Vec3{x, y, z} }

func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vec3) Mul(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }
func (v Vec3) Neg() Vec3 { return Vec3{-v.X, -v.Y, -v.Z} }

func Dot3(a, b Vec3) float64 { return a.X*b.X + a.Y*b.Y + a.Z*b.Z }

func IsValid(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }
