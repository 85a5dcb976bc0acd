package geom

import "math"

// Mat22 is a column-major 2x2 matrix; Ex and Ey are its columns.
type Mat22 struct {
	Ex, Ey Vec2
}

func Mat22FromColumns(ex, ey Vec2) Mat22 { return Mat22{ex, ey} }

func Mat22FromScalars(a11, a12, a21, a22 float64) Mat22 {
	return Mat22{Vec2{a11, a21}, Vec2{a12, a22}}
}

var Identity22 = Mat22{Vec2{1, 0}, Vec2{0, 1}}

// Inverse returns the inverse of m, or the zero matrix if m is singular.
func (m Mat22) Inverse() Mat22 {
	a, b, c, d := m.Ex.X, m.Ey.X, m.Ex.Y, m.Ey.Y
	det := a*d - b*c
	if det != 0 {
		det = 1.0 / det
	}
	return Mat22{Vec2{det * d, -det * c}, Vec2{-det * b, det * a}}
}

// Solve solves m*x = b for x using Cramer's rule.
func (m Mat22) Solve(b Vec2) Vec2 {
	a11, a12, a21, a22 := m.Ex.X, m.Ey.X, m.Ex.Y, m.Ey.Y
	det := a11*a22 - a12*a21
	if det != 0 {
		det = 1.0 / det
	}
	return Vec2{det * (a22*b.X - a12*b.Y), det * (a11*b.Y - a21*b.X)}
}

func MulMV(m Mat22, v Vec2) Vec2 {
	return Vec2{m.Ex.X*v.X + m.Ey.X*v.Y, m.Ex.Y*v.X + m.Ey.Y*v.Y}
}

func MulTMV(m Mat22, v Vec2) Vec2 {
	return Vec2{Dot(v, m.Ex), Dot(v, m.Ey)}
}

func AddMM(a, b Mat22) Mat22 { return Mat22{a.Ex.Add(b.Ex), a.Ey.Add(b.Ey)} }

func MulMM(a, b Mat22) Mat22 { return Mat22{MulMV(a, b.Ex), MulMV(a, b.Ey)} }

func MulTMM(a, b Mat22) Mat22 {
	c1 := Vec2{Dot(a.Ex, b.Ex), Dot(a.Ey, b.Ex)}
	c2 := Vec2{Dot(a.Ex, b.Ey), Dot(a.Ey, b.Ey)}
	return Mat22{c1, c2}
}

func AbsMat22(a Mat22) Mat22 { return Mat22{Abs2(a.Ex), Abs2(a.Ey)} }

// Mat33 is a column-major 3x3 matrix used by the 3-row limit/motor block
// solves in the revolute and prismatic joints.
type Mat33 struct {
	Ex, Ey, Ez Vec3
}

func Mat33FromColumns(ex, ey, ez Vec3) Mat33 { return Mat33{ex, ey, ez} }

func MulM33V3(m Mat33, v Vec3) Vec3 {
	return m.Ex.Mul(v.X).Add(m.Ey.Mul(v.Y)).Add(m.Ez.Mul(v.Z))
}

// MulM33V2 multiplies the leading 2x2 block of m by v, ignoring the third
// row and column.
func MulM33V2(m Mat33, v Vec2) Vec2 {
	return Vec2{m.Ex.X*v.X + m.Ey.X*v.Y, m.Ex.Y*v.X + m.Ey.Y*v.Y}
}

// Solve33 solves m*x = b for x, treating m as a 3x3 system via Cramer's rule.
func (m Mat33) Solve33(b Vec3) Vec3 {
	det := Dot3(m.Ex, cross3(m.Ey, m.Ez))
	if det != 0 {
		det = 1.0 / det
	}
	return Vec3{
		det * Dot3(b, cross3(m.Ey, m.Ez)),
		det * Dot3(m.Ex, cross3(b, m.Ez)),
		det * Dot3(m.Ex, cross3(m.Ey, b)),
	}
}

// Solve22 solves the leading 2x2 block of m for x, ignoring the third row
// and column entirely; used when a joint's angular/limit row is inactive.
func (m Mat33) Solve22(b Vec2) Vec2 {
	a11, a12, a21, a22 := m.Ex.X, m.Ey.X, m.Ex.Y, m.Ey.Y
	det := a11*a22 - a12*a21
	if det != 0 {
		det = 1.0 / det
	}
	return Vec2{det * (a22*b.X - a12*b.Y), det * (a11*b.Y - a21*b.X)}
}

// GetInverse22 extracts and inverts the leading 2x2 block of m into A.
func (m Mat33) GetInverse22(a *Mat33) {
	a11, a12, a21, a22 := m.Ex.X, m.Ey.X, m.Ex.Y, m.Ey.Y
	det := a11*a22 - a12*a21
	if det != 0 {
		det = 1.0 / det
	}
	a.Ex.X, a.Ey.X, a.Ez.X = det*a22, -det*a12, 0
	a.Ex.Y, a.Ey.Y, a.Ez.Y = -det*a21, det*a11, 0
	a.Ex.Z, a.Ey.Z, a.Ez.Z = 0, 0, 0
}

// GetSymInverse33 inverts m under the assumption that it's symmetric,
// storing the result in a; used by solvers whose mass matrix degenerates
// to this shape (weld joint with no soft angular constraint).
func (m Mat33) GetSymInverse33(a *Mat33) {
	det := Dot3(m.Ex, cross3(m.Ey, m.Ez))
	if det != 0 {
		det = 1.0 / det
	}

	a11, a12, a13 := m.Ex.X, m.Ey.X, m.Ez.X
	a22, a23 := m.Ey.Y, m.Ez.Y
	a33 := m.Ez.Z

	a.Ex.X = det * (a22*a33 - a23*a23)
	a.Ex.Y = det * (a13*a23 - a12*a33)
	a.Ex.Z = det * (a12*a23 - a13*a22)

	a.Ey.X = a.Ex.Y
	a.Ey.Y = det * (a11*a33 - a13*a13)
	a.Ey.Z = det * (a13*a12 - a11*a23)

	a.Ez.X = a.Ex.Z
	a.Ez.Y = a.Ey.Z
	a.Ez.Z = det * (a11*a22 - a12*a12)
}

func cross3(a, b Vec3) Vec3 {
	return Vec3{a.Y*b.Z - a.Z*b.Y, a.Z*b.X - a.X*b.Z, a.X*b.Y - a.Y*b.X}
}

func Abs(x float64) float64 { return math.Abs(x) }
