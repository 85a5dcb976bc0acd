package geom

// AABB is an axis-aligned bounding box.
type AABB struct {
	LowerBound, UpperBound Vec2
}

func (a AABB) IsValid() bool {
	d := a.UpperBound.Sub(a.LowerBound)
	valid := d.X >= 0 && d.Y >= 0
	return valid && a.LowerBound.IsValid() && a.UpperBound.IsValid()
}

func (a AABB) Center() Vec2 { return a.LowerBound.Add(a.UpperBound).Mul(0.5) }

func (a AABB) Extents() Vec2 { return a.UpperBound.Sub(a.LowerBound).Mul(0.5) }

func (a AABB) Perimeter() float64 {
	wx := a.UpperBound.X - a.LowerBound.X
	wy := a.UpperBound.Y - a.LowerBound.Y
	return 2 * (wx + wy)
}

// Combine returns the smallest AABB containing both a and b.
func Combine(a, b AABB) AABB {
	return AABB{Min2(a.LowerBound, b.LowerBound), Max2(a.UpperBound, b.UpperBound)}
}

// Contains reports whether a fully contains b.
func Contains(a, b AABB) bool {
	return a.LowerBound.X <= b.LowerBound.X && a.LowerBound.Y <= b.LowerBound.Y &&
		b.UpperBound.X <= a.UpperBound.X && b.UpperBound.Y <= a.UpperBound.Y
}

// Overlap reports whether two AABBs intersect, including touching edges.
func Overlap(a, b AABB) bool {
	d1 := b.LowerBound.Sub(a.UpperBound)
	d2 := a.LowerBound.Sub(b.UpperBound)
	if d1.X > 0 || d1.Y > 0 {
		return false
	}
	if d2.X > 0 || d2.Y > 0 {
		return false
	}
	return true
}

// RayCastInput is a segment from P1 to P2, clipped to fractions in
// [0, MaxFraction].
type RayCastInput struct {
	P1, P2      Vec2
	MaxFraction float64
}

// RayCastOutput reports where a ray hit, as a fraction along P1->P2 and the
// surface normal at that point.
type RayCastOutput struct {
	Normal   Vec2
	Fraction float64
}

// RayCast performs a slab test of the segment in input against a.
func (a AABB) RayCast(input RayCastInput) (RayCastOutput, bool) {
	tmin := -MaxFloat
	tmax := MaxFloat

	p := input.P1
	d := input.P2.Sub(input.P1)
	absD := Abs2(d)

	var normal Vec2
	for i := 0; i < 2; i++ {
		var pi, di, absDi, lower, upper float64
		if i == 0 {
			pi, di, absDi, lower, upper = p.X, d.X, absD.X, a.LowerBound.X, a.UpperBound.X
		} else {
			pi, di, absDi, lower, upper = p.Y, d.Y, absD.Y, a.LowerBound.Y, a.UpperBound.Y
		}

		if absDi < Epsilon {
			if pi < lower || upper < pi {
				return RayCastOutput{}, false
			}
			continue
		}

		inv := 1.0 / di
		t1 := (lower - pi) * inv
		t2 := (upper - pi) * inv
		s := -1.0
		if t1 > t2 {
			t1, t2 = t2, t1
			s = 1.0
		}
		if t1 > tmin {
			if i == 0 {
				normal = Vec2{s, 0}
			} else {
				normal = Vec2{0, s}
			}
			tmin = t1
		}
		tmax = min(tmax, t2)
		if tmin > tmax {
			return RayCastOutput{}, false
		}
	}

	if tmin < 0 || input.MaxFraction < tmin {
		return RayCastOutput{}, false
	}
	return RayCastOutput{Normal: normal, Fraction: tmin}, true
}

const MaxFloat = 1.7976931348623157e+308

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
