package geom

import "math"

// TestPoint reports whether world point p lies inside the shape placed at
// xf. Only circle and polygon support containment; edges and chains
// always report false, the way the teacher's edge/chain shapes do.
func (s Shape) TestPoint(xf Transform, p Vec2) bool {
	switch s.Kind {
	case KindCircle:
		center := Apply(xf, s.Circle.Center)
		d := p.Sub(center)
		return Dot(d, d) <= s.Circle.R*s.Circle.R
	case KindPolygon:
		local := MulTRotVec2(xf.Q, p.Sub(xf.P))
		for i := 0; i < s.Poly.Count; i++ {
			if Dot(s.Poly.Normals[i], local.Sub(s.Poly.Vertices[i])) > 0 {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// ComputeAABB computes the AABB of child childIndex of the shape at xf,
// inflated by the shape's vertex radius.
func (s Shape) ComputeAABB(xf Transform, childIndex int) AABB {
	switch s.Kind {
	case KindCircle:
		p := Apply(xf, s.Circle.Center)
		r := Vec2{s.Radius, s.Radius}
		return AABB{p.Sub(r), p.Add(r)}
	case KindPolygon:
		lower := Apply(xf, s.Poly.Vertices[0])
		upper := lower
		for i := 1; i < s.Poly.Count; i++ {
			v := Apply(xf, s.Poly.Vertices[i])
			lower = Min2(lower, v)
			upper = Max2(upper, v)
		}
		r := Vec2{s.Radius, s.Radius}
		return AABB{lower.Sub(r), upper.Add(r)}
	case KindEdge:
		return edgeAABB(s.Edge, xf, s.Radius)
	case KindChain:
		return edgeAABB(s.Chain.EdgeChild(childIndex), xf, s.Radius)
	}
	return AABB{}
}

func edgeAABB(e Edge, xf Transform, radius float64) AABB {
	v1 := Apply(xf, e.V1)
	v2 := Apply(xf, e.V2)
	lower := Min2(v1, v2)
	upper := Max2(v1, v2)
	r := Vec2{radius, radius}
	return AABB{lower.Sub(r), upper.Add(r)}
}

// ComputeMass computes the density-scaled mass, centroid and inertia about
// the shape's local origin. Edges and chains are massless.
func (s Shape) ComputeMass(density float64) MassData {
	switch s.Kind {
	case KindCircle:
		mass := density * Pi * s.Circle.R * s.Circle.R
		return MassData{
			Mass:   mass,
			Center: s.Circle.Center,
			I:      mass * (0.5*s.Circle.R*s.Circle.R + Dot(s.Circle.Center, s.Circle.Center)),
		}
	case KindPolygon:
		return polygonMass(s.Poly, density)
	default:
		var center Vec2
		if s.Kind == KindEdge {
			center = s.Edge.V1.Add(s.Edge.V2).Mul(0.5)
		}
		return MassData{Center: center}
	}
}

func polygonMass(poly Polygon, density float64) MassData {
	center := Zero2
	area := 0.0
	I := 0.0
	s := Zero2
	for i := 0; i < poly.Count; i++ {
		s = s.Add(poly.Vertices[i])
	}
	s = s.Mul(1.0 / float64(poly.Count))

	const inv3 = 1.0 / 3.0
	for i := 0; i < poly.Count; i++ {
		e1 := poly.Vertices[i].Sub(s)
		var e2 Vec2
		if i+1 < poly.Count {
			e2 = poly.Vertices[i+1].Sub(s)
		} else {
			e2 = poly.Vertices[0].Sub(s)
		}
		d := Cross(e1, e2)
		triArea := 0.5 * d
		area += triArea
		center = center.Add(e1.Add(e2).Mul(triArea * inv3))

		intx2 := e1.X*e1.X + e2.X*e1.X + e2.X*e2.X
		inty2 := e1.Y*e1.Y + e2.Y*e1.Y + e2.Y*e2.Y
		I += 0.25 * inv3 * d * (intx2 + inty2)
	}

	mass := density * area
	if area > Epsilon {
		center = center.Mul(1.0 / area)
	}
	md := MassData{Mass: mass, Center: center.Add(s), I: density * I}
	md.I += md.Mass * (Dot(md.Center, md.Center) - Dot(center, center))
	return md
}

// RayCast casts the ray described by input against child childIndex of the
// shape, placed at transform xf.
func (s Shape) RayCast(input RayCastInput, xf Transform, childIndex int) (RayCastOutput, bool) {
	switch s.Kind {
	case KindCircle:
		return rayCastCircle(s.Circle, s.Radius, input, xf)
	case KindPolygon:
		return rayCastPolygon(s.Poly, input, xf)
	case KindEdge:
		return rayCastEdge(s.Edge, input, xf)
	case KindChain:
		return rayCastEdge(s.Chain.EdgeChild(childIndex), input, xf)
	}
	return RayCastOutput{}, false
}

func rayCastCircle(c Circle, radius float64, input RayCastInput, xf Transform) (RayCastOutput, bool) {
	position := Apply(xf, c.Center)
	s := input.P1.Sub(position)
	b := Dot(s, s) - radius*radius

	r := input.P2.Sub(input.P1)
	cc := Dot(s, r)
	rr := Dot(r, r)
	sigma := cc*cc - rr*b

	if sigma < 0 || rr < Epsilon {
		return RayCastOutput{}, false
	}

	a := -(cc + math.Sqrt(sigma))
	if 0 <= a && a <= input.MaxFraction*rr {
		a /= rr
		normal := s.Add(r.Mul(a))
		normal, _ = normal.Normalize()
		return RayCastOutput{Fraction: a, Normal: normal}, true
	}
	return RayCastOutput{}, false
}

func rayCastPolygon(poly Polygon, input RayCastInput, xf Transform) (RayCastOutput, bool) {
	p1 := MulTRotVec2(xf.Q, input.P1.Sub(xf.P))
	p2 := MulTRotVec2(xf.Q, input.P2.Sub(xf.P))
	d := p2.Sub(p1)

	lower, upper := 0.0, input.MaxFraction
	index := -1

	for i := 0; i < poly.Count; i++ {
		numerator := Dot(poly.Normals[i], poly.Vertices[i].Sub(p1))
		denominator := Dot(poly.Normals[i], d)

		if denominator == 0 {
			if numerator < 0 {
				return RayCastOutput{}, false
			}
		} else {
			if denominator < 0 && numerator < lower*denominator {
				lower = numerator / denominator
				index = i
			} else if denominator > 0 && numerator < upper*denominator {
				upper = numerator / denominator
			}
		}
		if upper < lower {
			return RayCastOutput{}, false
		}
	}

	if index >= 0 {
		return RayCastOutput{Fraction: lower, Normal: MulRotVec2(xf.Q, poly.Normals[index])}, true
	}
	return RayCastOutput{}, false
}

func rayCastEdge(e Edge, input RayCastInput, xf Transform) (RayCastOutput, bool) {
	p1 := MulTRotVec2(xf.Q, input.P1.Sub(xf.P))
	p2 := MulTRotVec2(xf.Q, input.P2.Sub(xf.P))
	d := p2.Sub(p1)

	v1, v2 := e.V1, e.V2
	r := v2.Sub(v1)
	normal := Vec2{r.Y, -r.X}
	normal, _ = normal.Normalize()

	numerator := Dot(normal, v1.Sub(p1))
	denominator := Dot(normal, d)
	if denominator == 0 {
		return RayCastOutput{}, false
	}

	t := numerator / denominator
	if t < 0 || input.MaxFraction < t {
		return RayCastOutput{}, false
	}

	q := p1.Add(d.Mul(t))
	rr := Dot(r, r)
	if rr == 0 {
		return RayCastOutput{}, false
	}
	s := Dot(q.Sub(v1), r) / rr
	if s < 0 || s > 1 {
		return RayCastOutput{}, false
	}

	out := RayCastOutput{Fraction: t}
	if numerator > 0 {
		out.Normal = MulRotVec2(xf.Q, normal).Neg()
	} else {
		out.Normal = MulRotVec2(xf.Q, normal)
	}
	return out, true
}
