package geom

// CollideCircles produces the (at most one point) manifold between two
// circles, per spec 4.2's circle-circle contract.
func CollideCircles(circleA Circle, radiusA float64, xfA Transform, circleB Circle, radiusB float64, xfB Transform) Manifold {
	var m Manifold

	pA := Apply(xfA, circleA.Center)
	pB := Apply(xfB, circleB.Center)

	d := pB.Sub(pA)
	distSqr := Dot(d, d)
	radius := radiusA + radiusB
	if distSqr > radius*radius {
		return m
	}

	m.Type = ManifoldCircles
	m.LocalPoint = circleA.Center
	m.PointCount = 1
	m.Points[0].LocalPoint = circleB.Center
	m.Points[0].ID = ContactID{}
	return m
}

// CollidePolygonAndCircle finds the polygon face of maximum signed
// separation against the circle center, per spec 4.2.
func CollidePolygonAndCircle(polyA Polygon, radiusA float64, xfA Transform, circleB Circle, radiusB float64, xfB Transform) Manifold {
	var m Manifold

	c := Apply(xfB, circleB.Center)
	cLocal := ApplyInverse(xfA, c)

	normalIndex := 0
	separation := -MaxFloat
	radius := radiusA + radiusB
	count := polyA.Count

	for i := 0; i < count; i++ {
		s := Dot(polyA.Normals[i], cLocal.Sub(polyA.Vertices[i]))
		if s > radius {
			return m
		}
		if s > separation {
			separation = s
			normalIndex = i
		}
	}

	i1 := normalIndex
	i2 := 0
	if i1+1 < count {
		i2 = i1 + 1
	}
	v1 := polyA.Vertices[i1]
	v2 := polyA.Vertices[i2]

	if separation < Epsilon {
		m.PointCount = 1
		m.Type = ManifoldFaceA
		m.LocalNormal = polyA.Normals[normalIndex]
		m.LocalPoint = v1.Add(v2).Mul(0.5)
		m.Points[0].LocalPoint = circleB.Center
		return m
	}

	u1 := Dot(cLocal.Sub(v1), v2.Sub(v1))
	u2 := Dot(cLocal.Sub(v2), v1.Sub(v2))

	switch {
	case u1 <= 0:
		if DistanceSquared(cLocal, v1) > radius*radius {
			return m
		}
		m.PointCount = 1
		m.Type = ManifoldFaceA
		m.LocalNormal, _ = cLocal.Sub(v1).Normalize()
		m.LocalPoint = v1
		m.Points[0].LocalPoint = circleB.Center
	case u2 <= 0:
		if DistanceSquared(cLocal, v2) > radius*radius {
			return m
		}
		m.PointCount = 1
		m.Type = ManifoldFaceA
		m.LocalNormal, _ = cLocal.Sub(v2).Normalize()
		m.LocalPoint = v2
		m.Points[0].LocalPoint = circleB.Center
	default:
		faceCenter := v1.Add(v2).Mul(0.5)
		s := Dot(cLocal.Sub(faceCenter), polyA.Normals[i1])
		if s > radius {
			return m
		}
		m.PointCount = 1
		m.Type = ManifoldFaceA
		m.LocalNormal = polyA.Normals[i1]
		m.LocalPoint = faceCenter
		m.Points[0].LocalPoint = circleB.Center
	}
	return m
}
