package geom

// findMaxSeparation finds the poly1 edge normal under which poly2 is
// furthest away, in poly2's frame.
func findMaxSeparation(poly1 Polygon, xf1 Transform, poly2 Polygon, xf2 Transform) (bestIndex int, maxSeparation float64) {
	xf := MulTTransform(xf2, xf1)
	maxSeparation = -MaxFloat

	for i := 0; i < poly1.Count; i++ {
		n := MulRotVec2(xf.Q, poly1.Normals[i])
		v1 := Apply(xf, poly1.Vertices[i])

		si := MaxFloat
		for j := 0; j < poly2.Count; j++ {
			sij := Dot(n, poly2.Vertices[j].Sub(v1))
			if sij < si {
				si = sij
			}
		}
		if si > maxSeparation {
			maxSeparation = si
			bestIndex = i
		}
	}
	return
}

func findIncidentEdge(poly1 Polygon, xf1 Transform, edge1 int, poly2 Polygon, xf2 Transform) [2]ClipVertex {
	normal1 := MulTRotVec2(xf2.Q, MulRotVec2(xf1.Q, poly1.Normals[edge1]))

	index := 0
	minDot := MaxFloat
	for i := 0; i < poly2.Count; i++ {
		dot := Dot(normal1, poly2.Normals[i])
		if dot < minDot {
			minDot = dot
			index = i
		}
	}

	i1 := index
	i2 := 0
	if i1+1 < poly2.Count {
		i2 = i1 + 1
	}

	var c [2]ClipVertex
	c[0].V = Apply(xf2, poly2.Vertices[i1])
	c[0].ID = ContactID{IndexA: uint8(edge1), IndexB: uint8(i1), TypeA: FeatureFace, TypeB: FeatureVertex}
	c[1].V = Apply(xf2, poly2.Vertices[i2])
	c[1].ID = ContactID{IndexA: uint8(edge1), IndexB: uint8(i2), TypeA: FeatureFace, TypeB: FeatureVertex}
	return c
}

// CollidePolygons finds the reference face maximizing separation, clips the
// incident edge of the other polygon against its side planes, and keeps the
// clipped points within the combined skin radius, per spec 4.2.
func CollidePolygons(polyA Polygon, radiusA float64, xfA Transform, polyB Polygon, radiusB float64, xfB Transform) Manifold {
	var m Manifold
	totalRadius := radiusA + radiusB

	edgeA, separationA := findMaxSeparation(polyA, xfA, polyB, xfB)
	if separationA > totalRadius {
		return m
	}
	edgeB, separationB := findMaxSeparation(polyB, xfB, polyA, xfA)
	if separationB > totalRadius {
		return m
	}

	var poly1, poly2 Polygon
	var xf1, xf2 Transform
	var edge1 int
	flip := false
	const tol = 0.1 * LinearSlop

	if separationB > separationA+tol {
		poly1, poly2 = polyB, polyA
		xf1, xf2 = xfB, xfA
		edge1 = edgeB
		m.Type = ManifoldFaceB
		flip = true
	} else {
		poly1, poly2 = polyA, polyB
		xf1, xf2 = xfA, xfB
		edge1 = edgeA
		m.Type = ManifoldFaceA
	}

	incidentEdge := findIncidentEdge(poly1, xf1, edge1, poly2, xf2)

	count1 := poly1.Count
	iv1 := edge1
	iv2 := 0
	if edge1+1 < count1 {
		iv2 = edge1 + 1
	}

	v11 := poly1.Vertices[iv1]
	v12 := poly1.Vertices[iv2]

	localTangent, _ := v12.Sub(v11).Normalize()
	localNormal := CrossVS(localTangent, 1.0)
	planePoint := v11.Add(v12).Mul(0.5)

	tangent := MulRotVec2(xf1.Q, localTangent)
	normal := CrossVS(tangent, 1.0)

	v11 = Apply(xf1, v11)
	v12 = Apply(xf1, v12)

	frontOffset := Dot(normal, v11)
	sideOffset1 := -Dot(tangent, v11) + totalRadius
	sideOffset2 := Dot(tangent, v12) + totalRadius

	clip1, np := ClipSegmentToLine(incidentEdge, tangent.Neg(), sideOffset1, uint8(iv1))
	if np < 2 {
		return m
	}
	clip2, np := ClipSegmentToLine(clip1, tangent, sideOffset2, uint8(iv2))
	if np < 2 {
		return m
	}

	m.LocalNormal = localNormal
	m.LocalPoint = planePoint

	pointCount := 0
	for i := 0; i < MaxManifoldPoints; i++ {
		separation := Dot(normal, clip2[i].V) - frontOffset
		if separation <= totalRadius {
			cp := &m.Points[pointCount]
			cp.LocalPoint = ApplyInverse(xf2, clip2[i].V)
			cp.ID = clip2[i].ID
			if flip {
				cp.ID = ContactID{
					IndexA: cp.ID.IndexB, IndexB: cp.ID.IndexA,
					TypeA: cp.ID.TypeB, TypeB: cp.ID.TypeA,
				}
			}
			pointCount++
		}
	}
	m.PointCount = pointCount
	return m
}
