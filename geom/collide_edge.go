package geom

import "math"

// CollideEdgeAndCircle accounts for edge connectivity: a circle resting on
// a ghost-vertex region that the neighboring edge owns produces no contact,
// the way spec 4.2 describes the Voronoi-region suppression.
func CollideEdgeAndCircle(edgeA Edge, radiusA float64, xfA Transform, circleB Circle, radiusB float64, xfB Transform) Manifold {
	var m Manifold

	q := ApplyInverse(xfA, Apply(xfB, circleB.Center))

	a, b := edgeA.V1, edgeA.V2
	e := b.Sub(a)

	u := Dot(e, b.Sub(q))
	v := Dot(e, q.Sub(a))

	radius := radiusA + radiusB

	if v <= 0 {
		p := a
		d := q.Sub(p)
		if Dot(d, d) > radius*radius {
			return m
		}
		if edgeA.HasVertex0 {
			a1, b1 := edgeA.V0, a
			e1 := b1.Sub(a1)
			u1 := Dot(e1, b1.Sub(q))
			if u1 > 0 {
				return m
			}
		}
		m.PointCount = 1
		m.Type = ManifoldCircles
		m.LocalPoint = p
		m.Points[0].LocalPoint = circleB.Center
		m.Points[0].ID = ContactID{IndexA: 0, TypeA: FeatureVertex}
		return m
	}

	if u <= 0 {
		p := b
		d := q.Sub(p)
		if Dot(d, d) > radius*radius {
			return m
		}
		if edgeA.HasVertex3 {
			a2, b2 := b, edgeA.V3
			e2 := b2.Sub(a2)
			v2 := Dot(e2, q.Sub(a2))
			if v2 > 0 {
				return m
			}
		}
		m.PointCount = 1
		m.Type = ManifoldCircles
		m.LocalPoint = p
		m.Points[0].LocalPoint = circleB.Center
		m.Points[0].ID = ContactID{IndexA: 1, TypeA: FeatureVertex}
		return m
	}

	den := Dot(e, e)
	p := a.Mul(u).Add(b.Mul(v)).Mul(1.0 / den)
	d := q.Sub(p)
	if Dot(d, d) > radius*radius {
		return m
	}

	n := Vec2{-e.Y, e.X}
	if Dot(n, q.Sub(a)) < 0 {
		n = n.Neg()
	}
	n, _ = n.Normalize()

	m.PointCount = 1
	m.Type = ManifoldFaceA
	m.LocalNormal = n
	m.LocalPoint = a
	m.Points[0].LocalPoint = circleB.Center
	m.Points[0].ID = ContactID{IndexA: 0, TypeA: FeatureFace}
	return m
}

type epAxisType uint8

const (
	epAxisUnknown epAxisType = iota
	epAxisEdgeA
	epAxisEdgeB
)

type epAxis struct {
	kind       epAxisType
	index      int
	separation float64
}

type referenceFace struct {
	i1, i2      int
	v1, v2      Vec2
	normal      Vec2
	sideNormal1 Vec2
	sideOffset1 float64
	sideNormal2 Vec2
	sideOffset2 float64
}

// epCollider collides an edge and a polygon taking edge adjacency into
// account: classify the edge's two vertices and the polygon centroid as
// front/back, derive a normal range from the edge's ghost neighbors, then
// only accept a separating axis within that range. This is what lets a
// chain of edges behave like one smooth surface instead of snagging on
// internal vertices (spec 4.2, the edge-X contract).
type epCollider struct {
	polygonB struct {
		vertices [MaxPolygonVertices]Vec2
		normals  [MaxPolygonVertices]Vec2
		count    int
	}
	xf                       Transform
	centroidB                Vec2
	v0, v1, v2, v3           Vec2
	normal0, normal1, normal2 Vec2
	normal                   Vec2
	lowerLimit, upperLimit   Vec2
	radius                   float64
	front                    bool
}

// CollideEdgeAndPolygon is the spec 4.2 edge-X contract specialized to a
// polygon incident shape.
func CollideEdgeAndPolygon(edgeA Edge, radiusA float64, xfA Transform, polyB Polygon, radiusB float64, xfB Transform) Manifold {
	var c epCollider
	return c.collide(edgeA, radiusA, xfA, polyB, radiusB, xfB)
}

func (c *epCollider) collide(edgeA Edge, radiusA float64, xfA Transform, polyB Polygon, radiusB float64, xfB Transform) Manifold {
	var m Manifold

	c.xf = MulTTransform(xfA, xfB)
	c.centroidB = Apply(c.xf, polyB.Centroid)

	c.v0, c.v1, c.v2, c.v3 = edgeA.V0, edgeA.V1, edgeA.V2, edgeA.V3
	hasVertex0, hasVertex3 := edgeA.HasVertex0, edgeA.HasVertex3

	edge1, _ := c.v2.Sub(c.v1).Normalize()
	c.normal1 = Vec2{edge1.Y, -edge1.X}
	offset1 := Dot(c.normal1, c.centroidB.Sub(c.v1))
	var offset0, offset2 float64
	var convex1, convex2 bool

	if hasVertex0 {
		edge0, _ := c.v1.Sub(c.v0).Normalize()
		c.normal0 = Vec2{edge0.Y, -edge0.X}
		convex1 = Cross(edge0, edge1) >= 0
		offset0 = Dot(c.normal0, c.centroidB.Sub(c.v0))
	}
	if hasVertex3 {
		edge2, _ := c.v3.Sub(c.v2).Normalize()
		c.normal2 = Vec2{edge2.Y, -edge2.X}
		convex2 = Cross(edge1, edge2) > 0
		offset2 = Dot(c.normal2, c.centroidB.Sub(c.v2))
	}

	switch {
	case hasVertex0 && hasVertex3:
		switch {
		case convex1 && convex2:
			c.front = offset0 >= 0 || offset1 >= 0 || offset2 >= 0
			if c.front {
				c.normal, c.lowerLimit, c.upperLimit = c.normal1, c.normal0, c.normal2
			} else {
				c.normal = c.normal1.Neg()
				c.lowerLimit, c.upperLimit = c.normal1.Neg(), c.normal1.Neg()
			}
		case convex1:
			c.front = offset0 >= 0 || (offset1 >= 0 && offset2 >= 0)
			if c.front {
				c.normal, c.lowerLimit, c.upperLimit = c.normal1, c.normal0, c.normal1
			} else {
				c.normal = c.normal1.Neg()
				c.lowerLimit, c.upperLimit = c.normal2.Neg(), c.normal1.Neg()
			}
		case convex2:
			c.front = offset2 >= 0 || (offset0 >= 0 && offset1 >= 0)
			if c.front {
				c.normal, c.lowerLimit, c.upperLimit = c.normal1, c.normal1, c.normal2
			} else {
				c.normal = c.normal1.Neg()
				c.lowerLimit, c.upperLimit = c.normal1.Neg(), c.normal0.Neg()
			}
		default:
			c.front = offset0 >= 0 && offset1 >= 0 && offset2 >= 0
			if c.front {
				c.normal, c.lowerLimit, c.upperLimit = c.normal1, c.normal1, c.normal1
			} else {
				c.normal = c.normal1.Neg()
				c.lowerLimit, c.upperLimit = c.normal2.Neg(), c.normal0.Neg()
			}
		}
	case hasVertex0:
		if convex1 {
			c.front = offset0 >= 0 || offset1 >= 0
			if c.front {
				c.normal, c.lowerLimit, c.upperLimit = c.normal1, c.normal0, c.normal1.Neg()
			} else {
				c.normal = c.normal1.Neg()
				c.lowerLimit, c.upperLimit = c.normal1, c.normal1.Neg()
			}
		} else {
			c.front = offset0 >= 0 && offset1 >= 0
			if c.front {
				c.normal, c.lowerLimit, c.upperLimit = c.normal1, c.normal1, c.normal1.Neg()
			} else {
				c.normal = c.normal1.Neg()
				c.lowerLimit, c.upperLimit = c.normal1, c.normal0.Neg()
			}
		}
	case hasVertex3:
		if convex2 {
			c.front = offset1 >= 0 || offset2 >= 0
			if c.front {
				c.normal, c.lowerLimit, c.upperLimit = c.normal1, c.normal1.Neg(), c.normal2
			} else {
				c.normal = c.normal1.Neg()
				c.lowerLimit, c.upperLimit = c.normal1.Neg(), c.normal1
			}
		} else {
			c.front = offset1 >= 0 && offset2 >= 0
			if c.front {
				c.normal, c.lowerLimit, c.upperLimit = c.normal1, c.normal1.Neg(), c.normal1
			} else {
				c.normal = c.normal1.Neg()
				c.lowerLimit, c.upperLimit = c.normal2.Neg(), c.normal1
			}
		}
	default:
		c.front = offset1 >= 0
		if c.front {
			c.normal, c.lowerLimit, c.upperLimit = c.normal1, c.normal1.Neg(), c.normal1.Neg()
		} else {
			c.normal = c.normal1.Neg()
			c.lowerLimit, c.upperLimit = c.normal1, c.normal1
		}
	}

	c.polygonB.count = polyB.Count
	for i := 0; i < polyB.Count; i++ {
		c.polygonB.vertices[i] = Apply(c.xf, polyB.Vertices[i])
		c.polygonB.normals[i] = MulRotVec2(c.xf.Q, polyB.Normals[i])
	}
	c.radius = radiusB + radiusA

	edgeAxis := c.computeEdgeSeparation()
	if edgeAxis.kind == epAxisUnknown {
		return m
	}
	if edgeAxis.separation > c.radius {
		return m
	}

	polygonAxis := c.computePolygonSeparation()
	if polygonAxis.kind != epAxisUnknown && polygonAxis.separation > c.radius {
		return m
	}

	const relativeTol = 0.98
	const absoluteTol = 0.001

	var primaryAxis epAxis
	switch {
	case polygonAxis.kind == epAxisUnknown:
		primaryAxis = edgeAxis
	case polygonAxis.separation > relativeTol*edgeAxis.separation+absoluteTol:
		primaryAxis = polygonAxis
	default:
		primaryAxis = edgeAxis
	}

	var ie [2]ClipVertex
	var rf referenceFace

	if primaryAxis.kind == epAxisEdgeA {
		m.Type = ManifoldFaceA

		bestIndex := 0
		bestValue := Dot(c.normal, c.polygonB.normals[0])
		for i := 1; i < c.polygonB.count; i++ {
			value := Dot(c.normal, c.polygonB.normals[i])
			if value < bestValue {
				bestValue = value
				bestIndex = i
			}
		}
		i1 := bestIndex
		i2 := 0
		if i1+1 < c.polygonB.count {
			i2 = i1 + 1
		}

		ie[0] = ClipVertex{V: c.polygonB.vertices[i1], ID: ContactID{IndexA: 0, IndexB: uint8(i1), TypeA: FeatureFace, TypeB: FeatureVertex}}
		ie[1] = ClipVertex{V: c.polygonB.vertices[i2], ID: ContactID{IndexA: 0, IndexB: uint8(i2), TypeA: FeatureFace, TypeB: FeatureVertex}}

		if c.front {
			rf = referenceFace{i1: 0, i2: 1, v1: c.v1, v2: c.v2, normal: c.normal1}
		} else {
			rf = referenceFace{i1: 1, i2: 0, v1: c.v2, v2: c.v1, normal: c.normal1.Neg()}
		}
	} else {
		m.Type = ManifoldFaceB

		ie[0] = ClipVertex{V: c.v1, ID: ContactID{IndexA: 0, IndexB: uint8(primaryAxis.index), TypeA: FeatureVertex, TypeB: FeatureFace}}
		ie[1] = ClipVertex{V: c.v2, ID: ContactID{IndexA: 0, IndexB: uint8(primaryAxis.index), TypeA: FeatureVertex, TypeB: FeatureFace}}

		rf.i1 = primaryAxis.index
		if rf.i1+1 < c.polygonB.count {
			rf.i2 = rf.i1 + 1
		} else {
			rf.i2 = 0
		}
		rf.v1 = c.polygonB.vertices[rf.i1]
		rf.v2 = c.polygonB.vertices[rf.i2]
		rf.normal = c.polygonB.normals[rf.i1]
	}

	rf.sideNormal1 = Vec2{rf.normal.Y, -rf.normal.X}
	rf.sideNormal2 = rf.sideNormal1.Neg()
	rf.sideOffset1 = Dot(rf.sideNormal1, rf.v1)
	rf.sideOffset2 = Dot(rf.sideNormal2, rf.v2)

	clip1, np := ClipSegmentToLine(ie, rf.sideNormal1, rf.sideOffset1, uint8(rf.i1))
	if np < MaxManifoldPoints {
		return m
	}
	clip2, np := ClipSegmentToLine(clip1, rf.sideNormal2, rf.sideOffset2, uint8(rf.i2))
	if np < MaxManifoldPoints {
		return m
	}

	if primaryAxis.kind == epAxisEdgeA {
		m.LocalNormal = rf.normal
		m.LocalPoint = rf.v1
	} else {
		m.LocalNormal = polyB.Normals[rf.i1]
		m.LocalPoint = polyB.Vertices[rf.i1]
	}

	pointCount := 0
	for i := 0; i < MaxManifoldPoints; i++ {
		separation := Dot(rf.normal, clip2[i].V.Sub(rf.v1))
		if separation <= c.radius {
			cp := &m.Points[pointCount]
			if primaryAxis.kind == epAxisEdgeA {
				cp.LocalPoint = ApplyInverse(c.xf, clip2[i].V)
				cp.ID = clip2[i].ID
			} else {
				cp.LocalPoint = clip2[i].V
				cp.ID = ContactID{TypeA: clip2[i].ID.TypeB, TypeB: clip2[i].ID.TypeA, IndexA: clip2[i].ID.IndexB, IndexB: clip2[i].ID.IndexA}
			}
			pointCount++
		}
	}
	m.PointCount = pointCount
	return m
}

func (c *epCollider) computeEdgeSeparation() epAxis {
	axis := epAxis{kind: epAxisEdgeA, separation: MaxFloat}
	if c.front {
		axis.index = 0
	} else {
		axis.index = 1
	}
	for i := 0; i < c.polygonB.count; i++ {
		s := Dot(c.normal, c.polygonB.vertices[i].Sub(c.v1))
		if s < axis.separation {
			axis.separation = s
		}
	}
	return axis
}

func (c *epCollider) computePolygonSeparation() epAxis {
	axis := epAxis{kind: epAxisUnknown, index: -1, separation: -MaxFloat}
	perp := Vec2{-c.normal.Y, c.normal.X}

	for i := 0; i < c.polygonB.count; i++ {
		n := c.polygonB.normals[i].Neg()
		s1 := Dot(n, c.polygonB.vertices[i].Sub(c.v1))
		s2 := Dot(n, c.polygonB.vertices[i].Sub(c.v2))
		s := math.Min(s1, s2)

		if s > c.radius {
			return epAxis{kind: epAxisEdgeB, index: i, separation: s}
		}

		if Dot(n, perp) >= 0 {
			if Dot(n.Sub(c.upperLimit), c.normal) < -AngularSlop {
				continue
			}
		} else {
			if Dot(n.Sub(c.lowerLimit), c.normal) < -AngularSlop {
				continue
			}
		}

		if s > axis.separation {
			axis = epAxis{kind: epAxisEdgeB, index: i, separation: s}
		}
	}
	return axis
}
