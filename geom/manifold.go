package geom

// FeatureKind distinguishes a vertex feature from a face feature in a
// contact's feature id.
type FeatureKind uint8

const (
	FeatureVertex FeatureKind = iota
	FeatureFace
)

// ContactID identifies the pair of features that produced a manifold point.
// The solver carries an accumulated impulse across a manifold update only
// when the new point's ContactID matches the old one's.
type ContactID struct {
	IndexA, IndexB uint8
	TypeA, TypeB   FeatureKind
}

func (id ContactID) Key() uint32 {
	return uint32(id.IndexA) | uint32(id.IndexB)<<8 | uint32(id.TypeA)<<16 | uint32(id.TypeB)<<24
}

// ManifoldType tags which of the three canonical contact shapes a Manifold
// describes.
type ManifoldType uint8

const (
	ManifoldCircles ManifoldType = iota
	ManifoldFaceA
	ManifoldFaceB
)

// ManifoldPoint is one of up to MaxManifoldPoints contact points, carrying
// the accumulated impulses the solver warm-starts from on the next step.
type ManifoldPoint struct {
	LocalPoint     Vec2
	NormalImpulse  float64
	TangentImpulse float64
	ID             ContactID
}

// Manifold is the output of narrow-phase collision between two shape
// children: up to two contact points sharing a common normal/reference
// point, expressed in the reference shape's local frame.
type Manifold struct {
	Type        ManifoldType
	LocalNormal Vec2
	LocalPoint  Vec2
	Points      [MaxManifoldPoints]ManifoldPoint
	PointCount  int
}

// WorldManifold is the world-space normal, points and per-point separation
// derived on demand from a Manifold plus the two shapes' transforms and
// vertex radii (spec 4.2: "derived on demand... rather than stored").
type WorldManifold struct {
	Normal      Vec2
	Points      [MaxManifoldPoints]Vec2
	Separations [MaxManifoldPoints]float64
}

// ComputeWorldManifold fills in w from m and the placement of the two
// shapes that produced it.
func (w *WorldManifold) ComputeWorldManifold(m *Manifold, xfA Transform, radiusA float64, xfB Transform, radiusB float64) {
	if m.PointCount == 0 {
		return
	}

	switch m.Type {
	case ManifoldCircles:
		w.Normal = Vec2{1, 0}
		pointA := Apply(xfA, m.LocalPoint)
		pointB := Apply(xfB, m.Points[0].LocalPoint)
		if DistanceSquared(pointA, pointB) > Epsilon*Epsilon {
			w.Normal, _ = pointB.Sub(pointA).Normalize()
		}
		cA := pointA.Add(w.Normal.Mul(radiusA))
		cB := pointB.Sub(w.Normal.Mul(radiusB))
		w.Points[0] = cA.Add(cB).Mul(0.5)
		w.Separations[0] = Dot(cB.Sub(cA), w.Normal)

	case ManifoldFaceA:
		w.Normal = MulRotVec2(xfA.Q, m.LocalNormal)
		planePoint := Apply(xfA, m.LocalPoint)
		for i := 0; i < m.PointCount; i++ {
			clip := Apply(xfB, m.Points[i].LocalPoint)
			cA := clip.Add(w.Normal.Mul(radiusA - Dot(clip.Sub(planePoint), w.Normal)))
			cB := clip.Sub(w.Normal.Mul(radiusB))
			w.Points[i] = cA.Add(cB).Mul(0.5)
			w.Separations[i] = Dot(cB.Sub(cA), w.Normal)
		}

	case ManifoldFaceB:
		w.Normal = MulRotVec2(xfB.Q, m.LocalNormal)
		planePoint := Apply(xfB, m.LocalPoint)
		for i := 0; i < m.PointCount; i++ {
			clip := Apply(xfA, m.Points[i].LocalPoint)
			cB := clip.Add(w.Normal.Mul(radiusB - Dot(clip.Sub(planePoint), w.Normal)))
			cA := clip.Sub(w.Normal.Mul(radiusA))
			w.Points[i] = cA.Add(cB).Mul(0.5)
			w.Separations[i] = Dot(cA.Sub(cB), w.Normal)
		}
		w.Normal = w.Normal.Neg()
	}
}

// ClipVertex is a point surviving Sutherland-Hodgman clipping, tagged with
// the feature id it inherits.
type ClipVertex struct {
	V  Vec2
	ID ContactID
}

// ClipSegmentToLine keeps the points of vIn on the side of the line
// (normal, offset) where dot(normal, v) <= offset, inserting the
// intersection point when the segment crosses the line. vertexIndexA tags
// the newly created intersection point's IndexA feature.
func ClipSegmentToLine(vIn [2]ClipVertex, normal Vec2, offset float64, vertexIndexA uint8) ([2]ClipVertex, int) {
	var vOut [2]ClipVertex
	numOut := 0

	d0 := Dot(normal, vIn[0].V) - offset
	d1 := Dot(normal, vIn[1].V) - offset

	if d0 <= 0 {
		vOut[numOut] = vIn[0]
		numOut++
	}
	if d1 <= 0 {
		vOut[numOut] = vIn[1]
		numOut++
	}

	if d0*d1 < 0 {
		interp := d0 / (d0 - d1)
		vOut[numOut].V = vIn[0].V.Add(vIn[1].V.Sub(vIn[0].V).Mul(interp))
		vOut[numOut].ID = ContactID{
			IndexA: vertexIndexA,
			IndexB: vIn[0].ID.IndexB,
			TypeA:  FeatureVertex,
			TypeB:  FeatureFace,
		}
		numOut++
	}

	return vOut, numOut
}

// PointState classifies a manifold point as it transitions between two
// consecutive manifolds for an update, by ContactID match.
type PointState uint8

const (
	PointNull PointState = iota
	PointAdd
	PointPersist
	PointRemove
)

// GetPointStates classifies every point of m1 (the old manifold) and m2
// (the new one) against each other.
func GetPointStates(m1, m2 *Manifold) (state1, state2 [MaxManifoldPoints]PointState) {
	for i := 0; i < m1.PointCount; i++ {
		id := m1.Points[i].ID
		state1[i] = PointRemove
		for j := 0; j < m2.PointCount; j++ {
			if m2.Points[j].ID.Key() == id.Key() {
				state1[i] = PointPersist
				break
			}
		}
	}
	for i := 0; i < m2.PointCount; i++ {
		id := m2.Points[i].ID
		state2[i] = PointAdd
		for j := 0; j < m1.PointCount; j++ {
			if m1.Points[j].ID.Key() == id.Key() {
				state2[i] = PointPersist
				break
			}
		}
	}
	return
}
