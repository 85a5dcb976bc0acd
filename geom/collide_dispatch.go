package geom

// Collide generates the manifold between child childA of shapeA and child
// childB of shapeB, dispatching on shape kind. The contact layer builds one
// of these per touching fixture pair every step (spec 4.2). fixtureA and
// fixtureB keep the contact's own (body, index) ordering (spec 3's "fixtureA
// lexicographically precedes fixtureB" invariant), so unlike the teacher's
// per-pair B2ContactRegister table — which reorders which fixture is
// "A" at contact-creation time so each concrete *Contact type only ever
// sees its one fixed kind order — this dispatch has to accept either
// order and swap internally, mirroring the teacher's non-Primary
// registration path (B2ContactFactory calling createFcn(fixtureB, ...,
// fixtureA, ...)) without being able to permute the stored fixture order.
func Collide(shapeA Shape, childA int, xfA Transform, shapeB Shape, childB int, xfB Transform) Manifold {
	if ShouldSwap(shapeA.Kind, shapeB.Kind) {
		return swapManifold(collideOrdered(shapeB, childB, xfB, shapeA, childA, xfA))
	}
	return collideOrdered(shapeA, childA, xfA, shapeB, childB, xfB)
}

// collideOrdered assumes ShouldSwap(shapeA.Kind, shapeB.Kind) is already
// false, i.e. shapeA is the equal-or-higher-ranked kind per ShouldSwap.
func collideOrdered(shapeA Shape, childA int, xfA Transform, shapeB Shape, childB int, xfB Transform) Manifold {
	switch {
	case shapeA.Kind == KindCircle && shapeB.Kind == KindCircle:
		return CollideCircles(shapeA.Circle, shapeA.Radius, xfA, shapeB.Circle, shapeB.Radius, xfB)

	case shapeA.Kind == KindPolygon && shapeB.Kind == KindCircle:
		return CollidePolygonAndCircle(shapeA.Poly, shapeA.Radius, xfA, shapeB.Circle, shapeB.Radius, xfB)

	case shapeA.Kind == KindPolygon && shapeB.Kind == KindPolygon:
		return CollidePolygons(shapeA.Poly, shapeA.Radius, xfA, shapeB.Poly, shapeB.Radius, xfB)

	case shapeA.Kind == KindEdge && shapeB.Kind == KindCircle:
		return CollideEdgeAndCircle(shapeA.Edge, shapeA.Radius, xfA, shapeB.Circle, shapeB.Radius, xfB)

	case shapeA.Kind == KindEdge && shapeB.Kind == KindPolygon:
		return CollideEdgeAndPolygon(shapeA.Edge, shapeA.Radius, xfA, shapeB.Poly, shapeB.Radius, xfB)

	case shapeA.Kind == KindChain && shapeB.Kind == KindCircle:
		return CollideEdgeAndCircle(shapeA.Chain.EdgeChild(childA), shapeA.Radius, xfA, shapeB.Circle, shapeB.Radius, xfB)

	case shapeA.Kind == KindChain && shapeB.Kind == KindPolygon:
		return CollideEdgeAndPolygon(shapeA.Chain.EdgeChild(childA), shapeA.Radius, xfA, shapeB.Poly, shapeB.Radius, xfB)
	}
	// edge-edge, chain-edge and chain-chain are unregistered the same way
	// the teacher's s_registers table leaves those cells nil: thin 1-D
	// features colliding with each other isn't a combination the engine
	// supports, so the pair never touches.
	return Manifold{}
}

// swapManifold re-expresses a manifold computed with its (A, B) roles
// reversed back in terms of the caller's original order: the reference
// frame tag flips (a face the inner call saw as "A" belongs to the
// caller's B, and vice versa) and each point's per-side feature id is
// relabeled. Face manifolds keep LocalNormal/LocalPoint/Points as computed,
// since they're already stored relative to whichever side the Type tag
// names; a circles manifold stores A's center in LocalPoint and B's in
// the point, so those two trade places.
func swapManifold(m Manifold) Manifold {
	switch m.Type {
	case ManifoldFaceA:
		m.Type = ManifoldFaceB
	case ManifoldFaceB:
		m.Type = ManifoldFaceA
	case ManifoldCircles:
		if m.PointCount > 0 {
			m.LocalPoint, m.Points[0].LocalPoint = m.Points[0].LocalPoint, m.LocalPoint
		}
	}
	for i := 0; i < m.PointCount; i++ {
		id := &m.Points[i].ID
		id.IndexA, id.IndexB = id.IndexB, id.IndexA
		id.TypeA, id.TypeB = id.TypeB, id.TypeA
	}
	return m
}

// ShouldSwap reports whether a fixture pair of kinds (kindA, kindB) needs
// their roles swapped so that collideOrdered always sees the
// geometrically "larger" kind as A, mirroring the teacher's per-pair
// contact registration table (circle-vs-polygon is always polygon-A,
// edge/chain is always A).
func ShouldSwap(kindA, kindB Kind) bool {
	rank := func(k Kind) int {
		switch k {
		case KindCircle:
			return 0
		case KindPolygon:
			return 1
		case KindEdge, KindChain:
			return 2
		}
		return 0
	}
	return rank(kindA) < rank(kindB)
}
