package impulse2d

import (
	"math"

	"github.com/seongjinhong-ca/impulse2d/geom"
)

// solverPosition and solverVelocity are the island solver's per-body
// scratch state, copied in from body.sweep/velocity before the velocity
// iterations and copied back out afterward, mirroring the teacher's
// B2Position/B2Velocity arrays.
type solverPosition struct {
	c geom.Vec2
	a float64
}

type solverVelocity struct {
	v geom.Vec2
	w float64
}

type velocityConstraintPoint struct {
	rA, rB                 geom.Vec2
	normalImpulse          float64
	tangentImpulse         float64
	normalMass, tangentMass float64
	velocityBias           float64
}

type contactVelocityConstraint struct {
	points             [geom.MaxManifoldPoints]velocityConstraintPoint
	normal             geom.Vec2
	normalMass         geom.Mat22
	k                  geom.Mat22
	indexA, indexB     int
	invMassA, invMassB float64
	invIA, invIB       float64
	friction           float64
	restitution        float64
	tangentSpeed       float64
	pointCount         int
	contactIndex       int
}

type contactPositionConstraint struct {
	localPoints                [geom.MaxManifoldPoints]geom.Vec2
	localNormal                geom.Vec2
	localPoint                 geom.Vec2
	indexA, indexB             int
	invMassA, invMassB         float64
	localCenterA, localCenterB geom.Vec2
	invIA, invIB               float64
	kind                       geom.ManifoldType
	radiusA, radiusB           float64
	pointCount                 int
}

// contactSolver runs the sequential-impulse velocity iterations and the
// Baumgarte position-correction pass over one island's contacts, grounded
// on the teacher's block solver for two-point manifolds.
type contactSolver struct {
	step       stepTimeInfo
	positions  []solverPosition
	velocities []solverVelocity

	positionConstraints []contactPositionConstraint
	velocityConstraints []contactVelocityConstraint
	contacts            []*contact

	// degenerateCount tallies two-point manifolds whose block K matrix
	// was too ill-conditioned to invert, so the solver fell back to
	// solving only the manifold's first point.
	degenerateCount int
	blockSolve      bool
}

func newContactSolver(step stepTimeInfo, contacts []*contact, positions []solverPosition, velocities []solverVelocity, w *World) *contactSolver {
	s := &contactSolver{
		step:                step,
		positions:           positions,
		velocities:          velocities,
		contacts:            contacts,
		positionConstraints: make([]contactPositionConstraint, len(contacts)),
		velocityConstraints: make([]contactVelocityConstraint, len(contacts)),
		blockSolve:          step.blockSolve,
	}

	for i, c := range contacts {
		fA := &w.fixtures[c.fixtureA.index]
		fB := &w.fixtures[c.fixtureB.index]
		shapeA := w.shapeOf(fA.shape)
		shapeB := w.shapeOf(fB.shape)
		bA := &w.bodies[fA.body.index]
		bB := &w.bodies[fB.body.index]
		m := &c.manifold

		vc := &s.velocityConstraints[i]
		vc.friction = c.friction
		vc.restitution = c.restitution
		vc.tangentSpeed = c.tangentSpeed
		vc.indexA = bA.islandIndex
		vc.indexB = bB.islandIndex
		vc.invMassA = bA.invMass
		vc.invMassB = bB.invMass
		vc.invIA = bA.invI
		vc.invIB = bB.invI
		vc.contactIndex = i
		vc.pointCount = m.PointCount

		pc := &s.positionConstraints[i]
		pc.indexA = bA.islandIndex
		pc.indexB = bB.islandIndex
		pc.invMassA = bA.invMass
		pc.invMassB = bB.invMass
		pc.localCenterA = bA.sweep.LocalCenter
		pc.localCenterB = bB.sweep.LocalCenter
		pc.invIA = bA.invI
		pc.invIB = bB.invI
		pc.localNormal = m.LocalNormal
		pc.localPoint = m.LocalPoint
		pc.pointCount = m.PointCount
		pc.radiusA = shapeA.Radius
		pc.radiusB = shapeB.Radius
		pc.kind = m.Type

		for j := 0; j < m.PointCount; j++ {
			cp := &m.Points[j]
			vcp := &vc.points[j]
			if step.warmStarting {
				vcp.normalImpulse = step.dtRatio * cp.NormalImpulse
				vcp.tangentImpulse = step.dtRatio * cp.TangentImpulse
			}
			pc.localPoints[j] = cp.LocalPoint
		}
	}
	return s
}

func (s *contactSolver) initializeVelocityConstraints() {
	for i := range s.velocityConstraints {
		vc := &s.velocityConstraints[i]
		pc := &s.positionConstraints[i]
		manifold := &s.contacts[vc.contactIndex].manifold

		mA, mB, iA, iB := vc.invMassA, vc.invMassB, vc.invIA, vc.invIB

		pos := s.positions
		vel := s.velocities
		cA, aA := pos[vc.indexA].c, pos[vc.indexA].a
		vA, wA := vel[vc.indexA].v, vel[vc.indexA].w
		cB, aB := pos[vc.indexB].c, pos[vc.indexB].a
		vB, wB := vel[vc.indexB].v, vel[vc.indexB].w

		xfA := geom.Transform{Q: geom.RotFromAngle(aA)}
		xfA.P = cA.Sub(geom.MulRotVec2(xfA.Q, pc.localCenterA))
		xfB := geom.Transform{Q: geom.RotFromAngle(aB)}
		xfB.P = cB.Sub(geom.MulRotVec2(xfB.Q, pc.localCenterB))

		var wm geom.WorldManifold
		wm.ComputeWorldManifold(manifold, xfA, pc.radiusA, xfB, pc.radiusB)
		vc.normal = wm.Normal

		for j := 0; j < vc.pointCount; j++ {
			vcp := &vc.points[j]
			vcp.rA = wm.Points[j].Sub(cA)
			vcp.rB = wm.Points[j].Sub(cB)

			rnA := geom.Cross(vcp.rA, vc.normal)
			rnB := geom.Cross(vcp.rB, vc.normal)
			kNormal := mA + mB + iA*rnA*rnA + iB*rnB*rnB
			if kNormal > 0 {
				vcp.normalMass = 1.0 / kNormal
			}

			tangent := geom.CrossVS(vc.normal, 1.0)
			rtA := geom.Cross(vcp.rA, tangent)
			rtB := geom.Cross(vcp.rB, tangent)
			kTangent := mA + mB + iA*rtA*rtA + iB*rtB*rtB
			if kTangent > 0 {
				vcp.tangentMass = 1.0 / kTangent
			}

			vRel := geom.Dot(vc.normal, vB.Add(geom.CrossSV(wB, vcp.rB)).Sub(vA).Sub(geom.CrossSV(wA, vcp.rA)))
			if vRel < -s.step.velocityThreshold {
				vcp.velocityBias = -vc.restitution * vRel
			}
		}

		if vc.pointCount == 2 && s.blockSolve {
			cp1, cp2 := &vc.points[0], &vc.points[1]
			rn1A := geom.Cross(cp1.rA, vc.normal)
			rn1B := geom.Cross(cp1.rB, vc.normal)
			rn2A := geom.Cross(cp2.rA, vc.normal)
			rn2B := geom.Cross(cp2.rB, vc.normal)

			k11 := mA + mB + iA*rn1A*rn1A + iB*rn1B*rn1B
			k22 := mA + mB + iA*rn2A*rn2A + iB*rn2B*rn2B
			k12 := mA + mB + iA*rn1A*rn2A + iB*rn1B*rn2B

			const maxConditionNumber = 1000.0
			if k11*k11 < maxConditionNumber*(k11*k22-k12*k12) {
				vc.k = geom.Mat22FromColumns(geom.Vec2{X: k11, Y: k12}, geom.Vec2{X: k12, Y: k22})
				vc.normalMass = vc.k.Inverse()
			} else {
				vc.pointCount = 1
				s.degenerateCount++
			}
		}
	}
}

func (s *contactSolver) warmStart() {
	for i := range s.velocityConstraints {
		vc := &s.velocityConstraints[i]
		mA, iA, mB, iB := vc.invMassA, vc.invIA, vc.invMassB, vc.invIB

		vA, wA := s.velocities[vc.indexA].v, s.velocities[vc.indexA].w
		vB, wB := s.velocities[vc.indexB].v, s.velocities[vc.indexB].w

		normal := vc.normal
		tangent := geom.CrossVS(normal, 1.0)

		for j := 0; j < vc.pointCount; j++ {
			vcp := &vc.points[j]
			p := normal.Mul(vcp.normalImpulse).Add(tangent.Mul(vcp.tangentImpulse))
			wA -= iA * geom.Cross(vcp.rA, p)
			vA = vA.Sub(p.Mul(mA))
			wB += iB * geom.Cross(vcp.rB, p)
			vB = vB.Add(p.Mul(mB))
		}

		s.velocities[vc.indexA] = solverVelocity{vA, wA}
		s.velocities[vc.indexB] = solverVelocity{vB, wB}
	}
}

func (s *contactSolver) solveVelocityConstraints() {
	for i := range s.velocityConstraints {
		vc := &s.velocityConstraints[i]
		mA, iA, mB, iB := vc.invMassA, vc.invIA, vc.invMassB, vc.invIB

		vA, wA := s.velocities[vc.indexA].v, s.velocities[vc.indexA].w
		vB, wB := s.velocities[vc.indexB].v, s.velocities[vc.indexB].w

		normal := vc.normal
		tangent := geom.CrossVS(normal, 1.0)
		friction := vc.friction

		for j := 0; j < vc.pointCount; j++ {
			vcp := &vc.points[j]
			dv := vB.Add(geom.CrossSV(wB, vcp.rB)).Sub(vA).Sub(geom.CrossSV(wA, vcp.rA))

			vt := geom.Dot(dv, tangent) - vc.tangentSpeed
			lambda := vcp.tangentMass * (-vt)

			maxFriction := friction * vcp.normalImpulse
			newImpulse := clampFloat(vcp.tangentImpulse+lambda, -maxFriction, maxFriction)
			lambda = newImpulse - vcp.tangentImpulse
			vcp.tangentImpulse = newImpulse

			p := tangent.Mul(lambda)
			vA = vA.Sub(p.Mul(mA))
			wA -= iA * geom.Cross(vcp.rA, p)
			vB = vB.Add(p.Mul(mB))
			wB += iB * geom.Cross(vcp.rB, p)
		}

		if vc.pointCount == 1 || !s.blockSolve {
			for j := 0; j < vc.pointCount; j++ {
				vcp := &vc.points[j]
				dv := vB.Add(geom.CrossSV(wB, vcp.rB)).Sub(vA).Sub(geom.CrossSV(wA, vcp.rA))

				vn := geom.Dot(dv, normal)
				lambda := -vcp.normalMass * (vn - vcp.velocityBias)

				newImpulse := math.Max(vcp.normalImpulse+lambda, 0)
				lambda = newImpulse - vcp.normalImpulse
				vcp.normalImpulse = newImpulse

				p := normal.Mul(lambda)
				vA = vA.Sub(p.Mul(mA))
				wA -= iA * geom.Cross(vcp.rA, p)
				vB = vB.Add(p.Mul(mB))
				wB += iB * geom.Cross(vcp.rB, p)
			}
		} else {
			s.solveBlock(vc, &vA, &wA, &vB, &wB, normal)
		}

		s.velocities[vc.indexA] = solverVelocity{vA, wA}
		s.velocities[vc.indexB] = solverVelocity{vB, wB}
	}
}

// solveBlock resolves both normal-impulse points of a two-point manifold
// simultaneously via the total-enumeration LCP the teacher ports from
// Box2D_Lite: try the unconstrained solution first, then each single-point
// fallback, then both-zero.
func (s *contactSolver) solveBlock(vc *contactVelocityConstraint, vA *geom.Vec2, wA *float64, vB *geom.Vec2, wB *float64, normal geom.Vec2) {
	mA, iA, mB, iB := vc.invMassA, vc.invIA, vc.invMassB, vc.invIB
	cp1, cp2 := &vc.points[0], &vc.points[1]

	a := geom.Vec2{X: cp1.normalImpulse, Y: cp2.normalImpulse}

	dv1 := vB.Add(geom.CrossSV(*wB, cp1.rB)).Sub(*vA).Sub(geom.CrossSV(*wA, cp1.rA))
	dv2 := vB.Add(geom.CrossSV(*wB, cp2.rB)).Sub(*vA).Sub(geom.CrossSV(*wA, cp2.rA))

	vn1 := geom.Dot(dv1, normal)
	vn2 := geom.Dot(dv2, normal)

	b := geom.Vec2{X: vn1 - cp1.velocityBias, Y: vn2 - cp2.velocityBias}
	b = b.Sub(geom.MulMV(vc.k, a))

	apply := func(x geom.Vec2) {
		d := x.Sub(a)
		p1 := normal.Mul(d.X)
		p2 := normal.Mul(d.Y)
		*vA = vA.Sub(p1.Add(p2).Mul(mA))
		*wA -= iA * (geom.Cross(cp1.rA, p1) + geom.Cross(cp2.rA, p2))
		*vB = vB.Add(p1.Add(p2).Mul(mB))
		*wB += iB * (geom.Cross(cp1.rB, p1) + geom.Cross(cp2.rB, p2))
		cp1.normalImpulse = x.X
		cp2.normalImpulse = x.Y
	}

	x := geom.MulMV(vc.normalMass, b).Neg()
	if x.X >= 0 && x.Y >= 0 {
		apply(x)
		return
	}

	x = geom.Vec2{X: -cp1.normalMass * b.X, Y: 0}
	vn2 = vc.k.Ey.X*x.X + b.Y
	if x.X >= 0 && vn2 >= 0 {
		apply(x)
		return
	}

	x = geom.Vec2{X: 0, Y: -cp2.normalMass * b.Y}
	vn1 = vc.k.Ex.Y*x.Y + b.X
	if x.Y >= 0 && vn1 >= 0 {
		apply(x)
		return
	}

	if b.X >= 0 && b.Y >= 0 {
		apply(geom.Vec2{})
	}
}

func (s *contactSolver) storeImpulses() {
	for i := range s.velocityConstraints {
		vc := &s.velocityConstraints[i]
		m := &s.contacts[vc.contactIndex].manifold
		for j := 0; j < vc.pointCount; j++ {
			m.Points[j].NormalImpulse = vc.points[j].normalImpulse
			m.Points[j].TangentImpulse = vc.points[j].tangentImpulse
		}
	}
}

type positionSolverManifold struct {
	normal     geom.Vec2
	point      geom.Vec2
	separation float64
}

func (psm *positionSolverManifold) initialize(pc *contactPositionConstraint, xfA, xfB geom.Transform, index int) {
	switch pc.kind {
	case geom.ManifoldCircles:
		pointA := geom.Apply(xfA, pc.localPoint)
		pointB := geom.Apply(xfB, pc.localPoints[0])
		psm.normal, _ = pointB.Sub(pointA).Normalize()
		psm.point = pointA.Add(pointB).Mul(0.5)
		psm.separation = geom.Dot(pointB.Sub(pointA), psm.normal) - pc.radiusA - pc.radiusB
	case geom.ManifoldFaceA:
		psm.normal = geom.MulRotVec2(xfA.Q, pc.localNormal)
		planePoint := geom.Apply(xfA, pc.localPoint)
		clipPoint := geom.Apply(xfB, pc.localPoints[index])
		psm.separation = geom.Dot(clipPoint.Sub(planePoint), psm.normal) - pc.radiusA - pc.radiusB
		psm.point = clipPoint
	case geom.ManifoldFaceB:
		psm.normal = geom.MulRotVec2(xfB.Q, pc.localNormal)
		planePoint := geom.Apply(xfB, pc.localPoint)
		clipPoint := geom.Apply(xfA, pc.localPoints[index])
		psm.separation = geom.Dot(clipPoint.Sub(planePoint), psm.normal) - pc.radiusA - pc.radiusB
		psm.point = clipPoint
		psm.normal = psm.normal.Neg()
	}
}

// solvePositionConstraints runs the regular (non-TOI) Baumgarte position
// correction pass and reports whether every contact's separation is at
// least -3*linearSlop.
func (s *contactSolver) solvePositionConstraints(conf StepConf) bool {
	minSeparation := 0.0
	for i := range s.positionConstraints {
		pc := &s.positionConstraints[i]
		mA, iA, mB, iB := pc.invMassA, pc.invIA, pc.invMassB, pc.invIB

		cA, aA := s.positions[pc.indexA].c, s.positions[pc.indexA].a
		cB, aB := s.positions[pc.indexB].c, s.positions[pc.indexB].a

		for j := 0; j < pc.pointCount; j++ {
			xfA := geom.Transform{Q: geom.RotFromAngle(aA)}
			xfA.P = cA.Sub(geom.MulRotVec2(xfA.Q, pc.localCenterA))
			xfB := geom.Transform{Q: geom.RotFromAngle(aB)}
			xfB.P = cB.Sub(geom.MulRotVec2(xfB.Q, pc.localCenterB))

			var psm positionSolverManifold
			psm.initialize(pc, xfA, xfB, j)
			normal := psm.normal
			point := psm.point
			separation := psm.separation

			rA := point.Sub(cA)
			rB := point.Sub(cB)

			minSeparation = math.Min(minSeparation, separation)

			c := clampFloat(conf.RegBaumgarte*(separation+conf.LinearSlop), -conf.MaxLinearCorrection, 0)

			rnA := geom.Cross(rA, normal)
			rnB := geom.Cross(rB, normal)
			k := mA + mB + iA*rnA*rnA + iB*rnB*rnB

			impulse := 0.0
			if k > 0 {
				impulse = -c / k
			}

			p := normal.Mul(impulse)
			cA = cA.Sub(p.Mul(mA))
			aA -= iA * geom.Cross(rA, p)
			cB = cB.Add(p.Mul(mB))
			aB += iB * geom.Cross(rB, p)
		}

		s.positions[pc.indexA] = solverPosition{cA, aA}
		s.positions[pc.indexB] = solverPosition{cB, aB}
	}
	return minSeparation >= -3.0*conf.LinearSlop
}

// solveTOIPositionConstraints is the same pass restricted to the two
// bodies the TOI sub-step actually advanced, per the teacher's
// SolveTOIPositionConstraints.
func (s *contactSolver) solveTOIPositionConstraints(conf StepConf, toiIndexA, toiIndexB int) bool {
	minSeparation := 0.0
	for i := range s.positionConstraints {
		pc := &s.positionConstraints[i]

		mA, iA := 0.0, 0.0
		if pc.indexA == toiIndexA || pc.indexA == toiIndexB {
			mA, iA = pc.invMassA, pc.invIA
		}
		mB, iB := 0.0, 0.0
		if pc.indexB == toiIndexA || pc.indexB == toiIndexB {
			mB, iB = pc.invMassB, pc.invIB
		}

		cA, aA := s.positions[pc.indexA].c, s.positions[pc.indexA].a
		cB, aB := s.positions[pc.indexB].c, s.positions[pc.indexB].a

		for j := 0; j < pc.pointCount; j++ {
			xfA := geom.Transform{Q: geom.RotFromAngle(aA)}
			xfA.P = cA.Sub(geom.MulRotVec2(xfA.Q, pc.localCenterA))
			xfB := geom.Transform{Q: geom.RotFromAngle(aB)}
			xfB.P = cB.Sub(geom.MulRotVec2(xfB.Q, pc.localCenterB))

			var psm positionSolverManifold
			psm.initialize(pc, xfA, xfB, j)
			normal := psm.normal
			point := psm.point
			separation := psm.separation

			rA := point.Sub(cA)
			rB := point.Sub(cB)

			minSeparation = math.Min(minSeparation, separation)

			c := clampFloat(conf.ToiBaumgarte*(separation+conf.LinearSlop), -conf.MaxLinearCorrection, 0)

			rnA := geom.Cross(rA, normal)
			rnB := geom.Cross(rB, normal)
			k := mA + mB + iA*rnA*rnA + iB*rnB*rnB

			impulse := 0.0
			if k > 0 {
				impulse = -c / k
			}

			p := normal.Mul(impulse)
			cA = cA.Sub(p.Mul(mA))
			aA -= iA * geom.Cross(rA, p)
			cB = cB.Add(p.Mul(mB))
			aB += iB * geom.Cross(rB, p)
		}

		s.positions[pc.indexA] = solverPosition{cA, aA}
		s.positions[pc.indexB] = solverPosition{cB, aB}
	}
	return minSeparation >= -1.5*conf.LinearSlop
}

func clampFloat(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
