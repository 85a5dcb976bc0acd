package impulse2d

import "github.com/seongjinhong-ca/impulse2d/geom"

// gearJointImpl couples the motion of two existing revolute or
// prismatic joints so that coordinateA + ratio*coordinateB stays
// constant. BodyA/BodyB are joint1/joint2's second bodies; bodyC/bodyD
// are their first bodies, pulled in only for this joint's own solve.
type gearJointImpl struct {
	bodyA, bodyB, bodyC, bodyD BodyID

	typeA, typeB JointKind

	localAnchorA, localAnchorB geom.Vec2
	localAnchorC, localAnchorD geom.Vec2
	localAxisC, localAxisD     geom.Vec2

	referenceAngleA, referenceAngleB float64

	constant float64
	ratio    float64
	impulse  float64

	indexA, indexB, indexC, indexD int
	lcA, lcB, lcC, lcD             geom.Vec2
	mA, mB, mC, mD                 float64
	iA, iB, iC, iD                 float64
	jvAC, jvBD                     geom.Vec2
	jwA, jwB, jwC, jwD             float64
	mass                           float64
}

func newGearJoint(w *World, conf JointConf, recA, recB *jointRecord) (jointImpl, error) {
	if recA.kind != RevoluteJoint && recA.kind != PrismaticJoint {
		return nil, newError(InvalidArgument, "gear joint's first coupled joint must be revolute or prismatic")
	}
	if recB.kind != RevoluteJoint && recB.kind != PrismaticJoint {
		return nil, newError(InvalidArgument, "gear joint's second coupled joint must be revolute or prismatic")
	}

	ratio := conf.Ratio
	if ratio == 0 {
		ratio = 1
	}

	j := &gearJointImpl{
		bodyC: recA.bodyA,
		bodyA: recA.bodyB,
		bodyD: recB.bodyA,
		bodyB: recB.bodyB,
		ratio: ratio,
	}
	j.typeA = recA.kind
	j.typeB = recB.kind

	bA, err := w.body(j.bodyA)
	if err != nil {
		return nil, err
	}
	bC, err := w.body(j.bodyC)
	if err != nil {
		return nil, err
	}
	bB, err := w.body(j.bodyB)
	if err != nil {
		return nil, err
	}
	bD, err := w.body(j.bodyD)
	if err != nil {
		return nil, err
	}

	coordinateA := 0.0
	switch impl := recA.impl.(type) {
	case *revoluteJointImpl:
		j.localAnchorC = impl.localAnchorA
		j.localAnchorA = impl.localAnchorB
		j.referenceAngleA = impl.referenceAngle
		j.localAxisC = geom.Zero2
		coordinateA = bA.sweep.A - bC.sweep.A - j.referenceAngleA
	case *prismaticJointImpl:
		j.localAnchorC = impl.localAnchorA
		j.localAnchorA = impl.localAnchorB
		j.referenceAngleA = impl.referenceAngle
		j.localAxisC = impl.localXAxisA

		pC := j.localAnchorC
		pA := geom.MulTRotVec2(bC.xf.Q, geom.MulRotVec2(bA.xf.Q, j.localAnchorA).Add(bA.xf.P.Sub(bC.xf.P)))
		coordinateA = geom.Dot(pA.Sub(pC), j.localAxisC)
	}

	coordinateB := 0.0
	switch impl := recB.impl.(type) {
	case *revoluteJointImpl:
		j.localAnchorD = impl.localAnchorA
		j.localAnchorB = impl.localAnchorB
		j.referenceAngleB = impl.referenceAngle
		j.localAxisD = geom.Zero2
		coordinateB = bB.sweep.A - bD.sweep.A - j.referenceAngleB
	case *prismaticJointImpl:
		j.localAnchorD = impl.localAnchorA
		j.localAnchorB = impl.localAnchorB
		j.referenceAngleB = impl.referenceAngle
		j.localAxisD = impl.localXAxisA

		pD := j.localAnchorD
		pB := geom.MulTRotVec2(bD.xf.Q, geom.MulRotVec2(bB.xf.Q, j.localAnchorB).Add(bB.xf.P.Sub(bD.xf.P)))
		coordinateB = geom.Dot(pB.Sub(pD), j.localAxisD)
	}

	j.constant = coordinateA + ratio*coordinateB
	return j, nil
}

func (j *gearJointImpl) initVelocityConstraints(w *World, sd jointSolverData) {
	bA := &w.bodies[j.bodyA.index]
	bB := &w.bodies[j.bodyB.index]
	bC := &w.bodies[j.bodyC.index]
	bD := &w.bodies[j.bodyD.index]

	j.indexA, j.indexB = bA.islandIndex, bB.islandIndex
	j.indexC, j.indexD = bC.islandIndex, bD.islandIndex
	j.lcA, j.lcB = bA.sweep.LocalCenter, bB.sweep.LocalCenter
	j.lcC, j.lcD = bC.sweep.LocalCenter, bD.sweep.LocalCenter
	j.mA, j.mB, j.mC, j.mD = bA.invMass, bB.invMass, bC.invMass, bD.invMass
	j.iA, j.iB, j.iC, j.iD = bA.invI, bB.invI, bC.invI, bD.invI

	aA := sd.positions[j.indexA].a
	vA, wA := sd.velocities[j.indexA].v, sd.velocities[j.indexA].w
	aB := sd.positions[j.indexB].a
	vB, wB := sd.velocities[j.indexB].v, sd.velocities[j.indexB].w
	aC := sd.positions[j.indexC].a
	vC, wC := sd.velocities[j.indexC].v, sd.velocities[j.indexC].w
	aD := sd.positions[j.indexD].a
	vD, wD := sd.velocities[j.indexD].v, sd.velocities[j.indexD].w

	qA, qB := geom.RotFromAngle(aA), geom.RotFromAngle(aB)
	qC, qD := geom.RotFromAngle(aC), geom.RotFromAngle(aD)

	j.mass = 0

	if j.typeA == RevoluteJoint {
		j.jvAC = geom.Zero2
		j.jwA, j.jwC = 1, 1
		j.mass += j.iA + j.iC
	} else {
		u := geom.MulRotVec2(qC, j.localAxisC)
		rC := geom.MulRotVec2(qC, j.localAnchorC.Sub(j.lcC))
		rA := geom.MulRotVec2(qA, j.localAnchorA.Sub(j.lcA))
		j.jvAC = u
		j.jwC = geom.Cross(rC, u)
		j.jwA = geom.Cross(rA, u)
		j.mass += j.mC + j.mA + j.iC*j.jwC*j.jwC + j.iA*j.jwA*j.jwA
	}

	if j.typeB == RevoluteJoint {
		j.jvBD = geom.Zero2
		j.jwB, j.jwD = j.ratio, j.ratio
		j.mass += j.ratio * j.ratio * (j.iB + j.iD)
	} else {
		u := geom.MulRotVec2(qD, j.localAxisD)
		rD := geom.MulRotVec2(qD, j.localAnchorD.Sub(j.lcD))
		rB := geom.MulRotVec2(qB, j.localAnchorB.Sub(j.lcB))
		j.jvBD = u.Mul(j.ratio)
		j.jwD = j.ratio * geom.Cross(rD, u)
		j.jwB = j.ratio * geom.Cross(rB, u)
		j.mass += j.ratio*j.ratio*(j.mD+j.mB) + j.iD*j.jwD*j.jwD + j.iB*j.jwB*j.jwB
	}

	if j.mass > 0 {
		j.mass = 1.0 / j.mass
	} else {
		j.mass = 0
	}

	if sd.step.warmStarting {
		vA = vA.Add(j.jvAC.Mul(j.mA * j.impulse))
		wA += j.iA * j.impulse * j.jwA
		vB = vB.Add(j.jvBD.Mul(j.mB * j.impulse))
		wB += j.iB * j.impulse * j.jwB
		vC = vC.Sub(j.jvAC.Mul(j.mC * j.impulse))
		wC -= j.iC * j.impulse * j.jwC
		vD = vD.Sub(j.jvBD.Mul(j.mD * j.impulse))
		wD -= j.iD * j.impulse * j.jwD
	} else {
		j.impulse = 0
	}

	sd.velocities[j.indexA] = solverVelocity{vA, wA}
	sd.velocities[j.indexB] = solverVelocity{vB, wB}
	sd.velocities[j.indexC] = solverVelocity{vC, wC}
	sd.velocities[j.indexD] = solverVelocity{vD, wD}
}

func (j *gearJointImpl) solveVelocityConstraints(w *World, sd jointSolverData) {
	vA, wA := sd.velocities[j.indexA].v, sd.velocities[j.indexA].w
	vB, wB := sd.velocities[j.indexB].v, sd.velocities[j.indexB].w
	vC, wC := sd.velocities[j.indexC].v, sd.velocities[j.indexC].w
	vD, wD := sd.velocities[j.indexD].v, sd.velocities[j.indexD].w

	cdot := geom.Dot(j.jvAC, vA.Sub(vC)) + geom.Dot(j.jvBD, vB.Sub(vD))
	cdot += (j.jwA*wA - j.jwC*wC) + (j.jwB*wB - j.jwD*wD)

	impulse := -j.mass * cdot
	j.impulse += impulse

	vA = vA.Add(j.jvAC.Mul(j.mA * impulse))
	wA += j.iA * impulse * j.jwA
	vB = vB.Add(j.jvBD.Mul(j.mB * impulse))
	wB += j.iB * impulse * j.jwB
	vC = vC.Sub(j.jvAC.Mul(j.mC * impulse))
	wC -= j.iC * impulse * j.jwC
	vD = vD.Sub(j.jvBD.Mul(j.mD * impulse))
	wD -= j.iD * impulse * j.jwD

	sd.velocities[j.indexA] = solverVelocity{vA, wA}
	sd.velocities[j.indexB] = solverVelocity{vB, wB}
	sd.velocities[j.indexC] = solverVelocity{vC, wC}
	sd.velocities[j.indexD] = solverVelocity{vD, wD}
}

func (j *gearJointImpl) solvePositionConstraints(w *World, sd jointSolverData) bool {
	cA, aA := sd.positions[j.indexA].c, sd.positions[j.indexA].a
	cB, aB := sd.positions[j.indexB].c, sd.positions[j.indexB].a
	cC, aC := sd.positions[j.indexC].c, sd.positions[j.indexC].a
	cD, aD := sd.positions[j.indexD].c, sd.positions[j.indexD].a

	qA, qB := geom.RotFromAngle(aA), geom.RotFromAngle(aB)
	qC, qD := geom.RotFromAngle(aC), geom.RotFromAngle(aD)

	coordinateA, coordinateB := 0.0, 0.0

	var jvAC, jvBD geom.Vec2
	var jwA, jwB, jwC, jwD float64
	mass := 0.0

	if j.typeA == RevoluteJoint {
		jvAC = geom.Zero2
		jwA, jwC = 1, 1
		mass += j.iA + j.iC

		coordinateA = aA - aC - j.referenceAngleA
	} else {
		u := geom.MulRotVec2(qC, j.localAxisC)
		rC := geom.MulRotVec2(qC, j.localAnchorC.Sub(j.lcC))
		rA := geom.MulRotVec2(qA, j.localAnchorA.Sub(j.lcA))
		jvAC = u
		jwC = geom.Cross(rC, u)
		jwA = geom.Cross(rA, u)
		mass += j.mC + j.mA + j.iC*jwC*jwC + j.iA*jwA*jwA

		pC := j.localAnchorC.Sub(j.lcC)
		pA := geom.MulTRotVec2(qC, rA.Add(cA.Sub(cC)))
		coordinateA = geom.Dot(pA.Sub(pC), j.localAxisC)
	}

	if j.typeB == RevoluteJoint {
		jvBD = geom.Zero2
		jwB, jwD = j.ratio, j.ratio
		mass += j.ratio * j.ratio * (j.iB + j.iD)

		coordinateB = aB - aD - j.referenceAngleB
	} else {
		u := geom.MulRotVec2(qD, j.localAxisD)
		rD := geom.MulRotVec2(qD, j.localAnchorD.Sub(j.lcD))
		rB := geom.MulRotVec2(qB, j.localAnchorB.Sub(j.lcB))
		jvBD = u.Mul(j.ratio)
		jwD = j.ratio * geom.Cross(rD, u)
		jwB = j.ratio * geom.Cross(rB, u)
		mass += j.ratio*j.ratio*(j.mD+j.mB) + j.iD*jwD*jwD + j.iB*jwB*jwB

		pD := j.localAnchorD.Sub(j.lcD)
		pB := geom.MulTRotVec2(qD, rB.Add(cB.Sub(cD)))
		coordinateB = geom.Dot(pB.Sub(pD), j.localAxisD)
	}

	c := (coordinateA + j.ratio*coordinateB) - j.constant

	impulse := 0.0
	if mass > 0 {
		impulse = -c / mass
	}

	cA = cA.Add(jvAC.Mul(j.mA * impulse))
	aA += j.iA * impulse * jwA
	cB = cB.Add(jvBD.Mul(j.mB * impulse))
	aB += j.iB * impulse * jwB
	cC = cC.Sub(jvAC.Mul(j.mC * impulse))
	aC -= j.iC * impulse * jwC
	cD = cD.Sub(jvBD.Mul(j.mD * impulse))
	aD -= j.iD * impulse * jwD

	sd.positions[j.indexA] = solverPosition{cA, aA}
	sd.positions[j.indexB] = solverPosition{cB, aB}
	sd.positions[j.indexC] = solverPosition{cC, aC}
	sd.positions[j.indexD] = solverPosition{cD, aD}

	return true
}

func (j *gearJointImpl) reactionForce(invDt float64) geom.Vec2 {
	return j.jvAC.Mul(invDt * j.impulse)
}

func (j *gearJointImpl) reactionTorque(invDt float64) float64 {
	return invDt * j.impulse * j.jwA
}

func (j *gearJointImpl) coordinate(w *World) float64 { return 0 }
func (j *gearJointImpl) coordinateSpeed(w *World) float64 { return 0 }
