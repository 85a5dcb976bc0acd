package impulse2d

import "github.com/seongjinhong-ca/impulse2d/geom"

// motorJointImpl drives bodyB toward a fixed linear and angular offset
// from bodyA, typically used to script a dynamic body's motion relative
// to the ground. It blends a position-error bias into the velocity
// solve rather than running a separate position pass.
type motorJointImpl struct {
	bodyA, bodyB BodyID

	linearOffset     geom.Vec2
	angularOffset    float64
	linearImpulse    geom.Vec2
	angularImpulse   float64
	maxForce         float64
	maxTorque        float64
	correctionFactor float64

	indexA, indexB             int
	rA, rB                     geom.Vec2
	localCenterA, localCenterB geom.Vec2
	linearError                geom.Vec2
	angularError               float64
	invMassA, invMassB         float64
	invIA, invIB               float64
	linearMass                 geom.Mat22
	angularMass                float64
}

func newMotorJoint(conf JointConf) *motorJointImpl {
	correction := conf.CorrectionFactor
	if correction == 0 {
		correction = 0.3
	}
	return &motorJointImpl{
		bodyA:            conf.BodyA,
		bodyB:            conf.BodyB,
		linearOffset:     conf.LinearOffset,
		angularOffset:    conf.AngularOffset,
		maxForce:         conf.MaxForceLinear,
		maxTorque:        conf.MaxTorque,
		correctionFactor: correction,
	}
}

func (j *motorJointImpl) initVelocityConstraints(w *World, sd jointSolverData) {
	bA := &w.bodies[j.bodyA.index]
	bB := &w.bodies[j.bodyB.index]

	j.indexA, j.indexB = bA.islandIndex, bB.islandIndex
	j.localCenterA, j.localCenterB = bA.sweep.LocalCenter, bB.sweep.LocalCenter
	j.invMassA, j.invMassB = bA.invMass, bB.invMass
	j.invIA, j.invIB = bA.invI, bB.invI

	cA, aA := sd.positions[j.indexA].c, sd.positions[j.indexA].a
	vA, wA := sd.velocities[j.indexA].v, sd.velocities[j.indexA].w
	cB, aB := sd.positions[j.indexB].c, sd.positions[j.indexB].a
	vB, wB := sd.velocities[j.indexB].v, sd.velocities[j.indexB].w

	qA, qB := geom.RotFromAngle(aA), geom.RotFromAngle(aB)

	j.rA = geom.MulRotVec2(qA, j.localCenterA.Neg())
	j.rB = geom.MulRotVec2(qB, j.localCenterB.Neg())

	mA, mB, iA, iB := j.invMassA, j.invMassB, j.invIA, j.invIB

	k := geom.Mat22{}
	k.Ex.X = mA + mB + iA*j.rA.Y*j.rA.Y + iB*j.rB.Y*j.rB.Y
	k.Ex.Y = -iA*j.rA.X*j.rA.Y - iB*j.rB.X*j.rB.Y
	k.Ey.X = k.Ex.Y
	k.Ey.Y = mA + mB + iA*j.rA.X*j.rA.X + iB*j.rB.X*j.rB.X

	j.linearMass = k.Inverse()

	j.angularMass = iA + iB
	if j.angularMass > 0 {
		j.angularMass = 1.0 / j.angularMass
	}

	j.linearError = cB.Add(j.rB).Sub(cA).Sub(j.rA).Sub(geom.MulRotVec2(qA, j.linearOffset))
	j.angularError = aB - aA - j.angularOffset

	if sd.step.warmStarting {
		j.linearImpulse = j.linearImpulse.Mul(sd.step.dtRatio)
		j.angularImpulse *= sd.step.dtRatio

		p := j.linearImpulse

		vA = vA.Sub(p.Mul(mA))
		wA -= iA * (geom.Cross(j.rA, p) + j.angularImpulse)

		vB = vB.Add(p.Mul(mB))
		wB += iB * (geom.Cross(j.rB, p) + j.angularImpulse)
	} else {
		j.linearImpulse = geom.Zero2
		j.angularImpulse = 0
	}

	sd.velocities[j.indexA] = solverVelocity{vA, wA}
	sd.velocities[j.indexB] = solverVelocity{vB, wB}
}

func (j *motorJointImpl) solveVelocityConstraints(w *World, sd jointSolverData) {
	vA, wA := sd.velocities[j.indexA].v, sd.velocities[j.indexA].w
	vB, wB := sd.velocities[j.indexB].v, sd.velocities[j.indexB].w

	mA, mB, iA, iB := j.invMassA, j.invMassB, j.invIA, j.invIB

	h := sd.step.dt
	invH := sd.step.invDt

	{
		cdot := wB - wA + invH*j.correctionFactor*j.angularError
		impulse := -j.angularMass * cdot

		oldImpulse := j.angularImpulse
		maxImpulse := h * j.maxTorque
		j.angularImpulse = clampFloat(j.angularImpulse+impulse, -maxImpulse, maxImpulse)
		impulse = j.angularImpulse - oldImpulse

		wA -= iA * impulse
		wB += iB * impulse
	}

	{
		cdot := vB.Add(geom.CrossSV(wB, j.rB)).Sub(vA).Sub(geom.CrossSV(wA, j.rA)).Add(j.linearError.Mul(invH * j.correctionFactor))

		impulse := geom.MulMV(j.linearMass, cdot).Neg()
		oldImpulse := j.linearImpulse
		j.linearImpulse = j.linearImpulse.Add(impulse)

		maxImpulse := h * j.maxForce
		if j.linearImpulse.LengthSquared() > maxImpulse*maxImpulse {
			n, _ := j.linearImpulse.Normalize()
			j.linearImpulse = n.Mul(maxImpulse)
		}

		impulse = j.linearImpulse.Sub(oldImpulse)

		vA = vA.Sub(impulse.Mul(mA))
		wA -= iA * geom.Cross(j.rA, impulse)

		vB = vB.Add(impulse.Mul(mB))
		wB += iB * geom.Cross(j.rB, impulse)
	}

	sd.velocities[j.indexA] = solverVelocity{vA, wA}
	sd.velocities[j.indexB] = solverVelocity{vB, wB}
}

func (j *motorJointImpl) solvePositionConstraints(w *World, sd jointSolverData) bool {
	return true
}

func (j *motorJointImpl) reactionForce(invDt float64) geom.Vec2 {
	return j.linearImpulse.Mul(invDt)
}

func (j *motorJointImpl) reactionTorque(invDt float64) float64 {
	return invDt * j.angularImpulse
}

func (j *motorJointImpl) coordinate(w *World) float64 { return 0 }
func (j *motorJointImpl) coordinateSpeed(w *World) float64 { return 0 }
