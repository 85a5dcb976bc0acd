package impulse2d

import "github.com/seongjinhong-ca/impulse2d/geom"

// frictionJointImpl provides top-down 2D translational and angular
// friction between two bodies, each capped at a maximum impulse per
// step. It has no restoring force and performs no position correction.
type frictionJointImpl struct {
	bodyA, bodyB BodyID

	localAnchorA, localAnchorB geom.Vec2

	linearImpulse  geom.Vec2
	angularImpulse float64
	maxForce       float64
	maxTorque      float64

	indexA, indexB             int
	rA, rB                     geom.Vec2
	localCenterA, localCenterB geom.Vec2
	invMassA, invMassB         float64
	invIA, invIB               float64
	linearMass                 geom.Mat22
	angularMass                float64
}

func newFrictionJoint(conf JointConf) *frictionJointImpl {
	return &frictionJointImpl{
		bodyA:        conf.BodyA,
		bodyB:        conf.BodyB,
		localAnchorA: conf.LocalAnchorA,
		localAnchorB: conf.LocalAnchorB,
		maxForce:     conf.MaxForceLinear,
		maxTorque:    conf.MaxTorque,
	}
}

func (j *frictionJointImpl) initVelocityConstraints(w *World, sd jointSolverData) {
	bA := &w.bodies[j.bodyA.index]
	bB := &w.bodies[j.bodyB.index]

	j.indexA, j.indexB = bA.islandIndex, bB.islandIndex
	j.localCenterA, j.localCenterB = bA.sweep.LocalCenter, bB.sweep.LocalCenter
	j.invMassA, j.invMassB = bA.invMass, bB.invMass
	j.invIA, j.invIB = bA.invI, bB.invI

	aA := sd.positions[j.indexA].a
	vA, wA := sd.velocities[j.indexA].v, sd.velocities[j.indexA].w
	aB := sd.positions[j.indexB].a
	vB, wB := sd.velocities[j.indexB].v, sd.velocities[j.indexB].w

	qA, qB := geom.RotFromAngle(aA), geom.RotFromAngle(aB)

	j.rA = geom.MulRotVec2(qA, j.localAnchorA.Sub(j.localCenterA))
	j.rB = geom.MulRotVec2(qB, j.localAnchorB.Sub(j.localCenterB))

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

func (j *frictionJointImpl) solveVelocityConstraints(w *World, sd jointSolverData) {
	vA, wA := sd.velocities[j.indexA].v, sd.velocities[j.indexA].w
	vB, wB := sd.velocities[j.indexB].v, sd.velocities[j.indexB].w

	mA, mB, iA, iB := j.invMassA, j.invMassB, j.invIA, j.invIB

	h := sd.step.dt

	{
		cdot := wB - wA
		impulse := -j.angularMass * cdot

		oldImpulse := j.angularImpulse
		maxImpulse := h * j.maxTorque
		j.angularImpulse = clampFloat(j.angularImpulse+impulse, -maxImpulse, maxImpulse)
		impulse = j.angularImpulse - oldImpulse

		wA -= iA * impulse
		wB += iB * impulse
	}

	{
		cdot := vB.Add(geom.CrossSV(wB, j.rB)).Sub(vA).Sub(geom.CrossSV(wA, j.rA))

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

func (j *frictionJointImpl) solvePositionConstraints(w *World, sd jointSolverData) bool {
	return true
}

func (j *frictionJointImpl) reactionForce(invDt float64) geom.Vec2 {
	return j.linearImpulse.Mul(invDt)
}

func (j *frictionJointImpl) reactionTorque(invDt float64) float64 {
	return invDt * j.angularImpulse
}

func (j *frictionJointImpl) coordinate(w *World) float64 { return 0 }
func (j *frictionJointImpl) coordinateSpeed(w *World) float64 { return 0 }
