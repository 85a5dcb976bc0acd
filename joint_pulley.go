package impulse2d

import (
	"math"

	"github.com/seongjinhong-ca/impulse2d/geom"
)

// pulleyJointImpl ties two bodies to two fixed ground anchors through a
// shared rope of constant total length, scaled by Ratio on bodyB's side
// to simulate a block-and-tackle.
type pulleyJointImpl struct {
	bodyA, bodyB BodyID

	groundAnchorA, groundAnchorB geom.Vec2
	lengthA, lengthB             float64

	localAnchorA, localAnchorB geom.Vec2
	constant                   float64
	ratio                      float64
	impulse                    float64

	indexA, indexB             int
	uA, uB                     geom.Vec2
	rA, rB                     geom.Vec2
	localCenterA, localCenterB geom.Vec2
	invMassA, invMassB         float64
	invIA, invIB               float64
	mass                       float64
}

func newPulleyJoint(conf JointConf) *pulleyJointImpl {
	ratio := conf.Ratio
	if ratio == 0 {
		ratio = 1
	}
	return &pulleyJointImpl{
		bodyA:         conf.BodyA,
		bodyB:         conf.BodyB,
		groundAnchorA: conf.GroundAnchorA,
		groundAnchorB: conf.GroundAnchorB,
		localAnchorA:  conf.LocalAnchorA,
		localAnchorB:  conf.LocalAnchorB,
		lengthA:       conf.LengthA,
		lengthB:       conf.LengthB,
		ratio:         ratio,
		constant:      conf.LengthA + ratio*conf.LengthB,
	}
}

func (j *pulleyJointImpl) initVelocityConstraints(w *World, sd jointSolverData) {
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
	j.rA = geom.MulRotVec2(qA, j.localAnchorA.Sub(j.localCenterA))
	j.rB = geom.MulRotVec2(qB, j.localAnchorB.Sub(j.localCenterB))

	j.uA = cA.Add(j.rA).Sub(j.groundAnchorA)
	j.uB = cB.Add(j.rB).Sub(j.groundAnchorB)

	lengthA := j.uA.Length()
	lengthB := j.uB.Length()

	if lengthA > 10.0*geom.LinearSlop {
		j.uA = j.uA.Mul(1.0 / lengthA)
	} else {
		j.uA = geom.Zero2
	}

	if lengthB > 10.0*geom.LinearSlop {
		j.uB = j.uB.Mul(1.0 / lengthB)
	} else {
		j.uB = geom.Zero2
	}

	ruA := geom.Cross(j.rA, j.uA)
	ruB := geom.Cross(j.rB, j.uB)

	mA := j.invMassA + j.invIA*ruA*ruA
	mB := j.invMassB + j.invIB*ruB*ruB

	j.mass = mA + j.ratio*j.ratio*mB
	if j.mass > 0 {
		j.mass = 1.0 / j.mass
	}

	if sd.step.warmStarting {
		j.impulse *= sd.step.dtRatio

		pA := j.uA.Mul(-j.impulse)
		pB := j.uB.Mul(-j.ratio * j.impulse)

		vA = vA.Add(pA.Mul(j.invMassA))
		wA += j.invIA * geom.Cross(j.rA, pA)
		vB = vB.Add(pB.Mul(j.invMassB))
		wB += j.invIB * geom.Cross(j.rB, pB)
	} else {
		j.impulse = 0
	}

	sd.velocities[j.indexA] = solverVelocity{vA, wA}
	sd.velocities[j.indexB] = solverVelocity{vB, wB}
}

func (j *pulleyJointImpl) solveVelocityConstraints(w *World, sd jointSolverData) {
	vA, wA := sd.velocities[j.indexA].v, sd.velocities[j.indexA].w
	vB, wB := sd.velocities[j.indexB].v, sd.velocities[j.indexB].w

	vpA := vA.Add(geom.CrossSV(wA, j.rA))
	vpB := vB.Add(geom.CrossSV(wB, j.rB))

	cdot := -geom.Dot(j.uA, vpA) - j.ratio*geom.Dot(j.uB, vpB)
	impulse := -j.mass * cdot
	j.impulse += impulse

	pA := j.uA.Mul(-impulse)
	pB := j.uB.Mul(-j.ratio * impulse)
	vA = vA.Add(pA.Mul(j.invMassA))
	wA += j.invIA * geom.Cross(j.rA, pA)
	vB = vB.Add(pB.Mul(j.invMassB))
	wB += j.invIB * geom.Cross(j.rB, pB)

	sd.velocities[j.indexA] = solverVelocity{vA, wA}
	sd.velocities[j.indexB] = solverVelocity{vB, wB}
}

func (j *pulleyJointImpl) solvePositionConstraints(w *World, sd jointSolverData) bool {
	cA, aA := sd.positions[j.indexA].c, sd.positions[j.indexA].a
	cB, aB := sd.positions[j.indexB].c, sd.positions[j.indexB].a

	qA, qB := geom.RotFromAngle(aA), geom.RotFromAngle(aB)

	rA := geom.MulRotVec2(qA, j.localAnchorA.Sub(j.localCenterA))
	rB := geom.MulRotVec2(qB, j.localAnchorB.Sub(j.localCenterB))

	uA := cA.Add(rA).Sub(j.groundAnchorA)
	uB := cB.Add(rB).Sub(j.groundAnchorB)

	lengthA := uA.Length()
	lengthB := uB.Length()

	if lengthA > 10.0*geom.LinearSlop {
		uA = uA.Mul(1.0 / lengthA)
	} else {
		uA = geom.Zero2
	}

	if lengthB > 10.0*geom.LinearSlop {
		uB = uB.Mul(1.0 / lengthB)
	} else {
		uB = geom.Zero2
	}

	ruA := geom.Cross(rA, uA)
	ruB := geom.Cross(rB, uB)

	mA := j.invMassA + j.invIA*ruA*ruA
	mB := j.invMassB + j.invIB*ruB*ruB

	mass := mA + j.ratio*j.ratio*mB
	if mass > 0 {
		mass = 1.0 / mass
	}

	c := j.constant - lengthA - j.ratio*lengthB
	linearError := math.Abs(c)

	impulse := -mass * c

	pA := uA.Mul(-impulse)
	pB := uB.Mul(-j.ratio * impulse)

	cA = cA.Add(pA.Mul(j.invMassA))
	aA += j.invIA * geom.Cross(rA, pA)
	cB = cB.Add(pB.Mul(j.invMassB))
	aB += j.invIB * geom.Cross(rB, pB)

	sd.positions[j.indexA] = solverPosition{cA, aA}
	sd.positions[j.indexB] = solverPosition{cB, aB}

	return linearError < geom.LinearSlop
}

func (j *pulleyJointImpl) reactionForce(invDt float64) geom.Vec2 {
	return j.uB.Mul(invDt * j.impulse)
}

func (j *pulleyJointImpl) reactionTorque(invDt float64) float64 {
	return 0
}

func (j *pulleyJointImpl) coordinate(w *World) float64 { return 0 }
func (j *pulleyJointImpl) coordinateSpeed(w *World) float64 { return 0 }
