package impulse2d

import (
	"math"

	"github.com/seongjinhong-ca/impulse2d/geom"
)

// ropeJointImpl enforces a maximum distance between two anchors and has
// no effect while the rope is slack.
type ropeJointImpl struct {
	localAnchorA, localAnchorB geom.Vec2
	maxLength                  float64
	length                     float64
	impulse                    float64

	bodyA, bodyB BodyID

	indexA, indexB             int
	u, rA, rB                  geom.Vec2
	localCenterA, localCenterB geom.Vec2
	invMassA, invMassB         float64
	invIA, invIB               float64
	mass                       float64
	state                      LimitState
}

func newRopeJoint(conf JointConf) *ropeJointImpl {
	return &ropeJointImpl{
		bodyA:        conf.BodyA,
		bodyB:        conf.BodyB,
		localAnchorA: conf.LocalAnchorA,
		localAnchorB: conf.LocalAnchorB,
		maxLength:    conf.MaxLength,
	}
}

func (j *ropeJointImpl) initVelocityConstraints(w *World, sd jointSolverData) {
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
	j.u = cB.Add(j.rB).Sub(cA).Sub(j.rA)

	j.length = j.u.Length()

	c := j.length - j.maxLength
	if c > 0 {
		j.state = LimitAtUpper
	} else {
		j.state = LimitInactive
	}

	if j.length > geom.LinearSlop {
		j.u = j.u.Mul(1.0 / j.length)
	} else {
		j.u = geom.Zero2
		j.mass = 0
		j.impulse = 0
		return
	}

	crA := geom.Cross(j.rA, j.u)
	crB := geom.Cross(j.rB, j.u)
	invMass := j.invMassA + j.invIA*crA*crA + j.invMassB + j.invIB*crB*crB
	if invMass != 0 {
		j.mass = 1.0 / invMass
	}

	if sd.step.warmStarting {
		j.impulse *= sd.step.dtRatio
		p := j.u.Mul(j.impulse)
		vA = vA.Sub(p.Mul(j.invMassA))
		wA -= j.invIA * geom.Cross(j.rA, p)
		vB = vB.Add(p.Mul(j.invMassB))
		wB += j.invIB * geom.Cross(j.rB, p)
	} else {
		j.impulse = 0
	}

	sd.velocities[j.indexA] = solverVelocity{vA, wA}
	sd.velocities[j.indexB] = solverVelocity{vB, wB}
}

func (j *ropeJointImpl) solveVelocityConstraints(w *World, sd jointSolverData) {
	vA, wA := sd.velocities[j.indexA].v, sd.velocities[j.indexA].w
	vB, wB := sd.velocities[j.indexB].v, sd.velocities[j.indexB].w

	vpA := vA.Add(geom.CrossSV(wA, j.rA))
	vpB := vB.Add(geom.CrossSV(wB, j.rB))
	c := j.length - j.maxLength
	cdot := geom.Dot(j.u, vpB.Sub(vpA))

	if c < 0 {
		cdot += sd.step.invDt * c
	}

	impulse := -j.mass * cdot
	oldImpulse := j.impulse
	j.impulse = math.Min(0, j.impulse+impulse)
	impulse = j.impulse - oldImpulse

	p := j.u.Mul(impulse)
	vA = vA.Sub(p.Mul(j.invMassA))
	wA -= j.invIA * geom.Cross(j.rA, p)
	vB = vB.Add(p.Mul(j.invMassB))
	wB += j.invIB * geom.Cross(j.rB, p)

	sd.velocities[j.indexA] = solverVelocity{vA, wA}
	sd.velocities[j.indexB] = solverVelocity{vB, wB}
}

func (j *ropeJointImpl) solvePositionConstraints(w *World, sd jointSolverData) bool {
	cA, aA := sd.positions[j.indexA].c, sd.positions[j.indexA].a
	cB, aB := sd.positions[j.indexB].c, sd.positions[j.indexB].a

	qA, qB := geom.RotFromAngle(aA), geom.RotFromAngle(aB)
	rA := geom.MulRotVec2(qA, j.localAnchorA.Sub(j.localCenterA))
	rB := geom.MulRotVec2(qB, j.localAnchorB.Sub(j.localCenterB))
	u := cB.Add(rB).Sub(cA).Sub(rA)

	unit, length := u.Normalize()
	c := clampFloat(length-j.maxLength, 0, geom.MaxLinearCorrection)

	impulse := -j.mass * c
	p := unit.Mul(impulse)

	cA = cA.Sub(p.Mul(j.invMassA))
	aA -= j.invIA * geom.Cross(rA, p)
	cB = cB.Add(p.Mul(j.invMassB))
	aB += j.invIB * geom.Cross(rB, p)

	sd.positions[j.indexA] = solverPosition{cA, aA}
	sd.positions[j.indexB] = solverPosition{cB, aB}

	return length-j.maxLength < geom.LinearSlop
}

func (j *ropeJointImpl) reactionForce(invDt float64) geom.Vec2 {
	return j.u.Mul(invDt * j.impulse)
}

func (j *ropeJointImpl) reactionTorque(invDt float64) float64 {
	return 0
}

func (j *ropeJointImpl) coordinate(w *World) float64 { return 0 }
func (j *ropeJointImpl) coordinateSpeed(w *World) float64 { return 0 }
