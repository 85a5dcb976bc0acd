package impulse2d

import (
	"math"

	"github.com/seongjinhong-ca/impulse2d/geom"
)

// distanceJointImpl constrains two anchor points to a fixed length apart,
// optionally softened into a mass-spring-damper when FrequencyHz > 0.
type distanceJointImpl struct {
	bodyA, bodyB BodyID

	localAnchorA, localAnchorB geom.Vec2
	length                     float64
	frequencyHz                float64
	dampingRatio               float64

	impulse float64
	gamma   float64
	bias    float64

	indexA, indexB             int
	u                          geom.Vec2
	rA, rB                     geom.Vec2
	localCenterA, localCenterB geom.Vec2
	invMassA, invMassB         float64
	invIA, invIB               float64
	mass                       float64
}

func newDistanceJoint(conf JointConf) *distanceJointImpl {
	return &distanceJointImpl{
		bodyA:        conf.BodyA,
		bodyB:        conf.BodyB,
		localAnchorA: conf.LocalAnchorA,
		localAnchorB: conf.LocalAnchorB,
		length:       conf.Length,
		frequencyHz:  conf.FrequencyHz,
		dampingRatio: conf.DampingRatio,
	}
}

func (j *distanceJointImpl) initVelocityConstraints(w *World, sd jointSolverData) {
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

	length := j.u.Length()
	if length > geom.LinearSlop {
		j.u = j.u.Mul(1.0 / length)
	} else {
		j.u = geom.Zero2
	}

	crAu := geom.Cross(j.rA, j.u)
	crBu := geom.Cross(j.rB, j.u)
	invMass := j.invMassA + j.invIA*crAu*crAu + j.invMassB + j.invIB*crBu*crBu
	if invMass != 0 {
		j.mass = 1.0 / invMass
	}

	if j.frequencyHz > 0 {
		c := length - j.length
		omega := 2.0 * geom.Pi * j.frequencyHz
		d := 2.0 * j.mass * j.dampingRatio * omega
		k := j.mass * omega * omega

		h := sd.step.dt
		j.gamma = h * (d + h*k)
		if j.gamma != 0 {
			j.gamma = 1.0 / j.gamma
		}
		j.bias = c * h * k * j.gamma

		invMass += j.gamma
		if invMass != 0 {
			j.mass = 1.0 / invMass
		} else {
			j.mass = 0
		}
	} else {
		j.gamma, j.bias = 0, 0
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

func (j *distanceJointImpl) solveVelocityConstraints(w *World, sd jointSolverData) {
	vA, wA := sd.velocities[j.indexA].v, sd.velocities[j.indexA].w
	vB, wB := sd.velocities[j.indexB].v, sd.velocities[j.indexB].w

	vpA := vA.Add(geom.CrossSV(wA, j.rA))
	vpB := vB.Add(geom.CrossSV(wB, j.rB))
	cdot := geom.Dot(j.u, vpB.Sub(vpA))

	impulse := -j.mass * (cdot + j.bias + j.gamma*j.impulse)
	j.impulse += impulse

	p := j.u.Mul(impulse)
	vA = vA.Sub(p.Mul(j.invMassA))
	wA -= j.invIA * geom.Cross(j.rA, p)
	vB = vB.Add(p.Mul(j.invMassB))
	wB += j.invIB * geom.Cross(j.rB, p)

	sd.velocities[j.indexA] = solverVelocity{vA, wA}
	sd.velocities[j.indexB] = solverVelocity{vB, wB}
}

func (j *distanceJointImpl) solvePositionConstraints(w *World, sd jointSolverData) bool {
	if j.frequencyHz > 0 {
		return true
	}

	cA, aA := sd.positions[j.indexA].c, sd.positions[j.indexA].a
	cB, aB := sd.positions[j.indexB].c, sd.positions[j.indexB].a

	qA, qB := geom.RotFromAngle(aA), geom.RotFromAngle(aB)
	rA := geom.MulRotVec2(qA, j.localAnchorA.Sub(j.localCenterA))
	rB := geom.MulRotVec2(qB, j.localAnchorB.Sub(j.localCenterB))
	u := cB.Add(rB).Sub(cA).Sub(rA)

	unit, length := u.Normalize()
	c := clampFloat(length-j.length, -geom.MaxLinearCorrection, geom.MaxLinearCorrection)

	impulse := -j.mass * c
	p := unit.Mul(impulse)

	cA = cA.Sub(p.Mul(j.invMassA))
	aA -= j.invIA * geom.Cross(rA, p)
	cB = cB.Add(p.Mul(j.invMassB))
	aB += j.invIB * geom.Cross(rB, p)

	sd.positions[j.indexA] = solverPosition{cA, aA}
	sd.positions[j.indexB] = solverPosition{cB, aB}

	return math.Abs(c) < geom.LinearSlop
}

func (j *distanceJointImpl) reactionForce(invDt float64) geom.Vec2 {
	return j.u.Mul(invDt * j.impulse)
}

func (j *distanceJointImpl) reactionTorque(invDt float64) float64 {
	return 0
}

func (j *distanceJointImpl) coordinate(w *World) float64 { return 0 }
func (j *distanceJointImpl) coordinateSpeed(w *World) float64 { return 0 }
