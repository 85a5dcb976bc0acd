package impulse2d

import (
	"math"

	"github.com/seongjinhong-ca/impulse2d/geom"
)

// wheelJointImpl is a point-to-line constraint along an axis fixed in
// bodyA, softened by a linear spring-damper and optionally driven by a
// rotational motor. Modeled for vehicle suspensions.
type wheelJointImpl struct {
	bodyA, bodyB BodyID

	frequencyHz  float64
	dampingRatio float64

	localAnchorA, localAnchorB geom.Vec2
	localXAxisA, localYAxisA   geom.Vec2

	impulse       float64
	motorImpulse  float64
	springImpulse float64

	maxMotorTorque float64
	motorSpeed     float64
	enableMotor    bool

	indexA, indexB             int
	localCenterA, localCenterB geom.Vec2
	invMassA, invMassB         float64
	invIA, invIB               float64

	ax, ay     geom.Vec2
	sAx, sBx   float64
	sAy, sBy   float64

	mass       float64
	motorMass  float64
	springMass float64

	bias  float64
	gamma float64
}

func newWheelJoint(conf JointConf) *wheelJointImpl {
	axis, _ := conf.LocalAxisA.Normalize()
	if axis == geom.Zero2 {
		axis = geom.Vec2{X: 1, Y: 0}
	}
	freq := conf.FrequencyHz
	if freq == 0 {
		freq = 2.0
	}
	damping := conf.DampingRatio
	if damping == 0 {
		damping = 0.7
	}
	return &wheelJointImpl{
		bodyA:          conf.BodyA,
		bodyB:          conf.BodyB,
		localAnchorA:   conf.LocalAnchorA,
		localAnchorB:   conf.LocalAnchorB,
		localXAxisA:    axis,
		localYAxisA:    geom.CrossSV(1, axis),
		maxMotorTorque: conf.MaxMotorTorque,
		motorSpeed:     conf.MotorSpeed,
		enableMotor:    conf.EnableMotor,
		frequencyHz:    freq,
		dampingRatio:   damping,
	}
}

func (j *wheelJointImpl) initVelocityConstraints(w *World, sd jointSolverData) {
	bA := &w.bodies[j.bodyA.index]
	bB := &w.bodies[j.bodyB.index]

	j.indexA, j.indexB = bA.islandIndex, bB.islandIndex
	j.localCenterA, j.localCenterB = bA.sweep.LocalCenter, bB.sweep.LocalCenter
	j.invMassA, j.invMassB = bA.invMass, bB.invMass
	j.invIA, j.invIB = bA.invI, bB.invI

	mA, mB, iA, iB := j.invMassA, j.invMassB, j.invIA, j.invIB

	cA, aA := sd.positions[j.indexA].c, sd.positions[j.indexA].a
	vA, wA := sd.velocities[j.indexA].v, sd.velocities[j.indexA].w
	cB, aB := sd.positions[j.indexB].c, sd.positions[j.indexB].a
	vB, wB := sd.velocities[j.indexB].v, sd.velocities[j.indexB].w

	qA, qB := geom.RotFromAngle(aA), geom.RotFromAngle(aB)

	rA := geom.MulRotVec2(qA, j.localAnchorA.Sub(j.localCenterA))
	rB := geom.MulRotVec2(qB, j.localAnchorB.Sub(j.localCenterB))
	d := cB.Sub(cA).Add(rB).Sub(rA)

	j.ay = geom.MulRotVec2(qA, j.localYAxisA)
	j.sAy = geom.Cross(d.Add(rA), j.ay)
	j.sBy = geom.Cross(rB, j.ay)

	j.mass = mA + mB + iA*j.sAy*j.sAy + iB*j.sBy*j.sBy
	if j.mass > 0 {
		j.mass = 1.0 / j.mass
	}

	j.springMass = 0
	j.bias = 0
	j.gamma = 0
	if j.frequencyHz > 0 {
		j.ax = geom.MulRotVec2(qA, j.localXAxisA)
		j.sAx = geom.Cross(d.Add(rA), j.ax)
		j.sBx = geom.Cross(rB, j.ax)

		invMass := mA + mB + iA*j.sAx*j.sAx + iB*j.sBx*j.sBx

		if invMass > 0 {
			j.springMass = 1.0 / invMass

			c := geom.Dot(d, j.ax)

			omega := 2.0 * geom.Pi * j.frequencyHz
			damp := 2.0 * j.springMass * j.dampingRatio * omega
			k := j.springMass * omega * omega

			h := sd.step.dt
			j.gamma = h * (damp + h*k)
			if j.gamma > 0 {
				j.gamma = 1.0 / j.gamma
			}

			j.bias = c * h * k * j.gamma

			j.springMass = invMass + j.gamma
			if j.springMass > 0 {
				j.springMass = 1.0 / j.springMass
			}
		}
	} else {
		j.springImpulse = 0
	}

	if j.enableMotor {
		j.motorMass = iA + iB
		if j.motorMass > 0 {
			j.motorMass = 1.0 / j.motorMass
		}
	} else {
		j.motorMass = 0
		j.motorImpulse = 0
	}

	if sd.step.warmStarting {
		j.impulse *= sd.step.dtRatio
		j.springImpulse *= sd.step.dtRatio
		j.motorImpulse *= sd.step.dtRatio

		p := j.ay.Mul(j.impulse).Add(j.ax.Mul(j.springImpulse))
		la := j.impulse*j.sAy + j.springImpulse*j.sAx + j.motorImpulse
		lb := j.impulse*j.sBy + j.springImpulse*j.sBx + j.motorImpulse

		vA = vA.Sub(p.Mul(j.invMassA))
		wA -= j.invIA * la

		vB = vB.Add(p.Mul(j.invMassB))
		wB += j.invIB * lb
	} else {
		j.impulse, j.springImpulse, j.motorImpulse = 0, 0, 0
	}

	sd.velocities[j.indexA] = solverVelocity{vA, wA}
	sd.velocities[j.indexB] = solverVelocity{vB, wB}
}

func (j *wheelJointImpl) solveVelocityConstraints(w *World, sd jointSolverData) {
	mA, mB, iA, iB := j.invMassA, j.invMassB, j.invIA, j.invIB

	vA, wA := sd.velocities[j.indexA].v, sd.velocities[j.indexA].w
	vB, wB := sd.velocities[j.indexB].v, sd.velocities[j.indexB].w

	{
		cdot := geom.Dot(j.ax, vB.Sub(vA)) + j.sBx*wB - j.sAx*wA
		impulse := -j.springMass * (cdot + j.bias + j.gamma*j.springImpulse)
		j.springImpulse += impulse

		p := j.ax.Mul(impulse)
		la := impulse * j.sAx
		lb := impulse * j.sBx

		vA = vA.Sub(p.Mul(mA))
		wA -= iA * la

		vB = vB.Add(p.Mul(mB))
		wB += iB * lb
	}

	{
		cdot := wB - wA - j.motorSpeed
		impulse := -j.motorMass * cdot

		oldImpulse := j.motorImpulse
		maxImpulse := sd.step.dt * j.maxMotorTorque
		j.motorImpulse = clampFloat(j.motorImpulse+impulse, -maxImpulse, maxImpulse)
		impulse = j.motorImpulse - oldImpulse

		wA -= iA * impulse
		wB += iB * impulse
	}

	{
		cdot := geom.Dot(j.ay, vB.Sub(vA)) + j.sBy*wB - j.sAy*wA
		impulse := -j.mass * cdot
		j.impulse += impulse

		p := j.ay.Mul(impulse)
		la := impulse * j.sAy
		lb := impulse * j.sBy

		vA = vA.Sub(p.Mul(mA))
		wA -= iA * la

		vB = vB.Add(p.Mul(mB))
		wB += iB * lb
	}

	sd.velocities[j.indexA] = solverVelocity{vA, wA}
	sd.velocities[j.indexB] = solverVelocity{vB, wB}
}

func (j *wheelJointImpl) solvePositionConstraints(w *World, sd jointSolverData) bool {
	cA, aA := sd.positions[j.indexA].c, sd.positions[j.indexA].a
	cB, aB := sd.positions[j.indexB].c, sd.positions[j.indexB].a

	qA, qB := geom.RotFromAngle(aA), geom.RotFromAngle(aB)

	rA := geom.MulRotVec2(qA, j.localAnchorA.Sub(j.localCenterA))
	rB := geom.MulRotVec2(qB, j.localAnchorB.Sub(j.localCenterB))
	d := cB.Sub(cA).Add(rB).Sub(rA)

	ay := geom.MulRotVec2(qA, j.localYAxisA)

	sAy := geom.Cross(d.Add(rA), ay)
	sBy := geom.Cross(rB, ay)

	c := geom.Dot(d, ay)

	k := j.invMassA + j.invMassB + j.invIA*j.sAy*j.sAy + j.invIB*j.sBy*j.sBy

	impulse := 0.0
	if k != 0 {
		impulse = -c / k
	}

	p := ay.Mul(impulse)
	la := impulse * sAy
	lb := impulse * sBy

	cA = cA.Sub(p.Mul(j.invMassA))
	aA -= j.invIA * la
	cB = cB.Add(p.Mul(j.invMassB))
	aB += j.invIB * lb

	sd.positions[j.indexA] = solverPosition{cA, aA}
	sd.positions[j.indexB] = solverPosition{cB, aB}

	return math.Abs(c) <= geom.LinearSlop
}

func (j *wheelJointImpl) reactionForce(invDt float64) geom.Vec2 {
	p := j.ay.Mul(j.impulse).Add(j.ax.Mul(j.springImpulse))
	return p.Mul(invDt)
}

func (j *wheelJointImpl) reactionTorque(invDt float64) float64 {
	return invDt * j.motorImpulse
}

// coordinate reports the suspension-axis translation of bodyB's anchor
// relative to bodyA's anchor, the counterpart of the teacher's
// GetJointTranslation.
func (j *wheelJointImpl) coordinate(w *World) float64 {
	bA := &w.bodies[j.bodyA.index]
	bB := &w.bodies[j.bodyB.index]
	pA := worldPoint(bA, j.localAnchorA)
	pB := worldPoint(bB, j.localAnchorB)
	d := pB.Sub(pA)
	axis := worldVector(bA, j.localXAxisA)
	return geom.Dot(d, axis)
}

func (j *wheelJointImpl) coordinateSpeed(w *World) float64 {
	bA := &w.bodies[j.bodyA.index]
	bB := &w.bodies[j.bodyB.index]

	rA := geom.MulRotVec2(bA.xf.Q, j.localAnchorA.Sub(bA.sweep.LocalCenter))
	rB := geom.MulRotVec2(bB.xf.Q, j.localAnchorB.Sub(bB.sweep.LocalCenter))
	p1 := bA.sweep.C.Add(rA)
	p2 := bB.sweep.C.Add(rB)
	d := p2.Sub(p1)
	axis := geom.MulRotVec2(bA.xf.Q, j.localXAxisA)

	vA, vB := bA.linearVelocity, bB.linearVelocity
	wA, wB := bA.angularVelocity, bB.angularVelocity

	return geom.Dot(d, geom.CrossSV(wA, axis)) +
		geom.Dot(axis, vB.Add(geom.CrossSV(wB, rB)).Sub(vA).Sub(geom.CrossSV(wA, rA)))
}
