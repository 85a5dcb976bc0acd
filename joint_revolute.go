package impulse2d

import (
	"math"

	"github.com/seongjinhong-ca/impulse2d/geom"
)

// revoluteJointImpl pins two bodies to a common point and lets them rotate
// freely about it, optionally bounded by an angle limit and driven by a
// motor.
type revoluteJointImpl struct {
	bodyA, bodyB BodyID

	localAnchorA, localAnchorB geom.Vec2
	referenceAngle             float64

	impulse      geom.Vec3
	motorImpulse float64

	enableMotor    bool
	maxMotorTorque float64
	motorSpeed     float64

	enableLimit bool
	lowerAngle  float64
	upperAngle  float64

	indexA, indexB             int
	rA, rB                     geom.Vec2
	localCenterA, localCenterB geom.Vec2
	invMassA, invMassB         float64
	invIA, invIB               float64
	mass                       geom.Mat33
	motorMass                  float64
	limitState                 LimitState
}

func newRevoluteJoint(conf JointConf) *revoluteJointImpl {
	return &revoluteJointImpl{
		bodyA:          conf.BodyA,
		bodyB:          conf.BodyB,
		localAnchorA:   conf.LocalAnchorA,
		localAnchorB:   conf.LocalAnchorB,
		referenceAngle: conf.ReferenceAngle,
		enableMotor:    conf.EnableMotor,
		maxMotorTorque: conf.MaxMotorTorque,
		motorSpeed:     conf.MotorSpeed,
		enableLimit:    conf.EnableLimit,
		lowerAngle:     conf.LowerLimit,
		upperAngle:     conf.UpperLimit,
	}
}

func (j *revoluteJointImpl) initVelocityConstraints(w *World, sd jointSolverData) {
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
	fixedRotation := iA+iB == 0

	j.mass.Ex.X = mA + mB + j.rA.Y*j.rA.Y*iA + j.rB.Y*j.rB.Y*iB
	j.mass.Ey.X = -j.rA.Y*j.rA.X*iA - j.rB.Y*j.rB.X*iB
	j.mass.Ez.X = -j.rA.Y*iA - j.rB.Y*iB
	j.mass.Ex.Y = j.mass.Ey.X
	j.mass.Ey.Y = mA + mB + j.rA.X*j.rA.X*iA + j.rB.X*j.rB.X*iB
	j.mass.Ez.Y = j.rA.X*iA + j.rB.X*iB
	j.mass.Ex.Z = j.mass.Ez.X
	j.mass.Ey.Z = j.mass.Ez.Y
	j.mass.Ez.Z = iA + iB

	j.motorMass = iA + iB
	if j.motorMass > 0 {
		j.motorMass = 1.0 / j.motorMass
	}

	if !j.enableMotor || fixedRotation {
		j.motorImpulse = 0
	}

	if j.enableLimit && !fixedRotation {
		jointAngle := aB - aA - j.referenceAngle
		switch {
		case math.Abs(j.upperAngle-j.lowerAngle) < 2.0*geom.AngularSlop:
			j.limitState = LimitEqual
		case jointAngle <= j.lowerAngle:
			if j.limitState != LimitAtLower {
				j.impulse.Z = 0
			}
			j.limitState = LimitAtLower
		case jointAngle >= j.upperAngle:
			if j.limitState != LimitAtUpper {
				j.impulse.Z = 0
			}
			j.limitState = LimitAtUpper
		default:
			j.limitState = LimitInactive
			j.impulse.Z = 0
		}
	} else {
		j.limitState = LimitInactive
	}

	if sd.step.warmStarting {
		j.impulse = j.impulse.Mul(sd.step.dtRatio)
		j.motorImpulse *= sd.step.dtRatio

		p := geom.Vec2{X: j.impulse.X, Y: j.impulse.Y}

		vA = vA.Sub(p.Mul(mA))
		wA -= iA * (geom.Cross(j.rA, p) + j.motorImpulse + j.impulse.Z)

		vB = vB.Add(p.Mul(mB))
		wB += iB * (geom.Cross(j.rB, p) + j.motorImpulse + j.impulse.Z)
	} else {
		j.impulse = geom.Vec3{}
		j.motorImpulse = 0
	}

	sd.velocities[j.indexA] = solverVelocity{vA, wA}
	sd.velocities[j.indexB] = solverVelocity{vB, wB}
}

func (j *revoluteJointImpl) solveVelocityConstraints(w *World, sd jointSolverData) {
	vA, wA := sd.velocities[j.indexA].v, sd.velocities[j.indexA].w
	vB, wB := sd.velocities[j.indexB].v, sd.velocities[j.indexB].w

	mA, mB, iA, iB := j.invMassA, j.invMassB, j.invIA, j.invIB
	fixedRotation := iA+iB == 0

	if j.enableMotor && j.limitState != LimitEqual && !fixedRotation {
		cdot := wB - wA - j.motorSpeed
		impulse := -j.motorMass * cdot
		oldImpulse := j.motorImpulse
		maxImpulse := sd.step.dt * j.maxMotorTorque
		j.motorImpulse = clampFloat(j.motorImpulse+impulse, -maxImpulse, maxImpulse)
		impulse = j.motorImpulse - oldImpulse

		wA -= iA * impulse
		wB += iB * impulse
	}

	if j.enableLimit && j.limitState != LimitInactive && !fixedRotation {
		cdot1 := vB.Add(geom.CrossSV(wB, j.rB)).Sub(vA).Sub(geom.CrossSV(wA, j.rA))
		cdot2 := wB - wA
		cdot := geom.Vec3{X: cdot1.X, Y: cdot1.Y, Z: cdot2}

		impulse := j.mass.Solve33(cdot).Neg()

		switch j.limitState {
		case LimitEqual:
			j.impulse = j.impulse.Add(impulse)
		case LimitAtLower:
			newImpulse := j.impulse.Z + impulse.Z
			if newImpulse < 0 {
				rhs := cdot1.Neg().Add(geom.Vec2{X: j.mass.Ez.X, Y: j.mass.Ez.Y}.Mul(j.impulse.Z))
				reduced := j.mass.Solve22(rhs)
				impulse.X, impulse.Y = reduced.X, reduced.Y
				impulse.Z = -j.impulse.Z
				j.impulse.X += reduced.X
				j.impulse.Y += reduced.Y
				j.impulse.Z = 0
			} else {
				j.impulse = j.impulse.Add(impulse)
			}
		case LimitAtUpper:
			newImpulse := j.impulse.Z + impulse.Z
			if newImpulse > 0 {
				rhs := cdot1.Neg().Add(geom.Vec2{X: j.mass.Ez.X, Y: j.mass.Ez.Y}.Mul(j.impulse.Z))
				reduced := j.mass.Solve22(rhs)
				impulse.X, impulse.Y = reduced.X, reduced.Y
				impulse.Z = -j.impulse.Z
				j.impulse.X += reduced.X
				j.impulse.Y += reduced.Y
				j.impulse.Z = 0
			} else {
				j.impulse = j.impulse.Add(impulse)
			}
		}

		p := geom.Vec2{X: impulse.X, Y: impulse.Y}

		vA = vA.Sub(p.Mul(mA))
		wA -= iA * (geom.Cross(j.rA, p) + impulse.Z)

		vB = vB.Add(p.Mul(mB))
		wB += iB * (geom.Cross(j.rB, p) + impulse.Z)
	} else {
		cdot := vB.Add(geom.CrossSV(wB, j.rB)).Sub(vA).Sub(geom.CrossSV(wA, j.rA))
		impulse := j.mass.Solve22(cdot.Neg())

		j.impulse.X += impulse.X
		j.impulse.Y += impulse.Y

		vA = vA.Sub(impulse.Mul(mA))
		wA -= iA * geom.Cross(j.rA, impulse)

		vB = vB.Add(impulse.Mul(mB))
		wB += iB * geom.Cross(j.rB, impulse)
	}

	sd.velocities[j.indexA] = solverVelocity{vA, wA}
	sd.velocities[j.indexB] = solverVelocity{vB, wB}
}

func (j *revoluteJointImpl) solvePositionConstraints(w *World, sd jointSolverData) bool {
	cA, aA := sd.positions[j.indexA].c, sd.positions[j.indexA].a
	cB, aB := sd.positions[j.indexB].c, sd.positions[j.indexB].a

	angularError := 0.0
	positionError := 0.0
	fixedRotation := j.invIA+j.invIB == 0

	if j.enableLimit && j.limitState != LimitInactive && !fixedRotation {
		angle := aB - aA - j.referenceAngle
		limitImpulse := 0.0

		switch j.limitState {
		case LimitEqual:
			c := clampFloat(angle-j.lowerAngle, -geom.MaxAngularCorrection, geom.MaxAngularCorrection)
			limitImpulse = -j.motorMass * c
			angularError = math.Abs(c)
		case LimitAtLower:
			c := angle - j.lowerAngle
			angularError = -c
			c = clampFloat(c+geom.AngularSlop, -geom.MaxAngularCorrection, 0)
			limitImpulse = -j.motorMass * c
		case LimitAtUpper:
			c := angle - j.upperAngle
			angularError = c
			c = clampFloat(c-geom.AngularSlop, 0, geom.MaxAngularCorrection)
			limitImpulse = -j.motorMass * c
		}

		aA -= j.invIA * limitImpulse
		aB += j.invIB * limitImpulse
	}

	qA, qB := geom.RotFromAngle(aA), geom.RotFromAngle(aB)
	rA := geom.MulRotVec2(qA, j.localAnchorA.Sub(j.localCenterA))
	rB := geom.MulRotVec2(qB, j.localAnchorB.Sub(j.localCenterB))

	c := cB.Add(rB).Sub(cA).Sub(rA)
	positionError = c.Length()

	mA, mB, iA, iB := j.invMassA, j.invMassB, j.invIA, j.invIB

	k := geom.Mat22FromScalars(
		mA+mB+iA*rA.Y*rA.Y+iB*rB.Y*rB.Y,
		-iA*rA.X*rA.Y-iB*rB.X*rB.Y,
		-iA*rA.X*rA.Y-iB*rB.X*rB.Y,
		mA+mB+iA*rA.X*rA.X+iB*rB.X*rB.X,
	)

	impulse := k.Solve(c).Neg()

	cA = cA.Sub(impulse.Mul(mA))
	aA -= iA * geom.Cross(rA, impulse)

	cB = cB.Add(impulse.Mul(mB))
	aB += iB * geom.Cross(rB, impulse)

	sd.positions[j.indexA] = solverPosition{cA, aA}
	sd.positions[j.indexB] = solverPosition{cB, aB}

	return positionError <= geom.LinearSlop && angularError <= geom.AngularSlop
}

func (j *revoluteJointImpl) reactionForce(invDt float64) geom.Vec2 {
	p := geom.Vec2{X: j.impulse.X, Y: j.impulse.Y}
	return p.Mul(invDt)
}

func (j *revoluteJointImpl) reactionTorque(invDt float64) float64 {
	return invDt * j.impulse.Z
}

func (j *revoluteJointImpl) coordinate(w *World) float64 {
	bA := &w.bodies[j.bodyA.index]
	bB := &w.bodies[j.bodyB.index]
	return bB.sweep.A - bA.sweep.A - j.referenceAngle
}

func (j *revoluteJointImpl) coordinateSpeed(w *World) float64 {
	bA := &w.bodies[j.bodyA.index]
	bB := &w.bodies[j.bodyB.index]
	return bB.angularVelocity - bA.angularVelocity
}
