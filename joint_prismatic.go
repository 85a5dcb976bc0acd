package impulse2d

import (
	"math"

	"github.com/seongjinhong-ca/impulse2d/geom"
)

// prismaticJointImpl constrains bodyB to slide along an axis fixed in
// bodyA, preventing relative rotation, optionally limited and motorized.
type prismaticJointImpl struct {
	bodyA, bodyB BodyID

	localAnchorA, localAnchorB geom.Vec2
	localXAxisA, localYAxisA   geom.Vec2
	referenceAngle             float64

	impulse          geom.Vec3
	motorImpulse     float64
	lowerTranslation float64
	upperTranslation float64
	maxMotorForce    float64
	motorSpeed       float64
	enableLimit      bool
	enableMotor      bool
	limitState       LimitState

	indexA, indexB             int
	localCenterA, localCenterB geom.Vec2
	invMassA, invMassB         float64
	invIA, invIB               float64
	axis, perp                 geom.Vec2
	s1, s2                     float64
	a1, a2                     float64
	k                          geom.Mat33
	motorMass                  float64
}

func newPrismaticJoint(conf JointConf) *prismaticJointImpl {
	axis, _ := conf.LocalAxisA.Normalize()
	if axis == geom.Zero2 {
		axis = geom.Vec2{X: 1, Y: 0}
	}
	return &prismaticJointImpl{
		bodyA:            conf.BodyA,
		bodyB:            conf.BodyB,
		localAnchorA:     conf.LocalAnchorA,
		localAnchorB:     conf.LocalAnchorB,
		localXAxisA:      axis,
		localYAxisA:      geom.CrossSV(1, axis),
		referenceAngle:   conf.ReferenceAngle,
		lowerTranslation: conf.LowerLimit,
		upperTranslation: conf.UpperLimit,
		maxMotorForce:    conf.MaxMotorForce,
		motorSpeed:       conf.MotorSpeed,
		enableLimit:      conf.EnableLimit,
		enableMotor:      conf.EnableMotor,
	}
}

func (j *prismaticJointImpl) initVelocityConstraints(w *World, sd jointSolverData) {
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

	rA := geom.MulRotVec2(qA, j.localAnchorA.Sub(j.localCenterA))
	rB := geom.MulRotVec2(qB, j.localAnchorB.Sub(j.localCenterB))
	d := cB.Sub(cA).Add(rB).Sub(rA)

	mA, mB, iA, iB := j.invMassA, j.invMassB, j.invIA, j.invIB

	j.axis = geom.MulRotVec2(qA, j.localXAxisA)
	j.a1 = geom.Cross(d.Add(rA), j.axis)
	j.a2 = geom.Cross(rB, j.axis)

	j.motorMass = mA + mB + iA*j.a1*j.a1 + iB*j.a2*j.a2
	if j.motorMass > 0 {
		j.motorMass = 1.0 / j.motorMass
	}

	j.perp = geom.MulRotVec2(qA, j.localYAxisA)
	j.s1 = geom.Cross(d.Add(rA), j.perp)
	j.s2 = geom.Cross(rB, j.perp)

	k11 := mA + mB + iA*j.s1*j.s1 + iB*j.s2*j.s2
	k12 := iA*j.s1 + iB*j.s2
	k13 := iA*j.s1*j.a1 + iB*j.s2*j.a2
	k22 := iA + iB
	if k22 == 0 {
		k22 = 1
	}
	k23 := iA*j.a1 + iB*j.a2
	k33 := mA + mB + iA*j.a1*j.a1 + iB*j.a2*j.a2

	j.k = geom.Mat33FromColumns(
		geom.Vec3{X: k11, Y: k12, Z: k13},
		geom.Vec3{X: k12, Y: k22, Z: k23},
		geom.Vec3{X: k13, Y: k23, Z: k33},
	)

	if j.enableLimit {
		translation := geom.Dot(j.axis, d)
		switch {
		case math.Abs(j.upperTranslation-j.lowerTranslation) < 2.0*geom.LinearSlop:
			j.limitState = LimitEqual
		case translation <= j.lowerTranslation:
			if j.limitState != LimitAtLower {
				j.limitState = LimitAtLower
				j.impulse.Z = 0
			}
		case translation >= j.upperTranslation:
			if j.limitState != LimitAtUpper {
				j.limitState = LimitAtUpper
				j.impulse.Z = 0
			}
		default:
			j.limitState = LimitInactive
			j.impulse.Z = 0
		}
	} else {
		j.limitState = LimitInactive
		j.impulse.Z = 0
	}

	if !j.enableMotor {
		j.motorImpulse = 0
	}

	if sd.step.warmStarting {
		j.impulse = j.impulse.Mul(sd.step.dtRatio)
		j.motorImpulse *= sd.step.dtRatio

		p := j.perp.Mul(j.impulse.X).Add(j.axis.Mul(j.motorImpulse + j.impulse.Z))
		la := j.impulse.X*j.s1 + j.impulse.Y + (j.motorImpulse+j.impulse.Z)*j.a1
		lb := j.impulse.X*j.s2 + j.impulse.Y + (j.motorImpulse+j.impulse.Z)*j.a2

		vA = vA.Sub(p.Mul(mA))
		wA -= iA * la

		vB = vB.Add(p.Mul(mB))
		wB += iB * lb
	} else {
		j.impulse = geom.Vec3{}
		j.motorImpulse = 0
	}

	sd.velocities[j.indexA] = solverVelocity{vA, wA}
	sd.velocities[j.indexB] = solverVelocity{vB, wB}
}

func (j *prismaticJointImpl) solveVelocityConstraints(w *World, sd jointSolverData) {
	vA, wA := sd.velocities[j.indexA].v, sd.velocities[j.indexA].w
	vB, wB := sd.velocities[j.indexB].v, sd.velocities[j.indexB].w

	mA, mB, iA, iB := j.invMassA, j.invMassB, j.invIA, j.invIB

	if j.enableMotor && j.limitState != LimitEqual {
		cdot := geom.Dot(j.axis, vB.Sub(vA)) + j.a2*wB - j.a1*wA
		impulse := j.motorMass * (j.motorSpeed - cdot)
		oldImpulse := j.motorImpulse
		maxImpulse := sd.step.dt * j.maxMotorForce
		j.motorImpulse = clampFloat(j.motorImpulse+impulse, -maxImpulse, maxImpulse)
		impulse = j.motorImpulse - oldImpulse

		p := j.axis.Mul(impulse)
		la := impulse * j.a1
		lb := impulse * j.a2

		vA = vA.Sub(p.Mul(mA))
		wA -= iA * la
		vB = vB.Add(p.Mul(mB))
		wB += iB * lb
	}

	cdot1 := geom.Vec2{
		X: geom.Dot(j.perp, vB.Sub(vA)) + j.s2*wB - j.s1*wA,
		Y: wB - wA,
	}

	if j.enableLimit && j.limitState != LimitInactive {
		cdot2 := geom.Dot(j.axis, vB.Sub(vA)) + j.a2*wB - j.a1*wA
		cdot := geom.Vec3{X: cdot1.X, Y: cdot1.Y, Z: cdot2}

		f1 := j.impulse
		df := j.k.Solve33(cdot.Neg())
		j.impulse = j.impulse.Add(df)

		switch j.limitState {
		case LimitAtLower:
			j.impulse.Z = math.Max(j.impulse.Z, 0)
		case LimitAtUpper:
			j.impulse.Z = math.Min(j.impulse.Z, 0)
		}

		b := cdot1.Neg().Sub(geom.Vec2{X: j.k.Ez.X, Y: j.k.Ez.Y}.Mul(j.impulse.Z - f1.Z))
		f2r := j.k.Solve22(b).Add(geom.Vec2{X: f1.X, Y: f1.Y})
		j.impulse.X, j.impulse.Y = f2r.X, f2r.Y

		df = j.impulse.Sub(f1)

		p := j.perp.Mul(df.X).Add(j.axis.Mul(df.Z))
		la := df.X*j.s1 + df.Y + df.Z*j.a1
		lb := df.X*j.s2 + df.Y + df.Z*j.a2

		vA = vA.Sub(p.Mul(mA))
		wA -= iA * la
		vB = vB.Add(p.Mul(mB))
		wB += iB * lb
	} else {
		df := j.k.Solve22(cdot1.Neg())
		j.impulse.X += df.X
		j.impulse.Y += df.Y

		p := j.perp.Mul(df.X)
		la := df.X*j.s1 + df.Y
		lb := df.X*j.s2 + df.Y

		vA = vA.Sub(p.Mul(mA))
		wA -= iA * la
		vB = vB.Add(p.Mul(mB))
		wB += iB * lb
	}

	sd.velocities[j.indexA] = solverVelocity{vA, wA}
	sd.velocities[j.indexB] = solverVelocity{vB, wB}
}

func (j *prismaticJointImpl) solvePositionConstraints(w *World, sd jointSolverData) bool {
	cA, aA := sd.positions[j.indexA].c, sd.positions[j.indexA].a
	cB, aB := sd.positions[j.indexB].c, sd.positions[j.indexB].a

	qA, qB := geom.RotFromAngle(aA), geom.RotFromAngle(aB)

	mA, mB, iA, iB := j.invMassA, j.invMassB, j.invIA, j.invIB

	rA := geom.MulRotVec2(qA, j.localAnchorA.Sub(j.localCenterA))
	rB := geom.MulRotVec2(qB, j.localAnchorB.Sub(j.localCenterB))
	d := cB.Add(rB).Sub(cA).Sub(rA)

	axis := geom.MulRotVec2(qA, j.localXAxisA)
	a1 := geom.Cross(d.Add(rA), axis)
	a2 := geom.Cross(rB, axis)
	perp := geom.MulRotVec2(qA, j.localYAxisA)

	s1 := geom.Cross(d.Add(rA), perp)
	s2 := geom.Cross(rB, perp)

	c1 := geom.Vec2{X: geom.Dot(perp, d), Y: aB - aA - j.referenceAngle}

	linearError := math.Abs(c1.X)
	angularError := math.Abs(c1.Y)

	active := false
	c2 := 0.0
	var impulse geom.Vec3

	if j.enableLimit {
		translation := geom.Dot(axis, d)
		switch {
		case math.Abs(j.upperTranslation-j.lowerTranslation) < 2.0*geom.LinearSlop:
			c2 = clampFloat(translation, -geom.MaxLinearCorrection, geom.MaxLinearCorrection)
			linearError = math.Max(linearError, math.Abs(translation))
			active = true
		case translation <= j.lowerTranslation:
			c2 = clampFloat(translation-j.lowerTranslation+geom.LinearSlop, -geom.MaxLinearCorrection, 0)
			linearError = math.Max(linearError, j.lowerTranslation-translation)
			active = true
		case translation >= j.upperTranslation:
			c2 = clampFloat(translation-j.upperTranslation-geom.LinearSlop, 0, geom.MaxLinearCorrection)
			linearError = math.Max(linearError, translation-j.upperTranslation)
			active = true
		}
	}

	if active {
		k11 := mA + mB + iA*s1*s1 + iB*s2*s2
		k12 := iA*s1 + iB*s2
		k13 := iA*s1*a1 + iB*s2*a2
		k22 := iA + iB
		if k22 == 0 {
			k22 = 1
		}
		k23 := iA*a1 + iB*a2
		k33 := mA + mB + iA*a1*a1 + iB*a2*a2

		k := geom.Mat33FromColumns(
			geom.Vec3{X: k11, Y: k12, Z: k13},
			geom.Vec3{X: k12, Y: k22, Z: k23},
			geom.Vec3{X: k13, Y: k23, Z: k33},
		)
		c := geom.Vec3{X: c1.X, Y: c1.Y, Z: c2}
		impulse = k.Solve33(c.Neg())
	} else {
		k11 := mA + mB + iA*s1*s1 + iB*s2*s2
		k12 := iA*s1 + iB*s2
		k22 := iA + iB
		if k22 == 0 {
			k22 = 1
		}
		k := geom.Mat22FromScalars(k11, k12, k12, k22)
		impulse1 := k.Solve(c1.Neg())
		impulse.X, impulse.Y = impulse1.X, impulse1.Y
		impulse.Z = 0
	}

	p := perp.Mul(impulse.X).Add(axis.Mul(impulse.Z))
	la := impulse.X*s1 + impulse.Y + impulse.Z*a1
	lb := impulse.X*s2 + impulse.Y + impulse.Z*a2

	cA = cA.Sub(p.Mul(mA))
	aA -= iA * la
	cB = cB.Add(p.Mul(mB))
	aB += iB * lb

	sd.positions[j.indexA] = solverPosition{cA, aA}
	sd.positions[j.indexB] = solverPosition{cB, aB}

	return linearError <= geom.LinearSlop && angularError <= geom.AngularSlop
}

func (j *prismaticJointImpl) reactionForce(invDt float64) geom.Vec2 {
	p := j.perp.Mul(j.impulse.X).Add(j.axis.Mul(j.motorImpulse + j.impulse.Z))
	return p.Mul(invDt)
}

func (j *prismaticJointImpl) reactionTorque(invDt float64) float64 {
	return invDt * j.impulse.Y
}

// coordinate reports the translation of bodyB's anchor relative to
// bodyA's anchor, projected onto bodyA's x-axis, the counterpart of the
// teacher's GetJointTranslation.
func (j *prismaticJointImpl) coordinate(w *World) float64 {
	bA := &w.bodies[j.bodyA.index]
	bB := &w.bodies[j.bodyB.index]
	pA := worldPoint(bA, j.localAnchorA)
	pB := worldPoint(bB, j.localAnchorB)
	d := pB.Sub(pA)
	axis := worldVector(bA, j.localXAxisA)
	return geom.Dot(d, axis)
}

func (j *prismaticJointImpl) coordinateSpeed(w *World) float64 {
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
