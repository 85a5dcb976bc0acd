package impulse2d

import (
	"math"

	"github.com/seongjinhong-ca/impulse2d/geom"
)

// weldJointImpl glues two bodies together, holding both their relative
// position and relative angle fixed (softened into a spring-damper for
// the angular term when WeldFrequencyHz > 0).
type weldJointImpl struct {
	bodyA, bodyB BodyID

	frequencyHz  float64
	dampingRatio float64
	bias         float64

	localAnchorA, localAnchorB geom.Vec2
	referenceAngle             float64
	gamma                      float64
	impulse                    geom.Vec3

	indexA, indexB             int
	rA, rB                     geom.Vec2
	localCenterA, localCenterB geom.Vec2
	invMassA, invMassB         float64
	invIA, invIB               float64
	mass                       geom.Mat33
}

func newWeldJoint(conf JointConf) *weldJointImpl {
	return &weldJointImpl{
		bodyA:          conf.BodyA,
		bodyB:          conf.BodyB,
		localAnchorA:   conf.LocalAnchorA,
		localAnchorB:   conf.LocalAnchorB,
		referenceAngle: conf.ReferenceAngle,
		frequencyHz:    conf.WeldFrequencyHz,
		dampingRatio:   conf.WeldDampingRatio,
	}
}

func (j *weldJointImpl) initVelocityConstraints(w *World, sd jointSolverData) {
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

	k := geom.Mat33{}
	k.Ex.X = mA + mB + j.rA.Y*j.rA.Y*iA + j.rB.Y*j.rB.Y*iB
	k.Ey.X = -j.rA.Y*j.rA.X*iA - j.rB.Y*j.rB.X*iB
	k.Ez.X = -j.rA.Y*iA - j.rB.Y*iB
	k.Ex.Y = k.Ey.X
	k.Ey.Y = mA + mB + j.rA.X*j.rA.X*iA + j.rB.X*j.rB.X*iB
	k.Ez.Y = j.rA.X*iA + j.rB.X*iB
	k.Ex.Z = k.Ez.X
	k.Ey.Z = k.Ez.Y
	k.Ez.Z = iA + iB

	switch {
	case j.frequencyHz > 0:
		k.GetInverse22(&j.mass)

		invM := iA + iB
		m := 0.0
		if invM > 0 {
			m = 1.0 / invM
		}

		c := aB - aA - j.referenceAngle

		omega := 2.0 * geom.Pi * j.frequencyHz
		d := 2.0 * m * j.dampingRatio * omega
		kStiff := m * omega * omega

		h := sd.step.dt
		j.gamma = h * (d + h*kStiff)
		if j.gamma != 0 {
			j.gamma = 1.0 / j.gamma
		}
		j.bias = c * h * kStiff * j.gamma

		invM += j.gamma
		if invM != 0 {
			j.mass.Ez.Z = 1.0 / invM
		} else {
			j.mass.Ez.Z = 0
		}
	case k.Ez.Z == 0:
		k.GetInverse22(&j.mass)
		j.gamma, j.bias = 0, 0
	default:
		k.GetSymInverse33(&j.mass)
		j.gamma, j.bias = 0, 0
	}

	if sd.step.warmStarting {
		j.impulse = j.impulse.Mul(sd.step.dtRatio)

		p := geom.Vec2{X: j.impulse.X, Y: j.impulse.Y}

		vA = vA.Sub(p.Mul(mA))
		wA -= iA * (geom.Cross(j.rA, p) + j.impulse.Z)

		vB = vB.Add(p.Mul(mB))
		wB += iB * (geom.Cross(j.rB, p) + j.impulse.Z)
	} else {
		j.impulse = geom.Vec3{}
	}

	sd.velocities[j.indexA] = solverVelocity{vA, wA}
	sd.velocities[j.indexB] = solverVelocity{vB, wB}
}

func (j *weldJointImpl) solveVelocityConstraints(w *World, sd jointSolverData) {
	vA, wA := sd.velocities[j.indexA].v, sd.velocities[j.indexA].w
	vB, wB := sd.velocities[j.indexB].v, sd.velocities[j.indexB].w

	mA, mB, iA, iB := j.invMassA, j.invMassB, j.invIA, j.invIB

	if j.frequencyHz > 0 {
		cdot2 := wB - wA

		impulse2 := -j.mass.Ez.Z * (cdot2 + j.bias + j.gamma*j.impulse.Z)
		j.impulse.Z += impulse2

		wA -= iA * impulse2
		wB += iB * impulse2

		cdot1 := vB.Add(geom.CrossSV(wB, j.rB)).Sub(vA).Sub(geom.CrossSV(wA, j.rA))

		impulse1 := geom.MulM33V2(j.mass, cdot1).Neg()
		j.impulse.X += impulse1.X
		j.impulse.Y += impulse1.Y

		p := impulse1

		vA = vA.Sub(p.Mul(mA))
		wA -= iA * geom.Cross(j.rA, p)

		vB = vB.Add(p.Mul(mB))
		wB += iB * geom.Cross(j.rB, p)
	} else {
		cdot1 := vB.Add(geom.CrossSV(wB, j.rB)).Sub(vA).Sub(geom.CrossSV(wA, j.rA))
		cdot2 := wB - wA
		cdot := geom.Vec3{X: cdot1.X, Y: cdot1.Y, Z: cdot2}

		impulse := geom.MulM33V3(j.mass, cdot).Neg()
		j.impulse = j.impulse.Add(impulse)

		p := geom.Vec2{X: impulse.X, Y: impulse.Y}

		vA = vA.Sub(p.Mul(mA))
		wA -= iA * (geom.Cross(j.rA, p) + impulse.Z)

		vB = vB.Add(p.Mul(mB))
		wB += iB * (geom.Cross(j.rB, p) + impulse.Z)
	}

	sd.velocities[j.indexA] = solverVelocity{vA, wA}
	sd.velocities[j.indexB] = solverVelocity{vB, wB}
}

func (j *weldJointImpl) solvePositionConstraints(w *World, sd jointSolverData) bool {
	cA, aA := sd.positions[j.indexA].c, sd.positions[j.indexA].a
	cB, aB := sd.positions[j.indexB].c, sd.positions[j.indexB].a

	qA, qB := geom.RotFromAngle(aA), geom.RotFromAngle(aB)

	mA, mB, iA, iB := j.invMassA, j.invMassB, j.invIA, j.invIB

	rA := geom.MulRotVec2(qA, j.localAnchorA.Sub(j.localCenterA))
	rB := geom.MulRotVec2(qB, j.localAnchorB.Sub(j.localCenterB))

	var positionError, angularError float64

	k := geom.Mat33{}
	k.Ex.X = mA + mB + rA.Y*rA.Y*iA + rB.Y*rB.Y*iB
	k.Ey.X = -rA.Y*rA.X*iA - rB.Y*rB.X*iB
	k.Ez.X = -rA.Y*iA - rB.Y*iB
	k.Ex.Y = k.Ey.X
	k.Ey.Y = mA + mB + rA.X*rA.X*iA + rB.X*rB.X*iB
	k.Ez.Y = rA.X*iA + rB.X*iB
	k.Ex.Z = k.Ez.X
	k.Ey.Z = k.Ez.Y
	k.Ez.Z = iA + iB

	if j.frequencyHz > 0 {
		c1 := cB.Add(rB).Sub(cA).Sub(rA)

		positionError = c1.Length()
		angularError = 0

		p := k.Solve22(c1).Neg()

		cA = cA.Sub(p.Mul(mA))
		aA -= iA * geom.Cross(rA, p)

		cB = cB.Add(p.Mul(mB))
		aB += iB * geom.Cross(rB, p)
	} else {
		c1 := cB.Add(rB).Sub(cA).Sub(rA)
		c2 := aB - aA - j.referenceAngle

		positionError = c1.Length()
		angularError = math.Abs(c2)

		c := geom.Vec3{X: c1.X, Y: c1.Y, Z: c2}

		var impulse geom.Vec3
		if k.Ez.Z > 0 {
			impulse = k.Solve33(c).Neg()
		} else {
			impulse2 := k.Solve22(c1).Neg()
			impulse = geom.Vec3{X: impulse2.X, Y: impulse2.Y, Z: 0}
		}

		p := geom.Vec2{X: impulse.X, Y: impulse.Y}

		cA = cA.Sub(p.Mul(mA))
		aA -= iA * (geom.Cross(rA, p) + impulse.Z)

		cB = cB.Add(p.Mul(mB))
		aB += iB * (geom.Cross(rB, p) + impulse.Z)
	}

	sd.positions[j.indexA] = solverPosition{cA, aA}
	sd.positions[j.indexB] = solverPosition{cB, aB}

	return positionError <= geom.LinearSlop && angularError <= geom.AngularSlop
}

func (j *weldJointImpl) reactionForce(invDt float64) geom.Vec2 {
	p := geom.Vec2{X: j.impulse.X, Y: j.impulse.Y}
	return p.Mul(invDt)
}

func (j *weldJointImpl) reactionTorque(invDt float64) float64 {
	return invDt * j.impulse.Z
}

func (j *weldJointImpl) coordinate(w *World) float64 { return 0 }
func (j *weldJointImpl) coordinateSpeed(w *World) float64 { return 0 }
