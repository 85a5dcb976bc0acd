package impulse2d

import "github.com/seongjinhong-ca/impulse2d/geom"

// mouseJointImpl drags a point on bodyB toward a world target with a
// soft spring-damper, clamped to a maximum force. BodyA is typically the
// static "mouse" anchor and never enters the solver math, matching how
// the teacher's testbed wires it to the ground body.
type mouseJointImpl struct {
	bodyA, bodyB BodyID

	localAnchorB geom.Vec2
	target       geom.Vec2
	frequencyHz  float64
	dampingRatio float64
	beta         float64

	impulse  geom.Vec2
	maxForce float64
	gamma    float64

	indexB         int
	rB             geom.Vec2
	localCenterB   geom.Vec2
	invMassB       float64
	invIB          float64
	mass           geom.Mat22
	c              geom.Vec2
}

func newMouseJoint(conf JointConf) *mouseJointImpl {
	freq := conf.FrequencyHz
	if freq == 0 {
		freq = 5.0
	}
	damping := conf.DampingRatio
	if damping == 0 {
		damping = 0.7
	}
	return &mouseJointImpl{
		bodyA:        conf.BodyA,
		bodyB:        conf.BodyB,
		localAnchorB: conf.LocalAnchorB,
		target:       conf.Target,
		maxForce:     conf.MaxForce,
		frequencyHz:  freq,
		dampingRatio: damping,
	}
}

func (j *mouseJointImpl) initVelocityConstraints(w *World, sd jointSolverData) {
	bB := &w.bodies[j.bodyB.index]

	j.indexB = bB.islandIndex
	j.localCenterB = bB.sweep.LocalCenter
	j.invMassB = bB.invMass
	j.invIB = bB.invI

	cB, aB := sd.positions[j.indexB].c, sd.positions[j.indexB].a
	vB, wB := sd.velocities[j.indexB].v, sd.velocities[j.indexB].w

	qB := geom.RotFromAngle(aB)

	mass := bB.mass

	omega := 2.0 * geom.Pi * j.frequencyHz
	d := 2.0 * mass * j.dampingRatio * omega
	k := mass * (omega * omega)

	h := sd.step.dt
	j.gamma = h * (d + h*k)
	if j.gamma != 0 {
		j.gamma = 1.0 / j.gamma
	}
	j.beta = h * k * j.gamma

	j.rB = geom.MulRotVec2(qB, j.localAnchorB.Sub(j.localCenterB))

	kMat := geom.Mat22{}
	kMat.Ex.X = j.invMassB + j.invIB*j.rB.Y*j.rB.Y + j.gamma
	kMat.Ex.Y = -j.invIB * j.rB.X * j.rB.Y
	kMat.Ey.X = kMat.Ex.Y
	kMat.Ey.Y = j.invMassB + j.invIB*j.rB.X*j.rB.X + j.gamma

	j.mass = kMat.Inverse()

	j.c = cB.Add(j.rB).Sub(j.target).Mul(j.beta)

	wB *= 0.98

	if sd.step.warmStarting {
		j.impulse = j.impulse.Mul(sd.step.dtRatio)
		vB = vB.Add(j.impulse.Mul(j.invMassB))
		wB += j.invIB * geom.Cross(j.rB, j.impulse)
	} else {
		j.impulse = geom.Zero2
	}

	sd.velocities[j.indexB] = solverVelocity{vB, wB}
}

func (j *mouseJointImpl) solveVelocityConstraints(w *World, sd jointSolverData) {
	vB, wB := sd.velocities[j.indexB].v, sd.velocities[j.indexB].w

	cdot := vB.Add(geom.CrossSV(wB, j.rB))
	impulse := geom.MulMV(j.mass, cdot.Add(j.c).Add(j.impulse.Mul(j.gamma)).Neg())

	oldImpulse := j.impulse
	j.impulse = j.impulse.Add(impulse)
	maxImpulse := sd.step.dt * j.maxForce
	if j.impulse.LengthSquared() > maxImpulse*maxImpulse {
		j.impulse = j.impulse.Mul(maxImpulse / j.impulse.Length())
	}
	impulse = j.impulse.Sub(oldImpulse)

	vB = vB.Add(impulse.Mul(j.invMassB))
	wB += j.invIB * geom.Cross(j.rB, impulse)

	sd.velocities[j.indexB] = solverVelocity{vB, wB}
}

func (j *mouseJointImpl) solvePositionConstraints(w *World, sd jointSolverData) bool {
	return true
}

func (j *mouseJointImpl) reactionForce(invDt float64) geom.Vec2 {
	return j.impulse.Mul(invDt)
}

func (j *mouseJointImpl) reactionTorque(invDt float64) float64 {
	return 0
}

func (j *mouseJointImpl) coordinate(w *World) float64 { return 0 }
func (j *mouseJointImpl) coordinateSpeed(w *World) float64 { return 0 }
